package domain

import "time"

// Action is one of the fixed set of operations the policy engine understands.
// Unknown actions always deny.
type Action string

// Enumerated actions. Each maps to exactly one capability flag.
const (
	ActionUpload        Action = "upload"
	ActionRead          Action = "read"
	ActionDelete        Action = "delete"
	ActionReadAll       Action = "read_all"
	ActionAddSubject    Action = "add_subject"
	ActionDeleteSubject Action = "delete_subject"
	ActionSetPolicy     Action = "set_policy"
)

// Subject is an acting identity: role label plus direct organization
// memberships. Capabilities live on the Policy record, not here. A Subject
// is resolved once per request and treated as immutable for its duration.
type Subject struct {
	ID            string
	Name          string
	Role          string
	Organizations []string // direct membership only, no transitivity
	CreatedAt     time.Time
}

// MemberOf reports whether the subject directly belongs to the organization.
func (s *Subject) MemberOf(orgID string) bool {
	for _, id := range s.Organizations {
		if id == orgID {
			return true
		}
	}
	return false
}

// CapabilitySet enumerates every capability flag with an explicit field.
// Absent flags default to false; there is no dynamic lookup.
type CapabilitySet struct {
	Upload        bool `json:"upload" yaml:"upload"`
	Read          bool `json:"read" yaml:"read"`
	Delete        bool `json:"delete" yaml:"delete"`
	ReadAll       bool `json:"read_all" yaml:"read_all"`
	AddSubject    bool `json:"add_subject" yaml:"add_subject"`
	DeleteSubject bool `json:"delete_subject" yaml:"delete_subject"`
	SetPolicy     bool `json:"set_policy" yaml:"set_policy"`
}

// Allows returns the flag corresponding to the action, false for unknown actions.
func (c CapabilitySet) Allows(action Action) bool {
	switch action {
	case ActionUpload:
		return c.Upload
	case ActionRead:
		return c.Read
	case ActionDelete:
		return c.Delete
	case ActionReadAll:
		return c.ReadAll
	case ActionAddSubject:
		return c.AddSubject
	case ActionDeleteSubject:
		return c.DeleteSubject
	case ActionSetPolicy:
		return c.SetPolicy
	default:
		return false
	}
}

// Features returns the names of every granted capability, used to compute a
// subject's allowed feature set for surface filtering.
func (c CapabilitySet) Features() []string {
	features := make([]string, 0, 7)
	for _, f := range []struct {
		name    Action
		granted bool
	}{
		{ActionUpload, c.Upload},
		{ActionRead, c.Read},
		{ActionDelete, c.Delete},
		{ActionReadAll, c.ReadAll},
		{ActionAddSubject, c.AddSubject},
		{ActionDeleteSubject, c.DeleteSubject},
		{ActionSetPolicy, c.SetPolicy},
	} {
		if f.granted {
			features = append(features, string(f.name))
		}
	}
	return features
}

// Policy is the one-to-one capability record for a subject. Exactly one
// Policy exists per subject at any time; writes use upsert semantics so the
// invariant cannot break.
type Policy struct {
	SubjectID    string
	Capabilities CapabilitySet
	UpdatedAt    time.Time
}

// Organization groups subjects for resource scoping.
type Organization struct {
	ID        string
	Name      string
	Location  string
	CreatedAt time.Time
}

// ResourceDescriptor tags the thing being acted on. Transient, constructed
// per call, never persisted. Optional attributes are empty when absent.
type ResourceDescriptor struct {
	ResourceType    string // "file", "api", or "record"
	OrganizationID  string
	TargetSubjectID string
	Sensitivity     string
}
