// Package security implements the attribute-based policy engine and
// subject management.
package security

import (
	"context"
	"errors"

	"tabsink/internal/domain"
)

var _ domain.PolicyEngine = (*PolicyService)(nil)

// PolicyService evaluates (subject, action, resource) decisions against the
// policy store. It holds no mutable state: every decision is a pure function
// of its inputs plus a point-in-time read of the store, so it is safe to
// call concurrently and repeatedly.
type PolicyService struct {
	policies domain.PolicyRepository
	subjects domain.SubjectRepository
	audit    domain.AuditRepository
}

// NewPolicyService creates a new PolicyService backed by domain repositories.
func NewPolicyService(
	policies domain.PolicyRepository,
	subjects domain.SubjectRepository,
	audit domain.AuditRepository,
) *PolicyService {
	return &PolicyService{policies: policies, subjects: subjects, audit: audit}
}

// Decide evaluates one access decision. Unknown actions deny; a subject
// without a policy record is denied everything. Resource refinements apply
// only when the corresponding attribute is present:
//   - organization_id: the subject must directly belong to the organization
//   - target_subject_id: acting on another subject requires set_policy
func (s *PolicyService) Decide(ctx context.Context, subject *domain.Subject, action domain.Action, resource *domain.ResourceDescriptor) (bool, error) {
	if subject == nil {
		return false, nil
	}

	policy, err := s.policies.Get(ctx, subject.ID)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}

	if !policy.Capabilities.Allows(action) {
		return false, nil
	}

	if resource != nil {
		if resource.OrganizationID != "" && !subject.MemberOf(resource.OrganizationID) {
			return false, nil
		}
		if resource.TargetSubjectID != "" && resource.TargetSubjectID != subject.ID &&
			!policy.Capabilities.SetPolicy {
			return false, nil
		}
	}

	return true, nil
}

// GetPermissions returns the full capability map for a subject, with a
// missing policy mapping to every flag false.
func (s *PolicyService) GetPermissions(ctx context.Context, subjectID string) (domain.CapabilitySet, error) {
	policy, err := s.policies.Get(ctx, subjectID)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return domain.CapabilitySet{}, nil
		}
		return domain.CapabilitySet{}, err
	}
	return policy.Capabilities, nil
}

// GetAllowedFeatures returns the feature names a subject may use, derived
// from its capability map. Used by the API surface to filter what it offers.
func (s *PolicyService) GetAllowedFeatures(ctx context.Context, subjectID string) ([]string, error) {
	caps, err := s.GetPermissions(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return caps.Features(), nil
}

// SetPolicy replaces the capability set of a target subject. Acting on
// another subject requires the set_policy capability; subjects may never
// grant themselves set_policy without already holding it.
func (s *PolicyService) SetPolicy(ctx context.Context, acting *domain.Subject, targetSubjectID string, caps domain.CapabilitySet) error {
	allowed, err := s.Decide(ctx, acting, domain.ActionSetPolicy, &domain.ResourceDescriptor{
		ResourceType:    "record",
		TargetSubjectID: targetSubjectID,
	})
	if err != nil {
		return err
	}
	if !allowed {
		s.logAudit(ctx, acting, "SET_POLICY", domain.AuditStatusDenied, "target "+targetSubjectID)
		return domain.ErrAccessDenied("%q may not set policy for subject %q", acting.Name, targetSubjectID)
	}

	if _, err := s.subjects.GetByID(ctx, targetSubjectID); err != nil {
		return err
	}

	if err := s.policies.Upsert(ctx, &domain.Policy{SubjectID: targetSubjectID, Capabilities: caps}); err != nil {
		return err
	}

	s.logAudit(ctx, acting, "SET_POLICY", domain.AuditStatusAllowed, "target "+targetSubjectID)
	return nil
}

func (s *PolicyService) logAudit(ctx context.Context, acting *domain.Subject, action, status, detail string) {
	name := ""
	if acting != nil {
		name = acting.Name
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		SubjectName: name,
		Action:      action,
		Status:      status,
		Detail:      detail,
	})
}
