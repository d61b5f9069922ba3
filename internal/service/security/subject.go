package security

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"tabsink/internal/domain"
)

// GenerateAPIKey returns a cryptographically random API key.
func GenerateAPIKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// SubjectService provides subject management operations, gated by the
// add_subject and delete_subject capabilities.
type SubjectService struct {
	subjects domain.SubjectRepository
	policies domain.PolicyRepository
	engine   *PolicyService
	audit    domain.AuditRepository
}

// NewSubjectService creates a new SubjectService.
func NewSubjectService(
	subjects domain.SubjectRepository,
	policies domain.PolicyRepository,
	engine *PolicyService,
	audit domain.AuditRepository,
) *SubjectService {
	return &SubjectService{subjects: subjects, policies: policies, engine: engine, audit: audit}
}

// Create validates and persists a new subject together with its default
// all-false policy, so the one-policy-per-subject invariant holds from the
// moment the subject exists. The returned API key is shown once and never
// retrievable afterwards.
func (s *SubjectService) Create(ctx context.Context, acting *domain.Subject, subject *domain.Subject) (*domain.Subject, string, error) {
	allowed, err := s.engine.Decide(ctx, acting, domain.ActionAddSubject, nil)
	if err != nil {
		return nil, "", err
	}
	if !allowed {
		s.logAudit(ctx, acting, "CREATE_SUBJECT", domain.AuditStatusDenied)
		return nil, "", domain.ErrAccessDenied("%q may not add subjects", acting.Name)
	}

	if subject == nil || subject.Name == "" {
		return nil, "", domain.ErrValidation("subject name is required")
	}

	memberships := subject.Organizations
	created, err := s.subjects.Create(ctx, subject)
	if err != nil {
		return nil, "", err
	}
	apiKey, err := GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}
	if err := s.subjects.SetAPIKey(ctx, created.ID, apiKey); err != nil {
		return nil, "", err
	}
	for _, orgID := range memberships {
		if err := s.subjects.AddOrganization(ctx, created.ID, orgID); err != nil {
			return nil, "", err
		}
	}
	if len(memberships) > 0 {
		if created, err = s.subjects.GetByID(ctx, created.ID); err != nil {
			return nil, "", err
		}
	}
	if err := s.policies.Upsert(ctx, &domain.Policy{SubjectID: created.ID}); err != nil {
		return nil, "", err
	}

	s.logAudit(ctx, acting, "CREATE_SUBJECT", domain.AuditStatusAllowed)
	return created, apiKey, nil
}

// GetByName returns a subject by unique name.
func (s *SubjectService) GetByName(ctx context.Context, name string) (*domain.Subject, error) {
	return s.subjects.GetByName(ctx, name)
}

// List returns a paginated list of subjects.
func (s *SubjectService) List(ctx context.Context, page domain.PageRequest) ([]domain.Subject, int64, error) {
	return s.subjects.List(ctx, page)
}

// Delete removes a subject; its policy and memberships cascade.
func (s *SubjectService) Delete(ctx context.Context, acting *domain.Subject, id string) error {
	allowed, err := s.engine.Decide(ctx, acting, domain.ActionDeleteSubject, nil)
	if err != nil {
		return err
	}
	if !allowed {
		s.logAudit(ctx, acting, "DELETE_SUBJECT", domain.AuditStatusDenied)
		return domain.ErrAccessDenied("%q may not delete subjects", acting.Name)
	}

	if err := s.subjects.Delete(ctx, id); err != nil {
		return err
	}

	s.logAudit(ctx, acting, "DELETE_SUBJECT", domain.AuditStatusAllowed)
	return nil
}

func (s *SubjectService) logAudit(ctx context.Context, acting *domain.Subject, action, status string) {
	name := ""
	if acting != nil {
		name = acting.Name
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		SubjectName: name,
		Action:      action,
		Status:      status,
	})
}
