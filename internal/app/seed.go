package app

import (
	"context"
	"log/slog"

	"tabsink/internal/domain"
	"tabsink/internal/service/security"
)

// seed bootstraps an admin subject with every capability so a fresh install
// has at least one identity able to grant access. Idempotent: a store that
// already has subjects is left untouched.
func seed(ctx context.Context, subjects domain.SubjectRepository, orgs domain.OrganizationRepository, policies domain.PolicyRepository, logger *slog.Logger) error {
	existing, _, err := subjects.List(ctx, domain.PageRequest{MaxResults: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	org, err := orgs.Create(ctx, &domain.Organization{Name: "default", Location: "local"})
	if err != nil {
		return err
	}

	admin, err := subjects.Create(ctx, &domain.Subject{Name: "admin", Role: "admin"})
	if err != nil {
		return err
	}
	apiKey, err := security.GenerateAPIKey()
	if err != nil {
		return err
	}
	if err := subjects.SetAPIKey(ctx, admin.ID, apiKey); err != nil {
		return err
	}
	if err := subjects.AddOrganization(ctx, admin.ID, org.ID); err != nil {
		return err
	}

	if err := policies.Upsert(ctx, &domain.Policy{
		SubjectID: admin.ID,
		Capabilities: domain.CapabilitySet{
			Upload:        true,
			Read:          true,
			Delete:        true,
			ReadAll:       true,
			AddSubject:    true,
			DeleteSubject: true,
			SetPolicy:     true,
		},
	}); err != nil {
		return err
	}

	// The key is printed once at first boot; it is not retrievable later.
	logger.Info("seeded bootstrap admin subject",
		"subject_id", admin.ID, "organization_id", org.ID, "api_key", apiKey)
	return nil
}
