//go:build integration

package security

import (
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabsink/internal/domain"
)

func setupSubjectService(t *testing.T) (*SubjectService, *securityFixture) {
	t.Helper()
	f := setupSecurity(t)
	svc := NewSubjectService(f.subjects, f.policies, f.engine, f.audit)
	return svc, f
}

func TestSubjectService_CreateRequiresAddSubject(t *testing.T) {
	svc, f := setupSubjectService(t)

	plain := f.makeSubject(t, "plain", domain.CapabilitySet{Upload: true})

	_, _, err := svc.Create(ctx, plain, &domain.Subject{Name: "newbie"})
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)

	entries, _, err := f.audit.List(ctx, domain.AuditFilter{
		Action: ptrStr("CREATE_SUBJECT"),
		Status: ptrStr(domain.AuditStatusDenied),
	})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSubjectService_CreateSeedsDefaultPolicy(t *testing.T) {
	svc, f := setupSubjectService(t)

	admin := f.makeSubject(t, "admin", domain.CapabilitySet{AddSubject: true})

	created, _, err := svc.Create(ctx, admin, &domain.Subject{Name: "newbie", Role: "user"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	// The new subject exists with an all-false policy, not with no policy.
	policy, err := f.policies.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CapabilitySet{}, policy.Capabilities)
}

func TestSubjectService_CreateIssuesAPIKey(t *testing.T) {
	svc, f := setupSubjectService(t)

	admin := f.makeSubject(t, "admin", domain.CapabilitySet{AddSubject: true})

	created, apiKey, err := svc.Create(ctx, admin, &domain.Subject{Name: "newbie"})
	require.NoError(t, err)
	require.Len(t, apiKey, 64)

	// The issued key authenticates the new subject.
	resolved, err := f.subjects.GetByAPIKey(ctx, apiKey)
	require.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)

	// Keys are unique per subject.
	_, otherKey, err := svc.Create(ctx, admin, &domain.Subject{Name: "other"})
	require.NoError(t, err)
	assert.NotEqual(t, apiKey, otherKey)
}

func TestSubjectService_CreateWithMemberships(t *testing.T) {
	svc, f := setupSubjectService(t)

	admin := f.makeSubject(t, "admin", domain.CapabilitySet{AddSubject: true})
	acme, err := f.orgs.Create(ctx, &domain.Organization{Name: "acme"})
	require.NoError(t, err)

	created, _, err := svc.Create(ctx, admin, &domain.Subject{
		Name:          "newbie",
		Organizations: []string{acme.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{acme.ID}, created.Organizations)
}

func TestSubjectService_CreateValidation(t *testing.T) {
	svc, f := setupSubjectService(t)

	admin := f.makeSubject(t, "admin", domain.CapabilitySet{AddSubject: true})

	var validation *domain.ValidationError
	_, _, err := svc.Create(ctx, admin, nil)
	assert.ErrorAs(t, err, &validation)
	_, _, err = svc.Create(ctx, admin, &domain.Subject{})
	assert.ErrorAs(t, err, &validation)
}

func TestSubjectService_DeleteRequiresDeleteSubject(t *testing.T) {
	svc, f := setupSubjectService(t)

	plain := f.makeSubject(t, "plain", domain.CapabilitySet{Upload: true})
	victim := f.makeSubject(t, "victim", domain.CapabilitySet{})

	err := svc.Delete(ctx, plain, victim.ID)
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)

	// Still there.
	_, err = f.subjects.GetByID(ctx, victim.ID)
	require.NoError(t, err)
}

func TestSubjectService_DeleteCascades(t *testing.T) {
	svc, f := setupSubjectService(t)

	admin := f.makeSubject(t, "admin", domain.CapabilitySet{DeleteSubject: true})
	victim := f.makeSubject(t, "victim", domain.CapabilitySet{Upload: true})

	require.NoError(t, svc.Delete(ctx, admin, victim.ID))

	var notFound *domain.NotFoundError
	_, err := f.subjects.GetByID(ctx, victim.ID)
	assert.ErrorAs(t, err, &notFound)
	_, err = f.policies.Get(ctx, victim.ID)
	assert.ErrorAs(t, err, &notFound)

	err = svc.Delete(ctx, admin, victim.ID)
	assert.ErrorAs(t, err, &notFound)
}

func TestSubjectService_GetByNameAndList(t *testing.T) {
	svc, f := setupSubjectService(t)

	f.makeSubject(t, "alice", domain.CapabilitySet{})
	f.makeSubject(t, "bob", domain.CapabilitySet{})

	got, err := svc.GetByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)

	listed, total, err := svc.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, listed, 2)
}
