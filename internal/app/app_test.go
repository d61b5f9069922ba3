//go:build integration

package app

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabsink/internal/config"
	internaldb "tabsink/internal/db"
	"tabsink/internal/domain"
)

func setupApp(t *testing.T) (*App, *sql.DB) {
	t.Helper()

	writeDB, readDB := internaldb.OpenTestSQLite(t)
	sinkDB, err := internaldb.OpenSQLite(filepath.Join(t.TempDir(), "sink.sqlite"), "write", 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sinkDB.Close() })

	cfg := &config.Config{
		Workers:       1,
		QueueDepth:    4,
		StaleJobAfter: time.Minute,
		FetchTimeout:  time.Second,
	}

	application, err := New(context.Background(), Deps{
		Cfg:     cfg,
		WriteDB: writeDB,
		ReadDB:  readDB,
		SinkDB:  sinkDB,
		Logger:  slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		application.Reaper.Stop()
		_ = application.Pool.Close()
	})
	return application, readDB
}

func TestAppNew_SeedsAdminWithAPIKey(t *testing.T) {
	ctx := context.Background()
	application, readDB := setupApp(t)

	admin, err := application.SubjectRepo.GetByName(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Role)
	assert.Len(t, admin.Organizations, 1)

	// The seed issues an API key the auth middleware can resolve through
	// the exposed repo.
	var apiKey string
	require.NoError(t, readDB.
		QueryRowContext(ctx, `SELECT api_key FROM subjects WHERE name = 'admin'`).
		Scan(&apiKey))
	require.Len(t, apiKey, 64)

	resolved, err := application.SubjectRepo.GetByAPIKey(ctx, apiKey)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, resolved.ID)
}

func TestAppNew_ReadPoolServesRequestPath(t *testing.T) {
	ctx := context.Background()
	application, _ := setupApp(t)

	// SubjectRepo and AuditRepo are wired onto the read pool; both must
	// observe rows committed through the write-pool services.
	_, err := application.SubjectRepo.GetByName(ctx, "admin")
	require.NoError(t, err)

	admin, err := application.Services.Subject.GetByName(ctx, "admin")
	require.NoError(t, err)
	created, _, err := application.Services.Subject.Create(ctx, admin, &domain.Subject{Name: "newbie"})
	require.NoError(t, err)

	visible, err := application.SubjectRepo.GetByName(ctx, "newbie")
	require.NoError(t, err)
	assert.Equal(t, created.ID, visible.ID)

	entries, total, err := application.AuditRepo.List(ctx, domain.AuditFilter{
		Action: strPtr("CREATE_SUBJECT"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditStatusAllowed, entries[0].Status)
}

func strPtr(s string) *string { return &s }
