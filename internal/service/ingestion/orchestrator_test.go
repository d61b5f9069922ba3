//go:build integration

package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "tabsink/internal/db"
	"tabsink/internal/db/repository"
	"tabsink/internal/domain"
	"tabsink/internal/fetch"
	"tabsink/internal/service/security"
	"tabsink/internal/sink"
)

var ctx = context.Background()

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ingestionFixture wires the full pipeline over two real SQLite files: one
// for metadata, one as the sink. Jobs run synchronously on the caller's
// goroutine.
type ingestionFixture struct {
	svc      *Service
	orch     *Orchestrator
	store    domain.Sink
	jobs     *repository.IngestionJobRepo
	subjects *repository.SubjectRepo
	orgs     *repository.OrganizationRepo
	policies *repository.PolicyRepo
	uploads  *repository.UploadRecordRepo
	audit    *repository.AuditRepo
	engine   *security.PolicyService
}

// fetchBatches records the count parameter of every upstream request.
type fetchBatches struct {
	counts []int
}

func setupIngestion(t *testing.T) *ingestionFixture {
	f, _ := setupIngestionWithSource(t)
	return f
}

func setupIngestionWithSource(t *testing.T) (*ingestionFixture, *fetchBatches) {
	t.Helper()

	writeDB, _ := internaldb.OpenTestSQLite(t)

	sinkDB, err := internaldb.OpenSQLite(filepath.Join(t.TempDir(), "sink.sqlite"), "write", 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sinkDB.Close() })

	batches := &fetchBatches{}
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		batches.counts = append(batches.counts, count)

		records := make([]map[string]interface{}, count)
		for i := range records {
			records[i] = map[string]interface{}{
				"first_name": fmt.Sprintf("user%d", i),
				"email":      fmt.Sprintf("user%d@example.com", i),
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(records)
	}))
	t.Cleanup(source.Close)

	logger := testLogger()

	f := &ingestionFixture{
		store:    sink.New(sinkDB),
		jobs:     repository.NewIngestionJobRepo(writeDB),
		subjects: repository.NewSubjectRepo(writeDB),
		orgs:     repository.NewOrganizationRepo(writeDB),
		policies: repository.NewPolicyRepo(writeDB),
		uploads:  repository.NewUploadRecordRepo(writeDB),
		audit:    repository.NewAuditRepo(writeDB),
	}
	f.engine = security.NewPolicyService(f.policies, f.subjects, f.audit)

	fetcher := fetch.New(source.URL, "test-key", 5*time.Second, logger)
	reconciler := NewReconciler(f.store, logger)
	f.orch = NewOrchestrator(f.jobs, f.subjects, f.engine, reconciler, f.store, fetcher, f.uploads, f.audit, logger)
	f.svc = NewService(f.orch, &SyncQueue{Orch: f.orch}, f.jobs, f.engine, f.audit, logger)
	return f, batches
}

func (f *ingestionFixture) makeSubject(t *testing.T, name string, caps domain.CapabilitySet) *domain.Subject {
	t.Helper()
	subject, err := f.subjects.Create(ctx, &domain.Subject{Name: name})
	require.NoError(t, err)
	require.NoError(t, f.policies.Upsert(ctx, &domain.Policy{SubjectID: subject.ID, Capabilities: caps}))
	return subject
}

func csvOfPeople(rows int) []byte {
	var b strings.Builder
	b.WriteString("name,age\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "person%d,%d\n", i, 20+i)
	}
	return []byte(b.String())
}

func TestIngestFile_CompletesAndLoads(t *testing.T) {
	f := setupIngestion(t)

	uploader := f.makeSubject(t, "uploader", domain.CapabilitySet{Upload: true})

	jobID, err := f.svc.SubmitFile(ctx, uploader, csvOfPeople(10), "people")
	require.NoError(t, err)

	job, err := f.svc.GetJobStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, 10, job.RowCount)
	assert.Empty(t, job.ErrorMessage)

	columns, err := f.store.ListColumns(ctx, "people")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"name", "age", "uploaded_at"}, columns)

	loaded, err := f.store.SelectAll(ctx, "people")
	require.NoError(t, err)
	assert.Len(t, loaded.Rows, 10)

	records, err := f.uploads.ListByTable(ctx, "people")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uploader.ID, records[0].SubjectID)
	assert.Equal(t, 10, records[0].RowCount)

	entries, _, err := f.audit.List(ctx, domain.AuditFilter{
		Action: auditPtr("INGEST_file"),
		Status: auditPtr(domain.AuditStatusAllowed),
	})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestIngestFile_DeniedBeforeSinkIO(t *testing.T) {
	f := setupIngestion(t)

	reader := f.makeSubject(t, "reader", domain.CapabilitySet{Read: true})

	jobID, err := f.svc.SubmitFile(ctx, reader, csvOfPeople(3), "people")
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	require.NotEmpty(t, jobID)

	job, err := f.svc.GetJobStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusDenied, job.Status)
	assert.Contains(t, job.ErrorMessage, "lacks the upload capability")

	// The sink never saw the submission.
	columns, err := f.store.ListColumns(ctx, "people")
	require.NoError(t, err)
	assert.Nil(t, columns)

	entries, _, err := f.audit.List(ctx, domain.AuditFilter{
		Action: auditPtr("INGEST_file"),
		Status: auditPtr(domain.AuditStatusDenied),
	})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestIngestFile_SchemaGrowsAdditively(t *testing.T) {
	f := setupIngestion(t)

	uploader := f.makeSubject(t, "uploader", domain.CapabilitySet{Upload: true})

	_, err := f.svc.SubmitFile(ctx, uploader, []byte("name,age\nada,36\n"), "people")
	require.NoError(t, err)

	_, err = f.svc.SubmitFile(ctx, uploader, []byte("name,age,email\ngrace,40,grace@example.com\n"), "people")
	require.NoError(t, err)

	columns, err := f.store.ListColumns(ctx, "people")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"name", "age", "email", "uploaded_at"}, columns)

	loaded, err := f.store.SelectAll(ctx, "people")
	require.NoError(t, err)
	require.Len(t, loaded.Rows, 2)

	// The pre-growth row reads back with a null in the new column.
	byName := map[string]domain.Row{}
	for _, row := range loaded.Rows {
		byName[row["name"].String()] = row
	}
	assert.Equal(t, domain.KindNull, byName["ada"]["email"].Kind)
	assert.Equal(t, "grace@example.com", byName["grace"]["email"].String())
}

func TestIngestFile_UnreadableFormatFails(t *testing.T) {
	f := setupIngestion(t)

	uploader := f.makeSubject(t, "uploader", domain.CapabilitySet{Upload: true})

	jobID, err := f.svc.SubmitFile(ctx, uploader, []byte("\"unterminated\nquote,"), "people")
	require.NoError(t, err)

	job, err := f.svc.GetJobStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.NotEmpty(t, job.ErrorMessage)

	entries, _, err := f.audit.List(ctx, domain.AuditFilter{
		Status: auditPtr(domain.AuditStatusError),
	})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestIngestAPI_PaginatesInBatches(t *testing.T) {
	f, batches := setupIngestionWithSource(t)

	uploader := f.makeSubject(t, "uploader", domain.CapabilitySet{Upload: true})

	jobID, err := f.svc.SubmitAPI(ctx, uploader, 45, "contacts")
	require.NoError(t, err)

	job, err := f.svc.GetJobStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, 45, job.RowCount)

	// 45 records arrive as one full batch of 30 plus the 15-record rest.
	assert.Equal(t, []int{30, 15}, batches.counts)

	loaded, err := f.store.SelectAll(ctx, "contacts")
	require.NoError(t, err)
	assert.Len(t, loaded.Rows, 45)
	assert.Contains(t, loaded.Columns, "first_name")
	assert.Contains(t, loaded.Columns, "fetched_at")
}

func TestOrchestrator_LostPayloadFailsCleanly(t *testing.T) {
	f := setupIngestion(t)

	uploader := f.makeSubject(t, "uploader", domain.CapabilitySet{Upload: true})

	// A job re-executed after a restart has no in-memory payload.
	job, err := f.jobs.Create(ctx, &domain.IngestionJob{
		SubjectID:  uploader.ID,
		TableName:  "people",
		SourceKind: domain.SourceFile,
	})
	require.NoError(t, err)

	f.orch.Run(ctx, job.ID)

	got, err := f.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "payload is no longer available")
}

func TestOrchestrator_TerminalJobIsNotRerun(t *testing.T) {
	f := setupIngestion(t)

	uploader := f.makeSubject(t, "uploader", domain.CapabilitySet{Upload: true})

	jobID, err := f.svc.SubmitFile(ctx, uploader, csvOfPeople(2), "people")
	require.NoError(t, err)

	// A duplicate delivery of a finished job must not load rows twice.
	f.orch.Run(ctx, jobID)

	loaded, err := f.store.SelectAll(ctx, "people")
	require.NoError(t, err)
	assert.Len(t, loaded.Rows, 2)
}

func auditPtr(s string) *string { return &s }
