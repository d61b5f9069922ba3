// Package app provides application-level wiring and dependency injection.
package app

import (
	"context"
	"database/sql"
	"log/slog"

	"tabsink/internal/config"
	"tabsink/internal/db/repository"
	"tabsink/internal/domain"
	"tabsink/internal/fetch"
	"tabsink/internal/service/ingestion"
	"tabsink/internal/service/records"
	"tabsink/internal/service/security"
	"tabsink/internal/sink"
)

// Deps holds the external dependencies that main() must provide: database
// handles, config, and the logger. The app package wires everything else.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB // control-plane write pool
	ReadDB  *sql.DB // control-plane read pool
	SinkDB  *sql.DB // data plane the ingested tables land in
	Logger  *slog.Logger
}

// Services groups the service pointers the API handler needs.
type Services struct {
	Ingestion *ingestion.Service
	Records   *records.Service
	Policy    *security.PolicyService
	Subject   *security.SubjectService
}

// App is the fully-wired application. SubjectRepo is the read-pool repo the
// auth middleware resolves credentials through; Pool and Reaper are exposed
// for lifecycle management in main().
type App struct {
	Services    Services
	SubjectRepo *repository.SubjectRepo
	AuditRepo   domain.AuditRepository
	Engine      domain.PolicyEngine
	Pool        *ingestion.WorkerPool
	Reaper      *ingestion.Reaper
}

// New wires all repositories and services from the provided deps. It also
// seeds the bootstrap admin subject when the store is empty.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	subjectRepo := repository.NewSubjectRepo(deps.WriteDB)
	orgRepo := repository.NewOrganizationRepo(deps.WriteDB)
	policyRepo := repository.NewPolicyRepo(deps.WriteDB)
	jobRepo := repository.NewIngestionJobRepo(deps.WriteDB)
	uploadRepo := repository.NewUploadRecordRepo(deps.WriteDB)
	auditRepo := repository.NewAuditRepo(deps.WriteDB)

	// Request-path lookups go through the read pool so a long write
	// transaction cannot starve auth or audit listing.
	authSubjectRepo := repository.NewSubjectRepo(deps.ReadDB)
	auditReadRepo := repository.NewAuditRepo(deps.ReadDB)

	policySvc := security.NewPolicyService(policyRepo, subjectRepo, auditRepo)
	subjectSvc := security.NewSubjectService(subjectRepo, policyRepo, policySvc, auditRepo)

	if err := seed(ctx, subjectRepo, orgRepo, policyRepo, deps.Logger); err != nil {
		return nil, err
	}

	tableSink := sink.New(deps.SinkDB)
	fetcher := fetch.New(cfg.FetchBaseURL, cfg.FetchAPIKey, cfg.FetchTimeout, deps.Logger)
	reconciler := ingestion.NewReconciler(tableSink, deps.Logger)

	orch := ingestion.NewOrchestrator(
		jobRepo, subjectRepo, policySvc, reconciler,
		tableSink, fetcher, uploadRepo, auditRepo, deps.Logger,
	)
	pool := ingestion.NewWorkerPool(orch, cfg.Workers, cfg.QueueDepth, deps.Logger)
	reaper := ingestion.NewReaper(jobRepo, pool, cfg.StaleJobAfter, deps.Logger)

	ingestionSvc := ingestion.NewService(orch, pool, jobRepo, policySvc, auditRepo, deps.Logger)
	recordsSvc := records.NewService(tableSink, policySvc, uploadRepo, subjectRepo, auditRepo, deps.Logger)

	return &App{
		Services: Services{
			Ingestion: ingestionSvc,
			Records:   recordsSvc,
			Policy:    policySvc,
			Subject:   subjectSvc,
		},
		SubjectRepo: authSubjectRepo,
		AuditRepo:   auditReadRepo,
		Engine:      policySvc,
		Pool:        pool,
		Reaper:      reaper,
	}, nil
}
