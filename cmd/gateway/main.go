// Command gateway runs Sentinel's HTTP surface: the signed webhook
// ingester and the internal CRUD API for integrations, escalation
// policies, workflows, and runbooks. Escalation firing and workflow
// execution run out-of-process in cmd/worker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/onwatch/sentinel/internal/api"
	"github.com/onwatch/sentinel/internal/audit"
	"github.com/onwatch/sentinel/internal/config"
	"github.com/onwatch/sentinel/internal/escalation"
	"github.com/onwatch/sentinel/internal/incident"
	"github.com/onwatch/sentinel/internal/ingest"
	"github.com/onwatch/sentinel/internal/platform/httpx"
	"github.com/onwatch/sentinel/internal/queue"
	"github.com/onwatch/sentinel/internal/ratelimit"
	"github.com/onwatch/sentinel/internal/runbook"
	"github.com/onwatch/sentinel/internal/signature"
	"github.com/onwatch/sentinel/internal/store"
	"github.com/onwatch/sentinel/internal/store/memstore"
	"github.com/onwatch/sentinel/internal/store/postgres"
	"github.com/onwatch/sentinel/internal/templates"
	"github.com/onwatch/sentinel/internal/workflow"
	"github.com/onwatch/sentinel/pkg/logger"
	"github.com/onwatch/sentinel/resilience"
)

// dataStore is every repository interface the gateway's collaborators
// need, satisfied by both internal/store/postgres.Store (production)
// and internal/store/memstore.Store (SENTINEL_DEV=true, no database
// required), so main can wire the rest of the process identically
// regardless of which backend Development selects.
type dataStore interface {
	store.IntegrationStore
	store.DeliveryStore
	store.AlertStore
	store.IncidentStore
	store.EscalationPolicyStore
	store.WorkflowStore
	store.WorkflowExecutionStore
	store.RunbookStore
	store.RunbookExecutionStore
	store.AuditStore
}

func main() {
	log := logger.NewDefaultLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Error("loading config", "error", err)
		os.Exit(1)
	}
	log.SetLevel(cfg.Logging.Level)

	var st dataStore
	if cfg.Development {
		log.Info("development mode: using in-memory store, no postgres connection")
		st = memstore.New()
	} else {
		if err := postgres.Migrate(cfg.Postgres.DSN, cfg.Postgres.MigrationsTable); err != nil {
			log.Error("applying migrations", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := postgres.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
		cancel()
		if err != nil {
			log.Error("connecting to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		st = pg
	}

	if err := seedTemplates(context.Background(), st, log); err != nil {
		log.Error("seeding workflow templates", "error", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.EscalationJobsDB})
	escalationQueue := queue.NewRedisQueue(redisClient, "sentinel:escalation", log)
	dispatchRedis := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.WorkflowDispatchDB})
	dispatchQueue := queue.NewRedisQueue(dispatchRedis, "sentinel:workflow-dispatch", log)
	rateRedis := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.RateLimitDB})
	limiter := ratelimit.NewRedisLimiter(rateRedis, "sentinel:ratelimit", 60, time.Minute)

	scheduler := escalation.NewScheduler(escalationQueue)
	incidents := incident.New(st, scheduler)
	dispatcher := workflow.NewDispatcher(st, st, dispatchQueue)
	auditSvc := audit.New(st)
	verifier := signature.NewVerifier()

	ingestSvc := ingest.NewService(st, st, st, incidents, scheduler, dispatcher, limiter, auditSvc, verifier, log)
	workflowMgr := workflow.NewManager(st)
	runbookSvc := runbook.New(st)
	runbookExecutor := newRunbookExecutor(cfg, st, log)

	mux := http.NewServeMux()
	ingest.RegisterRoutes(mux, ingestSvc)
	api.RegisterIntegrationRoutes(mux, st, auditSvc)
	api.RegisterEscalationPolicyRoutes(mux, st, auditSvc)
	api.RegisterWorkflowRoutes(mux, workflowMgr, st, dispatcher, auditSvc)
	api.RegisterRunbookRoutes(mux, runbookSvc, runbookExecutor, auditSvc)
	api.RegisterIncidentRoutes(mux, incidents, auditSvc)

	handler := httpx.Chain(
		httpx.RequestID,
		httpx.Recover(log),
		httpx.Logging(log),
		httpx.CORS(httpx.DefaultCORSConfig()),
	)(mux)

	srv := &http.Server{
		Addr:         cfg.HTTP.ListenAddr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.WithField("addr", cfg.HTTP.ListenAddr).Info("gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", "error", err)
	}
}

// seedTemplates persists each starter template once, skipping any
// category that already has at least one template so restarts don't
// duplicate rows.
func seedTemplates(ctx context.Context, st dataStore, log logger.Logger) error {
	for _, tmpl := range templates.Seed() {
		existing, err := st.ListWorkflowTemplates(ctx, tmpl.TemplateCategory)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}
		if err := st.CreateWorkflow(ctx, tmpl); err != nil {
			return err
		}
		log.WithField("category", tmpl.TemplateCategory).Info("seeded workflow template")
	}
	return nil
}

func newRunbookExecutor(cfg *config.Config, st dataStore, log logger.Logger) *runbook.Executor {
	cb, err := resilience.NewCircuitBreakerFor("runbook-executor", resilience.Dependencies{Logger: log})
	if err != nil {
		log.Error("constructing runbook circuit breaker", "error", err)
		cb, _ = resilience.NewCircuitBreaker(resilience.DefaultConfig())
	}
	return runbook.NewExecutor(st, http.DefaultClient, cb)
}
