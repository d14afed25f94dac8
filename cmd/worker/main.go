// Command worker runs Sentinel's background processing: the escalation
// scheduler poll loop (pages targets when an incident's escalation
// timer fires) and the workflow dispatch loop (runs DAG executions
// enqueued by cmd/gateway's ingest pipeline or a manual trigger).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/onwatch/sentinel/internal/actions"
	"github.com/onwatch/sentinel/internal/audit"
	"github.com/onwatch/sentinel/internal/config"
	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/internal/escalation"
	"github.com/onwatch/sentinel/internal/queue"
	"github.com/onwatch/sentinel/internal/store/postgres"
	"github.com/onwatch/sentinel/internal/workflow"
	"github.com/onwatch/sentinel/pkg/logger"
)

func main() {
	log := logger.NewDefaultLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Error("loading config", "error", err)
		os.Exit(1)
	}
	log.SetLevel(cfg.Logging.Level)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	st, err := postgres.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
	cancel()
	if err != nil {
		log.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	escalationRedis := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.EscalationJobsDB})
	escalationQueue := queue.NewRedisQueue(escalationRedis, "sentinel:escalation", log)
	dispatchRedis := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.WorkflowDispatchDB})
	dispatchQueue := queue.NewRedisQueue(dispatchRedis, "sentinel:workflow-dispatch", log)

	scheduler := escalation.NewScheduler(escalationQueue)
	notifier := escalation.NewSlackNotifier(cfg.Actions.SlackBotToken, resolveSlackChannel)
	auditSvc := audit.New(st)
	escalationWorker := escalation.NewWorker(escalationQueue, st, scheduler, notifier, log, cfg.Escalation.WorkerCount, auditSvc)

	tokens := actions.NewTokenSource()
	tickets := actions.NewTicketClients(http.DefaultClient, tokens, cfg.JiraOAuthConfig(), cfg.LinearOAuthConfig())
	actionDispatcher := actions.NewDispatcher(http.DefaultClient, tickets)
	engine := workflow.NewEngine(actionDispatcher, st, log)
	workflowRunner := workflow.NewRunner(dispatchQueue, st, engine, log)

	runCtx, runCancel := context.WithCancel(context.Background())

	if err := workflowRunner.RecoverIncomplete(runCtx); err != nil {
		log.Error("recovering incomplete workflow executions", "error", err)
	}

	go escalationWorker.Run(runCtx, cfg.Escalation.PollInterval, 50)
	go workflowRunner.Run(runCtx, cfg.Workflow.PollInterval, 50)

	log.Info("worker started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	runCancel()
}

// resolveSlackChannel treats the escalation target's stored ID as the
// Slack channel or user ID to notify directly, since Sentinel's spec
// has no separate on-call-schedule-to-Slack-channel mapping surface.
func resolveSlackChannel(t domain.EscalationTarget) (string, error) {
	return t.ID, nil
}
