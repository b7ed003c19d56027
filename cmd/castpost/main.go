package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/castpost/castpost/internal/config"
	"github.com/castpost/castpost/internal/observability/otelx"
	"github.com/castpost/castpost/internal/runner/factory"
	"github.com/castpost/castpost/internal/trigger"
)

func main() {
	env := config.LoadEnv()
	configPath := flag.String("config", env.WorkflowPath, "path to workflow document")
	runOnce := flag.Bool("run-once", env.RunOnce, "run once and exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := otelx.Init(ctx, logger, env.OTel)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()

	doc, err := config.LoadDocument(*configPath)
	if err != nil {
		log.Fatalf("failed to load workflow document: %v", err)
	}

	r, err := factory.NewFromEnvConfig(logger, env).BuildRunner(ctx, doc)
	if err != nil {
		log.Fatalf("failed to build runner: %v", err)
	}

	if *runOnce || doc.Workflow.Trigger == nil {
		if _, err := r.RunOnce(ctx); err != nil {
			log.Fatalf("run failed: %v", err)
		}
		return
	}

	cron := trigger.NewCron(doc.Workflow.Trigger.Schedule, doc.Workflow.Trigger.Timezone)
	if err := r.Start(ctx, cron); err != nil {
		log.Fatalf("failed to start runner: %v", err)
	}
	logger.Info("scheduler started",
		"workflow", doc.Workflow.Name,
		"schedule", doc.Workflow.Trigger.Schedule,
	)

	<-ctx.Done()
	_ = cron.Stop()
	time.Sleep(200 * time.Millisecond)
}
