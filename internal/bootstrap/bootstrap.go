package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prismintel/finpipe/internal/config"
	"github.com/prismintel/finpipe/internal/core/ports"
	"github.com/prismintel/finpipe/internal/core/schema"
	"github.com/prismintel/finpipe/internal/core/usecase"
	"github.com/prismintel/finpipe/internal/infrastructure/extractor"
	"github.com/prismintel/finpipe/internal/infrastructure/oracle/ollama"
	"github.com/prismintel/finpipe/internal/infrastructure/queue/nats"
	"github.com/prismintel/finpipe/internal/infrastructure/repository/postgres"
	"github.com/prismintel/finpipe/internal/infrastructure/resilience"
	"github.com/prismintel/finpipe/internal/infrastructure/storage/localfs"
	"github.com/prismintel/finpipe/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue       ports.MessageQueue
	Attachments ports.AttachmentStore
	Results     ports.ResultStore
	ProcessUC   ports.AttachmentProcessor
	Metrics     *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	registry, err := schema.Load()
	if err != nil {
		return nil, fmt.Errorf("load canonical schema: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	templates := postgres.NewTemplateRepository(db)
	if err := templates.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	results := postgres.NewResultRepository(db)

	attachments, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init attachment storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: time.Duration(cfg.RetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(cfg.RetryMaxBackoffMS) * time.Millisecond,
		RetryMultiplier:     2.0,
		BreakerEnabled:      true,
		BreakerFailureRatio: cfg.BreakerFailureRatio,
		BreakerOpenTimeout:  time.Duration(cfg.BreakerOpenTimeoutSec) * time.Second,
	}, logger)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	oracle := ollama.New(ollama.Config{
		BaseURL:      cfg.OracleURL,
		Model:        cfg.OracleModel,
		Timeout:      time.Duration(cfg.OracleTimeoutSeconds) * time.Second,
		RateLimitRPS: cfg.OracleRateLimitRPS,
	}, executor)

	processUC := usecase.NewProcessUseCase(
		attachments,
		extractor.NewRouter(logger),
		usecase.NewClassifier(oracle, logger),
		usecase.NewFieldMapper(templates, oracle, registry, logger),
		usecase.NewNormalizer(registry),
		usecase.NewScorer(registry),
		results,
		logger,
	)

	return &App{
		Config:      cfg,
		Queue:       queue,
		Attachments: attachments,
		Results:     results,
		ProcessUC:   processUC,
		Metrics:     metrics.NewWorkerMetrics("finpipe-worker"),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
