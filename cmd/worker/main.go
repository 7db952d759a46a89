package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prismintel/finpipe/internal/bootstrap"
	"github.com/prismintel/finpipe/internal/config"
	"github.com/prismintel/finpipe/internal/core/ports"
	"github.com/prismintel/finpipe/internal/observability/logging"
)

const serviceName = "finpipe-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsMux(app),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	processTimeout := time.Duration(cfg.ProcessTimeoutSeconds) * time.Second

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAttachmentReceived(ctx, func(handlerCtx context.Context, event ports.AttachmentEvent) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
		defer cancel()

		app.Metrics.StartAttachment()
		start := time.Now()
		result, err := app.ProcessUC.Process(processCtx, event)
		app.Metrics.FinishAttachment(serviceName, time.Since(start), err)
		if err != nil {
			return err
		}

		for _, mp := range result.Mappings {
			app.Metrics.ObserveMappingResolved(serviceName, string(mp.Source))
		}
		if result.Quality.ManualReviewRequired {
			app.Metrics.ObserveManualReview()
		}
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func metricsMux(app *bootstrap.App) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
