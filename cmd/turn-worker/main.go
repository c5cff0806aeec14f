package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/booking-assistant/cmd/mainconfig"
	appconfig "github.com/wolfman30/booking-assistant/internal/config"
	"github.com/wolfman30/booking-assistant/internal/turns"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.UseMemoryQueue {
		logger.Error("turn-worker needs TURN_QUEUE_URL; the in-memory queue only runs inside the API process")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := mainconfig.BuildRuntime(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build runtime", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	queue, err := mainconfig.BuildQueue(ctx, cfg)
	if err != nil {
		logger.Error("failed to build turn queue", "error", err)
		os.Exit(1)
	}

	worker := turns.NewWorker(rt.Processor(), queue, logger,
		turns.WithWorkerCount(cfg.WorkerCount),
		turns.WithReceiveWaitSeconds(20),
		turns.WithReceiveBatchSize(10),
		turns.WithWorkerMetrics(rt.Metrics),
		turns.WithJobStore(rt.Jobs),
	)

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("turn worker started", "lanes", cfg.WorkerCount, "queue", cfg.TurnQueueURL)
		return worker.Run(gctx)
	})
	g.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("turn worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("turn worker stopped")
}
