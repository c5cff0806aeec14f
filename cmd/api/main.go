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
	"github.com/wolfman30/booking-assistant/internal/api/router"
	appconfig "github.com/wolfman30/booking-assistant/internal/config"
	"github.com/wolfman30/booking-assistant/internal/dialogue"
	"github.com/wolfman30/booking-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/booking-assistant/internal/http/middleware"
	"github.com/wolfman30/booking-assistant/internal/turns"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"store", cfg.StoreBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	rt, err := mainconfig.BuildRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	g, gctx := errgroup.WithContext(ctx)

	publisher, worker, err := setupQueue(gctx, cfg, rt, logger)
	if err != nil {
		return err
	}
	if worker != nil {
		g.Go(func() error { return worker.Run(gctx) })
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newHandler(cfg, rt, publisher, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// setupQueue returns a publisher when async messages are configured. With
// an in-memory queue the worker runs in this process as well.
func setupQueue(ctx context.Context, cfg *appconfig.Config, rt *mainconfig.Runtime, logger *logging.Logger) (dialogue.Enqueuer, *turns.Worker, error) {
	queue, err := mainconfig.BuildQueue(ctx, cfg)
	if errors.Is(err, mainconfig.ErrQueueNotConfigured) {
		logger.Info("async messages disabled; set USE_MEMORY_QUEUE or TURN_QUEUE_URL to enable")
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	publisher := turns.NewPublisher(queue, rt.Metrics, logger, turns.WithPendingJobs(rt.Jobs))
	if !cfg.UseMemoryQueue {
		return publisher, nil, nil
	}
	worker := turns.NewWorker(rt.Processor(), queue, logger,
		turns.WithWorkerCount(cfg.WorkerCount),
		turns.WithWorkerMetrics(rt.Metrics),
		turns.WithJobStore(rt.Jobs),
	)
	return publisher, worker, nil
}

func newHandler(cfg *appconfig.Config, rt *mainconfig.Runtime, queue dialogue.Enqueuer, logger *logging.Logger) http.Handler {
	var limiter *httpmiddleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	return router.New(&router.Config{
		Logger:            logger,
		Dialogue:          dialogue.NewHandler(rt.Service, queue, logger, dialogue.WithJobLookup(rt.Jobs)),
		AdminAppointments: handlers.NewAdminAppointmentsHandler(rt.Store, logger),
		AdminAuthSecret:   cfg.AdminJWTSecret,
		MetricsHandler:    promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{}),
		RateLimiter:       limiter,
		ReadyChecks:       rt.ReadyChecks,
	})
}
