package mainconfig

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/booking-assistant/internal/api/router"
	"github.com/wolfman30/booking-assistant/internal/appointments"
	"github.com/wolfman30/booking-assistant/internal/availability"
	appconfig "github.com/wolfman30/booking-assistant/internal/config"
	"github.com/wolfman30/booking-assistant/internal/dialogue"
	"github.com/wolfman30/booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/booking-assistant/internal/session"
	"github.com/wolfman30/booking-assistant/internal/turns"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

// ErrQueueNotConfigured is returned by BuildQueue when neither an in-memory
// queue nor TURN_QUEUE_URL is configured.
var ErrQueueNotConfigured = errors.New("mainconfig: turn queue not configured")

// Runtime is the assembled dialogue stack shared by the binaries.
type Runtime struct {
	Store       appointments.Store
	Service     *dialogue.Service
	Metrics     *metrics.DialogueMetrics
	Registry    *prometheus.Registry
	ReadyChecks map[string]router.ReadyCheck
	// Jobs records the outcome of queued turns.
	Jobs turns.JobStore

	pool    *pgxpool.Pool
	closers []func()
}

// BuildRuntime wires the appointment store, session persistence and the
// dialogue service from cfg.
func BuildRuntime(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Runtime, error) {
	if logger == nil {
		logger = logging.Default()
	}
	rt := &Runtime{
		Registry:    prometheus.NewRegistry(),
		ReadyChecks: map[string]router.ReadyCheck{},
	}
	rt.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt.Metrics = metrics.NewDialogueMetrics(rt.Registry)

	store, err := rt.buildStore(ctx, cfg, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Store = store

	var (
		snapshots  session.SnapshotStore = session.NewMemorySnapshots()
		transcript session.Transcript    = session.NewMemoryTranscript()
	)
	rt.Jobs = turns.NewMemoryJobStore()
	if client := rt.connectRedis(cfg, logger); client != nil {
		snapshots = session.NewRedisSnapshots(client, cfg.SessionTTL)
		transcript = session.NewRedisTranscript(client, cfg.SessionTTL)
		rt.Jobs = turns.NewRedisJobStore(client)
	}
	if rt.pool != nil {
		rt.Jobs = turns.NewPGJobStore(rt.pool)
	}

	engine := availability.NewEngine(EngineConfig(cfg), store)
	machine := dialogue.NewMachine(engine, store, dialogue.Config{
		MaxSelectionRetries: cfg.MaxSelectionRetries,
		CancelLookahead:     cfg.CancelLookahead,
		MaxListedSlots:      cfg.MaxListedSlots,
	}, logger)
	rt.Service = dialogue.NewService(machine, session.NewRegistry(snapshots),
		dialogue.WithLogger(logger),
		dialogue.WithMetrics(rt.Metrics),
		dialogue.WithTranscript(transcript),
	)
	return rt, nil
}

// EngineConfig maps business-calendar settings onto the availability engine.
func EngineConfig(cfg *appconfig.Config) availability.Config {
	return availability.Config{
		Open:            cfg.BusinessOpen,
		Close:           cfg.BusinessClose,
		Interval:        cfg.SlotInterval,
		DefaultDuration: cfg.DefaultDuration,
		WorkingDays:     cfg.WorkingDays,
	}
}

func (rt *Runtime) buildStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (appointments.Store, error) {
	var store appointments.Store
	switch cfg.StoreBackend {
	case "", "memory":
		logger.Warn("using in-memory appointment store; bookings are lost on restart")
		store = appointments.NewMemoryStore()
	case "postgres":
		pool, err := ConnectPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		rt.pool = pool
		rt.closers = append(rt.closers, pool.Close)
		rt.ReadyChecks["postgres"] = pool.Ping
		store = appointments.NewPostgresStore(pool)
	default:
		return nil, fmt.Errorf("mainconfig: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if cfg.StoreTimeout > 0 {
		store = appointments.NewTimeoutStore(store, cfg.StoreTimeout)
	}
	return store, nil
}

// ConnectPostgresPool opens and pings a pgx pool.
func ConnectPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("mainconfig: DATABASE_URL is required for the postgres store")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("mainconfig: open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("mainconfig: ping postgres: %w", err)
	}
	return pool, nil
}

func (rt *Runtime) connectRedis(cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set; sessions are kept in memory")
		return nil
	}
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	rt.closers = append(rt.closers, func() { _ = client.Close() })
	rt.ReadyChecks["redis"] = func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	return client
}

// Close releases pools and clients in reverse order.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// Processor adapts the dialogue service to the queue worker.
func (rt *Runtime) Processor() turns.TurnProcessor {
	return turns.TurnFunc(func(ctx context.Context, sessionID, text string, now time.Time) (string, error) {
		resp, _, err := rt.Service.ProcessTurn(ctx, sessionID, text, now)
		if err != nil {
			return "", err
		}
		return resp.Reply, nil
	})
}

// BuildQueue returns the configured turn queue: in-memory when
// USE_MEMORY_QUEUE is set, SQS when TURN_QUEUE_URL is set.
func BuildQueue(ctx context.Context, cfg *appconfig.Config) (turns.Queue, error) {
	if cfg.UseMemoryQueue {
		return turns.NewMemoryQueue(0), nil
	}
	if cfg.TurnQueueURL == "" {
		return nil, ErrQueueNotConfigured
	}
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("mainconfig: load AWS config: %w", err)
	}
	return turns.NewSQSQueue(NewSQSClient(awsCfg, cfg), cfg.TurnQueueURL), nil
}
