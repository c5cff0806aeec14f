package turns

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	defaultTurnTimeout   = 30 * time.Second
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
	laneBuffer           = 16
)

// TurnProcessor runs one user turn and returns the assistant reply.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, sessionID, text string, now time.Time) (string, error)
}

// TurnFunc adapts a function to TurnProcessor.
type TurnFunc func(ctx context.Context, sessionID, text string, now time.Time) (string, error)

func (f TurnFunc) ProcessTurn(ctx context.Context, sessionID, text string, now time.Time) (string, error) {
	return f(ctx, sessionID, text, now)
}

// ReplySink receives replies produced by queued turns.
type ReplySink interface {
	DeliverReply(ctx context.Context, sessionID, jobID, reply string) error
}

type logSink struct {
	logger *logging.Logger
}

func (s logSink) DeliverReply(_ context.Context, sessionID, jobID, reply string) error {
	s.logger.Info("turn reply", "session_id", sessionID, "job_id", jobID, "reply", reply)
	return nil
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	turnTimeout      time.Duration
	sink             ReplySink
	jobs             JobStore
	metrics          *metrics.DialogueMetrics
	now              func() time.Time
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of session lanes.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait, capped at 20 seconds.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			seconds = 0
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages one receive may return.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// WithTurnTimeout bounds a single turn.
func WithTurnTimeout(d time.Duration) WorkerOption {
	return func(cfg *workerConfig) {
		if d > 0 {
			cfg.turnTimeout = d
		}
	}
}

// WithReplySink delivers replies somewhere other than the log.
func WithReplySink(sink ReplySink) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.sink = sink
	}
}

// WithJobStore records each turn's reply or failure against its job id.
func WithJobStore(jobs JobStore) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.jobs = jobs
	}
}

// WithWorkerMetrics counts processed messages by status.
func WithWorkerMetrics(m *metrics.DialogueMetrics) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.metrics = m
	}
}

// Worker consumes queued turns. Messages are sharded by session id onto
// sequential lanes so turns of one session run in arrival order.
type Worker struct {
	processor TurnProcessor
	queue     Queue
	logger    *logging.Logger
	cfg       workerConfig
}

// NewWorker builds a queue consumer.
func NewWorker(processor TurnProcessor, queue Queue, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if processor == nil {
		panic("turns: processor cannot be nil")
	}
	if queue == nil {
		panic("turns: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
		turnTimeout:      defaultTurnTimeout,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sink == nil {
		cfg.sink = logSink{logger: logger}
	}

	return &Worker{
		processor: processor,
		queue:     queue,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run polls the queue until ctx is done. Turns already handed to a lane
// are finished before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	lanes := make([]chan queueMessage, w.cfg.workers)
	for i := range lanes {
		lanes[i] = make(chan queueMessage, laneBuffer)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, lane := range lanes {
		laneID := i + 1
		g.Go(func() error {
			w.lane(ctx, laneID, lane)
			return nil
		})
	}
	g.Go(func() error {
		defer func() {
			for _, lane := range lanes {
				close(lane)
			}
		}()
		return w.receive(gctx, lanes)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) receive(ctx context.Context, lanes []chan queueMessage) error {
	w.logger.Debug("turn worker started", "lanes", len(lanes))
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			w.logger.Debug("turn worker stopping")
			return nil
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("failed to receive turns", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			p, err := decodePayload(msg.Body)
			if err != nil {
				w.logger.Error("dropping undecodable turn", "error", err, "msg_id", msg.ID)
				w.cfg.metrics.ObserveQueue("invalid")
				w.deleteMessage(ctx, msg.ReceiptHandle)
				continue
			}
			select {
			case lanes[laneFor(p.SessionID, len(lanes))] <- msg:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (w *Worker) lane(ctx context.Context, laneID int, in <-chan queueMessage) {
	for msg := range in {
		w.handleMessage(ctx, laneID, msg)
	}
}

func (w *Worker) handleMessage(ctx context.Context, laneID int, msg queueMessage) {
	p, err := decodePayload(msg.Body)
	if err != nil {
		w.deleteMessage(ctx, msg.ReceiptHandle)
		return
	}
	now := p.Now
	if now.IsZero() {
		now = w.cfg.now()
	}

	turnCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.turnTimeout)
	defer cancel()

	reply, err := w.processor.ProcessTurn(turnCtx, p.SessionID, p.Text, now)
	if err != nil {
		// Left on the queue so SQS can redeliver after the visibility timeout.
		w.logger.Error("turn failed", "error", err, "job_id", p.ID, "session_id", p.SessionID, "lane", laneID)
		w.cfg.metrics.ObserveQueue("failed")
		w.recordJob(ctx, p, func(jobCtx context.Context) error {
			return w.cfg.jobs.MarkFailed(jobCtx, p.ID, err.Error())
		})
		return
	}

	w.recordJob(ctx, p, func(jobCtx context.Context) error {
		return w.cfg.jobs.MarkCompleted(jobCtx, p.ID, reply)
	})

	if err := w.cfg.sink.DeliverReply(turnCtx, p.SessionID, p.ID, reply); err != nil {
		w.logger.Warn("failed to deliver turn reply", "error", err, "job_id", p.ID, "session_id", p.SessionID)
	}
	w.cfg.metrics.ObserveQueue("processed")
	w.deleteMessage(ctx, msg.ReceiptHandle)
}

func (w *Worker) recordJob(ctx context.Context, p payload, mark func(context.Context) error) {
	if w.cfg.jobs == nil {
		return
	}
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := mark(jobCtx); err != nil {
		w.logger.Warn("failed to record job", "error", err, "job_id", p.ID, "session_id", p.SessionID)
	}
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}
	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete turn", "error", err)
	}
}

func laneFor(sessionID string, lanes int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return int(h.Sum32() % uint32(lanes))
}
