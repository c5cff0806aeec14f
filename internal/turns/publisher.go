package turns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

// Publisher enqueues user turns for asynchronous processing.
type Publisher struct {
	queue   Queue
	jobs    JobStore
	metrics *metrics.DialogueMetrics
	logger  *logging.Logger
}

// PublisherOption customizes a Publisher.
type PublisherOption func(*Publisher)

// WithPendingJobs records every enqueued turn as a pending job.
func WithPendingJobs(jobs JobStore) PublisherOption {
	return func(p *Publisher) {
		p.jobs = jobs
	}
}

// NewPublisher creates a queue-backed publisher. m may be nil.
func NewPublisher(queue Queue, m *metrics.DialogueMetrics, logger *logging.Logger, opts ...PublisherOption) *Publisher {
	if queue == nil {
		panic("turns: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	p := &Publisher{
		queue:   queue,
		metrics: m,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnqueueTurn publishes one user turn and returns its job id.
func (p *Publisher) EnqueueTurn(ctx context.Context, sessionID, text string, now time.Time) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("turns: session id is required")
	}

	msg, body, err := encodePayload(payload{SessionID: sessionID, Text: text, Now: now})
	if err != nil {
		return "", err
	}
	// The record must exist before a worker can pick the turn up.
	if p.jobs != nil {
		if err := p.jobs.MarkPending(ctx, msg.ID, sessionID); err != nil {
			return "", fmt.Errorf("turns: failed to record job: %w", err)
		}
	}
	if err := p.queue.Send(ctx, sessionID, body); err != nil {
		p.metrics.ObserveQueue("send_failed")
		if p.jobs != nil {
			if markErr := p.jobs.MarkFailed(context.WithoutCancel(ctx), msg.ID, "enqueue failed"); markErr != nil {
				p.logger.Warn("failed to mark job failed", "error", markErr, "job_id", msg.ID)
			}
		}
		return "", fmt.Errorf("turns: failed to enqueue turn: %w", err)
	}

	p.metrics.ObserveQueue("enqueued")
	p.logger.Debug("turn enqueued", "job_id", msg.ID, "session_id", sessionID)
	return msg.ID, nil
}
