package dialogue

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/booking-assistant/internal/intent"
	"github.com/wolfman30/booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/booking-assistant/internal/session"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

var tracer = otel.Tracer("booking.internal.dialogue")

// Response is what a transport sends back for one turn.
type Response struct {
	Reply         string        `json:"reply"`
	Intent        intent.Kind   `json:"intent"`
	Stage         session.Stage `json:"stage"`
	AppointmentID string        `json:"appointment_id,omitempty"`
}

// Service runs turns: it serializes turns per session, applies the machine
// and records the result.
type Service struct {
	machine    *Machine
	registry   *session.Registry
	transcript session.Transcript
	metrics    *metrics.DialogueMetrics
	logger     *logging.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithTranscript records every turn to t.
func WithTranscript(t session.Transcript) ServiceOption {
	return func(s *Service) {
		s.transcript = t
	}
}

// WithMetrics reports turns to m.
func WithMetrics(m *metrics.DialogueMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *logging.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(machine *Machine, registry *session.Registry, opts ...ServiceOption) *Service {
	if machine == nil {
		panic("dialogue: machine required")
	}
	if registry == nil {
		registry = session.NewRegistry(nil)
	}
	s := &Service{
		machine:  machine,
		registry: registry,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessTurn applies one user message to a session. The reference instant
// is passed in so replays and tests are deterministic. Errors are returned
// only when the turn could not run at all (lock wait cancelled, snapshot
// store failure); everything the user caused is a reply.
func (s *Service) ProcessTurn(ctx context.Context, sessionID, raw string, now time.Time) (Response, session.State, error) {
	ctx, span := tracer.Start(ctx, "dialogue.process_turn")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	started := time.Now()
	var out Outcome
	state, err := s.registry.Do(ctx, sessionID, func(st *session.State) error {
		out = s.machine.Step(ctx, st, raw, now)
		st.UpdatedAt = now
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error("turn failed", "session_id", sessionID, "error", err)
		return Response{}, session.State{}, err
	}

	span.SetAttributes(
		attribute.String("dialogue.intent", string(out.Intent.Kind)),
		attribute.String("dialogue.rule", out.Intent.Rule),
		attribute.String("dialogue.from", out.From.String()),
		attribute.String("dialogue.to", out.To.String()),
	)
	if out.Err != nil {
		span.RecordError(out.Err)
	}
	s.metrics.ObserveTurn(out.From.String(), string(out.Intent.Kind), time.Since(started).Seconds())
	s.metrics.ObserveTransition(out.From.String(), out.To.String())
	s.metrics.ObserveBooking(out.Booking)

	logger := s.logger.ForSession(sessionID)
	logger.Info("turn processed",
		"stage", out.To.String(),
		"previous_stage", out.From.String(),
		"intent", string(out.Intent.Kind),
		"rule", out.Intent.Rule,
		"appointment_id", out.AppointmentID,
	)

	if s.transcript != nil {
		entries := []session.TranscriptEntry{
			{Role: "user", Text: raw, Stage: out.From, Intent: string(out.Intent.Kind), Timestamp: now},
			{Role: "assistant", Text: out.Reply, Stage: out.To, Timestamp: now},
		}
		if err := s.transcript.Append(ctx, sessionID, entries...); err != nil {
			logger.Warn("failed to append transcript", "error", err)
		}
	}

	return Response{
		Reply:         out.Reply,
		Intent:        out.Intent.Kind,
		Stage:         out.To,
		AppointmentID: out.AppointmentID,
	}, state, nil
}

// State returns the stored state of a session.
func (s *Service) State(ctx context.Context, sessionID string) (session.State, error) {
	return s.registry.Get(ctx, sessionID)
}

// Transcript returns the recorded turns of a session, newest last.
func (s *Service) Transcript(ctx context.Context, sessionID string, limit int64) ([]session.TranscriptEntry, error) {
	if s.transcript == nil {
		return []session.TranscriptEntry{}, nil
	}
	return s.transcript.List(ctx, sessionID, limit)
}
