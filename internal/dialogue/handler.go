package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/booking-assistant/internal/session"
	"github.com/wolfman30/booking-assistant/internal/turns"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

const maxTurnBody = 16 << 10

// Enqueuer accepts turns for asynchronous processing.
type Enqueuer interface {
	EnqueueTurn(ctx context.Context, sessionID, text string, now time.Time) (string, error)
}

// JobLookup reads the outcome of an enqueued message.
type JobLookup interface {
	Get(ctx context.Context, jobID string) (*turns.Job, error)
}

// TurnRequest is the body of POST /sessions/{sessionID}/turns and /messages.
type TurnRequest struct {
	Text string `json:"text"`
	// Now overrides the reference instant; defaults to the server clock.
	Now *time.Time `json:"now,omitempty"`
}

// TurnResponse is returned for a synchronous turn.
type TurnResponse struct {
	Response
	State session.State `json:"state"`
}

// Handler wires HTTP requests to the dialogue service.
type Handler struct {
	service *Service
	queue   Enqueuer
	jobs    JobLookup
	logger  *logging.Logger
	now     func() time.Time
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithJobLookup enables GET /sessions/{sessionID}/messages/{messageID}.
func WithJobLookup(jobs JobLookup) HandlerOption {
	return func(h *Handler) {
		h.jobs = jobs
	}
}

// NewHandler creates a dialogue handler. queue may be nil, in which case
// asynchronous messages are rejected.
func NewHandler(service *Service, queue Enqueuer, logger *logging.Logger, opts ...HandlerOption) *Handler {
	if service == nil {
		panic("dialogue: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		service: service,
		queue:   queue,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Turn handles POST /sessions/{sessionID}/turns.
func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	resp, state, err := h.service.ProcessTurn(r.Context(), sessionID, req.Text, h.reference(req))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionRequired):
			http.Error(w, "Session id required", http.StatusBadRequest)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			http.Error(w, "Session busy", http.StatusServiceUnavailable)
		default:
			h.logger.Error("failed to process turn", "session_id", sessionID, "error", err)
			http.Error(w, "Failed to process turn", http.StatusInternalServerError)
		}
		return
	}
	h.writeJSON(w, http.StatusOK, TurnResponse{Response: resp, State: state})
}

// Enqueue handles POST /sessions/{sessionID}/messages.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		http.Error(w, "Async messages are not enabled", http.StatusNotImplemented)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	id, err := h.queue.EnqueueTurn(r.Context(), sessionID, req.Text, h.reference(req))
	if err != nil {
		h.logger.Error("failed to enqueue turn", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to enqueue message", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]string{"message_id": id, "session_id": sessionID})
}

// MessageStatus handles GET /sessions/{sessionID}/messages/{messageID}.
// A message id from another session is reported as not found.
func (h *Handler) MessageStatus(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		http.Error(w, "Message status is not enabled", http.StatusNotImplemented)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	messageID := chi.URLParam(r, "messageID")

	job, err := h.jobs.Get(r.Context(), messageID)
	if err != nil {
		if errors.Is(err, turns.ErrJobNotFound) {
			http.Error(w, "Message not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load message status", "session_id", sessionID, "message_id", messageID, "error", err)
		http.Error(w, "Failed to load message status", http.StatusInternalServerError)
		return
	}
	if job.SessionID != sessionID {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

// GetState handles GET /sessions/{sessionID}.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	state, err := h.service.State(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load session", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

// GetTranscript handles GET /sessions/{sessionID}/transcript?limit=N.
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := h.service.Transcript(r.Context(), sessionID, limit)
	if err != nil {
		h.logger.Error("failed to load transcript", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to load transcript", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "entries": entries})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (TurnRequest, bool) {
	var req TurnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTurnBody)).Decode(&req); err != nil {
		h.logger.Error("failed to decode turn request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}
	req.Text = strings.TrimSpace(req.Text)
	return req, true
}

func (h *Handler) reference(req TurnRequest) time.Time {
	if req.Now != nil && !req.Now.IsZero() {
		return *req.Now
	}
	return h.now()
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
