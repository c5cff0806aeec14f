package dialogue

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-assistant/internal/session"
	"github.com/wolfman30/booking-assistant/internal/turns"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

type recordingQueue struct {
	sessionID string
	text      string
	now       time.Time
}

func (q *recordingQueue) EnqueueTurn(_ context.Context, sessionID, text string, now time.Time) (string, error) {
	q.sessionID, q.text, q.now = sessionID, text, now
	return "msg-1", nil
}

func newTestRouter(t *testing.T, queue Enqueuer, opts ...HandlerOption) http.Handler {
	t.Helper()
	h := newHarness(t)
	handler := NewHandler(h.svc, queue, logging.NewWithWriter("error", "json", io.Discard), opts...)
	handler.now = func() time.Time { return now }

	r := chi.NewRouter()
	r.Post("/sessions/{sessionID}/turns", handler.Turn)
	r.Post("/sessions/{sessionID}/messages", handler.Enqueue)
	r.Get("/sessions/{sessionID}/messages/{messageID}", handler.MessageStatus)
	r.Get("/sessions/{sessionID}", handler.GetState)
	r.Get("/sessions/{sessionID}/transcript", handler.GetTranscript)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerTurn(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/sessions/web-1/turns", `{"text":"book a call for tomorrow afternoon"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, session.StagePresentingSlots, resp.Stage)
	assert.Equal(t, "web-1", resp.State.SessionID)
	assert.Len(t, resp.State.CandidateSlots, 9)

	rec = do(t, router, http.MethodGet, "/sessions/web-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var state session.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, session.StagePresentingSlots, state.Stage)

	rec = do(t, router, http.MethodGet, "/sessions/web-1/transcript?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Which one works?")
}

func TestHandlerTurnUsesRequestClock(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := do(t, router, http.MethodPost, "/sessions/web-1/turns", `{"text":"book tomorrow morning","now":"2026-03-05T09:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.State.CandidateSlots)
	assert.Equal(t, time.Friday, resp.State.CandidateSlots[0].Start.Weekday())
}

func TestHandlerRejectsBadInput(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/sessions/web-1/turns", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/sessions/web-1/transcript?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/sessions/web-1/messages", `{"text":"hi"}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHandlerEnqueue(t *testing.T) {
	queue := &recordingQueue{}
	router := newTestRouter(t, queue)

	rec := do(t, router, http.MethodPost, "/sessions/sms-7/messages", `{"text":"  book friday  "}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "msg-1")
	assert.Equal(t, "sms-7", queue.sessionID)
	assert.Equal(t, "book friday", queue.text)
	assert.True(t, now.Equal(queue.now))
}

func TestHandlerMessageStatus(t *testing.T) {
	ctx := context.Background()
	jobs := turns.NewMemoryJobStore()
	require.NoError(t, jobs.MarkPending(ctx, "msg-1", "sms-7"))
	router := newTestRouter(t, &recordingQueue{}, WithJobLookup(jobs))

	rec := do(t, router, http.MethodGet, "/sessions/sms-7/messages/msg-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var job turns.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, turns.JobStatusPending, job.Status)
	assert.Equal(t, "msg-1", job.ID)

	require.NoError(t, jobs.MarkCompleted(ctx, "msg-1", "Which one works?"))
	rec = do(t, router, http.MethodGet, "/sessions/sms-7/messages/msg-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, turns.JobStatusCompleted, job.Status)
	assert.Equal(t, "Which one works?", job.Reply)

	rec = do(t, router, http.MethodGet, "/sessions/other/messages/msg-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/sessions/sms-7/messages/msg-404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerMessageStatusDisabled(t *testing.T) {
	router := newTestRouter(t, &recordingQueue{})
	rec := do(t, router, http.MethodGet, "/sessions/sms-7/messages/msg-1", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
