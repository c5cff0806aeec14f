package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-assistant/internal/appointments"
	"github.com/wolfman30/booking-assistant/internal/availability"
	"github.com/wolfman30/booking-assistant/internal/dialogue"
	"github.com/wolfman30/booking-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/booking-assistant/internal/http/middleware"
	"github.com/wolfman30/booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/booking-assistant/internal/session"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

const adminSecret = "router-secret"

func newTestRouter(t *testing.T, limiter *httpmiddleware.RateLimiter, checks map[string]ReadyCheck) http.Handler {
	t.Helper()
	logger := logging.NewWithWriter("error", "json", io.Discard)
	reg := prometheus.NewRegistry()
	store := appointments.NewMemoryStore()
	engine := availability.NewEngine(availability.DefaultConfig(), store)
	machine := dialogue.NewMachine(engine, store, dialogue.DefaultConfig(), logger)
	svc := dialogue.NewService(machine, session.NewRegistry(nil),
		dialogue.WithLogger(logger),
		dialogue.WithMetrics(metrics.NewDialogueMetrics(reg)),
		dialogue.WithTranscript(session.NewMemoryTranscript()),
	)

	return New(&Config{
		Logger:            logger,
		Dialogue:          dialogue.NewHandler(svc, nil, logger),
		AdminAppointments: handlers.NewAdminAppointmentsHandler(store, logger),
		AdminAuthSecret:   adminSecret,
		MetricsHandler:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		RateLimiter:       limiter,
		ReadyChecks:       checks,
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRouterReadyChecks(t *testing.T) {
	router := newTestRouter(t, nil, map[string]ReadyCheck{
		"redis":    func(context.Context) error { return nil },
		"postgres": func(context.Context) error { return errors.New("connection refused") },
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"redis":"ok"`)
	assert.Contains(t, rr.Body.String(), "connection refused")
}

func TestRouterTurnAndMetrics(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	body := `{"text":"book a call for tomorrow afternoon","now":"2026-03-02T09:00:00Z"}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sessions/s1/turns", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"stage":"presenting_slots"`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sessions/s1", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "turns_total")
}

func TestRouterMessagesWithoutQueue(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sessions/s1/messages", strings.NewReader(`{"text":"hi"}`)))
	assert.Equal(t, http.StatusNotImplemented, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sessions/s1/messages/m1", nil))
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestRouterRateLimitsSessions(t *testing.T) {
	router := newTestRouter(t, httpmiddleware.NewRateLimiter(0.001, 1), nil)

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/sessions/s1", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/appointments", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	claims := jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(adminSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"appointments":[]`)
}
