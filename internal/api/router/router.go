package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/booking-assistant/internal/dialogue"
	"github.com/wolfman30/booking-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/booking-assistant/internal/http/middleware"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

const readyTimeout = 2 * time.Second

// ReadyCheck reports whether a dependency is reachable.
type ReadyCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger            *logging.Logger
	Dialogue          *dialogue.Handler
	AdminAppointments *handlers.AdminAppointmentsHandler
	AdminAuthSecret   string
	MetricsHandler    http.Handler
	// RateLimiter applies to session routes when set.
	RateLimiter *httpmiddleware.RateLimiter
	ReadyChecks map[string]ReadyCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.Dialogue == nil {
		panic("router: dialogue handler required")
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", health)
	r.Get("/ready", ready(cfg.ReadyChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/sessions/{sessionID}", func(s chi.Router) {
		if cfg.RateLimiter != nil {
			s.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		}
		s.Get("/", cfg.Dialogue.GetState)
		s.Get("/transcript", cfg.Dialogue.GetTranscript)
		s.Post("/turns", cfg.Dialogue.Turn)
		s.Post("/messages", cfg.Dialogue.Enqueue)
		s.Get("/messages/{messageID}", cfg.Dialogue.MessageStatus)
	})

	if cfg.AdminAppointments != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/appointments", cfg.AdminAppointments.List)
			admin.Delete("/appointments/{appointmentID}", cfg.AdminAppointments.Cancel)
		})
	}

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func ready(checks map[string]ReadyCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": results})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
