package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/booking-assistant/internal/appointments"
	"github.com/wolfman30/booking-assistant/internal/http/middleware"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

const (
	defaultListWindow = 7 * 24 * time.Hour
	maxListWindow     = 90 * 24 * time.Hour
)

// appointmentAdmin is the slice of appointments.Store the admin routes use.
type appointmentAdmin interface {
	List(ctx context.Context, from, to time.Time) ([]appointments.Appointment, error)
	Cancel(ctx context.Context, id string) error
}

// AdminAppointmentsHandler exposes the calendar to operators.
type AdminAppointmentsHandler struct {
	store  appointmentAdmin
	logger *logging.Logger
	now    func() time.Time
}

// NewAdminAppointmentsHandler creates the admin calendar handler.
func NewAdminAppointmentsHandler(store appointments.Store, logger *logging.Logger) *AdminAppointmentsHandler {
	if store == nil {
		panic("handlers: appointment store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminAppointmentsHandler{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// List handles GET /admin/appointments?from=&to=. Both bounds accept
// RFC 3339 or YYYY-MM-DD; the default window is the next seven days.
func (h *AdminAppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.window(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, err := h.store.List(r.Context(), from, to)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		jsonError(w, "Failed to list appointments", statusFor(err))
		return
	}
	if items == nil {
		items = []appointments.Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":         from,
		"to":           to,
		"appointments": items,
	})
}

// Cancel handles DELETE /admin/appointments/{appointmentID}.
func (h *AdminAppointmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "appointmentID")
	if err := h.store.Cancel(r.Context(), id); err != nil {
		if !errors.Is(err, appointments.ErrNotFound) {
			h.logger.Error("failed to cancel appointment", "appointment_id", id, "error", err)
		}
		jsonError(w, "Failed to cancel appointment", statusFor(err))
		return
	}
	h.logger.Info("appointment cancelled by admin",
		"appointment_id", id,
		"admin", middleware.AdminSubject(r.Context()),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminAppointmentsHandler) window(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	from := h.now()
	if raw := q.Get("from"); raw != "" {
		t, err := parseInstant(raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %q", raw)
		}
		from = t
	}
	to := from.Add(defaultListWindow)
	if raw := q.Get("to"); raw != "" {
		t, err := parseInstant(raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %q", raw)
		}
		to = t
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, errors.New("to must be after from")
	}
	if to.Sub(from) > maxListWindow {
		return time.Time{}, time.Time{}, errors.New("window exceeds 90 days")
	}
	return from, to, nil
}

func parseInstant(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, appointments.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, appointments.ErrBackendTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
