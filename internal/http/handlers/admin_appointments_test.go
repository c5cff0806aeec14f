package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-assistant/internal/appointments"
)

var adminNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newAdminRouter(t *testing.T) (http.Handler, *appointments.MemoryStore) {
	t.Helper()
	store := appointments.NewMemoryStore(appointments.WithClock(func() time.Time { return adminNow }))
	h := NewAdminAppointmentsHandler(store, nil)
	h.now = func() time.Time { return adminNow }

	r := chi.NewRouter()
	r.Get("/admin/appointments", h.List)
	r.Delete("/admin/appointments/{appointmentID}", h.Cancel)
	return r, store
}

func book(t *testing.T, store *appointments.MemoryStore, title string, start time.Time) appointments.Appointment {
	t.Helper()
	appt, err := store.Create(context.Background(), appointments.Candidate{
		Title: title,
		Slot:  appointments.TimeSlot{Start: start, End: start.Add(time.Hour)},
	})
	require.NoError(t, err)
	return appt
}

func TestAdminListDefaultWindow(t *testing.T) {
	router, store := newAdminRouter(t)
	book(t, store, "Sync", adminNow.Add(24*time.Hour))
	book(t, store, "Far away", adminNow.Add(30*24*time.Hour))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/appointments", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Appointments []appointments.Appointment `json:"appointments"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Appointments, 1)
	assert.Equal(t, "Sync", body.Appointments[0].Title)
}

func TestAdminListExplicitDates(t *testing.T) {
	router, store := newAdminRouter(t)
	book(t, store, "Later", adminNow.Add(30*24*time.Hour))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/appointments?from=2026-03-30&to=2026-04-05", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Later"`)
}

func TestAdminListRejectsBadWindow(t *testing.T) {
	router, _ := newAdminRouter(t)
	for _, q := range []string{
		"?from=yesterday",
		"?from=2026-03-05&to=2026-03-01",
		"?from=2026-01-01&to=2026-12-31",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/appointments"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestAdminListEmptyIsArray(t *testing.T) {
	router, _ := newAdminRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/appointments", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"appointments":[]`)
}

func TestAdminCancel(t *testing.T) {
	router, store := newAdminRouter(t)
	appt := book(t, store, "Sync", adminNow.Add(24*time.Hour))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/appointments/"+appt.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/appointments/"+appt.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(appointments.ErrNotFound))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(appointments.ErrBackendTimeout))
	assert.Equal(t, http.StatusInternalServerError, statusFor(context.Canceled))
}
