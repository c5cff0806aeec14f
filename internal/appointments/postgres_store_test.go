package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	store := newPostgresStoreWithPool(mock)
	store.newID = func() string { return "9f1c2d3e-0000-4000-8000-000000000001" }
	store.now = func() time.Time { return at(8, 0) }
	return store, mock
}

func TestPostgresStoreCreate(t *testing.T) {
	store, mock := newMockStore(t)
	slot := TimeSlot{Start: at(14, 0), End: at(15, 0)}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(createLockKey).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT EXISTS").WithArgs(slot.Start, slot.End).WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs("9f1c2d3e-0000-4000-8000-000000000001", "Standup", slot.Start, slot.End, at(8, 0)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	appt, err := store.Create(context.Background(), Candidate{Title: "Standup", Slot: slot})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.ID != "9f1c2d3e-0000-4000-8000-000000000001" || !appt.Start.Equal(slot.Start) {
		t.Fatalf("unexpected appointment: %+v", appt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreCreateConflict(t *testing.T) {
	store, mock := newMockStore(t)
	slot := TimeSlot{Start: at(14, 0), End: at(15, 0)}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(createLockKey).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT EXISTS").WithArgs(slot.Start, slot.End).WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := store.Create(context.Background(), Candidate{Title: "Standup", Slot: slot})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreCreateExclusionViolation(t *testing.T) {
	store, mock := newMockStore(t)
	slot := TimeSlot{Start: at(14, 0), End: at(15, 0)}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(createLockKey).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT EXISTS").WithArgs(slot.Start, slot.End).WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: exclusionViolation})
	mock.ExpectRollback()

	_, err := store.Create(context.Background(), Candidate{Title: "Standup", Slot: slot})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreList(t *testing.T) {
	store, mock := newMockStore(t)
	from, to := at(0, 0), at(23, 59)

	rows := pgxmock.NewRows([]string{"id", "title", "starts_at", "ends_at", "created_at"}).
		AddRow("a", "Review", at(10, 0), at(11, 0), at(8, 0)).
		AddRow("b", "Standup", at(14, 0), at(15, 0), at(8, 0))
	mock.ExpectQuery("SELECT id::text, title, starts_at, ends_at, created_at").WithArgs(from, to).WillReturnRows(rows)

	list, err := store.List(context.Background(), from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a" || list[1].Title != "Standup" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreCancel(t *testing.T) {
	store, mock := newMockStore(t)
	id := "9f1c2d3e-0000-4000-8000-000000000001"

	mock.ExpectExec("DELETE FROM appointments").WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	if err := store.Cancel(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectExec("DELETE FROM appointments").WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	if err := store.Cancel(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Cancel(context.Background(), "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
