package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("booking.internal.appointments")

// createLockKey serializes Create across every API and worker process that
// shares the database. The exclusion constraint on the table backs it up.
const createLockKey int64 = 0x626f6f6b696e67

// exclusionViolation is the SQLSTATE raised by the no-overlap constraint.
const exclusionViolation = "23P01"

type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore persists appointments in the appointments table.
type PostgresStore struct {
	pool  pgxPool
	now   func() time.Time
	newID func() string
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return newPostgresStoreWithPool(pool)
}

func newPostgresStoreWithPool(pool pgxPool) *PostgresStore {
	if pool == nil {
		panic("appointments: pool required")
	}
	return &PostgresStore{
		pool:  pool,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func (s *PostgresStore) List(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.list")
	defer span.End()

	query := `
		SELECT id::text, title, starts_at, ends_at, created_at
		FROM appointments
		WHERE starts_at < $2 AND ends_at > $1
		ORDER BY starts_at, id
	`
	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var appt Appointment
		if err := rows.Scan(&appt.ID, &appt.Title, &appt.Start, &appt.End, &appt.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: list rows: %w", err)
	}
	span.SetAttributes(attribute.Int("appointments.count", len(out)))
	return out, nil
}

// Create runs the overlap check and the insert in one transaction holding
// a transaction-scoped advisory lock.
func (s *PostgresStore) Create(ctx context.Context, c Candidate) (Appointment, error) {
	if err := c.Validate(); err != nil {
		return Appointment{}, err
	}
	ctx, span := tracer.Start(ctx, "appointments.create")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return Appointment{}, fmt.Errorf("appointments: begin: %w", err)
	}
	appt, err := s.createInTx(ctx, tx, c)
	if err != nil {
		_ = tx.Rollback(ctx)
		if !errors.Is(err, ErrConflict) {
			span.RecordError(err)
		}
		return Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return Appointment{}, fmt.Errorf("appointments: commit: %w", err)
	}
	span.SetAttributes(attribute.String("appointment.id", appt.ID))
	return appt, nil
}

func (s *PostgresStore) createInTx(ctx context.Context, tx pgx.Tx, c Candidate) (Appointment, error) {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, createLockKey); err != nil {
		return Appointment{}, fmt.Errorf("appointments: acquire lock: %w", err)
	}

	var overlaps bool
	check := `SELECT EXISTS (SELECT 1 FROM appointments WHERE starts_at < $2 AND ends_at > $1)`
	if err := tx.QueryRow(ctx, check, c.Slot.Start, c.Slot.End).Scan(&overlaps); err != nil {
		return Appointment{}, fmt.Errorf("appointments: check overlap: %w", err)
	}
	if overlaps {
		return Appointment{}, ErrConflict
	}

	appt := Appointment{
		ID:        s.newID(),
		Title:     c.Title,
		Start:     c.Slot.Start,
		End:       c.Slot.End,
		CreatedAt: s.now(),
	}
	insert := `
		INSERT INTO appointments (id, title, starts_at, ends_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, insert, appt.ID, appt.Title, appt.Start, appt.End, appt.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
			return Appointment{}, ErrConflict
		}
		return Appointment{}, fmt.Errorf("appointments: insert: %w", err)
	}
	return appt, nil
}

func (s *PostgresStore) Cancel(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	ctx, span := tracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id))

	ct, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("appointments: cancel: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
