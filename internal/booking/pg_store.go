package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error code for unique_violation.
const uniqueViolationCode = "23505"

// Name of the partial unique index enforcing one confirmed appointment per
// slot key. Must match the migration.
const confirmedSlotKeyConstraint = "appointments_confirmed_slot_key"

// DB is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgStore struct {
	db      DB
	retries int
	backoff time.Duration
}

func NewPgStore(pool *pgxpool.Pool, retries int, backoff time.Duration) *PgStore {
	return &PgStore{db: pool, retries: retries, backoff: backoff}
}

// NewPgStoreWithDB allows injecting a mock pool in tests.
func NewPgStoreWithDB(db DB, retries int, backoff time.Duration) *PgStore {
	return &PgStore{db: db, retries: retries, backoff: backoff}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var specialty *string

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Email,
		&specialty,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.Specialty = specialty
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

// Interface methods

func (s *PgStore) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, email, specialty, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (s *PgStore) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (s *PgStore) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, doctor_id, patient_id, visit_date, start_time, end_time, status, created_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (s *PgStore) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, doctor_id, patient_id, visit_date, start_time, end_time, status, created_at
		FROM appointments
		WHERE doctor_id = $1
		  AND visit_date = $2
		ORDER BY start_time
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (s *PgStore) ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, doctor_id, patient_id, visit_date, start_time, end_time, status, created_at
		FROM appointments
		WHERE status = 'confirmed'
		  AND created_at >= $1
		  AND created_at < $2
		ORDER BY created_at
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// ReserveIfFree inserts the appointment in a single conditional write. The
// partial unique index on slot_key rejects the insert when a confirmed
// appointment already holds the slot, which is the only mutual exclusion in
// the system. Transient failures are retried a bounded number of times; a
// duplicate id (a retried write) returns the already-stored row.
func (s *PgStore) ReserveIfFree(ctx context.Context, appt Appointment) (*Appointment, error) {
	var lastErr error

	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, ctx.Err())
			case <-time.After(s.backoff):
			}
		}

		stored, err := s.insertAppointment(ctx, appt)
		if err == nil {
			return stored, nil
		}
		if errors.Is(err, ErrSlotTaken) {
			return nil, ErrSlotTaken
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			// Same id written twice: the first write won, return it.
			return s.GetAppointmentByID(ctx, appt.ID)
		}

		lastErr = err
	}

	return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, lastErr)
}

func (s *PgStore) insertAppointment(ctx context.Context, appt Appointment) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, slot_key, visit_date, start_time, end_time, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, doctor_id, patient_id, visit_date, start_time, end_time, status, created_at
	`,
		appt.ID,
		appt.DoctorID,
		appt.PatientID,
		appt.SlotKey().String(),
		appt.Date,
		appt.StartTime,
		appt.EndTime,
		appt.Status,
		appt.CreatedAt,
	)

	stored, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) &&
			pgErr.Code == uniqueViolationCode &&
			pgErr.ConstraintName == confirmedSlotKeyConstraint {
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	return stored, nil
}

func (s *PgStore) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2
		WHERE id = $1
		  AND status = $3
		RETURNING id, doctor_id, patient_id, visit_date, start_time, end_time, status, created_at
	`, id, to, from)

	return scanAppointment(row)
}
