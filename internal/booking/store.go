package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is the designed outcome of a lost race: the conditional
	// insert was rejected because a confirmed appointment already holds the
	// slot key.
	ErrSlotTaken = errors.New("slot already has a confirmed appointment")

	// ErrStoreUnavailable is returned once the store's bounded retries are
	// exhausted on a transient failure.
	ErrStoreUnavailable = errors.New("appointment store unavailable")
)

// Store contains all persistence needed by the booking service.
//
// ReserveIfFree is the single arbitration point for concurrent bookings: it
// must check-and-insert in one atomic storage operation, never as a
// read-then-write sequence in application code.
type Store interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error)
	ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]Appointment, error)

	// Creation and updates
	ReserveIfFree(ctx context.Context, appt Appointment) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)
}
