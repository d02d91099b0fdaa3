package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthmed/booking-service/internal/availability"
	"github.com/healthmed/booking-service/internal/config"
	"github.com/healthmed/booking-service/internal/metrics"
	"github.com/healthmed/booking-service/internal/notify"
)

var (
	ErrInvalidRequest = errors.New("invalid booking request")

	// ErrSlotNotAvailable: the availability service never listed the slot as
	// open. Advisory rejection, no reservation was attempted.
	ErrSlotNotAvailable = errors.New("requested slot is not open")

	// ErrSlotConflict: the slot was open but another request won the atomic
	// write. Expected under contention.
	ErrSlotConflict = errors.New("slot was booked by a concurrent request")

	// ErrDependencyUnavailable: a collaborator stayed down through its retry
	// budget. Terminal for this invocation; the caller may issue a fresh one.
	ErrDependencyUnavailable = errors.New("a required dependency is unavailable")
)

// Service coordinates a booking attempt: advisory availability check, atomic
// reservation, best-effort notification. It keeps no mutable state between
// invocations; the store's conditional write is the only shared arbitration
// point, so correctness holds across any number of service instances.
type Service struct {
	store         Store
	gateway       availability.Gateway
	notifier      notify.Notifier
	metrics       *metrics.BookingMetrics
	logger        *zap.SugaredLogger
	notifyTimeout time.Duration
}

func NewService(store Store, gateway availability.Gateway, notifier notify.Notifier, m *metrics.BookingMetrics, logger *zap.SugaredLogger, cfg config.Config) *Service {
	return &Service{
		store:         store,
		gateway:       gateway,
		notifier:      notifier,
		metrics:       m,
		logger:        logger,
		notifyTimeout: cfg.NotifyTimeout,
	}
}

// Request is one booking attempt for a doctor's slot.
type Request struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      time.Time
	StartTime time.Time
	EndTime   time.Time
}

func (r Request) validate() error {
	if r.DoctorID == uuid.Nil {
		return fmt.Errorf("%w: doctor id is required", ErrInvalidRequest)
	}
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient id is required", ErrInvalidRequest)
	}
	if r.Date.IsZero() || r.StartTime.IsZero() || r.EndTime.IsZero() {
		return fmt.Errorf("%w: date, start and end times are required", ErrInvalidRequest)
	}
	if !r.EndTime.After(r.StartTime) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidRequest)
	}
	return nil
}

// BookAppointment runs the booking state machine. The availability check only
// filters requests that were never bookable; the uniqueness guarantee comes
// entirely from the store's conditional insert. On a lost race the caller gets
// ErrSlotConflict; the service never re-runs the availability check and
// retries on its own, because availability may have changed meanwhile.
func (s *Service) BookAppointment(ctx context.Context, req Request) (*Appointment, error) {
	if err := req.validate(); err != nil {
		s.metrics.ObserveAttempt(metrics.OutcomeRejected)
		return nil, err
	}

	patient, err := s.store.GetPatientByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			s.metrics.ObserveAttempt(metrics.OutcomeRejected)
			return nil, err
		}
		s.metrics.ObserveAttempt(metrics.OutcomeFailed)
		return nil, fmt.Errorf("%w: load patient: %v", ErrDependencyUnavailable, err)
	}

	doctor, err := s.store.GetDoctorByID(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			s.metrics.ObserveAttempt(metrics.OutcomeRejected)
			return nil, err
		}
		s.metrics.ObserveAttempt(metrics.OutcomeFailed)
		return nil, fmt.Errorf("%w: load doctor: %v", ErrDependencyUnavailable, err)
	}

	// VALIDATING: advisory availability check.
	slots, err := s.gateway.FetchAvailability(ctx, req.DoctorID, req.Date)
	if err != nil {
		if errors.Is(err, availability.ErrDoctorNotFound) {
			s.metrics.ObserveAttempt(metrics.OutcomeRejected)
			return nil, ErrDoctorNotFound
		}
		s.metrics.ObserveAttempt(metrics.OutcomeFailed)
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	start := req.StartTime.UTC().Truncate(time.Minute)
	end := req.EndTime.UTC().Truncate(time.Minute)

	if !slotOpen(slots, start, end) {
		s.metrics.ObserveAttempt(metrics.OutcomeSlotNotAvailable)
		return nil, ErrSlotNotAvailable
	}

	// RESERVING: the id is generated before the write so a retried write is
	// idempotent. The conditional insert is the sole point where the
	// per-slot uniqueness invariant is enforced.
	appt := Appointment{
		ID:        uuid.New(),
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		Date:      midnightUTC(req.Date),
		StartTime: start,
		EndTime:   end,
		Status:    StatusConfirmed,
		CreatedAt: time.Now().UTC(),
	}

	stored, err := s.store.ReserveIfFree(ctx, appt)
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveAttempt(metrics.OutcomeSlotConflict)
			return nil, ErrSlotConflict
		}
		s.metrics.ObserveAttempt(metrics.OutcomeFailed)
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	s.metrics.ObserveAttempt(metrics.OutcomeConfirmed)
	s.logger.Infow("appointment confirmed",
		"appointment_id", stored.ID,
		"slot_key", stored.SlotKey().String(),
		"patient_id", stored.PatientID)

	// The outcome is already determined; notification runs detached and its
	// failure can only be observed, never propagated.
	go s.dispatchNotification(*stored, doctor, patient)

	return stored, nil
}

func (s *Service) dispatchNotification(appt Appointment, doctor *Doctor, patient *Patient) {
	ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
	defer cancel()

	key := appt.SlotKey()
	err := s.notifier.NotifyBooked(ctx, notify.Booking{
		DoctorEmail: doctor.Email,
		DoctorName:  doctor.Name,
		PatientName: patient.Name,
		Date:        key.Date,
		StartTime:   key.Start,
	})
	if err != nil {
		s.metrics.ObserveNotifyFailure()
		s.logger.Warnw("booking notification failed",
			"appointment_id", appt.ID, "doctor_email", doctor.Email, "error", err)
	}
}

// GetAppointment loads one appointment by id.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.store.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get appointment: %v", ErrDependencyUnavailable, err)
	}
	return appt, nil
}

// ListDoctorAppointments returns a doctor's appointments for one day.
func (s *Service) ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	appts, err := s.store.ListAppointmentsByDoctor(ctx, doctorID, midnightUTC(date))
	if err != nil {
		return nil, fmt.Errorf("%w: list appointments: %v", ErrDependencyUnavailable, err)
	}
	return appts, nil
}

// CancelAppointment moves a confirmed appointment to cancelled. Cancelling an
// already-cancelled appointment is a no-op; a cancelled appointment never
// returns to confirmed. The partial unique index frees the slot key on the
// status change, so the slot becomes bookable again.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.store.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load appointment: %v", ErrDependencyUnavailable, err)
	}
	if appt.Status == StatusCancelled {
		return appt, nil
	}

	updated, err := s.store.UpdateAppointmentStatus(ctx, id, StatusConfirmed, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with another cancel; the stored state stands.
			return s.store.GetAppointmentByID(ctx, id)
		}
		return nil, fmt.Errorf("%w: cancel appointment: %v", ErrDependencyUnavailable, err)
	}

	s.logger.Infow("appointment cancelled", "appointment_id", updated.ID)
	return updated, nil
}

func slotOpen(slots []availability.Slot, start, end time.Time) bool {
	for _, slot := range slots {
		if slot.Status != availability.SlotOpen {
			continue
		}
		if slot.StartTime.Equal(start) && slot.EndTime.Equal(end) {
			return true
		}
	}
	return false
}

func midnightUTC(t time.Time) time.Time {
	d := t.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
