package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthmed/booking-service/internal/availability"
	"github.com/healthmed/booking-service/internal/metrics"
)

// Reconciler detects long-term drift between the availability source and the
// store: a confirmed appointment whose slot the availability service still
// reports open. The store is authoritative, so drift is only observed and
// counted, never auto-corrected.
type Reconciler struct {
	store   Store
	gateway availability.Gateway
	metrics *metrics.BookingMetrics
	logger  *zap.SugaredLogger
	window  time.Duration
}

func NewReconciler(store Store, gateway availability.Gateway, m *metrics.BookingMetrics, logger *zap.SugaredLogger, window time.Duration) *Reconciler {
	return &Reconciler{
		store:   store,
		gateway: gateway,
		metrics: m,
		logger:  logger,
		window:  window,
	}
}

type doctorDay struct {
	doctorID uuid.UUID
	date     string
}

// Run checks appointments confirmed inside the window. Intended to be called
// periodically by the worker.
func (r *Reconciler) Run(ctx context.Context) error {
	now := time.Now().UTC()
	appts, err := r.store.ListConfirmedBetween(ctx, now.Add(-r.window), now)
	if err != nil {
		return fmt.Errorf("list confirmed appointments: %w", err)
	}

	// One availability fetch per doctor/day, not per appointment.
	fetched := make(map[doctorDay][]availability.Slot)
	drift := 0

	for _, appt := range appts {
		key := doctorDay{doctorID: appt.DoctorID, date: appt.Date.Format("2006-01-02")}

		slots, ok := fetched[key]
		if !ok {
			slots, err = r.gateway.FetchAvailability(ctx, appt.DoctorID, appt.Date)
			if err != nil {
				if errors.Is(err, availability.ErrDoctorNotFound) {
					r.logger.Warnw("doctor missing from availability service",
						"doctor_id", appt.DoctorID)
					fetched[key] = nil
					continue
				}
				return fmt.Errorf("fetch availability for doctor %s: %w", appt.DoctorID, err)
			}
			fetched[key] = slots
		}

		if slotOpen(slots, appt.StartTime, appt.EndTime) {
			drift++
			r.metrics.ObserveDrift()
			r.logger.Warnw("availability still reports booked slot as open",
				"appointment_id", appt.ID,
				"slot_key", appt.SlotKey().String())
		}
	}

	r.logger.Infow("reconcile run complete",
		"checked", len(appts), "drift", drift, "window", r.window.String())
	return nil
}
