// Package metrics exposes prometheus collectors for the booking flow.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for booking attempts.
const (
	OutcomeConfirmed        = "confirmed"
	OutcomeSlotNotAvailable = "slot_not_available"
	OutcomeSlotConflict     = "slot_conflict"
	OutcomeRejected         = "rejected"
	OutcomeFailed           = "failed"
)

// BookingMetrics counts booking outcomes and collaborator behavior.
type BookingMetrics struct {
	attempts       *prometheus.CounterVec
	notifyFailures prometheus.Counter
	cacheLookups   *prometheus.CounterVec
	reconcileDrift prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthmed",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by terminal outcome",
		}, []string{"outcome"}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "healthmed",
			Subsystem: "booking",
			Name:      "notification_failures_total",
			Help:      "Booking notifications that could not be dispatched",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthmed",
			Subsystem: "availability",
			Name:      "cache_lookups_total",
			Help:      "Advisory availability cache lookups by result",
		}, []string{"result"}),
		reconcileDrift: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "healthmed",
			Subsystem: "reconcile",
			Name:      "drift_total",
			Help:      "Confirmed appointments whose slot the availability source still reports open",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.attempts, m.notifyFailures, m.cacheLookups, m.reconcileDrift)
	return m
}

func (m *BookingMetrics) ObserveAttempt(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveNotifyFailure() {
	if m == nil {
		return
	}
	m.notifyFailures.Inc()
}

func (m *BookingMetrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveDrift() {
	if m == nil {
		return
	}
	m.reconcileDrift.Inc()
}
