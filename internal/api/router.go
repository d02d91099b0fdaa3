package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/healthmed/booking-service/internal/booking"
)

// BookingService is what the HTTP layer needs from the booking core.
type BookingService interface {
	BookAppointment(ctx context.Context, req booking.Request) (*booking.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)
	ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]booking.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)
}

type RouterConfig struct {
	Service  BookingService
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Registry *prometheus.Registry
	Logger   *zap.SugaredLogger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	r.Get("/doctors/{id}/appointments", listDoctorAppointmentsHandler(cfg.Service))

	return r
}
