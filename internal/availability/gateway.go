// Package availability talks to the external availability service. Everything
// it reports is advisory: the data may be stale the instant after it is read,
// so callers must never treat an open slot here as a reservation.
package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDoctorNotFound means the availability service does not know the doctor.
	ErrDoctorNotFound = errors.New("doctor not found in availability service")

	// ErrUnavailable is returned once bounded retries against the service are
	// exhausted on timeouts or transport failures.
	ErrUnavailable = errors.New("availability service unavailable")
)

type SlotStatus string

const (
	SlotOpen    SlotStatus = "open"
	SlotBlocked SlotStatus = "blocked"
)

// Slot is one bookable window reported by the availability service.
type Slot struct {
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Status    SlotStatus `json:"status"`
}

// Gateway fetches a doctor's declared availability for one day.
type Gateway interface {
	FetchAvailability(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error)
}
