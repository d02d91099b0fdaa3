package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      time.Time // day of the visit, midnight UTC
	StartTime time.Time
	EndTime   time.Time
	Status    AppointmentStatus
	CreatedAt time.Time
}

// SlotKey derives the uniqueness key for this appointment's slot.
func (a Appointment) SlotKey() SlotKey {
	return NewSlotKey(a.DoctorID.String(), a.Date, a.StartTime)
}
