package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlotKeyNormalizesTimezone(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)

	// 2024-05-01 06:00 BRT == 2024-05-01 09:00 UTC
	local := time.Date(2024, 5, 1, 6, 0, 0, 0, loc)
	utc := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	a := NewSlotKey("d1", local, local)
	b := NewSlotKey("d1", utc, utc)

	assert.Equal(t, a, b)
	assert.Equal(t, "d1#2024-05-01#09:00", a.String())
}

func TestNewSlotKeyTruncatesSubMinutePrecision(t *testing.T) {
	withSeconds := time.Date(2024, 5, 1, 9, 0, 42, 999, time.UTC)
	exact := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t,
		NewSlotKey("d1", exact, exact),
		NewSlotKey("d1", withSeconds, withSeconds))
}

func TestSlotKeyDistinguishesFields(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	k := NewSlotKey("d1", base, base)

	assert.NotEqual(t, k, NewSlotKey("d2", base, base))
	assert.NotEqual(t, k, NewSlotKey("d1", base.AddDate(0, 0, 1), base.AddDate(0, 0, 1)))
	assert.NotEqual(t, k, NewSlotKey("d1", base, base.Add(30*time.Minute)))
}

func TestAppointmentSlotKey(t *testing.T) {
	doctorID := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	appt := Appointment{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: uuid.New(),
		Date:      day,
		StartTime: day.Add(9 * time.Hour),
		EndTime:   day.Add(9*time.Hour + 30*time.Minute),
		Status:    StatusConfirmed,
	}

	key := appt.SlotKey()
	require.Equal(t, doctorID.String()+"#2024-05-01#09:00", key.String())
}
