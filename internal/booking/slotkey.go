package booking

import "time"

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// SlotKey is the canonical identity of a bookable doctor time slot. Two
// appointments with the same key may never both be confirmed. The fields are
// normalized strings so that logically identical slots always compare and
// serialize identically regardless of the timezone or sub-minute precision of
// the inputs.
type SlotKey struct {
	DoctorID string
	Date     string // YYYY-MM-DD, UTC
	Start    string // HH:MM, UTC
}

// NewSlotKey normalizes date and start time to UTC with minute precision.
func NewSlotKey(doctorID string, date, start time.Time) SlotKey {
	return SlotKey{
		DoctorID: doctorID,
		Date:     date.UTC().Format(dateLayout),
		Start:    start.UTC().Truncate(time.Minute).Format(timeLayout),
	}
}

// String renders the key in the storage-layer form doctorId#date#startTime.
func (k SlotKey) String() string {
	return k.DoctorID + "#" + k.Date + "#" + k.Start
}
