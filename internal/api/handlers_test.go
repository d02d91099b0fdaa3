package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthmed/booking-service/internal/booking"
	"github.com/healthmed/booking-service/internal/logging"
)

type fakeBookingService struct {
	bookErr   error
	getErr    error
	cancelErr error
	appt      booking.Appointment
	lastReq   booking.Request
}

func (f *fakeBookingService) BookAppointment(ctx context.Context, req booking.Request) (*booking.Appointment, error) {
	f.lastReq = req
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return &f.appt, nil
}

func (f *fakeBookingService) GetAppointment(ctx context.Context, id uuid.UUID) (*booking.Appointment, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &f.appt, nil
}

func (f *fakeBookingService) ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]booking.Appointment, error) {
	return []booking.Appointment{f.appt}, nil
}

func (f *fakeBookingService) CancelAppointment(ctx context.Context, id uuid.UUID) (*booking.Appointment, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	cancelled := f.appt
	cancelled.Status = booking.StatusCancelled
	return &cancelled, nil
}

func testRouter(svc BookingService) http.Handler {
	return NewRouter(RouterConfig{
		Service: svc,
		Logger:  logging.NewNop(),
		Env:     "test",
		Version: "test",
	})
}

func sampleAppointment() booking.Appointment {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return booking.Appointment{
		ID:        uuid.New(),
		DoctorID:  uuid.New(),
		PatientID: uuid.New(),
		Date:      day,
		StartTime: day.Add(9 * time.Hour),
		EndTime:   day.Add(9*time.Hour + 30*time.Minute),
		Status:    booking.StatusConfirmed,
		CreatedAt: time.Now().UTC(),
	}
}

func bookBody(t *testing.T, appt booking.Appointment) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(BookAppointmentRequest{
		DoctorID:  appt.DoctorID.String(),
		PatientID: appt.PatientID.String(),
		Date:      "2024-05-01",
		StartTime: "09:00",
		EndTime:   "09:30",
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestBookAppointmentHandlerCreated(t *testing.T) {
	svc := &fakeBookingService{appt: sampleAppointment()}
	router := testRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/appointments", bookBody(t, svc.appt))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, svc.appt.ID, resp.ID)
	assert.Equal(t, "confirmed", resp.Status)
	assert.Equal(t, "2024-05-01", resp.Date)
	assert.Equal(t, "09:00", resp.StartTime)

	// Parsed times reach the service in UTC.
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), svc.lastReq.StartTime)
}

func TestBookAppointmentHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"slot not available", booking.ErrSlotNotAvailable, http.StatusConflict, "slot_not_available"},
		{"slot conflict", booking.ErrSlotConflict, http.StatusConflict, "slot_conflict"},
		{"dependency unavailable", booking.ErrDependencyUnavailable, http.StatusServiceUnavailable, "dependency_unavailable"},
		{"doctor not found", booking.ErrDoctorNotFound, http.StatusNotFound, "doctor_not_found"},
		{"patient not found", booking.ErrPatientNotFound, http.StatusNotFound, "patient_not_found"},
		{"invalid request", booking.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeBookingService{appt: sampleAppointment(), bookErr: tt.err}
			router := testRouter(svc)

			req := httptest.NewRequest(http.MethodPost, "/appointments", bookBody(t, svc.appt))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
		})
	}
}

func TestBookAppointmentHandlerRejectsBadInput(t *testing.T) {
	svc := &fakeBookingService{appt: sampleAppointment()}
	router := testRouter(svc)

	tests := []struct {
		name string
		body string
	}{
		{"garbage body", "{not json"},
		{"bad doctor id", `{"doctor_id":"nope","patient_id":"` + uuid.NewString() + `","date":"2024-05-01","start_time":"09:00","end_time":"09:30"}`},
		{"bad date", `{"doctor_id":"` + uuid.NewString() + `","patient_id":"` + uuid.NewString() + `","date":"May 1st","start_time":"09:00","end_time":"09:30"}`},
		{"bad start time", `{"doctor_id":"` + uuid.NewString() + `","patient_id":"` + uuid.NewString() + `","date":"2024-05-01","start_time":"9am","end_time":"09:30"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewReader([]byte(tt.body)))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetAppointmentHandler(t *testing.T) {
	svc := &fakeBookingService{appt: sampleAppointment()}
	router := testRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/appointments/"+svc.appt.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, svc.appt.ID, resp.ID)
}

func TestGetAppointmentHandlerNotFound(t *testing.T) {
	svc := &fakeBookingService{appt: sampleAppointment(), getErr: booking.ErrAppointmentNotFound}
	router := testRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/appointments/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDoctorAppointmentsHandler(t *testing.T) {
	svc := &fakeBookingService{appt: sampleAppointment()}
	router := testRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/doctors/"+svc.appt.DoctorID.String()+"/appointments?date=2024-05-01", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
}

func TestCancelAppointmentHandler(t *testing.T) {
	svc := &fakeBookingService{appt: sampleAppointment()}
	router := testRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/appointments/"+svc.appt.ID.String()+"/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cancelled", resp.Status)
}

func TestRequestIDMiddlewarePropagates(t *testing.T) {
	svc := &fakeBookingService{appt: sampleAppointment()}
	router := testRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/appointments/"+svc.appt.ID.String(), nil)
	req.Header.Set("X-Request-ID", "test-request-id")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "test-request-id", rec.Header().Get("X-Request-ID"))
}
