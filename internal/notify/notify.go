// Package notify dispatches booking notifications to doctors. Delivery is
// best-effort from the booking flow's point of view: a failure here never
// changes a booking outcome.
package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Booking carries everything the notification needs; the booking core stays
// decoupled from how the message is delivered or rendered.
type Booking struct {
	DoctorEmail string
	DoctorName  string
	PatientName string
	Date        string // YYYY-MM-DD
	StartTime   string // HH:MM
}

// Notifier sends a one-way booked signal. Implementations own their retry
// policy; callers make exactly one logical attempt.
type Notifier interface {
	NotifyBooked(ctx context.Context, b Booking) error
}

// SendGridNotifier delivers booking notifications via the SendGrid API.
type SendGridNotifier struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *zap.SugaredLogger
}

func NewSendGridNotifier(apiKey, fromEmail, fromName string, logger *zap.SugaredLogger) *SendGridNotifier {
	return &SendGridNotifier{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		logger:    logger,
	}
}

func (n *SendGridNotifier) NotifyBooked(ctx context.Context, b Booking) error {
	from := mail.NewEmail(n.fromName, n.fromEmail)
	to := mail.NewEmail(b.DoctorName, b.DoctorEmail)

	subject := "New appointment booked"
	body := bookingBody(b)
	message := mail.NewSingleEmail(from, subject, to, body, body)

	resp, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}

	n.logger.Infow("booking notification sent", "to", b.DoctorEmail, "status", resp.StatusCode)
	return nil
}

func bookingBody(b Booking) string {
	return fmt.Sprintf(
		"Hello Dr. %s,\n\nYou have a new appointment.\n\nPatient: %s\nDate: %s\nTime: %s\n",
		b.DoctorName, b.PatientName, b.Date, b.StartTime,
	)
}

// StubNotifier logs instead of sending. Used when no SendGrid key is
// configured and in tests.
type StubNotifier struct {
	logger *zap.SugaredLogger
}

func NewStubNotifier(logger *zap.SugaredLogger) *StubNotifier {
	return &StubNotifier{logger: logger}
}

func (n *StubNotifier) NotifyBooked(ctx context.Context, b Booking) error {
	n.logger.Infow("stub notifier: would send booking notification",
		"to", b.DoctorEmail, "patient", b.PatientName, "date", b.Date, "start", b.StartTime)
	return nil
}
