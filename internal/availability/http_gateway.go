package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type HTTPGateway struct {
	baseURL string
	client  *http.Client
	retries int
	backoff time.Duration
	logger  *zap.SugaredLogger
}

func NewHTTPGateway(baseURL string, timeout time.Duration, retries int, backoff time.Duration, logger *zap.SugaredLogger) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		backoff: backoff,
		logger:  logger,
	}
}

// Wire types of the availability service.

type slotDTO struct {
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`   // HH:MM
	Status    string `json:"status"`
}

type availabilityDTO struct {
	DoctorID string    `json:"doctor_id"`
	Date     string    `json:"date"`
	Slots    []slotDTO `json:"slots"`
}

// FetchAvailability calls GET /doctors/{id}/availability?date=YYYY-MM-DD with
// bounded retries on timeouts and 5xx responses. A 404 means the doctor is
// unknown and is never retried.
func (g *HTTPGateway) FetchAvailability(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	if doctorID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty doctor id", ErrDoctorNotFound)
	}

	day := date.UTC().Format("2006-01-02")
	url := fmt.Sprintf("%s/doctors/%s/availability?date=%s", g.baseURL, doctorID, day)

	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(g.backoff):
			}
		}

		slots, err := g.fetchOnce(ctx, url, date)
		if err == nil {
			return slots, nil
		}
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}

		g.logger.Warnw("availability fetch failed",
			"doctor_id", doctorID, "date", day, "attempt", attempt, "error", err)
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (g *HTTPGateway) fetchOnce(ctx context.Context, url string, date time.Time) ([]Slot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build availability request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call availability service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrDoctorNotFound
	default:
		return nil, fmt.Errorf("availability service returned status %d", resp.StatusCode)
	}

	var body availabilityDTO
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode availability response: %w", err)
	}

	slots := make([]Slot, 0, len(body.Slots))
	for _, s := range body.Slots {
		start, err := combineClock(date, s.StartTime)
		if err != nil {
			return nil, fmt.Errorf("bad start_time %q: %w", s.StartTime, err)
		}
		end, err := combineClock(date, s.EndTime)
		if err != nil {
			return nil, fmt.Errorf("bad end_time %q: %w", s.EndTime, err)
		}
		slots = append(slots, Slot{
			StartTime: start,
			EndTime:   end,
			Status:    SlotStatus(s.Status),
		})
	}

	return slots, nil
}

// combineClock merges an HH:MM wire value with the requested day, in UTC.
func combineClock(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	d := date.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
