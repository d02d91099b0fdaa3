package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/healthmed/booking-service/internal/metrics"
)

// CachedGateway is a read-through Redis cache in front of a Gateway. It only
// reduces load on the availability service; the reservation path never
// consults it, so a stale entry can cause at worst a needless conflict
// rejection, never a double booking. Any cache failure degrades to a direct
// gateway call.
type CachedGateway struct {
	next    Gateway
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.BookingMetrics
	logger  *zap.SugaredLogger
}

func NewCachedGateway(next Gateway, client *redis.Client, ttl time.Duration, m *metrics.BookingMetrics, logger *zap.SugaredLogger) *CachedGateway {
	return &CachedGateway{
		next:    next,
		client:  client,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
	}
}

func cacheKey(doctorID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("availability:%s:%s", doctorID, date.UTC().Format("2006-01-02"))
}

func (c *CachedGateway) FetchAvailability(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	key := cacheKey(doctorID, date)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var slots []Slot
		if jsonErr := json.Unmarshal(raw, &slots); jsonErr == nil {
			c.metrics.ObserveCacheLookup(true)
			return slots, nil
		}
		c.logger.Warnw("corrupt availability cache entry, refetching", "key", key)
	} else if err != redis.Nil {
		c.logger.Debugw("availability cache read failed", "key", key, "error", err)
	}
	c.metrics.ObserveCacheLookup(false)

	slots, err := c.next.FetchAvailability(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	if raw, jsonErr := json.Marshal(slots); jsonErr == nil {
		if setErr := c.client.Set(ctx, key, raw, c.ttl).Err(); setErr != nil {
			c.logger.Debugw("availability cache write failed", "key", key, "error", setErr)
		}
	}

	return slots, nil
}
