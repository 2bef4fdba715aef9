package restaurantapi

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/tablebook/internal/reservation"
	"github.com/wolfman30/tablebook/pkg/logging"
)

const (
	keyRestaurant   = "tablebook:restaurant"
	keyTimeSlots    = "tablebook:timeslots"
	keySpecialDates = "tablebook:special_dates"
)

// CachedAPI is a redis read-through cache in front of an API. Restaurant profile,
// time slots and special dates are cached; availability and creates always go upstream.
// Redis failures are logged and fall through to the wrapped API.
type CachedAPI struct {
	API
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

var _ API = (*CachedAPI)(nil)

// NewCachedAPI wraps next. A nil redis client returns next unchanged.
func NewCachedAPI(next API, client *redis.Client, ttl time.Duration, logger *logging.Logger) API {
	if client == nil {
		return next
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedAPI{API: next, redis: client, ttl: ttl, logger: logger}
}

func (c *CachedAPI) GetRestaurant(ctx context.Context) (*Restaurant, error) {
	return readThrough(ctx, c, keyRestaurant, c.API.GetRestaurant)
}

func (c *CachedAPI) GetTimeSlots(ctx context.Context) ([]TimeSlot, error) {
	return readThrough(ctx, c, keyTimeSlots, c.API.GetTimeSlots)
}

func (c *CachedAPI) GetSpecialDates(ctx context.Context) ([]reservation.SpecialDate, error) {
	return readThrough(ctx, c, keySpecialDates, c.API.GetSpecialDates)
}

// Invalidate drops every cached entry.
func (c *CachedAPI) Invalidate(ctx context.Context) error {
	return c.redis.Del(ctx, keyRestaurant, keyTimeSlots, keySpecialDates).Err()
}

func readThrough[T any](ctx context.Context, c *CachedAPI, key string, fetch func(context.Context) (T, error)) (T, error) {
	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached T
		if uerr := json.Unmarshal(data, &cached); uerr == nil {
			return cached, nil
		}
		c.logger.Warn("discarding undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}

	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return value, nil
	}
	if err := c.redis.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return value, nil
}
