// Package cache provides the Redis-backed cache for the event listing.
//
// Only the catalog read path is cached; seat accounting always consults the
// database directly, so a stale listing can never cause an oversell.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evalverde/event-reservation-service/internal/model"
)

// ErrMiss is returned when the cache has no usable entry.
var ErrMiss = errors.New("cache miss")

const eventsKey = "events:available"

// EventCache caches the available-events listing.
type EventCache interface {
	GetEvents(ctx context.Context) ([]model.Event, error)
	SetEvents(ctx context.Context, events []model.Event) error
	InvalidateEvents(ctx context.Context) error
}

// Redis implements EventCache on a Redis client.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a Redis cache with the given entry TTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (c *Redis) GetEvents(ctx context.Context) ([]model.Event, error) {
	raw, err := c.client.Get(ctx, eventsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var events []model.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		// A corrupt entry is treated as a miss; the next Set overwrites it.
		return nil, ErrMiss
	}
	return events, nil
}

func (c *Redis) SetEvents(ctx context.Context, events []model.Event) error {
	raw, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, eventsKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *Redis) InvalidateEvents(ctx context.Context) error {
	if err := c.client.Del(ctx, eventsKey).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Noop is the cache used when Redis is not configured. Reads always miss.
type Noop struct{}

// NewNoop constructs a Noop cache.
func NewNoop() Noop { return Noop{} }

func (Noop) GetEvents(context.Context) ([]model.Event, error) { return nil, ErrMiss }
func (Noop) SetEvents(context.Context, []model.Event) error   { return nil }
func (Noop) InvalidateEvents(context.Context) error           { return nil }
