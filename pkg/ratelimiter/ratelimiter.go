package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimitError is returned when a user repeats an action inside its cooldown.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// Limiter enforces a per-user cooldown for an action using redis SETNX.
type Limiter struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb}
}

func key(userID uuid.UUID, action string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)
}

// Acquire reserves the action for the user. A nil client or a zero window always allows.
// The returned release func frees the slot, for callers whose action failed.
func (l *Limiter) Acquire(ctx context.Context, userID uuid.UUID, action string, window time.Duration) (func(), error) {
	noop := func() {}
	if l == nil || l.rdb == nil || window <= 0 {
		return noop, nil
	}

	k := key(userID, action)
	wasSet, err := l.rdb.SetNX(ctx, k, "locked", window).Result()
	if err != nil {
		return noop, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	if !wasSet {
		ttl, err := l.rdb.TTL(ctx, k).Result()
		if err != nil || ttl < 0 {
			ttl = window
		}
		return noop, &RateLimitError{
			RetryAfter: ttl,
			Message:    fmt.Sprintf("Please wait %.0f seconds before trying again", ttl.Seconds()),
		}
	}

	return func() {
		l.rdb.Del(context.Background(), k)
	}, nil
}
