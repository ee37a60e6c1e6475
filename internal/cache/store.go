package cache

import (
	"context"
	"time"
)

// Store backs the auth rate limiter and the OTP resend cooldown. Redis is the
// primary implementation; DatabaseStore serves single-node deployments.
type Store interface {
	// IncrementWithTTL bumps the counter at key, starting a new window when
	// none is live, and returns the count and the time left in the window.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetIfAbsent stores value only when key is missing or expired and reports
	// whether it did.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Get reports false without error for missing or expired keys.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
