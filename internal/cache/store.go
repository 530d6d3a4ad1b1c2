package cache

import (
	"context"
	"time"
)

// Store keeps fixed-window hit counters keyed by bucket name.
type Store interface {
	// IncrementWithTTL counts one hit on key and reports the window's count
	// and the time until it resets.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Delete(ctx context.Context, keys ...string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

const defaultWindow = time.Minute

func windowOrDefault(window time.Duration) time.Duration {
	if window <= 0 {
		return defaultWindow
	}
	return window
}
