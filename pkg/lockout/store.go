package lockout

import (
	"context"
	"time"
)

// State is the failure counter for one key.
type State struct {
	Failures  int
	ExpiresAt time.Time
	Locked    bool
}

// Store keeps failure counters. Implementations must apply the same window rules:
// the window opens at the first failure and lasts cfg.Duration; reaching
// cfg.MaxAttempts restarts it as the lock period; an expired window reads as zero.
type Store interface {
	Failures(ctx context.Context, key string, cfg Config) (State, error)
	Increment(ctx context.Context, key string, cfg Config) (State, error)
	Reset(ctx context.Context, key string) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
