package lockout

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed lua/increment.lua
var luaIncrement string

//go:embed lua/failures.lua
var luaFailures string

// RedisStore keeps counters in Redis so every instance sees the same state.
// Each operation is a single Lua script, which Redis runs atomically.
type RedisStore struct {
	client redis.Cmdable
	now    func() time.Time
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisStoreClock overrides the time source used to turn TTLs into expiry times.
func WithRedisStoreClock(now func() time.Time) RedisStoreOption {
	return func(rs *RedisStore) {
		if now != nil {
			rs.now = now
		}
	}
}

// NewRedisStore returns a store backed by client.
func NewRedisStore(client redis.Cmdable, opts ...RedisStoreOption) *RedisStore {
	rs := &RedisStore{
		client: client,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// Failures reads the counter and its remaining TTL.
func (rs *RedisStore) Failures(ctx context.Context, key string, cfg Config) (State, error) {
	res, err := rs.client.Eval(ctx, luaFailures, []string{key}).Int64Slice()
	if err != nil {
		return State{}, errors.Join(ErrBackendUnavailable, err)
	}
	return rs.state(res, cfg)
}

// Increment adds one failure and (re)arms the expiry at the first failure and when
// the limit is reached.
func (rs *RedisStore) Increment(ctx context.Context, key string, cfg Config) (State, error) {
	res, err := rs.client.Eval(ctx, luaIncrement, []string{key},
		cfg.MaxAttempts, cfg.Duration.Milliseconds()).Int64Slice()
	if err != nil {
		return State{}, errors.Join(ErrBackendUnavailable, err)
	}
	return rs.state(res, cfg)
}

// Reset deletes the counter.
func (rs *RedisStore) Reset(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, key).Err(); err != nil {
		return errors.Join(ErrBackendUnavailable, err)
	}
	return nil
}

// Healthcheck pings Redis.
func (rs *RedisStore) Healthcheck(ctx context.Context) error {
	if err := rs.client.Ping(ctx).Err(); err != nil {
		return errors.Join(ErrBackendUnavailable, err)
	}
	return nil
}

func (rs *RedisStore) state(res []int64, cfg Config) (State, error) {
	if len(res) != 2 {
		return State{}, errors.Join(ErrBackendUnavailable, fmt.Errorf("unexpected script reply length %d", len(res)))
	}
	count, ttl := int(res[0]), res[1]
	if count <= 0 || ttl == -2 {
		return State{}, nil
	}
	expiresAt := rs.now()
	if ttl > 0 {
		expiresAt = expiresAt.Add(time.Duration(ttl) * time.Millisecond)
	}
	return stateOf(count, expiresAt, cfg), nil
}
