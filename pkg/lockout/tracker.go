package lockout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// Mode reports which store a Tracker is currently using.
type Mode int32

const (
	// ModeLocal means no shared store is configured.
	ModeLocal Mode = iota
	// ModeDistributed means the shared store is answering.
	ModeDistributed
	// ModeDegraded means the shared store failed on the last call. Counters are
	// per-instance until it recovers.
	ModeDegraded
)

func (m Mode) String() string {
	switch m {
	case ModeLocal:
		return "local"
	case ModeDistributed:
		return "distributed"
	case ModeDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Tracker counts failed attempts per key and locks keys that reach the limit.
type Tracker struct {
	cfg      Config
	primary  Store
	fallback Store

	mode         atomic.Int32
	onModeChange func(from, to Mode)

	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithStore sets the shared store. Without it the tracker runs in ModeLocal.
func WithStore(s Store) Option {
	return func(t *Tracker) {
		t.primary = s
	}
}

// WithFallback replaces the default in-process fallback store.
func WithFallback(s Store) Option {
	return func(t *Tracker) {
		if s != nil {
			t.fallback = s
		}
	}
}

// WithModeChangeHook registers fn to be called after every mode transition.
func WithModeChangeHook(fn func(from, to Mode)) Option {
	return func(t *Tracker) {
		t.onModeChange = fn
	}
}

// WithMetrics sets the collectors to update.
func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) {
		if m != nil {
			t.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker returns a tracker. Zero config fields take DefaultConfig values.
func NewTracker(cfg Config, opts ...Option) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Tracker{
		cfg:    cfg.withDefaults(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.fallback == nil {
		t.fallback = NewMemoryStore(WithMemoryStoreClock(t.now), WithMemoryStoreLogger(t.logger))
	}
	if t.metrics == nil {
		t.metrics = NewMetrics(nil)
	}
	if t.primary != nil {
		t.mode.Store(int32(ModeDistributed))
	} else {
		t.mode.Store(int32(ModeLocal))
	}

	return t, nil
}

// Config returns the effective configuration.
func (t *Tracker) Config() Config {
	return t.cfg
}

// Mode returns the current mode.
func (t *Tracker) Mode() Mode {
	return Mode(t.mode.Load())
}

// Check returns a *LockoutError if key is locked.
func (t *Tracker) Check(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	st, err := t.call(ctx, "check", func(ctx context.Context, s Store) (State, error) {
		return s.Failures(ctx, t.cfg.KeyPrefix+key, t.cfg)
	})
	if err != nil {
		return err
	}

	now := t.now()
	if !st.Locked || !now.Before(st.ExpiresAt) {
		return nil
	}

	retryAfter := st.ExpiresAt.Sub(now)
	return &LockoutError{
		RemainingMinutes: int(math.Ceil(retryAfter.Minutes())),
		MaxAttempts:      t.cfg.MaxAttempts,
		RetryAfter:       retryAfter,
	}
}

// RecordFailure counts one failed attempt.
func (t *Tracker) RecordFailure(ctx context.Context, key string) (State, error) {
	if key == "" {
		return State{}, ErrEmptyKey
	}

	st, err := t.call(ctx, "increment", func(ctx context.Context, s Store) (State, error) {
		return s.Increment(ctx, t.cfg.KeyPrefix+key, t.cfg)
	})
	if err != nil {
		return State{}, err
	}

	t.metrics.Failures.Inc()
	if st.Failures == t.cfg.MaxAttempts {
		t.metrics.Lockouts.Inc()
		t.logger.WarnContext(ctx, "lockout engaged",
			slog.String("key", key),
			slog.Int("max_attempts", t.cfg.MaxAttempts),
			slog.Time("expires_at", st.ExpiresAt))
	}
	return st, nil
}

// RecordSuccess clears the counter for key.
func (t *Tracker) RecordSuccess(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	_, err := t.call(ctx, "reset", func(ctx context.Context, s Store) (State, error) {
		return State{}, s.Reset(ctx, t.cfg.KeyPrefix+key)
	})
	return err
}

// call runs fn against the primary store with BackendTimeout and applies the
// failure policy when it errors.
func (t *Tracker) call(ctx context.Context, op string, fn func(context.Context, Store) (State, error)) (State, error) {
	if t.primary == nil {
		return fn(ctx, t.fallback)
	}

	pctx, cancel := context.WithTimeout(ctx, t.cfg.BackendTimeout)
	st, err := fn(pctx, t.primary)
	cancel()
	if err == nil {
		t.setMode(ctx, ModeDistributed, nil)
		return st, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return State{}, ctxErr
	}

	t.metrics.BackendErrors.WithLabelValues(op).Inc()
	t.setMode(ctx, ModeDegraded, err)

	if t.cfg.Policy == PolicyFailClosed {
		if errors.Is(err, ErrBackendUnavailable) {
			return State{}, err
		}
		return State{}, errors.Join(ErrBackendUnavailable, err)
	}
	return fn(ctx, t.fallback)
}

func (t *Tracker) setMode(ctx context.Context, to Mode, cause error) {
	from := Mode(t.mode.Swap(int32(to)))
	if from == to {
		return
	}

	if to == ModeDegraded {
		t.metrics.Degraded.Set(1)
		t.logger.ErrorContext(ctx, "lockout backend unavailable",
			slog.String("policy", string(t.cfg.Policy)),
			slog.Any("error", cause))
	} else {
		t.metrics.Degraded.Set(0)
		t.logger.InfoContext(ctx, "lockout backend recovered",
			slog.String("mode", to.String()))
	}

	if t.onModeChange != nil {
		t.onModeChange(from, to)
	}
}
