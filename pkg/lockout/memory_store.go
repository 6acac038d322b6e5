package lockout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// entry is the counter for one key. Each entry has its own lock so unrelated keys
// never contend.
type entry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
	dead      bool // removed from the index; lockers must retry
}

func (e *entry) expired(now time.Time) bool {
	return e.count == 0 || !now.Before(e.expiresAt)
}

// MemoryStore implements Store in process memory. It is the fallback for a
// shared backend and is not shared between instances.
type MemoryStore struct {
	entries sync.Map // string -> *entry

	// Configuration
	cleanupInterval time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	now             func() time.Time

	// State management
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
	wg      sync.WaitGroup

	// Observability metrics
	entriesCreated atomic.Int64
	entriesRemoved atomic.Int64
}

// MemoryStoreStats provides observability metrics for monitoring and debugging
type MemoryStoreStats struct {
	EntriesCreated int64 // Total number of counters created
	EntriesRemoved int64 // Total number of counters removed by reset or cleanup
	ActiveEntries  int   // Current number of counters
	IsRunning      bool  // Whether the cleanup goroutine is running
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets the interval for removing expired counters.
// Set to 0 to disable automatic cleanup.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithMemoryStoreShutdownTimeout sets the graceful shutdown timeout.
func WithMemoryStoreShutdownTimeout(timeout time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if timeout > 0 {
			ms.shutdownTimeout = timeout
		}
	}
}

// WithMemoryStoreLogger sets the logger for internal operations.
func WithMemoryStoreLogger(logger *slog.Logger) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if logger != nil {
			ms.logger = logger
		}
	}
}

// WithMemoryStoreClock overrides the time source.
func WithMemoryStoreClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStore creates a new in-memory store.
// Call Start() to begin background cleanup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		cleanupInterval: 5 * time.Minute,
		shutdownTimeout: 30 * time.Second,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(ms)
	}

	return ms
}

// Failures returns the current counter for key without creating it.
func (ms *MemoryStore) Failures(ctx context.Context, key string, cfg Config) (State, error) {
	v, ok := ms.entries.Load(key)
	if !ok {
		return State{}, nil
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dead || e.expired(ms.now()) {
		return State{}, nil
	}
	return stateOf(e.count, e.expiresAt, cfg), nil
}

// Increment adds one failure to key.
func (ms *MemoryStore) Increment(ctx context.Context, key string, cfg Config) (State, error) {
	e := ms.lockEntry(key)
	defer e.mu.Unlock()

	now := ms.now()
	if e.expired(now) {
		e.count = 0
		e.expiresAt = now.Add(cfg.Duration)
	}

	e.count++
	if e.count == cfg.MaxAttempts {
		e.expiresAt = now.Add(cfg.Duration)
	}

	return stateOf(e.count, e.expiresAt, cfg), nil
}

// Reset removes the counter for key.
func (ms *MemoryStore) Reset(ctx context.Context, key string) error {
	v, ok := ms.entries.Load(key)
	if !ok {
		return nil
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()

	ms.removeLocked(key, e)
	return nil
}

// lockEntry returns the locked entry for key, creating it if needed.
func (ms *MemoryStore) lockEntry(key string) *entry {
	for {
		v, loaded := ms.entries.LoadOrStore(key, &entry{})
		e := v.(*entry)
		e.mu.Lock()
		if e.dead {
			e.mu.Unlock()
			continue
		}
		if !loaded {
			ms.entriesCreated.Add(1)
		}
		return e
	}
}

// removeLocked must be called with e.mu held.
func (ms *MemoryStore) removeLocked(key string, e *entry) {
	if e.dead {
		return
	}
	e.dead = true
	if ms.entries.CompareAndDelete(key, e) {
		ms.entriesRemoved.Add(1)
	}
}

func stateOf(count int, expiresAt time.Time, cfg Config) State {
	return State{
		Failures:  count,
		ExpiresAt: expiresAt,
		Locked:    count >= cfg.MaxAttempts,
	}
}

// Start begins the background cleanup goroutine. This is a blocking operation
// that runs until the context is cancelled. Use Run() for errgroup pattern or call this in a goroutine.
func (ms *MemoryStore) Start(ctx context.Context) error {
	ms.mu.Lock()
	if ms.cancel != nil {
		ms.mu.Unlock()
		return fmt.Errorf("memory store already started")
	}

	if ms.cleanupInterval <= 0 {
		ms.mu.Unlock()
		return fmt.Errorf("cleanup interval must be > 0, got %v (use WithCleanupInterval to configure)", ms.cleanupInterval)
	}

	ms.ctx, ms.cancel = context.WithCancel(ctx)
	runCtx := ms.ctx
	ms.mu.Unlock()

	ms.running.Store(true)
	defer func() {
		ms.mu.Lock()
		ms.cancel = nil
		ms.mu.Unlock()
		ms.running.Store(false)
	}()

	ms.logger.InfoContext(runCtx, "lockout memory store cleanup started",
		slog.Duration("cleanup_interval", ms.cleanupInterval))

	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			ms.logger.InfoContext(context.Background(), "lockout memory store cleanup stopping")
			return runCtx.Err()
		case <-ticker.C:
			ms.cleanupWithWait()
		}
	}
}

// Stop gracefully shuts down the background cleanup with a timeout.
// Returns an error if the shutdown timeout is exceeded.
func (ms *MemoryStore) Stop() error {
	ms.mu.Lock()
	if ms.cancel == nil {
		ms.mu.Unlock()
		return fmt.Errorf("memory store not started")
	}

	cancel := ms.cancel
	ms.cancel = nil
	ms.mu.Unlock()

	cancel()

	ctx, ctxCancel := context.WithTimeout(context.Background(), ms.shutdownTimeout)
	defer ctxCancel()

	done := make(chan struct{})
	go func() {
		ms.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		ms.logger.InfoContext(context.Background(), "lockout memory store stopped cleanly")
		return nil
	case <-ctx.Done():
		ms.logger.WarnContext(context.Background(), "lockout memory store shutdown timeout exceeded",
			slog.Duration("timeout", ms.shutdownTimeout))
		return fmt.Errorf("shutdown timeout exceeded after %s", ms.shutdownTimeout)
	}
}

// Run provides errgroup compatibility for coordinated lifecycle management.
// Returns a function that starts the cleanup, monitors context cancellation,
// and performs graceful shutdown when the context is cancelled.
func (ms *MemoryStore) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- ms.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			_ = ms.Stop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// cleanupWithWait is a wrapper around RemoveExpired that tracks the operation with WaitGroup
func (ms *MemoryStore) cleanupWithWait() {
	ms.mu.Lock()
	if ms.cancel == nil {
		ms.mu.Unlock()
		return
	}
	ms.wg.Add(1)
	ms.mu.Unlock()

	defer ms.wg.Done()
	ms.RemoveExpired()
}

// RemoveExpired drops counters whose window has elapsed and returns how many were
// removed. Entries are locked one at a time.
func (ms *MemoryStore) RemoveExpired() int {
	now := ms.now()
	removed := 0

	ms.entries.Range(func(k, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		if !e.dead && e.expired(now) {
			ms.removeLocked(k.(string), e)
			removed++
		}
		e.mu.Unlock()
		return true
	})

	return removed
}

// Stats returns current memory store statistics for observability and monitoring.
func (ms *MemoryStore) Stats() MemoryStoreStats {
	active := 0
	ms.entries.Range(func(_, _ any) bool {
		active++
		return true
	})

	return MemoryStoreStats{
		EntriesCreated: ms.entriesCreated.Load(),
		EntriesRemoved: ms.entriesRemoved.Load(),
		ActiveEntries:  active,
		IsRunning:      ms.running.Load(),
	}
}

// Healthcheck returns an error if cleanup is configured but not running.
func (ms *MemoryStore) Healthcheck(ctx context.Context) error {
	if ms.cleanupInterval > 0 && !ms.Stats().IsRunning {
		return fmt.Errorf("cleanup is configured but not running")
	}
	return nil
}
