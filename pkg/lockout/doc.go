// Package lockout counts failed verification attempts per key and locks a key once
// it reaches a limit.
//
// A key's window opens at its first failure and lasts Config.Duration. Reaching
// Config.MaxAttempts restarts the window as the lock period. A window that elapses
// without reaching the limit resets the counter, and so does RecordSuccess.
//
// # Stores
//
// RedisStore keeps counters in Redis so every instance enforces the same limit. Each
// operation is one Lua script, so increments and expiry are atomic.
//
// MemoryStore keeps counters in process with a lock per key. Call Start (or Run with
// an errgroup) to remove expired counters in the background.
//
// # Tracker
//
//	tracker, err := lockout.NewTracker(cfg,
//		lockout.WithStore(lockout.NewRedisStore(rdb)),
//		lockout.WithMetrics(lockout.NewMetrics(prometheus.DefaultRegisterer)),
//		lockout.WithModeChangeHook(func(from, to lockout.Mode) {
//			log.Printf("lockout mode %s -> %s", from, to)
//		}),
//	)
//
//	if err := tracker.Check(ctx, key); err != nil {
//		var le *lockout.LockoutError
//		if errors.As(err, &le) {
//			// tell the user to retry in le.RemainingMinutes
//		}
//		return err
//	}
//
// Every call to the shared store is bounded by Config.BackendTimeout. When it fails,
// Config.Policy decides the outcome:
//
//   - PolicyFallback: the call is served by the in-process store and Mode reports
//     ModeDegraded until the shared store answers again. Counters are not shared
//     between instances while degraded.
//   - PolicyFailClosed: the call returns ErrBackendUnavailable.
//
// Either way the transition is logged, sets the mfa_lockout_degraded gauge and fires
// the mode change hook. A tracker without a shared store runs in ModeLocal.
package lockout
