package lockout

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidConfig      = errors.New("lockout: invalid configuration")
	ErrEmptyKey           = errors.New("lockout: empty key")
	ErrBackendUnavailable = errors.New("lockout: backend unavailable")
	ErrLockedOut          = errors.New("lockout: too many failed attempts")
)

// LockoutError is returned by Tracker.Check while a key is locked.
// errors.Is(err, ErrLockedOut) reports true for it.
type LockoutError struct {
	RemainingMinutes int
	MaxAttempts      int
	RetryAfter       time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("lockout: too many failed attempts (max %d), retry in %d minute(s)",
		e.MaxAttempts, e.RemainingMinutes)
}

func (e *LockoutError) Is(target error) bool {
	return target == ErrLockedOut
}
