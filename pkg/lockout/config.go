package lockout

import (
	"errors"
	"fmt"
	"time"
)

// Policy decides what Tracker does when the primary store fails.
type Policy string

const (
	// PolicyFallback switches to the in-process store and reports ModeDegraded.
	PolicyFallback Policy = "fallback"
	// PolicyFailClosed returns ErrBackendUnavailable so callers reject the attempt.
	PolicyFailClosed Policy = "fail_closed"
)

// Config holds lockout parameters.
type Config struct {
	MaxAttempts    int           `env:"MFA_LOCKOUT_MAX_ATTEMPTS" envDefault:"5"`
	Duration       time.Duration `env:"MFA_LOCKOUT_DURATION" envDefault:"30m"`
	BackendTimeout time.Duration `env:"MFA_LOCKOUT_BACKEND_TIMEOUT" envDefault:"300ms"`
	KeyPrefix      string        `env:"MFA_LOCKOUT_KEY_PREFIX" envDefault:"mfa:lockout:"`
	Policy         Policy        `env:"MFA_LOCKOUT_POLICY" envDefault:"fallback"`
}

// DefaultConfig returns the defaults used for zero fields.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    5,
		Duration:       30 * time.Minute,
		BackendTimeout: 300 * time.Millisecond,
		KeyPrefix:      "mfa:lockout:",
		Policy:         PolicyFallback,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts == 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.Duration == 0 {
		c.Duration = d.Duration
	}
	if c.BackendTimeout == 0 {
		c.BackendTimeout = d.BackendTimeout
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = d.KeyPrefix
	}
	if c.Policy == "" {
		c.Policy = d.Policy
	}
	return c
}

// Validate reports configuration errors. Zero fields are accepted and replaced
// with defaults by NewTracker.
func (c Config) Validate() error {
	var errs []error
	if c.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("max attempts must be positive, got %d", c.MaxAttempts))
	}
	if c.Duration < 0 {
		errs = append(errs, fmt.Errorf("duration must be positive, got %s", c.Duration))
	}
	if c.BackendTimeout < 0 {
		errs = append(errs, fmt.Errorf("backend timeout must be positive, got %s", c.BackendTimeout))
	}
	switch c.Policy {
	case "", PolicyFallback, PolicyFailClosed:
	default:
		errs = append(errs, fmt.Errorf("unknown policy %q", c.Policy))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}
