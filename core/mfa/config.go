package mfa

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultSkew is the number of 30-second steps accepted on either side of now.
	DefaultSkew = 1
	// DefaultRecoveryCodeCount is the size of a recovery code set.
	DefaultRecoveryCodeCount = 10
	// DefaultStoreTimeout bounds each RecordStore and RecoveryCodeStore call.
	DefaultStoreTimeout = 2 * time.Second

	maxSkew              = 10
	maxRecoveryCodeCount = 100
)

// Config holds service settings. The vault master key is configured separately
// (MFA_ENCRYPTION_KEY) so it never travels inside this struct.
type Config struct {
	Issuer               string `env:"MFA_ISSUER,required"`
	Skew                 int    `env:"MFA_TOTP_SKEW" envDefault:"1"`
	RecoveryCodeCount    int    `env:"MFA_RECOVERY_CODE_COUNT" envDefault:"10"`
	AllowLegacyPlaintext bool   `env:"MFA_ALLOW_LEGACY_PLAINTEXT" envDefault:"false"`

	StoreTimeout time.Duration `env:"MFA_STORE_TIMEOUT" envDefault:"2s"`
}

// DefaultConfig returns a config with default tolerances for issuer.
func DefaultConfig(issuer string) Config {
	return Config{
		Issuer:            issuer,
		Skew:              DefaultSkew,
		RecoveryCodeCount: DefaultRecoveryCodeCount,
		StoreTimeout:      DefaultStoreTimeout,
	}
}

// Validate reports invalid settings. A zero RecoveryCodeCount or StoreTimeout
// selects the default.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Issuer) == "" {
		errs = append(errs, errors.New("issuer is required"))
	}
	if c.Skew < 0 || c.Skew > maxSkew {
		errs = append(errs, fmt.Errorf("skew must be within [0, %d], got %d", maxSkew, c.Skew))
	}
	if c.RecoveryCodeCount < 0 || c.RecoveryCodeCount > maxRecoveryCodeCount {
		errs = append(errs, fmt.Errorf("recovery code count must be within [1, %d], got %d",
			maxRecoveryCodeCount, c.RecoveryCodeCount))
	}
	if c.StoreTimeout < 0 {
		errs = append(errs, fmt.Errorf("store timeout must be positive, got %s", c.StoreTimeout))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}
