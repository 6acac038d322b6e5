package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/core/config"
	"github.com/dmitrymomot/mfakit/core/mfa"
	"github.com/dmitrymomot/mfakit/pkg/lockout"
)

// Tests here set process environment, so they do not run in parallel.

type cachedConfig struct {
	Value string `env:"MFAKIT_TEST_CACHED" envDefault:"default"`
}

type requiredConfig struct {
	Value string `env:"MFAKIT_TEST_REQUIRED,required"`
}

func TestLoad_CachesPerType(t *testing.T) {
	t.Setenv("MFAKIT_TEST_CACHED", "first")

	var a cachedConfig
	require.NoError(t, config.Load(&a))
	assert.Equal(t, "first", a.Value)

	t.Setenv("MFAKIT_TEST_CACHED", "second")

	var b cachedConfig
	require.NoError(t, config.Load(&b))
	assert.Equal(t, "first", b.Value)
}

func TestLoad_RequiredMissing(t *testing.T) {
	var c requiredConfig
	err := config.Load(&c)
	assert.ErrorIs(t, err, config.ErrParsingConfig)

	assert.Panics(t, func() { config.MustLoad(&c) })
}

func TestLoad_NilDestination(t *testing.T) {
	assert.ErrorIs(t, config.Load[cachedConfig](nil), config.ErrNilConfig)
}

func TestLoad_PackageConfigs(t *testing.T) {
	t.Setenv("MFA_ISSUER", "Acme")
	t.Setenv("MFA_TOTP_SKEW", "2")
	t.Setenv("MFA_LOCKOUT_DURATION", "15m")
	t.Setenv("MFA_LOCKOUT_POLICY", "fail_closed")

	var m mfa.Config
	require.NoError(t, config.Load(&m))
	assert.Equal(t, "Acme", m.Issuer)
	assert.Equal(t, 2, m.Skew)
	assert.Equal(t, 10, m.RecoveryCodeCount)
	assert.False(t, m.AllowLegacyPlaintext)
	assert.Equal(t, 2*time.Second, m.StoreTimeout)

	var l lockout.Config
	require.NoError(t, config.Load(&l))
	assert.Equal(t, 5, l.MaxAttempts)
	assert.Equal(t, 15*time.Minute, l.Duration)
	assert.Equal(t, 300*time.Millisecond, l.BackendTimeout)
	assert.Equal(t, "mfa:lockout:", l.KeyPrefix)
	assert.Equal(t, lockout.PolicyFailClosed, l.Policy)
}
