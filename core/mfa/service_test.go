package mfa_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/core/mfa"
	"github.com/dmitrymomot/mfakit/pkg/hasher"
	"github.com/dmitrymomot/mfakit/pkg/lockout"
	"github.com/dmitrymomot/mfakit/pkg/qrcode"
	"github.com/dmitrymomot/mfakit/pkg/secrets"
	"github.com/dmitrymomot/mfakit/pkg/totp"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	// Start of a 30-second step.
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc     *mfa.Service
	store   *mfa.MemoryStore
	vault   *secrets.Vault
	tracker *lockout.Tracker
	clock   *fakeClock
}

func newFixture(t *testing.T, cfg mfa.Config, lcfg lockout.Config, opts ...mfa.Option) *fixture {
	t.Helper()

	clock := newFakeClock()
	store := mfa.NewMemoryStore(mfa.WithMemoryStoreClock(clock.Now))

	vault, err := secrets.NewVault([]byte("test-master-key"))
	require.NoError(t, err)

	tracker, err := lockout.NewTracker(lcfg, lockout.WithClock(clock.Now))
	require.NoError(t, err)

	opts = append([]mfa.Option{
		mfa.WithClock(clock),
		mfa.WithHasher(hasher.NewBcrypt(4)),
	}, opts...)

	svc, err := mfa.NewService(cfg, store, store, vault, tracker, opts...)
	require.NoError(t, err)

	return &fixture{svc: svc, store: store, vault: vault, tracker: tracker, clock: clock}
}

func defaultFixture(t *testing.T, opts ...mfa.Option) *fixture {
	return newFixture(t, mfa.DefaultConfig("MyApp"), lockout.Config{}, opts...)
}

func (f *fixture) code(t *testing.T, secret string, offset int64) string {
	t.Helper()
	c, err := totp.GenerateTOTPForWindow(secret, totp.Window(f.clock.Now())+offset)
	require.NoError(t, err)
	return c
}

// wrongCode returns a well-formed code that matches none of the accepted windows.
func (f *fixture) wrongCode(t *testing.T, secret string) string {
	t.Helper()
	valid := map[string]bool{}
	for d := int64(-1); d <= 1; d++ {
		valid[f.code(t, secret, d)] = true
	}
	for _, c := range []string{"000000", "111111", "222222", "333333"} {
		if !valid[c] {
			return c
		}
	}
	t.Fatal("no wrong code available")
	return ""
}

func (f *fixture) enable(t *testing.T, p mfa.Principal) (string, []string) {
	t.Helper()
	ctx := context.Background()

	res, err := f.svc.Setup(ctx, p, "user@x")
	require.NoError(t, err)

	codes, err := f.svc.Enable(ctx, p, f.code(t, res.Secret, 0))
	require.NoError(t, err)
	return res.Secret, codes
}

var alice = mfa.Principal{ID: "alice", TenantID: "acme"}

func TestNewService_Validation(t *testing.T) {
	t.Parallel()

	store := mfa.NewMemoryStore()
	vault, err := secrets.NewVault([]byte("k"))
	require.NoError(t, err)
	tracker, err := lockout.NewTracker(lockout.Config{})
	require.NoError(t, err)

	_, err = mfa.NewService(mfa.Config{}, store, store, vault, tracker)
	assert.ErrorIs(t, err, mfa.ErrInvalidConfig)

	_, err = mfa.NewService(mfa.Config{Issuer: "x", Skew: -1}, store, store, vault, tracker)
	assert.ErrorIs(t, err, mfa.ErrInvalidConfig)

	_, err = mfa.NewService(mfa.DefaultConfig("x"), nil, store, vault, tracker)
	assert.ErrorIs(t, err, mfa.ErrInvalidConfig)

	_, err = mfa.NewService(mfa.DefaultConfig("x"), store, store, vault, nil)
	assert.ErrorIs(t, err, mfa.ErrInvalidConfig)

	svc, err := mfa.NewService(mfa.Config{Issuer: "x"}, store, store, vault, tracker)
	require.NoError(t, err)
	assert.Equal(t, lockout.ModeLocal, svc.LockoutMode())
}

func TestSetupAndEnable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)

	res, err := f.svc.Setup(ctx, alice, "user@x")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Secret)
	assert.Contains(t, res.URI, "otpauth://totp/")
	assert.Contains(t, res.URI, "MyApp:user@x")
	assert.Contains(t, res.URI, "issuer=MyApp")
	assert.Contains(t, res.URI, "secret="+res.Secret)
	assert.Empty(t, res.QRCode)

	st, err := f.svc.Status(ctx, alice)
	require.NoError(t, err)
	assert.True(t, st.Configured)
	assert.False(t, st.Enabled)

	code := f.code(t, res.Secret, 0)
	codes, err := f.svc.Enable(ctx, alice, code)
	require.NoError(t, err)
	require.Len(t, codes, 10)
	for _, c := range codes {
		assert.Regexp(t, `^[A-HJKMNP-Z2-9]{5}-[A-HJKMNP-Z2-9]{5}$`, c)
	}

	_, err = f.svc.Enable(ctx, alice, code)
	assert.ErrorIs(t, err, mfa.ErrAlreadyEnabled)

	_, err = f.svc.Setup(ctx, alice, "user@x")
	assert.ErrorIs(t, err, mfa.ErrAlreadyEnabled)

	st, err = f.svc.Status(ctx, alice)
	require.NoError(t, err)
	assert.True(t, st.Enabled)
	assert.Equal(t, 10, st.UnusedRecoveryCodes)
}

func TestSetup_IdempotentWhileDisabled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)

	first, err := f.svc.Setup(ctx, alice, "user@x")
	require.NoError(t, err)
	second, err := f.svc.Setup(ctx, alice, "other label")
	require.NoError(t, err)

	assert.Equal(t, first.Secret, second.Secret)
	assert.NotEqual(t, first.URI, second.URI)

	rec, err := f.store.Get(ctx, alice)
	require.NoError(t, err)
	assert.True(t, f.vault.LooksEncrypted(rec.EncryptedSecret))
	assert.NotContains(t, string(rec.EncryptedSecret), first.Secret)
}

func TestSetup_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)

	_, err := f.svc.Setup(ctx, mfa.Principal{ID: "alice"}, "user@x")
	assert.ErrorIs(t, err, mfa.ErrValidation)

	_, err = f.svc.Setup(ctx, alice, "  ")
	assert.ErrorIs(t, err, mfa.ErrValidation)
}

type failingRenderer struct{}

func (failingRenderer) Render(string) (string, error) { return "", errors.New("renderer offline") }

func TestSetup_QRRenderer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	f := defaultFixture(t, mfa.WithQRRenderer(qrcode.NewRenderer(128)))
	res, err := f.svc.Setup(ctx, alice, "user@x")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.QRCode, "data:image/png;base64,"))

	f = defaultFixture(t, mfa.WithQRRenderer(failingRenderer{}))
	res, err = f.svc.Setup(ctx, alice, "user@x")
	require.NoError(t, err)
	assert.Empty(t, res.QRCode)
	assert.NotEmpty(t, res.URI)
}

func TestEnable_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)

	_, err := f.svc.Enable(ctx, alice, "123456")
	assert.ErrorIs(t, err, mfa.ErrNotConfigured)

	res, err := f.svc.Setup(ctx, alice, "user@x")
	require.NoError(t, err)

	_, err = f.svc.Enable(ctx, alice, "12345")
	assert.ErrorIs(t, err, mfa.ErrValidation)

	_, err = f.svc.Enable(ctx, alice, f.wrongCode(t, res.Secret))
	assert.ErrorIs(t, err, mfa.ErrInvalidCode)

	st, err := f.svc.Status(ctx, alice)
	require.NoError(t, err)
	assert.False(t, st.Enabled)
	assert.Zero(t, st.UnusedRecoveryCodes)
}

func TestVerify_LocksOutAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)
	secret, _ := f.enable(t, alice)
	bob := mfa.Principal{ID: "bob", TenantID: "acme"}
	bobSecret, _ := f.enable(t, bob)

	wrong := f.wrongCode(t, secret)
	for range 5 {
		ok, err := f.svc.Verify(ctx, alice, wrong)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	ok, err := f.svc.Verify(ctx, alice, f.code(t, secret, 0))
	assert.False(t, ok)
	require.ErrorIs(t, err, lockout.ErrLockedOut)

	var le *lockout.LockoutError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 30, le.RemainingMinutes)
	assert.Equal(t, 5, le.MaxAttempts)

	ok, err = f.svc.Verify(ctx, bob, f.code(t, bobSecret, 0))
	require.NoError(t, err)
	assert.True(t, ok, "other principals are unaffected")

	f.clock.Add(30 * time.Minute)
	ok, err = f.svc.Verify(ctx, alice, f.code(t, secret, 0))
	require.NoError(t, err)
	assert.True(t, ok, "lock expires")
}

func TestVerify_SuccessResetsFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)
	secret, _ := f.enable(t, alice)

	for range 4 {
		ok, err := f.svc.Verify(ctx, alice, f.wrongCode(t, secret))
		require.NoError(t, err)
		assert.False(t, ok)
	}

	ok, err := f.svc.Verify(ctx, alice, f.code(t, secret, 0))
	require.NoError(t, err)
	assert.True(t, ok)

	for range 4 {
		ok, err := f.svc.Verify(ctx, alice, f.wrongCode(t, secret))
		require.NoError(t, err)
		assert.False(t, ok)
	}

	f.clock.Add(30 * time.Second)
	ok, err = f.svc.Verify(ctx, alice, f.code(t, secret, 0))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_RejectsReplay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)
	secret, _ := f.enable(t, alice)

	code := f.code(t, secret, 0)
	next := f.code(t, secret, 1)

	ok, err := f.svc.Verify(ctx, alice, code)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.Verify(ctx, alice, code)
	require.NoError(t, err)
	assert.False(t, ok, "same window is a replay")

	f.clock.Add(30 * time.Second)

	ok, err = f.svc.Verify(ctx, alice, next)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.Verify(ctx, alice, code)
	require.NoError(t, err)
	assert.False(t, ok, "earlier window is a replay")
}

func TestVerify_StoresMatchedWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)
	secret, _ := f.enable(t, alice)

	previous := f.code(t, secret, -1)
	current := f.code(t, secret, 0)

	ok, err := f.svc.Verify(ctx, alice, previous)
	require.NoError(t, err)
	require.True(t, ok)

	rec, err := f.store.Get(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, rec.LastTOTPWindow)
	assert.Equal(t, totp.Window(f.clock.Now())-1, *rec.LastTOTPWindow)
	require.NotNil(t, rec.LastUsedAt)
	assert.Equal(t, f.clock.Now(), *rec.LastUsedAt)

	// The current window is still newer than the stored one.
	ok, err = f.svc.Verify(ctx, alice, current)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_States(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)

	_, err := f.svc.Verify(ctx, alice, "123456")
	assert.ErrorIs(t, err, mfa.ErrNotConfigured)

	res, err := f.svc.Setup(ctx, alice, "user@x")
	require.NoError(t, err)

	ok, err := f.svc.Verify(ctx, alice, f.code(t, res.Secret, 0))
	require.NoError(t, err)
	assert.False(t, ok, "disabled record never verifies")

	other := mfa.Principal{ID: alice.ID, TenantID: "globex"}
	_, err = f.svc.Verify(ctx, other, "123456")
	assert.ErrorIs(t, err, mfa.ErrNotConfigured, "tenants are isolated")
}

func TestVerify_ValidationDoesNotCountAsFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)
	secret, _ := f.enable(t, alice)

	for range 10 {
		_, err := f.svc.Verify(ctx, alice, "12ab56")
		assert.ErrorIs(t, err, mfa.ErrValidation)
	}
	_, err := f.svc.Verify(ctx, mfa.Principal{TenantID: "acme"}, "123456")
	assert.ErrorIs(t, err, mfa.ErrValidation)

	ok, err := f.svc.Verify(ctx, alice, f.code(t, secret, 0))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_TamperedSecretIsCryptoError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)
	secret, _ := f.enable(t, alice)

	rec, err := f.store.Get(ctx, alice)
	require.NoError(t, err)
	tampered := append([]byte(nil), rec.EncryptedSecret...)
	tampered[len(tampered)-1] ^= 0xff
	require.NoError(t, f.store.UpdateSecret(ctx, alice, tampered))

	ok, err := f.svc.Verify(ctx, alice, f.code(t, secret, 0))
	assert.False(t, ok)
	assert.ErrorIs(t, err, mfa.ErrCrypto)
	assert.NotErrorIs(t, err, mfa.ErrNotConfigured)
	assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
}

func TestVerify_LegacyPlaintextSecret(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)

	seed := func(t *testing.T, f *fixture) {
		t.Helper()
		_, err := f.store.Upsert(ctx, alice, []byte(secret))
		require.NoError(t, err)
		_, err = f.store.ReplaceAll(ctx, alice, []string{"unused"})
		require.NoError(t, err)
		require.NoError(t, f.store.SetEnabled(ctx, alice, true))
	}

	t.Run("rejected by default", func(t *testing.T) {
		f := defaultFixture(t)
		seed(t, f)

		_, err := f.svc.Verify(ctx, alice, f.code(t, secret, 0))
		assert.ErrorIs(t, err, mfa.ErrCrypto)
	})

	t.Run("migrated when allowed", func(t *testing.T) {
		cfg := mfa.DefaultConfig("MyApp")
		cfg.AllowLegacyPlaintext = true
		f := newFixture(t, cfg, lockout.Config{})
		seed(t, f)

		ok, err := f.svc.Verify(ctx, alice, f.code(t, secret, 0))
		require.NoError(t, err)
		assert.True(t, ok)

		rec, err := f.store.Get(ctx, alice)
		require.NoError(t, err)
		require.True(t, f.vault.LooksEncrypted(rec.EncryptedSecret))

		plain, err := f.vault.Decrypt(rec.EncryptedSecret)
		require.NoError(t, err)
		assert.Equal(t, secret, string(plain))
	})
}

func TestVerifyRecoveryCode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)
	_, codes := f.enable(t, alice)

	ok, err := f.svc.VerifyRecoveryCode(ctx, alice, codes[3])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.VerifyRecoveryCode(ctx, alice, codes[3])
	require.NoError(t, err)
	assert.False(t, ok, "codes are single use")

	relaxed := strings.ToLower(strings.ReplaceAll(codes[4], "-", " "))
	ok, err = f.svc.VerifyRecoveryCode(ctx, alice, relaxed)
	require.NoError(t, err)
	assert.True(t, ok, "case and separators are ignored")

	_, err = f.svc.VerifyRecoveryCode(ctx, alice, "nope")
	assert.ErrorIs(t, err, mfa.ErrValidation)

	st, err := f.svc.Status(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 8, st.UnusedRecoveryCodes)
}

func TestVerifyRecoveryCode_CountsTowardLockout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, mfa.DefaultConfig("MyApp"), lockout.Config{MaxAttempts: 3})
	_, codes := f.enable(t, alice)

	for range 3 {
		ok, err := f.svc.VerifyRecoveryCode(ctx, alice, "AAAAA-AAAAA")
		require.NoError(t, err)
		assert.False(t, ok)
	}

	_, err := f.svc.VerifyRecoveryCode(ctx, alice, codes[0])
	assert.ErrorIs(t, err, lockout.ErrLockedOut)
}

func TestRegenerateRecoveryCodes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)
	secret, old := f.enable(t, alice)

	_, err := f.svc.RegenerateRecoveryCodes(ctx, alice, f.wrongCode(t, secret))
	assert.ErrorIs(t, err, mfa.ErrInvalidCode)

	fresh, err := f.svc.RegenerateRecoveryCodes(ctx, alice, f.code(t, secret, 0))
	require.NoError(t, err)
	require.Len(t, fresh, 10)

	for _, c := range old {
		ok, err := f.svc.VerifyRecoveryCode(ctx, alice, c)
		require.NoError(t, err)
		assert.False(t, ok, "old code %s still valid", c)
		require.NoError(t, f.tracker.RecordSuccess(ctx, alice.TenantID+":"+alice.ID))
	}

	ok, err := f.svc.VerifyRecoveryCode(ctx, alice, fresh[0])
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.svc.RegenerateRecoveryCodes(ctx, mfa.Principal{ID: "nobody", TenantID: "acme"}, "123456")
	assert.ErrorIs(t, err, mfa.ErrNotConfigured)
}

func TestDisable_WithRecoveryCode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)
	secret, codes := f.enable(t, alice)
	code := f.code(t, secret, 0)

	require.NoError(t, f.svc.Disable(ctx, alice, codes[0]))

	st, err := f.svc.Status(ctx, alice)
	require.NoError(t, err)
	assert.False(t, st.Configured)
	assert.Zero(t, st.UnusedRecoveryCodes)

	_, err = f.svc.Verify(ctx, alice, code)
	assert.ErrorIs(t, err, mfa.ErrNotConfigured)

	n, err := f.store.CountUnused(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDisable_WithTOTP(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)
	secret, _ := f.enable(t, alice)

	err := f.svc.Disable(ctx, alice, f.wrongCode(t, secret))
	assert.ErrorIs(t, err, mfa.ErrInvalidCode)

	require.NoError(t, f.svc.Disable(ctx, alice, f.code(t, secret, 0)))

	err = f.svc.Disable(ctx, alice, f.code(t, secret, 0))
	assert.ErrorIs(t, err, mfa.ErrNotConfigured)
}

func TestDisable_RequiresEnabled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)

	res, err := f.svc.Setup(ctx, alice, "user@x")
	require.NoError(t, err)

	err = f.svc.Disable(ctx, alice, f.code(t, res.Secret, 0))
	assert.ErrorIs(t, err, mfa.ErrNotConfigured)

	assert.ErrorIs(t, f.svc.Disable(ctx, alice, " "), mfa.ErrValidation)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)

	st, err := f.svc.Status(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, mfa.Status{}, *st)

	secret, _ := f.enable(t, alice)
	created := f.clock.Now()

	f.clock.Add(time.Minute)
	ok, err := f.svc.Verify(ctx, alice, f.code(t, secret, 0))
	require.NoError(t, err)
	require.True(t, ok)

	st, err = f.svc.Status(ctx, alice)
	require.NoError(t, err)
	assert.True(t, st.Configured)
	assert.True(t, st.Enabled)
	assert.Equal(t, 10, st.UnusedRecoveryCodes)
	assert.Equal(t, created, st.CreatedAt)
	require.NotNil(t, st.LastUsedAt)
	assert.Equal(t, f.clock.Now(), *st.LastUsedAt)
}

func TestVerify_FailClosedTrackerIsStorageError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newFakeClock()
	store := mfa.NewMemoryStore()
	vault, err := secrets.NewVault([]byte("k"))
	require.NoError(t, err)

	tracker, err := lockout.NewTracker(lockout.Config{Policy: lockout.PolicyFailClosed},
		lockout.WithStore(downStore{}))
	require.NoError(t, err)

	svc, err := mfa.NewService(mfa.DefaultConfig("MyApp"), store, store, vault, tracker,
		mfa.WithClock(clock), mfa.WithHasher(hasher.NewBcrypt(4)))
	require.NoError(t, err)

	_, err = svc.Verify(ctx, alice, "123456")
	assert.ErrorIs(t, err, mfa.ErrStorage)
	assert.ErrorIs(t, err, lockout.ErrBackendUnavailable)
	assert.Equal(t, lockout.ModeDegraded, svc.LockoutMode())
}

type downStore struct{}

var errDown = errors.New("connection refused")

func (downStore) Failures(context.Context, string, lockout.Config) (lockout.State, error) {
	return lockout.State{}, errDown
}

func (downStore) Increment(context.Context, string, lockout.Config) (lockout.State, error) {
	return lockout.State{}, errDown
}

func (downStore) Reset(context.Context, string) error { return errDown }

func TestResetLockout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, mfa.DefaultConfig("MyApp"), lockout.Config{MaxAttempts: 2})
	secret, _ := f.enable(t, alice)

	for range 2 {
		_, err := f.svc.Verify(ctx, alice, f.wrongCode(t, secret))
		require.NoError(t, err)
	}
	_, err := f.svc.Verify(ctx, alice, f.code(t, secret, 0))
	require.ErrorIs(t, err, lockout.ErrLockedOut)

	require.NoError(t, f.svc.ResetLockout(ctx, alice))

	ok, err := f.svc.Verify(ctx, alice, f.code(t, secret, 0))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, f.svc.ResetLockout(ctx, mfa.Principal{ID: "x"}), mfa.ErrValidation)
}

// stallingStore blocks Get until the caller's context ends.
type stallingStore struct {
	*mfa.MemoryStore
}

func (s stallingStore) Get(ctx context.Context, _ mfa.Principal) (*mfa.Record, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestService_StoreTimeout(t *testing.T) {
	t.Parallel()

	f := defaultFixture(t)
	cfg := mfa.DefaultConfig("MyApp")
	cfg.StoreTimeout = 50 * time.Millisecond

	svc, err := mfa.NewService(cfg, stallingStore{f.store}, f.store, f.vault, f.tracker,
		mfa.WithClock(f.clock), mfa.WithHasher(hasher.NewBcrypt(4)))
	require.NoError(t, err)

	start := time.Now()
	ok, err := svc.Verify(context.Background(), alice, "123456")
	assert.False(t, ok)
	assert.ErrorIs(t, err, mfa.ErrStorage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	_, err = svc.Status(context.Background(), alice)
	assert.ErrorIs(t, err, mfa.ErrStorage)
}

func TestNewService_StoreTimeoutValidation(t *testing.T) {
	t.Parallel()

	f := defaultFixture(t)
	cfg := mfa.DefaultConfig("MyApp")
	cfg.StoreTimeout = -time.Second

	_, err := mfa.NewService(cfg, f.store, f.store, f.vault, f.tracker)
	assert.ErrorIs(t, err, mfa.ErrInvalidConfig)
}

// failingDeleteStore refuses to delete records.
type failingDeleteStore struct {
	*mfa.MemoryStore
}

func (failingDeleteStore) Delete(context.Context, mfa.Principal) error {
	return errors.New("connection reset")
}

func TestDisable_StoreFailureKeepsRecordAndCodes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := defaultFixture(t)
	_, codes := f.enable(t, alice)

	svc, err := mfa.NewService(mfa.DefaultConfig("MyApp"), failingDeleteStore{f.store}, f.store, f.vault, f.tracker,
		mfa.WithClock(f.clock), mfa.WithHasher(hasher.NewBcrypt(4)))
	require.NoError(t, err)

	err = svc.Disable(ctx, alice, codes[0])
	assert.ErrorIs(t, err, mfa.ErrStorage)

	st, err := f.svc.Status(ctx, alice)
	require.NoError(t, err)
	assert.True(t, st.Enabled)
	assert.Equal(t, 9, st.UnusedRecoveryCodes, "only the consumed code is gone")

	ok, err := f.svc.VerifyRecoveryCode(ctx, alice, codes[1])
	require.NoError(t, err)
	assert.True(t, ok)
}
