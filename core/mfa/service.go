package mfa

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dmitrymomot/mfakit/core/logger"
	"github.com/dmitrymomot/mfakit/pkg/hasher"
	"github.com/dmitrymomot/mfakit/pkg/lockout"
	"github.com/dmitrymomot/mfakit/pkg/secrets"
	"github.com/dmitrymomot/mfakit/pkg/totp"
)

const tracerName = "github.com/dmitrymomot/mfakit/core/mfa"

// Service runs the MFA lifecycle for principals: setup, enable, verify, disable
// and recovery codes. It is safe for concurrent use.
type Service struct {
	cfg     Config
	records RecordStore
	codes   RecoveryCodeStore
	vault   Vault
	tracker LockoutTracker

	hasher hasher.Hasher
	qr     QRRenderer
	clock  Clock
	logger *slog.Logger
	tracer trace.Tracer
}

// NewService wires a Service. All dependencies are required.
func NewService(cfg Config, records RecordStore, codes RecoveryCodeStore, vault Vault, tracker LockoutTracker, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if records == nil || codes == nil || vault == nil || tracker == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("records, codes, vault and tracker are required"))
	}
	if cfg.RecoveryCodeCount == 0 {
		cfg.RecoveryCodeCount = DefaultRecoveryCodeCount
	}
	if cfg.StoreTimeout == 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}

	s := &Service{
		cfg:     cfg,
		records: records,
		codes:   codes,
		vault:   vault,
		tracker: tracker,
		hasher:  hasher.NewBcrypt(),
		qr:      noopRenderer{},
		clock:   systemClock{},
		logger:  logger.Discard(),
		tracer:  noop.NewTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("mfa"))

	return s, nil
}

// Setup provisions a secret for p. A disabled record keeps its secret, so repeated
// calls return the same secret. An enabled record yields ErrAlreadyEnabled.
func (s *Service) Setup(ctx context.Context, p Principal, label string) (_ *SetupResult, err error) {
	ctx, span := s.startSpan(ctx, "Setup", p)
	defer func() { endSpan(span, err) }()

	if err := p.validate(); err != nil {
		return nil, err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, errors.Join(ErrValidation, totp.ErrMissingAccountName)
	}

	rec, err := s.getRecord(ctx, p)
	if err != nil && !errors.Is(err, ErrNotConfigured) {
		return nil, err
	}

	var secret string
	switch {
	case rec != nil && rec.Enabled:
		return nil, ErrAlreadyEnabled
	case rec != nil:
		if secret, err = s.openSecret(ctx, p, rec); err != nil {
			return nil, err
		}
	default:
		if secret, err = s.provision(ctx, p); err != nil {
			return nil, err
		}
	}

	uri, err := totp.GetTOTPURI(totp.TOTPParams{
		Secret:      secret,
		AccountName: label,
		Issuer:      s.cfg.Issuer,
	})
	if err != nil {
		return nil, errors.Join(ErrValidation, err)
	}

	qr, err := s.qr.Render(uri)
	if err != nil {
		s.logger.WarnContext(ctx, "provisioning image rendering failed",
			logger.Principal(p.ID), logger.Tenant(p.TenantID), logger.Error(err))
		qr = ""
	}

	return &SetupResult{Secret: secret, URI: uri, QRCode: qr}, nil
}

// Enable activates MFA after checking code against the pending secret. It
// returns the plaintext recovery codes, which are not retrievable later.
// Enable does not consult the lockout tracker or the replay window.
func (s *Service) Enable(ctx context.Context, p Principal, code string) (_ []string, err error) {
	ctx, span := s.startSpan(ctx, "Enable", p)
	defer func() { endSpan(span, err) }()

	if err := p.validate(); err != nil {
		return nil, err
	}
	if _, err := totp.NormalizeCode(code); err != nil {
		return nil, errors.Join(ErrValidation, err)
	}

	rec, err := s.getRecord(ctx, p)
	if err != nil {
		return nil, err
	}
	if rec.Enabled {
		return nil, ErrAlreadyEnabled
	}

	secret, err := s.openSecret(ctx, p, rec)
	if err != nil {
		return nil, err
	}
	_, ok, err := totp.Match(secret, code, s.clock.Now(), s.cfg.Skew)
	if err != nil {
		return nil, errors.Join(ErrCrypto, err)
	}
	if !ok {
		return nil, ErrInvalidCode
	}

	plain, hashes, err := s.mintRecoveryCodes()
	if err != nil {
		return nil, err
	}

	// Only one concurrent Enable wins the flip; the others must not hand out codes.
	sctx, cancel := s.storeContext(ctx)
	_, err = s.records.EnableWithCodes(sctx, p, hashes)
	cancel()
	if errors.Is(err, ErrRecordEnabled) {
		return nil, ErrAlreadyEnabled
	}
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	s.logger.InfoContext(ctx, "mfa enabled", logger.Principal(p.ID), logger.Tenant(p.TenantID))
	return plain, nil
}

// Verify checks a TOTP code for an enabled principal. It returns false for a
// wrong or replayed code and for a disabled record, and ErrNotConfigured when p
// has no record. A locked-out principal gets a *lockout.LockoutError before any
// decryption happens.
func (s *Service) Verify(ctx context.Context, p Principal, code string) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "Verify", p)
	defer func() { endSpan(span, err) }()

	if err := p.validate(); err != nil {
		return false, err
	}
	if _, err := totp.NormalizeCode(code); err != nil {
		return false, errors.Join(ErrValidation, err)
	}
	if err := s.checkLockout(ctx, p); err != nil {
		return false, err
	}

	rec, err := s.getRecord(ctx, p)
	if err != nil {
		return false, err
	}
	if !rec.Enabled {
		return false, nil
	}

	secret, err := s.openSecret(ctx, p, rec)
	if err != nil {
		return false, err
	}

	ok, err := s.matchAndAdvance(ctx, p, rec, secret, code)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, s.recordFailure(ctx, p)
	}

	s.recordSuccess(ctx, p)
	return true, nil
}

// matchAndAdvance accepts code only if its matched window is newer than the last
// accepted one and this call wins the store's compare-and-set.
func (s *Service) matchAndAdvance(ctx context.Context, p Principal, rec *Record, secret, code string) (bool, error) {
	now := s.clock.Now()
	window, ok, err := totp.Match(secret, code, now, s.cfg.Skew)
	if err != nil {
		return false, errors.Join(ErrCrypto, err)
	}
	if !ok {
		return false, nil
	}
	if rec.LastTOTPWindow != nil && window <= *rec.LastTOTPWindow {
		s.logger.WarnContext(ctx, "totp code replay rejected",
			logger.Principal(p.ID), logger.Tenant(p.TenantID), logger.Window(window))
		return false, nil
	}

	sctx, cancel := s.storeContext(ctx)
	advanced, err := s.records.AdvanceTOTPWindow(sctx, p, window, now)
	cancel()
	if err != nil {
		return false, errors.Join(ErrStorage, err)
	}
	if !advanced {
		s.logger.WarnContext(ctx, "totp code lost concurrent window update",
			logger.Principal(p.ID), logger.Tenant(p.TenantID), logger.Window(window))
	}
	return advanced, nil
}

// Disable removes MFA for p after checking either a TOTP code or a recovery code.
// Six-digit input is treated as a TOTP code.
func (s *Service) Disable(ctx context.Context, p Principal, codeOrRecovery string) (err error) {
	ctx, span := s.startSpan(ctx, "Disable", p)
	defer func() { endSpan(span, err) }()

	if err := p.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(codeOrRecovery) == "" {
		return ErrValidation
	}

	rec, err := s.getRecord(ctx, p)
	if err != nil {
		return err
	}
	if !rec.Enabled {
		return ErrNotConfigured
	}

	var ok bool
	if _, nerr := totp.NormalizeCode(codeOrRecovery); nerr == nil {
		ok, err = s.Verify(ctx, p, codeOrRecovery)
	} else {
		ok, err = s.VerifyRecoveryCode(ctx, p, codeOrRecovery)
	}
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}

	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.records.Delete(sctx, p); err != nil {
		return errors.Join(ErrStorage, err)
	}

	s.logger.InfoContext(ctx, "mfa disabled", logger.Principal(p.ID), logger.Tenant(p.TenantID))
	return nil
}

// VerifyRecoveryCode consumes one unused recovery code. Each code succeeds at most
// once, including under concurrent calls. Attempts count toward lockout like
// TOTP attempts.
func (s *Service) VerifyRecoveryCode(ctx context.Context, p Principal, code string) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "VerifyRecoveryCode", p)
	defer func() { endSpan(span, err) }()

	if err := p.validate(); err != nil {
		return false, err
	}
	normalized, err := totp.NormalizeRecoveryCode(code)
	if err != nil {
		return false, errors.Join(ErrValidation, err)
	}
	if err := s.checkLockout(ctx, p); err != nil {
		return false, err
	}

	rec, err := s.getRecord(ctx, p)
	if err != nil {
		return false, err
	}
	if !rec.Enabled {
		return false, nil
	}

	sctx, cancel := s.storeContext(ctx)
	unused, err := s.codes.ListUnused(sctx, p)
	cancel()
	if err != nil {
		return false, errors.Join(ErrStorage, err)
	}

	for _, c := range unused {
		match, err := s.hasher.Verify(c.CodeHash, normalized)
		if err != nil {
			s.logger.ErrorContext(ctx, "stored recovery code hash is unreadable",
				logger.Principal(p.ID), logger.Tenant(p.TenantID),
				logger.ID("code_id", c.ID.String()), logger.Error(err))
			continue
		}
		if !match {
			continue
		}

		sctx, cancel := s.storeContext(ctx)
		used, err := s.codes.MarkUsed(sctx, c.ID, s.clock.Now())
		cancel()
		if err != nil {
			return false, errors.Join(ErrStorage, err)
		}
		if !used {
			break
		}

		s.recordSuccess(ctx, p)
		s.logger.InfoContext(ctx, "recovery code used",
			logger.Principal(p.ID), logger.Tenant(p.TenantID),
			logger.Count("remaining", len(unused)-1))
		return true, nil
	}

	return false, s.recordFailure(ctx, p)
}

// RegenerateRecoveryCodes replaces every recovery code of p after a successful
// Verify with totpCode.
func (s *Service) RegenerateRecoveryCodes(ctx context.Context, p Principal, totpCode string) (_ []string, err error) {
	ctx, span := s.startSpan(ctx, "RegenerateRecoveryCodes", p)
	defer func() { endSpan(span, err) }()

	if err := p.validate(); err != nil {
		return nil, err
	}

	rec, err := s.getRecord(ctx, p)
	if err != nil {
		return nil, err
	}
	if !rec.Enabled {
		return nil, ErrNotConfigured
	}

	ok, err := s.Verify(ctx, p, totpCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCode
	}

	plain, err := s.issueRecoveryCodes(ctx, p)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "recovery codes regenerated",
		logger.Principal(p.ID), logger.Tenant(p.TenantID))
	return plain, nil
}

// Status reports p's MFA state without side effects.
func (s *Service) Status(ctx context.Context, p Principal) (_ *Status, err error) {
	ctx, span := s.startSpan(ctx, "Status", p)
	defer func() { endSpan(span, err) }()

	if err := p.validate(); err != nil {
		return nil, err
	}

	rec, err := s.getRecord(ctx, p)
	if errors.Is(err, ErrNotConfigured) {
		return &Status{}, nil
	}
	if err != nil {
		return nil, err
	}

	sctx, cancel := s.storeContext(ctx)
	n, err := s.codes.CountUnused(sctx, p)
	cancel()
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	return &Status{
		Configured:          true,
		Enabled:             rec.Enabled,
		UnusedRecoveryCodes: n,
		CreatedAt:           rec.CreatedAt,
		LastUsedAt:          rec.LastUsedAt,
	}, nil
}

// ResetLockout clears p's failure counter. It is an operator action; the record is
// not required to exist.
func (s *Service) ResetLockout(ctx context.Context, p Principal) (err error) {
	ctx, span := s.startSpan(ctx, "ResetLockout", p)
	defer func() { endSpan(span, err) }()

	if err := p.validate(); err != nil {
		return err
	}
	if err := s.tracker.RecordSuccess(ctx, p.lockoutKey()); err != nil {
		return errors.Join(ErrStorage, err)
	}

	s.logger.InfoContext(ctx, "lockout reset", logger.Principal(p.ID), logger.Tenant(p.TenantID))
	return nil
}

// LockoutMode reports the tracker's mode. Trackers that do not expose one are
// reported as local.
func (s *Service) LockoutMode() lockout.Mode {
	if m, ok := s.tracker.(interface{ Mode() lockout.Mode }); ok {
		return m.Mode()
	}
	return lockout.ModeLocal
}

// storeContext bounds a single store call by StoreTimeout. A deadline surfaces
// from the store as an error and is reported as ErrStorage.
func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

func (s *Service) getRecord(ctx context.Context, p Principal) (*Record, error) {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	rec, err := s.records.Get(sctx, p)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return rec, nil
}

// provision generates, encrypts and stores a new secret.
func (s *Service) provision(ctx context.Context, p Principal) (string, error) {
	secret, err := totp.GenerateSecretKey()
	if err != nil {
		return "", errors.Join(ErrCrypto, err)
	}
	ciphertext, err := s.vault.Encrypt([]byte(secret))
	if err != nil {
		return "", errors.Join(ErrCrypto, err)
	}
	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	if _, err := s.records.Upsert(sctx, p, ciphertext); err != nil {
		if errors.Is(err, ErrRecordEnabled) {
			return "", ErrAlreadyEnabled
		}
		return "", errors.Join(ErrStorage, err)
	}
	return secret, nil
}

// openSecret decrypts the stored secret. A value that is not vault-encoded is a
// legacy plaintext secret: it is accepted and re-encrypted only when
// AllowLegacyPlaintext is set, and is a crypto failure otherwise.
func (s *Service) openSecret(ctx context.Context, p Principal, rec *Record) (string, error) {
	if s.vault.LooksEncrypted(rec.EncryptedSecret) {
		plain, err := s.vault.Decrypt(rec.EncryptedSecret)
		if err != nil {
			s.logger.ErrorContext(ctx, "stored totp secret failed to decrypt",
				logger.Principal(p.ID), logger.Tenant(p.TenantID), logger.Error(err))
			return "", errors.Join(ErrCrypto, err)
		}
		return string(plain), nil
	}

	if !s.cfg.AllowLegacyPlaintext {
		return "", errors.Join(ErrCrypto, secrets.ErrInvalidCiphertext)
	}

	secret := string(rec.EncryptedSecret)
	if _, err := totp.DecodeSecret(secret); err != nil {
		return "", errors.Join(ErrCrypto, err)
	}
	ciphertext, err := s.vault.Encrypt([]byte(secret))
	if err != nil {
		return "", errors.Join(ErrCrypto, err)
	}
	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.records.UpdateSecret(sctx, p, ciphertext); err != nil {
		s.logger.WarnContext(ctx, "legacy totp secret re-encryption failed",
			logger.Principal(p.ID), logger.Tenant(p.TenantID), logger.Error(err))
	} else {
		s.logger.InfoContext(ctx, "legacy totp secret re-encrypted",
			logger.Principal(p.ID), logger.Tenant(p.TenantID))
	}
	return secret, nil
}

// mintRecoveryCodes returns the display form of a fresh set and the hashes to
// store for it.
func (s *Service) mintRecoveryCodes() (plain, hashes []string, err error) {
	plain, err = totp.GenerateRecoveryCodes(s.cfg.RecoveryCodeCount)
	if err != nil {
		return nil, nil, errors.Join(ErrCrypto, err)
	}

	hashes = make([]string, len(plain))
	for i, code := range plain {
		normalized, err := totp.NormalizeRecoveryCode(code)
		if err != nil {
			return nil, nil, errors.Join(ErrCrypto, err)
		}
		if hashes[i], err = s.hasher.Hash(normalized); err != nil {
			return nil, nil, errors.Join(ErrCrypto, err)
		}
	}
	return plain, hashes, nil
}

// issueRecoveryCodes replaces the stored set of an enabled principal.
func (s *Service) issueRecoveryCodes(ctx context.Context, p Principal) ([]string, error) {
	plain, hashes, err := s.mintRecoveryCodes()
	if err != nil {
		return nil, err
	}

	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	if _, err := s.codes.ReplaceAll(sctx, p, hashes); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return plain, nil
}

func (s *Service) checkLockout(ctx context.Context, p Principal) error {
	err := s.tracker.Check(ctx, p.lockoutKey())
	if err == nil || errors.Is(err, lockout.ErrLockedOut) {
		return err
	}
	return errors.Join(ErrStorage, err)
}

func (s *Service) recordFailure(ctx context.Context, p Principal) error {
	st, err := s.tracker.RecordFailure(ctx, p.lockoutKey())
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	if st.Locked {
		s.logger.WarnContext(ctx, "principal locked out",
			logger.Principal(p.ID), logger.Tenant(p.TenantID),
			logger.Count("failures", st.Failures))
	}
	return nil
}

// recordSuccess clears the failure counter. A tracker error is logged, not
// returned, since the verification itself succeeded.
func (s *Service) recordSuccess(ctx context.Context, p Principal) {
	if err := s.tracker.RecordSuccess(ctx, p.lockoutKey()); err != nil {
		s.logger.WarnContext(ctx, "lockout reset failed",
			logger.Principal(p.ID), logger.Tenant(p.TenantID), logger.Error(err))
	}
}

func (s *Service) startSpan(ctx context.Context, op string, p Principal) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "mfa."+op, trace.WithAttributes(
		attribute.String("mfa.principal_id", p.ID),
		attribute.String("mfa.tenant_id", p.TenantID),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
