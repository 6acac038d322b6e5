// Package mfa manages TOTP-based multi-factor authentication for principals.
//
// A principal moves through three states:
//
//	unset --Setup--> configured (disabled) --Enable--> enabled --Disable--> unset
//
// Service wires together a RecordStore and a RecoveryCodeStore (MemoryStore here,
// or the Postgres store in integration/mfastore/postgres), a Vault for secrets at
// rest, and a LockoutTracker:
//
//	vault, _ := secrets.NewVault(masterKey)
//	tracker, _ := lockout.NewTracker(lockoutCfg, lockout.WithStore(lockout.NewRedisStore(rdb)))
//	store := mfa.NewMemoryStore()
//
//	svc, err := mfa.NewService(mfa.DefaultConfig("MyApp"), store, store, vault, tracker,
//		mfa.WithQRRenderer(qrcode.NewRenderer(256)),
//		mfa.WithLogger(log),
//	)
//
//	p := mfa.Principal{ID: userID, TenantID: tenantID}
//	res, err := svc.Setup(ctx, p, "user@example.com") // show res.URI / res.QRCode
//	codes, err := svc.Enable(ctx, p, codeFromApp)     // show codes once
//	ok, err := svc.Verify(ctx, p, codeFromApp)
//
// # Verification
//
// Verify checks the lockout tracker before touching the record, so a locked-out
// principal never causes decryption. A code is accepted when it matches a step
// within Config.Skew of now and that step is newer than the last accepted one. The
// matched step is stored with a compare-and-set, so of two concurrent calls with the
// same code only one succeeds. Wrong and replayed codes count as failures.
//
// # Recovery Codes
//
// Enable and RegenerateRecoveryCodes return the plaintext codes once; only hashes
// are stored. Enable stores the set and flips the record in one store call, so of
// concurrent Enable calls only one returns codes. VerifyRecoveryCode accepts any case and separators, and consumes a
// code with an atomic MarkUsed.
//
// # Errors
//
// Input problems return ErrValidation and leave the lockout counter alone.
// ErrInvalidCode and *lockout.LockoutError are the outcomes end users see.
// ErrCrypto (an undecryptable secret) and ErrStorage are for operators; an
// undecryptable secret is never treated as "MFA not configured". Each store call
// runs under Config.StoreTimeout; a deadline is reported as ErrStorage.
package mfa
