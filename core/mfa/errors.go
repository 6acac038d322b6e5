package mfa

import "errors"

// Errors returned by Service. Underlying causes are joined, so callers match with
// errors.Is. A locked-out principal gets a *lockout.LockoutError
// (errors.Is(err, lockout.ErrLockedOut)).
var (
	ErrValidation     = errors.New("mfa: invalid input")
	ErrNotConfigured  = errors.New("mfa: not configured")
	ErrAlreadyEnabled = errors.New("mfa: already enabled")
	ErrInvalidCode    = errors.New("mfa: invalid code")
	ErrCrypto         = errors.New("mfa: secret encryption failure")
	ErrStorage        = errors.New("mfa: storage failure")
	ErrInvalidConfig  = errors.New("mfa: invalid configuration")
)

// Errors returned by RecordStore implementations.
var (
	ErrRecordNotFound = errors.New("mfa: record not found")
	ErrRecordEnabled  = errors.New("mfa: record is enabled")
)
