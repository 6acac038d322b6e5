package totp

import "errors"

var (
	ErrInvalidSecret       = errors.New("totp: invalid secret")
	ErrInvalidCode         = errors.New("totp: code must be 6 digits")
	ErrInvalidRecoveryCode = errors.New("totp: malformed recovery code")
	ErrMissingAccountName  = errors.New("totp: account name is required")
	ErrMissingIssuer       = errors.New("totp: issuer is required")
	ErrRandomFailed        = errors.New("totp: failed to read random bytes")
)
