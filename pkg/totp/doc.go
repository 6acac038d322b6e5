// Package totp implements RFC 6238 time-based one-time passwords (HMAC-SHA1,
// 30-second step, 6 digits), provisioning URIs and recovery code generation.
//
// # Basic Usage
//
//	secret, err := totp.GenerateSecretKey()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	uri, err := totp.GetTOTPURI(totp.TOTPParams{
//		Secret:      secret,
//		AccountName: "user@example.com",
//		Issuer:      "MyApp",
//	})
//
//	code, err := totp.GenerateTOTP(secret)
//
// # Window Matching
//
// Match checks a code against the current step and skew steps on either side, and
// reports which step matched. Callers that need replay protection persist the
// matched step and reject any later code whose step is not strictly greater:
//
//	window, ok, err := totp.Match(secret, userCode, time.Now(), 1)
//	if err != nil {
//		// errors.Is(err, totp.ErrInvalidCode) for malformed input
//	}
//	if ok && window > lastAcceptedWindow {
//		lastAcceptedWindow = window
//	}
//
// Every candidate is compared with crypto/subtle, and the loop does not exit early.
//
// # Recovery Codes
//
//	codes, err := totp.GenerateRecoveryCodes(10) // "K7WQX-3MZPA", ...
//
//	normalized, err := totp.NormalizeRecoveryCode(" k7wqx 3mzpa ")
//	// normalized == "K7WQX3MZPA"; hash this form, never the display form.
//
// Codes are drawn from RecoveryAlphabet, which omits 0, O, 1, I and L.
//
// # Testing
//
//	testTime := time.Unix(1609459200, 0)
//	code, err := totp.GenerateTOTPWithTime(secret, testTime)
package totp
