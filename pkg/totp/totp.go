package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"strings"
	"time"

	"golang.org/x/text/width"
)

const (
	// Period is the time step in seconds.
	Period = 30
	// Digits is the length of generated codes.
	Digits = 6
	// SecretSize is the number of random bytes in a generated secret (160 bits, RFC 4226).
	SecretSize = 20
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecretKey returns a new base32 secret without padding.
func GenerateSecretKey() (string, error) {
	buf := make([]byte, SecretSize)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Join(ErrRandomFailed, err)
	}
	return b32.EncodeToString(buf), nil
}

// DecodeSecret accepts the forms authenticator apps display: lower case, grouped
// with spaces, with or without padding.
func DecodeSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
	s = strings.TrimRight(s, "=")
	if s == "" {
		return nil, ErrInvalidSecret
	}
	key, err := b32.DecodeString(s)
	if err != nil {
		return nil, errors.Join(ErrInvalidSecret, err)
	}
	return key, nil
}

// Window returns the time step index for t: floor(unix seconds / Period).
func Window(t time.Time) int64 {
	sec := t.Unix()
	w := sec / Period
	if sec < 0 && sec%Period != 0 {
		w--
	}
	return w
}

// GenerateTOTP returns the code for the current time.
func GenerateTOTP(secret string) (string, error) {
	return GenerateTOTPWithTime(secret, time.Now())
}

// GenerateTOTPWithTime returns the code valid at t.
func GenerateTOTPWithTime(secret string, t time.Time) (string, error) {
	return GenerateTOTPForWindow(secret, Window(t))
}

// GenerateTOTPForWindow returns the code for a specific time step.
func GenerateTOTPForWindow(secret string, window int64) (string, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	if window < 0 {
		return "", ErrInvalidCode
	}
	return hotp(key, uint64(window)), nil
}

// NormalizeCode strips separators and folds full-width digits.
// It returns ErrInvalidCode unless the result is exactly Digits ASCII digits.
func NormalizeCode(code string) (string, error) {
	code = width.Fold.String(code)
	code = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '\t' {
			return -1
		}
		return r
	}, code)

	if len(code) != Digits {
		return "", ErrInvalidCode
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return "", ErrInvalidCode
		}
	}
	return code, nil
}

// Match compares code against every window in [Window(at)-skew, Window(at)+skew].
// All candidates are computed and compared in constant time; the earliest matching
// window is returned.
func Match(secret, code string, at time.Time, skew int) (window int64, ok bool, err error) {
	code, err = NormalizeCode(code)
	if err != nil {
		return 0, false, err
	}
	key, err := DecodeSecret(secret)
	if err != nil {
		return 0, false, err
	}
	if skew < 0 {
		skew = 0
	}

	current := Window(at)
	for w := current - int64(skew); w <= current+int64(skew); w++ {
		if w < 0 {
			continue
		}
		candidate := hotp(key, uint64(w))
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(code)) == 1 && !ok {
			window, ok = w, true
		}
	}
	return window, ok, nil
}

// ValidateTOTP reports whether code is valid now with a tolerance of one step.
func ValidateTOTP(secret, code string) (bool, error) {
	_, ok, err := Match(secret, code, time.Now(), 1)
	return ok, err
}

// hotp implements RFC 4226 with HMAC-SHA1 and dynamic truncation.
func hotp(key []byte, counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	const mod = 1_000_000
	code := value % mod

	var out [Digits]byte
	for i := Digits - 1; i >= 0; i-- {
		out[i] = byte('0' + code%10)
		code /= 10
	}
	return string(out[:])
}
