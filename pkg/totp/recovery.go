package totp

import (
	"crypto/rand"
	"errors"
	"strings"

	"golang.org/x/text/width"
)

// RecoveryAlphabet excludes characters that are easily confused when read aloud or
// handwritten: 0/O, 1/I/L.
const RecoveryAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	// RecoveryCodeLength is the number of significant characters in a code.
	RecoveryCodeLength = 10
	recoveryGroupSize  = 5
)

// GenerateRecoveryCodes returns n codes formatted as XXXXX-XXXXX.
func GenerateRecoveryCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for len(codes) < n {
		code, err := generateRecoveryCode()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, FormatRecoveryCode(code))
	}
	return codes, nil
}

// FormatRecoveryCode inserts the group separator into a normalized code.
func FormatRecoveryCode(code string) string {
	if len(code) <= recoveryGroupSize {
		return code
	}
	return code[:recoveryGroupSize] + "-" + code[recoveryGroupSize:]
}

// NormalizeRecoveryCode canonicalizes user input: full-width characters are folded,
// letters upper-cased and spaces or dashes removed. The result is the form that
// gets hashed.
func NormalizeRecoveryCode(code string) (string, error) {
	code = strings.ToUpper(width.Fold.String(code))
	code = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '\t':
			return -1
		}
		return r
	}, code)

	if len(code) != RecoveryCodeLength {
		return "", ErrInvalidRecoveryCode
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(RecoveryAlphabet, code[i]) < 0 {
			return "", ErrInvalidRecoveryCode
		}
	}
	return code, nil
}

// generateRecoveryCode draws characters by rejection sampling so every symbol of the
// alphabet is equally likely.
func generateRecoveryCode() (string, error) {
	const alphabetLen = len(RecoveryAlphabet)
	const limit = 256 - (256 % alphabetLen)

	out := make([]byte, 0, RecoveryCodeLength)
	buf := make([]byte, RecoveryCodeLength*2)
	for len(out) < RecoveryCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Join(ErrRandomFailed, err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, RecoveryAlphabet[int(b)%alphabetLen])
			if len(out) == RecoveryCodeLength {
				break
			}
		}
	}
	return string(out), nil
}
