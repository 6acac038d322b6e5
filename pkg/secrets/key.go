package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
)

// GenerateKey returns 32 cryptographically random bytes.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return key, nil
}

// GenerateEncodedKey returns a new key in the base64 form DecodeKey accepts.
func GenerateEncodedKey() (string, error) {
	key, err := GenerateKey()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// DecodeKey turns configured key material into bytes.
// Values prefixed with "base64:" must decode; other values are tried as standard
// base64 and otherwise used verbatim, since HKDF accepts any length.
func DecodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyMasterKey
	}

	if encoded, ok := strings.CutPrefix(s, "base64:"); ok {
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, errors.Join(ErrInvalidKey, err)
		}
		if len(key) == 0 {
			return nil, ErrEmptyMasterKey
		}
		return key, nil
	}

	if key, err := base64.StdEncoding.DecodeString(s); err == nil && len(key) >= 16 {
		return key, nil
	}

	return []byte(s), nil
}
