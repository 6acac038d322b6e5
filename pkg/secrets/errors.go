package secrets

import "errors"

var (
	ErrEmptyMasterKey      = errors.New("secrets: master key is empty")
	ErrInvalidKey          = errors.New("secrets: invalid key encoding")
	ErrKeyDerivationFailed = errors.New("secrets: key derivation failed")
	ErrEncryptionFailed    = errors.New("secrets: encryption failed")
	ErrDecryptionFailed    = errors.New("secrets: decryption failed")
	ErrInvalidCiphertext   = errors.New("secrets: invalid ciphertext")
)
