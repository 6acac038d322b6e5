package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	formatV1 byte = 0x01

	keySize   = 32
	nonceSize = 12
	tagSize   = 16

	// headerSize covers the version byte and the nonce.
	headerSize = 1 + nonceSize
)

// hkdfInfo binds derived keys to this use so the same master key can safely feed
// other HKDF consumers.
var hkdfInfo = []byte("mfakit/totp-secret/v1")

// Vault encrypts and decrypts secrets with AES-256-GCM.
// It is safe for concurrent use.
type Vault struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewVault derives the encryption key from masterKey and returns a ready vault.
func NewVault(masterKey []byte) (*Vault, error) {
	if len(masterKey) == 0 {
		return nil, ErrEmptyMasterKey
	}

	key, err := deriveKey(masterKey)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}

	return &Vault{aead: aead, rand: rand.Reader}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (v *Vault) Encrypt(plaintext []byte) ([]byte, error) {
	out := make([]byte, headerSize, headerSize+len(plaintext)+tagSize)
	out[0] = formatV1

	if _, err := io.ReadFull(v.rand, out[1:headerSize]); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	return v.aead.Seal(out, out[1:headerSize], plaintext, nil), nil
}

// Decrypt authenticates and opens a value produced by Encrypt.
func (v *Vault) Decrypt(ciphertext []byte) ([]byte, error) {
	if !v.LooksEncrypted(ciphertext) {
		return nil, ErrInvalidCiphertext
	}

	nonce := ciphertext[1:headerSize]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext[headerSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// LooksEncrypted reports whether value carries the vault encoding.
// It does not authenticate anything.
func (v *Vault) LooksEncrypted(value []byte) bool {
	return len(value) >= headerSize+tagSize && value[0] == formatV1
}

func deriveKey(masterKey []byte) ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, hkdfInfo), key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return key, nil
}
