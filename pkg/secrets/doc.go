// Package secrets provides AES-256-GCM encryption of small secrets at rest with a
// key derived from a configured master key.
//
// The master key may be of any length. The AES key is derived from it with HKDF-SHA256,
// so short passphrases and 32-byte random keys both yield a valid AES-256 key.
//
// # Usage
//
//	key, err := secrets.DecodeKey(os.Getenv("MFA_ENCRYPTION_KEY"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	vault, err := secrets.NewVault(key)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ciphertext, err := vault.Encrypt([]byte("JBSWY3DPEHPK3PXP"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	plaintext, err := vault.Decrypt(ciphertext)
//	if err != nil {
//		// errors.Is(err, secrets.ErrDecryptionFailed) for tampered data
//		log.Fatal(err)
//	}
//
// # Ciphertext Format
//
// Encrypt returns a self-describing byte slice:
//
//	version (1 byte) | nonce (12 bytes) | ciphertext | GCM tag (16 bytes)
//
// Every call uses a fresh random nonce, so encrypting the same plaintext twice
// produces different outputs. Decrypt fails closed: malformed input yields
// ErrInvalidCiphertext and a tag mismatch yields ErrDecryptionFailed. Tag comparison
// is performed by the GCM implementation in constant time.
//
// # Legacy Values
//
// LooksEncrypted reports whether a stored value carries the vault encoding. It exists
// only to migrate values written before encryption was introduced and is not a
// security check.
//
// # Key Management
//
// Generate a key for configuration:
//
//	encoded, err := secrets.GenerateEncodedKey()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("MFA_ENCRYPTION_KEY=%s\n", encoded)
//
// # Error Handling
//
//   - ErrEmptyMasterKey: NewVault called without key material
//   - ErrKeyDerivationFailed: HKDF could not produce the key
//   - ErrEncryptionFailed: nonce generation or cipher setup failed
//   - ErrInvalidCiphertext: input too short or unknown version
//   - ErrDecryptionFailed: authentication failed (tampering, wrong key)
package secrets
