package mfa

import (
	"context"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/lockout"
)

// Vault encrypts TOTP secrets at rest. *secrets.Vault implements it.
type Vault interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
	LooksEncrypted(value []byte) bool
}

// LockoutTracker limits failed attempts per principal. *lockout.Tracker implements it.
type LockoutTracker interface {
	Check(ctx context.Context, key string) error
	RecordFailure(ctx context.Context, key string) (lockout.State, error)
	RecordSuccess(ctx context.Context, key string) error
}

// QRRenderer turns a provisioning URI into a displayable image, such as a data
// URI. *qrcode.Renderer implements it.
type QRRenderer interface {
	Render(uri string) (string, error)
}

// Clock is the service's time source.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type noopRenderer struct{}

func (noopRenderer) Render(string) (string, error) { return "", nil }
