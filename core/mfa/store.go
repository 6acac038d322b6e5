package mfa

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RecordStore persists one Record per Principal.
type RecordStore interface {
	// Get returns ErrRecordNotFound when no record exists.
	Get(ctx context.Context, p Principal) (*Record, error)
	// Upsert creates a disabled record, or replaces the ciphertext of a disabled
	// one and clears its window. It returns ErrRecordEnabled for an enabled record.
	Upsert(ctx context.Context, p Principal, ciphertext []byte) (*Record, error)
	SetEnabled(ctx context.Context, p Principal, enabled bool) error
	// EnableWithCodes stores a fresh recovery code set built from hashes and
	// enables the record in one atomic step. It returns ErrRecordEnabled when the
	// record is already enabled, leaving the stored set untouched.
	EnableWithCodes(ctx context.Context, p Principal, hashes []string) ([]RecoveryCode, error)
	// AdvanceTOTPWindow stores window and usedAt only if the stored window is
	// unset or lower, and reports whether it did. This is the anti-replay
	// serialization point.
	AdvanceTOTPWindow(ctx context.Context, p Principal, window int64, usedAt time.Time) (bool, error)
	UpdateSecret(ctx context.Context, p Principal, ciphertext []byte) error
	// Delete removes the record and its recovery codes in one atomic step. It is
	// a no-op for a missing record.
	Delete(ctx context.Context, p Principal) error
}

// RecoveryCodeStore persists recovery code sets.
type RecoveryCodeStore interface {
	// ReplaceAll atomically swaps the principal's set for one built from hashes.
	ReplaceAll(ctx context.Context, p Principal, hashes []string) ([]RecoveryCode, error)
	ListUnused(ctx context.Context, p Principal) ([]RecoveryCode, error)
	// MarkUsed sets UsedAt if it is unset and reports whether it did.
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error)
	DeleteAll(ctx context.Context, p Principal) error
	CountUnused(ctx context.Context, p Principal) (int, error)
}
