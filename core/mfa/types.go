package mfa

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Principal identifies the account MFA protects, scoped to a tenant. Records of
// the same ID in different tenants are unrelated.
type Principal struct {
	ID       string
	TenantID string
}

func (p Principal) validate() error {
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.TenantID) == "" {
		return ErrValidation
	}
	return nil
}

// lockoutKey escapes both parts so distinct principals never share a key.
func (p Principal) lockoutKey() string {
	return url.QueryEscape(p.TenantID) + ":" + url.QueryEscape(p.ID)
}

// Record is the stored TOTP secret of one principal.
type Record struct {
	PrincipalID     string
	TenantID        string
	EncryptedSecret []byte
	Enabled         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastUsedAt      *time.Time
	LastTOTPWindow  *int64
}

// RecoveryCode is one stored single-use backup code.
type RecoveryCode struct {
	ID          uuid.UUID
	PrincipalID string
	TenantID    string
	CodeHash    string
	CreatedAt   time.Time
	UsedAt      *time.Time
}

// SetupResult is returned by Service.Setup. QRCode is empty when no renderer is
// configured or rendering failed.
type SetupResult struct {
	Secret string
	URI    string
	QRCode string
}

// Status summarizes a principal's MFA state.
type Status struct {
	Configured          bool
	Enabled             bool
	UnusedRecoveryCodes int
	CreatedAt           time.Time
	LastUsedAt          *time.Time
}
