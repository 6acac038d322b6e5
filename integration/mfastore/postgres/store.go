package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/mfakit/core/mfa"
	"github.com/dmitrymomot/mfakit/integration/database/pg"
)

// Store implements mfa.RecordStore and mfa.RecoveryCodeStore on PostgreSQL. It
// joins a transaction attached to the context with pg.WithTx.
type Store struct {
	db  pg.DBTX
	now func() time.Time
}

var (
	_ mfa.RecordStore       = (*Store)(nil)
	_ mfa.RecoveryCodeStore = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the source of created_at and updated_at values.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a store backed by db, usually a *pgxpool.Pool.
func New(db pg.DBTX, opts ...Option) *Store {
	s := &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const recordColumns = `tenant_id, principal_id, encrypted_secret, enabled, created_at, updated_at, last_used_at, last_totp_window`

const (
	getRecordQuery = `SELECT ` + recordColumns + `
FROM mfa_records
WHERE tenant_id = $1 AND principal_id = $2`

	upsertRecordQuery = `INSERT INTO mfa_records (tenant_id, principal_id, encrypted_secret, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (tenant_id, principal_id) DO UPDATE
SET encrypted_secret = EXCLUDED.encrypted_secret, last_totp_window = NULL, updated_at = EXCLUDED.updated_at
WHERE mfa_records.enabled = FALSE
RETURNING ` + recordColumns

	setEnabledQuery = `UPDATE mfa_records SET enabled = $3, updated_at = $4
WHERE tenant_id = $1 AND principal_id = $2`

	enableDisabledQuery = `UPDATE mfa_records SET enabled = TRUE, updated_at = $3
WHERE tenant_id = $1 AND principal_id = $2 AND enabled = FALSE`

	advanceWindowQuery = `UPDATE mfa_records SET last_totp_window = $3, last_used_at = $4, updated_at = $5
WHERE tenant_id = $1 AND principal_id = $2
AND (last_totp_window IS NULL OR last_totp_window < $3)`

	recordExistsQuery = `SELECT EXISTS (SELECT 1 FROM mfa_records WHERE tenant_id = $1 AND principal_id = $2)`

	updateSecretQuery = `UPDATE mfa_records SET encrypted_secret = $3, updated_at = $4
WHERE tenant_id = $1 AND principal_id = $2`

	deleteRecordQuery = `DELETE FROM mfa_records WHERE tenant_id = $1 AND principal_id = $2`

	deleteCodesQuery = `DELETE FROM mfa_recovery_codes WHERE tenant_id = $1 AND principal_id = $2`

	insertCodeQuery = `INSERT INTO mfa_recovery_codes (id, tenant_id, principal_id, code_hash, created_at)
VALUES ($1, $2, $3, $4, $5)`

	listUnusedQuery = `SELECT id, code_hash, created_at
FROM mfa_recovery_codes
WHERE tenant_id = $1 AND principal_id = $2 AND used_at IS NULL
ORDER BY created_at, id`

	markUsedQuery = `UPDATE mfa_recovery_codes SET used_at = $2 WHERE id = $1 AND used_at IS NULL`

	countUnusedQuery = `SELECT count(*) FROM mfa_recovery_codes
WHERE tenant_id = $1 AND principal_id = $2 AND used_at IS NULL`
)

func (s *Store) Get(ctx context.Context, p mfa.Principal) (*mfa.Record, error) {
	rec, err := scanRecord(pg.Conn(ctx, s.db).QueryRow(ctx, getRecordQuery, p.TenantID, p.ID))
	if pg.IsNotFoundError(err) {
		return nil, mfa.ErrRecordNotFound
	}
	return rec, err
}

func (s *Store) Upsert(ctx context.Context, p mfa.Principal, ciphertext []byte) (*mfa.Record, error) {
	rec, err := scanRecord(pg.Conn(ctx, s.db).QueryRow(ctx, upsertRecordQuery,
		p.TenantID, p.ID, ciphertext, s.now()))
	if pg.IsNotFoundError(err) {
		// The conflict clause skips enabled rows.
		return nil, mfa.ErrRecordEnabled
	}
	return rec, err
}

func (s *Store) SetEnabled(ctx context.Context, p mfa.Principal, enabled bool) error {
	tag, err := pg.Conn(ctx, s.db).Exec(ctx, setEnabledQuery, p.TenantID, p.ID, enabled, s.now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return mfa.ErrRecordNotFound
	}
	return nil
}

// EnableWithCodes flips enabled and swaps the recovery code set in one
// transaction. The row lock taken by the conditional update serializes
// concurrent callers; the loser sees enabled = TRUE and gets ErrRecordEnabled.
func (s *Store) EnableWithCodes(ctx context.Context, p mfa.Principal, hashes []string) ([]mfa.RecoveryCode, error) {
	now := s.now()
	var codes []mfa.RecoveryCode

	err := pg.InTx(ctx, s.db, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, enableDisabledQuery, p.TenantID, p.ID, now)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, recordExistsQuery, p.TenantID, p.ID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return mfa.ErrRecordNotFound
			}
			return mfa.ErrRecordEnabled
		}

		codes, err = replaceCodes(ctx, tx, p, hashes, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *Store) AdvanceTOTPWindow(ctx context.Context, p mfa.Principal, window int64, usedAt time.Time) (bool, error) {
	conn := pg.Conn(ctx, s.db)
	tag, err := conn.Exec(ctx, advanceWindowQuery, p.TenantID, p.ID, window, usedAt, s.now())
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := conn.QueryRow(ctx, recordExistsQuery, p.TenantID, p.ID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, mfa.ErrRecordNotFound
	}
	return false, nil
}

func (s *Store) UpdateSecret(ctx context.Context, p mfa.Principal, ciphertext []byte) error {
	tag, err := pg.Conn(ctx, s.db).Exec(ctx, updateSecretQuery, p.TenantID, p.ID, ciphertext, s.now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return mfa.ErrRecordNotFound
	}
	return nil
}

// Delete removes the recovery codes and the record in one transaction.
func (s *Store) Delete(ctx context.Context, p mfa.Principal) error {
	return pg.InTx(ctx, s.db, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteCodesQuery, p.TenantID, p.ID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, deleteRecordQuery, p.TenantID, p.ID)
		return err
	})
}

// ReplaceAll deletes the current set and inserts the new one in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, p mfa.Principal, hashes []string) ([]mfa.RecoveryCode, error) {
	now := s.now()
	var codes []mfa.RecoveryCode

	err := pg.InTx(ctx, s.db, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		codes, err = replaceCodes(ctx, tx, p, hashes, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func replaceCodes(ctx context.Context, tx pgx.Tx, p mfa.Principal, hashes []string, now time.Time) ([]mfa.RecoveryCode, error) {
	if _, err := tx.Exec(ctx, deleteCodesQuery, p.TenantID, p.ID); err != nil {
		return nil, err
	}

	codes := make([]mfa.RecoveryCode, len(hashes))
	for i, h := range hashes {
		codes[i] = mfa.RecoveryCode{
			ID:          uuid.New(),
			PrincipalID: p.ID,
			TenantID:    p.TenantID,
			CodeHash:    h,
			CreatedAt:   now,
		}
		if _, err := tx.Exec(ctx, insertCodeQuery, codes[i].ID, p.TenantID, p.ID, h, now); err != nil {
			return nil, err
		}
	}
	return codes, nil
}

func (s *Store) ListUnused(ctx context.Context, p mfa.Principal) ([]mfa.RecoveryCode, error) {
	rows, err := pg.Conn(ctx, s.db).Query(ctx, listUnusedQuery, p.TenantID, p.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []mfa.RecoveryCode
	for rows.Next() {
		c := mfa.RecoveryCode{PrincipalID: p.ID, TenantID: p.TenantID}
		if err := rows.Scan(&c.ID, &c.CodeHash, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error) {
	tag, err := pg.Conn(ctx, s.db).Exec(ctx, markUsedQuery, id, usedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) DeleteAll(ctx context.Context, p mfa.Principal) error {
	_, err := pg.Conn(ctx, s.db).Exec(ctx, deleteCodesQuery, p.TenantID, p.ID)
	return err
}

func (s *Store) CountUnused(ctx context.Context, p mfa.Principal) (int, error) {
	var n int
	err := pg.Conn(ctx, s.db).QueryRow(ctx, countUnusedQuery, p.TenantID, p.ID).Scan(&n)
	return n, err
}

func scanRecord(row pgx.Row) (*mfa.Record, error) {
	var r mfa.Record
	if err := row.Scan(
		&r.TenantID,
		&r.PrincipalID,
		&r.EncryptedSecret,
		&r.Enabled,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.LastUsedAt,
		&r.LastTOTPWindow,
	); err != nil {
		return nil, err
	}
	return &r, nil
}
