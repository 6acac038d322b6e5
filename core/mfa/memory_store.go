package mfa

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements RecordStore and RecoveryCodeStore in process memory.
// It suits tests and single-instance deployments; state is lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Principal]*Record
	codes   map[uuid.UUID]*RecoveryCode
	sets    map[Principal][]uuid.UUID
	now     func() time.Time
}

var (
	_ RecordStore       = (*MemoryStore)(nil)
	_ RecoveryCodeStore = (*MemoryStore)(nil)
)

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryStoreClock sets the source of CreatedAt and UpdatedAt timestamps.
func WithMemoryStoreClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		records: make(map[Principal]*Record),
		codes:   make(map[uuid.UUID]*RecoveryCode),
		sets:    make(map[Principal][]uuid.UUID),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, p Principal) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[p]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return cloneRecord(r), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, p Principal, ciphertext []byte) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	r, ok := s.records[p]
	switch {
	case !ok:
		r = &Record{
			PrincipalID: p.ID,
			TenantID:    p.TenantID,
			CreatedAt:   now,
		}
		s.records[p] = r
	case r.Enabled:
		return nil, ErrRecordEnabled
	}

	r.EncryptedSecret = append([]byte(nil), ciphertext...)
	r.LastTOTPWindow = nil
	r.UpdatedAt = now
	return cloneRecord(r), nil
}

func (s *MemoryStore) SetEnabled(ctx context.Context, p Principal, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[p]
	if !ok {
		return ErrRecordNotFound
	}
	r.Enabled = enabled
	r.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) EnableWithCodes(ctx context.Context, p Principal, hashes []string) ([]RecoveryCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[p]
	if !ok {
		return nil, ErrRecordNotFound
	}
	if r.Enabled {
		return nil, ErrRecordEnabled
	}

	out := s.replaceLocked(p, hashes)
	r.Enabled = true
	r.UpdatedAt = s.now()
	return out, nil
}

func (s *MemoryStore) AdvanceTOTPWindow(ctx context.Context, p Principal, window int64, usedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[p]
	if !ok {
		return false, ErrRecordNotFound
	}
	if r.LastTOTPWindow != nil && *r.LastTOTPWindow >= window {
		return false, nil
	}
	r.LastTOTPWindow = &window
	r.LastUsedAt = &usedAt
	r.UpdatedAt = s.now()
	return true, nil
}

func (s *MemoryStore) UpdateSecret(ctx context.Context, p Principal, ciphertext []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[p]
	if !ok {
		return ErrRecordNotFound
	}
	r.EncryptedSecret = append([]byte(nil), ciphertext...)
	r.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, p Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, p)
	s.deleteSetLocked(p)
	return nil
}

func (s *MemoryStore) ReplaceAll(ctx context.Context, p Principal, hashes []string) ([]RecoveryCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.replaceLocked(p, hashes), nil
}

func (s *MemoryStore) replaceLocked(p Principal, hashes []string) []RecoveryCode {
	s.deleteSetLocked(p)

	now := s.now()
	out := make([]RecoveryCode, 0, len(hashes))
	ids := make([]uuid.UUID, 0, len(hashes))
	for _, h := range hashes {
		c := &RecoveryCode{
			ID:          uuid.New(),
			PrincipalID: p.ID,
			TenantID:    p.TenantID,
			CodeHash:    h,
			CreatedAt:   now,
		}
		s.codes[c.ID] = c
		ids = append(ids, c.ID)
		out = append(out, *c)
	}
	s.sets[p] = ids
	return out
}

func (s *MemoryStore) ListUnused(ctx context.Context, p Principal) ([]RecoveryCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []RecoveryCode
	for _, id := range s.sets[p] {
		if c := s.codes[id]; c.UsedAt == nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[id]
	if !ok || c.UsedAt != nil {
		return false, nil
	}
	c.UsedAt = &usedAt
	return true, nil
}

func (s *MemoryStore) DeleteAll(ctx context.Context, p Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteSetLocked(p)
	return nil
}

func (s *MemoryStore) CountUnused(ctx context.Context, p Principal) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, id := range s.sets[p] {
		if s.codes[id].UsedAt == nil {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) deleteSetLocked(p Principal) {
	for _, id := range s.sets[p] {
		delete(s.codes, id)
	}
	delete(s.sets, p)
}

func cloneRecord(r *Record) *Record {
	c := *r
	c.EncryptedSecret = append([]byte(nil), r.EncryptedSecret...)
	if r.LastUsedAt != nil {
		t := *r.LastUsedAt
		c.LastUsedAt = &t
	}
	if r.LastTOTPWindow != nil {
		w := *r.LastTOTPWindow
		c.LastTOTPWindow = &w
	}
	return &c
}
