package hasher

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id hashes with argon2id and encodes results in PHC string format.
type Argon2id struct {
	memory  uint32 // KiB
	time    uint32
	threads uint8
	saltLen uint32
	keyLen  uint32
}

// Argon2Option configures an Argon2id hasher.
type Argon2Option func(*Argon2id)

// WithMemory sets the memory cost in KiB.
func WithMemory(kib uint32) Argon2Option {
	return func(a *Argon2id) {
		if kib > 0 {
			a.memory = kib
		}
	}
}

// WithIterations sets the time cost.
func WithIterations(n uint32) Argon2Option {
	return func(a *Argon2id) {
		if n > 0 {
			a.time = n
		}
	}
}

// WithParallelism sets the number of lanes.
func WithParallelism(p uint8) Argon2Option {
	return func(a *Argon2id) {
		if p > 0 {
			a.threads = p
		}
	}
}

// NewArgon2id returns an argon2id hasher with RFC 9106 second recommended
// parameters unless overridden.
func NewArgon2id(opts ...Argon2Option) *Argon2id {
	a := &Argon2id{
		memory:  64 * 1024,
		time:    1,
		threads: 4,
		saltLen: 16,
		keyLen:  32,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Hash returns the PHC encoding of plain.
func (a *Argon2id) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyInput
	}
	salt := make([]byte, a.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Join(ErrHashFailed, err)
	}
	key := argon2.IDKey([]byte(plain), salt, a.time, a.memory, a.threads, a.keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, a.memory, a.time, a.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters stored in hash.
func (a *Argon2id) Verify(hash, plain string) (bool, error) {
	p, salt, key, err := decodeArgon2(hash)
	if err != nil {
		return false, err
	}
	other := argon2.IDKey([]byte(plain), salt, p.time, p.memory, p.threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, other) == 1, nil
}

type argon2Params struct {
	memory  uint32
	time    uint32
	threads uint8
}

func decodeArgon2(hash string) (argon2Params, []byte, []byte, error) {
	var p argon2Params

	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, errors.Join(ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return p, nil, nil, ErrIncompatible
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, errors.Join(ErrMalformedHash, err)
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, errors.Join(ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, errors.Join(ErrMalformedHash, err)
	}
	return p, salt, key, nil
}
