package hasher

import "errors"

var (
	ErrEmptyInput     = errors.New("hasher: empty input")
	ErrMalformedHash  = errors.New("hasher: malformed hash")
	ErrHashFailed     = errors.New("hasher: hashing failed")
	ErrIncompatible   = errors.New("hasher: incompatible hash version")
)
