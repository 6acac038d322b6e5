package hasher

// Hasher hashes secrets one way and verifies candidates against stored hashes.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) (bool, error)
}

var (
	_ Hasher = (*Bcrypt)(nil)
	_ Hasher = (*Argon2id)(nil)
)
