// Package hasher provides one-way adaptive hashing for short secrets such as
// recovery codes.
//
// Two implementations satisfy the Hasher interface:
//
//	h := hasher.NewBcrypt()                       // cost 10 by default
//	h := hasher.NewArgon2id(hasher.WithMemory(64 * 1024))
//
//	encoded, err := h.Hash("K7WQX3MZPA")
//	ok, err := h.Verify(encoded, "K7WQX3MZPA")
//
// Verify returns (false, nil) for a well-formed hash that does not match and an
// error wrapping ErrMalformedHash when the stored value cannot be parsed.
// Comparison is constant-time in both implementations.
//
// Argon2id hashes use the PHC string format:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
//
// so parameters can be raised later without invalidating stored hashes.
package hasher
