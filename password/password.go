// Package password provides the credential-hashing capability used by the
// engine. The concrete algorithm is Argon2id with a per-call random salt,
// encoded as a self-describing PHC string so parameters can change without
// invalidating stored hashes. The Hasher interface exists so tests can swap
// in a fast stub.
package password

import "errors"

// Hasher is the capability the engine depends on. Hash must salt per call;
// Verify must compare in constant time.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// ErrPasswordTooShort is returned by Hash for passwords under the minimum.
var ErrPasswordTooShort = errors.New("password must be at least 8 bytes")

const minPasswordBytes = 8
