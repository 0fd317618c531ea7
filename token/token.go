// Package token implements the opaque-token primitives shared by refresh
// tokens and verification records: cryptographically random token material,
// numeric one-time codes, and the keyed digest stored in place of the raw
// value. The raw token is a bearer secret handed to the client exactly once;
// only its digest is ever persisted, and a presented token is re-digested for
// an equality lookup.
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

const (
	// RefreshTokenBytes is the entropy of a raw refresh token.
	RefreshTokenBytes = 64
	// VerificationTokenBytes is the entropy of a raw verification token.
	VerificationTokenBytes = 32
	// DefaultOTPDigits is the length of numeric one-time codes.
	DefaultOTPDigits = 6

	minSecretBytes = 32
)

// ErrSecretTooShort is returned by NewCodec for weak digest secrets.
var ErrSecretTooShort = errors.New("token digest secret must be at least 32 bytes")

// Codec derives keyed digests of opaque tokens and generates fresh token
// material. The secret is injected at construction; there is no ambient
// process-level key.
type Codec struct {
	secret []byte
}

// NewCodec builds a Codec around the given digest secret.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < minSecretBytes {
		return nil, ErrSecretTooShort
	}
	c := &Codec{secret: make([]byte, len(secret))}
	copy(c.secret, secret)
	return c, nil
}

// Digest returns the hex-encoded HMAC-SHA256 of a raw token. Deterministic,
// so a presented raw value can be re-digested and looked up by equality.
func (c *Codec) Digest(raw string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// NewRefreshToken returns a fresh hex-encoded refresh token.
func (c *Codec) NewRefreshToken() (string, error) {
	return randomHex(RefreshTokenBytes)
}

// NewVerificationToken returns a fresh hex-encoded verification token.
func (c *Codec) NewVerificationToken() (string, error) {
	return randomHex(VerificationTokenBytes)
}

// NewOTP returns a numeric one-time code of the given length, for channels
// where a long hex token is impractical. digits outside [4, 10] is an error.
func (c *Codec) NewOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
