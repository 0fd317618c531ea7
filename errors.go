package shopauth

import (
	"errors"

	"github.com/MrEthical07/shopauth/jwt"
	"github.com/MrEthical07/shopauth/password"
	"github.com/MrEthical07/shopauth/verification"
)

var (
	// ErrEmailTaken is returned by Register when the normalized email is
	// already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrCredentialExists is returned when a (provider, account key) pair
	// already has a credential.
	ErrCredentialExists = errors.New("credential already exists")
	// ErrAlreadyVerified is returned by ResendVerification for verified users.
	ErrAlreadyVerified = errors.New("email already verified")
	// ErrInvalidCredentials is the uniform login failure. It never reveals
	// whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRefreshInvalid covers every refresh failure surfaced to the client:
	// unknown, revoked, expired, or rotated-away tokens.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrUnauthorized is the generic access-denied failure.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserNotFound is returned when a user lookup misses.
	ErrUserNotFound = errors.New("user not found")
	// ErrCredentialNotFound is returned when a credential lookup misses.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrSessionNotFound is returned when no device session matches.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionRevoked is returned when the matching device session has
	// been revoked.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrRotationConflict reports a lost refresh-rotation race: another
	// request already rotated the session with the same token.
	ErrRotationConflict = errors.New("refresh rotation conflict")
	// ErrVerificationInvalid covers invalid, expired, already-used, and
	// wrong-purpose verification tokens alike.
	ErrVerificationInvalid = errors.New("invalid or expired verification code")
	// ErrDeviceIDRequired is returned when a workflow that binds a session
	// to a device is called without a device identifier.
	ErrDeviceIDRequired = errors.New("device id required")
	// ErrNoUserIDs is returned by bulk operations called with an empty list.
	ErrNoUserIDs = errors.New("no user ids provided")
)

// Kind classifies an error into the transport-facing taxonomy so HTTP or RPC
// layers can map it to a status without string matching.
type Kind int

const (
	// KindInternal is everything not otherwise classified.
	KindInternal Kind = iota
	// KindConflict is a uniqueness violation (duplicate email, credential).
	KindConflict
	// KindUnauthorized is a failed credential, token, or session check.
	KindUnauthorized
	// KindNotFound is a missing user, credential, or session.
	KindNotFound
	// KindBadRequest is malformed or missing client input.
	KindBadRequest
)

// KindOf returns the taxonomy kind for err, following wrapped chains.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrCredentialExists),
		errors.Is(err, ErrAlreadyVerified):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrSessionRevoked),
		errors.Is(err, ErrRotationConflict),
		errors.Is(err, jwt.ErrTokenInvalid),
		errors.Is(err, jwt.ErrTokenExpired):
		return KindUnauthorized
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrCredentialNotFound):
		return KindNotFound
	case errors.Is(err, ErrVerificationInvalid),
		errors.Is(err, verification.ErrInvalidOrExpired),
		errors.Is(err, ErrDeviceIDRequired),
		errors.Is(err, ErrNoUserIDs),
		errors.Is(err, password.ErrPasswordTooShort):
		return KindBadRequest
	default:
		return KindInternal
	}
}
