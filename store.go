package shopauth

import (
	"context"
	"time"
)

// UserRepo owns the user identity records.
type UserRepo interface {
	// Create inserts the user. Fails with ErrEmailTaken when the normalized
	// email is already registered.
	Create(ctx context.Context, u *User) error
	// FindByEmail looks up by normalized email. Fails with ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByID fails with ErrUserNotFound.
	FindByID(ctx context.Context, id string) (*User, error)
	// MarkVerified sets the verification flag. Fails with ErrUserNotFound.
	MarkVerified(ctx context.Context, id string) error
	// Delete removes the listed users and reports how many existed.
	Delete(ctx context.Context, ids []string) (int, error)
}

// CredentialRepo owns credential records and is the sole owner of
// password-hash mutation.
type CredentialRepo interface {
	// Create fails with ErrCredentialExists when (provider, account key)
	// already has a credential.
	Create(ctx context.Context, c *Credential) error
	// FindByAccountKey looks up the credentials-provider record by account
	// key (the normalized email). Fails with ErrCredentialNotFound.
	FindByAccountKey(ctx context.Context, accountKey string) (*Credential, error)
	// FindByUser fails with ErrCredentialNotFound.
	FindByUser(ctx context.Context, userID, provider string) (*Credential, error)
	// UpdatePassword overwrites the stored hash in place. Fails with
	// ErrCredentialNotFound.
	UpdatePassword(ctx context.Context, credentialID, newHash string) error
	// DeleteAllForUsers is the account-deletion cleanup step. Safe to call
	// inside the same atomic unit as user deletion.
	DeleteAllForUsers(ctx context.Context, userIDs []string) error
}

// SessionRepo owns device sessions: one record per (user, device).
type SessionRepo interface {
	// Upsert creates or overwrites the session keyed by (UserID, DeviceID),
	// clearing any prior revocation. Returns the stored session.
	Upsert(ctx context.Context, s *DeviceSession) (*DeviceSession, error)
	// FindActive returns the live session for (user, device). Fails with
	// ErrSessionNotFound when absent and ErrSessionRevoked when revoked, so
	// callers can log the precise reason.
	FindActive(ctx context.Context, userID, deviceID string) (*DeviceSession, error)
	// FindByRefreshHash looks up by refresh-token digest and device. Fails
	// with ErrSessionNotFound.
	FindByRefreshHash(ctx context.Context, refreshHash, deviceID string) (*DeviceSession, error)
	// Revoke marks the session holding refreshHash revoked and clears the
	// stored digest so a logically dead token can never match again. Fails
	// with ErrSessionNotFound when nothing matches.
	Revoke(ctx context.Context, refreshHash string) error
	// RevokeAllForUsers removes every session for the listed users. Must be
	// callable within the same atomic unit as other deletions.
	RevokeAllForUsers(ctx context.Context, userIDs []string) error
	// Rotate replaces the refresh digest and expiry in place, conditional on
	// the session still holding oldHash unrevoked and unexpired. Exactly one
	// of two concurrent rotations with the same oldHash succeeds; the loser
	// fails with ErrRotationConflict.
	Rotate(ctx context.Context, sessionID, oldHash, newHash string, newExpiry time.Time) error
	// ListForUser returns all sessions for a "my devices" view, revoked
	// ones included.
	ListForUser(ctx context.Context, userID string) ([]DeviceSession, error)
}

// Store is the persistence capability the engine orchestrates. Atomically
// runs fn against a transactional view of the same store: every repo
// operation inside fn commits or rolls back as one unit. Implementations
// must support the uniqueness constraints the repos advertise.
type Store interface {
	Users() UserRepo
	Credentials() CredentialRepo
	Sessions() SessionRepo
	Atomically(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
