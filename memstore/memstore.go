// Package memstore is an in-memory shopauth.Store with the same sentinel
// semantics as the PostgreSQL implementation: unique emails, unique
// (provider, account key) credentials, one session per (user, device), and
// compare-and-swap refresh rotation. Atomically clones the state, runs the
// function against the clone, and swaps it in only on success, giving real
// rollback behavior. Intended for tests and local development.
package memstore

import (
	"context"
	"sync"
	"time"

	shopauth "github.com/MrEthical07/shopauth"
)

type state struct {
	users       map[string]shopauth.User
	credentials map[string]shopauth.Credential
	sessions    map[string]shopauth.DeviceSession
}

func newState() *state {
	return &state{
		users:       make(map[string]shopauth.User),
		credentials: make(map[string]shopauth.Credential),
		sessions:    make(map[string]shopauth.DeviceSession),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.credentials {
		c.credentials[k] = v
	}
	for k, v := range st.sessions {
		c.sessions[k] = v
	}
	return c
}

// Store implements shopauth.Store in memory. Safe for concurrent use.
type Store struct {
	mu sync.Mutex
	st *state

	// inTx marks a transactional view; its methods run with the parent's
	// lock already held.
	inTx bool
}

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Users() shopauth.UserRepo             { return &userRepo{s} }
func (s *Store) Credentials() shopauth.CredentialRepo { return &credentialRepo{s} }
func (s *Store) Sessions() shopauth.SessionRepo       { return &sessionRepo{s} }

// Atomically runs fn against a cloned state under the store lock. The clone
// replaces the live state only when fn succeeds, so a failed unit leaves no
// trace.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, tx shopauth.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txStore := &Store{st: s.st.clone(), inTx: true}
	if err := fn(ctx, txStore); err != nil {
		return err
	}
	s.st = txStore.st
	return nil
}

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(ctx context.Context, u *shopauth.User) error {
	defer r.s.lock()()
	for _, existing := range r.s.st.users {
		if existing.Email == u.Email {
			return shopauth.ErrEmailTaken
		}
	}
	r.s.st.users[u.ID] = *u
	return nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*shopauth.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.st.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, shopauth.ErrUserNotFound
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*shopauth.User, error) {
	defer r.s.lock()()
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, shopauth.ErrUserNotFound
	}
	out := u
	return &out, nil
}

func (r *userRepo) MarkVerified(ctx context.Context, id string) error {
	defer r.s.lock()()
	u, ok := r.s.st.users[id]
	if !ok {
		return shopauth.ErrUserNotFound
	}
	u.Verified = true
	r.s.st.users[id] = u
	return nil
}

func (r *userRepo) Delete(ctx context.Context, ids []string) (int, error) {
	defer r.s.lock()()
	deleted := 0
	for _, id := range ids {
		if _, ok := r.s.st.users[id]; ok {
			delete(r.s.st.users, id)
			deleted++
		}
	}
	return deleted, nil
}

type credentialRepo struct {
	s *Store
}

func (r *credentialRepo) Create(ctx context.Context, c *shopauth.Credential) error {
	defer r.s.lock()()
	for _, existing := range r.s.st.credentials {
		if existing.Provider == c.Provider && existing.AccountKey == c.AccountKey {
			return shopauth.ErrCredentialExists
		}
	}
	r.s.st.credentials[c.ID] = *c
	return nil
}

func (r *credentialRepo) FindByAccountKey(ctx context.Context, accountKey string) (*shopauth.Credential, error) {
	defer r.s.lock()()
	for _, c := range r.s.st.credentials {
		if c.Provider == shopauth.ProviderCredentials && c.AccountKey == accountKey {
			out := c
			return &out, nil
		}
	}
	return nil, shopauth.ErrCredentialNotFound
}

func (r *credentialRepo) FindByUser(ctx context.Context, userID, provider string) (*shopauth.Credential, error) {
	defer r.s.lock()()
	for _, c := range r.s.st.credentials {
		if c.UserID == userID && c.Provider == provider {
			out := c
			return &out, nil
		}
	}
	return nil, shopauth.ErrCredentialNotFound
}

func (r *credentialRepo) UpdatePassword(ctx context.Context, credentialID, newHash string) error {
	defer r.s.lock()()
	c, ok := r.s.st.credentials[credentialID]
	if !ok {
		return shopauth.ErrCredentialNotFound
	}
	c.PasswordHash = newHash
	r.s.st.credentials[credentialID] = c
	return nil
}

func (r *credentialRepo) DeleteAllForUsers(ctx context.Context, userIDs []string) error {
	defer r.s.lock()()
	for id, c := range r.s.st.credentials {
		if contains(userIDs, c.UserID) {
			delete(r.s.st.credentials, id)
		}
	}
	return nil
}

type sessionRepo struct {
	s *Store
}

func (r *sessionRepo) Upsert(ctx context.Context, sess *shopauth.DeviceSession) (*shopauth.DeviceSession, error) {
	defer r.s.lock()()
	stored := *sess
	stored.Revoked = false
	for id, existing := range r.s.st.sessions {
		if existing.UserID == sess.UserID && existing.DeviceID == sess.DeviceID {
			// Keep the original row identity on re-login.
			stored.ID = id
			break
		}
	}
	r.s.st.sessions[stored.ID] = stored
	out := stored
	return &out, nil
}

func (r *sessionRepo) FindActive(ctx context.Context, userID, deviceID string) (*shopauth.DeviceSession, error) {
	defer r.s.lock()()
	for _, sess := range r.s.st.sessions {
		if sess.UserID == userID && sess.DeviceID == deviceID {
			if sess.Revoked {
				return nil, shopauth.ErrSessionRevoked
			}
			out := sess
			return &out, nil
		}
	}
	return nil, shopauth.ErrSessionNotFound
}

func (r *sessionRepo) FindByRefreshHash(ctx context.Context, refreshHash, deviceID string) (*shopauth.DeviceSession, error) {
	defer r.s.lock()()
	if refreshHash == "" {
		return nil, shopauth.ErrSessionNotFound
	}
	for _, sess := range r.s.st.sessions {
		if sess.RefreshTokenHash == refreshHash && sess.DeviceID == deviceID {
			out := sess
			return &out, nil
		}
	}
	return nil, shopauth.ErrSessionNotFound
}

func (r *sessionRepo) Revoke(ctx context.Context, refreshHash string) error {
	defer r.s.lock()()
	if refreshHash == "" {
		return shopauth.ErrSessionNotFound
	}
	for id, sess := range r.s.st.sessions {
		if sess.RefreshTokenHash == refreshHash {
			sess.Revoked = true
			sess.RefreshTokenHash = ""
			r.s.st.sessions[id] = sess
			return nil
		}
	}
	return shopauth.ErrSessionNotFound
}

func (r *sessionRepo) RevokeAllForUsers(ctx context.Context, userIDs []string) error {
	defer r.s.lock()()
	for id, sess := range r.s.st.sessions {
		if contains(userIDs, sess.UserID) {
			delete(r.s.st.sessions, id)
		}
	}
	return nil
}

func (r *sessionRepo) Rotate(ctx context.Context, sessionID, oldHash, newHash string, newExpiry time.Time) error {
	defer r.s.lock()()
	sess, ok := r.s.st.sessions[sessionID]
	if !ok || sess.RefreshTokenHash != oldHash || sess.Revoked || time.Now().After(sess.ExpiresAt) {
		return shopauth.ErrRotationConflict
	}
	sess.RefreshTokenHash = newHash
	sess.ExpiresAt = newExpiry
	r.s.st.sessions[sessionID] = sess
	return nil
}

func (r *sessionRepo) ListForUser(ctx context.Context, userID string) ([]shopauth.DeviceSession, error) {
	defer r.s.lock()()
	var out []shopauth.DeviceSession
	for _, sess := range r.s.st.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	return out, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
