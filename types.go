package shopauth

import "time"

// Roles carried in access-token claims. Only these two exist today.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ProviderCredentials is the password-based credential provider. The design
// allows multiple providers per user; only this one is exercised.
const ProviderCredentials = "credentials"

// User is the core identity record. Email is stored normalized
// (lowercased and trimmed) and is unique across all users.
type User struct {
	ID          string
	Email       string
	Name        string
	Phone       string
	DateOfBirth string
	Verified    bool
	Role        string
	CreatedAt   time.Time
}

// Credential binds a user to one authentication provider. For the
// credentials provider the account key is the normalized email and
// PasswordHash holds the PHC-encoded Argon2id hash, never the plaintext.
type Credential struct {
	ID           string
	UserID       string
	Provider     string
	AccountKey   string
	PasswordHash string
}

// DeviceSession is the server-side record behind a refresh token. At most
// one non-deleted session exists per (UserID, DeviceID); re-authenticating
// from the same device overwrites it. RefreshTokenHash is the keyed digest
// of the current refresh token and is cleared on revocation.
type DeviceSession struct {
	ID               string
	UserID           string
	DeviceID         string
	RefreshTokenHash string
	ExpiresAt        time.Time
	Revoked          bool
	LastLogin        time.Time
	UserAgent        string
	IP               string
}

// DeviceInfo identifies the client device on register/login/refresh.
// DeviceID is required; UserAgent and IP are informational only.
type DeviceInfo struct {
	DeviceID  string
	UserAgent string
	IP        string
}

// TokenPair is the access/refresh pair returned by every session-issuing
// workflow.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterRequest carries the registration form fields.
type RegisterRequest struct {
	Name        string
	Email       string
	Phone       string
	DateOfBirth string
	Password    string
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	User   User
	Tokens TokenPair
}

// AuthResult is the outcome of a successful per-request validation: the
// claims of a verified access token whose device session is still live.
type AuthResult struct {
	UserID   string
	DeviceID string
	Role     string
}
