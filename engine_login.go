package shopauth

import (
	"context"
	"errors"
)

// Login verifies the password and issues a session bound to the calling
// device. Every failure on the credential path collapses to
// ErrInvalidCredentials; the precise reason is only logged.
func (e *Engine) Login(ctx context.Context, email, pass string, device DeviceInfo) (*AuthResponse, error) {
	if device.DeviceID == "" {
		return nil, ErrDeviceIDRequired
	}

	email = normalizeEmail(email)

	cred, err := e.store.Credentials().FindByAccountKey(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrCredentialNotFound) {
			return nil, err
		}
		e.metricInc(MetricLoginFailure)
		e.log.Info(ctx, "login failed", "reason", "unknown_account")
		return nil, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(pass, cred.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.log.Info(ctx, "login failed", "reason", "password_mismatch", "user_id", cred.UserID)
		return nil, ErrInvalidCredentials
	}

	user, err := e.store.Users().FindByID(ctx, cred.UserID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		// Credential without a user means a broken account; do not reveal it.
		e.metricInc(MetricLoginFailure)
		e.log.Error(ctx, "credential references missing user", "user_id", cred.UserID)
		return nil, ErrInvalidCredentials
	}

	tokens, err := e.issueSession(ctx, user, device)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.log.Info(ctx, "login succeeded", "user_id", user.ID, "device_id", device.DeviceID)

	return &AuthResponse{User: *user, Tokens: tokens}, nil
}

// Logout revokes the session holding the presented refresh token and clears
// its stored digest. Unknown tokens are a no-op; logout is idempotent.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	err := e.store.Sessions().Revoke(ctx, e.codec.Digest(refreshToken))
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	e.metricInc(MetricLogout)
	return nil
}

// LogoutAll revokes every device session of the user.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if err := e.store.Sessions().RevokeAllForUsers(ctx, []string{userID}); err != nil {
		return err
	}
	e.metricInc(MetricLogoutAll)
	e.log.Info(ctx, "all sessions revoked", "user_id", userID)
	return nil
}

// Devices lists the user's device sessions for a devices view. The stored
// refresh digests are blanked; no caller needs them.
func (e *Engine) Devices(ctx context.Context, userID string) ([]DeviceSession, error) {
	sessions, err := e.store.Sessions().ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].RefreshTokenHash = ""
	}
	return sessions, nil
}
