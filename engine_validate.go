package shopauth

import (
	"context"
	"errors"
	"time"
)

// Validate is the per-request gate: it verifies the access token and
// confirms the device session the token was minted for is still live. The
// device comes from the token's own claims, so a bearer of a valid token
// needs nothing else to check it. A logout-all therefore cuts off access
// tokens before they expire, at the cost of one session lookup per request.
func (e *Engine) Validate(ctx context.Context, accessToken string) (*AuthResult, error) {
	claims, err := e.jwt.Parse(accessToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	sess, err := e.store.Sessions().FindActive(ctx, claims.Subject, claims.DeviceID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionRevoked) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		return nil, ErrUnauthorized
	}

	return &AuthResult{
		UserID:   claims.Subject,
		DeviceID: claims.DeviceID,
		Role:     claims.Role,
	}, nil
}
