package shopauth

import (
	"context"
	"errors"
	"time"
)

// Refresh exchanges a live refresh token for a fresh token pair, rotating
// the stored digest in place so the presented token is spent the moment the
// exchange succeeds. The expiry window slides forward on every rotation.
//
// Unknown, revoked, and expired tokens all fail with ErrRefreshInvalid; the
// stored reason is only logged. A token that was valid but lost a
// concurrent rotation race fails with ErrRotationConflict instead, so
// callers can tell replayed tokens from plain races.
func (e *Engine) Refresh(ctx context.Context, refreshToken string, device DeviceInfo) (TokenPair, error) {
	if device.DeviceID == "" {
		return TokenPair{}, ErrDeviceIDRequired
	}
	if refreshToken == "" {
		e.metricInc(MetricRefreshFailure)
		return TokenPair{}, ErrRefreshInvalid
	}

	oldHash := e.codec.Digest(refreshToken)

	sess, err := e.store.Sessions().FindByRefreshHash(ctx, oldHash, device.DeviceID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			return TokenPair{}, err
		}
		e.metricInc(MetricRefreshFailure)
		e.log.Info(ctx, "refresh rejected", "reason", "unknown_token", "device_id", device.DeviceID)
		return TokenPair{}, ErrRefreshInvalid
	}
	if sess.Revoked {
		e.metricInc(MetricRefreshFailure)
		e.log.Info(ctx, "refresh rejected", "reason", "revoked", "user_id", sess.UserID, "device_id", device.DeviceID)
		return TokenPair{}, ErrRefreshInvalid
	}
	if time.Now().After(sess.ExpiresAt) {
		e.metricInc(MetricRefreshFailure)
		e.log.Info(ctx, "refresh rejected", "reason", "expired", "user_id", sess.UserID, "device_id", device.DeviceID)
		return TokenPair{}, ErrRefreshInvalid
	}

	newRefresh, err := e.codec.NewRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}

	err = e.store.Sessions().Rotate(ctx, sess.ID, oldHash, e.codec.Digest(newRefresh),
		time.Now().Add(e.config.Session.RefreshTTL))
	if err != nil {
		if errors.Is(err, ErrRotationConflict) {
			e.metricInc(MetricRotationConflict)
			e.log.Warn(ctx, "refresh rotation lost race", "user_id", sess.UserID, "device_id", device.DeviceID)
			return TokenPair{}, ErrRotationConflict
		}
		return TokenPair{}, err
	}

	user, err := e.store.Users().FindByID(ctx, sess.UserID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return TokenPair{}, err
		}
		// Session outlived its user; kill it rather than mint tokens for a
		// ghost account.
		if revokeErr := e.store.Sessions().Revoke(ctx, e.codec.Digest(newRefresh)); revokeErr != nil &&
			!errors.Is(revokeErr, ErrSessionNotFound) {
			e.log.Error(ctx, "orphan session revocation failed", "user_id", sess.UserID, "err", revokeErr)
		}
		e.metricInc(MetricRefreshFailure)
		return TokenPair{}, ErrRefreshInvalid
	}

	access, err := e.jwt.Issue(user.ID, device.DeviceID, user.Role)
	if err != nil {
		return TokenPair{}, err
	}

	e.metricInc(MetricRefreshSuccess)

	return TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}
