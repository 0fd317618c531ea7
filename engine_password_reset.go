package shopauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/shopauth/verification"
)

// RequestPasswordReset mints a numeric one-time code for the account and
// mails it in the background. The code lives in the ledger under its digest
// with a short expiry.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := e.store.Users().FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	code, err := e.codec.NewOTP(e.config.Reset.OTPDigits)
	if err != nil {
		return err
	}
	if err := e.ledger.Create(ctx, verification.PurposePasswordReset, e.codec.Digest(code),
		user.ID, e.config.Reset.CodeTTL); err != nil {
		return err
	}

	e.submitTask(func(taskCtx context.Context) {
		if err := e.mailer.SendResetCode(taskCtx, email, code); err != nil {
			e.log.Error(taskCtx, "reset code email send failed", "user_id", user.ID, "err", err)
		}
	})

	e.metricInc(MetricResetRequested)
	e.log.Info(ctx, "password reset requested", "user_id", user.ID)
	return nil
}

// VerifyResetCode confirms the code matches the account without spending
// it, so a client can gate the new-password form before committing.
func (e *Engine) VerifyResetCode(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)

	user, err := e.store.Users().FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	record, err := e.ledger.Peek(ctx, verification.PurposePasswordReset, e.codec.Digest(code))
	if err != nil {
		if errors.Is(err, verification.ErrInvalidOrExpired) {
			return ErrVerificationInvalid
		}
		return err
	}
	if record.UserID != user.ID {
		return ErrVerificationInvalid
	}

	return nil
}

// ResetPassword spends the reset code, installs the new password hash, and
// revokes every device session as one atomic unit. The code is consumed
// before the storage transaction, so a code whose transaction failed stays
// spent; the caller requests a new one rather than retrying a half-used
// secret.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)

	user, err := e.store.Users().FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	// Reject a weak password before touching the single-use code.
	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	digest := e.codec.Digest(code)

	// Check ownership with a non-consuming read first so a mismatched
	// account cannot burn someone else's code.
	record, err := e.ledger.Peek(ctx, verification.PurposePasswordReset, digest)
	if err != nil {
		if errors.Is(err, verification.ErrInvalidOrExpired) {
			e.metricInc(MetricResetFailure)
			return ErrVerificationInvalid
		}
		return err
	}
	if record.UserID != user.ID {
		e.metricInc(MetricResetFailure)
		return ErrVerificationInvalid
	}

	if _, err := e.ledger.Redeem(ctx, verification.PurposePasswordReset, digest); err != nil {
		if errors.Is(err, verification.ErrInvalidOrExpired) {
			e.metricInc(MetricResetFailure)
			return ErrVerificationInvalid
		}
		return err
	}

	err = e.store.Atomically(ctx, func(txCtx context.Context, s Store) error {
		cred, err := s.Credentials().FindByUser(txCtx, user.ID, ProviderCredentials)
		if err != nil {
			return err
		}
		if err := s.Credentials().UpdatePassword(txCtx, cred.ID, newHash); err != nil {
			return err
		}
		return s.Sessions().RevokeAllForUsers(txCtx, []string{user.ID})
	})
	if err != nil {
		e.metricInc(MetricResetFailure)
		return err
	}

	e.metricInc(MetricResetSuccess)
	e.log.Info(ctx, "password reset completed", "user_id", user.ID)
	return nil
}
