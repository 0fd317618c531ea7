package shopauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/shopauth/verification"
)

// VerifyEmail redeems an email-verification token and marks the user
// verified. The token is single-use; a second redemption fails even when
// the first one did not complete.
func (e *Engine) VerifyEmail(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return ErrVerificationInvalid
	}

	record, err := e.ledger.Redeem(ctx, verification.PurposeEmailVerify, e.codec.Digest(rawToken))
	if err != nil {
		if errors.Is(err, verification.ErrInvalidOrExpired) {
			e.metricInc(MetricEmailVerificationFailure)
			return ErrVerificationInvalid
		}
		return err
	}

	user, err := e.store.Users().FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Token minted for a since-deleted account.
			e.metricInc(MetricEmailVerificationFailure)
			return ErrVerificationInvalid
		}
		return err
	}
	if user.Verified {
		return ErrAlreadyVerified
	}

	if err := e.store.Users().MarkVerified(ctx, user.ID); err != nil {
		return err
	}

	e.metricInc(MetricEmailVerificationSuccess)
	e.log.Info(ctx, "email verified", "user_id", user.ID)
	return nil
}

// ResendVerification mints a fresh verification token for an unverified
// user. The new token gets the shorter resend window and the email goes out
// in the background.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := e.store.Users().FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Verified {
		return ErrAlreadyVerified
	}

	raw, err := e.codec.NewVerificationToken()
	if err != nil {
		return err
	}
	if err := e.ledger.Create(ctx, verification.PurposeEmailVerify, e.codec.Digest(raw),
		user.ID, e.config.Verification.ResendTTL); err != nil {
		return err
	}

	e.submitTask(func(taskCtx context.Context) {
		if err := e.mailer.SendVerification(taskCtx, email, raw); err != nil {
			e.log.Error(taskCtx, "verification email send failed", "user_id", user.ID, "err", err)
			return
		}
		e.metricInc(MetricEmailVerificationSent)
	})

	return nil
}
