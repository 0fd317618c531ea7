package shopauth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/shopauth/verification"
	"github.com/google/uuid"
)

// Register creates the user, issues a first session for the calling device,
// and kicks off credential storage plus the verification email in the
// background. The user record and the session are the contract; the
// background steps are best-effort and only logged on failure, matching the
// behavior of the storefront this engine fronts.
func (e *Engine) Register(ctx context.Context, req RegisterRequest, device DeviceInfo) (*AuthResponse, error) {
	if device.DeviceID == "" {
		return nil, ErrDeviceIDRequired
	}

	email := normalizeEmail(req.Email)

	// Hash before touching storage so a rejected password never leaves a
	// half-created account behind.
	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:          uuid.NewString(),
		Email:       email,
		Name:        req.Name,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Role:        RoleUser,
		CreatedAt:   time.Now(),
	}
	if err := e.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			e.metricInc(MetricRegisterDuplicate)
		}
		return nil, err
	}

	e.submitTask(func(taskCtx context.Context) {
		cred := &Credential{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			Provider:     ProviderCredentials,
			AccountKey:   email,
			PasswordHash: hash,
		}
		if err := e.store.Credentials().Create(taskCtx, cred); err != nil {
			e.log.Error(taskCtx, "credential creation failed after registration",
				"user_id", user.ID, "err", err)
		}
	})
	e.submitTask(func(taskCtx context.Context) {
		e.sendVerificationEmail(taskCtx, user.ID, email, e.config.Verification.EmailTTL)
	})

	tokens, err := e.issueSession(ctx, user, device)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.log.Info(ctx, "user registered", "user_id", user.ID, "device_id", device.DeviceID)

	return &AuthResponse{User: *user, Tokens: tokens}, nil
}

// sendVerificationEmail mints a verification token, records it in the
// ledger, and mails the raw token. Failures are logged, never surfaced.
func (e *Engine) sendVerificationEmail(ctx context.Context, userID, email string, ttl time.Duration) {
	raw, err := e.codec.NewVerificationToken()
	if err != nil {
		e.log.Error(ctx, "verification token generation failed", "user_id", userID, "err", err)
		return
	}
	if err := e.ledger.Create(ctx, verification.PurposeEmailVerify, e.codec.Digest(raw), userID, ttl); err != nil {
		e.log.Error(ctx, "verification record write failed", "user_id", userID, "err", err)
		return
	}
	if err := e.mailer.SendVerification(ctx, email, raw); err != nil {
		e.log.Error(ctx, "verification email send failed", "user_id", userID, "err", err)
		return
	}
	e.metricInc(MetricEmailVerificationSent)
}

// DeleteAccount removes one user and everything owned by it.
func (e *Engine) DeleteAccount(ctx context.Context, userID string) error {
	return e.DeleteUsers(ctx, []string{userID})
}

// DeleteUsers removes the listed users together with their credentials and
// device sessions in a single atomic unit. Fails with ErrUserNotFound when
// none of the ids exist; when at least one matches, the matching users are
// deleted and the missing ids are ignored.
func (e *Engine) DeleteUsers(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return ErrNoUserIDs
	}

	err := e.store.Atomically(ctx, func(txCtx context.Context, s Store) error {
		if err := s.Sessions().RevokeAllForUsers(txCtx, userIDs); err != nil {
			return err
		}
		if err := s.Credentials().DeleteAllForUsers(txCtx, userIDs); err != nil {
			return err
		}
		deleted, err := s.Users().Delete(txCtx, userIDs)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.metricInc(MetricAccountDeleted)
	e.log.Info(ctx, "accounts deleted", "count", len(userIDs))
	return nil
}

// RevokeAllSessions force-logs-out every device of the listed users without
// touching the accounts themselves.
func (e *Engine) RevokeAllSessions(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return ErrNoUserIDs
	}
	return e.store.Sessions().RevokeAllForUsers(ctx, userIDs)
}

// DeleteCredentials strips the listed users of their password credentials,
// leaving the accounts and sessions alone.
func (e *Engine) DeleteCredentials(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return ErrNoUserIDs
	}
	return e.store.Credentials().DeleteAllForUsers(ctx, userIDs)
}
