package shopauth_test

import (
	"context"
	"errors"
	"testing"

	shopauth "github.com/MrEthical07/shopauth"
	"github.com/MrEthical07/shopauth/memstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestPasswordResetEndToEnd(t *testing.T) {
	engine, mailer, _ := newTestEngine(t)

	resp := registerUser(t, engine, "alice@example.com", "correct-horse", "dev-1")

	if err := engine.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset error: %v", err)
	}
	engine.Flush()

	code := mailer.lastResetCode("alice@example.com")
	if len(code) != 6 {
		t.Fatalf("reset code = %q, want 6 digits", code)
	}

	// Pre-checking the code does not consume it.
	for i := 0; i < 2; i++ {
		if err := engine.VerifyResetCode(context.Background(), "alice@example.com", code); err != nil {
			t.Fatalf("VerifyResetCode attempt %d: %v", i+1, err)
		}
	}

	if err := engine.ResetPassword(context.Background(), "alice@example.com", code, "new-password-1"); err != nil {
		t.Fatalf("ResetPassword error: %v", err)
	}

	if _, err := engine.Login(context.Background(), "alice@example.com", "correct-horse", device("dev-1")); !errors.Is(err, shopauth.ErrInvalidCredentials) {
		t.Fatalf("old password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := engine.Login(context.Background(), "alice@example.com", "new-password-1", device("dev-1")); err != nil {
		t.Fatalf("new password must log in: %v", err)
	}

	// All pre-reset sessions are revoked.
	if _, err := engine.Validate(context.Background(), resp.Tokens.AccessToken); !errors.Is(err, shopauth.ErrUnauthorized) {
		t.Fatalf("old session: expected ErrUnauthorized, got %v", err)
	}

	// The code is spent.
	if err := engine.ResetPassword(context.Background(), "alice@example.com", code, "another-password"); !errors.Is(err, shopauth.ErrVerificationInvalid) {
		t.Fatalf("reused code: expected ErrVerificationInvalid, got %v", err)
	}
}

func TestPasswordResetRejectsWrongCode(t *testing.T) {
	engine, mailer, _ := newTestEngine(t)

	registerUser(t, engine, "alice@example.com", "correct-horse", "dev-1")

	if err := engine.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset error: %v", err)
	}
	engine.Flush()

	if err := engine.VerifyResetCode(context.Background(), "alice@example.com", "000000"); !errors.Is(err, shopauth.ErrVerificationInvalid) {
		t.Fatalf("wrong code: expected ErrVerificationInvalid, got %v", err)
	}
	if err := engine.ResetPassword(context.Background(), "alice@example.com", "000000", "new-password-1"); !errors.Is(err, shopauth.ErrVerificationInvalid) {
		t.Fatalf("wrong code reset: expected ErrVerificationInvalid, got %v", err)
	}

	// Failed attempts do not burn the real code.
	code := mailer.lastResetCode("alice@example.com")
	if err := engine.ResetPassword(context.Background(), "alice@example.com", code, "new-password-1"); err != nil {
		t.Fatalf("good code after bad attempts: %v", err)
	}
}

func TestPasswordResetCodeBoundToRequester(t *testing.T) {
	engine, mailer, _ := newTestEngine(t)

	registerUser(t, engine, "alice@example.com", "correct-horse", "dev-1")
	registerUser(t, engine, "bob@example.com", "bobs-password", "dev-2")

	if err := engine.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset error: %v", err)
	}
	engine.Flush()
	code := mailer.lastResetCode("alice@example.com")

	if err := engine.VerifyResetCode(context.Background(), "bob@example.com", code); !errors.Is(err, shopauth.ErrVerificationInvalid) {
		t.Fatalf("cross-account code: expected ErrVerificationInvalid, got %v", err)
	}
	if err := engine.ResetPassword(context.Background(), "bob@example.com", code, "hijacked-pass"); !errors.Is(err, shopauth.ErrVerificationInvalid) {
		t.Fatalf("cross-account reset: expected ErrVerificationInvalid, got %v", err)
	}

	// The failed hijack must not burn the owner's code.
	if err := engine.ResetPassword(context.Background(), "alice@example.com", code, "fresh-password"); err != nil {
		t.Fatalf("owner reset after hijack attempt: %v", err)
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	if err := engine.RequestPasswordReset(context.Background(), "nobody@example.com"); !errors.Is(err, shopauth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestPasswordResetFailedTransactionLeavesSessions(t *testing.T) {
	engine, mailer, _ := newTestEngine(t)

	resp := registerUser(t, engine, "alice@example.com", "correct-horse", "dev-1")

	if err := engine.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset error: %v", err)
	}
	engine.Flush()
	code := mailer.lastResetCode("alice@example.com")

	// Remove the credential so the storage transaction fails mid-flight.
	if err := engine.DeleteCredentials(context.Background(), []string{resp.User.ID}); err != nil {
		t.Fatalf("DeleteCredentials error: %v", err)
	}

	if err := engine.ResetPassword(context.Background(), "alice@example.com", code, "new-password-1"); !errors.Is(err, shopauth.ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}

	// The rollback leaves the session untouched.
	if _, err := engine.Validate(context.Background(), resp.Tokens.AccessToken); err != nil {
		t.Fatalf("session must survive failed reset: %v", err)
	}

	// The code was redeemed before the transaction and stays spent.
	if err := engine.VerifyResetCode(context.Background(), "alice@example.com", code); !errors.Is(err, shopauth.ErrVerificationInvalid) {
		t.Fatalf("expected spent code, got %v", err)
	}
}

// revokeFailStore makes RevokeAllForUsers fail, inside and outside
// transactions, leaving every other operation intact.
type revokeFailStore struct {
	shopauth.Store
	revokeErr error
}

func (s *revokeFailStore) Sessions() shopauth.SessionRepo {
	return &revokeFailSessions{SessionRepo: s.Store.Sessions(), err: s.revokeErr}
}

func (s *revokeFailStore) Atomically(ctx context.Context, fn func(context.Context, shopauth.Store) error) error {
	return s.Store.Atomically(ctx, func(txCtx context.Context, tx shopauth.Store) error {
		return fn(txCtx, &revokeFailStore{Store: tx, revokeErr: s.revokeErr})
	})
}

type revokeFailSessions struct {
	shopauth.SessionRepo
	err error
}

func (s *revokeFailSessions) RevokeAllForUsers(context.Context, []string) error {
	return s.err
}

func TestPasswordResetRevocationFailureRollsBackCredential(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	revokeErr := errors.New("session store unavailable")
	store := &revokeFailStore{Store: memstore.New(), revokeErr: revokeErr}
	mailer := newCaptureMailer()

	engine, err := shopauth.New().
		WithConfig(testConfig()).
		WithStore(store).
		WithRedis(client).
		WithMailer(mailer).
		WithHasher(stubHasher{}).
		Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	t.Cleanup(engine.Close)

	resp := registerUser(t, engine, "alice@example.com", "correct-horse", "dev-1")

	if err := engine.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset error: %v", err)
	}
	engine.Flush()
	code := mailer.lastResetCode("alice@example.com")

	// The revocation step fails after the password hash was already
	// written inside the transaction.
	if err := engine.ResetPassword(context.Background(), "alice@example.com", code, "new-password-1"); !errors.Is(err, revokeErr) {
		t.Fatalf("expected injected error, got %v", err)
	}

	// The credential update rolled back with the transaction.
	if _, err := engine.Login(context.Background(), "alice@example.com", "correct-horse", device("dev-1")); err != nil {
		t.Fatalf("old password must still log in: %v", err)
	}
	if _, err := engine.Login(context.Background(), "alice@example.com", "new-password-1", device("dev-1")); !errors.Is(err, shopauth.ErrInvalidCredentials) {
		t.Fatalf("new password: expected ErrInvalidCredentials, got %v", err)
	}

	// The pre-reset session is untouched.
	if _, err := engine.Validate(context.Background(), resp.Tokens.AccessToken); err != nil {
		t.Fatalf("session must survive failed reset: %v", err)
	}
}
