// Package mail abstracts outbound account email. The engine only needs
// fire-and-forget delivery of verification links and reset codes.
package mail

import (
	"context"

	"github.com/MrEthical07/shopauth/logging"
)

// Mailer delivers account email. Implementations should be safe for
// concurrent use.
type Mailer interface {
	// SendVerification delivers the raw email-verification token.
	SendVerification(ctx context.Context, to, token string) error
	// SendResetCode delivers the one-time password-reset code.
	SendResetCode(ctx context.Context, to, code string) error
}

// LogMailer writes mail to the log instead of sending it. Useful for
// development and tests.
type LogMailer struct {
	log logging.Logger
}

func NewLogMailer(log logging.Logger) *LogMailer {
	if log == nil {
		log = logging.NewNop()
	}
	return &LogMailer{log: log}
}

func (m *LogMailer) SendVerification(ctx context.Context, to, token string) error {
	m.log.Info(ctx, "verification email", "to", to, "token", token)
	return nil
}

func (m *LogMailer) SendResetCode(ctx context.Context, to, code string) error {
	m.log.Info(ctx, "password reset email", "to", to, "code", code)
	return nil
}
