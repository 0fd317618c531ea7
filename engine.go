package shopauth

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/shopauth/internal/tasks"
	"github.com/MrEthical07/shopauth/jwt"
	"github.com/MrEthical07/shopauth/logging"
	"github.com/MrEthical07/shopauth/mail"
	"github.com/MrEthical07/shopauth/password"
	"github.com/MrEthical07/shopauth/token"
	"github.com/MrEthical07/shopauth/verification"
	"github.com/google/uuid"
)

// Engine is the authentication core. Build one with Builder, share it
// across goroutines, Close it on shutdown.
type Engine struct {
	config  Config
	store   Store
	ledger  *verification.Ledger
	hasher  password.Hasher
	codec   *token.Codec
	jwt     *jwt.Manager
	mailer  mail.Mailer
	tasks   *tasks.Dispatcher
	log     logging.Logger
	metrics *Metrics
}

// Close drains pending background work. The engine must not be used after
// Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.tasks != nil {
		e.tasks.Close()
	}
}

// Flush blocks until every background task accepted so far has finished.
// Call it before shutdown when the verification and reset emails of
// in-flight requests should still go out.
func (e *Engine) Flush() {
	if e == nil || e.tasks == nil {
		return
	}
	e.tasks.Wait()
}

// MetricsSnapshot copies every engine counter at once.
func (e *Engine) MetricsSnapshot() map[MetricID]uint64 {
	if e == nil {
		return map[MetricID]uint64{}
	}
	return e.metrics.Snapshot()
}

// TasksDropped reports how many best-effort side effects were discarded
// because the background buffer was full.
func (e *Engine) TasksDropped() uint64 {
	if e == nil || e.tasks == nil {
		return 0
	}
	return e.tasks.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// submitTask hands work to the background dispatcher, counting drops.
func (e *Engine) submitTask(task tasks.Task) {
	if !e.tasks.Submit(task) {
		e.metricInc(MetricTaskDropped)
	}
}

// normalizeEmail is applied to every email before storage or lookup, so the
// uniqueness constraint and all queries see one canonical form.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// issueSession mints a fresh token pair for (user, device) and upserts the
// device session. Re-login from the same device replaces the old session
// and its refresh token, revoked or not.
func (e *Engine) issueSession(ctx context.Context, user *User, device DeviceInfo) (TokenPair, error) {
	refresh, err := e.codec.NewRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}

	now := time.Now()
	sess := &DeviceSession{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		DeviceID:         device.DeviceID,
		RefreshTokenHash: e.codec.Digest(refresh),
		ExpiresAt:        now.Add(e.config.Session.RefreshTTL),
		LastLogin:        now,
		UserAgent:        device.UserAgent,
		IP:               device.IP,
	}
	if _, err := e.store.Sessions().Upsert(ctx, sess); err != nil {
		return TokenPair{}, err
	}

	access, err := e.jwt.Issue(user.ID, device.DeviceID, user.Role)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
