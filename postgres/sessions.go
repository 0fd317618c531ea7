package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	shopauth "github.com/MrEthical07/shopauth"
)

type sessionRepo struct {
	db DBTX
}

const sessionColumns = `id, user_id, device_id, refresh_token_hash, expires_at, revoked, last_login, user_agent, ip`

// Upsert keys on (user_id, device_id): a re-login from a known device
// replaces the refresh digest and clears any prior revocation while keeping
// the original row id.
func (r *sessionRepo) Upsert(ctx context.Context, s *shopauth.DeviceSession) (*shopauth.DeviceSession, error) {
	query := `
		INSERT INTO device_sessions (id, user_id, device_id, refresh_token_hash, expires_at, revoked, last_login, user_agent, ip)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $8)
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			refresh_token_hash = EXCLUDED.refresh_token_hash,
			expires_at = EXCLUDED.expires_at,
			revoked = FALSE,
			last_login = EXCLUDED.last_login,
			user_agent = EXCLUDED.user_agent,
			ip = EXCLUDED.ip
		RETURNING ` + sessionColumns
	row := r.db.QueryRowContext(ctx, query,
		s.ID, s.UserID, s.DeviceID, s.RefreshTokenHash, s.ExpiresAt, s.LastLogin, s.UserAgent, s.IP)
	stored, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("upsert session: %w", err)
	}
	return stored, nil
}

func (r *sessionRepo) FindActive(ctx context.Context, userID, deviceID string) (*shopauth.DeviceSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM device_sessions WHERE user_id = $1 AND device_id = $2`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, userID, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shopauth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	if s.Revoked {
		return nil, shopauth.ErrSessionRevoked
	}
	return s, nil
}

func (r *sessionRepo) FindByRefreshHash(ctx context.Context, refreshHash, deviceID string) (*shopauth.DeviceSession, error) {
	// The empty-digest guard keeps revoked rows, whose digest is cleared,
	// from ever matching an empty presented hash.
	query := `SELECT ` + sessionColumns + ` FROM device_sessions
		WHERE refresh_token_hash = $1 AND device_id = $2 AND refresh_token_hash <> ''`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, refreshHash, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shopauth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("select session by hash: %w", err)
	}
	return s, nil
}

func (r *sessionRepo) Revoke(ctx context.Context, refreshHash string) error {
	query := `UPDATE device_sessions SET revoked = TRUE, refresh_token_hash = ''
		WHERE refresh_token_hash = $1 AND refresh_token_hash <> ''`
	res, err := r.db.ExecContext(ctx, query, refreshHash)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return shopauth.ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepo) RevokeAllForUsers(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	query := `DELETE FROM device_sessions WHERE user_id IN (` + inPlaceholders(1, len(userIDs)) + `)`
	if _, err := r.db.ExecContext(ctx, query, toAnySlice(userIDs)...); err != nil {
		return fmt.Errorf("revoke all sessions: %w", err)
	}
	return nil
}

// Rotate is the compare-and-swap behind refresh rotation: the update only
// lands while the row still holds oldHash unrevoked and unexpired, so of
// two concurrent rotations exactly one sees a row.
func (r *sessionRepo) Rotate(ctx context.Context, sessionID, oldHash, newHash string, newExpiry time.Time) error {
	query := `UPDATE device_sessions
		SET refresh_token_hash = $3, expires_at = $4
		WHERE id = $1 AND refresh_token_hash = $2 AND NOT revoked AND expires_at > NOW()`
	res, err := r.db.ExecContext(ctx, query, sessionID, oldHash, newHash, newExpiry)
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return shopauth.ErrRotationConflict
	}
	return nil
}

func (r *sessionRepo) ListForUser(ctx context.Context, userID string) ([]shopauth.DeviceSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM device_sessions WHERE user_id = $1 ORDER BY last_login DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []shopauth.DeviceSession
	for rows.Next() {
		s := shopauth.DeviceSession{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.DeviceID, &s.RefreshTokenHash,
			&s.ExpiresAt, &s.Revoked, &s.LastLogin, &s.UserAgent, &s.IP); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func scanSession(row *sql.Row) (*shopauth.DeviceSession, error) {
	s := &shopauth.DeviceSession{}
	err := row.Scan(&s.ID, &s.UserID, &s.DeviceID, &s.RefreshTokenHash,
		&s.ExpiresAt, &s.Revoked, &s.LastLogin, &s.UserAgent, &s.IP)
	if err != nil {
		return nil, err
	}
	return s, nil
}
