package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	shopauth "github.com/MrEthical07/shopauth"
	"github.com/stretchr/testify/require"
)

var sessionCols = []string{"id", "user_id", "device_id", "refresh_token_hash", "expires_at", "revoked", "last_login", "user_agent", "ip"}

func TestSessionUpsertKeepsStoredRow(t *testing.T) {
	store, mock := newStoreWithMock(t)

	now := time.Now()
	// The conflict path keeps the original row id.
	rows := sqlmock.NewRows(sessionCols).
		AddRow("existing-id", "u1", "dev-1", "hash-new", now.Add(time.Hour), false, now, "ua", "ip")

	mock.ExpectQuery(`(?s)^\s*INSERT\s+INTO\s+device_sessions\b.*ON CONFLICT \(user_id, device_id\) DO UPDATE`).
		WithArgs("fresh-id", "u1", "dev-1", "hash-new", sqlmock.AnyArg(), sqlmock.AnyArg(), "ua", "ip").
		WillReturnRows(rows)

	stored, err := store.Sessions().Upsert(context.Background(), &shopauth.DeviceSession{
		ID:               "fresh-id",
		UserID:           "u1",
		DeviceID:         "dev-1",
		RefreshTokenHash: "hash-new",
		ExpiresAt:        now.Add(time.Hour),
		LastLogin:        now,
		UserAgent:        "ua",
		IP:               "ip",
	})
	require.NoError(t, err)
	require.Equal(t, "existing-id", stored.ID)
	require.False(t, stored.Revoked)
}

func TestSessionFindActiveRevoked(t *testing.T) {
	store, mock := newStoreWithMock(t)

	now := time.Now()
	rows := sqlmock.NewRows(sessionCols).
		AddRow("s1", "u1", "dev-1", "", now.Add(time.Hour), true, now, "", "")

	mock.ExpectQuery(`SELECT .* FROM device_sessions WHERE user_id = \$1 AND device_id = \$2`).
		WithArgs("u1", "dev-1").
		WillReturnRows(rows)

	_, err := store.Sessions().FindActive(context.Background(), "u1", "dev-1")
	require.ErrorIs(t, err, shopauth.ErrSessionRevoked)
}

func TestSessionFindActiveMissing(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM device_sessions WHERE user_id = \$1 AND device_id = \$2`).
		WithArgs("u1", "dev-9").
		WillReturnRows(sqlmock.NewRows(sessionCols))

	_, err := store.Sessions().FindActive(context.Background(), "u1", "dev-9")
	require.ErrorIs(t, err, shopauth.ErrSessionNotFound)
}

func TestSessionRotate(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectExec(`(?s)UPDATE device_sessions\s+SET refresh_token_hash = \$3, expires_at = \$4\s+WHERE id = \$1 AND refresh_token_hash = \$2 AND NOT revoked AND expires_at > NOW\(\)`).
		WithArgs("s1", "old-hash", "new-hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Sessions().Rotate(context.Background(), "s1", "old-hash", "new-hash", time.Now().Add(time.Hour))
	require.NoError(t, err)
}

func TestSessionRotateConflict(t *testing.T) {
	store, mock := newStoreWithMock(t)

	// Zero rows means the guard saw a different digest: the race is lost.
	mock.ExpectExec(`(?s)UPDATE device_sessions\s+SET refresh_token_hash`).
		WithArgs("s1", "stale-hash", "new-hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Sessions().Rotate(context.Background(), "s1", "stale-hash", "new-hash", time.Now().Add(time.Hour))
	require.ErrorIs(t, err, shopauth.ErrRotationConflict)
}

func TestSessionRevokeClearsDigest(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectExec(`(?s)UPDATE device_sessions SET revoked = TRUE, refresh_token_hash = ''\s+WHERE refresh_token_hash = \$1 AND refresh_token_hash <> ''`).
		WithArgs("hash-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Sessions().Revoke(context.Background(), "hash-1"))
}

func TestSessionRevokeUnknownHash(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectExec(`(?s)UPDATE device_sessions SET revoked = TRUE`).
		WithArgs("unknown").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Sessions().Revoke(context.Background(), "unknown")
	require.ErrorIs(t, err, shopauth.ErrSessionNotFound)
}

func TestSessionRevokeAllForUsers(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectExec(`DELETE FROM device_sessions WHERE user_id IN \(\$1, \$2\)`).
		WithArgs("u1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, store.Sessions().RevokeAllForUsers(context.Background(), []string{"u1", "u2"}))
}

func TestSessionListForUser(t *testing.T) {
	store, mock := newStoreWithMock(t)

	now := time.Now()
	rows := sqlmock.NewRows(sessionCols).
		AddRow("s1", "u1", "dev-1", "h1", now.Add(time.Hour), false, now, "ua-1", "ip-1").
		AddRow("s2", "u1", "dev-2", "", now.Add(time.Hour), true, now.Add(-time.Hour), "ua-2", "ip-2")

	mock.ExpectQuery(`SELECT .* FROM device_sessions WHERE user_id = \$1 ORDER BY last_login DESC`).
		WithArgs("u1").
		WillReturnRows(rows)

	sessions, err := store.Sessions().ListForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, "dev-1", sessions[0].DeviceID)
	require.True(t, sessions[1].Revoked)
}
