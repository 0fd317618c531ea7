package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	shopauth "github.com/MrEthical07/shopauth"
)

type credentialRepo struct {
	db DBTX
}

func (r *credentialRepo) Create(ctx context.Context, c *shopauth.Credential) error {
	query := `
		INSERT INTO credentials (id, user_id, provider, account_key, password_hash)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Provider, c.AccountKey, c.PasswordHash)
	if err != nil {
		if isUniqueViolation(err, "credentials_provider_account_key_key") {
			return shopauth.ErrCredentialExists
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

const credentialColumns = `id, user_id, provider, account_key, password_hash`

func (r *credentialRepo) FindByAccountKey(ctx context.Context, accountKey string) (*shopauth.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE provider = $1 AND account_key = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, shopauth.ProviderCredentials, accountKey))
}

func (r *credentialRepo) FindByUser(ctx context.Context, userID, provider string) (*shopauth.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE user_id = $1 AND provider = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID, provider))
}

func (r *credentialRepo) scanOne(row *sql.Row) (*shopauth.Credential, error) {
	c := &shopauth.Credential{}
	err := row.Scan(&c.ID, &c.UserID, &c.Provider, &c.AccountKey, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shopauth.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("select credential: %w", err)
	}
	return c, nil
}

func (r *credentialRepo) UpdatePassword(ctx context.Context, credentialID, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credentials SET password_hash = $2 WHERE id = $1`, credentialID, newHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return shopauth.ErrCredentialNotFound
	}
	return nil
}

func (r *credentialRepo) DeleteAllForUsers(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	query := `DELETE FROM credentials WHERE user_id IN (` + inPlaceholders(1, len(userIDs)) + `)`
	if _, err := r.db.ExecContext(ctx, query, toAnySlice(userIDs)...); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
