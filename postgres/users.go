package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	shopauth "github.com/MrEthical07/shopauth"
)

type userRepo struct {
	db DBTX
}

func (r *userRepo) Create(ctx context.Context, u *shopauth.User) error {
	query := `
		INSERT INTO users (id, email, name, phone, date_of_birth, verified, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Email, u.Name, u.Phone, u.DateOfBirth, u.Verified, u.Role, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return shopauth.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, email, name, phone, date_of_birth, verified, role, created_at`

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*shopauth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*shopauth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepo) scanOne(row *sql.Row) (*shopauth.User, error) {
	u := &shopauth.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.DateOfBirth,
		&u.Verified, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shopauth.ErrUserNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (r *userRepo) MarkVerified(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return shopauth.ErrUserNotFound
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM users WHERE id IN (` + inPlaceholders(1, len(ids)) + `)`
	res, err := r.db.ExecContext(ctx, query, toAnySlice(ids)...)
	if err != nil {
		return 0, fmt.Errorf("delete users: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
