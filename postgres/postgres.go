// Package postgres implements the engine's Store over PostgreSQL using
// database/sql with the pgx driver. One Store wraps either a *sql.DB or,
// inside Atomically, a *sql.Tx, so the repositories never know whether they
// run transactionally.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	shopauth "github.com/MrEthical07/shopauth"
	"github.com/MrEthical07/shopauth/postgres/migrations"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DBTX is the subset of database/sql the repositories use. Both *sql.DB and
// *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements shopauth.Store. The zero value is not usable; construct
// with New.
type Store struct {
	db DBTX
	// root is non-nil only on the outermost Store and is what Atomically
	// begins transactions on. Transactional Stores carry nil and reject
	// nesting.
	root *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, root: db}
}

// Open connects via the pgx driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (s *Store) Users() shopauth.UserRepo             { return &userRepo{db: s.db} }
func (s *Store) Credentials() shopauth.CredentialRepo { return &credentialRepo{db: s.db} }
func (s *Store) Sessions() shopauth.SessionRepo       { return &sessionRepo{db: s.db} }

// Atomically runs fn against a transactional Store. Commit on nil, rollback
// on error or panic.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, tx shopauth.Store) error) (err error) {
	if s.root == nil {
		return errors.New("postgres: nested transactions not supported")
	}

	tx, err := s.root.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, &Store{db: tx})
	return err
}

// isUniqueViolation reports whether err is a unique-constraint violation,
// optionally on one named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// inPlaceholders renders "$start, $start+1, ..." for an IN list of n values.
func inPlaceholders(start, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(start + i))
	}
	return b.String()
}

func toAnySlice(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
