// Package postgres implements the repository interfaces on PostgreSQL
// through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/xid"

	"github.com/sakif/meal-planner/internal/apperror"
	"github.com/sakif/meal-planner/internal/migrations"
	"github.com/sakif/meal-planner/internal/model"
	"github.com/sakif/meal-planner/internal/repository"
)

const uniqueViolation = "23505"

var _ repository.Store = (*Store)(nil)

// Store is a pgxpool-backed repository.Store.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects to dsn and applies the embedded migrations.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	// goose speaks database/sql; borrow connections from the same pool.
	db := stdlib.OpenDBFromPool(pool)
	err = migrations.Up(ctx, db, migrations.Postgres, logger)
	db.Close()
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// nullable maps "" to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newID() string {
	return xid.New().String()
}

func now() time.Time {
	return time.Now().UTC()
}

// CreateUser inserts a credential record. Duplicate emails are caught by the
// unique index.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	u.ID = newID()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateEmail()
		}
		return fmt.Errorf("postgres: inserting user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, email, password_hash, name, created_at FROM users WHERE email = $1`, email)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, email, password_hash, name, created_at FROM users WHERE id = $1`, id)
}

func (s *Store) getUser(ctx context.Context, query, key string) (*model.User, error) {
	u := &model.User{}
	err := s.pool.QueryRow(ctx, query, key).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("postgres: getting user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
