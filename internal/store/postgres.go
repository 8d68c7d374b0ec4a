package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/recipe-catalog/backend/internal/models"
)

const uniqueViolation = "23505"

// PostgresStore handles user CRUD against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the users table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name       VARCHAR(100) NOT NULL,
			email      VARCHAR(255) UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			role       VARCHAR(20)  NOT NULL DEFAULT 'user',
			status     VARCHAR(20)  NOT NULL DEFAULT 'Active',
			last_login TIMESTAMPTZ,
			is_online  BOOLEAN      NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ  DEFAULT NOW()
		)
	`)
	return err
}

// CreateUser inserts a new user. A duplicate email maps to models.ErrConflict.
func (s *PostgresStore) CreateUser(ctx context.Context, name, email, hashedPassword, role string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, name, email, role, status, is_online, created_at`,
		name, email, hashedPassword, role,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.IsOnline, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// GetUserByEmail returns a user including the password hash, for credential
// verification.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, password, role, status, last_login, is_online, created_at
		 FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.Status, &u.LastLogin, &u.IsOnline, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, role, status, last_login, is_online, created_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.LastLogin, &u.IsOnline, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every user without password hashes.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, role, status, last_login, is_online, created_at
		 FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.LastLogin, &u.IsOnline, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUsersByIDs returns the id/name/email summaries used to annotate recipes
// with their creator.
func (s *PostgresStore) GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	if len(ids) == 0 {
		return map[string]models.UserSummary{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make(map[string]models.UserSummary, len(ids))
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		summaries[u.ID] = u
	}
	return summaries, rows.Err()
}

// RecordLogin stamps the last login and marks the user online.
func (s *PostgresStore) RecordLogin(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET last_login = NOW(), is_online = TRUE WHERE id = $1`, id)
	return err
}

// SetOffline clears the online flag. A missing user is a no-op.
func (s *PostgresStore) SetOffline(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET is_online = FALSE WHERE id = $1`, id)
	return err
}

// UpdatePassword replaces the stored password hash.
func (s *PostgresStore) UpdatePassword(ctx context.Context, id, hashedPassword string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password = $1 WHERE id = $2`, hashedPassword, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UserStats counts users, admins, and active-status users in one pass.
func (s *PostgresStore) UserStats(ctx context.Context) (total, admins, active int, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE role = 'admin'),
		       COUNT(*) FILTER (WHERE status = 'Active')
		FROM users`).Scan(&total, &admins, &active)
	return total, admins, active, err
}
