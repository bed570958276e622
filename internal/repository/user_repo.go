package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/darkodi/shortlink/internal/model"
)

const userColumns = `id, username, password_hash, email, created_at, is_admin`

// CreateUser inserts a user. A taken username or email yields ErrDuplicateUser.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	u.CreatedAt = time.Now().UTC()

	query := s.db.Rebind(`
		INSERT INTO users (username, password_hash, email, created_at, is_admin)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	err := s.db.QueryRowxContext(ctx, query,
		u.Username, u.PasswordHash, u.Email, u.CreatedAt, u.IsAdmin,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// EnsureUser inserts the user unless one with the same username or email
// exists. It reports whether a row was created.
func (s *Store) EnsureUser(ctx context.Context, u *model.User) (bool, error) {
	u.CreatedAt = time.Now().UTC()

	query := s.db.Rebind(`
		INSERT INTO users (username, password_hash, email, created_at, is_admin)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`)

	res, err := s.db.ExecContext(ctx, query, u.Username, u.PasswordHash, u.Email, u.CreatedAt, u.IsAdmin)
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindUserByUsername looks a user up by login name
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u := &model.User{}
	query := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE username = ?`)
	if err := s.db.GetContext(ctx, u, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// ListUsers returns all users, newest first
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC`
	if err := s.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
