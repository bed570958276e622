package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/darkodi/shortlink/internal/model"
)

const urlColumns = `id, original_url, short_code, created_at, expires_at, clicks, is_active, user_id`

// CreateMapping inserts a new active mapping and fills in its ID and
// creation time. A taken short code yields ErrDuplicateCode.
func (s *Store) CreateMapping(ctx context.Context, m *model.URLMapping) error {
	m.CreatedAt = time.Now().UTC()
	m.IsActive = true
	m.Clicks = 0

	query := s.db.Rebind(`
		INSERT INTO urls (original_url, short_code, created_at, expires_at, clicks, is_active, user_id)
		VALUES (?, ?, ?, ?, 0, ?, ?)
		RETURNING id`)

	err := s.db.QueryRowxContext(ctx, query,
		m.OriginalURL, m.ShortCode, m.CreatedAt, m.ExpiresAt, true, m.OwnerID,
	).Scan(&m.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("insert url: %w", err)
	}
	return nil
}

// FindByCode returns the mapping for a short code, active or not
func (s *Store) FindByCode(ctx context.Context, code string) (*model.URLMapping, error) {
	m := &model.URLMapping{}
	query := s.db.Rebind(`SELECT ` + urlColumns + ` FROM urls WHERE short_code = ?`)
	if err := s.db.GetContext(ctx, m, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find url by code: %w", err)
	}
	return m, nil
}

// FindByID returns the mapping with the given ID
func (s *Store) FindByID(ctx context.Context, id int64) (*model.URLMapping, error) {
	m := &model.URLMapping{}
	query := s.db.Rebind(`SELECT ` + urlColumns + ` FROM urls WHERE id = ?`)
	if err := s.db.GetContext(ctx, m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find url by id: %w", err)
	}
	return m, nil
}

// SetActive flips the active flag of a mapping
func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE urls SET is_active = ? WHERE id = ?`), active, id)
	if err != nil {
		return fmt.Errorf("update url: %w", err)
	}
	return expectRows(res)
}

// ToggleActive flips the active flag in one statement and returns the new value
func (s *Store) ToggleActive(ctx context.Context, id int64) (bool, error) {
	var active bool
	err := s.db.GetContext(ctx, &active,
		s.db.Rebind(`UPDATE urls SET is_active = NOT is_active WHERE id = ? RETURNING is_active`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("toggle url: %w", err)
	}
	return active, nil
}

// Delete removes a mapping together with its click history
func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM analytics WHERE url_id = ?`), id); err != nil {
			return fmt.Errorf("delete clicks: %w", err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM urls WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete url: %w", err)
		}
		return expectRows(res)
	})
}

// ListAll returns every mapping, newest first
func (s *Store) ListAll(ctx context.Context) ([]model.URLMapping, error) {
	urls := []model.URLMapping{}
	query := `SELECT ` + urlColumns + ` FROM urls ORDER BY created_at DESC, id DESC`
	if err := s.db.SelectContext(ctx, &urls, query); err != nil {
		return nil, fmt.Errorf("list urls: %w", err)
	}
	return urls, nil
}

func expectRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
