package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/darkodi/shortlink/internal/model"
)

// IncrementClicks adds one to the click counter of a mapping
func (s *Store) IncrementClicks(ctx context.Context, urlID int64) error {
	return incrementClicks(ctx, s.db, urlID)
}

// RecordClick appends a click event
func (s *Store) RecordClick(ctx context.Context, ev *model.ClickEvent) error {
	return insertClick(ctx, s.db, ev)
}

// TrackClick increments the counter and appends the event atomically, so
// the counter never drifts from the number of stored events.
func (s *Store) TrackClick(ctx context.Context, ev *model.ClickEvent) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := incrementClicks(ctx, tx, ev.URLID); err != nil {
			return err
		}
		return insertClick(ctx, tx, ev)
	})
}

func incrementClicks(ctx context.Context, q sqlx.ExtContext, urlID int64) error {
	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE urls SET clicks = clicks + 1 WHERE id = ?`), urlID)
	if err != nil {
		return fmt.Errorf("increment clicks: %w", err)
	}
	return expectRows(res)
}

func insertClick(ctx context.Context, q sqlx.ExtContext, ev *model.ClickEvent) error {
	if ev.ClickedAt.IsZero() {
		ev.ClickedAt = time.Now()
	}
	ev.ClickedAt = ev.ClickedAt.UTC()

	query := q.Rebind(`
		INSERT INTO analytics (url_id, ip_address, user_agent, referer, clicked_at, country, city)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := q.QueryRowxContext(ctx, query,
		ev.URLID, ev.IPAddress, ev.UserAgent, ev.Referer, ev.ClickedAt, ev.Country, ev.City,
	).Scan(&ev.ID)
	if err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	return nil
}
