package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/darkodi/shortlink/internal/model"
)

// Summary returns totals over all mappings plus the busiest country
func (s *Store) Summary(ctx context.Context) (*model.Summary, error) {
	sum := &model.Summary{}
	err := s.db.GetContext(ctx, sum, `
		SELECT COUNT(*) AS total_urls,
		       COALESCE(SUM(clicks), 0) AS total_clicks,
		       COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active_urls
		FROM urls`)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	top, err := s.ClicksByCountry(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(top) > 0 {
		sum.TopCountry = top[0].Label
	}
	return sum, nil
}

// RecentClicks returns the latest click events joined with their mapping
func (s *Store) RecentClicks(ctx context.Context, limit int) ([]model.RecentClick, error) {
	clicks := []model.RecentClick{}
	query := s.db.Rebind(`
		SELECT a.clicked_at,
		       COALESCE(a.ip_address, '') AS ip_address,
		       COALESCE(a.country, 'Unknown') AS country,
		       u.short_code,
		       u.original_url
		FROM analytics a
		JOIN urls u ON a.url_id = u.id
		ORDER BY a.clicked_at DESC, a.id DESC
		LIMIT ?`)
	if err := s.db.SelectContext(ctx, &clicks, query, limit); err != nil {
		return nil, fmt.Errorf("recent clicks: %w", err)
	}
	return clicks, nil
}

// ClicksPerDay counts clicks per calendar day (YYYY-MM-DD) since the given time
func (s *Store) ClicksPerDay(ctx context.Context, since time.Time) ([]model.Bucket, error) {
	return s.buckets(ctx, "clicks per day", `
		SELECT CAST(DATE(clicked_at) AS TEXT) AS label, COUNT(*) AS clicks
		FROM analytics
		WHERE clicked_at >= ?
		GROUP BY label
		ORDER BY label`, since.UTC())
}

// ClicksByCountry returns the top countries by click count
func (s *Store) ClicksByCountry(ctx context.Context, limit int) ([]model.Bucket, error) {
	return s.buckets(ctx, "clicks by country", `
		SELECT country AS label, COUNT(*) AS clicks
		FROM analytics
		WHERE country IS NOT NULL AND country <> ''
		GROUP BY country
		ORDER BY clicks DESC, label
		LIMIT ?`, limit)
}

// TopURLs returns the most clicked short codes
func (s *Store) TopURLs(ctx context.Context, limit int) ([]model.Bucket, error) {
	return s.buckets(ctx, "top urls", `
		SELECT short_code AS label, clicks
		FROM urls
		WHERE clicks > 0
		ORDER BY clicks DESC, id
		LIMIT ?`, limit)
}

// ClicksByUserAgent counts clicks per raw user agent string
func (s *Store) ClicksByUserAgent(ctx context.Context) ([]model.Bucket, error) {
	return s.buckets(ctx, "clicks by user agent", `
		SELECT COALESCE(user_agent, '') AS label, COUNT(*) AS clicks
		FROM analytics
		GROUP BY user_agent
		ORDER BY clicks DESC`)
}

func (s *Store) buckets(ctx context.Context, what, query string, args ...any) ([]model.Bucket, error) {
	out := []model.Bucket{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return out, nil
}
