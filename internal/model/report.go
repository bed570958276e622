package model

import "time"

// Summary holds the headline dashboard numbers
type Summary struct {
	TotalURLs   int64  `json:"total_urls" db:"total_urls"`
	TotalClicks int64  `json:"total_clicks" db:"total_clicks"`
	ActiveURLs  int64  `json:"active_urls" db:"active_urls"`
	TopCountry  string `json:"top_country" db:"-"`
}

// RecentClick is a click joined with its mapping
type RecentClick struct {
	ClickedAt   time.Time `json:"timestamp" db:"clicked_at"`
	IPAddress   string    `json:"ip_address" db:"ip_address"`
	Country     string    `json:"country" db:"country"`
	ShortCode   string    `json:"short_code" db:"short_code"`
	OriginalURL string    `json:"original_url" db:"original_url"`
}

// Bucket is one labelled count of a group-by query
type Bucket struct {
	Label string `db:"label"`
	Count int64  `db:"clicks"`
}

// Chart is the labels/values shape consumed by dashboard charts
type Chart struct {
	Labels []string `json:"labels"`
	Clicks []int64  `json:"clicks"`
}
