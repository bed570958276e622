package model

import "time"

// URLMapping represents a shortened URL mapping
type URLMapping struct {
	ID          int64      `json:"id" db:"id"`
	OriginalURL string     `json:"original_url" db:"original_url"`
	ShortCode   string     `json:"short_code" db:"short_code"` // unique, immutable once assigned
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"` // reserved
	Clicks      int64      `json:"clicks" db:"clicks"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	OwnerID     *int64     `json:"owner_id,omitempty" db:"user_id"`
}

// CreateRequest is the API request body
type CreateRequest struct {
	URL        string `json:"url"`                   // original long URL
	CustomCode string `json:"custom_code,omitempty"` // optional custom short code
}

// CreateResponse is the API response
type CreateResponse struct {
	ShortURL    string `json:"short_url"`    // full shortened URL
	ShortCode   string `json:"short_code"`   // code appended to the base URL
	OriginalURL string `json:"original_url"` // normalized original URL
}

// Visitor carries requester metadata captured on resolution
type Visitor struct {
	IP        string
	UserAgent string
	Referer   string
}
