package model

import "time"

// ClickEvent is one recorded visit of a short URL. Append-only.
type ClickEvent struct {
	ID        int64     `json:"id" db:"id"`
	URLID     int64     `json:"url_id" db:"url_id"`
	ShortCode string    `json:"-" db:"-"` // used to resolve URLID when unknown
	IPAddress string    `json:"ip_address" db:"ip_address"`
	UserAgent string    `json:"user_agent" db:"user_agent"`
	Referer   string    `json:"referer" db:"referer"`
	ClickedAt time.Time `json:"timestamp" db:"clicked_at"`
	Country   *string   `json:"country,omitempty" db:"country"`
	City      *string   `json:"city,omitempty" db:"city"`
}
