package model

import "time"

// User is an account that can own mappings or administer the service.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Email        *string   `json:"email,omitempty" db:"email"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
}
