package service

import (
	"errors"

	"github.com/darkodi/shortlink/internal/repository"
	"github.com/darkodi/shortlink/internal/validator"
)

// Errors returned by the service layer. Callers match them with errors.Is.
var (
	ErrInvalidURL    = validator.ErrInvalidURL
	ErrMaliciousURL  = validator.ErrMaliciousURL
	ErrInvalidCode   = validator.ErrInvalidCode
	ErrDuplicateCode = repository.ErrDuplicateCode
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrNotFound      = errors.New("short url not found")
	ErrPersistence   = errors.New("persistence failure")
)
