// Package auth issues and checks admin session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/darkodi/shortlink/internal/model"
	"github.com/darkodi/shortlink/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired session")
)

// UserStore looks up and provisions accounts
type UserStore interface {
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	EnsureUser(ctx context.Context, u *model.User) (bool, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// Claims is the JWT payload of an admin session
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Session is a signed token together with its owner
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// Service authenticates users and signs HS256 session tokens
type Service struct {
	store  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(store UserStore, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{store: store, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns how long issued sessions stay valid
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Login checks the credentials and returns a fresh session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.store.FindUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcryptCompare(user.PasswordHash, password); err != nil {
		if isMismatch(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}

	return s.Issue(user)
}

// Issue signs a session token for user
func (s *Service) Issue(user *model.User) (*Session, error) {
	now := s.now()
	expires := now.Add(s.ttl)

	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// Users lists every account, newest first
func (s *Service) Users(ctx context.Context) ([]model.User, error) {
	return s.store.ListUsers(ctx)
}

// Parse validates a token and returns its claims
func (s *Service) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// EnsureAdmin provisions the default admin account unless it already exists
func EnsureAdmin(ctx context.Context, store UserStore, username, password, email string) (bool, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	admin := &model.User{Username: username, PasswordHash: hash, IsAdmin: true}
	if email != "" {
		admin.Email = &email
	}
	return store.EnsureUser(ctx, admin)
}
