package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/darkodi/shortlink/internal/cache"
	"github.com/darkodi/shortlink/internal/logger"
	"github.com/darkodi/shortlink/internal/model"
	"github.com/darkodi/shortlink/internal/repository"
	"github.com/darkodi/shortlink/internal/validator"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks . Store

// Store is the persistence the shortener needs
type Store interface {
	CreateMapping(ctx context.Context, m *model.URLMapping) error
	FindByCode(ctx context.Context, code string) (*model.URLMapping, error)
	FindByID(ctx context.Context, id int64) (*model.URLMapping, error)
	SetActive(ctx context.Context, id int64, active bool) error
	ToggleActive(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context) ([]model.URLMapping, error)
}

// Limiter decides whether a client may create another link
type Limiter interface {
	IsLimited(key string) bool
}

// ClickRecorder receives a click for every successful resolution.
// Implementations must not block.
type ClickRecorder interface {
	Record(ctx context.Context, ev model.ClickEvent)
}

// CodeGenerator produces candidate short codes
type CodeGenerator interface {
	Generate() (string, error)
}

// maxGenerateAttempts bounds retries when a generated code collides
const maxGenerateAttempts = 3

// ShortenerService handles business logic for URL operations
type ShortenerService struct {
	store     Store
	cache     cache.Cache
	validator *validator.URLValidator
	generator CodeGenerator
	limiter   Limiter
	recorder  ClickRecorder
	baseURL   string // e.g., "http://localhost:8080"
	cacheTTL  time.Duration
	log       *logger.Logger
}

// Option configures a ShortenerService
type Option func(*ShortenerService)

// WithLimiter enables per-client rate limiting on Create
func WithLimiter(l Limiter) Option {
	return func(s *ShortenerService) { s.limiter = l }
}

// WithRecorder sets where resolution clicks are sent
func WithRecorder(r ClickRecorder) Option {
	return func(s *ShortenerService) { s.recorder = r }
}

// WithCacheTTL overrides cache.DefaultTTL
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *ShortenerService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithLogger sets the service logger
func WithLogger(log *logger.Logger) Option {
	return func(s *ShortenerService) { s.log = log }
}

// NewShortenerService creates a new service instance
func NewShortenerService(store Store, c cache.Cache, v *validator.URLValidator, gen CodeGenerator, baseURL string, opts ...Option) *ShortenerService {
	s := &ShortenerService{
		store:     store,
		cache:     c,
		validator: v,
		generator: gen,
		baseURL:   strings.TrimRight(baseURL, "/"),
		cacheTTL:  cache.DefaultTTL,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Component("shortener")
	return s
}

// Create shortens a URL on behalf of clientID
func (s *ShortenerService) Create(ctx context.Context, req model.CreateRequest, clientID string) (*model.CreateResponse, error) {
	// ============ STEP 1: Admission ============
	if s.limiter != nil && s.limiter.IsLimited(clientID) {
		return nil, ErrRateLimited
	}

	originalURL, err := s.validator.Validate(req.URL)
	if err != nil {
		return nil, err
	}

	// ============ STEP 2: Persist under a short code ============
	var mapping *model.URLMapping
	if code := strings.TrimSpace(req.CustomCode); code != "" {
		mapping, err = s.createCustom(ctx, originalURL, code)
	} else {
		mapping, err = s.createGenerated(ctx, originalURL)
	}
	if err != nil {
		return nil, err
	}

	// ============ STEP 3: Warm the cache ============
	s.cacheSet(ctx, mapping.ShortCode, mapping.OriginalURL)

	s.log.Info("short url created", "code", mapping.ShortCode, "client", clientID)

	return &model.CreateResponse{
		ShortURL:    s.ShortURL(mapping.ShortCode),
		ShortCode:   mapping.ShortCode,
		OriginalURL: mapping.OriginalURL,
	}, nil
}

func (s *ShortenerService) createCustom(ctx context.Context, originalURL, code string) (*model.URLMapping, error) {
	if err := s.validator.ValidateCustomCode(code); err != nil {
		return nil, err
	}

	_, err := s.store.FindByCode(ctx, code)
	if err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// a concurrent create can still win the race; the unique index decides
	m := &model.URLMapping{OriginalURL: originalURL, ShortCode: code}
	if err := s.store.CreateMapping(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicateCode) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return m, nil
}

func (s *ShortenerService) createGenerated(ctx context.Context, originalURL string) (*model.URLMapping, error) {
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		code, err := s.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("%w: generate code: %v", ErrPersistence, err)
		}

		m := &model.URLMapping{OriginalURL: originalURL, ShortCode: code}
		err = s.store.CreateMapping(ctx, m)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, repository.ErrDuplicateCode) {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		s.log.Debug("generated code collided", "code", code, "attempt", attempt)
	}
	return nil, fmt.Errorf("%w: no free code after %d attempts", ErrPersistence, maxGenerateAttempts)
}

// Resolve returns the target of an active mapping and records the click
func (s *ShortenerService) Resolve(ctx context.Context, code string, visitor model.Visitor) (string, error) {
	target, err := s.cache.Get(ctx, code)
	if err == nil {
		s.recordClick(ctx, 0, code, visitor)
		return target, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn("cache read failed", "code", code, "error", err)
	}

	m, err := s.store.FindByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !m.IsActive {
		return "", ErrNotFound
	}

	s.cacheSet(ctx, code, m.OriginalURL)
	s.recordClick(ctx, m.ID, code, visitor)

	return m.OriginalURL, nil
}

// Preview returns a mapping, active or not, without counting a click
func (s *ShortenerService) Preview(ctx context.Context, code string) (*model.URLMapping, error) {
	m, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return m, nil
}

// List returns every mapping, newest first
func (s *ShortenerService) List(ctx context.Context) ([]model.URLMapping, error) {
	urls, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return urls, nil
}

// SetActive activates or deactivates a mapping
func (s *ShortenerService) SetActive(ctx context.Context, id int64, active bool) error {
	m, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}
	return s.setActive(ctx, m, active)
}

// Toggle flips a mapping's active flag and returns the new state
func (s *ShortenerService) Toggle(ctx context.Context, id int64) (bool, error) {
	m, err := s.findByID(ctx, id)
	if err != nil {
		return false, err
	}

	active, err := s.store.ToggleActive(ctx, id)
	if err != nil {
		return false, s.storeErr(err)
	}
	s.invalidate(ctx, m.ShortCode)
	s.log.Info("short url updated", "code", m.ShortCode, "active", active)
	return active, nil
}

// Delete removes a mapping and its click history
func (s *ShortenerService) Delete(ctx context.Context, id int64) error {
	m, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return s.storeErr(err)
	}
	s.invalidate(ctx, m.ShortCode)
	s.log.Info("short url deleted", "code", m.ShortCode)
	return nil
}

// ShortURL builds the public URL for a code
func (s *ShortenerService) ShortURL(code string) string {
	return s.baseURL + "/" + code
}

// ============ HELPERS ============

func (s *ShortenerService) setActive(ctx context.Context, m *model.URLMapping, active bool) error {
	if err := s.store.SetActive(ctx, m.ID, active); err != nil {
		return s.storeErr(err)
	}
	s.invalidate(ctx, m.ShortCode)
	s.log.Info("short url updated", "code", m.ShortCode, "active", active)
	return nil
}

func (s *ShortenerService) findByID(ctx context.Context, id int64) (*model.URLMapping, error) {
	m, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return m, nil
}

func (s *ShortenerService) storeErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

func (s *ShortenerService) cacheSet(ctx context.Context, code, originalURL string) {
	if err := s.cache.Set(ctx, code, originalURL, s.cacheTTL); err != nil {
		s.log.Warn("cache write failed", "code", code, "error", err)
	}
}

func (s *ShortenerService) invalidate(ctx context.Context, code string) {
	if err := s.cache.Delete(ctx, code); err != nil {
		s.log.Warn("cache invalidation failed", "code", code, "error", err)
	}
}

func (s *ShortenerService) recordClick(ctx context.Context, urlID int64, code string, v model.Visitor) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, model.ClickEvent{
		URLID:     urlID,
		ShortCode: code,
		IPAddress: v.IP,
		UserAgent: v.UserAgent,
		Referer:   v.Referer,
		ClickedAt: time.Now().UTC(),
	})
}
