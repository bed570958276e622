package ratelimit

import (
	"sync"
	"time"

	"github.com/darkodi/shortlink/internal/logger"
)

// Config holds sliding window settings
type Config struct {
	MaxRequests int           // admitted requests per window
	Window      time.Duration // trailing interval requests are counted over
	Cleanup     time.Duration // idle-key sweep interval, 0 disables it
}

// DefaultConfig returns the limits applied to link creation
func DefaultConfig() Config {
	return Config{
		MaxRequests: 10,
		Window:      60 * time.Second,
	}
}

// SlidingWindow admits at most MaxRequests per key within any trailing Window.
// State lives in process memory and resets on restart.
type SlidingWindow struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	max      int
	window   time.Duration
	cleanup  time.Duration
	now      func() time.Time
	log      *logger.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a SlidingWindow
type Option func(*SlidingWindow)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(sw *SlidingWindow) {
		sw.now = now
	}
}

// WithLogger enables debug logging of cleanup sweeps
func WithLogger(log *logger.Logger) Option {
	return func(sw *SlidingWindow) {
		sw.log = log
	}
}

// NewSlidingWindow creates a limiter. Zero values in cfg fall back to DefaultConfig.
func NewSlidingWindow(cfg Config, opts ...Option) *SlidingWindow {
	def := DefaultConfig()
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}

	sw := &SlidingWindow{
		history: make(map[string][]time.Time),
		max:     cfg.MaxRequests,
		window:  cfg.Window,
		cleanup: cfg.Cleanup,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(sw)
	}

	if sw.cleanup > 0 {
		go sw.cleanupLoop()
	}

	return sw
}

// IsLimited prunes the key's history to the window and reports whether the
// key is over quota. A rejected attempt is not recorded.
func (sw *SlidingWindow) IsLimited(key string) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	recent := prune(sw.history[key], now.Add(-sw.window))

	if len(recent) >= sw.max {
		sw.history[key] = recent
		return true
	}

	sw.history[key] = append(recent, now)
	return false
}

// Count returns how many requests the key has in the current window
func (sw *SlidingWindow) Count(key string) int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	return len(prune(sw.history[key], sw.now().Add(-sw.window)))
}

// Reset forgets the key's history
func (sw *SlidingWindow) Reset(key string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	delete(sw.history, key)
}

// Close stops the cleanup goroutine
func (sw *SlidingWindow) Close() {
	sw.stopOnce.Do(func() { close(sw.stop) })
}

// prune drops timestamps at or before cutoff; history is kept in ascending order
func prune(history []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(history) && !history[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return history
	}
	return append(history[:0:0], history[i:]...)
}

// cleanupLoop removes keys whose history has fully expired
func (sw *SlidingWindow) cleanupLoop() {
	ticker := time.NewTicker(sw.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-sw.stop:
			return
		case <-ticker.C:
			sw.sweep()
		}
	}
}

func (sw *SlidingWindow) sweep() int {
	sw.mu.Lock()
	cutoff := sw.now().Add(-sw.window)
	for key, history := range sw.history {
		if len(prune(history, cutoff)) == 0 {
			delete(sw.history, key)
		}
	}
	count := len(sw.history)
	sw.mu.Unlock()

	if sw.log != nil {
		sw.log.Debug("rate limiter cleanup", "active_clients", count)
	}
	return count
}
