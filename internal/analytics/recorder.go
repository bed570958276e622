package analytics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/darkodi/shortlink/internal/logger"
	"github.com/darkodi/shortlink/internal/model"
)

// Store is the persistence the recorder writes clicks through
type Store interface {
	FindByCode(ctx context.Context, code string) (*model.URLMapping, error)
	TrackClick(ctx context.Context, ev *model.ClickEvent) error
}

// Config controls the recorder's worker pool
type Config struct {
	Workers    int           // 0 processes clicks inline
	BufferSize int           // queued clicks before new ones are dropped
	Timeout    time.Duration // per-click store deadline
}

// Option configures a Recorder
type Option func(*Recorder)

// WithGeoLocator enriches clicks with country and city
func WithGeoLocator(g GeoLocator) Option {
	return func(r *Recorder) { r.geo = g }
}

// Recorder persists click events off the request path. Record never
// blocks the caller on the store; when the queue is full the click is
// dropped and counted.
type Recorder struct {
	store   Store
	geo     GeoLocator
	log     *logger.Logger
	timeout time.Duration
	inline  bool

	queue chan model.ClickEvent
	wg    sync.WaitGroup

	mu     sync.RWMutex // guards closed against sends on queue
	closed bool

	dropped atomic.Int64
}

// NewRecorder starts cfg.Workers goroutines draining the click queue
func NewRecorder(store Store, cfg Config, log *logger.Logger, opts ...Option) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.Discard()
	}

	r := &Recorder{
		store:   store,
		log:     log.Component("analytics"),
		timeout: cfg.Timeout,
		inline:  cfg.Workers <= 0,
	}
	for _, opt := range opts {
		opt(r)
	}

	if !r.inline {
		r.queue = make(chan model.ClickEvent, cfg.BufferSize)
		for i := 0; i < cfg.Workers; i++ {
			r.wg.Add(1)
			go r.worker()
		}
	}
	return r
}

// Record queues a click. It returns immediately; failures are logged.
func (r *Recorder) Record(ctx context.Context, ev model.ClickEvent) {
	if ev.ClickedAt.IsZero() {
		ev.ClickedAt = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(ev, "recorder closed")
		return
	}
	if r.inline {
		r.process(context.WithoutCancel(ctx), ev)
		return
	}

	select {
	case r.queue <- ev:
	default:
		r.drop(ev, "buffer full")
	}
}

// Dropped returns how many clicks were discarded
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting clicks, drains the queue and waits for workers
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if r.queue != nil {
		close(r.queue)
	}
	r.wg.Wait()
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for ev := range r.queue {
		r.process(context.Background(), ev)
	}
}

func (r *Recorder) process(parent context.Context, ev model.ClickEvent) {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	if ev.URLID == 0 {
		m, err := r.store.FindByCode(ctx, ev.ShortCode)
		if err != nil {
			r.log.Warn("click for unknown code", "code", ev.ShortCode, "error", err)
			return
		}
		// served from a stale cache entry after deactivation
		if !m.IsActive {
			r.log.Debug("click for inactive code", "code", ev.ShortCode)
			return
		}
		ev.URLID = m.ID
	}

	if r.geo != nil && ev.Country == nil {
		if country, city, ok := r.geo.Locate(ev.IPAddress); ok {
			if country != "" {
				ev.Country = &country
			}
			if city != "" {
				ev.City = &city
			}
		}
	}

	if err := r.store.TrackClick(ctx, &ev); err != nil {
		r.log.Warn("failed to record click", "url_id", ev.URLID, "error", err)
	}
}

func (r *Recorder) drop(ev model.ClickEvent, reason string) {
	r.dropped.Add(1)
	r.log.Warn("dropping click", "code", ev.ShortCode, "reason", reason)
}
