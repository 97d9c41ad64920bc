package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// BreakerClosed lets every call through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cooldown elapses.
	BreakerOpen
	// BreakerProbing lets calls through to test whether the host recovered.
	BreakerProbing
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerProbing:
		return "probing"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned when a call is rejected without being attempted.
var ErrBreakerOpen = eris.New("resilience: breaker open")

// BreakerConfig controls when a Breaker opens and how long it stays open.
type BreakerConfig struct {
	// Failures is the number of consecutive counted failures that opens the
	// breaker. Default: 5.
	Failures int
	// Cooldown is how long the breaker stays open before probing. Default: 30s.
	Cooldown time.Duration
	// Counts decides which errors count as failures. Default: IsTransient.
	Counts func(err error) bool
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.Failures <= 0 {
		c.Failures = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	if c.Counts == nil {
		c.Counts = IsTransient
	}
	return c
}

// Breaker stops calling an endpoint that keeps failing with transient errors.
// A single success while probing closes it again; a failure reopens it.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewBreaker creates a closed breaker. The name is only used for logging.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	return &Breaker{name: name, cfg: cfg.withDefaults(), now: time.Now}
}

// Call runs fn unless the breaker is open, and records its outcome.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.admit(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

// State returns the current state, reporting an open breaker whose cooldown
// has elapsed as probing.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return BreakerProbing
	}
	return b.state
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != BreakerOpen {
		return nil
	}
	if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
		return eris.Wrapf(ErrBreakerOpen, "%s", b.name)
	}
	b.setState(BreakerProbing)
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.cfg.Counts(err) {
		b.failures = 0
		if b.state == BreakerProbing {
			b.setState(BreakerClosed)
		}
		return
	}

	b.failures++
	if b.state == BreakerProbing || b.failures >= b.cfg.Failures {
		b.openedAt = b.now()
		b.setState(BreakerOpen)
	}
}

func (b *Breaker) setState(to BreakerState) {
	if b.state == to {
		return
	}
	zap.L().Warn("resilience: breaker state change",
		zap.String("name", b.name),
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
	)
	b.state = to
}

// Breakers hands out one Breaker per key, typically a host name.
type Breakers struct {
	cfg BreakerConfig

	mu  sync.Mutex
	all map[string]*Breaker
}

// NewBreakers creates an empty registry whose breakers share cfg.
func NewBreakers(cfg BreakerConfig) *Breakers {
	return &Breakers{cfg: cfg, all: make(map[string]*Breaker)}
}

// Get returns the breaker for key, creating it on first use.
func (r *Breakers) Get(key string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.all[key]
	if !ok {
		b = NewBreaker(key, r.cfg)
		r.all[key] = b
	}
	return b
}
