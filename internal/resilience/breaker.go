// Package resilience keeps one flaky environment from dragging down the others.
// Each backend environment gets its own circuit breaker; requests are never retried.
package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// State is the position of a breaker.
type State int

const (
	// Closed lets requests through.
	Closed State = iota
	// Open rejects requests until the reset timeout elapses.
	Open
	// HalfOpen lets one probe through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when a request is rejected by an open breaker.
var ErrOpen = eris.New("resilience: environment breaker is open")

// BreakerConfig controls breaker behavior.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive tripping failures that opens the
	// breaker. Default: 5.
	FailureThreshold int

	// ResetTimeout is how long an open breaker waits before letting a probe through.
	// Default: 30s.
	ResetTimeout time.Duration

	// ShouldTrip decides whether an error counts as a failure. Defaults to ShouldTrip.
	ShouldTrip func(err error) bool

	// OnStateChange is called on every transition, with the breaker lock held.
	OnStateChange func(env string, from, to State)
}

// DefaultBreakerConfig returns the defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
}

// Breaker guards calls to a single environment.
type Breaker struct {
	env string
	cfg BreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewBreaker creates a closed breaker for env.
func NewBreaker(env string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.ShouldTrip == nil {
		cfg.ShouldTrip = ShouldTrip
	}
	return &Breaker{env: env, cfg: cfg, now: time.Now}
}

// Allow reports whether a request may go out. An open breaker past its reset
// timeout moves to half-open and admits the caller as the probe.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return nil
	}
	if b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		b.transition(HalfOpen)
		return nil
	}
	return eris.Wrapf(ErrOpen, "env %s", b.env)
}

// Record feeds the outcome of an admitted request back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.cfg.ShouldTrip(err) {
		b.failures = 0
		if b.state == HalfOpen {
			b.transition(Closed)
		}
		return
	}

	b.failures++
	switch {
	case b.state == HalfOpen:
		b.trip()
	case b.state == Closed && b.failures >= b.cfg.FailureThreshold:
		b.trip()
	}
}

// State returns the current state, reporting an expired open breaker as half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		return HalfOpen
	}
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	if b.state != Closed {
		b.transition(Closed)
	}
}

func (b *Breaker) trip() {
	b.openedAt = b.now()
	b.transition(Open)
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil && from != to {
		b.cfg.OnStateChange(b.env, from, to)
	}
}

// Status is a point-in-time view of one breaker.
type Status struct {
	Env      string `json:"env" yaml:"env"`
	State    string `json:"state" yaml:"state"`
	Failures int    `json:"failures" yaml:"failures"`
}

// Breakers hands out one breaker per environment name.
type Breakers struct {
	cfg BreakerConfig

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewBreakers creates an empty set sharing cfg.
func NewBreakers(cfg BreakerConfig) *Breakers {
	return &Breakers{cfg: cfg, breakers: make(map[string]*Breaker)}
}

// For returns the breaker for env, creating it on first use.
func (bs *Breakers) For(env string) *Breaker {
	bs.mu.RLock()
	b, ok := bs.breakers[env]
	bs.mu.RUnlock()
	if ok {
		return b
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()
	if b, ok = bs.breakers[env]; ok {
		return b
	}
	b = NewBreaker(env, bs.cfg)
	bs.breakers[env] = b
	return b
}

// Reset closes env's breaker if one exists. Failures counted against a previous
// base URL say nothing about a new one.
func (bs *Breakers) Reset(env string) {
	bs.mu.RLock()
	b, ok := bs.breakers[env]
	bs.mu.RUnlock()
	if ok {
		b.Reset()
	}
}

// Snapshot lists every breaker sorted by environment name.
func (bs *Breakers) Snapshot() []Status {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	out := make([]Status, 0, len(bs.breakers))
	for env, b := range bs.breakers {
		out = append(out, Status{Env: env, State: b.State().String(), Failures: b.Failures()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Env < out[j].Env })
	return out
}
