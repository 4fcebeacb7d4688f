package breaker

import (
	"errors"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
)

// ErrVenueUnavailable is returned while the breaker short-circuits calls to a
// failing venue. Retryable after the cool-down elapses.
var ErrVenueUnavailable = errors.New("venue unavailable: circuit open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // normal operation
	StateOpen                  // failing, reject requests
	StateHalfOpen              // single probe in flight
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config holds the trip parameters for one venue's breaker.
type Config struct {
	Venue            string
	FailureThreshold int
	FailureWindow    time.Duration
	CoolDown         time.Duration
}

// DefaultConfig returns the trip parameters used when a venue has no
// explicit configuration.
func DefaultConfig(venue string) Config {
	return Config{
		Venue:            venue,
		FailureThreshold: 5,
		FailureWindow:    1 * time.Minute,
		CoolDown:         30 * time.Second,
	}
}

// Breaker trips a venue open after consecutive submission failures, one
// instance per venue. Safe for concurrent use.
type Breaker struct {
	mu sync.Mutex

	venue            string
	state            State
	failureCount     int
	firstFailure     time.Time
	lastTransition   time.Time
	probeInFlight    bool
	failureThreshold int
	failureWindow    time.Duration
	coolDown         time.Duration

	now func() time.Time
}

// New creates a breaker in the Closed state.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 30 * time.Second
	}

	return &Breaker{
		venue:            cfg.Venue,
		state:            StateClosed,
		failureThreshold: cfg.FailureThreshold,
		failureWindow:    cfg.FailureWindow,
		coolDown:         cfg.CoolDown,
		now:              time.Now,
	}
}

// WithClock overrides the time source for deterministic tests.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.now = now
	return b
}

// Allow reports whether a venue call may proceed. While Open it fails
// immediately with ErrVenueUnavailable; after the cool-down it admits exactly
// one probe and rejects concurrent callers until that probe resolves.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if b.now().Sub(b.lastTransition) >= b.coolDown {
			b.transition(StateHalfOpen)
			b.probeInFlight = true
			return nil
		}
		return ErrVenueUnavailable

	case StateHalfOpen:
		if b.probeInFlight {
			return ErrVenueUnavailable
		}
		b.probeInFlight = true
		return nil

	default:
		return ErrVenueUnavailable
	}
}

// RecordSuccess records a successful venue call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failureCount = 0

	case StateHalfOpen:
		b.probeInFlight = false
		b.failureCount = 0
		b.transition(StateClosed)
		logger.WithField("venue", b.venue).Info("circuit breaker closed after successful probe")
	}
}

// RecordFailure records a failed venue call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()

	switch b.state {
	case StateClosed:
		// Consecutive failures only count while inside the failure window.
		if b.failureCount == 0 || (b.failureWindow > 0 && now.Sub(b.firstFailure) > b.failureWindow) {
			b.failureCount = 0
			b.firstFailure = now
		}

		b.failureCount++
		if b.failureCount >= b.failureThreshold {
			b.transition(StateOpen)
			logger.WithFields(logger.Fields{
				"venue":    b.venue,
				"failures": b.failureCount,
			}).Warn("circuit breaker opened")
		}

	case StateHalfOpen:
		b.probeInFlight = false
		b.transition(StateOpen)
		logger.WithField("venue", b.venue).Warn("circuit breaker reopened after failed probe")
	}
}

// CurrentState returns the state for monitoring.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// transition must be called with the mutex held.
func (b *Breaker) transition(to State) {
	b.state = to
	b.lastTransition = b.now()
}
