// Package resilience guards remote calls with a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"closing-journal/internal/models"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"    // Normal operation
	CircuitOpen     CircuitState = "OPEN"      // Failing, rejecting requests
	CircuitHalfOpen CircuitState = "HALF_OPEN" // Probing whether the origin recovered
)

// ErrCircuitOpen is returned while the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes needed to close
	SuccessThreshold int
	// Timeout is how long the circuit stays open before probing
	Timeout time.Duration
}

// DefaultCircuitBreakerConfig returns the settings used for report fetches.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Timeout:          30 * time.Second,
	}
}

// CircuitBreaker implements the circuit breaker pattern.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	now    func() time.Time

	mu              sync.Mutex
	state           CircuitState
	failures        int
	successes       int
	lastFailureTime time.Time

	totalRequests int64
	totalFailures int64
	totalRejected int64
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 1
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	return &CircuitBreaker{
		name:   name,
		config: config,
		now:    time.Now,
		state:  CircuitClosed,
	}
}

// Execute runs fn unless the circuit is open. Context cancellation by the
// caller is not counted as a failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.allowRequest(); err != nil {
		return err
	}
	err := fn(ctx)
	switch {
	case err == nil:
		cb.recordSuccess()
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
	default:
		cb.recordFailure()
	}
	return err
}

// Bypass runs fn even while the circuit is open. A success closes the
// circuit.
func (cb *CircuitBreaker) Bypass(ctx context.Context, fn func(ctx context.Context) error) error {
	cb.mu.Lock()
	cb.totalRequests++
	cb.mu.Unlock()

	err := fn(ctx)
	switch {
	case err == nil:
		cb.mu.Lock()
		cb.transitionTo(CircuitClosed)
		cb.mu.Unlock()
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
	default:
		cb.recordFailure()
	}
	return err
}

func (cb *CircuitBreaker) allowRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++
	if cb.state == CircuitOpen {
		if cb.now().Sub(cb.lastFailureTime) < cb.config.Timeout {
			cb.totalRejected++
			return ErrCircuitOpen
		}
		cb.transitionTo(CircuitHalfOpen)
	}
	return nil
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionTo(CircuitClosed)
		}
	case CircuitClosed:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalFailures++
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
	}
}

func (cb *CircuitBreaker) transitionTo(state CircuitState) {
	cb.state = state
	cb.failures = 0
	cb.successes = 0
}

// Stats returns circuit breaker counters.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		Name:          cb.name,
		State:         cb.state,
		TotalRequests: cb.totalRequests,
		TotalFailures: cb.totalFailures,
		TotalRejected: cb.totalRejected,
	}
}

// CircuitBreakerStats holds circuit breaker statistics.
type CircuitBreakerStats struct {
	Name          string       `json:"name"`
	State         CircuitState `json:"state"`
	TotalRequests int64        `json:"totalRequests"`
	TotalFailures int64        `json:"totalFailures"`
	TotalRejected int64        `json:"totalRejected"`
}

// ReportFetcher is the report source a GuardedReports wraps.
type ReportFetcher interface {
	Fetch(ctx context.Context, bust bool) (*models.Report, error)
}

// GuardedReports stops calling an unreachable report origin for a while
// after repeated failures.
type GuardedReports struct {
	Source  ReportFetcher
	Breaker *CircuitBreaker
	Logger  zerolog.Logger
}

// NewGuardedReports wraps src with a breaker named "report".
func NewGuardedReports(src ReportFetcher, config CircuitBreakerConfig, logger zerolog.Logger) *GuardedReports {
	return &GuardedReports{
		Source:  src,
		Breaker: NewCircuitBreaker("report", config),
		Logger:  logger,
	}
}

// Fetch loads the report through the breaker. A cache-busting fetch is a
// manual reload and always reaches the source.
func (g *GuardedReports) Fetch(ctx context.Context, bust bool) (*models.Report, error) {
	var rep *models.Report
	fetch := func(ctx context.Context) error {
		var err error
		rep, err = g.Source.Fetch(ctx, bust)
		return err
	}

	var err error
	if bust {
		err = g.Breaker.Bypass(ctx, fetch)
	} else {
		err = g.Breaker.Execute(ctx, fetch)
	}
	if errors.Is(err, ErrCircuitOpen) {
		g.Logger.Warn().Str("circuit", g.Breaker.name).Msg("Report fetch skipped, circuit open")
	}
	return rep, err
}

// Stats returns the breaker counters.
func (g *GuardedReports) Stats() CircuitBreakerStats {
	return g.Breaker.Stats()
}
