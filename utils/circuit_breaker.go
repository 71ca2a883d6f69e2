// ABOUTME: Circuit breaker protecting calls to the remote record store
// ABOUTME: Closed passes requests through, open rejects them, half-open probes for recovery

package utils

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// CircuitBreakerState represents the current state of the circuit breaker.
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds the thresholds driving state transitions.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // successes in half-open before closing
	Timeout          time.Duration // open duration before probing
	MaxRequests      int           // concurrent probes allowed in half-open
}

// DefaultCircuitBreakerConfig returns the default thresholds.
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		Timeout:          30 * time.Second,
		MaxRequests:      2,
	}
}

// CircuitBreakerStats holds counters for monitoring.
type CircuitBreakerStats struct {
	State           CircuitBreakerState
	FailureCount    int
	SuccessCount    int
	LastFailureTime time.Time
	LastSuccessTime time.Time
	TotalRequests   int64
	TotalSuccesses  int64
	TotalFailures   int64
	TotalRejections int64
}

// CircuitBreaker implements the circuit breaker pattern.
type CircuitBreaker struct {
	config *CircuitBreakerConfig
	logger *slog.Logger

	mu               sync.RWMutex
	state            CircuitBreakerState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	lastSuccessTime  time.Time
	nextRetry        time.Time
	halfOpenRequests int

	totalRequests   int64
	totalSuccesses  int64
	totalFailures   int64
	totalRejections int64
}

// NewCircuitBreaker creates a circuit breaker. A nil config selects the
// defaults.
func NewCircuitBreaker(config *CircuitBreakerConfig, logger *slog.Logger) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CircuitBreaker{
		config: config,
		logger: logger,
		state:  StateClosed,
	}
}

// ErrCircuitBreakerOpen is returned when the circuit breaker rejects a request.
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// Execute runs operation if the breaker allows it and records the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	if !cb.allowRequest() {
		cb.mu.Lock()
		cb.totalRejections++
		cb.mu.Unlock()

		cb.logger.Debug("Circuit breaker rejected request",
			"state", cb.GetState().String())
		return ErrCircuitBreakerOpen
	}

	cb.mu.Lock()
	cb.totalRequests++
	cb.mu.Unlock()

	err := operation(ctx)
	if err != nil {
		cb.onFailure(err)
	} else {
		cb.onSuccess()
	}

	return err
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Now().After(cb.nextRetry) {
			cb.logger.Info("Circuit breaker transitioning to half-open state")
			cb.setState(StateHalfOpen)
			cb.halfOpenRequests++
			return true
		}
		return false
	case StateHalfOpen:
		if cb.halfOpenRequests < cb.config.MaxRequests {
			cb.halfOpenRequests++
			return true
		}
		return false
	default:
		return false
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalSuccesses++
	cb.lastSuccessTime = time.Now()

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		cb.halfOpenRequests--
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.logger.Info("Circuit breaker closing",
				"success_count", cb.successCount,
				"threshold", cb.config.SuccessThreshold)
			cb.setState(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) onFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalFailures++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.logger.Warn("Circuit breaker opening due to failures",
				"failure_count", cb.failureCount,
				"threshold", cb.config.FailureThreshold,
				"error", err)
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		// Any failure while probing re-opens immediately.
		cb.halfOpenRequests--
		cb.logger.Warn("Circuit breaker re-opening from half-open state", "error", err)
		cb.setState(StateOpen)
	}
}

// setState transitions between states. Caller holds the lock.
func (cb *CircuitBreaker) setState(newState CircuitBreakerState) {
	oldState := cb.state
	cb.state = newState

	switch newState {
	case StateClosed:
		cb.failureCount = 0
		cb.successCount = 0
		cb.halfOpenRequests = 0
	case StateOpen:
		cb.nextRetry = time.Now().Add(cb.config.Timeout)
		cb.successCount = 0
		cb.halfOpenRequests = 0
	case StateHalfOpen:
		cb.successCount = 0
		cb.halfOpenRequests = 0
	}

	cb.logger.Info("Circuit breaker state transition",
		"from", oldState.String(),
		"to", newState.String())
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// GetStats returns a snapshot of the counters.
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return CircuitBreakerStats{
		State:           cb.state,
		FailureCount:    cb.failureCount,
		SuccessCount:    cb.successCount,
		LastFailureTime: cb.lastFailureTime,
		LastSuccessTime: cb.lastSuccessTime,
		TotalRequests:   cb.totalRequests,
		TotalSuccesses:  cb.totalSuccesses,
		TotalFailures:   cb.totalFailures,
		TotalRejections: cb.totalRejections,
	}
}

// Reset forces the breaker back to closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.logger.Info("Resetting circuit breaker")
	cb.setState(StateClosed)
}
