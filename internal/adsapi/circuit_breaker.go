package adsapi

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CircuitBreaker stops calls to the ads API while it keeps failing
type CircuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration
	logger           zerolog.Logger
	now              func() time.Time

	failures            int
	successes           int
	totalRequests       int
	consecutiveFailures int
	isOpen              bool
	lastFailureTime     time.Time

	mutex sync.Mutex
}

// BreakerStatus is a point-in-time view of the breaker
type BreakerStatus struct {
	Open          bool `json:"open"`
	Failures      int  `json:"failures"`
	TotalRequests int  `json:"total_requests"`
}

// NewCircuitBreaker creates a new circuit breaker. The breaker opens after
// failureThreshold consecutive failures, or when at least 40% of 20 or more
// requests failed.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration, logger zerolog.Logger) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		logger:           logger,
		now:              time.Now,
	}
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.successes++
	cb.totalRequests++
	cb.consecutiveFailures = 0
}

// RecordFailure records a failed request. statusCode is 0 for transport errors.
func (cb *CircuitBreaker) RecordFailure(statusCode int) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.consecutiveFailures++
	cb.totalRequests++
	cb.lastFailureTime = cb.now()

	if cb.consecutiveFailures >= cb.failureThreshold {
		cb.isOpen = true
		cb.logger.Warn().
			Int("consecutive_failures", cb.consecutiveFailures).
			Int("status", statusCode).
			Dur("reset_after", cb.resetTimeout).
			Msg("circuit breaker open: ads API keeps failing")
		return
	}

	if cb.totalRequests >= 20 {
		failureRate := float64(cb.failures) / float64(cb.totalRequests)
		if failureRate >= 0.40 {
			cb.isOpen = true
			cb.logger.Warn().
				Float64("failure_rate", failureRate).
				Int("failures", cb.failures).
				Int("total", cb.totalRequests).
				Msg("circuit breaker open: failure rate too high")
		}
	}
}

// CanProceed checks if requests are allowed
func (cb *CircuitBreaker) CanProceed() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if !cb.isOpen {
		return true
	}

	if cb.now().Sub(cb.lastFailureTime) > cb.resetTimeout {
		cb.logger.Info().Dur("after", cb.resetTimeout).Msg("circuit breaker half-open")
		cb.isOpen = false
		cb.failures = 0
		cb.successes = 0
		cb.totalRequests = 0
		cb.consecutiveFailures = 0
		return true
	}

	return false
}

// Status returns current circuit breaker status
func (cb *CircuitBreaker) Status() BreakerStatus {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return BreakerStatus{
		Open:          cb.isOpen,
		Failures:      cb.failures,
		TotalRequests: cb.totalRequests,
	}
}
