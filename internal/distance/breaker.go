package distance

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// breakerState represents the state of the provider circuit breaker.
type breakerState int

const (
	// circuitClosed allows provider calls through.
	circuitClosed breakerState = iota

	// circuitOpen skips the provider entirely; all pairs fall back.
	circuitOpen

	// circuitHalfOpen allows a test call to check if the provider recovered.
	circuitHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case circuitClosed:
		return "closed"
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds configuration for the provider circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failed batches before
	// opening the circuit.
	MaxFailures int

	// ResetTimeout is how long to wait before attempting a test call.
	ResetTimeout time.Duration
}

// DefaultBreakerConfig returns the default circuit breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:  5,
		ResetTimeout: 30 * time.Second,
	}
}

// breaker trips after repeated provider batch failures so a dead provider
// costs one timeout, not one per batch. While open, matrix requests go
// straight to fallback synthesis.
type breaker struct {
	mu              sync.Mutex
	state           breakerState
	failureCount    int
	lastFailureTime time.Time
	config          BreakerConfig
	logger          zerolog.Logger
}

func newBreaker(config BreakerConfig, logger zerolog.Logger) *breaker {
	if config.MaxFailures <= 0 {
		config = DefaultBreakerConfig()
	}
	return &breaker{state: circuitClosed, config: config, logger: logger}
}

// allow reports whether a provider call should be attempted.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case circuitClosed:
		return true
	case circuitOpen:
		if time.Since(b.lastFailureTime) >= b.config.ResetTimeout {
			b.state = circuitHalfOpen
			b.logger.Info().Msg("distance provider breaker transitioning to half-open")
			return true
		}
		return false
	case circuitHalfOpen:
		return true
	default:
		return false
	}
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != circuitClosed {
		b.logger.Info().Msg("distance provider breaker closing after recovery")
	}
	b.state = circuitClosed
	b.failureCount = 0
}

func (b *breaker) recordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = time.Now()

	switch b.state {
	case circuitClosed:
		if b.failureCount >= b.config.MaxFailures {
			b.state = circuitOpen
			b.logger.Warn().
				Err(err).
				Int("failure_count", b.failureCount).
				Dur("reset_timeout", b.config.ResetTimeout).
				Msg("distance provider breaker opening after repeated failures")
		}
	case circuitHalfOpen:
		b.state = circuitOpen
		b.logger.Warn().Err(err).Msg("distance provider breaker re-opening after failed test call")
	}
}

func (b *breaker) currentState() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
