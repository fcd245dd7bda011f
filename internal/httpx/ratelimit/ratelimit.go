// Package ratelimit holds retry and backoff policy for outbound HTTP calls.
package ratelimit

import (
	"math"
	"math/rand"
	"strconv"
	"time"
)

// Config holds retry and throttling configuration for an HTTP client.
type Config struct {
	RequestsPerSecond int `json:"requestsPerSecond"`
	MaxRetries        int `json:"maxRetries"`
	InitialBackoffMs  int `json:"initialBackoffMs"`
	MaxBackoffMs      int `json:"maxBackoffMs"`
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 5,
		MaxRetries:        3,
		InitialBackoffMs:  100,
		MaxBackoffMs:      10000,
	}
}

// RetryError is returned when all retry attempts are exhausted.
type RetryError struct {
	URL        string
	Attempts   int
	LastStatus int
	LastError  error
}

func (e *RetryError) Error() string {
	msg := "failed to fetch " + e.URL + " after " + strconv.Itoa(e.Attempts) + " attempts"
	if e.LastStatus != 0 {
		msg += " (HTTP " + strconv.Itoa(e.LastStatus) + ")"
	}
	if e.LastError != nil {
		msg += ": " + e.LastError.Error()
	}
	return msg
}

func (e *RetryError) Unwrap() error { return e.LastError }

// IsRetryableStatus reports whether an HTTP status code is worth retrying.
// Retryable: 429 and 5xx.
func IsRetryableStatus(status int) bool {
	return status == 429 || (status >= 500 && status < 600)
}

// Backoff calculates the exponential backoff delay for a given attempt,
// capped at MaxBackoffMs, with 0-25% jitter.
func Backoff(attempt int, cfg Config) time.Duration {
	delay := float64(cfg.InitialBackoffMs) * math.Pow(2.0, float64(attempt))
	delay = math.Min(delay, float64(cfg.MaxBackoffMs))
	jitter := rand.Float64() * 0.25 * delay
	return time.Duration(delay+jitter) * time.Millisecond
}
