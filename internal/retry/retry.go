// Package retry provides exponential-backoff retry for HTTP calls to
// out-of-process recognition servers.
package retry

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"time"
)

// Config holds the configuration for retry logic
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultConfig returns a sensible default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseDelay:       200 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// calculateDelay computes the delay for the given attempt using exponential backoff
func (c Config) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.BaseDelay) * math.Pow(c.BackoffMultiple, float64(attempt)))
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// RetryableFunc is one attempt of the operation. The status code is used by
// the error checker; pass 0 when there is no HTTP response.
type RetryableFunc func(attempt int) (statusCode int, err error)

// ErrorChecker determines if an attempt's outcome should trigger a retry.
type ErrorChecker func(err error, statusCode int) bool

// Execute runs fn until it succeeds, a non-retryable outcome occurs, the
// attempts are exhausted, or ctx is cancelled while waiting to retry.
func Execute(ctx context.Context, cfg Config, name string, shouldRetry ErrorChecker, fn RetryableFunc) error {
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := cfg.calculateDelay(attempt - 1)
			slog.Debug("retrying request", "api", name, "attempt", attempt+1, "max", cfg.MaxRetries+1, "delay", delay)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		statusCode, err := fn(attempt)

		if err == nil && statusCode < 400 {
			return nil
		}

		retryable := shouldRetry != nil && shouldRetry(err, statusCode)
		if retryable && attempt < cfg.MaxRetries {
			continue
		}

		if err != nil {
			return err
		}
		if retryable {
			// A retryable status survived every attempt.
			return &ExhaustedError{APIName: name, MaxAttempts: cfg.MaxRetries + 1, LastStatusCode: statusCode}
		}
		return &StatusError{APIName: name, StatusCode: statusCode}
	}

	// Reachable only with MaxRetries < 0, which permits no attempts at all.
	return &ExhaustedError{APIName: name, MaxAttempts: 0}
}

// StatusError reports a non-retryable HTTP error status.
type StatusError struct {
	APIName    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return e.APIName + " API returned status " + strconv.Itoa(e.StatusCode)
}

// ExhaustedError reports that a retryable status persisted through every
// allowed attempt. LastStatusCode carries the status of the final attempt.
type ExhaustedError struct {
	APIName        string
	MaxAttempts    int
	LastStatusCode int
}

func (e *ExhaustedError) Error() string {
	return "retry attempts exhausted for " + e.APIName + " API"
}
