package fetcher

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"
)

// RetryPolicy implements the retry/backoff contract from §4.1: transport
// errors and 5xx are retryable, 4xx (except 408/429) is not, and 429 honors
// Retry-After when parseable (handled by the caller before ShouldRetry runs).
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	JitterFraction float64
}

// NewRetryPolicy builds a RetryPolicy from fetcher configuration values.
func NewRetryPolicy(maxAttempts int, initial, max time.Duration, jitterFraction float64) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:    maxAttempts,
		InitialBackoff: initial,
		MaxBackoff:     max,
		Multiplier:     2.0,
		JitterFraction: jitterFraction,
	}
}

// isRetryableStatus reports whether an HTTP status is transient: 408, 429,
// and any 5xx. Transport errors are classified by isRetryableError.
func isRetryableStatus(status int) bool {
	if status == 408 || status == 429 {
		return true
	}
	return status >= 500 && status < 600
}

// ShouldRetry reports whether attempt (0-based, already performed) should be
// followed by another try, given the observed status/error.
func (p *RetryPolicy) ShouldRetry(attempt int, status int, err error) bool {
	if attempt >= p.MaxAttempts-1 {
		return false
	}
	if status > 0 {
		return isRetryableStatus(status)
	}
	return isRetryableError(err)
}

// CalculateBackoff returns the exponential backoff for the given attempt
// index, with ±JitterFraction jitter, capped at MaxBackoff.
func (p *RetryPolicy) CalculateBackoff(attempt int) time.Duration {
	backoff := float64(p.InitialBackoff) * pow(p.Multiplier, float64(attempt))
	if backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}
	jitter := backoff * p.JitterFraction * (rand.Float64()*2 - 1)
	backoff += jitter
	if backoff < 0 {
		backoff = float64(p.InitialBackoff)
	}
	return time.Duration(backoff)
}

// Sleep waits for the given backoff duration or until ctx is cancelled.
func (p *RetryPolicy) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return false
}

func pow(base, exp float64) float64 {
	result := 1.0
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	return result
}
