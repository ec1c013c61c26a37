package adzuna

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultBackoffs are the waits between consecutive attempts. A request is
// tried at most len(backoffs) times; the last wait is never slept.
var DefaultBackoffs = []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}

// StatusError is a non-200 reply from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return "adzuna returned " + http.StatusText(e.StatusCode) + ": " + e.Body
}

// retryDo calls fn until it succeeds, fails permanently, or the attempts
// run out.
func retryDo[T any](ctx context.Context, backoffs []time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := range backoffs {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == len(backoffs)-1 {
			break
		}
		slog.Warn("adzuna request failed, retrying",
			"component", "adzuna", "attempt", attempt+1, "wait", backoffs[attempt], "err", err)
		select {
		case <-time.After(backoffs[attempt]):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return isRetryableStatus(se.StatusCode)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
