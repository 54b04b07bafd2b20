package transport

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Policy controls WithRetry. Attempts <= 1 disables retrying.
type Policy struct {
	Attempts int
	Backoff  time.Duration // delay before the second attempt; doubles after
}

// WithRetry wraps t so that retryable failures are attempted again under p.
// Aborted fetches and client errors other than 408 and 429 are returned at once.
func WithRetry(t Transport, p Policy) Transport {
	if p.Attempts <= 1 {
		return t
	}
	return TransportFunc(func(ctx context.Context, url string, progress ProgressFunc) (*Response, error) {
		return retry(ctx, p, func() (*Response, error) {
			return t.Fetch(ctx, url, progress)
		})
	})
}

func retry[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := 0; i < p.Attempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) {
			return zero, err
		}
		if i < p.Attempts-1 {
			delay := time.Duration(1<<i) * p.Backoff
			select {
			case <-ctx.Done():
				return zero, &Error{Kind: KindAborted, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}
	}
	return zero, lastErr
}

func retryable(err error) bool {
	var te *Error
	if !errors.As(err, &te) {
		return true
	}
	switch te.Kind {
	case KindAborted:
		return false
	case KindHTTPStatus:
		if te.Status == http.StatusRequestTimeout || te.Status == http.StatusTooManyRequests {
			return true
		}
		return te.Status >= 500
	default:
		return true
	}
}
