package k8s

import (
	"context"
	"errors"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

const (
	retryAttempts  = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// isRetryable returns true for 5xx and 429 (too many requests). Transient
// API-server pressure should not surface as a hard failure to callers.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if apierrors.IsTooManyRequests(err) || apierrors.IsInternalError(err) || apierrors.IsServerTimeout(err) {
		return true
	}
	var se *apierrors.StatusError
	if errors.As(err, &se) && se.ErrStatus.Code >= 500 {
		return true
	}
	return false
}

// retryBackoff returns the delay before the given 0-based attempt;
// exponential with a cap.
func retryBackoff(attempt int) time.Duration {
	d := initialBackoff
	for i := 0; i < attempt && d < maxBackoff; i++ {
		d *= 3
		if d > maxBackoff {
			d = maxBackoff
		}
	}
	return d
}

// RetryValue runs fn up to retryAttempts times, retrying 5xx/429 with
// backoff. Non-retryable errors return immediately.
func RetryValue[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		val, err := fn()
		if err == nil {
			return val, nil
		}
		lastErr = err
		if attempt == retryAttempts-1 || !isRetryable(err) {
			return zero, err
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(retryBackoff(attempt)):
		}
	}
	return zero, lastErr
}
