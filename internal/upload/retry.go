package upload

import (
	"time"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// Retry defaults.
const (
	// DefaultRetries is the number of additional attempts after the
	// first failure, for 3 attempts total.
	DefaultRetries = 2

	// DefaultRetryBaseDelay is multiplied by the attempt index to get
	// the wait before each retry, so delays grow linearly.
	DefaultRetryBaseDelay = 300 * time.Millisecond
)

// backoffDelay returns the wait after the given zero-based failed
// attempt: base after the first failure, 2*base after the second.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt+1)
}

// withRetry runs fn up to 1+retries times. Validation failures are
// non-transient by construction and are never retried. Backoff waits
// are deliberately not cancellable: a caller wanting early abandonment
// lets the in-flight attempt finish.
func withRetry[T any](fn func() (T, error), retries int, baseDelay time.Duration) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if model.CodeOf(err) == model.CodeValidation {
			break
		}
		if attempt < retries {
			time.Sleep(backoffDelay(baseDelay, attempt))
		}
	}
	return zero, lastErr
}
