package turso

import (
	"context"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	maxAttempts = 3
	retryDelay  = 10 * time.Millisecond
)

// IsStreamError checks if an error is a Turso "stream not found" error.
func IsStreamError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "stream not found")
}

// WithRetry executes fn, retrying Turso stream errors so the connection
// pool can hand out a fresh stream.
func WithRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	return retry.DoWithData(fn,
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.Delay(retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsStreamError),
	)
}
