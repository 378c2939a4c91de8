package task

import (
	"errors"
	"time"

	"researchpal-backend/pkg/ratelimit"

	"github.com/hibiken/asynq"
)

// Base delay for the exponential backoff schedule: 2s, 4s, 8s, ...
const retryBaseDelay = 2000 * time.Millisecond

// RetryDelay implements the queue backoff policy. Rate-limited starts are
// rescheduled after the limiter's window frees up; real failures back off
// exponentially from the base delay. The server passes n as the number of
// times the task has already been retried, so the first failure arrives with
// n == 0.
func RetryDelay(n int, err error, t *asynq.Task) time.Duration {
	var limited *ratelimit.Error
	if errors.As(err, &limited) {
		return limited.RetryIn
	}

	if n < 0 {
		n = 0
	}
	return retryBaseDelay * (1 << n)
}

// IsFailure reports whether an attempt counts against the task's retry
// budget. A rate-limited start never does.
func IsFailure(err error) bool {
	var limited *ratelimit.Error
	return !errors.As(err, &limited)
}
