package task

import (
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"researchpal-backend/pkg/ratelimit"
)

func TestRetryDelaySchedule(t *testing.T) {
	task := asynq.NewTask("report:generate", nil)
	err := errors.New("upstream timeout")

	// The server reports the retried-so-far count: 0 after the first
	// failed attempt, 1 after the second.
	require.Equal(t, 2000*time.Millisecond, RetryDelay(0, err, task))
	require.Equal(t, 4000*time.Millisecond, RetryDelay(1, err, task))
	require.Equal(t, 8000*time.Millisecond, RetryDelay(2, err, task))
}

func TestRetryDelayClampsNegative(t *testing.T) {
	require.Equal(t, 2000*time.Millisecond, RetryDelay(-1, errors.New("x"), nil))
}

func TestRetryDelayRateLimited(t *testing.T) {
	limited := &ratelimit.Error{RetryIn: 42 * time.Second}
	require.Equal(t, 42*time.Second, RetryDelay(1, limited, nil))
}

func TestIsFailure(t *testing.T) {
	require.True(t, IsFailure(errors.New("upstream timeout")))
	require.False(t, IsFailure(&ratelimit.Error{RetryIn: time.Second}))
}
