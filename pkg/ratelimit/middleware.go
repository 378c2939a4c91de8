package ratelimit

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Middleware gates job starts behind the limiter. Redis errors fail open so a
// limiter outage cannot stall the queue.
func Middleware(l Limiter) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			retryIn, err := l.Take(ctx)
			if err != nil {
				zap.L().Warn("rate limiter unavailable, admitting job", zap.String("task_type", t.Type()), zap.Error(err))
				return next.ProcessTask(ctx, t)
			}

			if retryIn > 0 {
				return &Error{RetryIn: retryIn}
			}

			return next.ProcessTask(ctx, t)
		})
	}
}
