package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Error signals a deferred job start. The task server treats it as a
// reschedule, not a failure, so a deferred start never consumes retry budget.
type Error struct {
	RetryIn time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryIn)
}

// Limiter admits work within a rolling window. Take returns a zero duration
// when the caller may proceed, or the time to wait before trying again.
type Limiter interface {
	Take(ctx context.Context) (time.Duration, error)
}

// SlidingWindow is a Redis-backed Limiter: each admitted start is a member of
// a sorted set scored by its start time in milliseconds, so the admitted
// count over the trailing window is exact rather than bucketed.
type SlidingWindow struct {
	rdb    *redis.Client
	key    string
	limit  int
	window time.Duration
}

func NewSlidingWindow(rdb *redis.Client, key string, limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		rdb:    rdb,
		key:    key,
		limit:  limit,
		window: window,
	}
}

// admitScript trims expired starts, counts the rest and admits the caller as
// one atomic step, so concurrent takers cannot jointly exceed the limit.
// Replies -1 when admitted, otherwise the score of the oldest start still in
// the window.
var admitScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, ARGV[1])
if redis.call('ZCARD', KEYS[1]) < tonumber(ARGV[2]) then
	redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
	redis.call('PEXPIRE', KEYS[1], ARGV[5])
	return -1
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
if #oldest == 0 then
	return 0
end
return oldest[2]
`)

func (l *SlidingWindow) Take(ctx context.Context) (time.Duration, error) {
	now := time.Now()
	cutoff := now.Add(-l.window).UnixMilli()
	member := fmt.Sprintf("%d-%d", now.UnixNano(), rand.Int63())

	res, err := admitScript.Run(ctx, l.rdb, []string{l.key},
		cutoff,
		l.limit,
		now.UnixMilli(),
		member,
		l.window.Milliseconds(),
	).Result()
	if err != nil {
		return 0, err
	}

	switch v := res.(type) {
	case int64:
		if v < 0 {
			return 0, nil
		}
		return l.window, nil
	case string:
		oldest, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("unexpected limiter reply %q: %w", v, err)
		}
		return l.waitFor(int64(oldest), now), nil
	default:
		return 0, fmt.Errorf("unexpected limiter reply type %T", res)
	}
}

// waitFor computes how long until the oldest admitted start ages out of the
// window.
func (l *SlidingWindow) waitFor(oldestMilli int64, now time.Time) time.Duration {
	elapsed := now.Sub(time.UnixMilli(oldestMilli))
	if wait := l.window - elapsed; wait > 0 {
		return wait
	}
	return l.window
}
