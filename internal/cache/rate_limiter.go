package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// Window is one fixed-window limit, e.g. 30 requests per minute.
type Window struct {
	Limit  int64
	Period time.Duration
}

// Decision is the outcome of a rate check. RetryAfter is set when denied.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter counts requests per subject in Redis fixed windows.
type RateLimiter struct {
	client  *redisv9.Client
	prefix  string
	windows []Window
	now     func() time.Time
}

func NewRateLimiter(client *redisv9.Client, prefix string, windows ...Window) *RateLimiter {
	return &RateLimiter{
		client:  client,
		prefix:  prefix,
		windows: windows,
		now:     time.Now,
	}
}

// Allow increments every window for the subject and denies if any is over its
// limit. Errors are returned to the caller, which decides to fail open.
func (l *RateLimiter) Allow(ctx context.Context, subject string) (Decision, error) {
	if l.client == nil {
		return Decision{Allowed: true}, nil
	}

	now := l.now()
	pipe := l.client.TxPipeline()
	counters := make([]*redisv9.IntCmd, len(l.windows))
	for i, w := range l.windows {
		key := l.windowKey(subject, w, now)
		counters[i] = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, w.Period)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Allowed: true}, fmt.Errorf("rate limit pipeline failed: %w", err)
	}

	for i, w := range l.windows {
		if counters[i].Val() > w.Limit {
			return Decision{Allowed: false, RetryAfter: untilNextWindow(now, w.Period)}, nil
		}
	}
	return Decision{Allowed: true}, nil
}

func (l *RateLimiter) windowKey(subject string, w Window, now time.Time) string {
	bucket := now.Unix() / int64(w.Period/time.Second)
	return fmt.Sprintf("%s:%s:%d:%d", l.prefix, subject, int64(w.Period/time.Second), bucket)
}

func untilNextWindow(now time.Time, period time.Duration) time.Duration {
	elapsed := time.Duration(now.UnixNano() % int64(period))
	return period - elapsed
}
