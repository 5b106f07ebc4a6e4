package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter throttles failed login attempts per email, backed by Redis so
// the counter is shared across server instances.
// Key format: login_attempts:<email>
type LoginLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewLoginLimiter creates a limiter allowing max attempts per window.
// max <= 0 disables throttling.
func NewLoginLimiter(client *redis.Client, max int, window time.Duration) *LoginLimiter {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginLimiter{client: client, max: max, window: window}
}

// Allow increments the attempt counter for email and reports whether the
// attempt may proceed. The window starts at the first attempt.
func (l *LoginLimiter) Allow(ctx context.Context, email string) (bool, error) {
	if l.max <= 0 {
		return true, nil
	}

	key := l.key(email)
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("login limiter incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("login limiter expire: %w", err)
		}
	}
	return n <= int64(l.max), nil
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	if l.max <= 0 {
		return nil
	}
	return l.client.Del(ctx, l.key(email)).Err()
}

func (l *LoginLimiter) key(email string) string {
	return fmt.Sprintf("login_attempts:%s", email)
}
