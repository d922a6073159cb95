package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	// Prefix namespaces the counter keys, normally the session key prefix.
	Prefix                string
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// KEYS[1] counter key, ARGV[1] window in milliseconds.
const incrementScript = `
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`

var incrementLua = redis.NewScript(incrementScript)

// Limiter enforces per-username and per-IP budgets of failed logins using
// Redis fixed-window counters. The window opens on the first failure and
// lasts LoginCooldownDuration.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin returns [ErrRateLimited] when either the username or, with IP
// throttling on, the client address has spent its budget.
//
//	Performance: 1 MGET.
func (l *Limiter) CheckLogin(ctx context.Context, username, ip string) error {
	keys := l.keys(username, ip)
	vals, err := l.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	for _, v := range vals {
		if l.over(parseCount(v)) {
			return ErrRateLimited
		}
	}
	return nil
}

// IncrementLogin records one failed attempt against the username and the
// client address. It returns [ErrRateLimited] once this failure exhausts
// either budget.
func (l *Limiter) IncrementLogin(ctx context.Context, username, ip string) error {
	window := l.config.LoginCooldownDuration.Milliseconds()
	limited := false
	for _, key := range l.keys(username, ip) {
		n, err := incrementLua.Run(ctx, l.redis, []string{key}, window).Int64()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if l.over(n) {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the username's counter after a successful login. The
// address counter is left to expire so one valid account cannot launder a
// spraying client.
func (l *Limiter) ResetLogin(ctx context.Context, username string) error {
	if err := l.redis.Del(ctx, l.userKey(username)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// GetLoginAttempts returns the failed attempts recorded for username in the
// current window. Missing keys return zero and do not reveal account existence.
func (l *Limiter) GetLoginAttempts(ctx context.Context, username string) (int, error) {
	count, err := l.redis.Get(ctx, l.userKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// RetryAfter returns how long until the username's window closes, or zero
// when no window is open.
func (l *Limiter) RetryAfter(ctx context.Context, username string) (time.Duration, error) {
	ttl, err := l.redis.PTTL(ctx, l.userKey(username)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (l *Limiter) over(count int64) bool {
	return count > int64(l.config.MaxLoginAttempts)
}

func (l *Limiter) keys(username, ip string) []string {
	keys := []string{l.userKey(username)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.ipKey(ip))
	}
	return keys
}

// Usernames are case-folded so "Alice" and "alice" share one budget.
func (l *Limiter) userKey(username string) string {
	return l.config.Prefix + "al:" + strings.ToLower(username)
}

func (l *Limiter) ipKey(ip string) string {
	return l.config.Prefix + "ali:" + ip
}

func parseCount(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	var n int64
	if _, err := fmt.Sscan(s, &n); err != nil {
		return 0
	}
	return n
}
