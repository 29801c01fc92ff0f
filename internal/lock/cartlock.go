// Package lock guards cart recalculation with a Redis-backed named lock.
// Exactly one recalculation may be in flight per cart token; contending
// callers fail fast and retry at the HTTP layer.
package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrCartLocked is returned when another recalculation currently holds the
// lock for the same cart token.
var ErrCartLocked = errors.New("cart locked by concurrent recalculation")

// CartLocker acquires a per-token mutual exclusion lock. Distinct tokens
// never contend.
type CartLocker struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
	Logger zerolog.Logger
}

func (l CartLocker) key(token string) string {
	prefix := l.Prefix
	if prefix == "" {
		prefix = "cart-lock"
	}
	return prefix + ":" + token
}

func (l CartLocker) ttl() time.Duration {
	if l.TTL <= 0 {
		return 30 * time.Second
	}
	return l.TTL
}

// WithLock runs fn while holding the lock for token. Acquisition is a single
// non-blocking attempt; contention returns ErrCartLocked immediately. The
// lock is released on every exit path, including panics inside fn.
func (l CartLocker) WithLock(ctx context.Context, token string, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if token == "" {
		return errors.New("lock: cart token is required")
	}
	owner := uuid.NewString()
	ok, err := l.R.SetNX(ctx, l.key(token), owner, l.ttl()).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrCartLocked
	}
	defer l.release(context.WithoutCancel(ctx), token, owner)
	return fn(ctx)
}

func (l CartLocker) release(ctx context.Context, token, owner string) {
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`
	err := l.R.Eval(ctx, script, []string{l.key(token)}, owner).Err()
	if err == nil {
		return
	}
	if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
		err = l.R.Del(ctx, l.key(token)).Err()
		if err == nil {
			return
		}
	}
	// The lock will still expire by TTL, but until then the cart is stuck;
	// leave a trace for the incident.
	l.Logger.Error().Err(err).Str("token", token).Msg("release cart lock")
}
