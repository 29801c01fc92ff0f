package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCartNotFound indicates no cart is persisted for the token.
var ErrCartNotFound = errors.New("cart not found")

// Store persists carts between requests as JSON payloads in Redis. The
// persisted state is the settled output of the last pipeline run; it is
// recalculated, never trusted, after rehydration.
type Store struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (s Store) key(token string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "cart"
	}
	return prefix + ":" + token
}

func (s Store) ttl() time.Duration {
	if s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

// Load rehydrates the cart stored for token.
func (s Store) Load(ctx context.Context, token string) (*Cart, error) {
	if s.R == nil {
		return nil, errors.New("cart store: redis client not configured")
	}
	data, err := s.R.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save persists the cart and refreshes its TTL.
func (s Store) Save(ctx context.Context, c *Cart) error {
	if s.R == nil {
		return errors.New("cart store: redis client not configured")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.R.Set(ctx, s.key(c.Token), data, s.ttl()).Err()
}

// Delete discards the persisted cart.
func (s Store) Delete(ctx context.Context, token string) error {
	if s.R == nil {
		return errors.New("cart store: redis client not configured")
	}
	return s.R.Del(ctx, s.key(token)).Err()
}
