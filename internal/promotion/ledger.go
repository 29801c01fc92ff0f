package promotion

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Ledger provides read access to redemption counters. The engine never
// mutates counters in place; applied promotions surface as Delta values the
// caller commits asynchronously.
type Ledger interface {
	Redemptions(ctx context.Context, promotionID string) (int, error)
	CustomerRedemptions(ctx context.Context, promotionID, customerID string) (int, error)
}

// Delta records one redemption produced by an applied promotion.
type Delta struct {
	PromotionID string `json:"promotionId"`
	Code        string `json:"code,omitempty"`
	CustomerID  string `json:"customerId,omitempty"`
	CartToken   string `json:"cartToken"`
}

// RedisLedger stores redemption counters in Redis hashes.
type RedisLedger struct {
	R      *redis.Client
	Prefix string
}

func (l RedisLedger) prefix() string {
	if l.Prefix == "" {
		return "promotion"
	}
	return l.Prefix
}

func (l RedisLedger) globalKey() string {
	return l.prefix() + ":redemptions"
}

func (l RedisLedger) customerKey(customerID string) string {
	return fmt.Sprintf("%s:redemptions:customer:%s", l.prefix(), customerID)
}

// Redemptions implements Ledger.
func (l RedisLedger) Redemptions(ctx context.Context, promotionID string) (int, error) {
	if l.R == nil {
		return 0, errors.New("ledger: redis client not configured")
	}
	count, err := l.R.HGet(ctx, l.globalKey(), promotionID).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// CustomerRedemptions implements Ledger.
func (l RedisLedger) CustomerRedemptions(ctx context.Context, promotionID, customerID string) (int, error) {
	if l.R == nil {
		return 0, errors.New("ledger: redis client not configured")
	}
	if customerID == "" {
		return 0, nil
	}
	count, err := l.R.HGet(ctx, l.customerKey(customerID), promotionID).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// Commit applies a delta to the counters. Called by the redemption worker.
func (l RedisLedger) Commit(ctx context.Context, d Delta) error {
	if l.R == nil {
		return errors.New("ledger: redis client not configured")
	}
	pipe := l.R.TxPipeline()
	pipe.HIncrBy(ctx, l.globalKey(), d.PromotionID, 1)
	if d.CustomerID != "" {
		pipe.HIncrBy(ctx, l.customerKey(d.CustomerID), d.PromotionID, 1)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// MemoryLedger is an in-process Ledger for tests.
type MemoryLedger struct {
	Global   map[string]int
	Customer map[string]map[string]int
}

// NewMemoryLedger constructs an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		Global:   map[string]int{},
		Customer: map[string]map[string]int{},
	}
}

// Redemptions implements Ledger.
func (l *MemoryLedger) Redemptions(_ context.Context, promotionID string) (int, error) {
	return l.Global[promotionID], nil
}

// CustomerRedemptions implements Ledger.
func (l *MemoryLedger) CustomerRedemptions(_ context.Context, promotionID, customerID string) (int, error) {
	return l.Customer[customerID][promotionID], nil
}

// Commit applies a delta in place.
func (l *MemoryLedger) Commit(_ context.Context, d Delta) error {
	l.Global[d.PromotionID]++
	if d.CustomerID != "" {
		if l.Customer[d.CustomerID] == nil {
			l.Customer[d.CustomerID] = map[string]int{}
		}
		l.Customer[d.CustomerID][d.PromotionID]++
	}
	return nil
}
