package promotion

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

// TypeRedemptionCommit is the asynq task type carrying one redemption delta.
const TypeRedemptionCommit = "promotion:redeem"

// NewRedemptionTask wraps a delta for the task queue.
func NewRedemptionTask(d Delta) (*asynq.Task, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRedemptionCommit, payload, asynq.MaxRetry(5)), nil
}

// RedemptionCommitter applies queued redemption deltas to the ledger.
type RedemptionCommitter struct {
	Ledger RedisLedger
}

// ProcessTask implements asynq.Handler.
func (c RedemptionCommitter) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var d Delta
	if err := json.Unmarshal(t.Payload(), &d); err != nil {
		return errors.Join(err, asynq.SkipRetry)
	}
	if d.PromotionID == "" {
		return asynq.SkipRetry
	}
	return c.Ledger.Commit(ctx, d)
}
