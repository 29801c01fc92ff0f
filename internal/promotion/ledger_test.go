package promotion

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testLedger(t *testing.T) RedisLedger {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return RedisLedger{R: client}
}

func TestRedisLedgerCountersStartAtZero(t *testing.T) {
	ledger := testLedger(t)
	ctx := context.Background()

	count, err := ledger.Redemptions(ctx, "promo-1")
	require.NoError(t, err)
	require.Zero(t, count)

	count, err = ledger.CustomerRedemptions(ctx, "promo-1", "cust-1")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestRedisLedgerCommit(t *testing.T) {
	ledger := testLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Commit(ctx, Delta{PromotionID: "promo-1", CustomerID: "cust-1", CartToken: "tok"}))
	require.NoError(t, ledger.Commit(ctx, Delta{PromotionID: "promo-1", CartToken: "tok2"}))

	count, err := ledger.Redemptions(ctx, "promo-1")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = ledger.CustomerRedemptions(ctx, "promo-1", "cust-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// Anonymous commits never touch a customer counter.
	count, err = ledger.CustomerRedemptions(ctx, "promo-1", "")
	require.NoError(t, err)
	require.Zero(t, count)
}
