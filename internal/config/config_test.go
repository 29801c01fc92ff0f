package config_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/config"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/kasir",
		"REDIS_URL":    "redis://localhost:6379/0",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, "EUR", cfg.Currency)
	require.Equal(t, 168*time.Hour, cfg.CartTTL)
	require.Equal(t, 30*time.Second, cfg.LockTTL)

	item := cfg.ItemRounding()
	require.EqualValues(t, 2, item.Decimals)
	require.True(t, item.Interval.Equal(dec("0.01")))
	require.True(t, item.RoundLineItems)

	total := cfg.TotalRounding()
	require.True(t, total.Interval.Equal(dec("0.01")))
	require.False(t, total.RoundLineItems)
}

func TestLoadCashRoundingInterval(t *testing.T) {
	env := baseEnv()
	env["TOTAL_ROUNDING_INTERVAL"] = "0.05"

	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.True(t, cfg.TotalInterval.Equal(dec("0.05")))
}

func TestLoadRejectsNegativeTotalInterval(t *testing.T) {
	env := baseEnv()
	env["TOTAL_ROUNDING_INTERVAL"] = "-0.05"

	_, err := config.LoadForTests(env)
	require.Error(t, err)
	require.Contains(t, err.Error(), "TOTAL_ROUNDING_INTERVAL")
}

func TestLoadRejectsNegativeItemDecimals(t *testing.T) {
	env := baseEnv()
	env["ITEM_ROUNDING_DECIMALS"] = "-1"

	_, err := config.LoadForTests(env)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ITEM_ROUNDING_DECIMALS")
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""

	_, err := config.LoadForTests(env)
	require.Error(t, err)
}
