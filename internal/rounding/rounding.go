package rounding

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config describes how a monetary value is rounded.
type Config struct {
	// Decimals is the number of decimal places kept after rounding.
	Decimals int32 `json:"decimals"`
	// Interval is the rounding step. For most currencies this is the minor
	// unit (0.01); cash-rounding locales use coarser steps such as 0.05.
	Interval decimal.Decimal `json:"interval"`
	// RoundLineItems controls whether the config is applied per line item or
	// only to the cart total.
	RoundLineItems bool `json:"roundLineItems"`
}

var minorUnit = decimal.New(1, -2)

// DefaultItemConfig returns the standard two-decimal per-item rounding.
func DefaultItemConfig() Config {
	return Config{Decimals: 2, Interval: minorUnit, RoundLineItems: true}
}

// DefaultTotalConfig returns the standard two-decimal total rounding.
func DefaultTotalConfig() Config {
	return Config{Decimals: 2, Interval: minorUnit, RoundLineItems: false}
}

// Validate rejects intervals a caller must never pass into Round.
func (c Config) Validate() error {
	if c.Interval.Sign() <= 0 {
		return fmt.Errorf("rounding: interval must be positive, got %s", c.Interval)
	}
	if c.Decimals < 0 {
		return fmt.Errorf("rounding: decimals must not be negative, got %d", c.Decimals)
	}
	return nil
}

// Round applies the config to amount. Rounding is half-up on the configured
// decimals when the interval is the currency minor unit, otherwise the value
// snaps to the nearest multiple of the interval. The operation is idempotent:
// Round(Round(x)) == Round(x).
func Round(amount decimal.Decimal, cfg Config) decimal.Decimal {
	if cfg.Interval.IsZero() || cfg.Interval.Equal(minorUnit) {
		return amount.Round(cfg.Decimals)
	}
	steps := amount.Div(cfg.Interval).Round(0)
	return steps.Mul(cfg.Interval).Round(cfg.Decimals)
}
