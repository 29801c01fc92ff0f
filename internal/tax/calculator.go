package tax

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/rounding"
)

var hundred = decimal.NewFromInt(100)

// Calculator splits prices into per-rate tax amounts. Each split is rounded
// at item granularity; aggregates built from the result are not re-rounded.
type Calculator struct {
	Rounding rounding.Config
}

// Calculate computes the tax collection for price under the given rule set
// and status. Tax-free carts yield an empty collection. Multiple rules
// distribute the price proportionally by each rule's Percentage before the
// per-rate split; entries with equal rates are merged.
func (c Calculator) Calculate(price decimal.Decimal, rules Rules, status Status) CalculatedTaxes {
	if status == StatusTaxFree || len(rules) == 0 {
		return CalculatedTaxes{}
	}
	result := CalculatedTaxes{}
	for _, rule := range rules {
		portion := price
		if !rule.Percentage.Equal(hundred) {
			portion = price.Mul(rule.Percentage).Div(hundred)
		}
		portion = rounding.Round(portion, c.Rounding)
		entry := CalculatedTax{Rate: rule.Rate, Price: portion}
		switch status {
		case StatusGross:
			divisor := hundred.Add(rule.Rate).Div(hundred)
			net := portion.DivRound(divisor, c.Rounding.Decimals+4)
			entry.Tax = rounding.Round(portion.Sub(net), c.Rounding)
		default:
			entry.Tax = rounding.Round(portion.Mul(rule.Rate).Div(hundred), c.Rounding)
		}
		result = result.Merge(CalculatedTaxes{entry})
	}
	return result
}
