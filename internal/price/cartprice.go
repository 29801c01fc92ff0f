package price

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/rounding"
	"github.com/noah-isme/backend-kasir/internal/tax"
)

// CartPrice aggregates every priced line item and delivery into the cart
// total.
type CartPrice struct {
	NetPrice decimal.Decimal `json:"netPrice"`
	// PositionPrice is the sum of all line item totals, without delivery.
	PositionPrice decimal.Decimal     `json:"positionPrice"`
	TotalPrice    decimal.Decimal     `json:"totalPrice"`
	CalculatedTaxes tax.CalculatedTaxes `json:"calculatedTaxes"`
	TaxStatus     tax.Status          `json:"taxStatus"`
	// RawTotal preserves the unrounded total for display when the total
	// rounding interval is coarser than the item interval.
	RawTotal decimal.Decimal `json:"rawTotal"`
}

// Aggregate merges line item prices and delivery prices into a CartPrice
// using the total rounding config. Per-item amounts are already rounded, so
// only the final total is rounded here; the pre-rounding sum survives as
// RawTotal.
func Aggregate(items []Calculated, deliveries []Calculated, status tax.Status, totalRounding rounding.Config) CartPrice {
	taxes := tax.CalculatedTaxes{}
	position := decimal.Zero
	for _, p := range items {
		position = position.Add(p.TotalPrice)
		taxes = taxes.Merge(p.CalculatedTaxes)
	}
	raw := position
	for _, d := range deliveries {
		raw = raw.Add(d.TotalPrice)
		taxes = taxes.Merge(d.CalculatedTaxes)
	}

	total := rounding.Round(raw, totalRounding)
	net := raw
	if status == tax.StatusGross {
		net = raw.Sub(taxes.TotalTax())
	}
	return CartPrice{
		NetPrice:        net,
		PositionPrice:   position,
		TotalPrice:      total,
		CalculatedTaxes: taxes,
		TaxStatus:       status,
		RawTotal:        raw,
	}
}

// Equal reports whether two cart prices are numerically identical.
func (p CartPrice) Equal(other CartPrice) bool {
	if !p.NetPrice.Equal(other.NetPrice) ||
		!p.PositionPrice.Equal(other.PositionPrice) ||
		!p.TotalPrice.Equal(other.TotalPrice) ||
		!p.RawTotal.Equal(other.RawTotal) ||
		p.TaxStatus != other.TaxStatus {
		return false
	}
	if len(p.CalculatedTaxes) != len(other.CalculatedTaxes) {
		return false
	}
	for i, t := range p.CalculatedTaxes {
		o := other.CalculatedTaxes[i]
		if !t.Rate.Equal(o.Rate) || !t.Tax.Equal(o.Tax) || !t.Price.Equal(o.Price) {
			return false
		}
	}
	return true
}
