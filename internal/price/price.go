// Package price holds the immutable monetary value objects attached to line
// items and carts after calculation.
package price

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/tax"
)

// ReferencePrice expresses a price per base unit for price-per-measure
// display, e.g. 1.99 per 100g.
type ReferencePrice struct {
	Price         decimal.Decimal `json:"price"`
	PurchaseUnit  decimal.Decimal `json:"purchaseUnit"`
	ReferenceUnit decimal.Decimal `json:"referenceUnit"`
	UnitName      string          `json:"unitName"`
}

// Calculated is a fully priced, tax-split monetary value. Instances are
// treated as immutable once attached to a line item or cart.
type Calculated struct {
	UnitPrice       decimal.Decimal     `json:"unitPrice"`
	TotalPrice      decimal.Decimal     `json:"totalPrice"`
	Quantity        int                 `json:"quantity"`
	CalculatedTaxes tax.CalculatedTaxes `json:"calculatedTaxes"`
	TaxRules        tax.Rules           `json:"taxRules"`
	ReferencePrice  *ReferencePrice     `json:"referencePrice,omitempty"`
}

// Equal reports whether two calculated prices are numerically identical,
// including their tax split. Used by idempotence checks.
func (c Calculated) Equal(other Calculated) bool {
	if !c.UnitPrice.Equal(other.UnitPrice) || !c.TotalPrice.Equal(other.TotalPrice) || c.Quantity != other.Quantity {
		return false
	}
	if len(c.CalculatedTaxes) != len(other.CalculatedTaxes) {
		return false
	}
	for i, t := range c.CalculatedTaxes {
		o := other.CalculatedTaxes[i]
		if !t.Rate.Equal(o.Rate) || !t.Tax.Equal(o.Tax) || !t.Price.Equal(o.Price) {
			return false
		}
	}
	return true
}
