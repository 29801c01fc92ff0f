// Package promotion implements the discount engine: eligibility matching,
// discount computation per scope, exclusivity resolution and synthetic
// discount line item injection.
package promotion

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotActive is returned when the promotion's validity window has not
	// started yet.
	ErrNotActive = errors.New("promotion not active")
	// ErrExpired is returned when the promotion's validity window has ended.
	ErrExpired = errors.New("promotion expired")
	// ErrRedemptionLimitReached indicates the global or per-customer
	// redemption quota is exhausted.
	ErrRedemptionLimitReached = errors.New("promotion redemption limit reached")
)

// Scope determines which line items a discount is computed against.
type Scope string

const (
	// ScopeCart applies the discount across all goods in the cart.
	ScopeCart Scope = "cart"
	// ScopeItemGroup applies the discount to a filtered group of line items.
	ScopeItemGroup Scope = "item-group"
)

// Kind is the discount calculation type.
type Kind string

const (
	// KindAbsolute subtracts a fixed currency value.
	KindAbsolute Kind = "absolute"
	// KindPercentage subtracts a share of the scoped subtotal.
	KindPercentage Kind = "percentage"
	// KindPriceOverride forces the scoped subtotal to a fixed value.
	KindPriceOverride Kind = "price-override"
)

// Discount filter keys understood by the advanced-rules group builder.
const (
	FilterProductNumber = "product-number"
	FilterBrand         = "brand"
	FilterCategory      = "category"
)

// Sorter keys for advanced-rules groups.
const (
	SorterPriceAsc  = "price-asc"
	SorterPriceDesc = "price-desc"
)

// Discount is one reduction a promotion grants.
type Discount struct {
	ID    string          `json:"id"`
	Scope Scope           `json:"scope"`
	Kind  Kind            `json:"kind"`
	Value decimal.Decimal `json:"value"`

	// ConsiderAdvancedRules restricts an item-group scope to the line items
	// matched by FilterKey/FilterValue, ordered by SorterKey. Empty keys
	// while the flag is set apply the discount to the entire scope
	// unfiltered; downstream totals depend on that behavior.
	ConsiderAdvancedRules bool   `json:"considerAdvancedRules"`
	FilterKey             string `json:"filterKey,omitempty"`
	FilterValue           string `json:"filterValue,omitempty"`
	SorterKey             string `json:"sorterKey,omitempty"`

	// Rule optionally gates this discount in addition to the promotion's
	// eligibility rule.
	Rule *Rule `json:"rule,omitempty"`
}

// Promotion groups one or more discounts behind shared eligibility,
// validity and redemption constraints.
type Promotion struct {
	ID   string `json:"id"`
	Code string `json:"code,omitempty"`
	Name string `json:"name"`

	ValidFrom  *time.Time `json:"validFrom,omitempty"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`

	// Exclusive promotions never combine with other exclusive promotions on
	// overlapping scope; the lower Priority value wins.
	Exclusive bool `json:"exclusive"`
	Priority  int  `json:"priority"`

	MaxRedemptions            *int `json:"maxRedemptions,omitempty"`
	MaxRedemptionsPerCustomer *int `json:"maxRedemptionsPerCustomer,omitempty"`

	// Automatic promotions apply without a code.
	Automatic bool `json:"automatic"`

	Rule      *Rule      `json:"rule,omitempty"`
	Discounts []Discount `json:"discounts"`
}

// ValidAt checks the validity window at the given instant.
func (p Promotion) ValidAt(now time.Time) error {
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return ErrNotActive
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return ErrExpired
	}
	return nil
}
