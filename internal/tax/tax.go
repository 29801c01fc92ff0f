package tax

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Status describes how prices relate to tax.
type Status string

const (
	// StatusGross means prices include tax.
	StatusGross Status = "gross"
	// StatusNet means prices exclude tax.
	StatusNet Status = "net"
	// StatusTaxFree means no tax applies at all.
	StatusTaxFree Status = "tax-free"
)

// Rule ties a tax rate to the share of the price it covers.
type Rule struct {
	// Rate is the tax rate in percent, e.g. 19 for 19%.
	Rate decimal.Decimal `json:"rate"`
	// Percentage is the share of the price this rule covers, in percent.
	// A single-rule set normally carries 100. Shares that do not sum to 100
	// are accepted; the remainder stays untaxed.
	Percentage decimal.Decimal `json:"percentage"`
}

// Rules is an ordered tax rule set.
type Rules []Rule

// SingleRule builds a rule set with one rate covering the full price.
func SingleRule(rate decimal.Decimal) Rules {
	return Rules{{Rate: rate, Percentage: decimal.NewFromInt(100)}}
}

// CalculatedTax holds the tax amount computed for one rate.
type CalculatedTax struct {
	// Tax is the tax amount.
	Tax decimal.Decimal `json:"tax"`
	// Rate is the tax rate in percent.
	Rate decimal.Decimal `json:"rate"`
	// Price is the (gross or net, depending on status) portion the tax was
	// computed from.
	Price decimal.Decimal `json:"price"`
}

// CalculatedTaxes aggregates per-rate tax entries, one entry per distinct rate.
type CalculatedTaxes []CalculatedTax

// TotalTax sums the tax amounts of all entries.
func (c CalculatedTaxes) TotalTax() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range c {
		sum = sum.Add(t.Tax)
	}
	return sum
}

// TotalPrice sums the price portions of all entries.
func (c CalculatedTaxes) TotalPrice() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range c {
		sum = sum.Add(t.Price)
	}
	return sum
}

// Merge combines two collections, summing entries with the same rate.
func (c CalculatedTaxes) Merge(other CalculatedTaxes) CalculatedTaxes {
	byRate := make(map[string]CalculatedTax, len(c)+len(other))
	order := make([]string, 0, len(c)+len(other))
	add := func(t CalculatedTax) {
		key := t.Rate.String()
		if existing, ok := byRate[key]; ok {
			existing.Tax = existing.Tax.Add(t.Tax)
			existing.Price = existing.Price.Add(t.Price)
			byRate[key] = existing
			return
		}
		byRate[key] = t
		order = append(order, key)
	}
	for _, t := range c {
		add(t)
	}
	for _, t := range other {
		add(t)
	}
	merged := make(CalculatedTaxes, 0, len(order))
	for _, key := range order {
		merged = append(merged, byRate[key])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Rate.Cmp(merged[j].Rate) < 0
	})
	return merged
}
