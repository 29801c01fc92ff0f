package cart

import (
	"github.com/noah-isme/backend-kasir/internal/rounding"
	"github.com/noah-isme/backend-kasir/internal/tax"
)

// Context carries the per-session calculation parameters. It is resolved by
// the caller (currency, locale, channel) before any pipeline run.
type Context struct {
	Currency       string          `json:"currency"`
	TaxStatus      tax.Status      `json:"taxStatus"`
	ItemRounding   rounding.Config `json:"itemRounding"`
	TotalRounding  rounding.Config `json:"totalRounding"`
	CustomerID     string          `json:"customerId,omitempty"`
	SalesChannelID string          `json:"salesChannelId,omitempty"`
}

// DefaultContext returns a gross-price context with standard two-decimal
// rounding.
func DefaultContext(currency string) Context {
	return Context{
		Currency:      currency,
		TaxStatus:     tax.StatusGross,
		ItemRounding:  rounding.DefaultItemConfig(),
		TotalRounding: rounding.DefaultTotalConfig(),
	}
}
