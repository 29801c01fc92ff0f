// Package catalog exposes the read-only product lookup consumed by the cart
// calculation pipeline. Price and tax rules arrive already resolved for the
// sales channel.
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/tax"
)

// ErrProductNotFound indicates the referenced product cannot be priced.
var ErrProductNotFound = errors.New("catalog: product not found")

// Product is the pricing-relevant slice of a catalog entry.
type Product struct {
	ID        string          `json:"id"`
	Number    string          `json:"number"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	TaxRules  tax.Rules       `json:"taxRules"`
	Available bool            `json:"available"`

	CategoryIDs []string `json:"categoryIds,omitempty"`
	BrandID     string   `json:"brandId,omitempty"`

	// Price-per-measure display data; zero values disable the reference
	// price on the line item.
	PurchaseUnit  decimal.Decimal `json:"purchaseUnit,omitempty"`
	ReferenceUnit decimal.Decimal `json:"referenceUnit,omitempty"`
	UnitName      string          `json:"unitName,omitempty"`
}

// Gateway resolves products by identifier.
type Gateway interface {
	Product(ctx context.Context, id string) (Product, error)
}

// Static is an in-memory Gateway used by tests and seeding tools.
type Static map[string]Product

// Product implements Gateway.
func (s Static) Product(_ context.Context, id string) (Product, error) {
	p, ok := s[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}
