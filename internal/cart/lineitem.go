package cart

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/price"
	"github.com/noah-isme/backend-kasir/internal/tax"
)

// ItemType classifies a line item node.
type ItemType string

const (
	// ItemTypeProduct is a purchasable catalog item.
	ItemTypeProduct ItemType = "product"
	// ItemTypeDiscount is a synthetic negative-priced item injected by the
	// promotion engine.
	ItemTypeDiscount ItemType = "promotion-discount"
	// ItemTypeCustom is a caller-defined priced item.
	ItemTypeCustom ItemType = "custom"
	// ItemTypeContainer groups child line items; its price is the sum of its
	// children.
	ItemTypeContainer ItemType = "container"
)

// ErrNegativeQuantity is returned for malformed quantity input. It aborts the
// mutation instead of degrading the cart.
var ErrNegativeQuantity = errors.New("cart: line item quantity must not be negative")

// Payload carries the data discount filters match against. Known filter
// fields are typed; Extra keeps forward-compatible extension fields.
type Payload struct {
	ProductNumber string          `json:"productNumber,omitempty"`
	CategoryIDs   []string        `json:"categoryIds,omitempty"`
	BrandID       string          `json:"brandId,omitempty"`
	ListPrice     decimal.Decimal `json:"listPrice,omitempty"`
	Extra         map[string]any  `json:"extra,omitempty"`
}

// PriceDefinition is the pre-calculation pricing input of a line item. The
// pipeline turns it into a price.Calculated.
type PriceDefinition struct {
	UnitPrice decimal.Decimal `json:"unitPrice"`
	TaxRules  tax.Rules       `json:"taxRules"`

	// Price-per-measure display data. Both units must be positive for a
	// reference price to be calculated.
	PurchaseUnit  decimal.Decimal `json:"purchaseUnit,omitempty"`
	ReferenceUnit decimal.Decimal `json:"referenceUnit,omitempty"`
	UnitName      string          `json:"unitName,omitempty"`
}

// LineItem is one node of the cart's ordered, non-cyclic content tree.
type LineItem struct {
	ID           string            `json:"id"`
	Type         ItemType          `json:"type"`
	ReferencedID string            `json:"referencedId,omitempty"`
	Label        string            `json:"label"`
	Quantity     int               `json:"quantity"`
	Definition   *PriceDefinition  `json:"definition,omitempty"`
	Price        *price.Calculated `json:"price,omitempty"`
	Children     []*LineItem       `json:"children,omitempty"`
	Payload      Payload           `json:"payload,omitempty"`
	Removable    bool              `json:"removable"`
	Stackable    bool              `json:"stackable"`
}

// NewProductItem builds an unpriced product line item referencing a catalog
// product.
func NewProductItem(productID string, quantity int) (*LineItem, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeQuantity, quantity)
	}
	return &LineItem{
		ID:           uuid.NewString(),
		Type:         ItemTypeProduct,
		ReferencedID: productID,
		Quantity:     quantity,
		Removable:    true,
		Stackable:    true,
	}, nil
}

// IsGood reports whether the item contributes positively to the position
// price, i.e. is a valid discount scope member.
func (l *LineItem) IsGood() bool {
	return l.Type == ItemTypeProduct || l.Type == ItemTypeCustom
}

// Flat returns the item and all descendants in depth-first order.
func (l *LineItem) Flat() []*LineItem {
	out := []*LineItem{l}
	for _, child := range l.Children {
		out = append(out, child.Flat()...)
	}
	return out
}
