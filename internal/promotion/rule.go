package promotion

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/cart"
)

// RuleOp is the node type of an eligibility rule tree.
type RuleOp string

const (
	// OpAnd matches when all children match.
	OpAnd RuleOp = "and"
	// OpOr matches when any child matches.
	OpOr RuleOp = "or"
	// OpNot inverts its single child.
	OpNot RuleOp = "not"
	// OpMinCartTotal matches when the goods subtotal reaches Amount.
	OpMinCartTotal RuleOp = "min-cart-total"
	// OpLineItemPayload matches when any good's payload field Key equals
	// Value. Supported keys are the discount filter keys.
	OpLineItemPayload RuleOp = "line-item-payload"
	// OpMinQuantity matches when any good reaches MinQuantity.
	OpMinQuantity RuleOp = "min-quantity"
)

// Rule is one node of an eligibility tree. A nil rule always matches.
type Rule struct {
	Op          RuleOp          `json:"op"`
	Children    []*Rule         `json:"children,omitempty"`
	Amount      decimal.Decimal `json:"amount,omitempty"`
	Key         string          `json:"key,omitempty"`
	Value       string          `json:"value,omitempty"`
	MinQuantity int             `json:"minQuantity,omitempty"`
}

// Matches evaluates the rule against the priced goods and their subtotal.
func (r *Rule) Matches(goods []*cart.LineItem, subtotal decimal.Decimal) bool {
	if r == nil {
		return true
	}
	switch r.Op {
	case OpAnd:
		for _, child := range r.Children {
			if !child.Matches(goods, subtotal) {
				return false
			}
		}
		return true
	case OpOr:
		for _, child := range r.Children {
			if child.Matches(goods, subtotal) {
				return true
			}
		}
		return false
	case OpNot:
		if len(r.Children) != 1 {
			return false
		}
		return !r.Children[0].Matches(goods, subtotal)
	case OpMinCartTotal:
		return subtotal.Cmp(r.Amount) >= 0
	case OpLineItemPayload:
		for _, item := range goods {
			if payloadMatches(item.Payload, r.Key, r.Value) {
				return true
			}
		}
		return false
	case OpMinQuantity:
		for _, item := range goods {
			if item.Quantity >= r.MinQuantity {
				return true
			}
		}
		return false
	}
	return false
}

func payloadMatches(p cart.Payload, key, value string) bool {
	switch key {
	case FilterProductNumber:
		return p.ProductNumber == value
	case FilterBrand:
		return p.BrandID == value
	case FilterCategory:
		for _, id := range p.CategoryIDs {
			if id == value {
				return true
			}
		}
		return false
	}
	if p.Extra != nil {
		if v, ok := p.Extra[key]; ok {
			if s, ok := v.(string); ok {
				return s == value
			}
		}
	}
	return false
}
