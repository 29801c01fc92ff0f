package promotion

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/tax"
)

var hundred = decimal.NewFromInt(100)

// Engine evaluates promotions against a priced cart and injects synthetic
// discount line items. Each promotion walks
// candidate → rule matched/rejected → applied/clipped → recorded.
type Engine struct {
	Ledger Ledger
	Logger zerolog.Logger
	Now    func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Apply evaluates promotions against the cart's priced goods. Injected
// discount items carry only a price definition; the pipeline prices them in
// a restricted re-run. The returned deltas record redemptions for
// asynchronous ledger commits.
func (e *Engine) Apply(ctx context.Context, c *cart.Cart, cctx cart.Context, promotions []Promotion) ([]Delta, error) {
	goods := pricedGoods(c)
	if len(goods) == 0 {
		return nil, nil
	}

	// Remaining value per good; discounts consume it so later discounts clip
	// against what is actually left, never driving a scope negative.
	remaining := make(map[string]decimal.Decimal, len(goods))
	for _, item := range goods {
		remaining[item.ID] = item.Price.TotalPrice
	}

	ordered := make([]Promotion, len(promotions))
	copy(ordered, promotions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	now := e.now()
	var deltas []Delta
	var exclusiveScopes [][]string

	for _, promo := range ordered {
		if err := promo.ValidAt(now); err != nil {
			e.Logger.Debug().Str("promotion", promo.ID).Err(err).Msg("promotion outside validity window")
			continue
		}
		ok, err := e.redemptionAvailable(ctx, promo, cctx.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("promotion %s: check redemptions: %w", promo.ID, err)
		}
		if !ok {
			// Limit violations reject silently at matching time.
			continue
		}
		subtotal := sumRemaining(goods, remaining)
		if !promo.Rule.Matches(goods, subtotal) {
			continue
		}

		scope := e.promotionScope(promo, goods)
		if promo.Exclusive {
			if overlapsAny(scope, exclusiveScopes) {
				c.AddNotice(cart.Notice{
					Level:     cart.LevelInfo,
					Code:      cart.CodePromotionExcluded,
					Message:   fmt.Sprintf("Promotion %q was not applied, it conflicts with an exclusive promotion", promo.Name),
					Reference: promo.ID,
				})
				continue
			}
		}

		applied := false
		for _, discount := range promo.Discounts {
			if !discount.Rule.Matches(goods, sumRemaining(goods, remaining)) {
				continue
			}
			group := e.discountGroup(discount, goods)
			if len(group) == 0 {
				continue
			}
			amount := e.discountAmount(discount, group, remaining)
			if amount.Sign() <= 0 {
				continue
			}
			e.consume(group, remaining, amount)
			c.LineItems = append(c.LineItems, discountLineItem(promo, discount, amount, group))
			applied = true
		}
		if !applied {
			continue
		}
		if promo.Exclusive {
			exclusiveScopes = append(exclusiveScopes, scope)
		}
		c.AddNotice(cart.Notice{
			Level:     cart.LevelInfo,
			Code:      cart.CodePromotionAdded,
			Message:   fmt.Sprintf("Promotion %q has been added", promo.Name),
			Reference: promo.ID,
		})
		deltas = append(deltas, Delta{
			PromotionID: promo.ID,
			Code:        promo.Code,
			CustomerID:  cctx.CustomerID,
			CartToken:   c.Token,
		})
	}
	return deltas, nil
}

func (e *Engine) redemptionAvailable(ctx context.Context, promo Promotion, customerID string) (bool, error) {
	if e.Ledger == nil {
		return true, nil
	}
	if promo.MaxRedemptions != nil {
		used, err := e.Ledger.Redemptions(ctx, promo.ID)
		if err != nil {
			return false, err
		}
		if used >= *promo.MaxRedemptions {
			return false, nil
		}
	}
	if promo.MaxRedemptionsPerCustomer != nil && customerID != "" {
		used, err := e.Ledger.CustomerRedemptions(ctx, promo.ID, customerID)
		if err != nil {
			return false, err
		}
		if used >= *promo.MaxRedemptionsPerCustomer {
			return false, nil
		}
	}
	return true, nil
}

// promotionScope is the union of the item IDs all of the promotion's
// discounts would touch; used for exclusivity overlap checks.
func (e *Engine) promotionScope(promo Promotion, goods []*cart.LineItem) []string {
	seen := map[string]bool{}
	var scope []string
	for _, discount := range promo.Discounts {
		for _, item := range e.discountGroup(discount, goods) {
			if !seen[item.ID] {
				seen[item.ID] = true
				scope = append(scope, item.ID)
			}
		}
	}
	return scope
}

// discountGroup resolves the line items a discount is computed against. A
// set filter that is configured but empty applies to the entire scope; that
// degenerate case is intentional and must not be treated as an error.
func (e *Engine) discountGroup(d Discount, goods []*cart.LineItem) []*cart.LineItem {
	if d.Scope != ScopeItemGroup || !d.ConsiderAdvancedRules || d.FilterKey == "" {
		group := make([]*cart.LineItem, len(goods))
		copy(group, goods)
		sortGroup(group, d.SorterKey)
		return group
	}
	var group []*cart.LineItem
	for _, item := range goods {
		if payloadMatches(item.Payload, d.FilterKey, d.FilterValue) {
			group = append(group, item)
		}
	}
	sortGroup(group, d.SorterKey)
	return group
}

func sortGroup(group []*cart.LineItem, sorter string) {
	switch sorter {
	case SorterPriceAsc:
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Price.TotalPrice.Cmp(group[j].Price.TotalPrice) < 0
		})
	case SorterPriceDesc:
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Price.TotalPrice.Cmp(group[j].Price.TotalPrice) > 0
		})
	}
}

// discountAmount computes the raw discount and clips it to the remaining
// scoped subtotal so the resulting total never turns negative.
func (e *Engine) discountAmount(d Discount, group []*cart.LineItem, remaining map[string]decimal.Decimal) decimal.Decimal {
	scoped := sumRemaining(group, remaining)
	if scoped.Sign() <= 0 {
		return decimal.Zero
	}
	var amount decimal.Decimal
	switch d.Kind {
	case KindPercentage:
		amount = scoped.Mul(d.Value).Div(hundred)
	case KindPriceOverride:
		amount = scoped.Sub(d.Value)
	default:
		amount = d.Value
	}
	if amount.Cmp(scoped) > 0 {
		amount = scoped
	}
	if amount.Sign() < 0 {
		return decimal.Zero
	}
	return amount
}

// consume reduces each group member's remaining value proportionally.
func (e *Engine) consume(group []*cart.LineItem, remaining map[string]decimal.Decimal, amount decimal.Decimal) {
	scoped := sumRemaining(group, remaining)
	if scoped.Sign() <= 0 {
		return
	}
	for _, item := range group {
		share := remaining[item.ID].Div(scoped).Mul(amount)
		remaining[item.ID] = remaining[item.ID].Sub(share)
	}
}

// discountLineItem builds the synthetic negative item. Its tax rules are
// weighted by each rate's share of the scoped subtotal so the discount's tax
// split mirrors the goods it reduces.
func discountLineItem(promo Promotion, d Discount, amount decimal.Decimal, group []*cart.LineItem) *cart.LineItem {
	return &cart.LineItem{
		ID:           uuid.NewString(),
		Type:         cart.ItemTypeDiscount,
		ReferencedID: promo.ID,
		Label:        promo.Name,
		Quantity:     1,
		Removable:    true,
		Definition: &cart.PriceDefinition{
			UnitPrice: amount.Neg(),
			TaxRules:  weightedTaxRules(group),
		},
	}
}

func weightedTaxRules(group []*cart.LineItem) tax.Rules {
	total := decimal.Zero
	byRate := map[string]decimal.Decimal{}
	var order []decimal.Decimal
	for _, item := range group {
		for _, t := range item.Price.CalculatedTaxes {
			key := t.Rate.String()
			if _, ok := byRate[key]; !ok {
				order = append(order, t.Rate)
			}
			byRate[key] = byRate[key].Add(t.Price)
			total = total.Add(t.Price)
		}
	}
	if total.Sign() <= 0 {
		return nil
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].Cmp(order[j]) < 0 })
	rules := make(tax.Rules, 0, len(order))
	for _, rate := range order {
		share := byRate[rate.String()].Div(total).Mul(hundred)
		rules = append(rules, tax.Rule{Rate: rate, Percentage: share})
	}
	return rules
}

func pricedGoods(c *cart.Cart) []*cart.LineItem {
	var goods []*cart.LineItem
	for _, item := range c.FlatItems() {
		if item.IsGood() && item.Price != nil {
			goods = append(goods, item)
		}
	}
	return goods
}

func sumRemaining(items []*cart.LineItem, remaining map[string]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(remaining[item.ID])
	}
	return sum
}

func overlapsAny(scope []string, applied [][]string) bool {
	if len(applied) == 0 {
		return false
	}
	set := make(map[string]bool, len(scope))
	for _, id := range scope {
		set[id] = true
	}
	for _, other := range applied {
		for _, id := range other {
			if set[id] {
				return true
			}
		}
	}
	return false
}
