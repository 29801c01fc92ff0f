package calculation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/promotion"
	"github.com/noah-isme/backend-kasir/internal/shipping"
	"github.com/noah-isme/backend-kasir/internal/tax"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testCatalog() catalog.Static {
	return catalog.Static{
		"p1": {
			ID: "p1", Number: "SW100", Name: "Standard widget",
			UnitPrice: dec("100.00"), TaxRules: tax.SingleRule(dec("10")),
			Available: true, BrandID: "brand-a",
		},
		"p2": {
			ID: "p2", Number: "SW200", Name: "Premium widget",
			UnitPrice: dec("21.40"), TaxRules: tax.SingleRule(dec("19")),
			Available: true, BrandID: "brand-b",
		},
		"p3": {
			ID: "p3", Number: "SW300", Name: "Widget polish 500g",
			UnitPrice: dec("9.95"), TaxRules: tax.SingleRule(dec("19")),
			Available: true, BrandID: "brand-a",
			PurchaseUnit: dec("500"), ReferenceUnit: dec("100"), UnitName: "g",
		},
	}
}

func newCalculator(promos ...promotion.Promotion) *Calculator {
	return &Calculator{
		Catalog:    testCatalog(),
		Promotions: promotion.StaticGateway{Promotions: promos},
		Shipping: shipping.StaticResolver{
			"standard": {MethodID: "standard", Amount: dec("4.90"), TaxRules: tax.SingleRule(dec("10"))},
		},
		Engine: &promotion.Engine{Ledger: promotion.NewMemoryLedger()},
	}
}

func cartWithProduct(t *testing.T, productID string, qty int) *cart.Cart {
	t.Helper()
	c := cart.New()
	item, err := cart.NewProductItem(productID, qty)
	require.NoError(t, err)
	c.LineItems = append(c.LineItems, item)
	return c
}

func absolutePromotion(id, code string, value string, priority int, exclusive bool) promotion.Promotion {
	return promotion.Promotion{
		ID: id, Code: code, Name: "Promo " + id,
		Priority: priority, Exclusive: exclusive,
		Discounts: []promotion.Discount{
			{ID: id + "-d1", Scope: promotion.ScopeCart, Kind: promotion.KindAbsolute, Value: dec(value)},
		},
	}
}

func TestCalculateSingleItemGrossTax(t *testing.T) {
	calc := newCalculator()
	c := cartWithProduct(t, "p1", 1)

	_, err := calc.Calculate(context.Background(), c, cart.DefaultContext("EUR"))
	require.NoError(t, err)

	require.Len(t, c.LineItems, 1)
	p := c.LineItems[0].Price
	require.NotNil(t, p)
	require.True(t, p.TotalPrice.Equal(dec("100.00")))
	require.Len(t, p.CalculatedTaxes, 1)
	require.True(t, p.CalculatedTaxes[0].Rate.Equal(dec("10")))
	require.True(t, p.CalculatedTaxes[0].Tax.Equal(dec("9.09")), "tax = %s", p.CalculatedTaxes[0].Tax)
	require.True(t, p.CalculatedTaxes[0].Price.Equal(dec("100.00")))
	require.True(t, c.Price.NetPrice.Equal(dec("90.91")), "net = %s", c.Price.NetPrice)
}

func TestCalculateReferencePricePerMeasure(t *testing.T) {
	calc := newCalculator()
	c := cartWithProduct(t, "p3", 2)

	_, err := calc.Calculate(context.Background(), c, cart.DefaultContext("EUR"))
	require.NoError(t, err)

	require.Len(t, c.LineItems, 1)
	ref := c.LineItems[0].Price.ReferencePrice
	require.NotNil(t, ref)
	// 9.95 per 500g comes out as 1.99 per 100g.
	require.True(t, ref.Price.Equal(dec("1.99")), "reference price = %s", ref.Price)
	require.True(t, ref.PurchaseUnit.Equal(dec("500")))
	require.True(t, ref.ReferenceUnit.Equal(dec("100")))
	require.Equal(t, "g", ref.UnitName)

	// Products without unit measures stay without a reference price.
	plain := cartWithProduct(t, "p1", 1)
	_, err = calc.Calculate(context.Background(), plain, cart.DefaultContext("EUR"))
	require.NoError(t, err)
	require.Nil(t, plain.LineItems[0].Price.ReferencePrice)
}

func TestCalculateAbsoluteCartDiscount(t *testing.T) {
	calc := newCalculator(absolutePromotion("promo-1", "SAVE5", "5.00", 1, false))
	c := cartWithProduct(t, "p1", 1)
	c.PromotionCodes = []string{"SAVE5"}

	deltas, err := calc.Calculate(context.Background(), c, cart.DefaultContext("EUR"))
	require.NoError(t, err)

	require.True(t, c.Price.TotalPrice.Equal(dec("95.00")), "total = %s", c.Price.TotalPrice)
	require.Len(t, c.LineItems, 2)
	discount := c.LineItems[1]
	require.Equal(t, cart.ItemTypeDiscount, discount.Type)
	require.True(t, discount.Price.TotalPrice.Equal(dec("-5.00")), "discount = %s", discount.Price.TotalPrice)

	require.Len(t, c.Errors, 1)
	require.Equal(t, cart.LevelInfo, c.Errors[0].Level)
	require.Equal(t, cart.CodePromotionAdded, c.Errors[0].Code)
	require.False(t, c.Errors.HasBlocking())

	require.Len(t, deltas, 1)
	require.Equal(t, "promo-1", deltas[0].PromotionID)
}

func TestCalculateExclusivePriorityConflict(t *testing.T) {
	first := absolutePromotion("promo-1", "", "5.00", 1, true)
	first.Automatic = true
	second := absolutePromotion("promo-2", "", "10.00", 2, true)
	second.Automatic = true

	calc := newCalculator(first, second)
	c := cartWithProduct(t, "p1", 1)

	_, err := calc.Calculate(context.Background(), c, cart.DefaultContext("EUR"))
	require.NoError(t, err)

	// Lower priority value wins; the loser records an informational notice.
	require.True(t, c.Price.TotalPrice.Equal(dec("95.00")), "total = %s", c.Price.TotalPrice)

	var added, excluded int
	for _, n := range c.Errors {
		require.Equal(t, cart.LevelInfo, n.Level)
		switch n.Code {
		case cart.CodePromotionAdded:
			added++
			require.Equal(t, "promo-1", n.Reference)
		case cart.CodePromotionExcluded:
			excluded++
			require.Equal(t, "promo-2", n.Reference)
		}
	}
	require.Equal(t, 1, added)
	require.Equal(t, 1, excluded)
}

func TestCalculateAdvancedRulesEmptyFilterAppliesUnfiltered(t *testing.T) {
	promo := promotion.Promotion{
		ID: "promo-adv", Code: "ADV", Name: "Advanced", Priority: 1,
		Discounts: []promotion.Discount{{
			ID:                    "adv-d1",
			Scope:                 promotion.ScopeItemGroup,
			Kind:                  promotion.KindAbsolute,
			Value:                 dec("5.00"),
			ConsiderAdvancedRules: true,
			// Filter and sorter deliberately empty: the discount covers the
			// entire scope.
		}},
	}
	calc := newCalculator(promo)
	c := cartWithProduct(t, "p1", 1)
	c.PromotionCodes = []string{"ADV"}

	_, err := calc.Calculate(context.Background(), c, cart.DefaultContext("EUR"))
	require.NoError(t, err)
	require.True(t, c.Price.TotalPrice.Equal(dec("95.00")), "total = %s", c.Price.TotalPrice)
}

func TestCalculateIdempotent(t *testing.T) {
	calc := newCalculator(absolutePromotion("promo-1", "SAVE5", "5.00", 1, false))
	c := cartWithProduct(t, "p1", 2)
	c.PromotionCodes = []string{"SAVE5"}
	c.Deliveries = []cart.Delivery{{MethodID: "standard"}}
	cctx := cart.DefaultContext("EUR")

	_, err := calc.Calculate(context.Background(), c, cctx)
	require.NoError(t, err)
	firstPrice := c.Price
	firstItems := len(c.LineItems)
	firstItemPrices := make([]string, 0, firstItems)
	for _, item := range c.LineItems {
		firstItemPrices = append(firstItemPrices, item.Price.TotalPrice.String())
	}

	_, err = calc.Calculate(context.Background(), c, cctx)
	require.NoError(t, err)

	require.True(t, c.Price.Equal(firstPrice), "second pass changed the cart price: %+v != %+v", c.Price, firstPrice)
	require.Len(t, c.LineItems, firstItems)
	for i, item := range c.LineItems {
		require.Equal(t, firstItemPrices[i], item.Price.TotalPrice.String())
	}
	require.Len(t, c.Errors, 1)
}

func TestCalculateUnpriceableItemDegradesCart(t *testing.T) {
	calc := newCalculator()
	c := cartWithProduct(t, "p1", 1)
	missing, err := cart.NewProductItem("gone", 1)
	require.NoError(t, err)
	c.LineItems = append(c.LineItems, missing)

	_, err = calc.Calculate(context.Background(), c, cart.DefaultContext("EUR"))
	require.NoError(t, err)

	// The failing item is removed, the rest of the cart still settles.
	require.Len(t, c.LineItems, 1)
	require.True(t, c.Price.TotalPrice.Equal(dec("100.00")))
	require.True(t, c.Errors.HasBlocking())
	require.Equal(t, cart.CodeItemUnpriceable, c.Errors.Blocking()[0].Code)
}

func TestCalculateNegativeQuantityFailsFast(t *testing.T) {
	calc := newCalculator()
	c := cart.New()
	c.LineItems = append(c.LineItems, &cart.LineItem{
		ID: "bad", Type: cart.ItemTypeProduct, ReferencedID: "p1", Quantity: -1,
	})

	_, err := calc.Calculate(context.Background(), c, cart.DefaultContext("EUR"))
	require.ErrorIs(t, err, ErrCalculationFailed)
	require.ErrorIs(t, err, cart.ErrNegativeQuantity)
}

func TestCalculateZeroQuantityRemoved(t *testing.T) {
	calc := newCalculator()
	c := cartWithProduct(t, "p1", 0)

	_, err := calc.Calculate(context.Background(), c, cart.DefaultContext("EUR"))
	require.NoError(t, err)
	require.Empty(t, c.LineItems)
	require.True(t, c.Price.TotalPrice.IsZero())
}

func TestCalculateDelivery(t *testing.T) {
	calc := newCalculator()
	c := cartWithProduct(t, "p1", 1)
	c.Deliveries = []cart.Delivery{{MethodID: "standard"}}

	_, err := calc.Calculate(context.Background(), c, cart.DefaultContext("EUR"))
	require.NoError(t, err)
	require.True(t, c.Price.TotalPrice.Equal(dec("104.90")), "total = %s", c.Price.TotalPrice)
	require.True(t, c.Price.PositionPrice.Equal(dec("100.00")))
}

func TestCalculateUnknownDeliveryMethodBlocks(t *testing.T) {
	calc := newCalculator()
	c := cartWithProduct(t, "p1", 1)
	c.Deliveries = []cart.Delivery{{MethodID: "warp"}}

	_, err := calc.Calculate(context.Background(), c, cart.DefaultContext("EUR"))
	require.NoError(t, err)
	require.True(t, c.Errors.HasBlocking())
	require.True(t, c.Price.TotalPrice.Equal(dec("100.00")))
}

func TestCalculateDiscountClippedAtSubtotal(t *testing.T) {
	calc := newCalculator(absolutePromotion("promo-big", "BIG", "500.00", 1, false))
	c := cartWithProduct(t, "p1", 1)
	c.PromotionCodes = []string{"BIG"}

	_, err := calc.Calculate(context.Background(), c, cart.DefaultContext("EUR"))
	require.NoError(t, err)
	require.True(t, c.Price.TotalPrice.IsZero(), "total = %s", c.Price.TotalPrice)
	require.False(t, c.Price.TotalPrice.IsNegative())
}

func TestCalculateExpiredCodeKeepsCartUsable(t *testing.T) {
	expired := absolutePromotion("promo-old", "OLD", "5.00", 1, false)
	past := time.Now().Add(-time.Hour)
	expired.ValidUntil = &past

	calc := newCalculator(expired)
	c := cartWithProduct(t, "p1", 1)
	c.PromotionCodes = []string{"OLD"}

	_, err := calc.Calculate(context.Background(), c, cart.DefaultContext("EUR"))
	require.NoError(t, err)
	require.True(t, c.Price.TotalPrice.Equal(dec("100.00")))
}

func TestCalculateUnknownCodeNotice(t *testing.T) {
	calc := newCalculator()
	c := cartWithProduct(t, "p1", 1)
	c.PromotionCodes = []string{"NOPE"}

	_, err := calc.Calculate(context.Background(), c, cart.DefaultContext("EUR"))
	require.NoError(t, err)
	require.Len(t, c.Errors, 1)
	require.Equal(t, cart.CodePromotionNotFound, c.Errors[0].Code)
	require.Equal(t, cart.LevelInfo, c.Errors[0].Level)
}
