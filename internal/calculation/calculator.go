// Package calculation orchestrates the cart pricing pipeline: quantity
// normalization, catalog price resolution, tax splitting, promotion
// application, delivery costs and the final cart total. A pipeline run is
// synchronous and idempotent; running it twice over a settled cart yields
// identical prices.
package calculation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/price"
	"github.com/noah-isme/backend-kasir/internal/promotion"
	"github.com/noah-isme/backend-kasir/internal/rounding"
	"github.com/noah-isme/backend-kasir/internal/shipping"
	"github.com/noah-isme/backend-kasir/internal/tax"
)

// ErrCalculationFailed wraps unrecoverable pricing failures. Degraded but
// consistent carts are returned without error; only malformed input and
// collaborator outages surface this way.
var ErrCalculationFailed = errors.New("cart calculation failed")

// Calculator runs the pricing pipeline over a cart.
type Calculator struct {
	Catalog    catalog.Gateway
	Promotions promotion.Gateway
	Shipping   shipping.Resolver
	Engine     *promotion.Engine
	Logger     zerolog.Logger
}

// Calculate recalculates the cart in place under the given context and
// returns the redemption deltas produced by applied promotions. The cart
// always ends fully priced; unpriceable items are converted into blocking
// notices and removed.
func (c *Calculator) Calculate(ctx context.Context, crt *cart.Cart, cctx cart.Context) ([]promotion.Delta, error) {
	ctx, span := otel.Tracer("calculation").Start(ctx, "cart.calculate")
	defer span.End()
	span.SetAttributes(attribute.String("cart.token", crt.Token))

	start := time.Now()
	defer func() {
		if obs.CalculationDuration != nil {
			obs.CalculationDuration.Observe(obs.DurationMillis(time.Since(start)))
		}
	}()

	if err := c.normalize(crt); err != nil {
		countCalculation("error")
		return nil, fmt.Errorf("%w: %w", ErrCalculationFailed, err)
	}
	c.resolveDefinitions(ctx, crt)

	taxCalc := tax.Calculator{Rounding: cctx.ItemRounding}
	priceItems(crt.LineItems, taxCalc, cctx)

	deltas, err := c.applyPromotions(ctx, crt, cctx)
	if err != nil {
		countCalculation("error")
		return nil, fmt.Errorf("%w: %w", ErrCalculationFailed, err)
	}
	// Restricted re-run: only the items the engine injected are unpriced.
	priceItems(crt.LineItems, taxCalc, cctx)

	c.priceDeliveries(ctx, crt, taxCalc, cctx)
	c.aggregate(crt, cctx)

	if crt.Errors.HasBlocking() {
		countCalculation("degraded")
	} else {
		countCalculation("ok")
	}
	c.Logger.Debug().
		Str("token", crt.Token).
		Str("total", crt.Price.TotalPrice.String()).
		Int("line_items", len(crt.LineItems)).
		Int("notices", len(crt.Errors)).
		Msg("cart calculated")
	return deltas, nil
}

func countCalculation(result string) {
	if obs.CalculationTotal != nil {
		obs.CalculationTotal.WithLabelValues(result).Inc()
	}
}

// normalize validates quantities, strips synthetic discount items from the
// previous pass and resets the notice collection. Zero-quantity items are
// removed; negative quantities abort the run.
func (c *Calculator) normalize(crt *cart.Cart) error {
	crt.Errors = nil
	var kept []*cart.LineItem
	for _, item := range crt.LineItems {
		if item.Type == cart.ItemTypeDiscount {
			continue
		}
		if err := normalizeTree(item); err != nil {
			return err
		}
		if item.Quantity == 0 && item.Type != cart.ItemTypeContainer {
			continue
		}
		kept = append(kept, item)
	}
	crt.LineItems = kept
	return nil
}

func normalizeTree(item *cart.LineItem) error {
	if item.Quantity < 0 {
		return fmt.Errorf("%w: item %s has quantity %d", cart.ErrNegativeQuantity, item.ID, item.Quantity)
	}
	var kept []*cart.LineItem
	for _, child := range item.Children {
		if child.Type == cart.ItemTypeDiscount {
			continue
		}
		if err := normalizeTree(child); err != nil {
			return err
		}
		if child.Quantity == 0 && child.Type != cart.ItemTypeContainer {
			continue
		}
		kept = append(kept, child)
	}
	item.Children = kept
	return nil
}

// resolveDefinitions fills product price definitions from the catalog. Items
// that cannot be priced become blocking notices and are removed so the rest
// of the pipeline still settles.
func (c *Calculator) resolveDefinitions(ctx context.Context, crt *cart.Cart) {
	var failed []string
	for _, item := range crt.FlatItems() {
		// Prices from a previous pass are discarded; every pass reprices the
		// full tree from fresh catalog data.
		if item.Type != cart.ItemTypeContainer {
			item.Price = nil
		}
		switch item.Type {
		case cart.ItemTypeProduct:
			product, err := c.Catalog.Product(ctx, item.ReferencedID)
			if err != nil || !product.Available {
				if err == nil {
					err = catalog.ErrProductNotFound
				}
				c.Logger.Warn().Str("item", item.ID).Str("product", item.ReferencedID).Err(err).Msg("line item unpriceable")
				crt.AddNotice(cart.Notice{
					Level:     cart.LevelBlocking,
					Code:      cart.CodeItemUnpriceable,
					Message:   fmt.Sprintf("Line item %q could not be priced and was removed", item.Label),
					Reference: item.ID,
				})
				failed = append(failed, item.ID)
				continue
			}
			item.Label = product.Name
			item.Definition = &cart.PriceDefinition{
				UnitPrice:     product.UnitPrice,
				TaxRules:      product.TaxRules,
				PurchaseUnit:  product.PurchaseUnit,
				ReferenceUnit: product.ReferenceUnit,
				UnitName:      product.UnitName,
			}
			item.Payload = cart.Payload{
				ProductNumber: product.Number,
				CategoryIDs:   product.CategoryIDs,
				BrandID:       product.BrandID,
				ListPrice:     product.UnitPrice,
				Extra:         item.Payload.Extra,
			}
		case cart.ItemTypeCustom:
			if item.Definition == nil {
				crt.AddNotice(cart.Notice{
					Level:     cart.LevelBlocking,
					Code:      cart.CodeItemUnpriceable,
					Message:   fmt.Sprintf("Custom line item %q has no price definition", item.Label),
					Reference: item.ID,
				})
				failed = append(failed, item.ID)
			}
		}
	}
	for _, id := range failed {
		removeItem(crt, id)
	}
}

func removeItem(crt *cart.Cart, id string) {
	if crt.Remove(id) {
		return
	}
	for _, item := range crt.FlatItems() {
		for i, child := range item.Children {
			if child.ID == id {
				item.Children = append(item.Children[:i], item.Children[i+1:]...)
				return
			}
		}
	}
}

// priceItems computes a price for every item that has a definition but no
// price yet, then settles containers bottom-up from their children.
func priceItems(items []*cart.LineItem, taxCalc tax.Calculator, cctx cart.Context) {
	for _, item := range items {
		priceItems(item.Children, taxCalc, cctx)
		if item.Type == cart.ItemTypeContainer {
			item.Price = containerPrice(item, cctx)
			continue
		}
		if item.Price != nil || item.Definition == nil {
			continue
		}
		item.Price = definitionPrice(item, taxCalc, cctx)
	}
}

func definitionPrice(item *cart.LineItem, taxCalc tax.Calculator, cctx cart.Context) *price.Calculated {
	unit := rounding.Round(item.Definition.UnitPrice, cctx.ItemRounding)
	total := rounding.Round(unit.Mul(decimal.NewFromInt(int64(item.Quantity))), cctx.ItemRounding)
	return &price.Calculated{
		UnitPrice:       unit,
		TotalPrice:      total,
		Quantity:        item.Quantity,
		CalculatedTaxes: taxCalc.Calculate(total, item.Definition.TaxRules, cctx.TaxStatus),
		TaxRules:        item.Definition.TaxRules,
		ReferencePrice:  referencePrice(item.Definition, unit, cctx),
	}
}

// referencePrice derives the price per base unit for price-per-measure
// display, e.g. 1.99 per 100g for a 500g pack. Items without positive unit
// measures carry no reference price.
func referencePrice(def *cart.PriceDefinition, unit decimal.Decimal, cctx cart.Context) *price.ReferencePrice {
	if def.PurchaseUnit.Sign() <= 0 || def.ReferenceUnit.Sign() <= 0 {
		return nil
	}
	return &price.ReferencePrice{
		Price:         rounding.Round(unit.Div(def.PurchaseUnit).Mul(def.ReferenceUnit), cctx.ItemRounding),
		PurchaseUnit:  def.PurchaseUnit,
		ReferenceUnit: def.ReferenceUnit,
		UnitName:      def.UnitName,
	}
}

func containerPrice(item *cart.LineItem, cctx cart.Context) *price.Calculated {
	taxes := tax.CalculatedTaxes{}
	total := decimal.Zero
	for _, child := range item.Children {
		if child.Price == nil {
			// Price stays undefined until every child is priced.
			return nil
		}
		total = total.Add(child.Price.TotalPrice)
		taxes = taxes.Merge(child.Price.CalculatedTaxes)
	}
	return &price.Calculated{
		UnitPrice:       total,
		TotalPrice:      total,
		Quantity:        1,
		CalculatedTaxes: taxes,
	}
}

func (c *Calculator) applyPromotions(ctx context.Context, crt *cart.Cart, cctx cart.Context) ([]promotion.Delta, error) {
	if c.Promotions == nil || c.Engine == nil {
		return nil, nil
	}
	promos, err := c.Promotions.Automatic(ctx)
	if err != nil {
		return nil, fmt.Errorf("list automatic promotions: %w", err)
	}
	for _, code := range crt.PromotionCodes {
		promo, err := c.Promotions.ByCode(ctx, code)
		if err != nil {
			if errors.Is(err, promotion.ErrPromotionNotFound) {
				crt.AddNotice(cart.Notice{
					Level:     cart.LevelInfo,
					Code:      cart.CodePromotionNotFound,
					Message:   fmt.Sprintf("Promotion code %q is no longer valid", code),
					Reference: code,
				})
				continue
			}
			return nil, fmt.Errorf("resolve promotion code %s: %w", code, err)
		}
		promos = append(promos, promo)
	}
	return c.Engine.Apply(ctx, crt, cctx, promos)
}

func (c *Calculator) priceDeliveries(ctx context.Context, crt *cart.Cart, taxCalc tax.Calculator, cctx cart.Context) {
	for i := range crt.Deliveries {
		delivery := &crt.Deliveries[i]
		if c.Shipping == nil {
			delivery.Cost = nil
			continue
		}
		cost, err := c.Shipping.Resolve(ctx, delivery.MethodID)
		if err != nil {
			c.Logger.Warn().Str("method", delivery.MethodID).Err(err).Msg("delivery method unavailable")
			crt.AddNotice(cart.Notice{
				Level:     cart.LevelBlocking,
				Code:      cart.CodeShippingUnavailable,
				Message:   fmt.Sprintf("Shipping method %q is not available", delivery.MethodID),
				Reference: delivery.MethodID,
			})
			delivery.Cost = nil
			continue
		}
		amount := rounding.Round(cost.Amount, cctx.ItemRounding)
		delivery.Cost = &price.Calculated{
			UnitPrice:       amount,
			TotalPrice:      amount,
			Quantity:        1,
			CalculatedTaxes: taxCalc.Calculate(amount, cost.TaxRules, cctx.TaxStatus),
			TaxRules:        cost.TaxRules,
		}
	}
}

func (c *Calculator) aggregate(crt *cart.Cart, cctx cart.Context) {
	var itemPrices []price.Calculated
	for _, item := range crt.LineItems {
		if item.Price != nil {
			itemPrices = append(itemPrices, *item.Price)
		}
	}
	var deliveryPrices []price.Calculated
	for _, delivery := range crt.Deliveries {
		if delivery.Cost != nil {
			deliveryPrices = append(deliveryPrices, *delivery.Cost)
		}
	}
	crt.Price = price.Aggregate(itemPrices, deliveryPrices, cctx.TaxStatus, cctx.TotalRounding)
}
