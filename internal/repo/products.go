// Package repo holds the Postgres-backed gateway implementations. Queries are
// hand-written pgx statements; numeric columns travel as text so decimal
// precision survives the round trip.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/tax"
)

// ProductRepo implements catalog.Gateway on Postgres.
type ProductRepo struct {
	Pool *pgxpool.Pool
}

const productQuery = `
SELECT id, number, name, unit_price::text, tax_rate::text, available,
       COALESCE(category_ids, '{}'), COALESCE(brand_id, ''),
       COALESCE(purchase_unit, 0)::text, COALESCE(reference_unit, 0)::text, COALESCE(unit_name, '')
  FROM products
 WHERE id = $1`

// Product implements catalog.Gateway.
func (r ProductRepo) Product(ctx context.Context, id string) (catalog.Product, error) {
	if r.Pool == nil {
		return catalog.Product{}, errors.New("repo: pool not configured")
	}
	var (
		p                                       catalog.Product
		unitPrice, taxRate, purchase, reference string
	)
	err := r.Pool.QueryRow(ctx, productQuery, id).Scan(
		&p.ID, &p.Number, &p.Name, &unitPrice, &taxRate, &p.Available,
		&p.CategoryIDs, &p.BrandID, &purchase, &reference, &p.UnitName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, catalog.ErrProductNotFound
		}
		return catalog.Product{}, fmt.Errorf("query product %s: %w", id, err)
	}
	if p.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return catalog.Product{}, fmt.Errorf("product %s: parse unit price: %w", id, err)
	}
	rate, err := decimal.NewFromString(taxRate)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("product %s: parse tax rate: %w", id, err)
	}
	p.TaxRules = tax.SingleRule(rate)
	if p.PurchaseUnit, err = decimal.NewFromString(purchase); err != nil {
		return catalog.Product{}, fmt.Errorf("product %s: parse purchase unit: %w", id, err)
	}
	if p.ReferenceUnit, err = decimal.NewFromString(reference); err != nil {
		return catalog.Product{}, fmt.Errorf("product %s: parse reference unit: %w", id, err)
	}
	return p, nil
}
