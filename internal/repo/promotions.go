package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-kasir/internal/promotion"
)

// PromotionRepo implements promotion.Gateway on Postgres. Rule trees and
// discount lists are stored as JSONB; the engine owns their schema.
type PromotionRepo struct {
	Pool *pgxpool.Pool
}

const promotionColumns = `
	id, COALESCE(code, ''), name, valid_from, valid_until,
	exclusive, priority, max_redemptions, max_redemptions_per_customer,
	automatic, rule, discounts`

// ByCode implements promotion.Gateway.
func (r PromotionRepo) ByCode(ctx context.Context, code string) (promotion.Promotion, error) {
	if r.Pool == nil {
		return promotion.Promotion{}, errors.New("repo: pool not configured")
	}
	row := r.Pool.QueryRow(ctx,
		`SELECT`+promotionColumns+` FROM promotions WHERE lower(code) = lower($1) AND active`, code)
	p, err := scanPromotion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return promotion.Promotion{}, promotion.ErrPromotionNotFound
		}
		return promotion.Promotion{}, fmt.Errorf("query promotion by code: %w", err)
	}
	return p, nil
}

// Automatic implements promotion.Gateway.
func (r PromotionRepo) Automatic(ctx context.Context) ([]promotion.Promotion, error) {
	if r.Pool == nil {
		return nil, errors.New("repo: pool not configured")
	}
	rows, err := r.Pool.Query(ctx,
		`SELECT`+promotionColumns+` FROM promotions WHERE automatic AND active ORDER BY priority, id`)
	if err != nil {
		return nil, fmt.Errorf("query automatic promotions: %w", err)
	}
	defer rows.Close()

	var out []promotion.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPromotion(row pgx.Row) (promotion.Promotion, error) {
	var (
		p              promotion.Promotion
		rule, discount []byte
	)
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.ValidFrom, &p.ValidUntil,
		&p.Exclusive, &p.Priority, &p.MaxRedemptions, &p.MaxRedemptionsPerCustomer,
		&p.Automatic, &rule, &discount,
	)
	if err != nil {
		return promotion.Promotion{}, err
	}
	if len(rule) > 0 {
		if err := json.Unmarshal(rule, &p.Rule); err != nil {
			return promotion.Promotion{}, fmt.Errorf("promotion %s: decode rule: %w", p.ID, err)
		}
	}
	if len(discount) > 0 {
		if err := json.Unmarshal(discount, &p.Discounts); err != nil {
			return promotion.Promotion{}, fmt.Errorf("promotion %s: decode discounts: %w", p.ID, err)
		}
	}
	return p, nil
}
