package promotion

import (
	"context"
	"errors"
	"strings"
)

// ErrPromotionNotFound indicates no promotion exists for a code.
var ErrPromotionNotFound = errors.New("promotion not found")

// Gateway resolves promotions. Reads only; redemption state lives in the
// Ledger.
type Gateway interface {
	// ByCode returns the promotion behind a customer-entered code.
	ByCode(ctx context.Context, code string) (Promotion, error)
	// Automatic lists promotions that apply without a code.
	Automatic(ctx context.Context) ([]Promotion, error)
}

// StaticGateway serves promotions from a fixed slice. Used for tests and
// seeding tools.
type StaticGateway struct {
	Promotions []Promotion
}

// ByCode implements Gateway.
func (g StaticGateway) ByCode(_ context.Context, code string) (Promotion, error) {
	for _, p := range g.Promotions {
		if p.Code != "" && strings.EqualFold(p.Code, code) {
			return p, nil
		}
	}
	return Promotion{}, ErrPromotionNotFound
}

// Automatic implements Gateway.
func (g StaticGateway) Automatic(_ context.Context) ([]Promotion, error) {
	var out []Promotion
	for _, p := range g.Promotions {
		if p.Automatic {
			out = append(out, p)
		}
	}
	return out, nil
}
