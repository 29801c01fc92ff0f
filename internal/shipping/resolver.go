// Package shipping resolves delivery costs for a cart. Rate computation
// happens upstream; this boundary returns an already-resolved cost per
// method.
package shipping

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/tax"
)

// ErrMethodNotFound indicates the chosen delivery method is unknown or
// inactive.
var ErrMethodNotFound = errors.New("shipping: delivery method not found")

// Cost is the resolved delivery price before tax splitting.
type Cost struct {
	MethodID string          `json:"methodId"`
	Amount   decimal.Decimal `json:"amount"`
	TaxRules tax.Rules       `json:"taxRules"`
}

// Resolver looks up the delivery cost for a method.
type Resolver interface {
	Resolve(ctx context.Context, methodID string) (Cost, error)
}

// StaticResolver serves costs from a fixed table. Used for tests and as the
// default single-method setup.
type StaticResolver map[string]Cost

// Resolve implements Resolver.
func (s StaticResolver) Resolve(_ context.Context, methodID string) (Cost, error) {
	c, ok := s[methodID]
	if !ok {
		return Cost{}, ErrMethodNotFound
	}
	return c, nil
}
