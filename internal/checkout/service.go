// Package checkout exposes cart mutations. Every mutation runs under the
// per-token cart lock, triggers a full recalculation and persists the settled
// cart, so readers only ever observe consistent state.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/calculation"
	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/lock"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/promotion"
)

// ErrItemNotFound indicates the cart holds no line item with the given ID.
var ErrItemNotFound = errors.New("line item not found")

// Service coordinates cart mutations with the pricing pipeline.
type Service struct {
	Store    cart.Store
	Locker   lock.CartLocker
	Calc     *calculation.Calculator
	Queue    *asynq.Client
	Defaults cart.Context
	Logger   zerolog.Logger
}

// Create builds a new empty cart, settles it and persists it.
func (s *Service) Create(ctx context.Context, cctx cart.Context) (*cart.Cart, error) {
	c := cart.New()
	if err := s.settle(ctx, c, cctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the persisted cart for token.
func (s *Service) Get(ctx context.Context, token string) (*cart.Cart, error) {
	return s.Store.Load(ctx, token)
}

// Delete discards the cart for token.
func (s *Service) Delete(ctx context.Context, token string) error {
	return s.Store.Delete(ctx, token)
}

// AddItem appends a product line item and recalculates. Adding a product
// already in the cart raises its quantity instead of duplicating the line.
func (s *Service) AddItem(ctx context.Context, token string, cctx cart.Context, productID string, quantity int) (*cart.Cart, error) {
	return s.mutate(ctx, token, cctx, func(c *cart.Cart) error {
		for _, item := range c.LineItems {
			if item.Type == cart.ItemTypeProduct && item.ReferencedID == productID {
				item.Quantity += quantity
				return nil
			}
		}
		item, err := cart.NewProductItem(productID, quantity)
		if err != nil {
			return err
		}
		c.LineItems = append(c.LineItems, item)
		return nil
	})
}

// UpdateQuantity sets a line item's quantity. Zero removes the line during
// the next pipeline pass.
func (s *Service) UpdateQuantity(ctx context.Context, token string, cctx cart.Context, itemID string, quantity int) (*cart.Cart, error) {
	return s.mutate(ctx, token, cctx, func(c *cart.Cart) error {
		item := c.Get(itemID)
		if item == nil {
			return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
		}
		item.Quantity = quantity
		return nil
	})
}

// RemoveItem drops a line item from the cart.
func (s *Service) RemoveItem(ctx context.Context, token string, cctx cart.Context, itemID string) (*cart.Cart, error) {
	return s.mutate(ctx, token, cctx, func(c *cart.Cart) error {
		if !c.Remove(itemID) {
			return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
		}
		return nil
	})
}

// ApplyCode attaches a promotion code. Whether the code actually discounts
// anything is decided by the pipeline; unknown codes surface as cart notices,
// not errors.
func (s *Service) ApplyCode(ctx context.Context, token string, cctx cart.Context, code string) (*cart.Cart, error) {
	return s.mutate(ctx, token, cctx, func(c *cart.Cart) error {
		if !c.HasPromotionCode(code) {
			c.PromotionCodes = append(c.PromotionCodes, code)
		}
		return nil
	})
}

// RemoveCode detaches a promotion code and recalculates, which strips the
// discount items the code produced.
func (s *Service) RemoveCode(ctx context.Context, token string, cctx cart.Context, code string) (*cart.Cart, error) {
	return s.mutate(ctx, token, cctx, func(c *cart.Cart) error {
		c.RemovePromotionCode(code)
		return nil
	})
}

// SetDelivery selects the cart's shipping method.
func (s *Service) SetDelivery(ctx context.Context, token string, cctx cart.Context, methodID string) (*cart.Cart, error) {
	return s.mutate(ctx, token, cctx, func(c *cart.Cart) error {
		c.Deliveries = []cart.Delivery{{MethodID: methodID}}
		return nil
	})
}

// Recalculate reprices the persisted cart without changing its contents.
func (s *Service) Recalculate(ctx context.Context, token string, cctx cart.Context) (*cart.Cart, error) {
	return s.mutate(ctx, token, cctx, func(*cart.Cart) error { return nil })
}

// mutate loads the cart under its lock, applies fn, runs the pipeline and
// persists the result. Contention surfaces as lock.ErrCartLocked.
func (s *Service) mutate(ctx context.Context, token string, cctx cart.Context, fn func(*cart.Cart) error) (*cart.Cart, error) {
	var out *cart.Cart
	err := s.Locker.WithLock(ctx, token, func(ctx context.Context) error {
		c, err := s.Store.Load(ctx, token)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		if err := s.settle(ctx, c, cctx); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrCartLocked) && obs.CartLockContention != nil {
			obs.CartLockContention.Inc()
		}
		return nil, err
	}
	return out, nil
}

func (s *Service) settle(ctx context.Context, c *cart.Cart, cctx cart.Context) error {
	deltas, err := s.Calc.Calculate(ctx, c, cctx)
	if err != nil {
		return err
	}
	if err := s.Store.Save(ctx, c); err != nil {
		return err
	}
	for _, d := range deltas {
		if obs.PromotionsAppliedTotal != nil {
			obs.PromotionsAppliedTotal.WithLabelValues(d.PromotionID).Inc()
		}
	}
	s.enqueueDeltas(deltas)
	return nil
}

// enqueueDeltas hands redemption deltas to the worker queue. Queue outages
// must not fail the mutation; an uncounted redemption is recoverable, a lost
// cart update is not.
func (s *Service) enqueueDeltas(deltas []promotion.Delta) {
	if s.Queue == nil {
		return
	}
	for _, d := range deltas {
		task, err := promotion.NewRedemptionTask(d)
		if err != nil {
			s.Logger.Error().Err(err).Str("promotion", d.PromotionID).Msg("encode redemption task")
			continue
		}
		if _, err := s.Queue.Enqueue(task); err != nil {
			s.Logger.Error().Err(err).Str("promotion", d.PromotionID).Msg("enqueue redemption task")
		}
	}
}
