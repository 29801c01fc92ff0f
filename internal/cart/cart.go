// Package cart defines the cart aggregate and its line item tree. A cart is
// created empty per session, recalculated on every mutation and rehydrated
// from the store between requests.
package cart

import (
	"github.com/google/uuid"

	"github.com/noah-isme/backend-kasir/internal/price"
)

// Delivery groups line items shipped together with their resolved cost.
type Delivery struct {
	MethodID    string            `json:"methodId"`
	Cost        *price.Calculated `json:"cost,omitempty"`
	LineItemIDs []string          `json:"lineItemIds,omitempty"`
}

// Cart is the root aggregate. Token doubles as the mutual-exclusion key for
// recalculation.
type Cart struct {
	Token           string          `json:"token"`
	LineItems       []*LineItem     `json:"lineItems"`
	Price           price.CartPrice `json:"price"`
	Deliveries      []Delivery      `json:"deliveries,omitempty"`
	Errors          Notices         `json:"errors,omitempty"`
	CustomerComment string          `json:"customerComment,omitempty"`
	AffiliateCode   string          `json:"affiliateCode,omitempty"`
	CampaignCode    string          `json:"campaignCode,omitempty"`
	Source          string          `json:"source,omitempty"`
	// PromotionCodes are the codes the customer entered; resolved and
	// re-applied on every recalculation.
	PromotionCodes []string `json:"promotionCodes,omitempty"`
}

// New creates an empty cart with a fresh token.
func New() *Cart {
	return &Cart{Token: uuid.NewString()}
}

// Get returns the line item with the given id, searching the whole tree.
func (c *Cart) Get(id string) *LineItem {
	for _, item := range c.FlatItems() {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// FlatItems returns every line item in depth-first order.
func (c *Cart) FlatItems() []*LineItem {
	var out []*LineItem
	for _, item := range c.LineItems {
		out = append(out, item.Flat()...)
	}
	return out
}

// Remove deletes the top-level line item with the given id and reports
// whether it existed.
func (c *Cart) Remove(id string) bool {
	for i, item := range c.LineItems {
		if item.ID == id {
			c.LineItems = append(c.LineItems[:i], c.LineItems[i+1:]...)
			return true
		}
	}
	return false
}

// AddNotice appends an entry to the error/notice collection.
func (c *Cart) AddNotice(n Notice) {
	c.Errors = append(c.Errors, n)
}

// HasPromotionCode reports whether the code is already attached.
func (c *Cart) HasPromotionCode(code string) bool {
	for _, existing := range c.PromotionCodes {
		if existing == code {
			return true
		}
	}
	return false
}

// RemovePromotionCode detaches a code and reports whether it was present.
func (c *Cart) RemovePromotionCode(code string) bool {
	for i, existing := range c.PromotionCodes {
		if existing == code {
			c.PromotionCodes = append(c.PromotionCodes[:i], c.PromotionCodes[i+1:]...)
			return true
		}
	}
	return false
}
