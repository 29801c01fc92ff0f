package cart

// NoticeLevel separates checkout-blocking errors from informational messages.
type NoticeLevel string

const (
	// LevelBlocking marks errors that prevent checkout. They are recorded on
	// the cart, never thrown.
	LevelBlocking NoticeLevel = "blocking"
	// LevelInfo marks user-facing feedback that never blocks checkout.
	LevelInfo NoticeLevel = "info"
)

// Well-known notice codes.
const (
	CodeItemUnpriceable     = "line-item-unpriceable"
	CodeShippingUnavailable = "shipping-method-unavailable"
	CodePromotionAdded      = "promotion-discount-added"
	CodePromotionExcluded   = "promotion-excluded"
	CodePromotionNotFound   = "promotion-not-found"
)

// Notice is a single entry of the cart's error/notice collection.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	// Reference points at the line item or promotion the notice concerns.
	Reference string `json:"reference,omitempty"`
}

// Notices is the ordered error/notice collection of a cart.
type Notices []Notice

// HasBlocking reports whether any entry prevents checkout.
func (n Notices) HasBlocking() bool {
	for _, notice := range n {
		if notice.Level == LevelBlocking {
			return true
		}
	}
	return false
}

// Blocking returns only the checkout-blocking entries.
func (n Notices) Blocking() Notices {
	var out Notices
	for _, notice := range n {
		if notice.Level == LevelBlocking {
			out = append(out, notice)
		}
	}
	return out
}
