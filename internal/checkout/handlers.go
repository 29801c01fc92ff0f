package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-kasir/internal/calculation"
	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/lock"
)

// Handler exposes the cart over HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Routes mounts the cart endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/carts", h.CreateCart)
	r.Route("/carts/{token}", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.DeleteCart)
		r.Post("/recalculate", h.Recalculate)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{itemID}", h.UpdateItem)
		r.Delete("/items/{itemID}", h.RemoveItem)
		r.Post("/promotions", h.ApplyCode)
		r.Delete("/promotions/{code}", h.RemoveCode)
		r.Put("/delivery", h.SetDelivery)
	})
}

type addItemInput struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type updateItemInput struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

type applyCodeInput struct {
	Code string `json:"code" validate:"required"`
}

type setDeliveryInput struct {
	MethodID string `json:"methodId" validate:"required"`
}

// CreateCart builds a new empty cart and returns its token.
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.Create(r.Context(), h.cartContext(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": c})
}

// GetCart returns the persisted cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.Get(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// DeleteCart discards the cart.
func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recalculate reprices the cart without mutating its contents.
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.Recalculate(r.Context(), chi.URLParam(r, "token"), h.cartContext(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// AddItem adds a product to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var in addItemInput
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "token"), h.cartContext(r), in.ProductID, in.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// UpdateItem changes a line item's quantity.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var in updateItemInput
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.Svc.UpdateQuantity(r.Context(), chi.URLParam(r, "token"), h.cartContext(r), chi.URLParam(r, "itemID"), in.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// RemoveItem drops a line item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "token"), h.cartContext(r), chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// ApplyCode attaches a promotion code to the cart.
func (h *Handler) ApplyCode(w http.ResponseWriter, r *http.Request) {
	var in applyCodeInput
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.Svc.ApplyCode(r.Context(), chi.URLParam(r, "token"), h.cartContext(r), in.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// RemoveCode detaches a promotion code.
func (h *Handler) RemoveCode(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.RemoveCode(r.Context(), chi.URLParam(r, "token"), h.cartContext(r), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// SetDelivery selects the shipping method.
func (h *Handler) SetDelivery(w http.ResponseWriter, r *http.Request) {
	var in setDeliveryInput
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.Svc.SetDelivery(r.Context(), chi.URLParam(r, "token"), h.cartContext(r), in.MethodID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// cartContext derives the calculation context for a request from the service
// defaults plus the optional customer header.
func (h *Handler) cartContext(r *http.Request) cart.Context {
	cctx := h.Svc.Defaults
	if cctx.Currency == "" {
		cctx = cart.DefaultContext("EUR")
	}
	if customer := r.Header.Get("X-Customer-Id"); customer != "" {
		cctx.CustomerID = customer
	}
	return cctx
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(v); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", err.Error())
			return false
		}
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lock.ErrCartLocked):
		common.JSONError(w, http.StatusConflict, "CART_LOCKED", "cart is being recalculated, retry shortly", nil)
	case errors.Is(err, cart.ErrCartNotFound):
		common.JSONError(w, http.StatusNotFound, "CART_NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "line item not found", nil)
	case errors.Is(err, cart.ErrNegativeQuantity):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_QUANTITY", "quantity must not be negative", nil)
	case errors.Is(err, calculation.ErrCalculationFailed):
		common.JSONError(w, http.StatusUnprocessableEntity, "CALCULATION_FAILED", err.Error(), nil)
	default:
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			status := appErr.HTTPStatus
			if status == 0 {
				status = http.StatusBadRequest
			}
			common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
