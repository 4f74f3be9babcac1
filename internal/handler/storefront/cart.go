// Package storefront serves the JSON API behind the storefront's cart,
// drawer and checkout views.
package storefront

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dukerupert/tapnet/internal/cookie"
	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/dukerupert/tapnet/internal/handler"
	"github.com/dukerupert/tapnet/internal/pricing"
	"github.com/dukerupert/tapnet/internal/service"
)

// cartOpenedTrigger tells the storefront to open the cart drawer after an add.
const cartOpenedTrigger = "cart-opened"

var quantityLimitMessage = fmt.Sprintf("must be at most %d", domain.MaxLineQuantity)

// CartHandler handles all cart routes under /api/cart.
type CartHandler struct {
	carts   service.CartService
	cookies *cookie.Config
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts service.CartService, cookies *cookie.Config) *CartHandler {
	return &CartHandler{carts: carts, cookies: cookies}
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

type couponResponse struct {
	Applied bool                  `json:"applied"`
	Coupon  *domain.AppliedCoupon `json:"coupon"`
	Cart    pricing.Summary       `json:"cart"`
}

// View handles GET /api/cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	summary, err := h.carts.Summary(r.Context(), sessionID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, summary)
}

// AddItem handles POST /api/cart/items. A missing quantity means one.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		handler.ValidationErrorResponse(w, r,
			domain.NewValidationError("cart.add_item", "productId", "is required"))
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity > domain.MaxLineQuantity {
		handler.ValidationErrorResponse(w, r,
			domain.NewValidationError("cart.add_item", "quantity", quantityLimitMessage))
		return
	}

	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	summary, err := h.carts.AddItem(r.Context(), sessionID, productID, quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	w.Header().Set("HX-Trigger", cartOpenedTrigger)
	handler.WriteJSON(w, http.StatusOK, summary)
}

// UpdateQuantity handles PATCH /api/cart/items/{productID}.
// Zero or negative quantities remove the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if req.Quantity == nil {
		handler.ValidationErrorResponse(w, r,
			domain.NewValidationError("cart.update_quantity", "quantity", "is required"))
		return
	}
	if *req.Quantity > domain.MaxLineQuantity {
		handler.ValidationErrorResponse(w, r,
			domain.NewValidationError("cart.update_quantity", "quantity", quantityLimitMessage))
		return
	}

	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	summary, err := h.carts.UpdateQuantity(r.Context(), sessionID, r.PathValue("productID"), *req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, summary)
}

// RemoveItem handles DELETE /api/cart/items/{productID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	summary, err := h.carts.RemoveItem(r.Context(), sessionID, r.PathValue("productID"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, summary)
}

// Clear handles DELETE /api/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.carts.Clear(r.Context(), sessionID); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	summary, err := h.carts.Summary(r.Context(), sessionID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, summary)
}

// ApplyCoupon handles POST /api/cart/coupon. Coupon rule failures are 422
// with the shopper-facing reason; lookup failures are 500 "Failed to apply coupon".
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	result, summary, err := h.carts.ApplyCoupon(r.Context(), sessionID, req.Code)
	switch {
	case err == nil:
		handler.WriteJSON(w, http.StatusOK, couponResponse{
			Applied: result.Applied,
			Coupon:  result.Coupon,
			Cart:    summary,
		})
	case domain.IsCode(err, domain.EUNPROCESSABLE):
		handler.UnprocessableResponse(w, r, result.Reason)
	case domain.IsCode(err, domain.EINTERNAL) && result.Reason != "":
		handler.ErrorResponseWithMessage(w, r, err, result.Reason)
	default:
		handler.ErrorResponse(w, r, err)
	}
}

// RemoveCoupon handles DELETE /api/cart/coupon
func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	summary, err := h.carts.RemoveCoupon(r.Context(), sessionID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, summary)
}

// session resolves the shopper's session, issuing a cookie when the
// service started a new one. Reports false after writing an error.
func (h *CartHandler) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	return resolveSession(w, r, h.carts, h.cookies)
}

func resolveSession(w http.ResponseWriter, r *http.Request, carts service.CartService, cookies *cookie.Config) (string, bool) {
	current := GetSessionIDFromCookie(r)

	_, sessionID, err := carts.Session(r.Context(), current)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return "", false
	}
	if sessionID != current {
		SetSessionCookie(w, sessionID, cookies)
	}
	return sessionID, true
}
