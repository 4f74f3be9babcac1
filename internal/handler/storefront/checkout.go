package storefront

import (
	"net/http"

	"github.com/dukerupert/tapnet/internal/handler"
	"github.com/dukerupert/tapnet/internal/service"
)

// CheckoutHandler handles order placement and the payment callback.
type CheckoutHandler struct {
	checkout service.CheckoutService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// PlaceOrder handles POST /api/checkout.
// COD orders come back confirmed; online orders carry the payment handoff.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	result, err := h.checkout.PlaceOrder(r.Context(), GetSessionIDFromCookie(r), req)
	if err != nil {
		handler.HandleError(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusCreated, checkoutResponse{
		Order:   newOrderView(result.Order),
		Payment: result.Payment,
	})
}

// VerifyPayment handles POST /api/checkout/verify with what the gateway
// widget returned to the browser.
func (h *CheckoutHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req service.VerifyPaymentRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	order, err := h.checkout.VerifyPayment(r.Context(), GetSessionIDFromCookie(r), req)
	if err != nil {
		handler.HandleError(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, newOrderView(order))
}

type checkoutResponse struct {
	Order   orderView               `json:"order"`
	Payment *service.PaymentHandoff `json:"payment,omitempty"`
}
