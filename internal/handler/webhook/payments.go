// Package webhook receives signed payment gateway callbacks.
package webhook

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/dukerupert/tapnet/internal/handler"
	"github.com/dukerupert/tapnet/internal/middleware"
	"github.com/dukerupert/tapnet/internal/service"
)

// Signature headers per gateway.
const (
	RazorpaySignatureHeader = "X-Razorpay-Signature"
	StripeSignatureHeader   = "Stripe-Signature"
	MockSignatureHeader     = "X-Webhook-Signature"
)

// PaymentsHandler handles POST /webhooks/payments for the configured gateway.
type PaymentsHandler struct {
	checkout        service.CheckoutService
	signatureHeader string
}

// NewPaymentsHandler creates a handler for provider ("razorpay", "stripe" or "mock").
func NewPaymentsHandler(checkout service.CheckoutService, provider string) *PaymentsHandler {
	return &PaymentsHandler{
		checkout:        checkout,
		signatureHeader: SignatureHeader(provider),
	}
}

// SignatureHeader returns the header a gateway signs its webhooks in.
func SignatureHeader(provider string) string {
	switch provider {
	case "stripe":
		return StripeSignatureHeader
	case "razorpay":
		return RazorpaySignatureHeader
	default:
		return MockSignatureHeader
	}
}

// HandleWebhook verifies and applies one delivery. Anything but a 2xx makes
// the gateway retry, so only failures worth retrying return 5xx; bad
// signatures and malformed bodies get 4xx.
func (h *PaymentsHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := middleware.GetLogger(r.Context())

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handler.ErrorResponse(w, r, domain.WrapError(err, domain.ETOOLARGE, "webhook.read", "Request body too large"))
			return
		}
		handler.ErrorResponse(w, r, domain.WrapError(err, domain.EINVALID, "webhook.read", "Error reading request body"))
		return
	}

	signature := r.Header.Get(h.signatureHeader)
	if signature == "" {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "webhook.verify", "Missing signature"))
		return
	}

	if err := h.checkout.HandleWebhook(r.Context(), payload, signature); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	logger.Info("webhook processed",
		"bytes", len(payload),
		"duration", time.Since(start),
	)
	handler.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
