package routes

import (
	"net/http"

	"github.com/dukerupert/tapnet/internal/handler/storefront"
	"github.com/dukerupert/tapnet/internal/handler/webhook"
	"github.com/dukerupert/tapnet/internal/router"
)

// APIDeps contains dependencies for the storefront JSON API
type APIDeps struct {
	ProductHandler  *storefront.ProductHandler
	CartHandler     *storefront.CartHandler
	CheckoutHandler *storefront.CheckoutHandler
	OrderHandler    *storefront.OrderHandler

	// BodyLimit caps request bodies; nil disables it.
	BodyLimit router.Middleware

	// CouponLimit throttles coupon attempts; nil disables it.
	CouponLimit router.Middleware

	// Timeout bounds cart and catalog routes; GatewayTimeout bounds the
	// routes that call the payment gateway. nil disables either.
	Timeout        router.Middleware
	GatewayTimeout router.Middleware
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	PaymentsHandler *webhook.PaymentsHandler

	// BodyLimit caps gateway payloads; nil disables it.
	BodyLimit router.Middleware
}

// OpsDeps contains the health and metrics endpoints.
type OpsDeps struct {
	Health  http.HandlerFunc
	Metrics http.Handler
}
