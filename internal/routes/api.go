package routes

import (
	"net/http"

	"github.com/dukerupert/tapnet/internal/router"
)

// RegisterAPIRoutes registers the cart, checkout and order routes the
// storefront calls. Sessions come from the tapnet_session cookie.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	api := r.Group(optional(deps.BodyLimit, deps.Timeout)...)

	api.Get("/api/products", deps.ProductHandler.List)

	// Cart
	api.Get("/api/cart", deps.CartHandler.View)
	api.Delete("/api/cart", deps.CartHandler.Clear)
	api.Post("/api/cart/items", deps.CartHandler.AddItem)
	api.Patch("/api/cart/items/{productID}", deps.CartHandler.UpdateQuantity)
	api.Delete("/api/cart/items/{productID}", deps.CartHandler.RemoveItem)
	api.Post("/api/cart/coupon", deps.CartHandler.ApplyCoupon, optional(deps.CouponLimit)...)
	api.Delete("/api/cart/coupon", deps.CartHandler.RemoveCoupon)

	api.Get("/api/orders/{orderNumber}", deps.OrderHandler.Get)

	// Checkout talks to the payment gateway and gets the longer deadline.
	checkout := r.Group(optional(deps.BodyLimit, deps.GatewayTimeout)...)
	checkout.Post("/api/checkout", deps.CheckoutHandler.PlaceOrder)
	checkout.Post("/api/checkout/verify", deps.CheckoutHandler.VerifyPayment)
}

// RegisterOpsRoutes registers liveness and metrics.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Get("/healthz", deps.Health)
	if deps.Metrics != nil {
		r.Handle(http.MethodGet, "/metrics", deps.Metrics)
	}
}

// optional drops nil middleware so deps can leave any of them unset.
func optional(ms ...router.Middleware) []router.Middleware {
	var out []router.Middleware
	for _, m := range ms {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
