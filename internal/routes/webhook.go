package routes

import (
	"github.com/dukerupert/tapnet/internal/router"
)

// RegisterWebhookRoutes registers all webhook routes.
//
// Webhook routes skip CSRF; the handler verifies the gateway signature.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	r.Post("/webhooks/payments", deps.PaymentsHandler.HandleWebhook, optional(deps.BodyLimit)...)
}
