package billing

import (
	"context"
	"time"
)

// Provider defines the payment gateway used for online checkout.
// Implementations: RazorpayProvider (default), StripeProvider, MockProvider.
type Provider interface {
	// CreateOrder opens a gateway-side order (or payment intent) for the amount.
	// The returned ID is handed to the hosted payment widget.
	CreateOrder(ctx context.Context, params CreateOrderParams) (*GatewayOrder, error)

	// VerifyPayment confirms the widget's success callback is authentic.
	// Returns ErrInvalidSignature (or ErrPaymentNotCompleted) when it is not.
	VerifyPayment(ctx context.Context, params VerifyParams) error

	// ParseWebhook verifies a webhook delivery and normalizes its event.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)

	// PublicKey is the publishable key the storefront widget needs.
	PublicKey() string

	// Name identifies the gateway ("razorpay", "stripe", "mock").
	Name() string
}

// CreateOrderParams contains parameters for creating a gateway order.
type CreateOrderParams struct {
	// AmountMinor is the amount in the smallest currency unit (paise for INR).
	AmountMinor int64

	// Currency code (ISO 4217), e.g. "INR".
	Currency string

	// Receipt is our order number, echoed back by the gateway.
	Receipt string

	// Notes are attached to the gateway order for reconciliation.
	Notes map[string]string

	// IdempotencyKey prevents duplicate gateway orders on retries.
	IdempotencyKey string
}

// GatewayOrder is the gateway's view of an order awaiting payment.
type GatewayOrder struct {
	ID          string
	AmountMinor int64
	Currency    string
	Status      string
	Receipt     string

	// ClientSecret is set by gateways whose widget needs it (Stripe).
	ClientSecret string

	CreatedAt time.Time
}

// VerifyParams is what the widget hands back after a successful payment.
type VerifyParams struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

// WebhookEventType is the normalized webhook kind.
type WebhookEventType string

const (
	EventPaymentSucceeded WebhookEventType = "payment_succeeded"
	EventPaymentFailed    WebhookEventType = "payment_failed"
	EventIgnored          WebhookEventType = "ignored"
)

// WebhookEvent is a verified, gateway-neutral webhook.
type WebhookEvent struct {
	ID             string
	Type           WebhookEventType
	RawType        string
	GatewayOrderID string
	PaymentID      string
	AmountMinor    int64
}
