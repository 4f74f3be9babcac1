package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeProvider implements Provider using Stripe Payment Intents.
// The payment intent id plays the role of the gateway order id.
type StripeProvider struct {
	config StripeConfig

	// Overridable in tests.
	newIntent func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	getIntent func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider creates a Stripe provider from validated config.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stripe.Key = cfg.APIKey

	return &StripeProvider{
		config:    cfg,
		newIntent: paymentintent.New,
		getIntent: paymentintent.Get,
	}, nil
}

func (s *StripeProvider) Name() string { return "stripe" }

func (s *StripeProvider) PublicKey() string { return s.config.PublishableKey }

// CreateOrder creates a payment intent with automatic payment methods.
func (s *StripeProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*GatewayOrder, error) {
	if params.AmountMinor < MinimumAmountMinor {
		return nil, ErrAmountTooSmall
	}

	currency := strings.ToLower(params.Currency)
	if currency == "" {
		currency = "inr"
	}

	piParams := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(params.AmountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	piParams.Context = ctx
	if params.Receipt != "" {
		piParams.Description = stripe.String("Order " + params.Receipt)
		piParams.AddMetadata("order_number", params.Receipt)
	}
	for k, v := range params.Notes {
		piParams.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		piParams.SetIdempotencyKey(params.IdempotencyKey)
	}

	pi, err := s.newIntent(piParams)
	if err != nil {
		return nil, convertStripeError(err)
	}

	return &GatewayOrder{
		ID:           pi.ID,
		AmountMinor:  pi.Amount,
		Currency:     strings.ToUpper(string(pi.Currency)),
		Status:       string(pi.Status),
		Receipt:      params.Receipt,
		ClientSecret: pi.ClientSecret,
		CreatedAt:    time.Unix(pi.Created, 0),
	}, nil
}

// VerifyPayment retrieves the intent and requires it to have succeeded.
// Stripe has no client-side signature, so params.Signature is ignored.
func (s *StripeProvider) VerifyPayment(ctx context.Context, params VerifyParams) error {
	if params.GatewayOrderID == "" {
		return ErrPaymentNotCompleted
	}

	getParams := &stripe.PaymentIntentParams{}
	getParams.Context = ctx

	pi, err := s.getIntent(params.GatewayOrderID, getParams)
	if err != nil {
		return convertStripeError(err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("%w: status %s", ErrPaymentNotCompleted, pi.Status)
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and normalizes the event.
func (s *StripeProvider) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{
		ID:      event.ID,
		Type:    EventIgnored,
		RawType: string(event.Type),
	}

	switch event.Type {
	case "payment_intent.succeeded":
		out.Type = EventPaymentSucceeded
	case "payment_intent.payment_failed":
		out.Type = EventPaymentFailed
	default:
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	out.GatewayOrderID = pi.ID
	out.PaymentID = pi.ID
	if pi.LatestCharge != nil {
		out.PaymentID = pi.LatestCharge.ID
	}
	out.AmountMinor = pi.Amount

	return out, nil
}

// convertStripeError maps SDK errors onto GatewayError.
func convertStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return &GatewayError{Gateway: "stripe", Message: err.Error(), OriginalError: err}
	}

	return &GatewayError{
		Gateway:       "stripe",
		Message:       stripeErr.Msg,
		Code:          string(stripeErr.Code),
		DeclineCode:   string(stripeErr.DeclineCode),
		StatusCode:    stripeErr.HTTPStatusCode,
		RequestID:     stripeErr.RequestID,
		OriginalError: err,
	}
}
