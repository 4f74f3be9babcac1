package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// receiptMaxLen is Razorpay's limit on the receipt field.
const receiptMaxLen = 40

// razorpayOrders is the subset of the Razorpay order resource we call.
type razorpayOrders interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayProvider implements Provider using Razorpay Orders and Checkout.
type RazorpayProvider struct {
	config RazorpayConfig
	orders razorpayOrders
}

var _ Provider = (*RazorpayProvider)(nil)

// NewRazorpayProvider creates a Razorpay provider from validated config.
func NewRazorpayProvider(cfg RazorpayConfig) (*RazorpayProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	return &RazorpayProvider{
		config: cfg,
		orders: client.Order,
	}, nil
}

func (p *RazorpayProvider) Name() string { return "razorpay" }

func (p *RazorpayProvider) PublicKey() string { return p.config.KeyID }

// CreateOrder creates a Razorpay order. The SDK call is synchronous and
// does not take a context.
func (p *RazorpayProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*GatewayOrder, error) {
	if params.AmountMinor < MinimumAmountMinor {
		return nil, ErrAmountTooSmall
	}

	currency := strings.ToUpper(params.Currency)
	if currency == "" {
		currency = "INR"
	}

	receipt := params.Receipt
	if len(receipt) > receiptMaxLen {
		receipt = receipt[:receiptMaxLen]
	}

	data := map[string]interface{}{
		"amount":   params.AmountMinor,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(params.Notes) > 0 {
		notes := make(map[string]interface{}, len(params.Notes))
		for k, v := range params.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	var headers map[string]string
	if params.IdempotencyKey != "" {
		headers = map[string]string{"X-Razorpay-Idempotency-Key": params.IdempotencyKey}
	}

	resp, err := p.orders.Create(data, headers)
	if err != nil {
		return nil, &GatewayError{
			Gateway:       p.Name(),
			Message:       "failed to create order",
			OriginalError: err,
		}
	}

	id, _ := resp["id"].(string)
	if id == "" {
		return nil, &GatewayError{Gateway: p.Name(), Message: "order response missing id"}
	}

	order := &GatewayOrder{
		ID:          id,
		AmountMinor: params.AmountMinor,
		Currency:    currency,
		Receipt:     receipt,
		CreatedAt:   time.Now(),
	}
	if s, ok := resp["status"].(string); ok {
		order.Status = s
	}
	if amt, ok := resp["amount"].(float64); ok {
		order.AmountMinor = int64(amt)
	}
	if ts, ok := resp["created_at"].(float64); ok {
		order.CreatedAt = time.Unix(int64(ts), 0)
	}

	return order, nil
}

// VerifyPayment checks the HMAC Razorpay Checkout returns with a successful payment.
func (p *RazorpayProvider) VerifyPayment(ctx context.Context, params VerifyParams) error {
	if params.GatewayOrderID == "" || params.PaymentID == "" || params.Signature == "" {
		return ErrInvalidSignature
	}

	attrs := map[string]interface{}{
		"razorpay_order_id":   params.GatewayOrderID,
		"razorpay_payment_id": params.PaymentID,
	}
	if !utils.VerifyPaymentSignature(attrs, params.Signature, p.config.KeySecret) {
		return ErrInvalidSignature
	}
	return nil
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

type razorpayEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
}

// ParseWebhook verifies X-Razorpay-Signature and normalizes the event.
func (p *RazorpayProvider) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if len(payload) == 0 || signature == "" {
		return nil, ErrInvalidSignature
	}
	if !utils.VerifyWebhookSignature(string(payload), signature, p.config.WebhookSecret) {
		return nil, ErrInvalidSignature
	}

	var hook razorpayWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}

	event := &WebhookEvent{
		Type:    EventIgnored,
		RawType: hook.Event,
	}
	if hook.Payload.Payment != nil {
		event.PaymentID = hook.Payload.Payment.Entity.ID
		event.GatewayOrderID = hook.Payload.Payment.Entity.OrderID
		event.AmountMinor = hook.Payload.Payment.Entity.Amount
	}
	if hook.Payload.Order != nil && event.GatewayOrderID == "" {
		event.GatewayOrderID = hook.Payload.Order.Entity.ID
	}

	switch hook.Event {
	case "payment.captured", "order.paid":
		event.Type = EventPaymentSucceeded
	case "payment.failed":
		event.Type = EventPaymentFailed
	}

	if event.Type != EventIgnored && event.GatewayOrderID == "" {
		return nil, fmt.Errorf("%w: %s without order id", ErrMalformedWebhook, hook.Event)
	}

	event.ID = event.PaymentID
	return event, nil
}
