package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a mock payment gateway for testing and local development.
// Simulates successful payment flows without calling a real gateway.
type MockProvider struct {
	// CreateOrderFunc allows customizing gateway order creation behavior
	CreateOrderFunc func(ctx context.Context, params CreateOrderParams) (*GatewayOrder, error)

	// VerifyPaymentFunc allows customizing payment verification behavior
	VerifyPaymentFunc func(ctx context.Context, params VerifyParams) error

	// ParseWebhookFunc allows customizing webhook parsing behavior
	ParseWebhookFunc func(payload []byte, signature string) (*WebhookEvent, error)

	// ValidSignature is accepted by the default VerifyPayment.
	ValidSignature string

	mu sync.Mutex

	// Orders stores created gateway orders for retrieval
	Orders map[string]*GatewayOrder

	// CallLog tracks method calls for test assertions
	CallLog []string
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a new mock payment gateway.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		ValidSignature: "valid_signature",
		Orders:         make(map[string]*GatewayOrder),
		CallLog:        []string{},
	}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) PublicKey() string { return "mock_public_key" }

// CreateOrder creates a mock gateway order.
func (m *MockProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*GatewayOrder, error) {
	m.log(fmt.Sprintf("CreateOrder(%d, %s, %s)", params.AmountMinor, params.Currency, params.Receipt))

	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, params)
	}
	if params.AmountMinor < MinimumAmountMinor {
		return nil, ErrAmountTooSmall
	}

	// Default mock behavior: create an order awaiting payment
	order := &GatewayOrder{
		ID:          "order_" + uuid.New().String(),
		AmountMinor: params.AmountMinor,
		Currency:    params.Currency,
		Status:      "created",
		Receipt:     params.Receipt,
		CreatedAt:   time.Now(),
	}

	m.mu.Lock()
	m.Orders[order.ID] = order
	m.mu.Unlock()

	return order, nil
}

// VerifyPayment accepts ValidSignature for any known order.
func (m *MockProvider) VerifyPayment(ctx context.Context, params VerifyParams) error {
	m.log(fmt.Sprintf("VerifyPayment(%s, %s)", params.GatewayOrderID, params.PaymentID))

	if m.VerifyPaymentFunc != nil {
		return m.VerifyPaymentFunc(ctx, params)
	}

	if params.Signature != m.ValidSignature {
		return ErrInvalidSignature
	}
	return nil
}

// ParseWebhook defaults to rejecting every delivery.
func (m *MockProvider) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	m.log("ParseWebhook")

	if m.ParseWebhookFunc != nil {
		return m.ParseWebhookFunc(payload, signature)
	}
	return nil, ErrInvalidSignature
}

// Calls returns a copy of the call log.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.CallLog...)
}

func (m *MockProvider) log(call string) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, call)
	m.mu.Unlock()
}
