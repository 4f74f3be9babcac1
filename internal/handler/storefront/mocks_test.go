package storefront

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/tapnet/internal/cart"
	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/dukerupert/tapnet/internal/pricing"
	"github.com/dukerupert/tapnet/internal/service"
)

const (
	existingSession = "c2Vzc2lvbi10b2tlbi1mb3ItdGVzdHMtMDAwMDAwMDAwMA"
	freshSession    = "ZnJlc2gtc2Vzc2lvbi10b2tlbi1mb3ItdGVzdHMtMDAwMDA"
)

// mockCartService implements service.CartService for testing.
// Session hands out freshSession for unknown ids.
type mockCartService struct {
	sessionFunc        func(ctx context.Context, sessionID string) (*cart.Engine, string, error)
	addItemFunc        func(ctx context.Context, sessionID, productID string, quantity int) (pricing.Summary, error)
	updateQuantityFunc func(ctx context.Context, sessionID, productID string, quantity int) (pricing.Summary, error)
	removeItemFunc     func(ctx context.Context, sessionID, productID string) (pricing.Summary, error)
	clearFunc          func(ctx context.Context, sessionID string) error
	applyCouponFunc    func(ctx context.Context, sessionID, code string) (cart.ApplyResult, pricing.Summary, error)
	removeCouponFunc   func(ctx context.Context, sessionID string) (pricing.Summary, error)
	summaryFunc        func(ctx context.Context, sessionID string) (pricing.Summary, error)
}

var _ service.CartService = (*mockCartService)(nil)

func (m *mockCartService) Session(ctx context.Context, sessionID string) (*cart.Engine, string, error) {
	if m.sessionFunc != nil {
		return m.sessionFunc(ctx, sessionID)
	}
	if sessionID == existingSession {
		return nil, sessionID, nil
	}
	return nil, freshSession, nil
}

func (m *mockCartService) AddItem(ctx context.Context, sessionID, productID string, quantity int) (pricing.Summary, error) {
	if m.addItemFunc != nil {
		return m.addItemFunc(ctx, sessionID, productID, quantity)
	}
	return pricing.Summary{}, nil
}

func (m *mockCartService) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (pricing.Summary, error) {
	if m.updateQuantityFunc != nil {
		return m.updateQuantityFunc(ctx, sessionID, productID, quantity)
	}
	return pricing.Summary{}, nil
}

func (m *mockCartService) RemoveItem(ctx context.Context, sessionID, productID string) (pricing.Summary, error) {
	if m.removeItemFunc != nil {
		return m.removeItemFunc(ctx, sessionID, productID)
	}
	return pricing.Summary{}, nil
}

func (m *mockCartService) Clear(ctx context.Context, sessionID string) error {
	if m.clearFunc != nil {
		return m.clearFunc(ctx, sessionID)
	}
	return nil
}

func (m *mockCartService) ApplyCoupon(ctx context.Context, sessionID, code string) (cart.ApplyResult, pricing.Summary, error) {
	if m.applyCouponFunc != nil {
		return m.applyCouponFunc(ctx, sessionID, code)
	}
	return cart.ApplyResult{}, pricing.Summary{}, nil
}

func (m *mockCartService) RemoveCoupon(ctx context.Context, sessionID string) (pricing.Summary, error) {
	if m.removeCouponFunc != nil {
		return m.removeCouponFunc(ctx, sessionID)
	}
	return pricing.Summary{}, nil
}

func (m *mockCartService) Summary(ctx context.Context, sessionID string) (pricing.Summary, error) {
	if m.summaryFunc != nil {
		return m.summaryFunc(ctx, sessionID)
	}
	return pricing.Summary{}, nil
}

func (m *mockCartService) Sweep(idle time.Duration) int { return 0 }

// mockCheckoutService implements service.CheckoutService for testing
type mockCheckoutService struct {
	placeOrderFunc    func(ctx context.Context, sessionID string, req service.CheckoutRequest) (*service.CheckoutResult, error)
	verifyPaymentFunc func(ctx context.Context, sessionID string, req service.VerifyPaymentRequest) (*domain.Order, error)
	handleWebhookFunc func(ctx context.Context, payload []byte, signature string) error
	getOrderFunc      func(ctx context.Context, orderNumber string) (*domain.Order, error)
}

var _ service.CheckoutService = (*mockCheckoutService)(nil)

func (m *mockCheckoutService) PlaceOrder(ctx context.Context, sessionID string, req service.CheckoutRequest) (*service.CheckoutResult, error) {
	if m.placeOrderFunc != nil {
		return m.placeOrderFunc(ctx, sessionID, req)
	}
	return nil, nil
}

func (m *mockCheckoutService) VerifyPayment(ctx context.Context, sessionID string, req service.VerifyPaymentRequest) (*domain.Order, error) {
	if m.verifyPaymentFunc != nil {
		return m.verifyPaymentFunc(ctx, sessionID, req)
	}
	return nil, nil
}

func (m *mockCheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if m.handleWebhookFunc != nil {
		return m.handleWebhookFunc(ctx, payload, signature)
	}
	return nil
}

func (m *mockCheckoutService) GetOrder(ctx context.Context, orderNumber string) (*domain.Order, error) {
	if m.getOrderFunc != nil {
		return m.getOrderFunc(ctx, orderNumber)
	}
	return nil, nil
}

// mockCatalog implements domain.ProductCatalog for testing
type mockCatalog struct {
	products []domain.Product
	err      error
}

func (m *mockCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (m *mockCatalog) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	return m.products, m.err
}

// summaryOf prices a cart holding one NFC card line.
func summaryOf(quantity int, coupon *domain.AppliedCoupon) pricing.Summary {
	return pricing.Summarize(domain.CartState{
		Lines: []domain.CartLine{{
			ProductID: "nfc-card",
			Name:      "NFC Card",
			Slug:      "nfc-card",
			UnitPrice: decimal.NewFromInt(500),
			Quantity:  quantity,
		}},
		AppliedCoupon: coupon,
	})
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:          "ord-1",
		OrderNumber: "TN-20250615-ABC123",
		Status:      domain.OrderStatusConfirmed,
		Customer:    domain.Customer{Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210"},
		ShippingAddress: domain.Address{
			Line1: "12 MG Road", City: "Bengaluru", State: "Karnataka", PostalCode: "560001", Country: "IN",
		},
		Items: []domain.OrderItem{{
			ProductID:   "nfc-card",
			ProductName: "NFC Card",
			UnitPrice:   decimal.NewFromInt(500),
			Quantity:    2,
			LineTotal:   decimal.NewFromInt(1000),
		}},
		Subtotal:       decimal.NewFromInt(1000),
		DiscountAmount: decimal.NewFromInt(100),
		CouponCode:     "SAVE10",
		Total:          decimal.NewFromInt(900),
		Currency:       "INR",
		Payment:        domain.Payment{Method: domain.PaymentMethodCOD, Status: domain.PaymentStatusCOD},
		CreatedAt:      time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
	}
}
