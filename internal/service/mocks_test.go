package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/tapnet/internal/cart"
	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/shopspring/decimal"
)

// ============================================================================
// Mock Implementations
// ============================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryStores hands out one MemoryStore per session token.
type memoryStores struct {
	mu     sync.Mutex
	stores map[string]*cart.MemoryStore
}

func newMemoryStores() *memoryStores {
	return &memoryStores{stores: make(map[string]*cart.MemoryStore)}
}

func (m *memoryStores) Store(token string) cart.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[token]
	if !ok {
		s = cart.NewMemoryStore()
		m.stores[token] = s
	}
	return s
}

// mockCatalog implements domain.ProductCatalog
type mockCatalog struct {
	products map[string]domain.Product
	err      error
}

func newMockCatalog(products ...domain.Product) *mockCatalog {
	m := &mockCatalog{products: make(map[string]domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (m *mockCatalog) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range m.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

// mockCoupons implements domain.CouponStore
type mockCoupons struct {
	mu      sync.Mutex
	coupons map[string]domain.Coupon

	FetchErr     error
	IncrementErr error
	Incremented  []string
	Fetches      int
}

func newMockCoupons(coupons ...domain.Coupon) *mockCoupons {
	m := &mockCoupons{coupons: make(map[string]domain.Coupon)}
	for _, c := range coupons {
		m.coupons[c.Code] = c
	}
	return m
}

func (m *mockCoupons) FetchCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetches++
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	c, ok := m.coupons[code]
	if !ok {
		return nil, domain.ErrCouponNotFound
	}
	return &c, nil
}

func (m *mockCoupons) IncrementUsage(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IncrementErr != nil {
		return m.IncrementErr
	}
	m.Incremented = append(m.Incremented, code)
	c := m.coupons[code]
	c.CurrentUses++
	m.coupons[code] = c
	return nil
}

func (m *mockCoupons) set(c domain.Coupon) {
	m.mu.Lock()
	m.coupons[c.Code] = c
	m.mu.Unlock()
}

// mockOrders is an in-memory domain.OrderStore
type mockOrders struct {
	mu        sync.Mutex
	orders    map[string]*domain.Order // by order number
	byGateway map[string]string        // gateway order id -> order number
	seq       int

	CreateErr error
	Drafts    []domain.OrderDraft
}

func newMockOrders() *mockOrders {
	return &mockOrders{
		orders:    make(map[string]*domain.Order),
		byGateway: make(map[string]string),
	}
}

func (m *mockOrders) CreateOrder(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.Drafts = append(m.Drafts, draft)
	m.seq++

	order := &domain.Order{
		ID:              fmt.Sprintf("order-%d", m.seq),
		OrderNumber:     fmt.Sprintf("TN-20250615-%06d", m.seq),
		Status:          domain.OrderStatusPendingPayment,
		Customer:        draft.Customer,
		ShippingAddress: draft.ShippingAddress,
		BillingAddress:  draft.BillingAddress,
		Subtotal:        draft.Subtotal,
		DiscountAmount:  draft.DiscountAmount,
		CouponCode:      draft.CouponCode,
		Total:           draft.Total,
		Currency:        draft.Currency,
		Notes:           draft.Notes,
		Payment: domain.Payment{
			ID:     fmt.Sprintf("payment-%d", m.seq),
			Method: draft.PaymentMethod,
			Status: domain.PaymentStatusPending,
			Amount: draft.Total,
		},
		CreatedAt: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
	}
	if draft.PaymentMethod == domain.PaymentMethodCOD {
		order.Status = domain.OrderStatusConfirmed
		order.Payment.Status = domain.PaymentStatusCOD
	}
	for _, l := range draft.Lines {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:   l.ProductID,
			ProductName: l.Name,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			LineTotal:   l.LineTotal(),
		})
	}

	m.orders[order.OrderNumber] = order
	cp := *order
	return &cp, nil
}

func (m *mockOrders) AttachGatewayOrder(ctx context.Context, orderID, provider, gatewayOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == orderID {
			o.Payment.Provider = provider
			o.Payment.GatewayOrderID = gatewayOrderID
			m.byGateway[gatewayOrderID] = o.OrderNumber
			return nil
		}
	}
	return domain.ErrOrderNotFound
}

func (m *mockOrders) MarkPaid(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	number, ok := m.byGateway[gatewayOrderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	o := m.orders[number]
	if o.Payment.Status == domain.PaymentStatusPaid {
		cp := *o
		return &cp, domain.ErrPaymentAlreadyProcessed
	}
	o.Payment.Status = domain.PaymentStatusPaid
	o.Payment.GatewayPayment = gatewayPaymentID
	o.Status = domain.OrderStatusConfirmed
	cp := *o
	return &cp, nil
}

func (m *mockOrders) MarkPaymentFailed(ctx context.Context, gatewayOrderID, gatewayPaymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if number, ok := m.byGateway[gatewayOrderID]; ok {
		if o := m.orders[number]; o.Payment.Status != domain.PaymentStatusPaid {
			o.Payment.Status = domain.PaymentStatusFailed
		}
	}
	return nil
}

func (m *mockOrders) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderNumber]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrders) GetOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	m.mu.Lock()
	number, ok := m.byGateway[gatewayOrderID]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return m.GetOrderByNumber(ctx, number)
}

// mockNotifier implements OrderNotifier
type mockNotifier struct {
	mu            sync.Mutex
	Confirmations []string
	Failures      []string
	Err           error
}

func (m *mockNotifier) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Confirmations = append(m.Confirmations, order.OrderNumber)
	return m.Err
}

func (m *mockNotifier) SendPaymentFailed(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures = append(m.Failures, order.OrderNumber)
	return m.Err
}

// mockPublisher implements events.Publisher
type mockPublisher struct {
	mu       sync.Mutex
	Subjects []string
	Err      error
}

func (m *mockPublisher) Publish(ctx context.Context, subject string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Subjects = append(m.Subjects, subject)
	return m.Err
}

func (m *mockPublisher) Close() error { return nil }

// ============================================================================
// Fixtures
// ============================================================================

var (
	productCard = domain.Product{
		ID:       "11111111-1111-1111-1111-111111111111",
		Name:     "NFC Business Card",
		Slug:     "nfc-business-card",
		Category: "cards",
		Price:    decimal.NewFromInt(500),
		IsActive: true,
	}
	productStand = domain.Product{
		ID:       "22222222-2222-2222-2222-222222222222",
		Name:     "QR Table Stand",
		Slug:     "qr-table-stand",
		Category: "stands",
		Price:    decimal.RequireFromString("249.50"),
		IsActive: true,
	}
	productRetired = domain.Product{
		ID:       "33333333-3333-3333-3333-333333333333",
		Name:     "Legacy Tag",
		Slug:     "legacy-tag",
		Price:    decimal.NewFromInt(99),
		IsActive: false,
	}
)

func couponSave10() domain.Coupon {
	return domain.Coupon{
		ID:             "c-save10",
		Code:           "SAVE10",
		DiscountType:   domain.DiscountPercentage,
		DiscountValue:  decimal.NewFromInt(10),
		MinOrderAmount: decimal.NewFromInt(500),
		IsActive:       true,
	}
}

func couponFlat200() domain.Coupon {
	return domain.Coupon{
		ID:             "c-flat200",
		Code:           "FLAT200",
		DiscountType:   domain.DiscountFixed,
		DiscountValue:  decimal.NewFromInt(200),
		MinOrderAmount: decimal.Zero,
		IsActive:       true,
	}
}

func testAddress() domain.Address {
	return domain.Address{
		Line1:      "12 MG Road",
		City:       "Bengaluru",
		State:      "Karnataka",
		PostalCode: "560001",
		Country:    "IN",
	}
}

func validCheckout(method domain.PaymentMethod) CheckoutRequest {
	return CheckoutRequest{
		Customer: domain.Customer{
			Name:  "Asha Rao",
			Email: "Asha@Example.com ",
			Phone: "9876543210",
		},
		ShippingAddress: testAddress(),
		PaymentMethod:   method,
	}
}
