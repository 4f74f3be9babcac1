package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order-related domain errors.
var (
	ErrOrderNotFound           = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrPaymentNotVerified      = &Error{Code: EPAYMENT, Message: "Payment could not be verified"}
	ErrPaymentAlreadyProcessed = &Error{Code: ECONFLICT, Message: "Payment already processed"}
	ErrUnsupportedPayment      = &Error{Code: EINVALID, Message: "Unsupported payment method"}
)

// PaymentMethod is chosen by the shopper at checkout.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
)

// OrderStatus tracks an order from placement to fulfillment.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// PaymentStatus tracks the money side of an order.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusCOD     PaymentStatus = "cod"
)

// Customer is the contact captured on the checkout form.
type Customer struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,min=10,max=15"`
}

// Address is a shipping or billing address.
type Address struct {
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postalCode" validate:"required,numeric,len=6"`
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
}

// OrderDraft is everything the external store needs to create an order.
// Amounts are the values computed by the cart engine at checkout time.
type OrderDraft struct {
	Customer        Customer
	ShippingAddress Address
	BillingAddress  Address
	PaymentMethod   PaymentMethod
	Notes           string

	Lines          []CartLine
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	CouponCode     string
	Total          decimal.Decimal
	Currency       string
}

// OrderItem is a persisted line of an order.
type OrderItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// Payment is the payment record attached to an order.
type Payment struct {
	ID             string          `json:"id"`
	Method         PaymentMethod   `json:"method"`
	Status         PaymentStatus   `json:"status"`
	Provider       string          `json:"provider,omitempty"`
	GatewayOrderID string          `json:"gatewayOrderId,omitempty"`
	GatewayPayment string          `json:"gatewayPaymentId,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
}

// Order is a placed order.
type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	Status          OrderStatus     `json:"status"`
	Customer        Customer        `json:"customer"`
	ShippingAddress Address         `json:"shippingAddress"`
	BillingAddress  Address         `json:"billingAddress"`
	Items           []OrderItem     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	CouponCode      string          `json:"couponCode,omitempty"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	Notes           string          `json:"notes,omitempty"`
	Payment         Payment         `json:"payment"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// OrderStore persists orders in the external store.
type OrderStore interface {
	// CreateOrder writes the order, its items and its payment row atomically.
	CreateOrder(ctx context.Context, draft OrderDraft) (*Order, error)

	// AttachGatewayOrder records the gateway order id issued for an online payment.
	AttachGatewayOrder(ctx context.Context, orderID, provider, gatewayOrderID string) error

	// MarkPaid confirms the order behind gatewayOrderID.
	// Returns ErrPaymentAlreadyProcessed (with the order) when it was already paid.
	MarkPaid(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*Order, error)

	// MarkPaymentFailed records a failed attempt; the order stays pending.
	MarkPaymentFailed(ctx context.Context, gatewayOrderID, gatewayPaymentID string) error

	GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error)
	GetOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error)
}
