package email

import (
	"time"

	"github.com/shopspring/decimal"
)

// EmailTemplate defines the interface for email templates
type EmailTemplate interface {
	Subject() string
	TemplateName() string
}

// OrderConfirmationEmail is sent when an order is placed (COD) or paid (online).
type OrderConfirmationEmail struct {
	OrderNumber    string
	CustomerName   string
	CustomerEmail  string
	OrderDate      time.Time
	Items          []OrderItem
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	CouponCode     string
	Total          decimal.Decimal
	PaymentMethod  string // "Cash on delivery" or "Paid online"
	ShippingAddr   Address
	OrderURL       string
}

func (e OrderConfirmationEmail) Subject() string {
	return "Order Confirmation - " + e.OrderNumber
}

func (e OrderConfirmationEmail) TemplateName() string {
	return "order_confirmation"
}

// HasDiscount reports whether a coupon line should be rendered.
func (e OrderConfirmationEmail) HasDiscount() bool {
	return e.DiscountAmount.IsPositive()
}

// PaymentFailedEmail nudges the shopper to retry an online payment.
type PaymentFailedEmail struct {
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	Total         decimal.Decimal
	RetryURL      string
}

func (e PaymentFailedEmail) Subject() string {
	return "Payment unsuccessful - " + e.OrderNumber
}

func (e PaymentFailedEmail) TemplateName() string {
	return "payment_failed"
}

// Supporting types

// OrderItem represents a line item in an order
type OrderItem struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// Address represents a shipping address
type Address struct {
	Name       string
	Line1      string
	Line2      string // Optional
	City       string
	State      string
	PostalCode string
	Country    string
}
