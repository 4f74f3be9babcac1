package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Subjects published by the storefront.
const (
	SubjectOrderPlaced = "orders.placed"
	SubjectOrderPaid   = "orders.paid"
)

// OrderEvent is the JSON payload for order subjects.
type OrderEvent struct {
	OrderID       string          `json:"orderId"`
	OrderNumber   string          `json:"orderNumber"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"paymentMethod"`
	CouponCode    string          `json:"couponCode,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	ItemCount     int             `json:"itemCount"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// Publisher emits domain events. Publishing is best-effort for callers:
// an error is logged, never surfaced to the shopper.
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
	Close() error
}

// NoopPublisher drops every event. Used when NATS_URL is not set.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, subject string, event any) error { return nil }

func (NoopPublisher) Close() error { return nil }
