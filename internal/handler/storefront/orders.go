package storefront

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/dukerupert/tapnet/internal/handler"
	"github.com/dukerupert/tapnet/internal/service"
)

// OrderHandler serves the order confirmation lookup.
type OrderHandler struct {
	checkout service.CheckoutService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(checkout service.CheckoutService) *OrderHandler {
	return &OrderHandler{checkout: checkout}
}

// Get handles GET /api/orders/{orderNumber}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.checkout.GetOrder(r.Context(), r.PathValue("orderNumber"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, newOrderView(order))
}

// orderView is the public shape of an order. Anyone holding the order number
// can fetch it, so contact details and street addresses are left out.
type orderView struct {
	OrderNumber    string               `json:"orderNumber"`
	Status         domain.OrderStatus   `json:"status"`
	CustomerName   string               `json:"customerName"`
	ShipToCity     string               `json:"shipToCity"`
	Items          []domain.OrderItem   `json:"items"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	DiscountAmount decimal.Decimal      `json:"discountAmount"`
	CouponCode     string               `json:"couponCode,omitempty"`
	Total          decimal.Decimal      `json:"total"`
	Currency       string               `json:"currency"`
	PaymentMethod  domain.PaymentMethod `json:"paymentMethod"`
	PaymentStatus  domain.PaymentStatus `json:"paymentStatus"`
	CreatedAt      time.Time            `json:"createdAt"`
}

func newOrderView(o *domain.Order) orderView {
	return orderView{
		OrderNumber:    o.OrderNumber,
		Status:         o.Status,
		CustomerName:   o.Customer.Name,
		ShipToCity:     o.ShippingAddress.City,
		Items:          o.Items,
		Subtotal:       o.Subtotal,
		DiscountAmount: o.DiscountAmount,
		CouponCode:     o.CouponCode,
		Total:          o.Total,
		Currency:       o.Currency,
		PaymentMethod:  o.Payment.Method,
		PaymentStatus:  o.Payment.Status,
		CreatedAt:      o.CreatedAt,
	}
}
