package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/tapnet/internal/address"
	"github.com/dukerupert/tapnet/internal/billing"
	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/dukerupert/tapnet/internal/events"
	"github.com/dukerupert/tapnet/internal/pricing"
	"github.com/dukerupert/tapnet/internal/telemetry"
	"github.com/shopspring/decimal"
)

// CheckoutService turns a session cart into an order and settles its payment.
type CheckoutService interface {
	// PlaceOrder validates the form, re-checks the applied coupon and creates
	// the order. Online orders also get a gateway order for the payment widget.
	PlaceOrder(ctx context.Context, sessionID string, req CheckoutRequest) (*CheckoutResult, error)

	// VerifyPayment checks the gateway callback and confirms the order (idempotent).
	VerifyPayment(ctx context.Context, sessionID string, req VerifyPaymentRequest) (*domain.Order, error)

	// HandleWebhook applies a signed gateway webhook. Never touches a cart.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error

	GetOrder(ctx context.Context, orderNumber string) (*domain.Order, error)
}

// CheckoutRequest is the checkout form.
type CheckoutRequest struct {
	Customer        domain.Customer `json:"customer"`
	ShippingAddress domain.Address  `json:"shippingAddress"`
	// BillingAddress defaults to the shipping address.
	BillingAddress *domain.Address      `json:"billingAddress,omitempty" validate:"omitempty"`
	PaymentMethod  domain.PaymentMethod `json:"paymentMethod" validate:"required,oneof=cod online"`
	Notes          string               `json:"notes,omitempty" validate:"max=500"`
}

// VerifyPaymentRequest carries what the hosted payment widget hands back.
type VerifyPaymentRequest struct {
	GatewayOrderID string `json:"gatewayOrderId" validate:"required"`
	PaymentID      string `json:"paymentId"`
	Signature      string `json:"signature"`
}

// PaymentHandoff is what the browser needs to open the gateway's widget.
type PaymentHandoff struct {
	Provider       string `json:"provider"`
	PublicKey      string `json:"publicKey"`
	GatewayOrderID string `json:"gatewayOrderId"`
	ClientSecret   string `json:"clientSecret,omitempty"`
	AmountMinor    int64  `json:"amount"`
	Currency       string `json:"currency"`
}

// CheckoutResult is returned by PlaceOrder. Payment is set for online orders.
type CheckoutResult struct {
	Order   *domain.Order   `json:"order"`
	Payment *PaymentHandoff `json:"payment,omitempty"`
}

// OrderNotifier sends transactional email about an order.
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, order *domain.Order) error
	SendPaymentFailed(ctx context.Context, order *domain.Order) error
}

type checkoutService struct {
	carts     CartService
	coupons   domain.CouponStore
	orders    domain.OrderStore
	gateway   billing.Provider
	addresses address.Validator
	notifier  OrderNotifier
	publisher events.Publisher
	logger    *slog.Logger
	currency  string
	now       func() time.Time
}

// NewCheckoutService creates a new CheckoutService instance.
func NewCheckoutService(
	carts CartService,
	coupons domain.CouponStore,
	orders domain.OrderStore,
	gateway billing.Provider,
	notifier OrderNotifier,
	publisher events.Publisher,
	logger *slog.Logger,
	currency string,
) CheckoutService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if currency == "" {
		currency = "INR"
	}

	return &checkoutService{
		carts:     carts,
		coupons:   coupons,
		orders:    orders,
		gateway:   gateway,
		addresses: address.NewBasicValidator(),
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		currency:  strings.ToUpper(currency),
		now:       time.Now,
	}
}

func (s *checkoutService) PlaceOrder(ctx context.Context, sessionID string, req CheckoutRequest) (*CheckoutResult, error) {
	const op = "checkout.place_order"

	if telemetry.Business != nil {
		telemetry.Business.CheckoutStarted.WithLabelValues(string(req.PaymentMethod)).Inc()
	}

	result, err := s.placeOrder(ctx, sessionID, req)
	if err != nil {
		if telemetry.Business != nil {
			telemetry.Business.CheckoutFailed.WithLabelValues(checkoutFailureReason(err)).Inc()
		}
		if domain.ErrorCode(err) == domain.EINTERNAL {
			s.logger.Error("checkout failed", "op", op, "error", err)
		}
		return nil, err
	}

	if telemetry.Business != nil {
		method := string(result.Order.Payment.Method)
		telemetry.Business.CheckoutCompleted.WithLabelValues(method).Inc()
		telemetry.Business.OrderValue.WithLabelValues(method).Observe(result.Order.Total.InexactFloat64())
	}
	return result, nil
}

func (s *checkoutService) placeOrder(ctx context.Context, sessionID string, req CheckoutRequest) (*CheckoutResult, error) {
	const op = "checkout.place_order"

	normalizeCheckoutRequest(&req)
	addrFields, err := s.checkAddresses(ctx, &req)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to validate address")
	}
	if err := validateStruct(op, req); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			for field, msg := range addrFields {
				if _, seen := verr.Fields[field]; !seen {
					verr.Fields[field] = msg
				}
			}
		}
		return nil, err
	}
	if len(addrFields) > 0 {
		return nil, &domain.ValidationError{Op: op, Fields: addrFields}
	}

	engine, _, err := s.carts.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	state := engine.State()
	if len(state.Lines) == 0 {
		return nil, domain.ErrCartEmpty.WithOp(op)
	}

	if state.AppliedCoupon != nil {
		if err := s.revalidateCoupon(ctx, state.AppliedCoupon.Code, pricing.Subtotal(state.Lines)); err != nil {
			if domain.ErrorCode(err) == domain.EUNPROCESSABLE {
				if rmErr := engine.RemoveCoupon(ctx); rmErr != nil {
					s.logger.Warn("failed to drop invalid coupon", "error", rmErr)
				}
			}
			return nil, err
		}
	}

	summary := pricing.Summarize(state)

	if req.PaymentMethod == domain.PaymentMethodOnline &&
		pricing.ToMinorUnits(summary.Total) < billing.MinimumAmountMinor {
		return nil, ErrTotalTooSmallForOnline
	}

	billingAddr := req.ShippingAddress
	if req.BillingAddress != nil {
		billingAddr = *req.BillingAddress
	}

	draft := domain.OrderDraft{
		Customer:        req.Customer,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billingAddr,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		Lines:           summary.Lines,
		Subtotal:        summary.Subtotal,
		DiscountAmount:  summary.DiscountAmount,
		Total:           summary.Total,
		Currency:        s.currency,
	}
	if summary.Coupon != nil {
		draft.CouponCode = summary.Coupon.Code
	}

	order, err := s.orders.CreateOrder(ctx, draft)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		"order_number", order.OrderNumber,
		"payment_method", order.Payment.Method,
		"total", order.Total.StringFixed(2),
		"coupon", order.CouponCode,
	)
	s.publish(ctx, events.SubjectOrderPlaced, order)

	if req.PaymentMethod == domain.PaymentMethodCOD {
		s.finalize(ctx, order)
		if err := engine.Clear(ctx); err != nil {
			s.logger.Warn("failed to clear cart after order", "order_number", order.OrderNumber, "error", err)
		}
		return &CheckoutResult{Order: order}, nil
	}

	handoff, err := s.startPayment(ctx, order)
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{Order: order, Payment: handoff}, nil
}

// revalidateCoupon re-fetches the applied coupon and checks it against the
// current subtotal. Coupon rule failures come back as EUNPROCESSABLE.
func (s *checkoutService) revalidateCoupon(ctx context.Context, code string, subtotal decimal.Decimal) error {
	const op = "checkout.revalidate_coupon"

	coupon, err := s.coupons.FetchCoupon(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrCouponNotFound) {
			return domain.ErrCouponNotFound.WithOp(op)
		}
		return domain.Internal(err, op, "failed to check coupon")
	}
	return pricing.CheckEligibility(*coupon, subtotal, s.now())
}

// startPayment opens a gateway order for an online order.
func (s *checkoutService) startPayment(ctx context.Context, order *domain.Order) (*PaymentHandoff, error) {
	const op = "checkout.start_payment"

	ctx, finish := telemetry.StartSpan(ctx, "payment.create_order", s.gateway.Name())
	defer finish()

	gwOrder, err := s.gateway.CreateOrder(ctx, billing.CreateOrderParams{
		AmountMinor:    pricing.ToMinorUnits(order.Total),
		Currency:       order.Currency,
		Receipt:        order.OrderNumber,
		Notes:          map[string]string{"order_id": order.ID},
		IdempotencyKey: order.ID,
	})
	if err != nil {
		s.logger.Error("gateway order creation failed",
			"order_number", order.OrderNumber,
			"provider", s.gateway.Name(),
			"error", err,
		)
		telemetry.CaptureErrorFromContext(ctx, err, map[string]interface{}{"order_number": order.OrderNumber})
		return nil, domain.WrapError(err, domain.EPAYMENT, op, msgGatewayUnavailable)
	}

	if err := s.orders.AttachGatewayOrder(ctx, order.ID, s.gateway.Name(), gwOrder.ID); err != nil {
		return nil, err
	}
	order.Payment.Provider = s.gateway.Name()
	order.Payment.GatewayOrderID = gwOrder.ID

	return &PaymentHandoff{
		Provider:       s.gateway.Name(),
		PublicKey:      s.gateway.PublicKey(),
		GatewayOrderID: gwOrder.ID,
		ClientSecret:   gwOrder.ClientSecret,
		AmountMinor:    gwOrder.AmountMinor,
		Currency:       gwOrder.Currency,
	}, nil
}

func (s *checkoutService) VerifyPayment(ctx context.Context, sessionID string, req VerifyPaymentRequest) (*domain.Order, error) {
	const op = "checkout.verify_payment"

	if err := validateStruct(op, req); err != nil {
		return nil, err
	}

	err := s.gateway.VerifyPayment(ctx, billing.VerifyParams{
		GatewayOrderID: req.GatewayOrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
	})
	if err != nil {
		s.recordPaymentFailure("verification_failed")
		s.logger.Warn("payment verification failed",
			"gateway_order_id", req.GatewayOrderID,
			"error", err,
		)
		if errors.Is(err, billing.ErrInvalidSignature) || errors.Is(err, billing.ErrPaymentNotCompleted) {
			return nil, domain.ErrPaymentNotVerified.WithOp(op)
		}
		return nil, domain.WrapError(err, domain.EPAYMENT, op, msgGatewayUnavailable)
	}

	paymentID := req.PaymentID
	if paymentID == "" {
		paymentID = req.GatewayOrderID
	}

	order, err := s.orders.MarkPaid(ctx, req.GatewayOrderID, paymentID)
	switch {
	case errors.Is(err, domain.ErrPaymentAlreadyProcessed):
		// The webhook got there first; it already ran the side effects.
	case err != nil:
		return nil, err
	default:
		if telemetry.Business != nil {
			telemetry.Business.PaymentVerified.WithLabelValues(s.gateway.Name(), "checkout").Inc()
		}
		s.finalize(ctx, order)
		s.publish(ctx, events.SubjectOrderPaid, order)
	}

	if sessionID != "" {
		if err := s.carts.Clear(ctx, sessionID); err != nil {
			s.logger.Warn("failed to clear cart after payment", "order_number", order.OrderNumber, "error", err)
		}
	}
	return order, nil
}

func (s *checkoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	const op = "checkout.handle_webhook"

	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrMalformedWebhook) {
			return ErrMalformedWebhook
		}
		return ErrInvalidWebhookSignature
	}

	if telemetry.Business != nil {
		telemetry.Business.WebhookReceived.WithLabelValues(s.gateway.Name(), event.RawType).Inc()
	}

	logger := s.logger.With(
		"event_id", event.ID,
		"event_type", event.RawType,
		"gateway_order_id", event.GatewayOrderID,
	)

	switch event.Type {
	case billing.EventPaymentSucceeded:
		order, err := s.orders.MarkPaid(ctx, event.GatewayOrderID, event.PaymentID)
		switch {
		case errors.Is(err, domain.ErrPaymentAlreadyProcessed):
			logger.Info("webhook for already paid order")
			return nil
		case errors.Is(err, domain.ErrOrderNotFound):
			// Not one of ours, or created outside checkout. Acknowledge so the gateway stops retrying.
			logger.Warn("webhook for unknown order")
			return nil
		case err != nil:
			return err
		}

		if order.Total.IsPositive() && event.AmountMinor > 0 && event.AmountMinor != pricing.ToMinorUnits(order.Total) {
			logger.Error("paid amount does not match order total",
				"order_number", order.OrderNumber,
				"paid_minor", event.AmountMinor,
				"expected_minor", pricing.ToMinorUnits(order.Total),
			)
			telemetry.CaptureMessage("payment amount mismatch", "warning", map[string]interface{}{
				"order_number": order.OrderNumber,
				"paid_minor":   event.AmountMinor,
			})
		}

		if telemetry.Business != nil {
			telemetry.Business.PaymentVerified.WithLabelValues(s.gateway.Name(), "webhook").Inc()
		}
		logger.Info("order paid", "order_number", order.OrderNumber)
		s.finalize(ctx, order)
		s.publish(ctx, events.SubjectOrderPaid, order)
		return nil

	case billing.EventPaymentFailed:
		if err := s.orders.MarkPaymentFailed(ctx, event.GatewayOrderID, event.PaymentID); err != nil {
			return err
		}
		s.recordPaymentFailure("gateway_failed")

		order, err := s.orders.GetOrderByGatewayOrderID(ctx, event.GatewayOrderID)
		if err != nil {
			logger.Warn("payment failed for unknown order", "error", err)
			return nil
		}
		if order.Payment.Status == domain.PaymentStatusPaid {
			return nil
		}
		logger.Info("payment failed", "order_number", order.OrderNumber)
		s.notify(ctx, "payment_failed", order, s.notifier.SendPaymentFailed)
		return nil

	default:
		logger.Debug("webhook ignored", "op", op)
		return nil
	}
}

func (s *checkoutService) GetOrder(ctx context.Context, orderNumber string) (*domain.Order, error) {
	orderNumber = strings.ToUpper(strings.TrimSpace(orderNumber))
	if orderNumber == "" {
		return nil, domain.ErrOrderNotFound.WithOp("checkout.get_order")
	}
	return s.orders.GetOrderByNumber(ctx, orderNumber)
}

// finalize runs the once-per-order side effects of a confirmed order. None of
// them can fail the order.
func (s *checkoutService) finalize(ctx context.Context, order *domain.Order) {
	if order.CouponCode != "" {
		if err := s.coupons.IncrementUsage(ctx, order.CouponCode); err != nil {
			s.logger.Error("failed to record coupon usage",
				"order_number", order.OrderNumber,
				"coupon", order.CouponCode,
				"error", err,
			)
			telemetry.CaptureError(err, map[string]interface{}{"order_number": order.OrderNumber})
		}
	}

	s.notify(ctx, "order_confirmation", order, s.notifier.SendOrderConfirmation)
}

func (s *checkoutService) notify(ctx context.Context, template string, order *domain.Order, send func(context.Context, *domain.Order) error) {
	status := "sent"
	if err := send(ctx, order); err != nil {
		status = "failed"
		s.logger.Warn("failed to send email",
			"template", template,
			"order_number", order.OrderNumber,
			"error", err,
		)
	}
	if telemetry.Business != nil {
		telemetry.Business.EmailSent.WithLabelValues(template, status).Inc()
	}
}

func (s *checkoutService) publish(ctx context.Context, subject string, order *domain.Order) {
	status := "published"
	if err := s.publisher.Publish(ctx, subject, orderEvent(order, s.now())); err != nil {
		status = "failed"
		s.logger.Warn("failed to publish event",
			"subject", subject,
			"order_number", order.OrderNumber,
			"error", err,
		)
	}
	if telemetry.Business != nil {
		telemetry.Business.EventsPublished.WithLabelValues(subject, status).Inc()
	}
}

func (s *checkoutService) recordPaymentFailure(reason string) {
	if telemetry.Business != nil {
		telemetry.Business.PaymentFailed.WithLabelValues(s.gateway.Name(), reason).Inc()
	}
}

func orderEvent(order *domain.Order, now time.Time) events.OrderEvent {
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
	}
	return events.OrderEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        string(order.Status),
		PaymentMethod: string(order.Payment.Method),
		CouponCode:    order.CouponCode,
		Subtotal:      order.Subtotal,
		Discount:      order.DiscountAmount,
		Total:         order.Total,
		Currency:      order.Currency,
		ItemCount:     count,
		OccurredAt:    now.UTC(),
	}
}

// checkAddresses replaces the request addresses with their normalized form
// and returns field errors keyed like validateStruct's.
func (s *checkoutService) checkAddresses(ctx context.Context, req *CheckoutRequest) (map[string]string, error) {
	fields := map[string]string{}

	check := func(prefix string, addr *domain.Address) error {
		result, err := s.addresses.Validate(ctx, *addr)
		if err != nil {
			return err
		}
		if result.NormalizedAddress != nil {
			*addr = *result.NormalizedAddress
		}
		for _, e := range result.Errors {
			fields[prefix+"."+e.Field] = e.Message
		}
		return nil
	}

	if err := check("shippingAddress", &req.ShippingAddress); err != nil {
		return nil, err
	}
	if req.BillingAddress != nil {
		if err := check("billingAddress", req.BillingAddress); err != nil {
			return nil, err
		}
	}
	return fields, nil
}

func normalizeCheckoutRequest(req *CheckoutRequest) {
	req.Customer.Name = strings.TrimSpace(req.Customer.Name)
	req.Customer.Email = strings.ToLower(strings.TrimSpace(req.Customer.Email))
	req.Customer.Phone = strings.TrimSpace(req.Customer.Phone)
	req.ShippingAddress.Country = strings.ToUpper(strings.TrimSpace(req.ShippingAddress.Country))
	if req.ShippingAddress.Country == "" {
		req.ShippingAddress.Country = "IN"
	}
	if req.BillingAddress != nil {
		req.BillingAddress.Country = strings.ToUpper(strings.TrimSpace(req.BillingAddress.Country))
		if req.BillingAddress.Country == "" {
			req.BillingAddress.Country = "IN"
		}
	}
	req.PaymentMethod = domain.PaymentMethod(strings.ToLower(strings.TrimSpace(string(req.PaymentMethod))))
	req.Notes = strings.TrimSpace(req.Notes)
}

func checkoutFailureReason(err error) string {
	switch {
	case domain.IsValidationError(err):
		return "validation"
	case errors.Is(err, domain.ErrCartEmpty):
		return "empty_cart"
	case domain.ErrorCode(err) == domain.EUNPROCESSABLE:
		return "coupon"
	case domain.ErrorCode(err) == domain.EPAYMENT:
		return "gateway"
	case domain.ErrorCode(err) == domain.EINVALID:
		return "invalid"
	default:
		return "error"
	}
}
