package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for storefront observability.
type BusinessMetrics struct {
	// Cart
	CartItemsAdded *prometheus.CounterVec
	CartUpdated    *prometheus.CounterVec
	CartValue      prometheus.Histogram
	CartsSwept     prometheus.Counter
	CartsPurged    prometheus.Counter

	// Coupons
	CouponApplied  *prometheus.CounterVec
	CouponRejected *prometheus.CounterVec

	// Checkout funnel
	CheckoutStarted   *prometheus.CounterVec
	CheckoutCompleted *prometheus.CounterVec
	CheckoutFailed    *prometheus.CounterVec

	// Payments
	PaymentVerified *prometheus.CounterVec
	PaymentFailed   *prometheus.CounterVec
	WebhookReceived *prometheus.CounterVec

	// Orders
	OrderValue *prometheus.HistogramVec

	// Side effects
	EmailSent       *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
}

// rupeeBuckets cover a single NFC card up to a bulk team order.
var rupeeBuckets = []float64{250, 500, 1000, 2000, 5000, 10000, 25000, 50000}

// NewBusinessMetrics creates business metrics registered on reg.
// Tests pass a fresh prometheus.NewRegistry to avoid duplicate registration.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "tapnet"
	}

	subsystem := "business"
	factory := promauto.With(reg)

	return &BusinessMetrics{
		// =======================================================================
		// Cart
		// =======================================================================
		CartItemsAdded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items_added_total",
				Help:      "Total add to cart actions",
			},
			[]string{"product_id"},
		),
		CartUpdated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_updates_total",
				Help:      "Total cart mutations other than adds",
			},
			[]string{"action"}, // action: update_quantity, remove_item, clear
		),
		CartValue: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_value_rupees",
				Help:      "Cart total after an add",
				Buckets:   rupeeBuckets,
			},
		),
		CartsSwept: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "carts_swept_total",
				Help:      "Idle cart engines dropped from memory",
			},
		),
		CartsPurged: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "carts_purged_total",
				Help:      "Persisted cart sessions deleted after the retention window",
			},
		),

		// =======================================================================
		// Coupons
		// =======================================================================
		CouponApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "coupon_applied_total",
				Help:      "Coupons accepted by the cart",
			},
			[]string{"discount_type"},
		),
		CouponRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "coupon_rejected_total",
				Help:      "Coupons rejected by the cart",
			},
			[]string{"reason"}, // reason: not_found, inactive, expired, below_minimum, error, ...
		),

		// =======================================================================
		// Checkout
		// =======================================================================
		CheckoutStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_started_total",
				Help:      "Checkout submissions",
			},
			[]string{"payment_method"},
		),
		CheckoutCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_completed_total",
				Help:      "Orders created from a checkout",
			},
			[]string{"payment_method"},
		),
		CheckoutFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_failed_total",
				Help:      "Checkout submissions that did not create an order",
			},
			[]string{"reason"}, // reason: validation, empty_cart, coupon, gateway, error
		),

		// =======================================================================
		// Payments
		// =======================================================================
		PaymentVerified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payment_verified_total",
				Help:      "Online payments confirmed",
			},
			[]string{"provider", "source"}, // source: checkout, webhook
		),
		PaymentFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payment_failed_total",
				Help:      "Online payments that failed or could not be verified",
			},
			[]string{"provider", "reason"},
		),
		WebhookReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_received_total",
				Help:      "Payment gateway webhooks received",
			},
			[]string{"provider", "event_type"},
		),

		// =======================================================================
		// Orders
		// =======================================================================
		OrderValue: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value_rupees",
				Help:      "Order total at placement",
				Buckets:   rupeeBuckets,
			},
			[]string{"payment_method"},
		),

		// =======================================================================
		// Side effects
		// =======================================================================
		EmailSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "email_sent_total",
				Help:      "Transactional emails by outcome",
			},
			[]string{"template", "status"}, // status: sent, failed
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_published_total",
				Help:      "Domain events by subject and outcome",
			},
			[]string{"subject", "status"},
		),
	}
}

// Global instance for easy access from services and handlers
var Business *BusinessMetrics

// InitBusinessMetrics registers the global business metrics on the default registry
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace, prometheus.DefaultRegisterer)
	return Business
}
