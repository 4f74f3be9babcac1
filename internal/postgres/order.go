package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const maxOrderNumberAttempts = 3

// OrderRepository implements domain.OrderStore.
type OrderRepository struct {
	db  TxBeginner
	now func() time.Time
}

var _ domain.OrderStore = (*OrderRepository)(nil)

func NewOrderRepository(db TxBeginner) *OrderRepository {
	return &OrderRepository{db: db, now: time.Now}
}

// CreateOrder writes the order, its items and its payment row in one transaction.
func (r *OrderRepository) CreateOrder(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error) {
	const op = "order.create"

	if len(draft.Lines) == 0 {
		return nil, domain.ErrCartEmpty.WithOp(op)
	}

	for attempt := 1; ; attempt++ {
		order, err := r.createOrder(ctx, draft)
		if err == nil {
			return order, nil
		}
		if isUniqueViolation(err) && attempt < maxOrderNumberAttempts {
			continue
		}
		return nil, domain.Internal(err, op, "failed to create order")
	}
}

func (r *OrderRepository) createOrder(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error) {
	number, err := generateOrderNumber(r.now())
	if err != nil {
		return nil, err
	}

	status := domain.OrderStatusPendingPayment
	paymentStatus := domain.PaymentStatusPending
	if draft.PaymentMethod == domain.PaymentMethodCOD {
		status = domain.OrderStatusConfirmed
		paymentStatus = domain.PaymentStatusCOD
	}

	var coupon *string
	if draft.CouponCode != "" {
		coupon = &draft.CouponCode
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(ctx, tx)

	orderID := uuid.New()
	_, err = tx.Exec(ctx, `
INSERT INTO orders (
    id, order_number, status, customer_name, customer_email, customer_phone,
    shipping_address, billing_address, subtotal, discount_amount, coupon_code,
    total, currency, notes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		orderID, number, string(status),
		draft.Customer.Name, draft.Customer.Email, draft.Customer.Phone,
		draft.ShippingAddress, draft.BillingAddress,
		draft.Subtotal, draft.DiscountAmount, coupon,
		draft.Total, draft.Currency, draft.Notes,
	)
	if err != nil {
		return nil, err
	}

	for i, l := range draft.Lines {
		_, err = tx.Exec(ctx, `
INSERT INTO order_items (id, order_id, position, product_id, product_name, unit_price, quantity, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New(), orderID, i, l.ProductID, l.Name, l.UnitPrice, l.Quantity, l.LineTotal(),
		)
		if err != nil {
			return nil, err
		}
	}

	_, err = tx.Exec(ctx, `
INSERT INTO payments (id, order_id, method, status, amount)
VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), orderID, string(draft.PaymentMethod), string(paymentStatus), draft.Total,
	)
	if err != nil {
		return nil, err
	}

	order, err := loadOrder(ctx, tx, `o.id = $1`, orderID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

// AttachGatewayOrder records the gateway order id on the order's payment row.
func (r *OrderRepository) AttachGatewayOrder(ctx context.Context, orderID, provider, gatewayOrderID string) error {
	const op = "order.attach_gateway_order"

	tag, err := r.db.Exec(ctx,
		`UPDATE payments SET provider = $2, gateway_order_id = $3, updated_at = now() WHERE order_id = $1`,
		orderID, provider, gatewayOrderID,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to attach gateway order")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound.WithOp(op)
	}
	return nil
}

// MarkPaid confirms the order behind gatewayOrderID. A second call for the
// same order returns the order together with ErrPaymentAlreadyProcessed.
func (r *OrderRepository) MarkPaid(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*domain.Order, error) {
	const op = "order.mark_paid"

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to begin transaction")
	}
	defer rollback(ctx, tx)

	var (
		orderID string
		status  string
	)
	err = tx.QueryRow(ctx,
		`SELECT order_id::text, status FROM payments WHERE gateway_order_id = $1 FOR UPDATE`,
		gatewayOrderID,
	).Scan(&orderID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound.WithOp(op)
		}
		return nil, domain.Internal(err, op, "failed to lock payment")
	}

	if domain.PaymentStatus(status) == domain.PaymentStatusPaid {
		order, err := loadOrder(ctx, tx, `o.id = $1`, orderID)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to load order")
		}
		return order, domain.ErrPaymentAlreadyProcessed.WithOp(op)
	}

	if _, err = tx.Exec(ctx,
		`UPDATE payments SET status = 'paid', gateway_payment_id = $2, paid_at = now(), updated_at = now() WHERE gateway_order_id = $1`,
		gatewayOrderID, gatewayPaymentID,
	); err != nil {
		return nil, domain.Internal(err, op, "failed to update payment")
	}
	if _, err = tx.Exec(ctx,
		`UPDATE orders SET status = 'confirmed', updated_at = now() WHERE id = $1`,
		orderID,
	); err != nil {
		return nil, domain.Internal(err, op, "failed to confirm order")
	}

	order, err := loadOrder(ctx, tx, `o.id = $1`, orderID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load order")
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, domain.Internal(err, op, "failed to commit transaction")
	}
	return order, nil
}

// MarkPaymentFailed records a failed attempt unless the payment already succeeded.
func (r *OrderRepository) MarkPaymentFailed(ctx context.Context, gatewayOrderID, gatewayPaymentID string) error {
	_, err := r.db.Exec(ctx, `
UPDATE payments
SET status = 'failed', gateway_payment_id = coalesce(nullif($2, ''), gateway_payment_id), updated_at = now()
WHERE gateway_order_id = $1 AND status <> 'paid'`,
		gatewayOrderID, gatewayPaymentID,
	)
	if err != nil {
		return domain.Internal(err, "order.mark_payment_failed", "failed to update payment")
	}
	return nil
}

func (r *OrderRepository) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	order, err := loadOrder(ctx, r.db, `o.order_number = $1`, orderNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound.WithOp("order.get")
		}
		return nil, domain.Internal(err, "order.get", "failed to get order")
	}
	return order, nil
}

func (r *OrderRepository) GetOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	order, err := loadOrder(ctx, r.db, `p.gateway_order_id = $1`, gatewayOrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound.WithOp("order.get_by_gateway_order")
		}
		return nil, domain.Internal(err, "order.get_by_gateway_order", "failed to get order")
	}
	return order, nil
}

const orderSelectSQL = `
SELECT o.id::text, o.order_number, o.status,
       o.customer_name, o.customer_email, o.customer_phone,
       o.shipping_address, o.billing_address,
       o.subtotal, o.discount_amount, coalesce(o.coupon_code, ''), o.total, o.currency,
       coalesce(o.notes, ''), o.created_at,
       p.id::text, p.method, p.status, coalesce(p.provider, ''),
       coalesce(p.gateway_order_id, ''), coalesce(p.gateway_payment_id, ''), p.amount
FROM orders o
JOIN payments p ON p.order_id = o.id
WHERE `

// loadOrder reads one order and its items. where must reference a single $1.
func loadOrder(ctx context.Context, db DBTX, where string, arg any) (*domain.Order, error) {
	var (
		o             domain.Order
		status        string
		method        string
		paymentStatus string
	)

	err := db.QueryRow(ctx, orderSelectSQL+where, arg).Scan(
		&o.ID, &o.OrderNumber, &status,
		&o.Customer.Name, &o.Customer.Email, &o.Customer.Phone,
		&o.ShippingAddress, &o.BillingAddress,
		&o.Subtotal, &o.DiscountAmount, &o.CouponCode, &o.Total, &o.Currency,
		&o.Notes, &o.CreatedAt,
		&o.Payment.ID, &method, &paymentStatus, &o.Payment.Provider,
		&o.Payment.GatewayOrderID, &o.Payment.GatewayPayment, &o.Payment.Amount,
	)
	if err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.Payment.Method = domain.PaymentMethod(method)
	o.Payment.Status = domain.PaymentStatus(paymentStatus)

	rows, err := db.Query(ctx, `
SELECT product_id, product_name, unit_price, quantity, line_total
FROM order_items
WHERE order_id = $1
ORDER BY position`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	o.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.UnitPrice, &item.Quantity, &item.LineTotal); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &o, nil
}
