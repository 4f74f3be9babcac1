// Package cart implements the shopper's cart: lines, the single applied
// coupon and the totals derived from them.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/dukerupert/tapnet/internal/pricing"
	"github.com/shopspring/decimal"
)

var (
	ErrApplyInProgress = &domain.Error{Code: domain.ECONFLICT, Message: "A coupon is already being applied"}
	ErrCartChanged     = &domain.Error{Code: domain.ECONFLICT, Message: "Cart changed while applying coupon"}
)

// failedApplyMessage is shown for any lookup failure that is not a coupon rule.
const failedApplyMessage = "Failed to apply coupon"

// CouponFetcher looks up a coupon by code.
// It returns domain.ErrCouponNotFound when no coupon matches.
type CouponFetcher interface {
	FetchCoupon(ctx context.Context, code string) (*domain.Coupon, error)
}

// Listener is told when the cart should be shown to the shopper.
type Listener interface {
	CartOpened()
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func()

func (f ListenerFunc) CartOpened() { f() }

// RequestState tracks the coupon lookup.
type RequestState int

const (
	Idle RequestState = iota
	Pending
	Done
)

func (s RequestState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Done:
		return "done"
	default:
		return "idle"
	}
}

// CouponState is what the coupon box should display.
type CouponState int

const (
	NoCoupon CouponState = iota
	Applying
	Applied
)

func (s CouponState) String() string {
	switch s {
	case Applying:
		return "applying"
	case Applied:
		return "applied"
	default:
		return "no_coupon"
	}
}

// ApplyResult is the outcome of ApplyCoupon.
type ApplyResult struct {
	Applied bool
	// Reason is the shopper-facing message when Applied is false.
	Reason string
	Coupon *domain.AppliedCoupon
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now for coupon date checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithListener registers the cart-opened listener.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listener = l }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine holds one shopper's cart.
//
// All state lives behind mu. The lock is released while a coupon is being
// fetched; gen is bumped by Clear so a fetch that started before the clear
// is discarded when it returns. Saves run under the lock so snapshots reach
// the store in mutation order.
type Engine struct {
	mu       sync.Mutex
	state    domain.CartState
	request  RequestState
	gen      uint64
	lastUsed atomic.Int64 // unix nanos; read without mu by the sweeper

	store    Store
	coupons  CouponFetcher
	listener Listener
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine loads the persisted cart from store.
func NewEngine(ctx context.Context, store Store, coupons CouponFetcher, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("cart: store is required")
	}
	if coupons == nil {
		return nil, errors.New("cart: coupon fetcher is required")
	}

	e := &Engine{
		store:   store,
		coupons: coupons,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	state, err := store.Load(ctx)
	if err != nil {
		return nil, domain.Internal(err, "cart.load", "Failed to load cart")
	}
	e.state = Normalize(state)
	e.touch()

	return e, nil
}

// AddItem adds quantity of a product, merging into an existing line.
// The snapshot of an existing line is left untouched. A merged quantity
// above domain.MaxLineQuantity is rejected and the cart is unchanged.
func (e *Engine) AddItem(ctx context.Context, item domain.ProductSnapshot, quantity int) error {
	const op = "cart.add_item"

	if item.ProductID == "" {
		return domain.Invalid(op, "Product is required")
	}
	if quantity < 1 {
		quantity = 1
	}
	if quantity > domain.MaxLineQuantity {
		return domain.ErrInvalidQuantity.WithOp(op)
	}

	e.mu.Lock()
	next := e.state.Clone()
	if i := next.IndexOf(item.ProductID); i >= 0 {
		if next.Lines[i].Quantity > domain.MaxLineQuantity-quantity {
			e.mu.Unlock()
			return domain.ErrInvalidQuantity.WithOp(op)
		}
		next.Lines[i].Quantity += quantity
	} else {
		next.Lines = append(next.Lines, domain.NewCartLine(item, quantity))
	}
	err := e.commitLocked(ctx, next)
	e.mu.Unlock()

	if e.listener != nil {
		e.listener.CartOpened()
	}
	return err
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less removes
// the line; an unknown product is ignored.
func (e *Engine) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return e.RemoveItem(ctx, productID)
	}
	if quantity > domain.MaxLineQuantity {
		return domain.ErrInvalidQuantity.WithOp("cart.update_quantity")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.state.IndexOf(productID)
	if i < 0 {
		return nil
	}

	next := e.state.Clone()
	next.Lines[i].Quantity = quantity
	return e.commitLocked(ctx, next)
}

// RemoveItem removes a line. Removing an absent product is not an error.
func (e *Engine) RemoveItem(ctx context.Context, productID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.state.IndexOf(productID)
	if i < 0 {
		return nil
	}

	next := e.state.Clone()
	next.Lines = append(next.Lines[:i], next.Lines[i+1:]...)
	return e.commitLocked(ctx, next)
}

// Clear empties the cart and drops the coupon. A coupon lookup still in
// flight will be discarded when it returns.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.gen++
	e.request = Idle
	return e.commitLocked(ctx, domain.CartState{Lines: []domain.CartLine{}})
}

// ApplyCoupon looks up code and applies it when eligible against the
// subtotal at the time the lookup returns.
//
// A rejected coupon yields Applied=false with a Reason and a non-nil
// domain error. Lines are unchanged, and so is a previously applied coupon
// unless the rejected code is that same coupon, which is then dropped.
func (e *Engine) ApplyCoupon(ctx context.Context, code string) (ApplyResult, error) {
	const op = "cart.apply_coupon"

	code = strings.TrimSpace(code)
	if code == "" {
		return reject(domain.ErrCouponCodeMissing.WithOp(op))
	}

	e.mu.Lock()
	if e.request == Pending {
		e.mu.Unlock()
		return reject(ErrApplyInProgress.WithOp(op))
	}
	e.request = Pending
	gen := e.gen
	e.touch()
	e.mu.Unlock()

	coupon, fetchErr := e.coupons.FetchCoupon(ctx, code)

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen {
		// Clear already reset the request state; leave it to any newer apply.
		return reject(ErrCartChanged.WithOp(op))
	}
	e.request = Done

	if fetchErr != nil {
		if errors.Is(fetchErr, domain.ErrCouponNotFound) {
			return e.rejectLocked(ctx, code, domain.ErrCouponNotFound.WithOp(op))
		}
		e.logger.Error("coupon lookup failed",
			"code", code,
			"error", fetchErr,
		)
		return ApplyResult{Reason: failedApplyMessage}, domain.Internal(fetchErr, op, failedApplyMessage)
	}
	if coupon == nil {
		return e.rejectLocked(ctx, code, domain.ErrCouponNotFound.WithOp(op))
	}

	if err := pricing.CheckEligibility(*coupon, pricing.Subtotal(e.state.Lines), e.now()); err != nil {
		return e.rejectLocked(ctx, code, err)
	}

	applied := coupon.Applied()
	next := e.state.Clone()
	next.AppliedCoupon = &applied
	err := e.commitLocked(ctx, next)

	out := applied
	return ApplyResult{Applied: true, Coupon: &out}, err
}

// RemoveCoupon drops the applied coupon, if any.
func (e *Engine) RemoveCoupon(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.AppliedCoupon == nil {
		return nil
	}

	next := e.state.Clone()
	next.AppliedCoupon = nil
	return e.commitLocked(ctx, next)
}

// Lines returns a copy of the cart lines in insertion order.
func (e *Engine) Lines() []domain.CartLine {
	return e.State().Lines
}

func (e *Engine) Subtotal() decimal.Decimal {
	return e.Summary().Subtotal
}

func (e *Engine) DiscountAmount() decimal.Decimal {
	return e.Summary().DiscountAmount
}

func (e *Engine) Total() decimal.Decimal {
	return e.Summary().Total
}

func (e *Engine) ItemCount() int {
	return e.Summary().ItemCount
}

// AppliedCoupon returns a copy of the applied coupon or nil.
func (e *Engine) AppliedCoupon() *domain.AppliedCoupon {
	return e.State().AppliedCoupon
}

// Summary prices the current state.
func (e *Engine) Summary() pricing.Summary {
	return pricing.Summarize(e.State())
}

// State returns a deep copy of the current state.
func (e *Engine) State() domain.CartState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// CouponState reports what the coupon box should show.
func (e *Engine) CouponState() CouponState {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.request == Pending:
		return Applying
	case e.state.AppliedCoupon != nil:
		return Applied
	default:
		return NoCoupon
	}
}

// IsApplying reports whether a coupon lookup is in flight.
func (e *Engine) IsApplying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.request == Pending
}

// Touch marks the cart as in use without changing it. It does not wait on
// a save in progress.
func (e *Engine) Touch() {
	e.touch()
}

func (e *Engine) touch() {
	e.lastUsed.Store(e.now().UnixNano())
}

// LastUsed returns when the cart was last touched, mutated or asked to apply
// a coupon.
func (e *Engine) LastUsed() time.Time {
	return time.Unix(0, e.lastUsed.Load())
}

// commitLocked swaps in next and persists it. The in-memory state stays
// authoritative when the save fails.
func (e *Engine) commitLocked(ctx context.Context, next domain.CartState) error {
	e.state = next
	e.touch()

	if err := e.store.Save(ctx, next); err != nil {
		e.logger.Warn("failed to persist cart",
			"lines", len(next.Lines),
			"error", err,
		)
		return domain.Internal(err, "cart.save", "Failed to save cart")
	}
	return nil
}

// rejectLocked drops the applied coupon when code names it and the lookup
// just proved it invalid.
func (e *Engine) rejectLocked(ctx context.Context, code string, err error) (ApplyResult, error) {
	applied := e.state.AppliedCoupon
	if applied == nil || !strings.EqualFold(applied.Code, code) || domain.ErrorCode(err) != domain.EUNPROCESSABLE {
		return reject(err)
	}

	next := e.state.Clone()
	next.AppliedCoupon = nil
	// A save failure is logged by commitLocked; the rejection is what the shopper needs.
	_ = e.commitLocked(ctx, next)
	return reject(err)
}

func reject(err error) (ApplyResult, error) {
	return ApplyResult{Reason: domain.ErrorMessage(err)}, err
}
