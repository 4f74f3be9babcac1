package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/tapnet/internal/cart"
	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/dukerupert/tapnet/internal/pricing"
	"github.com/dukerupert/tapnet/internal/telemetry"
)

// CartService provides session-scoped cart operations for the storefront.
type CartService interface {
	// Session returns the engine for sessionID, creating a new session when
	// sessionID is empty or malformed. The returned id is the one to keep.
	Session(ctx context.Context, sessionID string) (*cart.Engine, string, error)

	AddItem(ctx context.Context, sessionID, productID string, quantity int) (pricing.Summary, error)
	UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (pricing.Summary, error)
	RemoveItem(ctx context.Context, sessionID, productID string) (pricing.Summary, error)
	Clear(ctx context.Context, sessionID string) error
	ApplyCoupon(ctx context.Context, sessionID, code string) (cart.ApplyResult, pricing.Summary, error)
	RemoveCoupon(ctx context.Context, sessionID string) (pricing.Summary, error)
	Summary(ctx context.Context, sessionID string) (pricing.Summary, error)

	// Sweep drops engines idle for longer than idle. Engines with a coupon
	// lookup in flight are kept. Returns the number dropped.
	Sweep(idle time.Duration) int
}

// SessionStores hands out the persisted cart for a session token.
type SessionStores interface {
	Store(sessionToken string) cart.Store
}

type cartService struct {
	stores  SessionStores
	catalog domain.ProductCatalog
	coupons cart.CouponFetcher
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	engines map[string]*cart.Engine
}

// NewCartService creates a new CartService instance
func NewCartService(stores SessionStores, catalog domain.ProductCatalog, coupons cart.CouponFetcher, logger *slog.Logger) CartService {
	return &cartService{
		stores:  stores,
		catalog: catalog,
		coupons: coupons,
		logger:  logger,
		now:     time.Now,
		engines: make(map[string]*cart.Engine),
	}
}

func (s *cartService) Session(ctx context.Context, sessionID string) (*cart.Engine, string, error) {
	if !ValidSessionID(sessionID) {
		id, err := GenerateSessionID()
		if err != nil {
			return nil, "", domain.Internal(err, "cart.session", "failed to create session")
		}
		sessionID = id
	}

	s.mu.Lock()
	engine, ok := s.engines[sessionID]
	if ok {
		engine.Touch()
	}
	s.mu.Unlock()
	if ok {
		return engine, sessionID, nil
	}

	// Load outside the registry lock so one slow load does not block other shoppers.
	logger := s.logger.With("session", shortSession(sessionID))
	engine, err := cart.NewEngine(ctx, s.stores.Store(sessionID), s.coupons,
		cart.WithLogger(logger),
		cart.WithClock(s.now),
		cart.WithListener(cart.ListenerFunc(func() {
			logger.Debug("cart opened")
		})),
	)
	if err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.engines[sessionID]; ok {
		existing.Touch()
		return existing, sessionID, nil
	}
	s.engines[sessionID] = engine
	return engine, sessionID, nil
}

func (s *cartService) AddItem(ctx context.Context, sessionID, productID string, quantity int) (pricing.Summary, error) {
	const op = "cart.add_item"

	engine, _, err := s.Session(ctx, sessionID)
	if err != nil {
		return pricing.Summary{}, err
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return pricing.Summary{}, domain.ErrProductNotFound.WithOp(op)
		}
		return pricing.Summary{}, domain.Internal(err, op, "failed to get product")
	}
	if !product.IsActive {
		return pricing.Summary{}, ErrProductUnavailable
	}

	err = engine.AddItem(ctx, product.Snapshot(), quantity)
	summary := engine.Summary()
	if err != nil {
		return summary, err
	}

	if telemetry.Business != nil {
		telemetry.Business.CartItemsAdded.WithLabelValues(product.ID).Inc()
		telemetry.Business.CartValue.Observe(summary.Total.InexactFloat64())
	}
	return summary, nil
}

func (s *cartService) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (pricing.Summary, error) {
	engine, _, err := s.Session(ctx, sessionID)
	if err != nil {
		return pricing.Summary{}, err
	}

	err = engine.UpdateQuantity(ctx, productID, quantity)
	recordCartUpdate("update_quantity", err)
	return engine.Summary(), err
}

func (s *cartService) RemoveItem(ctx context.Context, sessionID, productID string) (pricing.Summary, error) {
	engine, _, err := s.Session(ctx, sessionID)
	if err != nil {
		return pricing.Summary{}, err
	}

	err = engine.RemoveItem(ctx, productID)
	recordCartUpdate("remove_item", err)
	return engine.Summary(), err
}

func (s *cartService) Clear(ctx context.Context, sessionID string) error {
	engine, _, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}

	err = engine.Clear(ctx)
	recordCartUpdate("clear", err)
	return err
}

func (s *cartService) ApplyCoupon(ctx context.Context, sessionID, code string) (cart.ApplyResult, pricing.Summary, error) {
	engine, _, err := s.Session(ctx, sessionID)
	if err != nil {
		return cart.ApplyResult{}, pricing.Summary{}, err
	}

	result, err := engine.ApplyCoupon(ctx, code)
	summary := engine.Summary()

	if telemetry.Business != nil {
		switch {
		case result.Applied:
			telemetry.Business.CouponApplied.WithLabelValues(string(result.Coupon.DiscountType)).Inc()
		case err != nil && !errors.Is(err, cart.ErrApplyInProgress):
			telemetry.Business.CouponRejected.WithLabelValues(pricing.RejectionReason(err)).Inc()
		}
	}

	telemetry.AddBreadcrumb(ctx, "cart", "apply coupon", map[string]interface{}{
		"code":    code,
		"applied": result.Applied,
		"reason":  result.Reason,
	})

	if result.Applied {
		s.logger.Info("coupon applied",
			"session", shortSession(sessionID),
			"code", result.Coupon.Code,
			"discount", summary.DiscountAmount.StringFixed(2),
		)
	}
	return result, summary, err
}

func (s *cartService) RemoveCoupon(ctx context.Context, sessionID string) (pricing.Summary, error) {
	engine, _, err := s.Session(ctx, sessionID)
	if err != nil {
		return pricing.Summary{}, err
	}

	err = engine.RemoveCoupon(ctx)
	return engine.Summary(), err
}

func (s *cartService) Summary(ctx context.Context, sessionID string) (pricing.Summary, error) {
	engine, _, err := s.Session(ctx, sessionID)
	if err != nil {
		return pricing.Summary{}, err
	}
	return engine.Summary(), nil
}

// Sweep only evicts from this process's registry; the cart stays in the
// store. Session touches an engine under the same lock before handing it
// out, so an engine a request is about to use is never idle here.
func (s *cartService) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)

	dropped := 0
	for id, engine := range s.engines {
		if engine.LastUsed().After(cutoff) || engine.IsApplying() {
			continue
		}
		delete(s.engines, id)
		dropped++
	}

	if dropped > 0 && telemetry.Business != nil {
		telemetry.Business.CartsSwept.Add(float64(dropped))
	}
	return dropped
}

func recordCartUpdate(action string, err error) {
	if err == nil && telemetry.Business != nil {
		telemetry.Business.CartUpdated.WithLabelValues(action).Inc()
	}
}

// shortSession keeps session tokens out of logs.
func shortSession(id string) string {
	if len(id) <= 8 {
		return id
	}
	return fmt.Sprintf("%s…", id[:8])
}
