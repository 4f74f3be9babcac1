package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/tapnet/internal/telemetry"
)

// TaskCleanupCarts is the worker task name for cart cleanup
const TaskCleanupCarts = "cleanup:carts"

// CartSweeper drops idle in-memory cart engines
type CartSweeper interface {
	Sweep(idle time.Duration) int
}

// StaleCartDeleter removes persisted cart sessions
type StaleCartDeleter interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupResult holds the result of a cleanup run
type CleanupResult struct {
	EnginesSwept int   `json:"engines_swept"`
	CartsPurged  int64 `json:"carts_purged"`
}

// CartCleanup sweeps idle cart engines out of memory and deletes persisted
// carts older than the retention window.
type CartCleanup struct {
	carts     CartSweeper
	store     StaleCartDeleter
	idleTTL   time.Duration
	retention time.Duration
	metrics   *telemetry.BusinessMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewCartCleanup creates the cart cleanup task. metrics may be nil; swept
// engines are counted by the sweeper itself.
func NewCartCleanup(carts CartSweeper, store StaleCartDeleter, idleTTL, retention time.Duration, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *CartCleanup {
	return &CartCleanup{
		carts:     carts,
		store:     store,
		idleTTL:   idleTTL,
		retention: retention,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

func (c *CartCleanup) Name() string { return TaskCleanupCarts }

// Run implements worker.Task
func (c *CartCleanup) Run(ctx context.Context) error {
	_, err := c.Process(ctx)
	return err
}

// Process runs one cleanup pass. Engines are swept even when the purge fails.
func (c *CartCleanup) Process(ctx context.Context) (*CleanupResult, error) {
	result := &CleanupResult{}

	if c.idleTTL > 0 {
		result.EnginesSwept = c.carts.Sweep(c.idleTTL)
	}

	if c.retention > 0 && c.store != nil {
		purged, err := c.store.DeleteStale(ctx, c.now().Add(-c.retention))
		if err != nil {
			return result, fmt.Errorf("failed to delete stale carts: %w", err)
		}
		result.CartsPurged = purged
		if c.metrics != nil {
			c.metrics.CartsPurged.Add(float64(purged))
		}
	}

	if result.EnginesSwept > 0 || result.CartsPurged > 0 {
		c.logger.Info("cart cleanup",
			"engines_swept", result.EnginesSwept,
			"carts_purged", result.CartsPurged,
		)
	}

	return result, nil
}
