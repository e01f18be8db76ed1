// Package health runs periodic store and ledger checks.
// Checks: sqlite reachability, ledger conservation, escrow coverage.
package health

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tutu-network/swarmpay/internal/infra/metrics"
	"github.com/tutu-network/swarmpay/internal/infra/sqlite"
)

// DefaultInterval is used when NewChecker is given a non-positive interval.
const DefaultInterval = 60 * time.Second

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	log      *zap.Logger
}

// NewChecker creates a health checker with the standard checks.
func NewChecker(db *sqlite.DB, interval time.Duration, log *zap.Logger) *Checker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Checker{
		interval: interval,
		log:      log.Named("health"),
		checks: []Check{
			{
				Name: "sqlite",
				CheckFn: func(ctx context.Context) error {
					return db.Ping()
				},
			},
			{
				Name: "ledger_conservation",
				CheckFn: func(ctx context.Context) error {
					return checkConservation(ctx, db)
				},
			},
			{
				Name: "escrow_coverage",
				CheckFn: func(ctx context.Context) error {
					return checkEscrowCoverage(ctx, db)
				},
				// Resync the gauge from the ledger; in-process counters
				// drift after restarts.
				RecoverFn: func(ctx context.Context) error {
					return syncEscrowGauge(ctx, db)
				},
			},
		},
	}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

// RunOnce executes every check synchronously.
func (c *Checker) RunOnce(ctx context.Context) []Status {
	c.runAll(ctx)
	return c.Statuses()
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
			c.log.Warn("Health check failed", zap.String("check", check.Name), zap.Error(err))
			if check.RecoverFn != nil {
				if rerr := check.RecoverFn(ctx); rerr != nil {
					c.log.Error("Recovery failed", zap.String("check", check.Name), zap.Error(rerr))
				}
			}
		} else {
			s.Healthy = true
		}
		metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(boolGauge(s.Healthy))
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkConservation(ctx context.Context, db *sqlite.DB) error {
	lt, err := db.Totals(ctx)
	if err != nil {
		return err
	}
	if lt.Held != lt.Minted {
		return fmt.Errorf("balances hold %d but %d was minted", lt.Held, lt.Minted)
	}
	if lt.Debits != lt.Credits {
		return fmt.Errorf("debits %d != credits %d", lt.Debits, lt.Credits)
	}
	return nil
}

func checkEscrowCoverage(ctx context.Context, db *sqlite.DB) error {
	ids, err := db.UnderfundedEscrows(ctx)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		return fmt.Errorf("%d open task(s) underfunded: %s", len(ids), strings.Join(ids, ", "))
	}
	return syncEscrowGauge(ctx, db)
}

func syncEscrowGauge(ctx context.Context, db *sqlite.DB) error {
	locked, err := db.EscrowLocked(ctx)
	if err != nil {
		return err
	}
	metrics.EscrowLocked.Set(float64(locked))
	return nil
}

func boolGauge(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
