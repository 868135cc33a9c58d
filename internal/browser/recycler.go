// Package browser restarts running browsers so freshly written policy
// governs already-open sessions. Browsers cache domain resolution and
// policy in-memory; only a relaunch guarantees the new state applies.
package browser

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/focusshield/blockd/internal/config"
	"github.com/focusshield/blockd/internal/domain"
)

// Recycler implements domain.SessionRecycler.
//
// The three phases run as batches across all targeted browsers:
// graceful close of every browser first, then one bounded wait, then a
// single force-kill pass, then relaunch. This keeps the total
// wall-clock wait independent of how many browsers are open.
type Recycler struct {
	browsers     []config.Browser
	inventory    domain.ProcessInventory
	control      domain.ProcessControl
	closeTimeout time.Duration
	pollInterval time.Duration
	settleDelay  time.Duration
	logger       *zap.Logger
}

// New creates a session recycler.
func New(cfg config.Config, inventory domain.ProcessInventory, control domain.ProcessControl, logger *zap.Logger) *Recycler {
	return &Recycler{
		browsers:     cfg.Browsers,
		inventory:    inventory,
		control:      control,
		closeTimeout: cfg.CloseTimeout,
		pollInterval: cfg.PollInterval,
		settleDelay:  cfg.SettleDelay,
		logger:       logger,
	}
}

// Recycle closes, kills, and relaunches every managed browser that is
// currently running. Browsers not in the inventory are left alone.
func (r *Recycler) Recycle(ctx context.Context) domain.RecycleResult {
	result := domain.RecycleResult{}

	running, err := r.inventory.Snapshot()
	if err != nil {
		result.Errors = append(result.Errors, err)
		return result
	}

	var targets []config.Browser
	for _, b := range r.browsers {
		if running[strings.ToLower(b.Process)] {
			targets = append(targets, b)
		}
	}
	if len(targets) == 0 {
		return result
	}

	// Phase 1: graceful close all, so each browser can persist its
	// session state before anything is forced.
	for _, b := range targets {
		if err := r.control.Close(b.Process); err != nil {
			r.logger.Debug("graceful close failed",
				zap.String("browser", b.Process),
				zap.Error(err))
		}
	}

	r.waitForExit(ctx, targets)

	// Phase 2: force-kill stragglers. Runs unconditionally; a browser
	// that already exited makes this a no-op.
	for _, b := range targets {
		if err := r.control.Kill(b.Process); err != nil {
			r.logger.Debug("force kill failed",
				zap.String("browser", b.Process),
				zap.Error(err))
		}
	}

	r.sleep(ctx, r.settleDelay)

	// Phase 3: relaunch detached so the browsers outlive this process.
	for _, b := range targets {
		if err := r.control.SpawnDetached(b.LaunchPath); err != nil {
			r.logger.Warn("browser relaunch failed",
				zap.String("browser", b.Process),
				zap.Error(err))
			result.Errors = append(result.Errors, err)
			continue
		}
		r.logger.Info("browser recycled", zap.String("browser", b.Process))
		result.Recycled = append(result.Recycled, b.Process)
	}

	return result
}

// waitForExit polls the inventory until every target has exited or the
// close timeout elapses. Bounded: the force-kill pass follows either way.
func (r *Recycler) waitForExit(ctx context.Context, targets []config.Browser) {
	deadline := time.Now().Add(r.closeTimeout)

	for time.Now().Before(deadline) {
		running, err := r.inventory.Snapshot()
		if err != nil {
			return
		}

		anyAlive := false
		for _, b := range targets {
			if running[strings.ToLower(b.Process)] {
				anyAlive = true
				break
			}
		}
		if !anyAlive {
			return
		}

		if !r.sleep(ctx, r.pollInterval) {
			return
		}
	}
}

// sleep waits for d or until ctx is canceled. Returns false on cancel.
func (r *Recycler) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Ensure Recycler implements domain.SessionRecycler.
var _ domain.SessionRecycler = (*Recycler)(nil)
