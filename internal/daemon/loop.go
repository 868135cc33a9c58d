// Package daemon implements the reconciliation loop and its lifecycle.
package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/focusshield/blockd/internal/domain"
)

// Cycler runs one reconciliation pass. Implemented by usecase.Reconciler.
type Cycler interface {
	RunOnce(ctx context.Context, recycle bool) domain.CycleResult
}

// LoopConfig holds reconciliation loop configuration.
type LoopConfig struct {
	Interval time.Duration // Time between reconciliation ticks
}

// DefaultLoopConfig returns the default loop configuration.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{Interval: 30 * time.Second}
}

// Loop re-applies the block list on a fixed interval.
// A failed cycle is logged and survived; the loop only stops when its
// context is canceled, and cancellation is observed between ticks.
type Loop struct {
	config LoopConfig
	cycler Cycler
	lock   domain.DaemonLock
	logger *zap.Logger
}

// NewLoop creates a reconciliation loop.
func NewLoop(config LoopConfig, cycler Cycler, lock domain.DaemonLock, logger *zap.Logger) *Loop {
	return &Loop{
		config: config,
		cycler: cycler,
		lock:   lock,
		logger: logger,
	}
}

// Run acquires the daemon lock (taking over from any existing holder),
// runs one immediate pass, then ticks until ctx is canceled. The lock
// is released on every exit path.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.lock.AcquireOrTakeover(); err != nil {
		return err
	}
	defer func() {
		if err := l.lock.Release(); err != nil {
			l.logger.Warn("failed to release daemon lock", zap.Error(err))
		}
	}()

	l.logger.Info("reconciliation loop started",
		zap.Duration("interval", l.config.Interval))

	// First pass immediately; the ticker covers the rest.
	l.tick(ctx)

	ticker := time.NewTicker(l.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("reconciliation loop stopping")
			return ctx.Err()

		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// tick runs one pass. The periodic tick never recycles browser
// sessions: restarting the user's browser every interval would be
// disruptive, so recycling is reserved for deliberate block commands.
func (l *Loop) tick(ctx context.Context) {
	result := l.cycler.RunOnce(ctx, false)

	if result.Failed() {
		for _, err := range result.Errors {
			l.logger.Error("reconciliation cycle error", zap.Error(err))
		}
		return
	}

	l.logger.Debug("reconciliation cycle completed",
		zap.Int("domains", result.DomainsWritten),
		zap.Int("apps_killed", result.AppsKilled),
		zap.Int64("duration_ms", result.DurationMs))
}
