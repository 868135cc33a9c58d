// Package usecase contains application business logic.
package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/focusshield/blockd/internal/domain"
)

// Reconciler drives the three enforcement surfaces toward the desired
// state read fresh from the store on every pass.
type Reconciler struct {
	store    domain.SpecStore
	domains  domain.DomainBlocker
	urls     domain.URLBlocker
	apps     domain.AppEnforcer
	recycler domain.SessionRecycler
	logger   *zap.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(
	store domain.SpecStore,
	domains domain.DomainBlocker,
	urls domain.URLBlocker,
	apps domain.AppEnforcer,
	recycler domain.SessionRecycler,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		store:    store,
		domains:  domains,
		urls:     urls,
		apps:     apps,
		recycler: recycler,
		logger:   logger,
	}
}

// RunOnce executes one reconciliation pass: fresh BlockSpec, then
// hosts region, URL policies, and app enforcement in sequence. When
// recycle is set (deliberate user-invoked block, not the periodic
// tick) running browsers are restarted afterwards so the new policy
// governs open tabs.
//
// Collaborator failures are collected into the result, never raised:
// a surface that cannot be written this pass is retried naturally on
// the next tick.
func (r *Reconciler) RunOnce(ctx context.Context, recycle bool) domain.CycleResult {
	start := time.Now()
	result := domain.CycleResult{ExecutedAt: start}

	spec, err := r.store.Load()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("loading block spec: %w", err))
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	count, err := r.domains.Apply(spec.Domains)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("hosts apply: %w", err))
	} else {
		result.DomainsWritten = count
	}

	result.VendorOutcomes = r.urls.Apply(spec.URLPatterns)

	result.AppsKilled = r.apps.Enforce(spec.ProcessNames)

	if recycle {
		recycled := r.recycler.Recycle(ctx)
		result.Recycled = recycled.Recycled
		result.Errors = append(result.Errors, recycled.Errors...)
	}

	result.DurationMs = time.Since(start).Milliseconds()
	return result
}

// Teardown removes both managed surfaces: the hosts region and every
// vendor policy entry. Used by the unblock command.
func (r *Reconciler) Teardown() error {
	if err := r.domains.Clear(); err != nil {
		return err
	}
	for _, outcome := range r.urls.Clear() {
		if outcome.Err != nil {
			r.logger.Warn("vendor policy clear failed",
				zap.String("vendor", outcome.Vendor),
				zap.Error(outcome.Err))
		}
	}
	return nil
}
