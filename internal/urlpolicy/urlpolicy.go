// Package urlpolicy maintains the per-vendor URLBlocklist policy
// entries browsers read for path-level blocking.
package urlpolicy

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/focusshield/blockd/internal/config"
	"github.com/focusshield/blockd/internal/domain"
)

// Writer implements domain.URLBlocker over a PolicyBackend.
// Every write is a full replace: pre-existing ordinals are deleted
// first so a shorter list never leaves orphaned higher-numbered
// entries a browser might still honor.
type Writer struct {
	backend domain.PolicyBackend
	vendors []config.Vendor
	logger  *zap.Logger
}

// NewWriter creates a URL policy writer for the given vendor locations.
func NewWriter(backend domain.PolicyBackend, vendors []config.Vendor, logger *zap.Logger) *Writer {
	return &Writer{
		backend: backend,
		vendors: vendors,
		logger:  logger,
	}
}

// Apply writes patterns[i] under ordinal key i+1 at every vendor
// location. Vendor locations are independent: a failure on one (browser
// not installed, access denied) is recorded in its outcome and the
// rest proceed.
func (w *Writer) Apply(patterns []string) []domain.VendorOutcome {
	outcomes := make([]domain.VendorOutcome, 0, len(w.vendors))

	for _, v := range w.vendors {
		outcome := domain.VendorOutcome{Vendor: v.Name}

		if err := w.replace(v.Key, patterns); err != nil {
			outcome.Err = err
			w.logger.Warn("vendor policy write failed",
				zap.String("vendor", v.Name),
				zap.Error(err))
		} else {
			outcome.Written = len(patterns)
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// Clear deletes every ordinal key at every vendor location, then
// best-effort removes the emptied location. Failure to remove the
// empty container is not an error.
func (w *Writer) Clear() []domain.VendorOutcome {
	outcomes := make([]domain.VendorOutcome, 0, len(w.vendors))

	for _, v := range w.vendors {
		outcome := domain.VendorOutcome{Vendor: v.Name}

		if err := w.deleteAll(v.Key); err != nil {
			outcome.Err = err
			w.logger.Warn("vendor policy clear failed",
				zap.String("vendor", v.Name),
				zap.Error(err))
		} else {
			// Container removal is cosmetic; ignore failure.
			_ = w.backend.DeleteLocation(v.Key)
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// replace deletes all existing ordinals at location, then writes
// "1".."N" in order.
func (w *Writer) replace(location string, patterns []string) error {
	if err := w.deleteAll(location); err != nil {
		return err
	}

	for i, pattern := range patterns {
		ordinal := strconv.Itoa(i + 1)
		if err := w.backend.SetOrdinal(location, ordinal, pattern); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) deleteAll(location string) error {
	ordinals, err := w.backend.ListOrdinals(location)
	if err != nil {
		return err
	}
	for _, ordinal := range ordinals {
		if err := w.backend.DeleteOrdinal(location, ordinal); err != nil {
			return err
		}
	}
	return nil
}

// Ensure Writer implements domain.URLBlocker.
var _ domain.URLBlocker = (*Writer)(nil)
