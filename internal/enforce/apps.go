// Package enforce terminates blocked applications that are running.
package enforce

import (
	"strings"

	"go.uber.org/zap"

	"github.com/focusshield/blockd/internal/domain"
)

// AppEnforcer implements domain.AppEnforcer.
type AppEnforcer struct {
	inventory domain.ProcessInventory
	control   domain.ProcessControl
	logger    *zap.Logger
}

// New creates an app enforcer.
func New(inventory domain.ProcessInventory, control domain.ProcessControl, logger *zap.Logger) *AppEnforcer {
	return &AppEnforcer{
		inventory: inventory,
		control:   control,
		logger:    logger,
	}
}

// Enforce takes a fresh process snapshot and issues a forced
// termination for every blocked name present in it. The returned count
// is the number of names for which the kill was attempted without
// error, not a guarantee the process died; one that exits between
// snapshot and kill is a harmless no-op. Per-name failures are logged
// and skipped so one bad kill never aborts the rest.
func (e *AppEnforcer) Enforce(processNames []string) int {
	if len(processNames) == 0 {
		return 0
	}

	running, err := e.inventory.Snapshot()
	if err != nil {
		e.logger.Warn("process snapshot failed", zap.Error(err))
		return 0
	}

	killed := 0
	for _, name := range processNames {
		if !running[strings.ToLower(name)] {
			continue
		}

		if err := e.control.Kill(name); err != nil {
			e.logger.Warn("failed to kill blocked app",
				zap.String("app", name),
				zap.Error(err))
			continue
		}

		e.logger.Info("killed blocked app", zap.String("app", name))
		killed++
	}

	return killed
}

// Ensure AppEnforcer implements domain.AppEnforcer.
var _ domain.AppEnforcer = (*AppEnforcer)(nil)
