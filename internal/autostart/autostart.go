// Package autostart registers the daemon to run at logon.
// Primary mechanism is a scheduled task running elevated (no UAC
// prompt at logon); the registry run key is the fallback when task
// creation fails.
package autostart

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/focusshield/blockd/internal/domain"
	"github.com/focusshield/blockd/internal/infra"
)

// RunKeyStore abstracts the registry run-key fallback so the manager
// itself stays testable. Implementation: runkey_windows.go.
type RunKeyStore interface {
	Set(name, command string) error
	Delete(name string) error
	Get(name string) (string, bool)
}

// Manager implements domain.AutostartManager via schtasks with a
// run-key fallback.
type Manager struct {
	taskName string
	runner   infra.CommandRunner
	runKey   RunKeyStore
	logger   *zap.Logger
}

// NewManager creates an autostart manager.
func NewManager(taskName string, runner infra.CommandRunner, runKey RunKeyStore, logger *zap.Logger) *Manager {
	return &Manager{
		taskName: taskName,
		runner:   runner,
		runKey:   runKey,
		logger:   logger,
	}
}

// Install registers a logon task running execPath's daemon command
// with highest privileges. The 15 second delay lets the network come
// up before the first reconciliation pass. Falls back to the run key
// when schtasks fails; the run key cannot auto-elevate, so that path
// may prompt at logon.
func (m *Manager) Install(execPath string) error {
	// Replace any existing task first; ignore failure on a missing one.
	_ = m.runner.Run("schtasks", "/Delete", "/TN", m.taskName, "/F")

	command := fmt.Sprintf(`"%s" daemon`, execPath)
	err := m.runner.Run("schtasks", "/Create",
		"/TN", m.taskName,
		"/TR", command,
		"/SC", "ONLOGON",
		"/RL", "HIGHEST",
		"/DELAY", "0000:15",
		"/F")
	if err == nil {
		m.logger.Info("autostart task installed", zap.String("task", m.taskName))
		return nil
	}

	m.logger.Warn("scheduled task creation failed, falling back to run key",
		zap.Error(err))
	if err := m.runKey.Set(m.taskName, command); err != nil {
		return fmt.Errorf("installing autostart: %w", err)
	}
	m.logger.Info("autostart run key installed", zap.String("name", m.taskName))
	return nil
}

// Uninstall removes both registrations. Missing entries are fine.
func (m *Manager) Uninstall() error {
	_ = m.runner.Run("schtasks", "/Delete", "/TN", m.taskName, "/F")
	if err := m.runKey.Delete(m.taskName); err != nil {
		return err
	}
	return nil
}

// IsInstalled checks whether either registration is present.
func (m *Manager) IsInstalled() bool {
	if err := m.runner.Run("schtasks", "/Query", "/TN", m.taskName); err == nil {
		return true
	}
	_, ok := m.runKey.Get(m.taskName)
	return ok
}

// Ensure Manager implements domain.AutostartManager.
var _ domain.AutostartManager = (*Manager)(nil)
