package infra

import (
	"strconv"

	"github.com/focusshield/blockd/internal/domain"
)

// TaskkillControl implements domain.ProcessControl via the taskkill
// utility. Blocking by image name matches how users identify apps in
// Task Manager; PID-level kills are only used for lock takeover.
type TaskkillControl struct {
	runner CommandRunner
}

// NewProcessControl creates a process control backed by real commands.
func NewProcessControl() domain.ProcessControl {
	return &TaskkillControl{runner: &RealCommandRunner{}}
}

// NewProcessControlWithRunner creates a process control with an
// injectable runner (for testing).
func NewProcessControlWithRunner(runner CommandRunner) domain.ProcessControl {
	return &TaskkillControl{runner: runner}
}

// Close asks all processes with the given image name to exit
// gracefully (no /F), giving them a chance to persist session state.
func (t *TaskkillControl) Close(name string) error {
	return t.runner.Run("taskkill", "/IM", name)
}

// Kill force-terminates all processes with the given image name.
func (t *TaskkillControl) Kill(name string) error {
	return t.runner.Run("taskkill", "/F", "/IM", name)
}

// KillPID force-terminates a single process by PID.
func (t *TaskkillControl) KillPID(pid int) error {
	return t.runner.Run("taskkill", "/F", "/PID", strconv.Itoa(pid))
}

// SpawnDetached launches an executable via `cmd /C start` so it is not
// a child of this process and survives the caller exiting.
func (t *TaskkillControl) SpawnDetached(path string) error {
	return t.runner.Start("cmd", "/C", "start", "", path)
}

// Ensure TaskkillControl implements domain.ProcessControl.
var _ domain.ProcessControl = (*TaskkillControl)(nil)
