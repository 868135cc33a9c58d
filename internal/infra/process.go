package infra

import (
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/focusshield/blockd/internal/domain"
)

// ProcessInventoryImpl implements domain.ProcessInventory using gopsutil.
type ProcessInventoryImpl struct{}

// NewProcessInventory creates a new process inventory.
func NewProcessInventory() domain.ProcessInventory {
	return &ProcessInventoryImpl{}
}

// Snapshot returns the set of running process names, lowercased.
// A process exiting mid-walk is skipped, not an error.
func (pi *ProcessInventoryImpl) Snapshot() (map[string]bool, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	running := make(map[string]bool, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue // Process may have exited
		}
		running[strings.ToLower(name)] = true
	}
	return running, nil
}

// IsRunning checks if a PID exists and is running.
func (pi *ProcessInventoryImpl) IsRunning(pid int) bool {
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}

// CurrentPID returns the current process PID.
func (pi *ProcessInventoryImpl) CurrentPID() int {
	return os.Getpid()
}

// Ensure ProcessInventoryImpl implements domain.ProcessInventory.
var _ domain.ProcessInventory = (*ProcessInventoryImpl)(nil)
