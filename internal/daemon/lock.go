package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/focusshield/blockd/internal/domain"
)

// FileLock implements domain.DaemonLock with a plain-text PID file.
//
// Mutual exclusion is enforced by the takeover protocol, not OS file
// locking: a live holder is terminated before the lock is rewritten,
// so at most one reconciliation loop survives acquisition.
type FileLock struct {
	path      string
	inventory domain.ProcessInventory
	control   domain.ProcessControl
	logger    *zap.Logger
}

// NewFileLock creates a daemon lock at the given path.
func NewFileLock(path string, inventory domain.ProcessInventory, control domain.ProcessControl, logger *zap.Logger) *FileLock {
	return &FileLock{
		path:      path,
		inventory: inventory,
		control:   control,
		logger:    logger,
	}
}

// AcquireOrTakeover reads any existing lock. A live holder is forcibly
// terminated; a stale lock (PID no longer running) is silently
// discarded. Either way a fresh lock with our PID is written.
func (l *FileLock) AcquireOrTakeover() error {
	holder, err := l.Holder()
	if err != nil {
		return err
	}

	if holder != nil {
		if l.inventory.IsRunning(holder.PID) {
			l.logger.Info("terminating existing daemon",
				zap.Int("pid", holder.PID))
			if err := l.control.KillPID(holder.PID); err != nil {
				return fmt.Errorf("terminating lock holder pid %d: %w", holder.PID, err)
			}
		} else {
			l.logger.Debug("discarding stale daemon lock",
				zap.Int("pid", holder.PID))
		}
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return l.write(l.inventory.CurrentPID())
}

// Release deletes the lock file. Idempotent: a missing file is fine.
func (l *FileLock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Holder returns the lock currently on disk, or nil if none exists or
// its content is unusable. Garbage content (or a non-positive PID) is
// reported as no holder rather than a LockInfo with a sentinel PID:
// on Windows PID 0 is the System Idle Process and always reads as
// running, so a zero-PID holder would be unkillable and block
// acquisition forever.
func (l *FileLock) Holder() (*domain.LockInfo, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		l.logger.Warn("lock file content unparseable, treating as stale")
		return nil, nil
	}

	return &domain.LockInfo{PID: pid}, nil
}

// write stores the PID via temp-file + rename so a concurrent reader
// never sees a half-written lock.
func (l *FileLock) write(pid int) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", l.path, pid)
	if err := os.WriteFile(tmpPath, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Ensure FileLock implements domain.DaemonLock.
var _ domain.DaemonLock = (*FileLock)(nil)
