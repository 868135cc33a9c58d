package domain

import "context"

// ProcessInventory answers questions about currently running processes.
// Implementation: uses gopsutil.
type ProcessInventory interface {
	// Snapshot returns the set of running process names, lowercased.
	// Rebuilt on every call; never cached.
	Snapshot() (map[string]bool, error)

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// CurrentPID returns the current process PID.
	CurrentPID() int
}

// ProcessControl issues termination and spawn requests.
// Implementation: taskkill / cmd start via CommandRunner.
type ProcessControl interface {
	// Close asks a process (by image name) to exit gracefully.
	Close(name string) error

	// Kill force-terminates all processes with the given image name.
	Kill(name string) error

	// KillPID force-terminates a single process by PID.
	KillPID(pid int) error

	// SpawnDetached launches an executable detached from this process,
	// so it survives the caller exiting.
	SpawnDetached(path string) error
}

// PolicyBackend is the per-vendor key-value store holding URL block
// patterns under ordinal keys "1".."N".
// Implementation: Windows registry under each vendor's policy key.
type PolicyBackend interface {
	// ListOrdinals returns the value names present at the vendor
	// location. A missing location returns an empty list, not an error.
	ListOrdinals(location string) ([]string, error)

	// SetOrdinal writes pattern under the given ordinal key, creating
	// the location if needed.
	SetOrdinal(location, ordinal, pattern string) error

	// DeleteOrdinal removes one ordinal key. Missing key is not an error.
	DeleteOrdinal(location, ordinal string) error

	// DeleteLocation removes the (empty) vendor location itself.
	DeleteLocation(location string) error
}

// ResolverCache flushes the system name-resolution cache so hosts-file
// edits are visible without restarting anything.
type ResolverCache interface {
	Flush() error
}

// SpecStore persists the user's desired blocking state.
// Implementation: JSON file, seeded with defaults when missing.
type SpecStore interface {
	// Load reads a fresh BlockSpec. A missing file is initialized with
	// the documented default block list before returning.
	Load() (BlockSpec, error)

	// Save persists the spec.
	Save(spec BlockSpec) error
}

// DomainBlocker rewrites the managed region of the hosts file.
type DomainBlocker interface {
	// Apply replaces the managed region with one loopback redirect per
	// domain and returns the number of domains written.
	Apply(domains []string) (int, error)

	// Clear removes the managed region, leaving the rest of the file
	// untouched.
	Clear() error

	// Blocked parses the managed region and returns the domains it
	// currently redirects.
	Blocked() ([]string, error)
}

// URLBlocker rewrites the per-vendor URL policy entries.
type URLBlocker interface {
	// Apply replaces each vendor location's ordinal set with exactly
	// patterns[0..N-1] under keys "1".."N".
	Apply(patterns []string) []VendorOutcome

	// Clear deletes all ordinal keys and best-effort removes the
	// emptied locations.
	Clear() []VendorOutcome
}

// AppEnforcer terminates blocked processes that are currently running.
type AppEnforcer interface {
	// Enforce returns the number of names for which a termination was
	// attempted without error. Not a guarantee the process died.
	Enforce(processNames []string) int
}

// SessionRecycler restarts running browsers so freshly written policy
// governs already-open sessions.
type SessionRecycler interface {
	Recycle(ctx context.Context) RecycleResult
}

// DaemonLock enforces a single reconciliation loop system-wide via a
// PID lock file.
type DaemonLock interface {
	// AcquireOrTakeover kills any live holder, discards a stale lock,
	// and writes a fresh lock with the current PID.
	AcquireOrTakeover() error

	// Release deletes the lock file. Idempotent; a missing file is fine.
	Release() error

	// Holder returns the lock on disk, or nil if none exists or its
	// content does not name a usable PID.
	Holder() (*LockInfo, error)
}

// AutostartManager registers the daemon to run at logon.
type AutostartManager interface {
	// Install registers the scheduled task (falling back to the
	// registry run key) pointing at execPath.
	Install(execPath string) error

	// Uninstall removes both the task and any run-key entry.
	Uninstall() error

	// IsInstalled checks whether either registration is present.
	IsInstalled() bool
}
