// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"strings"
	"time"
)

// BlockSpec is the desired blocking state for one reconciliation pass.
// It is read fresh from the store every cycle and never cached, so
// config edits take effect within one interval.
type BlockSpec struct {
	// Domains to redirect to loopback via the hosts file, in order.
	Domains []string

	// URLPatterns to write into each browser vendor's URLBlocklist
	// policy, in order. The pattern at index i gets ordinal key i+1.
	URLPatterns []string

	// ProcessNames to terminate when seen running. Matched
	// case-insensitively against the process inventory.
	ProcessNames []string
}

// HasProcess reports whether name is in the blocked process set
// (case-insensitive).
func (s BlockSpec) HasProcess(name string) bool {
	for _, p := range s.ProcessNames {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// VendorOutcome records the result of one per-vendor policy write.
// Vendor failures are swallowed (an uninstalled browser must not block
// the others) but stay countable for callers and tests.
type VendorOutcome struct {
	Vendor  string
	Written int
	Err     error
}

// RecycleResult captures what the browser session recycler did.
type RecycleResult struct {
	// Recycled lists browser process names that were closed and relaunched.
	Recycled []string

	// Errors holds per-browser failures (close, kill, or relaunch).
	Errors []error
}

// CycleResult captures one reconciliation pass across all surfaces.
type CycleResult struct {
	DomainsWritten int
	VendorOutcomes []VendorOutcome
	AppsKilled     int
	Recycled       []string
	Errors         []error
	ExecutedAt     time.Time
	DurationMs     int64
}

// Failed reports whether any collaborator returned an error this cycle.
func (r CycleResult) Failed() bool {
	return len(r.Errors) > 0
}

// LockInfo is the parsed content of the daemon lock file.
type LockInfo struct {
	PID int
}
