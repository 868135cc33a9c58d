// Package hosts rewrites the marker-delimited managed region of the
// system hosts file. Everything outside the markers belongs to the
// user and is preserved verbatim.
package hosts

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/focusshield/blockd/internal/domain"
)

// Writer implements domain.DomainBlocker.
type Writer struct {
	path        string
	redirectIP  string
	markerStart string
	markerEnd   string
	resolver    domain.ResolverCache
	logger      *zap.Logger
}

// NewWriter creates a hosts-file writer. resolver is flushed after
// every successful apply/clear so changes are visible immediately.
func NewWriter(path, redirectIP, markerStart, markerEnd string, resolver domain.ResolverCache, logger *zap.Logger) *Writer {
	return &Writer{
		path:        path,
		redirectIP:  redirectIP,
		markerStart: markerStart,
		markerEnd:   markerEnd,
		resolver:    resolver,
		logger:      logger,
	}
}

// Apply replaces the managed region with one redirect line per domain
// and returns the number of domains written. Content outside the
// markers is preserved; a missing hosts file starts from empty.
func (w *Writer) Apply(domains []string) (int, error) {
	content, err := w.read()
	if err != nil {
		return 0, err
	}

	stripped := w.stripRegion(content)

	block := make([]string, 0, len(domains)+2)
	block = append(block, w.markerStart)
	for _, d := range domains {
		block = append(block, fmt.Sprintf("%s %s", w.redirectIP, d))
	}
	block = append(block, w.markerEnd)

	newContent := strings.TrimRight(stripped, "\n") + "\n\n" + strings.Join(block, "\n") + "\n"

	if err := w.write(newContent); err != nil {
		return 0, err
	}

	w.flush()
	w.logger.Info("hosts region written", zap.Int("domains", len(domains)))
	return len(domains), nil
}

// Clear removes the managed region only, then flushes the resolver.
func (w *Writer) Clear() error {
	content, err := w.read()
	if err != nil {
		return err
	}

	if err := w.write(w.stripRegion(content)); err != nil {
		return err
	}

	w.flush()
	w.logger.Info("hosts region cleared")
	return nil
}

// Blocked parses the managed region and returns the domains it
// currently redirects. Used by the status command.
func (w *Writer) Blocked() ([]string, error) {
	content, err := w.read()
	if err != nil {
		return nil, err
	}

	var blocked []string
	inside := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == w.markerStart:
			inside = true
		case trimmed == w.markerEnd:
			inside = false
		case inside && trimmed != "":
			fields := strings.Fields(trimmed)
			if len(fields) >= 2 {
				blocked = append(blocked, fields[1])
			}
		}
	}
	return blocked, nil
}

// read returns the full hosts file. Missing file reads as empty so a
// fresh system gets a region appended to nothing. Permission errors
// propagate: there is no silent partial application.
func (w *Writer) read() (string, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading hosts file: %w", err)
	}
	return string(data), nil
}

// write replaces the hosts file via temp-file + rename so a crash
// mid-write never leaves it truncated.
func (w *Writer) write(content string) error {
	tmpPath := fmt.Sprintf("%s.%d.tmp", w.path, os.Getpid())
	if err := os.WriteFile(tmpPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing hosts file: %w", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing hosts file: %w", err)
	}
	return nil
}

// stripRegion removes the managed region, keeping every other line.
func (w *Writer) stripRegion(content string) string {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	inside := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == w.markerStart {
			inside = true
			continue
		}
		if trimmed == w.markerEnd {
			inside = false
			continue
		}
		if !inside {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n")
}

// flush is best-effort: a failed cache flush only delays visibility
// until the OS expires entries on its own.
func (w *Writer) flush() {
	if w.resolver == nil {
		return
	}
	if err := w.resolver.Flush(); err != nil {
		w.logger.Warn("resolver cache flush failed", zap.Error(err))
	}
}

// Ensure Writer implements domain.DomainBlocker.
var _ domain.DomainBlocker = (*Writer)(nil)
