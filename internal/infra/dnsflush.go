package infra

import "github.com/focusshield/blockd/internal/domain"

// DNSFlusher implements domain.ResolverCache via ipconfig.
type DNSFlusher struct {
	runner CommandRunner
}

// NewResolverCache creates a resolver cache flusher.
func NewResolverCache() domain.ResolverCache {
	return &DNSFlusher{runner: &RealCommandRunner{}}
}

// NewResolverCacheWithRunner creates a flusher with an injectable
// runner (for testing).
func NewResolverCacheWithRunner(runner CommandRunner) domain.ResolverCache {
	return &DNSFlusher{runner: runner}
}

// Flush empties the system DNS cache so hosts-file edits take effect
// without restarting browsers or the resolver service.
func (d *DNSFlusher) Flush() error {
	return d.runner.Run("ipconfig", "/flushdns")
}

// Ensure DNSFlusher implements domain.ResolverCache.
var _ domain.ResolverCache = (*DNSFlusher)(nil)
