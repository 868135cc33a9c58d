package hosts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testMarkerStart = "# === WEBSITE BLOCKER START ==="
	testMarkerEnd   = "# === WEBSITE BLOCKER END ==="
	testRedirectIP  = "127.0.0.1"
)

// mockResolver counts cache flushes.
type mockResolver struct {
	flushes int
	err     error
}

func (m *mockResolver) Flush() error {
	m.flushes++
	return m.err
}

func newTestWriter(t *testing.T, initial string) (*Writer, string, *mockResolver) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts")
	if initial != "" {
		require.NoError(t, os.WriteFile(path, []byte(initial), 0644))
	}
	resolver := &mockResolver{}
	w := NewWriter(path, testRedirectIP, testMarkerStart, testMarkerEnd, resolver, zap.NewNop())
	return w, path, resolver
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// TestApply_WritesManagedRegion verifies the basic redirect block
func TestApply_WritesManagedRegion(t *testing.T) {
	w, path, resolver := newTestWriter(t, "127.0.0.1 localhost\n")

	count, err := w.Apply([]string{"x.com", "www.x.com"})

	require.NoError(t, err)
	assert.Equal(t, 2, count)

	content := readFile(t, path)
	assert.Contains(t, content, "127.0.0.1 localhost")
	assert.Contains(t, content, testMarkerStart)
	assert.Contains(t, content, "127.0.0.1 x.com")
	assert.Contains(t, content, "127.0.0.1 www.x.com")
	assert.Contains(t, content, testMarkerEnd)
	assert.Equal(t, 1, resolver.flushes)
}

// TestApply_Idempotent verifies applying the same list twice yields
// byte-identical content
func TestApply_Idempotent(t *testing.T) {
	w, path, _ := newTestWriter(t, "10.0.0.1 intranet\n")

	_, err := w.Apply([]string{"a.com", "b.com"})
	require.NoError(t, err)
	first := readFile(t, path)

	_, err = w.Apply([]string{"a.com", "b.com"})
	require.NoError(t, err)
	second := readFile(t, path)

	assert.Equal(t, first, second)
}

// TestApply_ReplacesExistingRegion verifies unrelated content around a
// previous region survives a re-apply with a different list
func TestApply_ReplacesExistingRegion(t *testing.T) {
	initial := strings.Join([]string{
		"# corporate entries",
		"10.1.1.1 wiki.corp",
		testMarkerStart,
		"127.0.0.1 old.com",
		testMarkerEnd,
		"10.1.1.2 mail.corp",
		"",
	}, "\n")
	w, path, _ := newTestWriter(t, initial)

	_, err := w.Apply([]string{"new.com"})
	require.NoError(t, err)

	content := readFile(t, path)
	assert.Contains(t, content, "# corporate entries")
	assert.Contains(t, content, "10.1.1.1 wiki.corp")
	assert.Contains(t, content, "10.1.1.2 mail.corp")
	assert.Contains(t, content, "127.0.0.1 new.com")
	assert.NotContains(t, content, "old.com")
	assert.Equal(t, 1, strings.Count(content, testMarkerStart), "only one managed region may exist")
}

// TestApply_MissingFileStartsEmpty verifies a missing hosts file reads
// as empty content
func TestApply_MissingFileStartsEmpty(t *testing.T) {
	w, path, _ := newTestWriter(t, "")

	count, err := w.Apply([]string{"x.com"})

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	content := readFile(t, path)
	assert.Contains(t, content, "127.0.0.1 x.com")
}

// TestClear_RoundTrip verifies apply-then-clear restores the original
// content modulo trailing-newline normalization
func TestClear_RoundTrip(t *testing.T) {
	initial := "127.0.0.1 localhost\n10.0.0.5 nas.local\n"
	w, path, resolver := newTestWriter(t, initial)

	_, err := w.Apply([]string{"x.com", "y.com"})
	require.NoError(t, err)
	require.NoError(t, w.Clear())

	content := readFile(t, path)
	assert.Equal(t,
		strings.TrimRight(initial, "\n"),
		strings.TrimRight(content, "\n"))
	assert.Equal(t, 2, resolver.flushes)
}

// TestClear_NoRegionIsNoop verifies clearing without a region keeps
// the file content
func TestClear_NoRegionIsNoop(t *testing.T) {
	initial := "127.0.0.1 localhost\n"
	w, path, _ := newTestWriter(t, initial)

	require.NoError(t, w.Clear())

	assert.Equal(t, initial, readFile(t, path))
}

// TestBlocked_ParsesRegion verifies status parsing of the region
func TestBlocked_ParsesRegion(t *testing.T) {
	w, _, _ := newTestWriter(t, "")

	_, err := w.Apply([]string{"x.com", "www.x.com"})
	require.NoError(t, err)

	blocked, err := w.Blocked()
	require.NoError(t, err)
	assert.Equal(t, []string{"x.com", "www.x.com"}, blocked)
}

// TestBlocked_EmptyWithoutRegion verifies no region means nothing blocked
func TestBlocked_EmptyWithoutRegion(t *testing.T) {
	w, _, _ := newTestWriter(t, "127.0.0.1 localhost\n")

	blocked, err := w.Blocked()
	require.NoError(t, err)
	assert.Empty(t, blocked)
}

// TestApply_LeavesNoTempFiles verifies the rename-based rewrite cleans
// up after itself: only the hosts file remains after apply and clear
func TestApply_LeavesNoTempFiles(t *testing.T) {
	w, path, _ := newTestWriter(t, "127.0.0.1 localhost\n")

	_, err := w.Apply([]string{"x.com"})
	require.NoError(t, err)
	require.NoError(t, w.Clear())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(path), entries[0].Name())
}

// TestApply_FlushFailureIsNotFatal verifies a failed resolver flush
// does not fail the apply
func TestApply_FlushFailureIsNotFatal(t *testing.T) {
	w, _, resolver := newTestWriter(t, "")
	resolver.err = assert.AnError

	count, err := w.Apply([]string{"x.com"})

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, resolver.flushes)
}
