package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/focusshield/blockd/internal/domain"
)

// mockCycler implements Cycler for testing
type mockCycler struct {
	mu      sync.Mutex
	runs    int
	recycle []bool
	result  domain.CycleResult
}

func (m *mockCycler) RunOnce(ctx context.Context, recycle bool) domain.CycleResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	m.recycle = append(m.recycle, recycle)
	return m.result
}

func (m *mockCycler) runCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

// mockLock implements domain.DaemonLock for testing
type mockLock struct {
	mu         sync.Mutex
	acquired   bool
	released   bool
	acquireErr error
}

func (m *mockLock) AcquireOrTakeover() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.acquireErr != nil {
		return m.acquireErr
	}
	m.acquired = true
	return nil
}

func (m *mockLock) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
	return nil
}

func (m *mockLock) Holder() (*domain.LockInfo, error) { return nil, nil }

func (m *mockLock) wasReleased() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// TestDefaultLoopConfig verifies the default interval
func TestDefaultLoopConfig(t *testing.T) {
	config := DefaultLoopConfig()
	assert.Equal(t, 30*time.Second, config.Interval)
}

// TestLoop_RunsImmediatelyThenOnTicks verifies the first pass happens
// without waiting for the first tick
func TestLoop_RunsImmediatelyThenOnTicks(t *testing.T) {
	cycler := &mockCycler{}
	lock := &mockLock{}
	loop := NewLoop(LoopConfig{Interval: 20 * time.Millisecond}, cycler, lock, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	assert.Eventually(t, func() bool { return cycler.runCount() >= 3 },
		time.Second, 5*time.Millisecond)

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}

// TestLoop_TicksNeverRecycle verifies the periodic tick does not
// recycle browser sessions
func TestLoop_TicksNeverRecycle(t *testing.T) {
	cycler := &mockCycler{}
	lock := &mockLock{}
	loop := NewLoop(LoopConfig{Interval: 10 * time.Millisecond}, cycler, lock, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	assert.Eventually(t, func() bool { return cycler.runCount() >= 2 },
		time.Second, 5*time.Millisecond)
	cancel()
	<-done

	cycler.mu.Lock()
	defer cycler.mu.Unlock()
	for _, recycled := range cycler.recycle {
		assert.False(t, recycled)
	}
}

// TestLoop_CycleFailureIsNotFatal verifies the loop keeps ticking
// through failed cycles
func TestLoop_CycleFailureIsNotFatal(t *testing.T) {
	cycler := &mockCycler{result: domain.CycleResult{Errors: []error{errors.New("bad cycle")}}}
	lock := &mockLock{}
	loop := NewLoop(LoopConfig{Interval: 10 * time.Millisecond}, cycler, lock, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	assert.Eventually(t, func() bool { return cycler.runCount() >= 3 },
		time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

// TestLoop_ReleasesLockOnStop verifies the lock is released on the
// cancellation exit path
func TestLoop_ReleasesLockOnStop(t *testing.T) {
	cycler := &mockCycler{}
	lock := &mockLock{}
	loop := NewLoop(LoopConfig{Interval: time.Hour}, cycler, lock, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	assert.Eventually(t, func() bool { return cycler.runCount() >= 1 },
		time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.True(t, lock.wasReleased())
}

// TestLoop_AcquireFailureAbortsRun verifies the loop never ticks when
// the lock cannot be acquired
func TestLoop_AcquireFailureAbortsRun(t *testing.T) {
	cycler := &mockCycler{}
	lock := &mockLock{acquireErr: errors.New("takeover failed")}
	loop := NewLoop(DefaultLoopConfig(), cycler, lock, zap.NewNop())

	err := loop.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, 0, cycler.runCount())
}
