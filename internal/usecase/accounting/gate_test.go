package accounting

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeUsage implements the usage repository with a check-then-act marker,
// mirroring the remote contract.
type fakeUsage struct {
	mu         sync.Mutex
	counted    map[uuid.UUID]bool
	increments int
	markErr    error
}

func newFakeUsage() *fakeUsage {
	return &fakeUsage{counted: make(map[uuid.UUID]bool)}
}

func (f *fakeUsage) MarkCountedIfNeeded(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return false, f.markErr
	}
	if f.counted[id] {
		return false, nil
	}
	f.counted[id] = true
	return true, nil
}

func (f *fakeUsage) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments++
	return nil
}

func TestCountOnce_ConcurrentCallsIncrementExactlyOnce(t *testing.T) {
	usage := newFakeUsage()
	gate := NewGate(usage, zap.NewNop())
	meetingID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = gate.CountOnce(context.Background(), meetingID)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, usage.increments, "usage must be incremented exactly once")
}

func TestCountOnce_MarkerReturnsTrueExactlyOnce(t *testing.T) {
	usage := newFakeUsage()
	meetingID := uuid.New()

	trues := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wasNew, err := usage.MarkCountedIfNeeded(context.Background(), meetingID)
			require.NoError(t, err)
			if wasNew {
				mu.Lock()
				trues++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, trues)
}

func TestCountOnce_RepeatedCallsAreNoOps(t *testing.T) {
	usage := newFakeUsage()
	gate := NewGate(usage, zap.NewNop())
	meetingID := uuid.New()

	for i := 0; i < 5; i++ {
		require.NoError(t, gate.CountOnce(context.Background(), meetingID))
	}

	assert.Equal(t, 1, usage.increments)
}

func TestCountOnce_ContinuationSkipsBilling(t *testing.T) {
	usage := newFakeUsage()
	gate := NewGate(usage, zap.NewNop())
	meetingID := uuid.New()

	gate.MarkAlreadyCounted(meetingID)
	require.NoError(t, gate.CountOnce(context.Background(), meetingID))

	assert.Equal(t, 0, usage.increments)
}

func TestCountOnce_RetriesAfterRemoteFailure(t *testing.T) {
	usage := newFakeUsage()
	gate := NewGate(usage, zap.NewNop())
	meetingID := uuid.New()

	usage.markErr = errors.New("backend unavailable")
	require.Error(t, gate.CountOnce(context.Background(), meetingID))

	usage.markErr = nil
	require.NoError(t, gate.CountOnce(context.Background(), meetingID))
	assert.Equal(t, 1, usage.increments)
}
