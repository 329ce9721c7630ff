package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	mu          sync.Mutex
	commits     []string
	callIndex   int
	fetchErr    error
	checkoutErr error
	fetchCalls  int
}

func (f *fakeDriver) Fetch(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return false, f.fetchErr
	}
	return true, nil
}

func (f *fakeDriver) Checkout(ctx context.Context, label string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkoutErr != nil {
		return "", f.checkoutErr
	}
	commit := f.commits[f.callIndex]
	if f.callIndex < len(f.commits)-1 {
		f.callIndex++
	}
	return commit, nil
}

type fakeInvalidator struct {
	mu      sync.Mutex
	calls   []string
	dropped int
}

func (f *fakeInvalidator) InvalidateStaleVersion(currentCommit string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, currentCommit)
	return f.dropped
}

func TestForceRefresh_AdvancesStateOnSuccess(t *testing.T) {
	driver := &fakeDriver{commits: []string{"commit-a"}}
	inv := &fakeInvalidator{}
	w := New(driver, inv, Config{DefaultLabel: "main", BaseInterval: time.Hour, BackoffFactor: 2, MaxBackoff: time.Hour}, nil)

	go w.Run(context.Background())
	defer w.Shutdown()

	commit, err := w.ForceRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "commit-a", commit)

	state, phase := w.Snapshot()
	assert.Equal(t, PhaseIdle, phase)
	assert.Equal(t, "commit-a", state.CurrentCommit)
	assert.Equal(t, uint64(1), state.RefreshCount)
	assert.Equal(t, uint64(0), state.ConsecutiveFailures)
}

func TestForceRefresh_ConcurrentCallsCoalesceIntoFewFetches(t *testing.T) {
	driver := &fakeDriver{commits: []string{"commit-a"}}
	w := New(driver, nil, Config{DefaultLabel: "main", BaseInterval: time.Hour, BackoffFactor: 2, MaxBackoff: time.Hour}, nil)

	go w.Run(context.Background())
	defer w.Shutdown()

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			commit, err := w.ForceRefresh(context.Background())
			require.NoError(t, err)
			results[idx] = commit
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "commit-a", r)
	}
	// Some of the 10 callers may have arrived before the cycle started and
	// been coalesced into it; others may have arrived just after it
	// finished and triggered a second one. Either way it must stay small.
	driver.mu.Lock()
	calls := driver.fetchCalls
	driver.mu.Unlock()
	assert.LessOrEqual(t, calls, 2)
}

func TestRefresh_FailureRecordsErrorAndEntersFailing(t *testing.T) {
	driver := &fakeDriver{fetchErr: errors.New("network unreachable")}
	w := New(driver, nil, Config{DefaultLabel: "main", BaseInterval: time.Hour, BackoffFactor: 2, MaxBackoff: time.Hour}, nil)

	go w.Run(context.Background())
	defer w.Shutdown()

	_, err := w.ForceRefresh(context.Background())
	assert.Error(t, err)

	state, phase := w.Snapshot()
	assert.Equal(t, PhaseFailing, phase)
	assert.Equal(t, uint64(1), state.ConsecutiveFailures)
	assert.Equal(t, "network unreachable", state.LastError)
}

func TestRefresh_RecoversToIdleAfterSuccessFollowingFailure(t *testing.T) {
	driver := &fakeDriver{fetchErr: errors.New("network unreachable")}
	w := New(driver, nil, Config{DefaultLabel: "main", BaseInterval: time.Hour, BackoffFactor: 2, MaxBackoff: time.Hour}, nil)

	go w.Run(context.Background())
	defer w.Shutdown()

	_, err := w.ForceRefresh(context.Background())
	require.Error(t, err)

	driver.mu.Lock()
	driver.fetchErr = nil
	driver.commits = []string{"commit-a"}
	driver.mu.Unlock()

	commit, err := w.ForceRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "commit-a", commit)

	state, phase := w.Snapshot()
	assert.Equal(t, PhaseIdle, phase)
	assert.Equal(t, uint64(0), state.ConsecutiveFailures)
}

func TestForceRefresh_RejectedAfterShutdown(t *testing.T) {
	driver := &fakeDriver{commits: []string{"commit-a"}}
	w := New(driver, nil, Config{DefaultLabel: "main", BaseInterval: time.Hour, BackoffFactor: 2, MaxBackoff: time.Hour}, nil)

	go w.Run(context.Background())
	w.Shutdown()

	_, err := w.ForceRefresh(context.Background())
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestRefresh_InvalidatorCalledOnlyWhenCommitAdvances(t *testing.T) {
	driver := &fakeDriver{commits: []string{"commit-a", "commit-b"}}
	inv := &fakeInvalidator{}
	w := New(driver, inv, Config{DefaultLabel: "main", BaseInterval: time.Hour, BackoffFactor: 2, MaxBackoff: time.Hour}, nil)

	go w.Run(context.Background())
	defer w.Shutdown()

	_, err := w.ForceRefresh(context.Background())
	require.NoError(t, err)
	_, err = w.ForceRefresh(context.Background())
	require.NoError(t, err)

	inv.mu.Lock()
	defer inv.mu.Unlock()
	assert.Equal(t, []string{"commit-a", "commit-b"}, inv.calls)
}
