package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	calls     atomic.Int32
	commit    string
	err       error
	blockUntil chan struct{}
}

func (f *fakeRefresher) ForceRefresh(ctx context.Context) (string, error) {
	f.calls.Add(1)
	if f.blockUntil != nil {
		<-f.blockUntil
	}
	if f.err != nil {
		return "", f.err
	}
	return f.commit, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSignalHandler_StartStop(t *testing.T) {
	h := NewSignalHandler(&fakeRefresher{commit: "abc"}, testLogger())

	h.Start()
	time.Sleep(20 * time.Millisecond)
	h.Stop()

	select {
	case <-h.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled after Stop()")
	}
}

func TestSignalHandler_SIGHUPTriggersForceRefresh(t *testing.T) {
	refresher := &fakeRefresher{commit: "deadbeef"}
	h := NewSignalHandler(refresher, testLogger())
	h.Start()
	defer h.Stop()

	h.sigChan <- syscall.SIGHUP

	require.Eventually(t, func() bool {
		return refresher.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSignalHandler_RepeatedSIGHUPWithinWindowIsDebounced(t *testing.T) {
	refresher := &fakeRefresher{commit: "abc"}
	h := NewSignalHandler(refresher, testLogger())
	h.debounceWindow = time.Hour
	h.Start()
	defer h.Stop()

	h.sigChan <- syscall.SIGHUP
	require.Eventually(t, func() bool { return refresher.calls.Load() == 1 }, time.Second, 10*time.Millisecond)

	h.sigChan <- syscall.SIGHUP
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), refresher.calls.Load(), "second SIGHUP inside the debounce window should not refresh again")
}

func TestSignalHandler_RefreshFailureDoesNotCrashTheLoop(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("checkout failed")}
	h := NewSignalHandler(refresher, testLogger())
	h.Start()
	defer h.Stop()

	h.sigChan <- syscall.SIGHUP
	require.Eventually(t, func() bool { return refresher.calls.Load() == 1 }, time.Second, 10*time.Millisecond)

	// the loop must still be alive for a subsequent signal once debounce clears
	h.debounceWindow = time.Millisecond
	time.Sleep(5 * time.Millisecond)
	h.sigChan <- syscall.SIGHUP
	require.Eventually(t, func() bool { return refresher.calls.Load() == 2 }, time.Second, 10*time.Millisecond)
}

func TestSignalHandler_SIGTERMSignalsDone(t *testing.T) {
	h := NewSignalHandler(&fakeRefresher{commit: "abc"}, testLogger())
	h.Start()
	defer h.Stop()

	h.sigChan <- syscall.SIGTERM

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() did not fire after SIGTERM")
	}
}

func TestSignalHandler_SIGINTSignalsDone(t *testing.T) {
	h := NewSignalHandler(&fakeRefresher{commit: "abc"}, testLogger())
	h.Start()
	defer h.Stop()

	h.sigChan <- syscall.SIGINT

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() did not fire after SIGINT")
	}
}

func TestSignalHandler_ShouldDebounce(t *testing.T) {
	h := NewSignalHandler(&fakeRefresher{}, testLogger())
	h.debounceWindow = 50 * time.Millisecond

	assert.False(t, h.shouldDebounce(), "no prior refresh means no debounce")

	h.lastRefresh.Store(time.Now())
	assert.True(t, h.shouldDebounce())

	time.Sleep(75 * time.Millisecond)
	assert.False(t, h.shouldDebounce(), "debounce window should have elapsed")
}

func TestSignalHandler_StopWithoutStart(t *testing.T) {
	h := NewSignalHandler(&fakeRefresher{}, testLogger())
	h.Stop()
}

func TestSignalHandler_DuplicateSIGHUPWhileRefreshInFlightIsDropped(t *testing.T) {
	block := make(chan struct{})
	refresher := &fakeRefresher{commit: "abc", blockUntil: block}
	h := NewSignalHandler(refresher, testLogger())
	h.Start()
	defer func() {
		close(block)
		h.Stop()
	}()

	h.sigChan <- syscall.SIGHUP
	require.Eventually(t, func() bool { return refresher.calls.Load() == 1 }, time.Second, 10*time.Millisecond)

	// the refresh goroutine is blocked inside ForceRefresh; a second SIGHUP
	// should queue without a second concurrent refresh starting
	h.sigChan <- syscall.SIGHUP
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), refresher.calls.Load())
}
