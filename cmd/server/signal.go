package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signalRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configserver_signal_refresh_total",
			Help: "Force-refresh attempts triggered by SIGHUP, by outcome",
		},
		[]string{"status"},
	)
	signalRefreshDebounced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "configserver_signal_refresh_debounced_total",
			Help: "SIGHUP signals ignored because they arrived inside the debounce window",
		},
	)
)

// Refresher is the subset of the refresh worker the signal handler depends
// on: an immediate, blocking refresh.
type Refresher interface {
	ForceRefresh(ctx context.Context) (commit string, err error)
}

// SignalHandler bridges OS signals to the server's lifecycle: SIGHUP
// triggers a debounced force-refresh of the repository mirror; SIGINT and
// SIGTERM request graceful shutdown via Done().
type SignalHandler struct {
	refresher Refresher
	logger    *slog.Logger

	lastRefresh    atomic.Value // time.Time
	debounceWindow time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sigChan     chan os.Signal
	refreshChan chan struct{}
	doneChan    chan struct{}
}

// NewSignalHandler constructs a SignalHandler. Call Start to begin
// listening.
func NewSignalHandler(refresher Refresher, logger *slog.Logger) *SignalHandler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SignalHandler{
		refresher:      refresher,
		logger:         logger,
		debounceWindow: time.Second,
		ctx:            ctx,
		cancel:         cancel,
		sigChan:        make(chan os.Signal, 1),
		refreshChan:    make(chan struct{}, 1),
		doneChan:       make(chan struct{}, 1),
	}
}

// Start registers for SIGHUP, SIGINT, and SIGTERM and begins the
// background listener and refresh-worker goroutines.
func (h *SignalHandler) Start() {
	signal.Notify(h.sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	h.wg.Add(2)
	go h.listen()
	go h.refreshLoop()

	h.logger.Info("signal handler started", "signals", []string{"SIGHUP", "SIGINT", "SIGTERM"})
}

// Stop stops listening for signals and waits for its goroutines to exit.
func (h *SignalHandler) Stop() {
	signal.Stop(h.sigChan)
	h.cancel()
	h.wg.Wait()
}

// Done signals that a shutdown-requesting signal (SIGINT or SIGTERM) has
// arrived.
func (h *SignalHandler) Done() <-chan struct{} {
	return h.doneChan
}

func (h *SignalHandler) listen() {
	defer h.wg.Done()

	for {
		select {
		case sig, ok := <-h.sigChan:
			if !ok {
				return
			}
			h.logger.Info("received signal", "signal", sig.String())

			switch sig {
			case syscall.SIGHUP:
				select {
				case h.refreshChan <- struct{}{}:
				default:
					h.logger.Debug("refresh already queued, dropping duplicate SIGHUP")
				}
			case syscall.SIGINT, syscall.SIGTERM:
				select {
				case h.doneChan <- struct{}{}:
				default:
				}
				return
			}
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *SignalHandler) refreshLoop() {
	defer h.wg.Done()

	for {
		select {
		case <-h.refreshChan:
			if h.shouldDebounce() {
				signalRefreshDebounced.Inc()
				h.logger.Debug("SIGHUP refresh debounced")
				continue
			}
			h.lastRefresh.Store(time.Now())
			h.executeRefresh()
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *SignalHandler) shouldDebounce() bool {
	last := h.lastRefreshTime()
	return !last.IsZero() && time.Since(last) < h.debounceWindow
}

func (h *SignalHandler) lastRefreshTime() time.Time {
	v := h.lastRefresh.Load()
	if v == nil {
		return time.Time{}
	}
	return v.(time.Time)
}

func (h *SignalHandler) executeRefresh() {
	start := time.Now()
	ctx, cancel := context.WithTimeout(h.ctx, 30*time.Second)
	defer cancel()

	commit, err := h.refresher.ForceRefresh(ctx)
	if err != nil {
		signalRefreshTotal.WithLabelValues("failure").Inc()
		h.logger.Error("SIGHUP refresh failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}

	signalRefreshTotal.WithLabelValues("success").Inc()
	h.logger.Info("SIGHUP refresh completed", "commit", commit, "duration_ms", time.Since(start).Milliseconds())
}
