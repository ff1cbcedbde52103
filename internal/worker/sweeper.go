package worker

import (
	"context"
	"sync"
	"time"

	"github.com/austrobank/interswitch/internal/idempotency"
	"github.com/austrobank/interswitch/internal/observability"
	"go.uber.org/zap"
)

// Sweeper prunes idempotency records past their retention window so the
// result store stays bounded. A pruned transaction id behaves like a
// fresh one on resubmission, which is the documented retention policy.
type Sweeper struct {
	store    *idempotency.Store
	interval time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSweeper creates a sweeper polling at interval.
func NewSweeper(store *idempotency.Store, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start loops until the context is canceled or Stop is called.
func (w *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweepOnce()
		}
	}
}

// Stop signals the worker to stop. Safe to call more than once.
func (w *Sweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// Run starts the worker in a goroutine and returns its stop function.
func (w *Sweeper) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *Sweeper) sweepOnce() {
	removed := w.store.Sweep()
	observability.IncrementWorkerRun("idempotency_sweeper", "ok")
	if removed > 0 {
		w.logger.Info("idempotency records pruned",
			zap.Int("removed", removed),
			zap.Int("retained", w.store.Len()),
		)
	}
}
