package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/approvals-hub/internal/application/service"
)

// SnapshotLoader runs the queue pipeline
type SnapshotLoader interface {
	Load(ctx context.Context) (*service.Snapshot, error)
}

// SummaryRefresher periodically rebuilds the queue and logs badge counts.
// The latest snapshot is kept for health reporting only; dashboard reads
// always pull fresh.
type SummaryRefresher struct {
	loader   SnapshotLoader
	logger   *zap.Logger
	interval time.Duration
	timeout  time.Duration

	mu        sync.RWMutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
	latest    *service.Snapshot
	lastErr   error
	runs      int
}

// NewSummaryRefresher creates a refresher ticking every interval
func NewSummaryRefresher(loader SnapshotLoader, interval time.Duration, logger *zap.Logger) *SummaryRefresher {
	return &SummaryRefresher{
		loader:   loader,
		logger:   logger,
		interval: interval,
		timeout:  interval,
	}
}

// Start launches the refresh loop
func (r *SummaryRefresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return fmt.Errorf("summary refresher is already running")
	}
	if r.interval <= 0 {
		return fmt.Errorf("summary refresher interval must be positive")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.isRunning = true

	r.logger.Info("SummaryRefresher started", zap.Duration("interval", r.interval))

	go r.refreshLoop(loopCtx, r.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight refresh to finish
func (r *SummaryRefresher) Stop() {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = false
	r.cancel()
	done := r.done
	r.mu.Unlock()

	<-done
	r.logger.Info("SummaryRefresher stopped")
}

// Name returns the worker name for identification
func (r *SummaryRefresher) Name() string {
	return "SummaryRefresher"
}

// Latest returns the most recent snapshot and refresh error
func (r *SummaryRefresher) Latest() (*service.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.lastErr
}

// Runs returns how many refreshes have completed
func (r *SummaryRefresher) Runs() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runs
}

func (r *SummaryRefresher) refreshLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Refresh immediately on start
	r.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *SummaryRefresher) refresh(ctx context.Context) {
	loadCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	snap, err := r.loader.Load(loadCtx)

	r.mu.Lock()
	r.runs++
	r.lastErr = err
	if err == nil {
		r.latest = snap
	}
	r.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("Queue refresh failed", zap.Error(err))
		}
		return
	}

	fields := []zap.Field{
		zap.Int("pending", len(snap.Pending)),
		zap.Int("processed", len(snap.Processed)),
		zap.Stringer("pending_total", snap.Badges.GrandTotal),
	}
	for category, count := range snap.Badges.Counts {
		fields = append(fields, zap.Int("badge_"+string(category), count))
	}
	if snap.Degraded() {
		fields = append(fields, zap.Any("degraded_sources", snap.DegradedSources()))
		r.logger.Warn("Queue refreshed with unavailable sources", fields...)
		return
	}
	r.logger.Info("Queue refreshed", fields...)
}
