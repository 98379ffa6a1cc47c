package server

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/axiombi/insightd/internal/analysis"
	"github.com/axiombi/insightd/internal/cache"
)

// Refresher watches the report store's refresh counter and quietly
// recomputes any previously served subject that was marked stale, so
// an invalidation from the assistant (or another process via NATS)
// lands as a fresh report before the next read, without the
// invalidator holding a handle to any consumer.
type Refresher struct {
	reports     *cache.Store[*analysis.AnalysisReport]
	coordinator *cache.Coordinator[*analysis.AnalysisReport]
	logger      *zap.Logger

	mu      sync.Mutex
	served  map[string]cache.ComputeFunc[*analysis.AnalysisReport]
	stopped chan struct{}
}

// NewRefresher creates a refresher over the given report cache.
func NewRefresher(reports *cache.Store[*analysis.AnalysisReport], coordinator *cache.Coordinator[*analysis.AnalysisReport], logger *zap.Logger) *Refresher {
	return &Refresher{
		reports:     reports,
		coordinator: coordinator,
		logger:      logger,
		served:      make(map[string]cache.ComputeFunc[*analysis.AnalysisReport]),
	}
}

// Track records that a subject was served, remembering how to
// recompute it. Re-tracking a key replaces its compute collaborator.
func (r *Refresher) Track(key string, compute cache.ComputeFunc[*analysis.AnalysisReport]) {
	r.mu.Lock()
	r.served[key] = compute
	r.mu.Unlock()
}

// Start subscribes to staleness signals and recomputes stale tracked
// keys until ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	signal, cancel := r.reports.Subscribe()
	r.stopped = make(chan struct{})

	go func() {
		defer cancel()
		defer close(r.stopped)

		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
				r.refreshStale(ctx)
			}
		}
	}()
}

// Wait blocks until the refresh loop has exited.
func (r *Refresher) Wait() {
	if r.stopped != nil {
		<-r.stopped
	}
}

// refreshStale re-runs fetch-or-compute for every tracked key that is
// currently stale. Fetch sees the staleness and recomputes; a failure
// leaves the old entry and the stale mark in place for the next signal.
func (r *Refresher) refreshStale(ctx context.Context) {
	r.mu.Lock()
	stale := make(map[string]cache.ComputeFunc[*analysis.AnalysisReport])
	for key, compute := range r.served {
		if r.reports.IsStale(key) {
			stale[key] = compute
		}
	}
	r.mu.Unlock()

	for key, compute := range stale {
		if _, err := r.coordinator.Fetch(ctx, key, false, compute); err != nil {
			r.logger.Warn("automatic refresh failed",
				zap.String("key", key),
				zap.Error(err))
			continue
		}
		r.logger.Debug("automatically refreshed stale report", zap.String("key", key))
	}
}
