package cache

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("insightd/cache")

// ComputeFunc produces a fresh entry for a key. It is supplied by the
// analysis generator collaborator and may be slow (seconds) and may
// fail.
type ComputeFunc[T any] func(ctx context.Context) (T, error)

// Coordinator implements the fetch-or-compute control flow over a
// Store: check staleness, check the cache, and only on a miss or an
// explicit force-refresh invoke the expensive compute collaborator,
// then write the result back.
//
// The coordinator does not deduplicate concurrent in-flight computes
// for the same key. If two computes race, whichever resolves last
// overwrites the cache (last write wins). This mirrors the observed
// behavior of the system it was ported from; callers that need
// serialization must provide it themselves.
type Coordinator[T any] struct {
	store   *Store[T]
	logger  *zap.Logger
	metrics *Metrics
}

// NewCoordinator creates a coordinator bound to store. The metrics
// tracker is taken from the store if one was set.
func NewCoordinator[T any](store *Store[T], logger *zap.Logger) *Coordinator[T] {
	return &Coordinator[T]{
		store:   store,
		logger:  logger,
		metrics: store.metrics,
	}
}

// Fetch returns the entry for key, computing it when necessary.
//
// With force false, a fresh (non-stale) cached entry is returned
// without invoking compute. Otherwise compute runs; on success the
// result is written to the store and the staleness mark is cleared,
// on failure nothing is written, staleness is left untouched and the
// error is returned for user-visible reporting. A previously cached
// value, if any, stays available for the caller to fall back to.
func (c *Coordinator[T]) Fetch(ctx context.Context, key string, force bool, compute ComputeFunc[T]) (T, error) {
	mustKey(key)

	ctx, span := tracer.Start(ctx, "cache.fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("cache.key", key),
		attribute.Bool("cache.force", force),
	)

	stale := c.store.IsStale(key)
	if !force && !stale {
		if entry, ok := c.store.Get(key); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return entry, nil
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	c.logger.Debug("computing analysis",
		zap.String("key", key),
		zap.Bool("force", force),
		zap.Bool("stale", stale))

	start := time.Now()
	entry, err := compute(ctx)
	duration := time.Since(start)

	if c.metrics != nil {
		c.metrics.RecordCompute(duration, err)
	}

	if err != nil {
		var zero T
		c.logger.Warn("analysis compute failed",
			zap.String("key", key),
			zap.Duration("duration", duration),
			zap.Error(err))
		return zero, err
	}

	c.store.Set(key, entry)
	c.store.ClearStale(key)

	c.logger.Debug("analysis computed",
		zap.String("key", key),
		zap.Duration("duration", duration))

	return entry, nil
}

// ForceRefresh discards any cached entry for key and recomputes it.
//
// The delete-then-fetch sequence guarantees recomputation even if
// another actor already cleared the staleness mark.
func (c *Coordinator[T]) ForceRefresh(ctx context.Context, key string, compute ComputeFunc[T]) (T, error) {
	mustKey(key)
	c.store.Delete(key)
	return c.Fetch(ctx, key, true, compute)
}
