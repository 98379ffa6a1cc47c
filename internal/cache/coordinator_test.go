package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingCompute is a mock compute collaborator that counts calls.
type countingCompute struct {
	calls  int
	result *report
	err    error
}

func (c *countingCompute) fn(context.Context) (*report, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

func newTestCoordinator(t *testing.T) (*Coordinator[*report], *Store[*report]) {
	t.Helper()
	store := NewStore[*report]()
	return NewCoordinator(store, zap.NewNop()), store
}

func TestCoordinator_CacheHitShortCircuit(t *testing.T) {
	coord, store := newTestCoordinator(t)
	key := DeriveKey(KindProduct, "P001", "2024-Q1")

	cached := &report{Summary: "cached"}
	store.Set(key, cached)

	compute := &countingCompute{result: &report{Summary: "fresh"}}
	got, err := coord.Fetch(context.Background(), key, false, compute.fn)

	require.NoError(t, err)
	assert.Same(t, cached, got)
	assert.Equal(t, 0, compute.calls, "fresh cached entry must not trigger compute")
}

func TestCoordinator_CacheMissComputes(t *testing.T) {
	coord, store := newTestCoordinator(t)
	key := DeriveKey(KindProduct, "P001", "2024-Q1")

	fresh := &report{Summary: "fresh"}
	compute := &countingCompute{result: fresh}

	got, err := coord.Fetch(context.Background(), key, false, compute.fn)

	require.NoError(t, err)
	assert.Same(t, fresh, got)
	assert.Equal(t, 1, compute.calls)

	stored, ok := store.Get(key)
	assert.True(t, ok)
	assert.Same(t, fresh, stored)
	assert.False(t, store.IsStale(key), "successful compute clears staleness")
}

func TestCoordinator_StaleEntryRecomputes(t *testing.T) {
	coord, store := newTestCoordinator(t)
	key := DeriveKey(KindProduct, "P001", "2024-Q1")

	store.Set(key, &report{Summary: "old"})
	store.MarkStale(key)

	fresh := &report{Summary: "fresh"}
	compute := &countingCompute{result: fresh}

	got, err := coord.Fetch(context.Background(), key, false, compute.fn)

	require.NoError(t, err)
	assert.Same(t, fresh, got)
	assert.Equal(t, 1, compute.calls, "stale entry must recompute even without force")
	assert.False(t, store.IsStale(key))
}

func TestCoordinator_FailureDoesNotPoisonCache(t *testing.T) {
	coord, store := newTestCoordinator(t)
	key := DeriveKey(KindProduct, "P001", "2024-Q1")
	boom := errors.New("completion endpoint unreachable")

	t.Run("absent stays absent", func(t *testing.T) {
		compute := &countingCompute{err: boom}
		_, err := coord.Fetch(context.Background(), key, false, compute.fn)
		require.ErrorIs(t, err, boom)

		_, ok := store.Get(key)
		assert.False(t, ok)
	})

	t.Run("prior value survives, staleness unchanged", func(t *testing.T) {
		prior := &report{Summary: "prior"}
		store.Set(key, prior)
		store.MarkStale(key)

		compute := &countingCompute{err: boom}
		_, err := coord.Fetch(context.Background(), key, false, compute.fn)
		require.ErrorIs(t, err, boom)

		got, ok := store.Get(key)
		assert.True(t, ok, "stale-but-displayable beats blank")
		assert.Same(t, prior, got)
		assert.True(t, store.IsStale(key), "failure must not clear staleness")
	})
}

func TestCoordinator_ForceRefreshAlwaysRecomputes(t *testing.T) {
	coord, store := newTestCoordinator(t)
	key := DeriveKey(KindProduct, "P001", "2024-Q1")

	store.Set(key, &report{Summary: "cached"})

	fresh := &report{Summary: "fresh"}
	compute := &countingCompute{result: fresh}

	got, err := coord.ForceRefresh(context.Background(), key, compute.fn)

	require.NoError(t, err)
	assert.Same(t, fresh, got)
	assert.Equal(t, 1, compute.calls, "force refresh computes exactly once")

	stored, ok := store.Get(key)
	require.True(t, ok)
	assert.Same(t, fresh, stored, "force refresh overwrites the cache")
}

func TestCoordinator_ForceRefreshFailureLeavesCacheEmpty(t *testing.T) {
	coord, store := newTestCoordinator(t)
	key := DeriveKey(KindProduct, "P001", "2024-Q1")

	store.Set(key, &report{Summary: "cached"})

	compute := &countingCompute{err: errors.New("timeout")}
	_, err := coord.ForceRefresh(context.Background(), key, compute.fn)
	require.Error(t, err)

	// ForceRefresh deletes before computing, so a failed recompute
	// leaves nothing cached. This is the hard-refresh contract.
	_, ok := store.Get(key)
	assert.False(t, ok)
}

func TestCoordinator_EndToEnd(t *testing.T) {
	coord, store := newTestCoordinator(t)
	key := "product-P1-2024-Q1"

	// Cache empty: first fetch computes.
	first := &report{Summary: "ok"}
	compute := &countingCompute{result: first}
	got, err := coord.Fetch(context.Background(), key, false, compute.fn)
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.Equal(t, 1, compute.calls)

	stored, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, "ok", stored.Summary)

	// Assistant marks the subject stale out of band.
	store.MarkStale(key)
	assert.True(t, store.IsStale(key))
	stored, ok = store.Get(key)
	require.True(t, ok)
	assert.Equal(t, "ok", stored.Summary, "stale entry is still servable")

	// Next fetch sees staleness and computes a second time.
	_, err = coord.Fetch(context.Background(), key, false, compute.fn)
	require.NoError(t, err)
	assert.Equal(t, 2, compute.calls)
	assert.False(t, store.IsStale(key))
}

func TestCoordinator_EmptyKeyPanics(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	compute := &countingCompute{result: &report{}}

	assert.Panics(t, func() {
		_, _ = coord.Fetch(context.Background(), "", false, compute.fn)
	})
}
