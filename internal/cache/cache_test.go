package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	Summary string
}

func TestNewStore(t *testing.T) {
	store := NewStore[*report]()
	require.NotNil(t, store)
	assert.Equal(t, 0, store.Len())
}

func TestStore_SetAndGet(t *testing.T) {
	store := NewStore[*report]()
	key := DeriveKey(KindProduct, "P001", "2024-Q1")

	entry := &report{Summary: "ok"}
	store.Set(key, entry)

	got, ok := store.Get(key)
	assert.True(t, ok, "entry should exist")
	assert.Same(t, entry, got, "get must return exactly the stored value")
}

func TestStore_GetNonExistent(t *testing.T) {
	store := NewStore[*report]()

	_, ok := store.Get("product-missing-2024-Q1")
	assert.False(t, ok, "non-existent entry should return false")
}

func TestStore_SetOverwrites(t *testing.T) {
	store := NewStore[*report]()
	key := DeriveKey(KindProduct, "P001", "2024-Q1")

	old := &report{Summary: "old"}
	store.Set(key, old)
	store.Set(key, &report{Summary: "new"})

	got, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, "new", got.Summary)
	// A previously returned reference is unaffected by the overwrite.
	assert.Equal(t, "old", old.Summary)
}

func TestStore_Delete(t *testing.T) {
	store := NewStore[*report]()
	key := DeriveKey(KindProduct, "P001", "2024-Q1")

	store.Set(key, &report{Summary: "ok"})
	store.Delete(key)

	_, ok := store.Get(key)
	assert.False(t, ok, "entry should be deleted")
}

func TestStore_Clear(t *testing.T) {
	store := NewStore[*report]()

	keys := []string{
		DeriveKey(KindProduct, "P001", "2024-Q1"),
		DeriveKey(KindProvince, "guangdong", "2024-Q1"),
		DeriveKey(KindIndicator, "ind007", "growth-15"),
	}
	for _, k := range keys {
		store.Set(k, &report{Summary: k})
		store.MarkStale(k)
	}
	require.Equal(t, len(keys), store.Len())

	store.Clear()

	assert.Equal(t, 0, store.Len())
	for _, k := range keys {
		_, ok := store.Get(k)
		assert.False(t, ok)
		assert.False(t, store.IsStale(k), "clear removes staleness marks too")
	}
}

func TestStore_EmptyKeyPanics(t *testing.T) {
	store := NewStore[*report]()

	assert.Panics(t, func() { store.Get("") })
	assert.Panics(t, func() { store.Set("", nil) })
	assert.Panics(t, func() { store.Delete("") })
	assert.Panics(t, func() { store.MarkStale("") })
}

func TestStore_StalenessIndependentOfPresence(t *testing.T) {
	store := NewStore[*report]()
	key := DeriveKey(KindProduct, "P001", "2024-Q1")

	entry := &report{Summary: "ok"}
	store.Set(key, entry)

	// Marking stale does not alter the cached value.
	store.MarkStale(key)
	got, ok := store.Get(key)
	assert.True(t, ok)
	assert.Same(t, entry, got)
	assert.True(t, store.IsStale(key))

	// Deleting the entry does not alter staleness.
	store.Delete(key)
	assert.True(t, store.IsStale(key))

	// A key never seen before is neither cached nor stale.
	other := DeriveKey(KindProduct, "P002", "2024-Q1")
	_, ok = store.Get(other)
	assert.False(t, ok)
	assert.False(t, store.IsStale(other))
}

func TestStore_MarkStaleBumpsCounterEveryTime(t *testing.T) {
	store := NewStore[*report]()
	key := DeriveKey(KindProduct, "P001", "2024-Q1")

	require.Equal(t, uint64(0), store.RefreshCount())

	store.MarkStale(key)
	assert.Equal(t, uint64(1), store.RefreshCount())

	// Marking an already-stale key is idempotent for the stale set but
	// still bumps the counter: it is a broadcast signal, not per-key.
	store.MarkStale(key)
	assert.Equal(t, uint64(2), store.RefreshCount())
	assert.True(t, store.IsStale(key))
}

func TestStore_ClearStaleDoesNotBumpCounter(t *testing.T) {
	store := NewStore[*report]()
	key := DeriveKey(KindProduct, "P001", "2024-Q1")

	store.MarkStale(key)
	before := store.RefreshCount()

	store.ClearStale(key)
	assert.False(t, store.IsStale(key))
	assert.Equal(t, before, store.RefreshCount())
}

func TestStore_SubscribeReceivesSignalOnMarkStale(t *testing.T) {
	store := NewStore[*report]()
	ch, cancel := store.Subscribe()
	defer cancel()

	store.MarkStale(DeriveKey(KindProduct, "P001", "2024-Q1"))

	select {
	case <-ch:
	default:
		t.Fatal("subscriber should have a pending signal after MarkStale")
	}
}

func TestStore_SubscribeCoalescesSignals(t *testing.T) {
	store := NewStore[*report]()
	ch, cancel := store.Subscribe()
	defer cancel()

	key := DeriveKey(KindProduct, "P001", "2024-Q1")
	store.MarkStale(key)
	store.MarkStale(key)
	store.MarkStale(key)

	// Exactly one pending signal; the observer re-checks its own key
	// once and sees the latest state.
	<-ch
	select {
	case <-ch:
		t.Fatal("signals should coalesce while undrained")
	default:
	}
	assert.Equal(t, uint64(3), store.RefreshCount())
}

func TestStore_UnsubscribeStopsSignals(t *testing.T) {
	store := NewStore[*report]()
	ch, cancel := store.Subscribe()
	cancel()
	cancel() // safe to call twice

	store.MarkStale(DeriveKey(KindProduct, "P001", "2024-Q1"))

	select {
	case <-ch:
		t.Fatal("cancelled subscriber should not be signalled")
	default:
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore[*report]()
	key := DeriveKey(KindProduct, "P001", "2024-Q1")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Set(key, &report{Summary: "ok"})
				store.Get(key)
				store.MarkStale(key)
				store.IsStale(key)
				store.ClearStale(key)
			}
		}()
	}
	wg.Wait()

	got, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, "ok", got.Summary)
}
