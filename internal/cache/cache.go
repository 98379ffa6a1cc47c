// Package cache implements the analysis cache and refresh coordinator
// for insightd.
//
// The cache memoizes expensive AI-generated analysis reports keyed by a
// derived subject identity, tracks which entries have been invalidated
// by out-of-band events (a chat command, a manual refresh), and exposes
// a read-through/write-through contract to independent consumers so
// that switching between subjects does not re-trigger an LLM call
// unless the entry is missing or explicitly marked stale.
//
// Example usage:
//
//	store := cache.NewStore[*analysis.AnalysisReport]()
//	key := cache.DeriveKey(cache.KindProduct, "P001", "2024-Q1")
//	store.Set(key, report)
//	report, ok := store.Get(key)
package cache

import (
	"sync"
)

// Kind identifies the subject type a cache key refers to.
type Kind string

// Subject kinds understood by the analysis pipeline.
const (
	KindProduct   Kind = "product"
	KindProvince  Kind = "province"
	KindIndicator Kind = "indicator"
)

// Store is a process-wide keyed store for computed analysis payloads.
//
// The store is oblivious to the payload shape: entries are opaque
// values, written whole and never merged. Staleness is tracked
// alongside the entries but is orthogonal to presence: a key can be
// stale and cached at the same time (serve for now, recompute on next
// opportunity).
//
// All operations are safe for concurrent use.
type Store[T any] struct {
	mu           sync.RWMutex
	entries      map[string]T
	staleKeys    map[string]struct{}
	refreshCount uint64
	subscribers  map[int]chan struct{}
	nextSubID    int
	metrics      *Metrics
}

// NewStore creates an empty store.
//
// The store has no eviction policy: entries live until overwritten,
// deleted, or cleared. One entry per subject ever viewed in a session
// is the expected bound.
func NewStore[T any]() *Store[T] {
	return &Store[T]{
		entries:     make(map[string]T),
		staleKeys:   make(map[string]struct{}),
		subscribers: make(map[int]chan struct{}),
	}
}

// SetMetrics sets the metrics tracker for this store.
// This is optional and should be called once after store creation.
func (s *Store[T]) SetMetrics(m *Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// Get returns the entry for key, if present.
//
// Get is a pure read: it never triggers computation and never touches
// staleness. Callers must treat the returned value as immutable.
func (s *Store[T]) Get(key string) (T, bool) {
	mustKey(key)

	s.mu.RLock()
	entry, ok := s.entries[key]
	m := s.metrics
	s.mu.RUnlock()

	if m != nil {
		if ok {
			m.RecordHit()
		} else {
			m.RecordMiss()
		}
	}
	return entry, ok
}

// Set replaces the entry for key.
//
// The write is a full replacement; previously returned entries are
// unaffected. Subsequent Get calls observe the new entry.
func (s *Store[T]) Set(key string, entry T) {
	mustKey(key)

	s.mu.Lock()
	s.entries[key] = entry
	size := len(s.entries)
	m := s.metrics
	s.mu.Unlock()

	if m != nil {
		m.SetSize(size)
	}
}

// Delete removes the entry for key. Staleness for the key is not
// affected; presence and staleness are independent.
func (s *Store[T]) Delete(key string) {
	mustKey(key)

	s.mu.Lock()
	delete(s.entries, key)
	size := len(s.entries)
	m := s.metrics
	s.mu.Unlock()

	if m != nil {
		m.SetSize(size)
	}
}

// Clear removes all entries and all staleness marks. Used by the
// user-initiated hard refresh path.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]T)
	s.staleKeys = make(map[string]struct{})
	m := s.metrics
	s.mu.Unlock()

	if m != nil {
		m.SetSize(0)
	}
}

// Len returns the number of cached entries.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// MarkStale marks key as stale and bumps the refresh counter exactly
// once, waking every subscriber.
//
// Marking an already-stale key still bumps the counter: the counter is
// a generic "something changed" broadcast, not a per-key signal. The
// entry itself, if cached, is untouched and remains servable.
func (s *Store[T]) MarkStale(key string) {
	mustKey(key)

	s.mu.Lock()
	s.staleKeys[key] = struct{}{}
	s.refreshCount++
	subs := make([]chan struct{}, 0, len(s.subscribers))
	for _, ch := range s.subscribers {
		subs = append(subs, ch)
	}
	m := s.metrics
	s.mu.Unlock()

	if m != nil {
		m.RecordStaleMark()
	}

	for _, ch := range subs {
		// Coalescing notify: a subscriber that has not drained its
		// channel yet already has a pending signal.
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// IsStale reports whether key is currently marked stale.
func (s *Store[T]) IsStale(key string) bool {
	mustKey(key)

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, stale := s.staleKeys[key]
	return stale
}

// ClearStale removes the staleness mark for key.
//
// Clearing does not bump the refresh counter: it is a consequence of a
// consumer's own successful refresh, not a new externally-visible
// event.
func (s *Store[T]) ClearStale(key string) {
	mustKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.staleKeys, key)
}

// RefreshCount returns the current refresh counter value. The value
// has no semantic meaning beyond change detection.
func (s *Store[T]) RefreshCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshCount
}

// Subscribe registers an observer for staleness-marking events.
//
// The returned channel receives a coalesced signal on every MarkStale.
// On each signal the observer should re-check IsStale for its own key.
// The cancel function removes the subscription; it is safe to call
// more than once.
func (s *Store[T]) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// mustKey panics on an empty key. An empty key is a programming error
// at the call site, never valid data.
func mustKey(key string) {
	if key == "" {
		panic("cache: empty key")
	}
}
