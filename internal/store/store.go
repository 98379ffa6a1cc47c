// Package store persists the small amount of cross-session state the
// dashboard keeps outside the analysis cache: imported strategy
// proposals and user-adjusted indicator sets. Everything lives in a
// single JSON file written atomically; the cache coordinator never
// touches it.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/axiombi/insightd/internal/analysis"
)

// ErrNotFound is returned when a proposal id does not exist.
var ErrNotFound = errors.New("store: not found")

// StrategyProposal is an imported planning proposal with its indicator
// targets.
type StrategyProposal struct {
	ID          string                     `json:"id"`
	Title       string                     `json:"title"`
	Description string                     `json:"description,omitempty"`
	Indicators  []analysis.IndicatorTarget `json:"indicators,omitempty"`
	ImportedAt  time.Time                  `json:"imported_at"`
}

// fileData is the on-disk shape.
type fileData struct {
	Proposals     []StrategyProposal                    `json:"proposals"`
	IndicatorSets map[string][]analysis.IndicatorTarget `json:"indicator_sets"`
}

// FileStore is a JSON-file-backed store. Safe for concurrent use;
// every mutation rewrites the whole file via a temp-file rename.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu   sync.RWMutex
	data fileData

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Open loads the store at path, creating parent directories as needed.
// A missing file is an empty store, not an error.
func Open(path string, logger *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &FileStore{
		path:   path,
		logger: logger,
		data:   fileData{IndicatorSets: make(map[string][]analysis.IndicatorTarget)},
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the file into memory. Missing file leaves the store empty.
func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read store file: %w", err)
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse store file %s: %w", s.path, err)
	}
	if data.IndicatorSets == nil {
		data.IndicatorSets = make(map[string][]analysis.IndicatorTarget)
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// save writes the current state atomically. Caller must hold mu.
func (s *FileStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

// Proposals returns all imported proposals, newest first.
func (s *FileStore) Proposals() []StrategyProposal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]StrategyProposal, len(s.data.Proposals))
	copy(out, s.data.Proposals)
	return out
}

// Proposal returns one proposal by id.
func (s *FileStore) Proposal(id string) (StrategyProposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.data.Proposals {
		if p.ID == id {
			return p, nil
		}
	}
	return StrategyProposal{}, ErrNotFound
}

// AddProposal assigns an id and import timestamp, persists, and
// returns the stored proposal.
func (s *FileStore) AddProposal(p StrategyProposal) (StrategyProposal, error) {
	if p.Title == "" {
		return StrategyProposal{}, errors.New("proposal title is required")
	}

	p.ID = uuid.New().String()
	p.ImportedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Proposals = append([]StrategyProposal{p}, s.data.Proposals...)
	if err := s.save(); err != nil {
		s.data.Proposals = s.data.Proposals[1:]
		return StrategyProposal{}, err
	}
	return p, nil
}

// DeleteProposal removes a proposal by id and persists.
func (s *FileStore) DeleteProposal(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.data.Proposals {
		if p.ID == id {
			s.data.Proposals = append(s.data.Proposals[:i], s.data.Proposals[i+1:]...)
			return s.save()
		}
	}
	return ErrNotFound
}

// IndicatorSet returns a named user-adjusted indicator set.
func (s *FileStore) IndicatorSet(name string) ([]analysis.IndicatorTarget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.data.IndicatorSets[name]
	if !ok {
		return nil, false
	}
	out := make([]analysis.IndicatorTarget, len(set))
	copy(out, set)
	return out, true
}

// IndicatorSetNames returns the names of all stored indicator sets.
func (s *FileStore) IndicatorSetNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data.IndicatorSets))
	for name := range s.data.IndicatorSets {
		names = append(names, name)
	}
	return names
}

// SaveIndicatorSet stores a named indicator set, replacing any
// existing set of the same name, and persists.
func (s *FileStore) SaveIndicatorSet(name string, set []analysis.IndicatorTarget) error {
	if name == "" {
		return errors.New("indicator set name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.IndicatorSets[name] = set
	return s.save()
}

// Watch starts reloading the store when the file changes on disk, so
// out-of-band edits (another process, a hand-edited file) show up
// without a restart. Stop with Close.
func (s *FileStore) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory: atomic renames replace the file inode, and
	// watching the file itself breaks after the first rename.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch store directory: %w", err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := s.load(); err != nil {
					s.logger.Warn("failed to reload store file", zap.Error(err))
				} else {
					s.logger.Debug("reloaded store file", zap.String("path", s.path))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("store watcher error", zap.Error(err))
			case <-s.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the watcher if running.
func (s *FileStore) Close() error {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	if s.watcher != nil {
		err := s.watcher.Close()
		s.watcher = nil
		return err
	}
	return nil
}
