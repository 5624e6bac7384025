// Package state persists per-combination processing state: the durable
// fingerprint -> result map that makes runs crash-resumable and
// exactly-once per (combination, fingerprint).
//
// One JSON document is kept per combination, named by the combination's
// filesystem-safe key. All mutation goes through a mutex-guarded
// load-modify-write so concurrent workers finishing near-simultaneously
// cannot lose a completed result to a racing save.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pawtograder/triage/internal/types"
)

// Store owns the processing-state document for one combination.
// Construct with Open; the zero value is not usable.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string]types.ProcessingStateEntry
}

// Open loads the state document for combo under dir, creating an empty
// state when the document is missing. A document that exists but cannot be
// parsed is treated as empty rather than fatal: the worst case is redoing
// work, never losing it.
func Open(dir string, combo types.Combination) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	s := &Store{
		path:    filepath.Join(dir, combo.Key()+".json"),
		entries: make(map[string]types.ProcessingStateEntry),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		slog.Warn("state document unparseable, starting empty",
			"path", s.path, "error", err)
		s.entries = make(map[string]types.ProcessingStateEntry)
	}
	return s, nil
}

// Get returns the entry for fingerprint, if one was ever persisted.
func (s *Store) Get(fingerprint string) (types.ProcessingStateEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[fingerprint]
	return e, ok
}

// Has reports whether fingerprint already has a persisted entry.
func (s *Store) Has(fingerprint string) bool {
	_, ok := s.Get(fingerprint)
	return ok
}

// Put persists entry for fingerprint synchronously. Entries are terminal:
// a fingerprint that already has one keeps it and Put is a no-op, so a
// re-run can never overwrite completed work.
func (s *Store) Put(fingerprint string, entry types.ProcessingStateEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[fingerprint]; exists {
		return nil
	}
	s.entries[fingerprint] = entry
	return s.saveLocked()
}

// Len returns the number of persisted entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Path returns the backing document path.
func (s *Store) Path() string {
	return s.path
}

// saveLocked writes the whole document. Caller holds s.mu. The write goes
// through a temp file and rename so a crash mid-write leaves the previous
// document intact.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
