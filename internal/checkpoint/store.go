// Package checkpoint persists scheduler progress and pre-filter activity
// state across restarts.
//
// The scheduler checkpoint itself is a single JSON document per spec.md §6 —
// a deliberate departure from the teacher's internal/db/checkpoint.go, which
// keeps a bbolt-backed table of per-chain checkpoints. bbolt is not dropped,
// though: it is repurposed below (activity_store.go) to persist the
// selective pre-filter's ActivityTracker, a piece of learned state the
// teacher never had an analogue for.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

// DefaultPath is the checkpoint file location when none is configured,
// per spec.md §6.
const DefaultPath = "slot_checkpoint.json"

// Store loads and saves a single SlotCheckpoint JSON document at a fixed
// path. It has no in-process locking of its own — spec.md §5 assigns the
// checkpoint file a single writer (the scheduler) and no concurrent
// readers.
type Store struct {
	path string
}

// New builds a Store at path. An empty path falls back to DefaultPath.
func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Load reads the checkpoint file. A missing file is not an error: it
// returns (nil, nil), matching spec.md §6's "Load returns absent if the
// path does not exist."
func (s *Store) Load() (*models.SlotCheckpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("checkpoint: read %s: %w", s.path, err)
	}

	var cp models.SlotCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint: parse %s: %w", s.path, err)
	}
	return &cp, nil
}

// Save writes cp as the checkpoint file, replacing any previous contents.
// The write goes to a temp file in the same directory followed by an
// atomic rename, so a crash mid-write leaves the previous checkpoint
// intact rather than a half-written file.
func (s *Store) Save(cp models.SlotCheckpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("checkpoint: rename into place: %w", err)
	}
	return nil
}
