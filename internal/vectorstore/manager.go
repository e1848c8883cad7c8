package vectorstore

import (
	"encoding/json"
	"fmt"
	"os"

	"docchat/internal/util"
)

// indexFile is the persisted artifact layout: one JSON document per session.
type indexFile struct {
	Dimension int     `json:"dimension"`
	Entries   []entry `json:"entries"`
}

// Manager locates index artifacts on disk, one per session ID, in a
// well-known directory. It holds no open handles; callers own the Index
// between CreateOrLoad and Persist, and the engine's per-session lock
// serializes that window.
type Manager struct {
	dir string
}

func NewManager(dir string) (*Manager, error) {
	if err := util.EnsureDir(dir); err != nil {
		return nil, err
	}
	return &Manager{dir: dir}, nil
}

func (m *Manager) path(sessionID string) string {
	return util.SafeJoin(m.dir, sessionID+".json")
}

// CreateOrLoad loads the session's index from disk, or returns a fresh
// uninitialized handle when no artifact exists. Absence is the normal
// pre-ingestion state, never an error.
func (m *Manager) CreateOrLoad(sessionID string) (*Index, error) {
	b, err := os.ReadFile(m.path(sessionID))
	if os.IsNotExist(err) {
		return NewIndex(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", sessionID, err)
	}
	var f indexFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", sessionID, err)
	}
	for i, e := range f.Entries {
		if len(e.Vector) != f.Dimension {
			return nil, fmt.Errorf("index %s entry %d has dimension %d, header says %d: %w",
				sessionID, i, len(e.Vector), f.Dimension, util.ErrDimensionMismatch)
		}
	}
	return &Index{dim: f.Dimension, entries: f.Entries}, nil
}

// Persist flushes the index to its artifact through a temp-file rename, so a
// crash mid-write never leaves a loadable half-written index.
func (m *Manager) Persist(sessionID string, ix *Index) error {
	ix.mu.RLock()
	f := indexFile{Dimension: ix.dim, Entries: ix.entries}
	err := util.WriteJSONAtomic(m.path(sessionID), f)
	ix.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("persist index %s: %w", sessionID, err)
	}
	return nil
}

// Delete removes the persisted artifact. Deleting a missing index is not an
// error.
func (m *Manager) Delete(sessionID string) error {
	if err := os.Remove(m.path(sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete index %s: %w", sessionID, err)
	}
	return nil
}

// Exists reports whether a persisted artifact is present for the session.
func (m *Manager) Exists(sessionID string) bool {
	_, err := os.Stat(m.path(sessionID))
	return err == nil
}
