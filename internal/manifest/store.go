package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// Store loads and saves the manifest file for one state directory.
type Store struct {
	path string
}

// NewStore builds a Store for the manifest file under stateDir.
func NewStore(stateDir string) *Store {
	return &Store{path: Path(stateDir)}
}

// Load reads the manifest, migrating older schema versions forward. A
// missing file yields a fresh empty manifest at the current schema
// version (the state directory's first write).
func (s *Store) Load() (*Manifest, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return empty(), nil
	}
	if err != nil {
		return nil, zkgerrors.Manifest(s.path, "failed to read manifest", err)
	}

	var raw struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, zkgerrors.Manifest(s.path, "corrupt manifest: invalid JSON", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, zkgerrors.Manifest(s.path, "corrupt manifest: schema mismatch", err)
	}

	return migrate(&m)
}

// migrate upgrades a manifest parsed from disk to the current schema
// version. Each step only ever adds fields with safe zero-value
// defaults; it never needs to rewrite existing entries' meaning.
func migrate(m *Manifest) (*Manifest, error) {
	switch {
	case m.SchemaVersion == 0:
		// Schema 0 predates explicit statuses; every entry it contains
		// was, by construction, at least installed.
		for i := range m.Packages {
			if len(m.Packages[i].Statuses) == 0 {
				m.Packages[i].Statuses = []Status{StatusInstalled}
			}
		}
		m.SchemaVersion = 1
		fallthrough
	case m.SchemaVersion == 1:
		// Schema 1 -> 2 added nothing structurally; the bump exists so
		// future migrations have a clean place to attach.
		m.SchemaVersion = 2
	case m.SchemaVersion > 2:
		return nil, zkgerrors.Manifest("manifest", "unsupported future schema version", nil)
	}
	return m, nil
}

// Save writes the manifest atomically: write to a temp file in the
// same directory, then rename over the real path, so readers never
// observe a half-written manifest (§4.7).
func (s *Store) Save(m *Manifest) error {
	data, err := m.Marshal()
	if err != nil {
		return zkgerrors.Manifest(s.path, "failed to marshal manifest", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zkgerrors.Manifest(s.path, "failed to create state directory", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return zkgerrors.Manifest(s.path, "failed to write temp manifest", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return zkgerrors.Manifest(s.path, "failed to finalize manifest write", err)
	}
	return nil
}
