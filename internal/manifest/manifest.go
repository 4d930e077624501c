// Package manifest implements the persistent record of installed
// packages (C7): schema-versioned JSON, atomic writes, and migration
// from older schemas.
package manifest

import (
	"encoding/json"
	"path/filepath"

	"github.com/netsec-pkg/zkg/internal/version"
	"github.com/netsec-pkg/zkg/internal/zkgconfig"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// Status is the lifecycle state of an installed package entry (§3).
type Status string

const (
	StatusInstalled Status = "installed"
	StatusLoaded    Status = "loaded"
	StatusPinned    Status = "pinned"
)

// TemplateRecord mirrors metadata.TemplateRecord but is duplicated here
// (rather than imported) so the manifest's on-disk shape never changes
// just because the metadata package's in-memory shape does — the
// manifest is independently versioned per §3 invariant 1.
type TemplateRecord struct {
	Source    string            `json:"source"`
	Ref       string            `json:"ref"`
	Version   string            `json:"version"`
	Features  []string          `json:"features"`
	VarValues map[string]string `json:"var_values"`
}

// Entry is one installed package's manifest record.
type Entry struct {
	Canonical     string            `json:"canonical"`
	ShortName     string            `json:"short_name"`
	Aliases       []string          `json:"aliases"`
	VersionString string            `json:"version"`
	VersionKind   string            `json:"version_kind"`
	Statuses      []Status          `json:"statuses"`
	Source        string            `json:"source"`
	Template      *TemplateRecord   `json:"template,omitempty"`
	ScriptDir     string            `json:"script_dir"`
	PluginDir     string            `json:"plugin_dir"`
	Executables   []string          `json:"executables"`
	ConfigFiles   []string          `json:"config_files"`
	Depends       map[string]string `json:"depends"`
}

// HasStatus reports whether the entry currently carries the given
// status (an entry can be both installed and loaded, or installed and
// pinned, simultaneously).
func (e Entry) HasStatus(s Status) bool {
	for _, st := range e.Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// VersionOf reconstructs a version.Version from the entry's persisted
// strings.
func (e Entry) VersionOf() (version.Version, error) {
	switch e.VersionKind {
	case "tag":
		return version.NewTag(e.VersionString)
	case "branch":
		return version.NewBranch(e.VersionString), nil
	case "commit":
		return version.NewCommit(e.VersionString), nil
	default:
		return version.Version{}, zkgerrors.Manifest(e.Canonical, "unknown version kind "+e.VersionKind, nil)
	}
}

// Manifest is the full persisted record.
type Manifest struct {
	SchemaVersion int     `json:"schema_version"`
	Packages      []Entry `json:"packages"`
}

// FindByName returns the entry matching canonical name or any alias, or
// nil. Implements the "short name or alias" lookup used by remove/load/
// unload/pin/info/search.
func (m *Manifest) FindByName(name string) *Entry {
	for i := range m.Packages {
		e := &m.Packages[i]
		if e.Canonical == name || e.ShortName == name {
			return e
		}
		for _, a := range e.Aliases {
			if a == name {
				return e
			}
		}
	}
	return nil
}

// AliasOwner returns the canonical name of the package that already
// owns the given alias, or "" if unclaimed. Used to enforce invariant 2
// (alias set is a function).
func (m *Manifest) AliasOwner(alias string) string {
	for _, e := range m.Packages {
		if e.ShortName == alias {
			return e.Canonical
		}
		for _, a := range e.Aliases {
			if a == alias {
				return e.Canonical
			}
		}
	}
	return ""
}

// Upsert inserts or replaces the entry with matching Canonical name.
func (m *Manifest) Upsert(e Entry) {
	for i := range m.Packages {
		if m.Packages[i].Canonical == e.Canonical {
			m.Packages[i] = e
			return
		}
	}
	m.Packages = append(m.Packages, e)
}

// Remove deletes the entry with the given canonical name.
func (m *Manifest) Remove(canonical string) {
	out := m.Packages[:0]
	for _, e := range m.Packages {
		if e.Canonical != canonical {
			out = append(out, e)
		}
	}
	m.Packages = out
}

// Clone returns a deep-enough copy for transactional rollback (§5, §8
// testable property 5): mutate the copy, commit only on success.
func (m *Manifest) Clone() *Manifest {
	cp := &Manifest{SchemaVersion: m.SchemaVersion}
	cp.Packages = make([]Entry, len(m.Packages))
	for i, e := range m.Packages {
		ne := e
		ne.Aliases = append([]string(nil), e.Aliases...)
		ne.Statuses = append([]Status(nil), e.Statuses...)
		ne.Executables = append([]string(nil), e.Executables...)
		ne.ConfigFiles = append([]string(nil), e.ConfigFiles...)
		depends := make(map[string]string, len(e.Depends))
		for k, v := range e.Depends {
			depends[k] = v
		}
		ne.Depends = depends
		cp.Packages[i] = ne
	}
	return cp
}

// Path returns the manifest file path under the given state directory.
func Path(stateDir string) string {
	return filepath.Join(stateDir, zkgconfig.ManifestFileName)
}

func empty() *Manifest {
	return &Manifest{SchemaVersion: zkgconfig.ManifestSchemaVersion}
}

// Marshal renders the manifest as indented JSON, the format persisted
// to disk and used by bundle round-trips in tests.
func (m *Manifest) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
