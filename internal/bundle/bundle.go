// Package bundle implements the offline-transport engine (C8): a
// self-contained archive of a package set, its manifest.txt index, and
// round-trip Create/Unbundle operations built on stdlib archive/tar and
// compress/gzip (the example corpus carries no third-party tar/gzip
// archiver; these two formats are effectively a standard-library
// concern in Go, so no ecosystem substitute was sought).
package bundle

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/netsec-pkg/zkg/internal/capability"
	"github.com/netsec-pkg/zkg/internal/metadata"
	"github.com/netsec-pkg/zkg/internal/vcs"
	"github.com/netsec-pkg/zkg/internal/version"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// Entry is one package recorded in a bundle's manifest.txt.
type Entry struct {
	Canonical string
	Version   version.Version
}

// Warning is a non-fatal problem surfaced during Unbundle.
type Warning struct {
	Package    string
	Capability string
	Required   string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: depends on built-in capability %q %s, which the current platform does not advertise", w.Package, w.Capability, w.Required)
}

// Create implements §4.8: clone each requested package at its resolved
// version into a scratch directory, write manifest.txt, and tar+gzip
// the result. When manifestSubset is non-empty, only those names are
// cloned fresh; the rest are assumed already present under
// existingClones and reused as-is (the "--manifest NAMES" partial
// bundle support).
func Create(ctx context.Context, driver vcs.Driver, scratchDir, outPath string, entries []Entry, manifestSubset []string, existingClones map[string]string) error {
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return zkgerrors.Stage(scratchDir, "failed to create bundle scratch area", err)
	}
	defer os.RemoveAll(scratchDir)

	subset := toSet(manifestSubset)

	var manifestLines []string
	for _, e := range entries {
		dest := filepath.Join(scratchDir, e.Canonical)
		manifestLines = append(manifestLines, fmt.Sprintf("%s = %s", e.Canonical, e.Version.String()))

		if len(subset) > 0 && !subset[e.Canonical] {
			if existing, ok := existingClones[e.Canonical]; ok {
				if err := copyTree(existing, dest); err != nil {
					return err
				}
				continue
			}
		}

		if err := driver.Clone(ctx, e.Canonical, dest, e.Version.Ref(), e.Version.Kind != version.KindCommit); err != nil {
			return zkgerrors.Stage(e.Canonical, "failed to clone for bundle", err)
		}
	}

	manifestPath := filepath.Join(scratchDir, "manifest.txt")
	if err := os.WriteFile(manifestPath, []byte(strings.Join(manifestLines, "\n")+"\n"), 0o644); err != nil {
		return zkgerrors.Stage(manifestPath, "failed to write bundle manifest", err)
	}

	return writeTarGz(outPath, scratchDir)
}

// Unbundle implements §4.8: read the manifest, move each clone into
// the normal clone area, and leave the caller to run the stage
// pipeline. Dependencies on built-in capabilities the current platform
// does not advertise produce non-fatal warnings (§9 open question (b)):
// unbundling is never aborted by a missing capability alone.
func Unbundle(ctx context.Context, path, scratchDir, cloneRoot string, caps capability.Discoverer) ([]Entry, []Warning, error) {
	if err := extractTarGz(path, scratchDir); err != nil {
		return nil, nil, err
	}

	entries, err := parseManifestTxt(filepath.Join(scratchDir, "manifest.txt"))
	if err != nil {
		return nil, nil, err
	}

	for _, e := range entries {
		src := filepath.Join(scratchDir, e.Canonical)
		dest := filepath.Join(cloneRoot, e.Canonical)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, nil, zkgerrors.Stage(dest, "failed to prepare clone area", err)
		}
		os.RemoveAll(dest)
		if err := os.Rename(src, dest); err != nil {
			return nil, nil, zkgerrors.Stage(dest, "failed to move bundled clone into place", err)
		}
	}

	var warnings []Warning
	if caps != nil {
		available, err := caps.Capabilities(ctx)
		if err != nil {
			return entries, nil, zkgerrors.Dependency("bundle", "failed to query built-in capabilities", err)
		}
		for _, e := range entries {
			dest := filepath.Join(cloneRoot, e.Canonical)
			warnings = append(warnings, checkCapabilities(dest, available)...)
		}
	}

	return entries, warnings, nil
}

func checkCapabilities(clonePath string, available map[string]string) []Warning {
	m, err := metadata.Load(clonePath)
	if err != nil {
		return nil
	}
	var warnings []Warning
	for name, spec := range m.Depends {
		if metadata.ClassifyDependency(name, spec).Kind != metadata.DependencyBuiltinCapability {
			continue
		}
		if _, ok := available[name]; !ok {
			warnings = append(warnings, Warning{Package: filepath.Base(clonePath), Capability: name, Required: spec})
		}
	}
	return warnings
}

func parseManifestTxt(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, zkgerrors.BadMetadata(path, "failed to open bundle manifest", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, zkgerrors.BadMetadata(path, "malformed manifest line: "+line, nil)
		}
		canonical := strings.TrimSpace(parts[0])
		verStr := strings.TrimSpace(parts[1])
		v, err := parseManifestVersion(verStr)
		if err != nil {
			return nil, zkgerrors.BadMetadata(path, "malformed version for "+canonical, err)
		}
		entries = append(entries, Entry{Canonical: canonical, Version: v})
	}
	return entries, nil
}

func parseManifestVersion(s string) (version.Version, error) {
	if v, err := version.NewTag(s); err == nil {
		return v, nil
	}
	if len(s) == 40 || len(s) == 7 {
		return version.NewCommit(s), nil
	}
	return version.NewBranch(s), nil
}

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		in, err := os.Open(p)
		if err != nil {
			return err
		}
		defer in.Close()
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
}
