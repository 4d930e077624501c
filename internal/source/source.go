// Package source implements the source index (C2): a named collection
// of remote package indices, each a git repository, refreshed via the
// VCS driver and aggregated into a single metadata file.
package source

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"

	"github.com/netsec-pkg/zkg/internal/vcs"
	"github.com/netsec-pkg/zkg/internal/zkgconfig"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// Source is one configured package index.
type Source struct {
	Name      string
	URL       string
	ClonePath string
}

// Entry is one package listed in a source's index, in either format.
type Entry struct {
	Name string // only populated for the legacy INI format
	URL  string
	Tags []string
}

// Refresh fetches (or clones, on first use) the source's index
// repository, per §4.2.
func Refresh(ctx context.Context, driver vcs.Driver, s Source) error {
	if _, err := os.Stat(s.ClonePath); os.IsNotExist(err) {
		if err := driver.Clone(ctx, s.URL, s.ClonePath, "", false); err != nil {
			return zkgerrors.Stage(s.Name, "failed to clone source", err)
		}
		return nil
	}
	if err := driver.Fetch(ctx, s.ClonePath); err != nil {
		return zkgerrors.Stage(s.Name, "failed to fetch source", err)
	}
	return driver.Checkout(ctx, s.ClonePath, "HEAD")
}

// candidateIndexFiles lists the index file names probed at a source's
// clone root, newest first.
func candidateIndexFiles() []string {
	return []string{
		zkgconfig.SourceIndexFileNameCurrent,
		zkgconfig.SourceIndexFileNameLegacy,
	}
}

// LoadIndex reads a source's index file, auto-detecting the current
// newline-list format versus the legacy `[name] url=... tags=...` INI
// format.
func LoadIndex(clonePath string) ([]Entry, error) {
	var path string
	for _, name := range candidateIndexFiles() {
		candidate := filepath.Join(clonePath, name)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
			break
		}
	}
	if path == "" {
		return nil, zkgerrors.BadMetadata(clonePath, "no source index file found", nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zkgerrors.BadMetadata(path, "failed to read index", err)
	}

	if looksLikeINI(data) {
		return parseLegacyIndex(path, data)
	}
	return parseURLListIndex(data), nil
}

// looksLikeINI distinguishes the legacy `[section]` format from the
// current plain URL list: the legacy format always opens with a
// bracketed section header on its first non-blank line.
func looksLikeINI(data []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strings.HasPrefix(line, "[")
	}
	return false
}

func parseURLListIndex(data []byte) []Entry {
	var entries []Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, Entry{URL: line})
	}
	return entries
}

func parseLegacyIndex(path string, data []byte) ([]Entry, error) {
	cfg, err := ini.Load(data)
	if err != nil {
		return nil, zkgerrors.BadMetadata(path, "failed to parse legacy index", err)
	}
	var entries []Entry
	for _, sec := range cfg.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		entries = append(entries, Entry{
			Name: sec.Name(),
			URL:  sec.Key("url").String(),
			Tags: splitCSV(sec.Key("tags").String()),
		})
	}
	return entries, nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
