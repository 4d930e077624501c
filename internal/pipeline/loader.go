package pipeline

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/netsec-pkg/zkg/internal/zkgconfig"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

func loaderDirective(name string) string {
	return "@load packages/" + name
}

func readLoaderLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, zkgerrors.Stage(path, "failed to read loader index", err)
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func writeLoaderLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zkgerrors.Stage(path, "failed to prepare loader index directory", err)
	}
	var buf strings.Builder
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(buf.String()), 0o644); err != nil {
		return zkgerrors.Stage(path, "failed to write loader index", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return zkgerrors.Stage(path, "failed to finalize loader index write", err)
	}
	return nil
}

// addLoaderEntry appends an `@load packages/<name>` directive to the
// loader index, creating it if absent. A directive already present is
// left alone, so repeated loads leave exactly one entry (§8 testable
// property 3).
func addLoaderEntry(path, name string) error {
	lines, err := readLoaderLines(path)
	if err != nil {
		return err
	}
	directive := loaderDirective(name)
	for _, l := range lines {
		if l == directive {
			return nil
		}
	}
	return writeLoaderLines(path, append(lines, directive))
}

// removeLoaderEntry strips every occurrence of name's `@load` directive
// from the loader index. Removing an entry that is already absent is a
// no-op, so repeated unloads leave none.
func removeLoaderEntry(path, name string) error {
	lines, err := readLoaderLines(path)
	if err != nil {
		return err
	}
	directive := loaderDirective(name)
	out := lines[:0]
	for _, l := range lines {
		if l != directive {
			out = append(out, l)
		}
	}
	return writeLoaderLines(path, out)
}

// ToggleLoad implements the `load`/`unload` verb's stage-level effect
// (§4.6, §4.7): it flips the loader index entry for name directly
// against the real stage, without running the install pipeline again.
func ToggleLoad(scriptStageDir, name string, enabled bool) error {
	path := filepath.Join(scriptStageDir, zkgconfig.LoaderIndexFileName)
	if enabled {
		return addLoaderEntry(path, name)
	}
	return removeLoaderEntry(path, name)
}
