package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/netsec-pkg/zkg/internal/metadata"
	"github.com/netsec-pkg/zkg/internal/vcs"
	"github.com/netsec-pkg/zkg/internal/zkgconfig"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// AggregateOptions controls one Aggregate call.
type AggregateOptions struct {
	// FailOnProblems aborts the whole aggregate on the first metadata
	// parse failure instead of skipping the offending package with a
	// warning.
	FailOnProblems bool
	// Push fetches the source clone after the aggregate file is
	// written. It does not commit or push the file.
	Push bool
}

// AggregateResult lists the problem packages omitted from the
// aggregate when FailOnProblems is false.
type AggregateResult struct {
	Problems []string
}

// Aggregate implements §4.2's `aggregate`: clone each listed package
// into a scratch area at its default version, collect metadata, and
// write an aggregated metadata file at the source root.
func Aggregate(ctx context.Context, driver vcs.Driver, s Source, scratchRoot string, opts AggregateOptions) (AggregateResult, error) {
	entries, err := LoadIndex(s.ClonePath)
	if err != nil {
		return AggregateResult{}, err
	}

	var result AggregateResult
	var ok []string

	for _, e := range entries {
		url := e.URL
		dest := filepath.Join(scratchRoot, shortNameOf(url))

		if err := driver.Clone(ctx, url, dest, "", true); err != nil {
			if opts.FailOnProblems {
				return AggregateResult{}, zkgerrors.Stage(url, "failed to clone for aggregation", err)
			}
			result.Problems = append(result.Problems, fmt.Sprintf("%s: clone failed: %v", url, err))
			continue
		}

		m, err := metadata.Load(dest)
		if err != nil {
			if opts.FailOnProblems {
				return AggregateResult{}, zkgerrors.BadMetadata(url, "failed to load metadata for aggregation", err)
			}
			result.Problems = append(result.Problems, fmt.Sprintf("%s: %v", url, err))
			continue
		}

		ok = append(ok, renderAggregateEntry(url, m))
	}

	path := filepath.Join(s.ClonePath, zkgconfig.SourceAggregateFileName)
	if err := writeAggregate(path, ok); err != nil {
		return result, err
	}

	if opts.Push {
		if err := driver.Fetch(ctx, s.ClonePath); err != nil {
			return result, zkgerrors.Stage(s.Name, "failed to prepare aggregate push", err)
		}
		// The VCS driver exposes no commit/push verbs, and nothing
		// commits or pushes the aggregate file; it is left as an
		// uncommitted change in the source clone.
	}

	return result, nil
}

func renderAggregateEntry(url string, m *metadata.Metadata) string {
	return fmt.Sprintf("[%s]\ndescription = %s\ntags = %s\n\n", url, m.Description, joinCSV(m.Tags))
}

func joinCSV(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func writeAggregate(path string, entries []string) error {
	var buf []byte
	for _, e := range entries {
		buf = append(buf, []byte(e)...)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return zkgerrors.Stage(path, "failed to write aggregate", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return zkgerrors.Stage(path, "failed to finalize aggregate write", err)
	}
	return nil
}

func shortNameOf(url string) string {
	s := url
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return s[i+1:]
		}
	}
	return s
}
