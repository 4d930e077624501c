package template

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/netsec-pkg/zkg/internal/metadata"
	"github.com/netsec-pkg/zkg/internal/vcs"
	"github.com/netsec-pkg/zkg/internal/zkgconfig"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// VarSource resolves one user variable's value, trying (in priority
// order) a CLI override, an environment variable of the same name, and
// finally the parameter's declared default (§4.9). Unlike metadata's
// ResolveUserVar, it does not consult persisted user config values.
type VarSource struct {
	CLIOverrides map[string]string
	Interactive  bool
}

// Resolve implements the CLI > env > default priority for one
// parameter, failing if non-interactive and no value is available
// after the default.
func (s VarSource) Resolve(p Param) (string, error) {
	if v, ok := s.CLIOverrides[p.Name]; ok {
		return v, nil
	}
	if v := os.Getenv(p.Name); v != "" {
		return v, nil
	}
	if p.Default != "" {
		return p.Default, nil
	}
	if s.Interactive {
		return "", zkgerrors.BadMetadata(p.Name, "interactive prompting is an external collaborator, not implemented here", nil)
	}
	return "", zkgerrors.BadMetadata(p.Name, "no value supplied and no default declared", nil)
}

// InstantiateOptions controls one Instantiate call.
type InstantiateOptions struct {
	TemplateURL      string
	OutputDir        string
	SelectedFeatures []string
	Vars             VarSource
	Force            bool
	CommitAuthor     string
	CommitEmail      string
}

// InstantiateResult reports what Instantiate produced.
type InstantiateResult struct {
	VarValues map[string]string
	CommitRef string
}

// Instantiate implements §4.9's `create`: clone the template, resolve
// every declared parameter, render the output file set (base files
// plus every selected feature's files), initialize a fresh git
// repository in the output directory, write the [template] metadata
// record, and produce an initial commit.
func Instantiate(ctx context.Context, driver vcs.Driver, scratchClone string, opts InstantiateOptions) (InstantiateResult, error) {
	if _, err := os.Stat(opts.OutputDir); err == nil && !opts.Force {
		return InstantiateResult{}, zkgerrors.Stage(opts.OutputDir, "output directory already exists, use --force to overwrite", nil)
	}

	if err := driver.Clone(ctx, opts.TemplateURL, scratchClone, "", true); err != nil {
		return InstantiateResult{}, zkgerrors.Stage(opts.TemplateURL, "failed to clone template", err)
	}
	commit, err := driver.CurrentCommit(ctx, scratchClone)
	if err != nil {
		return InstantiateResult{}, err
	}

	control, err := LoadControl(scratchClone)
	if err != nil {
		return InstantiateResult{}, err
	}

	varValues := make(map[string]string, len(control.Parameters))
	for _, p := range control.Parameters {
		v, err := opts.Vars.Resolve(p)
		if err != nil {
			return InstantiateResult{}, err
		}
		if !p.Validate(v) {
			return InstantiateResult{}, zkgerrors.BadMetadata(p.Name, fmt.Sprintf("value %q does not match required pattern %q", v, p.Pattern), nil)
		}
		varValues[p.Name] = v
	}

	outputFiles := control.OutputFilesFor(opts.SelectedFeatures)
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return InstantiateResult{}, zkgerrors.Stage(opts.OutputDir, "failed to create output directory", err)
	}
	if err := RenderTree(scratchClone, opts.OutputDir, outputFiles, varValues, opts.SelectedFeatures); err != nil {
		return InstantiateResult{}, err
	}

	record := &metadata.TemplateRecord{
		Source:    opts.TemplateURL,
		Ref:       commit,
		Version:   zkgconfig.TemplateEngineVersion,
		Features:  opts.SelectedFeatures,
		VarValues: varValues,
	}
	metaPath := metadata.SourceFile(opts.OutputDir)
	if err := metadata.WriteTemplateRecord(metaPath, &metadata.Metadata{Template: record}); err != nil {
		return InstantiateResult{}, err
	}

	ref, err := initialCommit(opts.OutputDir, opts.CommitAuthor, opts.CommitEmail)
	if err != nil {
		return InstantiateResult{}, err
	}

	return InstantiateResult{VarValues: varValues, CommitRef: ref}, nil
}

// initialCommit initializes a fresh git repository at dir and commits
// every rendered file, using go-git directly rather than the Driver
// abstraction: Driver models operations on an existing remote-backed
// repository, while this is local repository creation for a package
// that has never had a remote.
func initialCommit(dir, author, email string) (string, error) {
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return "", zkgerrors.Stage(dir, "failed to initialize git repository", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", zkgerrors.Stage(dir, "failed to open worktree", err)
	}
	if _, err := wt.Add("."); err != nil {
		return "", zkgerrors.Stage(dir, "failed to stage rendered files", err)
	}

	if author == "" {
		author = "zkg"
	}
	if email == "" {
		email = "zkg@localhost"
	}

	hash, err := wt.Commit("Initial commit from template", &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", zkgerrors.Stage(dir, "failed to create initial commit", err)
	}
	return hash.String(), nil
}
