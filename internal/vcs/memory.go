package vcs

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// MemoryRepo is one fake repository: a set of refs (tags and branches)
// each mapping to a commit hash, plus per-commit file trees.
type MemoryRepo struct {
	Tags     map[string]string            // tag -> commit
	Branches map[string]string            // branch -> commit
	Trees    map[string]map[string][]byte // commit -> (path -> contents)
}

// MemoryDriver is an in-memory Driver used by every package's tests so
// solver/pipeline/bundle/template logic never touches the network or a
// real git binary (§9: "capability-set abstraction so tests can
// substitute an in-memory driver").
type MemoryDriver struct {
	mu       sync.Mutex
	Repos    map[string]*MemoryRepo // url -> repo
	checkout map[string]string      // dest -> current commit
	destURL  map[string]string      // dest -> source url
}

var _ Driver = (*MemoryDriver)(nil)

// NewMemoryDriver constructs an empty fake; callers populate Repos
// directly before exercising code under test.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		Repos:    map[string]*MemoryRepo{},
		checkout: map[string]string{},
		destURL:  map[string]string{},
	}
}

func (d *MemoryDriver) Clone(ctx context.Context, url, dest, ref string, shallow bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	repo, ok := d.Repos[url]
	if !ok {
		return zkgerrors.Stage(url, "no such repository", nil)
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return zkgerrors.Stage(dest, "failed to create clone dir", err)
	}

	commit := d.resolveLocked(repo, ref)
	if commit == "" {
		commit = repo.Branches["master"]
	}
	if commit == "" && ref == "" {
		// No default branch to materialize: record the clone without a
		// working tree so later calls (ListTags, Checkout) can find it.
		d.destURL[dest] = url
		return nil
	}
	if err := d.materializeLocked(repo, commit, dest); err != nil {
		return err
	}
	d.checkout[dest] = commit
	d.destURL[dest] = url
	return nil
}

func (d *MemoryDriver) resolveLocked(repo *MemoryRepo, ref string) string {
	if c, ok := repo.Tags[ref]; ok {
		return c
	}
	if c, ok := repo.Branches[ref]; ok {
		return c
	}
	if _, ok := repo.Trees[ref]; ok {
		return ref
	}
	return ""
}

func (d *MemoryDriver) materializeLocked(repo *MemoryRepo, commit, dest string) error {
	files, ok := repo.Trees[commit]
	if !ok {
		return zkgerrors.Stage(commit, "no such commit", nil)
	}
	for path, contents := range files {
		full := filepath.Join(dest, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return zkgerrors.Stage(full, "failed to create directory", err)
		}
		if err := os.WriteFile(full, contents, 0o644); err != nil {
			return zkgerrors.Stage(full, "failed to write file", err)
		}
	}
	return nil
}

func (d *MemoryDriver) Fetch(ctx context.Context, dest string) error {
	// The fake has no separate remote state to pull; refs are always
	// current. Present for interface parity and so pipeline code can
	// call Fetch unconditionally.
	return nil
}

func (d *MemoryDriver) findRepoForDest(dest string) (*MemoryRepo, error) {
	// MemoryDriver keys repos by URL but operations after Clone only
	// carry dest; Clone records the URL for dest, and tests that skip
	// Clone register it via RegisterClone.
	d.mu.Lock()
	defer d.mu.Unlock()
	url, ok := d.destURL[dest]
	if !ok {
		return nil, zkgerrors.Stage(dest, "unknown working copy", nil)
	}
	return d.Repos[url], nil
}

func (d *MemoryDriver) ListTags(ctx context.Context, dest string) ([]string, error) {
	repo, err := d.findRepoForDest(dest)
	if err != nil {
		return nil, err
	}
	var tags []string
	for t := range repo.Tags {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

func (d *MemoryDriver) ListBranches(ctx context.Context, dest string) ([]string, error) {
	repo, err := d.findRepoForDest(dest)
	if err != nil {
		return nil, err
	}
	var branches []string
	for b := range repo.Branches {
		branches = append(branches, b)
	}
	sort.Strings(branches)
	return branches, nil
}

func (d *MemoryDriver) Checkout(ctx context.Context, dest, ref string) error {
	repo, err := d.findRepoForDest(dest)
	if err != nil {
		return err
	}
	d.mu.Lock()
	commit := d.resolveLocked(repo, ref)
	d.mu.Unlock()
	if commit == "" {
		return zkgerrors.Stage(ref, "unresolvable ref", nil)
	}
	if err := d.materializeLocked(repo, commit, dest); err != nil {
		return err
	}
	d.mu.Lock()
	d.checkout[dest] = commit
	d.mu.Unlock()
	return nil
}

func (d *MemoryDriver) CurrentCommit(ctx context.Context, dest string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.checkout[dest]
	if !ok {
		return "", zkgerrors.Stage(dest, "no checkout recorded", nil)
	}
	return c, nil
}

func (d *MemoryDriver) Archive(ctx context.Context, dest, ref, outPath string) error {
	repo, err := d.findRepoForDest(dest)
	if err != nil {
		return err
	}
	d.mu.Lock()
	commit := d.resolveLocked(repo, ref)
	d.mu.Unlock()
	if commit == "" {
		return zkgerrors.Stage(ref, "unresolvable ref", nil)
	}
	return d.materializeLocked(repo, commit, outPath)
}

func (d *MemoryDriver) SubmoduleUpdate(ctx context.Context, dest string) error {
	return nil
}

// RegisterClone records that dest is a checkout of url, so later calls
// that only carry dest (Fetch/ListTags/Checkout/...) can find their
// repository. Clone records the same mapping itself; tests that
// pre-seed a dest without going through Clone call this directly.
func (d *MemoryDriver) RegisterClone(dest, url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destURL[dest] = url
}
