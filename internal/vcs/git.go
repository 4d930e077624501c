package vcs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// GitDriver implements Driver over go-git/go-git/v5.
type GitDriver struct{}

var _ Driver = (*GitDriver)(nil)

func (GitDriver) Clone(ctx context.Context, url, dest, ref string, shallow bool) error {
	if isPartialClone(dest) {
		if err := os.RemoveAll(dest); err != nil {
			return zkgerrors.Stage(dest, "failed to remove partial clone", err)
		}
	}

	opts := &git.CloneOptions{URL: url}
	if ref != "" {
		opts.ReferenceName = referenceNameFor(ref)
		opts.SingleBranch = opts.ReferenceName != ""
	}
	if shallow {
		opts.Depth = 1
	}

	if _, err := git.PlainCloneContext(ctx, dest, false, opts); err != nil {
		return zkgerrors.Stage(url, "clone failed", err)
	}
	return nil
}

// isPartialClone detects a clone interrupted mid-way: a .git directory
// present but missing HEAD, per §4.3's "must tolerate interruption".
func isPartialClone(dest string) bool {
	gitDir := filepath.Join(dest, ".git")
	if _, err := os.Stat(gitDir); err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(gitDir, "HEAD")); err != nil {
		return true
	}
	return false
}

func referenceNameFor(ref string) plumbing.ReferenceName {
	// Heuristic only used to narrow the initial fetch; Checkout always
	// resolves the concrete ref afterward regardless of this guess.
	if looksLikeHash(ref) {
		return ""
	}
	return plumbing.NewBranchReferenceName(ref)
}

func looksLikeHash(ref string) bool {
	if len(ref) < 7 || len(ref) > 40 {
		return false
	}
	for _, r := range ref {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}

func (GitDriver) Fetch(ctx context.Context, dest string) error {
	repo, err := git.PlainOpen(dest)
	if err != nil {
		return zkgerrors.Stage(dest, "failed to open repository", err)
	}
	err = repo.FetchContext(ctx, &git.FetchOptions{Tags: git.AllTags, Force: true})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return zkgerrors.Stage(dest, "fetch failed", err)
	}
	return nil
}

func (GitDriver) ListTags(ctx context.Context, dest string) ([]string, error) {
	repo, err := git.PlainOpen(dest)
	if err != nil {
		return nil, zkgerrors.Stage(dest, "failed to open repository", err)
	}
	iter, err := repo.Tags()
	if err != nil {
		return nil, zkgerrors.Stage(dest, "failed to list tags", err)
	}
	defer iter.Close()

	var tags []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		tags = append(tags, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, zkgerrors.Stage(dest, "failed to iterate tags", err)
	}
	sort.Strings(tags)
	return tags, nil
}

func (GitDriver) ListBranches(ctx context.Context, dest string) ([]string, error) {
	repo, err := git.PlainOpen(dest)
	if err != nil {
		return nil, zkgerrors.Stage(dest, "failed to open repository", err)
	}
	refs, err := repo.References()
	if err != nil {
		return nil, zkgerrors.Stage(dest, "failed to list references", err)
	}
	defer refs.Close()

	seen := map[string]bool{}
	var branches []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name()
		if name.IsRemote() {
			short := strings.TrimPrefix(name.Short(), "origin/")
			if short != "HEAD" && !seen[short] {
				seen[short] = true
				branches = append(branches, short)
			}
		}
		return nil
	})
	if err != nil {
		return nil, zkgerrors.Stage(dest, "failed to iterate branches", err)
	}
	sort.Strings(branches)
	return branches, nil
}

func (GitDriver) Checkout(ctx context.Context, dest, ref string) error {
	repo, err := git.PlainOpen(dest)
	if err != nil {
		return zkgerrors.Stage(dest, "failed to open repository", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return zkgerrors.Stage(dest, "failed to get worktree", err)
	}

	hash, err := resolveRef(repo, ref)
	if err != nil {
		return zkgerrors.Stage(ref, "failed to resolve ref", err)
	}

	if err := wt.Checkout(&git.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return zkgerrors.Stage(ref, "checkout failed", err)
	}
	return nil
}

func resolveRef(repo *git.Repository, ref string) (plumbing.Hash, error) {
	if h, err := repo.ResolveRevision(plumbing.Revision(ref)); err == nil {
		return *h, nil
	}
	if h, err := repo.ResolveRevision(plumbing.Revision("refs/tags/" + ref)); err == nil {
		return *h, nil
	}
	if h, err := repo.ResolveRevision(plumbing.Revision("refs/remotes/origin/" + ref)); err == nil {
		return *h, nil
	}
	return plumbing.ZeroHash, zkgerrors.Stage(ref, "unresolvable ref", nil)
}

func (GitDriver) CurrentCommit(ctx context.Context, dest string) (string, error) {
	repo, err := git.PlainOpen(dest)
	if err != nil {
		return "", zkgerrors.Stage(dest, "failed to open repository", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", zkgerrors.Stage(dest, "failed to resolve HEAD", err)
	}
	return head.Hash().String(), nil
}

func (GitDriver) Archive(ctx context.Context, dest, ref, outPath string) error {
	repo, err := git.PlainOpen(dest)
	if err != nil {
		return zkgerrors.Stage(dest, "failed to open repository", err)
	}
	hash, err := resolveRef(repo, ref)
	if err != nil {
		return zkgerrors.Stage(ref, "failed to resolve ref", err)
	}
	commit, err := repo.CommitObject(hash)
	if err != nil {
		return zkgerrors.Stage(ref, "failed to load commit", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return zkgerrors.Stage(ref, "failed to load tree", err)
	}

	if err := os.MkdirAll(outPath, 0o755); err != nil {
		return zkgerrors.Stage(outPath, "failed to create archive destination", err)
	}

	return tree.Files().ForEach(func(f *object.File) error {
		dst := filepath.Join(outPath, f.Name)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		r, err := f.Reader()
		if err != nil {
			return err
		}
		defer r.Close()
		out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(f.Mode))
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, r)
		return err
	})
}

func (GitDriver) SubmoduleUpdate(ctx context.Context, dest string) error {
	repo, err := git.PlainOpen(dest)
	if err != nil {
		return zkgerrors.Stage(dest, "failed to open repository", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return zkgerrors.Stage(dest, "failed to get worktree", err)
	}
	subs, err := wt.Submodules()
	if err != nil {
		return zkgerrors.Stage(dest, "failed to list submodules", err)
	}
	for _, s := range subs {
		if err := s.UpdateContext(ctx, &git.SubmoduleUpdateOptions{Init: true}); err != nil {
			return zkgerrors.Stage(s.Config().Name, "submodule update failed", err)
		}
	}
	return nil
}
