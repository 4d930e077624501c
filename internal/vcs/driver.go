// Package vcs is the capability abstraction over a single repository
// (§4.3, §9): clone, fetch, list refs, checkout, archive, submodule
// init. The engine never shells out to git or parses its output
// directly; everything goes through this interface so tests can
// substitute an in-memory fake (MemoryDriver).
package vcs

import "context"

// Driver is the typed set of VCS operations the engine needs.
type Driver interface {
	// Clone clones url into dest. When shallow is true, only the tip of
	// ref is fetched — callers must only request shallow clones when
	// ref is a tag or branch, never a raw commit hash (§4.3).
	Clone(ctx context.Context, url, dest, ref string, shallow bool) error

	// Fetch updates dest's remote refs without changing the working tree.
	Fetch(ctx context.Context, dest string) error

	// ListTags returns the repository's tag names.
	ListTags(ctx context.Context, dest string) ([]string, error)

	// ListBranches returns the repository's remote branch names.
	ListBranches(ctx context.Context, dest string) ([]string, error)

	// Checkout moves the working tree at dest to ref (tag, branch, or
	// commit hash).
	Checkout(ctx context.Context, dest, ref string) error

	// CurrentCommit returns the commit hash of dest's working tree HEAD.
	CurrentCommit(ctx context.Context, dest string) (string, error)

	// Archive writes a tree archive of ref from the repository at dest
	// to outPath, without requiring a full working-tree copy.
	Archive(ctx context.Context, dest, ref, outPath string) error

	// SubmoduleUpdate initializes and updates dest's submodules.
	SubmoduleUpdate(ctx context.Context, dest string) error
}
