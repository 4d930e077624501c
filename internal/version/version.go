// Package version implements the package version model: a version is
// exactly one of a release tag (semantic version, optional leading "v"
// stripped before comparison), a branch pin, or a commit hash. The
// three kinds are mutually exclusive and determine upgrade eligibility
// in the solver and pipeline.
package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Kind tags which of the three disjoint version representations a
// Version holds.
type Kind int

const (
	KindTag Kind = iota
	KindBranch
	KindCommit
)

func (k Kind) String() string {
	switch k {
	case KindTag:
		return "tag"
	case KindBranch:
		return "branch"
	case KindCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// Version is a resolved package version: a tag/semver pair, a branch
// name, or a commit hash, never more than one populated at a time.
type Version struct {
	Kind   Kind
	Tag    string // original tag text, with any leading "v" preserved for display
	Semver *semver.Version
	Branch string
	Commit string
}

// NewTag parses a release tag. The leading "v", if present, is stripped
// before semver parsing but the original tag text is preserved for
// display and manifest persistence.
func NewTag(tag string) (Version, error) {
	trimmed := strings.TrimPrefix(tag, "v")
	sv, err := semver.NewVersion(trimmed)
	if err != nil {
		return Version{}, fmt.Errorf("version: invalid release tag %q: %w", tag, err)
	}
	return Version{Kind: KindTag, Tag: tag, Semver: sv}, nil
}

// NewBranch constructs a branch-pinned version, tracking the named
// branch's tip.
func NewBranch(name string) Version {
	return Version{Kind: KindBranch, Branch: name}
}

// NewCommit constructs a commit-pinned version.
func NewCommit(hash string) Version {
	return Version{Kind: KindCommit, Commit: hash}
}

// String renders the version the way it is persisted in the manifest
// and bundle manifest.txt (§6): the tag text, the branch name, or the
// commit hash.
func (v Version) String() string {
	switch v.Kind {
	case KindTag:
		return v.Tag
	case KindBranch:
		return v.Branch
	case KindCommit:
		return v.Commit
	default:
		return ""
	}
}

// Ref returns the VCS ref this version should be checked out to: the
// tag text, the branch name, or the commit hash.
func (v Version) Ref() string {
	return v.String()
}

// Upgradeable reports whether this version kind participates in
// automatic upgrade selection. Commit-pinned versions are never
// upgraded automatically; branch pins track tip (handled by re-fetch,
// not by the solver picking a "higher" version); only tags are ordered
// by semver for upgrade comparison.
func (v Version) Upgradeable() bool {
	return v.Kind == KindTag || v.Kind == KindBranch
}

// LessThan orders two tag versions by semver precedence. Only valid
// when both are KindTag; callers must check Kind first.
func (v Version) LessThan(other Version) bool {
	return v.Semver.LessThan(other.Semver)
}
