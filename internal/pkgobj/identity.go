// Package pkgobj implements the installable package object (C4): the
// three-name identity scheme, and the immutable in-memory aggregate
// built from a resolved version and a metadata snapshot.
package pkgobj

import "strings"

// Identity is a package's three names: canonical fully-qualified name,
// short name, and declared aliases.
type Identity struct {
	// Canonical is "source/author_path/short_name", or a raw URL for
	// packages installed outside any source.
	Canonical string
	// URL is the clone URL this identity resolves to.
	URL string
	// ShortName is the last path component of URL.
	ShortName string
	// Aliases is the ordered set of additional short names declared in
	// metadata. Must be globally unique across all installed packages.
	Aliases []string
}

// NewIdentity derives an Identity from a canonical name (or raw URL)
// and declared aliases.
func NewIdentity(canonical string, aliases []string) Identity {
	return Identity{
		Canonical: canonical,
		URL:       canonical,
		ShortName: shortNameOf(canonical),
		Aliases:   aliases,
	}
}

// shortNameOf returns the last path component of a canonical name or
// URL, with a trailing ".git" stripped.
func shortNameOf(canonical string) string {
	s := strings.TrimSuffix(canonical, "/")
	s = strings.TrimSuffix(s, ".git")
	idx := strings.LastIndexByte(s, '/')
	if idx < 0 {
		return s
	}
	return s[idx+1:]
}

// Names returns every short name this identity answers to: its primary
// short name plus all declared aliases.
func (id Identity) Names() []string {
	names := make([]string, 0, 1+len(id.Aliases))
	names = append(names, id.ShortName)
	names = append(names, id.Aliases...)
	return names
}
