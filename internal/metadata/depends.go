package metadata

import (
	"strings"

	"github.com/netsec-pkg/zkg/internal/zkgconfig"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// DependencyKind tags the variant of a parsed dependency line:
// PlatformVersion, ManagerVersion, BuiltinCapability(name), or
// Package(identity).
type DependencyKind int

const (
	DependencyPackage DependencyKind = iota
	DependencyPlatformVersion
	DependencyManagerVersion
	DependencyBuiltinCapability
)

// SpecKind tags whether a constraint is a branch pin or a semver range.
type SpecKind int

const (
	SpecSemverRange SpecKind = iota
	SpecBranch
	SpecAny // bare "*"
)

// Dependency is one parsed `name SPEC` line from depends/
// external_depends/suggests.
type Dependency struct {
	Name   string
	Kind   DependencyKind
	Spec   string
	Branch string // set when SpecBranch
}

// knownCapabilities lists reserved built-in capability names the
// platform may advertise instead of requiring an installed package
// (§4.1: "Reserved names spicy-plugin and similar built-in
// capabilities").
var knownCapabilities = map[string]bool{
	"spicy-plugin": true,
}

// ParseDependsField parses a full depends/external_depends/suggests
// field value (one "name SPEC" per line) into a name->spec map.
func ParseDependsField(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, line := range splitList(raw) {
		name, spec, err := parseDependencyLine(line)
		if err != nil {
			return nil, err
		}
		out[name] = spec
	}
	return out, nil
}

func parseDependencyLine(line string) (name, spec string, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return "", "", zkgerrors.BadMetadata(line, "expected \"name SPEC\"", nil)
	}
	return fields[0], fields[1], nil
}

// ClassifyDependency determines which DependencyKind a parsed name/spec
// pair belongs to, and decomposes the spec string.
func ClassifyDependency(name, spec string) Dependency {
	d := Dependency{Name: name, Spec: spec}

	switch name {
	case zkgconfig.ReservedNamePlatformZeek, zkgconfig.ReservedNamePlatformBro:
		d.Kind = DependencyPlatformVersion
	case zkgconfig.ReservedNameManagerZkg, zkgconfig.ReservedNameManagerBro:
		d.Kind = DependencyManagerVersion
	default:
		if knownCapabilities[name] {
			d.Kind = DependencyBuiltinCapability
		} else {
			d.Kind = DependencyPackage
		}
	}

	if strings.HasPrefix(spec, "branch=") {
		d.Branch = strings.TrimPrefix(spec, "branch=")
	}

	return d
}

// SpecKindOf reports whether a spec string is a branch pin, the bare
// wildcard, or a semver range expression.
func SpecKindOf(spec string) SpecKind {
	switch {
	case strings.HasPrefix(spec, "branch="):
		return SpecBranch
	case spec == "*" || spec == "":
		return SpecAny
	default:
		return SpecSemverRange
	}
}
