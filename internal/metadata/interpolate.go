package metadata

import (
	"regexp"

	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// interpVarPattern matches a single %(name)s reference.
var interpVarPattern = regexp.MustCompile(`%\(([A-Za-z0-9_]+)\)s`)

// Interpolator resolves %(name)s references lazily against a merged
// namespace: user config vars, [paths], zeek_dist/bro_dist,
// package_base, and CLI overrides (§3, §4.1). Nothing outside this
// package's tests constructs one; the pipeline runs build and test
// commands as written, without expanding %(name)s references.
type Interpolator struct {
	vars map[string]string
}

// NewInterpolator builds an interpolator over the given namespace. Later
// maps in the list take precedence over earlier ones, matching the
// priority order: CLI overrides > user config > [paths] > package
// defaults.
func NewInterpolator(namespaces ...map[string]string) *Interpolator {
	merged := make(map[string]string)
	for _, ns := range namespaces {
		for k, v := range ns {
			merged[k] = v
		}
	}
	return &Interpolator{vars: merged}
}

// Resolve expands all %(name)s references in value, recursively, and
// fails with a BadMetadataError naming the cycle if one is found.
func (in *Interpolator) Resolve(value string) (string, error) {
	return in.resolve(value, nil)
}

func (in *Interpolator) resolve(value string, seen []string) (string, error) {
	matches := interpVarPattern.FindAllStringSubmatchIndex(value, -1)
	if matches == nil {
		return value, nil
	}

	out := value
	// Walk matches in reverse so earlier indices stay valid as we splice.
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		name := value[m[2]:m[3]]

		for _, s := range seen {
			if s == name {
				return "", zkgerrors.BadMetadata(name, "interpolation cycle: "+cyclePath(append(seen, name)), nil)
			}
		}

		raw, ok := in.vars[name]
		if !ok {
			return "", zkgerrors.BadMetadata(name, "unresolved %("+name+")s reference", nil)
		}

		resolved, err := in.resolve(raw, append(append([]string{}, seen...), name))
		if err != nil {
			return "", err
		}

		out = out[:m[0]] + resolved + out[m[1]:]
	}

	return out, nil
}

func cyclePath(chain []string) string {
	out := ""
	for i, c := range chain {
		if i > 0 {
			out += " -> "
		}
		out += c
	}
	return out
}
