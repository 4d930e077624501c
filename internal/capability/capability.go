// Package capability models built-in capabilities: dependency names
// satisfied by a facility the host platform exposes rather than by an
// installable package (§4.1, §9's "BuiltinCapability(name)" variant).
package capability

import "context"

// Discoverer queries the host analysis platform's configuration tool
// for the capabilities it advertises and their versions. It is an
// external collaborator — the engine never implements the platform's
// own configuration logic, only this query interface.
type Discoverer interface {
	// Capabilities returns a map of capability name to the version the
	// platform currently advertises for it.
	Capabilities(ctx context.Context) (map[string]string, error)
}

// StaticDiscoverer is a Discoverer backed by a fixed map, used by tests
// and by configurations where the platform's capability set was
// queried once and cached (e.g. via `zkg autoconfig`).
type StaticDiscoverer map[string]string

func (s StaticDiscoverer) Capabilities(ctx context.Context) (map[string]string, error) {
	return map[string]string(s), nil
}
