package solver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/netsec-pkg/zkg/internal/capability"
	"github.com/netsec-pkg/zkg/internal/manifest"
	"github.com/netsec-pkg/zkg/internal/metadata"
	"github.com/netsec-pkg/zkg/internal/version"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// Params carries the solver's view of the running system: the current
// manifest (only pinned entries seed constraints; other installed
// packages add none), the catalog of
// resolvable packages, the built-in capability discoverer, and the
// runtime-known platform/manager versions dependency lines get checked
// against (§4.5 steps 5-6).
type Params struct {
	Manifest        *manifest.Manifest
	Catalog         Catalog
	Capabilities    capability.Discoverer
	PlatformVersion string
	ManagerVersion  string
}

// node is one package or reserved-name vertex in the working graph.
type node struct {
	name        string
	kind        metadata.DependencyKind
	constraints []constraintRecord

	resolved  bool
	canonical string
	ver       version.Version
	meta      *metadata.Metadata
	deps      []string // canonical/name keys of direct dependencies, Package kind only

	builtin        bool
	builtinVersion string
}

// solveState holds the mutable working set for one Solve call.
type solveState struct {
	params   Params
	nodes    map[string]*node
	queue    []string
	queued   map[string]bool
	capCache map[string]string
	capErr   error
	capRead  bool
}

// Solve resolves requests (root packages the caller wants installed or
// upgraded) against the current manifest into a totally ordered install
// plan, per §4.5: seed from the manifest and requests, expand
// dependency edges breadth-first, classify each name by dependency
// kind, and fail fast on the first unsatisfiable constraint. There is
// no backtracking: once a conflict is detected it is reported, not
// retried with a different candidate.
func Solve(ctx context.Context, requests []Request, params Params) (*Plan, error) {
	st := &solveState{
		params: params,
		nodes:  make(map[string]*node),
		queued: make(map[string]bool),
	}

	if params.Manifest != nil {
		for _, e := range params.Manifest.Packages {
			if !e.HasStatus(manifest.StatusPinned) {
				continue
			}
			st.addConstraint(e.Canonical, "="+e.VersionString, "<pinned:"+e.Canonical+">")
		}
	}

	for _, r := range requests {
		st.addConstraint(r.Name, r.Constraint, "<request:"+r.Name+">")
	}

	for len(st.queue) > 0 {
		name := st.queue[0]
		st.queue = st.queue[1:]
		st.queued[name] = false

		if err := st.resolveNode(ctx, name); err != nil {
			return nil, err
		}
	}

	return st.buildPlan()
}

// addConstraint records a new (requester, spec) pair against name,
// enqueuing it for resolution if not already resolved. If the node is
// already resolved, the new constraint is checked immediately against
// the chosen version instead of being deferred, since the solver never
// revisits a resolved node's candidate choice.
func (st *solveState) addConstraint(name, spec, requester string) error {
	n, ok := st.nodes[name]
	if !ok {
		n = &node{name: name}
		st.nodes[name] = n
	}
	n.constraints = append(n.constraints, constraintRecord{Requester: requester, Spec: spec})

	if n.resolved {
		return st.checkAgainstResolved(n, constraintRecord{Requester: requester, Spec: spec})
	}

	if !st.queued[name] {
		st.queue = append(st.queue, name)
		st.queued[name] = true
	}
	return nil
}

// checkAgainstResolved verifies a late-arriving constraint against a
// node whose version was already picked, since the solver does not
// backtrack to reconsider earlier choices.
func (st *solveState) checkAgainstResolved(n *node, c constraintRecord) error {
	if n.builtin {
		return nil
	}
	ok, err := satisfies(n.ver, c.Spec)
	if err != nil {
		return zkgerrors.Dependency(n.name, fmt.Sprintf("invalid constraint %q from %s", c.Spec, c.Requester), err)
	}
	if !ok {
		if isPinnedRequester(n.constraints) {
			return zkgerrors.VersionResolution(n.name,
				fmt.Sprintf("pinned at %s, but %s requires %s", n.ver.String(), c.Requester, c.Spec), nil)
		}
		return zkgerrors.Dependency(n.name,
			fmt.Sprintf("already resolved to %s, but %s requires %s", n.ver.String(), c.Requester, c.Spec), nil)
	}
	return nil
}

func isPinnedRequester(cs []constraintRecord) bool {
	for _, c := range cs {
		if strings.HasPrefix(c.Requester, "<pinned:") {
			return true
		}
	}
	return false
}

// resolveNode classifies name by dependency kind and resolves it to a
// concrete version, recording further dependency-edge constraints for
// Package nodes.
func (st *solveState) resolveNode(ctx context.Context, name string) error {
	n := st.nodes[name]
	if n.resolved {
		return nil
	}

	d := metadata.ClassifyDependency(name, n.constraints[len(n.constraints)-1].Spec)
	n.kind = d.Kind

	switch d.Kind {
	case metadata.DependencyPlatformVersion:
		return st.resolveReservedVersion(n, st.params.PlatformVersion)
	case metadata.DependencyManagerVersion:
		return st.resolveReservedVersion(n, st.params.ManagerVersion)
	case metadata.DependencyBuiltinCapability:
		return st.resolveBuiltinCapability(ctx, n)
	default:
		return st.resolvePackage(ctx, n)
	}
}

// resolveReservedVersion checks the accumulated constraints on a
// platform/manager-version node against the runtime-known version
// string (§4.5 step 5-6). These nodes never produce a clone.
func (st *solveState) resolveReservedVersion(n *node, runtimeVersion string) error {
	if runtimeVersion == "" {
		return zkgerrors.Dependency(n.name, "runtime version unknown, cannot check constraint", nil)
	}
	v, err := version.NewTag(runtimeVersion)
	if err != nil {
		return zkgerrors.Dependency(n.name, "malformed runtime version "+runtimeVersion, err)
	}
	for _, c := range n.constraints {
		ok, err := satisfies(v, c.Spec)
		if err != nil {
			return zkgerrors.Dependency(n.name, fmt.Sprintf("invalid constraint %q from %s", c.Spec, c.Requester), err)
		}
		if !ok {
			return zkgerrors.Dependency(n.name,
				fmt.Sprintf("running %s, but %s requires %s", runtimeVersion, c.Requester, c.Spec), nil)
		}
	}
	n.resolved = true
	n.builtin = true
	n.ver = v
	return nil
}

// resolveBuiltinCapability consults the package catalog first: a real
// installable package with this name always takes precedence over a
// platform-advertised capability of the same name (§4.5 step 7, "only
// consulted for names the catalog does not resolve as a package").
func (st *solveState) resolveBuiltinCapability(ctx context.Context, n *node) error {
	if _, ok := st.params.Catalog.Resolve(ctx, n.name); ok {
		return st.resolvePackage(ctx, n)
	}

	caps, err := st.capabilities(ctx)
	if err != nil {
		return err
	}
	capVersion, ok := caps[n.name]
	if !ok {
		return zkgerrors.Dependency(n.name, "no package or built-in capability satisfies this name", nil)
	}

	v, err := version.NewTag(capVersion)
	if err != nil {
		return zkgerrors.Dependency(n.name, "malformed capability version "+capVersion, err)
	}
	for _, c := range n.constraints {
		ok, err := satisfies(v, c.Spec)
		if err != nil {
			return zkgerrors.Dependency(n.name, fmt.Sprintf("invalid constraint %q from %s", c.Spec, c.Requester), err)
		}
		if !ok {
			return zkgerrors.VersionResolution(n.name,
				fmt.Sprintf("built-in capability at %s does not satisfy %s (required by %s)", capVersion, c.Spec, c.Requester), nil)
		}
	}

	n.resolved = true
	n.builtin = true
	n.builtinVersion = capVersion
	n.ver = v
	return nil
}

func (st *solveState) capabilities(ctx context.Context) (map[string]string, error) {
	if st.capRead {
		return st.capCache, st.capErr
	}
	st.capRead = true
	if st.params.Capabilities == nil {
		st.capCache = map[string]string{}
		return st.capCache, nil
	}
	caps, err := st.params.Capabilities.Capabilities(ctx)
	st.capCache, st.capErr = caps, err
	return caps, err
}

// resolvePackage resolves a Package-kind node: canonicalize the name,
// pick the highest candidate satisfying every accumulated constraint,
// load its metadata, and enqueue its own depends field as further
// constraints on new or existing nodes.
func (st *solveState) resolvePackage(ctx context.Context, n *node) error {
	canonical, ok := st.params.Catalog.Resolve(ctx, n.name)
	if !ok {
		return zkgerrors.Dependency(n.name, "no configured source provides this package", nil)
	}
	n.canonical = canonical

	cand, err := st.params.Catalog.Candidates(ctx, canonical)
	if err != nil {
		return zkgerrors.Dependency(canonical, "failed to list candidates", err)
	}

	ref, kind, err := pickCandidate(n, cand)
	if err != nil {
		return err
	}

	v, err := refToVersion(ref, kind)
	if err != nil {
		return zkgerrors.Dependency(canonical, "invalid candidate ref "+ref, err)
	}

	m, err := st.params.Catalog.Metadata(ctx, canonical, ref)
	if err != nil {
		return zkgerrors.Dependency(canonical, "failed to load metadata for "+ref, err)
	}

	n.resolved = true
	n.ver = v
	n.meta = m

	for depName, depSpec := range m.Depends {
		if err := st.addConstraint(depName, depSpec, canonical); err != nil {
			return err
		}
		n.deps = append(n.deps, depName)
	}
	sort.Strings(n.deps)

	return nil
}

// pickCandidate chooses the ref to check out for a package node: the
// highest tag satisfying all accumulated semver constraints, or the
// tip of an explicitly requested branch, or a literal pinned commit.
// On failure it distinguishes a directly conflicting pair of exact
// pins (DependencyError, naming both requesters, §4.5 step 4) from a
// candidate set with no satisfying member at all (VersionResolutionError).
func pickCandidate(n *node, cand Candidate) (ref string, kind version.Kind, err error) {
	if pinned, ok := pinnedConstraint(n.constraints); ok {
		return pickAgainstPin(n, pinned)
	}

	var branchWanted string
	var commitWanted string
	var semverSpecs []constraintRecord

	for _, c := range n.constraints {
		switch metadata.SpecKindOf(c.Spec) {
		case metadata.SpecBranch:
			b := strings.TrimPrefix(c.Spec, "branch=")
			if branchWanted != "" && branchWanted != b {
				return "", 0, zkgerrors.Dependency(n.name,
					fmt.Sprintf("conflicting branch pins: %q wants branch=%s", c.Requester, b), nil)
			}
			branchWanted = b
		case metadata.SpecAny:
			// no constraint contributed
		default:
			if looksLikeCommit(c.Spec) {
				if commitWanted != "" && commitWanted != c.Spec {
					return "", 0, zkgerrors.Dependency(n.name,
						fmt.Sprintf("conflicting commit pins from %q and earlier requester", c.Requester), nil)
				}
				commitWanted = c.Spec
				continue
			}
			semverSpecs = append(semverSpecs, c)
		}
	}

	if commitWanted != "" {
		return commitWanted, version.KindCommit, nil
	}
	if branchWanted != "" {
		found := false
		for _, b := range cand.Branches {
			if b == branchWanted {
				found = true
				break
			}
		}
		if !found {
			return "", 0, zkgerrors.VersionResolution(n.name, "no such branch: "+branchWanted, nil)
		}
		return branchWanted, version.KindBranch, nil
	}

	if conflict := directExactConflict(semverSpecs); conflict != "" {
		return "", 0, zkgerrors.Dependency(n.name, conflict, nil)
	}

	best, err := bestTag(cand.Tags, semverSpecs)
	if err != nil {
		return "", 0, err
	}
	if best == "" {
		return "", 0, zkgerrors.VersionResolution(n.name, "no release tag satisfies the accumulated constraints", nil)
	}
	return best, version.KindTag, nil
}

// pinnedConstraint returns the constraint recorded on behalf of an
// already-pinned manifest entry, if any. A pinned package's version is
// never relaxed by subsequent requesters (§9 testable scenario 2): it
// is checked against, not resolved alongside, the rest of the graph.
func pinnedConstraint(cs []constraintRecord) (constraintRecord, bool) {
	for _, c := range cs {
		if strings.HasPrefix(c.Requester, "<pinned:") {
			return c, true
		}
	}
	return constraintRecord{}, false
}

// pickAgainstPin checks every other accumulated constraint against the
// pinned version directly, rather than letting it compete for the
// highest satisfying tag. Any requester whose constraint the pinned
// version fails to satisfy yields a VersionResolutionError naming the
// pinned package, per §9 testable scenario 2.
func pickAgainstPin(n *node, pinned constraintRecord) (ref string, kind version.Kind, err error) {
	pinnedVer := strings.TrimPrefix(pinned.Spec, "=")
	v, verr := version.NewTag(pinnedVer)
	if verr != nil {
		return "", 0, zkgerrors.VersionResolution(n.name, "pinned version "+pinnedVer+" is not a valid release tag", verr)
	}
	for _, c := range n.constraints {
		if c.Requester == pinned.Requester {
			continue
		}
		ok, serr := satisfies(v, c.Spec)
		if serr != nil {
			return "", 0, zkgerrors.Dependency(n.name, fmt.Sprintf("invalid constraint %q from %s", c.Spec, c.Requester), serr)
		}
		if !ok {
			return "", 0, zkgerrors.VersionResolution(n.name,
				fmt.Sprintf("pinned at %s, but %s requires %s", pinnedVer, c.Requester, c.Spec), nil)
		}
	}
	return pinnedVer, version.KindTag, nil
}

// directExactConflict detects two requesters pinning the same name to
// different exact versions ("=1.0.0" vs "=2.0.0"), reported directly
// rather than as a generic "no candidate satisfies" failure.
func directExactConflict(specs []constraintRecord) string {
	exact := map[string]string{} // version -> requester
	for _, c := range specs {
		if !strings.HasPrefix(c.Spec, "=") {
			continue
		}
		v := strings.TrimPrefix(c.Spec, "=")
		for existingVer, existingReq := range exact {
			if existingVer != v {
				return fmt.Sprintf("%s requires =%s, but %s requires =%s", existingReq, existingVer, c.Requester, v)
			}
		}
		exact[v] = c.Requester
	}
	return ""
}

// bestTag returns the highest tag satisfying every semver constraint,
// or "" if none does.
func bestTag(tags []string, specs []constraintRecord) (string, error) {
	constraintStr := combinedConstraint(specs)
	var c *semver.Constraints
	if constraintStr != "" {
		var err error
		c, err = semver.NewConstraint(constraintStr)
		if err != nil {
			return "", zkgerrors.Dependency("constraint", "invalid combined constraint "+constraintStr, err)
		}
	}

	var best *semver.Version
	var bestTag string
	for _, t := range tags {
		trimmed := strings.TrimPrefix(t, "v")
		sv, err := semver.NewVersion(trimmed)
		if err != nil {
			continue
		}
		if c != nil && !c.Check(sv) {
			continue
		}
		if best == nil || sv.GreaterThan(best) {
			best = sv
			bestTag = t
		}
	}
	return bestTag, nil
}

func combinedConstraint(specs []constraintRecord) string {
	parts := make([]string, 0, len(specs))
	for _, c := range specs {
		parts = append(parts, c.Spec)
	}
	return strings.Join(parts, ",")
}

func satisfies(v version.Version, spec string) (bool, error) {
	if metadata.SpecKindOf(spec) == metadata.SpecAny {
		return true, nil
	}
	if v.Kind != version.KindTag {
		return false, nil
	}
	c, err := semver.NewConstraint(spec)
	if err != nil {
		return false, err
	}
	return c.Check(v.Semver), nil
}

func looksLikeCommit(spec string) bool {
	if len(spec) < 7 || len(spec) > 40 {
		return false
	}
	for _, r := range spec {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

func refToVersion(ref string, kind version.Kind) (version.Version, error) {
	switch kind {
	case version.KindTag:
		return version.NewTag(ref)
	case version.KindBranch:
		return version.NewBranch(ref), nil
	case version.KindCommit:
		return version.NewCommit(ref), nil
	default:
		return version.Version{}, fmt.Errorf("unknown version kind")
	}
}

// buildPlan topologically sorts the resolved Package nodes
// (depended-upon first) with canonical-name tiebreaking, per §4.5's
// "Output: totally ordered plan". Platform/manager/builtin-capability
// nodes contribute no clone and are reported separately.
func (st *solveState) buildPlan() (*Plan, error) {
	plan := &Plan{BuiltinCapabilities: map[string]string{}}

	var pkgNames []string
	for name, n := range st.nodes {
		if n.builtin {
			if n.builtinVersion != "" {
				plan.BuiltinCapabilities[n.name] = n.builtinVersion
			}
			continue
		}
		pkgNames = append(pkgNames, name)
	}
	sort.Strings(pkgNames)

	visited := map[string]bool{}
	visiting := map[string]bool{}
	var order []string

	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		if visiting[name] {
			return zkgerrors.Dependency(name, "dependency cycle detected", nil)
		}
		n, ok := st.nodes[name]
		if !ok || n.builtin {
			return nil
		}
		visiting[name] = true
		for _, dep := range n.deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	for _, name := range pkgNames {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	for _, name := range order {
		n := st.nodes[name]
		plan.Entries = append(plan.Entries, PlanEntry{
			Canonical: n.canonical,
			Name:      n.name,
			Version:   n.ver,
			Metadata:  *n.meta,
			DependsOn: n.deps,
		})
	}

	return plan, nil
}
