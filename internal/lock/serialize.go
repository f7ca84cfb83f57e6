package lock

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bilusteknoloji/pvsolve/internal/markers"
	"github.com/bilusteknoloji/pvsolve/internal/pep440"
	"github.com/bilusteknoloji/pvsolve/internal/pubgrub"
	"github.com/bilusteknoloji/pvsolve/internal/requirement"

	"github.com/BurntSushi/toml"
)

// Options carries everything Build needs beyond the resolved graph
// itself: the declared requires-python, the declared environments and fork partitions
// the universal graph was solved against, any non-registry sources for
// root packages, and the precomputed input
// digest.
type Options struct {
	RequiresPythonText  string
	RequiresPythonRange pep440.Range
	Environments        []markers.UniversalMarker
	ForkMarkers         []markers.UniversalMarker
	Sources             map[requirement.PackageName]requirement.Source
	InputDigest         string
}

// baseKey identifies one distribution (name, version) the lockfile's
// package array carries an entry for.
type baseKey struct {
	name    string
	version string
}

// Build renders graph into a canonical Lockfile. provider is consulted
// (via Versions) to recover each selected node's wheel/sdist artifacts
// and hashes, since the resolution graph itself only records
// (package, version) decisions and marker-gated edges, not artifacts.
func Build(ctx context.Context, graph *pubgrub.Graph, provider pubgrub.Provider, opts Options) (*Lockfile, error) {
	bases := map[baseKey]*Package{}
	basesByName := map[string][]baseKey{}

	for node := range graph.Nodes {
		if node.Pkg.Kind != pubgrub.KindBase {
			continue
		}

		key := baseKey{name: node.Pkg.Name.String(), version: node.Version.String()}
		if _, ok := bases[key]; ok {
			continue
		}

		pkg, err := buildPackageEntry(ctx, node, provider, opts)
		if err != nil {
			return nil, fmt.Errorf("lock: building entry for %s %s: %w", node.Pkg.Name, node.Version, err)
		}

		bases[key] = pkg
		basesByName[key.name] = append(basesByName[key.name], key)
	}

	// Incoming-edge markers reaching a base distribution, gathered
	// across every node sharing its name (base, extra, and group virtual
	// nodes all imply the base distribution is installed)
	// invariant "incoming edges' markers' disjunction is satisfiable".
	incoming := map[string]markers.UniversalMarker{}

	for _, e := range graph.Edges {
		name := e.To.Pkg.Name.String()

		cur, ok := incoming[name]
		if !ok {
			incoming[name] = e.Marker
		} else {
			incoming[name] = cur.Or(e.Marker)
		}

		attachEdge(bases, basesByName, e, opts.RequiresPythonRange)
	}

	for name, keys := range basesByName {
		m, ok := incoming[name]
		if !ok {
			continue
		}

		rendered := renderMarker(m, opts.RequiresPythonRange)
		if rendered == "" {
			continue
		}

		for _, k := range keys {
			bases[k].ResolutionMarkers = []string{rendered}
		}
	}

	lf := &Lockfile{
		Version:           SchemaVersion,
		RequiresPython:    opts.RequiresPythonText,
		Environments:      renderSortedMarkers(opts.Environments, opts.RequiresPythonRange),
		ResolutionMarkers: renderSortedMarkers(opts.ForkMarkers, opts.RequiresPythonRange),
		Manifest:          Manifest{InputDigest: opts.InputDigest},
	}
	lf.SupportedMarkers = lf.Environments

	for _, pkg := range bases {
		sortDependencies(pkg.Dependencies)

		for _, deps := range pkg.OptionalDependencies {
			sortDependencies(deps)
		}

		for _, deps := range pkg.DependencyGroups {
			sortDependencies(deps)
		}

		sortWheels(pkg.Wheels)

		lf.Package = append(lf.Package, *pkg)
	}

	sort.Slice(lf.Package, func(i, j int) bool {
		a, b := lf.Package[i], lf.Package[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}

		if a.Version != b.Version {
			return a.Version < b.Version
		}

		return strings.Join(a.ResolutionMarkers, "|") < strings.Join(b.ResolutionMarkers, "|")
	})

	return lf, nil
}

func buildPackageEntry(ctx context.Context, node pubgrub.NodeKey, provider pubgrub.Provider, opts Options) (*Package, error) {
	pkg := &Package{
		Name:    node.Pkg.Name.String(),
		Version: node.Version.String(),
		Source:  sourceFor(node.Pkg.Name, opts.Sources),
	}

	if pkg.Source.Kind != SourceRegistry || provider == nil {
		return pkg, nil
	}

	resp, err := provider.Versions(ctx, node.Pkg.Name)
	if err != nil {
		return nil, err
	}

	if resp.Unavailable != nil || resp.Map == nil {
		return pkg, nil
	}

	cand := resp.Map.Candidate(node.Version)
	if cand == nil {
		return pkg, nil
	}

	for _, w := range cand.Wheels {
		pkg.Wheels = append(pkg.Wheels, Wheel{URL: w.URL, Hash: bestHash(w.Hashes), Size: w.Size})
	}

	if cand.Sdist != nil {
		pkg.Sdist = &Sdist{URL: cand.Sdist.URL, Hash: bestHash(cand.Sdist.Hashes), Size: cand.Sdist.Size}
	}

	return pkg, nil
}

// bestHash picks the first of sha512, sha384, sha256 and md5 that is
// present, falling back to the alphabetically first algorithm the index
// reported, so legacy MD5-only indexes still produce a hash entry.
func bestHash(hashes map[string]string) string {
	for _, algo := range []string{"sha512", "sha384", "sha256", "md5"} {
		if v, ok := hashes[algo]; ok {
			return algo + ":" + v
		}
	}

	var algos []string
	for a := range hashes {
		algos = append(algos, a)
	}

	sort.Strings(algos)

	if len(algos) == 0 {
		return ""
	}

	return algos[0] + ":" + hashes[algos[0]]
}

func sourceFor(name requirement.PackageName, overrides map[requirement.PackageName]requirement.Source) Source {
	src, ok := overrides[name]
	if !ok {
		return Source{Kind: SourceRegistry}
	}

	switch src.Kind {
	case requirement.SourceURL:
		return Source{Kind: SourceURL, URL: src.URL, Subdirectory: src.Subdirectory}
	case requirement.SourceGit:
		return Source{
			Kind:         SourceGit,
			Repository:   src.Repository,
			Rev:          gitRefString(src.Reference),
			Subdirectory: src.Subdirectory,
		}
	case requirement.SourcePath:
		return Source{Kind: SourcePath, Path: src.Path, Editable: src.Editable}
	default:
		return Source{Kind: SourceRegistry, Index: src.IndexHint}
	}
}

func gitRefString(ref requirement.GitReference) string {
	switch {
	case ref.Rev != "":
		return ref.Rev
	case ref.Tag != "":
		return ref.Tag
	case ref.Branch != "":
		return ref.Branch
	default:
		return ""
	}
}

// attachEdge folds one resolved graph edge into the dependency list of
// whichever base package(s) it originates from. A root edge carries no
// source package and is dropped; its effect on the lockfile is already
// captured by the target node's own ResolutionMarkers.
func attachEdge(bases map[baseKey]*Package, basesByName map[string][]baseKey, e pubgrub.GraphEdge, pyReq pep440.Range) {
	if e.From.Kind == pubgrub.KindRoot {
		return
	}

	targets, ok := basesByName[e.To.Pkg.Name.String()]
	if !ok {
		return
	}

	dep := Dependency{
		Name:   e.To.Pkg.Name.String(),
		Marker: renderMarker(e.Marker, pyReq),
	}

	for _, tk := range targets {
		dep.Version = tk.version
	}

	sources, ok := basesByName[e.From.Name.String()]
	if !ok {
		return
	}

	for _, sk := range sources {
		pkg := bases[sk]

		switch e.From.Kind {
		case pubgrub.KindBase:
			pkg.Dependencies = appendDependencyDedup(pkg.Dependencies, dep)
		case pubgrub.KindExtra:
			if pkg.OptionalDependencies == nil {
				pkg.OptionalDependencies = map[string][]Dependency{}
			}

			pkg.OptionalDependencies[e.From.Extra] = appendDependencyDedup(pkg.OptionalDependencies[e.From.Extra], dep)
		case pubgrub.KindGroup:
			if pkg.DependencyGroups == nil {
				pkg.DependencyGroups = map[string][]Dependency{}
			}

			pkg.DependencyGroups[e.From.Group] = appendDependencyDedup(pkg.DependencyGroups[e.From.Group], dep)
		}
	}
}

func appendDependencyDedup(deps []Dependency, dep Dependency) []Dependency {
	for _, d := range deps {
		if d.Name == dep.Name && d.Marker == dep.Marker && d.Version == dep.Version {
			return deps
		}
	}

	return append(deps, dep)
}

func sortDependencies(deps []Dependency) {
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Name != deps[j].Name {
			return deps[i].Name < deps[j].Name
		}

		return deps[i].Marker < deps[j].Marker
	})
}

func sortWheels(wheels []Wheel) {
	sort.Slice(wheels, func(i, j int) bool { return wheels[i].Hash < wheels[j].Hash })
}

// renderMarker renders m's PEP 508 half (the conflict half records
// cross-package extra activation state, an internal solver bookkeeping
// detail not meaningful to a lockfile reader), simplified against the
// declared requires-python range so a repeated `python_version >= X`
// clause already implied by requires-python is dropped.
func renderMarker(m markers.UniversalMarker, pyReq pep440.Range) string {
	if m.Pep508.IsTrue() {
		return ""
	}

	simplified := m.Pep508.Simplify(requiresPythonTree(pyReq))

	return simplified.String()
}

// requiresPythonTree renders pyReq's lower bound as the single
// `python_version >= X` clause Simplify matches against. Range's general
// interval-union shape has no single-atom equivalent in general, but a
// requires-python declaration is conventionally a single lower-bounded
// range, so the lower bound alone is the useful case to fold away.
func requiresPythonTree(pyReq pep440.Range) markers.Tree {
	lo, ok := pyReq.LowerBound()
	if !ok {
		return markers.True()
	}

	return markers.Atom(markers.KeyPythonVersion, markers.OpGreaterEq, lo.String())
}

func renderSortedMarkers(ms []markers.UniversalMarker, pyReq pep440.Range) []string {
	var out []string

	seen := map[string]bool{}

	for _, m := range ms {
		s := renderMarker(m, pyReq)
		if s == "" || seen[s] {
			continue
		}

		seen[s] = true

		out = append(out, s)
	}

	sort.Strings(out)

	return out
}

// Render serialises lf to its canonical TOML text.
func Render(lf *Lockfile) (string, error) {
	var buf bytes.Buffer

	enc := toml.NewEncoder(&buf)
	enc.Indent = ""

	if err := enc.Encode(lf); err != nil {
		return "", fmt.Errorf("lock: encoding: %w", err)
	}

	return buf.String(), nil
}
