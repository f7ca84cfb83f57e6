// Package pubgrubtest is an in-memory pubgrub.Provider for exercising
// the solver without a network, grounded on contriboss-pubgrub-go's
// MapSource pattern: a builder that Adds package versions and their
// dependency constraints as plain strings, then answers Versions and
// Dependencies from that fixed table.
package pubgrubtest

import (
	"context"
	"fmt"

	"github.com/bilusteknoloji/pvsolve/internal/markers"
	"github.com/bilusteknoloji/pvsolve/internal/pep440"
	"github.com/bilusteknoloji/pvsolve/internal/pubgrub"
	"github.com/bilusteknoloji/pvsolve/internal/requirement"
	"github.com/bilusteknoloji/pvsolve/internal/simpleapi"
	"github.com/bilusteknoloji/pvsolve/internal/versionmap"
)

// Dep is one dependency a fixture version declares: a bare package name,
// a PEP 440 specifier clause, and an optional PEP 508 marker (empty means
// unconditional).
type Dep struct {
	Name   string
	Clause string
	Marker string
	Extra  string // if set, this dependency is only active on the named extra of its own package

	// WantsExtra, if set, targets an extra of Name rather than Name's
	// base package — e.g. Dep{Name: "pkg", Extra: "all", WantsExtra:
	// "extra_b"} models "pkg[extra_b]; extra == 'all'", the nested-extra
	// closure case. A self-referencing WantsExtra (Name equal to the
	// package this entry is declared on) is pinned to that package's
	// own decided version rather than Clause, mirroring the production
	// provider's self-reference handling.
	WantsExtra string
}

type entry struct {
	version pep440.Version
	deps    []Dep
	yanked  string // non-empty marks the version yanked for this reason
	pyReq   string
}

// MemoryProvider is a fixed, in-memory registry: Add each version once,
// then pass it to pubgrub.New as the Provider.
type MemoryProvider struct {
	tags    versionmap.Tags
	entries map[string][]entry
}

// New creates an empty MemoryProvider. tags is the environment's wheel
// tag preference order; fixtures in this package only ever use sdist
// filenames, so an empty Tags is almost always sufficient.
func New(tags versionmap.Tags) *MemoryProvider {
	return &MemoryProvider{tags: tags, entries: map[string][]entry{}}
}

// Add registers one version of name with its dependencies. version must
// be a valid PEP 440 version string; it panics on a malformed version,
// since fixtures are test-author-controlled literals.
func (m *MemoryProvider) Add(name, version string, deps ...Dep) *MemoryProvider {
	v := pep440.MustParse(version)
	m.entries[requirement.Normalize(name).String()] = append(m.entries[requirement.Normalize(name).String()], entry{version: v, deps: deps})

	return m
}

// Yank marks an already-added version as yanked.
func (m *MemoryProvider) Yank(name, version, reason string) *MemoryProvider {
	key := requirement.Normalize(name).String()

	for i, e := range m.entries[key] {
		if e.version.String() == version {
			m.entries[key][i].yanked = reason
		}
	}

	return m
}

// RequiresPython sets the requires-python constraint recorded against an
// already-added version.
func (m *MemoryProvider) RequiresPython(name, version, clause string) *MemoryProvider {
	key := requirement.Normalize(name).String()

	for i, e := range m.entries[key] {
		if e.version.String() == version {
			m.entries[key][i].pyReq = clause
		}
	}

	return m
}

// Versions implements pubgrub.Provider by assembling a synthetic
// simple-index page from the fixture table and running it through the
// real versionmap.Build, so tests exercise the production classification
// path rather than a parallel mock implementation of it.
func (m *MemoryProvider) Versions(ctx context.Context, name requirement.PackageName) (pubgrub.VersionsResponse, error) {
	entries, ok := m.entries[name.String()]
	if !ok {
		return pubgrub.VersionsResponse{
			Unavailable: &versionmap.PackageUnavailable{Kind: versionmap.UnavailableNotFound},
		}, nil
	}

	page := &simpleapi.ProjectPage{Name: name.String()}

	for _, e := range entries {
		f := simpleapi.File{
			Filename:       fmt.Sprintf("%s-%s.tar.gz", name.String(), e.version.String()),
			URL:            "memory://" + name.String() + "/" + e.version.String(),
			RequiresPython: e.pyReq,
		}

		if e.yanked != "" {
			f.Yanked.Yanked = true
			f.Yanked.Reason = e.yanked
		}

		page.Files = append(page.Files, f)
	}

	vm, err := versionmap.Build(name, page, versionmap.BuildOptions{
		Tags:           m.tags,
		PythonRequired: pep440.Full(),
		Pin:            pep440.Full(),
	})
	if err != nil {
		return pubgrub.VersionsResponse{}, err
	}

	return pubgrub.VersionsResponse{Map: vm}, nil
}

// Dependencies implements pubgrub.Provider by looking up the fixture
// entry matching pkg/version and lowering each recorded Dep into a
// pubgrub.Dependency, parsing its clause as a PEP 440 specifier and its
// marker (if any) as a PEP 508 marker tree.
func (m *MemoryProvider) Dependencies(ctx context.Context, pkg pubgrub.Package, version pep440.Version) ([]pubgrub.Dependency, error) {
	entries, ok := m.entries[pkg.Name.String()]
	if !ok {
		return nil, fmt.Errorf("pubgrubtest: unknown package %s", pkg.Name)
	}

	for _, e := range entries {
		if e.version.String() != version.String() {
			continue
		}

		var out []pubgrub.Dependency

		for _, d := range e.deps {
			if d.Extra != "" && pkg.Kind != pubgrub.KindExtra {
				continue
			}

			if d.Extra != "" && pkg.Extra != d.Extra {
				continue
			}

			if d.Extra == "" && pkg.Kind == pubgrub.KindExtra {
				continue
			}

			r, err := pep440.FromSpecifiers(d.Clause)
			if err != nil {
				return nil, fmt.Errorf("pubgrubtest: bad clause %q for %s: %w", d.Clause, d.Name, err)
			}

			um := markers.UniversalTrue()

			if d.Marker != "" {
				tree, err := markers.Parse(d.Marker)
				if err != nil {
					return nil, fmt.Errorf("pubgrubtest: bad marker %q for %s: %w", d.Marker, d.Name, err)
				}

				um = markers.UniversalMarker{Pep508: tree, Conflict: markers.True()}
			}

			target := pubgrub.Base(requirement.Normalize(d.Name))
			if d.WantsExtra != "" {
				target = pubgrub.WithExtra(requirement.Normalize(d.Name), d.WantsExtra)

				if requirement.Normalize(d.Name) == pkg.Name {
					r = pep440.Singleton(version)
				}
			}

			out = append(out, pubgrub.Dependency{
				Pkg:    target,
				Range:  r,
				Marker: um,
			})
		}

		if pkg.Kind == pubgrub.KindExtra {
			out = append(out, pubgrub.Dependency{
				Pkg:    pubgrub.Base(pkg.Name),
				Range:  pep440.Singleton(version),
				Marker: markers.UniversalTrue(),
			})
		}

		return out, nil
	}

	return nil, fmt.Errorf("pubgrubtest: unknown version %s for %s", version, pkg.Name)
}
