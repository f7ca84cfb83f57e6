// Package fork implements the fork engine: detecting when
// the root requirements (or their immediate dependencies) split the
// declared environments into marker-disjoint partitions, resolving each
// partition independently with pubgrub.Solver, and merging the
// per-partition graphs into one universal graph.
//
// Fork-point detection here is static and one level deep, not the fully
// dynamic "fork during propagation" pubgrub-rs performs: before solving,
// Engine scans the root requirements plus one round of dependency
// probing (fetching Dependencies for the selector's top candidate of
// each root package) for any two requirements on the same target
// package whose markers are pairwise disjoint — for instance
// "A; sys_platform=='linux'" and "A<2; sys_platform=='darwin'" on the
// same target package. Each disjoint marker found refines the
// partition set by crossing it with its negation. A conflict that only
// appears deeper in the graph still resolves correctly inside whichever
// fork reaches it (Solver.Solve already narrows by activeMarker and
// skips disjoint dependencies), it is just never pre-split into its own
// fork, so the affected fork's graph may end up smaller than a fully
// dynamic forker would produce. See DESIGN.md.
package fork

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/bilusteknoloji/pvsolve/internal/markers"
	"github.com/bilusteknoloji/pvsolve/internal/pubgrub"
	"github.com/bilusteknoloji/pvsolve/internal/pyreq"
	"github.com/bilusteknoloji/pvsolve/internal/selector"
)

// maxForks bounds how far partitionsFromMarkers refines the partition
// set, so a manifest with many independently-disjoint markers can't
// blow the fork count up exponentially.
const maxForks = 16

// Partition is one fork's environment slice: the UniversalMarker
// Solver.Solve narrows its activeMarker by.
type Partition struct {
	Marker markers.UniversalMarker
}

func (p Partition) String() string {
	return p.Marker.Pep508.String()
}

// Fork is one partition's completed resolution.
type Fork struct {
	Partition Partition
	Graph     *pubgrub.Graph
}

// Engine resolves a manifest's root requirements across every fork the
// declared environments require.
type Engine struct {
	provider pubgrub.Provider
	selector *selector.Selector
	pyTrack  *pyreq.Tracker
}

// New creates an Engine. pyTrack may be nil; when present, each fork
// gets its own clone.
func New(provider pubgrub.Provider, sel *selector.Selector, pyTrack *pyreq.Tracker) *Engine {
	return &Engine{provider: provider, selector: sel, pyTrack: pyTrack}
}

// Resolve computes the fork partition for roots, solves each partition
// independently, and merges the results into one universal graph.
// environments, if non-empty, are the environments the merged graph must
// cover; ValidateCoverage is run against them before returning.
func (e *Engine) Resolve(ctx context.Context, roots []pubgrub.RootRequirement, environments []markers.UniversalMarker) (*pubgrub.Graph, []Fork, error) {
	partitions := e.computePartition(ctx, roots)

	forks := make([]Fork, 0, len(partitions))

	for _, part := range partitions {
		s := pubgrub.New(e.provider, e.selector, clonePyTrack(e.pyTrack))

		res, err := s.Solve(ctx, roots, part.Marker)
		if err != nil {
			return nil, nil, fmt.Errorf("fork %s: %w", part, err)
		}

		forks = append(forks, Fork{Partition: part, Graph: pubgrub.BuildGraph(res)})
	}

	merged := Merge(forks)

	if len(environments) > 0 {
		if err := ValidateCoverage(merged, environments); err != nil {
			return merged, forks, err
		}
	}

	return merged, forks, nil
}

func clonePyTrack(t *pyreq.Tracker) *pyreq.Tracker {
	if t == nil {
		return nil
	}

	return t.Clone()
}

// constraint is one observed (target package, marker) pair, gathered
// from root requirements and one level of probed dependencies.
type constraint struct {
	target pubgrub.Package
	marker markers.UniversalMarker
}

func (e *Engine) computePartition(ctx context.Context, roots []pubgrub.RootRequirement) []Partition {
	constraints := make([]constraint, 0, len(roots))

	for _, r := range roots {
		constraints = append(constraints, constraint{target: r.Pkg, marker: r.Marker})
	}

	constraints = append(constraints, e.probeOneLevel(ctx, roots) ...)

	forkMarkers := distinctDisjointMarkers(constraints)
	if len(forkMarkers) == 0 {
		return []Partition{{Marker: markers.UniversalTrue()}}
	}

	return partitionsFromMarkers(forkMarkers)
}

// probeOneLevel fetches the selector's top candidate for each root base
// package and its declared dependencies, best-effort: any failure here
// just means that package contributes no extra fork constraints, since
// the real solve will surface the same failure properly.
func (e *Engine) probeOneLevel(ctx context.Context, roots []pubgrub.RootRequirement) []constraint {
	var out []constraint

	for _, root := range roots {
		if !root.Pkg.IsBase() {
			continue
		}

		resp, err := e.provider.Versions(ctx, root.Pkg.Name)
		if err != nil || resp.Unavailable != nil || resp.Map == nil {
			continue
		}

		version, found := e.selector.Select(root.Pkg.Name, root.Range, resp.Map, true, false)
		if !found {
			continue
		}

		deps, err := e.provider.Dependencies(ctx, root.Pkg, version)
		if err != nil {
			continue
		}

		for _, d := range deps {
			out = append(out, constraint{target: d.Pkg, marker: d.Marker})
		}
	}

	return out
}

// distinctDisjointMarkers groups constraints by target package and
// returns every marker that is pairwise disjoint from some other marker
// on the same target, deduplicated by rendered form.
func distinctDisjointMarkers(constraints []constraint) []markers.UniversalMarker {
	byTarget := map[pubgrub.Package][]markers.UniversalMarker{}
	for _, c := range constraints {
		byTarget[c.target] = append(byTarget[c.target], c.marker)
	}

	seen := map[string]bool{}

	var out []markers.UniversalMarker

	for _, group := range byTarget {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if !group[i].Disjoint(group[j]) {
					continue
				}

				for _, m := range [2]markers.UniversalMarker{group[i], group[j]} {
					if m.IsTrue() {
						continue
					}

					key := m.Pep508.String()
					if seen[key] {
						continue
					}

					seen[key] = true

					out = append(out, m)
				}
			}
		}
	}

	return out
}

// partitionsFromMarkers crosses the universal partition with each
// marker and its negation in turn, capping the total at maxForks.
func partitionsFromMarkers(ms []markers.UniversalMarker) []Partition {
	parts := []markers.UniversalMarker{markers.UniversalTrue()}

	for _, m := range ms {
		if len(parts)*2 > maxForks {
			break // stop refining rather than exploding the fork count
		}

		next := make([]markers.UniversalMarker, 0, len(parts)*2)
		for _, p := range parts {
			next = append(next, p.And(m), p.And(negateMarker(m)))
		}

		parts = next
	}

	out := make([]Partition, 0, len(parts))
	for _, p := range parts {
		out = append(out, Partition{Marker: p})
	}

	return out
}

func negateMarker(m markers.UniversalMarker) markers.UniversalMarker {
	return markers.UniversalMarker{Pep508: markers.Not(m.Pep508), Conflict: markers.True()}
}

// ValidateCoverage reports, via a *multierror.Error, every declared
// environment that no node in g's incoming edges actually reaches.
func ValidateCoverage(g *pubgrub.Graph, environments []markers.UniversalMarker) error {
	var result *multierror.Error

	for _, env := range environments {
		if !environmentCovered(g, env) {
			result = multierror.Append(result, fmt.Errorf("environment %s is not covered by any resolved edge", env.Pep508.String()))
		}
	}

	return result.ErrorOrNil()
}

func environmentCovered(g *pubgrub.Graph, env markers.UniversalMarker) bool {
	for _, e := range g.Edges {
		if !e.Marker.Disjoint(env) {
			return true
		}
	}

	return len(g.Edges) == 0
}
