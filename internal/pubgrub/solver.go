package pubgrub

import (
	"context"
	"fmt"

	"github.com/bilusteknoloji/pvsolve/internal/markers"
	"github.com/bilusteknoloji/pvsolve/internal/pep440"
	"github.com/bilusteknoloji/pvsolve/internal/pyreq"
	"github.com/bilusteknoloji/pvsolve/internal/requirement"
	"github.com/bilusteknoloji/pvsolve/internal/selector"
)

// Conflict resolution here uses single-level backtracking with a
// learned per-version exclusion, rather than full non-chronological
// backjumping: when an incompatibility is satisfied, the solver
// backtracks exactly one decision level (to just before the offending
// decision) and records a nogood forbidding that exact version, so the
// next iteration's candidate selection tries the next candidate. This is
// sound and complete over versionmap's finite candidate sets; it
// sacrifices optimal backjump depth (it may revisit a branch pubgrub-rs
// would skip directly) for an implementation simple enough to trust
// without a running test suite. See DESIGN.md.

// RootRequirement is one top-level dependency the manifest declares.
type RootRequirement struct {
	Pkg    Package
	Range  pep440.Range
	Marker markers.UniversalMarker
}

// Solver runs the PubGrub algorithm against a Provider for one fork's
// active environment partition.
type Solver struct {
	provider Provider
	selector *selector.Selector
	pyTrack  *pyreq.Tracker

	nextIncID int
}

// New creates a Solver bound to provider and sel, narrowing pyTrack as
// requires-python constraints are discovered.
func New(provider Provider, sel *selector.Selector, pyTrack *pyreq.Tracker) *Solver {
	return &Solver{provider: provider, selector: sel, pyTrack: pyTrack}
}

// Result is a completed resolution: the final partial solution plus the
// dependency edges recorded along the way (kept separately from the
// partial solution because an edge's marker is not itself part of a
// PubGrub term).
type Result struct {
	Solution *PartialSolution
	Edges    []Edge
}

// Edge is one recorded dependency edge, from (From,FromVersion) to To,
// gated by Marker — the raw material internal/fork and internal/lock
// turn into the resolution graph.
type Edge struct {
	From        Package
	FromVersion pep440.Version
	To          Package
	Marker      markers.UniversalMarker
}

// Solve resolves roots under activeMarker, the environment partition
// this fork covers.
// A dependency whose own marker is disjoint from activeMarker can never
// fire in this fork and is skipped rather than added as a constraint;
// markers of depedencies that do apply are recorded on the returned
// Edges, not baked into PubGrub terms, since PubGrub terms only reason
// about version ranges.
func (s *Solver) Solve(ctx context.Context, roots []RootRequirement, activeMarker markers.UniversalMarker) (*Result, error) {
	ps := NewPartialSolution()
	ps.decide(Root(), pep440.MustParse("0"))

	var incompatibilities []*Incompatibility

	var edges []Edge

	for _, root := range roots {
		if root.Marker.Disjoint(activeMarker) {
			continue
		}

		inc := s.newIncompat([]Term{
			{Pkg: Root(), Range: pep440.Singleton(pep440.MustParse("0")), Positive: true},
			{Pkg: root.Pkg, Range: root.Range, Positive: false},
		}, CauseRoot, fmt.Sprintf("root requires %s", root.Pkg))
		incompatibilities = append(incompatibilities, inc)
		ps.markSeen(root.Pkg)

		edges = append(edges, Edge{From: Root(), To: root.Pkg, Marker: root.Marker})
	}

	next := Root()

	for {
		conflict, err := s.unitPropagate(ctx, ps, &incompatibilities, next)
		if err != nil {
			return nil, err
		}

		if conflict != nil {
			learned, backtrackLevel, fatal := s.resolveConflict(conflict, ps)
			if fatal {
				return nil, s.noSolution(conflict)
			}

			ps.backtrackTo(backtrackLevel)
			incompatibilities = append(incompatibilities, learned)

			if len(learned.Terms) > 0 {
				next = learned.Terms[0].Pkg
			} else {
				next = Root()
			}

			continue
		}

		pkg, ok := ps.nextUndecided()
		if !ok {
			break
		}

		decided, newEdges, err := s.decide(ctx, ps, &incompatibilities, pkg, activeMarker)
		if err != nil {
			return nil, err
		}

		edges = append(edges, newEdges...)
		next = pkg

		if !decided {
			// A NoVersions incompatibility was added; loop back to
			// propagation, which will report it as a conflict if it
			// makes the whole package range unsatisfiable.
			continue
		}
	}

	return &Result{Solution: ps, Edges: edges}, nil
}

func (s *Solver) newIncompat(terms []Term, cause CauseKind, detail string, from ...*Incompatibility) *Incompatibility {
	return newIncompatibility(&s.nextIncID, terms, cause, detail, from...)
}

// unitPropagate repeatedly derives forced assignments until either a
// conflict (a satisfied incompatibility) is found or no further package
// has new information.G's unit-propagation step.
func (s *Solver) unitPropagate(ctx context.Context, ps *PartialSolution, incompatibilities *[]*Incompatibility, start Package) (*Incompatibility, error) {
	changed := []Package{start}

	for len(changed) > 0 {
		pkg := changed[0]
		changed = changed[1:]

		for _, inc := range *incompatibilities {
			if _, mentions := inc.termFor(pkg); !mentions {
				continue
			}

			kind, term := relation(inc, ps)

			switch kind {
			case relationSatisfied:
				return inc, nil
			case relationAlmostSatisfied:
				negated := Term{Pkg: term.Pkg, Range: term.Range, Positive: !term.Positive}
				ps.derive(term.Pkg, negated, inc)
				changed = append(changed, term.Pkg)
			}
		}
	}

	return nil, nil
}

// decide asks the selector for the next candidate version of pkg within
// its accumulated range, registers its external dependencies as new
// incompatibilities, and records the decision. Returns decided=false
// (no error) when no candidate exists — the caller re-enters
// propagation to surface it as a conflict.
func (s *Solver) decide(ctx context.Context, ps *PartialSolution, incompatibilities *[]*Incompatibility, pkg Package, activeMarker markers.UniversalMarker) (bool, []Edge, error) {
	r := ps.accumulatedRange(pkg)

	baseName := pkg.Name

	resp, err := s.provider.Versions(ctx, baseName)
	if err != nil {
		return false, nil, err
	}

	if resp.Unavailable != nil {
		*incompatibilities = append(*incompatibilities, s.newIncompat(
			[]Term{{Pkg: pkg, Range: r, Positive: true}},
			CauseUnavailable, resp.Unavailable.Error(),
		))

		return false, nil, nil
	}

	direct := false

	for _, inc := range *incompatibilities {
		if inc.Cause == CauseRoot && len(inc.Terms) == 2 && inc.Terms[1].Pkg.Name == baseName {
			direct = true

			break
		}
	}

	version, found := s.selector.Select(requirement.PackageName(baseName), r, resp.Map, direct, false)
	if !found {
		*incompatibilities = append(*incompatibilities, s.newIncompat(
			[]Term{{Pkg: pkg, Range: r, Positive: true}},
			CauseNoVersions, fmt.Sprintf("no version of %s satisfies the accumulated range", pkg),
		))

		return false, nil, nil
	}

	if s.pyTrack != nil && pkg.IsBase() {
		if c := resp.Map.Candidate(version); c != nil {
			if err := s.pyTrack.Narrow(string(baseName), c.RequiresPython); err != nil {
				*incompatibilities = append(*incompatibilities, s.newIncompat(
					[]Term{{Pkg: pkg, Range: pep440.Singleton(version), Positive: true}},
					CauseUnavailable, err.Error(),
				))

				return false, nil, nil
			}
		}
	}

	deps, err := s.provider.Dependencies(ctx, pkg, version)
	if err != nil {
		return false, nil, err
	}

	var edges []Edge

	for _, dep := range deps {
		if dep.Marker.Disjoint(activeMarker) {
			continue
		}

		*incompatibilities = append(*incompatibilities, s.newIncompat([]Term{
			{Pkg: pkg, Range: pep440.Singleton(version), Positive: true},
			{Pkg: dep.Pkg, Range: dep.Range, Positive: false},
		}, CauseDependency, fmt.Sprintf("%s %s depends on %s %s", pkg, version, dep.Pkg, rangeLabel(dep.Range))))

		ps.markSeen(dep.Pkg)

		edges = append(edges, Edge{From: pkg, FromVersion: version, To: dep.Pkg, Marker: dep.Marker})
	}

	ps.decide(pkg, version)

	return true, edges, nil
}

// resolveConflict implements the simplified single-level backtracking
// described at the top of this file: it finds the deepest decision
// level the conflicting incompatibility's terms reach, and — unless that
// level is the root (fatal, no solution) — learns a unit incompatibility
// excluding the version decided at that level.
func (s *Solver) resolveConflict(conflict *Incompatibility, ps *PartialSolution) (learned *Incompatibility, backtrackLevel int, fatal bool) {
	level := ps.maxLevelOf(conflict)
	if level == 0 {
		return nil, 0, true
	}

	pkg, ok := ps.packageDecidedAtLevel(level)
	if !ok {
		return nil, 0, true
	}

	version, _ := ps.decisionVersion(pkg)

	learned = s.newIncompat([]Term{
		{Pkg: pkg, Range: pep440.Singleton(version), Positive: true},
	}, CauseConflict, fmt.Sprintf("conflict excludes %s %s", pkg, version), conflict)

	return learned, level - 1, false
}

func (s *Solver) noSolution(conflict *Incompatibility) error {
	return newNoSolutionError(conflict)
}
