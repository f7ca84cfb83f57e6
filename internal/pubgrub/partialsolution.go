package pubgrub

import "github.com/bilusteknoloji/pvsolve/internal/pep440"

// assignment is one entry in the partial solution's history: either a
// decision (a chosen version) or a derivation (a term implied by unit
// propagation).
type assignment struct {
	Pkg      Package
	Term     Term
	Decision bool
	Version  pep440.Version // set iff Decision
	Level    int
	Cause    *Incompatibility // nil for decisions and the root assignment
}

// PartialSolution is PubGrub's growing/shrinking assignment state: it
// grows monotonically with decisions and shrinks only on backtrack.
// Decision order is tracked for determinism, breaking ties by the
// insertion order of first encounter.
type PartialSolution struct {
	assignments []assignment
	level       int

	ranges    map[Package]pep440.Range
	decisions map[Package]pep440.Version

	order []Package
	seen  map[Package]bool
}

// NewPartialSolution creates an empty partial solution at decision
// level 0.
func NewPartialSolution() *PartialSolution {
	return &PartialSolution{
		ranges:    map[Package]pep440.Range{},
		decisions: map[Package]pep440.Version{},
		seen:      map[Package]bool{},
	}
}

func (ps *PartialSolution) accumulatedRange(pkg Package) pep440.Range {
	if r, ok := ps.ranges[pkg]; ok {
		return r
	}

	return pep440.Full()
}

func (ps *PartialSolution) markSeen(pkg Package) {
	if !ps.seen[pkg] {
		ps.seen[pkg] = true
		ps.order = append(ps.order, pkg)
	}
}

// derive records a non-decision assignment: a term implied by unit
// propagation, attributed to the incompatibility that produced it.
func (ps *PartialSolution) derive(pkg Package, term Term, cause *Incompatibility) {
	ps.markSeen(pkg)

	ps.assignments = append(ps.assignments, assignment{
		Pkg: pkg, Term: term, Decision: false, Level: ps.level, Cause: cause,
	})
	ps.ranges[pkg] = ps.accumulatedRange(pkg).Intersect(term.effectiveRange())
}

// decide records a decision: pkg is pinned to version, opening a new
// decision level.
func (ps *PartialSolution) decide(pkg Package, version pep440.Version) {
	ps.markSeen(pkg)
	ps.level++

	term := Term{Pkg: pkg, Range: pep440.Singleton(version), Positive: true}
	ps.assignments = append(ps.assignments, assignment{
		Pkg: pkg, Term: term, Decision: true, Version: version, Level: ps.level,
	})
	ps.decisions[pkg] = version
	ps.ranges[pkg] = ps.accumulatedRange(pkg).Intersect(term.Range)
}

// isDecided reports whether pkg already has a chosen version.
func (ps *PartialSolution) isDecided(pkg Package) bool {
	_, ok := ps.decisions[pkg]
	return ok
}

// decisionVersion returns pkg's decided version, if any.
func (ps *PartialSolution) decisionVersion(pkg Package) (pep440.Version, bool) {
	v, ok := ps.decisions[pkg]
	return v, ok
}

// nextUndecided returns, in first-encounter order, the next package that has been mentioned (so has a
// non-full accumulated range or was explicitly queued) but not yet
// decided.
func (ps *PartialSolution) nextUndecided() (Package, bool) {
	for _, pkg := range ps.order {
		if pkg.Kind == KindRoot {
			continue
		}

		if !ps.isDecided(pkg) {
			return pkg, true
		}
	}

	return Package{}, false
}

// maxLevelOf returns the highest decision level among inc's terms'
// governing assignments — the level conflict resolution backtracks from.
func (ps *PartialSolution) maxLevelOf(inc *Incompatibility) int {
	max := 0

	for _, t := range inc.Terms {
		if lvl, ok := ps.levelOf(t.Pkg); ok && lvl > max {
			max = lvl
		}
	}

	return max
}

// levelOf returns the decision level at which pkg's range was last
// narrowed (its most recent assignment's level).
func (ps *PartialSolution) levelOf(pkg Package) (int, bool) {
	found := false

	level := 0

	for _, a := range ps.assignments {
		if a.Pkg == pkg {
			level = a.Level
			found = true
		}
	}

	return level, found
}

// packageDecidedAtLevel returns the package whose decision opened the
// given level, if any.
func (ps *PartialSolution) packageDecidedAtLevel(level int) (Package, bool) {
	for _, a := range ps.assignments {
		if a.Decision && a.Level == level {
			return a.Pkg, true
		}
	}

	return Package{}, false
}

// backtrackTo discards every assignment made at a decision level greater
// than level, restoring ranges/decisions to their state at that level.
func (ps *PartialSolution) backtrackTo(level int) {
	kept := ps.assignments[:0]

	ranges := map[Package]pep440.Range{}
	decisions := map[Package]pep440.Version{}
	seen := map[Package]bool{}

	var order []Package

	for _, a := range ps.assignments {
		if a.Level > level {
			continue
		}

		kept = append(kept, a)

		cur, ok := ranges[a.Pkg]
		if !ok {
			cur = pep440.Full()
		}

		ranges[a.Pkg] = cur.Intersect(a.Term.effectiveRange())

		if a.Decision {
			decisions[a.Pkg] = a.Version
		}

		if !seen[a.Pkg] {
			seen[a.Pkg] = true
			order = append(order, a.Pkg)
		}
	}

	ps.assignments = append([]assignment(nil), kept...)
	ps.ranges = ranges
	ps.decisions = decisions
	ps.seen = seen
	ps.order = order
	ps.level = level
}

// Clone returns an independent deep copy, for the fork engine to split
// state per fork.
func (ps *PartialSolution) Clone() *PartialSolution {
	out := NewPartialSolution()
	out.level = ps.level
	out.assignments = append(out.assignments, ps.assignments...)

	for k, v := range ps.ranges {
		out.ranges[k] = v
	}

	for k, v := range ps.decisions {
		out.decisions[k] = v
	}

	for k, v := range ps.seen {
		out.seen[k] = v
	}

	out.order = append(out.order, ps.order...)

	return out
}
