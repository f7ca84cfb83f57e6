package markers

import "github.com/bilusteknoloji/pvsolve/internal/pep440"

// Simplify drops clauses of t that are entailed by known, so that a
// universal marker narrowed by a declared requires-python range doesn't
// carry redundant python_version atoms into the lockfile. Only the
// common, lockfile-relevant case is handled: a version-valued atom whose
// Range is a superset of known's Range for the same key is redundant and
// is replaced by True.
func (t Tree) Simplify(known Tree) Tree {
	knownRanges := versionRangesOf(known)

	return simplifyAtoms(t, knownRanges)
}

func versionRangesOf(t Tree) map[Key]pep440.Range {
	ranges := map[Key]pep440.Range{}

	for _, c := range toDNF(t) {
		for _, a := range c {
			if !a.key.isVersionValued() {
				continue
			}

			r, err := pep440.FromSpecifier(string(a.op) + a.value)
			if err != nil {
				continue
			}

			cur, ok := ranges[a.key]
			if !ok {
				cur = pep440.Full()
			}

			ranges[a.key] = cur.Intersect(r)
		}
	}

	return ranges
}

func simplifyAtoms(t Tree, known map[Key]pep440.Range) Tree {
	switch t.kind {
	case kindAtom:
		if !t.key.isVersionValued() {
			return t
		}

		kr, ok := known[t.key]
		if !ok {
			return t
		}

		r, err := pep440.FromSpecifier(string(t.op) + t.value)
		if err != nil {
			return t
		}

		if kr.IsSubsetOf(r) {
			return True()
		}

		return t
	case kindNot:
		return Not(simplifyAtoms(t.children[0], known))
	case kindAnd:
		children := make([]Tree, len(t.children))
		for i, c := range t.children {
			children[i] = simplifyAtoms(c, known)
		}

		return And(children...)
	case kindOr:
		children := make([]Tree, len(t.children))
		for i, c := range t.children {
			children[i] = simplifyAtoms(c, known)
		}

		return Or(children...)
	default:
		return t
	}
}

// UniversalMarker pairs a PEP 508 marker with a conflict marker encoding
// which extras of which packages must or must not be active. An edge is
// live iff both halves evaluate true.
type UniversalMarker struct {
	Pep508   Tree
	Conflict Tree
}

// UniversalTrue is the universal marker satisfied unconditionally.
func UniversalTrue() UniversalMarker {
	return UniversalMarker{Pep508: True(), Conflict: True()}
}

// Evaluate reports whether m holds for env with the given active extras.
func (m UniversalMarker) Evaluate(env Env, extras map[string]bool) bool {
	return m.Pep508.Evaluate(env, extras) && m.Conflict.Evaluate(env, extras)
}

// And combines two universal markers conjunctively (an edge gated by both
// conditions in sequence, e.g. a base requirement's marker refined by an
// extra's own marker).
func (m UniversalMarker) And(other UniversalMarker) UniversalMarker {
	return UniversalMarker{
		Pep508:   And(m.Pep508, other.Pep508),
		Conflict: And(m.Conflict, other.Conflict),
	}
}

// Or combines two universal markers disjunctively: the "OR their
// universal markers" merge rule used when two forks produce edges to the
// same (package, version, extras) node.
func (m UniversalMarker) Or(other UniversalMarker) UniversalMarker {
	return UniversalMarker{
		Pep508:   Or(m.Pep508, other.Pep508),
		Conflict: Or(m.Conflict, other.Conflict),
	}
}

// IsTrue reports whether m is the unconditional universal marker.
func (m UniversalMarker) IsTrue() bool {
	return m.Pep508.IsTrue() && m.Conflict.IsTrue()
}

// Disjoint reports whether m and other can never both be true for any
// environment and extra activation.
func (m UniversalMarker) Disjoint(other UniversalMarker) bool {
	return m.Pep508.Disjoint(other.Pep508) || m.Conflict.Disjoint(other.Conflict)
}
