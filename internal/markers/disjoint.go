package markers

import "github.com/bilusteknoloji/pvsolve/internal/pep440"

// clause is one conjunction of atoms, the unit a DNF is built from.
type clause []atom

// toDNF rewrites t into a disjunction of conjunctions. Negation is pushed
// down to the leaves via De Morgan's laws so every atom that survives is
// a positive or negated leaf clause, never a compound negation.
func toDNF(t Tree) []clause {
	switch t.kind {
	case kindTrue:
		return []clause{nil}
	case kindAtom:
		return []clause{{atom{t.key, t.op, t.value}}}
	case kindAnd:
		acc := []clause{nil}
		for _, c := range t.children {
			acc = crossJoin(acc, toDNF(c))
		}

		return acc
	case kindOr:
		var acc []clause
		for _, c := range t.children {
			acc = append(acc, toDNF(c)...)
		}

		return acc
	case kindNot:
		return toDNF(negate(t.children[0]))
	default:
		return []clause{nil}
	}
}

func crossJoin(a, b []clause) []clause {
	out := make([]clause, 0, len(a)*len(b))

	for _, ca := range a {
		for _, cb := range b {
			merged := make(clause, 0, len(ca)+len(cb))
			merged = append(merged, ca...)
			merged = append(merged, cb...)
			out = append(out, merged)
		}
	}

	return out
}

// negate pushes a logical negation down to atoms, flipping AND/OR per
// De Morgan's laws and each atom's operator.
func negate(t Tree) Tree {
	switch t.kind {
	case kindTrue:
		return Tree{kind: kindAtom, key: "", op: OpEqual, value: "__unsat__"}
	case kindAtom:
		return Tree{kind: kindAtom, key: t.key, op: negateOp(t.op), value: t.value}
	case kindNot:
		return t.children[0]
	case kindAnd:
		negated := make([]Tree, len(t.children))
		for i, c := range t.children {
			negated[i] = negate(c)
		}

		return Or(negated...)
	case kindOr:
		negated := make([]Tree, len(t.children))
		for i, c := range t.children {
			negated[i] = negate(c)
		}

		return And(negated...)
	default:
		return t
	}
}

func negateOp(op Op) Op {
	switch op {
	case OpEqual:
		return OpNotEqual
	case OpNotEqual:
		return OpEqual
	case OpLess:
		return OpGreaterEq
	case OpLessEq:
		return OpGreater
	case OpGreater:
		return OpLessEq
	case OpGreaterEq:
		return OpLess
	case OpIn:
		return OpNotIn
	case OpNotIn:
		return OpIn
	default:
		return op
	}
}

// Disjoint reports whether no environment satisfies both t and other: the
// decision procedure the fork engine uses to test whether two
// requirements on the same package can ever both apply. It is sound
// (true only when genuinely disjoint) by construction: every pair of
// conjunctions from each tree's DNF is checked for joint satisfiability
// over finite string domains and, for version-valued keys, the pep440
// Range algebra.
func (t Tree) Disjoint(other Tree) bool {
	left := toDNF(t)
	right := toDNF(other)

	for _, a := range left {
		for _, b := range right {
			if clauseSatisfiable(append(append(clause(nil), a...), b...)) {
				return false
			}
		}
	}

	return true
}

// clauseSatisfiable decides whether a single conjunction of atoms can
// ever hold, by grouping atoms per key: version-valued keys intersect
// their Range translations, finite-domain keys track a required equality
// value and a set of forbidden ones.
func clauseSatisfiable(c clause) bool {
	versionRanges := map[Key]pep440.Range{}
	equalities := map[Key]string{}
	inequalities := map[Key]map[string]bool{}
	requiredExtras := map[string]bool{}

	for _, a := range c {
		if a.key == "" {
			return false // the unsatisfiable sentinel from negate(True())
		}

		if a.key.isVersionValued() {
			r, err := pep440.FromSpecifier(string(a.op) + a.value)
			if err != nil {
				continue
			}

			cur, ok := versionRanges[a.key]
			if !ok {
				cur = pep440.Full()
			}

			versionRanges[a.key] = cur.Intersect(r)

			continue
		}

		switch a.op {
		case OpEqual:
			if a.key == KeyExtra {
				requiredExtras[a.value] = true // several extras can be active at once
				continue
			}

			if existing, ok := equalities[a.key]; ok && existing != a.value {
				return false
			}

			equalities[a.key] = a.value
		case OpNotEqual, OpNotIn:
			if inequalities[a.key] == nil {
				inequalities[a.key] = map[string]bool{}
			}

			inequalities[a.key][a.value] = true
		}
	}

	for k, r := range versionRanges {
		if r.IsEmpty() {
			_ = k
			return false
		}
	}

	for k, v := range equalities {
		if inequalities[k] != nil && inequalities[k][v] {
			return false
		}
	}

	for e := range requiredExtras {
		if inequalities[KeyExtra][e] {
			return false
		}
	}

	return true
}
