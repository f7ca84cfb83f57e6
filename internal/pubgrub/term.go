package pubgrub

import "github.com/bilusteknoloji/pvsolve/internal/pep440"

// Term is one package-scoped assertion inside an Incompatibility: either
// "pkg's version lies in Range" (Positive) or its negation.
type Term struct {
	Pkg      Package
	Range    pep440.Range
	Positive bool
}

// effectiveRange is the range of versions for which this term, taken in
// isolation, holds true.
func (t Term) effectiveRange() pep440.Range {
	if t.Positive {
		return t.Range
	}

	return t.Range.Complement()
}

// relationKind is the outcome of comparing an Incompatibility against a
// PartialSolution, per the standard PubGrub vocabulary.
type relationKind int

const (
	relationInconclusive relationKind = iota
	relationContradicted
	relationAlmostSatisfied
	relationSatisfied
)
