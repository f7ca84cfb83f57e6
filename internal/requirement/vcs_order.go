package requirement

import goversion "github.com/aquasecurity/go-version/pkg/version"

// CompareNonRegistry orders two Git or Path sources that name the same
// package when a tie-break is needed (e.g. reporting candidates in a
// derivation chain): refs that aren't PEP 440 versions (branch names,
// arbitrary revs) still need a total order, so it falls back to the
// pack's generic version comparator rather than inventing one.
//
// Sources that carry no comparable ref (a bare default-branch Git source,
// or a Path source) sort before any that do.
func CompareNonRegistry(a, b Source) int {
	refA, okA := refText(a)
	refB, okB := refText(b)

	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}

	va, errA := goversion.Parse(refA)
	vb, errB := goversion.Parse(refB)

	if errA != nil || errB != nil {
		if refA == refB {
			return 0
		}

		if refA < refB {
			return -1
		}

		return 1
	}

	return va.Compare(vb)
}

func refText(s Source) (string, bool) {
	switch s.Kind {
	case SourceGit:
		switch {
		case s.Reference.Tag != "":
			return s.Reference.Tag, true
		case s.Reference.Branch != "":
			return s.Reference.Branch, true
		case s.Reference.Rev != "":
			return s.Reference.Rev, true
		default:
			return "", false
		}
	default:
		return "", false
	}
}
