package pep440

import (
	"fmt"
	"regexp"
	"strings"

	upstream "github.com/aquasecurity/go-pep440-version"
)

// Operator is one of the comparison operators a PEP 440 specifier clause
// can use.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpCompatible   Operator = "~="
	OpArbitrary    Operator = "===" // string-equality escape hatch, not used for range lowering
)

// clauseRe splits one specifier clause ("~=1.2", "==1.2.*", ">=1.0") into
// its operator and version text.
var clauseRe = regexp.MustCompile(`^\s*(~=|==|!=|<=|>=|<|>|===)\s*(.+?)\s*$`)

// FromSpecifier lowers a single specifier clause to a Range.
func FromSpecifier(clause string) (Range, error) {
	m := clauseRe.FindStringSubmatch(clause)
	if m == nil {
		return Range{}, fmt.Errorf("pep440: invalid specifier clause %q", clause)
	}

	op, text := Operator(m[1]), m[2]

	if op == OpArbitrary {
		v, err := Parse(strings.TrimSuffix(text, ".*"))
		if err != nil {
			return Range{}, err
		}

		return exactArbitrary(v), nil
	}

	if wildcard := strings.HasSuffix(text, ".*"); wildcard {
		if op != OpEqual && op != OpNotEqual {
			return Range{}, fmt.Errorf("pep440: wildcard only valid with == or !=, got %q", clause)
		}

		v, err := Parse(strings.TrimSuffix(text, ".*"))
		if err != nil {
			return Range{}, err
		}

		r := prefixRange(v)
		if op == OpNotEqual {
			r = r.Complement()
		}

		return r, nil
	}

	v, err := Parse(text)
	if err != nil {
		return Range{}, err
	}

	switch op {
	case OpEqual:
		return Singleton(v), nil
	case OpNotEqual:
		return Singleton(v).Complement(), nil
	case OpLess:
		return lessThan(v), nil
	case OpLessEqual:
		return Range{intervals: []interval{{Lo: negInf, Hi: v.Next()}}}, nil
	case OpGreater:
		return greaterThan(v), nil
	case OpGreaterEqual:
		return Range{intervals: []interval{{Lo: v, Hi: posInf}}}, nil
	case OpCompatible:
		return compatible(v)
	default:
		return Range{}, fmt.Errorf("pep440: unsupported operator %q", op)
	}
}

// exactArbitrary implements `===V`: a raw string-equality comparison
// against the normalised version's release form, with no pre-release or
// local-label carve-outs. Used only for the legacy arbitrary-equality
// escape hatch.
func exactArbitrary(v Version) Range {
	return Range{intervals: []interval{{Lo: v, Hi: v.Next()}}}
}

// lessThan implements `<V`. Per the PEP, `<V` on a non-pre-release
// version must exclude all pre-releases of V: "<1.0" excludes "1.0.dev1"
// just as it excludes "1.0" itself. If V is itself a pre-release, the
// ordinary boundary already excludes later pre-releases of the same
// release, so no adjustment is needed.
func lessThan(v Version) Range {
	if v.IsPreRelease() {
		return Range{intervals: []interval{{Lo: negInf, Hi: v}}}
	}

	bound := v
	bound.Post = nil
	dev0 := 0
	bound.Dev = &dev0

	return Range{intervals: []interval{{Lo: negInf, Hi: bound}}}
}

// maxPost is a sentinel post-release number used to build a lower bound
// that ranks above every real post-release of the same release segment,
// while still comparing below any *later* release (release segments are
// compared before pre/post/dev, so the sentinel never leaks across a
// release boundary).
const maxPost = int(^uint(0) >> 1)

// greaterThan implements `>V`. Per the PEP, `>V` on a version that is not
// itself a post-release must exclude all post-releases of V, without
// otherwise disturbing ordinary successors like V.1 or a later release.
func greaterThan(v Version) Range {
	bound := v

	switch {
	case v.Dev != nil:
		d := *v.Dev + 1
		bound.Dev = &d
	case v.Post != nil:
		p := *v.Post + 1
		bound.Post = &p
	default:
		p := maxPost
		bound.Post = &p
	}

	return Range{intervals: []interval{{Lo: bound, Hi: posInf}}}
}

// compatible implements `~=X.Y(.Z...)`. It requires at least two release
// segments and lowers to [X.Y...Z, X.Y...(Z+1).dev0) where only the
// final release segment is incremented, keeping the prefix pinned.
func compatible(v Version) (Range, error) {
	if len(v.Release) < 2 {
		return Range{}, fmt.Errorf("pep440: ~= operator requires at least two release segments, got %q", v.String())
	}

	upper := v.Release[:len(v.Release)-1]
	lo := v

	hi := Version{Epoch: v.Epoch, Release: append(append([]int(nil), upper...), v.Release[len(v.Release)-1]+1)}
	dev0 := 0
	hi.Dev = &dev0

	return Range{intervals: []interval{{Lo: lo, Hi: hi}}}, nil
}

// prefixRange implements `==X.*` / the complement side of `!=X.*`:
// [X.dev0, X.next.dev0).
func prefixRange(v Version) Range {
	lo := v
	dev0 := 0
	lo.Dev = &dev0
	lo.Pre, lo.Post, lo.Local = nil, nil, nil

	hi := v.Next()

	return Range{intervals: []interval{{Lo: lo, Hi: hi}}}
}

// FromSpecifiers lowers a comma-separated list of clauses ("intersection
// of half-open intervals") to a single Range, starting from Full().
func FromSpecifiers(spec string) (Range, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Full(), nil
	}

	r := Full()

	for _, clause := range strings.Split(spec, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}

		cr, err := FromSpecifier(clause)
		if err != nil {
			return Range{}, err
		}

		r = r.Intersect(cr)
	}

	return r, nil
}

// ParseLenient validates a version string the way a tolerant client
// must: PyPI serves versions in the wild that do not round-trip through
// our strict grammar (stray whitespace, unusual pre-release spellings).
// It tries our own parser first and falls back to the upstream PEP 440
// parser's more permissive grammar, so a string either parser accepts is
// treated as valid.
func ParseLenient(s string) bool {
	s = strings.TrimSpace(s)
	if _, err := Parse(s); err == nil {
		return true
	}

	_, err := upstream.Parse(s)

	return err == nil
}
