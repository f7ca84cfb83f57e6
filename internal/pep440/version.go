// Package pep440 implements version parsing, total ordering, and the
// specifier/range algebra described by the Python version-numbering PEP.
//
// Parsing and simple comparisons are cross-checked against
// github.com/aquasecurity/go-pep440-version (see ParseLenient, a tolerant
// validity check for the wild, sometimes-malformed version strings PyPI
// actually serves); the structural decomposition below (epoch,
// release segments, pre/post/dev, local) and the Range interval algebra
// are implemented directly because that library exposes only an opaque,
// comparable Version and a specifier Check() method, not the segment
// access that Range.FromSpecifier's edge cases require. See DESIGN.md.
package pep440

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is PEP 440's (epoch, release, pre, post, dev, local) tuple.
// The zero value is not a valid version; use Parse or MustParse.
type Version struct {
	// infinity is 0 for a normal version, -1 for the sentinel that
	// compares below every real version, +1 for the sentinel that
	// compares above every real version. Used internally by Range to
	// express unbounded intervals without a pointer/bool pair at every
	// call site.
	infinity int8

	Epoch   int
	Release []int
	Pre     *PreRelease
	Post    *int
	Dev     *int
	Local   []LocalSegment
}

// PreRelease is the "a", "b", or "rc" segment of a version.
type PreRelease struct {
	Phase string // normalised to "a", "b", or "rc"
	N     int
}

// LocalSegment is one dot-separated piece of a local version label.
// Numeric pieces compare numerically and rank above alphanumeric pieces.
type LocalSegment struct {
	Numeric bool
	Num     int
	Str     string
}

// negInf and posInf are Versions that compare below/above every version
// Parse can produce. They let Range represent unbounded intervals with
// ordinary Version values instead of optional bounds everywhere.
var (
	negInf = Version{infinity: -1}
	posInf = Version{infinity: 1}
)

var preReleaseSpelling = map[string]string{
	"a": "a", "alpha": "a",
	"b": "b", "beta": "b",
	"c": "rc", "rc": "rc", "pre": "rc", "preview": "rc",
}

// versionRe matches the public-version grammar of PEP 440 plus an
// optional local version label.
var versionRe = regexp.MustCompile(
	`^\s*` +
		`(?:(?P<epoch>[0-9]+)!)?` +
		`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
		`(?:(?P<pre_l>a|b|c|rc|alpha|beta|pre|preview)(?:[-_.]?)(?P<pre_n>[0-9]*))?` +
		`(?:(?:-(?P<post_n1>[0-9]+))|(?:[-_.]?(?:post|rev|r)(?:[-_.]?(?P<post_n2>[0-9]*))))?` +
		`(?:[-_.]?dev(?:[-_.]?(?P<dev_n>[0-9]*)))?` +
		`(?:\+(?P<local>[a-zA-Z0-9]+(?:[-_.][a-zA-Z0-9]+)*))?` +
		`\s*$`,
)

// Parse parses a PEP 440 version string.
func Parse(s string) (Version, error) {
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("pep440: invalid version %q", s)
	}

	groups := make(map[string]string, len(m))
	for i, name := range versionRe.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}

		groups[name] = m[i]
	}

	v := Version{}

	if e := groups["epoch"]; e != "" {
		n, _ := strconv.Atoi(e)
		v.Epoch = n
	}

	for _, seg := range strings.Split(groups["release"], ".") {
		n, err := strconv.Atoi(seg)
		if err != nil {
			return Version{}, fmt.Errorf("pep440: invalid release segment %q in %q", seg, s)
		}

		v.Release = append(v.Release, n)
	}

	if phase := groups["pre_l"]; phase != "" {
		canon, ok := preReleaseSpelling[strings.ToLower(phase)]
		if !ok {
			return Version{}, fmt.Errorf("pep440: unknown pre-release phase %q", phase)
		}

		n := 0
		if raw := groups["pre_n"]; raw != "" {
			n, _ = strconv.Atoi(raw)
		}

		v.Pre = &PreRelease{Phase: canon, N: n}
	}

	if raw := groups["post_n1"]; raw != "" {
		n, _ := strconv.Atoi(raw)
		v.Post = &n
	} else if _, present := groups["post_n2"]; present && hasPostKeyword(s) {
		n := 0
		if raw := groups["post_n2"]; raw != "" {
			n, _ = strconv.Atoi(raw)
		}

		v.Post = &n
	}

	if hasDevKeyword(s) {
		n := 0
		if raw := groups["dev_n"]; raw != "" {
			n, _ = strconv.Atoi(raw)
		}

		v.Dev = &n
	}

	if local := groups["local"]; local != "" {
		v.Local = parseLocal(local)
	}

	return v, nil
}

// hasPostKeyword and hasDevKeyword disambiguate the optional, possibly
// empty, numeric capture groups above from genuinely absent segments:
// the regex group can be present-but-empty ("1.0.post") as well as
// fully absent, and Go's regexp gives both the same empty string.
func hasPostKeyword(s string) bool {
	return regexp.MustCompile(`(?i)(^|[-_.0-9])(post|rev|r)([-_.]?[0-9]*)?($|\+)`).MatchString(strings.ToLower(s)) ||
		regexp.MustCompile(`-[0-9]+`).MatchString(s)
}

func hasDevKeyword(s string) bool {
	return regexp.MustCompile(`(?i)[-_.]?dev[-_.]?[0-9]*($|\+)`).MatchString(s)
}

func parseLocal(s string) []LocalSegment {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})

	segs := make([]LocalSegment, 0, len(parts))

	for _, p := range parts {
		p = strings.ToLower(p)
		if n, err := strconv.Atoi(p); err == nil {
			segs = append(segs, LocalSegment{Numeric: true, Num: n})
		} else {
			segs = append(segs, LocalSegment{Str: p})
		}
	}

	return segs
}

// MustParse is Parse but panics on error; intended for literals in tests
// and constant construction, never for untrusted input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return v
}

// String renders the version in canonical PEP 440 form.
func (v Version) String() string {
	var b strings.Builder

	if v.Epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.Epoch)
	}

	for i, seg := range v.Release {
		if i > 0 {
			b.WriteByte('.')
		}

		fmt.Fprintf(&b, "%d", seg)
	}

	if v.Pre != nil {
		fmt.Fprintf(&b, "%s%d", v.Pre.Phase, v.Pre.N)
	}

	if v.Post != nil {
		fmt.Fprintf(&b, ".post%d", *v.Post)
	}

	if v.Dev != nil {
		fmt.Fprintf(&b, ".dev%d", *v.Dev)
	}

	if len(v.Local) > 0 {
		b.WriteByte('+')

		for i, seg := range v.Local {
			if i > 0 {
				b.WriteByte('.')
			}

			if seg.Numeric {
				fmt.Fprintf(&b, "%d", seg.Num)
			} else {
				b.WriteString(seg.Str)
			}
		}
	}

	return b.String()
}

// IsPreRelease reports whether v has a pre-release or dev segment.
// Post-only releases are not pre-releases.
func (v Version) IsPreRelease() bool {
	return v.Pre != nil || v.Dev != nil
}

// OnlyRelease drops pre/post/dev/local segments, keeping epoch and
// release only.
func (v Version) OnlyRelease() Version {
	return Version{Epoch: v.Epoch, Release: append([]int(nil), v.Release...)}
}

// Next returns the smallest version greater than v's release segments,
// used to turn an exact pin "==X" into the half-open range [X, X.next).
// It increments the final release segment and clears pre/post/dev/local,
// tagging the result as a dev0 of that bumped release so that it sorts
// strictly below any real release of the bumped segment (matching the
// Rust original's `version.next()`, which appends a synthetic dev0).
func (v Version) Next() Version {
	release := append([]int(nil), v.Release...)
	if len(release) == 0 {
		release = []int{0}
	}

	release[len(release)-1]++
	dev := 0

	return Version{Epoch: v.Epoch, Release: release, Dev: &dev}
}

// WithoutTrailingZeros trims trailing zero release segments, keeping at
// least one segment, e.g. "3.10.0" -> "3.10".
func (v Version) WithoutTrailingZeros() Version {
	release := append([]int(nil), v.Release...)
	for len(release) > 1 && release[len(release)-1] == 0 {
		release = release[:len(release)-1]
	}

	out := v
	out.Release = release

	return out
}

// Compare implements the total order from the PEP: epoch, then release
// (shorter sequences treated as zero-padded), then the dev/pre/post
// "phase" of the release, then the local version label. It is used for
// sorting and for Range.Contains membership once local labels have
// already been normalised away by the caller where the PEP's equality
// carve-out applies (see Range.Contains).
func Compare(a, b Version) int {
	if a.infinity != 0 || b.infinity != 0 {
		if a.infinity == b.infinity {
			return 0
		}

		if a.infinity < b.infinity {
			return -1
		}

		return 1
	}

	if c := compareInt(a.Epoch, b.Epoch); c != 0 {
		return c
	}

	if c := compareRelease(a.Release, b.Release); c != 0 {
		return c
	}

	if c := comparePhase(a, b); c != 0 {
		return c
	}

	return compareLocal(a.Local, b.Local)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareRelease(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}

	for i := range n {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}

		if i < len(b) {
			bv = b[i]
		}

		if c := compareInt(av, bv); c != 0 {
			return c
		}
	}

	return 0
}

// phaseRank orders, within one release: dev-only (no pre, no post) <
// pre-release < final/post-release. preKey/postKey/devKey below mirror
// the canonical algorithm used by the `packaging` reference
// implementation (NegativeInfinity/Infinity sentinels per field).
func comparePhase(a, b Version) int {
	if c := comparePreKey(a, b); c != 0 {
		return c
	}

	if c := comparePostKey(a, b); c != 0 {
		return c
	}

	return compareDevKey(a, b)
}

func preRank(v Version) int {
	switch {
	case v.Pre == nil && v.Dev != nil && v.Post == nil:
		return -1
	case v.Pre == nil:
		return 1
	default:
		return 0
	}
}

func comparePreKey(a, b Version) int {
	ra, rb := preRank(a), preRank(b)
	if c := compareInt(ra, rb); c != 0 {
		return c
	}

	if ra != 0 {
		return 0
	}

	if c := compareInt(phaseOrder(a.Pre.Phase), phaseOrder(b.Pre.Phase)); c != 0 {
		return c
	}

	return compareInt(a.Pre.N, b.Pre.N)
}

func phaseOrder(phase string) int {
	switch phase {
	case "a":
		return 0
	case "b":
		return 1
	case "rc":
		return 2
	default:
		return 3
	}
}

func comparePostKey(a, b Version) int {
	an, bn := a.Post != nil, b.Post != nil
	if !an && !bn {
		return 0
	}

	if !an {
		return -1
	}

	if !bn {
		return 1
	}

	return compareInt(*a.Post, *b.Post)
}

func compareDevKey(a, b Version) int {
	an, bn := a.Dev != nil, b.Dev != nil
	if !an && !bn {
		return 0
	}

	if !an {
		return 1
	}

	if !bn {
		return -1
	}

	return compareInt(*a.Dev, *b.Dev)
}

func compareLocal(a, b []LocalSegment) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}

	for i := range n {
		if i >= len(a) {
			return -1
		}

		if i >= len(b) {
			return 1
		}

		if c := compareLocalSegment(a[i], b[i]); c != 0 {
			return c
		}
	}

	return 0
}

func compareLocalSegment(a, b LocalSegment) int {
	if a.Numeric && b.Numeric {
		return compareInt(a.Num, b.Num)
	}

	if a.Numeric != b.Numeric {
		// Numeric segments always sort above alphanumeric ones.
		if a.Numeric {
			return 1
		}

		return -1
	}

	return strings.Compare(a.Str, b.Str)
}

// WithoutLocal returns v with its local label stripped, used to
// implement PEP 440's equality carve-out: a version with a local label
// satisfies a range the same way its public form would.
func (v Version) WithoutLocal() Version {
	out := v
	out.Local = nil

	return out
}

// Equal reports exact equality, including local labels — the semantics
// needed by the bare `==` (without `.*`) operator, as distinct from
// Range containment which ignores local labels.
func Equal(a, b Version) bool {
	return Compare(a, b) == 0
}
