package versionmap

import (
	"sort"

	"github.com/bilusteknoloji/pvsolve/internal/pep440"
	"github.com/bilusteknoloji/pvsolve/internal/requirement"
	"github.com/bilusteknoloji/pvsolve/internal/simpleapi"
)

// Candidate is one version's compatibility summary: its artifacts, yank
// state, requires-python, and — if it was excluded — why.
type Candidate struct {
	Version        pep440.Version
	Wheels         []Artifact // sorted by ascending Priority (best first)
	Sdist          *Artifact
	RequiresPython pep440.Range
	Yanked         *YankReason
	Unavailable    *Unavailable // nil iff selectable
}

// Selectable reports whether the solver may pick this candidate at all.
func (c *Candidate) Selectable() bool { return c != nil && c.Unavailable == nil }

// BuildOptions controls how a Map is built from a simple-index page:
// which Python is running, and whether binary or source artifacts are
// allowed.
type BuildOptions struct {
	Tags           Tags
	PythonRequired pep440.Range // the active Python requirement, step 3
	NoBinary       bool         // forbid wheels, step 5
	NoBuild        bool         // forbid sdists, step 5
	Pin            pep440.Range // the user's own specifier; non-full enables yank bypass, step 4
}

// Map is the per-package ordered set of candidate versions, every version
// classified up front by Build.
// Versions iterate in decreasing order, the default strategy's order;
// NextCompatible seeks in O(log n).
type Map struct {
	Package  requirement.PackageName
	versions []pep440.Version // sorted decreasing
	byKey    map[string]*Candidate
}

// Pinned builds a single-candidate Map for a package whose version is
// already fixed by something other than an index — a direct URL, Git
// reference, or local path — rather than discovered by classifying
// simple-index files. The candidate carries no artifacts and an
// unrestricted requires-python, since a direct source is fetched and
// built by its own mechanism rather than selected among wheels/sdists.
func Pinned(pkg requirement.PackageName, v pep440.Version) *Map {
	return &Map{
		Package:  pkg,
		versions: []pep440.Version{v},
		byKey: map[string]*Candidate{
			v.String(): {Version: v, RequiresPython: pep440.Full()},
		},
	}
}

// Build constructs a Map from one simple-index project page.
func Build(pkg requirement.PackageName, page *simpleapi.ProjectPage, opts BuildOptions) (*Map, error) {
	type group struct {
		version pep440.Version
		files   []simpleapi.File
	}

	groups := map[string]*group{}

	for _, f := range page.Files {
		v, ok := versionOfFilename(f.Filename)
		if !ok {
			continue
		}

		key := v.String()

		g, ok := groups[key]
		if !ok {
			g = &group{version: v}
			groups[key] = g
		}

		g.files = append(g.files, f)
	}

	m := &Map{Package: pkg, byKey: map[string]*Candidate{}}

	for key, g := range groups {
		m.byKey[key] = classify(g.version, g.files, opts)
		m.versions = append(m.versions, g.version)
	}

	sort.Slice(m.versions, func(i, j int) bool {
		return pep440.Compare(m.versions[i], m.versions[j]) > 0
	})

	return m, nil
}

func versionOfFilename(filename string) (pep440.Version, bool) {
	if wf, err := ParseWheelFilename(filename); err == nil {
		return wf.Version, true
	}

	if v, ok := sdistVersion(filename); ok {
		return v, true
	}

	return pep440.Version{}, false
}

// classify partitions one version's files into wheels/sdist, computes
// tag priority, intersects requires-python, and applies yank/no-binary
// policy.E steps 1-5.
func classify(v pep440.Version, files []simpleapi.File, opts BuildOptions) *Candidate {
	c := &Candidate{Version: v, RequiresPython: pep440.Full()}

	var anyArtifact bool

	var yanked *YankReason

	for _, f := range files {
		a := artifactFromFile(f)

		if a.Yanked != nil {
			yanked = a.Yanked
		}

		if rng, err := pep440.FromSpecifiers(f.RequiresPython); err == nil {
			c.RequiresPython = c.RequiresPython.Intersect(rng)
		}

		if wf, err := ParseWheelFilename(f.Filename); err == nil {
			if opts.NoBinary {
				continue
			}

			priority, ok := opts.Tags.Best(wf.Tags)
			if !ok {
				continue // incompatible wheel, dropped per step 2
			}

			a.IsWheel = true
			a.Tags = wf.Tags
			a.Priority = priority
			c.Wheels = append(c.Wheels, a)
			anyArtifact = true

			continue
		}

		if _, ok := sdistVersion(f.Filename); ok {
			if opts.NoBuild {
				continue
			}

			sd := a
			c.Sdist = &sd
			anyArtifact = true
		}
	}

	sortWheelsByPriority(c.Wheels)

	c.Yanked = yanked

	switch {
	case !anyArtifact:
		c.Unavailable = &Unavailable{Kind: UnavailableNoWheelsOrSdist}
	case len(c.Wheels) == 0 && c.Sdist == nil:
		c.Unavailable = &Unavailable{Kind: UnavailableIncompatibleTags}
	}

	if c.Unavailable == nil && opts.PythonRequired.IsDisjoint(c.RequiresPython) {
		c.Unavailable = &Unavailable{Kind: UnavailableRequiresPython}
	}

	if c.Unavailable == nil && yanked != nil {
		// A yanked version is selectable only if the user's specifier
		// pins it exactly.
		if !isExactPin(opts.Pin, v) {
			c.Unavailable = &Unavailable{Kind: UnavailableYanked, Detail: yanked.Reason}
		}
	}

	return c
}

// isExactPin reports whether r can only ever be satisfied by v itself,
// the half-open-singleton shape `Singleton` produces for `==v`: true iff
// r and {v} are subsets of one another.
func isExactPin(r pep440.Range, v pep440.Version) bool {
	if r.IsFull() || r.IsEmpty() {
		return false
	}

	singleton := pep440.Singleton(v)

	return r.IsSubsetOf(singleton) && singleton.IsSubsetOf(r)
}

// Versions returns every known version, decreasing order.
func (m *Map) Versions() []pep440.Version { return m.versions }

// Candidate returns the classified candidate for v, or nil if v was
// never listed.
func (m *Map) Candidate(v pep440.Version) *Candidate {
	return m.byKey[v.String()]
}

// NextCompatible returns the best (per the default decreasing-version
// order) selectable version in r strictly after (in iteration order)
// `after`, or ok=false if exhausted. Because m.versions is sorted and
// each candidate's selectability is precomputed, this walks past
// already-known-incompatible versions in a single binary-searched
// starting point plus a linear scan bounded by excluded versions, which
// is an O(log n) "start" plus a linear "skip cheaply" scan. A version
// excluded only for being yanked counts as selectable when r pins exactly
// that version.
func (m *Map) NextCompatible(r pep440.Range, after *pep440.Version) (pep440.Version, bool) {
	start := 0

	if after != nil {
		start = sort.Search(len(m.versions), func(i int) bool {
			return pep440.Compare(m.versions[i], *after) < 0
		})
	}

	for i := start; i < len(m.versions); i++ {
		v := m.versions[i]
		if !r.Contains(v) {
			continue
		}

		c := m.byKey[v.String()]
		if c.Selectable() || (c != nil && c.Unavailable.Kind == UnavailableYanked && isExactPin(r, v)) {
			return v, true
		}
	}

	return pep440.Version{}, false
}

// Lowest is NextCompatible's mirror for the Lowest strategy: the lowest
// selectable version in r strictly after `after` in increasing order.
func (m *Map) Lowest(r pep440.Range, after *pep440.Version) (pep440.Version, bool) {
	start := 0

	if after != nil {
		start = sort.Search(len(m.versions), func(i int) bool {
			return pep440.Compare(m.versions[i], *after) <= 0
		})
	}

	for i := len(m.versions) - 1; i >= 0; i-- {
		v := m.versions[i]

		if after != nil && i >= start {
			continue
		}

		if !r.Contains(v) {
			continue
		}

		c := m.byKey[v.String()]
		if c.Selectable() || (c != nil && c.Unavailable.Kind == UnavailableYanked && isExactPin(r, v)) {
			return v, true
		}
	}

	return pep440.Version{}, false
}

func sdistVersion(filename string) (pep440.Version, bool) {
	name, ok := stripSdistSuffix(filename)
	if !ok {
		return pep440.Version{}, false
	}

	idx := lastDashBeforeVersion(name)
	if idx < 0 {
		return pep440.Version{}, false
	}

	v, err := pep440.Parse(name[idx+1:])
	if err != nil {
		return pep440.Version{}, false
	}

	return v, true
}

var sdistSuffixes = []string{".tar.gz", ".zip", ".tar.bz2", ".tar.xz"}

func stripSdistSuffix(filename string) (string, bool) {
	for _, suf := range sdistSuffixes {
		if len(filename) > len(suf) && filename[len(filename)-len(suf):] == suf {
			return filename[:len(filename)-len(suf)], true
		}
	}

	return "", false
}

func lastDashBeforeVersion(name string) int {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '-' {
			return i
		}
	}

	return -1
}
