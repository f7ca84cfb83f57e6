// Package pyreq implements the Python-requirement tracker:
// the interpreter version constraint that narrows as resolution
// descends, kept distinct from the installed interpreter's own range
// per the Rust original's python_requirement.rs.
package pyreq

import (
	"fmt"

	"github.com/bilusteknoloji/pvsolve/internal/pep440"
)

// Tracker holds the pair of ranges that matter for Python-version
// compatibility: the interpreter that is actually running (installed) and
// the requirement narrowing as
// dependencies are discovered (target). Keeping both lets a narrowing
// failure's derivation chain say which one was violated.
type Tracker struct {
	Installed pep440.Range
	Target    pep440.Range
}

// New starts a tracker with both ranges equal to the declared
// requires-python of the root manifest.
func New(requiresPython pep440.Range) *Tracker {
	return &Tracker{Installed: requiresPython, Target: requiresPython}
}

// NarrowError reports that intersecting a dependency's requires-python
// with the target emptied it.
type NarrowError struct {
	Package string
	Added   pep440.Range
	Prior   pep440.Range
}

func (e *NarrowError) Error() string {
	return fmt.Sprintf("pyreq: narrowing target python requirement by %s's requires-python produced an empty range", e.Package)
}

// Narrow intersects the tracker's target with r, as discovered from
// package pkg's requires-python metadata. It returns a *NarrowError
// if the result is empty; the
// tracker is left unmodified on error so the caller can still report the
// prior state in a derivation chain.
func (t *Tracker) Narrow(pkg string, r pep440.Range) error {
	next := t.Target.Intersect(r)
	if next.IsEmpty() {
		return &NarrowError{Package: pkg, Added: r, Prior: t.Target}
	}

	t.Target = next

	return nil
}

// Clone returns an independent copy for the fork engine to split
// alongside PubGrub state.
func (t *Tracker) Clone() *Tracker {
	return &Tracker{Installed: t.Installed, Target: t.Target}
}

// Satisfies reports whether v is compatible with the current target
// requirement.
func (t *Tracker) Satisfies(v pep440.Version) bool {
	return t.Target.Contains(v)
}
