package pubgrub

import (
	"fmt"
	"strings"

	"github.com/bilusteknoloji/pvsolve/internal/resolveerrors"
)

// newNoSolutionError builds the fatal error PubGrub core returns when no
// assignment satisfies the manifest's requirements, reusing the shared resolveerrors.NoSolutionError type
// so callers outside this package dispatch on one taxonomy. Chain is the
// rendered derivation: each incompatibility as "<detail> (<cause>)",
// joined with "; ", starting at the contradiction, built by a BFS over the
// learned-incompatibility DAG exactly as the Rust original's
// resolver/derivation.rs does, rather
// than reporting only the last learned incompatibility.
func newNoSolutionError(conflict *Incompatibility) *resolveerrors.NoSolutionError {
	return &resolveerrors.NoSolutionError{Chain: renderChain(conflict)}
}

// renderChain performs a BFS from the failing incompatibility back
// through its From[0]/From[1] derivation edges to the incompatibilities
// with no derivation parents (root/dependency/no-versions/unavailable
// causes), rendering each hop as "<detail> (<cause>)".
func renderChain(conflict *Incompatibility) string {
	var lines []string

	visited := map[int]bool{}

	queue := []*Incompatibility{conflict}

	for len(queue) > 0 {
		inc := queue[0]
		queue = queue[1:]

		if inc == nil || visited[inc.id] {
			continue
		}

		visited[inc.id] = true

		lines = append(lines, describeIncompatibility(inc))

		if inc.Cause == CauseConflict {
			queue = append(queue, inc.From[0], inc.From[1])
		}
	}

	if len(lines) == 0 {
		return "no derivation available"
	}

	return strings.Join(lines, "; ")
}

func describeIncompatibility(inc *Incompatibility) string {
	if inc.Detail != "" {
		return fmt.Sprintf("%s (%s)", inc.Detail, inc.Cause)
	}

	return fmt.Sprintf("%s (%s)", inc.String(), inc.Cause)
}
