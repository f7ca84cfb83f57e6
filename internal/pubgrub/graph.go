package pubgrub

import (
	"github.com/bilusteknoloji/pvsolve/internal/markers"
	"github.com/bilusteknoloji/pvsolve/internal/pep440"
)

// NodeKey identifies one resolved node: a package at a version, with
// extras represented here as separate KindExtra Package nodes rather than a
// set field, so NodeKey stays a plain comparable map key.
type NodeKey struct {
	Pkg     Package
	Version pep440.Version
}

// Graph is one fork's resolved dependency graph: a set of nodes (each
// reached by at least one edge) and the edges between them, gated by
// universal markers. internal/fork merges one Graph per fork into the
// final universal graph.
type Graph struct {
	Nodes map[NodeKey]bool
	Edges []GraphEdge
}

// GraphEdge is one edge of the resolution graph: From may be the
// synthetic root.
type GraphEdge struct {
	From   Package
	To     NodeKey
	Marker markers.UniversalMarker
}

// BuildGraph converts a completed Result into a Graph: every decided
// non-root package becomes a node, and every recorded Edge whose target
// was actually decided becomes a graph edge (an edge whose target was
// never decided means that dependency's own marker never matched, so it
// is dropped rather than dangling).
func BuildGraph(res *Result) *Graph {
	g := &Graph{Nodes: map[NodeKey]bool{}}

	versionOf := func(pkg Package) (pep440.Version, bool) {
		return res.Solution.decisionVersion(pkg)
	}

	for pkg := range res.Solution.seen {
		if pkg.Kind == KindRoot {
			continue
		}

		if v, ok := versionOf(pkg); ok {
			g.Nodes[NodeKey{Pkg: pkg, Version: v}] = true
		}
	}

	for _, e := range res.Edges {
		v, ok := versionOf(e.To)
		if !ok {
			continue
		}

		g.Edges = append(g.Edges, GraphEdge{From: e.From, To: NodeKey{Pkg: e.To, Version: v}, Marker: e.Marker})
	}

	return g
}
