package fork

import "github.com/bilusteknoloji/pvsolve/internal/pubgrub"

// Merge takes the disjoint union of every fork's nodes and unions edges
// that land on the same (from, to) pair by OR-ing their universal
// markers. When two forks resolve the same package to
// different versions, both appear as distinct nodes — NodeKey already
// carries the version, so nothing here needs to special-case it.
func Merge(forks []Fork) *pubgrub.Graph {
	merged := &pubgrub.Graph{Nodes: map[pubgrub.NodeKey]bool{}}

	type edgeKey struct {
		From pubgrub.Package
		To   pubgrub.NodeKey
	}

	edgeIndex := map[edgeKey]int{}

	for _, f := range forks {
		if f.Graph == nil {
			continue
		}

		for node := range f.Graph.Nodes {
			merged.Nodes[node] = true
		}

		for _, e := range f.Graph.Edges {
			key := edgeKey{From: e.From, To: e.To}

			if idx, ok := edgeIndex[key]; ok {
				merged.Edges[idx].Marker = merged.Edges[idx].Marker.Or(e.Marker)

				continue
			}

			edgeIndex[key] = len(merged.Edges)
			merged.Edges = append(merged.Edges, e)
		}
	}

	return merged
}
