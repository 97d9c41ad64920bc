// Package flowgraph aggregates customer journeys into a weighted directed
// transition graph that is guaranteed to be acyclic, for Sankey-style flow
// rendering.
package flowgraph

// Node is a channel in the flow graph.
type Node struct {
	ID string `json:"id"`
}

// Edge is an aggregated transition between two distinct channels. Value is the
// number of times the transition occurred across all journeys.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Value  int    `json:"value"`
}

// Graph is the flow graph built from one journey batch.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
	// Rejected holds candidate transitions dropped because admitting them
	// would have closed a cycle.
	Rejected []Edge `json:"rejected,omitempty"`
}

// Stats summarizes a Graph.
type Stats struct {
	TotalNodes    int `json:"total_nodes"`
	TotalEdges    int `json:"total_edges"`
	RejectedEdges int `json:"rejected_edges"`
	// Transitions is the summed value of admitted edges.
	Transitions int `json:"transitions"`
}

// Stats returns node, edge and transition counts for the graph.
func (g *Graph) Stats() Stats {
	s := Stats{
		TotalNodes:    len(g.Nodes),
		TotalEdges:    len(g.Edges),
		RejectedEdges: len(g.Rejected),
	}
	for _, e := range g.Edges {
		s.Transitions += e.Value
	}
	return s
}

// HasNode reports whether id is a node of the graph.
func (g *Graph) HasNode(id string) bool {
	for _, n := range g.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// Edge returns the admitted edge from source to target, if any.
func (g *Graph) Edge(source, target string) (Edge, bool) {
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target {
			return e, true
		}
	}
	return Edge{}, false
}
