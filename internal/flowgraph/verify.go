package flowgraph

import (
	"github.com/rotisserie/eris"
)

// Sentinel errors returned by Verify.
var (
	ErrCycle         = eris.New("flowgraph: cycle")
	ErrSelfLoop      = eris.New("flowgraph: self-loop")
	ErrDanglingEdge  = eris.New("flowgraph: edge endpoint not in nodes")
	ErrDuplicateEdge = eris.New("flowgraph: duplicate edge")
)

// Verify checks that g is safe to render as a flow diagram: every edge joins
// two known, distinct nodes, no ordered pair appears twice, and the edges form
// a DAG.
func Verify(g *Graph) error {
	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
	}

	adj := make(map[string][]string)
	seen := make(map[pair]bool, len(g.Edges))
	for _, e := range g.Edges {
		if e.Source == e.Target {
			return eris.Wrapf(ErrSelfLoop, "flowgraph: verify edge %s -> %s", e.Source, e.Target)
		}
		if !known[e.Source] || !known[e.Target] {
			return eris.Wrapf(ErrDanglingEdge, "flowgraph: verify edge %s -> %s", e.Source, e.Target)
		}
		p := pair{source: e.Source, target: e.Target}
		if seen[p] {
			return eris.Wrapf(ErrDuplicateEdge, "flowgraph: verify edge %s -> %s", e.Source, e.Target)
		}
		seen[p] = true
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	// permanent: fully explored, not on a cycle.
	// temporary: on the current DFS path.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(id string) error
	visit = func(id string) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return eris.Wrapf(ErrCycle, "flowgraph: verify cycle through %s", id)
		}
		temporary[id] = true
		for _, next := range adj[id] {
			if err := visit(next); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, n := range g.Nodes {
		if err := visit(n.ID); err != nil {
			return err
		}
	}
	return nil
}
