package flowgraph

import (
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/model"
)

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger used for cycle diagnostics and the build summary.
func WithLogger(log *zap.Logger) BuilderOption {
	return func(b *Builder) {
		if log != nil {
			b.log = log
		}
	}
}

// Builder turns journey batches into flow graphs. A Builder holds no state
// between calls and is safe for concurrent use.
type Builder struct {
	log *zap.Logger
}

// NewBuilder creates a Builder. Without WithLogger it logs to zap.L() at the
// time of the call.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{log: zap.L()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build aggregates journeys into a graph using the global logger.
func Build(journeys []model.Journey) *Graph {
	return NewBuilder().Build(journeys)
}

type pair struct {
	source, target string
}

// Build aggregates consecutive transitions of every journey into weighted
// edges and admits them in first-discovery order, rejecting any edge whose
// target already reaches its source through previously admitted edges.
//
// Which edge of a cycle survives depends on journey order: the transition
// discovered first wins. The same journeys in another order may reject a
// different edge.
func (b *Builder) Build(journeys []model.Journey) *Graph {
	var (
		nodes     []Node
		nodeSeen  = make(map[string]bool)
		counts    = make(map[pair]int)
		discovery []pair
	)
	addNode := func(id string) {
		if !nodeSeen[id] {
			nodeSeen[id] = true
			nodes = append(nodes, Node{ID: id})
		}
	}

	for _, j := range journeys {
		if j.Empty() {
			continue
		}
		for i, step := range j.Steps {
			addNode(step)
			if i == 0 || j.Steps[i-1] == step {
				continue
			}
			p := pair{source: j.Steps[i-1], target: step}
			if _, ok := counts[p]; !ok {
				discovery = append(discovery, p)
			}
			counts[p]++
		}
	}

	g := &Graph{Nodes: nodes, Edges: []Edge{}}
	if g.Nodes == nil {
		g.Nodes = []Node{}
	}

	adj := make(arena)
	for _, p := range discovery {
		e := Edge{Source: p.source, Target: p.target, Value: counts[p]}
		if adj.reaches(p.target, p.source) {
			g.Rejected = append(g.Rejected, e)
			b.log.Warn("flowgraph: rejected edge that would close a cycle",
				zap.String("source", e.Source),
				zap.String("target", e.Target),
				zap.Int("value", e.Value),
			)
			continue
		}
		adj.add(p.source, p.target)
		if nodeSeen[e.Source] && nodeSeen[e.Target] {
			g.Edges = append(g.Edges, e)
		}
	}

	s := g.Stats()
	b.log.Debug("flowgraph: built graph",
		zap.Int("journeys", len(journeys)),
		zap.Int("nodes", s.TotalNodes),
		zap.Int("edges", s.TotalEdges),
		zap.Int("rejected", s.RejectedEdges),
		zap.Int("transitions", s.Transitions),
	)
	return g
}

// arena is the append-only adjacency list of admitted edges, keyed by source.
type arena map[string][]string

func (a arena) add(source, target string) {
	a[source] = append(a[source], target)
}

// reaches reports whether to is reachable from from by following admitted
// edges. A node always reaches itself.
func (a arena) reaches(from, to string) bool {
	if from == to {
		return true
	}
	visited := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range a[n] {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}
