package flowgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func nodes(ids ...string) []Node {
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = Node{ID: id}
	}
	return out
}

func TestVerify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		graph   Graph
		wantErr error
	}{
		{
			name:  "empty graph",
			graph: Graph{},
		},
		{
			name: "dag",
			graph: Graph{
				Nodes: nodes("A", "B", "C"),
				Edges: []Edge{{"A", "B", 1}, {"B", "C", 2}, {"A", "C", 1}},
			},
		},
		{
			name: "two-cycle",
			graph: Graph{
				Nodes: nodes("A", "B"),
				Edges: []Edge{{"A", "B", 1}, {"B", "A", 1}},
			},
			wantErr: ErrCycle,
		},
		{
			name: "three-cycle",
			graph: Graph{
				Nodes: nodes("A", "B", "C"),
				Edges: []Edge{{"A", "B", 1}, {"B", "C", 1}, {"C", "A", 1}},
			},
			wantErr: ErrCycle,
		},
		{
			name: "self-loop",
			graph: Graph{
				Nodes: nodes("A"),
				Edges: []Edge{{"A", "A", 1}},
			},
			wantErr: ErrSelfLoop,
		},
		{
			name: "dangling target",
			graph: Graph{
				Nodes: nodes("A"),
				Edges: []Edge{{"A", "B", 1}},
			},
			wantErr: ErrDanglingEdge,
		},
		{
			name: "duplicate pair",
			graph: Graph{
				Nodes: nodes("A", "B"),
				Edges: []Edge{{"A", "B", 1}, {"A", "B", 3}},
			},
			wantErr: ErrDuplicateEdge,
		},
		{
			name: "rejected edges are not checked",
			graph: Graph{
				Nodes:    nodes("A", "B"),
				Edges:    []Edge{{"A", "B", 1}},
				Rejected: []Edge{{"B", "A", 1}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Verify(&tt.graph)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}
