package analysis

import (
	"time"

	"github.com/google/uuid"
	sitter "github.com/tree-sitter/go-tree-sitter"

	"shaker/internal/shared/observability"
)

// Analyzer builds retention graphs from parsed syntax trees. It is safe to
// reuse across trees; every Analyze call runs a fresh session with its own
// graph, scope table and traversal state.
type Analyzer struct {
	sideEffects *SideEffectRegistry
}

// Stats summarizes one analysis session.
type Stats struct {
	NodesVisited int
	Edges        int
	Exports      int
	Imports      int
	Duration     time.Duration
}

// Result is the completed session output handed to the reachability
// consumer: the graph plus export and import records, all read-only from
// here on.
type Result struct {
	SessionID string
	Graph     *Graph
	Stats     Stats
}

func NewAnalyzer(reg *SideEffectRegistry) *Analyzer {
	if reg == nil {
		reg = NewSideEffectRegistry()
	}
	return &Analyzer{sideEffects: reg}
}

// Analyze traverses one syntax tree and returns its finished graph. source
// must be the bytes the tree was parsed from; the tree must stay open while
// the result is in use.
func (a *Analyzer) Analyze(root *sitter.Node, source []byte) (*Result, error) {
	start := time.Now()

	graph := NewGraph()
	scopes := NewScopeTable(root)
	tr := newTraversal(graph, scopes, source, a.sideEffects)

	if err := tr.Visit(root, nil, ""); err != nil {
		return nil, err
	}

	res := &Result{
		SessionID: uuid.NewString(),
		Graph:     graph,
		Stats: Stats{
			NodesVisited: tr.visited,
			Edges:        graph.EdgeCount(),
			Exports:      len(graph.exports),
			Imports:      len(graph.importOrder),
			Duration:     time.Since(start),
		},
	}

	observability.SessionsTotal.Inc()
	observability.AnalysisDuration.Observe(res.Stats.Duration.Seconds())
	observability.GraphNodes.Set(float64(graph.NodeCount()))
	observability.GraphEdges.Set(float64(res.Stats.Edges))

	return res, nil
}

// DefaultRoots is the consumer root set: the program node, every recorded
// export, and every top-level statement kept for its side effects.
func DefaultRoots(g *Graph, program *sitter.Node) []*sitter.Node {
	roots := []*sitter.Node{program}
	for _, name := range g.ExportNames() {
		roots = append(roots, g.exports[name])
	}
	if program != nil {
		for _, stmt := range namedChildren(program) {
			if stmt.Kind() == "expression_statement" {
				roots = append(roots, stmt)
			}
		}
	}
	return roots
}
