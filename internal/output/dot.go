package output

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"shaker/internal/analysis"
)

// DOTGenerator renders a retention graph as a GraphViz digraph. Nodes in
// the requires-closure of the default root set are filled; everything else
// is what the reachability consumer would prune.
type DOTGenerator struct {
	result *analysis.Result
	root   *sitter.Node
}

func NewDOTGenerator(result *analysis.Result, root *sitter.Node) *DOTGenerator {
	return &DOTGenerator{result: result, root: root}
}

func (d *DOTGenerator) Generate() string {
	var buf strings.Builder

	buf.WriteString("digraph retention {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8];\n\n")

	g := d.result.Graph
	kept := g.Closure(analysis.DefaultRoots(g, d.root))
	edges := g.Edges()

	seen := make(map[analysis.NodeID]bool)
	ids := make([]analysis.NodeID, 0, len(edges))
	for _, e := range edges {
		for _, id := range []analysis.NodeID{e.Dependent, e.Dependency} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		n := g.Node(id)
		if n == nil {
			continue
		}
		style := ""
		if kept[id] {
			style = ", style=\"rounded,filled\", fillcolor=\"#d5e8d4\""
		}
		fmt.Fprintf(&buf, "  n%d [label=\"%s@%d-%d\"%s];\n",
			id, n.Kind(), n.StartByte(), n.EndByte(), style)
	}
	buf.WriteString("\n")
	for _, e := range edges {
		fmt.Fprintf(&buf, "  n%d -> n%d;\n", e.Dependent, e.Dependency)
	}

	buf.WriteString("}\n")
	return buf.String()
}
