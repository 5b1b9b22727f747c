package analysis

import (
	"sort"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeID identifies a syntax node within one parsed tree.
type NodeID uintptr

// Edge is an ordered pair: if Dependent is retained, Dependency must be
// retained as well.
type Edge struct {
	Dependent  NodeID
	Dependency NodeID
}

// Graph accumulates retention edges, export records and import records for a
// single syntax tree. It is write-only during construction; readers consume
// it after the traversal completes. Edges may reference nodes that have not
// been visited yet.
type Graph struct {
	nodes   map[NodeID]*sitter.Node
	edges   map[NodeID]map[NodeID]bool
	exports map[string]*sitter.Node

	imports     map[string][]string // specifier -> member names, discovery order
	importOrder []string
	aliases     map[NodeID]string // binding node -> specifier
}

func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[NodeID]*sitter.Node),
		edges:   make(map[NodeID]map[NodeID]bool),
		exports: make(map[string]*sitter.Node),
		imports: make(map[string][]string),
		aliases: make(map[NodeID]string),
	}
}

func (g *Graph) track(n *sitter.Node) NodeID {
	id := NodeID(n.Id())
	if _, ok := g.nodes[id]; !ok {
		g.nodes[id] = n
	}
	return id
}

// AddEdge records that dependent requires dependency. Duplicate inserts and
// self-edges are no-ops.
func (g *Graph) AddEdge(dependent, dependency *sitter.Node) {
	if dependent == nil || dependency == nil {
		return
	}
	from := g.track(dependent)
	to := g.track(dependency)
	if from == to {
		return
	}
	if g.edges[from] == nil {
		g.edges[from] = make(map[NodeID]bool)
	}
	g.edges[from][to] = true
}

func (g *Graph) HasEdge(dependent, dependency *sitter.Node) bool {
	if dependent == nil || dependency == nil {
		return false
	}
	return g.edges[NodeID(dependent.Id())][NodeID(dependency.Id())]
}

// AddExport binds an export name to its defining node. A duplicate name
// overwrites the previous binding.
func (g *Graph) AddExport(name string, node *sitter.Node) {
	g.track(node)
	g.exports[name] = node
}

// AddImportMember appends a referenced member name to a module specifier's
// import record. Duplicates are kept; order is discovery order.
func (g *Graph) AddImportMember(specifier, member string) {
	if _, ok := g.imports[specifier]; !ok {
		g.importOrder = append(g.importOrder, specifier)
	}
	g.imports[specifier] = append(g.imports[specifier], member)
}

// AddImportAlias records that a local binding denotes the whole namespace
// object of a module specifier.
func (g *Graph) AddImportAlias(binding *sitter.Node, specifier string) {
	g.track(binding)
	g.aliases[NodeID(binding.Id())] = specifier
	if _, ok := g.imports[specifier]; !ok {
		g.importOrder = append(g.importOrder, specifier)
		g.imports[specifier] = []string{}
	}
}

// AliasFor resolves a binding node back to the specifier it aliases.
func (g *Graph) AliasFor(binding *sitter.Node) (string, bool) {
	if binding == nil {
		return "", false
	}
	spec, ok := g.aliases[NodeID(binding.Id())]
	return spec, ok
}

func (g *Graph) Node(id NodeID) *sitter.Node {
	return g.nodes[id]
}

func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

func (g *Graph) EdgeCount() int {
	total := 0
	for _, deps := range g.edges {
		total += len(deps)
	}
	return total
}

// Edges returns the edge set in a deterministic order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.EdgeCount())
	for from, deps := range g.edges {
		for to := range deps {
			out = append(out, Edge{Dependent: from, Dependency: to})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dependent != out[j].Dependent {
			return out[i].Dependent < out[j].Dependent
		}
		return out[i].Dependency < out[j].Dependency
	})
	return out
}

// Dependencies returns the nodes required by n, in a deterministic order.
func (g *Graph) Dependencies(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	ids := make([]NodeID, 0, len(g.edges[NodeID(n.Id())]))
	for id := range g.edges[NodeID(n.Id())] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	deps := make([]*sitter.Node, len(ids))
	for i, id := range ids {
		deps[i] = g.nodes[id]
	}
	return deps
}

func (g *Graph) Exports() map[string]*sitter.Node {
	out := make(map[string]*sitter.Node, len(g.exports))
	for name, node := range g.exports {
		out[name] = node
	}
	return out
}

func (g *Graph) ExportNames() []string {
	names := make([]string, 0, len(g.exports))
	for name := range g.exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ImportSpecifiers returns module specifiers in discovery order.
func (g *Graph) ImportSpecifiers() []string {
	return append([]string(nil), g.importOrder...)
}

// ImportMembers returns the member names recorded for a specifier, in
// discovery order.
func (g *Graph) ImportMembers(specifier string) []string {
	return append([]string(nil), g.imports[specifier]...)
}

// Closure computes the transitive requires-closure of the given roots. This
// is the consumer side of the contract: anything outside the returned set is
// eligible for removal.
func (g *Graph) Closure(roots []*sitter.Node) map[NodeID]bool {
	seen := make(map[NodeID]bool)
	stack := make([]NodeID, 0, len(roots))
	for _, r := range roots {
		if r == nil {
			continue
		}
		id := NodeID(r.Id())
		if !seen[id] {
			seen[id] = true
			stack = append(stack, id)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for dep := range g.edges[id] {
			if !seen[dep] {
				seen[dep] = true
				stack = append(stack, dep)
			}
		}
	}
	return seen
}
