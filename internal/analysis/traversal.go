package analysis

import (
	"errors"
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ErrInternal marks a broken handler invariant: an unbalanced context or
// function stack, or a meta-store frame restored out of order. Ordinary
// degraded outcomes (free identifiers, dynamic require specifiers) are
// silent and never produce an error.
var ErrInternal = errors.New("internal traversal error")

type contextTag string

const (
	ctxExpression contextTag = "expression"
	ctxLVal       contextTag = "lval"
)

// RuleFunc reacts to one syntax kind (or kind category), producing graph
// edges and scope state, and recurses into children through BaseVisit or
// explicit Visit calls.
type RuleFunc func(t *Traversal, node *sitter.Node) error

type visitObserver struct {
	fn func(*sitter.Node)
}

// Traversal is one single-threaded analysis session over one syntax tree.
// It owns the dispatch engine plus the ephemeral bookkeeping: the context
// stack, the enclosing-function stack, the meta store and the subscriber
// lists. Sessions are not reentrant and must not be shared.
type Traversal struct {
	graph       *Graph
	scopes      *ScopeTable
	source      []byte
	rules       map[string]RuleFunc
	catRules    map[category]RuleFunc
	sideEffects *SideEffectRegistry

	ctxStack  []contextTag
	funcStack []*sitter.Node
	meta      map[string]any
	observers []*visitObserver

	broken  error
	visited int
}

func newTraversal(graph *Graph, scopes *ScopeTable, source []byte, reg *SideEffectRegistry) *Traversal {
	t := &Traversal{
		graph:       graph,
		scopes:      scopes,
		source:      source,
		sideEffects: reg,
		meta:        make(map[string]any),
	}
	t.rules = defaultRules()
	t.catRules = map[category]RuleFunc{
		catFunction:   ruleFunction,
		catBlock:      ruleBlock,
		catTerminator: ruleTerminator,
	}
	return t
}

// Graph returns the graph under construction. Side-effect actions use it to
// add extra edges.
func (t *Traversal) Graph() *Graph { return t.graph }

// Scopes returns the session's scope table.
func (t *Traversal) Scopes() *ScopeTable { return t.scopes }

// Text returns the source text of a node.
func (t *Traversal) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(t.source[n.StartByte():n.EndByte()])
}

// Visit dispatches a node to the rule registered for its exact kind, falling
// back to its category rule, then to the default edge policy. parent and
// field describe the slot the node occupies.
func (t *Traversal) Visit(node *sitter.Node, parent *sitter.Node, field string) error {
	if node == nil {
		return nil
	}
	if t.broken != nil {
		return t.broken
	}
	t.visited++

	for _, obs := range t.observers {
		obs.fn(node)
	}

	kind := node.Kind()
	if identifierKinds[kind] {
		t.visitIdentifier(node, parent, field)
		return t.broken
	}

	if rule, ok := t.rules[kind]; ok {
		return rule(t, node)
	}
	if rule, ok := t.catRules[kindCategory(kind)]; ok {
		return rule(t, node)
	}
	return t.BaseVisit(node, false)
}

// BaseVisit applies the structural default: visit every named child in slot
// order, and unless ignoreDeps is set, make the node require each child.
func (t *Traversal) BaseVisit(node *sitter.Node, ignoreDeps bool) error {
	count := node.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		if !ignoreDeps {
			t.graph.AddEdge(node, child)
		}
		if err := t.Visit(child, node, fieldOf(node, child)); err != nil {
			return err
		}
	}
	return t.broken
}

// visitIdentifier classifies an identifier occurrence by its slot and the
// active context tag. Declarations register bindings, kept slots do nothing,
// and uses resolve against the scope chain: a use requires its declaration,
// and under an lval tag the declaration additionally requires the use, so
// retaining a variable retains its mutations.
func (t *Traversal) visitIdentifier(node, parent *sitter.Node, field string) {
	parentKind := ""
	if parent != nil {
		parentKind = parent.Kind()
	}
	switch classifyRole(parentKind, field, node.Kind()) {
	case roleDeclare:
		imported := ""
		switch node.Kind() {
		case "shorthand_property_identifier_pattern":
			imported = t.Text(node)
		default:
			if parentKind == "pair_pattern" && field == "value" {
				imported = t.Text(parent.ChildByFieldName("key"))
			}
		}
		t.scopes.Declare(t.Text(node), node, imported)
	case roleKeep:
	case roleRefer:
		if decl, ok := t.scopes.GetDeclaration(t.Text(node)); ok {
			t.graph.AddEdge(node, decl)
			if t.currentContext() == ctxLVal {
				t.graph.AddEdge(decl, node)
			}
		}
	}
}

// OnVisit subscribes an observer fired for every node visited anywhere in
// the subtree walked while it is active. The returned closure unsubscribes.
func (t *Traversal) OnVisit(fn func(*sitter.Node)) func() {
	obs := &visitObserver{fn: fn}
	t.observers = append(t.observers, obs)
	return func() {
		for i, o := range t.observers {
			if o == obs {
				t.observers = append(t.observers[:i], t.observers[i+1:]...)
				return
			}
		}
	}
}

// pushContext pushes a classification mode and returns the closure that pops
// it. The closure verifies the frame it closes is the one it opened; a
// mismatch poisons the session.
func (t *Traversal) pushContext(tag contextTag) func() {
	t.ctxStack = append(t.ctxStack, tag)
	depth := len(t.ctxStack)
	return func() {
		if len(t.ctxStack) != depth || t.ctxStack[depth-1] != tag {
			t.fail("unbalanced context stack")
			return
		}
		t.ctxStack = t.ctxStack[:depth-1]
	}
}

func (t *Traversal) currentContext() contextTag {
	if len(t.ctxStack) == 0 {
		return ctxExpression
	}
	return t.ctxStack[len(t.ctxStack)-1]
}

// PopContext is the explicit pop for extension rules that manage frames by
// hand. Popping an empty stack is a defect, not a degraded outcome.
func (t *Traversal) PopContext() error {
	if len(t.ctxStack) == 0 {
		t.fail("context stack underflow")
		return t.broken
	}
	t.ctxStack = t.ctxStack[:len(t.ctxStack)-1]
	return nil
}

func (t *Traversal) pushFunction(fn *sitter.Node) func() {
	t.funcStack = append(t.funcStack, fn)
	depth := len(t.funcStack)
	return func() {
		if len(t.funcStack) != depth {
			t.fail("unbalanced function stack")
			return
		}
		t.funcStack = t.funcStack[:depth-1]
	}
}

// CurrentFunction returns the innermost enclosing function-like node.
func (t *Traversal) CurrentFunction() (*sitter.Node, bool) {
	if len(t.funcStack) == 0 {
		return nil, false
	}
	return t.funcStack[len(t.funcStack)-1], true
}

// SetMeta writes a scoped key into the side channel and returns the closure
// restoring the previous value. The writer owns the lifetime: the same
// handler invocation that sets a key clears it.
func (t *Traversal) SetMeta(key string, value any) func() {
	prev, had := t.meta[key]
	t.meta[key] = value
	return func() {
		if had {
			t.meta[key] = prev
		} else {
			delete(t.meta, key)
		}
	}
}

// GetMeta reads a scoped key. Absence is a valid outcome for readers that
// tolerate running outside the writer's subtree.
func (t *Traversal) GetMeta(key string) (any, bool) {
	v, ok := t.meta[key]
	return v, ok
}

func (t *Traversal) fail(msg string) {
	if t.broken == nil {
		t.broken = fmt.Errorf("%w: %s", ErrInternal, msg)
	}
}
