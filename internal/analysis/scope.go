package analysis

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// moduleExportsName is the reserved binding for the CommonJS implicit exports
// object. It is registered once per session in the root scope.
const moduleExportsName = "exports"

// DeclareHandler observes every binding registered anywhere in the scope
// table while it is subscribed. importedName is the source-side name for
// renaming destructuring patterns, empty otherwise.
type DeclareHandler func(binding *sitter.Node, importedName string)

type Scope struct {
	id       int
	bindings map[string]*sitter.Node
	parent   *Scope
}

// ScopeTable is the hierarchical binding store for one traversal session.
// Bindings resolve innermost-first and only become visible from the point of
// declaration onward; there is no hoisting pre-pass.
type ScopeTable struct {
	root    *Scope
	current *Scope
	nextID  int

	handlers []*declareObserver

	// The synthetic module-exports declaration. The program node stands in
	// for it: the exports object exists from the first instruction of the
	// module, so retaining the binding is retaining the program.
	exportsDecl *sitter.Node
}

type declareObserver struct {
	fn DeclareHandler
}

// NewScopeTable creates the root scope and registers the synthetic
// module-exports binding, represented by the tree's root node.
func NewScopeTable(root *sitter.Node) *ScopeTable {
	s := &ScopeTable{exportsDecl: root}
	s.root = &Scope{id: s.nextID, bindings: map[string]*sitter.Node{}}
	s.nextID++
	s.current = s.root
	if root != nil {
		s.root.bindings[moduleExportsName] = root
	}
	return s
}

// Enter opens a nested scope and returns the closure that restores the
// previous one. Callers defer the closure so the chain rebalances on every
// exit path.
func (s *ScopeTable) Enter() func() {
	parent := s.current
	s.current = &Scope{id: s.nextID, bindings: map[string]*sitter.Node{}, parent: parent}
	s.nextID++
	return func() { s.current = parent }
}

// Declare registers a binding in the innermost scope and notifies every
// active declare handler.
func (s *ScopeTable) Declare(name string, binding *sitter.Node, importedName string) {
	if name == "" || binding == nil {
		return
	}
	s.current.bindings[name] = binding
	for _, obs := range s.handlers {
		obs.fn(binding, importedName)
	}
}

// GetDeclaration resolves a name against the scope chain, innermost first.
// The second return is false for free names, which are treated as globals
// rather than errors.
func (s *ScopeTable) GetDeclaration(name string) (*sitter.Node, bool) {
	for sc := s.current; sc != nil; sc = sc.parent {
		if n, ok := sc.bindings[name]; ok {
			return n, true
		}
	}
	return nil, false
}

// WhereIsDeclared reports the id of the scope holding a binding. ok is false
// when the name is free (implicitly global).
func (s *ScopeTable) WhereIsDeclared(name string) (int, bool) {
	for sc := s.current; sc != nil; sc = sc.parent {
		if _, ok := sc.bindings[name]; ok {
			return sc.id, true
		}
	}
	return 0, false
}

// IsModuleExports reports whether a declaration node is the synthetic
// module-exports binding.
func (s *ScopeTable) IsModuleExports(decl *sitter.Node) bool {
	return decl != nil && s.exportsDecl != nil && decl.Id() == s.exportsDecl.Id()
}

// ModuleExports returns the synthetic module-exports declaration node.
func (s *ScopeTable) ModuleExports() *sitter.Node {
	return s.exportsDecl
}

// AddDeclareHandler subscribes an observer to all declarations registered in
// this or any nested scope. The returned closure unsubscribes it.
func (s *ScopeTable) AddDeclareHandler(fn DeclareHandler) func() {
	obs := &declareObserver{fn: fn}
	s.handlers = append(s.handlers, obs)
	return func() {
		for i, h := range s.handlers {
			if h == obs {
				s.handlers = append(s.handlers[:i], s.handlers[i+1:]...)
				return
			}
		}
	}
}
