package analysis

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// defaultRules maps exact syntax kinds to their retention-policy rule. Kinds
// without an entry fall back to their category rule, then to the structural
// default where a node requires each of its direct children. Extending
// coverage to a new kind means adding a row here, never touching Visit.
func defaultRules() map[string]RuleFunc {
	return map[string]RuleFunc{
		"program":              ruleProgram,
		"expression_statement": ruleExpressionStatement,
		"try_statement":        ruleTry,
		"if_statement":         ruleIf,
		"while_statement":      ruleWhile,
		"do_statement":         ruleWhile,
		"switch_statement":     ruleSwitch,
		"switch_body":          ruleSwitchBody,
		"switch_case":          ruleSwitchCase,
		"switch_default":       ruleSwitchCase,
		"for_statement":        ruleFor,
		"for_in_statement":     ruleForIn,
		"object":               ruleObject,
		"member_expression":    ruleMember,
		"assignment_expression":           ruleAssignment,
		"augmented_assignment_expression": ruleAssignment,
		"variable_declarator":  ruleDeclarator,
		"variable_declaration": ruleDeclaration,
		"lexical_declaration":  ruleDeclaration,
		"call_expression":      ruleCall,
		"sequence_expression":  ruleSequence,
	}
}

func namedChildren(node *sitter.Node) []*sitter.Node {
	count := node.NamedChildCount()
	out := make([]*sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func firstArgument(call *sitter.Node) *sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	children := namedChildren(args)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

func isDirective(stmt *sitter.Node) bool {
	if stmt.Kind() != "expression_statement" {
		return false
	}
	children := namedChildren(stmt)
	return len(children) == 1 && children[0].Kind() == "string"
}

// ruleProgram: statements require the program, never the reverse. Leading
// directives are required by the program, and each directive requires its
// literal. The synthetic module-exports binding is the program node itself,
// so the exports object is alive exactly as long as the module is.
func ruleProgram(t *Traversal, node *sitter.Node) error {
	leading := true
	for _, stmt := range namedChildren(node) {
		t.graph.AddEdge(stmt, node)
		if leading && isDirective(stmt) {
			t.graph.AddEdge(node, stmt)
			t.graph.AddEdge(stmt, namedChildren(stmt)[0])
		} else {
			leading = false
		}
	}
	return t.BaseVisit(node, true)
}

// ruleBlock: a block does not require its statements; each statement
// requires the block it lives in.
func ruleBlock(t *Traversal, node *sitter.Node) error {
	for _, stmt := range namedChildren(node) {
		t.graph.AddEdge(stmt, node)
	}
	return t.BaseVisit(node, true)
}

// ruleExpressionStatement: the expression requires the statement, not the
// reverse. A pure side-effect expression must not vanish just because
// nothing consumes its value.
func ruleExpressionStatement(t *Traversal, node *sitter.Node) error {
	for _, child := range namedChildren(node) {
		t.graph.AddEdge(child, node)
	}
	return t.BaseVisit(node, true)
}

// ruleFunction covers every function-like kind. Default edges are
// suppressed; instead the function subtree is atomic: every descendant
// visited during this traversal is required by the function node. The
// function and its body require each other, the body requires each
// parameter, and a declaration's name requires the function.
func ruleFunction(t *Traversal, node *sitter.Node) error {
	kind := node.Kind()
	name := node.ChildByFieldName("name")
	if name != nil && (kind == "function_declaration" || kind == "generator_function_declaration") {
		t.scopes.Declare(t.Text(name), name, "")
		t.graph.AddEdge(name, node)
	}

	defer t.pushFunction(node)()
	defer t.scopes.Enter()()
	defer t.OnVisit(func(n *sitter.Node) { t.graph.AddEdge(node, n) })()

	if err := t.BaseVisit(node, true); err != nil {
		return err
	}

	body := node.ChildByFieldName("body")
	t.graph.AddEdge(node, body)
	t.graph.AddEdge(body, node)
	for _, p := range parameterNodes(node) {
		t.graph.AddEdge(body, p)
	}
	if kind == "method_definition" {
		// An object-method property requires its key.
		t.graph.AddEdge(node, name)
	}
	return nil
}

func parameterNodes(fn *sitter.Node) []*sitter.Node {
	if params := fn.ChildByFieldName("parameters"); params != nil {
		return namedChildren(params)
	}
	if param := fn.ChildByFieldName("parameter"); param != nil {
		return []*sitter.Node{param}
	}
	return nil
}

// ruleTerminator covers non-terminating control transfers. The innermost
// enclosing function requires the terminator, so a return is never prunable
// independently of its function. The statement keeps its default edge to its
// argument; break and continue carry none.
func ruleTerminator(t *Traversal, node *sitter.Node) error {
	if fn, ok := t.CurrentFunction(); ok {
		t.graph.AddEdge(fn, node)
	}
	kind := node.Kind()
	bare := kind == "break_statement" || kind == "continue_statement"
	return t.BaseVisit(node, bare)
}

// ruleTry: the block requires the statement, and the catch handler and
// finalizer are mutually tied to the block. Retaining any one of the three
// parts retains whichever others are present.
func ruleTry(t *Traversal, node *sitter.Node) error {
	body := node.ChildByFieldName("body")
	t.graph.AddEdge(body, node)
	for _, f := range []string{"handler", "finalizer"} {
		if part := node.ChildByFieldName(f); part != nil {
			t.graph.AddEdge(part, body)
			t.graph.AddEdge(body, part)
		}
	}
	return t.BaseVisit(node, false)
}

// ruleIf: both branches require the statement; the statement requires its
// test and its consequent. The else branch is not unconditionally pulled in.
func ruleIf(t *Traversal, node *sitter.Node) error {
	cond := node.ChildByFieldName("condition")
	cons := node.ChildByFieldName("consequence")
	alt := node.ChildByFieldName("alternative")
	t.graph.AddEdge(node, cond)
	t.graph.AddEdge(node, cons)
	t.graph.AddEdge(cons, node)
	if alt != nil {
		t.graph.AddEdge(alt, node)
	}
	return t.BaseVisit(node, true)
}

// ruleWhile (also do-while): body requires the statement; the loop test is
// always required once the loop is.
func ruleWhile(t *Traversal, node *sitter.Node) error {
	t.graph.AddEdge(node, node.ChildByFieldName("condition"))
	t.graph.AddEdge(node.ChildByFieldName("body"), node)
	return t.BaseVisit(node, true)
}

// ruleSwitch: each case requires the statement; the statement requires its
// discriminant. Case bodies hang off their cases, not the switch body.
func ruleSwitch(t *Traversal, node *sitter.Node) error {
	t.graph.AddEdge(node, node.ChildByFieldName("value"))
	if body := node.ChildByFieldName("body"); body != nil {
		for _, c := range namedChildren(body) {
			t.graph.AddEdge(c, node)
		}
	}
	return t.BaseVisit(node, true)
}

func ruleSwitchBody(t *Traversal, node *sitter.Node) error {
	return t.BaseVisit(node, true)
}

// ruleSwitchCase: each consequent statement requires the case; the case
// requires its test expression when present.
func ruleSwitchCase(t *Traversal, node *sitter.Node) error {
	value := node.ChildByFieldName("value")
	if value != nil {
		t.graph.AddEdge(node, value)
	}
	for _, child := range namedChildren(node) {
		if value != nil && child.Id() == value.Id() {
			continue
		}
		t.graph.AddEdge(child, node)
	}
	return t.BaseVisit(node, true)
}

// ruleFor: body requires the statement; the statement requires whichever of
// init, test, update and body are present.
func ruleFor(t *Traversal, node *sitter.Node) error {
	for _, f := range []string{"initializer", "condition", "increment", "body"} {
		if part := node.ChildByFieldName(f); part != nil {
			t.graph.AddEdge(node, part)
		}
	}
	t.graph.AddEdge(node.ChildByFieldName("body"), node)
	return t.BaseVisit(node, true)
}

// ruleForIn (also for-of): statement and body require each other, the body
// requires the binding target, and the target requires the iterated source.
// A var/let/const target declares; a bare identifier target is a use.
func ruleForIn(t *Traversal, node *sitter.Node) error {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	body := node.ChildByFieldName("body")

	if left != nil && left.Kind() == "identifier" {
		if node.ChildByFieldName("kind") != nil {
			t.scopes.Declare(t.Text(left), left, "")
		} else if decl, ok := t.scopes.GetDeclaration(t.Text(left)); ok {
			t.graph.AddEdge(left, decl)
			t.graph.AddEdge(decl, left)
		}
	}

	t.graph.AddEdge(body, node)
	t.graph.AddEdge(node, body)
	t.graph.AddEdge(body, left)
	t.graph.AddEdge(left, right)
	return t.BaseVisit(node, true)
}

// ruleObject: the object requires each property; a plain property requires
// its key and value; a spread requires its argument. Method properties get
// their key and body edges from the function rule.
func ruleObject(t *Traversal, node *sitter.Node) error {
	for _, prop := range namedChildren(node) {
		t.graph.AddEdge(node, prop)
		switch prop.Kind() {
		case "pair":
			t.graph.AddEdge(prop, prop.ChildByFieldName("key"))
			t.graph.AddEdge(prop, prop.ChildByFieldName("value"))
		case "spread_element":
			for _, arg := range namedChildren(prop) {
				t.graph.AddEdge(prop, arg)
			}
		}
	}
	return t.BaseVisit(node, true)
}

// ruleMember: default edges plus a backward edge so the object is retained
// whenever the member access is, which keeps `a.b = 1` from dropping `a`.
// If the object resolves to a namespace alias, the accessed property name
// joins that module's import record.
func ruleMember(t *Traversal, node *sitter.Node) error {
	object := node.ChildByFieldName("object")
	property := node.ChildByFieldName("property")
	t.graph.AddEdge(object, node)

	if object != nil && property != nil &&
		object.Kind() == "identifier" && property.Kind() == "property_identifier" {
		if decl, ok := t.scopes.GetDeclaration(t.Text(object)); ok {
			if spec, ok := t.graph.AliasFor(decl); ok {
				t.graph.AddImportMember(spec, t.Text(property))
			}
		}
	}
	return t.BaseVisit(node, false)
}

// ruleAssignment: the left side is visited under an lval tag; assignment,
// left and right form a three-way mutual linkage so none of them is
// independently prunable once any is kept.
func ruleAssignment(t *Traversal, node *sitter.Node) error {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")

	restore := t.pushContext(ctxLVal)
	err := t.Visit(left, node, "left")
	restore()
	if err != nil {
		return err
	}

	restore = t.pushContext(ctxExpression)
	err = t.Visit(right, node, "right")
	restore()
	if err != nil {
		return err
	}

	t.graph.AddEdge(node, left)
	t.graph.AddEdge(left, right)
	t.graph.AddEdge(left, node)
	return t.broken
}

const metaDeclarator = "declarator"

type capturedBinding struct {
	node     *sitter.Node
	imported string
}

// declaratorCapture collects every binding a declarator introduces while its
// subtree is traversed, destructured names included. The require resolver
// correlates the captured bindings with the resolved specifier.
type declaratorCapture struct {
	declarator *sitter.Node
	bindings   []capturedBinding
}

// ruleDeclarator: a declare handler is active for the whole declarator
// subtree; the bound id requires the initializer, and id and declarator
// require each other.
func ruleDeclarator(t *Traversal, node *sitter.Node) error {
	capture := &declaratorCapture{declarator: node}
	defer t.SetMeta(metaDeclarator, capture)()
	defer t.scopes.AddDeclareHandler(func(b *sitter.Node, imported string) {
		capture.bindings = append(capture.bindings, capturedBinding{node: b, imported: imported})
	})()

	if err := t.BaseVisit(node, true); err != nil {
		return err
	}

	name := node.ChildByFieldName("name")
	if value := node.ChildByFieldName("value"); value != nil {
		t.graph.AddEdge(name, value)
	}
	t.graph.AddEdge(name, node)
	t.graph.AddEdge(node, name)
	return nil
}

// ruleDeclaration: each declarator requires the declaration wrapper.
func ruleDeclaration(t *Traversal, node *sitter.Node) error {
	for _, d := range namedChildren(node) {
		t.graph.AddEdge(d, node)
	}
	return t.BaseVisit(node, true)
}

// ruleCall: default edges, then module-convention resolution and the
// side-effect registry, in that order, once the arguments have been visited
// and any bindings they declared are in scope.
func ruleCall(t *Traversal, node *sitter.Node) error {
	if err := t.BaseVisit(node, false); err != nil {
		return err
	}
	resolveRequire(t, node)
	t.sideEffects.Apply(t, node)
	detectExportCall(t, node)
	return t.broken
}

// ruleSequence: default edges suppressed; only the final sub-expression is
// required by the sequence. Earlier members survive only if something else
// requires them directly.
func ruleSequence(t *Traversal, node *sitter.Node) error {
	children := namedChildren(node)
	if len(children) > 0 {
		t.graph.AddEdge(node, children[len(children)-1])
	}
	return t.BaseVisit(node, true)
}
