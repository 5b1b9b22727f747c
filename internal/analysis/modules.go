package analysis

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// staticExportCallees are the Object members whose calls can statically
// declare an export or mutate a value in place.
var staticExportCallees = map[string]bool{
	"assign":           true,
	"defineProperty":   true,
	"defineProperties": true,
	"freeze":           true,
	"observe":          true,
}

// esModuleMarker is the CommonJS/ES interop flag. Defining it mutates the
// exports object but is not a real export.
const esModuleMarker = "__esModule"

func trimQuoted(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}

func stringLiteral(t *Traversal, n *sitter.Node) (string, bool) {
	if n == nil || n.Kind() != "string" {
		return "", false
	}
	return trimQuoted(strings.TrimSpace(t.Text(n))), true
}

// resolveRequire recognizes the module convention's require calls. It fires
// only for a callee named require that resolves to the unshadowed global
// scope, with a string-literal specifier. Dynamic specifiers and standalone
// calls degrade silently: no record, no error.
func resolveRequire(t *Traversal, call *sitter.Node) {
	callee := call.ChildByFieldName("function")
	if callee == nil || callee.Kind() != "identifier" || t.Text(callee) != "require" {
		return
	}
	if _, shadowed := t.scopes.GetDeclaration("require"); shadowed {
		return
	}
	specifier, ok := stringLiteral(t, firstArgument(call))
	if !ok {
		return
	}

	raw, ok := t.GetMeta(metaDeclarator)
	if !ok {
		return // standalone require, nothing to bind
	}
	capture := raw.(*declaratorCapture)

	// One member pulled straight off the call result.
	if parent := call.Parent(); parent != nil && parent.Kind() == "member_expression" {
		if prop := parent.ChildByFieldName("property"); prop != nil && prop.Kind() == "property_identifier" {
			t.graph.AddImportMember(specifier, t.Text(prop))
			return
		}
	}

	name := capture.declarator.ChildByFieldName("name")
	if name != nil && name.Kind() == "identifier" && len(capture.bindings) == 1 {
		// The whole namespace object: later member accesses on this binding
		// grow the import record one by one.
		t.graph.AddImportAlias(capture.bindings[0].node, specifier)
		return
	}
	for _, b := range capture.bindings {
		member := b.imported
		if member == "" {
			member = t.Text(b.node)
		}
		t.graph.AddImportMember(specifier, member)
	}
}

// detectExportCall inspects Object.assign/defineProperty/defineProperties/
// freeze/observe calls. A first argument resolving to the module-exports
// binding with a string-literal name declares an export (except the interop
// marker); anything else that resolves is a plain mutation, extending the
// lifetime of the mutated variable.
func detectExportCall(t *Traversal, call *sitter.Node) {
	callee := call.ChildByFieldName("function")
	if callee == nil || callee.Kind() != "member_expression" {
		return
	}
	object := callee.ChildByFieldName("object")
	property := callee.ChildByFieldName("property")
	if object == nil || object.Kind() != "identifier" || t.Text(object) != "Object" {
		return
	}
	if property == nil || !staticExportCallees[t.Text(property)] {
		return
	}

	target := firstArgument(call)
	if target == nil || target.Kind() != "identifier" {
		return
	}

	t.graph.AddEdge(call, target)
	decl, resolved := t.scopes.GetDeclaration(t.Text(target))
	if !resolved {
		return
	}
	t.graph.AddEdge(decl, target)

	if !t.scopes.IsModuleExports(decl) {
		return
	}
	args := namedChildren(call.ChildByFieldName("arguments"))
	if len(args) < 2 {
		return
	}
	if name, ok := stringLiteral(t, args[1]); ok && name != esModuleMarker {
		t.graph.AddExport(name, call)
	}
}
