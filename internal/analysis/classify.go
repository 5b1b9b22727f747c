package analysis

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// role is how an identifier slot relates to the scope table: it either
// introduces a binding, is plain syntax that neither declares nor resolves,
// or is a use that must resolve against the scope chain.
type role int

const (
	roleRefer role = iota
	roleDeclare
	roleKeep
)

// category is the secondary discriminant for dispatch: kinds without an
// exact-match rule fall back to their category's rule.
type category int

const (
	catNone category = iota
	catFunction
	catBlock
	catTerminator
)

var kindCategories = map[string]category{
	"function_declaration":           catFunction,
	"function_expression":            catFunction,
	"generator_function":             catFunction,
	"generator_function_declaration": catFunction,
	"arrow_function":                 catFunction,
	"method_definition":              catFunction,

	"statement_block": catBlock,

	"return_statement":   catTerminator,
	"throw_statement":    catTerminator,
	"break_statement":    catTerminator,
	"continue_statement": catTerminator,
	"yield_expression":   catTerminator,
	"await_expression":   catTerminator,
}

func kindCategory(kind string) category {
	return kindCategories[kind]
}

func isFunctionKind(kind string) bool {
	return kindCategories[kind] == catFunction
}

// identifierKinds are the leaf kinds classified by slot role rather than
// dispatched to a visitor rule.
var identifierKinds = map[string]bool{
	"identifier":                            true,
	"property_identifier":                   true,
	"shorthand_property_identifier":         true,
	"shorthand_property_identifier_pattern": true,
	"statement_identifier":                  true,
}

// slotRoles classifies identifier occurrences by (parent kind, field name).
// The empty field key matches unfielded children, e.g. parameter lists and
// pattern elements. Slots not listed here default by identifier kind: plain
// identifiers and object-literal shorthands are uses, property names and
// labels are kept as-is, and shorthand pattern elements declare. A throw
// statement's argument is deliberately a use, not a declaration: throw
// introduces no binding.
var slotRoles = map[string]map[string]role{
	"variable_declarator": {"name": roleDeclare, "value": roleRefer},
	"catch_clause":        {"parameter": roleDeclare},
	"formal_parameters":   {"": roleDeclare},
	"arrow_function":      {"parameter": roleDeclare},
	"rest_pattern":        {"": roleDeclare},
	"object_pattern":      {"": roleDeclare},
	"array_pattern":       {"": roleDeclare},
	"pair_pattern":        {"key": roleKeep, "value": roleDeclare},
	"assignment_pattern":  {"left": roleDeclare, "right": roleRefer},

	// Function names are handled by the function rule itself: a declaration
	// name binds in the enclosing scope before the function scope opens, and
	// a function expression's own name is never a binding for siblings.
	"function_declaration":           {"name": roleKeep},
	"generator_function_declaration": {"name": roleKeep},
	"function_expression":            {"name": roleKeep},
	"generator_function":             {"name": roleKeep},
	"method_definition":              {"name": roleKeep},

	"member_expression": {"object": roleRefer, "property": roleKeep},
	"pair":              {"key": roleKeep, "value": roleRefer},

	// The for-in rule declares or resolves the left target itself, depending
	// on whether the statement carries a var/let/const keyword.
	"for_in_statement": {"left": roleKeep},

	"labeled_statement":  {"label": roleKeep},
	"break_statement":    {"label": roleKeep},
	"continue_statement": {"label": roleKeep},
}

func classifyRole(parentKind, field, kind string) role {
	if slots, ok := slotRoles[parentKind]; ok {
		if r, ok := slots[field]; ok {
			return r
		}
		if r, ok := slots[""]; ok && field == "" {
			return r
		}
	}
	switch kind {
	case "property_identifier", "statement_identifier":
		return roleKeep
	case "shorthand_property_identifier_pattern":
		return roleDeclare
	default:
		return roleRefer
	}
}

// kindFields lists the grammar fields consulted when recovering a child's
// slot name during the default walk. Only kinds whose slots feed
// classification or rules need an entry; fields are unique per node for all
// of them.
var kindFields = map[string][]string{
	"variable_declarator":            {"name", "value"},
	"catch_clause":                   {"parameter", "body"},
	"pair":                           {"key", "value"},
	"pair_pattern":                   {"key", "value"},
	"assignment_pattern":             {"left", "right"},
	"member_expression":              {"object", "property"},
	"subscript_expression":           {"object", "index"},
	"assignment_expression":          {"left", "right"},
	"augmented_assignment_expression": {"left", "right"},
	"function_declaration":           {"name", "parameters", "body"},
	"generator_function_declaration": {"name", "parameters", "body"},
	"function_expression":            {"name", "parameters", "body"},
	"generator_function":             {"name", "parameters", "body"},
	"method_definition":              {"name", "parameters", "body"},
	"arrow_function":                 {"parameter", "parameters", "body"},
	"call_expression":                {"function", "arguments"},
	"if_statement":                   {"condition", "consequence", "alternative"},
	"while_statement":                {"condition", "body"},
	"do_statement":                   {"condition", "body"},
	"for_statement":                  {"initializer", "condition", "increment", "body"},
	"for_in_statement":               {"kind", "left", "right", "body"},
	"switch_statement":               {"value", "body"},
	"switch_case":                    {"value"},
	"try_statement":                  {"body", "handler", "finalizer"},
	"labeled_statement":              {"label", "body"},
	"break_statement":                {"label"},
	"continue_statement":             {"label"},
	"class_declaration":              {"name", "body"},
	"class":                          {"name", "body"},
}

// fieldOf recovers the slot name a child occupies on its parent, or "" for
// unfielded children.
func fieldOf(parent, child *sitter.Node) string {
	for _, f := range kindFields[parent.Kind()] {
		if fc := parent.ChildByFieldName(f); fc != nil && fc.Id() == child.Id() {
			return f
		}
	}
	return ""
}
