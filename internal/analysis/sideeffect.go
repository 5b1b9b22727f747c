package analysis

import (
	"fmt"

	"github.com/gobwas/glob"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// CallMatcher decides whether a side-effect rule applies to a call. A nil
// matcher always passes.
type CallMatcher func(t *Traversal, call *sitter.Node) bool

// CallAction adds the extra edges a matched call demands.
type CallAction func(t *Traversal, call *sitter.Node)

// SideEffectRule forces extra retention edges for effectful call patterns
// the structural rules cannot see.
type SideEffectRule struct {
	Name     string
	Callee   CallMatcher
	Argument CallMatcher
	Action   CallAction
}

// SideEffectRegistry is an ordered, extensible rule list evaluated against
// every call expression. Rules whose matchers all pass fire their action.
type SideEffectRegistry struct {
	rules []SideEffectRule
}

// NewSideEffectRegistry returns a registry with the built-in rules. Today
// that is forEach: invoking it is inseparable from its callback, so the
// first argument is required by the call itself.
func NewSideEffectRegistry() *SideEffectRegistry {
	r := &SideEffectRegistry{}
	r.Register(SideEffectRule{
		Name:   "forEach",
		Callee: CalleeProperty("forEach"),
		Action: RetainFirstArgument,
	})
	return r
}

func (r *SideEffectRegistry) Register(rule SideEffectRule) {
	r.rules = append(r.rules, rule)
}

func (r *SideEffectRegistry) Apply(t *Traversal, call *sitter.Node) {
	for _, rule := range r.rules {
		if rule.Callee != nil && !rule.Callee(t, call) {
			continue
		}
		if rule.Argument != nil && !rule.Argument(t, call) {
			continue
		}
		rule.Action(t, call)
	}
}

// CalleeProperty matches calls whose callee is a member access with the
// given property name, e.g. anything.forEach(...).
func CalleeProperty(name string) CallMatcher {
	return func(t *Traversal, call *sitter.Node) bool {
		callee := call.ChildByFieldName("function")
		if callee == nil || callee.Kind() != "member_expression" {
			return false
		}
		prop := callee.ChildByFieldName("property")
		return prop != nil && t.Text(prop) == name
	}
}

// CalleePattern matches the full callee text against a glob pattern, e.g.
// "*.addEventListener" or "register*".
func CalleePattern(g glob.Glob) CallMatcher {
	return func(t *Traversal, call *sitter.Node) bool {
		callee := call.ChildByFieldName("function")
		return callee != nil && g.Match(t.Text(callee))
	}
}

// RetainFirstArgument makes the first argument required by the call.
func RetainFirstArgument(t *Traversal, call *sitter.Node) {
	if arg := firstArgument(call); arg != nil {
		t.graph.AddEdge(arg, call)
	}
}

// RetainAllArguments makes every argument required by the call.
func RetainAllArguments(t *Traversal, call *sitter.Node) {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	for _, arg := range namedChildren(args) {
		t.graph.AddEdge(arg, call)
	}
}

// RuleSpec is the data-driven form a configured rule arrives in: a glob over
// the callee text and a named action.
type RuleSpec struct {
	Name   string
	Callee string
	Action string
}

// CompileRule turns a RuleSpec into a registrable rule.
func CompileRule(spec RuleSpec) (SideEffectRule, error) {
	rule := SideEffectRule{Name: spec.Name}
	if spec.Callee != "" {
		g, err := glob.Compile(spec.Callee)
		if err != nil {
			return rule, fmt.Errorf("rule %q: bad callee pattern: %w", spec.Name, err)
		}
		rule.Callee = CalleePattern(g)
	}
	switch spec.Action {
	case "", "retain-first-arg":
		rule.Action = RetainFirstArgument
	case "retain-args":
		rule.Action = RetainAllArguments
	default:
		return rule, fmt.Errorf("rule %q: unknown action %q", spec.Name, spec.Action)
	}
	return rule, nil
}
