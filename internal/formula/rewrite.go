package formula

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr/ast"
)

// varPrefix namespaces variables in the expr environment so a variable and
// a function may share a name (min and max are both).
const varPrefix = "var:"

// divide replaces the / operator so a zero divisor fails instead of
// producing an infinity.
const divide = "__divide"

func envName(name string) string { return varPrefix + name }

type reference struct {
	node *ast.IdentifierNode
	name string
	pos  int
}

// rewriter is an expr patch visitor. It renames variables into the
// environment namespace, folds dotted names such as engagement.raw into a
// single variable, routes division through divide and records everything
// the formula grammar does not allow. Nodes are visited children first.
type rewriter struct {
	source string
	scope  Scope

	refs     []reference
	dropped  map[*ast.IdentifierNode]bool
	listArgs map[*ast.IdentifierNode]bool
	literals map[*ast.StringNode]int

	unknown error
	err     error
}

func newRewriter(source string, scope Scope) *rewriter {
	return &rewriter{
		source:   source,
		scope:    scope,
		dropped:  map[*ast.IdentifierNode]bool{},
		listArgs: map[*ast.IdentifierNode]bool{},
		literals: map[*ast.StringNode]int{},
	}
}

func (r *rewriter) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IntegerNode, *ast.FloatNode:
	case *ast.IdentifierNode:
		ident := &ast.IdentifierNode{Value: envName(n.Value)}
		ast.Patch(node, ident)
		r.refs = append(r.refs, reference{node: ident, name: n.Value, pos: n.Location().From})
	case *ast.StringNode:
		r.literals[n] = n.Location().From
	case *ast.MemberNode:
		r.member(node, n)
	case *ast.UnaryNode:
		if n.Operator != "-" && n.Operator != "+" {
			r.fail(n, "operator %q is not allowed", n.Operator)
		}
	case *ast.BinaryNode:
		switch n.Operator {
		case "+", "-", "*":
		case "/":
			ast.Patch(node, &ast.CallNode{
				Callee:    &ast.IdentifierNode{Value: divide},
				Arguments: []ast.Node{n.Left, n.Right},
			})
		default:
			r.fail(n, "operator %q is not allowed", n.Operator)
		}
	case *ast.CallNode:
		r.call(node, n)
	case *ast.BuiltinNode:
		r.unknownFunction(n.Name)
	default:
		r.fail(n, "unsupported expression")
	}
}

// member folds name.suffix into one variable. Only one suffix is allowed.
func (r *rewriter) member(node *ast.Node, n *ast.MemberNode) {
	base, isIdent := n.Node.(*ast.IdentifierNode)
	prop, isName := n.Property.(*ast.StringNode)
	if !isIdent || !isName || n.Optional {
		r.fail(n, "unsupported member access")
		return
	}
	delete(r.literals, prop)
	r.dropped[base] = true

	name := strings.TrimPrefix(base.Value, varPrefix) + "." + prop.Value
	if strings.Count(name, ".") > 1 {
		r.fail(n, "invalid identifier %q", name)
		return
	}
	ident := &ast.IdentifierNode{Value: envName(name)}
	ast.Patch(node, ident)
	r.refs = append(r.refs, reference{node: ident, name: name, pos: n.Location().From})
}

func (r *rewriter) call(node *ast.Node, n *ast.CallNode) {
	callee, ok := n.Callee.(*ast.IdentifierNode)
	if !ok {
		r.fail(n, "only named functions may be called")
		return
	}
	r.dropped[callee] = true
	name := strings.TrimPrefix(callee.Value, varPrefix)

	fn, ok := functions[name]
	if !ok {
		r.unknownFunction(name)
		return
	}
	if fn.arity > 0 && len(n.Arguments) != fn.arity {
		r.fail(n, "%s takes %d argument(s), got %d", name, fn.arity, len(n.Arguments))
		return
	}
	if fn.arity == 0 && len(n.Arguments) == 0 {
		r.fail(n, "%s needs at least one argument", name)
		return
	}
	if fn.aggregate {
		for _, arg := range n.Arguments {
			if ident, ok := arg.(*ast.IdentifierNode); ok {
				r.listArgs[ident] = true
			}
		}
	}
	ast.Patch(node, &ast.CallNode{Callee: &ast.IdentifierNode{Value: name}, Arguments: n.Arguments})
}

func (r *rewriter) unknownFunction(name string) {
	if r.unknown == nil {
		r.unknown = &UnknownIdentifierError{Expr: r.source, Name: name, Function: true}
	}
}

func (r *rewriter) fail(n ast.Node, format string, args ...any) {
	if r.err == nil {
		r.err = &SyntaxError{Expr: r.source, Pos: n.Location().From, Message: fmt.Sprintf(format, args...)}
	}
}

// verdict reports the first rejection: unknown names before grammar
// violations, and lists used outside an aggregate last.
func (r *rewriter) verdict() error {
	if r.unknown != nil {
		return r.unknown
	}
	for _, ref := range r.refs {
		if r.dropped[ref.node] {
			continue
		}
		if !r.scope.scalars[ref.name] && !r.scope.vectors[ref.name] {
			return &UnknownIdentifierError{Expr: r.source, Name: ref.name}
		}
	}
	if r.err != nil {
		return r.err
	}
	for _, ref := range r.refs {
		if r.dropped[ref.node] || !r.scope.vectors[ref.name] || r.listArgs[ref.node] {
			continue
		}
		return &SyntaxError{Expr: r.source, Pos: ref.pos, Message: fmt.Sprintf("%q is a list; wrap it in avg, sum, min or max", ref.name)}
	}
	pos := -1
	for _, at := range r.literals {
		if pos < 0 || at < pos {
			pos = at
		}
	}
	if pos >= 0 {
		return &SyntaxError{Expr: r.source, Pos: pos, Message: "string literals are not allowed"}
	}
	return nil
}

// variables returns the variables the formula reads, marking lists.
func (r *rewriter) variables() []variable {
	seen := map[string]bool{}
	for _, ref := range r.refs {
		if !r.dropped[ref.node] {
			seen[ref.name] = r.scope.vectors[ref.name]
		}
	}
	return sortedVariables(seen)
}
