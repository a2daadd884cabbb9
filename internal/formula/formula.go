// Package formula compiles the arithmetic formulas authored in questionnaire
// schemas. Expressions are parsed and run by expr, restricted to declared
// variables, the four arithmetic operators and a fixed function set.
package formula

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/file"
	"github.com/expr-lang/expr/vm"
)

// Scope declares the names a formula may reference. Vectors may only be
// passed to aggregate functions.
type Scope struct {
	scalars map[string]bool
	vectors map[string]bool
}

// NewScope builds a scope from scalar and vector variable names.
func NewScope(scalars []string, vectors []string) Scope {
	s := Scope{scalars: make(map[string]bool, len(scalars)), vectors: make(map[string]bool, len(vectors))}
	for _, name := range scalars {
		s.scalars[name] = true
	}
	for _, name := range vectors {
		s.vectors[name] = true
	}
	return s
}

// env returns the typed sample environment expr checks a formula against.
func (s Scope) env() map[string]any {
	out := make(map[string]any, len(s.scalars)+len(s.vectors))
	for name := range s.scalars {
		out[envName(name)] = 0.0
	}
	for name := range s.vectors {
		out[envName(name)] = []float64{}
	}
	return out
}

// Env binds values to the names of a scope at evaluation time.
type Env struct {
	Scalars map[string]float64
	Vectors map[string][]float64
}

type variable struct {
	name   string
	vector bool
}

// Program is a compiled formula. It is immutable and safe for concurrent use.
type Program struct {
	source  string
	program *vm.Program
	vars    []variable
}

// Source returns the expression the program was compiled from.
func (p *Program) Source() string { return p.source }

// Variables returns the sorted variable names the program reads.
func (p *Program) Variables() []string {
	out := make([]string, len(p.vars))
	for i, v := range p.vars {
		out[i] = v.name
	}
	return out
}

// Eval evaluates the program. Results that are not finite fail.
func (p *Program) Eval(env Env) (float64, error) {
	bound := make(map[string]any, len(p.vars))
	for _, v := range p.vars {
		if v.vector {
			values, ok := env.Vectors[v.name]
			if !ok {
				return 0, &EvalError{Expr: p.source, Message: fmt.Sprintf("list %q is not bound", v.name)}
			}
			bound[envName(v.name)] = values
			continue
		}
		value, ok := env.Scalars[v.name]
		if !ok {
			return 0, &EvalError{Expr: p.source, Message: fmt.Sprintf("variable %q is not bound", v.name)}
		}
		bound[envName(v.name)] = value
	}

	out, err := expr.Run(p.program, bound)
	if err != nil {
		var fileErr *file.Error
		if errors.As(err, &fileErr) {
			return 0, &EvalError{Expr: p.source, Message: fileErr.Message}
		}
		return 0, &EvalError{Expr: p.source, Message: err.Error()}
	}
	v, ok := out.(float64)
	if !ok {
		return 0, &EvalError{Expr: p.source, Message: fmt.Sprintf("result %v is not a number", out)}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &EvalError{Expr: p.source, Message: "result is not a finite number"}
	}
	return v, nil
}

// Compile parses source and binds it against scope. The expression must
// produce a scalar.
func Compile(source string, scope Scope) (*Program, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &SyntaxError{Expr: source, Message: "empty expression"}
	}

	r := newRewriter(source, scope)
	options := append([]expr.Option{
		expr.Env(scope.env()),
		expr.AsFloat64(),
		expr.DisableAllBuiltins(),
		expr.Patch(r),
	}, functionOptions...)

	program, err := expr.Compile(source, options...)
	if rejected := r.verdict(); rejected != nil {
		return nil, rejected
	}
	if err != nil {
		var fileErr *file.Error
		if errors.As(err, &fileErr) {
			return nil, &SyntaxError{Expr: source, Pos: fileErr.From, Message: fileErr.Message}
		}
		return nil, &SyntaxError{Expr: source, Message: err.Error()}
	}

	return &Program{source: source, program: program, vars: r.variables()}, nil
}

func sortedVariables(seen map[string]bool) []variable {
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]variable, len(names))
	for i, name := range names {
		out[i] = variable{name: name, vector: seen[name]}
	}
	return out
}
