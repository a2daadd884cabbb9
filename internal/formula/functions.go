package formula

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/expr-lang/expr"
)

// function is a builtin. arity 0 means variadic (at least one value);
// aggregate functions also accept lists.
type function struct {
	arity     int
	aggregate bool
	apply     func(values []float64) float64
}

var functions = map[string]function{
	"abs":   {arity: 1, apply: func(v []float64) float64 { return math.Abs(v[0]) }},
	"round": {arity: 1, apply: func(v []float64) float64 { return math.RoundToEven(v[0]) }},
	"floor": {arity: 1, apply: func(v []float64) float64 { return math.Floor(v[0]) }},
	"ceil":  {arity: 1, apply: func(v []float64) float64 { return math.Ceil(v[0]) }},
	"clamp": {arity: 3, apply: func(v []float64) float64 { return math.Min(math.Max(v[0], v[1]), v[2]) }},
	"min": {aggregate: true, apply: func(v []float64) float64 {
		out := v[0]
		for _, x := range v[1:] {
			out = math.Min(out, x)
		}
		return out
	}},
	"max": {aggregate: true, apply: func(v []float64) float64 {
		out := v[0]
		for _, x := range v[1:] {
			out = math.Max(out, x)
		}
		return out
	}},
	"sum": {aggregate: true, apply: sum},
	"avg": {aggregate: true, apply: func(v []float64) float64 { return sum(v) / float64(len(v)) }},
}

var errDivisionByZero = errors.New("division by zero")

// functionOptions registers the builtins and the division guard with expr.
var functionOptions = func() []expr.Option {
	opts := make([]expr.Option, 0, len(functions)+1)
	for name, fn := range functions {
		opts = append(opts, expr.Function(name, fn.call(name)))
	}
	opts = append(opts, expr.Function(divide, func(params ...any) (any, error) {
		values, err := numbers(params)
		if err != nil {
			return nil, err
		}
		if len(values) != 2 {
			return nil, fmt.Errorf("division takes 2 operands, got %d", len(values))
		}
		if values[1] == 0 {
			return nil, errDivisionByZero
		}
		return values[0] / values[1], nil
	}))
	return opts
}()

func (f function) call(name string) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		values, err := numbers(params)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("%s called with an empty list", name)
		}
		return f.apply(values), nil
	}
}

// numbers flattens scalar and list arguments into one slice.
func numbers(params []any) ([]float64, error) {
	out := make([]float64, 0, len(params))
	for _, p := range params {
		switch v := p.(type) {
		case float64:
			out = append(out, v)
		case int:
			out = append(out, float64(v))
		case []float64:
			out = append(out, v...)
		default:
			return nil, fmt.Errorf("unexpected %T argument", p)
		}
	}
	return out, nil
}

func sum(v []float64) float64 {
	total := 0.0
	for _, x := range v {
		total += x
	}
	return total
}

// Functions returns the sorted names of the builtin functions.
func Functions() []string {
	out := make([]string, 0, len(functions))
	for name := range functions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// keywords are parsed as operators or literals and cannot name a variable.
var keywords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true,
	"matches": true, "contains": true, "startsWith": true, "endsWith": true,
	"let": true, "if": true, "else": true,
	"true": true, "false": true, "nil": true,
}

// IsKeyword reports whether name is reserved by the expression grammar.
func IsKeyword(name string) bool { return keywords[name] }
