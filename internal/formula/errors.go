package formula

import "fmt"

// SyntaxError reports a malformed expression.
type SyntaxError struct {
	Expr    string
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("formula syntax error at %d in %q: %s", e.Pos, e.Expr, e.Message)
}

// UnknownIdentifierError reports a variable or function outside the scope.
type UnknownIdentifierError struct {
	Expr     string
	Name     string
	Function bool
}

func (e *UnknownIdentifierError) Error() string {
	if e.Function {
		return fmt.Sprintf("formula %q calls unknown function %q", e.Expr, e.Name)
	}
	return fmt.Sprintf("formula %q references undeclared variable %q", e.Expr, e.Name)
}

// EvalError reports a runtime failure such as division by zero.
type EvalError struct {
	Expr    string
	Message string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("formula %q: %s", e.Expr, e.Message)
}
