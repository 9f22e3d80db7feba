package condition

import "fmt"

// CompileError indicates an expression could not be compiled: bad syntax,
// a reference outside the identifier allow-list, or a safeguard violation.
type CompileError struct {
	Expr    string
	Message string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("condition %q failed to compile: %s", e.Expr, e.Message)
}

// EvalError indicates a compiled expression failed at runtime, typically a
// type mismatch against the supplied facts. It is a per-rule failure: the
// offending rule is skipped and the rest of the evaluation proceeds.
type EvalError struct {
	Expr  string
	Cause error
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	return fmt.Sprintf("condition %q failed to evaluate: %v", e.Expr, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *EvalError) Unwrap() error {
	return e.Cause
}
