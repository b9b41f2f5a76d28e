package solver

import "fmt"

// SolverError is a tagged solver failure.
type SolverError struct {
	Kind    string
	Message string
}

func (e SolverError) Error() string {
	return fmt.Sprintf("solver error (%s): %s", e.Kind, e.Message)
}

func errUnknownVariable(name string) error {
	return SolverError{Kind: "UnknownVariable", Message: fmt.Sprintf("no binding for %q in this candidate", name)}
}

func errUnsupportedExpr(kind string) error {
	return SolverError{Kind: "UnsupportedExpression", Message: fmt.Sprintf("cannot evaluate %s in this context", kind)}
}

// SolverTimeout reports a bounded search (variable-length relationship
// expansion) exceeding MaxDepth. Solve does not return it: expansion
// stops at the depth bound, and longer paths are not enumerated.
type SolverTimeout struct {
	MaxDepth int
}

func (e SolverTimeout) Error() string {
	return fmt.Sprintf("solver error (SolverTimeout): exceeded max traversal depth %d", e.MaxDepth)
}
