package engine

import "fmt"

// ExecutionError is returned for runtime query-execution failures that
// are neither a SolverTimeout nor a BackendError: malformed clause
// input the validator doesn't catch, or a clause this engine doesn't
// support executing.
type ExecutionError struct {
	Kind    string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error (%s): %s", e.Kind, e.Message)
}

// NotSupportedError reports a clause the compiler accepts (the full
// Cypher surface parses and validates it) but that this engine refuses
// to execute because the fact store is append-only: retraction is not
// supported in the core. DELETE and REMOVE both require
// retracting a fact, which the closed Fact variant set has no way to
// express — see DESIGN.md's extension of Open Question 1.
type NotSupportedError struct {
	Clause string
	Reason string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s is not supported against an append-only fact store: %s", e.Clause, e.Reason)
}
