package solver

import "github.com/ritamzico/factgraph/internal/fact"

// Binding is one CSP variable's value in a Solution: either a node/
// relationship Identifier (for pattern variables) or a scalar Value
// (for variable-length path bindings, represented as a list of
// relationship ids; see DESIGN.md's variable-length expansion note).
type Binding struct {
	ID       fact.Identifier
	IsNode   bool
	Value    fact.Value
	HasValue bool
}

func nodeBinding(id fact.Identifier) Binding { return Binding{ID: id, IsNode: true} }

func relBinding(id fact.Identifier) Binding { return Binding{ID: id} }

func valueBinding(v fact.Value) Binding { return Binding{Value: v, HasValue: true} }

// Solution is one satisfying assignment: Variable -> Value/Identifier.
type Solution map[string]Binding
