// Package engine is the query executor: it ties the typed AST, the
// constraint solver, and the fact collection together into the full
// source-to-result-rows pipeline for the query half of the system (the
// other half, trigger re-evaluation, lives in internal/trigger). It is
// a clause-by-clause row pipeline, since a Cypher statement chains many
// clauses rather than nesting one query tree.
package engine

import (
	"github.com/ritamzico/factgraph/internal/fact"
	"github.com/ritamzico/factgraph/internal/solver"
)

// Inserter is satisfied by both fact.Collection and *trigger.Runtime.
// Mutating clauses (CREATE/MERGE/SET) insert through whichever one the
// caller wires in, so facts a query derives can also activate triggers.
type Inserter interface {
	Insert(f fact.Fact) (fact.InsertOutcome, error)
}

// Engine executes a validated typed AST against a fact collection.
type Engine struct {
	Coll   fact.Collection
	Ins    Inserter
	Solver *solver.Solver
}

// New builds an Engine. ins may be nil, in which case mutations insert
// directly into coll with no trigger activation.
func New(coll fact.Collection, ins Inserter, sv *solver.Solver) *Engine {
	if sv == nil {
		sv = solver.New()
	}
	if ins == nil {
		ins = coll
	}
	return &Engine{Coll: coll, Ins: ins, Solver: sv}
}
