package solver

import (
	"github.com/ritamzico/factgraph/internal/ast"
	"github.com/ritamzico/factgraph/internal/fact"
)

// Ground returns every label and relationship type a pattern mentions,
// used by the trigger runtime to index which newly-inserted facts make
// a trigger a candidate for re-evaluation.
func Ground(pattern ast.Pattern) (labels []string, relTypes []string) {
	ir := compilePattern(pattern)
	seenL, seenT := map[string]bool{}, map[string]bool{}
	for _, v := range ir.vars {
		if v.isNode {
			for _, set := range v.labelSets {
				for _, l := range set {
					seenL[l] = true
				}
			}
		} else {
			for _, set := range v.typeSets {
				for _, t := range set {
					seenT[t] = true
				}
			}
		}
	}
	for l := range seenL {
		labels = append(labels, l)
	}
	for t := range seenT {
		relTypes = append(relTypes, t)
	}
	return labels, relTypes
}

// Eval evaluates expr against a completed solution, for callers outside
// this package that need to project a solved binding (the query
// executor's clause expressions, the trigger runtime's RETURN-clause
// parameter evaluation). params backs $name references the same way it
// does inside Solve.
func Eval(expr ast.ASTNode, coll fact.Collection, sol Solution, params map[string]fact.Value) (fact.Value, error) {
	env := &evalEnv{coll: coll, params: params, binding: sol}
	return Evaluate(expr, env)
}
