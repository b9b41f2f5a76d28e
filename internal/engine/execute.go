package engine

import (
	"github.com/ritamzico/factgraph/internal/ast"
	"github.com/ritamzico/factgraph/internal/fact"
)

// Execute runs a fully validated typed AST (the output of
// validate.Validate) to completion and returns the final projection.
// root is always the RegularQuery ast.Convert returns for a top-level
// query.
func (e *Engine) Execute(root ast.ASTNode, params map[string]fact.Value) (*ResultSet, error) {
	rq, ok := root.(ast.RegularQuery)
	if !ok {
		return nil, &ExecutionError{Kind: "InvalidRoot", Message: "Execute requires a RegularQuery node"}
	}

	result, err := e.executeSingle(rq.Single, params)
	if err != nil {
		return nil, err
	}
	for _, u := range rq.Unions {
		right, err := e.executeSingle(u.Right, params)
		if err != nil {
			return nil, err
		}
		result, err = unionResults(result, right, u.Distinct)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// executeSingle runs one SingleQuery's Statements in order over a single
// seed row, threading the accumulated row set through each clause. A
// Return ends the query and renders its result; every clause before it
// only transforms the row set.
func (e *Engine) executeSingle(node ast.ASTNode, params map[string]fact.Value) (*ResultSet, error) {
	sq, ok := node.(ast.SingleQuery)
	if !ok {
		return nil, &ExecutionError{Kind: "InvalidRoot", Message: "expected a SingleQuery"}
	}

	rows := []Row{{}}
	for _, stmt := range sq.Statements {
		var err error
		switch s := stmt.(type) {
		case ast.Match:
			rows, err = e.matchClause(s, rows, params)
		case ast.Unwind:
			rows, err = e.unwindClause(s, rows, params)
		case ast.With:
			rows, err = e.withClause(s, rows, params)
		case ast.Create:
			rows, err = e.createClause(s, rows, params)
		case ast.Merge:
			rows, err = e.mergeClause(s, rows, params)
		case ast.Set:
			rows, err = e.setClause(s, rows, params)
		case ast.Delete:
			return nil, &NotSupportedError{Clause: "DELETE", Reason: "facts cannot be retracted once inserted"}
		case ast.Remove:
			return nil, &NotSupportedError{Clause: "REMOVE", Reason: "facts cannot be retracted once inserted"}
		case ast.Call:
			return nil, &ExecutionError{Kind: "UnsupportedProcedure", Message: "CALL " + s.Procedure + " is not a known procedure"}
		case ast.Return:
			return e.returnClause(s, rows, params)
		default:
			return nil, &ExecutionError{Kind: "UnknownClause", Message: "unrecognized clause in statement sequence"}
		}
		if err != nil {
			return nil, err
		}
	}
	// A statement list with no trailing RETURN (e.g. a bare CREATE) still
	// reports how many rows it touched, with no columns.
	return &ResultSet{Rows: make([][]fact.Value, len(rows))}, nil
}

// unionResults implements UNION [ALL] by concatenating two result
// sets sharing the same column list and optionally deduping rows, per the
// Open Question 3 decision recorded in DESIGN.md.
func unionResults(left, right *ResultSet, distinct bool) (*ResultSet, error) {
	if len(left.Columns) != len(right.Columns) {
		return nil, &ExecutionError{Kind: "UnionColumnMismatch", Message: "both sides of UNION must return the same number of columns"}
	}
	out := &ResultSet{Columns: left.Columns}
	out.Rows = append(out.Rows, left.Rows...)
	out.Rows = append(out.Rows, right.Rows...)
	if distinct {
		out.Rows = dedupeValueRows(out.Rows)
	}
	return out, nil
}

func dedupeValueRows(rows [][]fact.Value) [][]fact.Value {
	seen := map[string]bool{}
	var out [][]fact.Value
	for _, row := range rows {
		key := ""
		for _, v := range row {
			key += v.String() + "|"
		}
		if !seen[key] {
			seen[key] = true
			out = append(out, row)
		}
	}
	return out
}
