package engine

import (
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/ritamzico/factgraph/internal/ast"
	"github.com/ritamzico/factgraph/internal/fact"
	"github.com/ritamzico/factgraph/internal/solver"
)

func freshID() fact.Identifier {
	return fact.Identifier(ulid.Make().String())
}

// createClause implements CREATE: for each row, walk every path
// in the pattern left to right, minting a fresh id for each node or
// relationship variable not already bound in the row (a CREATE pattern
// may anchor on a variable an earlier MATCH already bound, e.g.
// `MATCH (a) CREATE (a)-[:KNOWS]->(b)`), and insert the corresponding
// facts. New bindings are folded back into the row so RETURN can
// project the created entities.
func (e *Engine) createClause(c ast.Create, rows []Row, params map[string]fact.Value) ([]Row, error) {
	out := make([]Row, len(rows))
	for i, r := range rows {
		next := cloneRow(r)
		for _, path := range c.Pattern.Paths {
			if err := e.createPath(path, next, params); err != nil {
				return nil, err
			}
		}
		out[i] = next
	}
	return out, nil
}

// createPath inserts the facts for one path pattern into row, creating
// fresh node/relationship ids for every variable not already bound.
func (e *Engine) createPath(path ast.PathPattern, row Row, params map[string]fact.Value) error {
	nodeIDs := make([]fact.Identifier, 0, len(path.Elements)/2+1)
	for _, el := range path.Elements {
		np, ok := el.(ast.NodePattern)
		if !ok {
			continue
		}
		id, isNew, err := e.resolveOrCreateNode(np, row, params)
		if err != nil {
			return err
		}
		if isNew && np.HasVar {
			row[np.Variable] = solver.Binding{ID: id, IsNode: true}
		}
		nodeIDs = append(nodeIDs, id)
	}

	nodeIdx := 0
	for _, el := range path.Elements {
		rp, ok := el.(ast.RelationshipPattern)
		if !ok {
			continue
		}
		left, right := nodeIDs[nodeIdx], nodeIDs[nodeIdx+1]
		nodeIdx++
		src, tgt := left, right
		if rp.Direction == ast.Left {
			src, tgt = right, left
		}
		if len(rp.Types) != 1 {
			return &ExecutionError{Kind: "InvalidCreatePattern", Message: "CREATE relationship must declare exactly one type"}
		}
		relID := freshID()
		if _, err := e.Ins.Insert(fact.Relationship{RelID: relID, SourceID: src, TargetID: tgt, Type: rp.Types[0]}); err != nil {
			return err
		}
		if err := e.insertProperties(row, rp.Properties, params, func(key string, v fact.Value) fact.Fact {
			return fact.RelationshipHasProperty{RelID: relID, Key_: key, Value: v}
		}); err != nil {
			return err
		}
		if rp.HasVar {
			row[rp.Variable] = solver.Binding{ID: relID}
		}
	}
	return nil
}

// resolveOrCreateNode reuses an already-bound node variable as an
// anchor, or mints a fresh node and inserts its declared labels and
// properties.
func (e *Engine) resolveOrCreateNode(np ast.NodePattern, row Row, params map[string]fact.Value) (fact.Identifier, bool, error) {
	if np.HasVar {
		if b, ok := row[np.Variable]; ok && b.IsNode {
			return b.ID, false, nil
		}
	}
	id := freshID()
	for _, label := range np.Labels {
		if _, err := e.Ins.Insert(fact.NodeHasLabel{NodeID: id, Label: label}); err != nil {
			return "", false, err
		}
	}
	if err := e.insertProperties(row, np.Properties, params, func(key string, v fact.Value) fact.Fact {
		return fact.NodeHasProperty{NodeID: id, Key_: key, Value: v}
	}); err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (e *Engine) insertProperties(row Row, props *ast.PropertyMap, params map[string]fact.Value, build func(key string, v fact.Value) fact.Fact) error {
	if props == nil {
		return nil
	}
	for _, key := range props.Keys {
		v, err := solver.Eval(props.Values[key], e.Coll, row, params)
		if err != nil {
			return err
		}
		if _, err := e.Ins.Insert(build(key, v)); err != nil {
			return err
		}
	}
	return nil
}

// mergeClause implements MERGE [ON CREATE SET ...] [ON MATCH SET ...].
// Per row, it solves the single path pattern standalone; an
// existing match runs ON MATCH SET against the first solution (the
// solver orders solutions deterministically, so "first" is stable),
// and no match falls back to the same creation path CREATE uses,
// followed by ON CREATE SET.
func (e *Engine) mergeClause(m ast.Merge, rows []Row, params map[string]fact.Value) ([]Row, error) {
	pattern := ast.Pattern{Paths: []ast.PathPattern{m.Pattern}}
	out := make([]Row, len(rows))
	for i, r := range rows {
		next := cloneRow(r)
		solutions, err := e.Solver.Solve(pattern, nil, e.Coll, params)
		if err != nil {
			return nil, err
		}
		if len(solutions) > 0 {
			for k, v := range solutions[0] {
				next[k] = v
			}
			if err := e.applySetItems(m.OnMatch, next, params); err != nil {
				return nil, err
			}
		} else {
			if err := e.createPath(m.Pattern, next, params); err != nil {
				return nil, err
			}
			if err := e.applySetItems(m.OnCreate, next, params); err != nil {
				return nil, err
			}
		}
		out[i] = next
	}
	return out, nil
}

// setClause implements SET. Per Open Question 1
// (DESIGN.md), every assignment inserts a new fact rather than mutating
// one in place; Collection.Property/RelationshipProperty already return
// the most recently inserted value for a key, so later SETs supersede
// earlier ones for read purposes without retracting anything.
func (e *Engine) setClause(s ast.Set, rows []Row, params map[string]fact.Value) ([]Row, error) {
	for _, r := range rows {
		if err := e.applySetItems(s.Items, r, params); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (e *Engine) applySetItems(items []ast.SetItem, row Row, params map[string]fact.Value) error {
	for _, item := range items {
		if err := e.applySetItem(item, row, params); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) applySetItem(item ast.SetItem, row Row, params map[string]fact.Value) error {
	switch item.Kind {
	case ast.SetPropertyItem:
		pa, ok := item.Target.(ast.PropertyAccess)
		if !ok {
			return &ExecutionError{Kind: "InvalidSetItem", Message: "SET property target must be a property access"}
		}
		v, ok := pa.Expression.(ast.Variable)
		if !ok {
			return &ExecutionError{Kind: "InvalidSetItem", Message: "SET property target must reference a bound variable"}
		}
		b, bound := row[v.Name]
		if !bound {
			return &ExecutionError{Kind: "UnboundVariable", Message: fmt.Sprintf("SET target %q is not bound", v.Name)}
		}
		val, err := solver.Eval(item.Value, e.Coll, row, params)
		if err != nil {
			return err
		}
		if b.IsNode {
			_, err = e.Ins.Insert(fact.NodeHasProperty{NodeID: b.ID, Key_: pa.Property, Value: val})
		} else {
			_, err = e.Ins.Insert(fact.RelationshipHasProperty{RelID: b.ID, Key_: pa.Property, Value: val})
		}
		return err

	case ast.SetVariableItem:
		b, bound := row[item.Variable]
		if !bound {
			return &ExecutionError{Kind: "UnboundVariable", Message: fmt.Sprintf("SET target %q is not bound", item.Variable)}
		}
		v, err := solver.Eval(item.Value, e.Coll, row, params)
		if err != nil {
			return err
		}
		if v.Kind != fact.MapVal {
			return &ExecutionError{Kind: "InvalidSetItem", Message: "SET n = ... / n += ... requires a map expression"}
		}
		for key, val := range v.M {
			if b.IsNode {
				_, err = e.Ins.Insert(fact.NodeHasProperty{NodeID: b.ID, Key_: key, Value: val})
			} else {
				_, err = e.Ins.Insert(fact.RelationshipHasProperty{RelID: b.ID, Key_: key, Value: val})
			}
			if err != nil {
				return err
			}
		}
		return nil

	case ast.SetLabelsItem:
		b, bound := row[item.Variable]
		if !bound {
			return &ExecutionError{Kind: "UnboundVariable", Message: fmt.Sprintf("SET target %q is not bound", item.Variable)}
		}
		for _, label := range item.Labels {
			if _, err := e.Ins.Insert(fact.NodeHasLabel{NodeID: b.ID, Label: label}); err != nil {
				return err
			}
		}
		return nil

	default:
		return &ExecutionError{Kind: "UnknownSetItem", Message: "unrecognized SET item kind"}
	}
}
