package engine

import (
	"sort"
	"strconv"

	"github.com/ritamzico/factgraph/internal/ast"
	"github.com/ritamzico/factgraph/internal/fact"
	"github.com/ritamzico/factgraph/internal/solver"
)

// matchClause re-solves m's pattern and joins each solution against
// every current row, keeping combinations where every variable shared
// between the row and the new solution binds to the same identifier or
// value. With the single synthetic empty row Execute seeds every
// statement list with, this degenerates to "rows = solutions" for a
// query's first MATCH, and becomes a real join for a second MATCH after
// a WITH. A WHERE clause attached to this MATCH is still evaluated only
// against this pattern's own variables (the solver has no way to see an
// outer row's bindings) — see DESIGN.md's note on this simplification.
func (e *Engine) matchClause(m ast.Match, rows []Row, params map[string]fact.Value) ([]Row, error) {
	solutions, err := e.Solver.Solve(m.Pattern, m.Where, e.Coll, params)
	if err != nil {
		return nil, err
	}
	var out []Row
	for _, r := range rows {
		matched := false
		for _, s := range solutions {
			if !rowsConsistent(r, s) {
				continue
			}
			merged := cloneRow(r)
			for k, v := range s {
				merged[k] = v
			}
			out = append(out, merged)
			matched = true
		}
		if !matched && m.Optional {
			out = append(out, r)
		}
	}
	return out, nil
}

func rowsConsistent(a, b Row) bool {
	for k, va := range a {
		vb, ok := b[k]
		if !ok {
			continue
		}
		if va.HasValue != vb.HasValue {
			return false
		}
		if va.HasValue {
			if !va.Value.Equal(vb.Value) {
				return false
			}
		} else if va.ID != vb.ID {
			return false
		}
	}
	return true
}

// unwindClause expands each row into one row per element of a list
// expression, bound as a scalar under w.Alias.
func (e *Engine) unwindClause(w ast.Unwind, rows []Row, params map[string]fact.Value) ([]Row, error) {
	var out []Row
	for _, r := range rows {
		v, err := solver.Eval(w.Expression, e.Coll, r, params)
		if err != nil {
			return nil, err
		}
		if v.Kind != fact.ListVal {
			continue
		}
		for _, item := range v.L {
			next := cloneRow(r)
			next[w.Alias] = valueBinding(item)
			out = append(out, next)
		}
	}
	return out, nil
}

func valueBinding(v fact.Value) solver.Binding {
	return solver.Binding{Value: v, HasValue: true}
}

// projectRows evaluates items against each row, producing a fresh set
// of rows scoped to exactly those aliases — WITH introduces a new
// scope — shared by With and Return (Return just additionally
// renders the projection into a ResultSet instead of continuing the
// pipeline).
func (e *Engine) projectRows(items []ast.ProjectionItem, rows []Row, params map[string]fact.Value) ([]Row, []string, error) {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = projectionName(item, i)
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		next := Row{}
		for j, item := range items {
			// A bare variable projection carries the original binding
			// through unchanged, so a node projected by WITH keeps its
			// identity for a later MATCH to join against.
			if v, ok := item.Expression.(ast.Variable); ok {
				if b, bound := r[v.Name]; bound {
					next[names[j]] = b
					continue
				}
			}
			v, err := solver.Eval(item.Expression, e.Coll, r, params)
			if err != nil {
				return nil, nil, err
			}
			next[names[j]] = solver.Binding{Value: v, HasValue: true}
		}
		out[i] = next
	}
	return out, names, nil
}

func projectionName(item ast.ProjectionItem, idx int) string {
	if item.Alias != "" {
		return item.Alias
	}
	if v, ok := item.Expression.(ast.Variable); ok {
		return v.Name
	}
	return colName(idx)
}

func colName(idx int) string {
	return "col" + strconv.Itoa(idx)
}

// withClause implements WITH [DISTINCT] ... [WHERE ...] [ORDER BY ...]
// [SKIP n] [LIMIT n]. WHERE here is evaluated against the new,
// narrowed scope.
func (e *Engine) withClause(w ast.With, rows []Row, params map[string]fact.Value) ([]Row, error) {
	rows, names, err := e.projectRows(w.Projections, rows, params)
	if err != nil {
		return nil, err
	}
	if w.Distinct {
		rows = dedupeRows(rows, names)
	}
	if w.Where != nil {
		var filtered []Row
		for _, r := range rows {
			v, err := solver.Eval(w.Where, e.Coll, r, params)
			if err != nil {
				return nil, err
			}
			if v.Kind == fact.BoolVal && v.B {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	rows, err = e.orderSkipLimit(rows, w.OrderBy, w.Skip, w.Limit, params)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func dedupeRows(rows []Row, names []string) []Row {
	seen := map[string]bool{}
	var out []Row
	for _, r := range rows {
		k := rowKey(r, names)
		if !seen[k] {
			seen[k] = true
			out = append(out, r)
		}
	}
	return out
}

// orderSkipLimit is shared by With and Return.
func (e *Engine) orderSkipLimit(rows []Row, orderBy []ast.OrderItem, skip, limit ast.ASTNode, params map[string]fact.Value) ([]Row, error) {
	if len(orderBy) > 0 {
		keys := make([][]fact.Value, len(rows))
		for i, r := range rows {
			k := make([]fact.Value, len(orderBy))
			for j, item := range orderBy {
				v, err := solver.Eval(item.Expression, e.Coll, r, params)
				if err != nil {
					return nil, err
				}
				k[j] = v
			}
			keys[i] = k
		}
		idx := make([]int, len(rows))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			for j, item := range orderBy {
				av, bv := keys[idx[a]][j], keys[idx[b]][j]
				if av.Equal(bv) {
					continue
				}
				if item.Desc {
					return bv.Less(av)
				}
				return av.Less(bv)
			}
			return false
		})
		sorted := make([]Row, len(rows))
		for i, j := range idx {
			sorted[i] = rows[j]
		}
		rows = sorted
	}
	if skip != nil {
		n, err := evalInt(e, skip, params)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			n = 0
		}
		if int(n) >= len(rows) {
			rows = nil
		} else {
			rows = rows[n:]
		}
	}
	if limit != nil {
		n, err := evalInt(e, limit, params)
		if err != nil {
			return nil, err
		}
		if int(n) < len(rows) {
			rows = rows[:n]
		}
	}
	return rows, nil
}

// evalInt evaluates a SKIP/LIMIT expression against an empty row (the
// expression may still reference $params).
func evalInt(e *Engine, expr ast.ASTNode, params map[string]fact.Value) (int64, error) {
	v, err := solver.Eval(expr, e.Coll, Row{}, params)
	if err != nil {
		return 0, err
	}
	switch v.Kind {
	case fact.IntVal:
		return v.I, nil
	case fact.FloatVal:
		return int64(v.F), nil
	default:
		return 0, nil
	}
}

// returnClause renders the final projection into a ResultSet.
func (e *Engine) returnClause(ret ast.Return, rows []Row, params map[string]fact.Value) (*ResultSet, error) {
	if ret.Star {
		return e.returnStar(rows)
	}
	projected, names, err := e.projectRows(ret.Items, rows, params)
	if err != nil {
		return nil, err
	}
	if ret.Distinct {
		projected = dedupeRows(projected, names)
	}
	projected, err = e.orderSkipLimit(projected, ret.OrderBy, ret.Skip, ret.Limit, params)
	if err != nil {
		return nil, err
	}
	out := &ResultSet{Columns: names}
	for _, r := range projected {
		row := make([]fact.Value, len(names))
		for i, n := range names {
			row[i] = renderBinding(r[n])
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func renderBinding(b solver.Binding) fact.Value {
	if b.HasValue {
		return b.Value
	}
	return fact.Str(string(b.ID))
}

// returnStar implements "RETURN *": every bound variable name, sorted
// for determinism, rendered as its raw entity id or scalar value.
func (e *Engine) returnStar(rows []Row) (*ResultSet, error) {
	names := map[string]bool{}
	for _, r := range rows {
		for k := range r {
			names[k] = true
		}
	}
	var cols []string
	for n := range names {
		cols = append(cols, n)
	}
	sort.Strings(cols)
	out := &ResultSet{Columns: cols}
	for _, r := range rows {
		row := make([]fact.Value, len(cols))
		for i, n := range cols {
			row[i] = renderBinding(r[n])
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
