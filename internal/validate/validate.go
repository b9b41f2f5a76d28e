// Package validate is the semantic validator: scope analysis and
// static checks over the typed AST, run after parsing and conversion
// and before compilation is considered complete. Violations aggregate
// via go-multierror so one pass reports every scope error instead of
// stopping at the first.
package validate

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/ritamzico/factgraph/internal/ast"
)

// Validate walks a compiled query's typed AST, checking that every
// variable reference is bound, that WITH/RETURN correctly narrow scope,
// and that ORDER BY expressions reference only projected aliases. It
// returns the symbol table built along the way regardless of whether
// validation failed, so partial results remain inspectable.
func Validate(root ast.ASTNode) (*SymbolTable, error) {
	table := newSymbolTable()
	var errs *multierror.Error

	switch n := root.(type) {
	case ast.RegularQuery:
		if err := validateSingle(n.Single.(ast.SingleQuery), nil, table); err != nil {
			errs = multierror.Append(errs, err)
		}
		for _, u := range n.Unions {
			if err := validateSingle(u.Right.(ast.SingleQuery), nil, table); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	case ast.SingleQuery:
		if err := validateSingle(n, nil, table); err != nil {
			errs = multierror.Append(errs, err)
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("validate: unsupported query root %T", root))
	}
	return table, errs.ErrorOrNil()
}

func validateSingle(sq ast.SingleQuery, parent *Scope, table *SymbolTable) error {
	scope := newScope(parent)
	var errs *multierror.Error

	for _, stmt := range sq.Statements {
		switch s := stmt.(type) {
		case ast.Match:
			bindPattern(s.Pattern, scope, table)
			checkPatternExprs(s.Pattern, scope, &errs)
			if s.Where != nil {
				checkExpr(s.Where, scope, &errs)
			}
		case ast.Create:
			checkPatternExprs(s.Pattern, scope, &errs)
			bindPattern(s.Pattern, scope, table)
		case ast.Merge:
			checkPathExprs(s.Pattern, scope, &errs)
			bindPath(s.Pattern, scope, table)
			for _, item := range s.OnCreate {
				checkSetItem(item, scope, &errs)
			}
			for _, item := range s.OnMatch {
				checkSetItem(item, scope, &errs)
			}
		case ast.Delete:
			for _, e := range s.Expressions {
				checkExpr(e, scope, &errs)
			}
		case ast.Set:
			for _, item := range s.Items {
				checkSetItem(item, scope, &errs)
			}
		case ast.Remove:
			for _, item := range s.Items {
				if item.Target != nil {
					checkExpr(item.Target, scope, &errs)
				}
				if item.Variable != "" && !scope.Bound(item.Variable) {
					errs = multierror.Append(errs, errUnbound(item.Variable))
				}
			}
		case ast.Unwind:
			checkExpr(s.Expression, scope, &errs)
			scope.Bind(s.Alias)
			table.record(s.Alias, UnwindBinding)
		case ast.With:
			for _, item := range s.Projections {
				checkExpr(item.Expression, scope, &errs)
			}
			next := newScope(nil)
			if s.Star {
				for _, name := range scope.names() {
					next.Bind(name)
				}
			}
			for _, item := range s.Projections {
				alias := item.Alias
				if alias == "" {
					alias = varNameOf(item.Expression)
				}
				if alias != "" {
					next.Bind(alias)
					table.record(alias, WithBinding)
				}
			}
			scope = next
			if s.Where != nil {
				checkExpr(s.Where, scope, &errs)
			}
			for _, o := range s.OrderBy {
				checkProjectedExpr(o.Expression, scope, &errs)
			}
			if s.Skip != nil {
				checkProjectedExpr(s.Skip, scope, &errs)
			}
			if s.Limit != nil {
				checkProjectedExpr(s.Limit, scope, &errs)
			}
		case ast.Return:
			for _, item := range s.Items {
				checkExpr(item.Expression, scope, &errs)
			}
			final := newScope(nil)
			if s.Star {
				for _, name := range scope.names() {
					final.Bind(name)
				}
			}
			for _, item := range s.Items {
				alias := item.Alias
				if alias == "" {
					alias = varNameOf(item.Expression)
				}
				if alias != "" {
					final.Bind(alias)
					table.record(alias, ReturnBinding)
				}
			}
			for _, o := range s.OrderBy {
				checkProjectedExpr(o.Expression, final, &errs)
			}
			if s.Skip != nil {
				checkProjectedExpr(s.Skip, final, &errs)
			}
			if s.Limit != nil {
				checkProjectedExpr(s.Limit, final, &errs)
			}
			scope = final
		case ast.Call:
			for _, a := range s.Args {
				checkExpr(a, scope, &errs)
			}
			for _, y := range s.Yields {
				scope.Bind(y)
				table.record(y, CallYieldBinding)
			}
		}
	}
	return errs.ErrorOrNil()
}

func checkSetItem(item ast.SetItem, scope *Scope, errs **multierror.Error) {
	if item.Target != nil {
		checkExpr(item.Target, scope, errs)
	}
	if item.Value != nil {
		checkExpr(item.Value, scope, errs)
	}
	if item.Variable != "" && !scope.Bound(item.Variable) {
		*errs = multierror.Append(*errs, errUnbound(item.Variable))
	}
}

func varNameOf(n ast.ASTNode) string {
	if v, ok := n.(ast.Variable); ok {
		return v.Name
	}
	return ""
}

// --- pattern binding ---

func bindPattern(p ast.Pattern, scope *Scope, table *SymbolTable) {
	for _, path := range p.Paths {
		bindPath(path, scope, table)
	}
}

func bindPath(path ast.PathPattern, scope *Scope, table *SymbolTable) {
	for _, el := range path.Elements {
		switch e := el.(type) {
		case ast.NodePattern:
			if e.HasVar {
				scope.Bind(e.Variable)
				table.record(e.Variable, PatternBinding)
			}
		case ast.RelationshipPattern:
			if e.HasVar {
				scope.Bind(e.Variable)
				table.record(e.Variable, PatternBinding)
			}
		}
	}
	if path.Variable != "" {
		scope.Bind(path.Variable)
		table.record(path.Variable, PatternBinding)
	}
}

func checkPatternExprs(p ast.Pattern, scope *Scope, errs **multierror.Error) {
	for _, path := range p.Paths {
		checkPathExprs(path, scope, errs)
	}
}

func checkPathExprs(path ast.PathPattern, scope *Scope, errs **multierror.Error) {
	for _, el := range path.Elements {
		switch e := el.(type) {
		case ast.NodePattern:
			checkPropertyMap(e.Properties, scope, errs)
		case ast.RelationshipPattern:
			checkPropertyMap(e.Properties, scope, errs)
		}
	}
}

func checkPropertyMap(m *ast.PropertyMap, scope *Scope, errs **multierror.Error) {
	if m == nil {
		return
	}
	for _, k := range m.Keys {
		checkExpr(m.Values[k], scope, errs)
	}
}

// --- expression walk ---

func checkExpr(n ast.ASTNode, scope *Scope, errs **multierror.Error) {
	if n == nil {
		return
	}
	switch e := n.(type) {
	case ast.Variable:
		if !scope.Bound(e.Name) {
			*errs = multierror.Append(*errs, errUnbound(e.Name))
		}
	case ast.PropertyAccess:
		checkExpr(e.Expression, scope, errs)
	case ast.Index:
		checkExpr(e.Expression, scope, errs)
		checkExpr(e.Start, scope, errs)
		checkExpr(e.End, scope, errs)
	case ast.Arithmetic:
		checkExpr(e.Left, scope, errs)
		checkExpr(e.Right, scope, errs)
	case ast.Comparison:
		checkExpr(e.Left, scope, errs)
		checkExpr(e.Right, scope, errs)
	case ast.And:
		for _, op := range e.Operands {
			checkExpr(op, scope, errs)
		}
	case ast.Or:
		for _, op := range e.Operands {
			checkExpr(op, scope, errs)
		}
	case ast.Xor:
		for _, op := range e.Operands {
			checkExpr(op, scope, errs)
		}
	case ast.Not:
		checkExpr(e.Operand, scope, errs)
	case ast.In:
		checkExpr(e.Left, scope, errs)
		checkExpr(e.Right, scope, errs)
	case ast.StringPredicate:
		checkExpr(e.Left, scope, errs)
		checkExpr(e.Right, scope, errs)
	case ast.IsNull:
		checkExpr(e.Expression, scope, errs)
	case ast.HasLabels:
		checkExpr(e.Expression, scope, errs)
	case ast.FunctionCall:
		for _, a := range e.Args {
			checkExpr(a, scope, errs)
		}
	case ast.Case:
		checkExpr(e.Scrutinee, scope, errs)
		for _, b := range e.Branches {
			checkExpr(b.When, scope, errs)
			checkExpr(b.Then, scope, errs)
		}
		checkExpr(e.Else, scope, errs)
	case ast.ListLiteral:
		for _, item := range e.Items {
			checkExpr(item, scope, errs)
		}
	case ast.MapLiteral:
		checkPropertyMap(e.Entries, scope, errs)
	case ast.MapProjection:
		checkExpr(e.Base, scope, errs)
		for _, entry := range e.Entries {
			checkExpr(entry.Value, scope, errs)
		}
	case ast.ListComprehension:
		checkExpr(e.Source, scope, errs)
		child := newScope(scope)
		child.Bind(e.Variable)
		checkExpr(e.Filter, child, errs)
		checkExpr(e.Projection, child, errs)
	case ast.PatternComprehension:
		child := newScope(scope)
		bindPath(e.Pattern, child, newSymbolTable())
		checkPathExprs(e.Pattern, child, errs)
		checkExpr(e.Where, child, errs)
		checkExpr(e.Projection, child, errs)
	case ast.Reduce:
		checkExpr(e.Init, scope, errs)
		checkExpr(e.Source, scope, errs)
		child := newScope(scope)
		child.Bind(e.Accumulator)
		child.Bind(e.Variable)
		checkExpr(e.Body, child, errs)
	case ast.Quantifier:
		checkExpr(e.Source, scope, errs)
		child := newScope(scope)
		child.Bind(e.Variable)
		checkExpr(e.Predicate, child, errs)
	case ast.Exists:
		checkExistsCorrelated(e, scope, errs)
	case ast.ShortestPath:
		child := newScope(scope)
		bindPath(e.Pattern, child, newSymbolTable())
		checkPathExprs(e.Pattern, child, errs)
	case ast.IntegerLiteral, ast.FloatLiteral, ast.StringLiteral, ast.BooleanLiteral, ast.NullLiteral, ast.Parameter:
		// leaves: nothing to bind or check
	}
}

// checkProjectedExpr validates an ORDER BY/SKIP/LIMIT expression against
// a post-WITH/RETURN scope — ORDER BY may reference only projected
// aliases — reporting an UnprojectedAlias rather than a
// generic UnboundVariable when the top-level reference fails — the
// expression may still nest arbitrarily, so unresolved references deeper
// in the tree fall back to checkExpr's ordinary handling.
func checkProjectedExpr(n ast.ASTNode, scope *Scope, errs **multierror.Error) {
	if v, ok := n.(ast.Variable); ok {
		if !scope.Bound(v.Name) {
			*errs = multierror.Append(*errs, errUnprojected(v.Name))
		}
		return
	}
	checkExpr(n, scope, errs)
}

// checkExistsCorrelated validates an EXISTS subquery or bare pattern in
// a child scope chained to the outer one, so outer-bound variables
// resolve but nothing declared inside leaks back out: variables from
// the outer scope are visible read-only inside.
func checkExistsCorrelated(e ast.Exists, scope *Scope, errs **multierror.Error) {
	if e.Pattern != nil {
		child := newScope(scope)
		bindPattern(*e.Pattern, child, newSymbolTable())
		checkPatternExprs(*e.Pattern, child, errs)
		return
	}
	switch sq := e.Subquery.(type) {
	case ast.SingleQuery:
		if err := validateSingle(sq, scope, newSymbolTable()); err != nil {
			*errs = multierror.Append(*errs, err)
		}
	case ast.RegularQuery:
		if err := validateSingle(sq.Single.(ast.SingleQuery), scope, newSymbolTable()); err != nil {
			*errs = multierror.Append(*errs, err)
		}
	}
}
