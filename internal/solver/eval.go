package solver

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ritamzico/factgraph/internal/ast"
	"github.com/ritamzico/factgraph/internal/fact"
)

// evalEnv is the evaluation context for one candidate binding: the fact
// collection backing property lookups, query parameters, and the
// partial/complete variable assignment built up during backtracking.
type evalEnv struct {
	coll    fact.Collection
	params  map[string]fact.Value
	binding map[string]Binding
}

// Evaluate computes expr's value under env. Property lookups and
// comparisons that reference an unbound variable, or that try to read a
// property of an unbound node, yield Null rather than an error — the
// caller collapses Null to false at filter boundaries.
func Evaluate(expr ast.ASTNode, env *evalEnv) (fact.Value, error) {
	switch e := expr.(type) {
	case ast.IntegerLiteral:
		return fact.Int(e.Value), nil
	case ast.FloatLiteral:
		return fact.Float(e.Value), nil
	case ast.StringLiteral:
		return fact.Str(e.Value), nil
	case ast.BooleanLiteral:
		return fact.Bool(e.Value), nil
	case ast.NullLiteral:
		return fact.Null(), nil
	case ast.ListLiteral:
		items := make([]fact.Value, 0, len(e.Items))
		for _, item := range e.Items {
			v, err := Evaluate(item, env)
			if err != nil {
				return fact.Value{}, err
			}
			items = append(items, v)
		}
		return fact.List(items), nil
	case ast.MapLiteral:
		m := map[string]fact.Value{}
		if e.Entries != nil {
			for _, k := range e.Entries.Keys {
				v, err := Evaluate(e.Entries.Values[k], env)
				if err != nil {
					return fact.Value{}, err
				}
				m[k] = v
			}
		}
		return fact.Map(m), nil
	case ast.Parameter:
		if v, ok := env.params[e.Name]; ok {
			return v, nil
		}
		return fact.Null(), nil
	case ast.Variable:
		b, ok := env.binding[e.Name]
		if !ok {
			return fact.Null(), nil
		}
		if b.HasValue {
			return b.Value, nil
		}
		return fact.Str(string(b.ID)), nil
	case ast.PropertyAccess:
		return evalPropertyAccess(e, env)
	case ast.Arithmetic:
		return evalArithmetic(e, env)
	case ast.Comparison:
		return evalComparison(e, env)
	case ast.And:
		return evalAnd(e, env)
	case ast.Or:
		return evalOr(e, env)
	case ast.Xor:
		return evalXor(e, env)
	case ast.Not:
		v, err := Evaluate(e.Operand, env)
		if err != nil {
			return fact.Value{}, err
		}
		return fact.Bool(!truthy(v)), nil
	case ast.In:
		return evalIn(e, env)
	case ast.StringPredicate:
		return evalStringPredicate(e, env)
	case ast.IsNull:
		v, err := Evaluate(e.Expression, env)
		if err != nil {
			return fact.Value{}, err
		}
		result := v.IsNull()
		if e.Negate {
			result = !result
		}
		return fact.Bool(result), nil
	case ast.HasLabels:
		return evalHasLabels(e, env)
	case ast.FunctionCall:
		return evalFunctionCall(e, env)
	case ast.Index:
		return evalIndex(e, env)
	case ast.Case:
		return evalCase(e, env)
	case ast.ListComprehension:
		return evalListComprehension(e, env)
	case ast.PatternComprehension:
		return evalPatternComprehension(e, env)
	case ast.MapProjection:
		return evalMapProjection(e, env)
	case ast.Reduce:
		return evalReduce(e, env)
	case ast.Quantifier:
		return evalQuantifier(e, env)
	case ast.Exists:
		return evalExists(e, env)
	case ast.ShortestPath:
		return evalShortestPath(e, env)
	default:
		return fact.Value{}, errUnsupportedExpr(fmt.Sprintf("%T", expr))
	}
}

// with temporarily binds name in env, returning the restore function the
// caller runs once the scoped evaluation is done. Comprehension, reduce,
// and quantifier binders shadow an outer binding of the same name and
// uncover it again afterwards.
func (env *evalEnv) with(name string, b Binding) func() {
	prev, had := env.binding[name]
	env.binding[name] = b
	return func() {
		if had {
			env.binding[name] = prev
		} else {
			delete(env.binding, name)
		}
	}
}

func truthy(v fact.Value) bool {
	if v.IsNull() {
		return false
	}
	if v.Kind == fact.BoolVal {
		return v.B
	}
	return false
}

func evalPropertyAccess(e ast.PropertyAccess, env *evalEnv) (fact.Value, error) {
	v, ok := e.Expression.(ast.Variable)
	if !ok {
		return fact.Null(), nil
	}
	b, ok := env.binding[v.Name]
	if !ok {
		return fact.Null(), nil
	}
	if b.IsNode {
		if val, ok := env.coll.Property(b.ID, e.Property); ok {
			return val, nil
		}
		return fact.Null(), nil
	}
	if val, ok := env.coll.RelationshipProperty(b.ID, e.Property); ok {
		return val, nil
	}
	return fact.Null(), nil
}

func evalArithmetic(e ast.Arithmetic, env *evalEnv) (fact.Value, error) {
	left, err := Evaluate(e.Left, env)
	if err != nil {
		return fact.Value{}, err
	}
	if e.Right == nil {
		switch e.Op {
		case "unary-":
			if left.Kind == fact.IntVal {
				return fact.Int(-left.I), nil
			}
			return fact.Float(-left.F), nil
		default:
			return left, nil
		}
	}
	right, err := Evaluate(e.Right, env)
	if err != nil {
		return fact.Value{}, err
	}
	if left.IsNull() || right.IsNull() {
		return fact.Null(), nil
	}
	if e.Op == "+" && (left.Kind == fact.StringVal || right.Kind == fact.StringVal) {
		return fact.Str(left.String() + right.String()), nil
	}
	lf, lIsFloat := numeric(left)
	rf, rIsFloat := numeric(right)
	result := 0.0
	switch e.Op {
	case "+":
		result = lf + rf
	case "-":
		result = lf - rf
	case "*":
		result = lf * rf
	case "/":
		if rf == 0 {
			return fact.Null(), nil
		}
		result = lf / rf
	case "%":
		result = float64(int64(lf) % int64(rf))
	case "^":
		result = pow(lf, rf)
	default:
		return fact.Value{}, errUnsupportedExpr("Arithmetic:" + e.Op)
	}
	if lIsFloat || rIsFloat || e.Op == "/" {
		return fact.Float(result), nil
	}
	return fact.Int(int64(result)), nil
}

func numeric(v fact.Value) (float64, bool) {
	if v.Kind == fact.FloatVal {
		return v.F, true
	}
	return float64(v.I), false
}

func pow(base, exp float64) float64 { return math.Pow(base, exp) }

func evalComparison(e ast.Comparison, env *evalEnv) (fact.Value, error) {
	left, err := Evaluate(e.Left, env)
	if err != nil {
		return fact.Value{}, err
	}
	right, err := Evaluate(e.Right, env)
	if err != nil {
		return fact.Value{}, err
	}
	if left.IsNull() || right.IsNull() {
		return fact.Null(), nil
	}
	switch e.Op {
	case ast.OpEq:
		return fact.Bool(left.Equal(right)), nil
	case ast.OpNeq:
		return fact.Bool(!left.Equal(right)), nil
	case ast.OpLt:
		return fact.Bool(left.Less(right)), nil
	case ast.OpGt:
		return fact.Bool(right.Less(left)), nil
	case ast.OpLte:
		return fact.Bool(left.Less(right) || left.Equal(right)), nil
	case ast.OpGte:
		return fact.Bool(right.Less(left) || left.Equal(right)), nil
	default:
		return fact.Value{}, errUnsupportedExpr("Comparison:" + string(e.Op))
	}
}

// evalAnd/evalOr/evalXor implement three-valued logic: Null propagates
// unless the result is already determined (false absorbs in AND, true
// absorbs in OR), matching standard SQL/Cypher NULL semantics before the
// final filter-boundary collapse.
func evalAnd(e ast.And, env *evalEnv) (fact.Value, error) {
	sawNull := false
	for _, op := range e.Operands {
		v, err := Evaluate(op, env)
		if err != nil {
			return fact.Value{}, err
		}
		if v.IsNull() {
			sawNull = true
			continue
		}
		if !truthy(v) {
			return fact.Bool(false), nil
		}
	}
	if sawNull {
		return fact.Null(), nil
	}
	return fact.Bool(true), nil
}

func evalOr(e ast.Or, env *evalEnv) (fact.Value, error) {
	sawNull := false
	for _, op := range e.Operands {
		v, err := Evaluate(op, env)
		if err != nil {
			return fact.Value{}, err
		}
		if v.IsNull() {
			sawNull = true
			continue
		}
		if truthy(v) {
			return fact.Bool(true), nil
		}
	}
	if sawNull {
		return fact.Null(), nil
	}
	return fact.Bool(false), nil
}

func evalXor(e ast.Xor, env *evalEnv) (fact.Value, error) {
	result := false
	for _, op := range e.Operands {
		v, err := Evaluate(op, env)
		if err != nil {
			return fact.Value{}, err
		}
		if v.IsNull() {
			return fact.Null(), nil
		}
		result = result != truthy(v)
	}
	return fact.Bool(result), nil
}

func evalIn(e ast.In, env *evalEnv) (fact.Value, error) {
	left, err := Evaluate(e.Left, env)
	if err != nil {
		return fact.Value{}, err
	}
	right, err := Evaluate(e.Right, env)
	if err != nil {
		return fact.Value{}, err
	}
	if right.Kind != fact.ListVal {
		return fact.Null(), nil
	}
	for _, item := range right.L {
		if left.Equal(item) {
			return fact.Bool(true), nil
		}
	}
	return fact.Bool(false), nil
}

func evalStringPredicate(e ast.StringPredicate, env *evalEnv) (fact.Value, error) {
	left, err := Evaluate(e.Left, env)
	if err != nil {
		return fact.Value{}, err
	}
	right, err := Evaluate(e.Right, env)
	if err != nil {
		return fact.Value{}, err
	}
	if left.IsNull() || right.IsNull() || left.Kind != fact.StringVal || right.Kind != fact.StringVal {
		return fact.Null(), nil
	}
	switch e.Op {
	case ast.StartsWith:
		return fact.Bool(strings.HasPrefix(left.S, right.S)), nil
	case ast.EndsWith:
		return fact.Bool(strings.HasSuffix(left.S, right.S)), nil
	default:
		return fact.Bool(strings.Contains(left.S, right.S)), nil
	}
}

func evalHasLabels(e ast.HasLabels, env *evalEnv) (fact.Value, error) {
	v, ok := e.Expression.(ast.Variable)
	if !ok {
		return fact.Null(), nil
	}
	b, ok := env.binding[v.Name]
	if !ok || !b.IsNode {
		return fact.Null(), nil
	}
	for _, label := range e.Labels {
		found := false
		for id := range env.coll.FactsByLabel(label) {
			if id == b.ID {
				found = true
				break
			}
		}
		if !found {
			return fact.Bool(false), nil
		}
	}
	return fact.Bool(true), nil
}

// evalFunctionCall implements the handful of built-ins needed for
// filter/projection expressions; unrecognized names evaluate to Null
// rather than failing the whole query, matching the solver's overall
// tolerance for best-effort dynamic typing.
func evalFunctionCall(e ast.FunctionCall, env *evalEnv) (fact.Value, error) {
	args := make([]fact.Value, 0, len(e.Args))
	for _, a := range e.Args {
		v, err := Evaluate(a, env)
		if err != nil {
			return fact.Value{}, err
		}
		args = append(args, v)
	}
	switch strings.ToLower(e.Name) {
	case "id":
		if len(args) == 1 && args[0].Kind == fact.StringVal {
			return args[0], nil
		}
		return fact.Null(), nil
	case "toupper":
		if len(args) == 1 && args[0].Kind == fact.StringVal {
			return fact.Str(strings.ToUpper(args[0].S)), nil
		}
		return fact.Null(), nil
	case "tolower":
		if len(args) == 1 && args[0].Kind == fact.StringVal {
			return fact.Str(strings.ToLower(args[0].S)), nil
		}
		return fact.Null(), nil
	case "size":
		if len(args) == 1 && args[0].Kind == fact.ListVal {
			return fact.Int(int64(len(args[0].L))), nil
		}
		return fact.Null(), nil
	case "coalesce":
		for _, a := range args {
			if !a.IsNull() {
				return a, nil
			}
		}
		return fact.Null(), nil
	default:
		return fact.Null(), nil
	}
}

func evalIndex(e ast.Index, env *evalEnv) (fact.Value, error) {
	container, err := Evaluate(e.Expression, env)
	if err != nil {
		return fact.Value{}, err
	}
	if e.Slice {
		if container.Kind != fact.ListVal {
			return fact.Null(), nil
		}
		start, end := int64(0), int64(len(container.L))
		if e.Start != nil {
			v, err := Evaluate(e.Start, env)
			if err != nil {
				return fact.Value{}, err
			}
			if v.Kind == fact.IntVal {
				start = v.I
			}
		}
		if e.End != nil {
			v, err := Evaluate(e.End, env)
			if err != nil {
				return fact.Value{}, err
			}
			if v.Kind == fact.IntVal {
				end = v.I
			}
		}
		n := int64(len(container.L))
		if start < 0 {
			start += n
		}
		if end < 0 {
			end += n
		}
		start = min(max(start, 0), n)
		end = min(max(end, start), n)
		return fact.List(container.L[start:end]), nil
	}
	if e.Start == nil {
		return fact.Null(), nil
	}
	idx, err := Evaluate(e.Start, env)
	if err != nil {
		return fact.Value{}, err
	}
	if container.Kind == fact.ListVal && idx.Kind == fact.IntVal {
		i := idx.I
		if i < 0 {
			i += int64(len(container.L))
		}
		if i < 0 || i >= int64(len(container.L)) {
			return fact.Null(), nil
		}
		return container.L[i], nil
	}
	if container.Kind == fact.MapVal && idx.Kind == fact.StringVal {
		if v, ok := container.M[idx.S]; ok {
			return v, nil
		}
	}
	return fact.Null(), nil
}

func evalCase(e ast.Case, env *evalEnv) (fact.Value, error) {
	if e.Scrutinee != nil {
		scrutinee, err := Evaluate(e.Scrutinee, env)
		if err != nil {
			return fact.Value{}, err
		}
		for _, b := range e.Branches {
			when, err := Evaluate(b.When, env)
			if err != nil {
				return fact.Value{}, err
			}
			if scrutinee.Equal(when) {
				return Evaluate(b.Then, env)
			}
		}
	} else {
		for _, b := range e.Branches {
			when, err := Evaluate(b.When, env)
			if err != nil {
				return fact.Value{}, err
			}
			if truthy(when) {
				return Evaluate(b.Then, env)
			}
		}
	}
	if e.Else != nil {
		return Evaluate(e.Else, env)
	}
	return fact.Null(), nil
}

func evalListComprehension(e ast.ListComprehension, env *evalEnv) (fact.Value, error) {
	source, err := Evaluate(e.Source, env)
	if err != nil {
		return fact.Value{}, err
	}
	if source.Kind != fact.ListVal {
		return fact.Null(), nil
	}
	out := []fact.Value{}
	for _, item := range source.L {
		restore := env.with(e.Variable, valueBinding(item))
		if e.Filter != nil {
			keep, err := Evaluate(e.Filter, env)
			if err != nil {
				restore()
				return fact.Value{}, err
			}
			if !truthy(keep) {
				restore()
				continue
			}
		}
		mapped := item
		if e.Projection != nil {
			mapped, err = Evaluate(e.Projection, env)
			if err != nil {
				restore()
				return fact.Value{}, err
			}
		}
		restore()
		out = append(out, mapped)
	}
	return fact.List(out), nil
}

// evalPatternComprehension solves the comprehension's pattern standalone
// and keeps only solutions consistent with the enclosing bindings, so a
// pattern correlating on an outer variable — [(n)-[:K]->(m) | m.name]
// with n already bound — projects only that node's matches.
func evalPatternComprehension(e ast.PatternComprehension, env *evalEnv) (fact.Value, error) {
	pattern := ast.Pattern{Paths: []ast.PathPattern{e.Pattern}}
	solutions, err := New().Solve(pattern, e.Where, env.coll, env.params)
	if err != nil {
		return fact.Value{}, err
	}
	out := []fact.Value{}
	for _, sol := range solutions {
		if !solutionConsistent(sol, env.binding) {
			continue
		}
		child := &evalEnv{coll: env.coll, params: env.params, binding: mergeBindings(env.binding, sol)}
		v, err := Evaluate(e.Projection, child)
		if err != nil {
			return fact.Value{}, err
		}
		out = append(out, v)
	}
	return fact.List(out), nil
}

func solutionConsistent(sol Solution, outer map[string]Binding) bool {
	for name, b := range sol {
		ob, ok := outer[name]
		if !ok {
			continue
		}
		if b.HasValue != ob.HasValue {
			return false
		}
		if b.HasValue {
			if !b.Value.Equal(ob.Value) {
				return false
			}
		} else if b.ID != ob.ID {
			return false
		}
	}
	return true
}

func mergeBindings(outer map[string]Binding, sol Solution) map[string]Binding {
	merged := make(map[string]Binding, len(outer)+len(sol))
	for k, v := range outer {
		merged[k] = v
	}
	for k, v := range sol {
		merged[k] = v
	}
	return merged
}

// evalMapProjection renders variable{...} against the entity bound to
// the base variable. The reserved "*" entry expands every stored
// property of that entity, later entries overriding earlier ones on key
// collision.
func evalMapProjection(e ast.MapProjection, env *evalEnv) (fact.Value, error) {
	v, ok := e.Base.(ast.Variable)
	if !ok {
		return fact.Null(), nil
	}
	b, bound := env.binding[v.Name]
	if !bound || b.HasValue {
		return fact.Null(), nil
	}
	out := map[string]fact.Value{}
	for _, entry := range e.Entries {
		if entry.Key == "*" && entry.Value == nil {
			for _, key := range storedPropertyKeys(env, b) {
				if pv, ok := lookupProperty(env, b, key); ok {
					out[key] = pv
				}
			}
			continue
		}
		ev, err := Evaluate(entry.Value, env)
		if err != nil {
			return fact.Value{}, err
		}
		out[entry.Key] = ev
	}
	return fact.Map(out), nil
}

func storedPropertyKeys(env *evalEnv, b Binding) []string {
	seen := map[string]bool{}
	if b.IsNode {
		for f := range env.coll.FactsForNode(b.ID) {
			if p, ok := f.(fact.NodeHasProperty); ok {
				seen[p.Key_] = true
			}
		}
	} else {
		for f := range env.coll.FactsForRelationship(b.ID) {
			if p, ok := f.(fact.RelationshipHasProperty); ok {
				seen[p.Key_] = true
			}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lookupProperty(env *evalEnv, b Binding, key string) (fact.Value, bool) {
	if b.IsNode {
		return env.coll.Property(b.ID, key)
	}
	return env.coll.RelationshipProperty(b.ID, key)
}

func evalReduce(e ast.Reduce, env *evalEnv) (fact.Value, error) {
	acc, err := Evaluate(e.Init, env)
	if err != nil {
		return fact.Value{}, err
	}
	source, err := Evaluate(e.Source, env)
	if err != nil {
		return fact.Value{}, err
	}
	if source.Kind != fact.ListVal {
		return fact.Null(), nil
	}
	for _, item := range source.L {
		restoreAcc := env.with(e.Accumulator, valueBinding(acc))
		restoreVar := env.with(e.Variable, valueBinding(item))
		acc, err = Evaluate(e.Body, env)
		restoreVar()
		restoreAcc()
		if err != nil {
			return fact.Value{}, err
		}
	}
	return acc, nil
}

func evalQuantifier(e ast.Quantifier, env *evalEnv) (fact.Value, error) {
	source, err := Evaluate(e.Source, env)
	if err != nil {
		return fact.Value{}, err
	}
	if source.Kind != fact.ListVal {
		return fact.Null(), nil
	}
	matched := 0
	for _, item := range source.L {
		restore := env.with(e.Variable, valueBinding(item))
		ok := true
		if e.Predicate != nil {
			v, err := Evaluate(e.Predicate, env)
			if err != nil {
				restore()
				return fact.Value{}, err
			}
			ok = truthy(v)
		}
		restore()
		if ok {
			matched++
		}
	}
	switch e.QKind {
	case ast.QAll:
		return fact.Bool(matched == len(source.L)), nil
	case ast.QAny:
		return fact.Bool(matched > 0), nil
	case ast.QSingle:
		return fact.Bool(matched == 1), nil
	default:
		return fact.Bool(matched == 0), nil
	}
}

// evalExists solves the EXISTS pattern (or its subquery's MATCH, the
// part of a subquery this evaluator can decide) and reports whether any
// solution is consistent with the enclosing bindings.
func evalExists(e ast.Exists, env *evalEnv) (fact.Value, error) {
	var pattern ast.Pattern
	var where ast.ASTNode
	if e.Pattern != nil {
		pattern = *e.Pattern
	} else {
		m, ok := firstMatch(e.Subquery)
		if !ok {
			return fact.Null(), nil
		}
		pattern, where = m.Pattern, m.Where
	}
	solutions, err := New().Solve(pattern, where, env.coll, env.params)
	if err != nil {
		return fact.Value{}, err
	}
	for _, sol := range solutions {
		if solutionConsistent(sol, env.binding) {
			return fact.Bool(true), nil
		}
	}
	return fact.Bool(false), nil
}

func firstMatch(n ast.ASTNode) (ast.Match, bool) {
	switch q := n.(type) {
	case ast.RegularQuery:
		return firstMatch(q.Single)
	case ast.SingleQuery:
		for _, stmt := range q.Statements {
			if m, ok := stmt.(ast.Match); ok {
				return m, true
			}
		}
	}
	return ast.Match{}, false
}

// evalShortestPath runs a breadth-first search between the pattern's two
// endpoint nodes, both of which must already be bound. A single-path
// form yields the first shortest path's relationship ids as a list; the
// allShortestPaths form yields one such list per equally short path.
// Unbound endpoints or an unreachable target yield Null.
func evalShortestPath(e ast.ShortestPath, env *evalEnv) (fact.Value, error) {
	srcVar, rel, tgtVar, ok := shortestPathShape(e.Pattern)
	if !ok {
		return fact.Null(), nil
	}
	src, okSrc := identityBinding(env, srcVar)
	tgt, okTgt := identityBinding(env, tgtVar)
	if !okSrc || !okTgt {
		return fact.Null(), nil
	}
	if src == tgt {
		if e.All {
			return fact.List([]fact.Value{fact.List(nil)}), nil
		}
		return fact.List(nil), nil
	}

	maxDepth := defaultMaxDepth
	if rel.Length != nil && rel.Length.Max != nil {
		maxDepth = *rel.Length.Max
	}
	paths := bfsShortestPaths(env, src, tgt, rel, maxDepth)
	if len(paths) == 0 {
		return fact.Null(), nil
	}
	rendered := make([]fact.Value, len(paths))
	for i, path := range paths {
		ids := make([]fact.Value, len(path))
		for j, r := range path {
			ids[j] = fact.Str(string(r.RelID))
		}
		rendered[i] = fact.List(ids)
	}
	sort.Slice(rendered, func(i, j int) bool { return rendered[i].Less(rendered[j]) })
	if e.All {
		return fact.List(rendered), nil
	}
	return rendered[0], nil
}

// shortestPathShape accepts only the single-hop pattern form
// (start)-[...]-(end); longer chains fall back to Null at the call site.
func shortestPathShape(p ast.PathPattern) (srcVar string, rel ast.RelationshipPattern, tgtVar string, ok bool) {
	if len(p.Elements) != 3 {
		return "", ast.RelationshipPattern{}, "", false
	}
	start, ok1 := p.Elements[0].(ast.NodePattern)
	r, ok2 := p.Elements[1].(ast.RelationshipPattern)
	end, ok3 := p.Elements[2].(ast.NodePattern)
	if !ok1 || !ok2 || !ok3 || !start.HasVar || !end.HasVar {
		return "", ast.RelationshipPattern{}, "", false
	}
	if r.Direction == ast.Left {
		return end.Variable, r, start.Variable, true
	}
	return start.Variable, r, end.Variable, true
}

func identityBinding(env *evalEnv, name string) (fact.Identifier, bool) {
	b, ok := env.binding[name]
	if !ok || b.HasValue {
		return "", false
	}
	return b.ID, true
}

func bfsShortestPaths(env *evalEnv, src, tgt fact.Identifier, rel ast.RelationshipPattern, maxDepth int) [][]fact.Relationship {
	types := map[string]bool{}
	for _, t := range rel.Types {
		types[t] = true
	}
	type step struct {
		rel  fact.Relationship
		next fact.Identifier
	}
	adj := map[fact.Identifier][]step{}
	for r := range env.coll.AllRelationships() {
		if len(types) > 0 && !types[r.Type] {
			continue
		}
		adj[r.SourceID] = append(adj[r.SourceID], step{r, r.TargetID})
		if rel.Direction == ast.Undirected {
			adj[r.TargetID] = append(adj[r.TargetID], step{r, r.SourceID})
		}
	}

	type state struct {
		node fact.Identifier
		path []fact.Relationship
	}
	var found [][]fact.Relationship
	frontier := []state{{node: src}}
	seenDepth := map[fact.Identifier]int{src: 0}
	for depth := 1; depth <= maxDepth && len(frontier) > 0 && len(found) == 0; depth++ {
		var next []state
		for _, st := range frontier {
			for _, sp := range adj[st.node] {
				if d, ok := seenDepth[sp.next]; ok && d < depth {
					continue
				}
				path := make([]fact.Relationship, len(st.path), len(st.path)+1)
				copy(path, st.path)
				path = append(path, sp.rel)
				if sp.next == tgt {
					found = append(found, path)
					continue
				}
				seenDepth[sp.next] = depth
				next = append(next, state{sp.next, path})
			}
		}
		frontier = next
	}
	return found
}
