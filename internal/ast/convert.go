package ast

import (
	"fmt"

	"github.com/ritamzico/factgraph/internal/rawast"
)

// Convert is the total dispatcher keyed by tag:
// rawast.Node -> ASTNode, or a *ConvertError.
func Convert(n *rawast.Node) (ASTNode, error) {
	if n == nil {
		return nil, errMissingField("<nil>", "<root>")
	}
	switch n.Tag {
	case "RegularQuery":
		return convertRegularQuery(n)
	case "SingleQuery":
		return convertSingleQuery(n)
	case "Match":
		return convertMatch(n)
	case "Create":
		return convertCreate(n)
	case "Merge":
		return convertMerge(n)
	case "Delete":
		return convertDelete(n)
	case "Set":
		return convertSet(n)
	case "Remove":
		return convertRemove(n)
	case "With":
		return convertWith(n)
	case "Unwind":
		return convertUnwind(n)
	case "Return":
		return convertReturn(n)
	case "Call":
		return convertCall(n)
	case "Pattern":
		p, err := convertPattern(n)
		return p, err
	case "Variable":
		return convertVariable(n)
	case "IntegerLiteral":
		return convertIntegerLiteral(n)
	case "FloatLiteral":
		return convertFloatLiteral(n)
	case "StringLiteral":
		return convertStringLiteral(n)
	case "BooleanLiteral":
		return convertBooleanLiteral(n)
	case "NullLiteral":
		return NullLiteral{}, nil
	case "ListLiteral":
		return convertListLiteral(n)
	case "MapLiteral":
		return convertMapLiteral(n)
	case "PropertyAccess":
		return convertPropertyAccess(n)
	case "Index":
		return convertIndex(n)
	case "Arithmetic":
		return convertArithmetic(n)
	case "Comparison":
		return convertComparison(n)
	case "And":
		return convertVariadicBool(n, func(ops []ASTNode) ASTNode { return And{Operands: ops} })
	case "Or":
		return convertVariadicBool(n, func(ops []ASTNode) ASTNode { return Or{Operands: ops} })
	case "Xor":
		return convertVariadicBool(n, func(ops []ASTNode) ASTNode { return Xor{Operands: ops} })
	case "Not":
		return convertNot(n)
	case "In":
		return convertIn(n)
	case "StringPredicate":
		return convertStringPredicate(n)
	case "IsNull":
		return convertIsNull(n)
	case "HasLabels":
		return convertHasLabels(n)
	case "FunctionCall":
		return convertFunctionCall(n)
	case "Case":
		return convertCase(n)
	case "ListComprehension":
		return convertListComprehension(n)
	case "PatternComprehension":
		return convertPatternComprehension(n)
	case "MapProjection":
		return convertMapProjection(n)
	case "Reduce":
		return convertReduce(n)
	case "Quantifier":
		return convertQuantifier(n)
	case "Exists":
		return convertExists(n)
	case "ShortestPath":
		return convertShortestPath(n)
	case "Parameter":
		return convertParameter(n)
	default:
		return nil, errUnknownNodeType(n.Tag)
	}
}

// --- field access helpers ---

func field(n *rawast.Node, name string) (any, bool) {
	v, ok := n.Fields[name]
	return v, ok
}

func requireField(n *rawast.Node, name string) (any, error) {
	v, ok := field(n, name)
	if !ok {
		return nil, errMissingField(n.Tag, name)
	}
	return v, nil
}

func nodeField(n *rawast.Node, name string) (*rawast.Node, error) {
	v, err := requireField(n, name)
	if err != nil {
		return nil, err
	}
	rn, ok := v.(*rawast.Node)
	if !ok {
		return nil, errTypeMismatch(n.Tag, name, "*rawast.Node", fmt.Sprintf("%T", v))
	}
	return rn, nil
}

func optionalNodeField(n *rawast.Node, name string) *rawast.Node {
	v, ok := field(n, name)
	if !ok || v == nil {
		return nil
	}
	rn, _ := v.(*rawast.Node)
	return rn
}

func stringField(n *rawast.Node, name string) (string, error) {
	v, err := requireField(n, name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", errTypeMismatch(n.Tag, name, "string", fmt.Sprintf("%T", v))
	}
	return s, nil
}

func boolField(n *rawast.Node, name string) bool {
	v, ok := field(n, name)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func stringSliceField(n *rawast.Node, name string) []string {
	v, ok := field(n, name)
	if !ok {
		return nil
	}
	s, _ := v.([]string)
	return s
}

func convertOptionalExpr(n *rawast.Node) (ASTNode, error) {
	if n == nil {
		return nil, nil
	}
	return Convert(n)
}

// --- query roots ---

func convertRegularQuery(n *rawast.Node) (ASTNode, error) {
	single, err := nodeField(n, "single")
	if err != nil {
		return nil, err
	}
	left, err := convertSingleQuery(single)
	if err != nil {
		return nil, err
	}
	var unions []Union
	for _, u := range n.Children {
		s, err := nodeField(u, "single")
		if err != nil {
			return nil, err
		}
		right, err := convertSingleQuery(s)
		if err != nil {
			return nil, err
		}
		unions = append(unions, Union{Distinct: !boolField(u, "all"), Left: left, Right: right})
		left = right
	}
	return RegularQuery{Single: left, Unions: unions}, nil
}

func convertSingleQuery(n *rawast.Node) (ASTNode, error) {
	stmts := make([]ASTNode, 0, len(n.Children))
	for _, c := range n.Children {
		cn, err := Convert(c)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, cn)
	}
	return SingleQuery{Statements: stmts}, nil
}

// --- clauses ---

func convertMatch(n *rawast.Node) (ASTNode, error) {
	patNode, err := nodeField(n, "pattern")
	if err != nil {
		return nil, err
	}
	pattern, err := convertPattern(patNode)
	if err != nil {
		return nil, err
	}
	where, err := convertOptionalExpr(optionalNodeField(n, "where"))
	if err != nil {
		return nil, err
	}
	return Match{Optional: boolField(n, "optional"), Pattern: pattern, Where: where}, nil
}

func convertCreate(n *rawast.Node) (ASTNode, error) {
	patNode, err := nodeField(n, "pattern")
	if err != nil {
		return nil, err
	}
	pattern, err := convertPattern(patNode)
	if err != nil {
		return nil, err
	}
	return Create{Pattern: pattern}, nil
}

func convertMerge(n *rawast.Node) (ASTNode, error) {
	patNode, err := nodeField(n, "pattern")
	if err != nil {
		return nil, err
	}
	path, err := convertPathPattern(patNode)
	if err != nil {
		return nil, err
	}
	onCreate, err := convertSetList(n, "on_create")
	if err != nil {
		return nil, err
	}
	onMatch, err := convertSetList(n, "on_match")
	if err != nil {
		return nil, err
	}
	return Merge{Pattern: path, OnCreate: onCreate, OnMatch: onMatch}, nil
}

func convertSetList(n *rawast.Node, field_ string) ([]SetItem, error) {
	v, ok := field(n, field_)
	if !ok {
		return nil, nil
	}
	rns, ok := v.([]*rawast.Node)
	if !ok {
		return nil, nil
	}
	out := make([]SetItem, 0, len(rns))
	for _, rn := range rns {
		cn, err := convertSet(rn)
		if err != nil {
			return nil, err
		}
		out = append(out, cn.(Set).Items...)
	}
	return out, nil
}

func convertDelete(n *rawast.Node) (ASTNode, error) {
	exprs := make([]ASTNode, 0, len(n.Children))
	for _, c := range n.Children {
		e, err := Convert(c)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return Delete{Detach: boolField(n, "detach"), Expressions: exprs}, nil
}

func convertSet(n *rawast.Node) (ASTNode, error) {
	items := make([]SetItem, 0, len(n.Children))
	for _, c := range n.Children {
		item, err := convertSetItem(c)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return Set{Items: items}, nil
}

func convertSetItem(n *rawast.Node) (SetItem, error) {
	switch n.Tag {
	case "SetProperty":
		target, err := nodeField(n, "target")
		if err != nil {
			return SetItem{}, err
		}
		targetAST, err := Convert(target)
		if err != nil {
			return SetItem{}, err
		}
		value, err := nodeField(n, "value")
		if err != nil {
			return SetItem{}, err
		}
		valueAST, err := Convert(value)
		if err != nil {
			return SetItem{}, err
		}
		return SetItem{Kind: SetPropertyItem, Target: targetAST, Value: valueAST}, nil
	case "SetVariable":
		v, err := stringField(n, "variable")
		if err != nil {
			return SetItem{}, err
		}
		value, err := nodeField(n, "value")
		if err != nil {
			return SetItem{}, err
		}
		valueAST, err := Convert(value)
		if err != nil {
			return SetItem{}, err
		}
		return SetItem{Kind: SetVariableItem, Variable: v, Merge: boolField(n, "merge"), Value: valueAST}, nil
	case "SetLabels":
		v, err := stringField(n, "variable")
		if err != nil {
			return SetItem{}, err
		}
		return SetItem{Kind: SetLabelsItem, Variable: v, Labels: stringSliceField(n, "labels")}, nil
	default:
		return SetItem{}, errUnknownNodeType(n.Tag)
	}
}

func convertRemove(n *rawast.Node) (ASTNode, error) {
	items := make([]RemoveItem, 0, len(n.Children))
	for _, c := range n.Children {
		switch c.Tag {
		case "RemoveProperty":
			target, err := nodeField(c, "target")
			if err != nil {
				return nil, err
			}
			targetAST, err := Convert(target)
			if err != nil {
				return nil, err
			}
			items = append(items, RemoveItem{Target: targetAST})
		case "RemoveLabels":
			v, err := stringField(c, "variable")
			if err != nil {
				return nil, err
			}
			items = append(items, RemoveItem{Variable: v, Labels: stringSliceField(c, "labels")})
		default:
			return nil, errUnknownNodeType(c.Tag)
		}
	}
	return Remove{Items: items}, nil
}

func convertProjectionItems(n *rawast.Node) ([]ProjectionItem, error) {
	items := make([]ProjectionItem, 0, len(n.Children))
	for _, c := range n.Children {
		exprNode, err := nodeField(c, "expression")
		if err != nil {
			return nil, err
		}
		expr, err := Convert(exprNode)
		if err != nil {
			return nil, err
		}
		alias, _ := stringField(c, "alias")
		items = append(items, ProjectionItem{Expression: expr, Alias: alias})
	}
	return items, nil
}

func convertOrderBy(n *rawast.Node) ([]OrderItem, error) {
	v, ok := field(n, "order_by")
	if !ok {
		return nil, nil
	}
	rns, ok := v.([]*rawast.Node)
	if !ok {
		return nil, nil
	}
	out := make([]OrderItem, 0, len(rns))
	for _, rn := range rns {
		exprNode, err := nodeField(rn, "expression")
		if err != nil {
			return nil, err
		}
		expr, err := Convert(exprNode)
		if err != nil {
			return nil, err
		}
		out = append(out, OrderItem{Expression: expr, Desc: boolField(rn, "desc")})
	}
	return out, nil
}

func convertWith(n *rawast.Node) (ASTNode, error) {
	items, err := convertProjectionItems(n)
	if err != nil {
		return nil, err
	}
	order, err := convertOrderBy(n)
	if err != nil {
		return nil, err
	}
	skip, err := convertOptionalExpr(optionalNodeField(n, "skip"))
	if err != nil {
		return nil, err
	}
	limit, err := convertOptionalExpr(optionalNodeField(n, "limit"))
	if err != nil {
		return nil, err
	}
	where, err := convertOptionalExpr(optionalNodeField(n, "where"))
	if err != nil {
		return nil, err
	}
	return With{Projections: items, Distinct: boolField(n, "distinct"), Star: boolField(n, "star"), OrderBy: order, Skip: skip, Limit: limit, Where: where}, nil
}

func convertUnwind(n *rawast.Node) (ASTNode, error) {
	exprNode, err := nodeField(n, "expression")
	if err != nil {
		return nil, err
	}
	expr, err := Convert(exprNode)
	if err != nil {
		return nil, err
	}
	alias, err := stringField(n, "alias")
	if err != nil {
		return nil, err
	}
	return Unwind{Expression: expr, Alias: alias}, nil
}

func convertReturn(n *rawast.Node) (ASTNode, error) {
	items, err := convertProjectionItems(n)
	if err != nil {
		return nil, err
	}
	order, err := convertOrderBy(n)
	if err != nil {
		return nil, err
	}
	skip, err := convertOptionalExpr(optionalNodeField(n, "skip"))
	if err != nil {
		return nil, err
	}
	limit, err := convertOptionalExpr(optionalNodeField(n, "limit"))
	if err != nil {
		return nil, err
	}
	return Return{Distinct: boolField(n, "distinct"), Star: boolField(n, "star"), Items: items, OrderBy: order, Skip: skip, Limit: limit}, nil
}

func convertCall(n *rawast.Node) (ASTNode, error) {
	proc, err := stringField(n, "procedure")
	if err != nil {
		return nil, err
	}
	args := make([]ASTNode, 0, len(n.Children))
	for _, c := range n.Children {
		a, err := Convert(c)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	var yields []string
	if v, ok := field(n, "yields"); ok {
		yields, _ = v.([]string)
	}
	return Call{Procedure: proc, Args: args, Yields: yields}, nil
}

// --- patterns ---

func convertPattern(n *rawast.Node) (Pattern, error) {
	paths := make([]PathPattern, 0, len(n.Children))
	for _, c := range n.Children {
		p, err := convertPathPattern(c)
		if err != nil {
			return Pattern{}, err
		}
		paths = append(paths, p)
	}
	return Pattern{Paths: paths}, nil
}

func convertPathPattern(n *rawast.Node) (PathPattern, error) {
	variable, _ := stringField(n, "variable")
	elements := make([]ASTNode, 0, len(n.Children))
	for _, c := range n.Children {
		switch c.Tag {
		case "NodePattern":
			np, err := convertNodePattern(c)
			if err != nil {
				return PathPattern{}, err
			}
			elements = append(elements, np)
		case "RelationshipPattern":
			rp, err := convertRelationshipPattern(c)
			if err != nil {
				return PathPattern{}, err
			}
			elements = append(elements, rp)
		default:
			return PathPattern{}, errUnknownNodeType(c.Tag)
		}
	}
	return PathPattern{Variable: variable, Elements: elements}, nil
}

func convertNodePattern(n *rawast.Node) (NodePattern, error) {
	variable, _ := stringField(n, "variable")
	props, err := convertPropertiesField(n)
	if err != nil {
		return NodePattern{}, err
	}
	return NodePattern{Variable: variable, HasVar: variable != "", Labels: stringSliceField(n, "labels"), Properties: props}, nil
}

func convertRelationshipPattern(n *rawast.Node) (RelationshipPattern, error) {
	variable, _ := stringField(n, "variable")
	dirStr, _ := stringField(n, "direction")
	dir := Undirected
	switch dirStr {
	case "Left":
		dir = Left
	case "Right":
		dir = Right
	}
	props, err := convertPropertiesField(n)
	if err != nil {
		return RelationshipPattern{}, err
	}
	var length *RelLength
	if v, ok := field(n, "length"); ok {
		if m, ok := v.(map[string]any); ok {
			rl := &RelLength{HasLen: true}
			if min, ok := m["min"].(int); ok {
				rl.Min = &min
			}
			if max, ok := m["max"].(int); ok {
				rl.Max = &max
			}
			length = rl
		}
	}
	return RelationshipPattern{
		Variable:   variable,
		HasVar:     variable != "",
		Types:      stringSliceField(n, "types"),
		Direction:  dir,
		Properties: props,
		Length:     length,
	}, nil
}

func convertPropertiesField(n *rawast.Node) (*PropertyMap, error) {
	v, ok := field(n, "properties")
	if !ok || v == nil {
		return newPropertyMap(), nil
	}
	om, ok := v.(rawast.PropertyMap)
	if !ok {
		return nil, errTypeMismatch(n.Tag, "properties", "rawast.PropertyMap", fmt.Sprintf("%T", v))
	}
	return convertOrderedMap(n.Tag, om)
}

func convertOrderedMap(tag string, om rawast.PropertyMap) (*PropertyMap, error) {
	out := newPropertyMap()
	if om == nil {
		return out, nil
	}
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		v, err := Convert(pair.Value)
		if err != nil {
			return nil, err
		}
		out.set(pair.Key, v)
	}
	return out, nil
}

// --- expressions ---

func convertVariable(n *rawast.Node) (ASTNode, error) {
	name, err := stringField(n, "name")
	if err != nil {
		return nil, err
	}
	return Variable{Name: name}, nil
}

func convertIntegerLiteral(n *rawast.Node) (ASTNode, error) {
	v, err := requireField(n, "value")
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case int64:
		return IntegerLiteral{Value: val}, nil
	case int:
		return IntegerLiteral{Value: int64(val)}, nil
	default:
		return nil, errTypeMismatch(n.Tag, "value", "int64", fmt.Sprintf("%T", v))
	}
}

func convertFloatLiteral(n *rawast.Node) (ASTNode, error) {
	v, err := requireField(n, "value")
	if err != nil {
		return nil, err
	}
	f, ok := v.(float64)
	if !ok {
		return nil, errTypeMismatch(n.Tag, "value", "float64", fmt.Sprintf("%T", v))
	}
	return FloatLiteral{Value: f}, nil
}

func convertStringLiteral(n *rawast.Node) (ASTNode, error) {
	s, err := stringField(n, "value")
	if err != nil {
		return nil, err
	}
	return StringLiteral{Value: s}, nil
}

func convertBooleanLiteral(n *rawast.Node) (ASTNode, error) {
	v, err := requireField(n, "value")
	if err != nil {
		return nil, err
	}
	b, ok := v.(bool)
	if !ok {
		return nil, errTypeMismatch(n.Tag, "value", "bool", fmt.Sprintf("%T", v))
	}
	return BooleanLiteral{Value: b}, nil
}

func convertListLiteral(n *rawast.Node) (ASTNode, error) {
	items := make([]ASTNode, 0, len(n.Children))
	for _, c := range n.Children {
		v, err := Convert(c)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return ListLiteral{Items: items}, nil
}

func convertMapLiteral(n *rawast.Node) (ASTNode, error) {
	v, err := requireField(n, "entries")
	if err != nil {
		return nil, err
	}
	om, ok := v.(rawast.PropertyMap)
	if !ok {
		return nil, errTypeMismatch(n.Tag, "entries", "rawast.PropertyMap", fmt.Sprintf("%T", v))
	}
	entries, err := convertOrderedMap(n.Tag, om)
	if err != nil {
		return nil, err
	}
	return MapLiteral{Entries: entries}, nil
}

func convertPropertyAccess(n *rawast.Node) (ASTNode, error) {
	exprNode, err := nodeField(n, "expression")
	if err != nil {
		return nil, err
	}
	expr, err := Convert(exprNode)
	if err != nil {
		return nil, err
	}
	prop, err := stringField(n, "property")
	if err != nil {
		return nil, err
	}
	return PropertyAccess{Expression: expr, Property: prop}, nil
}

func convertIndex(n *rawast.Node) (ASTNode, error) {
	exprNode, err := nodeField(n, "expression")
	if err != nil {
		return nil, err
	}
	expr, err := Convert(exprNode)
	if err != nil {
		return nil, err
	}
	start, err := convertOptionalExpr(optionalNodeField(n, "start"))
	if err != nil {
		return nil, err
	}
	end, err := convertOptionalExpr(optionalNodeField(n, "end"))
	if err != nil {
		return nil, err
	}
	return Index{Expression: expr, Start: start, End: end, Slice: boolField(n, "slice")}, nil
}

func convertArithmetic(n *rawast.Node) (ASTNode, error) {
	op, err := stringField(n, "op")
	if err != nil {
		return nil, err
	}
	leftNode, err := nodeField(n, "left")
	if err != nil {
		return nil, err
	}
	left, err := Convert(leftNode)
	if err != nil {
		return nil, err
	}
	right, err := convertOptionalExpr(optionalNodeField(n, "right"))
	if err != nil {
		return nil, err
	}
	return Arithmetic{Op: op, Left: left, Right: right}, nil
}

func convertComparison(n *rawast.Node) (ASTNode, error) {
	op, err := stringField(n, "op")
	if err != nil {
		return nil, err
	}
	leftNode, err := nodeField(n, "left")
	if err != nil {
		return nil, err
	}
	left, err := Convert(leftNode)
	if err != nil {
		return nil, err
	}
	rightNode, err := nodeField(n, "right")
	if err != nil {
		return nil, err
	}
	right, err := Convert(rightNode)
	if err != nil {
		return nil, err
	}
	return Comparison{Op: ComparisonOp(op), Left: left, Right: right}, nil
}

func convertVariadicBool(n *rawast.Node, build func([]ASTNode) ASTNode) (ASTNode, error) {
	ops := make([]ASTNode, 0, len(n.Children))
	for _, c := range n.Children {
		v, err := Convert(c)
		if err != nil {
			return nil, err
		}
		ops = append(ops, v)
	}
	return build(ops), nil
}

func convertNot(n *rawast.Node) (ASTNode, error) {
	operandNode, err := nodeField(n, "operand")
	if err != nil {
		return nil, err
	}
	operand, err := Convert(operandNode)
	if err != nil {
		return nil, err
	}
	return Not{Operand: operand}, nil
}

func convertIn(n *rawast.Node) (ASTNode, error) {
	leftNode, err := nodeField(n, "left")
	if err != nil {
		return nil, err
	}
	left, err := Convert(leftNode)
	if err != nil {
		return nil, err
	}
	rightNode, err := nodeField(n, "right")
	if err != nil {
		return nil, err
	}
	right, err := Convert(rightNode)
	if err != nil {
		return nil, err
	}
	return In{Left: left, Right: right}, nil
}

func convertStringPredicate(n *rawast.Node) (ASTNode, error) {
	op, err := stringField(n, "op")
	if err != nil {
		return nil, err
	}
	leftNode, err := nodeField(n, "left")
	if err != nil {
		return nil, err
	}
	left, err := Convert(leftNode)
	if err != nil {
		return nil, err
	}
	rightNode, err := nodeField(n, "right")
	if err != nil {
		return nil, err
	}
	right, err := Convert(rightNode)
	if err != nil {
		return nil, err
	}
	return StringPredicate{Op: StringPredicateOp(op), Left: left, Right: right}, nil
}

func convertIsNull(n *rawast.Node) (ASTNode, error) {
	exprNode, err := nodeField(n, "expression")
	if err != nil {
		return nil, err
	}
	expr, err := Convert(exprNode)
	if err != nil {
		return nil, err
	}
	return IsNull{Expression: expr, Negate: boolField(n, "negate")}, nil
}

func convertHasLabels(n *rawast.Node) (ASTNode, error) {
	exprNode, err := nodeField(n, "expression")
	if err != nil {
		return nil, err
	}
	expr, err := Convert(exprNode)
	if err != nil {
		return nil, err
	}
	return HasLabels{Expression: expr, Labels: stringSliceField(n, "labels")}, nil
}

func convertFunctionCall(n *rawast.Node) (ASTNode, error) {
	name, err := stringField(n, "name")
	if err != nil {
		return nil, err
	}
	args := make([]ASTNode, 0, len(n.Children))
	for _, c := range n.Children {
		v, err := Convert(c)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return FunctionCall{Name: name, Args: args, Distinct: boolField(n, "distinct")}, nil
}

func convertCase(n *rawast.Node) (ASTNode, error) {
	scrutinee, err := convertOptionalExpr(optionalNodeField(n, "scrutinee"))
	if err != nil {
		return nil, err
	}
	v, ok := field(n, "branches")
	var branches []CaseBranch
	if ok {
		rns, _ := v.([]*rawast.Node)
		for _, rn := range rns {
			whenNode, err := nodeField(rn, "when")
			if err != nil {
				return nil, err
			}
			when, err := Convert(whenNode)
			if err != nil {
				return nil, err
			}
			thenNode, err := nodeField(rn, "then")
			if err != nil {
				return nil, err
			}
			then, err := Convert(thenNode)
			if err != nil {
				return nil, err
			}
			branches = append(branches, CaseBranch{When: when, Then: then})
		}
	}
	elseExpr, err := convertOptionalExpr(optionalNodeField(n, "else"))
	if err != nil {
		return nil, err
	}
	return Case{Scrutinee: scrutinee, Branches: branches, Else: elseExpr}, nil
}

func convertListComprehension(n *rawast.Node) (ASTNode, error) {
	variable, err := stringField(n, "variable")
	if err != nil {
		return nil, err
	}
	sourceNode, err := nodeField(n, "source")
	if err != nil {
		return nil, err
	}
	source, err := Convert(sourceNode)
	if err != nil {
		return nil, err
	}
	filter, err := convertOptionalExpr(optionalNodeField(n, "filter"))
	if err != nil {
		return nil, err
	}
	projection, err := convertOptionalExpr(optionalNodeField(n, "projection"))
	if err != nil {
		return nil, err
	}
	return ListComprehension{Variable: variable, Source: source, Filter: filter, Projection: projection}, nil
}

func convertPatternComprehension(n *rawast.Node) (ASTNode, error) {
	variable, _ := stringField(n, "variable")
	patNode, err := nodeField(n, "pattern")
	if err != nil {
		return nil, err
	}
	pattern, err := convertPathPattern(patNode)
	if err != nil {
		return nil, err
	}
	where, err := convertOptionalExpr(optionalNodeField(n, "where"))
	if err != nil {
		return nil, err
	}
	projNode, err := nodeField(n, "projection")
	if err != nil {
		return nil, err
	}
	projection, err := Convert(projNode)
	if err != nil {
		return nil, err
	}
	return PatternComprehension{Variable: variable, Pattern: pattern, Where: where, Projection: projection}, nil
}

func convertMapProjection(n *rawast.Node) (ASTNode, error) {
	baseNode, err := nodeField(n, "base")
	if err != nil {
		return nil, err
	}
	base, err := Convert(baseNode)
	if err != nil {
		return nil, err
	}
	entries := make([]MapProjectionEntry, 0, len(n.Children))
	for _, c := range n.Children {
		key, err := stringField(c, "key")
		if err != nil {
			return nil, err
		}
		// The ".*" element carries no value expression; the evaluator
		// expands it against the base's stored properties.
		value, err := convertOptionalExpr(optionalNodeField(c, "value"))
		if err != nil {
			return nil, err
		}
		entries = append(entries, MapProjectionEntry{Key: key, Value: value})
	}
	return MapProjection{Base: base, Entries: entries}, nil
}

func convertReduce(n *rawast.Node) (ASTNode, error) {
	acc, err := stringField(n, "accumulator")
	if err != nil {
		return nil, err
	}
	initNode, err := nodeField(n, "init")
	if err != nil {
		return nil, err
	}
	init, err := Convert(initNode)
	if err != nil {
		return nil, err
	}
	variable, err := stringField(n, "variable")
	if err != nil {
		return nil, err
	}
	sourceNode, err := nodeField(n, "source")
	if err != nil {
		return nil, err
	}
	source, err := Convert(sourceNode)
	if err != nil {
		return nil, err
	}
	bodyNode, err := nodeField(n, "body")
	if err != nil {
		return nil, err
	}
	body, err := Convert(bodyNode)
	if err != nil {
		return nil, err
	}
	return Reduce{Accumulator: acc, Init: init, Variable: variable, Source: source, Body: body}, nil
}

func convertQuantifier(n *rawast.Node) (ASTNode, error) {
	kind, err := stringField(n, "kind")
	if err != nil {
		return nil, err
	}
	variable, err := stringField(n, "variable")
	if err != nil {
		return nil, err
	}
	sourceNode, err := nodeField(n, "source")
	if err != nil {
		return nil, err
	}
	source, err := Convert(sourceNode)
	if err != nil {
		return nil, err
	}
	predicate, err := convertOptionalExpr(optionalNodeField(n, "predicate"))
	if err != nil {
		return nil, err
	}
	return Quantifier{QKind: QuantifierKindValue(kind), Variable: variable, Source: source, Predicate: predicate}, nil
}

func convertExists(n *rawast.Node) (ASTNode, error) {
	if sub := optionalNodeField(n, "subquery"); sub != nil {
		subAST, err := Convert(sub)
		if err != nil {
			return nil, err
		}
		return Exists{Subquery: subAST}, nil
	}
	patNode, err := nodeField(n, "pattern")
	if err != nil {
		return nil, err
	}
	pattern, err := convertPattern(patNode)
	if err != nil {
		return nil, err
	}
	return Exists{Pattern: &pattern}, nil
}

func convertShortestPath(n *rawast.Node) (ASTNode, error) {
	patNode, err := nodeField(n, "pattern")
	if err != nil {
		return nil, err
	}
	pattern, err := convertPathPattern(patNode)
	if err != nil {
		return nil, err
	}
	return ShortestPath{All: boolField(n, "all"), Pattern: pattern}, nil
}

func convertParameter(n *rawast.Node) (ASTNode, error) {
	name, err := stringField(n, "name")
	if err != nil {
		return nil, err
	}
	return Parameter{Name: name}, nil
}
