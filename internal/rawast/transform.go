package rawast

import (
	"strconv"
	"strings"

	"github.com/ritamzico/factgraph/internal/parsetree"
)

// Transform is the total bottom-up conversion from a parse tree to the
// tagged intermediate form.
func Transform(q *parsetree.Query) *Node {
	return transformRegularQuery(q.Regular)
}

func transformRegularQuery(rq *parsetree.RegularQuery) *Node {
	n := newNode("RegularQuery")
	n.Fields["single"] = transformSingleQuery(rq.Single)
	for _, u := range rq.Unions {
		un := newNode("UnionPart")
		un.Fields["all"] = u.All
		un.Fields["single"] = transformSingleQuery(u.Single)
		n.Children = append(n.Children, un)
	}
	return n
}

func transformSingleQuery(sq *parsetree.SingleQuery) *Node {
	n := newNode("SingleQuery")
	for _, c := range sq.Clauses {
		n.Children = append(n.Children, transformClause(c))
	}
	return n
}

func transformClause(c *parsetree.Clause) *Node {
	switch {
	case c.Match != nil:
		return transformMatch(c.Match)
	case c.Create != nil:
		n := newNode("Create")
		n.Fields["pattern"] = transformPattern(c.Create.Pattern)
		return n
	case c.Merge != nil:
		return transformMerge(c.Merge)
	case c.Delete != nil:
		n := newNode("Delete")
		n.Fields["detach"] = c.Delete.Detach
		for _, e := range c.Delete.Exprs {
			n.Children = append(n.Children, transformExpr(e))
		}
		return n
	case c.Set != nil:
		return transformSet(c.Set)
	case c.Remove != nil:
		return transformRemove(c.Remove)
	case c.With != nil:
		n := transformProjectionBody("With", c.With.Body)
		if c.With.Where != nil {
			n.Fields["where"] = transformExpr(c.With.Where.Expr)
		}
		return n
	case c.Unwind != nil:
		n := newNode("Unwind")
		n.Fields["expression"] = transformExpr(c.Unwind.Expr)
		n.Fields["alias"] = c.Unwind.As
		return n
	case c.Call != nil:
		n := newNode("Call")
		n.Fields["procedure"] = strings.Join(c.Call.Procedure.Parts, ".")
		for _, a := range c.Call.Args {
			n.Children = append(n.Children, transformExpr(a))
		}
		if c.Call.Yield != nil {
			var yields []string
			for _, y := range c.Call.Yield.Items {
				yields = append(yields, y.Target)
			}
			n.Fields["yields"] = yields
		}
		return n
	case c.Return != nil:
		return transformProjectionBody("Return", c.Return.Body)
	default:
		return newNode("EmptyClause")
	}
}

func transformMatch(m *parsetree.MatchClause) *Node {
	n := newNode("Match")
	n.Fields["optional"] = m.Optional
	n.Fields["pattern"] = transformPattern(m.Pattern)
	if m.Where != nil {
		n.Fields["where"] = transformExpr(m.Where.Expr)
	}
	return n
}

func transformMerge(m *parsetree.MergeClause) *Node {
	n := newNode("Merge")
	n.Fields["pattern"] = transformPatternPart(m.Pattern)
	var onCreate, onMatch []*Node
	for _, a := range m.Actions {
		set := transformSet(a.Set)
		if a.OnCreate {
			onCreate = append(onCreate, set)
		} else {
			onMatch = append(onMatch, set)
		}
	}
	n.Fields["on_create"] = onCreate
	n.Fields["on_match"] = onMatch
	return n
}

func transformSet(s *parsetree.SetClause) *Node {
	n := newNode("Set")
	for _, item := range s.Items {
		n.Children = append(n.Children, transformSetItem(item))
	}
	return n
}

func transformSetItem(item *parsetree.SetItem) *Node {
	switch {
	case item.Property != nil:
		n := newNode("SetProperty")
		n.Fields["target"] = transformPropertyExpr(item.Property)
		n.Fields["value"] = transformExpr(item.PropertyExpr)
		return n
	case item.Variable != "":
		n := newNode("SetVariable")
		n.Fields["variable"] = item.Variable
		n.Fields["merge"] = item.AddAssign
		n.Fields["value"] = transformExpr(item.VarExpr)
		return n
	default:
		n := newNode("SetLabels")
		n.Fields["variable"] = item.LabelVar
		n.Fields["labels"] = item.Labels.Labels
		return n
	}
}

func transformRemove(r *parsetree.RemoveClause) *Node {
	n := newNode("Remove")
	for _, item := range r.Items {
		if item.Property != nil {
			rn := newNode("RemoveProperty")
			rn.Fields["target"] = transformPropertyExpr(item.Property)
			n.Children = append(n.Children, rn)
			continue
		}
		rn := newNode("RemoveLabels")
		rn.Fields["variable"] = item.Variable
		rn.Fields["labels"] = item.Labels.Labels
		n.Children = append(n.Children, rn)
	}
	return n
}

func transformProjectionBody(tag string, b *parsetree.ProjectionBody) *Node {
	n := newNode(tag)
	n.Fields["distinct"] = b.Distinct
	n.Fields["star"] = b.Star
	for _, item := range b.Items {
		pn := newNode("ProjectionItem")
		pn.Fields["expression"] = transformExpr(item.Expr)
		pn.Fields["alias"] = item.Alias
		n.Children = append(n.Children, pn)
	}
	if b.Order != nil {
		var order []*Node
		for _, item := range b.Order.Items {
			on := newNode("OrderItem")
			on.Fields["expression"] = transformExpr(item.Expr)
			on.Fields["desc"] = item.Desc
			order = append(order, on)
		}
		n.Fields["order_by"] = order
	}
	if b.Skip != nil {
		n.Fields["skip"] = transformExpr(b.Skip)
	}
	if b.Limit != nil {
		n.Fields["limit"] = transformExpr(b.Limit)
	}
	return n
}

// --- Patterns ---

func transformPattern(p *parsetree.Pattern) *Node {
	n := newNode("Pattern")
	for _, part := range p.Parts {
		n.Children = append(n.Children, transformPatternPart(part))
	}
	return n
}

func transformPatternPart(p *parsetree.PatternPart) *Node {
	n := newNode("PathPattern")
	n.Fields["variable"] = p.Var
	n.Children = append(n.Children, transformNodePattern(p.Element.Node))
	for _, link := range p.Element.Chain {
		n.Children = append(n.Children, transformRelationshipPattern(link.Rel), transformNodePattern(link.Node))
	}
	return n
}

func transformNodePattern(np *parsetree.NodePattern) *Node {
	n := newNode("NodePattern")
	n.Fields["variable"] = np.Variable
	if np.Labels != nil {
		n.Fields["labels"] = np.Labels.Labels
	} else {
		n.Fields["labels"] = []string{}
	}
	n.Fields["properties"] = transformProperties(np.Properties)
	return n
}

func transformRelationshipPattern(rp *parsetree.RelationshipPattern) *Node {
	n := newNode("RelationshipPattern")
	direction := "Undirected"
	switch {
	case rp.LeftArrow && !rp.RightArrow:
		direction = "Left"
	case !rp.LeftArrow && rp.RightArrow:
		direction = "Right"
	}
	n.Fields["direction"] = direction
	if rp.Detail != nil {
		n.Fields["variable"] = rp.Detail.Variable
		if rp.Detail.Types != nil {
			n.Fields["types"] = rp.Detail.Types.Types
		} else {
			n.Fields["types"] = []string{}
		}
		if rp.Detail.Range != nil {
			length := map[string]any{}
			if rp.Detail.Range.Min != nil {
				length["min"] = *rp.Detail.Range.Min
			}
			if rp.Detail.Range.Max != nil {
				length["max"] = *rp.Detail.Range.Max
			}
			n.Fields["length"] = length
		}
		n.Fields["properties"] = transformProperties(rp.Detail.Properties)
	} else {
		n.Fields["variable"] = ""
		n.Fields["types"] = []string{}
		n.Fields["properties"] = newPropertyMap()
	}
	return n
}

func transformProperties(p *parsetree.Properties) PropertyMap {
	m := newPropertyMap()
	if p == nil {
		return m
	}
	if p.Map != nil {
		for _, pair := range p.Map.Pairs {
			m.Set(pair.Key, transformExpr(pair.Value))
		}
	}
	if p.Param != nil {
		pn := newNode("Parameter")
		pn.Fields["name"] = p.Param.Name
		m.Set("$", pn)
	}
	return m
}

func transformPropertyExpr(p *parsetree.PropertyExpr) *Node {
	base := newNode("Variable")
	base.Fields["name"] = p.Base
	expr := base
	for _, prop := range p.Props {
		pn := newNode("PropertyAccess")
		pn.Fields["expression"] = expr
		pn.Fields["property"] = prop
		expr = pn
	}
	return expr
}

// --- Expressions ---
// Operator precedence flattening: a chain of same-precedence
// associative operators collapses into one node with N operands instead
// of a right-leaning tree of binary nodes.

func transformExpr(e *parsetree.Expression) *Node {
	return flattenOr(e)
}

func flattenOr(e *parsetree.Expression) *Node {
	operands := []*Node{flattenXor(e.Left)}
	for _, r := range e.Right {
		operands = append(operands, flattenXor(r.Expr))
	}
	if len(operands) == 1 {
		return operands[0]
	}
	n := newNode("Or")
	n.Children = operands
	return n
}

func flattenXor(e *parsetree.XorExpr) *Node {
	operands := []*Node{flattenAnd(e.Left)}
	for _, r := range e.Right {
		operands = append(operands, flattenAnd(r.Expr))
	}
	if len(operands) == 1 {
		return operands[0]
	}
	n := newNode("Xor")
	n.Children = operands
	return n
}

func flattenAnd(e *parsetree.AndExpr) *Node {
	operands := []*Node{flattenNot(e.Left)}
	for _, r := range e.Right {
		operands = append(operands, flattenNot(r.Expr))
	}
	if len(operands) == 1 {
		return operands[0]
	}
	n := newNode("And")
	n.Children = operands
	return n
}

func flattenNot(e *parsetree.NotExpr) *Node {
	inner := flattenComparison(e.Expr)
	if !e.Not {
		return inner
	}
	n := newNode("Not")
	n.Fields["operand"] = inner
	return n
}

// Comparison operators do not associatively chain in Cypher; a chain
// like `a = b = c` is represented as successive binary Comparison
// nodes over the declared operator.
func flattenComparison(e *parsetree.ComparisonExpr) *Node {
	left := flattenAddSub(e.Left)
	for _, r := range e.Right {
		n := newNode("Comparison")
		n.Fields["op"] = r.Op
		n.Fields["left"] = left
		n.Fields["right"] = flattenAddSub(r.Expr)
		left = n
	}
	return left
}

func flattenAddSub(e *parsetree.AddSubExpr) *Node {
	left := flattenMultDiv(e.Left)
	for _, r := range e.Right {
		n := newNode("Arithmetic")
		n.Fields["op"] = r.Op
		n.Fields["left"] = left
		n.Fields["right"] = flattenMultDiv(r.Expr)
		left = n
	}
	return left
}

func flattenMultDiv(e *parsetree.MultDivExpr) *Node {
	left := flattenPower(e.Left)
	for _, r := range e.Right {
		n := newNode("Arithmetic")
		n.Fields["op"] = r.Op
		n.Fields["left"] = left
		n.Fields["right"] = flattenPower(r.Expr)
		left = n
	}
	return left
}

func flattenPower(e *parsetree.PowerExpr) *Node {
	left := flattenUnary(e.Left)
	for _, r := range e.Right {
		n := newNode("Arithmetic")
		n.Fields["op"] = "^"
		n.Fields["left"] = left
		n.Fields["right"] = flattenUnary(r.Expr)
		left = n
	}
	return left
}

func flattenUnary(e *parsetree.UnaryExpr) *Node {
	inner := flattenPostfix(e.Expr)
	if e.Op == "" {
		return inner
	}
	n := newNode("Arithmetic")
	n.Fields["op"] = "unary" + e.Op
	n.Fields["left"] = inner
	return n
}

func flattenPostfix(e *parsetree.PostfixExpr) *Node {
	expr := transformAtom(e.Atom)
	for _, suffix := range e.Suffixes {
		switch {
		case suffix.Property != "":
			n := newNode("PropertyAccess")
			n.Fields["expression"] = expr
			n.Fields["property"] = suffix.Property
			expr = n
		case suffix.Index != nil:
			n := newNode("Index")
			n.Fields["expression"] = expr
			if suffix.Index.Start != nil {
				n.Fields["start"] = transformExpr(suffix.Index.Start)
			}
			if suffix.Index.Range {
				n.Fields["slice"] = true
			}
			if suffix.Index.End != nil {
				n.Fields["end"] = transformExpr(suffix.Index.End)
			}
			expr = n
		case suffix.Labels != nil:
			n := newNode("HasLabels")
			n.Fields["expression"] = expr
			n.Fields["labels"] = suffix.Labels.Labels
			expr = n
		case suffix.IsNull != nil:
			n := newNode("IsNull")
			n.Fields["expression"] = expr
			n.Fields["negate"] = suffix.IsNull.Not
			expr = n
		case suffix.In != nil:
			n := newNode("In")
			n.Fields["left"] = expr
			n.Fields["right"] = flattenAddSub(suffix.In.Expr)
			expr = n
		case suffix.StringPred != nil:
			n := newNode("StringPredicate")
			n.Fields["left"] = expr
			switch {
			case suffix.StringPred.StartsWith != nil:
				n.Fields["op"] = "StartsWith"
				n.Fields["right"] = flattenAddSub(suffix.StringPred.StartsWith)
			case suffix.StringPred.EndsWith != nil:
				n.Fields["op"] = "EndsWith"
				n.Fields["right"] = flattenAddSub(suffix.StringPred.EndsWith)
			default:
				n.Fields["op"] = "Contains"
				n.Fields["right"] = flattenAddSub(suffix.StringPred.Contains)
			}
			expr = n
		}
	}
	return expr
}

func transformAtom(a *parsetree.Atom) *Node {
	switch {
	case a.ListComprehension != nil:
		lc := a.ListComprehension
		n := newNode("ListComprehension")
		n.Fields["variable"] = lc.Variable
		n.Fields["source"] = transformExpr(lc.Source)
		if lc.Where != nil {
			n.Fields["filter"] = transformExpr(lc.Where.Expr)
		}
		if lc.Mapping != nil {
			n.Fields["projection"] = transformExpr(lc.Mapping)
		}
		return n
	case a.PatternComprehension != nil:
		pc := a.PatternComprehension
		n := newNode("PatternComprehension")
		n.Fields["variable"] = pc.Var
		n.Fields["pattern"] = transformRelationshipChain(pc.Pattern)
		if pc.Where != nil {
			n.Fields["where"] = transformExpr(pc.Where.Expr)
		}
		n.Fields["projection"] = transformExpr(pc.Mapping)
		return n
	case a.Parameter != nil:
		n := newNode("Parameter")
		n.Fields["name"] = strings.TrimPrefix(a.Parameter.Name, "$")
		return n
	case a.CaseExpr != nil:
		return transformCase(a.CaseExpr)
	case a.Reduce != nil:
		r := a.Reduce
		n := newNode("Reduce")
		n.Fields["accumulator"] = r.Accumulator
		n.Fields["init"] = transformExpr(r.Init)
		n.Fields["variable"] = r.Variable
		n.Fields["source"] = transformExpr(r.Source)
		n.Fields["body"] = transformExpr(r.Body)
		return n
	case a.Quantifier != nil:
		q := a.Quantifier
		n := newNode("Quantifier")
		n.Fields["kind"] = titleCase(q.Kind)
		n.Fields["variable"] = q.Variable
		n.Fields["source"] = transformExpr(q.Source)
		if q.Where != nil {
			n.Fields["predicate"] = transformExpr(q.Where.Expr)
		}
		return n
	case a.ExistsSubquery != nil:
		n := newNode("Exists")
		if a.ExistsSubquery.Query != nil {
			n.Fields["subquery"] = transformRegularQuery(a.ExistsSubquery.Query)
		} else {
			n.Fields["pattern"] = transformPattern(a.ExistsSubquery.Pattern)
		}
		return n
	case a.ShortestPath != nil:
		n := newNode("ShortestPath")
		n.Fields["all"] = a.ShortestPath.All
		n.Fields["pattern"] = transformRelationshipChain(a.ShortestPath.Pattern)
		return n
	case a.Parenthesized != nil:
		return transformExpr(a.Parenthesized)
	case a.FunctionCall != nil:
		fc := a.FunctionCall
		n := newNode("FunctionCall")
		n.Fields["name"] = strings.Join(fc.Name.Parts, ".")
		n.Fields["distinct"] = fc.Distinct
		for _, arg := range fc.Args {
			n.Children = append(n.Children, transformExpr(arg))
		}
		return n
	case a.MapProjection != nil:
		return transformMapProjection(a.MapProjection)
	case a.Literal != nil:
		return transformLiteral(a.Literal)
	default:
		n := newNode("Variable")
		n.Fields["name"] = a.Variable
		return n
	}
}

func transformRelationshipChain(p *parsetree.RelationshipChainPattern) *Node {
	n := newNode("PathPattern")
	n.Children = append(n.Children, transformNodePattern(p.Node))
	for _, link := range p.Chain {
		n.Children = append(n.Children, transformRelationshipPattern(link.Rel), transformNodePattern(link.Node))
	}
	return n
}

// transformMapProjection lowers each element form to a (key, value)
// pair: `.prop` becomes a property access on the base, a bare variable
// projects itself under its own name, and `.*` keeps a nil value under
// the reserved key "*" for the evaluator to expand.
func transformMapProjection(mp *parsetree.MapProjectionExpr) *Node {
	n := newNode("MapProjection")
	n.Fields["base"] = variableNode(mp.Base)
	for _, el := range mp.Entries {
		en := newNode("MapProjectionEntry")
		switch {
		case el.All:
			en.Fields["key"] = "*"
		case el.Property != "":
			en.Fields["key"] = el.Property
			pa := newNode("PropertyAccess")
			pa.Fields["expression"] = variableNode(mp.Base)
			pa.Fields["property"] = el.Property
			en.Fields["value"] = pa
		case el.Key != "":
			en.Fields["key"] = el.Key
			en.Fields["value"] = transformExpr(el.Value)
		default:
			en.Fields["key"] = el.Variable
			en.Fields["value"] = variableNode(el.Variable)
		}
		n.Children = append(n.Children, en)
	}
	return n
}

func variableNode(name string) *Node {
	n := newNode("Variable")
	n.Fields["name"] = name
	return n
}

func transformCase(c *parsetree.CaseExpression) *Node {
	n := newNode("Case")
	if c.Input != nil {
		n.Fields["scrutinee"] = transformExpr(c.Input.Expr)
	}
	var branches []*Node
	for _, w := range c.Whens {
		bn := newNode("CaseBranch")
		bn.Fields["when"] = transformExpr(w.When)
		bn.Fields["then"] = transformExpr(w.Then)
		branches = append(branches, bn)
	}
	n.Fields["branches"] = branches
	if c.Else != nil {
		n.Fields["else"] = transformExpr(c.Else)
	}
	return n
}

func transformLiteral(l *parsetree.Literal) *Node {
	switch {
	case l.Null:
		return newNode("NullLiteral")
	case l.True:
		n := newNode("BooleanLiteral")
		n.Fields["value"] = true
		return n
	case l.False:
		n := newNode("BooleanLiteral")
		n.Fields["value"] = false
		return n
	case l.Float != nil:
		n := newNode("FloatLiteral")
		n.Fields["value"] = *l.Float
		return n
	case l.Hex != nil:
		n := newNode("IntegerLiteral")
		v, _ := strconv.ParseInt((*l.Hex)[2:], 16, 64)
		n.Fields["value"] = v
		return n
	case l.Octal != nil:
		n := newNode("IntegerLiteral")
		v, _ := strconv.ParseInt(*l.Octal, 8, 64)
		n.Fields["value"] = v
		return n
	case l.Int != nil:
		n := newNode("IntegerLiteral")
		n.Fields["value"] = *l.Int
		return n
	case l.String != nil:
		n := newNode("StringLiteral")
		n.Fields["value"] = unquote(*l.String)
		return n
	case l.List != nil:
		n := newNode("ListLiteral")
		for _, item := range l.List.Items {
			n.Children = append(n.Children, transformExpr(item))
		}
		return n
	default:
		n := newNode("MapLiteral")
		m := newPropertyMap()
		for _, pair := range l.Map.Pairs {
			m.Set(pair.Key, transformExpr(pair.Value))
		}
		n.Fields["entries"] = m
		return n
	}
}

// titleCase maps a keyword like "ALL"/"any" to its ASTNode Quantifier
// kind spelling ("All"/"Any").
func titleCase(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	inner := s[1 : len(s)-1]
	if !strings.ContainsRune(inner, '\\') {
		return inner
	}
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		if inner[i] != '\\' || i+1 == len(inner) {
			b.WriteByte(inner[i])
			continue
		}
		i++
		switch inner[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(inner[i])
		}
	}
	return b.String()
}
