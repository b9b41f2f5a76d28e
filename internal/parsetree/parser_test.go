package parsetree

import "testing"

func TestParse_SimpleMatchReturn(t *testing.T) {
	q, err := Parse(`MATCH (n:Person) RETURN n`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	clauses := q.Regular.Single.Clauses
	if len(clauses) != 2 {
		t.Fatalf("expected 2 clauses, got %d", len(clauses))
	}
	if clauses[0].Match == nil {
		t.Fatal("expected first clause to be MATCH")
	}
	node := clauses[0].Match.Pattern.Parts[0].Element.Node
	if node.Variable != "n" {
		t.Errorf("expected variable n, got %q", node.Variable)
	}
	if node.Labels == nil || node.Labels.Labels[0] != "Person" {
		t.Errorf("expected label Person, got %+v", node.Labels)
	}
	if clauses[1].Return == nil {
		t.Fatal("expected second clause to be RETURN")
	}
}

func TestParse_RelationshipPatternWithDirectionAndType(t *testing.T) {
	q, err := Parse(`MATCH (a)-[r:KNOWS]->(b) RETURN a, b`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	chain := q.Regular.Single.Clauses[0].Match.Pattern.Parts[0].Element.Chain
	if len(chain) != 1 {
		t.Fatalf("expected one relationship chain link, got %d", len(chain))
	}
	rel := chain[0].Rel
	if rel.Detail.Variable != "r" || rel.Detail.Types.Types[0] != "KNOWS" {
		t.Errorf("unexpected relationship detail: %+v", rel.Detail)
	}
	if rel.LeftArrow || !rel.RightArrow {
		t.Errorf("expected left-to-right arrow, got left=%v right=%v", rel.LeftArrow, rel.RightArrow)
	}
}

func TestParse_WhereWithComparisonAndBooleanOperators(t *testing.T) {
	q, err := Parse(`MATCH (n:Person) WHERE n.age >= 18 AND n.active = true RETURN n.name`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	where := q.Regular.Single.Clauses[0].Match.Where
	if where == nil {
		t.Fatal("expected a WHERE clause")
	}
	if len(where.Expr.Left.Left.Right) != 1 {
		t.Fatalf("expected one AND operand, got %d", len(where.Expr.Left.Left.Right))
	}
}

func TestParse_WithAndOrderByAndLimit(t *testing.T) {
	q, err := Parse(`MATCH (n) WITH n ORDER BY n.name DESC LIMIT 10 RETURN n`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	with := q.Regular.Single.Clauses[1].With
	if with == nil {
		t.Fatal("expected a WITH clause")
	}
	if with.Body.Order == nil || !with.Body.Order.Items[0].Desc {
		t.Fatalf("expected ORDER BY ... DESC, got %+v", with.Body.Order)
	}
	if with.Body.Limit == nil {
		t.Fatal("expected a LIMIT clause")
	}
}

func TestParse_UnionAll(t *testing.T) {
	q, err := Parse(`MATCH (n:A) RETURN n UNION ALL MATCH (n:B) RETURN n`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(q.Regular.Unions) != 1 || !q.Regular.Unions[0].All {
		t.Fatalf("expected one UNION ALL part, got %+v", q.Regular.Unions)
	}
}

func TestParse_ListComprehensionAndQuantifier(t *testing.T) {
	q, err := Parse(`MATCH (n) WHERE ALL(x IN n.tags WHERE x <> "") RETURN [y IN n.tags | y]`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	_ = q
}

func TestParse_InvalidSyntaxReportsPosition(t *testing.T) {
	_, err := Parse(`MATCH RETURN`)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Line == 0 {
		t.Error("expected a non-zero line in the parse error")
	}
}

func TestParse_NumericLiteralForms(t *testing.T) {
	cases := []string{
		`RETURN 42`,
		`RETURN 3.14`,
		`RETURN 0x1F`,
		`RETURN 017`,
		`RETURN 1.5e10`,
	}
	for _, src := range cases {
		if _, err := Parse(src); err != nil {
			t.Errorf("Parse(%q) failed: %v", src, err)
		}
	}
}
