package factgraph_test

import (
	"context"
	"testing"
	"time"

	factgraph "github.com/ritamzico/factgraph"
	"github.com/ritamzico/factgraph/internal/ast"
	"github.com/ritamzico/factgraph/internal/fact"
)

// Scenario 1: parse basic match.
func TestParseBasicMatch(t *testing.T) {
	g, err := factgraph.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer g.Close()

	root, _, err := g.Explain("MATCH (n:Person) RETURN n")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	rq, ok := root.(ast.RegularQuery)
	if !ok {
		t.Fatalf("root is %T, want ast.RegularQuery", root)
	}
	sq, ok := rq.Single.(ast.SingleQuery)
	if !ok {
		t.Fatalf("rq.Single is %T, want ast.SingleQuery", rq.Single)
	}
	if len(sq.Statements) != 2 {
		t.Fatalf("got %d statements, want 2 (Match, Return)", len(sq.Statements))
	}

	m, ok := sq.Statements[0].(ast.Match)
	if !ok {
		t.Fatalf("statement 0 is %T, want ast.Match", sq.Statements[0])
	}
	if len(m.Pattern.Paths) != 1 || len(m.Pattern.Paths[0].Elements) != 1 {
		t.Fatalf("expected one path with one node, got %+v", m.Pattern)
	}
	np, ok := m.Pattern.Paths[0].Elements[0].(ast.NodePattern)
	if !ok {
		t.Fatalf("path element is %T, want ast.NodePattern", m.Pattern.Paths[0].Elements[0])
	}
	if !np.HasVar || np.Variable != "n" || len(np.Labels) != 1 || np.Labels[0] != "Person" {
		t.Fatalf("unexpected node pattern: %+v", np)
	}

	ret, ok := sq.Statements[1].(ast.Return)
	if !ok {
		t.Fatalf("statement 1 is %T, want ast.Return", sq.Statements[1])
	}
	if len(ret.Items) != 1 {
		t.Fatalf("expected one RETURN item, got %d", len(ret.Items))
	}
	v, ok := ret.Items[0].Expression.(ast.Variable)
	if !ok || v.Name != "n" {
		t.Fatalf("unexpected RETURN item: %+v", ret.Items[0])
	}
}

// Scenario 2: solver, one-variable bind.
func TestSolverOneVariableBind(t *testing.T) {
	g, err := factgraph.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer g.Close()

	mustInsert(t, g, fact.NodeHasLabel{NodeID: "1", Label: "Person"})
	mustInsert(t, g, fact.NodeHasLabel{NodeID: "2", Label: "Person"})
	mustInsert(t, g, fact.NodeHasLabel{NodeID: "3", Label: "Dog"})

	res, err := g.Query("MATCH (n:Person) RETURN n", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := [][]string{{"1"}, {"2"}}
	assertRows(t, res, want)
}

// Scenario 3: solver, predicate filter.
func TestSolverPredicateFilter(t *testing.T) {
	g, err := factgraph.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer g.Close()
	seedPeople(t, g)

	res, err := g.Query("MATCH (n:Person) WHERE n.age > 26 RETURN n", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	assertRows(t, res, [][]string{{"1"}})
}

// Scenario 4: relationship direction.
func TestRelationshipDirection(t *testing.T) {
	g, err := factgraph.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer g.Close()
	mustInsert(t, g, fact.Relationship{RelID: "r", SourceID: "1", TargetID: "2", Type: "KNOWS"})

	res, err := g.Query("MATCH (a)-[:KNOWS]->(b) RETURN a, b", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	assertRows(t, res, [][]string{{"1", "2"}})

	res, err = g.Query("MATCH (a)<-[:KNOWS]-(b) RETURN a, b", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	assertRows(t, res, [][]string{{"2", "1"}})

	res, err = g.Query("MATCH (a)-[:KNOWS]-(b) RETURN a, b", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	assertRows(t, res, [][]string{{"1", "2"}, {"2", "1"}})
}

// Scenario 5: trigger derives a property.
func TestTriggerDerivesProperty(t *testing.T) {
	g, err := factgraph.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer g.Close()

	_, err = g.Declare(
		"age-decade",
		"MATCH (p:Person) RETURN p.age AS age",
		factgraph.VariableAttribute{Var: "p", Key: "age_decade"},
		func(args map[string]fact.Value) (fact.Value, error) {
			return fact.Int(args["age"].I / 10 * 10), nil
		},
		nil,
	)
	if err != nil {
		t.Fatalf("Declare: %v", err)
	}

	seedPeople(t, g)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.BlockUntilFinished(ctx); err != nil {
		t.Fatalf("BlockUntilFinished: %v", err)
	}

	res, err := g.Query("MATCH (n) WHERE n.age_decade IS NOT NULL RETURN n, n.age_decade AS d", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	assertRows(t, res, [][]string{{"1", "30"}, {"2", "20"}})
}

// Scenario 6: idempotent insert.
func TestIdempotentInsert(t *testing.T) {
	g, err := factgraph.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer g.Close()

	outcome1, err := g.Insert(fact.NodeHasLabel{NodeID: "1", Label: "Person"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if outcome1 != fact.New {
		t.Fatalf("first insert outcome = %v, want New", outcome1)
	}
	outcome2, err := g.Insert(fact.NodeHasLabel{NodeID: "1", Label: "Person"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if outcome2 != fact.Duplicate {
		t.Fatalf("second insert outcome = %v, want Duplicate", outcome2)
	}

	res, err := g.Query("MATCH (n:Person) RETURN n", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	assertRows(t, res, [][]string{{"1"}})
}

func mustInsert(t *testing.T, g *factgraph.Graph, f fact.Fact) {
	t.Helper()
	if _, err := g.Insert(f); err != nil {
		t.Fatalf("Insert(%v): %v", f, err)
	}
}

func seedPeople(t *testing.T, g *factgraph.Graph) {
	t.Helper()
	mustInsert(t, g, fact.NodeHasLabel{NodeID: "1", Label: "Person"})
	mustInsert(t, g, fact.NodeHasLabel{NodeID: "2", Label: "Person"})
	mustInsert(t, g, fact.NodeHasLabel{NodeID: "3", Label: "Dog"})
	mustInsert(t, g, fact.NodeHasProperty{NodeID: "1", Key_: "age", Value: fact.Int(30)})
	mustInsert(t, g, fact.NodeHasProperty{NodeID: "2", Key_: "age", Value: fact.Int(25)})
}

func assertRows(t *testing.T, res *factgraph.ResultSet, want [][]string) {
	t.Helper()
	if len(res.Rows) != len(want) {
		t.Fatalf("got %d rows, want %d (%v)", len(res.Rows), len(want), res.Rows)
	}
	for i, row := range res.Rows {
		if len(row) != len(want[i]) {
			t.Fatalf("row %d has %d columns, want %d", i, len(row), len(want[i]))
		}
		for j, v := range row {
			if v.String() != want[i][j] {
				t.Fatalf("row %d col %d = %q, want %q", i, j, v.String(), want[i][j])
			}
		}
	}
}
