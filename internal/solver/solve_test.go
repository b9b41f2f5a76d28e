package solver

import (
	"testing"

	"github.com/ritamzico/factgraph/internal/ast"
	"github.com/ritamzico/factgraph/internal/fact"
	"github.com/ritamzico/factgraph/internal/parsetree"
	"github.com/ritamzico/factgraph/internal/rawast"
)

func mustMatch(t *testing.T, src string) ast.Match {
	t.Helper()
	q, err := parsetree.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	root := rawast.Transform(q)
	node, err := ast.Convert(root)
	if err != nil {
		t.Fatalf("Convert(%q) failed: %v", src, err)
	}
	sq, ok := node.(ast.RegularQuery).Single.(ast.SingleQuery)
	if !ok {
		t.Fatalf("expected a SingleQuery, got %T", node)
	}
	for _, stmt := range sq.Statements {
		if m, ok := stmt.(ast.Match); ok {
			return m
		}
	}
	t.Fatalf("no MATCH clause found in %q", src)
	return ast.Match{}
}

func seedSupplyChain(t *testing.T) fact.Collection {
	t.Helper()
	c := fact.NewMemoryCollection()
	mustInsertAll(t, c,
		fact.NodeHasLabel{NodeID: "w1", Label: "Warehouse"},
		fact.NodeHasProperty{NodeID: "w1", Key_: "name", Value: fact.Str("Northgate")},
		fact.NodeHasLabel{NodeID: "w2", Label: "Warehouse"},
		fact.NodeHasProperty{NodeID: "w2", Key_: "name", Value: fact.Str("Southgate")},
		fact.NodeHasLabel{NodeID: "t1", Label: "Truck"},
		fact.NodeHasProperty{NodeID: "t1", Key_: "capacity", Value: fact.Int(500)},
		fact.NodeHasLabel{NodeID: "t2", Label: "Truck"},
		fact.NodeHasProperty{NodeID: "t2", Key_: "capacity", Value: fact.Int(200)},
		fact.Relationship{RelID: "r1", SourceID: "w1", TargetID: "t1", Type: "DISPATCHES"},
		fact.Relationship{RelID: "r2", SourceID: "w2", TargetID: "t2", Type: "DISPATCHES"},
		fact.Relationship{RelID: "r3", SourceID: "t1", TargetID: "t2", Type: "HANDOFF"},
	)
	return c
}

func mustInsertAll(t *testing.T, c fact.Collection, facts ...fact.Fact) {
	t.Helper()
	for _, f := range facts {
		if _, err := c.Insert(f); err != nil {
			t.Fatalf("Insert(%v) failed: %v", f, err)
		}
	}
}

func TestSolve_LabelAndEdgeConstraint(t *testing.T) {
	coll := seedSupplyChain(t)
	m := mustMatch(t, `MATCH (w:Warehouse)-[:DISPATCHES]->(t:Truck) RETURN w, t`)

	solutions, err := New().Solve(m.Pattern, m.Where, coll, nil)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if len(solutions) != 2 {
		t.Fatalf("expected 2 solutions, got %d: %v", len(solutions), solutions)
	}
	for _, sol := range solutions {
		w, t2 := sol["w"], sol["t"]
		if w.ID != "w1" && w.ID != "w2" {
			t.Errorf("unexpected warehouse binding %v", w)
		}
		if t2.ID != "t1" && t2.ID != "t2" {
			t.Errorf("unexpected truck binding %v", t2)
		}
	}
}

func TestSolve_PropertyConstraintNarrowsDomain(t *testing.T) {
	coll := seedSupplyChain(t)
	m := mustMatch(t, `MATCH (t:Truck {capacity: 500}) RETURN t`)

	solutions, err := New().Solve(m.Pattern, m.Where, coll, nil)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if len(solutions) != 1 || solutions[0]["t"].ID != "t1" {
		t.Fatalf("expected exactly t1, got %v", solutions)
	}
}

func TestSolve_WherePredicateFiltersCandidates(t *testing.T) {
	coll := seedSupplyChain(t)
	m := mustMatch(t, `MATCH (t:Truck) WHERE t.capacity > 300 RETURN t`)

	solutions, err := New().Solve(m.Pattern, m.Where, coll, nil)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if len(solutions) != 1 || solutions[0]["t"].ID != "t1" {
		t.Fatalf("expected exactly t1, got %v", solutions)
	}
}

func TestSolve_DirectionIsRespected(t *testing.T) {
	coll := seedSupplyChain(t)
	forward := mustMatch(t, `MATCH (a)-[:DISPATCHES]->(b) RETURN a, b`)
	backward := mustMatch(t, `MATCH (a)<-[:DISPATCHES]-(b) RETURN a, b`)

	fwd, err := New().Solve(forward.Pattern, forward.Where, coll, nil)
	if err != nil {
		t.Fatalf("Solve(forward) failed: %v", err)
	}
	bwd, err := New().Solve(backward.Pattern, backward.Where, coll, nil)
	if err != nil {
		t.Fatalf("Solve(backward) failed: %v", err)
	}
	if len(fwd) != 2 || len(bwd) != 2 {
		t.Fatalf("expected 2 solutions each way, got fwd=%d bwd=%d", len(fwd), len(bwd))
	}
	for i := range fwd {
		if fwd[i]["a"].ID != bwd[i]["b"].ID || fwd[i]["b"].ID != bwd[i]["a"].ID {
			t.Errorf("reversed direction did not swap endpoints: fwd=%v bwd=%v", fwd[i], bwd[i])
		}
	}
}

func TestSolve_VariableLengthPathExpandsWithinBounds(t *testing.T) {
	coll := seedSupplyChain(t)
	m := mustMatch(t, `MATCH (w:Warehouse {name: "Northgate"})-[:DISPATCHES|HANDOFF*1..2]->(x) RETURN x`)

	solutions, err := New(WithMaxDepth(2)).Solve(m.Pattern, m.Where, coll, nil)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	seen := map[fact.Identifier]bool{}
	for _, sol := range solutions {
		seen[sol["x"].ID] = true
	}
	if !seen["t1"] || !seen["t2"] {
		t.Fatalf("expected to reach both t1 (1 hop) and t2 (2 hops), got %v", solutions)
	}
}

func TestSolve_NoMatchingCandidatesYieldsEmptySlice(t *testing.T) {
	coll := seedSupplyChain(t)
	m := mustMatch(t, `MATCH (x:Unicorn) RETURN x`)

	solutions, err := New().Solve(m.Pattern, m.Where, coll, nil)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if len(solutions) != 0 {
		t.Fatalf("expected no solutions, got %v", solutions)
	}
}
