package solver

import (
	"testing"

	"github.com/ritamzico/factgraph/internal/ast"
	"github.com/ritamzico/factgraph/internal/fact"
	"github.com/ritamzico/factgraph/internal/parsetree"
	"github.com/ritamzico/factgraph/internal/rawast"
)

// mustExpr parses src as a standalone expression by wrapping it in a
// RETURN and pulling the projection back out.
func mustExpr(t *testing.T, src string) ast.ASTNode {
	t.Helper()
	q, err := parsetree.Parse("RETURN " + src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	node, err := ast.Convert(rawast.Transform(q))
	if err != nil {
		t.Fatalf("Convert(%q) failed: %v", src, err)
	}
	sq := node.(ast.RegularQuery).Single.(ast.SingleQuery)
	ret := sq.Statements[0].(ast.Return)
	return ret.Items[0].Expression
}

func evalStandalone(t *testing.T, src string, env *evalEnv) fact.Value {
	t.Helper()
	v, err := Evaluate(mustExpr(t, src), env)
	if err != nil {
		t.Fatalf("Evaluate(%q) failed: %v", src, err)
	}
	return v
}

func emptyEnv() *evalEnv {
	return &evalEnv{coll: fact.NewMemoryCollection(), binding: map[string]Binding{}}
}

func TestEvaluate_CaseExpression(t *testing.T) {
	env := emptyEnv()

	v := evalStandalone(t, `CASE WHEN 1 < 2 THEN "lo" ELSE "hi" END`, env)
	if v.S != "lo" {
		t.Errorf(`searched CASE = %v, want "lo"`, v)
	}

	v = evalStandalone(t, `CASE 2 WHEN 1 THEN "one" WHEN 2 THEN "two" ELSE "many" END`, env)
	if v.S != "two" {
		t.Errorf(`simple CASE = %v, want "two"`, v)
	}

	v = evalStandalone(t, `CASE 9 WHEN 1 THEN "one" END`, env)
	if !v.IsNull() {
		t.Errorf("CASE with no match and no ELSE = %v, want null", v)
	}
}

func TestEvaluate_IndexAndSlice(t *testing.T) {
	env := emptyEnv()

	if v := evalStandalone(t, `[10, 20, 30][1]`, env); v.I != 20 {
		t.Errorf("index = %v, want 20", v)
	}
	if v := evalStandalone(t, `[10, 20, 30][-1]`, env); v.I != 30 {
		t.Errorf("negative index = %v, want 30", v)
	}
	if v := evalStandalone(t, `[10, 20, 30][9]`, env); !v.IsNull() {
		t.Errorf("out-of-range index = %v, want null", v)
	}
	if v := evalStandalone(t, `[10, 20, 30][1..3]`, env); len(v.L) != 2 || v.L[0].I != 20 {
		t.Errorf("slice = %v, want [20, 30]", v)
	}
	if v := evalStandalone(t, `{a: 1}["a"]`, env); v.I != 1 {
		t.Errorf("map index = %v, want 1", v)
	}
}

func TestEvaluate_ListComprehension(t *testing.T) {
	env := emptyEnv()
	v := evalStandalone(t, `[x IN [1, 2, 3] WHERE x > 1 | x * 10]`, env)
	if len(v.L) != 2 || v.L[0].I != 20 || v.L[1].I != 30 {
		t.Fatalf("comprehension = %v, want [20, 30]", v)
	}
}

func TestEvaluate_Reduce(t *testing.T) {
	env := emptyEnv()
	v := evalStandalone(t, `REDUCE(acc = 0, x IN [1, 2, 3] | acc + x)`, env)
	if v.I != 6 {
		t.Fatalf("reduce = %v, want 6", v)
	}
}

func TestEvaluate_Quantifiers(t *testing.T) {
	env := emptyEnv()
	cases := []struct {
		src  string
		want bool
	}{
		{`ALL(x IN [1, 2] WHERE x > 0)`, true},
		{`ALL(x IN [1, 2] WHERE x > 1)`, false},
		{`ANY(x IN [1, 2] WHERE x > 1)`, true},
		{`SINGLE(x IN [1, 2] WHERE x > 1)`, true},
		{`SINGLE(x IN [1, 2] WHERE x > 0)`, false},
		{`NONE(x IN [1, 2] WHERE x > 5)`, true},
	}
	for _, c := range cases {
		if v := evalStandalone(t, c.src, env); v.B != c.want {
			t.Errorf("%s = %v, want %v", c.src, v, c.want)
		}
	}
}

func TestEvaluate_ExistsPatternCorrelates(t *testing.T) {
	coll := seedSupplyChain(t)
	env := &evalEnv{coll: coll, binding: map[string]Binding{
		"w": nodeBinding("w1"),
	}}

	v := evalStandalone(t, `EXISTS { (w:Warehouse)-[:DISPATCHES]->(t:Truck) }`, env)
	if !v.B {
		t.Error("expected EXISTS to hold for w1, which dispatches t1")
	}

	env.binding["w"] = nodeBinding("t2")
	v = evalStandalone(t, `EXISTS { (w:Warehouse)-[:DISPATCHES]->(t:Truck) }`, env)
	if v.B {
		t.Error("expected EXISTS to fail for t2, which is not a warehouse")
	}
}

func TestEvaluate_PatternComprehension(t *testing.T) {
	coll := seedSupplyChain(t)
	env := &evalEnv{coll: coll, binding: map[string]Binding{
		"w": nodeBinding("w1"),
	}}

	v := evalStandalone(t, `[(w)-[:DISPATCHES]->(t) | t.capacity]`, env)
	if len(v.L) != 1 || v.L[0].I != 500 {
		t.Fatalf("pattern comprehension = %v, want [500]", v)
	}
}

func TestEvaluate_MapProjection(t *testing.T) {
	coll := seedSupplyChain(t)
	env := &evalEnv{coll: coll, binding: map[string]Binding{
		"t": nodeBinding("t1"),
	}}

	v := evalStandalone(t, `t {.capacity, kind: "truck"}`, env)
	if v.Kind != fact.MapVal {
		t.Fatalf("map projection = %v, want a map", v)
	}
	if v.M["capacity"].I != 500 || v.M["kind"].S != "truck" {
		t.Errorf("map projection entries = %v", v.M)
	}

	v = evalStandalone(t, `t {.*}`, env)
	if v.M["capacity"].I != 500 {
		t.Errorf(".* expansion = %v, want capacity 500", v.M)
	}
}

func TestEvaluate_ShortestPath(t *testing.T) {
	coll := seedSupplyChain(t)
	env := &evalEnv{coll: coll, binding: map[string]Binding{
		"a": nodeBinding("w1"),
		"b": nodeBinding("t2"),
	}}

	v := evalStandalone(t, `shortestPath((a)-[:DISPATCHES|HANDOFF*]->(b))`, env)
	if v.Kind != fact.ListVal || len(v.L) != 2 {
		t.Fatalf("shortestPath = %v, want a two-hop path", v)
	}
	if v.L[0].S != "r1" || v.L[1].S != "r3" {
		t.Errorf("shortestPath hops = %v, want [r1 r3]", v.L)
	}

	v = evalStandalone(t, `allShortestPaths((a)-[:DISPATCHES|HANDOFF*]->(b))`, env)
	if v.Kind != fact.ListVal || len(v.L) != 1 {
		t.Fatalf("allShortestPaths = %v, want one path", v)
	}
}
