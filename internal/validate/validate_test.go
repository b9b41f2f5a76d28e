package validate

import (
	"testing"

	"github.com/ritamzico/factgraph/internal/ast"
	"github.com/ritamzico/factgraph/internal/parsetree"
	"github.com/ritamzico/factgraph/internal/rawast"
)

func mustValidate(t *testing.T, src string) (*SymbolTable, error) {
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
	return Validate(node)
}

func TestValidate_BoundVariablesPass(t *testing.T) {
	_, err := mustValidate(t, `MATCH (n:Person)-[:KNOWS]->(m) WHERE n.age > m.age RETURN n.name`)
	if err != nil {
		t.Fatalf("expected no errors, got %v", err)
	}
}

func TestValidate_UnboundVariableInWhere(t *testing.T) {
	_, err := mustValidate(t, `MATCH (n:Person) WHERE m.age > 18 RETURN n`)
	if err == nil {
		t.Fatal("expected an unbound-variable error")
	}
}

func TestValidate_WithNarrowsScope(t *testing.T) {
	_, err := mustValidate(t, `MATCH (n:Person) WITH n.name AS name RETURN n.age`)
	if err == nil {
		t.Fatal("expected an error: n is out of scope after WITH")
	}
}

func TestValidate_WithAliasVisibleAfterward(t *testing.T) {
	_, err := mustValidate(t, `MATCH (n:Person) WITH n.name AS name WHERE name <> "" RETURN name`)
	if err != nil {
		t.Fatalf("expected no errors, got %v", err)
	}
}

func TestValidate_OrderByMustReferenceProjectedAlias(t *testing.T) {
	_, err := mustValidate(t, `MATCH (n:Person) RETURN n.name AS label ORDER BY n.age`)
	if err == nil {
		t.Fatal("expected an error: n is not a projected alias")
	}
}

func TestValidate_OrderByProjectedAliasPasses(t *testing.T) {
	_, err := mustValidate(t, `MATCH (n:Person) RETURN n.name AS label ORDER BY label`)
	if err != nil {
		t.Fatalf("expected no errors, got %v", err)
	}
}

func TestValidate_UnwindBindsAlias(t *testing.T) {
	_, err := mustValidate(t, `UNWIND [1, 2, 3] AS x RETURN x`)
	if err != nil {
		t.Fatalf("expected no errors, got %v", err)
	}
}

func TestValidate_ExistsCorrelatesOuterScope(t *testing.T) {
	table, err := mustValidate(t, `MATCH (n:Person) WHERE EXISTS { MATCH (n)-[:KNOWS]->(m:Person) } RETURN n`)
	if err != nil {
		t.Fatalf("expected no errors, got %v", err)
	}
	if len(table.Lookup("n")) == 0 {
		t.Error("expected symbol table to record a binding for n")
	}
}

func TestValidate_AggregatesMultipleErrors(t *testing.T) {
	_, err := mustValidate(t, `MATCH (n:Person) WHERE a.x = 1 AND b.y = 2 RETURN c`)
	if err == nil {
		t.Fatal("expected errors for a, b, and c")
	}
	if len(err.(interface{ WrappedErrors() []error }).WrappedErrors()) < 3 {
		t.Errorf("expected at least 3 aggregated errors, got %v", err)
	}
}
