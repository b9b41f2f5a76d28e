package rawast

import (
	"testing"

	"github.com/ritamzico/factgraph/internal/parsetree"
)

func mustParse(t *testing.T, src string) *parsetree.Query {
	t.Helper()
	q, err := parsetree.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return q
}

func TestTransform_MatchWherePropertyFlattensAnd(t *testing.T) {
	q := mustParse(t, `MATCH (n:Person) WHERE n.age >= 18 AND n.active = true AND n.name <> "" RETURN n`)
	root := Transform(q)
	match := root.Fields["single"].(*Node).Children[0]
	if match.Tag != "Match" {
		t.Fatalf("expected Match clause, got %s", match.Tag)
	}
	where := match.Fields["where"].(*Node)
	if where.Tag != "And" {
		t.Fatalf("expected flattened And node, got %s", where.Tag)
	}
	if len(where.Children) != 3 {
		t.Fatalf("expected 3 AND operands, got %d", len(where.Children))
	}
}

func TestTransform_NodePatternLabelsAlwaysSlice(t *testing.T) {
	q := mustParse(t, `MATCH (n) RETURN n`)
	root := Transform(q)
	match := root.Fields["single"].(*Node).Children[0]
	pattern := match.Fields["pattern"].(*Node)
	node := pattern.Children[0].Children[0]
	labels, ok := node.Fields["labels"].([]string)
	if !ok {
		t.Fatalf("expected labels field to be []string, got %T", node.Fields["labels"])
	}
	if len(labels) != 0 {
		t.Errorf("expected no labels, got %v", labels)
	}
}

func TestTransform_PropertyMapPreservesInsertionOrder(t *testing.T) {
	q := mustParse(t, `CREATE (n:Person {z: 1, a: 2, m: 3}) RETURN n`)
	root := Transform(q)
	create := root.Fields["single"].(*Node).Children[0]
	pattern := create.Fields["pattern"].(*Node)
	node := pattern.Children[0].Children[0]
	props := node.Fields["properties"].(PropertyMap)

	var keys []string
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	want := []string{"z", "a", "m"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), keys)
	}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("expected key %d to be %q, got %q", i, k, keys[i])
		}
	}
}

func TestTransform_RelationshipDirection(t *testing.T) {
	q := mustParse(t, `MATCH (a)<-[:KNOWS]-(b) RETURN a`)
	root := Transform(q)
	match := root.Fields["single"].(*Node).Children[0]
	pattern := match.Fields["pattern"].(*Node)
	path := pattern.Children[0]
	rel := path.Children[1]
	if rel.Fields["direction"] != "Left" {
		t.Errorf("expected Left direction, got %v", rel.Fields["direction"])
	}
}
