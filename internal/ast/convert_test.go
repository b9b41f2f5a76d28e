package ast

import (
	"testing"

	"github.com/ritamzico/factgraph/internal/parsetree"
	"github.com/ritamzico/factgraph/internal/rawast"
)

func mustConvert(t *testing.T, src string) ASTNode {
	t.Helper()
	q, err := parsetree.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	root := rawast.Transform(q)
	node, err := Convert(root)
	if err != nil {
		t.Fatalf("Convert(%q) failed: %v", src, err)
	}
	return node
}

func TestConvert_MatchWhereReturn(t *testing.T) {
	root := mustConvert(t, `MATCH (n:Person) WHERE n.age >= 18 RETURN n.name`)
	rq, ok := root.(RegularQuery)
	if !ok {
		t.Fatalf("expected RegularQuery, got %T", root)
	}
	sq, ok := rq.Single.(SingleQuery)
	if !ok {
		t.Fatalf("expected SingleQuery, got %T", rq.Single)
	}
	if len(sq.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(sq.Statements))
	}
	match, ok := sq.Statements[0].(Match)
	if !ok {
		t.Fatalf("expected Match, got %T", sq.Statements[0])
	}
	if len(match.Pattern.Paths) != 1 || len(match.Pattern.Paths[0].Elements) != 1 {
		t.Fatalf("unexpected pattern shape: %+v", match.Pattern)
	}
	node, ok := match.Pattern.Paths[0].Elements[0].(NodePattern)
	if !ok {
		t.Fatalf("expected NodePattern, got %T", match.Pattern.Paths[0].Elements[0])
	}
	if len(node.Labels) != 1 || node.Labels[0] != "Person" {
		t.Errorf("expected label Person, got %v", node.Labels)
	}
	cmp, ok := match.Where.(Comparison)
	if !ok {
		t.Fatalf("expected Comparison, got %T", match.Where)
	}
	if cmp.Op != OpGte {
		t.Errorf("expected OpGte, got %v", cmp.Op)
	}

	ret, ok := sq.Statements[1].(Return)
	if !ok {
		t.Fatalf("expected Return, got %T", sq.Statements[1])
	}
	if len(ret.Items) != 1 {
		t.Fatalf("expected 1 projection item, got %d", len(ret.Items))
	}
	prop, ok := ret.Items[0].Expression.(PropertyAccess)
	if !ok {
		t.Fatalf("expected PropertyAccess, got %T", ret.Items[0].Expression)
	}
	if prop.Property != "name" {
		t.Errorf("expected property name, got %q", prop.Property)
	}
}

func TestConvert_RelationshipPatternDirectionAndType(t *testing.T) {
	root := mustConvert(t, `MATCH (a)-[:KNOWS]->(b) RETURN a`)
	sq := root.(RegularQuery).Single.(SingleQuery)
	match := sq.Statements[0].(Match)
	path := match.Pattern.Paths[0]
	if len(path.Elements) != 3 {
		t.Fatalf("expected 3 path elements, got %d", len(path.Elements))
	}
	rel, ok := path.Elements[1].(RelationshipPattern)
	if !ok {
		t.Fatalf("expected RelationshipPattern, got %T", path.Elements[1])
	}
	if rel.Direction != Right {
		t.Errorf("expected Right direction, got %v", rel.Direction)
	}
	if len(rel.Types) != 1 || rel.Types[0] != "KNOWS" {
		t.Errorf("expected type KNOWS, got %v", rel.Types)
	}
}

func TestConvert_AndOperandsFlattenToThree(t *testing.T) {
	root := mustConvert(t, `MATCH (n) WHERE n.a = 1 AND n.b = 2 AND n.c = 3 RETURN n`)
	sq := root.(RegularQuery).Single.(SingleQuery)
	match := sq.Statements[0].(Match)
	and, ok := match.Where.(And)
	if !ok {
		t.Fatalf("expected And, got %T", match.Where)
	}
	if len(and.Operands) != 3 {
		t.Fatalf("expected 3 operands, got %d", len(and.Operands))
	}
}

func TestConvert_CreateWithPropertyMapPreservesOrder(t *testing.T) {
	root := mustConvert(t, `CREATE (n:Person {z: 1, a: 2}) RETURN n`)
	sq := root.(RegularQuery).Single.(SingleQuery)
	create, ok := sq.Statements[0].(Create)
	if !ok {
		t.Fatalf("expected Create, got %T", sq.Statements[0])
	}
	node := create.Pattern.Paths[0].Elements[0].(NodePattern)
	if len(node.Properties.Keys) != 2 || node.Properties.Keys[0] != "z" || node.Properties.Keys[1] != "a" {
		t.Errorf("expected ordered keys [z a], got %v", node.Properties.Keys)
	}
	zVal, ok := node.Properties.Values["z"].(IntegerLiteral)
	if !ok || zVal.Value != 1 {
		t.Errorf("expected z=1, got %+v", node.Properties.Values["z"])
	}
}

func TestConvert_SetPropertyAndLabels(t *testing.T) {
	root := mustConvert(t, `MATCH (n) SET n.age = 30, n:Active REMOVE n.temp RETURN n`)
	sq := root.(RegularQuery).Single.(SingleQuery)
	set, ok := sq.Statements[1].(Set)
	if !ok {
		t.Fatalf("expected Set, got %T", sq.Statements[1])
	}
	if len(set.Items) != 2 {
		t.Fatalf("expected 2 set items, got %d", len(set.Items))
	}
	if set.Items[0].Kind != SetPropertyItem {
		t.Errorf("expected SetPropertyItem, got %v", set.Items[0].Kind)
	}
	if set.Items[1].Kind != SetLabelsItem || len(set.Items[1].Labels) != 1 || set.Items[1].Labels[0] != "Active" {
		t.Errorf("expected SetLabelsItem Active, got %+v", set.Items[1])
	}
	remove, ok := sq.Statements[2].(Remove)
	if !ok {
		t.Fatalf("expected Remove, got %T", sq.Statements[2])
	}
	if len(remove.Items) != 1 {
		t.Fatalf("expected 1 remove item, got %d", len(remove.Items))
	}
}

func TestConvert_UnknownTagProducesConvertError(t *testing.T) {
	_, err := Convert(&rawast.Node{Tag: "NotARealTag", Fields: map[string]any{}})
	if err == nil {
		t.Fatal("expected error for unknown tag")
	}
	ce, ok := err.(*ConvertError)
	if !ok {
		t.Fatalf("expected *ConvertError, got %T", err)
	}
	if ce.Kind != "UnknownNodeType" {
		t.Errorf("expected UnknownNodeType, got %s", ce.Kind)
	}
}

func TestConvert_MapProjection(t *testing.T) {
	root := mustConvert(t, `MATCH (n) RETURN n {.name, label: "x", other, .*}`)
	sq := root.(RegularQuery).Single.(SingleQuery)
	ret := sq.Statements[1].(Return)
	mp, ok := ret.Items[0].Expression.(MapProjection)
	if !ok {
		t.Fatalf("expected MapProjection, got %T", ret.Items[0].Expression)
	}
	base, ok := mp.Base.(Variable)
	if !ok || base.Name != "n" {
		t.Fatalf("unexpected base: %+v", mp.Base)
	}
	if len(mp.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(mp.Entries))
	}
	if mp.Entries[0].Key != "name" {
		t.Errorf("entry 0 key = %q, want name", mp.Entries[0].Key)
	}
	if _, ok := mp.Entries[0].Value.(PropertyAccess); !ok {
		t.Errorf("entry 0 value = %T, want PropertyAccess", mp.Entries[0].Value)
	}
	if mp.Entries[1].Key != "label" {
		t.Errorf("entry 1 key = %q, want label", mp.Entries[1].Key)
	}
	if v, ok := mp.Entries[2].Value.(Variable); !ok || v.Name != "other" {
		t.Errorf("entry 2 = %+v, want variable projection of other", mp.Entries[2])
	}
	if mp.Entries[3].Key != "*" || mp.Entries[3].Value != nil {
		t.Errorf("entry 3 = %+v, want the .* marker", mp.Entries[3])
	}
}
