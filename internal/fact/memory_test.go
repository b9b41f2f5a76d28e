package fact

import (
	"bytes"
	"testing"
)

func TestMemoryCollection_InsertDuplicate(t *testing.T) {
	c := NewMemoryCollection()

	f := NodeHasLabel{NodeID: "1", Label: "Person"}

	outcome, err := c.Insert(f)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if outcome != New {
		t.Fatalf("expected New, got %v", outcome)
	}

	outcome, err = c.Insert(f)
	if err != nil {
		t.Fatalf("second Insert failed: %v", err)
	}
	if outcome != Duplicate {
		t.Fatalf("expected Duplicate, got %v", outcome)
	}

	if !c.Contains(f) {
		t.Error("collection should contain the inserted fact")
	}
}

func TestMemoryCollection_FactsByLabel(t *testing.T) {
	c := NewMemoryCollection()

	mustInsert(t, c, NodeHasLabel{NodeID: "1", Label: "Person"})
	mustInsert(t, c, NodeHasLabel{NodeID: "2", Label: "Person"})
	mustInsert(t, c, NodeHasLabel{NodeID: "3", Label: "Dog"})

	var got []Identifier
	for id := range c.FactsByLabel("Person") {
		got = append(got, id)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 Person nodes, got %d: %v", len(got), got)
	}
}

func TestMemoryCollection_PropertyReturnsLatest(t *testing.T) {
	c := NewMemoryCollection()

	mustInsert(t, c, NodeHasLabel{NodeID: "1", Label: "Person"})
	mustInsert(t, c, NodeHasProperty{NodeID: "1", Key_: "age", Value: Int(30)})
	mustInsert(t, c, NodeHasProperty{NodeID: "1", Key_: "age", Value: Int(31)})

	v, ok := c.Property("1", "age")
	if !ok {
		t.Fatal("expected a value for age")
	}
	if v.I != 31 {
		t.Errorf("expected the most recently inserted value 31, got %d", v.I)
	}
}

func TestMemoryCollection_RelationshipDirectionAndType(t *testing.T) {
	c := NewMemoryCollection()

	mustInsert(t, c, NodeHasLabel{NodeID: "1", Label: "Person"})
	mustInsert(t, c, NodeHasLabel{NodeID: "2", Label: "Person"})
	mustInsert(t, c, Relationship{RelID: "r", SourceID: "1", TargetID: "2", Type: "KNOWS"})

	var rels []Relationship
	for r := range c.FactsByRelationshipType("KNOWS") {
		rels = append(rels, r)
	}
	if len(rels) != 1 || rels[0].SourceID != "1" || rels[0].TargetID != "2" {
		t.Fatalf("unexpected relationships: %+v", rels)
	}

	var forNode1 int
	for range c.FactsForNode("1") {
		forNode1++
	}
	if forNode1 != 2 { // label + relationship endpoint
		t.Errorf("expected 2 facts for node 1, got %d", forNode1)
	}
}

func TestMemoryCollection_ExportImportRoundTrip(t *testing.T) {
	c := NewMemoryCollection()
	mustInsert(t, c, NodeHasLabel{NodeID: "1", Label: "Person"})
	mustInsert(t, c, NodeHasProperty{NodeID: "1", Key_: "age", Value: Int(30)})
	mustInsert(t, c, NodeHasLabel{NodeID: "2", Label: "Person"})
	mustInsert(t, c, Relationship{RelID: "r", SourceID: "1", TargetID: "2", Type: "KNOWS"})
	mustInsert(t, c, RelationshipHasProperty{RelID: "r", Key_: "since", Value: Int(2020)})

	var buf bytes.Buffer
	if err := Export(c, &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	c2 := NewMemoryCollection()
	if err := Import(c2, &buf); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if !c2.Contains(NodeHasLabel{NodeID: "1", Label: "Person"}) {
		t.Error("round-tripped collection missing label fact")
	}
	if v, ok := c2.Property("1", "age"); !ok || v.I != 30 {
		t.Errorf("round-tripped collection missing property fact: %v %v", v, ok)
	}
	if v, ok := c2.RelationshipProperty("r", "since"); !ok || v.I != 2020 {
		t.Errorf("round-tripped collection missing relationship property: %v %v", v, ok)
	}
}

func mustInsert(t *testing.T, c Collection, f Fact) {
	t.Helper()
	if _, err := c.Insert(f); err != nil {
		t.Fatalf("failed to insert %v: %v", f, err)
	}
}
