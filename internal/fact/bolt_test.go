package fact

import (
	"path/filepath"
	"testing"
)

func newTestBoltCollection(t *testing.T) *BoltCollection {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facts.db")
	c, err := NewBoltCollection(path)
	if err != nil {
		t.Fatalf("NewBoltCollection failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestBoltCollection_InsertDuplicate(t *testing.T) {
	c := newTestBoltCollection(t)

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
}

func TestBoltCollection_RelationshipAndProperty(t *testing.T) {
	c := newTestBoltCollection(t)

	mustInsert(t, c, NodeHasLabel{NodeID: "1", Label: "Person"})
	mustInsert(t, c, NodeHasLabel{NodeID: "2", Label: "Person"})
	mustInsert(t, c, Relationship{RelID: "r", SourceID: "1", TargetID: "2", Type: "KNOWS"})
	mustInsert(t, c, RelationshipHasProperty{RelID: "r", Key_: "since", Value: Int(2019)})
	mustInsert(t, c, RelationshipHasProperty{RelID: "r", Key_: "since", Value: Int(2021)})

	var rels []Relationship
	for r := range c.FactsByRelationshipType("KNOWS") {
		rels = append(rels, r)
	}
	if len(rels) != 1 {
		t.Fatalf("expected 1 relationship, got %d", len(rels))
	}

	v, ok := c.RelationshipProperty("r", "since")
	if !ok || v.I != 2021 {
		t.Fatalf("expected latest since=2021, got %v ok=%v", v, ok)
	}

	var forRel int
	for range c.FactsForRelationship("r") {
		forRel++
	}
	if forRel != 3 { // rel itself + two property facts
		t.Errorf("expected 3 facts for relationship r, got %d", forRel)
	}
}

func TestBoltCollection_AllNodeIDsAndLabel(t *testing.T) {
	c := newTestBoltCollection(t)

	mustInsert(t, c, NodeHasLabel{NodeID: "1", Label: "Person"})
	mustInsert(t, c, NodeHasLabel{NodeID: "2", Label: "Dog"})

	var ids []Identifier
	for id := range c.AllNodeIDs() {
		ids = append(ids, id)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 node ids, got %d: %v", len(ids), ids)
	}

	var persons []Identifier
	for id := range c.FactsByLabel("Person") {
		persons = append(persons, id)
	}
	if len(persons) != 1 || persons[0] != "1" {
		t.Fatalf("expected only node 1 to carry Person, got %v", persons)
	}
}
