package fact

import "iter"

// InsertOutcome reports whether Insert added a new fact or found it
// already present.
type InsertOutcome int

const (
	New InsertOutcome = iota
	Duplicate
)

// Collection is the pluggable fact-store interface. The
// core depends only on this interface; it never leaks a backend-specific
// type or error to callers (errors are always *BackendError).
//
// Consistency: single-writer append-only. A read that starts iterating
// sees a snapshot of all facts inserted strictly before it started;
// concurrent inserts are not required to be visible to that read.
type Collection interface {
	Insert(f Fact) (InsertOutcome, error)
	Contains(f Fact) bool

	// FactsForNode iterates every fact that mentions node id, whether as
	// a label/property subject or as a relationship endpoint.
	FactsForNode(id Identifier) iter.Seq[Fact]

	// FactsForRelationship iterates the Relationship fact and every
	// RelationshipHasProperty fact for id.
	FactsForRelationship(id Identifier) iter.Seq[Fact]

	// FactsByLabel iterates the node ids carrying label.
	FactsByLabel(label string) iter.Seq[Identifier]

	// FactsByRelationshipType iterates relationship facts of the given type.
	FactsByRelationshipType(relType string) iter.Seq[Relationship]

	// Property returns the most recently inserted value for (id, key), if any.
	Property(id Identifier, key string) (Value, bool)

	// RelationshipProperty is the relationship analogue of Property.
	RelationshipProperty(id Identifier, key string) (Value, bool)

	// AllNodeIDs iterates every node id ever referenced by an inserted fact.
	AllNodeIDs() iter.Seq[Identifier]

	// AllRelationships iterates every relationship fact in the collection.
	AllRelationships() iter.Seq[Relationship]

	Close() error
}
