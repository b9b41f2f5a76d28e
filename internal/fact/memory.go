package fact

import (
	"iter"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"
)

const factTable = "fact"
const nodeTable = "node_registry"

// storedFact is the memdb row wrapping a Fact. Exported string fields
// back the table's secondary indexes; Seq breaks ties between multiple
// property facts for the same (NodeID, Key) so Property() can return the
// most recently inserted one without mutating or shrinking the
// append-only log (DESIGN.md Open Question 1).
type storedFact struct {
	Key      string
	KindTag  string
	NodeID   string
	NodeRefs []string
	Label    string
	PropKey  string
	RelID    string
	RelRefs  []string
	SourceID string
	TargetID string
	Type     string
	Seq      uint64
	Fact     Fact
}

type nodeRegistryRow struct {
	NodeID string
}

func memdbSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			factTable: {
				Name: factTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
					"node_refs": {
						Name:         "node_refs",
						Unique:       false,
						AllowMissing: true,
						Indexer:      &memdb.StringSliceFieldIndex{Field: "NodeRefs"},
					},
					"rel_refs": {
						Name:         "rel_refs",
						Unique:       false,
						AllowMissing: true,
						Indexer:      &memdb.StringSliceFieldIndex{Field: "RelRefs"},
					},
					"label": {
						Name:         "label",
						Unique:       false,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Label"},
					},
					"type": {
						Name:         "type",
						Unique:       false,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Type"},
					},
					"node_prop": {
						Name:         "node_prop",
						Unique:       false,
						AllowMissing: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "NodeID"},
								&memdb.StringFieldIndex{Field: "PropKey"},
							},
						},
					},
					"rel_prop": {
						Name:         "rel_prop",
						Unique:       false,
						AllowMissing: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "RelID"},
								&memdb.StringFieldIndex{Field: "PropKey"},
							},
						},
					},
				},
			},
			nodeTable: {
				Name: nodeTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "NodeID"},
					},
				},
			},
		},
	}
}

// MemoryCollection is the required in-memory reference implementation,
// backed by hashicorp/go-memdb so that readers transacting
// against the collection get an MVCC snapshot for free instead of one we
// would otherwise have to hand-roll.
type MemoryCollection struct {
	db  *memdb.MemDB
	mu  sync.Mutex // serializes writers
	seq atomic.Uint64
}

func NewMemoryCollection() *MemoryCollection {
	db, err := memdb.NewMemDB(memdbSchema())
	if err != nil {
		// The schema above is a fixed compile-time constant; a failure
		// here means this package itself is broken.
		panic(err)
	}
	return &MemoryCollection{db: db}
}

func toStored(f Fact, seq uint64) storedFact {
	row := storedFact{Key: f.Key(), Seq: seq, Fact: f}
	switch v := f.(type) {
	case NodeHasLabel:
		row.KindTag = "label"
		row.NodeID = string(v.NodeID)
		row.NodeRefs = []string{string(v.NodeID)}
		row.Label = v.Label
	case NodeHasProperty:
		row.KindTag = "prop"
		row.NodeID = string(v.NodeID)
		row.NodeRefs = []string{string(v.NodeID)}
		row.PropKey = v.Key_
	case Relationship:
		row.KindTag = "rel"
		row.RelID = string(v.RelID)
		row.RelRefs = []string{string(v.RelID)}
		row.SourceID = string(v.SourceID)
		row.TargetID = string(v.TargetID)
		row.NodeRefs = []string{string(v.SourceID), string(v.TargetID)}
		row.Type = v.Type
	case RelationshipHasProperty:
		row.KindTag = "relprop"
		row.RelID = string(v.RelID)
		row.RelRefs = []string{string(v.RelID)}
		row.PropKey = v.Key_
	}
	return row
}

func (c *MemoryCollection) Insert(f Fact) (InsertOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	txn := c.db.Txn(true)
	defer txn.Abort()

	if existing, err := txn.First(factTable, "id", f.Key()); err != nil {
		return 0, wrapErr("memdb", "insert/lookup", err)
	} else if existing != nil {
		return Duplicate, nil
	}

	row := toStored(f, c.seq.Add(1))
	if err := txn.Insert(factTable, &row); err != nil {
		return 0, wrapErr("memdb", "insert", err)
	}

	for _, ref := range row.NodeRefs {
		if err := txn.Insert(nodeTable, &nodeRegistryRow{NodeID: ref}); err != nil {
			return 0, wrapErr("memdb", "insert node ref", err)
		}
	}

	txn.Commit()
	return New, nil
}

func (c *MemoryCollection) Contains(f Fact) bool {
	txn := c.db.Txn(false)
	defer txn.Abort()
	existing, err := txn.First(factTable, "id", f.Key())
	return err == nil && existing != nil
}

func (c *MemoryCollection) FactsForNode(id Identifier) iter.Seq[Fact] {
	return func(yield func(Fact) bool) {
		txn := c.db.Txn(false)
		defer txn.Abort()
		it, err := txn.Get(factTable, "node_refs", string(id))
		if err != nil {
			return
		}
		for raw := it.Next(); raw != nil; raw = it.Next() {
			if !yield(raw.(*storedFact).Fact) {
				return
			}
		}
	}
}

func (c *MemoryCollection) FactsForRelationship(id Identifier) iter.Seq[Fact] {
	return func(yield func(Fact) bool) {
		txn := c.db.Txn(false)
		defer txn.Abort()
		it, err := txn.Get(factTable, "rel_refs", string(id))
		if err != nil {
			return
		}
		for raw := it.Next(); raw != nil; raw = it.Next() {
			if !yield(raw.(*storedFact).Fact) {
				return
			}
		}
	}
}

func (c *MemoryCollection) FactsByLabel(label string) iter.Seq[Identifier] {
	return func(yield func(Identifier) bool) {
		txn := c.db.Txn(false)
		defer txn.Abort()
		it, err := txn.Get(factTable, "label", label)
		if err != nil {
			return
		}
		seen := make(map[Identifier]bool)
		for raw := it.Next(); raw != nil; raw = it.Next() {
			row := raw.(*storedFact)
			if row.KindTag != "label" {
				continue
			}
			id := Identifier(row.NodeID)
			if seen[id] {
				continue
			}
			seen[id] = true
			if !yield(id) {
				return
			}
		}
	}
}

func (c *MemoryCollection) FactsByRelationshipType(relType string) iter.Seq[Relationship] {
	return func(yield func(Relationship) bool) {
		txn := c.db.Txn(false)
		defer txn.Abort()
		it, err := txn.Get(factTable, "type", relType)
		if err != nil {
			return
		}
		for raw := it.Next(); raw != nil; raw = it.Next() {
			row := raw.(*storedFact)
			if row.KindTag != "rel" {
				continue
			}
			if !yield(row.Fact.(Relationship)) {
				return
			}
		}
	}
}

func (c *MemoryCollection) Property(id Identifier, key string) (Value, bool) {
	txn := c.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(factTable, "node_prop", string(id), key)
	if err != nil {
		return Value{}, false
	}
	return latestProperty(it)
}

func (c *MemoryCollection) RelationshipProperty(id Identifier, key string) (Value, bool) {
	txn := c.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(factTable, "rel_prop", string(id), key)
	if err != nil {
		return Value{}, false
	}
	return latestProperty(it)
}

func latestProperty(it memdb.ResultIterator) (Value, bool) {
	var best *storedFact
	for raw := it.Next(); raw != nil; raw = it.Next() {
		row := raw.(*storedFact)
		if best == nil || row.Seq > best.Seq {
			best = row
		}
	}
	if best == nil {
		return Value{}, false
	}
	switch f := best.Fact.(type) {
	case NodeHasProperty:
		return f.Value, true
	case RelationshipHasProperty:
		return f.Value, true
	default:
		return Value{}, false
	}
}

func (c *MemoryCollection) AllNodeIDs() iter.Seq[Identifier] {
	return func(yield func(Identifier) bool) {
		txn := c.db.Txn(false)
		defer txn.Abort()
		it, err := txn.Get(nodeTable, "id")
		if err != nil {
			return
		}
		for raw := it.Next(); raw != nil; raw = it.Next() {
			if !yield(Identifier(raw.(*nodeRegistryRow).NodeID)) {
				return
			}
		}
	}
}

func (c *MemoryCollection) AllRelationships() iter.Seq[Relationship] {
	return func(yield func(Relationship) bool) {
		txn := c.db.Txn(false)
		defer txn.Abort()
		it, err := txn.Get(factTable, "id")
		if err != nil {
			return
		}
		for raw := it.Next(); raw != nil; raw = it.Next() {
			row := raw.(*storedFact)
			if row.KindTag != "rel" {
				continue
			}
			if !yield(row.Fact.(Relationship)) {
				return
			}
		}
	}
}

func (c *MemoryCollection) Close() error { return nil }
