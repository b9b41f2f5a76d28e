package fact

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"iter"

	"go.etcd.io/bbolt"
)

// BoltCollection is the optional persistent fact backend,
// an ordered KV with range scans over go.etcd.io/bbolt. Each secondary
// index is its own bucket of prefix-encoded keys, so label and type
// lookups become cursor range scans. All bolt-specific errors are wrapped in BackendError
// before they cross this type's exported methods.
type BoltCollection struct {
	db *bbolt.DB
}

var boltBuckets = []string{
	"facts",        // Key -> encoded fact
	"by_label",     // label\x00nodeID -> nodeID           (range scan: prefix=label)
	"by_type",      // type\x00relID   -> encoded fact      (range scan: prefix=type)
	"by_node",      // nodeID\x00factKey -> factKey          (range scan: prefix=nodeID)
	"by_rel",       // relID\x00factKey  -> factKey          (range scan: prefix=relID)
	"by_node_prop", // nodeID\x00propKey\x00seq -> encoded value (range scan: prefix=nodeID\x00propKey)
	"by_rel_prop",  // relID\x00propKey\x00seq  -> encoded value
	"nodes",        // nodeID -> empty
	"meta",         // "seq" -> uint64 counter
}

func NewBoltCollection(path string) (*BoltCollection, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, wrapErr("bbolt", "open", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range boltBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, wrapErr("bbolt", "init buckets", err)
	}
	return &BoltCollection{db: db}, nil
}

type encodedFact struct {
	Kind string `json:"kind"`
	Raw  []byte `json:"raw"`
}

func encodeFact(f Fact) ([]byte, error) {
	var payload any
	kind := ""
	switch v := f.(type) {
	case NodeHasLabel:
		kind, payload = "label", v
	case NodeHasProperty:
		kind, payload = "prop", v
	case Relationship:
		kind, payload = "rel", v
	case RelationshipHasProperty:
		kind, payload = "relprop", v
	default:
		return nil, fmt.Errorf("unknown fact type %T", f)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(encodedFact{Kind: kind, Raw: raw})
}

func decodeFact(data []byte) (Fact, error) {
	var ef encodedFact
	if err := json.Unmarshal(data, &ef); err != nil {
		return nil, err
	}
	switch ef.Kind {
	case "label":
		var v NodeHasLabel
		return v, json.Unmarshal(ef.Raw, &v)
	case "prop":
		var v NodeHasProperty
		return v, json.Unmarshal(ef.Raw, &v)
	case "rel":
		var v Relationship
		return v, json.Unmarshal(ef.Raw, &v)
	case "relprop":
		var v RelationshipHasProperty
		return v, json.Unmarshal(ef.Raw, &v)
	default:
		return nil, fmt.Errorf("unknown encoded fact kind %q", ef.Kind)
	}
}

func join(parts ...string) []byte {
	out := make([]byte, 0, 32)
	for i, p := range parts {
		if i > 0 {
			out = append(out, 0)
		}
		out = append(out, p...)
	}
	return out
}

func seqBytes(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func (c *BoltCollection) Insert(f Fact) (InsertOutcome, error) {
	outcome := New
	err := c.db.Update(func(tx *bbolt.Tx) error {
		facts := tx.Bucket([]byte("facts"))
		if facts.Get([]byte(f.Key())) != nil {
			outcome = Duplicate
			return nil
		}

		enc, err := encodeFact(f)
		if err != nil {
			return err
		}
		if err := facts.Put([]byte(f.Key()), enc); err != nil {
			return err
		}

		meta := tx.Bucket([]byte("meta"))
		seq := uint64(1)
		if b := meta.Get([]byte("seq")); b != nil {
			seq = binary.BigEndian.Uint64(b) + 1
		}
		if err := meta.Put([]byte("seq"), seqBytes(seq)); err != nil {
			return err
		}

		putNode := func(id Identifier) error {
			if err := tx.Bucket([]byte("nodes")).Put([]byte(id), []byte{}); err != nil {
				return err
			}
			return tx.Bucket([]byte("by_node")).Put(join(string(id), f.Key()), []byte(f.Key()))
		}
		putRel := func(id Identifier) error {
			return tx.Bucket([]byte("by_rel")).Put(join(string(id), f.Key()), []byte(f.Key()))
		}

		switch v := f.(type) {
		case NodeHasLabel:
			if err := putNode(v.NodeID); err != nil {
				return err
			}
			if err := tx.Bucket([]byte("by_label")).Put(join(v.Label, string(v.NodeID)), []byte(v.NodeID)); err != nil {
				return err
			}
		case NodeHasProperty:
			if err := putNode(v.NodeID); err != nil {
				return err
			}
			valBytes, err := json.Marshal(v.Value)
			if err != nil {
				return err
			}
			if err := tx.Bucket([]byte("by_node_prop")).Put(join(string(v.NodeID), v.Key_, string(seqBytes(seq))), valBytes); err != nil {
				return err
			}
		case Relationship:
			if err := putNode(v.SourceID); err != nil {
				return err
			}
			if err := putNode(v.TargetID); err != nil {
				return err
			}
			if err := putRel(v.RelID); err != nil {
				return err
			}
			if err := tx.Bucket([]byte("by_type")).Put(join(v.Type, string(v.RelID)), enc); err != nil {
				return err
			}
		case RelationshipHasProperty:
			if err := putRel(v.RelID); err != nil {
				return err
			}
			valBytes, err := json.Marshal(v.Value)
			if err != nil {
				return err
			}
			if err := tx.Bucket([]byte("by_rel_prop")).Put(join(string(v.RelID), v.Key_, string(seqBytes(seq))), valBytes); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, wrapErr("bbolt", "insert", err)
	}
	return outcome, nil
}

func (c *BoltCollection) Contains(f Fact) bool {
	found := false
	_ = c.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket([]byte("facts")).Get([]byte(f.Key())) != nil
		return nil
	})
	return found
}

func (c *BoltCollection) FactsForNode(id Identifier) iter.Seq[Fact] {
	return func(yield func(Fact) bool) {
		_ = c.db.View(func(tx *bbolt.Tx) error {
			facts := tx.Bucket([]byte("facts"))
			cur := tx.Bucket([]byte("by_node")).Cursor()
			prefix := join(string(id), "")
			for k, v := cur.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = cur.Next() {
				enc := facts.Get(v)
				if enc == nil {
					continue
				}
				f, err := decodeFact(enc)
				if err != nil {
					continue
				}
				if !yield(f) {
					return nil
				}
			}
			return nil
		})
	}
}

func (c *BoltCollection) FactsForRelationship(id Identifier) iter.Seq[Fact] {
	return func(yield func(Fact) bool) {
		_ = c.db.View(func(tx *bbolt.Tx) error {
			facts := tx.Bucket([]byte("facts"))
			cur := tx.Bucket([]byte("by_rel")).Cursor()
			prefix := join(string(id), "")
			for k, v := cur.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = cur.Next() {
				enc := facts.Get(v)
				if enc == nil {
					continue
				}
				f, err := decodeFact(enc)
				if err != nil {
					continue
				}
				if !yield(f) {
					return nil
				}
			}
			return nil
		})
	}
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (c *BoltCollection) FactsByLabel(label string) iter.Seq[Identifier] {
	return func(yield func(Identifier) bool) {
		_ = c.db.View(func(tx *bbolt.Tx) error {
			cur := tx.Bucket([]byte("by_label")).Cursor()
			prefix := join(label, "")
			for k, v := cur.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = cur.Next() {
				if !yield(Identifier(v)) {
					return nil
				}
			}
			return nil
		})
	}
}

func (c *BoltCollection) FactsByRelationshipType(relType string) iter.Seq[Relationship] {
	return func(yield func(Relationship) bool) {
		_ = c.db.View(func(tx *bbolt.Tx) error {
			cur := tx.Bucket([]byte("by_type")).Cursor()
			prefix := join(relType, "")
			for k, v := cur.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = cur.Next() {
				f, err := decodeFact(v)
				if err != nil {
					continue
				}
				rel, ok := f.(Relationship)
				if !ok {
					continue
				}
				if !yield(rel) {
					return nil
				}
			}
			return nil
		})
	}
}

func (c *BoltCollection) Property(id Identifier, key string) (Value, bool) {
	return c.latestFromBucket("by_node_prop", string(id), key)
}

func (c *BoltCollection) RelationshipProperty(id Identifier, key string) (Value, bool) {
	return c.latestFromBucket("by_rel_prop", string(id), key)
}

func (c *BoltCollection) latestFromBucket(bucket, id, key string) (Value, bool) {
	var out Value
	found := false
	_ = c.db.View(func(tx *bbolt.Tx) error {
		cur := tx.Bucket([]byte(bucket)).Cursor()
		prefix := join(id, key, "")
		var last []byte
		for k, v := cur.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = cur.Next() {
			last = v
		}
		if last == nil {
			return nil
		}
		if err := json.Unmarshal(last, &out); err != nil {
			return nil
		}
		found = true
		return nil
	})
	return out, found
}

func (c *BoltCollection) AllNodeIDs() iter.Seq[Identifier] {
	return func(yield func(Identifier) bool) {
		_ = c.db.View(func(tx *bbolt.Tx) error {
			return tx.Bucket([]byte("nodes")).ForEach(func(k, _ []byte) error {
				if !yield(Identifier(k)) {
					return fmt.Errorf("stop")
				}
				return nil
			})
		})
	}
}

func (c *BoltCollection) AllRelationships() iter.Seq[Relationship] {
	return func(yield func(Relationship) bool) {
		_ = c.db.View(func(tx *bbolt.Tx) error {
			return tx.Bucket([]byte("facts")).ForEach(func(_, v []byte) error {
				f, err := decodeFact(v)
				if err != nil {
					return nil
				}
				rel, ok := f.(Relationship)
				if !ok {
					return nil
				}
				if !yield(rel) {
					return fmt.Errorf("stop")
				}
				return nil
			})
		})
	}
}

func (c *BoltCollection) Close() error {
	return wrapErr("bbolt", "close", c.db.Close())
}
