package solver

import (
	"github.com/ritamzico/factgraph/internal/ast"
	"github.com/ritamzico/factgraph/internal/fact"
)

// nodeDomain is the candidate node ids for a node variable: the
// intersection of the label index across every labelSet occurrence.
func nodeDomain(v *varSpec, coll fact.Collection) []fact.Identifier {
	var domain map[fact.Identifier]bool
	started := false
	for _, labels := range v.labelSets {
		for _, label := range labels {
			set := map[fact.Identifier]bool{}
			for id := range coll.FactsByLabel(label) {
				set[id] = true
			}
			domain = intersectIDs(domain, set, started)
			started = true
		}
	}
	var out []fact.Identifier
	if started {
		for id := range domain {
			out = append(out, id)
		}
	} else {
		for id := range coll.AllNodeIDs() {
			out = append(out, id)
		}
	}
	return out
}

func intersectIDs(acc, next map[fact.Identifier]bool, started bool) map[fact.Identifier]bool {
	if !started {
		return next
	}
	out := map[fact.Identifier]bool{}
	for id := range acc {
		if next[id] {
			out[id] = true
		}
	}
	return out
}

// relDomain is the candidate relationship facts for a relationship
// variable: the union of facts_by_relationship_type(T) across every
// declared type (Cypher's `:T1|T2` means "either type"), or every
// relationship when no type is declared.
func relDomain(v *varSpec, coll fact.Collection) []fact.Relationship {
	var types []string
	for _, set := range v.typeSets {
		types = append(types, set...)
	}
	if len(types) == 0 {
		var out []fact.Relationship
		for r := range coll.AllRelationships() {
			out = append(out, r)
		}
		return out
	}
	seen := map[fact.Identifier]bool{}
	var out []fact.Relationship
	for _, t := range types {
		for r := range coll.FactsByRelationshipType(t) {
			if !seen[r.RelID] {
				seen[r.RelID] = true
				out = append(out, r)
			}
		}
	}
	return out
}

// filterNodeProperties drops candidates whose (key, expr) property
// constraints don't hold.
func filterNodeProperties(ids []fact.Identifier, v *varSpec, env *evalEnv) ([]fact.Identifier, error) {
	var out []fact.Identifier
	for _, id := range ids {
		ok, err := satisfiesProperties(func(key string) (fact.Value, bool) {
			return env.coll.Property(id, key)
		}, v.properties, env)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func filterRelProperties(rels []fact.Relationship, v *varSpec, env *evalEnv) ([]fact.Relationship, error) {
	var out []fact.Relationship
	for _, r := range rels {
		ok, err := satisfiesProperties(func(key string) (fact.Value, bool) {
			return env.coll.RelationshipProperty(r.RelID, key)
		}, v.properties, env)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// satisfiesProperties checks every declared (key, expr) pair across all
// occurrences of a variable's property map against a candidate's actual
// property values: the candidate's stored value must equal the
// evaluated expression.
func satisfiesProperties(lookup func(string) (fact.Value, bool), maps []*ast.PropertyMap, env *evalEnv) (bool, error) {
	for _, m := range maps {
		if m == nil {
			continue
		}
		for _, key := range m.Keys {
			want, err := Evaluate(m.Values[key], env)
			if err != nil {
				return false, err
			}
			got, ok := lookup(key)
			if !ok || !got.Equal(want) {
				return false, nil
			}
		}
	}
	return true, nil
}
