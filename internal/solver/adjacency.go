package solver

import "github.com/ritamzico/factgraph/internal/fact"

// adjacency indexes every relationship fact by its source node, used by
// bounded variable-length path expansion.
type adjacency map[fact.Identifier][]fact.Relationship

func buildAdjacency(coll fact.Collection) adjacency {
	adj := adjacency{}
	for r := range coll.AllRelationships() {
		adj[r.SourceID] = append(adj[r.SourceID], r)
	}
	return adj
}

// expandPaths enumerates every simple path (no repeated node) from
// `from` of length within [minDepth, maxDepth] hops whose relationships
// all carry one of typeFilter (any type allowed when typeFilter is
// empty), optionally constrained to end at one of `to` when non-nil.
// The visited set is scoped to the current recursion branch and undone
// on return, so siblings explore independently.
func expandPaths(adj adjacency, from fact.Identifier, to map[fact.Identifier]bool, minDepth, maxDepth int, typeFilter map[string]bool) [][]fact.Relationship {
	var results [][]fact.Relationship
	visited := map[fact.Identifier]bool{from: true}
	var walk func(current fact.Identifier, path []fact.Relationship)
	walk = func(current fact.Identifier, path []fact.Relationship) {
		if len(path) >= minDepth && (to == nil || to[current]) {
			cp := make([]fact.Relationship, len(path))
			copy(cp, path)
			results = append(results, cp)
		}
		if len(path) >= maxDepth {
			return
		}
		for _, rel := range adj[current] {
			if len(typeFilter) > 0 && !typeFilter[rel.Type] {
				continue
			}
			if visited[rel.TargetID] {
				continue
			}
			visited[rel.TargetID] = true
			walk(rel.TargetID, append(path, rel))
			delete(visited, rel.TargetID)
		}
	}
	walk(from, nil)
	return results
}
