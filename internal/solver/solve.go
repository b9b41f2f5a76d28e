// Package solver is the constraint-solving pattern matcher: it turns a
// typed Match pattern plus an optional WHERE predicate into the ordered
// sequence of variable bindings satisfying them against a fact
// collection. Domains are drawn from fact.Collection indexes, pruned by
// label/type/property constraints, then solved by backtracking search
// with a smallest-domain-first (MRV) variable order.
package solver

import (
	"sort"
	"strings"

	"github.com/ritamzico/factgraph/internal/ast"
	"github.com/ritamzico/factgraph/internal/fact"
)

// Solver holds configuration shared across Solve calls.
type Solver struct {
	maxDepth int
}

func New(opts ...Option) *Solver {
	s := &Solver{maxDepth: defaultMaxDepth}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// candidate is one concrete value a CSP variable could take: a node id,
// a single relationship fact, or (for variable-length edges) a chain of
// relationship facts representing one bounded path.
type candidate struct {
	nodeID fact.Identifier
	isNode bool
	rel    fact.Relationship
	isRel  bool
	path   []fact.Relationship
	isPath bool
}

func (c candidate) endpoints() (src, tgt fact.Identifier, ok bool) {
	switch {
	case c.isRel:
		return c.rel.SourceID, c.rel.TargetID, true
	case c.isPath && len(c.path) > 0:
		return c.path[0].SourceID, c.path[len(c.path)-1].TargetID, true
	default:
		return "", "", false
	}
}

// Solve runs the full pipeline: compile the pattern into CSP variables
// and edges, build and prune domains, backtrack to enumerate complete
// assignments, apply the WHERE predicate (NULL collapses to false), and
// return solutions in deterministic declaration order.
func (s *Solver) Solve(pattern ast.Pattern, where ast.ASTNode, coll fact.Collection, params map[string]fact.Value) ([]Solution, error) {
	ir := compilePattern(pattern)
	env := &evalEnv{coll: coll, params: params, binding: map[string]Binding{}}

	domains := map[string][]candidate{}
	pathEdges := map[string]edgeSpec{}
	for _, name := range ir.order {
		v := ir.vars[name]
		if isPathVariable(ir, name) {
			pathEdges[name] = edgeFor(ir, name)
			continue // resolved after endpoint node domains are known
		}
		if v.isNode {
			ids, err := filterNodeProperties(nodeDomain(v, coll), v, env)
			if err != nil {
				return nil, err
			}
			cs := make([]candidate, len(ids))
			for i, id := range ids {
				cs[i] = candidate{nodeID: id, isNode: true}
			}
			domains[name] = cs
		} else {
			rels, err := filterRelProperties(relDomain(v, coll), v, env)
			if err != nil {
				return nil, err
			}
			cs := make([]candidate, len(rels))
			for i, r := range rels {
				cs[i] = candidate{rel: r, isRel: true}
			}
			domains[name] = cs
		}
	}

	if len(pathEdges) > 0 {
		adj := buildAdjacency(coll)
		for name, edge := range pathEdges {
			domains[name] = expandPathDomain(adj, edge, domains, s.maxDepth, typeFilterFor(ir.vars[name]))
		}
	}

	pruneArcConsistency(ir, domains)

	order := mrvOrder(ir.order, domains)
	assignment := map[string]candidate{}
	var solutions []Solution
	backtrack(ir, domains, order, 0, assignment, env, where, &solutions)

	sortSolutions(solutions, ir.order)
	return solutions, nil
}

func isPathVariable(ir *patternIR, name string) bool {
	edge := edgeFor(ir, name)
	return edge.length != nil && edge.length.HasLen && !(isExactlyOne(edge.length))
}

func isExactlyOne(l *ast.RelLength) bool {
	return l.Min != nil && l.Max != nil && *l.Min == 1 && *l.Max == 1
}

func edgeFor(ir *patternIR, relName string) edgeSpec {
	for _, e := range ir.edges {
		if e.relName == relName {
			return e
		}
	}
	return edgeSpec{}
}

// typeFilterFor collects every relationship type declared across a
// variable's occurrences; an empty result means any type is allowed.
func typeFilterFor(v *varSpec) map[string]bool {
	filter := map[string]bool{}
	for _, set := range v.typeSets {
		for _, t := range set {
			filter[t] = true
		}
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

func expandPathDomain(adj adjacency, edge edgeSpec, domains map[string][]candidate, maxDepth int, typeFilter map[string]bool) []candidate {
	min, max := 1, maxDepth
	if edge.length.Min != nil {
		min = *edge.length.Min
	}
	if edge.length.Max != nil {
		max = *edge.length.Max
	}
	var targets map[fact.Identifier]bool
	if tc, ok := domains[edge.targetName]; ok {
		targets = map[fact.Identifier]bool{}
		for _, c := range tc {
			if c.isNode {
				targets[c.nodeID] = true
			}
		}
	}
	var out []candidate
	sources := domains[edge.sourceName]
	for _, sc := range sources {
		if !sc.isNode {
			continue
		}
		for _, path := range expandPaths(adj, sc.nodeID, targets, min, max, typeFilter) {
			out = append(out, candidate{path: path, isPath: true})
		}
	}
	return out
}

// pruneArcConsistency removes relationship-domain candidates whose
// endpoints can never match any value in their node variables' current
// domains. Node domains are left unchanged: a node candidate that is no
// endpoint of any surviving relationship candidate is only rejected
// later, during backtracking. Because node domains never shrink here,
// a pass after the first removes nothing further.
func pruneArcConsistency(ir *patternIR, domains map[string][]candidate) {
	for pass := 0; pass < 4; pass++ {
		changed := false
		for _, edge := range ir.edges {
			srcDomain := nodeIDSet(domains[edge.sourceName])
			tgtDomain := nodeIDSet(domains[edge.targetName])
			kept := domains[edge.relName][:0:0]
			for _, c := range domains[edge.relName] {
				src, tgt, ok := c.endpoints()
				if !ok {
					kept = append(kept, c)
					continue
				}
				if edgeConsistent(src, tgt, srcDomain, tgtDomain, edge.undirected) {
					kept = append(kept, c)
				} else {
					changed = true
				}
			}
			domains[edge.relName] = kept
		}
		if !changed {
			break
		}
	}
}

func nodeIDSet(cs []candidate) map[fact.Identifier]bool {
	set := map[fact.Identifier]bool{}
	for _, c := range cs {
		if c.isNode {
			set[c.nodeID] = true
		}
	}
	return set
}

func edgeConsistent(src, tgt fact.Identifier, srcDomain, tgtDomain map[fact.Identifier]bool, undirected bool) bool {
	if len(srcDomain) == 0 || len(tgtDomain) == 0 {
		return true // domain not yet computed (e.g. anonymous node with no constraints)
	}
	if srcDomain[src] && tgtDomain[tgt] {
		return true
	}
	if undirected && srcDomain[tgt] && tgtDomain[src] {
		return true
	}
	return false
}

// mrvOrder returns variable names sorted by current domain size
// ascending (smallest-domain-first / MRV heuristic).
func mrvOrder(names []string, domains map[string][]candidate) []string {
	out := append([]string(nil), names...)
	sort.SliceStable(out, func(i, j int) bool {
		return len(domains[out[i]]) < len(domains[out[j]])
	})
	return out
}

func backtrack(ir *patternIR, domains map[string][]candidate, order []string, idx int, assignment map[string]candidate, env *evalEnv, where ast.ASTNode, out *[]Solution) {
	if idx == len(order) {
		emit(ir, assignment, env, where, out)
		return
	}
	name := order[idx]
	for _, c := range domains[name] {
		if !consistentWith(ir, name, c, assignment) {
			continue
		}
		assignment[name] = c
		env.binding[name] = bindingFor(c)
		backtrack(ir, domains, order, idx+1, assignment, env, where, out)
		delete(assignment, name)
		delete(env.binding, name)
	}
}

func bindingFor(c candidate) Binding {
	switch {
	case c.isNode:
		return nodeBinding(c.nodeID)
	case c.isRel:
		return relBinding(c.rel.RelID)
	case c.isPath:
		ids := make([]fact.Value, len(c.path))
		for i, r := range c.path {
			ids[i] = fact.Str(string(r.RelID))
		}
		return valueBinding(fact.List(ids))
	default:
		return Binding{}
	}
}

func consistentWith(ir *patternIR, name string, c candidate, assignment map[string]candidate) bool {
	for _, edge := range ir.edges {
		switch name {
		case edge.relName:
			src, tgt, ok := c.endpoints()
			if !ok {
				continue
			}
			if sc, bound := assignment[edge.sourceName]; bound && sc.isNode {
				if !endpointMatches(sc.nodeID, tgt, src, edge.undirected, true) {
					return false
				}
			}
			if tc, bound := assignment[edge.targetName]; bound && tc.isNode {
				if !endpointMatches(tc.nodeID, src, tgt, edge.undirected, false) {
					return false
				}
			}
			sc, sBound := assignment[edge.sourceName]
			tc, tBound := assignment[edge.targetName]
			if edge.undirected && sBound && tBound && sc.isNode && tc.isNode &&
				!(sc.nodeID == src && tc.nodeID == tgt) && !(sc.nodeID == tgt && tc.nodeID == src) {
				return false
			}
		case edge.sourceName, edge.targetName:
			if !c.isNode {
				continue
			}
			rc, bound := assignment[edge.relName]
			if !bound {
				continue
			}
			src, tgt, ok := rc.endpoints()
			if !ok {
				continue
			}
			otherName := edge.targetName
			if name == edge.targetName {
				otherName = edge.sourceName
			}
			if oc, bound := assignment[otherName]; edge.undirected && bound && oc.isNode &&
				!(c.nodeID == src && oc.nodeID == tgt) && !(c.nodeID == tgt && oc.nodeID == src) {
				return false
			}
			want := tgt
			if name == edge.sourceName {
				want = src
			}
			if c.nodeID == want {
				continue
			}
			if edge.undirected && c.nodeID == oppositeEndpoint(name, edge, src, tgt) {
				continue
			}
			return false
		}
	}
	return true
}

// endpointMatches checks a bound node against a relationship candidate's
// corresponding endpoint, allowing the reversed orientation for
// undirected edges.
func endpointMatches(boundID, otherSide, thisSide fact.Identifier, undirected, checkingSource bool) bool {
	if boundID == thisSide {
		return true
	}
	if undirected && boundID == otherSide {
		return true
	}
	return false
}

func oppositeEndpoint(name string, edge edgeSpec, src, tgt fact.Identifier) fact.Identifier {
	if name == edge.sourceName {
		return tgt
	}
	return src
}

func emit(ir *patternIR, assignment map[string]candidate, env *evalEnv, where ast.ASTNode, out *[]Solution) {
	if where != nil {
		v, err := Evaluate(where, env)
		if err != nil || !truthy(v) {
			return
		}
	}
	// Synthesized names for anonymous pattern elements stay internal to
	// this pattern: exposing them would collide across separately
	// compiled patterns (each restarts its ~node/~rel counters) when the
	// executor joins two MATCH clauses' solutions by shared name.
	sol := Solution{}
	for name, c := range assignment {
		if strings.HasPrefix(name, "~") {
			continue
		}
		sol[name] = bindingFor(c)
	}
	*out = append(*out, sol)
}

// sortSolutions imposes a deterministic output ordering:
// lexicographic comparison of each solution's bindings, taken in the
// pattern's variable declaration order.
func sortSolutions(solutions []Solution, order []string) {
	sort.SliceStable(solutions, func(i, j int) bool {
		for _, name := range order {
			c := compareBindings(solutions[i][name], solutions[j][name])
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func compareBindings(a, b Binding) int {
	av, bv := bindingSortKey(a), bindingSortKey(b)
	if av < bv {
		return -1
	}
	if av > bv {
		return 1
	}
	return 0
}

func bindingSortKey(b Binding) string {
	if b.HasValue {
		return b.Value.String()
	}
	return string(b.ID)
}
