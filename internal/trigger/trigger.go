// Package trigger is the streaming, dependency-driven trigger runtime:
// a bounded work queue of (trigger, candidate fact) pairs, drained by a
// pool of panic-safe workers that re-run the solver and turn each
// solution into derived facts.
package trigger

import (
	"fmt"

	"github.com/ritamzico/factgraph/internal/ast"
	"github.com/ritamzico/factgraph/internal/fact"
	"github.com/ritamzico/factgraph/internal/parsetree"
	"github.com/ritamzico/factgraph/internal/rawast"
	"github.com/ritamzico/factgraph/internal/solver"
	"github.com/ritamzico/factgraph/internal/validate"
)

// CallbackFunc is a trigger's user function: one fact.Value argument per
// declared parameter name, coerced per that parameter's ParamHint.
type CallbackFunc func(args map[string]fact.Value) (fact.Value, error)

// Trigger is compiled, immutable declaration metadata. Triggers are
// stateless; each successful binding produces one invocation.
type Trigger struct {
	Name       string
	Match      ast.Match
	Projection []ast.ProjectionItem // nil when the source query has no RETURN
	Params     []string             // parameter names, in declaration order
	Hints      map[string]ParamHint
	Claim      OutputClaim
	Run        CallbackFunc

	groundLabels map[string]bool
	groundTypes  map[string]bool
}

// Compile parses src (a MATCH ... [WHERE ...] [RETURN ...] query),
// validates it, and builds a Trigger bound to cb and claim. When src
// projects (RETURN), the projection's aliases become the callback's
// parameter names, each computed by evaluating its expression against
// the solved binding; otherwise the parameters default to the pattern's
// own variable names, bound to the raw entity identifier (an Open
// Question resolution — see DESIGN.md).
func Compile(name, src string, claim OutputClaim, cb CallbackFunc, hints map[string]ParamHint) (*Trigger, error) {
	q, err := parsetree.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("trigger %q: %w", name, err)
	}
	root := rawast.Transform(q)
	node, err := ast.Convert(root)
	if err != nil {
		return nil, fmt.Errorf("trigger %q: %w", name, err)
	}
	if _, err := validate.Validate(node); err != nil {
		return nil, fmt.Errorf("trigger %q: %w", name, err)
	}

	rq, ok := node.(ast.RegularQuery)
	if !ok {
		return nil, fmt.Errorf("trigger %q: expected a query, got %T", name, node)
	}
	sq, ok := rq.Single.(ast.SingleQuery)
	if !ok {
		return nil, fmt.Errorf("trigger %q: expected a single query, got %T", name, rq.Single)
	}

	var match *ast.Match
	var proj []ast.ProjectionItem
	for _, stmt := range sq.Statements {
		switch s := stmt.(type) {
		case ast.Match:
			m := s
			match = &m
		case ast.Return:
			proj = s.Items
		}
	}
	if match == nil {
		return nil, fmt.Errorf("trigger %q: source has no MATCH clause", name)
	}

	t := &Trigger{
		Name:       name,
		Match:      *match,
		Projection: proj,
		Hints:      hints,
		Claim:      claim,
		Run:        cb,
	}
	labels, types := solver.Ground(match.Pattern)
	t.groundLabels, t.groundTypes = toSet(labels), toSet(types)

	if proj != nil {
		for _, item := range proj {
			if name := paramName(item); name != "" {
				t.Params = append(t.Params, name)
			}
		}
	} else {
		t.Params = patternVariableNames(match.Pattern)
	}
	return t, nil
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, i := range items {
		set[i] = true
	}
	return set
}

func paramName(item ast.ProjectionItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	if v, ok := item.Expression.(ast.Variable); ok {
		return v.Name
	}
	return ""
}

// patternVariableNames collects every named (non-anonymous) node and
// relationship variable a pattern declares, in first-occurrence order.
func patternVariableNames(p ast.Pattern) []string {
	seen := map[string]bool{}
	var names []string
	add := func(n string) {
		if n != "" && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, path := range p.Paths {
		for _, el := range path.Elements {
			switch n := el.(type) {
			case ast.NodePattern:
				if n.HasVar {
					add(n.Variable)
				}
			case ast.RelationshipPattern:
				if n.HasVar {
					add(n.Variable)
				}
			}
		}
	}
	return names
}

// matchesAnyGround reports whether a newly-inserted fact carrying any of
// the given labels or relationship types makes this trigger a
// re-evaluation candidate.
func (t *Trigger) matchesAnyGround(labels, relTypes []string) bool {
	for _, l := range labels {
		if t.groundLabels[l] {
			return true
		}
	}
	for _, rt := range relTypes {
		if t.groundTypes[rt] {
			return true
		}
	}
	return false
}
