package solver

import (
	"fmt"

	"github.com/ritamzico/factgraph/internal/ast"
)

// varSpec is one CSP variable's static constraints, accumulated from
// every pattern occurrence that shares its name.
type varSpec struct {
	name       string
	isNode     bool
	labelSets  [][]string // one []string per occurrence; must carry ALL labels in each
	typeSets   [][]string // one []string per occurrence; satisfies ANY type within a set
	properties []*ast.PropertyMap
}

// edgeSpec links a relationship variable to its endpoint node variables,
// honoring declared direction. Undirected
// edges may be satisfied with either node playing either endpoint role.
type edgeSpec struct {
	relName    string
	sourceName string
	targetName string
	undirected bool
	length     *ast.RelLength
}

// patternIR is the compiled form of an ast.Pattern: every CSP variable
// in first-occurrence order, plus the edges linking them.
type patternIR struct {
	order []string // variable names in first-declaration order
	vars  map[string]*varSpec
	edges []edgeSpec
}

func compilePattern(p ast.Pattern) *patternIR {
	ir := &patternIR{vars: map[string]*varSpec{}}
	anonNode, anonRel := 0, 0

	ensure := func(name string, isNode bool) *varSpec {
		v, ok := ir.vars[name]
		if !ok {
			v = &varSpec{name: name, isNode: isNode}
			ir.vars[name] = v
			ir.order = append(ir.order, name)
		}
		return v
	}

	for _, path := range p.Paths {
		// Elements always alternate NodePattern/RelationshipPattern,
		// starting and ending on a node, so nodes sit at even indices.
		nodeNames := make([]string, 0, len(path.Elements)/2+1)
		for _, el := range path.Elements {
			np, ok := el.(ast.NodePattern)
			if !ok {
				continue
			}
			name := np.Variable
			if !np.HasVar {
				anonNode++
				name = fmt.Sprintf("~node%d", anonNode)
			}
			v := ensure(name, true)
			v.labelSets = append(v.labelSets, np.Labels)
			v.properties = append(v.properties, np.Properties)
			nodeNames = append(nodeNames, name)
		}

		nodeIdx := 0
		for _, el := range path.Elements {
			rp, ok := el.(ast.RelationshipPattern)
			if !ok {
				continue
			}
			name := rp.Variable
			if !rp.HasVar {
				anonRel++
				name = fmt.Sprintf("~rel%d", anonRel)
			}
			v := ensure(name, false)
			v.typeSets = append(v.typeSets, rp.Types)
			v.properties = append(v.properties, rp.Properties)

			left, right := nodeNames[nodeIdx], nodeNames[nodeIdx+1]
			nodeIdx++

			edge := edgeSpec{relName: name, length: rp.Length}
			switch rp.Direction {
			case ast.Right:
				edge.sourceName, edge.targetName = left, right
			case ast.Left:
				edge.sourceName, edge.targetName = right, left
			default:
				edge.undirected = true
				edge.sourceName, edge.targetName = left, right
			}
			ir.edges = append(ir.edges, edge)
		}
	}
	return ir
}
