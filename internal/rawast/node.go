// Package rawast is the AST transformer: a bottom-up, total conversion
// of a parsetree.Query into a semantically normalized intermediate
// representation — a tagged dictionary form that internal/ast then
// converts a second time into the frozen typed AST.
package rawast

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Node is the tagged-dict intermediate form. Tag names the construct
// (e.g. "Match", "NodePattern", "Comparison"); Fields holds named
// sub-nodes/slices/scalars; Children holds ordered positional children
// for list-shaped constructs (pattern paths, clause sequences, operand
// chains).
type Node struct {
	Tag      string
	Fields   map[string]any
	Children []*Node
}

func newNode(tag string) *Node {
	return &Node{Tag: tag, Fields: map[string]any{}}
}

// PropertyMap is the insertion-order-preserving mapping from key name to
// expression Node required for property maps.
type PropertyMap = *orderedmap.OrderedMap[string, *Node]

func newPropertyMap() PropertyMap {
	return orderedmap.New[string, *Node]()
}
