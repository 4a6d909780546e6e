package exec

import (
	"github.com/markql/markql/internal/ast"
	"github.com/markql/markql/internal/htmldoc"
)

// resolveAxis returns the candidate node IDs an Operand's axis reaches
// from anchor, in document order. self/parent are at most one node;
// child/ancestor/descendant may be many. descendant is bounded the same
// way the suggestor bounds its anchor search, so a malformed tree can't
// make a query loop forever.
func resolveAxis(doc *htmldoc.Document, children *htmldoc.ChildIndex, anchor htmldoc.NodeID, axis ast.Axis) []htmldoc.NodeID {
	switch axis {
	case ast.AxisSelf:
		return []htmldoc.NodeID{anchor}
	case ast.AxisParent:
		node, ok := doc.NodeByID(anchor)
		if !ok || !node.HasParent() {
			return nil
		}
		return []htmldoc.NodeID{node.ParentID}
	case ast.AxisChild:
		return children.Children(anchor)
	case ast.AxisAncestor:
		chain := htmldoc.AncestorChain(doc, anchor)
		if len(chain) <= 1 {
			return nil
		}
		return chain[1:]
	case ast.AxisDescendant:
		return descendants(doc, children, anchor)
	default:
		return nil
	}
}

// descendants walks anchor's subtree depth-first in pre-order (document
// order), guarded at 2*len(doc.Nodes) visited steps.
func descendants(doc *htmldoc.Document, children *htmldoc.ChildIndex, anchor htmldoc.NodeID) []htmldoc.NodeID {
	var out []htmldoc.NodeID
	var stack []htmldoc.NodeID
	pushChildren := func(id htmldoc.NodeID) {
		kids := children.Children(id)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	pushChildren(anchor)
	limit := len(doc.Nodes) * 2
	steps := 0
	for len(stack) > 0 && steps < limit {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		pushChildren(cur)
		steps++
	}
	return out
}
