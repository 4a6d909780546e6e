package htmldoc

// ChildIndex is a document's child-adjacency list, built once from each
// node's ParentID pointer: children[p] lists the IDs of p's direct
// children in document order, generalized from an explicit edge-set
// adjacency-list representation to parent-pointer derived adjacency.
type ChildIndex struct {
	children map[NodeID][]NodeID
	roots    []NodeID
}

// BuildChildIndex computes the child adjacency and root set for doc.
func BuildChildIndex(doc *Document) *ChildIndex {
	idx := &ChildIndex{children: make(map[NodeID][]NodeID, len(doc.Nodes))}
	for _, n := range doc.Nodes {
		if !n.HasParent() {
			idx.roots = append(idx.roots, n.ID)
			continue
		}
		idx.children[n.ParentID] = append(idx.children[n.ParentID], n.ID)
	}
	return idx
}

// Children returns id's direct children in document order.
func (c *ChildIndex) Children(id NodeID) []NodeID {
	return c.children[id]
}

// Roots returns every node with no parent, in document order.
func (c *ChildIndex) Roots() []NodeID {
	return c.roots
}

// AncestorChain returns id, its parent, its parent's parent, and so on
// up to (and including) a root. Guarded against a malformed cyclic
// ParentID chain by a bound of len(doc.Nodes) steps.
func AncestorChain(doc *Document, id NodeID) []NodeID {
	var chain []NodeID
	cur := id
	guard := 0
	for cur >= 0 && int(cur) < len(doc.Nodes) && guard < len(doc.Nodes) {
		chain = append(chain, cur)
		node := doc.Nodes[cur]
		if !node.HasParent() {
			break
		}
		cur = node.ParentID
		guard++
	}
	return chain
}
