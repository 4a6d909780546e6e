package ast

// Axis names the direction an Operand's field is read relative to the
// row's anchor node.
type Axis int

const (
	AxisSelf Axis = iota
	AxisParent
	AxisChild
	AxisAncestor
	AxisDescendant
)

func (a Axis) String() string {
	switch a {
	case AxisSelf:
		return "self"
	case AxisParent:
		return "parent"
	case AxisChild:
		return "child"
	case AxisAncestor:
		return "ancestor"
	case AxisDescendant:
		return "descendant"
	default:
		return "axis(?)"
	}
}

// FieldKind names which node property an Operand reads.
type FieldKind int

const (
	FieldTag FieldKind = iota
	FieldText
	FieldNodeID
	FieldParentID
	FieldSiblingPos
	FieldMaxDepth
	FieldDocOrder
	FieldAttribute
	FieldAttributesMap
)

func (f FieldKind) String() string {
	switch f {
	case FieldTag:
		return "tag"
	case FieldText:
		return "text"
	case FieldNodeID:
		return "node_id"
	case FieldParentID:
		return "parent_id"
	case FieldSiblingPos:
		return "sibling_pos"
	case FieldMaxDepth:
		return "max_depth"
	case FieldDocOrder:
		return "doc_order"
	case FieldAttribute:
		return "attribute"
	case FieldAttributesMap:
		return "attributes_map"
	default:
		return "field(?)"
	}
}

// Operand is an axis/field-kind pair, e.g. `self.tag`,
// `parent.attributes.id`, `ancestor.attributes`. Qualifier holds the
// source or tag alias prefix an operand was written with (`t.self.tag`,
// `li.node_id`), "self" for an explicit `self.` prefix, and is empty for
// a bare field, a bare attribute name, or an axis other than self
// written without a prefix. Attribute holds the attribute
// name for FieldAttribute operands; it is NOT lower-cased here (bare
// `X.attributes.Name` keeps the case the author wrote — see parser_operand.go).
type Operand struct {
	Qualifier string
	Axis      Axis
	Field     FieldKind
	Attribute string
	Span      Span
}
