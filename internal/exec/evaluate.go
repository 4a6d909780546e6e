package exec

import (
	"strings"

	"github.com/markql/markql/internal/ast"
	"github.com/markql/markql/internal/htmldoc"
	"github.com/markql/markql/internal/rowresult"
)

// evalCtx bundles the document state an expression or operand read needs.
// anchor is the row node the expression is being evaluated against.
// aliases resolves AliasRef reads against the PROJECT alias values
// computed so far in the current row; nil outside PROJECT evaluation.
type evalCtx struct {
	doc      *htmldoc.Document
	children *htmldoc.ChildIndex
	anchor   htmldoc.NodeID
	aliases  map[string]rowresult.Value
}

// evalExpr evaluates a boolean predicate against c.anchor.
func (c evalCtx) evalExpr(e ast.Expr) (bool, error) {
	switch n := e.(type) {
	case nil:
		return true, nil
	case *ast.BinaryExpr:
		left, err := c.evalExpr(n.Left)
		if err != nil {
			return false, err
		}
		if n.Op == ast.OpAnd && !left {
			return false, nil
		}
		if n.Op == ast.OpOr && left {
			return true, nil
		}
		return c.evalExpr(n.Right)
	case *ast.ComparisonExpr:
		ok, err := c.evalComparison(n)
		if err != nil {
			return false, err
		}
		if n.Negated {
			ok = !ok
		}
		return ok, nil
	case *ast.ExistsExpr:
		ok, err := c.evalExists(n)
		if err != nil {
			return false, err
		}
		if n.Negated {
			ok = !ok
		}
		return ok, nil
	default:
		return false, errUnsupportedSource("unknown-expr")
	}
}

func (c evalCtx) evalExists(n *ast.ExistsExpr) (bool, error) {
	candidates := resolveAxis(c.doc, c.children, c.anchor, n.Axis)
	if n.Predicate == nil {
		return len(candidates) > 0, nil
	}
	for _, id := range candidates {
		sub := evalCtx{doc: c.doc, children: c.children, anchor: id}
		ok, err := sub.evalExpr(n.Predicate)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// evalComparison implements the existential axis rule: when lhs is a
// multi-node-axis Operand (child/ancestor/descendant), the comparison
// holds if ANY candidate node along that axis satisfies it.
func (c evalCtx) evalComparison(cmp *ast.ComparisonExpr) (bool, error) {
	if operand, ok := cmp.LHS.(ast.OperandExpr); ok && isMultiNodeAxis(operand.Operand.Axis) {
		candidates := resolveAxis(c.doc, c.children, c.anchor, operand.Operand.Axis)
		for _, id := range candidates {
			lhsVal, err := c.resolveOperand(operand.Operand, id)
			if err != nil {
				return false, err
			}
			ok, err := c.evalComparisonValues(cmp, lhsVal)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	lhsVal, err := c.evalScalar(cmp.LHS)
	if err != nil {
		return false, err
	}
	return c.evalComparisonValues(cmp, lhsVal)
}

func isMultiNodeAxis(a ast.Axis) bool {
	return a == ast.AxisChild || a == ast.AxisAncestor || a == ast.AxisDescendant
}

func (c evalCtx) evalComparisonValues(cmp *ast.ComparisonExpr, lhsVal rowresult.Value) (bool, error) {
	switch cmp.Op {
	case ast.CmpIsNull:
		return lhsVal.IsNull(), nil
	case ast.CmpIsNotNull:
		return !lhsVal.IsNull(), nil
	case ast.CmpIn:
		needles := cmp.RHSList
		if len(needles) == 0 && cmp.RHS != nil {
			needles = []ast.ScalarExpr{cmp.RHS}
		}
		for _, rhsExpr := range needles {
			rhsVal, err := c.evalScalar(rhsExpr)
			if err != nil {
				return false, err
			}
			if valuesEqual(lhsVal, rhsVal) {
				return true, nil
			}
		}
		return false, nil
	case ast.CmpContains, ast.CmpContainsAll, ast.CmpContainsAny:
		return c.evalContains(cmp, lhsVal)
	case ast.CmpHasDirectText:
		rhsVal, err := c.evalScalar(cmp.RHS)
		if err != nil {
			return false, err
		}
		return strings.Contains(lhsVal.String(), rhsVal.String()), nil
	case ast.CmpLike:
		rhsVal, err := c.evalScalar(cmp.RHS)
		if err != nil {
			return false, err
		}
		return matchLike(rhsVal.String(), lhsVal.String())
	case ast.CmpRegex:
		rhsVal, err := c.evalScalar(cmp.RHS)
		if err != nil {
			return false, err
		}
		return matchRegex(rhsVal.String(), lhsVal.String())
	default:
		rhsVal, err := c.evalScalar(cmp.RHS)
		if err != nil {
			return false, err
		}
		return evalOrderedComparison(cmp.Op, lhsVal, rhsVal)
	}
}

func (c evalCtx) evalContains(cmp *ast.ComparisonExpr, lhsVal rowresult.Value) (bool, error) {
	haystack := lhsVal.String()
	needles := cmp.RHSList
	if len(needles) == 0 && cmp.RHS != nil {
		needles = []ast.ScalarExpr{cmp.RHS}
	}
	switch cmp.Op {
	case ast.CmpContainsAll:
		for _, needle := range needles {
			v, err := c.evalScalar(needle)
			if err != nil {
				return false, err
			}
			if !strings.Contains(haystack, v.String()) {
				return false, nil
			}
		}
		return true, nil
	default: // Contains, ContainsAny
		for _, needle := range needles {
			v, err := c.evalScalar(needle)
			if err != nil {
				return false, err
			}
			if strings.Contains(haystack, v.String()) {
				return true, nil
			}
		}
		return false, nil
	}
}

func evalOrderedComparison(op ast.CompareOp, lhs, rhs rowresult.Value) (bool, error) {
	if lhs.Kind == rowresult.ValueNumber && rhs.Kind == rowresult.ValueNumber {
		return compareOrdered(op, lhs.N < rhs.N, lhs.N == rhs.N, lhs.N > rhs.N), nil
	}
	l, r := lhs.String(), rhs.String()
	return compareOrdered(op, l < r, l == r, l > r), nil
}

func compareOrdered(op ast.CompareOp, lt, eq, gt bool) bool {
	switch op {
	case ast.CmpEq:
		return eq
	case ast.CmpNotEq:
		return !eq
	case ast.CmpLt:
		return lt
	case ast.CmpLtEq:
		return lt || eq
	case ast.CmpGt:
		return gt
	case ast.CmpGtEq:
		return gt || eq
	default:
		return false
	}
}

func valuesEqual(a, b rowresult.Value) bool {
	if a.Kind == rowresult.ValueNumber && b.Kind == rowresult.ValueNumber {
		return a.N == b.N
	}
	return a.String() == b.String()
}

// evalScalar evaluates a scalar expression against c.anchor.
func (c evalCtx) evalScalar(e ast.ScalarExpr) (rowresult.Value, error) {
	switch n := e.(type) {
	case ast.StringLit:
		return rowresult.StringValue(n.Value), nil
	case ast.NumberLit:
		return rowresult.NumberValue(float64(n.Value)), nil
	case ast.NullLit:
		return rowresult.NullValue(), nil
	case ast.SelfRef:
		node, ok := c.doc.NodeByID(c.anchor)
		if !ok {
			return rowresult.NullValue(), nil
		}
		return rowresult.StringValue(node.Tag), nil
	case ast.OperandExpr:
		target := c.anchor
		if isMultiNodeAxis(n.Operand.Axis) {
			candidates := resolveAxis(c.doc, c.children, c.anchor, n.Operand.Axis)
			if len(candidates) == 0 {
				return rowresult.NullValue(), nil
			}
			target = candidates[0]
		}
		return c.resolveOperand(n.Operand, target)
	case ast.AliasRef:
		if v, ok := c.aliases[n.Name]; ok {
			return v, nil
		}
		return rowresult.NullValue(), nil
	case *ast.FunctionCall:
		return c.evalFunctionCall(n)
	default:
		return rowresult.NullValue(), errUnsupportedSource("unknown-scalar-expr")
	}
}

// resolveOperand reads operand's field from the axis-resolved node id
// (already walked from the anchor by the caller for multi-node axes, or
// equal to the anchor for self/parent).
func (c evalCtx) resolveOperand(op ast.Operand, nodeID htmldoc.NodeID) (rowresult.Value, error) {
	target := nodeID
	if op.Axis == ast.AxisParent || op.Axis == ast.AxisSelf {
		candidates := resolveAxis(c.doc, c.children, c.anchor, op.Axis)
		if len(candidates) == 0 {
			return rowresult.NullValue(), nil
		}
		target = candidates[0]
	}
	node, ok := c.doc.NodeByID(target)
	if !ok {
		return rowresult.NullValue(), nil
	}
	switch op.Field {
	case ast.FieldTag:
		return rowresult.StringValue(node.Tag), nil
	case ast.FieldText:
		return rowresult.StringValue(node.Text), nil
	case ast.FieldNodeID:
		return rowresult.NumberValue(float64(node.ID)), nil
	case ast.FieldParentID:
		return rowresult.NumberValue(float64(node.ParentID)), nil
	case ast.FieldSiblingPos:
		return rowresult.NumberValue(float64(node.SiblingPos)), nil
	case ast.FieldMaxDepth:
		return rowresult.NumberValue(float64(node.MaxDepth)), nil
	case ast.FieldDocOrder:
		return rowresult.NumberValue(float64(node.DocOrder)), nil
	case ast.FieldAttribute:
		v, ok := node.Attributes[op.Attribute]
		if !ok {
			return rowresult.NullValue(), nil
		}
		return rowresult.StringValue(v), nil
	case ast.FieldAttributesMap:
		return rowresult.Value{}, errAttributesNotComparable()
	default:
		return rowresult.NullValue(), nil
	}
}

// resolveTagArgNode finds the node a `tag|self` function argument
// refers to: the anchor itself for "self" or when the anchor's own tag
// matches, otherwise the first descendant (in document order) whose tag
// matches. Descendant search keeps
// function calls useful inside a matched row without requiring a
// second explicit axis operand.
func (c evalCtx) resolveTagArgNode(tagArg string) (htmldoc.Node, bool) {
	if tagArg == "self" {
		return c.doc.NodeByID(c.anchor)
	}
	anchorNode, ok := c.doc.NodeByID(c.anchor)
	if ok && strings.EqualFold(anchorNode.Tag, tagArg) {
		return anchorNode, true
	}
	for _, id := range descendants(c.doc, c.children, c.anchor) {
		node, ok := c.doc.NodeByID(id)
		if ok && strings.EqualFold(node.Tag, tagArg) {
			return node, true
		}
	}
	return htmldoc.Node{}, false
}

// resolveTagArgNodeWhere generalizes resolveTagArgNode with an optional
// WHERE filter, legal only inside a PROJECT expr's TEXT/DIRECT_TEXT/
// ATTR form: the first tagArg-matching candidate (anchor included) for
// which where also holds, evaluated with that candidate as the anchor.
func (c evalCtx) resolveTagArgNodeWhere(tagArg string, where ast.Expr) (htmldoc.Node, bool, error) {
	if where == nil {
		node, ok := c.resolveTagArgNode(tagArg)
		return node, ok, nil
	}
	var candidates []htmldoc.NodeID
	if tagArg == "self" {
		candidates = []htmldoc.NodeID{c.anchor}
	} else {
		if anchorNode, ok := c.doc.NodeByID(c.anchor); ok && strings.EqualFold(anchorNode.Tag, tagArg) {
			candidates = append(candidates, c.anchor)
		}
		for _, id := range descendants(c.doc, c.children, c.anchor) {
			if node, ok := c.doc.NodeByID(id); ok && strings.EqualFold(node.Tag, tagArg) {
				candidates = append(candidates, id)
			}
		}
	}
	for _, id := range candidates {
		sub := evalCtx{doc: c.doc, children: c.children, anchor: id, aliases: c.aliases}
		ok, err := sub.evalExpr(where)
		if err != nil {
			return htmldoc.Node{}, false, err
		}
		if ok {
			node, _ := c.doc.NodeByID(id)
			return node, true, nil
		}
	}
	return htmldoc.Node{}, false, nil
}

func (c evalCtx) evalFunctionCall(fn *ast.FunctionCall) (rowresult.Value, error) {
	switch fn.Name {
	case "TEXT", "FIRST_TEXT":
		return c.evalTagTextArg(fn, false)
	case "DIRECT_TEXT":
		return c.evalTagTextArg(fn, true)
	case "LAST_TEXT":
		return c.evalLastTagNode(fn, func(n htmldoc.Node) string { return n.Text })
	case "INNER_HTML":
		return c.evalInnerHTML(fn)
	case "RAW_INNER_HTML":
		return c.evalTagRawInnerHTML(fn)
	case "ATTR", "FIRST_ATTR":
		return c.evalAttr(fn, false)
	case "LAST_ATTR":
		return c.evalAttr(fn, true)
	case "SUBSTRING", "SUBSTR":
		return c.evalSubstring(fn)
	case "LENGTH", "CHAR_LENGTH":
		v, err := c.evalScalar(fn.Args[0])
		if err != nil {
			return rowresult.Value{}, err
		}
		return rowresult.NumberValue(float64(len([]rune(v.String())))), nil
	case "LOWER":
		v, err := c.evalScalar(fn.Args[0])
		if err != nil {
			return rowresult.Value{}, err
		}
		return rowresult.StringValue(strings.ToLower(v.String())), nil
	case "UPPER":
		v, err := c.evalScalar(fn.Args[0])
		if err != nil {
			return rowresult.Value{}, err
		}
		return rowresult.StringValue(strings.ToUpper(v.String())), nil
	case "TRIM":
		v, err := c.evalScalar(fn.Args[0])
		if err != nil {
			return rowresult.Value{}, err
		}
		return rowresult.StringValue(strings.TrimSpace(v.String())), nil
	case "LTRIM":
		v, err := c.evalScalar(fn.Args[0])
		if err != nil {
			return rowresult.Value{}, err
		}
		return rowresult.StringValue(strings.TrimLeft(v.String(), " \t\n\r")), nil
	case "RTRIM":
		v, err := c.evalScalar(fn.Args[0])
		if err != nil {
			return rowresult.Value{}, err
		}
		return rowresult.StringValue(strings.TrimRight(v.String(), " \t\n\r")), nil
	case "POSITION", "LOCATE":
		return c.evalPosition(fn)
	case "REPLACE":
		return c.evalReplace(fn)
	case "CONCAT":
		return c.evalConcat(fn)
	case "COALESCE":
		return c.evalCoalesce(fn)
	case "__CMP_EQ", "__CMP_NE", "__CMP_LT", "__CMP_LE", "__CMP_GT", "__CMP_GE", "__CMP_LIKE":
		return c.evalProjectComparison(fn)
	default:
		return rowresult.Value{}, errUnknownFunction(fn.Name)
	}
}

// evalProjectComparison evaluates a PROJECT alias's synthesized
// __CMP_* comparison-chain node, producing a boolean value.
func (c evalCtx) evalProjectComparison(fn *ast.FunctionCall) (rowresult.Value, error) {
	lhs, err := c.evalScalar(fn.Args[0])
	if err != nil {
		return rowresult.Value{}, err
	}
	rhs, err := c.evalScalar(fn.Args[1])
	if err != nil {
		return rowresult.Value{}, err
	}
	if fn.Name == "__CMP_LIKE" {
		ok, err := matchLike(rhs.String(), lhs.String())
		if err != nil {
			return rowresult.Value{}, err
		}
		return rowresult.BoolValue(ok), nil
	}
	op := map[string]ast.CompareOp{
		"__CMP_EQ": ast.CmpEq, "__CMP_NE": ast.CmpNotEq,
		"__CMP_LT": ast.CmpLt, "__CMP_LE": ast.CmpLtEq,
		"__CMP_GT": ast.CmpGt, "__CMP_GE": ast.CmpGtEq,
	}[fn.Name]
	ok, err := evalOrderedComparison(op, lhs, rhs)
	if err != nil {
		return rowresult.Value{}, err
	}
	return rowresult.BoolValue(ok), nil
}

func (c evalCtx) evalTagTextArg(fn *ast.FunctionCall, direct bool) (rowresult.Value, error) {
	tagArg, err := c.stringArg(fn.Args[0])
	if err != nil {
		return rowresult.Value{}, err
	}
	node, ok, err := c.resolveTagArgNodeWhere(tagArg, fn.Where)
	if err != nil {
		return rowresult.Value{}, err
	}
	if !ok {
		return rowresult.NullValue(), nil
	}
	if direct {
		return rowresult.StringValue(node.Text), nil
	}
	return rowresult.StringValue(node.Text), nil
}

// evalLastTagNode walks every matching descendant in document order and
// keeps the last one, since resolveTagArgNode only ever returns the
// first.
func (c evalCtx) evalLastTagNode(fn *ast.FunctionCall, extract func(htmldoc.Node) string) (rowresult.Value, error) {
	tagArg, err := c.stringArg(fn.Args[0])
	if err != nil {
		return rowresult.Value{}, err
	}
	var last htmldoc.Node
	found := false
	if tagArg == "self" {
		if node, ok := c.doc.NodeByID(c.anchor); ok {
			last, found = node, true
		}
	} else {
		for _, id := range append([]htmldoc.NodeID{c.anchor}, descendants(c.doc, c.children, c.anchor)...) {
			node, ok := c.doc.NodeByID(id)
			if ok && strings.EqualFold(node.Tag, tagArg) {
				last, found = node, true
			}
		}
	}
	if !found {
		return rowresult.NullValue(), nil
	}
	return rowresult.StringValue(extract(last)), nil
}

func (c evalCtx) evalInnerHTML(fn *ast.FunctionCall) (rowresult.Value, error) {
	tagArg, err := c.stringArg(fn.Args[0])
	if err != nil {
		return rowresult.Value{}, err
	}
	node, ok := c.resolveTagArgNode(tagArg)
	if !ok {
		return rowresult.NullValue(), nil
	}
	return rowresult.StringValue(node.InnerHTML), nil
}

func (c evalCtx) evalTagRawInnerHTML(fn *ast.FunctionCall) (rowresult.Value, error) {
	return c.evalInnerHTML(fn)
}

func (c evalCtx) evalAttr(fn *ast.FunctionCall, last bool) (rowresult.Value, error) {
	tagArg, err := c.stringArg(fn.Args[0])
	if err != nil {
		return rowresult.Value{}, err
	}
	name, err := c.stringArg(fn.Args[1])
	if err != nil {
		return rowresult.Value{}, err
	}
	if last {
		v, err := c.evalLastTagNode(fn, func(n htmldoc.Node) string { return n.Attributes[name] })
		return v, err
	}
	node, ok, err := c.resolveTagArgNodeWhere(tagArg, fn.Where)
	if err != nil {
		return rowresult.Value{}, err
	}
	if !ok {
		return rowresult.NullValue(), nil
	}
	val, present := node.Attributes[name]
	if !present {
		return rowresult.NullValue(), nil
	}
	return rowresult.StringValue(val), nil
}

func (c evalCtx) evalSubstring(fn *ast.FunctionCall) (rowresult.Value, error) {
	src, err := c.evalScalar(fn.Args[0])
	if err != nil {
		return rowresult.Value{}, err
	}
	startVal, err := c.evalScalar(fn.Args[1])
	if err != nil {
		return rowresult.Value{}, err
	}
	runes := []rune(src.String())
	start := int(startVal.N) - 1 // SUBSTRING is 1-indexed
	if start < 0 {
		start = 0
	}
	if start > len(runes) {
		start = len(runes)
	}
	end := len(runes)
	if len(fn.Args) == 3 {
		lenVal, err := c.evalScalar(fn.Args[2])
		if err != nil {
			return rowresult.Value{}, err
		}
		if e := start + int(lenVal.N); e < end {
			end = e
		}
	}
	if end < start {
		end = start
	}
	return rowresult.StringValue(string(runes[start:end])), nil
}

func (c evalCtx) evalPosition(fn *ast.FunctionCall) (rowresult.Value, error) {
	needle, err := c.evalScalar(fn.Args[0])
	if err != nil {
		return rowresult.Value{}, err
	}
	haystack, err := c.evalScalar(fn.Args[1])
	if err != nil {
		return rowresult.Value{}, err
	}
	idx := strings.Index(haystack.String(), needle.String())
	if idx < 0 {
		return rowresult.NumberValue(0), nil
	}
	return rowresult.NumberValue(float64(len([]rune(haystack.String()[:idx])) + 1)), nil
}

func (c evalCtx) evalReplace(fn *ast.FunctionCall) (rowresult.Value, error) {
	src, err := c.evalScalar(fn.Args[0])
	if err != nil {
		return rowresult.Value{}, err
	}
	old, err := c.evalScalar(fn.Args[1])
	if err != nil {
		return rowresult.Value{}, err
	}
	repl, err := c.evalScalar(fn.Args[2])
	if err != nil {
		return rowresult.Value{}, err
	}
	return rowresult.StringValue(strings.ReplaceAll(src.String(), old.String(), repl.String())), nil
}

func (c evalCtx) evalConcat(fn *ast.FunctionCall) (rowresult.Value, error) {
	var b strings.Builder
	for _, arg := range fn.Args {
		v, err := c.evalScalar(arg)
		if err != nil {
			return rowresult.Value{}, err
		}
		b.WriteString(v.String())
	}
	return rowresult.StringValue(b.String()), nil
}

func (c evalCtx) evalCoalesce(fn *ast.FunctionCall) (rowresult.Value, error) {
	for _, arg := range fn.Args {
		v, err := c.evalScalar(arg)
		if err != nil {
			return rowresult.Value{}, err
		}
		if !v.IsNull() {
			return v, nil
		}
	}
	return rowresult.NullValue(), nil
}

func (c evalCtx) stringArg(e ast.ScalarExpr) (string, error) {
	v, err := c.evalScalar(e)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}
