// Package exec runs a compiled plan.Plan against an htmldoc.Document:
// a node-tree walk plus projection/aggregation, the same shape as an
// inference engine driving a query against a graph model, generalized
// from one probability-propagation algorithm to axis/field reads.
package exec

import (
	"context"
	"sort"
	"strings"

	"github.com/markql/markql/internal/ast"
	"github.com/markql/markql/internal/htmldoc"
	"github.com/markql/markql/internal/plan"
	"github.com/markql/markql/internal/rowresult"
)

// Engine runs plans against a single in-memory Document. It holds no
// per-query state, so one Engine value can run any number of plans
// concurrently.
type Engine struct{}

// Execute runs p against doc and returns its result: a RowSet for an
// ordinary projection, or an AggregateResult when p.IsAggregateOnly.
func (Engine) Execute(ctx context.Context, p *plan.Plan, doc *htmldoc.Document) (rowresult.Result, error) {
	if p.Query.Source.Kind != ast.SourceDocument {
		return nil, errUnsupportedSource(sourceKindName(p.Query.Source.Kind))
	}

	children := htmldoc.BuildChildIndex(doc)
	matches, err := matchRows(ctx, doc, children, p.Query.Where)
	if err != nil {
		return nil, err
	}

	if p.IsAggregateOnly {
		return runAggregate(doc, children, matches, *p.AggregateItem)
	}
	return runProjection(doc, children, matches, p.Query)
}

func sourceKindName(k ast.SourceKind) string {
	switch k {
	case ast.SourcePath:
		return "path"
	case ast.SourceURL:
		return "url"
	case ast.SourceRawHTML:
		return "raw_html"
	case ast.SourceFragments:
		return "fragments"
	case ast.SourceParse:
		return "parse"
	case ast.SourceDerivedSubquery:
		return "derived_subquery"
	default:
		return "unknown"
	}
}

// matchRows returns every node id whose WHERE predicate holds, in
// document order. A nil WHERE matches every node.
func matchRows(ctx context.Context, doc *htmldoc.Document, children *htmldoc.ChildIndex, where ast.Expr) ([]htmldoc.NodeID, error) {
	var out []htmldoc.NodeID
	for _, node := range doc.Nodes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		c := evalCtx{doc: doc, children: children, anchor: node.ID}
		ok, err := c.evalExpr(where)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, node.ID)
		}
	}
	return out, nil
}

func runAggregate(doc *htmldoc.Document, children *htmldoc.ChildIndex, matches []htmldoc.NodeID, item ast.SelectItem) (rowresult.Result, error) {
	samples := make([]plan.Sample, 0, len(matches))
	for _, id := range matches {
		node, ok := doc.NodeByID(id)
		if !ok {
			continue
		}
		if item.Aggregate == ast.AggCount && item.Tag != "" && item.Tag != "*" && !strings.EqualFold(node.Tag, item.Tag) {
			continue
		}
		samples = append(samples, plan.Sample{Tag: node.Tag, Text: node.Text})
	}
	result, err := plan.ReducerFor(item).Reduce(samples)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func runProjection(doc *htmldoc.Document, children *htmldoc.ChildIndex, matches []htmldoc.NodeID, q *ast.Query) (rowresult.Result, error) {
	var rows []rowresult.Row
	var anchors []htmldoc.NodeID
	for _, id := range matches {
		rowsForMatch, rowAnchors, err := projectRows(doc, children, id, q.SelectItems)
		if err != nil {
			return nil, err
		}
		rows = append(rows, rowsForMatch...)
		anchors = append(anchors, rowAnchors...)
	}

	if len(q.OrderBy) > 0 {
		if err := sortRows(doc, children, anchors, rows, q.OrderBy); err != nil {
			return nil, err
		}
	}
	if q.Limit != nil && uint64(len(rows)) > *q.Limit {
		rows = rows[:*q.Limit]
	}

	columns := columnNames(q.SelectItems)
	return rowresult.RowSet{Columns: columns, Rows: rows}, nil
}

func columnNames(items []ast.SelectItem) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		if item.Kind == ast.SelectProject {
			names = append(names, item.ProjectAliases...)
			continue
		}
		names = append(names, columnNameFor(item))
	}
	return names
}

func columnNameFor(item ast.SelectItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	if item.Kind == ast.SelectFlatten {
		return strings.Join(item.FlattenAliases, ",")
	}
	if op, ok := item.Expr.(ast.OperandExpr); ok {
		return operandColumnName(op.Operand)
	}
	switch item.Kind {
	case ast.SelectStar:
		return "*"
	default:
		return "value"
	}
}

// operandColumnName mirrors how operands read back out in SQL source:
// `qualifier.field`, defaulting the qualifier to "self" and the field
// to an attribute's own name rather than the generic FieldAttribute
// label.
func operandColumnName(op ast.Operand) string {
	qualifier := op.Qualifier
	if qualifier == "" {
		qualifier = "self"
	}
	field := op.Field.String()
	if op.Field == ast.FieldAttribute {
		field = op.Attribute
	}
	return qualifier + "." + field
}

// projectRows evaluates items against anchor, returning one row (and
// the node id it should be ORDER-BY-evaluated against) per target of a
// SelectProject item among items, or exactly one row anchored at
// anchor itself when items has none. A select list carries at most one
// PROJECT item: the grammar accepts several, and plan.Compile rejects a
// second one.
func projectRows(doc *htmldoc.Document, children *htmldoc.ChildIndex, anchor htmldoc.NodeID, items []ast.SelectItem) ([]rowresult.Row, []htmldoc.NodeID, error) {
	projectIdx := -1
	for i := range items {
		if items[i].Kind == ast.SelectProject {
			projectIdx = i
			break
		}
	}
	if projectIdx < 0 {
		row, err := projectRow(doc, children, anchor, items, nil)
		if err != nil {
			return nil, nil, err
		}
		return []rowresult.Row{row}, []htmldoc.NodeID{anchor}, nil
	}

	targets := projectTargets(doc, children, anchor, items[projectIdx].Tag)
	rows := make([]rowresult.Row, 0, len(targets))
	anchors := make([]htmldoc.NodeID, 0, len(targets))
	for _, target := range targets {
		row, err := projectRow(doc, children, anchor, items, &projectFanout{itemIndex: projectIdx, target: target})
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
		anchors = append(anchors, target)
	}
	return rows, anchors, nil
}

// projectTargets finds every node PROJECT(tag) fans the matched row out
// to: the row's own anchor (if its tag matches) plus every tag-matching
// descendant, in document order.
func projectTargets(doc *htmldoc.Document, children *htmldoc.ChildIndex, anchor htmldoc.NodeID, tag string) []htmldoc.NodeID {
	var out []htmldoc.NodeID
	if node, ok := doc.NodeByID(anchor); ok && strings.EqualFold(node.Tag, tag) {
		out = append(out, anchor)
	}
	for _, id := range descendants(doc, children, anchor) {
		if node, ok := doc.NodeByID(id); ok && strings.EqualFold(node.Tag, tag) {
			out = append(out, id)
		}
	}
	return out
}

// projectFanout identifies which select item is the row's PROJECT item
// and which fan-out target its aliases should be evaluated against;
// every other item still evaluates against the row's own anchor.
type projectFanout struct {
	itemIndex int
	target    htmldoc.NodeID
}

func projectRow(doc *htmldoc.Document, children *htmldoc.ChildIndex, anchor htmldoc.NodeID, items []ast.SelectItem, fanout *projectFanout) (rowresult.Row, error) {
	var row rowresult.Row
	c := evalCtx{doc: doc, children: children, anchor: anchor}
	node, _ := doc.NodeByID(anchor)

	for i, item := range items {
		if fanout != nil && i == fanout.itemIndex {
			if err := projectAliasColumns(doc, children, fanout.target, item, &row); err != nil {
				return rowresult.Row{}, err
			}
			continue
		}
		name := columnNameFor(item)
		val, err := projectItem(c, node, item)
		if err != nil {
			return rowresult.Row{}, err
		}
		if item.Trim {
			val = rowresult.StringValue(strings.TrimSpace(val.String()))
		}
		row.Set(name, val)
	}
	return row, nil
}

// projectAliasColumns evaluates a PROJECT item's alias:expr pairs
// against target — one descendant-or-self of the matched row whose tag
// equals item.Tag — threading each computed value into the row's
// evalCtx.aliases so a later alias's expression can reference an
// earlier one by name via AliasRef.
func projectAliasColumns(doc *htmldoc.Document, children *htmldoc.ChildIndex, target htmldoc.NodeID, item ast.SelectItem, row *rowresult.Row) error {
	aliases := make(map[string]rowresult.Value, len(item.ProjectAliases))
	c := evalCtx{doc: doc, children: children, anchor: target, aliases: aliases}
	for i, alias := range item.ProjectAliases {
		v, err := c.evalScalar(item.ProjectExprs[i])
		if err != nil {
			return err
		}
		aliases[alias] = v
		row.Set(alias, v)
	}
	return nil
}

// projectItem evaluates one select item against the row's anchor node.
// Every scalar-shaped kind (tag-only, field projection, text/inner-HTML
// function, plain scalar expression) was built from the same
// classifyScalarSelectItem expr, so evaluating item.Expr handles them
// all uniformly; only the structurally distinct FLATTEN kind needs its
// own handling (PROJECT is handled separately by projectAliasColumns).
func projectItem(c evalCtx, node htmldoc.Node, item ast.SelectItem) (rowresult.Value, error) {
	switch item.Kind {
	case ast.SelectStar:
		return rowresult.StringValue(node.Tag), nil
	case ast.SelectFlatten:
		return rowresult.StringValue(node.Text), nil
	default:
		if item.Expr != nil {
			return c.evalScalar(item.Expr)
		}
		return rowresult.NullValue(), nil
	}
}

func sortRows(doc *htmldoc.Document, children *htmldoc.ChildIndex, anchors []htmldoc.NodeID, rows []rowresult.Row, orderBy []ast.OrderByItem) error {
	keys := make([][]rowresult.Value, len(rows))
	for i, id := range anchors {
		c := evalCtx{doc: doc, children: children, anchor: id}
		row := make([]rowresult.Value, len(orderBy))
		for j, item := range orderBy {
			v, err := c.evalScalar(item.Expr)
			if err != nil {
				return err
			}
			row[j] = v
		}
		keys[i] = row
	}

	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		for k, item := range orderBy {
			va, vb := keys[idx[a]][k], keys[idx[b]][k]
			less, greater := valueLess(va, vb)
			if !less && !greater {
				continue
			}
			if item.Desc {
				return greater
			}
			return less
		}
		return false
	})

	sortedRows := make([]rowresult.Row, len(rows))
	for i, j := range idx {
		sortedRows[i] = rows[j]
	}
	copy(rows, sortedRows)
	return nil
}

func valueLess(a, b rowresult.Value) (less, greater bool) {
	if a.Kind == rowresult.ValueNumber && b.Kind == rowresult.ValueNumber {
		return a.N < b.N, a.N > b.N
	}
	as, bs := a.String(), b.String()
	return as < bs, as > bs
}
