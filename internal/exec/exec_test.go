package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markql/markql/internal/htmldoc"
	"github.com/markql/markql/internal/parser"
	"github.com/markql/markql/internal/plan"
	"github.com/markql/markql/internal/rowresult"
)

// buildListDoc mirrors the suggestor's fixture: a ul containing two
// li.item rows, each with an h3.title and an anchor child.
func buildListDoc() *htmldoc.Document {
	return &htmldoc.Document{Nodes: []htmldoc.Node{
		{ID: 0, Tag: "ul", ParentID: -1, DocOrder: 0, Attributes: map[string]string{}},
		{ID: 1, Tag: "li", ParentID: 0, SiblingPos: 0, DocOrder: 1, Attributes: map[string]string{"class": "item", "id": "row-1"}},
		{ID: 2, Tag: "h3", Text: "First", ParentID: 1, SiblingPos: 0, DocOrder: 2, Attributes: map[string]string{"class": "title"}},
		{ID: 3, Tag: "a", Text: "Read more", ParentID: 1, SiblingPos: 1, DocOrder: 3, Attributes: map[string]string{"href": "/a"}},
		{ID: 4, Tag: "li", ParentID: 0, SiblingPos: 1, DocOrder: 4, Attributes: map[string]string{"class": "item", "id": "row-2"}},
		{ID: 5, Tag: "h3", Text: "Second", ParentID: 4, SiblingPos: 0, DocOrder: 5, Attributes: map[string]string{"class": "title"}},
		{ID: 6, Tag: "a", Text: "Continue", ParentID: 4, SiblingPos: 1, DocOrder: 6, Attributes: map[string]string{"href": "/b"}},
	}}
}

func compileQuery(t *testing.T, src string) *plan.Plan {
	t.Helper()
	q, diag := parser.Parse(src)
	require.Nil(t, diag, "parse error: %+v", diag)
	p, err := plan.Compile(q)
	require.NoError(t, err)
	return p
}

func TestExecute_TagOnlySelectsEveryMatchingLi(t *testing.T) {
	doc := buildListDoc()
	p := compileQuery(t, "SELECT li FROM doc WHERE tag = 'li'")

	res, err := Engine{}.Execute(context.Background(), p, doc)
	require.NoError(t, err)

	rs := res.(rowresult.RowSet)
	require.Len(t, rs.Rows, 2)
}

func TestExecute_FieldProjectionReadsAttribute(t *testing.T) {
	doc := buildListDoc()
	p := compileQuery(t, "SELECT a.href FROM doc WHERE tag = 'a'")

	res, err := Engine{}.Execute(context.Background(), p, doc)
	require.NoError(t, err)

	rs := res.(rowresult.RowSet)
	require.Len(t, rs.Rows, 2)
	v, ok := rs.Rows[0].Get("a.href")
	require.True(t, ok)
	require.Equal(t, "/a", v.S)
}

func TestExecute_DescendantExistsFiltersRows(t *testing.T) {
	doc := buildListDoc()
	p := compileQuery(t, "SELECT self.node_id FROM doc WHERE tag = 'li' AND EXISTS(descendant WHERE tag = 'a')")

	res, err := Engine{}.Execute(context.Background(), p, doc)
	require.NoError(t, err)

	rs := res.(rowresult.RowSet)
	require.Len(t, rs.Rows, 2)
}

func TestExecute_QualifiedOperandShorthand(t *testing.T) {
	doc := buildListDoc()
	p := compileQuery(t, "SELECT li.node_id, li.attributes.class AS c FROM doc WHERE tag = 'li'")

	res, err := Engine{}.Execute(context.Background(), p, doc)
	require.NoError(t, err)

	rs := res.(rowresult.RowSet)
	require.Len(t, rs.Rows, 2)
	v, ok := rs.Rows[0].Get("c")
	require.True(t, ok)
	require.Equal(t, "item", v.S)
}

func TestExecute_TextFunctionAcceptsSelf(t *testing.T) {
	doc := buildListDoc()
	p := compileQuery(t, "SELECT TEXT(self) AS content FROM doc WHERE tag = 'h3'")

	res, err := Engine{}.Execute(context.Background(), p, doc)
	require.NoError(t, err)

	rs := res.(rowresult.RowSet)
	require.Len(t, rs.Rows, 2)
	v, _ := rs.Rows[0].Get("content")
	require.Equal(t, "First", v.S)
}

func TestExecute_TextFunctionFindsDescendantByTag(t *testing.T) {
	doc := buildListDoc()
	p := compileQuery(t, "SELECT TEXT(h3) AS title, TEXT(a) AS link_text FROM doc WHERE tag = 'li'")

	res, err := Engine{}.Execute(context.Background(), p, doc)
	require.NoError(t, err)

	rs := res.(rowresult.RowSet)
	require.Len(t, rs.Rows, 2)
	title, _ := rs.Rows[0].Get("title")
	require.Equal(t, "First", title.S)
	link, _ := rs.Rows[0].Get("link_text")
	require.Equal(t, "Read more", link.S)
}

func TestExecute_PositionUsesInKeyword(t *testing.T) {
	doc := buildListDoc()
	p := compileQuery(t, "SELECT POSITION('r' IN self.text) AS pos FROM doc WHERE tag = 'h3'")

	res, err := Engine{}.Execute(context.Background(), p, doc)
	require.NoError(t, err)

	rs := res.(rowresult.RowSet)
	pos, _ := rs.Rows[0].Get("pos")
	require.Equal(t, float64(3), pos.N) // "First" -> r at index 3 (1-based)
}

func TestExecute_CountAggregateReturnsAggregateResult(t *testing.T) {
	doc := buildListDoc()
	p := compileQuery(t, "SELECT COUNT(li) FROM doc WHERE tag = 'li'")

	res, err := Engine{}.Execute(context.Background(), p, doc)
	require.NoError(t, err)

	agg := res.(rowresult.AggregateResult)
	require.NotNil(t, agg.Count)
	require.Equal(t, int64(2), *agg.Count)
}

func TestExecute_LikeWildcardMatch(t *testing.T) {
	doc := buildListDoc()
	p := compileQuery(t, "SELECT self.node_id FROM doc WHERE text LIKE 'Fir%'")

	res, err := Engine{}.Execute(context.Background(), p, doc)
	require.NoError(t, err)

	rs := res.(rowresult.RowSet)
	require.Len(t, rs.Rows, 1)
}

func TestExecute_ContainsOnAttribute(t *testing.T) {
	doc := buildListDoc()
	p := compileQuery(t, "SELECT self.node_id FROM doc WHERE attributes.class CONTAINS ('item')")

	res, err := Engine{}.Execute(context.Background(), p, doc)
	require.NoError(t, err)

	rs := res.(rowresult.RowSet)
	require.Len(t, rs.Rows, 2)
}

func TestExecute_AttributesMapNotComparable(t *testing.T) {
	doc := buildListDoc()
	p := compileQuery(t, "SELECT self.node_id FROM doc WHERE attributes = self.attributes")

	_, err := Engine{}.Execute(context.Background(), p, doc)
	require.Error(t, err)
}

func TestExecute_UnsupportedSourceKindReturnsError(t *testing.T) {
	doc := buildListDoc()
	q, diag := parser.Parse("SELECT * FROM 'doc.html'")
	require.Nil(t, diag)
	p, err := plan.Compile(q)
	require.NoError(t, err)

	_, err = Engine{}.Execute(context.Background(), p, doc)
	require.Error(t, err)
}

func TestExecute_OrderByDescSortsNumerically(t *testing.T) {
	doc := buildListDoc()
	p := compileQuery(t, "SELECT self.node_id FROM doc WHERE tag = 'li' ORDER BY self.node_id DESC")

	res, err := Engine{}.Execute(context.Background(), p, doc)
	require.NoError(t, err)

	rs := res.(rowresult.RowSet)
	require.Len(t, rs.Rows, 2)
	first, _ := rs.Rows[0].Get("self.node_id")
	require.Equal(t, float64(4), first.N)
}

func TestExecute_LimitTruncatesRows(t *testing.T) {
	doc := buildListDoc()
	p := compileQuery(t, "SELECT self.node_id FROM doc WHERE tag = 'li' LIMIT 1")

	res, err := Engine{}.Execute(context.Background(), p, doc)
	require.NoError(t, err)

	rs := res.(rowresult.RowSet)
	require.Len(t, rs.Rows, 1)
}
