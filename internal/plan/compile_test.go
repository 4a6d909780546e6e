package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markql/markql/internal/ast"
	"github.com/markql/markql/internal/parser"
)

func mustParsePlan(t *testing.T, src string) *ast.Query {
	t.Helper()
	q, diag := parser.Parse(src)
	require.Nil(t, diag, "unexpected diagnostic: %+v", diag)
	return q
}

func TestCompile_SimpleSelectIsNotAggregateOnly(t *testing.T) {
	q := mustParsePlan(t, "SELECT self.tag FROM doc")
	p, err := Compile(q)
	require.NoError(t, err)
	require.False(t, p.IsAggregateOnly)
	require.Nil(t, p.AggregateItem)
}

func TestCompile_SoleAggregateItemIsAggregateOnly(t *testing.T) {
	q := mustParsePlan(t, "SELECT COUNT(*) FROM doc")
	p, err := Compile(q)
	require.NoError(t, err)
	require.True(t, p.IsAggregateOnly)
	require.NotNil(t, p.AggregateItem)
	require.Equal(t, ast.AggCount, p.AggregateItem.Aggregate)
}

func TestCompile_AggregateMixedWithOtherItemsIsShapeError(t *testing.T) {
	q := mustParsePlan(t, "SELECT self.tag, COUNT(*) FROM doc")
	_, err := Compile(q)
	require.Error(t, err)
	planErr, ok := err.(Error)
	require.True(t, ok)
	require.Equal(t, "ShapeError", planErr.Kind)
}

func TestCompile_ResolvesCTEReference(t *testing.T) {
	q := mustParsePlan(t, "WITH rows AS (SELECT self.tag FROM doc) SELECT self.tag FROM rows")
	p, err := Compile(q)
	require.NoError(t, err)
	require.Equal(t, ast.SourceDocument, p.Query.Source.Kind)
	require.Equal(t, "rows", p.Query.Source.Alias)
}

func TestCompile_UnresolvedCTEReferenceIsError(t *testing.T) {
	q := &ast.Query{
		SelectItems: []ast.SelectItem{{Kind: ast.SelectTagOnly, Tag: "*"}},
		Source:      ast.Source{Kind: ast.SourceCTERef, CTEName: "missing"},
	}
	_, err := Compile(q)
	require.Error(t, err)
	planErr, ok := err.(Error)
	require.True(t, ok)
	require.Equal(t, "UnresolvedReference", planErr.Kind)
}

func TestCompile_EmptySelectListIsError(t *testing.T) {
	q := &ast.Query{Source: ast.Source{Kind: ast.SourceDocument}}
	_, err := Compile(q)
	require.Error(t, err)
}

func TestCompile_MissingFromIsShapeError(t *testing.T) {
	q := mustParsePlan(t, "SELECT self.tag")
	_, err := Compile(q)
	require.Error(t, err)
	planErr, ok := err.(Error)
	require.True(t, ok)
	require.Equal(t, "ShapeError", planErr.Kind)
}

func TestCompile_CSVSinkWithoutPathIsShapeError(t *testing.T) {
	q := mustParsePlan(t, "SELECT self.tag FROM doc")
	q.Sink = &ast.Sink{Kind: ast.SinkCSV}
	_, err := Compile(q)
	require.Error(t, err)
}

func TestReducerFor_Count(t *testing.T) {
	item := ast.SelectItem{Kind: ast.SelectAggregate, Aggregate: ast.AggCount, Tag: "*"}
	r := ReducerFor(item)
	res, err := r.Reduce([]Sample{{Tag: "div", Text: "a"}, {Tag: "div", Text: "b"}})
	require.NoError(t, err)
	require.NotNil(t, res.Count)
	require.EqualValues(t, 2, *res.Count)
}

func TestReducerFor_Summarize(t *testing.T) {
	item := ast.SelectItem{Kind: ast.SelectAggregate, Aggregate: ast.AggSummarize}
	r := ReducerFor(item)
	res, err := r.Reduce([]Sample{{Text: "hello world"}, {Text: "  "}, {Text: "second"}})
	require.NoError(t, err)
	require.NotNil(t, res.Summary)
	require.Contains(t, *res.Summary, "hello world")
	require.Contains(t, *res.Summary, "second")
}

func TestTfIdfReducer_RanksRareTermsHigher(t *testing.T) {
	r := TfIdfReducer{AllTags: true}
	samples := []Sample{
		{Text: "the cat sat on the mat"},
		{Text: "the dog sat on the rug"},
		{Text: "gizmo gizmo gizmo unique appears once"},
	}
	res, err := r.Reduce(samples)
	require.NoError(t, err)
	require.NotEmpty(t, res.Terms)
	require.Equal(t, "gizmo", res.Terms[0].Term)
}

func TestTfIdfReducer_TopTermsLimitsResultCount(t *testing.T) {
	two := uint64(2)
	r := TfIdfReducer{AllTags: true, TopTerms: &two}
	samples := []Sample{{Text: "alpha beta gamma delta"}}
	res, err := r.Reduce(samples)
	require.NoError(t, err)
	require.Len(t, res.Terms, 2)
}

func TestTfIdfReducer_FiltersByTag(t *testing.T) {
	r := TfIdfReducer{Tags: []string{"p"}}
	samples := []Sample{
		{Tag: "p", Text: "alpha"},
		{Tag: "div", Text: "beta"},
	}
	res, err := r.Reduce(samples)
	require.NoError(t, err)
	require.Len(t, res.Terms, 1)
	require.Equal(t, "alpha", res.Terms[0].Term)
}

func TestTfIdfReducer_NoMatchingSamplesReturnsEmptyTerms(t *testing.T) {
	r := TfIdfReducer{Tags: []string{"missing"}}
	res, err := r.Reduce([]Sample{{Tag: "p", Text: "alpha"}})
	require.NoError(t, err)
	require.Empty(t, res.Terms)
}
