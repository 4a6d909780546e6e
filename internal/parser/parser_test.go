package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/markql/markql/internal/ast"
)

func mustParse(t *testing.T, src string) *ast.Query {
	t.Helper()
	q, diag := Parse(src)
	if diag != nil {
		t.Fatalf("unexpected diagnostic for %q: %+v", src, diag)
	}
	return q
}

func TestParse_SelectStar(t *testing.T) {
	q := mustParse(t, "SELECT * FROM DOCUMENT")
	require.Len(t, q.SelectItems, 1)
	require.Equal(t, ast.SelectStar, q.SelectItems[0].Kind)
	require.Equal(t, ast.SourceDocument, q.Source.Kind)
}

func TestParse_SelectStarExclude(t *testing.T) {
	q := mustParse(t, "SELECT * EXCLUDE (node_id, parent_id) FROM DOCUMENT")
	require.Equal(t, []string{"node_id", "parent_id"}, q.SelectStarExcludes)
}

func TestParse_SelfFieldProjection(t *testing.T) {
	q := mustParse(t, "SELECT self.tag, self.node_id FROM DOCUMENT")
	require.Len(t, q.SelectItems, 2)
	require.Equal(t, ast.SelectTagOnly, q.SelectItems[0].Kind)
	op := q.SelectItems[1].Expr.(ast.OperandExpr).Operand
	require.Equal(t, ast.AxisSelf, op.Axis)
	require.Equal(t, ast.FieldNodeID, op.Field)
}

func TestParse_BareAttributeShorthand(t *testing.T) {
	q := mustParse(t, "SELECT self.tag FROM DOCUMENT WHERE class = 'foo'")
	cmp := q.Where.(*ast.ComparisonExpr)
	op := cmp.LHS.(ast.OperandExpr).Operand
	require.Equal(t, ast.AxisSelf, op.Axis)
	require.Equal(t, ast.FieldAttribute, op.Field)
	require.Equal(t, "class", op.Attribute)
}

func TestParse_AttributesDottedPathNotLowerCased(t *testing.T) {
	q := mustParse(t, "SELECT self.tag FROM DOCUMENT WHERE self.attributes.DataId = 'x'")
	cmp := q.Where.(*ast.ComparisonExpr)
	op := cmp.LHS.(ast.OperandExpr).Operand
	require.Equal(t, ast.FieldAttribute, op.Field)
	require.Equal(t, "DataId", op.Attribute)
}

func TestParse_AttributesMapBare(t *testing.T) {
	q := mustParse(t, "SELECT self.tag FROM DOCUMENT WHERE ancestor.attributes = self.attributes")
	cmp := q.Where.(*ast.ComparisonExpr)
	lhs := cmp.LHS.(ast.OperandExpr).Operand
	require.Equal(t, ast.FieldAttributesMap, lhs.Field)
	require.Equal(t, ast.AxisAncestor, lhs.Axis)
}

func TestParse_AttrFunctionLowerCasesBothArguments(t *testing.T) {
	q := mustParse(t, "SELECT ATTR(DIV, DataID) AS v FROM DOCUMENT")
	fn := q.SelectItems[0].Expr.(*ast.FunctionCall)
	require.Equal(t, "ATTR", fn.Name)
	require.Equal(t, "div", fn.Args[0].(ast.StringLit).Value)
	require.Equal(t, "dataid", fn.Args[1].(ast.StringLit).Value)
}

func TestParse_TextFunctionLowerCasesTagArg(t *testing.T) {
	q := mustParse(t, "SELECT TEXT(DIV) FROM DOCUMENT")
	require.Equal(t, ast.SelectTextFunction, q.SelectItems[0].Kind)
	fn := q.SelectItems[0].Expr.(*ast.FunctionCall)
	require.Equal(t, "div", fn.Args[0].(ast.StringLit).Value)
}

func TestParse_QualifiedOperand(t *testing.T) {
	q := mustParse(t, "SELECT t.self.tag FROM DOCUMENT AS t")
	op := q.SelectItems[0].Expr.(ast.OperandExpr).Operand
	require.Equal(t, "t", op.Qualifier)
	require.Equal(t, ast.AxisSelf, op.Axis)
}

func TestParse_LegacyHasDirectTextShorthandDesugars(t *testing.T) {
	q := mustParse(t, "SELECT self.tag FROM DOCUMENT WHERE div HAS_DIRECT_TEXT 'hello'")
	and, ok := q.Where.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.OpAnd, and.Op)

	tagEq := and.Left.(*ast.ComparisonExpr)
	require.Equal(t, ast.CmpEq, tagEq.Op)
	require.Equal(t, "div", tagEq.RHS.(ast.StringLit).Value)

	like := and.Right.(*ast.ComparisonExpr)
	require.Equal(t, ast.CmpLike, like.Op)
	fn := like.LHS.(*ast.FunctionCall)
	require.Equal(t, "DIRECT_TEXT", fn.Name)
	require.Equal(t, "div", fn.Args[0].(ast.StringLit).Value)
	require.Equal(t, "%hello%", like.RHS.(ast.StringLit).Value)
}

func TestParse_ExistsWithAxisAndWhere(t *testing.T) {
	q := mustParse(t, "SELECT self.tag FROM DOCUMENT WHERE EXISTS(child WHERE self.tag = 'a')")
	ex := q.Where.(*ast.ExistsExpr)
	require.Equal(t, ast.AxisChild, ex.Axis)
	require.NotNil(t, ex.Predicate)
}

func TestParse_NotExists(t *testing.T) {
	q := mustParse(t, "SELECT self.tag FROM DOCUMENT WHERE NOT EXISTS(descendant)")
	ex := q.Where.(*ast.ExistsExpr)
	require.True(t, ex.Negated)
}

func TestParse_InListLiteralMirror(t *testing.T) {
	q := mustParse(t, "SELECT self.tag FROM DOCUMENT WHERE self.tag IN ('a', 'b', 'c')")
	cmp := q.Where.(*ast.ComparisonExpr)
	require.Equal(t, ast.CmpIn, cmp.Op)
	require.Equal(t, []string{"a", "b", "c"}, cmp.Values)
}

func TestParse_CompareValuesMirrorNilForNonLiteralRHS(t *testing.T) {
	q := mustParse(t, "SELECT self.tag FROM DOCUMENT WHERE self.tag = parent.tag")
	cmp := q.Where.(*ast.ComparisonExpr)
	require.Nil(t, cmp.Values)
}

func TestParse_OrderByLimitTo(t *testing.T) {
	q := mustParse(t, "SELECT self.tag FROM DOCUMENT ORDER BY self.doc_order DESC LIMIT 10 TO CSV 'out.csv'")
	require.Len(t, q.OrderBy, 1)
	require.True(t, q.OrderBy[0].Desc)
	require.NotNil(t, q.Limit)
	require.Equal(t, uint64(10), *q.Limit)
	require.Equal(t, ast.SinkCSV, q.Sink.Kind)
	require.Equal(t, "out.csv", q.Sink.Path)
}

func TestParse_WithCTEAndRef(t *testing.T) {
	q := mustParse(t, "WITH divs AS (SELECT self.tag FROM DOCUMENT) SELECT self.tag FROM divs")
	require.Len(t, q.CTEs, 1)
	require.Equal(t, "divs", q.CTEs[0].Name)
	require.Equal(t, ast.SourceCTERef, q.Source.Kind)
	require.Equal(t, "divs", q.Source.CTEName)
}

func TestParse_NestedWithDoesNotLeakCTEName(t *testing.T) {
	_, diag := Parse(`
		SELECT self.tag FROM (
			WITH inner_cte AS (SELECT self.tag FROM DOCUMENT)
			SELECT self.tag FROM inner_cte
		) AS outer_alias
		WHERE EXISTS(child)
	`)
	require.Nil(t, diag)

	// A fresh parse never saw the nested WITH's scope, so the identifier
	// falls back to the legacy bare-alias form rather than resolving as
	// a CTE reference.
	q2 := mustParse(t, "SELECT self.tag FROM inner_cte")
	require.Equal(t, ast.SourceDocument, q2.Source.Kind)
}

func TestParse_DerivedSubqueryRequiresAlias(t *testing.T) {
	_, diag := Parse("SELECT self.tag FROM (SELECT self.tag FROM DOCUMENT)")
	require.NotNil(t, diag)
	require.Contains(t, diag.Message, "alias")
}

func TestParse_FlattenEmptyAliasListRejected(t *testing.T) {
	_, diag := Parse("SELECT FLATTEN(div) AS () FROM DOCUMENT")
	require.NotNil(t, diag)
	require.Equal(t, "expected column alias", diag.Message)
}

func TestParse_FlattenDefaultDepth(t *testing.T) {
	q := mustParse(t, "SELECT FLATTEN(div) AS (flatten_text) FROM DOCUMENT")
	item := q.SelectItems[0]
	require.Equal(t, ast.SelectFlatten, item.Kind)
	require.Equal(t, uint64(2), item.FlattenDepth)
	require.Equal(t, []string{"flatten_text"}, item.FlattenAliases)
}

func TestParse_Project(t *testing.T) {
	q := mustParse(t, "SELECT PROJECT(li) AS (heading: TEXT(div), id: ATTR(li, id)) FROM DOCUMENT")
	item := q.SelectItems[0]
	require.Equal(t, ast.SelectProject, item.Kind)
	require.Equal(t, "li", item.Tag)
	require.Equal(t, []string{"heading", "id"}, item.ProjectAliases)
	fn := item.ProjectExprs[0].(*ast.FunctionCall)
	require.Equal(t, "TEXT", fn.Name)
	require.Equal(t, "div", fn.Args[0].(ast.StringLit).Value)
}

func TestParse_ProjectWithTextWhere(t *testing.T) {
	q := mustParse(t, "SELECT PROJECT(li) AS (heading: TEXT(div WHERE self.attributes.class CONTAINS ('title'))) FROM DOCUMENT")
	item := q.SelectItems[0]
	fn := item.ProjectExprs[0].(*ast.FunctionCall)
	require.NotNil(t, fn.Where)
}

func TestParse_ProjectAliasRef(t *testing.T) {
	q := mustParse(t, "SELECT PROJECT(li) AS (heading: TEXT(div), same: heading) FROM DOCUMENT")
	item := q.SelectItems[0]
	ref := item.ProjectExprs[1].(ast.AliasRef)
	require.Equal(t, "heading", ref.Name)
}

func TestParse_ProjectComparisonChain(t *testing.T) {
	q := mustParse(t, "SELECT PROJECT(li) AS (ok: TEXT(div) = 'x') FROM DOCUMENT")
	item := q.SelectItems[0]
	fn := item.ProjectExprs[0].(*ast.FunctionCall)
	require.Equal(t, "__CMP_EQ", fn.Name)
	require.Len(t, fn.Args, 2)
}

func TestParse_CountStar(t *testing.T) {
	q := mustParse(t, "SELECT COUNT(*) AS n FROM DOCUMENT")
	item := q.SelectItems[0]
	require.Equal(t, ast.SelectAggregate, item.Kind)
	require.Equal(t, ast.AggCount, item.Aggregate)
	require.Equal(t, "n", item.Alias)
}

func TestParse_TfIdfWithOptions(t *testing.T) {
	q := mustParse(t, "SELECT TFIDF(p, li, TOP_TERMS 5, STOPWORDS NONE) AS terms FROM DOCUMENT")
	item := q.SelectItems[0]
	require.Equal(t, ast.AggTfIdf, item.Aggregate)
	require.Equal(t, []string{"p", "li"}, item.TfIdfTags)
	require.NotNil(t, item.TfIdfTopTerms)
	require.Equal(t, uint64(5), *item.TfIdfTopTerms)
	require.Equal(t, ast.StopwordsNone, item.TfIdfStopwords)
}

func TestParse_TrimWrapsInnerKind(t *testing.T) {
	q := mustParse(t, "SELECT TRIM(TEXT(div)) AS body FROM DOCUMENT")
	item := q.SelectItems[0]
	require.True(t, item.Trim)
	require.Equal(t, ast.SelectTextFunction, item.Kind)
}

func TestParse_TableIsAValidTagIdentifier(t *testing.T) {
	q := mustParse(t, "SELECT table FROM DOCUMENT WHERE self.tag = 'table'")
	require.NotNil(t, q)
}

func TestParse_PathAndUrlAndRawAndFragmentsSources(t *testing.T) {
	for _, src := range []string{
		`SELECT self.tag FROM 'a.html'`,
		`SELECT self.tag FROM 'http://example.com'`,
		`SELECT self.tag FROM RAW('<html></html>')`,
		`SELECT self.tag FROM FRAGMENTS('<div></div>')`,
		`SELECT self.tag FROM FRAGMENTS(SELECT self.tag FROM DOCUMENT)`,
		`SELECT self.tag FROM PARSE(TEXT(div))`,
	} {
		_, diag := Parse(src)
		require.Nilf(t, diag, "unexpected diagnostic for %q: %+v", src, diag)
	}
}

// TestParse_SourceShapes_StructuralDiff checks the full Source struct
// shape per source kind rather than asserting field-by-field: Source has
// enough kind-dependent optional fields that a targeted cmp.Diff finds a
// stray populated field a chain of require.Equal calls would miss.
func TestParse_SourceShapes_StructuralDiff(t *testing.T) {
	ignoreSpans := cmpopts.IgnoreFields(ast.Source{}, "Span")

	cases := []struct {
		name string
		src  string
		want ast.Source
	}{
		{
			name: "path",
			src:  `SELECT self.tag FROM 'a.html'`,
			want: ast.Source{Kind: ast.SourcePath, Literal: "a.html"},
		},
		{
			name: "url",
			src:  `SELECT self.tag FROM 'http://example.com'`,
			want: ast.Source{Kind: ast.SourceURL, Literal: "http://example.com"},
		},
		{
			name: "raw",
			src:  `SELECT self.tag FROM RAW('<html></html>')`,
			want: ast.Source{Kind: ast.SourceRawHTML, Literal: "<html></html>"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := mustParse(t, tc.src)
			if diff := cmp.Diff(tc.want, q.Source, ignoreSpans); diff != "" {
				t.Errorf("Source mismatch for %q (-want +got):\n%s", tc.src, diff)
			}
		})
	}
}

func TestParse_LegacyBareIdentifierAsDocumentAlias(t *testing.T) {
	q := mustParse(t, "SELECT self.tag FROM mydoc")
	require.Equal(t, ast.SourceDocument, q.Source.Kind)
	require.Equal(t, "mydoc", q.Source.Alias)
}

func TestParse_FirstSyntaxErrorHasSpan(t *testing.T) {
	_, diag := Parse("SELECT FROM DOCUMENT")
	require.NotNil(t, diag)
	require.Greater(t, diag.Length, 0)
}

func TestLint_EmptyOnSuccess(t *testing.T) {
	require.Empty(t, Lint("SELECT * FROM DOCUMENT"))
}

func TestLint_SingleDiagnosticOnFailure(t *testing.T) {
	diags := Lint("SELECT * FRM DOCUMENT")
	require.Len(t, diags, 1)
	require.Equal(t, SeverityError, diags[0].Severity)
}

func TestParse_BareFieldKeywordNoSelfPrefix(t *testing.T) {
	q := mustParse(t, "SELECT self.tag FROM DOCUMENT WHERE node_id = 1")
	cmp := q.Where.(*ast.ComparisonExpr)
	op := cmp.LHS.(ast.OperandExpr).Operand
	require.Equal(t, ast.AxisSelf, op.Axis)
	require.Equal(t, ast.FieldNodeID, op.Field)
}

func TestParse_QualifiedBareFieldKeyword(t *testing.T) {
	q := mustParse(t, "SELECT li.node_id FROM DOCUMENT")
	op := q.SelectItems[0].Expr.(ast.OperandExpr).Operand
	require.Equal(t, "li", op.Qualifier)
	require.Equal(t, ast.AxisSelf, op.Axis)
	require.Equal(t, ast.FieldNodeID, op.Field)
}

func TestParse_QualifiedAxisOperand(t *testing.T) {
	q := mustParse(t, "SELECT li.parent.tag FROM DOCUMENT")
	op := q.SelectItems[0].Expr.(ast.OperandExpr).Operand
	require.Equal(t, "li", op.Qualifier)
	require.Equal(t, ast.AxisParent, op.Axis)
	require.Equal(t, ast.FieldTag, op.Field)
}

func TestParse_QualifiedAttributesTail(t *testing.T) {
	q := mustParse(t, "SELECT li.attributes.class AS c FROM DOCUMENT")
	op := q.SelectItems[0].Expr.(ast.OperandExpr).Operand
	require.Equal(t, "li", op.Qualifier)
	require.Equal(t, ast.FieldAttribute, op.Field)
	require.Equal(t, "class", op.Attribute)
}

func TestParse_BareAttributesMap(t *testing.T) {
	q := mustParse(t, "SELECT self.tag FROM DOCUMENT WHERE attributes = self.attributes")
	cmp := q.Where.(*ast.ComparisonExpr)
	op := cmp.LHS.(ast.OperandExpr).Operand
	require.Equal(t, ast.FieldAttributesMap, op.Field)
}

func TestParse_TextFunctionAcceptsSelf(t *testing.T) {
	q := mustParse(t, "SELECT TEXT(self) AS content FROM DOCUMENT")
	fn := q.SelectItems[0].Expr.(*ast.FunctionCall)
	require.Equal(t, "self", fn.Args[0].(ast.StringLit).Value)
}

func TestParse_PositionUsesInKeyword(t *testing.T) {
	q := mustParse(t, "SELECT POSITION('a' IN self.tag) AS pos FROM DOCUMENT")
	fn := q.SelectItems[0].Expr.(*ast.FunctionCall)
	require.Equal(t, "POSITION", fn.Name)
	require.Len(t, fn.Args, 2)
	require.Equal(t, "a", fn.Args[0].(ast.StringLit).Value)
}
