package suggestor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markql/markql/internal/htmldoc"
)

// buildListDoc builds:
//
//	0 ul
//	  1 li.item#item-1
//	    2 h3.title "First"
//	    3 a href=/1 "more"
//	  4 li.item#item-2
//	    5 h3.title "Second"
//	    6 a href=/2 "more"
func buildListDoc() *htmldoc.Document {
	return &htmldoc.Document{Nodes: []htmldoc.Node{
		{ID: 0, Tag: "ul", ParentID: -1},
		{ID: 1, Tag: "li", ParentID: 0, Attributes: map[string]string{"class": "item", "id": "item-1"}},
		{ID: 2, Tag: "h3", Text: "First", ParentID: 1, Attributes: map[string]string{"class": "title"}},
		{ID: 3, Tag: "a", Text: "more", ParentID: 1, Attributes: map[string]string{"href": "/1"}},
		{ID: 4, Tag: "li", ParentID: 0, Attributes: map[string]string{"class": "item", "id": "item-2"}},
		{ID: 5, Tag: "h3", Text: "Second", ParentID: 4, Attributes: map[string]string{"class": "title"}},
		{ID: 6, Tag: "a", Text: "more", ParentID: 4, Attributes: map[string]string{"href": "/2"}},
	}}
}

func TestSuggest_RepeatedRowsWithTitleAndLinkYieldsProject(t *testing.T) {
	doc := buildListDoc()
	s := Suggest(doc, 1)

	require.Equal(t, StrategyProject, s.Strategy)
	require.Contains(t, s.Statement, "PROJECT(li)")
	require.Contains(t, s.Statement, "tag = 'li'")
	require.Contains(t, s.Statement, "attributes.class CONTAINS ('item')")
	require.Contains(t, s.Statement, "li_id: ATTR(li, id)")
	require.Contains(t, s.Statement, "link_text: TEXT(a)")
	require.Contains(t, s.Statement, "link_href: ATTR(a, href)")
	require.GreaterOrEqual(t, s.Confidence, 80)
}

func TestSuggest_SingletonRowFallsBackToFlatten(t *testing.T) {
	doc := &htmldoc.Document{Nodes: []htmldoc.Node{
		{ID: 0, Tag: "article", ParentID: -1, Attributes: map[string]string{"id": "post-1"}},
		{ID: 1, Tag: "p", Text: "body text", ParentID: 0},
	}}

	s := Suggest(doc, 1)
	require.Equal(t, StrategyFlatten, s.Strategy)
	require.Contains(t, s.Statement, "FLATTEN(")
}

func TestSuggest_InvalidTagFallsBackToTextSelf(t *testing.T) {
	doc := &htmldoc.Document{Nodes: []htmldoc.Node{
		{ID: 0, Tag: "1bad-tag", ParentID: -1},
	}}

	s := Suggest(doc, 0)
	require.Equal(t, StrategyFlatten, s.Strategy)
	require.Contains(t, s.Statement, "TEXT(self)")
}

func TestSuggest_EmptyDocumentReturnsStrategyNone(t *testing.T) {
	doc := &htmldoc.Document{}
	s := Suggest(doc, 0)
	require.Equal(t, StrategyNone, s.Strategy)
	require.Empty(t, s.Statement)
}

func TestSuggest_OutOfRangeSelectedReturnsStrategyNone(t *testing.T) {
	doc := buildListDoc()
	s := Suggest(doc, 999)
	require.Equal(t, StrategyNone, s.Strategy)
}

func TestAliasAllocator_DeduplicatesWithNumericSuffix(t *testing.T) {
	alloc := newAliasAllocator()
	var fields []fieldEntry
	alloc.add(&fields, "Title", "TEXT(h1)")
	alloc.add(&fields, "title", "TEXT(h2)")
	alloc.add(&fields, "title", "TEXT(h3)")

	require.Len(t, fields, 3)
	require.Equal(t, "title", fields[0].name)
	require.Equal(t, "title_2", fields[1].name)
	require.Equal(t, "title_3", fields[2].name)
}

func TestToSnakeCase(t *testing.T) {
	require.Equal(t, "li_id", toSnakeCase("li_id"))
	require.Equal(t, "link_text", toSnakeCase("Link Text"))
	require.Equal(t, "a_b", toSnakeCase("a--b"))
	require.Equal(t, "", toSnakeCase("###"))
}

func TestIsValidIdentifier(t *testing.T) {
	require.True(t, isValidIdentifier("li"))
	require.True(t, isValidIdentifier("_private"))
	require.False(t, isValidIdentifier(""))
	require.False(t, isValidIdentifier("1bad"))
	require.False(t, isValidIdentifier("has-dash"))
}

func TestSqlQuote_EscapesSingleQuotes(t *testing.T) {
	require.Equal(t, "'it''s'", sqlQuote("it's"))
}

func TestFirstClassToken(t *testing.T) {
	n := htmldoc.Node{Attributes: map[string]string{"class": "item featured"}}
	require.Equal(t, "item", firstClassToken(n))

	require.Equal(t, "", firstClassToken(htmldoc.Node{}))
}

func TestContainsCI(t *testing.T) {
	require.True(t, containsCI("Title-Header", "title"))
	require.False(t, containsCI("", "title"))
}

func TestSuggest_StatementEndsWithOrderByAndSemicolon(t *testing.T) {
	doc := buildListDoc()
	s := Suggest(doc, 1)
	require.True(t, strings.HasSuffix(s.Statement, ";"))
	require.Contains(t, s.Statement, "ORDER BY node_id")
}
