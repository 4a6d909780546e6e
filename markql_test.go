package markql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markql/markql/internal/rowresult"
)

func buildTestDoc() *Document {
	return &Document{Nodes: []Node{
		{ID: 0, Tag: "ul", ParentID: -1, DocOrder: 0, Attributes: map[string]string{}},
		{ID: 1, Tag: "li", Text: "item", ParentID: 0, SiblingPos: 0, DocOrder: 1, Attributes: map[string]string{"class": "item"}},
	}}
}

func TestParse_ReturnsQueryOnValidInput(t *testing.T) {
	q, diag := Parse("SELECT self.tag FROM DOCUMENT")
	require.Nil(t, diag)
	require.NotNil(t, q)
}

func TestParse_ReturnsDiagnosticOnSyntaxError(t *testing.T) {
	q, diag := Parse("SELECT FROM")
	require.Nil(t, q)
	require.NotNil(t, diag)
}

func TestEngine_RunExecutesAgainstDocument(t *testing.T) {
	eng := NewEngine(buildTestDoc())
	res, err := eng.Run(context.Background(), "SELECT self.tag FROM doc WHERE tag = 'li'")
	require.NoError(t, err)

	rs := res.(rowresult.RowSet)
	require.Len(t, rs.Rows, 1)
}

func TestEngine_RunReturnsErrorForSyntaxError(t *testing.T) {
	eng := NewEngine(buildTestDoc())
	_, err := eng.Run(context.Background(), "SELECT FROM")
	require.Error(t, err)
}

func TestEngine_SaveLoadRoundTrips(t *testing.T) {
	eng := NewEngine(buildTestDoc())
	path := t.TempDir() + "/doc.json"
	require.NoError(t, eng.SaveFile(path))

	loaded, err := LoadEngineFile(path)
	require.NoError(t, err)
	require.Len(t, loaded.Document().Nodes, 2)
}

func TestSuggest_ReturnsAStatementForARowNode(t *testing.T) {
	doc := buildTestDoc()
	sugg := Suggest(doc, 1)
	require.NotEmpty(t, sugg.Statement)
}
