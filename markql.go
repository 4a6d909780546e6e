// Package markql is the public entry point for parsing, linting,
// suggesting, and running MarkQL queries against an in-memory
// HtmlDocument.
package markql

import (
	"context"
	"io"

	"github.com/markql/markql/internal/ast"
	"github.com/markql/markql/internal/docio"
	"github.com/markql/markql/internal/exec"
	"github.com/markql/markql/internal/htmldoc"
	"github.com/markql/markql/internal/parser"
	"github.com/markql/markql/internal/plan"
	"github.com/markql/markql/internal/rowresult"
	"github.com/markql/markql/internal/suggestor"
)

type (
	// Query is a parsed MarkQL statement.
	Query = ast.Query
	// Diagnostic reports a parse or lint failure at a source position.
	Diagnostic = parser.Diagnostic
	// Document is the node-tree contract a query runs against.
	Document = htmldoc.Document
	// Node is one element of a Document.
	Node = htmldoc.Node
	// Result is anything a compiled query can return: a RowSet or an
	// AggregateResult.
	Result = rowresult.Result
	// RowSet is an ordered set of result rows sharing one column list.
	RowSet = rowresult.RowSet
	// AggregateResult is the whole-result shape COUNT/SUMMARIZE/TFIDF
	// return when they're the only projected item.
	AggregateResult = rowresult.AggregateResult
	// Suggestion is a proposed statement for a node picked interactively.
	Suggestion = suggestor.Suggestion
)

// Parse parses src into a Query, or returns the single Diagnostic
// describing the first syntax error.
func Parse(src string) (*Query, *Diagnostic) {
	return parser.Parse(src)
}

// Lint parses src and returns Parse's Diagnostic as a one-element
// slice, nil if src is clean. It runs no checks beyond Parse's own.
func Lint(src string) []Diagnostic {
	return parser.Lint(src)
}

// Suggest builds a statement suggestion for the node selected within
// doc, the way an exploration UI would offer one for a clicked element.
func Suggest(doc *Document, selected htmldoc.NodeID) Suggestion {
	return suggestor.Suggest(doc, selected)
}

// MarshalResultJSON renders a Result as a {kind, data} JSON envelope so
// an HTTP caller can dispatch on the kind before decoding the payload.
func MarshalResultJSON(r Result) ([]byte, error) {
	return rowresult.MarshalResultJSON(r)
}

// Engine compiles and runs MarkQL queries against a single Document. It
// holds no per-query state, so one Engine can run any number of queries
// concurrently.
type Engine struct {
	doc *Document
	run exec.Engine
}

// NewEngine wraps doc so queries can be run against it directly.
func NewEngine(doc *Document) *Engine {
	return &Engine{doc: doc}
}

// LoadEngine reads a Document as JSON from r and wraps it in an Engine.
func LoadEngine(r io.Reader) (*Engine, error) {
	doc, err := docio.ReadJSON(r)
	if err != nil {
		return nil, err
	}
	return NewEngine(doc), nil
}

// LoadEngineFile reads a Document as JSON from the file at path and
// wraps it in an Engine.
func LoadEngineFile(path string) (*Engine, error) {
	doc, err := docio.LoadJSON(path)
	if err != nil {
		return nil, err
	}
	return NewEngine(doc), nil
}

// Run parses src and executes it against e's Document in one step.
func (e *Engine) Run(ctx context.Context, src string) (Result, error) {
	q, diag := Parse(src)
	if diag != nil {
		return nil, errorFromDiagnostic(diag)
	}
	return e.RunQuery(ctx, q)
}

// RunQuery compiles and executes an already-parsed Query against e's
// Document.
func (e *Engine) RunQuery(ctx context.Context, q *Query) (Result, error) {
	p, err := plan.Compile(q)
	if err != nil {
		return nil, err
	}
	return e.run.Execute(ctx, p, e.doc)
}

// Document returns the Document this Engine runs queries against.
func (e *Engine) Document() *Document {
	return e.doc
}

// Save writes e's Document to w as JSON.
func (e *Engine) Save(w io.Writer) error {
	return docio.WriteJSON(e.doc, w)
}

// SaveFile writes e's Document to the file at path as JSON, atomically.
func (e *Engine) SaveFile(path string) error {
	return docio.SaveJSON(e.doc, path)
}

// errorFromDiagnostic wraps a Diagnostic in diagnosticError, which
// implements the error interface, so a failed Parse can be returned and
// handled as an ordinary Go error.
func errorFromDiagnostic(d *Diagnostic) error {
	if d == nil {
		return nil
	}
	return diagnosticError{*d}
}

type diagnosticError struct {
	Diagnostic
}

func (e diagnosticError) Error() string {
	return e.Message
}
