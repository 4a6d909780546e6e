// Package parser implements the hand-written MarkQL lexer-fed
// recursive-descent parser: lexer.Tokenize plus a single-pass,
// single-shot parse into an *ast.Query, or exactly one Diagnostic on the
// first syntax error encountered.
package parser

import (
	"fmt"

	"github.com/markql/markql/internal/ast"
	"github.com/markql/markql/internal/token"
)

// Severity classifies a Diagnostic. Parse failures are always
// SeverityError, and Lint only reports Parse's diagnostic, so neither
// produces SeverityWarning; it is available to other producers of
// Diagnostic values and is mapped by lspdiag.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is the wire format for a parse or lint failure: a flat,
// unwrapped struct, deliberately not run through pkg/errors or oops
// wrapping (those are for Go error chains; this is serialized straight
// to JSON for editor/API consumers).
type Diagnostic struct {
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Offset   int      `json:"offset"`
	Length   int      `json:"length"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// parseError is the internal error type every parse function returns on
// failure. It carries enough to build a Diagnostic once it reaches the
// top of the call stack; it is never wrapped in pkg/errors/oops.
type parseError struct {
	message string
	span    ast.Span
	tok     token.Token
}

func (e *parseError) Error() string {
	return fmt.Sprintf("%s at %d:%d", e.message, e.tok.Line, e.tok.Column)
}

func (e *parseError) diagnostic() Diagnostic {
	length := e.span.End - e.span.Begin
	if length < 0 {
		length = 0
	}
	return Diagnostic{
		Line:     e.tok.Line,
		Column:   e.tok.Column,
		Offset:   e.span.Begin,
		Length:   length,
		Severity: SeverityError,
		Message:  e.message,
	}
}

func errAt(tok token.Token, format string, args ...any) *parseError {
	return &parseError{
		message: fmt.Sprintf(format, args...),
		span:    ast.Span{Begin: tok.Offset, End: tok.End()},
		tok:     tok,
	}
}
