// Package lspdiag converts parser.Diagnostic values into go.lsp.dev's
// wire types so an editor extension can publish them directly.
package lspdiag

import (
	"go.lsp.dev/protocol"

	"github.com/markql/markql/internal/parser"
)

// Convert turns one parser.Diagnostic into an LSP Diagnostic. The parser
// reports 1-based line/column; LSP positions are 0-based, so both are
// decremented.
func Convert(d parser.Diagnostic) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    spanToRange(d),
		Severity: convertSeverity(d.Severity),
		Source:   "markql",
		Message:  d.Message,
	}
}

// ConvertAll converts every diagnostic in ds, preserving order.
func ConvertAll(ds []parser.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(ds))
	for _, d := range ds {
		out = append(out, Convert(d))
	}
	return out
}

func convertSeverity(sev parser.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case parser.SeverityError:
		return protocol.DiagnosticSeverityError
	case parser.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityError
	}
}

// spanToRange maps a Diagnostic's 1-based line/column and byte Length
// into an LSP Range. A diagnostic never spans a line break, so the end
// position stays on d.Line.
func spanToRange(d parser.Diagnostic) protocol.Range {
	line := uint32(0)
	if d.Line > 0 {
		line = uint32(d.Line - 1)
	}
	char := uint32(0)
	if d.Column > 0 {
		char = uint32(d.Column - 1)
	}
	length := uint32(d.Length)
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: char},
		End:   protocol.Position{Line: line, Character: char + length},
	}
}
