package parser

// Lint parses src and reports its diagnostics as a slice: empty when src
// parses cleanly, one element on the first (and only) syntax error.
// It never returns more than one element — MarkQL has no error recovery
// to find a second problem with.
func Lint(src string) []Diagnostic {
	if _, diag := Parse(src); diag != nil {
		return []Diagnostic{*diag}
	}
	return nil
}
