// Package plan compiles a parsed MarkQL ast.Query into a validated,
// CTE-resolved Plan, generalized from "a Query knows how to Execute
// against a ProbabilisticGraphModel" to "a Plan knows how to run
// against an htmldoc.Document" (internal/exec does the running).
package plan

import (
	"fmt"

	"github.com/markql/markql/internal/ast"
)

// Error is a compile-time shape error: a query that parsed cleanly but
// whose select list or source graph breaks a rule the parser can't
// check by itself (e.g. an unresolved CTE reference).
type Error struct {
	Kind    string
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Plan is a ready-to-run query: CTE references inlined, the select list
// classified, and the handful of whole-query invariants the parser
// leaves to this stage checked once up front.
type Plan struct {
	Query           *ast.Query
	IsAggregateOnly bool
	AggregateItem   *ast.SelectItem
}

// Compile validates q and resolves any SourceCTERef against q's own
// WITH bindings, producing a Plan ready for internal/exec to run.
func Compile(q *ast.Query) (*Plan, error) {
	if q == nil {
		return nil, Error{Kind: "InvalidStructure", Message: "nil query"}
	}
	if len(q.SelectItems) == 0 {
		return nil, Error{Kind: "InvalidStructure", Message: "select list is empty"}
	}

	if q.Source.Kind == ast.SourceNone {
		return nil, Error{Kind: "ShapeError", Message: "query has no FROM source"}
	}

	resolved, err := resolveSource(q.CTEs, q.Source)
	if err != nil {
		return nil, err
	}
	q.Source = resolved

	aggregateCount := 0
	projectCount := 0
	var aggItem *ast.SelectItem
	for i := range q.SelectItems {
		item := &q.SelectItems[i]
		if item.Kind == ast.SelectAggregate {
			aggregateCount++
			aggItem = item
		}
		if item.Kind == ast.SelectProject {
			projectCount++
		}
	}
	if projectCount > 1 {
		return nil, Error{Kind: "ShapeError", Message: "at most one PROJECT item is allowed in a select list"}
	}
	if aggregateCount > 1 {
		return nil, Error{Kind: "ShapeError", Message: "at most one aggregate item is allowed in a select list"}
	}
	isAggregateOnly := aggregateCount == 1 && len(q.SelectItems) == 1

	if aggregateCount == 1 && !isAggregateOnly {
		return nil, Error{Kind: "ShapeError", Message: "an aggregate item cannot be mixed with other select items"}
	}

	if err := validateSink(q); err != nil {
		return nil, err
	}

	return &Plan{
		Query:           q,
		IsAggregateOnly: isAggregateOnly,
		AggregateItem:   aggItem,
	}, nil
}

// resolveSource inlines a SourceCTERef against ctes, recursively
// resolving its own source in turn (so WITH a AS (...), b AS (FROM a)
// chains resolve all the way down).
func resolveSource(ctes []ast.CTE, src ast.Source) (ast.Source, error) {
	if src.Kind != ast.SourceCTERef {
		return src, nil
	}
	for _, cte := range ctes {
		if cte.Name == src.CTEName {
			inner, err := resolveSource(ctes, cte.Query.Source)
			if err != nil {
				return ast.Source{}, err
			}
			inner.Alias = aliasOrDefault(src.Alias, src.CTEName)
			return inner, nil
		}
	}
	return ast.Source{}, Error{
		Kind:    "UnresolvedReference",
		Message: fmt.Sprintf("no WITH binding named %q", src.CTEName),
	}
}

func aliasOrDefault(alias, fallback string) string {
	if alias != "" {
		return alias
	}
	return fallback
}

// validateSink rejects sink shapes that can't possibly succeed: a path
// required by every sink kind except SinkList/SinkTable/SinkNone.
func validateSink(q *ast.Query) error {
	if q.Sink == nil {
		return nil
	}
	switch q.Sink.Kind {
	case ast.SinkCSV, ast.SinkParquet, ast.SinkJSON, ast.SinkNDJSON:
		if q.Sink.Path == "" {
			return Error{Kind: "ShapeError", Message: "TO clause requires a destination path for this format"}
		}
	}
	return nil
}
