package rowresult

import (
	"fmt"
	"strings"
)

// Kind distinguishes the shape a query's final result takes, so callers
// can type-switch on it.
type Kind int

const (
	RowSetKind Kind = iota
	AggregateResultKind
)

// Result is anything a compiled query can return: a RowSet or an
// AggregateResult.
type Result interface {
	Kind() Kind
	String() string
}

// RowSet is an ordered set of Rows sharing the same column list, the
// result of any SELECT that isn't a whole-result aggregate (COUNT,
// SUMMARIZE, TFIDF without FLATTEN).
type RowSet struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

func (r RowSet) Kind() Kind { return RowSetKind }

func (r RowSet) String() string {
	if len(r.Rows) == 0 {
		return "(0 rows)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", strings.Join(r.Columns, " | "))
	for _, row := range r.Rows {
		parts := make([]string, len(r.Columns))
		for i, c := range r.Columns {
			v, ok := row.Get(c)
			if ok {
				parts[i] = v.String()
			}
		}
		fmt.Fprintf(&b, "%s\n", strings.Join(parts, " | "))
	}
	fmt.Fprintf(&b, "(%d row", len(r.Rows))
	if len(r.Rows) != 1 {
		b.WriteByte('s')
	}
	b.WriteByte(')')
	return b.String()
}
