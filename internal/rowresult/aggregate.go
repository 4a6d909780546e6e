package rowresult

import "fmt"

// TermScore is one row of a TFIDF result: a term and its computed
// weight for a single document corpus.
type TermScore struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// AggregateResult is the whole-result shape a SELECT list containing
// only an aggregate item (COUNT/SUMMARIZE/TFIDF, with no other
// projected columns) returns, instead of a RowSet.
type AggregateResult struct {
	// Count holds COUNT(tag|*)'s result.
	Count *int64

	// Summary holds SUMMARIZE(*)'s free-text digest.
	Summary *string

	// Terms holds TFIDF(...)'s ranked term/score pairs, highest score
	// first.
	Terms []TermScore
}

func (r AggregateResult) Kind() Kind { return AggregateResultKind }

func (r AggregateResult) String() string {
	switch {
	case r.Count != nil:
		return fmt.Sprintf("count: %d", *r.Count)
	case r.Summary != nil:
		return fmt.Sprintf("summary: %s", *r.Summary)
	case r.Terms != nil:
		out := ""
		for i, t := range r.Terms {
			if i > 0 {
				out += "\n"
			}
			out += fmt.Sprintf("%s: %.6f", t.Term, t.Score)
		}
		return out
	default:
		return "(empty aggregate result)"
	}
}
