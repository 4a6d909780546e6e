package rowresult

import "encoding/json"

// MarshalJSON renders a Row as a JSON object keyed by column name,
// rather than its parallel Columns/Values slices.
func (r Row) MarshalJSON() ([]byte, error) {
	obj := make(map[string]Value, len(r.Columns))
	for i, c := range r.Columns {
		obj[c] = r.Values[i]
	}
	return json.Marshal(obj)
}

type jsonResult struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

// MarshalResultJSON wraps r in a {kind, data} envelope so a client can
// dispatch on Kind before decoding Data: "rows" carries a RowSet,
// "aggregate" a flattened AggregateResult.
func MarshalResultJSON(r Result) ([]byte, error) {
	var jr jsonResult
	switch v := r.(type) {
	case RowSet:
		jr = jsonResult{Kind: "rows", Data: v}
	case AggregateResult:
		jr = jsonResult{Kind: "aggregate", Data: aggregateJSON(v)}
	default:
		jr = jsonResult{Kind: "unknown", Data: r.String()}
	}
	return json.Marshal(jr)
}

func aggregateJSON(r AggregateResult) map[string]any {
	switch {
	case r.Count != nil:
		return map[string]any{"count": *r.Count}
	case r.Summary != nil:
		return map[string]any{"summary": *r.Summary}
	case r.Terms != nil:
		return map[string]any{"terms": r.Terms}
	default:
		return map[string]any{}
	}
}
