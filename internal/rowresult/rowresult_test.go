package rowresult

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValue_String(t *testing.T) {
	require.Equal(t, "", NullValue().String())
	require.Equal(t, "hello", StringValue("hello").String())
	require.Equal(t, "3.5", NumberValue(3.5).String())
	require.Equal(t, "true", BoolValue(true).String())
	require.Equal(t, "false", BoolValue(false).String())
}

func TestRow_GetSet(t *testing.T) {
	var row Row
	row.Set("tag", StringValue("div"))
	row.Set("depth", NumberValue(2))

	v, ok := row.Get("tag")
	require.True(t, ok)
	require.Equal(t, "div", v.S)

	_, ok = row.Get("missing")
	require.False(t, ok)

	row.Set("tag", StringValue("span"))
	require.Len(t, row.Columns, 2)
	v, _ = row.Get("tag")
	require.Equal(t, "span", v.S)
}

func TestRowSet_StringFormatsTable(t *testing.T) {
	var row Row
	row.Set("tag", StringValue("li"))
	row.Set("node_id", NumberValue(1))

	rs := RowSet{Columns: []string{"tag", "node_id"}, Rows: []Row{row}}
	require.Equal(t, RowSetKind, rs.Kind())
	out := rs.String()
	require.Contains(t, out, "tag | node_id")
	require.Contains(t, out, "li | 1")
	require.Contains(t, out, "(1 row)")
}

func TestRowSet_EmptyString(t *testing.T) {
	rs := RowSet{}
	require.Equal(t, "(0 rows)", rs.String())
}

func TestAggregateResult_CountString(t *testing.T) {
	n := int64(7)
	r := AggregateResult{Count: &n}
	require.Equal(t, AggregateResultKind, r.Kind())
	require.Equal(t, "count: 7", r.String())
}

func TestAggregateResult_TermsString(t *testing.T) {
	r := AggregateResult{Terms: []TermScore{{Term: "foo", Score: 0.5}, {Term: "bar", Score: 0.25}}}
	out := r.String()
	require.Contains(t, out, "foo: 0.500000")
	require.Contains(t, out, "bar: 0.250000")
}

func TestMarshalResultJSON_RowSet(t *testing.T) {
	var row Row
	row.Set("tag", StringValue("li"))
	rs := RowSet{Columns: []string{"tag"}, Rows: []Row{row}}

	b, err := MarshalResultJSON(rs)
	require.NoError(t, err)

	var decoded struct {
		Kind string `json:"kind"`
		Data struct {
			Columns []string          `json:"columns"`
			Rows    []map[string]any `json:"rows"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, "rows", decoded.Kind)
	require.Equal(t, []string{"tag"}, decoded.Data.Columns)
	require.Equal(t, "li", decoded.Data.Rows[0]["tag"])
}

func TestMarshalResultJSON_AggregateCount(t *testing.T) {
	n := int64(3)
	b, err := MarshalResultJSON(AggregateResult{Count: &n})
	require.NoError(t, err)

	var decoded struct {
		Kind string         `json:"kind"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, "aggregate", decoded.Kind)
	require.Equal(t, float64(3), decoded.Data["count"])
}
