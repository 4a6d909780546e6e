package plan

import (
	"math"
	"sort"
	"strings"

	"github.com/markql/markql/internal/ast"
	"github.com/markql/markql/internal/rowresult"
)

// Sample is one matched node's text contribution, fed to a Reducer to
// build a single whole-result AggregateResult.
type Sample struct {
	Tag  string
	Text string
}

// Reducer turns every matched node's Sample into the one
// AggregateResult a SelectAggregate item produces. Generalizes the
// teacher's []Result-in-one-Result-out reducer shape from combining
// sibling subquery results to combining matched-node samples.
type Reducer interface {
	Reduce(samples []Sample) (rowresult.AggregateResult, error)
}

// ReducerFor builds the Reducer a SelectAggregate item calls for.
func ReducerFor(item ast.SelectItem) Reducer {
	switch item.Aggregate {
	case ast.AggSummarize:
		return SummarizeReducer{}
	case ast.AggTfIdf:
		return TfIdfReducer{
			Tags:      item.TfIdfTags,
			AllTags:   item.TfIdfAllTags,
			TopTerms:  item.TfIdfTopTerms,
			MinDF:     item.TfIdfMinDF,
			MaxDF:     item.TfIdfMaxDF,
			Stopwords: item.TfIdfStopwords,
		}
	default:
		return CountReducer{Tag: item.Tag}
	}
}

// CountReducer reduces to the number of matched samples.
type CountReducer struct {
	Tag string
}

func (r CountReducer) Reduce(samples []Sample) (rowresult.AggregateResult, error) {
	n := int64(len(samples))
	return rowresult.AggregateResult{Count: &n}, nil
}

// SummarizeReducer reduces to a short free-text digest: the first few
// non-empty sample texts, each clipped to a readable length.
type SummarizeReducer struct{}

const summarizeMaxSamples = 3
const summarizeMaxRuneLen = 80

func (r SummarizeReducer) Reduce(samples []Sample) (rowresult.AggregateResult, error) {
	parts := make([]string, 0, summarizeMaxSamples)
	for _, s := range samples {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		parts = append(parts, clipRunes(text, summarizeMaxRuneLen))
		if len(parts) == summarizeMaxSamples {
			break
		}
	}
	summary := strings.Join(parts, " / ")
	return rowresult.AggregateResult{Summary: &summary}, nil
}

func clipRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

// TfIdfReducer reduces to ranked term scores across the matched
// samples, treating each sample's text as one document of the corpus.
type TfIdfReducer struct {
	Tags      []string
	AllTags   bool
	TopTerms  *uint64
	MinDF     *uint64
	MaxDF     *uint64
	Stopwords ast.TfIdfStopwords
}

func (r TfIdfReducer) Reduce(samples []Sample) (rowresult.AggregateResult, error) {
	docs := r.filterByTag(samples)
	n := len(docs)
	if n == 0 {
		return rowresult.AggregateResult{Terms: []rowresult.TermScore{}}, nil
	}

	df := map[string]int{}
	tf := map[string]float64{}
	for _, doc := range docs {
		seen := map[string]bool{}
		terms := tokenize(doc.Text, r.Stopwords)
		for _, term := range terms {
			tf[term]++
			if !seen[term] {
				df[term]++
				seen[term] = true
			}
		}
	}

	type scored struct {
		term  string
		score float64
	}
	var scores []scored
	for term, freq := range tf {
		d := df[term]
		if r.MinDF != nil && uint64(d) < *r.MinDF {
			continue
		}
		if r.MaxDF != nil && uint64(d) > *r.MaxDF {
			continue
		}
		idf := idfWeight(n, d)
		scores = append(scores, scored{term: term, score: freq * idf})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].term < scores[j].term
	})

	if r.TopTerms != nil && uint64(len(scores)) > *r.TopTerms {
		scores = scores[:*r.TopTerms]
	}

	terms := make([]rowresult.TermScore, len(scores))
	for i, s := range scores {
		terms[i] = rowresult.TermScore{Term: s.term, Score: s.score}
	}
	return rowresult.AggregateResult{Terms: terms}, nil
}

func (r TfIdfReducer) filterByTag(samples []Sample) []Sample {
	if r.AllTags || len(r.Tags) == 0 {
		return samples
	}
	wanted := map[string]bool{}
	for _, t := range r.Tags {
		wanted[t] = true
	}
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if wanted[s.Tag] {
			out = append(out, s)
		}
	}
	return out
}

func idfWeight(n, df int) float64 {
	if df == 0 {
		return 0
	}
	return math.Log(float64(n)/float64(df)) + 1
}

func tokenize(text string, stop ast.TfIdfStopwords) []string {
	lower := strings.ToLower(text)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	if stop == ast.StopwordsNone {
		return fields
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if englishStopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

var englishStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true, "will": true,
	"with": true, "this": true, "but": true, "or": true, "not": true,
}
