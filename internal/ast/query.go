package ast

// SelectItemKind distinguishes the shapes a projected column can take.
// MarkQL flattens these into one struct (rather than a tagged-pointer
// union like Expr/ScalarExpr) because that is how the grammar this was
// ported from represents a select item: one node with many
// kind-dependent optional fields, not a family of small node types.
type SelectItemKind int

const (
	SelectStar SelectItemKind = iota
	SelectTagOnly
	SelectFieldProjection
	SelectTextFunction
	SelectInnerHTML
	SelectScalarProjection
	SelectAggregate
	SelectFlatten
	SelectProject
)

// AggregateKind is the reducer function of a SelectAggregate item.
type AggregateKind int

const (
	AggCount AggregateKind = iota
	AggSummarize
	AggTfIdf
)

// TfIdfStopwords selects the stopword list TF-IDF scoring discounts.
type TfIdfStopwords int

const (
	StopwordsEnglish TfIdfStopwords = iota
	StopwordsNone
)

// SelectItem is one projected output column.
type SelectItem struct {
	Kind SelectItemKind
	Span Span

	// Trim wraps any kind whose result is textual: TRIM(...) around the
	// item's value before projection.
	Trim bool

	// SelectTagOnly / SelectFieldProjection
	Tag   string // tag identifier, or "*" for SelectStar
	Field string // bare field keyword for SelectFieldProjection

	// SelectTextFunction: TEXT(tag) / DIRECT_TEXT(tag)
	DirectText bool

	// SelectInnerHTML: INNER_HTML(tag[, depth]) / RAW_INNER_HTML(tag)
	RawInnerHTML      bool
	InnerHTMLDepth    *uint64 // nil = default depth (2)
	InnerHTMLMaxDepth bool    // MAX_DEPTH sentinel in place of a numeric depth

	// SelectScalarProjection: an arbitrary scalar expression, optionally aliased
	Expr  ScalarExpr
	Alias string

	// SelectAggregate
	Aggregate      AggregateKind
	TfIdfTags      []string
	TfIdfAllTags   bool
	TfIdfTopTerms  *uint64
	TfIdfMinDF     *uint64
	TfIdfMaxDF     *uint64
	TfIdfStopwords TfIdfStopwords

	// SelectFlatten: FLATTEN(tag[, depth]) AS (alias[, alias...])
	FlattenDepth   uint64
	FlattenAliases []string

	// SelectProject: PROJECT(tag) AS (alias: expr[, alias: expr...]).
	// Tag names the row-selector tag; one output row is produced per
	// tag-matching descendant-or-self of the outer matched row.
	ProjectExprs   []ScalarExpr
	ProjectAliases []string
}

// SourceKind distinguishes FROM clause sources.
type SourceKind int

const (
	// SourceNone is the zero value: no FROM clause was given at all.
	// Legal only to parse; plan.Compile rejects it as a shape error.
	SourceNone SourceKind = iota
	SourceDocument
	SourcePath
	SourceURL
	SourceRawHTML
	SourceFragments
	SourceParse
	SourceCTERef
	SourceDerivedSubquery
)

// Source is one FROM clause entry.
type Source struct {
	Kind  SourceKind
	Span  Span
	Alias string // "" when no alias was given; the parser defaults a DOCUMENT source to "doc" and a CTE reference to its CTE name

	// SourcePath / SourceURL / SourceRawHTML: a string literal
	Literal string

	// SourceFragments: FRAGMENTS('<html>...') or FRAGMENTS(subquery)
	FragmentsRaw   *string
	FragmentsQuery *Query

	// SourceParse: PARSE(scalarExpr) producing an ad hoc document from a
	// projected column of an outer query
	ParseExpr ScalarExpr

	// SourceCTERef: a bare identifier resolving to a WITH-bound name
	CTEName string

	// SourceDerivedSubquery: FROM (subquery) AS alias — alias is required
	DerivedQuery *Query
}

// CTE is one `WITH name AS (query)` binding.
type CTE struct {
	Name  string
	Query *Query
}

// OrderByItem is one ORDER BY term.
type OrderByItem struct {
	Expr ScalarExpr
	Desc bool
}

// SinkKind names the output format TO directs results into.
type SinkKind int

const (
	SinkNone SinkKind = iota
	SinkCSV
	SinkParquet
	SinkJSON
	SinkNDJSON
	SinkList
	SinkTable
)

// Sink is the optional `TO <kind> [path]` tail clause.
type Sink struct {
	Kind SinkKind
	Path string
	Span Span
}

// Query is a full MarkQL statement: zero or more CTEs, a select list, a
// source, and the WHERE/ORDER BY/LIMIT/TO tail clauses.
type Query struct {
	CTEs               []CTE
	SelectItems        []SelectItem
	SelectStarExcludes []string
	Source             Source
	Where              Expr // nil when absent
	OrderBy            []OrderByItem
	Limit              *uint64
	Sink               *Sink
	Span               Span
}
