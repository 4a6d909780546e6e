package ast

// ScalarExpr is any node that evaluates to a single cell value: a
// literal, an Operand read, a scalar function call, or SELF.
type ScalarExpr interface {
	scalarExprNode()
	SpanOf() Span
}

// StringLit is a single-quoted string literal.
type StringLit struct {
	Value string
	Span  Span
}

// NumberLit is a signed 64-bit integer literal.
type NumberLit struct {
	Value int64
	Span  Span
}

// AliasRef names a PROJECT/FLATTEN_EXTRACT alias already bound earlier
// in the same alias:expr pair list, legal only inside that constrained
// sub-grammar. Resolves to NULL if the name is unbound or out of scope.
type AliasRef struct {
	Name string
	Span Span
}

// NullLit is the NULL literal.
type NullLit struct {
	Span Span
}

// SelfRef is the bare SELF keyword used as a scalar expression, meaning
// "the whole current row's anchor node". The parser accepts it in any
// scalar position, and the reference executor evaluates it to the anchor
// node's tag wherever it appears; no position rejects it.
type SelfRef struct {
	Span Span
}

// OperandExpr wraps an Operand so it satisfies ScalarExpr.
type OperandExpr struct {
	Operand Operand
}

// FunctionCall is a scalar function invocation: TEXT(tag), ATTR(tag,
// name), CONCAT(a, b, ...), SUBSTRING(expr, start[, len]), and the rest
// of the scalar function set. Name is always upper-cased by the parser.
// Any name without dedicated argument-parsing falls through to the
// generic fn(arg[, arg]*) form.
//
// Where is only ever populated inside the PROJECT/FLATTEN_EXTRACT
// constrained sub-grammar's TEXT/DIRECT_TEXT/ATTR forms:
// TEXT(tag WHERE predicate). It is nil everywhere else.
type FunctionCall struct {
	Name  string
	Args  []ScalarExpr
	Where Expr
	Span  Span
}

func (StringLit) scalarExprNode()     {}
func (NumberLit) scalarExprNode()     {}
func (NullLit) scalarExprNode()       {}
func (SelfRef) scalarExprNode()       {}
func (OperandExpr) scalarExprNode()   {}
func (AliasRef) scalarExprNode()      {}
func (*FunctionCall) scalarExprNode() {}

func (s StringLit) SpanOf() Span     { return s.Span }
func (n NumberLit) SpanOf() Span     { return n.Span }
func (n NullLit) SpanOf() Span       { return n.Span }
func (s SelfRef) SpanOf() Span       { return s.Span }
func (o OperandExpr) SpanOf() Span   { return o.Operand.Span }
func (a AliasRef) SpanOf() Span      { return a.Span }
func (f *FunctionCall) SpanOf() Span { return f.Span }

// BinaryOp is a boolean connective between two Expr predicates.
type BinaryOp int

const (
	OpAnd BinaryOp = iota
	OpOr
)

// CompareOp is the comparison/membership/pattern operator of a
// ComparisonExpr.
type CompareOp int

const (
	CmpEq CompareOp = iota
	CmpNotEq
	CmpLt
	CmpLtEq
	CmpGt
	CmpGtEq
	CmpRegex  // ~
	CmpLike   // LIKE
	CmpIn     // IN (...)
	CmpContains
	CmpContainsAll
	CmpContainsAny
	CmpHasDirectText
	CmpIsNull
	CmpIsNotNull
)

// Expr is any node that evaluates to a boolean predicate: a binary
// AND/OR, a comparison, or an EXISTS subquery.
type Expr interface {
	exprNode()
	SpanOf() Span
}

// BinaryExpr is `left AND right` or `left OR right`. AND binds tighter
// than OR; NOT is folded into ComparisonExpr.Negated rather than kept as
// its own node, matching the grammar's "NOT only ever prefixes a
// comparison or EXISTS" shape.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	Span  Span
}

// ComparisonExpr is a single predicate: `lhs op rhs`. Exactly one of RHS
// (a single scalar expression) or RHSList (an IN-list) is populated,
// depending on Op. Values mirrors the legacy string-literal projection
// of RHS/RHSList described in spec.md's testable properties: populated
// only when every literal on the right-hand side is a String or Number
// literal, nil otherwise.
type ComparisonExpr struct {
	Negated bool
	LHS     ScalarExpr
	Op      CompareOp
	RHS     ScalarExpr
	RHSList []ScalarExpr
	Values  []string
	Span    Span
}

// ExistsExpr is `EXISTS(axis [WHERE predicate])` — true if at least one
// node on the given axis from the row's anchor satisfies predicate (or
// simply exists, when predicate is nil).
type ExistsExpr struct {
	Negated   bool
	Axis      Axis
	Predicate Expr
	Span      Span
}

func (*BinaryExpr) exprNode()     {}
func (*ComparisonExpr) exprNode() {}
func (*ExistsExpr) exprNode()     {}

func (b *BinaryExpr) SpanOf() Span     { return b.Span }
func (c *ComparisonExpr) SpanOf() Span { return c.Span }
func (e *ExistsExpr) SpanOf() Span     { return e.Span }
