package parser

import (
	"strconv"
	"strings"

	"github.com/markql/markql/internal/ast"
	"github.com/markql/markql/internal/token"
)

// parseExpr parses the OR level: `andExpr (OR andExpr)*`.
func (p *parser) parseExpr() (ast.Expr, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.at(token.OR) {
		p.advance()
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: ast.OpOr, Left: left, Right: right, Span: ast.Join(left.SpanOf(), right.SpanOf())}
	}
	return left, nil
}

// parseAndExpr parses the AND level: `cmpExpr (AND cmpExpr)*`.
func (p *parser) parseAndExpr() (ast.Expr, error) {
	left, err := p.parseCmpExpr()
	if err != nil {
		return nil, err
	}
	for p.at(token.AND) {
		p.advance()
		right, err := p.parseCmpExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: ast.OpAnd, Left: left, Right: right, Span: ast.Join(left.SpanOf(), right.SpanOf())}
	}
	return left, nil
}

// parseCmpExpr parses one predicate: an optional NOT prefix, then either
// an EXISTS(...) subexpression, a parenthesized sub-expression, the
// legacy `tag HAS_DIRECT_TEXT 'needle'` shorthand, or a comparison.
func (p *parser) parseCmpExpr() (ast.Expr, error) {
	start := p.cur()
	negated := false
	if p.at(token.NOT) {
		p.advance()
		negated = true
	}

	if p.at(token.EXISTS) {
		return p.parseExistsExpr(start, negated)
	}

	if p.at(token.LParen) {
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		if !negated {
			return inner, nil
		}
		// Negating a parenthesized group: fold into the comparison/exists
		// node it resolved to, which is the only place Negated lives.
		switch n := inner.(type) {
		case *ast.ComparisonExpr:
			n.Negated = !n.Negated
			return n, nil
		case *ast.ExistsExpr:
			n.Negated = !n.Negated
			return n, nil
		default:
			return nil, errAt(start, "NOT may only prefix a comparison or EXISTS, not a compound expression")
		}
	}

	if shorthand, ok, err := p.tryParseHasDirectTextShorthand(start); err != nil {
		return nil, err
	} else if ok {
		if negated {
			// The shorthand desugars to an AND of two comparisons, which
			// has no Negated slot to fold NOT into.
			return nil, errAt(start, "NOT may only prefix a comparison or EXISTS, not a compound expression")
		}
		return shorthand, nil
	}

	return p.parseComparison(start, negated)
}

// tryParseHasDirectTextShorthand recognizes the legacy `tag
// HAS_DIRECT_TEXT 'needle'` form via one token of lookahead: a bare tag
// identifier immediately followed by the HAS_DIRECT_TEXT keyword. It
// desugars to `self.tag = 'tag' AND DIRECT_TEXT('tag') LIKE '%needle%'`.
func (p *parser) tryParseHasDirectTextShorthand(start token.Token) (ast.Expr, bool, error) {
	if !p.isTagIdentifierToken() || p.peek(1).Kind != token.HAS_DIRECT_TEXT {
		return nil, false, nil
	}
	tagTok := p.advance()
	p.advance() // HAS_DIRECT_TEXT
	needle, err := p.parseStringLiteral()
	if err != nil {
		return nil, false, err
	}

	tagLower := strings.ToLower(tagTok.Lexeme)
	tagSpan := ast.Span{Begin: tagTok.Offset, End: tagTok.End()}

	tagEq := &ast.ComparisonExpr{
		LHS: ast.OperandExpr{Operand: ast.Operand{Axis: ast.AxisSelf, Field: ast.FieldTag, Span: tagSpan}},
		Op:  ast.CmpEq,
		RHS: ast.StringLit{Value: tagLower, Span: tagSpan},
		Values: []string{tagLower},
		Span:   tagSpan,
	}
	directTextCall := &ast.FunctionCall{
		Name: "DIRECT_TEXT",
		Args: []ast.ScalarExpr{ast.StringLit{Value: tagLower, Span: tagSpan}},
		Span: tagSpan,
	}
	pattern := "%" + needle.Value + "%"
	likeExpr := &ast.ComparisonExpr{
		LHS:    directTextCall,
		Op:     ast.CmpLike,
		RHS:    ast.StringLit{Value: pattern, Span: needle.Span},
		Values: []string{pattern},
		Span:   needle.Span,
	}
	return &ast.BinaryExpr{
		Op:    ast.OpAnd,
		Left:  tagEq,
		Right: likeExpr,
		Span:  ast.Span{Begin: start.Offset, End: p.prevEnd()},
	}, true, nil
}

func (p *parser) parseExistsExpr(start token.Token, negated bool) (ast.Expr, error) {
	p.advance() // EXISTS
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	axis, ok := p.axisWordAt(p.cur())
	if !ok {
		return nil, errAt(p.cur(), "expected an axis name inside EXISTS(), found %q", p.cur().Lexeme)
	}
	p.advance()

	var predicate ast.Expr
	if p.at(token.WHERE) {
		p.advance()
		pred, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		predicate = pred
	}

	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return &ast.ExistsExpr{
		Negated:   negated,
		Axis:      axis,
		Predicate: predicate,
		Span:      ast.Span{Begin: start.Offset, End: p.prevEnd()},
	}, nil
}

func (p *parser) parseComparison(start token.Token, negated bool) (ast.Expr, error) {
	lhs, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}

	cmp := &ast.ComparisonExpr{Negated: negated, LHS: lhs}

	switch {
	case p.at(token.Eq):
		p.advance()
		cmp.Op = ast.CmpEq
		return p.finishScalarRHS(cmp, start)
	case p.at(token.NotEq):
		p.advance()
		cmp.Op = ast.CmpNotEq
		return p.finishScalarRHS(cmp, start)
	case p.at(token.Lt):
		p.advance()
		cmp.Op = ast.CmpLt
		return p.finishScalarRHS(cmp, start)
	case p.at(token.LtEq):
		p.advance()
		cmp.Op = ast.CmpLtEq
		return p.finishScalarRHS(cmp, start)
	case p.at(token.Gt):
		p.advance()
		cmp.Op = ast.CmpGt
		return p.finishScalarRHS(cmp, start)
	case p.at(token.GtEq):
		p.advance()
		cmp.Op = ast.CmpGtEq
		return p.finishScalarRHS(cmp, start)
	case p.at(token.Tilde):
		p.advance()
		cmp.Op = ast.CmpRegex
		return p.finishScalarRHS(cmp, start)
	case p.at(token.LIKE):
		p.advance()
		cmp.Op = ast.CmpLike
		return p.finishScalarRHS(cmp, start)
	case p.at(token.IN):
		p.advance()
		cmp.Op = ast.CmpIn
		if p.at(token.LParen) {
			return p.finishListRHS(cmp, start)
		}
		return p.finishScalarRHS(cmp, start)
	case p.at(token.CONTAINS):
		p.advance()
		if p.at(token.ALL) {
			p.advance()
			cmp.Op = ast.CmpContainsAll
			return p.finishListRHS(cmp, start)
		}
		if p.at(token.ANY) {
			p.advance()
			cmp.Op = ast.CmpContainsAny
			return p.finishListRHS(cmp, start)
		}
		cmp.Op = ast.CmpContains
		expr, err := p.finishListRHS(cmp, start)
		if err != nil {
			return nil, err
		}
		if len(cmp.RHSList) != 1 {
			return nil, errAt(start, "CONTAINS without ALL|ANY requires exactly one value")
		}
		return expr, nil
	case p.at(token.IS):
		p.advance()
		if p.at(token.NOT) {
			p.advance()
			if _, err := p.expect(token.NULLKW); err != nil {
				return nil, err
			}
			cmp.Op = ast.CmpIsNotNull
		} else {
			if _, err := p.expect(token.NULLKW); err != nil {
				return nil, err
			}
			cmp.Op = ast.CmpIsNull
		}
		cmp.Span = ast.Span{Begin: start.Offset, End: p.prevEnd()}
		return cmp, nil
	default:
		return nil, errAt(p.cur(), "expected a comparison operator, found %q", p.cur().Lexeme)
	}
}

func (p *parser) finishScalarRHS(cmp *ast.ComparisonExpr, start token.Token) (ast.Expr, error) {
	rhs, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	cmp.RHS = rhs
	cmp.Values = literalMirror([]ast.ScalarExpr{rhs})
	cmp.Span = ast.Span{Begin: start.Offset, End: p.prevEnd()}
	return cmp, nil
}

func (p *parser) finishListRHS(cmp *ast.ComparisonExpr, start token.Token) (ast.Expr, error) {
	list, err := p.parseParenScalarExprList()
	if err != nil {
		return nil, err
	}
	cmp.RHSList = list
	cmp.Values = literalMirror(list)
	cmp.Span = ast.Span{Begin: start.Offset, End: p.prevEnd()}
	return cmp, nil
}

func (p *parser) parseParenScalarExprList() ([]ast.ScalarExpr, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var items []ast.ScalarExpr
	for {
		item, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return items, nil
}

// literalMirror populates Compare.Values (see ast.ComparisonExpr doc):
// only when every element of exprs is a literal String or Number.
func literalMirror(exprs []ast.ScalarExpr) []string {
	out := make([]string, 0, len(exprs))
	for _, e := range exprs {
		switch v := e.(type) {
		case ast.StringLit:
			out = append(out, v.Value)
		case ast.NumberLit:
			out = append(out, strconv.FormatInt(v.Value, 10))
		default:
			return nil
		}
	}
	return out
}
