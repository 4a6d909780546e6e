package parser

import (
	"strings"

	"github.com/markql/markql/internal/ast"
	"github.com/markql/markql/internal/token"
)

// parseScalarExpr parses the scalar-expression grammar: literals, SELF,
// operand reads, and scalar function calls.
func (p *parser) parseScalarExpr() (ast.ScalarExpr, error) {
	switch {
	case p.at(token.String):
		return p.parseStringLiteral()
	case p.at(token.Number):
		return p.parseNumberLiteral()
	case p.at(token.NULLKW):
		tok := p.advance()
		return ast.NullLit{Span: ast.Span{Begin: tok.Offset, End: tok.End()}}, nil
	}

	if axis, ok := p.axisWordAt(p.cur()); ok {
		if p.peek(1).Kind == token.Dot {
			operand, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			return ast.OperandExpr{Operand: operand}, nil
		}
		if axis == ast.AxisSelf {
			tok := p.advance()
			return ast.SelfRef{Span: ast.Span{Begin: tok.Offset, End: tok.End()}}, nil
		}
	}

	if p.isTagIdentifierToken() {
		if p.peek(1).Kind == token.LParen {
			return p.parseFunctionCall()
		}
		operand, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return ast.OperandExpr{Operand: operand}, nil
	}

	return nil, errAt(p.cur(), "expected an expression, found %q", p.cur().Lexeme)
}

func (p *parser) parseFunctionCall() (*ast.FunctionCall, error) {
	nameTok := p.advance()
	name := strings.ToUpper(nameTok.Lexeme)
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	var args []ast.ScalarExpr
	var err error
	switch name {
	case "TEXT", "DIRECT_TEXT", "RAW_INNER_HTML", "FIRST_TEXT", "LAST_TEXT":
		args, err = p.parseSingleTagArgFunctionArgs()
	case "INNER_HTML":
		args, err = p.parseInnerHTMLArgs()
	case "ATTR", "FIRST_ATTR", "LAST_ATTR":
		args, err = p.parseAttrFunctionArgs()
	case "SUBSTRING", "SUBSTR":
		args, err = p.parseSubstringArgs()
	case "LENGTH", "CHAR_LENGTH", "LOWER", "UPPER", "TRIM", "LTRIM", "RTRIM":
		args, err = p.parseSingleExprArgs()
	case "POSITION", "LOCATE":
		args, err = p.parsePositionArgs()
	case "REPLACE":
		args, err = p.parseThreeExprArgs()
	case "CONCAT", "COALESCE":
		args, err = p.parseVariadicExprArgs()
	default:
		// Any other function name falls through to the generic
		// fn(arg[, arg]*) form; the executor, not the parser, rejects a
		// name it has no implementation for.
		args, err = p.parseGenericFunctionArgs()
	}
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return &ast.FunctionCall{Name: name, Args: args, Span: ast.Span{Begin: nameTok.Offset, End: p.prevEnd()}}, nil
}

// parseTagArgLowered parses the `tag|self` argument shape shared by
// TEXT/DIRECT_TEXT/INNER_HTML/RAW_INNER_HTML/ATTR/FIRST_TEXT/LAST_TEXT/
// FIRST_ATTR/LAST_ATTR: either a tag identifier, lower-cased into a
// string literal, or the bare SELF keyword (also lower-cased, so the
// executor sees a uniform "self" sentinel string rather than two
// shapes).
func (p *parser) parseTagArgLowered() (ast.StringLit, error) {
	tok := p.cur()
	if tok.Kind == token.SELF {
		p.advance()
		return ast.StringLit{Value: "self", Span: ast.Span{Begin: tok.Offset, End: tok.End()}}, nil
	}
	if !p.isTagIdentifierToken() {
		return ast.StringLit{}, errAt(tok, "expected a tag name or self, found %q", tok.Lexeme)
	}
	p.advance()
	return ast.StringLit{Value: strings.ToLower(tok.Lexeme), Span: ast.Span{Begin: tok.Offset, End: tok.End()}}, nil
}

func (p *parser) parseAttrNameLowered() (string, error) {
	if p.at(token.String) {
		lit, err := p.parseStringLiteral()
		if err != nil {
			return "", err
		}
		return strings.ToLower(lit.Value), nil
	}
	if !p.isTagIdentifierToken() {
		return "", errAt(p.cur(), "expected an attribute name, found %q", p.cur().Lexeme)
	}
	return strings.ToLower(p.advance().Lexeme), nil
}

func (p *parser) parseSingleTagArgFunctionArgs() ([]ast.ScalarExpr, error) {
	tag, err := p.parseTagArgLowered()
	if err != nil {
		return nil, err
	}
	return []ast.ScalarExpr{tag}, nil
}

// parseInnerHTMLArgs: INNER_HTML(tag[, depth|MAX_DEPTH]). The optional
// second argument is encoded as a NumberLit (explicit depth) or, for the
// MAX_DEPTH sentinel, a NumberLit of -1 — classifyScalarSelectItem maps
// that sentinel to SelectItem.InnerHTMLMaxDepth rather than a literal -1
// depth.
func (p *parser) parseInnerHTMLArgs() ([]ast.ScalarExpr, error) {
	tag, err := p.parseTagArgLowered()
	if err != nil {
		return nil, err
	}
	args := []ast.ScalarExpr{tag}
	if p.at(token.Comma) {
		p.advance()
		if p.cur().Kind == token.Ident && p.cur().Upper() == "MAX_DEPTH" {
			tok := p.advance()
			args = append(args, ast.NumberLit{Value: -1, Span: ast.Span{Begin: tok.Offset, End: tok.End()}})
		} else {
			depth, err := p.parseNumberLiteral()
			if err != nil {
				return nil, err
			}
			args = append(args, depth)
		}
	}
	return args, nil
}

// parseSubstringArgs parses SUBSTRING/SUBSTR(expr, start[, length]).
func (p *parser) parseSubstringArgs() ([]ast.ScalarExpr, error) {
	src, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Comma); err != nil {
		return nil, err
	}
	start, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	args := []ast.ScalarExpr{src, start}
	if p.at(token.Comma) {
		p.advance()
		length, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, length)
	}
	return args, nil
}

func (p *parser) parseAttrFunctionArgs() ([]ast.ScalarExpr, error) {
	tag, err := p.parseTagArgLowered()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Comma); err != nil {
		return nil, err
	}
	nameTok := p.cur()
	name, err := p.parseAttrNameLowered()
	if err != nil {
		return nil, err
	}
	return []ast.ScalarExpr{tag, ast.StringLit{Value: name, Span: ast.Span{Begin: nameTok.Offset, End: nameTok.End()}}}, nil
}

func (p *parser) parseSingleExprArgs() ([]ast.ScalarExpr, error) {
	e, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	return []ast.ScalarExpr{e}, nil
}

// parsePositionArgs parses POSITION/LOCATE's SQL-flavoured
// `needle IN haystack` argument shape, returning [needle, haystack] in
// that order so the executor treats it the same as any other two-arg
// function.
func (p *parser) parsePositionArgs() ([]ast.ScalarExpr, error) {
	needle, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.IN); err != nil {
		return nil, err
	}
	haystack, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	return []ast.ScalarExpr{needle, haystack}, nil
}

func (p *parser) parseThreeExprArgs() ([]ast.ScalarExpr, error) {
	a, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Comma); err != nil {
		return nil, err
	}
	b, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Comma); err != nil {
		return nil, err
	}
	c, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	return []ast.ScalarExpr{a, b, c}, nil
}

// parseGenericFunctionArgs parses a bare, name-agnostic argument list:
// zero or more comma-separated scalar expressions. Used for any
// function name without a dedicated argument shape above.
func (p *parser) parseGenericFunctionArgs() ([]ast.ScalarExpr, error) {
	if p.at(token.RParen) {
		return nil, nil
	}
	return p.parseVariadicExprArgs()
}

func (p *parser) parseVariadicExprArgs() ([]ast.ScalarExpr, error) {
	first, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	args := []ast.ScalarExpr{first}
	for p.at(token.Comma) {
		p.advance()
		next, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, next)
	}
	return args, nil
}
