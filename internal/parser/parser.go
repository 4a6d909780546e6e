package parser

import (
	"strconv"
	"strings"

	"github.com/markql/markql/internal/ast"
	"github.com/markql/markql/internal/lexer"
	"github.com/markql/markql/internal/token"
)

// parser is the shared cursor state for every parse_* method. A single
// parser value is used for exactly one top-level Parse call; nothing
// about it is safe to reuse or share across goroutines. The front end
// is strictly single-threaded and synchronous.
type parser struct {
	toks     []token.Token
	pos      int
	cteNames map[string]bool
}

// Parse lexes and parses src into a Query. On the first lex or syntax
// error it returns a nil Query and a Diagnostic describing exactly that
// one failure: there is no error recovery and no multi-error reporting.
func Parse(src string) (*ast.Query, *Diagnostic) {
	toks, lexErr := lexer.Tokenize(src)
	if lexErr != nil {
		if le, ok := lexErr.(*lexer.Error); ok {
			return nil, &Diagnostic{
				Line:     le.Line,
				Column:   le.Column,
				Offset:   le.Offset,
				Length:   1,
				Severity: SeverityError,
				Message:  le.Message,
			}
		}
		return nil, &Diagnostic{Severity: SeverityError, Message: lexErr.Error()}
	}

	p := &parser{toks: toks, cteNames: map[string]bool{}}
	q, err := p.parseQuery()
	if err != nil {
		pe, ok := err.(*parseError)
		if !ok {
			return nil, &Diagnostic{Severity: SeverityError, Message: err.Error()}
		}
		d := pe.diagnostic()
		return nil, &d
	}
	if p.cur().Kind != token.EOF {
		d := errAt(p.cur(), "unexpected trailing input %q", p.cur().Lexeme).diagnostic()
		return nil, &d
	}
	return q, nil
}

func (p *parser) cur() token.Token {
	return p.toks[p.pos]
}

func (p *parser) peek(n int) token.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[idx]
}

func (p *parser) advance() token.Token {
	t := p.cur()
	if t.Kind != token.EOF {
		p.pos++
	}
	return t
}

func (p *parser) at(kind token.Kind) bool {
	return p.cur().Kind == kind
}

func (p *parser) atIdent(word string) bool {
	return p.cur().Kind == token.Ident && p.cur().Upper() == word
}

func (p *parser) expect(kind token.Kind) (token.Token, error) {
	if p.cur().Kind != kind {
		return token.Token{}, errAt(p.cur(), "expected %s, found %q", kind, p.cur().Lexeme)
	}
	return p.advance(), nil
}

func (p *parser) expectIdent(word string) (token.Token, error) {
	if !p.atIdent(word) {
		return token.Token{}, errAt(p.cur(), "expected %s, found %q", word, p.cur().Lexeme)
	}
	return p.advance(), nil
}

// isTagIdentifierToken reports whether the current token may stand as a
// bare tag/column identifier. TABLE is a reserved keyword everywhere
// else in the grammar but remains a legal tag name here, matching the
// HTML vocabulary this language queries.
func (p *parser) isTagIdentifierToken() bool {
	return p.at(token.Ident) || p.at(token.TABLE)
}

func (p *parser) parseIdentifierLexeme() (string, error) {
	if !p.isTagIdentifierToken() {
		return "", errAt(p.cur(), "expected identifier, found %q", p.cur().Lexeme)
	}
	return p.advance().Lexeme, nil
}

func (p *parser) parseUint(context string) (uint64, error) {
	tok := p.cur()
	if tok.Kind != token.Number {
		return 0, errAt(tok, "expected a non-negative integer for %s, found %q", context, tok.Lexeme)
	}
	n, err := strconv.ParseUint(tok.Lexeme, 10, 64)
	if err != nil {
		return 0, errAt(tok, "%s must be a non-negative integer, found %q", context, tok.Lexeme)
	}
	p.advance()
	return n, nil
}

func (p *parser) parseNumberLiteral() (ast.NumberLit, error) {
	tok := p.cur()
	if tok.Kind != token.Number {
		return ast.NumberLit{}, errAt(tok, "expected a number, found %q", tok.Lexeme)
	}
	n, err := strconv.ParseInt(tok.Lexeme, 10, 64)
	if err != nil {
		return ast.NumberLit{}, errAt(tok, "invalid number literal %q", tok.Lexeme)
	}
	p.advance()
	return ast.NumberLit{Value: n, Span: ast.Span{Begin: tok.Offset, End: tok.End()}}, nil
}

func (p *parser) parseStringLiteral() (ast.StringLit, error) {
	tok := p.cur()
	if tok.Kind != token.String {
		return ast.StringLit{}, errAt(tok, "expected a string literal, found %q", tok.Lexeme)
	}
	p.advance()
	return ast.StringLit{Value: tok.Lexeme, Span: ast.Span{Begin: tok.Offset, End: tok.End()}}, nil
}

// parseQuery parses one full statement: optional WITH prelude, SELECT
// list, FROM source, and the WHERE/ORDER BY/LIMIT/TO tail.
func (p *parser) parseQuery() (*ast.Query, error) {
	start := p.cur()
	q := &ast.Query{}

	if p.at(token.WITH) {
		ctes, err := p.parseWithPrelude()
		if err != nil {
			return nil, err
		}
		q.CTEs = ctes
	}

	if _, err := p.expect(token.SELECT); err != nil {
		return nil, err
	}

	items, excludes, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	q.SelectItems = items
	q.SelectStarExcludes = excludes

	// FROM is optional only for statements that reference no source at
	// all; plan.Compile turns a missing source into an executor-stage
	// shape error rather than rejecting it here.
	if p.at(token.FROM) {
		p.advance()
		src, err := p.parseSource()
		if err != nil {
			return nil, err
		}
		q.Source = src
	}

	if p.at(token.WHERE) {
		p.advance()
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		q.Where = where
	}

	if p.at(token.ORDER) {
		p.advance()
		if _, err := p.expect(token.BY); err != nil {
			return nil, err
		}
		orderBy, err := p.parseOrderByList()
		if err != nil {
			return nil, err
		}
		q.OrderBy = orderBy
	}

	if p.at(token.LIMIT) {
		p.advance()
		n, err := p.parseUint("LIMIT")
		if err != nil {
			return nil, err
		}
		q.Limit = &n
	}

	if p.at(token.TO) {
		sink, err := p.parseSink()
		if err != nil {
			return nil, err
		}
		q.Sink = sink
	}

	q.Span = ast.Span{Begin: start.Offset, End: p.prevEnd()}
	return q, nil
}

func (p *parser) prevEnd() int {
	if p.pos == 0 {
		return 0
	}
	return p.toks[p.pos-1].End()
}

// parseWithPrelude parses `WITH name AS (query) [, name AS (query)]*`.
// Names are registered in p.cteNames for the remainder of THIS query
// only; parseSubquery saves and restores this set around nested WITH
// blocks so an inner CTE name never leaks into an outer scope.
func (p *parser) parseWithPrelude() ([]ast.CTE, error) {
	p.advance() // WITH
	var ctes []ast.CTE
	for {
		nameTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.AS); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.LParen); err != nil {
			return nil, err
		}
		sub, err := p.parseSubquery()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		p.cteNames[strings.ToUpper(nameTok.Lexeme)] = true
		ctes = append(ctes, ast.CTE{Name: nameTok.Lexeme, Query: sub})
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	return ctes, nil
}

func (p *parser) parseOrderByList() ([]ast.OrderByItem, error) {
	var items []ast.OrderByItem
	for {
		expr, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		desc := false
		if p.at(token.ASC) {
			p.advance()
		} else if p.at(token.DESC) {
			p.advance()
			desc = true
		}
		items = append(items, ast.OrderByItem{Expr: expr, Desc: desc})
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *parser) parseSink() (*ast.Sink, error) {
	start := p.advance() // TO
	var kind ast.SinkKind
	switch {
	case p.at(token.CSV):
		p.advance()
		kind = ast.SinkCSV
	case p.at(token.PARQUET):
		p.advance()
		kind = ast.SinkParquet
	case p.at(token.JSONKW):
		p.advance()
		kind = ast.SinkJSON
	case p.at(token.NDJSON):
		p.advance()
		kind = ast.SinkNDJSON
	case p.at(token.LIST):
		p.advance()
		kind = ast.SinkList
	case p.at(token.TABLE):
		p.advance()
		kind = ast.SinkTable
	default:
		return nil, errAt(p.cur(), "expected a sink kind after TO, found %q", p.cur().Lexeme)
	}
	path := ""
	if kind != ast.SinkList && kind != ast.SinkTable && p.at(token.String) {
		lit, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		path = lit.Value
	}
	return &ast.Sink{Kind: kind, Path: path, Span: ast.Span{Begin: start.Offset, End: p.prevEnd()}}, nil
}
