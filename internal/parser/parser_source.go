package parser

import (
	"strings"

	"github.com/markql/markql/internal/ast"
	"github.com/markql/markql/internal/token"
)

// parseSource parses the FROM clause's single source.
func (p *parser) parseSource() (ast.Source, error) {
	start := p.cur()

	switch {
	case p.at(token.DOCUMENT) || p.at(token.DOC):
		p.advance()
		alias, err := p.parseOptionalAlias()
		if err != nil {
			return ast.Source{}, err
		}
		// Document without an explicit alias defaults its alias to "doc"
		// so `doc.field` stays usable without forcing `AS doc`.
		if alias == "" {
			alias = "doc"
		}
		return p.finishSource(ast.Source{Kind: ast.SourceDocument, Alias: alias}, start), nil

	case p.at(token.String):
		lit, err := p.parseStringLiteral()
		if err != nil {
			return ast.Source{}, err
		}
		kind := ast.SourcePath
		if strings.HasPrefix(lit.Value, "http://") || strings.HasPrefix(lit.Value, "https://") {
			kind = ast.SourceURL
		}
		alias, err := p.parseOptionalAlias()
		if err != nil {
			return ast.Source{}, err
		}
		return p.finishSource(ast.Source{Kind: kind, Literal: lit.Value, Alias: alias}, start), nil

	case p.at(token.RAW):
		p.advance()
		if _, err := p.expect(token.LParen); err != nil {
			return ast.Source{}, err
		}
		lit, err := p.parseStringLiteral()
		if err != nil {
			return ast.Source{}, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return ast.Source{}, err
		}
		alias, err := p.parseOptionalAlias()
		if err != nil {
			return ast.Source{}, err
		}
		return p.finishSource(ast.Source{Kind: ast.SourceRawHTML, Literal: lit.Value, Alias: alias}, start), nil

	case p.at(token.FRAGMENTS):
		p.advance()
		if _, err := p.expect(token.LParen); err != nil {
			return ast.Source{}, err
		}
		src := ast.Source{Kind: ast.SourceFragments}
		if p.at(token.String) {
			lit, err := p.parseStringLiteral()
			if err != nil {
				return ast.Source{}, err
			}
			raw := lit.Value
			src.FragmentsRaw = &raw
		} else {
			sub, err := p.parseSubquery()
			if err != nil {
				return ast.Source{}, err
			}
			src.FragmentsQuery = sub
		}
		if _, err := p.expect(token.RParen); err != nil {
			return ast.Source{}, err
		}
		alias, err := p.parseOptionalAlias()
		if err != nil {
			return ast.Source{}, err
		}
		src.Alias = alias
		return p.finishSource(src, start), nil

	case p.at(token.PARSE):
		p.advance()
		if _, err := p.expect(token.LParen); err != nil {
			return ast.Source{}, err
		}
		expr, err := p.parseScalarExpr()
		if err != nil {
			return ast.Source{}, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return ast.Source{}, err
		}
		alias, err := p.parseOptionalAlias()
		if err != nil {
			return ast.Source{}, err
		}
		return p.finishSource(ast.Source{Kind: ast.SourceParse, ParseExpr: expr, Alias: alias}, start), nil

	case p.at(token.LParen):
		p.advance()
		sub, err := p.parseSubquery()
		if err != nil {
			return ast.Source{}, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return ast.Source{}, err
		}
		alias, err := p.parseRequiredAlias()
		if err != nil {
			return ast.Source{}, err
		}
		return p.finishSource(ast.Source{Kind: ast.SourceDerivedSubquery, DerivedQuery: sub, Alias: alias}, start), nil

	default:
		if !p.isTagIdentifierToken() {
			return ast.Source{}, errAt(p.cur(), "expected a FROM source, found %q", p.cur().Lexeme)
		}
		name := p.cur().Lexeme
		if p.cteNames[strings.ToUpper(name)] {
			p.advance()
			alias, err := p.parseOptionalAlias()
			if err != nil {
				return ast.Source{}, err
			}
			if alias == "" {
				alias = name
			}
			return p.finishSource(ast.Source{Kind: ast.SourceCTERef, CTEName: name, Alias: alias}, start), nil
		}
		// Legacy compat: a bare identifier with no recognized source form
		// names the implicit DOCUMENT source's alias directly, equivalent
		// to `DOCUMENT AS <name>`.
		p.advance()
		return p.finishSource(ast.Source{Kind: ast.SourceDocument, Alias: name}, start), nil
	}
}

func (p *parser) finishSource(src ast.Source, start token.Token) ast.Source {
	src.Span = ast.Span{Begin: start.Offset, End: p.prevEnd()}
	return src
}

// parseOptionalAlias parses `AS name` or a bare trailing identifier as a
// source alias; returns "" if neither is present.
func (p *parser) parseOptionalAlias() (string, error) {
	if p.at(token.AS) {
		p.advance()
		return p.expectAliasIdent()
	}
	if p.isTagIdentifierToken() {
		return p.advance().Lexeme, nil
	}
	return "", nil
}

// parseRequiredAlias is parseOptionalAlias but errors when no alias is
// present — used for derived subquery sources, which must be aliased.
func (p *parser) parseRequiredAlias() (string, error) {
	alias, err := p.parseOptionalAlias()
	if err != nil {
		return "", err
	}
	if alias == "" {
		return "", errAt(p.cur(), "subquery source requires an alias")
	}
	return alias, nil
}

// parseSubquery parses a parenthesized query's contents, saving and
// restoring the CTE-name scope around it: a WITH prelude nested inside
// this subquery must not leak its names into the outer query's scope.
func (p *parser) parseSubquery() (*ast.Query, error) {
	saved := p.cteNames
	scoped := make(map[string]bool, len(saved))
	for k, v := range saved {
		scoped[k] = v
	}
	p.cteNames = scoped
	sub, err := p.parseQuery()
	p.cteNames = saved
	if err != nil {
		return nil, err
	}
	return sub, nil
}
