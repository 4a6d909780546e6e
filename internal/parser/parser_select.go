package parser

import (
	"strings"

	"github.com/markql/markql/internal/ast"
	"github.com/markql/markql/internal/token"
)

// parseSelectList parses the list of projected columns: either a bare
// `*` (optionally narrowed by `EXCLUDE (name, ...)`), which must be the
// sole item, or a comma-separated list of select items.
func (p *parser) parseSelectList() ([]ast.SelectItem, []string, error) {
	if p.at(token.Star) {
		tok := p.advance()
		item := ast.SelectItem{Kind: ast.SelectStar, Tag: "*", Span: ast.Span{Begin: tok.Offset, End: tok.End()}}

		var excludes []string
		if p.at(token.EXCLUDE) {
			p.advance()
			if _, err := p.expect(token.LParen); err != nil {
				return nil, nil, err
			}
			for {
				name, err := p.parseIdentifierLexeme()
				if err != nil {
					return nil, nil, err
				}
				excludes = append(excludes, name)
				if p.at(token.Comma) {
					p.advance()
					continue
				}
				break
			}
			if _, err := p.expect(token.RParen); err != nil {
				return nil, nil, err
			}
		}
		return []ast.SelectItem{item}, excludes, nil
	}

	var items []ast.SelectItem
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, nil, err
		}
		items = append(items, item)
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	return items, nil, nil
}

func (p *parser) parseSelectItem() (ast.SelectItem, error) {
	start := p.cur()

	switch {
	case p.at(token.COUNT) || p.atIdent("SUMMARIZE") || p.atIdent("TFIDF"):
		return p.parseAggregateItem(start)
	case p.atIdent("FLATTEN") || p.atIdent("FLATTEN_TEXT"):
		return p.parseFlattenItem(start)
	case p.at(token.PROJECT) || p.atIdent("FLATTEN_EXTRACT"):
		return p.parseProjectItem(start)
	}

	expr, err := p.parseScalarExpr()
	if err != nil {
		return ast.SelectItem{}, err
	}
	alias := ""
	if p.at(token.AS) {
		p.advance()
		aliasTok, err := p.expectAliasIdent()
		if err != nil {
			return ast.SelectItem{}, err
		}
		alias = aliasTok
	}
	item := classifyScalarSelectItem(expr, alias)
	item.Span = ast.Span{Begin: start.Offset, End: p.prevEnd()}
	return item, nil
}

func (p *parser) expectAliasIdent() (string, error) {
	if !p.isTagIdentifierToken() {
		return "", errAt(p.cur(), "expected column alias, found %q", p.cur().Lexeme)
	}
	return p.advance().Lexeme, nil
}

// classifyScalarSelectItem decides which SelectItemKind a bare scalar
// expression corresponds to as a projected column, unwrapping one
// outermost TRIM(...) call first: TRIM wraps any of the other kinds
// rather than being its own.
func classifyScalarSelectItem(expr ast.ScalarExpr, alias string) ast.SelectItem {
	trim := false
	if fn, ok := expr.(*ast.FunctionCall); ok && fn.Name == "TRIM" && len(fn.Args) == 1 {
		trim = true
		expr = fn.Args[0]
	}

	switch e := expr.(type) {
	case ast.OperandExpr:
		if e.Operand.Field == ast.FieldTag && e.Operand.Axis == ast.AxisSelf && (e.Operand.Qualifier == "" || e.Operand.Qualifier == "self") {
			return ast.SelectItem{Kind: ast.SelectTagOnly, Tag: "self", Trim: trim, Expr: expr, Alias: alias}
		}
		return ast.SelectItem{Kind: ast.SelectFieldProjection, Field: e.Operand.Field.String(), Trim: trim, Expr: expr, Alias: alias}
	case *ast.FunctionCall:
		switch e.Name {
		case "TEXT", "DIRECT_TEXT":
			return ast.SelectItem{Kind: ast.SelectTextFunction, DirectText: e.Name == "DIRECT_TEXT", Trim: trim, Expr: expr, Alias: alias}
		case "INNER_HTML", "RAW_INNER_HTML":
			item := ast.SelectItem{Kind: ast.SelectInnerHTML, RawInnerHTML: e.Name == "RAW_INNER_HTML", Trim: trim, Expr: expr, Alias: alias}
			if len(e.Args) == 2 {
				if n, ok := e.Args[1].(ast.NumberLit); ok {
					if n.Value < 0 {
						item.InnerHTMLMaxDepth = true
					} else {
						depth := uint64(n.Value)
						item.InnerHTMLDepth = &depth
					}
				}
			}
			return item
		}
	}
	return ast.SelectItem{Kind: ast.SelectScalarProjection, Trim: trim, Expr: expr, Alias: alias}
}

func (p *parser) parseAggregateItem(start token.Token) (ast.SelectItem, error) {
	item := ast.SelectItem{Kind: ast.SelectAggregate}

	switch {
	case p.at(token.COUNT):
		p.advance()
		item.Aggregate = ast.AggCount
		if _, err := p.expect(token.LParen); err != nil {
			return ast.SelectItem{}, err
		}
		if p.at(token.Star) {
			p.advance()
		} else {
			tag, err := p.parseTagArgLowered()
			if err != nil {
				return ast.SelectItem{}, err
			}
			item.Tag = tag.Value
		}
		if _, err := p.expect(token.RParen); err != nil {
			return ast.SelectItem{}, err
		}

	case p.atIdent("SUMMARIZE"):
		p.advance()
		item.Aggregate = ast.AggSummarize
		if _, err := p.expect(token.LParen); err != nil {
			return ast.SelectItem{}, err
		}
		tag, err := p.parseTagArgLowered()
		if err != nil {
			return ast.SelectItem{}, err
		}
		item.TfIdfTags = []string{tag.Value}
		if _, err := p.expect(token.RParen); err != nil {
			return ast.SelectItem{}, err
		}

	default: // TFIDF
		p.advance()
		item.Aggregate = ast.AggTfIdf
		if _, err := p.expect(token.LParen); err != nil {
			return ast.SelectItem{}, err
		}
		if p.at(token.Star) {
			p.advance()
			item.TfIdfAllTags = true
		} else {
			for {
				tag, err := p.parseTagArgLowered()
				if err != nil {
					return ast.SelectItem{}, err
				}
				item.TfIdfTags = append(item.TfIdfTags, tag.Value)
				if p.at(token.Comma) && !p.nextIsTfIdfOption() {
					p.advance()
					continue
				}
				break
			}
		}
		for p.at(token.Comma) {
			p.advance()
			if err := p.parseTfIdfOption(&item); err != nil {
				return ast.SelectItem{}, err
			}
		}
		if _, err := p.expect(token.RParen); err != nil {
			return ast.SelectItem{}, err
		}
	}

	if p.at(token.AS) {
		p.advance()
		alias, err := p.expectAliasIdent()
		if err != nil {
			return ast.SelectItem{}, err
		}
		item.Alias = alias
	}
	item.Span = ast.Span{Begin: start.Offset, End: p.prevEnd()}
	return item, nil
}

// nextIsTfIdfOption peeks past a comma to tell whether what follows is a
// named TFIDF option (so the tag list loop stops) rather than another tag.
func (p *parser) nextIsTfIdfOption() bool {
	next := p.peek(1)
	if next.Kind != token.Ident {
		return false
	}
	switch next.Upper() {
	case "TOP_TERMS", "MIN_DF", "MAX_DF", "STOPWORDS":
		return true
	default:
		return false
	}
}

func (p *parser) parseTfIdfOption(item *ast.SelectItem) error {
	if p.cur().Kind != token.Ident {
		return errAt(p.cur(), "expected a TFIDF option, found %q", p.cur().Lexeme)
	}
	switch p.cur().Upper() {
	case "TOP_TERMS":
		p.advance()
		n, err := p.parseUint("TOP_TERMS")
		if err != nil {
			return err
		}
		item.TfIdfTopTerms = &n
	case "MIN_DF":
		p.advance()
		n, err := p.parseUint("MIN_DF")
		if err != nil {
			return err
		}
		item.TfIdfMinDF = &n
	case "MAX_DF":
		p.advance()
		n, err := p.parseUint("MAX_DF")
		if err != nil {
			return err
		}
		item.TfIdfMaxDF = &n
	case "STOPWORDS":
		p.advance()
		if p.atIdent("NONE") {
			p.advance()
			item.TfIdfStopwords = ast.StopwordsNone
		} else if p.atIdent("ENGLISH") {
			p.advance()
			item.TfIdfStopwords = ast.StopwordsEnglish
		} else {
			return errAt(p.cur(), "expected NONE or ENGLISH after STOPWORDS, found %q", p.cur().Lexeme)
		}
	default:
		return errAt(p.cur(), "expected a TFIDF option, found %q", p.cur().Lexeme)
	}
	return nil
}

// parseFlattenItem: FLATTEN(tag[, depth]) AS (alias[, alias...]). An
// empty alias list is rejected at parse time, matching original_source's
// parser_select.cpp behavior.
func (p *parser) parseFlattenItem(start token.Token) (ast.SelectItem, error) {
	p.advance() // FLATTEN / FLATTEN_TEXT
	if _, err := p.expect(token.LParen); err != nil {
		return ast.SelectItem{}, err
	}
	tag, err := p.parseTagArgLowered()
	if err != nil {
		return ast.SelectItem{}, err
	}
	item := ast.SelectItem{Kind: ast.SelectFlatten, Tag: tag.Value, FlattenDepth: 2}
	if p.at(token.Comma) {
		p.advance()
		depth, err := p.parseUint("FLATTEN depth")
		if err != nil {
			return ast.SelectItem{}, err
		}
		item.FlattenDepth = depth
	}
	if _, err := p.expect(token.RParen); err != nil {
		return ast.SelectItem{}, err
	}
	if _, err := p.expect(token.AS); err != nil {
		return ast.SelectItem{}, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return ast.SelectItem{}, err
	}
	if p.at(token.RParen) {
		return ast.SelectItem{}, errAt(p.cur(), "expected column alias")
	}
	for {
		alias, err := p.expectAliasIdent()
		if err != nil {
			return ast.SelectItem{}, err
		}
		item.FlattenAliases = append(item.FlattenAliases, alias)
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RParen); err != nil {
		return ast.SelectItem{}, err
	}
	item.Span = ast.Span{Begin: start.Offset, End: p.prevEnd()}
	return item, nil
}

// parseProjectItem: PROJECT(tag) AS (alias: expr[, alias: expr...]).
// Tag names the row-selector tag: the executor emits one output row
// per tag-matching descendant-or-self of the select's outer matched
// row, evaluating each alias's expr against that descendant.
func (p *parser) parseProjectItem(start token.Token) (ast.SelectItem, error) {
	p.advance() // PROJECT / FLATTEN_EXTRACT
	if _, err := p.expect(token.LParen); err != nil {
		return ast.SelectItem{}, err
	}
	tag, err := p.parseTagArgLowered()
	if err != nil {
		return ast.SelectItem{}, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return ast.SelectItem{}, err
	}
	if _, err := p.expect(token.AS); err != nil {
		return ast.SelectItem{}, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return ast.SelectItem{}, err
	}
	item := ast.SelectItem{Kind: ast.SelectProject, Tag: tag.Value}
	if err := p.parseProjectAliasExprPairs(&item); err != nil {
		return ast.SelectItem{}, err
	}
	item.Span = ast.Span{Begin: start.Offset, End: p.prevEnd()}
	return item, nil
}

// projectCmpOp maps a comparison-operator token to the synthesized
// __CMP_* function name the executor evaluates it as, inside a
// PROJECT alias's comparison chain.
func projectCmpOp(k token.Kind) (string, bool) {
	switch k {
	case token.Eq:
		return "__CMP_EQ", true
	case token.NotEq:
		return "__CMP_NE", true
	case token.Lt:
		return "__CMP_LT", true
	case token.LtEq:
		return "__CMP_LE", true
	case token.Gt:
		return "__CMP_GT", true
	case token.GtEq:
		return "__CMP_GE", true
	case token.LIKE:
		return "__CMP_LIKE", true
	default:
		return "", false
	}
}

// parseProjectAliasExprPairs parses the `alias: expr[, alias: expr...]`
// body of a PROJECT(...) AS (...) item and consumes the closing
// RParen itself, since its comparison-chain lookahead needs to run
// right up against it. Each expr may be followed by a chain of
// comparison operators against further project expressions,
// left-associatively nested into synthesized __CMP_* FunctionCalls.
func (p *parser) parseProjectAliasExprPairs(item *ast.SelectItem) error {
	for {
		alias, err := p.expectAliasIdent()
		if err != nil {
			return err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return err
		}
		expr, err := p.parseProjectExpr()
		if err != nil {
			return err
		}
		for {
			opName, ok := projectCmpOp(p.cur().Kind)
			if !ok {
				break
			}
			p.advance()
			rhs, err := p.parseProjectExpr()
			if err != nil {
				return err
			}
			expr = &ast.FunctionCall{
				Name: opName,
				Args: []ast.ScalarExpr{expr, rhs},
				Span: ast.Span{Begin: expr.SpanOf().Begin, End: p.prevEnd()},
			}
		}
		item.ProjectAliases = append(item.ProjectAliases, alias)
		item.ProjectExprs = append(item.ProjectExprs, expr)
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		if p.at(token.RParen) {
			p.advance()
			return nil
		}
		return errAt(p.cur(), "expected , or ) in PROJECT alias list, found %q", p.cur().Lexeme)
	}
}

// parseProjectExpr parses one PROJECT/FLATTEN_EXTRACT alias's value
// expression: a literal, an alias reference to an earlier alias in the
// same list, TEXT/DIRECT_TEXT/ATTR (each with an optional WHERE
// filter), COALESCE, or any other function's generic fn(arg[, arg]*)
// form. This is a strictly smaller grammar than the main scalar
// expression grammar: no bare operand reads, no axis words.
func (p *parser) parseProjectExpr() (ast.ScalarExpr, error) {
	start := p.cur()
	switch {
	case p.at(token.String):
		return p.parseStringLiteral()
	case p.at(token.Number):
		return p.parseNumberLiteral()
	case p.at(token.NULLKW):
		tok := p.advance()
		return ast.NullLit{Span: ast.Span{Begin: tok.Offset, End: tok.End()}}, nil
	}

	if !p.isTagIdentifierToken() {
		return nil, errAt(p.cur(), "expected a PROJECT expression, found %q", p.cur().Lexeme)
	}
	nameTok := p.advance()
	if !p.at(token.LParen) {
		return ast.AliasRef{Name: nameTok.Lexeme, Span: ast.Span{Begin: nameTok.Offset, End: nameTok.End()}}, nil
	}
	p.advance() // LParen
	name := strings.ToUpper(nameTok.Lexeme)

	var result ast.ScalarExpr
	var err error
	switch name {
	case "TEXT", "DIRECT_TEXT":
		result, err = p.parseProjectTagFunction(name)
	case "ATTR":
		result, err = p.parseProjectAttrFunction()
	case "COALESCE":
		result, err = p.parseProjectCoalesce()
	default:
		result, err = p.parseProjectGenericFunction(name)
	}
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	if fn, ok := result.(*ast.FunctionCall); ok {
		fn.Span = ast.Span{Begin: start.Offset, End: p.prevEnd()}
	}
	return result, nil
}

func (p *parser) parseProjectTagFunction(name string) (ast.ScalarExpr, error) {
	tag, err := p.parseTagArgLowered()
	if err != nil {
		return nil, err
	}
	where, err := p.parseOptionalProjectWhere()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionCall{Name: name, Args: []ast.ScalarExpr{tag}, Where: where}, nil
}

func (p *parser) parseProjectAttrFunction() (ast.ScalarExpr, error) {
	tag, err := p.parseTagArgLowered()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Comma); err != nil {
		return nil, err
	}
	nameTok := p.cur()
	attrName, err := p.parseAttrNameLowered()
	if err != nil {
		return nil, err
	}
	where, err := p.parseOptionalProjectWhere()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionCall{
		Name:  "ATTR",
		Args:  []ast.ScalarExpr{tag, ast.StringLit{Value: attrName, Span: ast.Span{Begin: nameTok.Offset, End: nameTok.End()}}},
		Where: where,
	}, nil
}

// parseOptionalProjectWhere parses an optional `WHERE predicate` tail,
// legal only after TEXT/DIRECT_TEXT/ATTR's tag argument inside a
// PROJECT expr — this is how the suggestor's own generated queries
// scope a text/attribute read to a matching descendant.
func (p *parser) parseOptionalProjectWhere() (ast.Expr, error) {
	if !p.at(token.WHERE) {
		return nil, nil
	}
	p.advance()
	return p.parseExpr()
}

// parseProjectCoalesce parses COALESCE(expr, expr[, expr...]),
// requiring at least two arguments.
func (p *parser) parseProjectCoalesce() (ast.ScalarExpr, error) {
	first, err := p.parseProjectExpr()
	if err != nil {
		return nil, err
	}
	args := []ast.ScalarExpr{first}
	for p.at(token.Comma) {
		p.advance()
		next, err := p.parseProjectExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, next)
	}
	if len(args) < 2 {
		return nil, errAt(p.cur(), "COALESCE requires at least two arguments")
	}
	return &ast.FunctionCall{Name: "COALESCE", Args: args}, nil
}

// parseProjectGenericFunction parses any PROJECT-expr function name
// without a dedicated shape above: POSITION/LOCATE's SQL-flavoured
// `needle IN haystack`, or a bare comma-separated argument list.
func (p *parser) parseProjectGenericFunction(name string) (ast.ScalarExpr, error) {
	if name == "POSITION" || name == "LOCATE" {
		needle, err := p.parseProjectExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.IN); err != nil {
			return nil, err
		}
		haystack, err := p.parseProjectExpr()
		if err != nil {
			return nil, err
		}
		return &ast.FunctionCall{Name: name, Args: []ast.ScalarExpr{needle, haystack}}, nil
	}

	var args []ast.ScalarExpr
	if !p.at(token.RParen) {
		first, err := p.parseProjectExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, first)
		for p.at(token.Comma) {
			p.advance()
			next, err := p.parseProjectExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, next)
		}
	}
	return &ast.FunctionCall{Name: name, Args: args}, nil
}
