package parser

import (
	"github.com/markql/markql/internal/ast"
	"github.com/markql/markql/internal/token"
)

// axisWordAt reports whether tok spells one of the five axis words. SELF
// is a true lexer keyword; the other four are recognized contextually
// on plain Ident tokens so they stay usable as ordinary tag names and
// attribute shorthands everywhere else in the grammar.
func (p *parser) axisWordAt(tok token.Token) (ast.Axis, bool) {
	if tok.Kind == token.SELF {
		return ast.AxisSelf, true
	}
	if tok.Kind != token.Ident {
		return 0, false
	}
	switch tok.Upper() {
	case "PARENT":
		return ast.AxisParent, true
	case "CHILD":
		return ast.AxisChild, true
	case "ANCESTOR":
		return ast.AxisAncestor, true
	case "DESCENDANT":
		return ast.AxisDescendant, true
	}
	return 0, false
}

// fieldKeywordAt reports whether tok spells one of the bare field-kind
// words (everything except attribute/attributes_map, which have their
// own dotted-path syntax). Used for a dotless bare operand and for the
// field slot right after an axis word (`parent.tag`, `li.parent.tag`).
func fieldKeywordAt(tok token.Token) (ast.FieldKind, bool) {
	if tok.Kind != token.Ident {
		return 0, false
	}
	switch tok.Upper() {
	case "TAG":
		return ast.FieldTag, true
	case "TEXT":
		return ast.FieldText, true
	case "NODE_ID":
		return ast.FieldNodeID, true
	case "PARENT_ID":
		return ast.FieldParentID, true
	case "SIBLING_POS":
		return ast.FieldSiblingPos, true
	case "MAX_DEPTH":
		return ast.FieldMaxDepth, true
	case "DOC_ORDER":
		return ast.FieldDocOrder, true
	}
	return 0, false
}

// fieldKeywordAfterQualifierAt reports whether tok spells one of the
// field-kind words recognized directly after `qualifier.` with no axis
// word in between. Notably excludes TAG and TEXT: `li.tag`/`li.text`
// (no axis) fall through to the qualified-attribute-shorthand case
// below instead, mirroring the asymmetry the grammar this was ported
// from has always had between its bare-operand and qualified-operand
// field checks.
func fieldKeywordAfterQualifierAt(tok token.Token) (ast.FieldKind, bool) {
	if tok.Kind != token.Ident {
		return 0, false
	}
	switch tok.Upper() {
	case "NODE_ID":
		return ast.FieldNodeID, true
	case "PARENT_ID":
		return ast.FieldParentID, true
	case "SIBLING_POS":
		return ast.FieldSiblingPos, true
	case "MAX_DEPTH":
		return ast.FieldMaxDepth, true
	case "DOC_ORDER":
		return ast.FieldDocOrder, true
	}
	return 0, false
}

// parseOperand parses one axis/field read. Tie-break order for the
// operand sub-grammar:
//
//  1. A bare identifier with no following '.' is a field keyword if it
//     spells one, else a bare-attribute shorthand (`self.attributes.X`).
//  2. `axis.rest` (axis one of parent/child/ancestor/descendant/self)
//     reads the field portion per parseFieldAfterAxis.
//  3. Any other `ident.rest` treats ident as a qualifier (source/tag
//     alias) and parses `rest` as either a nested axis path, an
//     `attributes[.name]` tail, a restricted field-keyword set (see
//     fieldKeywordAfterQualifierAt — TAG/TEXT excluded), or otherwise a
//     qualified attribute shorthand (`a.href`).
func (p *parser) parseOperand() (ast.Operand, error) {
	start := p.cur()

	if axis, ok := p.axisWordAt(p.cur()); ok && p.peek(1).Kind == token.Dot {
		p.advance() // axis word
		p.advance() // '.'
		field, attr, err := p.parseFieldAfterAxis()
		if err != nil {
			return ast.Operand{}, err
		}
		qualifier := ""
		if axis == ast.AxisSelf {
			qualifier = "self"
		}
		return ast.Operand{
			Qualifier: qualifier, Axis: axis, Field: field, Attribute: attr,
			Span: ast.Span{Begin: start.Offset, End: p.prevEnd()},
		}, nil
	}

	if !p.isTagIdentifierToken() {
		return ast.Operand{}, errAt(p.cur(), "expected an operand, found %q", p.cur().Lexeme)
	}

	if p.cur().Kind == token.Ident && p.cur().Upper() == "ATTRIBUTES" {
		field, attr, err := p.parseAttributesTail()
		if err != nil {
			return ast.Operand{}, err
		}
		return ast.Operand{
			Axis: ast.AxisSelf, Field: field, Attribute: attr,
			Span: ast.Span{Begin: start.Offset, End: p.prevEnd()},
		}, nil
	}

	if p.peek(1).Kind != token.Dot {
		if field, ok := fieldKeywordAt(p.cur()); ok {
			p.advance()
			return ast.Operand{Axis: ast.AxisSelf, Field: field, Span: ast.Span{Begin: start.Offset, End: p.prevEnd()}}, nil
		}
		name := p.advance().Lexeme
		return ast.Operand{
			Axis: ast.AxisSelf, Field: ast.FieldAttribute, Attribute: name,
			Span: ast.Span{Begin: start.Offset, End: p.prevEnd()},
		}, nil
	}

	qualifier := p.advance().Lexeme
	p.advance() // '.'

	if axis, ok := p.axisWordAt(p.cur()); ok && p.peek(1).Kind == token.Dot {
		p.advance() // axis word
		p.advance() // '.'
		field, attr, err := p.parseFieldAfterAxis()
		if err != nil {
			return ast.Operand{}, err
		}
		return ast.Operand{
			Qualifier: qualifier, Axis: axis, Field: field, Attribute: attr,
			Span: ast.Span{Begin: start.Offset, End: p.prevEnd()},
		}, nil
	}
	if p.cur().Kind == token.Ident && p.cur().Upper() == "ATTRIBUTES" {
		field, attr, err := p.parseAttributesTail()
		if err != nil {
			return ast.Operand{}, err
		}
		return ast.Operand{
			Qualifier: qualifier, Axis: ast.AxisSelf, Field: field, Attribute: attr,
			Span: ast.Span{Begin: start.Offset, End: p.prevEnd()},
		}, nil
	}
	if field, ok := fieldKeywordAfterQualifierAt(p.cur()); ok {
		p.advance()
		return ast.Operand{
			Qualifier: qualifier, Axis: ast.AxisSelf, Field: field,
			Span: ast.Span{Begin: start.Offset, End: p.prevEnd()},
		}, nil
	}

	// Anything else after `qualifier.` — including TAG/TEXT, which are
	// only recognized as field keywords when unqualified or after an
	// explicit axis word — is read as a qualified attribute shorthand:
	// `a.href` means "a"'s self.attributes.href.
	if !p.isTagIdentifierToken() {
		return ast.Operand{}, errAt(p.cur(), "expected an axis, 'attributes', or a field after qualifier %q", qualifier)
	}
	name := p.advance().Lexeme
	return ast.Operand{
		Qualifier: qualifier, Axis: ast.AxisSelf, Field: ast.FieldAttribute, Attribute: name,
		Span: ast.Span{Begin: start.Offset, End: p.prevEnd()},
	}, nil
}

func (p *parser) parseFieldAfterAxis() (ast.FieldKind, string, error) {
	if p.cur().Kind == token.Ident && p.cur().Upper() == "ATTRIBUTES" {
		return p.parseAttributesTail()
	}
	if field, ok := fieldKeywordAt(p.cur()); ok {
		p.advance()
		return field, "", nil
	}
	return 0, "", errAt(p.cur(), "expected a field name, found %q", p.cur().Lexeme)
}

func (p *parser) parseAttributesTail() (ast.FieldKind, string, error) {
	p.advance() // ATTRIBUTES
	if p.at(token.Dot) {
		p.advance()
		if !p.isTagIdentifierToken() {
			return 0, "", errAt(p.cur(), "expected an attribute name, found %q", p.cur().Lexeme)
		}
		name := p.advance().Lexeme
		return ast.FieldAttribute, name, nil
	}
	return ast.FieldAttributesMap, "", nil
}
