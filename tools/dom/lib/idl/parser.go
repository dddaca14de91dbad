// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package idl

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/pkg/errors"
)

// Syntax selects the IDL dialect accepted by the parser.
type Syntax int

const (
	// WebIDLSyntax is the W3C dialect.
	WebIDLSyntax Syntax = iota
	// WebKitSyntax places extended attributes after the interface keyword,
	// marks arguments with `in` and declares raised exceptions.
	WebKitSyntax
	// FremontCutSyntax is the canonical database dialect: @annotations,
	// split getter/setter attributes and snippets.
	FremontCutSyntax
)

var syntaxNames = map[Syntax]string{
	WebIDLSyntax:     "webidl",
	WebKitSyntax:     "webkit",
	FremontCutSyntax: "fremontcut",
}

func (s Syntax) String() string {
	if name, ok := syntaxNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Syntax(%d)", int(s))
}

// ParseSyntax maps a dialect name as used in configuration files.
func ParseSyntax(name string) (Syntax, error) {
	for s, n := range syntaxNames {
		if n == strings.ToLower(name) {
			return s, nil
		}
	}
	return 0, errors.Errorf("unknown IDL syntax %q", name)
}

// UnmarshalYAML lets configuration files name a dialect.
func (s *Syntax) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseSyntax(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Parse parses one IDL file.
func Parse(filename, src string, syntax Syntax) (*File, error) {
	return NewParser(filename, strings.NewReader(src), syntax).Parse()
}

type Parser struct {
	scanner    scanner.Scanner
	syntax     Syntax
	filename   string
	lookaheads []token
	skipped    []SkippedMember
}

func NewParser(filename string, input io.Reader, syntax Syntax) *Parser {
	p := Parser{syntax: syntax, filename: filename}
	p.scanner.Init(input)
	p.scanner.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats |
		scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments
	p.scanner.Error = func(*scanner.Scanner, string) {}
	return &p
}

func (p *Parser) Parse() (*File, error) {
	file := &File{Filename: p.filename}
	for !p.peekToken(tEOF) {
		if p.peekText("module") {
			m, err := p.parseModule()
			if err != nil {
				return nil, err
			}
			file.Modules = append(file.Modules, m)
			continue
		}
		if err := p.parseDefinition(&file.Definitions); err != nil {
			return nil, err
		}
	}
	file.Skipped = p.skipped
	return file, nil
}

type tokenKind uint

const (
	_ tokenKind = iota
	tEOF
	tIdent
	tNumber
	tString
	tLbrace
	tRbrace
	tLparen
	tRparen
	tLsquare
	tRsquare
	tLangle
	tRangle
	tComma
	tColon
	tSemicolon
	tEqual
	tQuestion
	tDot
	tMinus
	tAt
	tPipe
	tAmp
	tOther
)

var tokenKindStrings = []string{
	"<invalid>",
	"<eof>",
	"<identifier>",
	"<number>",
	"<string>",
	"{",
	"}",
	"(",
	")",
	"[",
	"]",
	"<",
	">",
	",",
	":",
	";",
	"=",
	"?",
	".",
	"-",
	"@",
	"|",
	"&",
	"<other>",
}

var textToTokenKind = make(map[string]tokenKind)

func init() {
	for index, text := range tokenKindStrings {
		if strings.HasPrefix(text, "<") && len(text) > 1 {
			continue
		}
		textToTokenKind[text] = tokenKind(index)
	}
}

func (kind tokenKind) String() string {
	if index := int(kind); index < len(tokenKindStrings) {
		return tokenKindStrings[index]
	}
	return fmt.Sprintf("%d", kind)
}

type token struct {
	kind         tokenKind
	value        string
	line, column int
}

func (t token) String() string {
	if t.kind == tEOF {
		return t.kind.String()
	}
	return strconv.Quote(t.value)
}

func (p *Parser) parseModule() (*Module, error) {
	p.nextToken() // module
	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	m := &Module{ID: id}
	if err := p.expect(tLbrace); err != nil {
		return nil, err
	}
	for !p.peekToken(tRbrace) {
		if p.peekToken(tEOF) {
			return nil, p.failExpectedToken(tRbrace, p.peek(0))
		}
		if err := p.parseDefinition(&m.Definitions); err != nil {
			return nil, err
		}
	}
	p.nextToken()
	p.consumeToken(tSemicolon)
	return m, nil
}

func (p *Parser) parseDefinition(defs *Definitions) error {
	annotations, err := p.parseAnnotations()
	if err != nil {
		return err
	}
	extAttrs, err := p.parseExtAttrs()
	if err != nil {
		return err
	}
	tok := p.peek(0)
	if tok.kind != tIdent {
		return p.newParseError(tok, "expected a definition, found %s", tok)
	}
	switch tok.value {
	case "interface", "exception":
		i, err := p.parseInterface(annotations, extAttrs)
		if err != nil {
			return err
		}
		defs.Interfaces = append(defs.Interfaces, i)
		return nil
	case "partial", "callback":
		p.nextToken()
		if tok.value == "callback" && !p.peekText("interface") {
			t, err := p.parseCallbackFunction(extAttrs)
			if err != nil {
				return err
			}
			defs.Typedefs = append(defs.Typedefs, t)
			return nil
		}
		if !p.peekText("interface") && !p.peekText("dictionary") {
			return p.newParseError(p.peek(0), "expected interface after %s, found %s", tok.value, p.peek(0))
		}
		if p.peekText("dictionary") {
			return p.skipDeclaration()
		}
		i, err := p.parseInterface(annotations, extAttrs)
		if err != nil {
			return err
		}
		i.IsSupplemental = i.IsSupplemental || tok.value == "partial"
		i.IsCallback = tok.value == "callback"
		defs.Interfaces = append(defs.Interfaces, i)
		return nil
	case "enum":
		e, err := p.parseEnum(annotations, extAttrs)
		if err != nil {
			return err
		}
		defs.Enums = append(defs.Enums, e)
		return nil
	case "typedef":
		t, err := p.parseTypedef(extAttrs)
		if err != nil {
			return err
		}
		defs.Typedefs = append(defs.Typedefs, t)
		return nil
	case "dictionary", "namespace":
		return p.skipDeclaration()
	}
	s, err := p.parseImplements()
	if err != nil {
		return err
	}
	defs.ImplementsStatements = append(defs.ImplementsStatements, s)
	return nil
}

func (p *Parser) parseInterface(annotations Annotations, extAttrs ExtAttrs) (*Interface, error) {
	p.nextToken() // interface or exception
	if p.peekToken(tLsquare) {
		if p.syntax != WebKitSyntax {
			return nil, p.newParseError(p.peek(0), "extended attributes after the interface keyword require webkit syntax")
		}
		more, err := p.parseExtAttrs()
		if err != nil {
			return nil, err
		}
		extAttrs = mergeExtAttrs(extAttrs, more)
	}
	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	i := &Interface{
		ID:             id,
		Annotations:    annotations,
		ExtAttrs:       extAttrs,
		IsSupplemental: extAttrs.Has("Supplemental"),
	}
	if _, ok := p.consumeToken(tColon); ok {
		for {
			parent, err := p.parseParent()
			if err != nil {
				return nil, err
			}
			i.Parents = append(i.Parents, parent)
			if _, ok := p.consumeToken(tComma); !ok {
				break
			}
		}
	}
	if err := p.expect(tLbrace); err != nil {
		return nil, err
	}
	for {
		if _, ok := p.consumeToken(tRbrace); ok {
			break
		}
		if p.peekToken(tEOF) {
			return nil, p.failExpectedToken(tRbrace, p.peek(0))
		}
		if err := p.parseMember(i); err != nil {
			return nil, err
		}
	}
	p.consumeToken(tSemicolon)
	return i, nil
}

func (p *Parser) parseParent() (*ParentInterface, error) {
	annotations, err := p.parseAnnotations()
	if err != nil {
		return nil, err
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return &ParentInterface{Type: t, Annotations: annotations}, nil
}

var operationSpecials = map[string]bool{
	"getter":       true,
	"setter":       true,
	"creator":      true,
	"deleter":      true,
	"legacycaller": true,
	"stringifier":  true,
}

func (p *Parser) skip(i *Interface, tok token) {
	p.skipped = append(p.skipped, SkippedMember{
		Interface: i.ID,
		Kind:      tok.value,
		Line:      tok.line,
		Column:    tok.column,
	})
}

func (p *Parser) parseMember(i *Interface) error {
	annotations, err := p.parseAnnotations()
	if err != nil {
		return err
	}
	extAttrs, err := p.parseExtAttrs()
	if err != nil {
		return err
	}

	switch {
	case p.peekText("const"):
		c, err := p.parseConstant(annotations, extAttrs)
		if err != nil {
			return err
		}
		i.Constants = append(i.Constants, c)
		return nil
	case p.peekText("snippet"):
		s, err := p.parseSnippet(annotations)
		if err != nil {
			return err
		}
		i.Snippets = append(i.Snippets, s)
		return nil
	case p.peekText("iterable"), p.peekText("maplike"), p.peekText("setlike"),
		p.peekText("serializer"), p.peekText("jsonifier"):
		p.skip(i, p.peek(0))
		return p.skipTo(tSemicolon)
	case p.peekText("stringifier") && p.peek(1).kind == tSemicolon:
		p.skip(i, p.nextToken())
		p.nextToken()
		return nil
	}

	var isStatic, isStringifier, readOnly, fcGetter, fcSetter bool
	var specials []string
qualifiers:
	for {
		tok := p.peek(0)
		if tok.kind != tIdent {
			break
		}
		next := p.peek(1)
		if next.kind != tIdent && next.kind != tLparen {
			// The keyword is actually the type of the member.
			break
		}
		switch {
		case tok.value == "static":
			isStatic = true
		case tok.value == "readonly":
			readOnly = true
		case tok.value == "inherit":
		case (tok.value == "getter" || tok.value == "setter") && next.value == "attribute":
			if p.syntax != FremontCutSyntax {
				return p.newParseError(tok, "%s attribute requires fremontcut syntax", tok.value)
			}
			fcGetter = tok.value == "getter"
			fcSetter = tok.value == "setter"
		case tok.value == "stringifier" && (next.value == "attribute" || next.value == "readonly"):
			isStringifier = true
		case operationSpecials[tok.value]:
			specials = append(specials, tok.value)
		default:
			break qualifiers
		}
		p.nextToken()
	}

	if p.peekText("attribute") {
		p.nextToken()
		if p.peekToken(tLsquare) && p.syntax == WebKitSyntax {
			more, err := p.parseExtAttrs()
			if err != nil {
				return err
			}
			extAttrs = mergeExtAttrs(extAttrs, more)
		}
		t, err := p.parseType()
		if err != nil {
			return err
		}
		id, err := p.parseIdent()
		if err != nil {
			return err
		}
		if err := p.skipRaises(); err != nil {
			return err
		}
		if err := p.expect(tSemicolon); err != nil {
			return err
		}
		attr := &Attribute{
			ID:            id,
			Type:          t,
			IsStatic:      isStatic,
			IsStringifier: isStringifier,
			Annotations:   annotations,
			ExtAttrs:      extAttrs,
		}
		switch {
		case fcGetter:
			attr.IsGetter = true
			i.Attributes = append(i.Attributes, attr)
		case fcSetter:
			attr.IsSetter = true
			i.Attributes = append(i.Attributes, attr)
		case readOnly:
			attr.IsGetter = true
			i.Attributes = append(i.Attributes, attr)
		default:
			setter := attr.Clone()
			attr.IsGetter = true
			setter.IsSetter = true
			i.Attributes = append(i.Attributes, attr, setter)
		}
		return nil
	}

	t, err := p.parseType()
	if err != nil {
		return err
	}
	o := &Operation{
		Type:        t,
		Specials:    specials,
		IsStatic:    isStatic,
		Annotations: annotations,
		ExtAttrs:    extAttrs,
	}
	if !p.peekToken(tLparen) {
		if o.ID, err = p.parseIdent(); err != nil {
			return err
		}
	}
	if o.Arguments, err = p.parseArguments(); err != nil {
		return err
	}
	if err := p.skipRaises(); err != nil {
		return err
	}
	if err := p.expect(tSemicolon); err != nil {
		return err
	}
	i.Operations = append(i.Operations, o)
	return nil
}

func (p *Parser) parseConstant(annotations Annotations, extAttrs ExtAttrs) (*Constant, error) {
	p.nextToken() // const
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tEqual); err != nil {
		return nil, err
	}
	value, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tSemicolon); err != nil {
		return nil, err
	}
	return &Constant{ID: id, Type: t, Value: value, Annotations: annotations, ExtAttrs: extAttrs}, nil
}

func (p *Parser) parseSnippet(annotations Annotations) (*Snippet, error) {
	tok := p.nextToken() // snippet
	if p.syntax != FremontCutSyntax {
		return nil, p.newParseError(tok, "snippets require fremontcut syntax")
	}
	text, ok := p.consumeToken(tString)
	if !ok {
		return nil, p.failExpectedToken(tString, text)
	}
	if err := p.expect(tSemicolon); err != nil {
		return nil, err
	}
	return &Snippet{Text: text.value, Annotations: annotations}, nil
}

func (p *Parser) parseEnum(annotations Annotations, extAttrs ExtAttrs) (*Enum, error) {
	p.nextToken() // enum
	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tLbrace); err != nil {
		return nil, err
	}
	e := &Enum{ID: id, Annotations: annotations, ExtAttrs: extAttrs}
	for !p.peekToken(tRbrace) {
		value, ok := p.consumeToken(tString)
		if !ok {
			return nil, p.failExpectedToken(tString, value)
		}
		e.Values = append(e.Values, value.value)
		if _, ok := p.consumeToken(tComma); !ok {
			break
		}
	}
	if err := p.expect(tRbrace); err != nil {
		return nil, err
	}
	p.consumeToken(tSemicolon)
	return e, nil
}

func (p *Parser) parseTypedef(extAttrs ExtAttrs) (*Typedef, error) {
	p.nextToken() // typedef
	more, err := p.parseExtAttrs()
	if err != nil {
		return nil, err
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tSemicolon); err != nil {
		return nil, err
	}
	return &Typedef{ID: id, Type: t, ExtAttrs: mergeExtAttrs(extAttrs, more)}, nil
}

// parseCallbackFunction reads `callback Name = ReturnType (args);`. Callback
// functions are modeled as typedefs of Function.
func (p *Parser) parseCallbackFunction(extAttrs ExtAttrs) (*Typedef, error) {
	id, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tEqual); err != nil {
		return nil, err
	}
	if _, err := p.parseType(); err != nil {
		return nil, err
	}
	if _, err := p.parseArguments(); err != nil {
		return nil, err
	}
	if err := p.expect(tSemicolon); err != nil {
		return nil, err
	}
	return &Typedef{ID: id, Type: &Type{ID: "Function"}, ExtAttrs: extAttrs}, nil
}

func (p *Parser) parseImplements() (*ImplementsStatement, error) {
	implementor, err := p.parseType()
	if err != nil {
		return nil, err
	}
	tok := p.nextToken()
	if tok.kind != tIdent || (tok.value != "implements" && tok.value != "includes") {
		return nil, p.newParseError(tok, "expected implements, found %s", tok)
	}
	implemented, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tSemicolon); err != nil {
		return nil, err
	}
	return &ImplementsStatement{Implementor: implementor, Implemented: implemented}, nil
}

func (p *Parser) parseArguments() ([]*Argument, error) {
	if err := p.expect(tLparen); err != nil {
		return nil, err
	}
	args := []*Argument{}
	for !p.peekToken(tRparen) {
		arg, err := p.parseArgument()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if _, ok := p.consumeToken(tComma); !ok {
			break
		}
	}
	if err := p.expect(tRparen); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parseArgument() (*Argument, error) {
	extAttrs, err := p.parseExtAttrs()
	if err != nil {
		return nil, err
	}
	if p.peekText("in") && p.peek(1).kind != tComma && p.peek(1).kind != tRparen {
		tok := p.nextToken()
		if p.syntax != WebKitSyntax {
			return nil, p.newParseError(tok, "`in` arguments require webkit syntax")
		}
		more, err := p.parseExtAttrs()
		if err != nil {
			return nil, err
		}
		extAttrs = mergeExtAttrs(extAttrs, more)
	}
	arg := &Argument{ExtAttrs: extAttrs}
	if p.peekText("optional") && (p.peek(1).kind == tIdent || p.peek(1).kind == tLparen) {
		p.nextToken()
		arg.Optional = true
	}
	if arg.Type, err = p.parseType(); err != nil {
		return nil, err
	}
	if p.peekToken(tDot) {
		for n := 0; n < 3; n++ {
			if err := p.expect(tDot); err != nil {
				return nil, err
			}
		}
		arg.Variadic = true
	}
	if arg.ID, err = p.parseIdent(); err != nil {
		return nil, err
	}
	if _, ok := p.consumeToken(tEqual); ok {
		if arg.Default, err = p.parseLiteral(); err != nil {
			return nil, err
		}
	}
	return arg, nil
}

// skipRaises drops WebKit exception clauses: `raises(E)`, `getraises(E)`,
// `setraises(E)` and `getter raises(E), setter raises(E)`.
func (p *Parser) skipRaises() error {
	for {
		switch {
		case p.peekText("raises"), p.peekText("getraises"), p.peekText("setraises"):
			p.nextToken()
		case (p.peekText("getter") || p.peekText("setter")) && p.peek(1).kind == tIdent && p.peek(1).value == "raises":
			p.nextToken()
			p.nextToken()
		default:
			return nil
		}
		if err := p.expect(tLparen); err != nil {
			return err
		}
		if err := p.skipTo(tRparen); err != nil {
			return err
		}
		p.consumeToken(tComma)
	}
}

var primitivePrefixes = map[string]bool{"unsigned": true, "unrestricted": true}

// parseType reads a type and builds its canonical ID.
func (p *Parser) parseType() (*Type, error) {
	var id strings.Builder
	if p.peekToken(tLparen) {
		// Union type.
		p.nextToken()
		id.WriteString("(")
		for {
			member, err := p.parseType()
			if err != nil {
				return nil, err
			}
			id.WriteString(member.String())
			if !p.peekText("or") {
				break
			}
			p.nextToken()
			id.WriteString(" or ")
		}
		if err := p.expect(tRparen); err != nil {
			return nil, err
		}
		id.WriteString(")")
	} else {
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		id.WriteString(name)
		if primitivePrefixes[name] {
			next, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			id.WriteString(" " + next)
			name = next
		}
		if name == "long" && p.peekText("long") {
			p.nextToken()
			id.WriteString(" long")
		}
		for p.peekToken(tColon) && p.peek(1).kind == tColon {
			p.nextToken()
			p.nextToken()
			scoped, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			id.WriteString("::" + scoped)
		}
		if _, ok := p.consumeToken(tLangle); ok {
			id.WriteString("<")
			for n := 0; ; n++ {
				if n > 0 {
					id.WriteString(", ")
				}
				param, err := p.parseType()
				if err != nil {
					return nil, err
				}
				id.WriteString(param.String())
				if _, ok := p.consumeToken(tComma); !ok {
					break
				}
			}
			if err := p.expect(tRangle); err != nil {
				return nil, err
			}
			id.WriteString(">")
		}
	}
	t := &Type{}
	for {
		if p.peekToken(tLsquare) && p.peek(1).kind == tRsquare {
			p.nextToken()
			p.nextToken()
			id.WriteString("[]")
			continue
		}
		if _, ok := p.consumeToken(tQuestion); ok {
			if p.peekToken(tLsquare) {
				// T?[] is an array of nullable T.
				id.WriteString("?")
				continue
			}
			t.Nullable = true
		}
		break
	}
	t.ID = id.String()
	return t, nil
}

// parseLiteral reads a constant or default value and returns it as written.
func (p *Parser) parseLiteral() (string, error) {
	tok := p.nextToken()
	switch tok.kind {
	case tMinus:
		next := p.nextToken()
		if next.kind != tNumber && next.kind != tIdent {
			return "", p.newParseError(next, "expected a number, found %s", next)
		}
		return "-" + next.value, nil
	case tNumber, tIdent:
		return tok.value, nil
	case tString:
		return strconv.Quote(tok.value), nil
	case tLsquare:
		if err := p.expect(tRsquare); err != nil {
			return "", err
		}
		return "[]", nil
	case tLbrace:
		if err := p.expect(tRbrace); err != nil {
			return "", err
		}
		return "{}", nil
	}
	return "", p.newParseError(tok, "expected a literal, found %s", tok)
}

func (p *Parser) parseAnnotations() (Annotations, error) {
	var annotations Annotations
	for p.peekToken(tAt) {
		tok := p.nextToken()
		if p.syntax != FremontCutSyntax {
			return nil, p.newParseError(tok, "annotations require fremontcut syntax")
		}
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		if annotations == nil {
			annotations = make(Annotations)
		}
		annotation := Annotation{}
		if _, ok := p.consumeToken(tLparen); ok {
			for !p.peekToken(tRparen) {
				arg, err := p.parseIdent()
				if err != nil {
					return nil, err
				}
				value := ""
				if _, ok := p.consumeToken(tEqual); ok {
					if value, err = p.parseAnnotationValue(); err != nil {
						return nil, err
					}
				}
				annotation[arg] = value
				if _, ok := p.consumeToken(tComma); !ok {
					break
				}
			}
			if err := p.expect(tRparen); err != nil {
				return nil, err
			}
		}
		annotations[name] = annotation
	}
	return annotations, nil
}

func (p *Parser) parseAnnotationValue() (string, error) {
	if tok, ok := p.consumeToken(tString); ok {
		return tok.value, nil
	}
	var value strings.Builder
	for {
		tok := p.peek(0)
		switch tok.kind {
		case tComma, tRparen, tEOF:
			if value.Len() == 0 {
				return "", p.newParseError(tok, "expected an annotation value, found %s", tok)
			}
			return value.String(), nil
		}
		value.WriteString(p.nextToken().value)
	}
}

func (p *Parser) parseExtAttrs() (ExtAttrs, error) {
	var extAttrs ExtAttrs
	for p.peekToken(tLsquare) {
		p.nextToken()
		for !p.peekToken(tRsquare) {
			name, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			if extAttrs == nil {
				extAttrs = make(ExtAttrs)
			}
			attr := extAttrs[name]
			if attr == nil {
				attr = &ExtAttr{}
				extAttrs[name] = attr
			}
			if _, ok := p.consumeToken(tEqual); ok {
				if attr.Value, err = p.parseExtAttrValue(); err != nil {
					return nil, err
				}
			}
			if p.peekToken(tLparen) {
				args, err := p.parseArguments()
				if err != nil {
					return nil, err
				}
				attr.Args = append(attr.Args, args)
			}
			if _, ok := p.consumeToken(tComma); !ok {
				break
			}
		}
		if err := p.expect(tRsquare); err != nil {
			return nil, err
		}
	}
	return extAttrs, nil
}

// parseExtAttrValue concatenates the tokens of a value such as A|B, A&B,
// "string" or -1 until the next separator.
func (p *Parser) parseExtAttrValue() (string, error) {
	var value strings.Builder
	for {
		tok := p.peek(0)
		switch tok.kind {
		case tComma, tRsquare, tLparen, tEOF:
			if value.Len() == 0 {
				return "", p.newParseError(tok, "expected an extended attribute value, found %s", tok)
			}
			return value.String(), nil
		case tString:
			value.WriteString(strconv.Quote(tok.value))
		default:
			value.WriteString(tok.value)
		}
		p.nextToken()
	}
}

func mergeExtAttrs(a, b ExtAttrs) ExtAttrs {
	if a == nil {
		return b
	}
	for name, attr := range b {
		if old, ok := a[name]; ok {
			old.Args = append(old.Args, attr.Args...)
			if attr.Value != "" {
				old.Value = attr.Value
			}
			continue
		}
		a[name] = attr
	}
	return a
}

// skipDeclaration drops a declaration the database does not model, such as
// a dictionary, up to and including its closing `};`.
func (p *Parser) skipDeclaration() error {
	if err := p.skipTo(tLbrace); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		tok := p.nextToken()
		switch tok.kind {
		case tEOF:
			return p.failExpectedToken(tRbrace, tok)
		case tLbrace:
			depth++
		case tRbrace:
			depth--
		}
	}
	p.consumeToken(tSemicolon)
	return nil
}

// skipTo consumes tokens through the next token of the given kind.
func (p *Parser) skipTo(kind tokenKind) error {
	for {
		tok := p.nextToken()
		if tok.kind == kind {
			return nil
		}
		if tok.kind == tEOF {
			return p.failExpectedToken(kind, tok)
		}
	}
}

func (p *Parser) parseIdent() (string, error) {
	tok, ok := p.consumeToken(tIdent)
	if !ok {
		return "", p.failExpectedToken(tIdent, tok)
	}
	return tok.value, nil
}

func (p *Parser) expect(kind tokenKind) error {
	if tok, ok := p.consumeToken(kind); !ok {
		return p.failExpectedToken(kind, tok)
	}
	return nil
}

func (p *Parser) consumeToken(kind tokenKind) (token, bool) {
	tok := p.peek(0)
	if tok.kind != kind {
		return tok, false
	}
	return p.nextToken(), true
}

func (p *Parser) peekToken(kind tokenKind) bool {
	return p.peek(0).kind == kind
}

func (p *Parser) peekText(text string) bool {
	tok := p.peek(0)
	return tok.kind == tIdent && tok.value == text
}

func (p *Parser) peek(n int) token {
	for len(p.lookaheads) <= n {
		p.lookaheads = append(p.lookaheads, p.scanToken())
	}
	return p.lookaheads[n]
}

func (p *Parser) nextToken() token {
	if len(p.lookaheads) != 0 {
		var tok token
		tok, p.lookaheads = p.lookaheads[0], p.lookaheads[1:]
		return tok
	}
	return p.scanToken()
}

func (p *Parser) scanToken() token {
	r := p.scanner.Scan()
	pos := p.scanner.Position
	text := p.scanner.TokenText()
	switch r {
	case scanner.EOF:
		return token{tEOF, "", pos.Line, pos.Column}
	case scanner.Ident:
		return token{tIdent, text, pos.Line, pos.Column}
	case scanner.Int, scanner.Float:
		return token{tNumber, text, pos.Line, pos.Column}
	case scanner.String:
		value, err := strconv.Unquote(text)
		if err != nil {
			value = strings.Trim(text, `"`)
		}
		return token{tString, value, pos.Line, pos.Column}
	}
	if kind, ok := textToTokenKind[text]; ok {
		return token{kind, text, pos.Line, pos.Column}
	}
	return token{tOther, text, pos.Line, pos.Column}
}

type parseError struct {
	input        string
	line, column int
	message      string
}

// Assert parseError implements error interface
var _ error = &parseError{}

func (err *parseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", err.input, err.line, err.column, err.message)
}

func (p *Parser) failExpectedToken(expected tokenKind, found token) error {
	return p.newParseError(found, "expected %s found %s", expected, found)
}

func (p *Parser) newParseError(tok token, format string, a ...interface{}) error {
	return &parseError{
		input:   p.filename,
		line:    tok.line,
		column:  tok.column,
		message: fmt.Sprintf(format, a...),
	}
}
