package schema

import (
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

type parser struct {
	lex  *lexer
	cur  token
	peek *token
}

// Parse reads one textual ASN.1 module (see package doc for the accepted
// subset) and returns its type-definition tree.
func Parse(text string) (*Module, error) {
	p := &parser{lex: newLexer(text)}
	p.advance()

	if p.cur.kind != tokIdent || p.cur.text != "MODULE" {
		return nil, dererr.New("schema.Parse", dererr.ErrGeneral)
	}
	p.advance()
	if p.cur.kind != tokIdent {
		return nil, dererr.New("schema.Parse", dererr.ErrGeneral)
	}
	mod := &Module{Name: p.cur.text, Types: map[string]*Node{}}
	p.advance()

	for p.cur.kind == tokIdent {
		name := p.cur.text
		p.advance()
		if !p.expectSymbol("::=") {
			return nil, dererr.New("schema.Parse", dererr.ErrGeneral)
		}
		node, err := p.parseType()
		if err != nil {
			return nil, err
		}
		node.Name = name
		mod.Types[name] = node
	}
	if p.cur.kind != tokEOF {
		return nil, dererr.New("schema.Parse", dererr.ErrGeneral)
	}
	return mod, nil
}

func (p *parser) advance() {
	if p.peek != nil {
		p.cur = *p.peek
		p.peek = nil
		return
	}
	p.cur = p.lex.next()
}

func (p *parser) peekTok() token {
	if p.peek == nil {
		t := p.lex.next()
		p.peek = &t
	}
	return *p.peek
}

func (p *parser) expectSymbol(s string) bool {
	if p.cur.kind == tokSymbol && p.cur.text == s {
		p.advance()
		return true
	}
	return false
}

func (p *parser) isIdent(s string) bool {
	return p.cur.kind == tokIdent && p.cur.text == s
}

// parseType parses one Type production and returns its node, leaving the
// parser positioned just after the type.
func (p *parser) parseType() (*Node, error) {
	switch {
	case p.isIdent("SEQUENCE"):
		p.advance()
		if p.isIdent("OF") {
			p.advance()
			elem, err := p.parseType()
			if err != nil {
				return nil, err
			}
			return &Node{Kind: KindSequenceOf, Child: elem}, nil
		}
		return p.parseFieldedType(KindSequence)
	case p.isIdent("SET"):
		p.advance()
		if p.isIdent("OF") {
			p.advance()
			elem, err := p.parseType()
			if err != nil {
				return nil, err
			}
			return &Node{Kind: KindSetOf, Child: elem}, nil
		}
		return p.parseFieldedType(KindSet)
	case p.isIdent("CHOICE"):
		p.advance()
		return p.parseFieldedType(KindChoice)
	case p.cur.kind == tokSymbol && p.cur.text == "[":
		return p.parseTagged()
	default:
		return p.parsePrimitiveOrRef()
	}
}

// parseFieldedType parses "{" Field ("," Field)* "}" for SEQUENCE/SET/CHOICE.
func (p *parser) parseFieldedType(kind Kind) (*Node, error) {
	if !p.expectSymbol("{") {
		return nil, dererr.New("schema.parseFieldedType", dererr.ErrGeneral)
	}
	node := &Node{Kind: kind}
	if p.cur.kind == tokSymbol && p.cur.text == "}" {
		p.advance()
		return node, nil
	}
	for {
		if p.cur.kind != tokIdent {
			return nil, dererr.New("schema.parseFieldedType", dererr.ErrGeneral)
		}
		fieldName := p.cur.text
		p.advance()
		fieldType, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fieldType.Name = fieldName
		if p.isIdent("OPTIONAL") {
			fieldType.Optional = true
			p.advance()
		}
		node.Children = append(node.Children, fieldType)
		if p.cur.kind == tokSymbol && p.cur.text == "," {
			p.advance()
			continue
		}
		break
	}
	if !p.expectSymbol("}") {
		return nil, dererr.New("schema.parseFieldedType", dererr.ErrGeneral)
	}
	return node, nil
}

// parseTagged parses "[" [class] number "]" [EXPLICIT|IMPLICIT] Type.
func (p *parser) parseTagged() (*Node, error) {
	p.advance() // consume "["
	class := tlv.ClassContext
	switch {
	case p.isIdent("APPLICATION"):
		class = tlv.ClassApplication
		p.advance()
	case p.isIdent("PRIVATE"):
		class = tlv.ClassPrivate
		p.advance()
	case p.isIdent("UNIVERSAL"):
		class = tlv.ClassUniversal
		p.advance()
	}
	if p.cur.kind != tokNumber {
		return nil, dererr.New("schema.parseTagged", dererr.ErrGeneral)
	}
	num := parseUint(p.cur.text)
	p.advance()
	if !p.expectSymbol("]") {
		return nil, dererr.New("schema.parseTagged", dererr.ErrGeneral)
	}
	implicit := false
	switch {
	case p.isIdent("EXPLICIT"):
		p.advance()
	case p.isIdent("IMPLICIT"):
		implicit = true
		p.advance()
	}
	inner, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KindTagged, Class: class, TagNum: num, Implicit: implicit, Child: inner}, nil
}

// primitiveTags maps a primitive keyword to its universal tag number.
var primitiveTags = map[string]uint32{
	"BOOLEAN":            tlv.TagBoolean,
	"INTEGER":            tlv.TagInteger,
	"NULL":               tlv.TagNull,
	"OBJECT":             tlv.TagOID, // "OBJECT IDENTIFIER"
	"UTCTime":            tlv.TagUTCTime,
	"GeneralizedTime":    tlv.TagGeneralTime,
	"UTF8String":         tlv.TagUTF8String,
	"PrintableString":    tlv.TagPrintable,
	"IA5String":          tlv.TagIA5,
	"T61String":          tlv.TagT61,
	"BMPString":          tlv.TagBMPString,
	"UniversalString":    tlv.TagUniversalStr,
}

func (p *parser) parsePrimitiveOrRef() (*Node, error) {
	if p.cur.kind != tokIdent {
		return nil, dererr.New("schema.parsePrimitiveOrRef", dererr.ErrGeneral)
	}
	switch p.cur.text {
	case "BIT":
		p.advance()
		if !p.isIdent("STRING") {
			return nil, dererr.New("schema.parsePrimitiveOrRef", dererr.ErrGeneral)
		}
		p.advance()
		return &Node{Kind: KindPrimitive, PrimTag: tlv.TagBitString}, nil
	case "OCTET":
		p.advance()
		if !p.isIdent("STRING") {
			return nil, dererr.New("schema.parsePrimitiveOrRef", dererr.ErrGeneral)
		}
		p.advance()
		return &Node{Kind: KindPrimitive, PrimTag: tlv.TagOctetString}, nil
	case "OBJECT":
		p.advance()
		if !p.isIdent("IDENTIFIER") {
			return nil, dererr.New("schema.parsePrimitiveOrRef", dererr.ErrGeneral)
		}
		p.advance()
		return &Node{Kind: KindPrimitive, PrimTag: tlv.TagOID}, nil
	case "ANY":
		p.advance()
		if p.isIdent("DEFINED") {
			p.advance()
			if p.isIdent("BY") {
				p.advance()
			}
			if p.cur.kind == tokIdent {
				p.advance() // the discriminator field name is metadata only
			}
		}
		return &Node{Kind: KindPrimitive, PrimTag: TagAny}, nil
	}
	if tag, ok := primitiveTags[p.cur.text]; ok {
		p.advance()
		return &Node{Kind: KindPrimitive, PrimTag: tag}, nil
	}
	// Otherwise this is a reference to another defined type.
	ref := p.cur.text
	p.advance()
	return &Node{Kind: KindReference, RefName: ref}, nil
}

// TagAny is a sentinel PrimTag value (no universal tag uses it)
// marking a node as "ANY" / "ANY DEFINED BY": decode it as an opaque leaf
// capturing the raw TLV regardless of the tag actually present.
const TagAny = ^uint32(0)

func parseUint(s string) uint32 {
	var n uint32
	for _, r := range s {
		n = n*10 + uint32(r-'0')
	}
	return n
}
