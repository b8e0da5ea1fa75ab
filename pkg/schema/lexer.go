package schema

import (
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokSymbol // { } [ ] , ::=
)

type token struct {
	kind tokenKind
	text string
}

type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src)}
}

func (l *lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *lexer) skipTrivia() {
	for {
		r, ok := l.peekRune()
		if !ok {
			return
		}
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			l.pos++
		case r == '-' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '-':
			// "--" comment runs to end of line (ASN.1 module comment style)
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentRune(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func (l *lexer) next() token {
	l.skipTrivia()
	r, ok := l.peekRune()
	if !ok {
		return token{kind: tokEOF}
	}
	switch {
	case r == ':' && strings.HasPrefix(string(l.src[l.pos:]), "::="):
		l.pos += 3
		return token{kind: tokSymbol, text: "::="}
	case r == '{' || r == '}' || r == '[' || r == ']' || r == ',' || r == '(' || r == ')':
		l.pos++
		return token{kind: tokSymbol, text: string(r)}
	case r >= '0' && r <= '9':
		start := l.pos
		for {
			r, ok := l.peekRune()
			if !ok || r < '0' || r > '9' {
				break
			}
			l.pos++
		}
		return token{kind: tokNumber, text: string(l.src[start:l.pos])}
	case isIdentStart(r):
		start := l.pos
		for {
			r, ok := l.peekRune()
			if !ok || !isIdentRune(r) {
				break
			}
			l.pos++
		}
		return token{kind: tokIdent, text: string(l.src[start:l.pos])}
	default:
		l.pos++
		return token{kind: tokSymbol, text: string(r)}
	}
}
