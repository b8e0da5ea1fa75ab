// Package sexp implements the canonical symbolic-expression encoding used
// throughout pkg/keyinfo to represent keys, signatures, and encrypted
// values as libksba-style s-expressions: parenthesized lists of atoms, each
// atom prefixed with its decimal byte length ("<len>:<bytes>").
//
// The encoding mirrors the canonical form GnuPG's libksba emits for key
// material: deterministic, with no whitespace and no alternate atom
// quoting forms.
package sexp

import (
	"strconv"

	"github.com/corvid-systems/dermsg/pkg/dererr"
)

// Expr is a canonical s-expression: either an atom (leaf, Items == nil) or
// a list (Items holds the sub-expressions, Value == nil).
type Expr struct {
	Value []byte
	Items []Expr
}

// Atom builds a leaf s-expression wrapping b verbatim.
func Atom(b []byte) Expr { return Expr{Value: b} }

// AtomString builds a leaf s-expression from a string, a convenience for
// symbolic tags like "rsa" or "sig-val".
func AtomString(s string) Expr { return Expr{Value: []byte(s)} }

// List builds a list s-expression from its sub-expressions.
func List(items ...Expr) Expr {
	if items == nil {
		items = []Expr{}
	}
	return Expr{Items: items}
}

// IsAtom reports whether e is a leaf.
func (e Expr) IsAtom() bool { return e.Items == nil }

// Encode renders e in canonical form: "(" + each item's encoding + ")" for
// a list, "<len>:<bytes>" for an atom.
func (e Expr) Encode() []byte {
	if e.IsAtom() {
		out := []byte(strconv.Itoa(len(e.Value)))
		out = append(out, ':')
		return append(out, e.Value...)
	}
	out := []byte{'('}
	for _, it := range e.Items {
		out = append(out, it.Encode()...)
	}
	return append(out, ')')
}

// Parse reads one canonical s-expression from the front of b. It does not
// require b to be fully consumed; trailing bytes are ignored.
func Parse(b []byte) (Expr, error) {
	e, _, err := parseOne(b)
	return e, err
}

func parseOne(b []byte) (Expr, []byte, error) {
	if len(b) == 0 {
		return Expr{}, nil, dererr.New("sexp.Parse", dererr.ErrInvalidSexp)
	}
	if b[0] == '(' {
		rest := b[1:]
		var items []Expr
		for {
			if len(rest) == 0 {
				return Expr{}, nil, dererr.New("sexp.Parse", dererr.ErrInvalidSexp)
			}
			if rest[0] == ')' {
				return List(items...), rest[1:], nil
			}
			item, tail, err := parseOne(rest)
			if err != nil {
				return Expr{}, nil, err
			}
			items = append(items, item)
			rest = tail
		}
	}
	// atom: "<digits>:<bytes>"
	i := 0
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(b) || b[i] != ':' {
		return Expr{}, nil, dererr.New("sexp.Parse", dererr.ErrInvalidSexp)
	}
	n, err := strconv.Atoi(string(b[:i]))
	if err != nil || n < 0 {
		return Expr{}, nil, dererr.New("sexp.Parse", dererr.ErrInvalidSexp)
	}
	start := i + 1
	end := start + n
	if end > len(b) {
		return Expr{}, nil, dererr.New("sexp.Parse", dererr.ErrObjectTooShort)
	}
	return Atom(b[start:end]), b[end:], nil
}

// Get returns the i-th sub-expression of a list, or the zero Expr and false
// if e is an atom or i is out of range.
func (e Expr) Get(i int) (Expr, bool) {
	if e.IsAtom() || i < 0 || i >= len(e.Items) {
		return Expr{}, false
	}
	return e.Items[i], true
}

// Tag returns the leading atom of a list as a string, used to read the
// symbolic head of a form like "(rsa (n ...) (e ...))".
func (e Expr) Tag() (string, bool) {
	head, ok := e.Get(0)
	if !ok || !head.IsAtom() {
		return "", false
	}
	return string(head.Value), true
}

// Assoc finds the first list item whose own head atom equals key, the
// pattern used throughout keyinfo for "(key value)" pairs inside a form.
func (e Expr) Assoc(key string) (Expr, bool) {
	if e.IsAtom() {
		return Expr{}, false
	}
	for _, it := range e.Items {
		if it.IsAtom() {
			continue
		}
		if tag, ok := it.Tag(); ok && tag == key {
			return it, true
		}
	}
	return Expr{}, false
}
