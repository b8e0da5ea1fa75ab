package keyinfo

import (
	"crypto/sha1"
	"testing"

	"github.com/corvid-systems/dermsg/pkg/sexp"
)

func rsaPublicKeySexp(n, e []byte) sexp.Expr {
	return sexp.List(
		sexp.AtomString("public-key"),
		sexp.List(
			sexp.AtomString("rsa"),
			sexp.List(sexp.AtomString("n"), sexp.Atom(n)),
			sexp.List(sexp.AtomString("e"), sexp.Atom(e)),
		),
	)
}

func TestKeygripDeterministic(t *testing.T) {
	pk := rsaPublicKeySexp([]byte{0x00, 0xab, 0xcd}, []byte{0x01, 0x00, 0x01})
	g1, err := Keygrip(pk)
	if err != nil {
		t.Fatalf("Keygrip() error = %v", err)
	}
	g2, err := Keygrip(pk)
	if err != nil {
		t.Fatalf("Keygrip() error = %v", err)
	}
	if len(g1) != sha1.Size {
		t.Fatalf("len(Keygrip()) = %d, want %d", len(g1), sha1.Size)
	}
	if string(g1) != string(g2) {
		t.Error("Keygrip() is not deterministic for the same key")
	}
}

func TestKeygripDiffersForDifferentKeys(t *testing.T) {
	pk1 := rsaPublicKeySexp([]byte{0x00, 0xab, 0xcd}, []byte{0x01, 0x00, 0x01})
	pk2 := rsaPublicKeySexp([]byte{0x00, 0xab, 0xce}, []byte{0x01, 0x00, 0x01})
	g1, err := Keygrip(pk1)
	if err != nil {
		t.Fatalf("Keygrip() error = %v", err)
	}
	g2, err := Keygrip(pk2)
	if err != nil {
		t.Fatalf("Keygrip() error = %v", err)
	}
	if string(g1) == string(g2) {
		t.Error("Keygrip() should differ for different moduli")
	}
}

func TestKeygripRejectsNonPublicKeyForm(t *testing.T) {
	bogus := sexp.List(sexp.AtomString("sig-val"), sexp.List(sexp.AtomString("rsa")))
	if _, err := Keygrip(bogus); err == nil {
		t.Error("expected an error for a non-public-key form")
	}
}
