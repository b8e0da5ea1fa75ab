package keyinfo

import (
	"crypto/sha1"

	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/oid"
	"github.com/corvid-systems/dermsg/pkg/sexp"
)

// Keygrip computes the 20-byte SHA-1 digest GnuPG uses to name a key
// independent of its certificate or keyring wrapper: the hash of the
// canonical s-expression of the key's parameter items alone (the
// ParmElemDesc items such as DSA's p q g, then the ElemDesc items such as
// RSA's n e or ECC's q, then, for ECC keys that carry one, the curve item;
// never the algorithm name). This is not part of the DER codec proper — no example repo in
// this corpus computes one — so it is grounded directly on the
// definition in GnuPG's keygrip documentation rather than on a ported
// implementation, and built on the standard library's sha1 since no
// pack dependency offers the primitive.
func Keygrip(pk sexp.Expr) ([]byte, error) {
	head, ok := pk.Tag()
	if !ok || head != "public-key" {
		return nil, dererr.New("keyinfo.Keygrip", dererr.ErrUnknownSexp)
	}
	algoForm, ok := pk.Get(1)
	if !ok {
		return nil, dererr.New("keyinfo.Keygrip", dererr.ErrInvalidSexp)
	}
	algoName, ok := algoForm.Tag()
	if !ok {
		return nil, dererr.New("keyinfo.Keygrip", dererr.ErrInvalidSexp)
	}

	entry, err := resolvePKEntry(algoName, algoForm)
	if err != nil {
		return nil, err
	}

	var items []sexp.Expr
	for i := 0; i < len(entry.ParmElemDesc); i++ {
		letter := entry.ParmElemDesc[i]
		if letter == wrapperElem {
			continue
		}
		if v, ok := algoForm.Assoc(string(letter)); ok {
			items = append(items, v)
		}
	}
	for i := 0; i < len(entry.ElemDesc); i++ {
		letter := entry.ElemDesc[i]
		if letter == wrapperElem {
			continue
		}
		v, ok := algoForm.Assoc(string(letter))
		if !ok {
			return nil, dererr.New("keyinfo.Keygrip", dererr.ErrNoValue)
		}
		items = append(items, v)
	}
	if entry.PKAlgo == oid.PKECC {
		if curve, ok := algoForm.Assoc("curve"); ok {
			items = append(items, curve)
		}
	}

	canonical := sexp.List(items...).Encode()
	sum := sha1.Sum(canonical)
	return sum[:], nil
}
