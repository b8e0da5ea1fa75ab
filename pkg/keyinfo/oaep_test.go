package keyinfo

import (
	"bytes"
	"testing"

	"github.com/corvid-systems/dermsg/pkg/tlv"
)

func derOctetString(content []byte) []byte {
	out, _ := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagOctetString, false, int64(len(content)))
	return append(out, content...)
}

var rsaOAEPOIDDER = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x07}

func buildRSAOAEPEncVal(enc []byte, label []byte) []byte {
	hashAlgID := derSequence(derOID(sha256OIDDER))
	mgfInner := derSequence(derOID(sha256OIDDER))
	mgfAlgID := derSequence(append(derOID(mgf1OIDDER), mgfInner...))

	content := append(contextTag(0, hashAlgID), contextTag(1, mgfAlgID)...)
	if label != nil {
		content = append(content, contextTag(2, derOctetString(label))...)
	}
	oaepParams := derSequence(content)

	algID := derSequence(append(derOID(rsaOAEPOIDDER), oaepParams...))
	return append(algID, derBitString(enc)...)
}

func TestEncValToSexpRSAOAEPNoParams(t *testing.T) {
	enc := bytes.Repeat([]byte{0x7a}, 16)
	algID := derSequence(derOID(rsaOAEPOIDDER))
	data := append(algID, derBitString(enc)...)

	expr, err := EncValToSexp(data, nil, nil)
	if err != nil {
		t.Fatalf("EncValToSexp() error = %v", err)
	}
	algoForm, _ := expr.Get(1)
	flagsItem, ok := algoForm.Assoc("flags")
	if !ok {
		t.Fatal("expected (flags ...) entry")
	}
	flagVal, _ := flagsItem.Get(1)
	if string(flagVal.Value) != "oaep" {
		t.Errorf("flags = %q, want oaep", flagVal.Value)
	}
	hashItem, ok := algoForm.Assoc("hash-algo")
	if !ok {
		t.Fatal("expected (hash-algo ...) entry")
	}
	hashVal, _ := hashItem.Get(1)
	if string(hashVal.Value) != oidOAEPDefaultHash {
		t.Errorf("hash-algo = %q, want %q", hashVal.Value, oidOAEPDefaultHash)
	}
}

func TestEncValToSexpRSAOAEPWithParams(t *testing.T) {
	enc := bytes.Repeat([]byte{0x3c}, 16)
	data := buildRSAOAEPEncVal(enc, nil)

	expr, err := EncValToSexp(data, nil, nil)
	if err != nil {
		t.Fatalf("EncValToSexp() error = %v", err)
	}
	algoForm, _ := expr.Get(1)
	hashItem, ok := algoForm.Assoc("hash-algo")
	if !ok {
		t.Fatal("expected (hash-algo ...) entry")
	}
	hashVal, _ := hashItem.Get(1)
	if string(hashVal.Value) != "2.16.840.1.101.3.4.2.1" {
		t.Errorf("hash-algo = %q, want sha256 OID", hashVal.Value)
	}
}

func TestEncValToSexpRSAOAEPWithLabel(t *testing.T) {
	enc := bytes.Repeat([]byte{0x11}, 16)
	label := []byte("context")
	data := buildRSAOAEPEncVal(enc, label)

	expr, err := EncValToSexp(data, nil, nil)
	if err != nil {
		t.Fatalf("EncValToSexp() error = %v", err)
	}
	algoForm, _ := expr.Get(1)
	labelItem, ok := algoForm.Assoc("label")
	if !ok {
		t.Fatal("expected (label ...) entry")
	}
	labelVal, _ := labelItem.Get(1)
	if !bytes.Equal(labelVal.Value, label) {
		t.Errorf("label = %q, want %q", labelVal.Value, label)
	}
}

func TestEncValToSexpRSAOAEPMismatchedMGFHashRejected(t *testing.T) {
	sha384OIDDER := []byte{0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x02}
	hashAlgID := derSequence(derOID(sha256OIDDER))
	mgfInner := derSequence(derOID(sha384OIDDER)) // mismatched on purpose
	mgfAlgID := derSequence(append(derOID(mgf1OIDDER), mgfInner...))
	content := append(contextTag(0, hashAlgID), contextTag(1, mgfAlgID)...)
	oaepParams := derSequence(content)
	algID := derSequence(append(derOID(rsaOAEPOIDDER), oaepParams...))
	data := append(algID, derBitString(bytes.Repeat([]byte{0x01}, 16))...)

	if _, err := EncValToSexp(data, nil, nil); err == nil {
		t.Error("expected an error when the MGF1 hash OID does not match the OAEP hash OID")
	}
}

