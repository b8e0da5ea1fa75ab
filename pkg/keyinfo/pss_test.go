package keyinfo

import (
	"bytes"
	"testing"

	"github.com/corvid-systems/dermsg/pkg/tlv"
)

func contextTag(tagNum uint32, content []byte) []byte {
	out, _ := tlv.WriteHeader(nil, tlv.ClassContext, tagNum, true, int64(len(content)))
	return append(out, content...)
}

var (
	rsaPSSOIDDER = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x0a}
	mgf1OIDDER   = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x08}
	sha256OIDDER = []byte{0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x01}
)

func buildRSAPSSSigVal(sig []byte, saltLen *int) []byte {
	hashAlgID := derSequence(derOID(sha256OIDDER))
	mgfInner := derSequence(derOID(sha256OIDDER))
	mgfAlgID := derSequence(append(derOID(mgf1OIDDER), mgfInner...))

	content := append(contextTag(0, hashAlgID), contextTag(1, mgfAlgID)...)
	if saltLen != nil {
		content = append(content, contextTag(2, derInt(byte(*saltLen)))...)
	}
	pssParams := derSequence(content)

	algID := derSequence(append(derOID(rsaPSSOIDDER), pssParams...))
	return append(algID, derBitString(sig)...)
}

func TestSigValToSexpRSAPSSDefaultSaltLength(t *testing.T) {
	sig := bytes.Repeat([]byte{0x5a}, 32)
	data := buildRSAPSSSigVal(sig, nil)

	expr, err := SigValToSexp(data, nil)
	if err != nil {
		t.Fatalf("SigValToSexp() error = %v", err)
	}
	algoForm, _ := expr.Get(1)
	saltItem, ok := algoForm.Assoc("salt-length")
	if !ok {
		t.Fatal("expected (salt-length ...) entry")
	}
	v, _ := saltItem.Get(1)
	if len(v.Value) != 1 || v.Value[0] != defaultPSSSaltLength {
		t.Errorf("salt-length = %v, want %d", v.Value, defaultPSSSaltLength)
	}
	flagsItem, ok := algoForm.Assoc("flags")
	if !ok {
		t.Fatal("expected (flags ...) entry")
	}
	flagVal, _ := flagsItem.Get(1)
	if string(flagVal.Value) != "pss" {
		t.Errorf("flags = %q, want pss", flagVal.Value)
	}
}

func TestSigValToSexpRSAPSSExplicitSaltLength(t *testing.T) {
	salt := 32
	sig := bytes.Repeat([]byte{0x11}, 32)
	data := buildRSAPSSSigVal(sig, &salt)

	expr, err := SigValToSexp(data, nil)
	if err != nil {
		t.Fatalf("SigValToSexp() error = %v", err)
	}
	algoForm, _ := expr.Get(1)
	saltItem, _ := algoForm.Assoc("salt-length")
	v, _ := saltItem.Get(1)
	if len(v.Value) != 1 || int(v.Value[0]) != salt {
		t.Errorf("salt-length = %v, want %d", v.Value, salt)
	}
}

func TestSigValToSexpRSAPSSMismatchedMGFHashRejected(t *testing.T) {
	sha384OIDDER := []byte{0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x02}
	hashAlgID := derSequence(derOID(sha256OIDDER))
	mgfInner := derSequence(derOID(sha384OIDDER)) // mismatched on purpose
	mgfAlgID := derSequence(append(derOID(mgf1OIDDER), mgfInner...))
	content := append(contextTag(0, hashAlgID), contextTag(1, mgfAlgID)...)
	pssParams := derSequence(content)
	algID := derSequence(append(derOID(rsaPSSOIDDER), pssParams...))
	data := append(algID, derBitString(bytes.Repeat([]byte{0x01}, 32))...)

	if _, err := SigValToSexp(data, nil); err == nil {
		t.Error("expected an error when the MGF1 hash OID does not match the PSS hash OID")
	}
}
