package cms

import (
	"bytes"
	"errors"
	"testing"

	"github.com/corvid-systems/dermsg/pkg/berio"
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

func derOID(b []byte) []byte {
	out, _ := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagOID, false, int64(len(b)))
	return append(out, b...)
}

func derSequence(b []byte) []byte {
	out, _ := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagSequence, true, int64(len(b)))
	return append(out, b...)
}

var oidDataDER = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x07, 0x01} // id-data

func TestParseContentInfoWithDefiniteContent(t *testing.T) {
	inner := []byte("hello")
	wrapped, _ := tlv.WriteHeader(nil, tlv.ClassContext, 0, true, int64(len(inner)))
	wrapped = append(wrapped, inner...)
	body := append(derOID(oidDataDER), wrapped...)
	data := derSequence(body)

	src := berio.NewBytesReader(data)
	ci, err := ParseContentInfo(src)
	if err != nil {
		t.Fatalf("ParseContentInfo() error = %v", err)
	}
	if ci.ContentOID != OIDData {
		t.Errorf("ContentOID = %q, want %q", ci.ContentOID, OIDData)
	}
	if !ci.HasContent {
		t.Error("HasContent = false, want true")
	}
	if ci.Indefinite {
		t.Error("Indefinite = true, want false")
	}
	if ci.InnerLength != int64(len(inner)) {
		t.Errorf("InnerLength = %d, want %d", ci.InnerLength, len(inner))
	}

	got, err := src.Read(len(inner))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(got, inner) {
		t.Errorf("Read() = %q, want %q", got, inner)
	}
	if err := ci.Close(src); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestParseContentInfoNoContent(t *testing.T) {
	data := derSequence(derOID(oidDataDER))
	src := berio.NewBytesReader(data)
	ci, err := ParseContentInfo(src)
	if err != nil {
		t.Fatalf("ParseContentInfo() error = %v", err)
	}
	if ci.HasContent {
		t.Error("HasContent = true, want false")
	}
	if err := ci.Close(src); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestParseContentInfoIndefiniteWrapper(t *testing.T) {
	oidPart := derOID(oidDataDER)
	// [0] constructed, indefinite length, containing one definite OCTET STRING
	// chunk followed by the EOC.
	inner := []byte("chunk")
	octet, _ := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagOctetString, false, int64(len(inner)))
	octet = append(octet, inner...)
	wrapper := append([]byte{0xA0, 0x80}, octet...)
	wrapper = append(wrapper, 0x00, 0x00) // EOC for [0]
	body := append(oidPart, wrapper...)
	outer := append([]byte{0x30, 0x80}, body...)
	outer = append(outer, 0x00, 0x00) // EOC for outer SEQUENCE

	src := berio.NewBytesReader(outer)
	ci, err := ParseContentInfo(src)
	if err != nil {
		t.Fatalf("ParseContentInfo() error = %v", err)
	}
	if !ci.HasContent {
		t.Error("HasContent = false, want true")
	}
	if !ci.Indefinite {
		t.Error("Indefinite = false, want true")
	}

	if _, err := src.Read(len(octet)); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if err := ci.Close(src); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestParseContentInfoRejectsNonSequence(t *testing.T) {
	data := []byte{0x02, 0x01, 0x05} // INTEGER, not SEQUENCE
	_, err := ParseContentInfo(berio.NewBytesReader(data))
	if !errors.Is(err, dererr.ErrNoCmsObject) {
		t.Errorf("err = %v, want wrapping ErrNoCmsObject", err)
	}
}

func TestParseContentInfoRejectsNonOID(t *testing.T) {
	data := derSequence([]byte{0x02, 0x01, 0x05})
	_, err := ParseContentInfo(berio.NewBytesReader(data))
	if !errors.Is(err, dererr.ErrNoCmsObject) {
		t.Errorf("err = %v, want wrapping ErrNoCmsObject", err)
	}
}
