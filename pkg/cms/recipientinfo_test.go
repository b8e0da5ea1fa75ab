package cms

import (
	"bytes"
	"testing"

	"github.com/corvid-systems/dermsg/pkg/ber"
	"github.com/corvid-systems/dermsg/pkg/schema"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

var rsaEncryptionOID = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x01}

func buildKtriNode(image *[]byte) *ber.Node {
	version := contentNode("version", image, []byte{0x00})
	rdn := &ber.Node{Name: "rdn", Children: []*ber.Node{attrNode("atv", "2.5.4.3", "Alice", image)}}
	rdnSeq := &ber.Node{Name: "rdnSequence", Children: []*ber.Node{rdn}}
	issuer := &ber.Node{Name: "issuer", Kind: schema.KindChoice, Children: []*ber.Node{rdnSeq}}
	serial := contentNode("serialNumber", image, []byte{0x01})
	iasn := &ber.Node{Name: "issuerAndSerialNumber", Children: []*ber.Node{issuer, serial}}
	rid := &ber.Node{Name: "rid", Kind: schema.KindChoice, Children: []*ber.Node{iasn}}

	keyEncryptionAlgorithm := fullNode("keyEncryptionAlgorithm", image, algIDTLV(rsaEncryptionOID))

	encKeyBytes := bytes.Repeat([]byte{0x42}, 8)
	octet, _ := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagOctetString, false, int64(len(encKeyBytes)))
	octet = append(octet, encKeyBytes...)
	encryptedKey := fullNode("encryptedKey", image, octet)

	ktri := &ber.Node{Name: "ktri", Children: []*ber.Node{version, rid, keyEncryptionAlgorithm, encryptedKey}}
	return &ber.Node{Name: "RecipientInfo", Kind: schema.KindChoice, Children: []*ber.Node{ktri}}
}

func TestParseRecipientInfoKtri(t *testing.T) {
	var image []byte
	node := buildKtriNode(&image)

	view, err := ParseRecipientInfo(node, image)
	if err != nil {
		t.Fatalf("ParseRecipientInfo() error = %v", err)
	}
	if view.Kind != RecipientKeyTrans {
		t.Errorf("Kind = %v, want RecipientKeyTrans", view.Kind)
	}
	if view.IssuerSerial == nil {
		t.Fatal("IssuerSerial = nil, want non-nil")
	}
	if view.IssuerSerial.Issuer != "CN=Alice" {
		t.Errorf("Issuer = %q, want %q", view.IssuerSerial.Issuer, "CN=Alice")
	}
	if view.KeyEncryptionOID != "1.2.840.113549.1.1.1" {
		t.Errorf("KeyEncryptionOID = %q, want %q", view.KeyEncryptionOID, "1.2.840.113549.1.1.1")
	}
	if len(view.EncryptedKey) != 8 {
		t.Errorf("len(EncryptedKey) = %d, want 8", len(view.EncryptedKey))
	}
}

func TestParseRecipientInfoEncVal(t *testing.T) {
	var image []byte
	node := buildKtriNode(&image)
	view, err := ParseRecipientInfo(node, image)
	if err != nil {
		t.Fatalf("ParseRecipientInfo() error = %v", err)
	}

	expr, err := view.EncVal(nil)
	if err != nil {
		t.Fatalf("EncVal() error = %v", err)
	}
	tag, ok := expr.Tag()
	if !ok {
		t.Fatal("expr.Tag() ok = false, want true")
	}
	if tag != "enc-val" {
		t.Errorf("tag = %q, want %q", tag, "enc-val")
	}
}

func TestParseRecipientInfoEncValRejectsWrongKind(t *testing.T) {
	view := RecipientInfoView{Kind: RecipientKeyAgree}
	if _, err := view.EncVal(nil); err == nil {
		t.Error("EncVal() error = nil, want error")
	}
}

func TestRecipientInfoViewIssuerSerialAtBounds(t *testing.T) {
	view := RecipientInfoView{RecipientEncryptedKeys: []RecipientEncryptedKey{
		{SubjectKeyID: []byte{0x01}},
	}}
	if got := view.IssuerSerialAt(0); got != nil {
		t.Errorf("IssuerSerialAt(0) = %v, want nil", got)
	}
	if got := view.IssuerSerialAt(-1); got != nil {
		t.Errorf("IssuerSerialAt(-1) = %v, want nil", got)
	}
	if got := view.IssuerSerialAt(5); got != nil {
		t.Errorf("IssuerSerialAt(5) = %v, want nil", got)
	}
	if got := view.SubjectKeyIDAt(0); !bytes.Equal(got, []byte{0x01}) {
		t.Errorf("SubjectKeyIDAt(0) = %x, want %x", got, []byte{0x01})
	}
	if got := view.SubjectKeyIDAt(9); got != nil {
		t.Errorf("SubjectKeyIDAt(9) = %v, want nil", got)
	}
}

func TestParseRecipientInfoRejectsUnknownChoice(t *testing.T) {
	bogus := &ber.Node{Name: "RecipientInfo", Kind: schema.KindChoice, Children: []*ber.Node{
		{Name: "other"},
	}}
	if _, err := ParseRecipientInfo(bogus, nil); err == nil {
		t.Error("ParseRecipientInfo() error = nil, want error")
	}
}
