package cms

import (
	"bytes"
	"testing"

	"github.com/corvid-systems/dermsg/pkg/ber"
	"github.com/corvid-systems/dermsg/pkg/berio"
	"github.com/corvid-systems/dermsg/pkg/oid"
	"github.com/corvid-systems/dermsg/pkg/schema"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

var sha256WithRSAOID = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x0b}
var sha256OID = []byte{0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x01}

func fullNode(name string, image *[]byte, tlvBytes []byte) *ber.Node {
	off := len(*image)
	*image = append(*image, tlvBytes...)
	info, err := tlv.ReadHeader(berio.NewBytesReader(tlvBytes), true, -1)
	if err != nil {
		panic(err)
	}
	return &ber.Node{Name: name, Offset: int64(off), HeaderLen: info.HeaderBytes, ContentLen: info.Length}
}

func contentNode(name string, image *[]byte, content []byte) *ber.Node {
	off := len(*image)
	*image = append(*image, content...)
	return &ber.Node{Name: name, Offset: int64(off), ContentLen: int64(len(content))}
}

func algIDTLV(oidDER []byte) []byte {
	return derSequence(derOID(oidDER))
}

func buildSignerInfoNode(image *[]byte) *ber.Node {
	version := contentNode("version", image, []byte{0x01})

	rdn := &ber.Node{Name: "rdn", Children: []*ber.Node{attrNode("atv", "2.5.4.3", "Test CA", image)}}
	rdnSeq := &ber.Node{Name: "rdnSequence", Children: []*ber.Node{rdn}}
	issuer := &ber.Node{Name: "issuer", Kind: schema.KindChoice, Children: []*ber.Node{rdnSeq}}
	serial := contentNode("serialNumber", image, []byte{0x2a})
	iasn := &ber.Node{Name: "issuerAndSerialNumber", Children: []*ber.Node{issuer, serial}}
	sid := &ber.Node{Name: "sid", Kind: schema.KindChoice, Children: []*ber.Node{iasn}}

	digestAlgorithm := fullNode("digestAlgorithm", image, algIDTLV(sha256OID))
	signatureAlgorithm := fullNode("signatureAlgorithm", image, algIDTLV(sha256WithRSAOID))

	sigBytes := bytes.Repeat([]byte{0x5a}, 16)
	octet, _ := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagOctetString, false, int64(len(sigBytes)))
	octet = append(octet, sigBytes...)
	signature := fullNode("signature", image, octet)

	signedAttrs := &ber.Node{Name: "signedAttrs", ContentLen: -1} // OPTIONAL, absent

	return &ber.Node{Name: "SignerInfo", Children: []*ber.Node{
		version, sid, digestAlgorithm, signedAttrs, signatureAlgorithm, signature,
	}}
}

// attrNode mirrors pkg/x509cert's test helper of the same name: an
// AttributeTypeAndValue node whose "type"/"value" children point at OID and
// string bytes appended to the shared image.
func attrNode(name, typeOID, value string, image *[]byte) *ber.Node {
	oidBytes, err := oid.Encode(typeOID)
	if err != nil {
		panic(err)
	}
	typeNode := contentNode("type", image, oidBytes)
	valueNode := contentNode("value", image, []byte(value))
	return &ber.Node{Name: name, Children: []*ber.Node{typeNode, valueNode}}
}

func TestParseSignerInfo(t *testing.T) {
	var image []byte
	node := buildSignerInfoNode(&image)

	view, err := ParseSignerInfo(node, image)
	if err != nil {
		t.Fatalf("ParseSignerInfo() error = %v", err)
	}
	if view.Version != 1 {
		t.Errorf("Version = %d, want 1", view.Version)
	}
	if view.IssuerSerial == nil {
		t.Fatal("IssuerSerial = nil, want non-nil")
	}
	if view.IssuerSerial.Issuer != "CN=Test CA" {
		t.Errorf("Issuer = %q, want %q", view.IssuerSerial.Issuer, "CN=Test CA")
	}
	if !bytes.Equal(view.IssuerSerial.Serial, []byte{0x2a}) {
		t.Errorf("Serial = %x, want %x", view.IssuerSerial.Serial, []byte{0x2a})
	}
	if view.DigestAlgoOID != "2.16.840.1.101.3.4.2.1" {
		t.Errorf("DigestAlgoOID = %q, want %q", view.DigestAlgoOID, "2.16.840.1.101.3.4.2.1")
	}
	if view.SignatureAlgoOID != "1.2.840.113549.1.1.11" {
		t.Errorf("SignatureAlgoOID = %q, want %q", view.SignatureAlgoOID, "1.2.840.113549.1.1.11")
	}
	if len(view.Signature) != 16 {
		t.Errorf("len(Signature) = %d, want 16", len(view.Signature))
	}
	if view.SignedAttrs != nil {
		t.Errorf("SignedAttrs = %v, want nil", view.SignedAttrs)
	}
}

func TestParseSignerInfoSigVal(t *testing.T) {
	var image []byte
	node := buildSignerInfoNode(&image)
	view, err := ParseSignerInfo(node, image)
	if err != nil {
		t.Fatalf("ParseSignerInfo() error = %v", err)
	}

	expr, err := view.SigVal(nil)
	if err != nil {
		t.Fatalf("SigVal() error = %v", err)
	}
	tag, ok := expr.Tag()
	if !ok {
		t.Fatal("expr.Tag() ok = false, want true")
	}
	if tag != "sig-val" {
		t.Errorf("tag = %q, want %q", tag, "sig-val")
	}
}

func TestParseSignerInfoSubjectKeyIDAlternative(t *testing.T) {
	var image []byte
	version := contentNode("version", &image, []byte{0x03})
	skid := contentNode("subjectKeyIdentifier", &image, []byte{0x01, 0x02, 0x03})
	sid := &ber.Node{Name: "sid", Kind: schema.KindChoice, Children: []*ber.Node{skid}}
	digestAlgorithm := fullNode("digestAlgorithm", &image, algIDTLV(sha256OID))
	signatureAlgorithm := fullNode("signatureAlgorithm", &image, algIDTLV(sha256WithRSAOID))
	octet, _ := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagOctetString, false, 4)
	octet = append(octet, []byte{1, 2, 3, 4}...)
	signature := fullNode("signature", &image, octet)
	signedAttrs := &ber.Node{Name: "signedAttrs", ContentLen: -1}

	node := &ber.Node{Name: "SignerInfo", Children: []*ber.Node{
		version, sid, digestAlgorithm, signedAttrs, signatureAlgorithm, signature,
	}}

	view, err := ParseSignerInfo(node, image)
	if err != nil {
		t.Fatalf("ParseSignerInfo() error = %v", err)
	}
	if !bytes.Equal(view.SubjectKeyID, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("SubjectKeyID = %x, want %x", view.SubjectKeyID, []byte{0x01, 0x02, 0x03})
	}
	if view.IssuerSerial != nil {
		t.Errorf("IssuerSerial = %v, want nil", view.IssuerSerial)
	}
}
