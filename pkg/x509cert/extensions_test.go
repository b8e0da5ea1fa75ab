package x509cert

import (
	"bytes"
	"testing"

	"github.com/corvid-systems/dermsg/pkg/ber"
	"github.com/corvid-systems/dermsg/pkg/oid"
	"github.com/corvid-systems/dermsg/pkg/schema"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

type extDef struct {
	oid      string
	critical bool
	value    []byte // extnValue content (the OCTET STRING's payload, not re-wrapped)
}

// buildCert assembles a *Certificate whose tbsCertificate.extensions tree
// matches what the schema-driven decoder would hand findExtension, without
// going through pkg/schema or pkg/ber's own decode path.
func buildCert(defs []extDef) *Certificate {
	var image []byte
	appendBytes := func(b []byte) (offset int) {
		offset = len(image)
		image = append(image, b...)
		return offset
	}
	leaf := func(name string, b []byte) *ber.Node {
		off := appendBytes(b)
		return &ber.Node{Name: name, Offset: int64(off), ContentLen: int64(len(b))}
	}
	placeholder := func(name string) *ber.Node {
		return &ber.Node{Name: name, ContentLen: -1}
	}

	var extNodes []*ber.Node
	for _, d := range defs {
		oidBytes, err := oid.Encode(d.oid)
		if err != nil {
			panic(err)
		}
		children := []*ber.Node{leaf("extnID", oidBytes)}
		if d.critical {
			children = append(children, leaf("critical", []byte{0xff}))
		} else {
			children = append(children, placeholder("critical"))
		}
		children = append(children, leaf("extnValue", d.value))
		extNodes = append(extNodes, &ber.Node{Name: "extension", Children: children})
	}

	seqOfExt := &ber.Node{Name: "Extensions", Children: extNodes}
	extensions := &ber.Node{Name: "extensions", Kind: schema.KindTagged, Children: []*ber.Node{seqOfExt}}
	tbs := &ber.Node{Name: "tbsCertificate", Children: []*ber.Node{extensions}}
	root := &ber.Node{Name: "Certificate", Children: []*ber.Node{tbs}}

	return &Certificate{root: root, image: image}
}

func derSeq(b []byte) []byte {
	out, _ := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagSequence, true, int64(len(b)))
	return append(out, b...)
}

func derBool(v bool) []byte {
	b := byte(0)
	if v {
		b = 0xff
	}
	out, _ := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagBoolean, false, 1)
	return append(out, b)
}

func derIntVal(v byte) []byte {
	out, _ := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagInteger, false, 1)
	return append(out, v)
}

func TestBasicConstraintsCAWithPathLen(t *testing.T) {
	content := derSeq(append(derBool(true), derIntVal(3)...))
	c := buildCert([]extDef{{oid: "2.5.29.19", critical: true, value: content}})

	bc, ok, err := c.BasicConstraints()
	if err != nil {
		t.Fatalf("BasicConstraints() error = %v", err)
	}
	if !ok {
		t.Fatal("BasicConstraints() ok = false, want true")
	}
	if !bc.IsCA || !bc.HasPathLen || bc.PathLen != 3 {
		t.Errorf("BasicConstraints() = %+v, want IsCA=true HasPathLen=true PathLen=3", bc)
	}
}

func TestBasicConstraintsAbsent(t *testing.T) {
	c := buildCert(nil)
	_, ok, err := c.BasicConstraints()
	if err != nil {
		t.Fatalf("BasicConstraints() error = %v", err)
	}
	if ok {
		t.Error("BasicConstraints() ok = true, want false for a certificate without the extension")
	}
}

func TestBasicConstraintsLeafNoPathLen(t *testing.T) {
	content := derSeq(nil) // empty SEQUENCE: cA defaults false, no pathLen
	c := buildCert([]extDef{{oid: "2.5.29.19", value: content}})
	bc, ok, err := c.BasicConstraints()
	if err != nil {
		t.Fatalf("BasicConstraints() error = %v", err)
	}
	if !ok {
		t.Fatal("expected ok = true")
	}
	if bc.IsCA || bc.HasPathLen {
		t.Errorf("BasicConstraints() = %+v, want IsCA=false HasPathLen=false", bc)
	}
}

func TestKeyUsageBits(t *testing.T) {
	// digitalSignature (bit 0) + keyCertSign (bit 5): 1000 0100 = 0x84, 2 unused bits
	bitStringBody := []byte{0x02, 0x84}
	out, _ := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagBitString, false, int64(len(bitStringBody)))
	content := append(out, bitStringBody...)
	c := buildCert([]extDef{{oid: "2.5.29.15", critical: true, value: content}})

	ku, ok, err := c.KeyUsage()
	if err != nil {
		t.Fatalf("KeyUsage() error = %v", err)
	}
	if !ok {
		t.Fatal("KeyUsage() ok = false, want true")
	}
	want := KeyUsageDigitalSignature | KeyUsageKeyCertSign
	if ku != want {
		t.Errorf("KeyUsage() = %b, want %b", ku, want)
	}
}

func TestSubjectKeyID(t *testing.T) {
	skid := []byte{0x01, 0x02, 0x03, 0x04}
	out, _ := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagOctetString, false, int64(len(skid)))
	content := append(out, skid...)
	c := buildCert([]extDef{{oid: "2.5.29.14", value: content}})

	got, ok, err := c.SubjectKeyID()
	if err != nil {
		t.Fatalf("SubjectKeyID() error = %v", err)
	}
	if !ok || !bytes.Equal(got, skid) {
		t.Errorf("SubjectKeyID() = %x, %v, want %x, true", got, ok, skid)
	}
}

func TestAuthorityKeyID(t *testing.T) {
	akid := []byte{0xaa, 0xbb, 0xcc}
	ctx0, _ := tlv.WriteHeader(nil, tlv.ClassContext, 0, false, int64(len(akid)))
	content := derSeq(append(ctx0, akid...))
	c := buildCert([]extDef{{oid: "2.5.29.35", value: content}})

	got, ok, err := c.AuthorityKeyID()
	if err != nil {
		t.Fatalf("AuthorityKeyID() error = %v", err)
	}
	if !ok || !bytes.Equal(got, akid) {
		t.Errorf("AuthorityKeyID() = %x, %v, want %x, true", got, ok, akid)
	}
}

func TestSubjectAltNames(t *testing.T) {
	dnsName, _ := tlv.WriteHeader(nil, tlv.ClassContext, 2, false, int64(len("example.com")))
	dnsName = append(dnsName, []byte("example.com")...)

	email, _ := tlv.WriteHeader(nil, tlv.ClassContext, 1, false, int64(len("a@example.com")))
	email = append(email, []byte("a@example.com")...)

	ip, _ := tlv.WriteHeader(nil, tlv.ClassContext, 7, false, 4)
	ip = append(ip, []byte{127, 0, 0, 1}...)

	content := derSeq(append(append(dnsName, email...), ip...))
	c := buildCert([]extDef{{oid: "2.5.29.17", value: content}})

	names, ok, err := c.SubjectAltNames()
	if err != nil {
		t.Fatalf("SubjectAltNames() error = %v", err)
	}
	if !ok {
		t.Fatal("SubjectAltNames() ok = false, want true")
	}
	want := []GeneralName{
		{Kind: "dns", Value: "example.com"},
		{Kind: "email", Value: "a@example.com"},
		{Kind: "ip", Value: "127.0.0.1"},
	}
	if len(names) != len(want) {
		t.Fatalf("len(names) = %d, want %d: %+v", len(names), len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %+v, want %+v", i, names[i], want[i])
		}
	}
}
