package x509cert

import (
	"testing"

	"github.com/corvid-systems/dermsg/pkg/ber"
	"github.com/corvid-systems/dermsg/pkg/oid"
)

// field builds a leaf *ber.Node whose ContentBytes returns content exactly,
// by placing content at the given offset inside image and recording a
// zero-length header (only ContentBytes is exercised by the code under
// test here, never Bytes/Tag).
func field(name string, image []byte, offset int, content []byte) *ber.Node {
	return &ber.Node{Name: name, Offset: int64(offset), HeaderLen: 0, ContentLen: int64(len(content))}
}

func attrNode(name string, typeOID string, value string, image *[]byte) *ber.Node {
	oidBytes, err := oid.Encode(typeOID)
	if err != nil {
		panic(err)
	}
	typeOffset := len(*image)
	*image = append(*image, oidBytes...)
	valueOffset := len(*image)
	*image = append(*image, []byte(value)...)

	return &ber.Node{
		Name: name,
		Children: []*ber.Node{
			field("type", *image, typeOffset, oidBytes),
			field("value", *image, valueOffset, []byte(value)),
		},
	}
}

func TestNameToRFC2253SingleRDN(t *testing.T) {
	var image []byte
	cn := attrNode("atv", "2.5.4.3", "test.local", &image)
	rdn := &ber.Node{Name: "rdn", Children: []*ber.Node{cn}}
	rdnSeq := &ber.Node{Name: "rdnSequence", Children: []*ber.Node{rdn}}

	got, err := NameToRFC2253(rdnSeq, image)
	if err != nil {
		t.Fatalf("NameToRFC2253() error = %v", err)
	}
	if got != "CN=test.local" {
		t.Errorf("NameToRFC2253() = %q, want %q", got, "CN=test.local")
	}
}

func TestNameToRFC2253MultipleRDNsReversedOrder(t *testing.T) {
	var image []byte
	c := attrNode("atv", "2.5.4.6", "US", &image)
	o := attrNode("atv", "2.5.4.10", "Example Corp", &image)
	cn := attrNode("atv", "2.5.4.3", "leaf.example.com", &image)

	rdnSeq := &ber.Node{Name: "rdnSequence", Children: []*ber.Node{
		{Name: "rdn", Children: []*ber.Node{c}},
		{Name: "rdn", Children: []*ber.Node{o}},
		{Name: "rdn", Children: []*ber.Node{cn}},
	}}

	got, err := NameToRFC2253(rdnSeq, image)
	if err != nil {
		t.Fatalf("NameToRFC2253() error = %v", err)
	}
	want := "CN=leaf.example.com,O=Example Corp,C=US"
	if got != want {
		t.Errorf("NameToRFC2253() = %q, want %q", got, want)
	}
}

func TestNameToRFC2253MultiValuedRDN(t *testing.T) {
	var image []byte
	cn := attrNode("atv", "2.5.4.3", "multi", &image)
	ou := attrNode("atv", "2.5.4.11", "Eng", &image)
	rdnSeq := &ber.Node{Name: "rdnSequence", Children: []*ber.Node{
		{Name: "rdn", Children: []*ber.Node{cn, ou}},
	}}

	got, err := NameToRFC2253(rdnSeq, image)
	if err != nil {
		t.Fatalf("NameToRFC2253() error = %v", err)
	}
	if got != "CN=multi+OU=Eng" {
		t.Errorf("NameToRFC2253() = %q, want %q", got, "CN=multi+OU=Eng")
	}
}

func TestNameToRFC2253UnknownOIDFallsBackToDotted(t *testing.T) {
	var image []byte
	attr := attrNode("atv", "1.2.3.4.5", "value", &image)
	rdnSeq := &ber.Node{Name: "rdnSequence", Children: []*ber.Node{
		{Name: "rdn", Children: []*ber.Node{attr}},
	}}

	got, err := NameToRFC2253(rdnSeq, image)
	if err != nil {
		t.Fatalf("NameToRFC2253() error = %v", err)
	}
	if got != "OID.1.2.3.4.5=value" {
		t.Errorf("NameToRFC2253() = %q, want %q", got, "OID.1.2.3.4.5=value")
	}
}

func TestNameToRFC2253EscapesSpecialCharacters(t *testing.T) {
	var image []byte
	attr := attrNode("atv", "2.5.4.3", "a,b+c", &image)
	rdnSeq := &ber.Node{Name: "rdnSequence", Children: []*ber.Node{
		{Name: "rdn", Children: []*ber.Node{attr}},
	}}

	got, err := NameToRFC2253(rdnSeq, image)
	if err != nil {
		t.Fatalf("NameToRFC2253() error = %v", err)
	}
	if got != `CN=a\,b\+c` {
		t.Errorf("NameToRFC2253() = %q, want %q", got, `CN=a\,b\+c`)
	}
}

func TestNameToRFC2253EmptyRDNSequence(t *testing.T) {
	rdnSeq := &ber.Node{Name: "rdnSequence"}
	got, err := NameToRFC2253(rdnSeq, nil)
	if err != nil {
		t.Fatalf("NameToRFC2253() error = %v", err)
	}
	if got != "" {
		t.Errorf("NameToRFC2253() = %q, want empty string", got)
	}
}
