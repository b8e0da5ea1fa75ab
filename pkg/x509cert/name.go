package x509cert

import (
	"strings"

	"github.com/corvid-systems/dermsg/pkg/ber"
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/oid"
)

// rfc2253Attr maps an AttributeTypeAndValue's type OID to its RFC 2253
// short name; types without one are rendered with their dotted OID.
var rfc2253Attr = map[string]string{
	"2.5.4.3":                    "CN",
	"2.5.4.6":                    "C",
	"2.5.4.7":                    "L",
	"2.5.4.8":                    "ST",
	"2.5.4.10":                   "O",
	"2.5.4.11":                   "OU",
	"1.2.840.113549.1.9.1":       "emailAddress",
	"0.9.2342.19200300.100.1.25": "DC",
}

// NameToRFC2253 renders an already-unwrapped RDNSequence node (what
// (*ber.Node).Find returns for a Name CHOICE field, having stepped
// through the realised rdnSequence alternative) as an RFC 2253
// distinguished-name string, most-specific RDN first — the reverse of
// DER encoding order. Exported so pkg/cms can render a SignerInfo's
// issuerAndSerialNumber.issuer the same way without duplicating this
// logic.
func NameToRFC2253(rdnSeq *ber.Node, image []byte) (string, error) {
	return nameToRFC2253(rdnSeq, image)
}

func nameToRFC2253(rdnSeq *ber.Node, image []byte) (string, error) {
	var parts []string
	for _, rdn := range rdnSeq.Children {
		var attrs []string
		for _, atv := range rdn.Children {
			s, err := attrToRFC2253(atv, image)
			if err != nil {
				return "", err
			}
			attrs = append(attrs, s)
		}
		parts = append(parts, strings.Join(attrs, "+"))
	}
	// RFC 2253 §2.1: the string starts with the most specific RDN, which
	// is the LAST one in DER encoding order.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ","), nil
}

func attrToRFC2253(atv *ber.Node, image []byte) (string, error) {
	typeNode, ok := atv.Find("type")
	if !ok {
		return "", dererr.New("x509cert.attrToRFC2253", dererr.ErrInvalidObject)
	}
	valueNode, ok := atv.Find("value")
	if !ok {
		return "", dererr.New("x509cert.attrToRFC2253", dererr.ErrInvalidObject)
	}
	dotted, err := oid.Decode(typeNode.ContentBytes(image))
	if err != nil {
		return "", dererr.New("x509cert.attrToRFC2253", dererr.ErrInvalidValue)
	}
	name := rfc2253Attr[dotted]
	if name == "" {
		name = "OID." + dotted
	}
	return name + "=" + escapeRFC2253(string(valueNode.ContentBytes(image))), nil
}

func escapeRFC2253(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch r {
		case ',', '+', '"', '\\', '<', '>', ';':
			b.WriteByte('\\')
			b.WriteRune(r)
		case ' ':
			if i == 0 || i == len(s)-1 {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		case '#':
			if i == 0 {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
