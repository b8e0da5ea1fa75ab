package x509cert

import (
	"github.com/corvid-systems/dermsg/pkg/berio"
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/oid"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

const (
	oidBasicConstraints     = "2.5.29.19"
	oidKeyUsage             = "2.5.29.15"
	oidSubjectKeyIdentifier = "2.5.29.14"
	oidAuthorityKeyID       = "2.5.29.35"
	oidSubjectAltName       = "2.5.29.17"
)

// findExtension returns the extnValue OCTET STRING content of the named
// extension, or ok=false if the certificate carries no such extension.
func (c *Certificate) findExtension(dottedOID string) (value []byte, critical bool, ok bool, err error) {
	wrapper, found := c.root.Find("tbsCertificate.extensions")
	if !found || wrapper.IsPlaceholder() {
		return nil, false, false, nil
	}
	// extensions is "[3] EXPLICIT Extensions OPTIONAL": Find stops at the
	// KindTagged wrapper (it only unwraps CHOICE), so the actual SEQUENCE OF
	// Extension is wrapper's one child.
	if len(wrapper.Children) != 1 {
		return nil, false, false, dererr.New("x509cert.findExtension", dererr.ErrInvalidObject)
	}
	for _, ext := range wrapper.Children[0].Children {
		idNode, has := ext.Find("extnID")
		if !has {
			continue
		}
		dotted, derr := oid.Decode(idNode.ContentBytes(c.image))
		if derr != nil {
			continue
		}
		if dotted != dottedOID {
			continue
		}
		valNode, has := ext.Find("extnValue")
		if !has {
			return nil, false, false, dererr.New("x509cert.findExtension", dererr.ErrInvalidObject)
		}
		isCritical := false
		if critNode, has := ext.Find("critical"); has && !critNode.IsPlaceholder() {
			content := critNode.ContentBytes(c.image)
			isCritical = len(content) == 1 && content[0] != 0
		}
		return valNode.ContentBytes(c.image), isCritical, true, nil
	}
	return nil, false, false, nil
}

// BasicConstraints reports the BasicConstraints extension's cA flag and,
// if present, its pathLenConstraint.
type BasicConstraints struct {
	IsCA       bool
	PathLen    int
	HasPathLen bool
}

// BasicConstraints parses the BasicConstraints extension, if present.
func (c *Certificate) BasicConstraints() (BasicConstraints, bool, error) {
	val, _, ok, err := c.findExtension(oidBasicConstraints)
	if err != nil || !ok {
		return BasicConstraints{}, false, err
	}
	cur := newRawCursor(val)
	_, body, err := cur.expect(tlv.ClassUniversal, tlv.TagSequence, true)
	if err != nil {
		return BasicConstraints{}, false, err
	}
	inner := newRawCursor(body)
	var bc BasicConstraints
	if inner.remaining() > 0 {
		info, err := inner.peek()
		if err != nil {
			return BasicConstraints{}, false, err
		}
		if info.Class == tlv.ClassUniversal && info.Tag == tlv.TagBoolean {
			_, content, err := inner.expect(tlv.ClassUniversal, tlv.TagBoolean, false)
			if err != nil {
				return BasicConstraints{}, false, err
			}
			bc.IsCA = len(content) == 1 && content[0] != 0
		}
	}
	if inner.remaining() > 0 {
		_, content, err := inner.expect(tlv.ClassUniversal, tlv.TagInteger, false)
		if err != nil {
			return BasicConstraints{}, false, err
		}
		bc.PathLen = int(bigEndianInt(content))
		bc.HasPathLen = true
	}
	return bc, true, nil
}

// KeyUsage bits, in the order RFC 5280 §4.2.1.3 numbers them.
type KeyUsage uint16

const (
	KeyUsageDigitalSignature KeyUsage = 1 << 0
	KeyUsageNonRepudiation   KeyUsage = 1 << 1
	KeyUsageKeyEncipherment  KeyUsage = 1 << 2
	KeyUsageDataEncipherment KeyUsage = 1 << 3
	KeyUsageKeyAgreement     KeyUsage = 1 << 4
	KeyUsageKeyCertSign      KeyUsage = 1 << 5
	KeyUsageCRLSign          KeyUsage = 1 << 6
)

// KeyUsage parses the KeyUsage extension's BIT STRING into a bitmask.
func (c *Certificate) KeyUsage() (KeyUsage, bool, error) {
	val, _, ok, err := c.findExtension(oidKeyUsage)
	if err != nil || !ok {
		return 0, false, err
	}
	cur := newRawCursor(val)
	_, content, err := cur.expect(tlv.ClassUniversal, tlv.TagBitString, false)
	if err != nil {
		return 0, false, err
	}
	if len(content) < 2 {
		return 0, false, dererr.New("x509cert.KeyUsage", dererr.ErrInvalidObject)
	}
	bits := content[1:]
	var out KeyUsage
	for i := 0; i < 7 && i/8 < len(bits); i++ {
		if bits[i/8]&(0x80>>(i%8)) != 0 {
			out |= 1 << i
		}
	}
	return out, true, nil
}

// SubjectKeyID returns the SubjectKeyIdentifier extension's raw bytes.
func (c *Certificate) SubjectKeyID() ([]byte, bool, error) {
	val, _, ok, err := c.findExtension(oidSubjectKeyIdentifier)
	if err != nil || !ok {
		return nil, false, err
	}
	cur := newRawCursor(val)
	_, content, err := cur.expect(tlv.ClassUniversal, tlv.TagOctetString, false)
	if err != nil {
		return nil, false, err
	}
	return content, true, nil
}

// AuthorityKeyID returns the AuthorityKeyIdentifier extension's
// keyIdentifier field, if present.
func (c *Certificate) AuthorityKeyID() ([]byte, bool, error) {
	val, _, ok, err := c.findExtension(oidAuthorityKeyID)
	if err != nil || !ok {
		return nil, false, err
	}
	cur := newRawCursor(val)
	_, body, err := cur.expect(tlv.ClassUniversal, tlv.TagSequence, true)
	if err != nil {
		return nil, false, err
	}
	inner := newRawCursor(body)
	if inner.remaining() == 0 {
		return nil, false, nil
	}
	info, err := inner.peek()
	if err != nil {
		return nil, false, err
	}
	if info.Class != tlv.ClassContext || info.Tag != 0 {
		return nil, false, nil
	}
	_, content, err := inner.expect(tlv.ClassContext, 0, false)
	if err != nil {
		return nil, false, err
	}
	return content, true, nil
}

// SubjectAltNames returns the dNSName, rfc822Name, and iPAddress entries
// of the SubjectAltName extension, if present. Other GeneralName forms
// (directoryName, uniformResourceIdentifier, otherName, ...) are skipped;
// this codec only ever needs the three forms CMS-certificate lookups by
// identity actually compare against.
type GeneralName struct {
	Kind  string // "dns", "email", "ip"
	Value string
}

func (c *Certificate) SubjectAltNames() ([]GeneralName, bool, error) {
	val, _, ok, err := c.findExtension(oidSubjectAltName)
	if err != nil || !ok {
		return nil, false, err
	}
	cur := newRawCursor(val)
	_, body, err := cur.expect(tlv.ClassUniversal, tlv.TagSequence, true)
	if err != nil {
		return nil, false, err
	}
	inner := newRawCursor(body)
	var names []GeneralName
	for inner.remaining() > 0 {
		info, err := inner.peek()
		if err != nil {
			return nil, false, err
		}
		if info.Class != tlv.ClassContext {
			if _, err := inner.skip(); err != nil {
				return nil, false, err
			}
			continue
		}
		_, content, err := inner.expect(tlv.ClassContext, info.Tag, info.Constructed)
		if err != nil {
			return nil, false, err
		}
		switch info.Tag {
		case 1:
			names = append(names, GeneralName{Kind: "email", Value: string(content)})
		case 2:
			names = append(names, GeneralName{Kind: "dns", Value: string(content)})
		case 7:
			names = append(names, GeneralName{Kind: "ip", Value: formatIP(content)})
		}
	}
	return names, true, nil
}

func formatIP(b []byte) string {
	if len(b) != 4 && len(b) != 16 {
		return string(b)
	}
	out := make([]byte, 0, len(b)*4)
	for i, o := range b {
		if i > 0 {
			out = append(out, '.')
		}
		out = append(out, []byte(itoaByte(o))...)
	}
	return string(out)
}

func itoaByte(b byte) string {
	if b == 0 {
		return "0"
	}
	var buf [3]byte
	i := 3
	for b > 0 {
		i--
		buf[i] = '0' + b%10
		b /= 10
	}
	return string(buf[i:])
}

func bigEndianInt(b []byte) int64 {
	var v int64
	for _, x := range b {
		v = v<<8 | int64(x)
	}
	return v
}

// rawCursor is the extension-parsing analogue of pkg/keyinfo's cursor:
// a flat TLV walker over a single extnValue blob, independent of the
// certificate's own schema-driven decode.
type rawCursor struct {
	r     berio.Reader
	total int64
}

func newRawCursor(data []byte) *rawCursor {
	return &rawCursor{r: berio.NewBytesReader(data), total: int64(len(data))}
}

func (c *rawCursor) remaining() int64 { return c.total - c.r.Tell() }

func (c *rawCursor) peek() (tlv.TagInfo, error) {
	info, err := tlv.ReadHeader(c.r, false, c.remaining())
	if err != nil {
		return info, err
	}
	header, err := tlv.WriteHeader(nil, info.Class, info.Tag, info.Constructed, info.Length)
	if err != nil {
		return info, err
	}
	if err := c.r.Unread(header); err != nil {
		return info, err
	}
	return info, nil
}

func (c *rawCursor) expect(class tlv.Class, tag uint32, constructed bool) (tlv.TagInfo, []byte, error) {
	info, err := tlv.ReadHeader(c.r, false, c.remaining())
	if err != nil {
		return tlv.TagInfo{}, nil, err
	}
	if info.Class != class || info.Tag != tag || info.Constructed != constructed {
		return tlv.TagInfo{}, nil, dererr.New("x509cert.rawCursor.expect", dererr.ErrUnexpectedTag)
	}
	content, err := c.r.Read(int(info.Length))
	if err != nil {
		return tlv.TagInfo{}, nil, err
	}
	return info, content, nil
}

func (c *rawCursor) skip() (tlv.TagInfo, error) {
	info, err := tlv.ReadHeader(c.r, false, c.remaining())
	if err != nil {
		return info, err
	}
	if _, err := c.r.Read(int(info.Length)); err != nil {
		return info, err
	}
	return info, nil
}
