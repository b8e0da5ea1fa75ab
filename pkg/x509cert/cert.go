// Package x509cert is the certificate facade (spec §4.G): it decodes an
// X.509 Certificate with the schema-driven BER decoder and exposes the
// handful of derived views (hash ranges, serial, names, validity, key and
// signature material) that callers actually need, without forcing them
// back through the node tree.
package x509cert

import (
	"strconv"
	"time"

	"github.com/corvid-systems/dermsg/pkg/ber"
	"github.com/corvid-systems/dermsg/pkg/berio"
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/keyinfo"
	"github.com/corvid-systems/dermsg/pkg/oid"
	"github.com/corvid-systems/dermsg/pkg/schema"
	"github.com/corvid-systems/dermsg/pkg/sexp"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

// Certificate wraps a decoded X.509 Certificate node tree together with
// the byte image it was decoded from.
type Certificate struct {
	root  *ber.Node
	image []byte
}

// Parse decodes one Certificate from src using reg's x509 grammar.
func Parse(reg *schema.Registry, src berio.Reader) (*Certificate, error) {
	mod, err := reg.Module("tmttv2")
	if err != nil {
		return nil, err
	}
	root, image, err := ber.Decode(mod, "Certificate", src)
	if err != nil {
		return nil, err
	}
	return &Certificate{root: root, image: image}, nil
}

// ParseBytes is a convenience wrapper around Parse for an in-memory
// encoding.
func ParseBytes(reg *schema.Registry, der []byte) (*Certificate, error) {
	return Parse(reg, berio.NewBytesReader(der))
}

// Image returns the captured byte encoding the certificate was decoded
// from.
func (c *Certificate) Image() []byte { return c.image }

// What selects which byte range Hash feeds to its sink.
type What int

const (
	WholeCertificate What = iota
	TBSCertificate
)

// Hash feeds the TLV encoding of the chosen node — the whole Certificate
// or just its tbsCertificate — to sink, byte for byte, with no copying
// beyond what sink itself does.
func (c *Certificate) Hash(what What, sink func([]byte)) error {
	var node *ber.Node
	switch what {
	case WholeCertificate:
		node = c.root
	case TBSCertificate:
		n, ok := c.root.Find("tbsCertificate")
		if !ok {
			return dererr.New("x509cert.Hash", dererr.ErrInvalidObject)
		}
		node = n
	default:
		return dererr.New("x509cert.Hash", dererr.ErrInvalidValue)
	}
	sink(node.Bytes(c.image))
	return nil
}

// DigestAlgo maps signatureAlgorithm's effective OID to the signature
// table's digest_hint. For ecdsa-with-specified the effective OID is the
// nested digest OID, which the signature table does not list, so that case
// reports ErrUnknownAlgorithm.
func (c *Certificate) DigestAlgo() (string, error) {
	n, ok := c.root.Find("signatureAlgorithm")
	if !ok {
		return "", dererr.New("x509cert.DigestAlgo", dererr.ErrInvalidObject)
	}
	aid, _, err := keyinfo.ParseAlgorithmIdentifier(n.Bytes(c.image))
	if err != nil {
		return "", err
	}
	entry, err := oid.LookupSig(aid.Effective)
	if err != nil {
		return "", err
	}
	if entry.DigestHint != "" {
		return entry.DigestHint, nil
	}
	return "", dererr.New("x509cert.DigestAlgo", dererr.ErrUnknownAlgorithm)
}

// TBSDigest hashes the tbsCertificate TLV with the hash algorithm
// DigestAlgo names, returning the raw digest bytes a signature
// verification would compare the decrypted signature against. Computing
// the digest is mechanical; deciding what to do with it (verify against a
// public key, build a chain) is the policy work spec §1 excludes.
func (c *Certificate) TBSDigest() ([]byte, error) {
	digestName, err := c.DigestAlgo()
	if err != nil {
		return nil, err
	}
	h, err := oid.NewHasher(digestName)
	if err != nil {
		return nil, err
	}
	if err := c.Hash(TBSCertificate, func(b []byte) { h.Write(b) }); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// Serial returns the certificate's serial number as a 4-byte big-endian
// length prefix followed by its raw two's-complement integer bytes.
func (c *Certificate) Serial() ([]byte, error) {
	n, ok := c.root.Find("tbsCertificate.serialNumber")
	if !ok {
		return nil, dererr.New("x509cert.Serial", dererr.ErrInvalidObject)
	}
	content := n.ContentBytes(c.image)
	out := make([]byte, 4+len(content))
	out[0] = byte(len(content) >> 24)
	out[1] = byte(len(content) >> 16)
	out[2] = byte(len(content) >> 8)
	out[3] = byte(len(content))
	copy(out[4:], content)
	return out, nil
}

// Issuer returns the RFC 2253 string form of tbsCertificate.issuer.
func (c *Certificate) Issuer() (string, error) {
	n, ok := c.root.Find("tbsCertificate.issuer")
	if !ok {
		return "", dererr.New("x509cert.Issuer", dererr.ErrInvalidObject)
	}
	return nameToRFC2253(n, c.image)
}

// Subject returns the RFC 2253 string form of tbsCertificate.subject.
func (c *Certificate) Subject() (string, error) {
	n, ok := c.root.Find("tbsCertificate.subject")
	if !ok {
		return "", dererr.New("x509cert.Subject", dererr.ErrInvalidObject)
	}
	return nameToRFC2253(n, c.image)
}

// Which selects notBefore or notAfter for Validity.
type Which int

const (
	NotBefore Which = iota
	NotAfter
)

// Validity returns the chosen bound as Unix seconds, or ok=false if the
// field is absent (never for a conforming certificate, but tolerated).
func (c *Certificate) Validity(which Which) (epoch int64, ok bool, err error) {
	field := "notBefore"
	if which == NotAfter {
		field = "notAfter"
	}
	n, found := c.root.Find("tbsCertificate.validity." + field)
	if !found || n.IsPlaceholder() {
		return 0, false, nil
	}
	t, err := parseTime(n, c.image)
	if err != nil {
		return 0, false, err
	}
	return t.Unix(), true, nil
}

// utcTimePivot is spec §6's two-digit-year pivot for UTCTime: 00..49 maps
// to 2000..2049, 50..99 to 1950..1999. This differs from time.Parse's own
// "06" layout pivot (69), so UTCTime is parsed by hand instead.
const utcTimePivot = 50

func parseTime(n *ber.Node, image []byte) (time.Time, error) {
	raw := string(n.ContentBytes(image))
	if n.Tag.Tag == tlv.TagGeneralTime {
		if len(raw) > 0 && raw[len(raw)-1] == 'Z' {
			raw = raw[:len(raw)-1] + "+0000"
		}
		t, err := time.Parse("20060102150405Z0700", raw)
		if err != nil {
			return time.Time{}, dererr.New("x509cert.parseTime", dererr.ErrInvalidValue)
		}
		return t, nil
	}
	return parseUTCTime(raw)
}

func parseUTCTime(raw string) (time.Time, error) {
	if len(raw) != 13 || raw[12] != 'Z' {
		return time.Time{}, dererr.New("x509cert.parseUTCTime", dererr.ErrInvalidValue)
	}
	yy, err := strconv.Atoi(raw[0:2])
	if err != nil {
		return time.Time{}, dererr.New("x509cert.parseUTCTime", dererr.ErrInvalidValue)
	}
	year := 1900 + yy
	if yy < utcTimePivot {
		year = 2000 + yy
	}
	month, err1 := strconv.Atoi(raw[2:4])
	day, err2 := strconv.Atoi(raw[4:6])
	hour, err3 := strconv.Atoi(raw[6:8])
	min, err4 := strconv.Atoi(raw[8:10])
	sec, err5 := strconv.Atoi(raw[10:12])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return time.Time{}, dererr.New("x509cert.parseUTCTime", dererr.ErrInvalidValue)
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC), nil
}

// PublicKey applies pkg/keyinfo to subjectPublicKeyInfo, returning its
// symbolic "(public-key ...)" form.
func (c *Certificate) PublicKey(opts *keyinfo.Options) (sexp.Expr, error) {
	n, ok := c.root.Find("tbsCertificate.subjectPublicKeyInfo")
	if !ok {
		return sexp.Expr{}, dererr.New("x509cert.PublicKey", dererr.ErrInvalidObject)
	}
	return keyinfo.KeyInfoToSexp(n.Bytes(c.image), opts)
}

// SigVal applies pkg/keyinfo to the concatenation of signatureAlgorithm
// and the adjacent signature BIT STRING, returning its symbolic
// "(sig-val ...)" form.
func (c *Certificate) SigVal(opts *keyinfo.Options) (sexp.Expr, error) {
	algo, ok := c.root.Find("signatureAlgorithm")
	if !ok {
		return sexp.Expr{}, dererr.New("x509cert.SigVal", dererr.ErrInvalidObject)
	}
	sig, ok := c.root.Find("signature")
	if !ok {
		return sexp.Expr{}, dererr.New("x509cert.SigVal", dererr.ErrInvalidObject)
	}
	data := append([]byte{}, algo.Bytes(c.image)...)
	data = append(data, sig.Bytes(c.image)...)
	return keyinfo.SigValToSexp(data, opts)
}

// Root exposes the decoded tree for callers that need extension lookups
// beyond this facade (see extensions.go).
func (c *Certificate) Root() *ber.Node { return c.root }
