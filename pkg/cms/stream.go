package cms

import (
	"github.com/corvid-systems/dermsg/pkg/berio"
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

// peekHeader reads one TLV header from src and pushes back its minimal DER
// re-encoding (with 0x80 as the length octet for an indefinite length),
// the way pkg/cms's outer parse functions look ahead at a tag (a [0]
// context wrapper, a bare SEQUENCE opening a certificate) before deciding
// whether to consume it.
func peekHeader(src berio.Reader, allowIndefinite bool) (tlv.TagInfo, error) {
	info, err := tlv.ReadHeader(src, allowIndefinite, -1)
	if err != nil {
		return info, err
	}
	header, err := tlv.WriteHeader(nil, info.Class, info.Tag, info.Constructed, info.Length)
	if err != nil {
		return info, err
	}
	if info.Indefinite {
		header, err = tlv.WriteHeader(nil, info.Class, info.Tag, info.Constructed, 0)
		if err != nil {
			return info, err
		}
		header[len(header)-1] = 0x80
	}
	if err := src.Unread(header); err != nil {
		return info, err
	}
	return info, nil
}

// readEOC consumes the two zero bytes that close an indefinite-length
// constructed value.
func readEOC(src berio.Reader) error {
	b, err := src.Read(2)
	if err != nil {
		return err
	}
	if len(b) != 2 || b[0] != 0 || b[1] != 0 {
		return dererr.New("cms.readEOC", dererr.ErrBerError)
	}
	return nil
}

// asCmsFailure rewrites a structural BER-layer failure into NoCmsObject,
// the outer boundary's failure-translation rule (spec §4.H): arbitrary
// non-CMS input should fail with one diagnosis, not whatever low-level
// tag mismatch happened to surface first.
func asCmsFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	switch dererr.KindOf(err) {
	case dererr.ErrBerError, dererr.ErrInvalidCmsObject, dererr.ErrObjectTooShort, dererr.ErrReadError:
		return dererr.New(op, dererr.ErrNoCmsObject)
	default:
		return err
	}
}
