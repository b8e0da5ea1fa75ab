// Package cms is the CMS (RFC 5652) outer streaming parser (spec §4.H). Its
// outer structures — ContentInfo, SignedData, EnvelopedData — are
// indefinite-length constructed and arbitrarily large, so this package
// drives pkg/berio and pkg/tlv directly instead of routing through the
// schema-driven decoder; it hands pkg/ber the one thing that IS bounded and
// worth decoding as a tree: the SignerInfos/RecipientInfos SET and
// individual Certificates.
package cms

import (
	"github.com/corvid-systems/dermsg/pkg/berio"
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/oid"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

// ContentInfo is the result of parsing a ContentInfo (or EncapsulatedContentInfo)
// SEQUENCE: contentType OID, content [0] EXPLICIT ANY OPTIONAL. The caller
// continues reading the actual content structure from src immediately after
// this call returns; Close must be invoked once that's done, to consume any
// indefinite-length EOCs this frame owns.
type ContentInfo struct {
	ContentOID       string
	InnerLength      int64
	Indefinite       bool // true if the [0] content wrapper is indefinite-length
	HasContent       bool
	outerIndefinite  bool
}

// ParseContentInfo reads the SEQUENCE + contentType OID + optional [0]
// EXPLICIT content header from src. It is used both as the outermost parse
// and for EncapsulatedContentInfo (spec §4.H): in both cases the shape is
// "OID, then an optional [0]-tagged wrapper around whatever comes next."
func ParseContentInfo(src berio.Reader) (ContentInfo, error) {
	outer, err := tlv.ReadHeader(src, true, -1)
	if err != nil {
		return ContentInfo{}, asCmsFailure("cms.ParseContentInfo", err)
	}
	if outer.Class != tlv.ClassUniversal || outer.Tag != tlv.TagSequence || !outer.Constructed {
		return ContentInfo{}, dererr.New("cms.ParseContentInfo", dererr.ErrNoCmsObject)
	}

	oidInfo, err := tlv.ReadHeader(src, false, -1)
	if err != nil {
		return ContentInfo{}, asCmsFailure("cms.ParseContentInfo", err)
	}
	if oidInfo.Class != tlv.ClassUniversal || oidInfo.Tag != tlv.TagOID || oidInfo.Constructed {
		return ContentInfo{}, dererr.New("cms.ParseContentInfo", dererr.ErrNoCmsObject)
	}
	oidBytes, err := src.Read(int(oidInfo.Length))
	if err != nil {
		return ContentInfo{}, asCmsFailure("cms.ParseContentInfo", err)
	}
	dotted, err := oid.Decode(oidBytes)
	if err != nil {
		return ContentInfo{}, dererr.New("cms.ParseContentInfo", dererr.ErrInvalidCmsObject)
	}

	ci := ContentInfo{ContentOID: dotted, outerIndefinite: outer.Indefinite}

	tag, err := peekHeader(src, true)
	if err != nil {
		// No further bytes at all is legal: content is OPTIONAL.
		return ci, nil
	}
	if tag.Class != tlv.ClassContext || tag.Tag != 0 || !tag.Constructed {
		return ci, nil
	}
	wrapper, err := tlv.ReadHeader(src, true, -1)
	if err != nil {
		return ContentInfo{}, asCmsFailure("cms.ParseContentInfo", err)
	}
	ci.HasContent = true
	ci.InnerLength = wrapper.Length
	ci.Indefinite = wrapper.Indefinite
	return ci, nil
}

// Close consumes the EOC octets owned by this ContentInfo frame — the [0]
// content wrapper's, then the outer SEQUENCE's — once the caller has fully
// read whatever structure lives inside. Both no-ops when their respective
// length was definite.
func (ci ContentInfo) Close(src berio.Reader) error {
	if ci.HasContent && ci.Indefinite {
		if err := readEOC(src); err != nil {
			return err
		}
	}
	if ci.outerIndefinite {
		if err := readEOC(src); err != nil {
			return err
		}
	}
	return nil
}
