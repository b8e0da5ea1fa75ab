package cms

import (
	"github.com/corvid-systems/dermsg/pkg/ber"
	"github.com/corvid-systems/dermsg/pkg/berio"
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/keyinfo"
	"github.com/corvid-systems/dermsg/pkg/schema"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

// EncryptedContent describes the (optional) "[0] IMPLICIT OCTET STRING"
// encryptedContent field of an EncryptedContentInfo: present or absent,
// and — if present — the length/indefiniteness the caller needs to stream
// the ciphertext itself, the same way ContentInfo leaves
// EncapsulatedContentInfo's eContent to the caller instead of buffering it.
type EncryptedContent struct {
	Present    bool
	Length     int64
	Indefinite bool
}

// EnvelopedDataPart1 is everything ParseEnvelopedDataPart1 reads: version,
// recipientInfos (as a decoded pkg/ber tree, as SignedData's signerInfos
// are), and
// EncryptedContentInfo's header fields. The caller streams the ciphertext
// (if EncryptedContent.Present) and calls Close once done.
type EnvelopedDataPart1 struct {
	Version                int
	RecipientInfosRoot     *ber.Node
	RecipientInfosImage    []byte
	ContentEncryptionOID   string
	ContentEncryptionParam []byte // raw AlgorithmIdentifier parameters (IV for CBC, GCMParameters for GCM)
	EncryptedContent       EncryptedContent

	outerIndefinite bool
	eciIndefinite   bool
}

// ParseEnvelopedDataPart1 reads EnvelopedData's version, (rejected)
// originatorInfo, recipientInfos, and encryptedContentInfo fields (spec
// §4.H). originatorInfo's presence is rejected with UnsupportedCmsObject —
// libksba's cms parser makes the same restriction; no caller in this
// corpus needs certificate/CRL material carried inline in the envelope
// when the recipient's own certificate is supplied out of band.
func ParseEnvelopedDataPart1(reg *schema.Registry, src berio.Reader) (EnvelopedDataPart1, error) {
	cmsMod, err := reg.Module("cms")
	if err != nil {
		return EnvelopedDataPart1{}, err
	}

	outer, err := tlv.ReadHeader(src, true, -1)
	if err != nil {
		return EnvelopedDataPart1{}, asCmsFailure("cms.ParseEnvelopedDataPart1", err)
	}
	if outer.Class != tlv.ClassUniversal || outer.Tag != tlv.TagSequence || !outer.Constructed {
		return EnvelopedDataPart1{}, dererr.New("cms.ParseEnvelopedDataPart1", dererr.ErrInvalidCmsObject)
	}

	version, err := readSmallInteger(src)
	if err != nil {
		return EnvelopedDataPart1{}, err
	}

	tag, err := peekHeader(src, true)
	if err != nil {
		return EnvelopedDataPart1{}, asCmsFailure("cms.ParseEnvelopedDataPart1", err)
	}
	if tag.Class == tlv.ClassContext && tag.Tag == 0 {
		return EnvelopedDataPart1{}, dererr.New("cms.ParseEnvelopedDataPart1", dererr.ErrUnsupportedCmsObject)
	}

	riRoot, riImage, err := ber.Decode(cmsMod, "RecipientInfos", src)
	if err != nil {
		return EnvelopedDataPart1{}, err
	}

	eci, err := tlv.ReadHeader(src, true, -1)
	if err != nil {
		return EnvelopedDataPart1{}, asCmsFailure("cms.ParseEnvelopedDataPart1", err)
	}
	if eci.Class != tlv.ClassUniversal || eci.Tag != tlv.TagSequence || !eci.Constructed {
		return EnvelopedDataPart1{}, dererr.New("cms.ParseEnvelopedDataPart1", dererr.ErrInvalidCmsObject)
	}

	// contentType OID — not retained; EncryptedContentInfo's own content
	// type is almost always id-data and callers that care can re-derive it
	// from the outer ContentInfo.
	if _, err := readWholeTLV(src); err != nil {
		return EnvelopedDataPart1{}, err
	}

	algTLV, err := readWholeTLV(src)
	if err != nil {
		return EnvelopedDataPart1{}, err
	}
	aid, _, err := keyinfo.ParseAlgorithmIdentifier(algTLV)
	if err != nil {
		return EnvelopedDataPart1{}, err
	}

	out := EnvelopedDataPart1{
		Version:                version,
		RecipientInfosRoot:     riRoot,
		RecipientInfosImage:    riImage,
		ContentEncryptionOID:   aid.OID,
		ContentEncryptionParam: aid.ParamBytes,
		outerIndefinite:        outer.Indefinite,
		eciIndefinite:          eci.Indefinite,
	}

	contentTag, err := peekHeader(src, true)
	if err != nil {
		// No further bytes: encryptedContent OPTIONAL was omitted and this
		// EncryptedContentInfo was the last thing in a definite-length
		// EnvelopedData.
		return out, nil
	}
	if contentTag.Class == tlv.ClassContext && contentTag.Tag == 0 {
		wrapper, err := tlv.ReadHeader(src, true, -1)
		if err != nil {
			return EnvelopedDataPart1{}, asCmsFailure("cms.ParseEnvelopedDataPart1", err)
		}
		out.EncryptedContent = EncryptedContent{Present: true, Length: wrapper.Length, Indefinite: wrapper.Indefinite}
	}
	return out, nil
}

// Close consumes the EOC octets this EnvelopedDataPart1 frame owns, once
// the caller has fully streamed encryptedContent (if present).
func (p EnvelopedDataPart1) Close(src berio.Reader) error {
	if p.EncryptedContent.Present && p.EncryptedContent.Indefinite {
		if err := readEOC(src); err != nil {
			return err
		}
	}
	if p.eciIndefinite {
		if err := readEOC(src); err != nil {
			return err
		}
	}
	if p.outerIndefinite {
		if err := readEOC(src); err != nil {
			return err
		}
	}
	return nil
}
