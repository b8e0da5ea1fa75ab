package cms

import (
	"github.com/corvid-systems/dermsg/pkg/ber"
	"github.com/corvid-systems/dermsg/pkg/berio"
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/keyinfo"
	"github.com/corvid-systems/dermsg/pkg/schema"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

// SignedDataPart1 is everything ParseSignedDataPart1 reads before the
// (potentially huge) signed content: version, the digest algorithms the
// signers used, and the EncapsulatedContentInfo header. The caller streams
// eContent (if EncapContent.HasContent) through its own hash, calls
// EncapContent.Close, and only then calls ParseSignedDataPart2.
type SignedDataPart1 struct {
	Version         int
	DigestAlgoOIDs  []string
	EncapContent    ContentInfo
	outerIndefinite bool
}

// ParseSignedDataPart1 reads SignedData's version, digestAlgorithms, and
// encapContentInfo fields (spec §4.H). digestAlgorithms must be a
// definite-length SET OF AlgorithmIdentifier; an indefinite-length one is
// rejected as UnsupportedEncoding — libksba's cms parser makes the same
// restriction, since nothing meaningful streams through a SET OF that small.
func ParseSignedDataPart1(src berio.Reader) (SignedDataPart1, error) {
	outer, err := tlv.ReadHeader(src, true, -1)
	if err != nil {
		return SignedDataPart1{}, asCmsFailure("cms.ParseSignedDataPart1", err)
	}
	if outer.Class != tlv.ClassUniversal || outer.Tag != tlv.TagSequence || !outer.Constructed {
		return SignedDataPart1{}, dererr.New("cms.ParseSignedDataPart1", dererr.ErrInvalidCmsObject)
	}

	version, err := readSmallInteger(src)
	if err != nil {
		return SignedDataPart1{}, err
	}
	if version < 0 || version > 4 {
		return SignedDataPart1{}, dererr.New("cms.ParseSignedDataPart1", dererr.ErrUnsupportedCmsVer)
	}

	setInfo, err := tlv.ReadHeader(src, true, -1)
	if err != nil {
		return SignedDataPart1{}, err
	}
	if setInfo.Class != tlv.ClassUniversal || setInfo.Tag != tlv.TagSet || !setInfo.Constructed {
		return SignedDataPart1{}, dererr.New("cms.ParseSignedDataPart1", dererr.ErrInvalidCmsObject)
	}
	if setInfo.Indefinite {
		return SignedDataPart1{}, dererr.New("cms.ParseSignedDataPart1", dererr.ErrUnsupportedEncoding)
	}

	var digestOIDs []string
	start := src.Tell()
	for src.Tell()-start < setInfo.Length {
		tlvBytes, err := readWholeTLV(src)
		if err != nil {
			return SignedDataPart1{}, err
		}
		aid, _, err := keyinfo.ParseAlgorithmIdentifier(tlvBytes)
		if err != nil {
			return SignedDataPart1{}, err
		}
		digestOIDs = append(digestOIDs, aid.OID)
	}

	eci, err := ParseContentInfo(src)
	if err != nil {
		return SignedDataPart1{}, err
	}

	return SignedDataPart1{
		Version:         version,
		DigestAlgoOIDs:  digestOIDs,
		EncapContent:    eci,
		outerIndefinite: outer.Indefinite,
	}, nil
}

// SignedDataPart2 is the tail of SignedData parsed after the signed content
// has been streamed and hashed: the optional certificate set, the (rejected
// or skipped) CRL set, and the signerInfos SET, as a decoded pkg/ber tree.
type SignedDataPart2 struct {
	Certificates     [][]byte
	SignerInfosRoot  *ber.Node
	SignerInfosImage []byte
}

// ParseSignedDataPart2Options controls the CRL open question (spec §9):
// CMS messages may carry a [1] IMPLICIT crls field; by default its presence
// is rejected with UnsupportedCmsObject. SkipCRLs accepts a definite-length
// crls field and discards it unparsed instead.
type ParseSignedDataPart2Options struct {
	SkipCRLs bool
}

// ParseSignedDataPart2 reads SignedData's optional certificates and crls
// fields and its signerInfos SET (spec §4.H), handing signerInfos to
// pkg/ber as a bounded SET OF SignerInfo. part1 must be the result of the
// matching ParseSignedDataPart1 call on the same stream, with its
// EncapContent already closed.
func ParseSignedDataPart2(reg *schema.Registry, src berio.Reader, part1 SignedDataPart1, opts ParseSignedDataPart2Options) (SignedDataPart2, error) {
	mod, err := reg.Module("tmttv2")
	if err != nil {
		return SignedDataPart2{}, err
	}
	cmsMod, err := reg.Module("cms")
	if err != nil {
		return SignedDataPart2{}, err
	}

	var out SignedDataPart2

	tag, err := peekHeader(src, true)
	if err != nil {
		return SignedDataPart2{}, asCmsFailure("cms.ParseSignedDataPart2", err)
	}
	if tag.Class == tlv.ClassContext && tag.Tag == 0 && tag.Constructed {
		certs, err := readCertificateSet(mod, src)
		if err != nil {
			return SignedDataPart2{}, err
		}
		out.Certificates = certs
		tag, err = peekHeader(src, true)
		if err != nil {
			return SignedDataPart2{}, asCmsFailure("cms.ParseSignedDataPart2", err)
		}
	}

	if tag.Class == tlv.ClassContext && tag.Tag == 1 && tag.Constructed {
		if !opts.SkipCRLs {
			return SignedDataPart2{}, dererr.New("cms.ParseSignedDataPart2", dererr.ErrUnsupportedCmsObject)
		}
		if err := skipDefiniteTLV(src); err != nil {
			return SignedDataPart2{}, err
		}
	}

	root, image, err := ber.Decode(cmsMod, "SignerInfos", src)
	if err != nil {
		return SignedDataPart2{}, err
	}
	out.SignerInfosRoot = root
	out.SignerInfosImage = image

	if part1.outerIndefinite {
		if err := readEOC(src); err != nil {
			return SignedDataPart2{}, err
		}
	}
	return out, nil
}

// readCertificateSet consumes the "[0] IMPLICIT CertificateSet" field:
// repeatedly peeking for a bare SEQUENCE tag and handing the stream to the
// certificate reader, the way spec §4.H describes (only the X.509
// Certificate CHOICE alternative is supported — no attribute certificates).
func readCertificateSet(mod *schema.Module, src berio.Reader) ([][]byte, error) {
	wrapper, err := tlv.ReadHeader(src, true, -1)
	if err != nil {
		return nil, err
	}
	var certs [][]byte
	start := src.Tell()
	for {
		if !wrapper.Indefinite && src.Tell()-start >= wrapper.Length {
			break
		}
		tag, err := peekHeader(src, true)
		if err != nil {
			return nil, err
		}
		if wrapper.Indefinite && tag.Class == tlv.ClassUniversal && tag.Tag == tlv.TagEndOfContents {
			break
		}
		if tag.Class != tlv.ClassUniversal || tag.Tag != tlv.TagSequence || !tag.Constructed {
			return nil, dererr.New("cms.readCertificateSet", dererr.ErrInvalidCmsObject)
		}
		node, image, err := ber.Decode(mod, "Certificate", src)
		if err != nil {
			return nil, err
		}
		certs = append(certs, node.Bytes(image))
	}
	if wrapper.Indefinite {
		if err := readEOC(src); err != nil {
			return nil, err
		}
	}
	return certs, nil
}

func readSmallInteger(src berio.Reader) (int, error) {
	info, err := tlv.ReadHeader(src, false, -1)
	if err != nil {
		return 0, err
	}
	if info.Class != tlv.ClassUniversal || info.Tag != tlv.TagInteger || info.Constructed {
		return 0, dererr.New("cms.readSmallInteger", dererr.ErrInvalidCmsObject)
	}
	content, err := src.Read(int(info.Length))
	if err != nil {
		return 0, err
	}
	var v int
	for _, b := range content {
		v = v<<8 | int(b)
	}
	return v, nil
}

func readWholeTLV(src berio.Reader) ([]byte, error) {
	info, err := tlv.ReadHeader(src, false, -1)
	if err != nil {
		return nil, err
	}
	header, err := tlv.WriteHeader(nil, info.Class, info.Tag, info.Constructed, info.Length)
	if err != nil {
		return nil, err
	}
	content, err := src.Read(int(info.Length))
	if err != nil {
		return nil, err
	}
	return append(header, content...), nil
}

func skipDefiniteTLV(src berio.Reader) error {
	info, err := tlv.ReadHeader(src, true, -1)
	if err != nil {
		return err
	}
	if info.Indefinite {
		return dererr.New("cms.skipDefiniteTLV", dererr.ErrUnsupportedEncoding)
	}
	_, err = src.Read(int(info.Length))
	return err
}
