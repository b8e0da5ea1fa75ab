package cms

import (
	"github.com/corvid-systems/dermsg/pkg/ber"
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/keyinfo"
	"github.com/corvid-systems/dermsg/pkg/oid"
	"github.com/corvid-systems/dermsg/pkg/sexp"
	"github.com/corvid-systems/dermsg/pkg/x509cert"
)

func bigEndianInt(b []byte) int64 {
	var v int64
	for _, x := range b {
		v = v<<8 | int64(x)
	}
	return v
}

// AttributeTLV is one element of a SignedAttributes/UnsignedAttributes SET:
// an attribute type OID and the raw content bytes of its attrValues SET
// (the SET's own tag and length are not included). §4.H
// only specifies capturing the outer signerInfos SET; interpreting
// individual attributes (message-digest, signing-time, ...) is a policy
// decision left to the caller, per spec §1's exclusion of "policy
// decisions about which algorithms to accept beyond a declarative support
// table" — the same reasoning extends to attribute semantics.
type AttributeTLV struct {
	OID    string
	Values []byte // raw content of the attrValues SET OF ANY
}

// IssuerSerial identifies a signer or recipient by its issuer's
// distinguished name and the serial number it issued, the
// IssuerAndSerialNumber alternative of SignerIdentifier/RecipientIdentifier.
type IssuerSerial struct {
	Issuer string // RFC 2253 form
	Serial []byte
}

// SignerInfoView is the result of walking one SignerInfo node from the
// tree ParseSignedDataPart2 hands back.
type SignerInfoView struct {
	Version int

	IssuerSerial *IssuerSerial
	SubjectKeyID []byte // set instead of IssuerSerial for the [0] CHOICE alternative

	DigestAlgoOID string

	SignedAttrs []AttributeTLV

	SignatureAlgoOID string

	signatureAlgoTLV []byte // full AlgorithmIdentifier TLV, kept for SigVal
	signatureTLV     []byte // full signature OCTET STRING TLV, kept for SigVal

	Signature []byte // the signature value's raw content bytes
}

// ParseSignerInfo walks one SignerInfo node (a child of the tree
// ParseSignedDataPart2 returns as SignerInfosRoot) into a SignerInfoView.
func ParseSignerInfo(node *ber.Node, image []byte) (SignerInfoView, error) {
	var out SignerInfoView

	versionNode, ok := node.Find("version")
	if !ok {
		return out, dererr.New("cms.ParseSignerInfo", dererr.ErrInvalidCmsObject)
	}
	out.Version = int(bigEndianInt(versionNode.ContentBytes(image)))

	sid, ok := node.Find("sid")
	if !ok {
		return out, dererr.New("cms.ParseSignerInfo", dererr.ErrInvalidCmsObject)
	}
	switch sid.Name {
	case "issuerAndSerialNumber":
		is, err := readIssuerSerial(sid, image)
		if err != nil {
			return out, err
		}
		out.IssuerSerial = &is
	case "subjectKeyIdentifier":
		out.SubjectKeyID = sid.ContentBytes(image)
	default:
		return out, dererr.New("cms.ParseSignerInfo", dererr.ErrInvalidCmsObject)
	}

	digestAlgo, ok := node.Find("digestAlgorithm")
	if !ok {
		return out, dererr.New("cms.ParseSignerInfo", dererr.ErrInvalidCmsObject)
	}
	digestOID, err := readAlgorithmOID(digestAlgo, image)
	if err != nil {
		return out, err
	}
	out.DigestAlgoOID = digestOID

	if attrs, ok := node.Find("signedAttrs"); ok && !attrs.IsPlaceholder() {
		sa, err := readAttributes(attrs, image)
		if err != nil {
			return out, err
		}
		out.SignedAttrs = sa
	}

	sigAlgo, ok := node.Find("signatureAlgorithm")
	if !ok {
		return out, dererr.New("cms.ParseSignerInfo", dererr.ErrInvalidCmsObject)
	}
	sigOID, err := readAlgorithmOID(sigAlgo, image)
	if err != nil {
		return out, err
	}
	out.SignatureAlgoOID = sigOID
	out.signatureAlgoTLV = sigAlgo.Bytes(image)

	sigNode, ok := node.Find("signature")
	if !ok {
		return out, dererr.New("cms.ParseSignerInfo", dererr.ErrInvalidCmsObject)
	}
	out.Signature = sigNode.ContentBytes(image)
	out.signatureTLV = sigNode.Bytes(image)

	return out, nil
}

// SigVal renders v's signatureAlgorithm + signature as the symbolic
// "(sig-val ...)" form pkg/keyinfo produces for a certificate's own
// signature (spec §4.F), letting a caller verify a CMS signature through
// the same code path it uses for X.509. CMS's signature field is an
// OCTET STRING rather than X.509's BIT STRING; keyinfo.SigValToSexp
// accepts either.
func (v SignerInfoView) SigVal(opts *keyinfo.Options) (sexp.Expr, error) {
	if _, err := oid.LookupSig(v.SignatureAlgoOID); err != nil {
		return sexp.Expr{}, err
	}
	data := append(append([]byte{}, v.signatureAlgoTLV...), v.signatureTLV...)
	return keyinfo.SigValToSexp(data, opts)
}

func readIssuerSerial(node *ber.Node, image []byte) (IssuerSerial, error) {
	issuerNode, ok := node.Find("issuer")
	if !ok {
		return IssuerSerial{}, dererr.New("cms.readIssuerSerial", dererr.ErrInvalidCmsObject)
	}
	issuer, err := x509cert.NameToRFC2253(issuerNode, image)
	if err != nil {
		return IssuerSerial{}, err
	}
	serialNode, ok := node.Find("serialNumber")
	if !ok {
		return IssuerSerial{}, dererr.New("cms.readIssuerSerial", dererr.ErrInvalidCmsObject)
	}
	return IssuerSerial{Issuer: issuer, Serial: serialNode.ContentBytes(image)}, nil
}

func readAlgorithmOID(node *ber.Node, image []byte) (string, error) {
	aid, _, err := keyinfo.ParseAlgorithmIdentifier(node.Bytes(image))
	if err != nil {
		return "", err
	}
	return aid.Effective, nil
}

func readAttributes(setNode *ber.Node, image []byte) ([]AttributeTLV, error) {
	var out []AttributeTLV
	for _, attr := range setNode.Children {
		typeNode, ok := attr.Find("attrType")
		if !ok {
			return nil, dererr.New("cms.readAttributes", dererr.ErrInvalidCmsObject)
		}
		valuesNode, ok := attr.Find("attrValues")
		if !ok {
			return nil, dererr.New("cms.readAttributes", dererr.ErrInvalidCmsObject)
		}
		dotted, err := oid.Decode(typeNode.ContentBytes(image))
		if err != nil {
			return nil, dererr.New("cms.readAttributes", dererr.ErrInvalidCmsObject)
		}
		out = append(out, AttributeTLV{OID: dotted, Values: valuesNode.ContentBytes(image)})
	}
	return out, nil
}
