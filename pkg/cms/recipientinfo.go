package cms

import (
	"github.com/corvid-systems/dermsg/pkg/ber"
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/keyinfo"
	"github.com/corvid-systems/dermsg/pkg/sexp"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

// RecipientKind distinguishes RecipientInfo's two CHOICE alternatives.
type RecipientKind int

const (
	RecipientKeyTrans RecipientKind = iota // ktri: RSA / RSA-OAEP
	RecipientKeyAgree                      // kari: ECDH, RFC 5652 §6.2.2
)

// RecipientEncryptedKey is one element of a KeyAgreeRecipientInfo's
// recipientEncryptedKeys: a recipient identifier paired with its own
// wrapped content-encryption key. One KeyAgreeRecipientInfo can address
// several recipients that share an ephemeral originator key.
type RecipientEncryptedKey struct {
	IssuerSerial *IssuerSerial
	SubjectKeyID []byte // set instead of IssuerSerial for the [0] rKeyId alternative
	EncryptedKey []byte
}

// RecipientInfoView is the result of walking one RecipientInfo node from
// the tree ParseEnvelopedDataPart1 hands back as RecipientInfosRoot.
type RecipientInfoView struct {
	Kind    RecipientKind
	Version int

	// ktri fields.
	IssuerSerial *IssuerSerial
	SubjectKeyID []byte
	EncryptedKey []byte

	// kari fields.
	RecipientEncryptedKeys []RecipientEncryptedKey

	KeyEncryptionOID string

	keyEncAlgoTLV []byte
}

// ParseRecipientInfo walks one RecipientInfo node (a child of the tree
// ParseEnvelopedDataPart1 returns as RecipientInfosRoot) into a
// RecipientInfoView, dispatching on which CHOICE alternative the schema
// decoder realised.
func ParseRecipientInfo(node *ber.Node, image []byte) (RecipientInfoView, error) {
	realized := node.Realized()
	switch realized.Name {
	case "ktri":
		return parseKeyTransRecipientInfo(realized, image)
	case "kari":
		return parseKeyAgreeRecipientInfo(realized, image)
	default:
		return RecipientInfoView{}, dererr.New("cms.ParseRecipientInfo", dererr.ErrUnsupportedCmsObject)
	}
}

func parseKeyTransRecipientInfo(node *ber.Node, image []byte) (RecipientInfoView, error) {
	var out RecipientInfoView
	out.Kind = RecipientKeyTrans

	versionNode, ok := node.Find("version")
	if !ok {
		return out, dererr.New("cms.ParseRecipientInfo", dererr.ErrInvalidCmsObject)
	}
	out.Version = int(bigEndianInt(versionNode.ContentBytes(image)))

	rid, ok := node.Find("rid")
	if !ok {
		return out, dererr.New("cms.ParseRecipientInfo", dererr.ErrInvalidCmsObject)
	}
	switch rid.Name {
	case "issuerAndSerialNumber":
		is, err := readIssuerSerial(rid, image)
		if err != nil {
			return out, err
		}
		out.IssuerSerial = &is
	case "subjectKeyIdentifier":
		out.SubjectKeyID = rid.ContentBytes(image)
	default:
		return out, dererr.New("cms.ParseRecipientInfo", dererr.ErrInvalidCmsObject)
	}

	algo, ok := node.Find("keyEncryptionAlgorithm")
	if !ok {
		return out, dererr.New("cms.ParseRecipientInfo", dererr.ErrInvalidCmsObject)
	}
	oidStr, err := readAlgorithmOID(algo, image)
	if err != nil {
		return out, err
	}
	out.KeyEncryptionOID = oidStr
	out.keyEncAlgoTLV = algo.Bytes(image)

	keyNode, ok := node.Find("encryptedKey")
	if !ok {
		return out, dererr.New("cms.ParseRecipientInfo", dererr.ErrInvalidCmsObject)
	}
	out.EncryptedKey = keyNode.ContentBytes(image)

	return out, nil
}

func parseKeyAgreeRecipientInfo(node *ber.Node, image []byte) (RecipientInfoView, error) {
	var out RecipientInfoView
	out.Kind = RecipientKeyAgree

	versionNode, ok := node.Find("version")
	if !ok {
		return out, dererr.New("cms.ParseRecipientInfo", dererr.ErrInvalidCmsObject)
	}
	out.Version = int(bigEndianInt(versionNode.ContentBytes(image)))

	// originator identifies the party that ran the key-agreement
	// computation, not a recipient; spec's read-only scope has no use
	// for it once the per-recipient keys below are extracted, so it is
	// not retained.

	algo, ok := node.Find("keyEncryptionAlgorithm")
	if !ok {
		return out, dererr.New("cms.ParseRecipientInfo", dererr.ErrInvalidCmsObject)
	}
	oidStr, err := readAlgorithmOID(algo, image)
	if err != nil {
		return out, err
	}
	out.KeyEncryptionOID = oidStr
	out.keyEncAlgoTLV = algo.Bytes(image)

	reks, ok := node.Find("recipientEncryptedKeys")
	if !ok {
		return out, dererr.New("cms.ParseRecipientInfo", dererr.ErrInvalidCmsObject)
	}
	for _, rek := range reks.Children {
		ridNode, ok := rek.Find("rid")
		if !ok {
			return out, dererr.New("cms.ParseRecipientInfo", dererr.ErrInvalidCmsObject)
		}
		keyNode, ok := rek.Find("encryptedKey")
		if !ok {
			return out, dererr.New("cms.ParseRecipientInfo", dererr.ErrInvalidCmsObject)
		}
		entry := RecipientEncryptedKey{EncryptedKey: keyNode.ContentBytes(image)}
		switch ridNode.Name {
		case "issuerAndSerialNumber":
			is, err := readIssuerSerial(ridNode, image)
			if err != nil {
				return out, err
			}
			entry.IssuerSerial = &is
		case "rKeyId":
			skidNode, ok := ridNode.Find("subjectKeyIdentifier")
			if !ok {
				return out, dererr.New("cms.ParseRecipientInfo", dererr.ErrInvalidCmsObject)
			}
			entry.SubjectKeyID = skidNode.ContentBytes(image)
		default:
			return out, dererr.New("cms.ParseRecipientInfo", dererr.ErrInvalidCmsObject)
		}
		out.RecipientEncryptedKeys = append(out.RecipientEncryptedKeys, entry)
	}

	return out, nil
}

// wrapAlgoOID resolves the key-wrap algorithm an ECDH RecipientInfo's
// recipientEncryptedKeys are wrapped under. RFC 5753 nests it as the
// keyEncryptionAlgorithm's own parameters field, itself an
// AlgorithmIdentifier — ParamBytes holds that SEQUENCE's content without
// its header, so it is rewrapped in one before reparsing.
func (v RecipientInfoView) wrapAlgoOID() (string, error) {
	aid, _, err := keyinfo.ParseAlgorithmIdentifier(v.keyEncAlgoTLV)
	if err != nil {
		return "", err
	}
	if aid.ParamKind != keyinfo.ParamSequence {
		return "", dererr.New("cms.RecipientInfoView.wrapAlgoOID", dererr.ErrInvalidCmsObject)
	}
	wrapped, err := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagSequence, true, int64(len(aid.ParamBytes)))
	if err != nil {
		return "", err
	}
	wrapped = append(wrapped, aid.ParamBytes...)
	inner, _, err := keyinfo.ParseAlgorithmIdentifier(wrapped)
	if err != nil {
		return "", err
	}
	return inner.Effective, nil
}

// EncVal renders a ktri RecipientInfoView's keyEncryptionAlgorithm +
// encryptedKey as the symbolic "(enc-val ...)" form (spec §3's RSA /
// RSA-OAEP enc-val modes). It is only valid for Kind ==
// RecipientKeyTrans; call EncValAt for RecipientKeyAgree.
func (v RecipientInfoView) EncVal(opts *keyinfo.Options) (sexp.Expr, error) {
	if v.Kind != RecipientKeyTrans {
		return sexp.Expr{}, dererr.New("cms.RecipientInfoView.EncVal", dererr.ErrInvalidCmsObject)
	}
	data := append(append([]byte{}, v.keyEncAlgoTLV...), encodeOctetString(v.EncryptedKey)...)
	return keyinfo.EncValToSexp(data, nil, opts)
}

// EncValAt renders the i'th recipientEncryptedKeys entry of a kari
// RecipientInfoView as the symbolic ECDH "(enc-val ...)" form (spec §3's
// ECDH enc-val mode), supplying the wrapped key and key-wrap algorithm
// pkg/keyinfo needs alongside the key-agreement AlgorithmIdentifier.
func (v RecipientInfoView) EncValAt(i int, opts *keyinfo.Options) (sexp.Expr, error) {
	if v.Kind != RecipientKeyAgree {
		return sexp.Expr{}, dererr.New("cms.RecipientInfoView.EncValAt", dererr.ErrInvalidCmsObject)
	}
	if i < 0 || i >= len(v.RecipientEncryptedKeys) {
		return sexp.Expr{}, dererr.New("cms.RecipientInfoView.EncValAt", dererr.ErrInvalidValue)
	}
	wrapOID, err := v.wrapAlgoOID()
	if err != nil {
		return sexp.Expr{}, err
	}
	rek := v.RecipientEncryptedKeys[i]
	data := append(append([]byte{}, v.keyEncAlgoTLV...), encodeOctetString(rek.EncryptedKey)...)
	ecdh := &keyinfo.ECDHWrap{WrappedKey: rek.EncryptedKey, WrapAlgoOID: wrapOID}
	return keyinfo.EncValToSexp(data, ecdh, opts)
}

// IssuerSerialAt and SubjectKeyIDAt expose a kari recipient's identifier
// the same way the ktri fields do, without forcing a caller to reach into
// RecipientEncryptedKeys directly for the common case of a single
// recipient per KeyAgreeRecipientInfo.
func (v RecipientInfoView) IssuerSerialAt(i int) *IssuerSerial {
	if i < 0 || i >= len(v.RecipientEncryptedKeys) {
		return nil
	}
	return v.RecipientEncryptedKeys[i].IssuerSerial
}

func (v RecipientInfoView) SubjectKeyIDAt(i int) []byte {
	if i < 0 || i >= len(v.RecipientEncryptedKeys) {
		return nil
	}
	return v.RecipientEncryptedKeys[i].SubjectKeyID
}

func encodeOctetString(content []byte) []byte {
	out, _ := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagOctetString, false, int64(len(content)))
	return append(out, content...)
}
