package keyinfo

import (
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/oid"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

// ParamKind classifies the (optional) ANY parameters field of an
// AlgorithmIdentifier.
type ParamKind int

const (
	ParamAbsent ParamKind = iota
	ParamNull
	ParamOctetString
	ParamOID
	ParamSequence
	ParamOther
)

// AlgorithmID is the parsed form of an AlgorithmIdentifier SEQUENCE.
type AlgorithmID struct {
	OID        string
	OIDBytes   []byte
	ParamKind  ParamKind
	ParamBytes []byte

	// Effective is OID, except for ecdsa-with-specified (1.2.840.10045.4.3)
	// whose parameters carry the real digest AlgorithmIdentifier; there,
	// Effective is that nested algorithm's OID.
	Effective string
}

const oidECDSAWithSpecified = "1.2.840.10045.4.3"

// ParseAlgorithmIdentifier reads one AlgorithmIdentifier SEQUENCE from the
// front of data and returns it along with the unconsumed remainder.
func ParseAlgorithmIdentifier(data []byte) (AlgorithmID, []byte, error) {
	outer := newCursor(data)
	_, body, err := expect(outer, tlv.ClassUniversal, tlv.TagSequence, true)
	if err != nil {
		return AlgorithmID{}, nil, err
	}
	remainder, err := outer.rest()
	if err != nil {
		return AlgorithmID{}, nil, err
	}

	aid, err := parseAlgorithmIdentifierBody(body)
	if err != nil {
		return AlgorithmID{}, nil, err
	}
	return aid, remainder, nil
}

func parseAlgorithmIdentifierBody(body []byte) (AlgorithmID, error) {
	c := newCursor(body)
	_, oidBytes, err := expect(c, tlv.ClassUniversal, tlv.TagOID, false)
	if err != nil {
		return AlgorithmID{}, err
	}
	dotted, err := oid.Decode(oidBytes)
	if err != nil {
		return AlgorithmID{}, dererr.New("keyinfo.ParseAlgorithmIdentifier", dererr.ErrInvalidKeyInfo)
	}

	aid := AlgorithmID{OID: dotted, OIDBytes: oidBytes, Effective: dotted}
	if c.remaining() == 0 {
		return aid, nil
	}

	info, err := c.header(false)
	if err != nil {
		return AlgorithmID{}, err
	}
	switch {
	case info.Class == tlv.ClassUniversal && info.Tag == tlv.TagNull:
		if info.Length != 0 {
			return AlgorithmID{}, dererr.New("keyinfo.ParseAlgorithmIdentifier", dererr.ErrBerError)
		}
		aid.ParamKind = ParamNull
	case info.Class == tlv.ClassUniversal && info.Tag == tlv.TagOID:
		content, err := c.take(info.Length)
		if err != nil {
			return AlgorithmID{}, err
		}
		aid.ParamKind = ParamOID
		aid.ParamBytes = content
	case info.Class == tlv.ClassUniversal && info.Tag == tlv.TagSequence:
		content, err := c.take(info.Length)
		if err != nil {
			return AlgorithmID{}, err
		}
		aid.ParamKind = ParamSequence
		aid.ParamBytes = content
	case info.Class == tlv.ClassUniversal && info.Tag == tlv.TagOctetString:
		content, err := c.take(info.Length)
		if err != nil {
			return AlgorithmID{}, err
		}
		aid.ParamKind = ParamOctetString
		aid.ParamBytes = content
	default:
		content, err := c.take(info.Length)
		if err != nil {
			return AlgorithmID{}, err
		}
		aid.ParamKind = ParamOther
		aid.ParamBytes = content
	}
	if c.remaining() != 0 {
		return AlgorithmID{}, dererr.New("keyinfo.ParseAlgorithmIdentifier", dererr.ErrInvalidKeyInfo)
	}

	if dotted == oidECDSAWithSpecified && aid.ParamKind == ParamSequence {
		inner, err := parseAlgorithmIdentifierBody(aid.ParamBytes)
		if err == nil {
			aid.Effective = inner.OID
		}
	}
	return aid, nil
}

// readValueString reads one BIT STRING (universal tag 3) or OCTET STRING
// (universal tag 4) value — the form a public key or crypto value takes
// after its AlgorithmIdentifier — and returns its content. For a BIT
// STRING, the leading unused-bits byte is stripped; warnNonZero, if
// non-nil, is invoked when that byte isn't zero (spec §4.F step 3).
func readValueString(data []byte, warnNonZero func()) ([]byte, error) {
	c := newCursor(data)
	info, err := c.header(false)
	if err != nil {
		return nil, err
	}
	switch {
	case info.Class == tlv.ClassUniversal && info.Tag == tlv.TagBitString && !info.Constructed:
		content, err := c.take(info.Length)
		if err != nil {
			return nil, err
		}
		if len(content) == 0 {
			return nil, dererr.New("keyinfo.readValueString", dererr.ErrInvalidKeyInfo)
		}
		if content[0] != 0 && warnNonZero != nil {
			warnNonZero()
		}
		return content[1:], nil
	case info.Class == tlv.ClassUniversal && info.Tag == tlv.TagOctetString && !info.Constructed:
		return c.take(info.Length)
	default:
		return nil, dererr.New("keyinfo.readValueString", dererr.ErrUnexpectedTag)
	}
}
