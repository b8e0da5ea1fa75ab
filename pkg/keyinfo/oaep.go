package keyinfo

import (
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

const oidOAEPDefaultHash = "1.3.14.3.2.26" // sha1

// oaepParams is the parsed form of RFC 4055's RSAES-OAEP-params SEQUENCE.
type oaepParams struct {
	HashOID string
	Label   []byte
}

// parseOAEPParams walks RSAES-OAEP-params ::= SEQUENCE {
//
//	hashFunc    [0] EXPLICIT AlgorithmIdentifier DEFAULT sha1,
//	maskGenFunc [1] EXPLICIT AlgorithmIdentifier DEFAULT mgf1SHA1,
//	pSourceFunc [2] EXPLICIT AlgorithmIdentifier DEFAULT pSpecifiedEmpty }
//
// (spec §4.F, OAEP parameter parse, mirroring parsePSSParams). An absent
// params SEQUENCE is the all-defaults case (plain sha1/mgf1-sha1/empty
// label); once any parameter is present, this codec requires an explicit
// hash and an explicit MGF1 maskGenFunc, as parsePSSParams does. The label
// is read as "[2] EXPLICIT OCTET STRING" directly; a pSourceFunc in its
// AlgorithmIdentifier form is not accepted.
func parseOAEPParams(params []byte) (oaepParams, error) {
	if len(params) == 0 {
		return oaepParams{HashOID: oidOAEPDefaultHash}, nil
	}

	c := newCursor(params)

	hashAID, err := readExplicitAlgID(c, 0)
	if err != nil {
		return oaepParams{}, err
	}

	mgfAID, err := readExplicitAlgID(c, 1)
	if err != nil {
		return oaepParams{}, err
	}
	if mgfAID.OID != oidMGF1 {
		return oaepParams{}, dererr.New("keyinfo.parseOAEPParams", dererr.ErrInvalidObject)
	}
	if mgfAID.ParamKind != ParamSequence {
		return oaepParams{}, dererr.New("keyinfo.parseOAEPParams", dererr.ErrInvalidObject)
	}
	mgfHashAID, err := parseAlgorithmIdentifierBody(mgfAID.ParamBytes)
	if err != nil {
		return oaepParams{}, err
	}
	if mgfHashAID.OID != hashAID.OID {
		return oaepParams{}, dererr.New("keyinfo.parseOAEPParams", dererr.ErrInvalidObject)
	}

	var label []byte
	if c.remaining() > 0 {
		label, err = readExplicitOctetString(c, 2)
		if err != nil {
			return oaepParams{}, err
		}
	}

	return oaepParams{HashOID: hashAID.OID, Label: label}, nil
}

// readExplicitOctetString reads a "[tagNum] EXPLICIT OCTET STRING" wrapper.
func readExplicitOctetString(c *cursor, tagNum uint32) ([]byte, error) {
	_, body, err := expect(c, tlv.ClassContext, tagNum, true)
	if err != nil {
		return nil, err
	}
	inner := newCursor(body)
	_, content, err := expect(inner, tlv.ClassUniversal, tlv.TagOctetString, false)
	if err != nil {
		return nil, err
	}
	return content, nil
}
