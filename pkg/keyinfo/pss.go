package keyinfo

import (
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

const oidMGF1 = "1.2.840.113549.1.1.8"
const defaultPSSSaltLength = 20

// pssParams is the parsed form of RFC 4055's RSASSA-PSS-params SEQUENCE.
type pssParams struct {
	HashOID    string
	SaltLength int
}

// parsePSSParams walks RSASSA-PSS-params ::= SEQUENCE {
//
//	hashAlgorithm    [0] EXPLICIT AlgorithmIdentifier DEFAULT sha1,
//	maskGenAlgorithm [1] EXPLICIT AlgorithmIdentifier DEFAULT mgf1SHA1,
//	saltLength       [2] EXPLICIT INTEGER DEFAULT 20,
//	trailerField     [3] EXPLICIT INTEGER DEFAULT 1 }
//
// (spec §4.F, PSS parameter parse). This codec requires an explicit hash
// and an explicit MGF1 maskGenAlgorithm and rejects an absent one as
// malformed; only an absent saltLength falls back to its default of 20.
// A trailerField is not read.
func parsePSSParams(params []byte) (pssParams, error) {
	c := newCursor(params)

	hashAID, err := readExplicitAlgID(c, 0)
	if err != nil {
		return pssParams{}, err
	}

	mgfAID, err := readExplicitAlgID(c, 1)
	if err != nil {
		return pssParams{}, err
	}
	if mgfAID.OID != oidMGF1 {
		return pssParams{}, dererr.New("keyinfo.parsePSSParams", dererr.ErrInvalidObject)
	}
	if mgfAID.ParamKind != ParamSequence {
		return pssParams{}, dererr.New("keyinfo.parsePSSParams", dererr.ErrInvalidObject)
	}
	mgfHashAID, err := parseAlgorithmIdentifierBody(mgfAID.ParamBytes)
	if err != nil {
		return pssParams{}, err
	}
	if mgfHashAID.OID != hashAID.OID {
		return pssParams{}, dererr.New("keyinfo.parsePSSParams", dererr.ErrInvalidObject)
	}

	saltLength := defaultPSSSaltLength
	if c.remaining() > 0 {
		n, err := readExplicitInteger(c, 2)
		if err != nil {
			return pssParams{}, err
		}
		saltLength = n
	}

	return pssParams{HashOID: hashAID.OID, SaltLength: saltLength}, nil
}

// readExplicitAlgID reads a "[tagNum] EXPLICIT AlgorithmIdentifier" wrapper
// from the front of c.
func readExplicitAlgID(c *cursor, tagNum uint32) (AlgorithmID, error) {
	_, body, err := expect(c, tlv.ClassContext, tagNum, true)
	if err != nil {
		return AlgorithmID{}, err
	}
	aid, remainder, err := ParseAlgorithmIdentifier(body)
	if err != nil {
		return AlgorithmID{}, err
	}
	if len(remainder) != 0 {
		return AlgorithmID{}, dererr.New("keyinfo.readExplicitAlgID", dererr.ErrInvalidObject)
	}
	return aid, nil
}

// readExplicitInteger reads a "[tagNum] EXPLICIT INTEGER" wrapper,
// returning its value as a machine int (PSS salt lengths are tiny).
func readExplicitInteger(c *cursor, tagNum uint32) (int, error) {
	_, body, err := expect(c, tlv.ClassContext, tagNum, true)
	if err != nil {
		return 0, err
	}
	inner := newCursor(body)
	_, content, err := expect(inner, tlv.ClassUniversal, tlv.TagInteger, false)
	if err != nil {
		return 0, err
	}
	var v int
	for _, b := range content {
		v = v<<8 | int(b)
	}
	return v, nil
}
