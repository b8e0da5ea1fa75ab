package keyinfo

import (
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/oid"
	"github.com/corvid-systems/dermsg/pkg/sexp"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

const oidECPublicKey = "1.2.840.10045.2.1"
const oidEd25519 = "1.3.101.112"
const oidEd448 = "1.3.101.113"

// resolvePKEntry implements spec §4.F symbolic→DER step 2: look up the
// algorithm by name or OID, reassigning an ECC entry to Ed25519/Ed448
// when the curve parameter names one of them.
func resolvePKEntry(algoName string, algoForm sexp.Expr) (*oid.Entry, error) {
	if algoName != "ecc" {
		return lookupPKByNameOrOID(algoName)
	}
	if curveItem, ok := algoForm.Assoc("curve"); ok {
		if v, ok := curveItem.Get(1); ok {
			switch string(v.Value) {
			case "Ed25519":
				return oid.LookupPK(oidEd25519)
			case "Ed448":
				return oid.LookupPK(oidEd448)
			}
		}
	}
	return oid.LookupPK(oidECPublicKey)
}

func lookupPKByNameOrOID(s string) (*oid.Entry, error) {
	if oid.LooksLikeOID(s) {
		return oid.LookupPK(s)
	}
	return oid.LookupPKByName(s)
}

// extractValues pulls the raw atom bytes for every emitting letter of
// elemDesc out of a parsed "(<algo> (<letter> <value>) ...)" form.
func extractValues(algoForm sexp.Expr, elemDesc string) (map[byte][]byte, error) {
	out := make(map[byte][]byte)
	for i := 0; i < len(elemDesc); i++ {
		letter := elemDesc[i]
		if letter == wrapperElem {
			continue
		}
		item, ok := algoForm.Assoc(string(letter))
		if !ok {
			return nil, dererr.New("keyinfo.extractValues", dererr.ErrNoValue)
		}
		v, ok := item.Get(1)
		if !ok || !v.IsAtom() {
			return nil, dererr.New("keyinfo.extractValues", dererr.ErrInvalidSexp)
		}
		out[letter] = v.Value
	}
	return out, nil
}

// emitSteps renders an oid.Step sequence back to DER given its values,
// mirroring walkSteps in reverse.
func emitSteps(stepsList []oid.Step, values map[byte][]byte) ([]byte, error) {
	if len(stepsList) == 0 {
		return nil, nil
	}
	if !stepsList[0].Emit {
		inner, err := emitElements(stepsList[1:], values)
		if err != nil {
			return nil, err
		}
		class, tagNum, constructed := decodeRawTag(stepsList[0].Tag)
		header, err := tlv.WriteHeader(nil, class, tagNum, constructed, int64(len(inner)))
		if err != nil {
			return nil, err
		}
		return append(header, inner...), nil
	}
	return emitElements(stepsList, values)
}

func emitElements(stepsList []oid.Step, values map[byte][]byte) ([]byte, error) {
	var out []byte
	for _, st := range stepsList {
		v, ok := values[st.Letter]
		if !ok {
			return nil, dererr.New("keyinfo.emitElements", dererr.ErrNoValue)
		}
		if st.Raw {
			out = append(out, v...)
			continue
		}
		class, tagNum, constructed := decodeRawTag(st.Tag)
		header, err := tlv.WriteHeader(nil, class, tagNum, constructed, int64(len(v)))
		if err != nil {
			return nil, err
		}
		out = append(out, header...)
		out = append(out, v...)
	}
	return out, nil
}

// buildParams produces the AlgorithmIdentifier parameters field's raw
// content bytes (no tag/length — the caller wraps it per its ParamKind;
// the one exception is ParamSequence, whose bytes already carry their own
// SEQUENCE header), and reports which kind it built.
func buildParams(entry *oid.Entry, algoForm sexp.Expr) (ParamKind, []byte, error) {
	switch entry.PKAlgo {
	case oid.PKDSA:
		if entry.ParmElemDesc == "" {
			return ParamAbsent, nil, nil
		}
		values, err := extractValues(algoForm, entry.ParmElemDesc)
		if err != nil {
			return 0, nil, err
		}
		content, err := emitSteps(entry.ParmSteps(), values)
		if err != nil {
			return 0, nil, err
		}
		// emitSteps already wrapped p,q,g in their own SEQUENCE (the
		// leading '-' in ParmElemDesc); that wrapped form IS the
		// parameters value.
		return ParamSequence, content, nil
	case oid.PKRSA:
		return ParamNull, nil, nil
	case oid.PKECC:
		if entry.OIDString != oidECPublicKey {
			// Ed25519/Ed448/X25519/X448: RFC 8410 forbids parameters.
			return ParamAbsent, nil, nil
		}
		curveItem, ok := algoForm.Assoc("curve")
		if !ok {
			return 0, nil, dererr.New("keyinfo.buildParams", dererr.ErrNoValue)
		}
		v, ok := curveItem.Get(1)
		if !ok {
			return 0, nil, dererr.New("keyinfo.buildParams", dererr.ErrInvalidSexp)
		}
		dotted, err := resolveCurveOID(string(v.Value))
		if err != nil {
			return 0, nil, err
		}
		oidBytes, err := oid.Encode(dotted)
		if err != nil {
			return 0, nil, err
		}
		return ParamOID, oidBytes, nil
	default:
		return ParamAbsent, nil, nil
	}
}

func resolveCurveOID(s string) (string, error) {
	if oid.LooksLikeOID(s) {
		return oid.StripPrefix(s), nil
	}
	return oid.LookupCurveByName(s)
}

// buildAlgorithmIdentifier renders an AlgorithmIdentifier SEQUENCE for
// entry, with parameters shaped per buildParams.
func buildAlgorithmIdentifier(entry *oid.Entry, algoForm sexp.Expr) ([]byte, error) {
	oidBytes := entry.Bytes()
	oidHeader, err := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagOID, false, int64(len(oidBytes)))
	if err != nil {
		return nil, err
	}
	content := append(oidHeader, oidBytes...)

	kind, paramBytes, err := buildParams(entry, algoForm)
	if err != nil {
		return nil, err
	}
	switch kind {
	case ParamAbsent:
		// nothing to add
	case ParamNull:
		h, err := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagNull, false, 0)
		if err != nil {
			return nil, err
		}
		content = append(content, h...)
	case ParamOID:
		h, err := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagOID, false, int64(len(paramBytes)))
		if err != nil {
			return nil, err
		}
		content = append(content, h...)
		content = append(content, paramBytes...)
	case ParamSequence:
		// paramBytes already carries its own SEQUENCE header (emitSteps
		// wrapped it); append verbatim.
		content = append(content, paramBytes...)
	}

	seqHeader, err := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagSequence, true, int64(len(content)))
	if err != nil {
		return nil, err
	}
	return append(seqHeader, content...), nil
}

// KeyInfoFromSexp renders a "(public-key (<algo> ...))" form back into a
// SubjectPublicKeyInfo SEQUENCE (spec §4.F, symbolic → DER).
func KeyInfoFromSexp(pk sexp.Expr) ([]byte, error) {
	head, ok := pk.Tag()
	if !ok || head != "public-key" {
		return nil, dererr.New("keyinfo.KeyInfoFromSexp", dererr.ErrUnknownSexp)
	}
	algoForm, ok := pk.Get(1)
	if !ok {
		return nil, dererr.New("keyinfo.KeyInfoFromSexp", dererr.ErrInvalidSexp)
	}
	algoName, ok := algoForm.Tag()
	if !ok {
		return nil, dererr.New("keyinfo.KeyInfoFromSexp", dererr.ErrInvalidSexp)
	}

	entry, err := resolvePKEntry(algoName, algoForm)
	if err != nil {
		return nil, err
	}

	algIDBytes, err := buildAlgorithmIdentifier(entry, algoForm)
	if err != nil {
		return nil, err
	}

	values, err := extractValues(algoForm, entry.ElemDesc)
	if err != nil {
		return nil, err
	}
	keyValue, err := emitSteps(entry.Steps(), values)
	if err != nil {
		return nil, err
	}

	bitStringContent := append([]byte{0}, keyValue...)
	bitStringHeader, err := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagBitString, false, int64(len(bitStringContent)))
	if err != nil {
		return nil, err
	}

	outerContent := append(append([]byte{}, algIDBytes...), bitStringHeader...)
	outerContent = append(outerContent, bitStringContent...)
	outerHeader, err := tlv.WriteHeader(nil, tlv.ClassUniversal, tlv.TagSequence, true, int64(len(outerContent)))
	if err != nil {
		return nil, err
	}
	return append(outerHeader, outerContent...), nil
}

// AlgoInfoFromSexp renders just the AlgorithmIdentifier SEQUENCE (no
// value) for a "(public-key|sig-val|enc-val (<algo> ...))" form — used by
// callers assembling a CMS SignerInfo/RecipientInfo that need the bare
// algorithm identifier apart from the key/signature/encrypted value.
func AlgoInfoFromSexp(form sexp.Expr) ([]byte, error) {
	algoForm, ok := form.Get(1)
	if !ok {
		return nil, dererr.New("keyinfo.AlgoInfoFromSexp", dererr.ErrInvalidSexp)
	}
	algoName, ok := algoForm.Tag()
	if !ok {
		return nil, dererr.New("keyinfo.AlgoInfoFromSexp", dererr.ErrInvalidSexp)
	}

	head, _ := form.Tag()
	var entry *oid.Entry
	var err error
	switch head {
	case "public-key":
		entry, err = resolvePKEntry(algoName, algoForm)
	case "sig-val":
		entry, err = lookupSigByNameOrOID(algoName)
	case "enc-val":
		entry, err = lookupEncByNameOrOID(algoName)
	default:
		return nil, dererr.New("keyinfo.AlgoInfoFromSexp", dererr.ErrUnknownSexp)
	}
	if err != nil {
		return nil, err
	}
	return buildAlgorithmIdentifier(entry, algoForm)
}

func lookupSigByNameOrOID(s string) (*oid.Entry, error) {
	if oid.LooksLikeOID(s) {
		return oid.LookupSig(s)
	}
	for _, e := range oid.SigAlgoTable {
		if e.Name == s {
			return e, nil
		}
	}
	return nil, dererr.New("keyinfo.lookupSigByNameOrOID", dererr.ErrUnknownAlgorithm)
}

func lookupEncByNameOrOID(s string) (*oid.Entry, error) {
	if oid.LooksLikeOID(s) {
		return oid.LookupEnc(s)
	}
	for _, e := range oid.EncAlgoTable {
		if e.Name == s {
			return e, nil
		}
	}
	return nil, dererr.New("keyinfo.lookupEncByNameOrOID", dererr.ErrUnknownAlgorithm)
}
