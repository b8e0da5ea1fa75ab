package keyinfo

import (
	"log"

	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/oid"
	"github.com/corvid-systems/dermsg/pkg/sexp"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

// Options carries the ambient knobs for the DER<->sexp codec. The zero
// value is a valid, silent default.
type Options struct {
	// Warn, if non-nil, receives a line when a BIT STRING's unused-bits
	// byte is non-zero (spec §4.F step 3) — not an error, but non-DER.
	Warn *log.Logger
}

func (o *Options) warnf(format string, args ...any) {
	if o != nil && o.Warn != nil {
		o.Warn.Printf(format, args...)
	}
}

// KeyInfoToSexp converts a SubjectPublicKeyInfo SEQUENCE into its symbolic
// "(public-key (<algo> ...))" form (spec §4.F, DER → symbolic, steps 1-6).
func KeyInfoToSexp(data []byte, opts *Options) (sexp.Expr, error) {
	outer := newCursor(data)
	_, body, err := expect(outer, tlv.ClassUniversal, tlv.TagSequence, true)
	if err != nil {
		return sexp.Expr{}, err
	}
	if outer.remaining() != 0 {
		return sexp.Expr{}, dererr.New("keyinfo.KeyInfoToSexp", dererr.ErrInvalidKeyInfo)
	}

	aid, remainder, err := ParseAlgorithmIdentifier(body)
	if err != nil {
		return sexp.Expr{}, err
	}
	entry, err := oid.LookupPKBytes(aid.OIDBytes)
	if err != nil {
		return sexp.Expr{}, err
	}

	value, err := readValueString(remainder, func() {
		opts.warnf("keyinfo: public key BIT STRING has non-zero unused bits")
	})
	if err != nil {
		return sexp.Expr{}, err
	}

	algoItems := []sexp.Expr{sexp.AtomString(entry.Name)}

	if entry.PKAlgo == oid.PKECC && aid.ParamKind == ParamOID {
		curveExpr, err := curveExprFromOID(aid.ParamBytes)
		if err != nil {
			return sexp.Expr{}, err
		}
		algoItems = append(algoItems, sexp.List(sexp.AtomString("curve"), curveExpr))
	}
	if entry.PKAlgo == oid.PKMLDSA {
		if err := oid.CheckMLDSAPublicKeySize(entry.Name, len(value)); err != nil {
			return sexp.Expr{}, err
		}
	}
	if len(entry.ParmElemDesc) > 0 && aid.ParamKind == ParamSequence {
		parmElems, err := walkSteps(entry.ParmSteps(), aid.ParamBytes)
		if err != nil {
			return sexp.Expr{}, err
		}
		algoItems = append(algoItems, parmElems...)
	}

	mainElems, err := walkSteps(entry.Steps(), value)
	if err != nil {
		return sexp.Expr{}, err
	}
	algoItems = append(algoItems, mainElems...)

	return sexp.List(sexp.AtomString("public-key"), sexp.List(algoItems...)), nil
}

// curveExprFromOID renders an ECC AlgorithmIdentifier curve OID as the
// atom libksba emits for (curve ...): the symbolic name when the table
// knows it, else the dotted OID string.
func curveExprFromOID(oidBytes []byte) (sexp.Expr, error) {
	dotted, err := oid.Decode(oidBytes)
	if err != nil {
		return sexp.Expr{}, dererr.New("keyinfo.curveExprFromOID", dererr.ErrInvalidKeyInfo)
	}
	if name, err := oid.LookupCurveByOID(dotted); err == nil {
		return sexp.AtomString(name), nil
	}
	return sexp.AtomString(dotted), nil
}

// sigOrEncMode selects which head atom and which element walk mode2
// (ECDH) emission applies to.
type sigOrEncMode int

const (
	modeSig sigOrEncMode = iota
	modeEnc
)

// ECDHWrap carries the out-of-band fields an ECDH (mode-2) enc-val needs
// beyond what fits in a single AlgorithmIdentifier+value blob: the actual
// wrapped content-encryption key and the key-wrap algorithm that wrapped
// it, both of which live in the enclosing RecipientInfo rather than in
// the recipient's own AlgorithmIdentifier.
type ECDHWrap struct {
	WrappedKey  []byte
	WrapAlgoOID string
}

// cryptValToSexp converts the concatenation of a signature or encrypted-
// value AlgorithmIdentifier and its following BIT STRING/OCTET STRING
// into symbolic form (spec §4.F, DER → symbolic, steps 1-9). mode selects
// "sig-val" (signature table) or "enc-val" (encryption table).
func cryptValToSexp(data []byte, mode sigOrEncMode, ecdh *ECDHWrap, opts *Options) (sexp.Expr, error) {
	aid, remainder, err := ParseAlgorithmIdentifier(data)
	if err != nil {
		return sexp.Expr{}, err
	}

	var entry *oid.Entry
	head := "sig-val"
	if mode == modeSig {
		entry, err = oid.LookupSigBytes(aid.OIDBytes)
	} else {
		head = "enc-val"
		entry, err = oid.LookupEncBytes(aid.OIDBytes)
	}
	if err != nil {
		return sexp.Expr{}, err
	}

	value, err := readValueString(remainder, func() {
		opts.warnf("keyinfo: %s BIT STRING has non-zero unused bits", head)
	})
	if err != nil {
		return sexp.Expr{}, err
	}

	algoItems := []sexp.Expr{sexp.AtomString(entry.Name)}

	if entry.Supported == oid.SupportedRSAOAEP {
		oaep, err := parseOAEPParams(aid.ParamBytes)
		if err != nil {
			return sexp.Expr{}, err
		}
		mainElems, err := walkSteps(entry.Steps(), value)
		if err != nil {
			return sexp.Expr{}, err
		}
		algoItems = append(algoItems, mainElems...)
		algoItems = append(algoItems,
			sexp.List(sexp.AtomString("flags"), sexp.AtomString("oaep")),
			sexp.List(sexp.AtomString("hash-algo"), sexp.AtomString(oaep.HashOID)),
		)
		if len(oaep.Label) > 0 {
			algoItems = append(algoItems, sexp.List(sexp.AtomString("label"), sexp.Atom(oaep.Label)))
		}
		return sexp.List(sexp.AtomString(head), sexp.List(algoItems...)), nil
	}

	if entry.Supported == oid.SupportedRSAPSS {
		pss, err := parsePSSParams(aid.ParamBytes)
		if err != nil {
			return sexp.Expr{}, err
		}
		mainElems, err := walkSteps(entry.Steps(), value)
		if err != nil {
			return sexp.Expr{}, err
		}
		algoItems = append(algoItems, mainElems...)
		algoItems = append(algoItems,
			sexp.List(sexp.AtomString("flags"), sexp.AtomString("pss")),
			sexp.List(sexp.AtomString("hash-algo"), sexp.AtomString(pss.HashOID)),
			sexp.List(sexp.AtomString("salt-length"), sexp.Atom([]byte{byte(pss.SaltLength)})),
		)
		return sexp.List(sexp.AtomString(head), sexp.List(algoItems...)), nil
	}

	if mode == modeSig && entry.PKAlgo == oid.PKMLDSA {
		if err := oid.CheckMLDSASignatureSize(entry.Name, len(value)); err != nil {
			return sexp.Expr{}, err
		}
	}

	mainElems, err := walkSteps(entry.Steps(), value)
	if err != nil {
		return sexp.Expr{}, err
	}
	algoItems = append(algoItems, mainElems...)

	if entry.DigestHint != "" {
		algoItems = append(algoItems, sexp.List(sexp.AtomString("hash"), sexp.AtomString(entry.DigestHint)))
	}

	if entry.Mode == oid.ModeECDH {
		if ecdh == nil {
			return sexp.Expr{}, dererr.New("keyinfo.CryptValToSexp", dererr.ErrInvalidObject)
		}
		algoItems = append(algoItems,
			sexp.List(sexp.AtomString("s"), sexp.Atom(ecdh.WrappedKey)),
			sexp.List(sexp.AtomString("encr-algo"), sexp.AtomString(aid.OID)),
			sexp.List(sexp.AtomString("wrap-algo"), sexp.AtomString(ecdh.WrapAlgoOID)),
		)
	}

	return sexp.List(sexp.AtomString(head), sexp.List(algoItems...)), nil
}

// SigValToSexp converts a signatureAlgorithm + signature BIT STRING pair
// into "(sig-val (<algo> ...))" form.
func SigValToSexp(data []byte, opts *Options) (sexp.Expr, error) {
	return cryptValToSexp(data, modeSig, nil, opts)
}

// EncValToSexp converts a key-transport AlgorithmIdentifier + encryptedKey
// value into "(enc-val (<algo> ...))" form. ecdh is nil for key-transport
// (RSA) recipients and required for key-agreement (ECDH) recipients.
func EncValToSexp(data []byte, ecdh *ECDHWrap, opts *Options) (sexp.Expr, error) {
	return cryptValToSexp(data, modeEnc, ecdh, opts)
}
