package oid

import (
	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"github.com/cloudflare/circl/sign/mldsa/mldsa87"

	"github.com/corvid-systems/dermsg/pkg/dererr"
)

// mlDSAPublicKeySize maps an ML-DSA PKAlgoTable entry's Name to the fixed
// public-key length FIPS 204 defines for it, taken from circl's own size
// constants rather than repeated as magic numbers here.
var mlDSAPublicKeySize = map[string]int{
	"mldsa44": mldsa44.PublicKeySize,
	"mldsa65": mldsa65.PublicKeySize,
	"mldsa87": mldsa87.PublicKeySize,
}

// mlDSASignatureSize is the same, for the fixed-length signature value.
var mlDSASignatureSize = map[string]int{
	"mldsa44": mldsa44.SignatureSize,
	"mldsa65": mldsa65.SignatureSize,
	"mldsa87": mldsa87.SignatureSize,
}

// CheckMLDSAPublicKeySize validates that an ML-DSA public-key value's
// length matches the entry's variant (spec §4.F's "declarative support
// table", extended here to the one shape FIPS 204 genuinely fixes at
// decode time). name must be one of PKAlgoTable's mldsa44/65/87 Name
// values; any other name reports ErrUnknownAlgorithm.
func CheckMLDSAPublicKeySize(name string, keyLen int) error {
	want, ok := mlDSAPublicKeySize[name]
	if !ok {
		return dererr.New("oid.CheckMLDSAPublicKeySize", dererr.ErrUnknownAlgorithm)
	}
	if keyLen != want {
		return dererr.New("oid.CheckMLDSAPublicKeySize", dererr.ErrInvalidKeyInfo)
	}
	return nil
}

// CheckMLDSASignatureSize is CheckMLDSAPublicKeySize's signature-value
// counterpart.
func CheckMLDSASignatureSize(name string, sigLen int) error {
	want, ok := mlDSASignatureSize[name]
	if !ok {
		return dererr.New("oid.CheckMLDSASignatureSize", dererr.ErrUnknownAlgorithm)
	}
	if sigLen != want {
		return dererr.New("oid.CheckMLDSASignatureSize", dererr.ErrInvalidKeyInfo)
	}
	return nil
}
