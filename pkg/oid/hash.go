package oid

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/sha3"

	"github.com/corvid-systems/dermsg/pkg/dererr"
)

// NewHasher returns a fresh hash.Hash for a DigestHint name, as carried by
// SigAlgoTable entries. The classical digests use the standard library; the
// sha3-* names are also accepted, though no SigAlgoTable entry carries one
// (the ML-DSA entries carry no DigestHint at all — see SigAlgoTable).
func NewHasher(name string) (hash.Hash, error) {
	switch name {
	case "sha1":
		return sha1.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha384":
		return sha512.New384(), nil
	case "sha512":
		return sha512.New(), nil
	case "sha3-256":
		return sha3.New256(), nil
	case "sha3-384":
		return sha3.New384(), nil
	case "sha3-512":
		return sha3.New512(), nil
	default:
		return nil, dererr.New("oid.NewHasher", dererr.ErrUnknownAlgorithm)
	}
}
