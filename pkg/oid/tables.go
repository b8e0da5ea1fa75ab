// Package oid holds the static OID-and-algorithm tables that drive
// algorithm dispatch throughout pkg/keyinfo and pkg/x509cert (spec §4.E).
// The tables are process-lifetime constants; lookups never mutate them.
package oid

import "github.com/corvid-systems/dermsg/pkg/dererr"

// Support describes whether an algorithm-table entry's parameters are
// understood by the codec.
type Support int

const (
	Unsupported Support = iota
	Supported
	SupportedRSAPSS  // RSASSA-PSS: parameters must be parsed per RFC 4055
	SupportedRSAOAEP // RSAES-OAEP: parameters must be parsed per RFC 4055
)

// PKAlgo identifies the public-key family an algorithm entry belongs to.
type PKAlgo string

const (
	PKRSA     PKAlgo = "rsa"
	PKDSA     PKAlgo = "dsa"
	PKECC     PKAlgo = "ecc"
	PKX25519  PKAlgo = "x25519"
	PKX448    PKAlgo = "x448"
	PKEd25519 PKAlgo = "ed25519"
	PKEd448   PKAlgo = "ed448"
	PKMLDSA   PKAlgo = "mldsa"
	PKSLHDSA  PKAlgo = "slhdsa"
)

// Mode distinguishes the shape of the symbolic enc-val/sig-val parameter
// list an entry produces (spec §3, §4.F step 9).
type Mode int

const (
	ModeSingle Mode = iota // a flat (<letter> <mpi>) list
	ModeECDH               // additionally emits (s ...) (encr-algo ...) (wrap-algo ...)
)

// RawRemainder, used as a TagDesc byte, marks that the corresponding
// element (always the last) consumes every remaining byte verbatim instead
// of a tagged (tag,len,value) triple.
const RawRemainder = 0x80

// wrapperElem marks an ElemDesc character that must match a (tag, len,
// value) triple but is consumed structurally rather than emitted as its
// own "(<letter> <mpi>)" form — used for the SEQUENCE that wraps RSA's
// n/e or DSA/ECDSA's r/s.
const wrapperElem = '-'

// Entry is one row of an algorithm table.
type Entry struct {
	OIDString    string
	Supported    Support
	PKAlgo       PKAlgo
	Name         string // symbolic algorithm name, e.g. "rsa", "ecdsa"
	ElemDesc     string
	TagDesc      []byte
	ParmElemDesc string
	ParmTagDesc  []byte
	DigestHint   string // non-empty for signature entries with an implied hash
	Mode         Mode

	oidBytes []byte // populated lazily by bytes
}

func (e *Entry) bytes() []byte {
	if e.oidBytes == nil {
		b, err := Encode(e.OIDString)
		if err == nil {
			e.oidBytes = b
		}
	}
	return e.oidBytes
}

// PKAlgoTable maps a SubjectPublicKeyInfo algorithm OID to its public-key
// shape.
var PKAlgoTable = []*Entry{
	{OIDString: "1.2.840.113549.1.1.1", Supported: Supported, PKAlgo: PKRSA, Name: "rsa",
		ElemDesc: "-ne", TagDesc: []byte{0x30, 0x02, 0x02}},
	{OIDString: "1.2.840.10040.4.1", Supported: Supported, PKAlgo: PKDSA, Name: "dsa",
		ElemDesc: "y", TagDesc: []byte{0x02},
		ParmElemDesc: "-pqg", ParmTagDesc: []byte{0x30, 0x02, 0x02, 0x02}},
	{OIDString: "1.2.840.10045.2.1", Supported: Supported, PKAlgo: PKECC, Name: "ecc",
		ElemDesc: "q", TagDesc: []byte{RawRemainder}},
	{OIDString: "1.3.101.110", Supported: Supported, PKAlgo: PKX25519, Name: "ecc",
		ElemDesc: "q", TagDesc: []byte{RawRemainder}},
	{OIDString: "1.3.101.111", Supported: Supported, PKAlgo: PKX448, Name: "ecc",
		ElemDesc: "q", TagDesc: []byte{RawRemainder}},
	{OIDString: "1.3.101.112", Supported: Supported, PKAlgo: PKEd25519, Name: "ecc",
		ElemDesc: "q", TagDesc: []byte{RawRemainder}},
	{OIDString: "1.3.101.113", Supported: Supported, PKAlgo: PKEd448, Name: "ecc",
		ElemDesc: "q", TagDesc: []byte{RawRemainder}},
	// ML-DSA (FIPS 204), wired per SPEC_FULL's cloudflare/circl domain-stack entry.
	{OIDString: "2.16.840.1.101.3.4.3.17", Supported: Supported, PKAlgo: PKMLDSA, Name: "mldsa44",
		ElemDesc: "q", TagDesc: []byte{RawRemainder}},
	{OIDString: "2.16.840.1.101.3.4.3.18", Supported: Supported, PKAlgo: PKMLDSA, Name: "mldsa65",
		ElemDesc: "q", TagDesc: []byte{RawRemainder}},
	{OIDString: "2.16.840.1.101.3.4.3.19", Supported: Supported, PKAlgo: PKMLDSA, Name: "mldsa87",
		ElemDesc: "q", TagDesc: []byte{RawRemainder}},
	{OIDString: "2.16.840.1.101.3.4.3.20", Supported: Supported, PKAlgo: PKSLHDSA, Name: "slhdsa128s",
		ElemDesc: "q", TagDesc: []byte{RawRemainder}},
}

// SigAlgoTable maps a signature AlgorithmIdentifier OID to its sig-val
// shape.
var SigAlgoTable = []*Entry{
	{OIDString: "1.2.840.113549.1.1.5", Supported: Supported, PKAlgo: PKRSA, Name: "rsa",
		ElemDesc: "s", TagDesc: []byte{RawRemainder}, DigestHint: "sha1"},
	{OIDString: "1.2.840.113549.1.1.11", Supported: Supported, PKAlgo: PKRSA, Name: "rsa",
		ElemDesc: "s", TagDesc: []byte{RawRemainder}, DigestHint: "sha256"},
	{OIDString: "1.2.840.113549.1.1.12", Supported: Supported, PKAlgo: PKRSA, Name: "rsa",
		ElemDesc: "s", TagDesc: []byte{RawRemainder}, DigestHint: "sha384"},
	{OIDString: "1.2.840.113549.1.1.13", Supported: Supported, PKAlgo: PKRSA, Name: "rsa",
		ElemDesc: "s", TagDesc: []byte{RawRemainder}, DigestHint: "sha512"},
	{OIDString: "1.2.840.113549.1.1.10", Supported: SupportedRSAPSS, PKAlgo: PKRSA, Name: "rsa",
		ElemDesc: "s", TagDesc: []byte{RawRemainder}},
	{OIDString: "1.2.840.10040.4.3", Supported: Supported, PKAlgo: PKDSA, Name: "dsa",
		ElemDesc: "-rs", TagDesc: []byte{0x30, 0x02, 0x02}, DigestHint: "sha1"},
	{OIDString: "1.2.840.10045.4.1", Supported: Supported, PKAlgo: PKECC, Name: "ecdsa",
		ElemDesc: "-rs", TagDesc: []byte{0x30, 0x02, 0x02}, DigestHint: "sha1"},
	{OIDString: "1.2.840.10045.4.3.2", Supported: Supported, PKAlgo: PKECC, Name: "ecdsa",
		ElemDesc: "-rs", TagDesc: []byte{0x30, 0x02, 0x02}, DigestHint: "sha256"},
	{OIDString: "1.2.840.10045.4.3.3", Supported: Supported, PKAlgo: PKECC, Name: "ecdsa",
		ElemDesc: "-rs", TagDesc: []byte{0x30, 0x02, 0x02}, DigestHint: "sha384"},
	{OIDString: "1.2.840.10045.4.3.4", Supported: Supported, PKAlgo: PKECC, Name: "ecdsa",
		ElemDesc: "-rs", TagDesc: []byte{0x30, 0x02, 0x02}, DigestHint: "sha512"},
	// ecdsa-with-specified: the effective digest OID rides inside the
	// AlgorithmIdentifier parameters; pkg/keyinfo resolves it before table
	// lookup (spec §4.F get_algorithm special case), so no DigestHint here.
	{OIDString: "1.2.840.10045.4.3", Supported: Supported, PKAlgo: PKECC, Name: "ecdsa",
		ElemDesc: "-rs", TagDesc: []byte{0x30, 0x02, 0x02}},
	{OIDString: "1.3.101.112", Supported: Supported, PKAlgo: PKEd25519, Name: "eddsa",
		ElemDesc: "s", TagDesc: []byte{RawRemainder}},
	{OIDString: "1.3.101.113", Supported: Supported, PKAlgo: PKEd448, Name: "eddsa",
		ElemDesc: "s", TagDesc: []byte{RawRemainder}},
	{OIDString: "2.16.840.1.101.3.4.3.17", Supported: Supported, PKAlgo: PKMLDSA, Name: "mldsa44",
		ElemDesc: "s", TagDesc: []byte{RawRemainder}},
	{OIDString: "2.16.840.1.101.3.4.3.18", Supported: Supported, PKAlgo: PKMLDSA, Name: "mldsa65",
		ElemDesc: "s", TagDesc: []byte{RawRemainder}},
	{OIDString: "2.16.840.1.101.3.4.3.19", Supported: Supported, PKAlgo: PKMLDSA, Name: "mldsa87",
		ElemDesc: "s", TagDesc: []byte{RawRemainder}},
	// rsaEncryption used bare, without a hash OID (some CAs emit this).
	{OIDString: "1.2.840.113549.1.1.1", Supported: Supported, PKAlgo: PKRSA, Name: "rsa",
		ElemDesc: "s", TagDesc: []byte{RawRemainder}},
}

// EncAlgoTable maps a key-transport/key-agreement AlgorithmIdentifier OID to
// its enc-val shape.
var EncAlgoTable = []*Entry{
	{OIDString: "1.2.840.113549.1.1.1", Supported: Supported, PKAlgo: PKRSA, Name: "rsa",
		ElemDesc: "a", TagDesc: []byte{RawRemainder}, Mode: ModeSingle},
	{OIDString: "1.2.840.113549.1.1.7", Supported: SupportedRSAOAEP, PKAlgo: PKRSA, Name: "rsa",
		ElemDesc: "a", TagDesc: []byte{RawRemainder}, Mode: ModeSingle},
	{OIDString: "1.2.840.10045.2.1", Supported: Supported, PKAlgo: PKECC, Name: "ecdh",
		ElemDesc: "e", TagDesc: []byte{RawRemainder}, Mode: ModeECDH},
}

// CurveEntry maps a curve's textual name (used in symbolic key expressions
// and in pkg/keyinfo's curve-name resolution) to its SEC2/RFC5480 OID.
type CurveEntry struct {
	Name      string
	OIDString string
}

var CurveTable = []CurveEntry{
	{Name: "NIST P-256", OIDString: "1.2.840.10045.3.1.7"},
	{Name: "NIST P-384", OIDString: "1.3.132.0.34"},
	{Name: "NIST P-521", OIDString: "1.3.132.0.35"},
	{Name: "secp256k1", OIDString: "1.3.132.0.10"},
	{Name: "brainpoolP256r1", OIDString: "1.3.36.3.3.2.8.1.1.7"},
	{Name: "brainpoolP384r1", OIDString: "1.3.36.3.3.2.8.1.1.11"},
	{Name: "brainpoolP512r1", OIDString: "1.3.36.3.3.2.8.1.1.13"},
	{Name: "Ed25519", OIDString: "1.3.101.112"},
	{Name: "Ed448", OIDString: "1.3.101.113"},
	{Name: "X25519", OIDString: "1.3.101.110"},
	{Name: "X448", OIDString: "1.3.101.111"},
	{Name: "GOST2001-CryptoPro-A", OIDString: "1.2.643.2.2.35.1"},
	{Name: "GOST2001-CryptoPro-B", OIDString: "1.2.643.2.2.35.2"},
	{Name: "GOST2001-CryptoPro-C", OIDString: "1.2.643.2.2.35.3"},
	{Name: "GOST2012-tc26-A", OIDString: "1.2.643.7.1.2.1.2.1"},
	{Name: "GOST2012-tc26-B", OIDString: "1.2.643.7.1.2.1.2.2"},
}

func findByOID(table []*Entry, oidOrDotted string) (*Entry, error) {
	dotted := stripPrefix(oidOrDotted)
	for _, e := range table {
		if e.OIDString == dotted {
			return e, nil
		}
	}
	return nil, dererr.New("oid.Lookup", dererr.ErrUnknownAlgorithm)
}

func findByBytes(table []*Entry, der []byte) (*Entry, error) {
	for _, e := range table {
		if string(e.bytes()) == string(der) {
			return e, nil
		}
	}
	return nil, dererr.New("oid.Lookup", dererr.ErrUnknownAlgorithm)
}

// lookupChecked wraps a table lookup to report UnsupportedAlgorithm (rather
// than UnknownAlgorithm) for entries explicitly marked Unsupported.
func lookupChecked(e *Entry, err error) (*Entry, error) {
	if err != nil {
		return nil, err
	}
	if e.Supported == Unsupported {
		return nil, dererr.New("oid.Lookup", dererr.ErrUnsupportedAlgorithm)
	}
	return e, nil
}

// LookupPK looks up a public-key algorithm by dotted OID string (an
// optional "oid."/"OID." prefix is stripped first).
func LookupPK(oidStr string) (*Entry, error) { return lookupChecked(findByOID(PKAlgoTable, oidStr)) }

// LookupPKBytes looks up a public-key algorithm by its DER OID bytes.
func LookupPKBytes(der []byte) (*Entry, error) { return lookupChecked(findByBytes(PKAlgoTable, der)) }

// LookupSig looks up a signature algorithm by dotted OID string.
func LookupSig(oidStr string) (*Entry, error) { return lookupChecked(findByOID(SigAlgoTable, oidStr)) }

// LookupSigBytes looks up a signature algorithm by its DER OID bytes.
func LookupSigBytes(der []byte) (*Entry, error) {
	return lookupChecked(findByBytes(SigAlgoTable, der))
}

// LookupEnc looks up a key-transport/agreement algorithm by dotted OID
// string.
func LookupEnc(oidStr string) (*Entry, error) { return lookupChecked(findByOID(EncAlgoTable, oidStr)) }

// LookupEncBytes looks up a key-transport/agreement algorithm by its DER OID
// bytes.
func LookupEncBytes(der []byte) (*Entry, error) {
	return lookupChecked(findByBytes(EncAlgoTable, der))
}

// LookupPKByName finds a public-key table entry by its symbolic algorithm
// name (used by keyinfo_from_sexp, spec §4.F step 2).
func LookupPKByName(name string) (*Entry, error) {
	for _, e := range PKAlgoTable {
		if e.Name == name {
			return e, nil
		}
	}
	return nil, dererr.New("oid.LookupPKByName", dererr.ErrUnknownAlgorithm)
}

// LookupCurveByName resolves a curve's symbolic name to its dotted OID.
func LookupCurveByName(name string) (string, error) {
	for _, c := range CurveTable {
		if c.Name == name {
			return c.OIDString, nil
		}
	}
	return "", dererr.New("oid.LookupCurveByName", dererr.ErrUnknownAlgorithm)
}

// LookupCurveByOID resolves a dotted curve OID to its symbolic name.
func LookupCurveByOID(oidStr string) (string, error) {
	dotted := stripPrefix(oidStr)
	for _, c := range CurveTable {
		if c.OIDString == dotted {
			return c.Name, nil
		}
	}
	return "", dererr.New("oid.LookupCurveByOID", dererr.ErrUnknownAlgorithm)
}

// Bytes returns the DER content-octet encoding of e's OID.
func (e *Entry) Bytes() []byte { return e.bytes() }

// StripPrefix removes a leading "oid."/"OID." the way lookups do.
func StripPrefix(s string) string { return stripPrefix(s) }

// LooksLikeOID reports whether s (after stripping an optional "oid."/
// "OID." prefix) opens with a digit, the heuristic spec §4.F's curve- and
// algorithm-name resolution uses to distinguish a dotted OID from a
// symbolic name.
func LooksLikeOID(s string) bool {
	d := stripPrefix(s)
	return len(d) > 0 && d[0] >= '0' && d[0] <= '9'
}

// Step is one position in an ElemDesc/TagDesc walk (spec §4.F step 6).
type Step struct {
	Letter byte // the ElemDesc character; '-' for a structural, unemitted wrapper
	Tag    byte // the expected tag byte, or RawRemainder&0xff sentinel
	Raw    bool // true if this step (always the last) consumes all remaining bytes
	Emit   bool // true if this step should be emitted as "(<letter> <mpi>)"
}

// steps zips an ElemDesc string against its TagDesc bytes into a Step
// sequence, mirroring libksba's parallel-array walk.
func steps(elemDesc string, tagDesc []byte) []Step {
	out := make([]Step, 0, len(elemDesc))
	for i := 0; i < len(elemDesc) && i < len(tagDesc); i++ {
		letter := elemDesc[i]
		tag := tagDesc[i]
		raw := tag&RawRemainder != 0 && i == len(elemDesc)-1
		out = append(out, Step{Letter: letter, Tag: tag, Raw: raw, Emit: letter != wrapperElem})
	}
	return out
}

// Steps returns the primary parameter walk for e (public key or signature
// value, depending on which table e came from).
func (e *Entry) Steps() []Step { return steps(e.ElemDesc, e.TagDesc) }

// ParmSteps returns the AlgorithmIdentifier-parameter walk for e (DSA's
// p,q,g), empty if e has none.
func (e *Entry) ParmSteps() []Step { return steps(e.ParmElemDesc, e.ParmTagDesc) }
