package cms

// Content-type OIDs a ContentInfo.ContentOID is compared against (RFC 5652
// §3). Dotted strings, matching pkg/oid's own table convention, rather than
// a parsed form — ContentInfo only ever needs to compare, never decode,
// these.
const (
	OIDData              = "1.2.840.113549.1.7.1"
	OIDSignedData        = "1.2.840.113549.1.7.2"
	OIDEnvelopedData     = "1.2.840.113549.1.7.3"
	OIDAuthEnvelopedData = "1.2.840.113549.1.9.16.1.23" // RFC 5083
)

// Content-encryption algorithm OIDs recognised by
// EnvelopedDataPart1.ContentEncryptionOID (RFC 3565, RFC 8351). AES-CBC
// carries its IV as the bare OCTET STRING parameter; AES-GCM's parameter is
// a GCMParameters SEQUENCE whose first field is the nonce — both shapes
// arrive in ContentEncryptionParam untouched, the caller picks them apart
// per the OID.
const (
	OIDAES128CBC = "2.16.840.1.101.3.4.1.2"
	OIDAES192CBC = "2.16.840.1.101.3.4.1.22"
	OIDAES256CBC = "2.16.840.1.101.3.4.1.42"
	OIDAES128GCM = "2.16.840.1.101.3.4.1.6"
	OIDAES192GCM = "2.16.840.1.101.3.4.1.26"
	OIDAES256GCM = "2.16.840.1.101.3.4.1.46"
)

// Key-wrap algorithm OIDs (RFC 3394) a KeyAgreeRecipientInfo's
// keyEncryptionAlgorithm names as the wrap-algo of an ECDH enc-val (spec
// §3's "(wrap-algo <oid>)").
const (
	OIDAESWrap128 = "2.16.840.1.101.3.4.1.5"
	OIDAESWrap192 = "2.16.840.1.101.3.4.1.25"
	OIDAESWrap256 = "2.16.840.1.101.3.4.1.45"
)

// IsContentEncryptionAES reports whether oidStr names one of the AES-CBC/
// AES-GCM content-encryption algorithms above.
func IsContentEncryptionAES(oidStr string) bool {
	switch oidStr {
	case OIDAES128CBC, OIDAES192CBC, OIDAES256CBC, OIDAES128GCM, OIDAES192GCM, OIDAES256GCM:
		return true
	default:
		return false
	}
}
