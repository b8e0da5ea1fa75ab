package oid

import (
	"strconv"
	"strings"

	"github.com/corvid-systems/dermsg/pkg/dererr"
)

// Encode converts a dotted OID string ("1.2.840.113549.1.1.1") into its DER
// content bytes (the value octets of an OBJECT IDENTIFIER, not including the
// tag or length octets).
func Encode(dotted string) ([]byte, error) {
	parts := strings.Split(dotted, ".")
	if len(parts) < 2 {
		return nil, dererr.New("oid.Encode", dererr.ErrInvalidValue)
	}
	arcs := make([]uint64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, dererr.New("oid.Encode", dererr.ErrInvalidValue)
		}
		arcs[i] = v
	}
	if arcs[0] > 2 || (arcs[0] < 2 && arcs[1] >= 40) {
		return nil, dererr.New("oid.Encode", dererr.ErrInvalidValue)
	}

	out := []byte{byte(arcs[0]*40 + arcs[1])}
	for _, arc := range arcs[2:] {
		out = append(out, encodeBase128(arc)...)
	}
	return out, nil
}

func encodeBase128(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	var buf []byte
	for v > 0 {
		buf = append([]byte{byte(v & 0x7F)}, buf...)
		v >>= 7
	}
	for i := 0; i < len(buf)-1; i++ {
		buf[i] |= 0x80
	}
	return buf
}

// Decode converts DER OBJECT IDENTIFIER content bytes back into dotted
// string form.
func Decode(der []byte) (string, error) {
	if len(der) == 0 {
		return "", dererr.New("oid.Decode", dererr.ErrInvalidValue)
	}
	first := der[0]
	var sb strings.Builder
	if first < 40 {
		sb.WriteString("0.")
	} else if first < 80 {
		sb.WriteString("1.")
		first -= 40
	} else {
		sb.WriteString("2.")
		first -= 80
	}
	sb.WriteString(strconv.Itoa(int(first)))

	var v uint64
	for _, b := range der[1:] {
		v = v<<7 | uint64(b&0x7F)
		if b&0x80 == 0 {
			sb.WriteByte('.')
			sb.WriteString(strconv.FormatUint(v, 10))
			v = 0
		}
	}
	return sb.String(), nil
}

// stripPrefix removes a leading "oid." or "OID." the way spec.md §4.E
// specifies lookups may accept.
func stripPrefix(s string) string {
	if len(s) > 4 && (s[:4] == "oid." || s[:4] == "OID.") {
		return s[4:]
	}
	return s
}
