package keyinfo

import (
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/oid"
	"github.com/corvid-systems/dermsg/pkg/sexp"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

// wrapperElem mirrors oid.wrapperElem for code in this package that walks
// raw ElemDesc/ParmElemDesc strings directly instead of oid.Step slices.
const wrapperElem = '-'

// walkSteps replays an oid.Step sequence against data (spec §4.F step 6).
// A wrapper step ('-') only validates that a (tag,len) header of the
// expected shape opens here — its declared length covers the following
// steps, which read on from the same position, exactly as libksba's single
// advancing pointer does. An emitting step consumes its full TLV triple
// and contributes "(<letter> <value>)"; the final raw step, if any,
// consumes every remaining byte as one value.
func walkSteps(stepsList []oid.Step, data []byte) ([]sexp.Expr, error) {
	c := newCursor(data)
	var out []sexp.Expr
	for _, st := range stepsList {
		if st.Raw {
			v, err := c.rest()
			if err != nil {
				return nil, err
			}
			if st.Emit {
				out = append(out, sexp.List(sexp.AtomString(string(st.Letter)), sexp.Atom(v)))
			}
			continue
		}
		class, tagNum, constructed := decodeRawTag(st.Tag)
		if !st.Emit {
			info, err := c.header(false)
			if err != nil {
				return nil, err
			}
			if info.Class != class || info.Tag != tagNum || info.Constructed != constructed {
				return nil, dererr.New("keyinfo.walkSteps", dererr.ErrUnexpectedTag)
			}
			continue
		}
		_, content, err := expect(c, class, tagNum, constructed)
		if err != nil {
			return nil, err
		}
		out = append(out, sexp.List(sexp.AtomString(string(st.Letter)), sexp.Atom(content)))
	}
	if c.remaining() != 0 {
		return nil, dererr.New("keyinfo.walkSteps", dererr.ErrInvalidKeyInfo)
	}
	return out, nil
}

// decodeRawTag splits a low-tag-number leading octet (as stored verbatim
// in an oid.Step's Tag field) into class/tag-number/constructed, the way
// BER packs them into a single byte for tag numbers below 31.
func decodeRawTag(b byte) (tlv.Class, uint32, bool) {
	return tlv.Class(b & 0xC0), uint32(b & 0x1F), b&0x20 != 0
}
