// Package tlv implements the tag-length-value header codec shared by BER and
// DER (X.690). It handles a single header at a time: decoding the tag class,
// number, constructed bit and length from a byte source, and encoding the
// shortest legal DER header for a given content length.
package tlv

import (
	"fmt"

	"github.com/corvid-systems/dermsg/pkg/berio"
	"github.com/corvid-systems/dermsg/pkg/dererr"
)

// Class identifies the ASN.1 tag class.
type Class byte

const (
	ClassUniversal   Class = 0x00
	ClassApplication Class = 0x40
	ClassContext     Class = 0x80
	ClassPrivate     Class = 0xC0
)

func (c Class) String() string {
	switch c {
	case ClassUniversal:
		return "universal"
	case ClassApplication:
		return "application"
	case ClassContext:
		return "context"
	case ClassPrivate:
		return "private"
	default:
		return "invalid"
	}
}

// Universal tag numbers used by the decoder and codec.
const (
	TagEndOfContents = 0
	TagBoolean       = 1
	TagInteger       = 2
	TagBitString     = 3
	TagOctetString   = 4
	TagNull          = 5
	TagOID           = 6
	TagUTF8String    = 12
	TagSequence      = 16
	TagSet           = 17
	TagPrintable     = 19
	TagT61           = 20
	TagIA5           = 22
	TagUTCTime       = 23
	TagGeneralTime   = 24
	TagUniversalStr  = 28
	TagBMPString     = 30
)

// TagInfo describes a decoded TLV header.
type TagInfo struct {
	Class       Class
	Tag         uint32
	Constructed bool
	Length      int64 // content length; meaningless if Indefinite
	Indefinite  bool
	HeaderBytes int
}

// ReadHeader consumes the minimal bytes of one TLV header from src.
//
// It rejects the reserved length byte 0xFF (dererr.ErrBerError) and, unless
// allowIndefinite is set, rejects the indefinite-length marker 0x80 as well.
// Multi-byte lengths are decoded big-endian; a length exceeding bound (when
// bound >= 0) is rejected with dererr.ErrObjectTooShort.
func ReadHeader(src berio.Reader, allowIndefinite bool, bound int64) (TagInfo, error) {
	var info TagInfo
	first, err := readByte(src)
	if err != nil {
		return info, err
	}
	n := 1
	info.Class = Class(first & 0xC0)
	info.Constructed = first&0x20 != 0
	tagByte := first & 0x1F
	if tagByte < 0x1F {
		info.Tag = uint32(tagByte)
	} else {
		var tag uint32
		for {
			b, err := readByte(src)
			if err != nil {
				return info, err
			}
			n++
			tag = tag<<7 | uint32(b&0x7F)
			if b&0x80 == 0 {
				break
			}
			if n > 6 {
				return info, dererr.At("tlv.ReadHeader", -1, dererr.ErrBerError)
			}
		}
		info.Tag = tag
	}

	lenByte, err := readByte(src)
	if err != nil {
		return info, err
	}
	n++
	switch {
	case lenByte == 0xFF:
		return info, dererr.At("tlv.ReadHeader", -1, dererr.ErrBerError)
	case lenByte == 0x80:
		if !allowIndefinite {
			return info, dererr.At("tlv.ReadHeader", -1, dererr.ErrBerError)
		}
		if !info.Constructed {
			return info, dererr.At("tlv.ReadHeader", -1, dererr.ErrBerError)
		}
		info.Indefinite = true
	case lenByte&0x80 == 0:
		info.Length = int64(lenByte)
	default:
		numOctets := int(lenByte & 0x7F)
		if numOctets > 8 {
			return info, dererr.At("tlv.ReadHeader", -1, dererr.ErrObjectTooLarge)
		}
		var length int64
		for i := 0; i < numOctets; i++ {
			b, err := readByte(src)
			if err != nil {
				return info, err
			}
			n++
			length = length<<8 | int64(b)
			if length < 0 {
				return info, dererr.At("tlv.ReadHeader", -1, dererr.ErrObjectTooLarge)
			}
		}
		info.Length = length
	}
	info.HeaderBytes = n

	if !info.Indefinite && bound >= 0 && info.Length > bound {
		return info, dererr.At("tlv.ReadHeader", -1, dererr.ErrObjectTooShort)
	}
	return info, nil
}

func readByte(src berio.Reader) (byte, error) {
	b, err := src.Read(1)
	if err != nil {
		return 0, dererr.New("tlv.ReadHeader", dererr.ErrReadError)
	}
	if len(b) != 1 {
		return 0, dererr.New("tlv.ReadHeader", dererr.ErrObjectTooShort)
	}
	return b[0], nil
}

// HeaderLen returns the number of bytes WriteHeader would emit for the given
// tag/class/constructed/length, without emitting anything.
func HeaderLen(class Class, tag uint32, contentLen int64) int {
	n := 1
	if tag >= 0x1F {
		n += tagNumberLen(tag)
	}
	n += lengthOctetLen(contentLen)
	_ = class
	return n
}

func tagNumberLen(tag uint32) int {
	n := 1
	for v := tag >> 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

func lengthOctetLen(length int64) int {
	if length < 0x80 {
		return 1
	}
	n := 1
	for v := length; v > 0; n++ {
		v >>= 8
	}
	return n
}

// WriteHeader emits the shortest legal DER header (definite length, minimal
// length octets) for the given tag, class, constructed flag and content
// length to sink.
func WriteHeader(sink []byte, class Class, tag uint32, constructed bool, contentLen int64) ([]byte, error) {
	if contentLen < 0 {
		return nil, dererr.New("tlv.WriteHeader", dererr.ErrInvalidValue)
	}
	first := byte(class)
	if constructed {
		first |= 0x20
	}
	if tag < 0x1F {
		sink = append(sink, first|byte(tag))
	} else {
		sink = append(sink, first|0x1F)
		sink = appendTagNumber(sink, tag)
	}
	sink = appendLength(sink, contentLen)
	return sink, nil
}

func appendTagNumber(dst []byte, tag uint32) []byte {
	n := tagNumberLen(tag)
	var buf [8]byte
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(tag & 0x7F)
		tag >>= 7
		if i != n-1 {
			buf[i] |= 0x80
		}
	}
	return append(dst, buf[:n]...)
}

func appendLength(dst []byte, length int64) []byte {
	if length < 0x80 {
		return append(dst, byte(length))
	}
	n := lengthOctetLen(length) - 1
	var buf [8]byte
	v := length
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	dst = append(dst, 0x80|byte(n))
	return append(dst, buf[:n]...)
}

// String renders a TagInfo for diagnostics.
func (t TagInfo) String() string {
	kind := "p"
	if t.Constructed {
		kind = "c"
	}
	if t.Indefinite {
		return fmt.Sprintf("%s[%d]/%s:indefinite", t.Class, t.Tag, kind)
	}
	return fmt.Sprintf("%s[%d]/%s:%d", t.Class, t.Tag, kind, t.Length)
}
