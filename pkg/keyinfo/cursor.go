package keyinfo

import (
	"github.com/corvid-systems/dermsg/pkg/berio"
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

// cursor is a flat byte-slice walker used to parse the small, hand-shaped
// grammars of AlgorithmIdentifier/BIT STRING/SEQUENCE-of-INTEGER that make
// up key, signature, and encrypted-value material — too irregular (CHOICE
// among raw remainders and nested SEQUENCEs keyed off an algorithm table)
// to route through the general schema-driven decoder in pkg/ber.
type cursor struct {
	r     berio.Reader
	total int64
}

func newCursor(data []byte) *cursor {
	return &cursor{r: berio.NewBytesReader(data), total: int64(len(data))}
}

func (c *cursor) remaining() int64 { return c.total - c.r.Tell() }

func (c *cursor) header(allowIndefinite bool) (tlv.TagInfo, error) {
	return tlv.ReadHeader(c.r, allowIndefinite, c.remaining())
}

func (c *cursor) take(n int64) ([]byte, error) {
	if n < 0 || n > c.remaining() {
		return nil, dererr.At("keyinfo", c.r.Tell(), dererr.ErrObjectTooShort)
	}
	return c.r.Read(int(n))
}

func (c *cursor) rest() ([]byte, error) {
	return c.take(c.remaining())
}

// expect reads one TLV header and validates its class/tag/constructed-ness,
// returning the header and its content bytes.
func expect(c *cursor, class tlv.Class, tag uint32, constructed bool) (tlv.TagInfo, []byte, error) {
	offset := c.r.Tell()
	info, err := c.header(false)
	if err != nil {
		return tlv.TagInfo{}, nil, err
	}
	if info.Class != class || info.Tag != tag || info.Constructed != constructed {
		return tlv.TagInfo{}, nil, dererr.At("keyinfo", offset, dererr.ErrUnexpectedTag)
	}
	content, err := c.take(info.Length)
	if err != nil {
		return tlv.TagInfo{}, nil, err
	}
	return info, content, nil
}
