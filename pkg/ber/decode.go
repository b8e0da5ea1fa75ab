package ber

import (
	"github.com/corvid-systems/dermsg/pkg/berio"
	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/schema"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

// Decode drives mod over src starting at the named type, capturing every
// byte read into an image and returning the resulting node tree alongside
// it. It never emits a partial tree: on error, the returned node is nil.
func Decode(mod *schema.Module, typeName string, src berio.Reader) (*Node, []byte, error) {
	root, err := mod.Lookup(typeName)
	if err != nil {
		return nil, nil, err
	}
	cr := newCaptureReader(src)
	node, err := decodeNode(mod, root, cr)
	if err != nil {
		return nil, cr.image(), err
	}
	return node, cr.image(), nil
}

// decodeNode decodes one schema node (a field node carrying its own Name,
// or a module-level type root) at the reader's current position.
func decodeNode(mod *schema.Module, field *schema.Node, cr *captureReader) (*Node, error) {
	concrete, err := mod.Resolve(field)
	if err != nil {
		return nil, err
	}
	name := field.Name

	switch concrete.Kind {
	case schema.KindChoice:
		return decodeChoice(mod, name, concrete, cr)
	case schema.KindTagged:
		return decodeTagged(mod, name, concrete, cr)
	case schema.KindSequence, schema.KindSet:
		return decodeFielded(mod, name, concrete, cr)
	case schema.KindSequenceOf, schema.KindSetOf:
		return decodeRepeated(mod, name, concrete, cr)
	case schema.KindPrimitive:
		return decodePrimitive(mod, name, concrete, cr)
	}
	return nil, dererr.New("ber.decodeNode", dererr.ErrGeneral)
}

func peekHeader(cr *captureReader) (tlv.TagInfo, error) {
	rec := &recorder{r: cr}
	info, err := tlv.ReadHeader(rec, true, -1)
	if err != nil {
		return info, err
	}
	if err := cr.Unread(rec.buf); err != nil {
		return info, err
	}
	return info, nil
}

func readExact(cr *captureReader, n int64) ([]byte, error) {
	if n < 0 {
		return nil, dererr.New("ber.readExact", dererr.ErrInvalidValue)
	}
	buf := make([]byte, 0, n)
	for int64(len(buf)) < n {
		chunk, err := cr.Read(int(n - int64(len(buf))))
		if err != nil || len(chunk) == 0 {
			return nil, dererr.At("ber.readExact", cr.Tell(), dererr.ErrObjectTooShort)
		}
		buf = append(buf, chunk...)
	}
	return buf, nil
}

func readEOC(cr *captureReader) error {
	start := cr.Tell()
	info, err := tlv.ReadHeader(cr, true, -1)
	if err != nil {
		return err
	}
	if !isEOC(info) {
		return dererr.At("ber.readEOC", start, dererr.ErrBerError)
	}
	return nil
}

// decodeFielded decodes a SEQUENCE or SET: reads its own header, then its
// fields in schema order.
func decodeFielded(mod *schema.Module, name string, concrete *schema.Node, cr *captureReader) (*Node, error) {
	expectedTag := uint32(tlv.TagSequence)
	if concrete.Kind == schema.KindSet {
		expectedTag = tlv.TagSet
	}
	start := cr.Tell()
	info, err := tlv.ReadHeader(cr, true, -1)
	if err != nil {
		return nil, err
	}
	if info.Class != tlv.ClassUniversal || info.Tag != expectedTag || !info.Constructed {
		return nil, dererr.At("ber.decodeFielded", start, dererr.ErrUnexpectedTag)
	}
	children, consumed, err := decodeFields(mod, concrete.Children, cr, info)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: concrete.Kind, Name: name, Offset: start, HeaderLen: info.HeaderBytes, ContentLen: consumed, Tag: info, Children: children}, nil
}

// decodeFields decodes concrete's field list against an already-read outer
// header, enforcing definite-length accounting or consuming the
// end-of-contents marker for indefinite length.
func decodeFields(mod *schema.Module, fields []*schema.Node, cr *captureReader, outer tlv.TagInfo) ([]*Node, int64, error) {
	var children []*Node
	var consumed int64

	for _, f := range fields {
		if !outer.Indefinite && consumed >= outer.Length {
			child, err := missingField(f)
			if err != nil {
				return nil, 0, err
			}
			children = append(children, child)
			continue
		}

		peeked, err := peekHeader(cr)
		if err != nil {
			return nil, 0, err
		}
		if outer.Indefinite && isEOC(peeked) {
			child, err := missingField(f)
			if err != nil {
				return nil, 0, err
			}
			children = append(children, child)
			continue
		}

		set, wildcard, err := tagSet(mod, f)
		if err != nil {
			return nil, 0, err
		}
		if !wildcard && !containsTag(set, peeked.Class, peeked.Tag) {
			child, err := missingField(f)
			if err != nil {
				return nil, 0, err
			}
			children = append(children, child)
			continue
		}

		child, err := decodeNode(mod, f, cr)
		if err != nil {
			return nil, 0, err
		}
		children = append(children, child)
		consumed += child.totalLen()
	}

	if outer.Indefinite {
		if err := readEOC(cr); err != nil {
			return nil, 0, err
		}
	} else if consumed != outer.Length {
		return nil, 0, dererr.At("ber.decodeFields", cr.Tell(), dererr.ErrBerError)
	}
	return children, consumed, nil
}

func missingField(f *schema.Node) (*Node, error) {
	if !f.Optional {
		return nil, dererr.New("ber.decodeFields", dererr.ErrInvalidObject)
	}
	return &Node{Kind: schema.KindPrimitive, Name: f.Name, ContentLen: -1}, nil
}

// decodeRepeated decodes a SEQUENCE OF / SET OF: reads its own header, then
// zero or more elements of the same schema type until the declared length
// (or end-of-contents marker) is reached.
func decodeRepeated(mod *schema.Module, name string, concrete *schema.Node, cr *captureReader) (*Node, error) {
	expectedTag := uint32(tlv.TagSequence)
	if concrete.Kind == schema.KindSetOf {
		expectedTag = tlv.TagSet
	}
	start := cr.Tell()
	info, err := tlv.ReadHeader(cr, true, -1)
	if err != nil {
		return nil, err
	}
	if info.Class != tlv.ClassUniversal || info.Tag != expectedTag || !info.Constructed {
		return nil, dererr.At("ber.decodeRepeated", start, dererr.ErrUnexpectedTag)
	}

	var children []*Node
	var consumed int64
	for {
		if !info.Indefinite && consumed >= info.Length {
			break
		}
		peeked, err := peekHeader(cr)
		if err != nil {
			return nil, err
		}
		if info.Indefinite && isEOC(peeked) {
			break
		}
		child, err := decodeNode(mod, concrete.Child, cr)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
		consumed += child.totalLen()
	}

	if info.Indefinite {
		if err := readEOC(cr); err != nil {
			return nil, err
		}
	} else if consumed != info.Length {
		return nil, dererr.At("ber.decodeRepeated", cr.Tell(), dererr.ErrBerError)
	}
	return &Node{Kind: concrete.Kind, Name: name, Offset: start, HeaderLen: info.HeaderBytes, ContentLen: consumed, Tag: info, Children: children}, nil
}

// decodeChoice peeks the next header and decodes whichever alternative
// matches it, wrapping the result in a CHOICE node per spec §4.D.
func decodeChoice(mod *schema.Module, name string, concrete *schema.Node, cr *captureReader) (*Node, error) {
	peeked, err := peekHeader(cr)
	if err != nil {
		return nil, err
	}
	for _, alt := range concrete.Children {
		set, wildcard, err := tagSet(mod, alt)
		if err != nil {
			return nil, err
		}
		if wildcard || containsTag(set, peeked.Class, peeked.Tag) {
			child, err := decodeNode(mod, alt, cr)
			if err != nil {
				return nil, err
			}
			return &Node{Kind: schema.KindChoice, Name: name, Offset: child.Offset, HeaderLen: child.HeaderLen, ContentLen: child.ContentLen, Tag: child.Tag, Children: []*Node{child}}, nil
		}
	}
	return nil, dererr.At("ber.decodeChoice", cr.Tell(), dererr.ErrUnexpectedTag)
}

// decodeTagged decodes an explicitly or implicitly tagged field.
func decodeTagged(mod *schema.Module, name string, concrete *schema.Node, cr *captureReader) (*Node, error) {
	start := cr.Tell()
	info, err := tlv.ReadHeader(cr, true, -1)
	if err != nil {
		return nil, err
	}
	if info.Class != concrete.Class || info.Tag != concrete.TagNum {
		return nil, dererr.At("ber.decodeTagged", start, dererr.ErrUnexpectedTag)
	}

	if !concrete.Implicit {
		inner, err := decodeNode(mod, concrete.Child, cr)
		if err != nil {
			return nil, err
		}
		contentLen := inner.totalLen()
		if info.Indefinite {
			if err := readEOC(cr); err != nil {
				return nil, err
			}
		} else if contentLen != info.Length {
			return nil, dererr.At("ber.decodeTagged", cr.Tell(), dererr.ErrBerError)
		}
		return &Node{Kind: schema.KindTagged, Name: name, Offset: start, HeaderLen: info.HeaderBytes, ContentLen: contentLen, Tag: info, Children: []*Node{inner}}, nil
	}

	// IMPLICIT: the outer tag replaces the inner type's own tag. Decode the
	// content as the inner (resolved) type's body, using this header's
	// length/constructed bits rather than reading a second header.
	childConcrete, err := mod.Resolve(concrete.Child)
	if err != nil {
		return nil, err
	}
	kind, children, consumed, err := decodeBody(mod, childConcrete, cr, info)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: kind, Name: name, Offset: start, HeaderLen: info.HeaderBytes, ContentLen: consumed, Tag: info, Children: children}, nil
}

// decodeBody decodes the content of a value whose header has already been
// consumed (used for IMPLICIT tag substitution, spec §4.D).
func decodeBody(mod *schema.Module, concrete *schema.Node, cr *captureReader, info tlv.TagInfo) (schema.Kind, []*Node, int64, error) {
	switch concrete.Kind {
	case schema.KindSequence, schema.KindSet:
		children, consumed, err := decodeFields(mod, concrete.Children, cr, info)
		return concrete.Kind, children, consumed, err
	case schema.KindSequenceOf, schema.KindSetOf:
		var children []*Node
		var consumed int64
		for {
			if !info.Indefinite && consumed >= info.Length {
				break
			}
			peeked, err := peekHeader(cr)
			if err != nil {
				return 0, nil, 0, err
			}
			if info.Indefinite && isEOC(peeked) {
				break
			}
			child, err := decodeNode(mod, concrete.Child, cr)
			if err != nil {
				return 0, nil, 0, err
			}
			children = append(children, child)
			consumed += child.totalLen()
		}
		if info.Indefinite {
			if err := readEOC(cr); err != nil {
				return 0, nil, 0, err
			}
		} else if consumed != info.Length {
			return 0, nil, 0, dererr.At("ber.decodeBody", cr.Tell(), dererr.ErrBerError)
		}
		return concrete.Kind, children, consumed, nil
	case schema.KindPrimitive:
		if info.Indefinite {
			return 0, nil, 0, dererr.At("ber.decodeBody", cr.Tell(), dererr.ErrUnsupportedEncoding)
		}
		if _, err := readExact(cr, info.Length); err != nil {
			return 0, nil, 0, err
		}
		return schema.KindPrimitive, nil, info.Length, nil
	}
	return 0, nil, 0, dererr.New("ber.decodeBody", dererr.ErrUnsupportedEncoding)
}

// decodePrimitive decodes a leaf value: a specific universal type, or an
// opaque ANY / ANY DEFINED BY capture.
func decodePrimitive(mod *schema.Module, name string, concrete *schema.Node, cr *captureReader) (*Node, error) {
	start := cr.Tell()
	if concrete.PrimTag == schema.TagAny {
		info, err := tlv.ReadHeader(cr, true, -1)
		if err != nil {
			return nil, err
		}
		if info.Indefinite {
			return nil, dererr.At("ber.decodePrimitive", start, dererr.ErrUnsupportedEncoding)
		}
		if _, err := readExact(cr, info.Length); err != nil {
			return nil, err
		}
		return &Node{Kind: schema.KindPrimitive, Name: name, Offset: start, HeaderLen: info.HeaderBytes, ContentLen: info.Length, Tag: info}, nil
	}

	info, err := tlv.ReadHeader(cr, false, -1)
	if err != nil {
		return nil, err
	}
	if info.Class != tlv.ClassUniversal || info.Tag != concrete.PrimTag {
		return nil, dererr.At("ber.decodePrimitive", start, dererr.ErrUnexpectedTag)
	}
	if info.Constructed {
		return nil, dererr.At("ber.decodePrimitive", start, dererr.ErrBerError)
	}
	if _, err := readExact(cr, info.Length); err != nil {
		return nil, err
	}
	return &Node{Kind: schema.KindPrimitive, Name: name, Offset: start, HeaderLen: info.HeaderBytes, ContentLen: info.Length, Tag: info}, nil
}
