// Package ber implements the schema-driven BER decoder (spec §4.D). Given a
// grammar loaded by pkg/schema and an input stream, it produces a tree of
// Nodes keyed to byte offsets in a captured image, tolerating both definite
// and indefinite-length constructed encodings.
package ber

import (
	"strings"

	"github.com/corvid-systems/dermsg/pkg/schema"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

// Node is one node of a decoded tree. ContentLen is -1 for a placeholder: a
// schema field that was declared OPTIONAL and not present in the input, or
// an un-taken CHOICE branch. The tree owns its Children; the whole tree
// borrows from the Image returned alongside it.
type Node struct {
	Kind       schema.Kind
	Name       string
	Offset     int64
	HeaderLen  int
	ContentLen int64
	Tag        tlv.TagInfo
	Children   []*Node
}

// IsPlaceholder reports whether n represents a schema position that was not
// realised in the input.
func (n *Node) IsPlaceholder() bool { return n.ContentLen < 0 }

func (n *Node) totalLen() int64 {
	if n.IsPlaceholder() {
		return 0
	}
	return int64(n.HeaderLen) + n.ContentLen
}

// Bytes returns the full TLV encoding of n: image[offset .. offset+nhdr+len].
func (n *Node) Bytes(image []byte) []byte {
	if n.IsPlaceholder() {
		return nil
	}
	end := n.Offset + int64(n.HeaderLen) + n.ContentLen
	return image[n.Offset:end]
}

// ContentBytes returns just the value octets of n, excluding its header.
func (n *Node) ContentBytes(image []byte) []byte {
	if n.IsPlaceholder() {
		return nil
	}
	start := n.Offset + int64(n.HeaderLen)
	return image[start : start+n.ContentLen]
}

// unwrapChoice follows a CHOICE wrapper down to its realised alternative.
func unwrapChoice(n *Node) *Node {
	for n != nil && n.Kind == schema.KindChoice && len(n.Children) == 1 {
		n = n.Children[0]
	}
	return n
}

// Realized follows n down through any CHOICE wrapper to the alternative
// the decoder actually took, the same step Find applies to every node it
// returns. Needed by callers that walk a SET OF/SEQUENCE OF CHOICE
// directly — e.g. one RecipientInfo at a time — without going through
// Find first.
func (n *Node) Realized() *Node { return unwrapChoice(n) }

// Find descends the tree by dotted field-name path (e.g. "tbsCertificate.
// issuer.rdnSequence"), transparently stepping through CHOICE wrappers, and
// returns the first match.
func (n *Node) Find(path string) (*Node, bool) {
	cur := unwrapChoice(n)
	for _, part := range strings.Split(path, ".") {
		var next *Node
		for _, c := range cur.Children {
			if c.Name == part {
				next = c
				break
			}
		}
		if next == nil {
			return nil, false
		}
		cur = unwrapChoice(next)
	}
	return cur, true
}
