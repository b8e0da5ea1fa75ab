package ber

import (
	"github.com/corvid-systems/dermsg/pkg/schema"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

type tagPair struct {
	class tlv.Class
	tag   uint32
}

// tagSet returns the set of (class, tag) pairs that could legally open the
// wire encoding of node, resolving through type references and CHOICE
// alternatives. wildcard is true for ANY / ANY DEFINED BY, which matches any
// tag.
func tagSet(mod *schema.Module, node *schema.Node) ([]tagPair, bool, error) {
	n, err := mod.Resolve(node)
	if err != nil {
		return nil, false, err
	}
	switch n.Kind {
	case schema.KindTagged:
		return []tagPair{{n.Class, n.TagNum}}, false, nil
	case schema.KindChoice:
		var all []tagPair
		for _, alt := range n.Children {
			set, wildcard, err := tagSet(mod, alt)
			if err != nil {
				return nil, false, err
			}
			if wildcard {
				return nil, true, nil
			}
			all = append(all, set...)
		}
		return all, false, nil
	case schema.KindSequence, schema.KindSequenceOf:
		return []tagPair{{tlv.ClassUniversal, tlv.TagSequence}}, false, nil
	case schema.KindSet, schema.KindSetOf:
		return []tagPair{{tlv.ClassUniversal, tlv.TagSet}}, false, nil
	case schema.KindPrimitive:
		if n.PrimTag == schema.TagAny {
			return nil, true, nil
		}
		return []tagPair{{tlv.ClassUniversal, n.PrimTag}}, false, nil
	}
	return nil, false, nil
}

func containsTag(set []tagPair, class tlv.Class, tag uint32) bool {
	for _, p := range set {
		if p.class == class && p.tag == tag {
			return true
		}
	}
	return false
}

func isEOC(info tlv.TagInfo) bool {
	return info.Class == tlv.ClassUniversal && info.Tag == tlv.TagEndOfContents &&
		!info.Constructed && !info.Indefinite && info.Length == 0
}
