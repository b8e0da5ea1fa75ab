// Package schema parses a small textual subset of ASN.1 module notation
// into an in-memory grammar tree that pkg/ber drives over an input stream.
//
// The accepted notation covers what RFC 5280 (X.509) and RFC 5652 (CMS)
// need: SEQUENCE, SET, SEQUENCE OF, SET OF, CHOICE, explicit/implicit
// context/application/private tags, the primitive types, and ANY / ANY
// DEFINED BY. It is not a general-purpose ASN.1 compiler — there is no
// macro, constraint, or value-assignment support, because nothing in this
// module's grammars needs it.
package schema

import (
	"embed"
	"fmt"

	"github.com/corvid-systems/dermsg/pkg/dererr"
	"github.com/corvid-systems/dermsg/pkg/tlv"
)

// Kind identifies the shape of a schema node.
type Kind int

const (
	KindSequence Kind = iota
	KindSet
	KindSequenceOf
	KindSetOf
	KindChoice
	KindTagged
	KindPrimitive
	KindReference
)

// Node is one node of a parsed type expression. A defined type's root node
// is stored in Module.Types; field nodes nest under SEQUENCE/SET/CHOICE
// parents via Children.
type Node struct {
	Kind Kind

	// Name is the field name within an enclosing SEQUENCE/SET/CHOICE. Empty
	// for a module-level type definition's root node.
	Name string

	// PrimTag and Class describe a KindPrimitive node's universal tag, or a
	// KindTagged node's wrapping class/number.
	PrimTag uint32
	Class   tlv.Class
	TagNum  uint32

	// Implicit is set for [n] IMPLICIT tagging; EXPLICIT is the default.
	Implicit bool

	// Optional marks a SEQUENCE/SET field that may be absent.
	Optional bool

	// RefName names the type a KindReference node points to; resolved
	// against the owning Module's Types by Module.Resolve.
	RefName string

	// Child is the element type for SEQUENCE OF / SET OF / KindTagged.
	Child *Node

	// Children holds, in declaration order, the fields of a SEQUENCE/SET or
	// the alternatives of a CHOICE.
	Children []*Node

	resolved *Node // cache populated by Module.Resolve for KindReference
}

// Module is a parsed ASN.1 module: a named set of type definitions.
type Module struct {
	Name  string
	Types map[string]*Node
}

// Resolve returns the node a KindReference points to, following chains of
// references. Non-reference nodes resolve to themselves.
func (m *Module) Resolve(n *Node) (*Node, error) {
	for n != nil && n.Kind == KindReference {
		if n.resolved != nil {
			n = n.resolved
			continue
		}
		target, ok := m.Types[n.RefName]
		if !ok {
			return nil, dererr.New("schema.Resolve", dererr.ErrGeneral)
		}
		n.resolved = target
		n = target
	}
	return n, nil
}

// Lookup resolves a top-level type name, optionally through a dotted path
// such as "CryptographicMessageSyntax.SignerInfos" where only the final
// component names a type within this module (the module-qualifying prefix
// is accepted and ignored, matching how spec.md's grammar references name
// types).
func (m *Module) Lookup(path string) (*Node, error) {
	name := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			name = path[i+1:]
			break
		}
	}
	n, ok := m.Types[name]
	if !ok {
		return nil, dererr.New(fmt.Sprintf("schema.Lookup(%s)", path), dererr.ErrGeneral)
	}
	return m.Resolve(n)
}

//go:embed grammars/x509.asn1 grammars/cms.asn1
var grammarFS embed.FS

// Registry shares loaded modules across the certificate facade and CMS
// parser within one process, mirroring the teacher's read-once grammar
// sharing for its certificate profile catalog.
type Registry struct {
	modules map[string]*Module
}

// NewRegistry returns a Registry with the X.509 ("tmttv2") and CMS ("cms")
// grammars required by spec.md §6 already loaded from the embedded text.
func NewRegistry() (*Registry, error) {
	r := &Registry{modules: map[string]*Module{}}
	for _, file := range []string{"grammars/x509.asn1", "grammars/cms.asn1"} {
		text, err := grammarFS.ReadFile(file)
		if err != nil {
			return nil, dererr.New("schema.NewRegistry", dererr.ErrGeneral)
		}
		mod, err := Parse(string(text))
		if err != nil {
			return nil, err
		}
		r.modules[mod.Name] = mod
	}
	return r, nil
}

// Module returns a previously loaded module by name.
func (r *Registry) Module(name string) (*Module, error) {
	m, ok := r.modules[name]
	if !ok {
		return nil, dererr.New(fmt.Sprintf("schema.Registry.Module(%s)", name), dererr.ErrGeneral)
	}
	return m, nil
}

// Load parses a textual ASN.1 module and adds it to the registry under its
// declared name, for callers that supply their own grammar text.
func (r *Registry) Load(text string) (*Module, error) {
	mod, err := Parse(text)
	if err != nil {
		return nil, err
	}
	r.modules[mod.Name] = mod
	return mod, nil
}
