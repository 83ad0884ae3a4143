// Package factory builds the scope tree of a compiled program. Every
// component instance, conditional view and repeating view becomes a
// Factory that owns a slice of template nodes and resolves the names its
// bindings reference.
package factory

import (
	"fmt"

	"github.com/wane/wane-sub001/internal/errors"
	"github.com/wane/wane-sub001/internal/metadata"
	"github.com/wane/wane-sub001/internal/template"
)

// Kind is the closed set of factory variants.
type Kind int

const (
	KindComponent Kind = iota
	KindConditional
	KindRepeating
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindComponent:
		return "component"
	case KindConditional:
		return "conditional"
	case KindRepeating:
		return "repeating"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Factory is one node of the scope tree.
type Factory struct {
	id       int
	name     string
	kind     Kind
	parent   *Factory
	children []*Factory
	anchor   *template.Node
	view     []*template.Node
	meta     metadata.Component
	boundary *Factory

	saved []*template.Node
	index map[*template.Node]int
	slots int
	self  []*template.Binding
	// inputs holds the input bindings of a component instance by target.
	inputs map[string]*template.Binding
}

// ID is the per-compilation identifier.
func (f *Factory) ID() int { return f.id }

// Name is the component name, or the owning component name suffixed with
// If or For for directive views.
func (f *Factory) Name() string { return f.name }

// String returns name#id.
func (f *Factory) String() string { return fmt.Sprintf("%s#%d", f.name, f.id) }

// Kind returns the factory variant.
func (f *Factory) Kind() Kind { return f.kind }

// Parent returns the parent factory, or nil for the root.
func (f *Factory) Parent() *Factory { return f.parent }

// Children returns the child factories in document order.
func (f *Factory) Children() []*Factory { return append([]*Factory(nil), f.children...) }

// Anchor is the node in the parent's view where the factory is mounted.
// It is nil for the root.
func (f *Factory) Anchor() *template.Node { return f.anchor }

// View returns the forest the factory materialises.
func (f *Factory) View() []*template.Node { return append([]*template.Node(nil), f.view...) }

// Metadata returns the component metadata of a component factory and nil
// for directive views.
func (f *Factory) Metadata() metadata.Component { return f.meta }

// ScopeBoundary returns the nearest component factory, f included.
func (f *Factory) ScopeBoundary() *Factory { return f.boundary }

// SelfBindings returns the bindings through which the parent feeds the
// factory: inputs and outputs for components, the condition or the repeat
// source for directive views.
func (f *Factory) SelfBindings() []*template.Binding {
	return append([]*template.Binding(nil), f.self...)
}

// SavedNodes returns the nodes of the view in document order, including
// the anchors of child factories but not their content.
func (f *Factory) SavedNodes() []*template.Node { return append([]*template.Node(nil), f.saved...) }

// IndexOf returns the runtime index of a saved node.
func (f *Factory) IndexOf(n *template.Node) (int, bool) {
	i, ok := f.index[n]
	return i, ok
}

// SlotCount is the number of runtime slots taken by the saved nodes.
func (f *Factory) SlotCount() int { return f.slots }

// Input returns the input binding a component instance receives for
// property, or nil.
func (f *Factory) Input(property string) *template.Binding { return f.inputs[property] }

// Declares reports what name refers to when looked up in this factory.
// Components declare their members and repeaters their loop variables.
func (f *Factory) Declares(name string) RefKind {
	switch f.kind {
	case KindComponent:
		switch f.meta.Member(name) {
		case metadata.MemberProperty:
			return RefProperty
		case metadata.MemberGetter:
			return RefGetter
		case metadata.MemberMethod:
			return RefMethod
		case metadata.MemberNone:
			return RefNone
		}
	case KindRepeating:
		switch {
		case name == f.anchor.Item():
			return RefItem
		case name != "" && name == f.anchor.Index():
			return RefIndex
		}
		return RefNone
	case KindConditional:
		return RefNone
	}
	errors.Violation("unknown factory kind %d", int(f.kind))
	return RefNone
}

// visible lists the names declared by f and its ancestors.
func (f *Factory) visible() []string {
	var names []string
	for g := f; g != nil; g = g.parent {
		switch g.kind {
		case KindComponent:
			names = append(names, metadata.Members(g.meta)...)
		case KindRepeating:
			names = append(names, g.anchor.Item())
			if g.anchor.Index() != "" {
				names = append(names, g.anchor.Index())
			}
		case KindConditional:
		}
	}
	return names
}

// IsAncestorOf reports whether f is g or one of g's ancestors.
func (f *Factory) IsAncestorOf(g *Factory) bool {
	for x := g; x != nil; x = x.parent {
		if x == f {
			return true
		}
	}
	return false
}

// PathTo returns the chain from f up to target, both included. Target must
// be f or one of its ancestors.
func (f *Factory) PathTo(target *Factory) []*Factory {
	var path []*Factory
	for g := f; g != nil; g = g.parent {
		path = append(path, g)
		if g == target {
			return path
		}
	}
	errors.Violation("%s is not an ancestor of %s", target, f)
	return nil
}

// NextHop returns the child of f on the path down to descendant, which
// must be a proper descendant of f.
func (f *Factory) NextHop(descendant *Factory) *Factory {
	path := descendant.PathTo(f)
	errors.Invariant(len(path) > 1, "%s is not a proper descendant of %s", descendant, f)
	return path[len(path)-2]
}

// Depth is the number of ancestors of f.
func (f *Factory) Depth() int {
	d := 0
	for g := f.parent; g != nil; g = g.parent {
		d++
	}
	return d
}
