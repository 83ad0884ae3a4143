package factory

import (
	"fmt"

	"github.com/wane/wane-sub001/internal/errors"
	"github.com/wane/wane-sub001/internal/template"
)

// RefKind classifies what a resolved name refers to.
type RefKind int

const (
	RefNone RefKind = iota
	RefProperty
	RefGetter
	RefMethod
	RefItem
	RefIndex
)

// String returns the reference kind name.
func (k RefKind) String() string {
	switch k {
	case RefNone:
		return "none"
	case RefProperty:
		return "property"
	case RefGetter:
		return "getter"
	case RefMethod:
		return "method"
	case RefItem:
		return "item"
	case RefIndex:
		return "index"
	default:
		return fmt.Sprintf("RefKind(%d)", int(k))
	}
}

// Reference is the resolution of a property access or method call.
type Reference struct {
	// Factory is the definition factory.
	Factory *Factory
	Kind    RefKind
	Name    string
}

// Counter hands out monotonically increasing ids within one compilation.
type Counter struct {
	next int
}

// Next returns the next id, starting at zero.
func (c *Counter) Next() int {
	id := c.next
	c.next++
	return id
}

// Tree is a built, read-only scope tree.
type Tree struct {
	root        *Factory
	factories   []*Factory
	responsible map[*template.Node]*Factory
	anchored    map[*template.Node]*Factory
	refs        map[template.Value]Reference
	constant    map[template.Value]bool
	counter     *Counter
}

// Root returns the root component factory.
func (t *Tree) Root() *Factory { return t.root }

// Factories returns every factory in id order.
func (t *Tree) Factories() []*Factory { return append([]*Factory(nil), t.factories...) }

// Counter returns the id counter of the compilation the tree belongs to.
func (t *Tree) Counter() *Counter { return t.counter }

// Responsible returns the factory whose view materialises n, or nil for a
// node outside the tree.
func (t *Tree) Responsible(n *template.Node) *Factory { return t.responsible[n] }

// Anchored returns the factory mounted at a component, conditional or
// repeating node.
func (t *Tree) Anchored(n *template.Node) *Factory { return t.anchored[n] }

// Consumer returns the factory that reads b: the anchored factory for self
// bindings and the responsible factory of the node otherwise.
func (t *Tree) Consumer(b *template.Binding) *Factory {
	if b.Kind().IsSelf() {
		f := t.anchored[b.Node()]
		errors.Invariant(f != nil, "self binding %s has no anchored factory", b)
		return f
	}
	return t.responsible[b.Node()]
}

// Definition returns the definition factory of a property access or method
// call. Constants and placeholders have none.
func (t *Tree) Definition(v template.Value) *Factory {
	return t.refs[v].Factory
}

// Reference returns the resolution of v.
func (t *Tree) Reference(v template.Value) (Reference, bool) {
	ref, ok := t.refs[v]
	return ref, ok
}

// IsConstant reports whether v can never change after creation.
func (t *Tree) IsConstant(v template.Value) bool {
	c, ok := t.constant[v]
	errors.Invariant(ok, "value %s is not part of the tree", v)
	return c
}

// AccessPath returns the hops from a factory up to the definition factory
// of v.
func (t *Tree) AccessPath(from *Factory, v template.Value) []*Factory {
	d := t.Definition(v)
	errors.Invariant(d != nil, "value %s has no definition factory", v)
	return from.PathTo(d)
}

// Bindings returns every binding read by f: those on its saved nodes
// except self bindings of anchors, followed by its own self bindings.
func (t *Tree) Bindings(f *Factory) []*template.Binding {
	var out []*template.Binding
	for _, n := range f.saved {
		for _, b := range n.Bindings() {
			if !b.Kind().IsSelf() {
				out = append(out, b)
			}
		}
	}
	return append(out, f.self...)
}

// assign records f as the responsible factory of n. A node is assigned
// exactly once.
func (t *Tree) assign(n *template.Node, f *Factory) {
	if prev, ok := t.responsible[n]; ok {
		errors.Violation("node %s already belongs to %s", n, prev)
	}
	t.responsible[n] = f
}
