// Package diff computes, for every factory of a scope tree, which bound
// values must trigger which update: DOM updates of its own saved nodes and
// update calls into its child factories.
package diff

import (
	"sort"
	"strings"

	"github.com/wane/wane-sub001/internal/errors"
	"github.com/wane/wane-sub001/internal/factory"
	"github.com/wane/wane-sub001/internal/template"
)

// Reason records why a value propagates into a child factory.
type Reason uint8

const (
	// Push is a direct property push from the scope boundary of the
	// value's definition.
	Push Reason = 1 << iota
	// Forward is a cascading update along the path from the definition
	// to the consumer.
	Forward
)

// Has reports whether r includes other.
func (r Reason) Has(other Reason) bool { return r&other != 0 }

// String lists the reasons joined by "+".
func (r Reason) String() string {
	var parts []string
	if r.Has(Push) {
		parts = append(parts, "push")
	}
	if r.Has(Forward) {
		parts = append(parts, "forward")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Trigger is one value propagating into a child factory.
type Trigger struct {
	Value  template.Value
	Reason Reason
}

// Map is the diff map of one factory.
type Map struct {
	factory   *factory.Factory
	dom       map[int][]template.Value
	factories map[*factory.Factory][]Trigger
}

func newMap(f *factory.Factory) *Map {
	return &Map{
		factory:   f,
		dom:       make(map[int][]template.Value),
		factories: make(map[*factory.Factory][]Trigger),
	}
}

// Factory returns the factory the map belongs to.
func (m *Map) Factory() *factory.Factory { return m.factory }

// DOMIndexes returns the node indexes with at least one value, ascending.
func (m *Map) DOMIndexes() []int {
	out := make([]int, 0, len(m.dom))
	for i := range m.dom {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// DOM returns the values that must update the node at index.
func (m *Map) DOM(index int) []template.Value {
	return append([]template.Value(nil), m.dom[index]...)
}

// Children returns the child factories with at least one trigger, in the
// order the factory declares its children.
func (m *Map) Children() []*factory.Factory {
	var out []*factory.Factory
	for _, c := range m.factory.Children() {
		if len(m.factories[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Triggers returns the values that must propagate into child.
func (m *Map) Triggers(child *factory.Factory) []Trigger {
	return append([]Trigger(nil), m.factories[child]...)
}

// IsEmpty reports whether the factory needs no update code.
func (m *Map) IsEmpty() bool { return len(m.dom) == 0 && len(m.factories) == 0 }

func (m *Map) addDOM(index int, v template.Value) {
	for _, existing := range m.dom[index] {
		if existing == v {
			return
		}
	}
	m.dom[index] = append(m.dom[index], v)
}

// addTrigger records v for child, merging reasons for a value already
// present. Each (value, child) pair appears once.
func (m *Map) addTrigger(child *factory.Factory, v template.Value, reason Reason) {
	triggers := m.factories[child]
	for i := range triggers {
		if triggers[i].Value == v {
			triggers[i].Reason |= reason
			return
		}
	}
	m.factories[child] = append(triggers, Trigger{Value: v, Reason: reason})
}

// ActionKind distinguishes update actions.
type ActionKind int

const (
	UpdateNode ActionKind = iota
	UpdateChild
)

// Action is one step of a factory's update routine.
type Action struct {
	Kind   ActionKind
	Index  int
	Child  *factory.Factory
	Values []template.Value
}

// Actions lists DOM updates by ascending node index, then child updates in
// child order.
func (m *Map) Actions() []Action {
	var out []Action
	for _, i := range m.DOMIndexes() {
		out = append(out, Action{Kind: UpdateNode, Index: i, Values: m.DOM(i)})
	}
	for _, c := range m.Children() {
		var values []template.Value
		for _, tr := range m.factories[c] {
			values = append(values, tr.Value)
		}
		out = append(out, Action{Kind: UpdateChild, Index: -1, Child: c, Values: values})
	}
	return out
}

// Result holds the diff map of every factory of a tree.
type Result struct {
	tree *factory.Tree
	maps map[*factory.Factory]*Map
}

// Tree returns the tree the result was computed for.
func (r *Result) Tree() *factory.Tree { return r.tree }

// For returns the diff map of f.
func (r *Result) For(f *factory.Factory) *Map { return r.maps[f] }

// Compute builds the diff maps of every factory in tree.
func Compute(tree *factory.Tree) (*Result, error) {
	r := &Result{tree: tree, maps: make(map[*factory.Factory]*Map)}
	for _, f := range tree.Factories() {
		r.maps[f] = newMap(f)
	}

	for _, f := range tree.Factories() {
		m := r.maps[f]
		for _, n := range f.SavedNodes() {
			index, ok := f.IndexOf(n)
			errors.Invariant(ok, "saved node %s of %s has no index", n, f)
			for _, b := range n.Bindings() {
				if b.Kind().IsNative() && !tree.IsConstant(b.Value()) {
					m.addDOM(index, b.Value())
				}
			}
		}
	}

	for _, f := range tree.Factories() {
		for _, b := range tree.Bindings(f) {
			if b.Kind().IsHandler() {
				continue
			}
			consumer := tree.Consumer(b)
			for _, v := range dependencies(tree, b.Value()) {
				if err := r.propagate(v, consumer); err != nil {
					return nil, err
				}
			}
		}
	}
	return r, nil
}

// dependencies returns the non-constant values a binding reads: the value
// itself and, for calls, each argument.
func dependencies(tree *factory.Tree, v template.Value) []template.Value {
	if tree.IsConstant(v) {
		return nil
	}
	switch v := v.(type) {
	case *template.Constant:
		return nil
	case *template.Placeholder:
		return nil
	case *template.PropertyAccess:
		return []template.Value{v}
	case *template.MethodCall:
		out := []template.Value{v}
		for _, arg := range v.Args() {
			out = append(out, dependencies(tree, arg)...)
		}
		return out
	}
	errors.Violation("unknown value type %T", v)
	return nil
}

// propagate adds v to the factory maps between its definition and the
// consumer.
func (r *Result) propagate(v template.Value, consumer *factory.Factory) error {
	def := r.tree.Definition(v)
	errors.Invariant(def != nil, "value %s has no definition factory", v)
	if !def.IsAncestorOf(consumer) {
		return &errors.UnreachableDefinitionError{
			Value:      v.String(),
			Definition: def.String(),
			Consumer:   consumer.String(),
		}
	}

	// Loop variables live below their boundary, which cannot observe them.
	if boundary := def.ScopeBoundary(); def.Kind() != factory.KindRepeating && boundary != consumer && boundary.IsAncestorOf(consumer) {
		r.maps[boundary].addTrigger(boundary.NextHop(consumer), v, Push)
	}

	path := consumer.PathTo(def)
	for i := len(path) - 1; i >= 1; i-- {
		r.maps[path[i]].addTrigger(path[i-1], v, Forward)
	}
	return nil
}
