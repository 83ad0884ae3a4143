// Package model projects a compilation result onto plain data for code
// emitters. Every pointer of the analysis is replaced by a factory id, a
// node index or rendered text so the program can be encoded as YAML or
// JSON and consumed outside of Go.
package model

import (
	"github.com/wane/wane-sub001/internal/compiler"
	"github.com/wane/wane-sub001/internal/diff"
	"github.com/wane/wane-sub001/internal/errors"
	"github.com/wane/wane-sub001/internal/factory"
	"github.com/wane/wane-sub001/internal/template"
)

// Program is the emitter-facing form of one compilation.
type Program struct {
	Root      string    `yaml:"root" json:"root"`
	Factories []Factory `yaml:"factories" json:"factories"`
	Styles    []Style   `yaml:"styles,omitempty" json:"styles,omitempty"`
}

// Factory is one scope of the program.
type Factory struct {
	ID     int    `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Kind   string `yaml:"kind" json:"kind"`
	Parent *int   `yaml:"parent,omitempty" json:"parent,omitempty"`
	// Anchor is the index of the anchor node in the parent view, -1 for
	// the root.
	Anchor int `yaml:"anchor" json:"anchor"`
	// Spec is the directive source of conditional and repeating views.
	Spec         string        `yaml:"spec,omitempty" json:"spec,omitempty"`
	Children     []int         `yaml:"children,omitempty" json:"children,omitempty"`
	Slots        int           `yaml:"slots" json:"slots"`
	SelfBindings []Binding     `yaml:"self_bindings,omitempty" json:"self_bindings,omitempty"`
	Nodes        []Node        `yaml:"nodes,omitempty" json:"nodes,omitempty"`
	DOMDiff      []DOMUpdate   `yaml:"dom_diff,omitempty" json:"dom_diff,omitempty"`
	FactoryDiff  []ChildUpdate `yaml:"factory_diff,omitempty" json:"factory_diff,omitempty"`
	Actions      []Action      `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// Node is a saved node of a factory view.
type Node struct {
	Index    int       `yaml:"index" json:"index"`
	Kind     string    `yaml:"kind" json:"kind"`
	Name     string    `yaml:"name,omitempty" json:"name,omitempty"`
	Slots    int       `yaml:"slots" json:"slots"`
	Bindings []Binding `yaml:"bindings,omitempty" json:"bindings,omitempty"`
}

// Binding connects a node to a value.
type Binding struct {
	Kind  string `yaml:"kind" json:"kind"`
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Value Value  `yaml:"value" json:"value"`
}

// Value is a rendered bound value.
type Value struct {
	Kind     string `yaml:"kind" json:"kind"`
	Text     string `yaml:"text" json:"text"`
	Constant bool   `yaml:"constant" json:"constant"`
	// RefKind and Definition describe what a property access or call
	// resolves to. Access lists the factory ids from the consumer up to the
	// definition.
	RefKind    string  `yaml:"ref_kind,omitempty" json:"ref_kind,omitempty"`
	Definition *int    `yaml:"definition,omitempty" json:"definition,omitempty"`
	Access     []int   `yaml:"access,omitempty" json:"access,omitempty"`
	Args       []Value `yaml:"args,omitempty" json:"args,omitempty"`
}

// DOMUpdate lists the values re-read for one saved node on update.
type DOMUpdate struct {
	Index  int      `yaml:"index" json:"index"`
	Values []string `yaml:"values" json:"values"`
}

// ChildUpdate lists the values that make one child factory update.
type ChildUpdate struct {
	Child    int       `yaml:"child" json:"child"`
	Triggers []Trigger `yaml:"triggers" json:"triggers"`
}

// Trigger is one value propagating into a child, with why.
type Trigger struct {
	Value  string `yaml:"value" json:"value"`
	Reason string `yaml:"reason" json:"reason"`
}

// Action is one step of a factory update routine.
type Action struct {
	Kind   string   `yaml:"kind" json:"kind"`
	Index  *int     `yaml:"index,omitempty" json:"index,omitempty"`
	Child  *int     `yaml:"child,omitempty" json:"child,omitempty"`
	Values []string `yaml:"values" json:"values"`
}

// Style is an encapsulated stylesheet.
type Style struct {
	Component string `yaml:"component" json:"component"`
	Tag       string `yaml:"tag" json:"tag"`
	Attribute string `yaml:"attribute" json:"attribute"`
	CSS       string `yaml:"css" json:"css"`
}

// Project converts a compilation result into a Program.
func Project(result *compiler.Result) *Program {
	p := &Program{Root: result.Root}
	tree := result.Tree
	for _, f := range tree.Factories() {
		p.Factories = append(p.Factories, projectFactory(tree, result.Diffs.For(f), f))
	}
	for _, s := range result.Styles {
		p.Styles = append(p.Styles, Style{
			Component: s.Component,
			Tag:       s.Tag,
			Attribute: s.Attribute,
			CSS:       s.CSS,
		})
	}
	return p
}

func projectFactory(tree *factory.Tree, m *diff.Map, f *factory.Factory) Factory {
	out := Factory{
		ID:     f.ID(),
		Name:   f.Name(),
		Kind:   f.Kind().String(),
		Anchor: -1,
		Slots:  f.SlotCount(),
	}
	if parent := f.Parent(); parent != nil {
		id := parent.ID()
		out.Parent = &id
		if index, ok := parent.IndexOf(f.Anchor()); ok {
			out.Anchor = index
		}
	}
	switch f.Kind() {
	case factory.KindConditional, factory.KindRepeating:
		out.Spec = f.Anchor().Spec()
	case factory.KindComponent:
	default:
		errors.Violation("unknown factory kind %d", int(f.Kind()))
	}

	for _, c := range f.Children() {
		out.Children = append(out.Children, c.ID())
	}
	// Self bindings are evaluated in the parent.
	for _, b := range f.SelfBindings() {
		out.SelfBindings = append(out.SelfBindings, projectBinding(tree, f.Parent(), b))
	}
	for _, n := range f.SavedNodes() {
		out.Nodes = append(out.Nodes, projectNode(tree, f, n))
	}

	if m == nil {
		return out
	}
	for _, index := range m.DOMIndexes() {
		out.DOMDiff = append(out.DOMDiff, DOMUpdate{Index: index, Values: texts(m.DOM(index))})
	}
	for _, c := range m.Children() {
		update := ChildUpdate{Child: c.ID()}
		for _, tr := range m.Triggers(c) {
			update.Triggers = append(update.Triggers, Trigger{Value: tr.Value.String(), Reason: tr.Reason.String()})
		}
		out.FactoryDiff = append(out.FactoryDiff, update)
	}
	for _, a := range m.Actions() {
		out.Actions = append(out.Actions, projectAction(a))
	}
	return out
}

func projectNode(tree *factory.Tree, f *factory.Factory, n *template.Node) Node {
	index, ok := f.IndexOf(n)
	errors.Invariant(ok, "saved node %s of %s has no index", n, f)

	out := Node{Index: index, Kind: n.Kind().String(), Slots: n.SlotCount()}
	switch n.Kind() {
	case template.NodeElement, template.NodeComponent:
		out.Name = n.Name()
	case template.NodeText, template.NodeInterpolation, template.NodeConditional, template.NodeRepeating:
	default:
		errors.Violation("unknown node kind %d", int(n.Kind()))
	}

	for _, b := range n.Bindings() {
		// Self bindings belong to the anchored factory.
		if b.Kind().IsSelf() {
			continue
		}
		out.Bindings = append(out.Bindings, projectBinding(tree, tree.Consumer(b), b))
	}
	return out
}

func projectBinding(tree *factory.Tree, consumer *factory.Factory, b *template.Binding) Binding {
	out := Binding{Kind: b.Kind().String(), Value: projectValue(tree, consumer, b.Value())}
	switch b.Kind() {
	case template.BindingAttribute, template.BindingProperty, template.BindingEvent,
		template.BindingInput, template.BindingOutput:
		out.Name = b.Name()
	case template.BindingText, template.BindingInterpolation,
		template.BindingCondition, template.BindingRepeatSource:
	default:
		errors.Violation("unknown binding kind %d", int(b.Kind()))
	}
	return out
}

func projectValue(tree *factory.Tree, consumer *factory.Factory, v template.Value) Value {
	out := Value{Text: v.String(), Constant: tree.IsConstant(v)}
	switch v := v.(type) {
	case *template.Constant:
		out.Kind = "constant"
		out.Text = v.Text()
		if v.IsExpression() {
			out.Kind = "literal"
		}
	case *template.Placeholder:
		out.Kind = "placeholder"
	case *template.PropertyAccess:
		out.Kind = "property"
		resolve(&out, tree, consumer, v)
	case *template.MethodCall:
		out.Kind = "call"
		resolve(&out, tree, consumer, v)
		for _, arg := range v.Args() {
			out.Args = append(out.Args, projectValue(tree, consumer, arg))
		}
	default:
		errors.Violation("unknown value type %T", v)
	}
	return out
}

func resolve(out *Value, tree *factory.Tree, consumer *factory.Factory, v template.Value) {
	ref, ok := tree.Reference(v)
	errors.Invariant(ok && ref.Factory != nil, "value %s is unresolved", v)
	id := ref.Factory.ID()
	out.RefKind = ref.Kind.String()
	out.Definition = &id
	for _, hop := range tree.AccessPath(consumer, v) {
		out.Access = append(out.Access, hop.ID())
	}
}

func projectAction(a diff.Action) Action {
	out := Action{Values: texts(a.Values)}
	switch a.Kind {
	case diff.UpdateNode:
		index := a.Index
		out.Kind = "update_node"
		out.Index = &index
	case diff.UpdateChild:
		child := a.Child.ID()
		out.Kind = "update_child"
		out.Child = &child
	default:
		errors.Violation("unknown action kind %d", int(a.Kind))
	}
	return out
}

func texts(values []template.Value) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.String())
	}
	return out
}
