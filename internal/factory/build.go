package factory

import (
	"fmt"

	"github.com/wane/wane-sub001/internal/errors"
	"github.com/wane/wane-sub001/internal/metadata"
	"github.com/wane/wane-sub001/internal/template"
)

// Definition is a compilable component: its parsed template and metadata.
type Definition struct {
	Name     string
	Template []*template.Node
	Metadata metadata.Component
}

// Lookup finds the definition a component tag refers to.
type Lookup interface {
	Definition(tag string) (*Definition, bool)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(tag string) (*Definition, bool)

// Definition implements Lookup.
func (fn LookupFunc) Definition(tag string) (*Definition, bool) { return fn(tag) }

// Definitions is a Lookup over definitions keyed by component name.
type Definitions map[string]*Definition

// Definition implements Lookup.
func (d Definitions) Definition(tag string) (*Definition, bool) {
	def, ok := d[tag]
	return def, ok
}

// Option configures Build.
type Option func(*options)

type options struct {
	counter *Counter
}

// WithCounter makes Build draw factory ids from c. Without it every build
// starts at zero.
func WithCounter(c *Counter) Option {
	return func(o *options) { o.counter = c }
}

// Build constructs the scope tree rooted at root, resolves every bound
// value and classifies its constancy. Errors are *errors.UnresolvedReferenceError
// for unknown names and tags, or a *errors.WaneError with code
// recursive_component.
func Build(root *Definition, lookup Lookup, opts ...Option) (*Tree, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.counter == nil {
		o.counter = &Counter{}
	}
	if root == nil || root.Metadata == nil {
		return nil, errors.NewValidationError(errors.CodeMissingMetadata, "root definition requires metadata")
	}

	b := &builder{
		lookup: lookup,
		tree: &Tree{
			responsible: make(map[*template.Node]*Factory),
			anchored:    make(map[*template.Node]*Factory),
			refs:        make(map[template.Value]Reference),
			constant:    make(map[template.Value]bool),
			counter:     o.counter,
		},
	}

	t := b.tree
	t.root = b.newFactory(KindComponent, root.Name, nil, nil, template.Clone(root.Template), root.Metadata)
	if err := b.populate(t.root, []string{root.Name}); err != nil {
		return nil, err
	}
	if err := b.resolveAll(); err != nil {
		return nil, err
	}
	b.classifyAll()
	return t, nil
}

type builder struct {
	lookup Lookup
	tree   *Tree
}

func (b *builder) newFactory(kind Kind, name string, parent *Factory, anchor *template.Node, view []*template.Node, meta metadata.Component) *Factory {
	f := &Factory{
		id:     b.tree.counter.Next(),
		name:   name,
		kind:   kind,
		parent: parent,
		anchor: anchor,
		view:   view,
		meta:   meta,
		index:  make(map[*template.Node]int),
		inputs: make(map[string]*template.Binding),
	}
	if kind == KindComponent {
		f.boundary = f
	} else {
		f.boundary = parent.boundary
	}
	if parent != nil {
		parent.children = append(parent.children, f)
	}
	if anchor != nil {
		b.tree.anchored[anchor] = f
		for _, bd := range anchor.Bindings() {
			if !bd.Kind().IsSelf() {
				continue
			}
			f.self = append(f.self, bd)
			if bd.Kind() == template.BindingInput {
				f.inputs[bd.Name()] = bd
			}
		}
	}
	b.tree.factories = append(b.tree.factories, f)
	return f
}

// populate saves the view of f and creates child factories in document
// order. chain holds the component names being instantiated.
func (b *builder) populate(f *Factory, chain []string) error {
	return b.save(f, f.view, chain)
}

func (b *builder) save(f *Factory, nodes []*template.Node, chain []string) error {
	for _, n := range nodes {
		b.tree.assign(n, f)
		f.index[n] = f.slots
		f.saved = append(f.saved, n)
		f.slots += n.SlotCount()

		switch n.Kind() {
		case template.NodeText, template.NodeInterpolation:
		case template.NodeElement:
			if err := b.save(f, n.Children(), chain); err != nil {
				return err
			}
		case template.NodeComponent:
			def, ok := b.lookup.Definition(n.Name())
			if !ok || def == nil {
				return &errors.UnresolvedReferenceError{
					Component: f.boundary.name,
					Name:      n.Name(),
					Path:      n.Name(),
					Reason:    "is not a registered component",
					Factory:   f.String(),
					Start:     n.Start(),
					End:       n.End(),
				}
			}
			if def.Metadata == nil {
				return errors.NewValidationError(errors.CodeMissingMetadata,
					fmt.Sprintf("component %s has no metadata", def.Name)).WithComponent(def.Name)
			}
			for _, name := range chain {
				if name == def.Name {
					return errors.ErrRecursiveComponent(append(append([]string(nil), chain...), def.Name))
				}
			}
			child := b.newFactory(KindComponent, def.Name, f, n, template.Clone(def.Template), def.Metadata)
			next := append(append([]string(nil), chain...), def.Name)
			if err := b.populate(child, next); err != nil {
				return err
			}
		case template.NodeConditional:
			child := b.newFactory(KindConditional, f.boundary.name+"If", f, n, n.Children(), nil)
			if err := b.populate(child, chain); err != nil {
				return err
			}
		case template.NodeRepeating:
			child := b.newFactory(KindRepeating, f.boundary.name+"For", f, n, n.Children(), nil)
			if err := b.populate(child, chain); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveAll resolves every value in factory order. Self bindings resolve
// from the parent, the factory whose view contains the anchor.
func (b *builder) resolveAll() error {
	for _, f := range b.tree.factories {
		for _, n := range f.saved {
			for _, bd := range n.Bindings() {
				if bd.Kind().IsSelf() {
					continue
				}
				if err := b.resolveValue(bd, bd.Value(), f); err != nil {
					return err
				}
			}
		}
		for _, bd := range f.self {
			if err := b.checkTarget(f, bd); err != nil {
				return err
			}
			if err := b.resolveValue(bd, bd.Value(), f.parent); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkTarget verifies that inputs and outputs name declared properties of
// the child component.
func (b *builder) checkTarget(child *Factory, bd *template.Binding) error {
	if bd.Kind() != template.BindingInput && bd.Kind() != template.BindingOutput {
		return nil
	}
	if child.meta.Member(bd.Name()) == metadata.MemberProperty {
		return nil
	}
	return &errors.UnresolvedReferenceError{
		Component:  child.parent.boundary.name,
		Name:       bd.Name(),
		Path:       bd.Name(),
		Reason:     fmt.Sprintf("is not a property of %s", child.name),
		Factory:    child.String(),
		Start:      bd.Start(),
		End:        bd.End(),
		Candidates: errors.Suggest(bd.Name(), child.meta.Properties()),
	}
}

func (b *builder) resolveValue(bd *template.Binding, v template.Value, start *Factory) error {
	switch v := v.(type) {
	case *template.Constant, *template.Placeholder:
		return nil
	case *template.PropertyAccess:
		ref, err := b.lookupName(bd, v.Root(), v.String(), start)
		if err != nil {
			return err
		}
		if ref.Kind == RefMethod {
			return b.kindError(bd, v.Root(), v.String(), start, "is a method and must be called")
		}
		b.tree.refs[v] = ref
		return nil
	case *template.MethodCall:
		ref, err := b.lookupName(bd, v.Name(), v.String(), start)
		if err != nil {
			return err
		}
		if ref.Kind != RefMethod {
			return b.kindError(bd, v.Name(), v.String(), start, fmt.Sprintf("is a %s, not a method", ref.Kind))
		}
		b.tree.refs[v] = ref
		for _, arg := range v.Args() {
			if err := b.resolveValue(bd, arg, start); err != nil {
				return err
			}
		}
		return nil
	}
	errors.Violation("unknown value type %T", v)
	return nil
}

// lookupName walks from start through its ancestors to the first factory
// declaring name.
func (b *builder) lookupName(bd *template.Binding, name, path string, start *Factory) (Reference, error) {
	for f := start; f != nil; f = f.parent {
		if kind := f.Declares(name); kind != RefNone {
			return Reference{Factory: f, Kind: kind, Name: name}, nil
		}
	}
	return Reference{}, &errors.UnresolvedReferenceError{
		Component:  start.boundary.name,
		Name:       name,
		Path:       path,
		Factory:    start.String(),
		Start:      bd.Start(),
		End:        bd.End(),
		Candidates: errors.Suggest(name, start.visible()),
	}
}

func (b *builder) kindError(bd *template.Binding, name, path string, start *Factory, reason string) error {
	return &errors.UnresolvedReferenceError{
		Component: start.boundary.name,
		Name:      name,
		Path:      path,
		Reason:    reason,
		Factory:   start.String(),
		Start:     bd.Start(),
		End:       bd.End(),
	}
}
