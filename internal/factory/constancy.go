package factory

import (
	"github.com/wane/wane-sub001/internal/errors"
	"github.com/wane/wane-sub001/internal/template"
)

// classifyAll computes the constancy of every value in the tree. All
// lookups point at ancestors, so the recursion through inputs terminates.
func (b *builder) classifyAll() {
	t := b.tree
	for _, f := range t.factories {
		for _, bd := range t.Bindings(f) {
			b.classify(bd.Value())
		}
	}
}

func (b *builder) classify(v template.Value) bool {
	t := b.tree
	if c, ok := t.constant[v]; ok {
		return c
	}

	var c bool
	switch v := v.(type) {
	case *template.Constant:
		c = true
	case *template.Placeholder:
		c = false
	case *template.PropertyAccess:
		ref := t.refs[v]
		switch ref.Kind {
		case RefProperty:
			c = b.propertyConstant(ref.Factory, ref.Name)
		case RefGetter:
			c = !b.instanceMutable(ref.Factory)
		case RefItem, RefIndex:
			c = b.classify(ref.Factory.anchor.Binding(template.BindingRepeatSource).Value())
		case RefMethod, RefNone:
			errors.Violation("property access %s resolved to %s", v, ref.Kind)
		}
	case *template.MethodCall:
		c = true
		for _, arg := range v.Args() {
			if !b.classify(arg) {
				c = false
			}
		}
		if b.instanceMutable(t.refs[v].Factory) {
			c = false
		}
	default:
		errors.Violation("unknown value type %T", v)
	}
	t.constant[v] = c
	return c
}

// propertyConstant reports whether property of component instance f can
// never change: no method assigns it and its input, if any, is constant.
func (b *builder) propertyConstant(f *Factory, property string) bool {
	if f.meta.CanMutate(property) {
		return false
	}
	if in := f.inputs[property]; in != nil {
		return b.classify(in.Value())
	}
	return true
}

// instanceMutable reports whether any property of component instance f
// can change after creation.
func (b *builder) instanceMutable(f *Factory) bool {
	for _, p := range f.meta.Properties() {
		if !b.propertyConstant(f, p) {
			return true
		}
	}
	return false
}
