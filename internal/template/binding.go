package template

import (
	"fmt"

	"github.com/wane/wane-sub001/internal/errors"
)

// BindingKind is the closed set of binding variants.
type BindingKind int

const (
	BindingText BindingKind = iota
	BindingInterpolation
	BindingAttribute
	BindingProperty
	BindingEvent
	BindingInput
	BindingOutput
	BindingCondition
	BindingRepeatSource
)

var bindingKindNames = [...]string{
	BindingText:          "text",
	BindingInterpolation: "interpolation",
	BindingAttribute:     "attribute",
	BindingProperty:      "property",
	BindingEvent:         "event",
	BindingInput:         "input",
	BindingOutput:        "output",
	BindingCondition:     "condition",
	BindingRepeatSource:  "repeat-source",
}

// String returns the binding kind name.
func (k BindingKind) String() string {
	if k >= 0 && int(k) < len(bindingKindNames) {
		return bindingKindNames[k]
	}
	return fmt.Sprintf("BindingKind(%d)", int(k))
}

// IsNative reports whether the binding updates the DOM of the factory that
// saves its node.
func (k BindingKind) IsNative() bool {
	switch k {
	case BindingText, BindingInterpolation, BindingAttribute, BindingProperty:
		return true
	case BindingEvent, BindingInput, BindingOutput, BindingCondition, BindingRepeatSource:
		return false
	}
	errors.Violation("unknown binding kind %d", int(k))
	return false
}

// IsSelf reports whether the binding is consumed by the factory anchored at
// its node rather than by the factory that saves the node.
func (k BindingKind) IsSelf() bool {
	switch k {
	case BindingInput, BindingOutput, BindingCondition, BindingRepeatSource:
		return true
	case BindingText, BindingInterpolation, BindingAttribute, BindingProperty, BindingEvent:
		return false
	}
	errors.Violation("unknown binding kind %d", int(k))
	return false
}

// IsHandler reports whether the binding's value is invoked in response to
// an event instead of being read on update.
func (k BindingKind) IsHandler() bool {
	return k == BindingEvent || k == BindingOutput
}

// Binding connects one node to one value.
type Binding struct {
	kind  BindingKind
	name  string
	node  *Node
	value Value
	start errors.Position
	end   errors.Position
}

// Kind returns the binding variant.
func (b *Binding) Kind() BindingKind { return b.kind }

// Name is the attribute, property, event, input or output name. It is empty
// for text, interpolation, condition and repeat-source bindings.
func (b *Binding) Name() string { return b.name }

// Node returns the node carrying the binding.
func (b *Binding) Node() *Node { return b.node }

// Value returns the bound value.
func (b *Binding) Value() Value { return b.value }

// Start is the source position of the binding.
func (b *Binding) Start() errors.Position { return b.start }

// End is the source position just past the binding.
func (b *Binding) End() errors.Position { return b.end }

// String renders the binding in template syntax.
func (b *Binding) String() string {
	switch b.kind {
	case BindingText, BindingInterpolation:
		return b.value.String()
	case BindingAttribute:
		return fmt.Sprintf("[attr.%s]=%q", b.name, b.value.String())
	case BindingProperty, BindingInput:
		return fmt.Sprintf("[%s]=%q", b.name, b.value.String())
	case BindingEvent, BindingOutput:
		return fmt.Sprintf("(%s)=%q", b.name, b.value.String())
	case BindingCondition:
		return "w:if " + b.value.String()
	case BindingRepeatSource:
		return "w:for " + b.value.String()
	}
	errors.Violation("unknown binding kind %d", int(b.kind))
	return ""
}

// bind creates a binding of kind on n and links v to it. It is the only
// place a value acquires its binding.
func bind(n *Node, kind BindingKind, name string, v Value, start, end errors.Position) *Binding {
	b := &Binding{kind: kind, name: name, node: n, value: v, start: start, end: end}
	v.base().attach(b)
	n.bindings = append(n.bindings, b)
	return b
}
