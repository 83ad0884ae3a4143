// Package template parses component markup into a forest of typed nodes
// whose bindings carry the values that drive runtime updates.
//
// Nodes, bindings and values are created together by the parser and are
// read-only afterwards. A value is linked to exactly one binding and a
// binding to exactly one node at construction.
package template

import (
	"fmt"
	"strings"

	"github.com/wane/wane-sub001/internal/errors"
)

// NodeKind is the closed set of template node variants.
type NodeKind int

const (
	// NodeText is the raw body of a <script> or <style> element.
	NodeText NodeKind = iota
	NodeInterpolation
	NodeElement
	NodeComponent
	NodeConditional
	NodeRepeating
)

// String returns the node kind name.
func (k NodeKind) String() string {
	switch k {
	case NodeText:
		return "text"
	case NodeInterpolation:
		return "interpolation"
	case NodeElement:
		return "element"
	case NodeComponent:
		return "component"
	case NodeConditional:
		return "conditional"
	case NodeRepeating:
		return "repeating"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// IsStructural reports whether nodes of this kind are markup structure
// rather than text.
func (k NodeKind) IsStructural() bool {
	switch k {
	case NodeElement, NodeComponent, NodeConditional, NodeRepeating:
		return true
	case NodeText, NodeInterpolation:
		return false
	}
	errors.Violation("unknown node kind %d", int(k))
	return false
}

// IsScope reports whether nodes of this kind anchor their own factory.
func (k NodeKind) IsScope() bool {
	switch k {
	case NodeComponent, NodeConditional, NodeRepeating:
		return true
	case NodeText, NodeInterpolation, NodeElement:
		return false
	}
	errors.Violation("unknown node kind %d", int(k))
	return false
}

// Node is one node of a parsed template.
type Node struct {
	kind     NodeKind
	name     string
	children []*Node
	bindings []*Binding
	start    errors.Position
	end      errors.Position

	// directive data
	spec    string
	negated bool
	item    string
	index   string
	key     []string
}

// Kind returns the node variant.
func (n *Node) Kind() NodeKind { return n.kind }

// Name is the tag name for elements and components and the directive
// name for conditionals and repeaters. Text nodes have no name.
func (n *Node) Name() string { return n.name }

// Children returns the ordered child nodes.
func (n *Node) Children() []*Node { return append([]*Node(nil), n.children...) }

// Bindings returns the node's bindings in source order.
func (n *Node) Bindings() []*Binding { return append([]*Binding(nil), n.bindings...) }

// Start is the source position where the node begins.
func (n *Node) Start() errors.Position { return n.start }

// End is the source position just past the node.
func (n *Node) End() errors.Position { return n.end }

// SlotCount is the number of runtime DOM slots the node occupies in its
// factory: conditionals and repeaters take an opening and a closing marker.
func (n *Node) SlotCount() int {
	switch n.kind {
	case NodeConditional, NodeRepeating:
		return 2
	case NodeText, NodeInterpolation, NodeElement, NodeComponent:
		return 1
	}
	errors.Violation("unknown node kind %d", int(n.kind))
	return 0
}

// Spec returns the directive spec source of a conditional or repeater.
func (n *Node) Spec() string { return n.spec }

// Negated reports whether a conditional renders when its condition is false.
func (n *Node) Negated() bool { return n.negated }

// Item is the iteration variable of a repeater.
func (n *Node) Item() string { return n.item }

// Index is the optional index variable of a repeater.
func (n *Node) Index() string { return n.index }

// KeyPath is the optional key path of a repeater, relative to the item.
func (n *Node) KeyPath() []string { return append([]string(nil), n.key...) }

// Declares reports whether a repeater introduces name into its view.
func (n *Node) Declares(name string) bool {
	return n.kind == NodeRepeating && name != "" && (name == n.item || name == n.index)
}

// Binding returns the first binding of kind, or nil.
func (n *Node) Binding(kind BindingKind) *Binding {
	for _, b := range n.bindings {
		if b.kind == kind {
			return b
		}
	}
	return nil
}

// Constant returns the constant value of a text or interpolation node.
func (n *Node) Constant() (*Constant, bool) {
	if n.kind != NodeText && n.kind != NodeInterpolation || len(n.bindings) != 1 {
		return nil, false
	}
	c, ok := n.bindings[0].value.(*Constant)
	return c, ok
}

// String renders the node for debugging.
func (n *Node) String() string {
	switch n.kind {
	case NodeText, NodeInterpolation:
		if len(n.bindings) == 1 {
			return fmt.Sprintf("%s(%s)", n.kind, n.bindings[0].value)
		}
		return n.kind.String()
	case NodeConditional, NodeRepeating:
		return fmt.Sprintf("<%s %s>", n.name, n.spec)
	case NodeElement, NodeComponent:
		var attrs []string
		for _, b := range n.bindings {
			attrs = append(attrs, b.String())
		}
		if len(attrs) == 0 {
			return "<" + n.name + ">"
		}
		return "<" + n.name + " " + strings.Join(attrs, " ") + ">"
	}
	errors.Violation("unknown node kind %d", int(n.kind))
	return ""
}

// Walk visits nodes in document order. Children of a node are skipped
// when fn returns false.
func Walk(nodes []*Node, fn func(n *Node) bool) {
	for _, n := range nodes {
		if fn(n) {
			Walk(n.children, fn)
		}
	}
}
