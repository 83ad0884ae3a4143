package template

import "github.com/wane/wane-sub001/internal/errors"

// Clone deep-copies a forest. Bindings and values are recreated, so the
// copy shares nothing with the original.
func Clone(nodes []*Node) []*Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = cloneNode(n)
	}
	return out
}

func cloneNode(n *Node) *Node {
	c := &Node{
		kind:    n.kind,
		name:    n.name,
		start:   n.start,
		end:     n.end,
		spec:    n.spec,
		negated: n.negated,
		item:    n.item,
		index:   n.index,
		key:     append([]string(nil), n.key...),
	}
	for _, b := range n.bindings {
		bind(c, b.kind, b.name, cloneValue(b.value), b.start, b.end)
	}
	c.children = Clone(n.children)
	return c
}

func cloneValue(v Value) Value {
	switch v := v.(type) {
	case *Constant:
		return newConstant(v.text, v.expression)
	case *PropertyAccess:
		return newPropertyAccess(append([]string(nil), v.path...))
	case *MethodCall:
		args := make([]Value, len(v.args))
		for i, a := range v.args {
			args[i] = cloneValue(a)
		}
		return newMethodCall(v.name, args)
	case *Placeholder:
		return &Placeholder{}
	}
	errors.Violation("unknown value type %T", v)
	return nil
}
