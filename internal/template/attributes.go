package template

import (
	"strings"

	"golang.org/x/net/html"
)

type domProperty struct {
	name    string
	boolean bool
}

// domProperties maps literal element attributes that are applied as DOM
// properties. Boolean properties are true whenever the attribute is present.
var domProperties = map[string]domProperty{
	"class":    {name: "className"},
	"for":      {name: "htmlFor"},
	"id":       {name: "id"},
	"value":    {name: "value"},
	"tabindex": {name: "tabIndex"},
	"checked":  {name: "checked", boolean: true},
	"disabled": {name: "disabled", boolean: true},
	"selected": {name: "selected", boolean: true},
	"hidden":   {name: "hidden", boolean: true},
	"readonly": {name: "readOnly", boolean: true},
}

// bindAttributes turns the attributes of an element or component tag into
// bindings on n. A [w:if] or [w:for] attribute is returned to be applied
// by the caller.
func (p *parser) bindAttributes(n *Node, attrs []attribute) (*attribute, error) {
	var directive *attribute
	component := n.kind == NodeComponent

	for i := range attrs {
		a := &attrs[i]
		start, end := p.position(a.start), p.position(a.end)

		switch {
		case a.name == "["+directiveIf+"]" || a.name == "["+directiveFor+"]":
			if directive != nil {
				return nil, p.errorf(a.start, a.end, "<%s> has more than one directive attribute", n.name)
			}
			if !a.hasValue {
				return nil, p.errorf(a.start, a.end, "%s requires a value", a.name)
			}
			directive = a

		case strings.HasPrefix(a.name, "[") || strings.HasPrefix(a.name, "("):
			kind, target, err := p.dynamicTarget(n, a)
			if err != nil {
				return nil, err
			}
			v, err := parseExpression(a.value, kind.IsHandler())
			if err != nil {
				return nil, p.errorf(a.valueStart, a.valueStart+len(a.value), "%s: %v", a.name, err)
			}
			if _, ok := v.(*MethodCall); kind.IsHandler() && !ok {
				return nil, p.errorf(a.valueStart, a.valueStart+len(a.value), "handler %s must be a method call", a.name)
			}
			bind(n, kind, target, v, start, end)

		case strings.HasPrefix(a.name, directivePrefix):
			return nil, p.errorf(a.start, a.end, "directive attribute must be written as [%s]", a.name)

		case strings.ContainsAny(a.name, "[]()#{}"):
			return nil, p.errorf(a.start, a.end, "invalid attribute name %q", a.name)

		case component:
			if !a.hasValue {
				bind(n, BindingInput, a.name, newConstant("true", true), start, end)
				continue
			}
			bind(n, BindingInput, a.name, newConstant(html.UnescapeString(a.value), false), start, end)

		default:
			prop, ok := domProperties[strings.ToLower(a.name)]
			switch {
			case ok && prop.boolean:
				bind(n, BindingProperty, prop.name, newConstant("true", true), start, end)
			case ok:
				bind(n, BindingProperty, prop.name, newConstant(html.UnescapeString(a.value), false), start, end)
			default:
				bind(n, BindingAttribute, a.name, newConstant(html.UnescapeString(a.value), false), start, end)
			}
		}
	}
	return directive, nil
}

// dynamicTarget classifies a [name] or (name) attribute.
func (p *parser) dynamicTarget(n *Node, a *attribute) (BindingKind, string, error) {
	component := n.kind == NodeComponent
	open, closer := a.name[0], byte(']')
	if open == '(' {
		closer = ')'
	}
	if len(a.name) < 3 || a.name[len(a.name)-1] != closer {
		return 0, "", p.errorf(a.start, a.end, "malformed binding %s", a.name)
	}
	inner := a.name[1 : len(a.name)-1]
	if strings.ContainsAny(inner, "[]()") {
		return 0, "", p.errorf(a.start, a.end, "malformed binding %s", a.name)
	}
	if !a.hasValue {
		return 0, "", p.errorf(a.start, a.end, "binding %s requires a value", a.name)
	}

	if open == '(' {
		if component {
			return BindingOutput, inner, nil
		}
		return BindingEvent, inner, nil
	}
	switch {
	case strings.HasPrefix(inner, "attr."):
		name := strings.TrimPrefix(inner, "attr.")
		if name == "" {
			return 0, "", p.errorf(a.start, a.end, "malformed binding %s", a.name)
		}
		return BindingAttribute, name, nil
	case strings.HasPrefix(inner, directivePrefix):
		return 0, "", p.errorf(a.start, a.end, "unknown directive %s", inner)
	case strings.Contains(inner, "."):
		return 0, "", p.errorf(a.start, a.end, "unsupported binding %s", a.name)
	case strings.Contains(inner, "-"):
		return BindingAttribute, inner, nil
	case component:
		return BindingInput, inner, nil
	default:
		return BindingProperty, inner, nil
	}
}
