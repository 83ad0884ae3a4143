package template

import (
	"strings"

	"github.com/wane/wane-sub001/internal/errors"
)

// Value is a bound value: one of *Constant, *PropertyAccess, *MethodCall
// or *Placeholder.
type Value interface {
	// Binding returns the binding the value belongs to. Method call
	// arguments report the binding of their call.
	Binding() *Binding
	// String renders the value in expression syntax.
	String() string

	base() *valueBase
}

type valueBase struct {
	binding *Binding
	call    *MethodCall
}

func (v *valueBase) base() *valueBase { return v }

func (v *valueBase) Binding() *Binding {
	if v.call != nil {
		return v.call.Binding()
	}
	return v.binding
}

func (v *valueBase) attach(b *Binding) {
	errors.Invariant(v.binding == nil && v.call == nil, "value is already linked")
	v.binding = b
}

func (v *valueBase) attachArg(c *MethodCall) {
	errors.Invariant(v.binding == nil && v.call == nil, "argument is already linked")
	v.call = c
}

// Constant is a value known at compile time. Text constants come from
// markup text and literal attribute values; expression constants come from
// literal-shaped expressions such as 'a', 42 or true.
type Constant struct {
	valueBase
	text       string
	expression bool
}

// Text is the decoded source text.
func (c *Constant) Text() string { return c.text }

// IsExpression reports whether the constant was written as an expression
// literal rather than as markup text.
func (c *Constant) IsExpression() bool { return c.expression }

// Literal is the text safe to embed in a quoted string literal, or the
// expression source for expression constants.
func (c *Constant) Literal() string {
	if c.expression {
		return c.text
	}
	return Escape(c.text)
}

func (c *Constant) String() string {
	if c.expression {
		return c.text
	}
	return "'" + Escape(c.text) + "'"
}

// PropertyAccess reads a dotted path such as user.name.
type PropertyAccess struct {
	valueBase
	path []string
}

// Path returns the path segments.
func (p *PropertyAccess) Path() []string { return append([]string(nil), p.path...) }

// Root is the first path segment, the name looked up in enclosing scopes.
func (p *PropertyAccess) Root() string { return p.path[0] }

func (p *PropertyAccess) String() string { return strings.Join(p.path, ".") }

// MethodCall invokes a declared method with ordered arguments.
type MethodCall struct {
	valueBase
	name string
	args []Value
}

// Name is the called method.
func (m *MethodCall) Name() string { return m.name }

// Args returns the arguments, each a *Constant, *PropertyAccess or
// *Placeholder.
func (m *MethodCall) Args() []Value { return append([]Value(nil), m.args...) }

func (m *MethodCall) String() string {
	args := make([]string, len(m.args))
	for i, a := range m.args {
		args[i] = a.String()
	}
	return m.name + "(" + strings.Join(args, ", ") + ")"
}

// Placeholder is the # event payload argument.
type Placeholder struct {
	valueBase
}

func (*Placeholder) String() string { return "#" }

func newConstant(text string, expression bool) *Constant {
	return &Constant{text: text, expression: expression}
}

func newPropertyAccess(path []string) *PropertyAccess {
	errors.Invariant(len(path) > 0, "empty property path")
	return &PropertyAccess{path: path}
}

func newMethodCall(name string, args []Value) *MethodCall {
	m := &MethodCall{name: name, args: args}
	for _, a := range args {
		if _, nested := a.(*MethodCall); nested {
			errors.Violation("nested call in arguments of %s", name)
		}
		a.base().attachArg(m)
	}
	return m
}

// Escape escapes backslashes, quotes, newlines, carriage returns and tabs
// so that s can be embedded in a single or double quoted string literal.
func Escape(s string) string {
	return escaper.Replace(s)
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)
