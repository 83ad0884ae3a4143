// Package style scopes a component stylesheet to the component's own DOM.
//
// Every selector receives a [data-w-<id>] attribute selector on the first
// simple selector of each compound, :host is rewritten to the component's
// tag and selectors naming a registered child component are rewritten to
// the child's compiled tag. The output is minified.
package style

import (
	"fmt"
	"strings"

	"github.com/wane/wane-sub001/internal/errors"
)

// Resolver maps a declared, capitalized component name to its compiled tag.
type Resolver interface {
	ChildTag(name string) (tag string, ok bool)
}

// Tags is a Resolver backed by a map.
type Tags map[string]string

// ChildTag implements Resolver.
func (t Tags) ChildTag(name string) (string, bool) {
	tag, ok := t[name]
	return tag, ok
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name string) (string, bool)

// ChildTag implements Resolver.
func (f ResolverFunc) ChildTag(name string) (string, bool) { return f(name) }

// Attribute returns the scoping attribute name for id.
func Attribute(id int) string { return fmt.Sprintf("data-w-%d", id) }

// Encapsulate scopes css to the component rendered as hostTag. A nil
// resolver resolves nothing.
func Encapsulate(css, hostTag string, id int, children Resolver) (string, error) {
	if children == nil {
		children = Tags(nil)
	}
	src, err := stripComments(css)
	if err != nil {
		return "", err
	}
	p := &sheetParser{src: src}
	rules, err := p.parseRules(false)
	if err != nil {
		return "", err
	}
	s := &scoper{host: hostTag, attr: "[" + Attribute(id) + "]", children: children}
	var b strings.Builder
	s.write(&b, rules, true)
	return b.String(), nil
}

func syntaxError(offset int, format string, args ...interface{}) error {
	return errors.NewValidationError(errors.CodeInvalidStyle,
		fmt.Sprintf("css offset %d: %s", offset, fmt.Sprintf(format, args...)))
}

// stripComments drops /* */ comments outside of strings.
func stripComments(css string) (string, error) {
	var b strings.Builder
	b.Grow(len(css))
	for i := 0; i < len(css); {
		c := css[i]
		switch {
		case c == '"' || c == '\'':
			end := skipString(css, i)
			b.WriteString(css[i:end])
			i = end
		case c == '/' && i+1 < len(css) && css[i+1] == '*':
			end := strings.Index(css[i+2:], "*/")
			if end < 0 {
				return "", syntaxError(i, "unterminated comment")
			}
			// A comment separates tokens.
			b.WriteByte(' ')
			i += end + 4
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// skipString returns the offset just past the string starting at i.
func skipString(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(s)
}

// collapse trims s and reduces whitespace runs outside strings to one space.
func collapse(s string) string {
	var b strings.Builder
	space := false
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case isSpace(c):
			space = true
			i++
			continue
		case c == '"' || c == '\'':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			end := skipString(s, i)
			b.WriteString(s[i:end])
			i = end
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteByte(c)
			i++
		}
		space = false
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
