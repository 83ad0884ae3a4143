package style

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type scoper struct {
	host     string
	attr     string
	children Resolver
}

func (s *scoper) write(b *strings.Builder, rules []rule, scope bool) {
	for _, r := range rules {
		if r.at == "" {
			if scope {
				b.WriteString(s.selectorList(r.selector))
			} else {
				b.WriteString(strings.Join(splitList(r.selector), ","))
			}
			writeDecls(b, r.decls)
			continue
		}

		b.WriteString(r.at)
		if r.prelude != "" {
			b.WriteByte(' ')
			b.WriteString(r.prelude)
		}
		switch {
		case !r.block:
			b.WriteByte(';')
		case r.children != nil || r.verbatim:
			b.WriteByte('{')
			s.write(b, r.children, scope && !r.verbatim)
			b.WriteByte('}')
		default:
			writeDecls(b, r.decls)
		}
	}
}

func writeDecls(b *strings.Builder, decls []string) {
	b.WriteByte('{')
	b.WriteString(strings.Join(decls, ";"))
	b.WriteByte('}')
}

// splitList splits a selector list on top-level commas.
func splitList(sel string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(sel); i++ {
		switch c := sel[i]; c {
		case '"', '\'':
			i = skipString(sel, i) - 1
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(sel[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(sel[start:]))
}

func (s *scoper) selectorList(sel string) string {
	parts := splitList(sel)
	for i, part := range parts {
		parts[i] = s.complex(part)
	}
	return strings.Join(parts, ",")
}

// complex scopes every compound of a complex selector and rewrites the
// combinators in minified form.
func (s *scoper) complex(sel string) string {
	var b strings.Builder
	depth := 0
	start := 0
	for i := 0; i < len(sel); i++ {
		c := sel[i]
		switch {
		case c == '"' || c == '\'':
			i = skipString(sel, i) - 1
			continue
		case c == '(' || c == '[':
			depth++
			continue
		case c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
			continue
		case depth > 0 || !(isSpace(c) || c == '>' || c == '+' || c == '~'):
			continue
		}

		if start < i {
			b.WriteString(s.compound(sel[start:i]))
		}
		comb := byte(' ')
		j := i
		for j < len(sel) && (isSpace(sel[j]) || sel[j] == '>' || sel[j] == '+' || sel[j] == '~') {
			if !isSpace(sel[j]) {
				comb = sel[j]
			}
			j++
		}
		if comb != ' ' || (b.Len() > 0 && j < len(sel)) {
			b.WriteByte(comb)
		}
		start = j
		i = j - 1
	}
	if start < len(sel) {
		b.WriteString(s.compound(sel[start:]))
	}
	return b.String()
}

// compound scopes one compound selector.
func (s *scoper) compound(c string) string {
	switch {
	case strings.HasPrefix(c, ":host") && (len(c) == 5 || !isIdentByte(c[5])):
		rest := c[5:]
		if strings.HasPrefix(rest, "(") {
			if end := closingParen(rest); end > 0 {
				rest = strings.TrimSpace(rest[1:end]) + rest[end+1:]
			}
		}
		return s.host + rest
	case c[0] == '*':
		return s.attr + c[1:]
	case c[0] == ':':
		return s.attr + c
	case c[0] == '.' || c[0] == '#':
		end := 1
		for end < len(c) && isIdentByte(c[end]) {
			end++
		}
		return c[:end] + s.attr + c[end:]
	case c[0] == '[':
		end := strings.IndexByte(c, ']')
		if end < 0 {
			return c + s.attr
		}
		return c[:end+1] + s.attr + c[end+1:]
	case isIdentByte(c[0]):
		end := 0
		for end < len(c) && isIdentByte(c[end]) {
			end++
		}
		name := c[:end]
		if r, _ := utf8.DecodeRuneInString(name); unicode.IsUpper(r) {
			if tag, ok := s.children.ChildTag(name); ok {
				name = tag
			}
		}
		return name + s.attr + c[end:]
	}
	return c + s.attr
}

// closingParen returns the index of the parenthesis closing s[0].
func closingParen(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
