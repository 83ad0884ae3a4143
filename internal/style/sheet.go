package style

import (
	"strings"
)

// rule is a qualified rule or an at-rule of a parsed stylesheet.
type rule struct {
	selector string
	decls    []string

	// at-rules
	at       string
	prelude  string
	block    bool
	children []rule
	// keyframes selectors are not scoped
	verbatim bool
}

type sheetParser struct {
	src string
	pos int
}

func (p *sheetParser) eof() bool { return p.pos >= len(p.src) }

func (p *sheetParser) skipSpace() {
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

// parseRules reads rules up to the end of input, or up to and including
// the closing brace of the enclosing block when nested.
func (p *sheetParser) parseRules(nested bool) ([]rule, error) {
	var rules []rule
	for {
		p.skipSpace()
		if p.eof() {
			if nested {
				return nil, syntaxError(p.pos, "unclosed block")
			}
			return rules, nil
		}
		switch p.src[p.pos] {
		case '}':
			if !nested {
				return nil, syntaxError(p.pos, "unexpected }")
			}
			p.pos++
			return rules, nil
		case '@':
			r, err := p.parseAtRule()
			if err != nil {
				return nil, err
			}
			rules = append(rules, r)
		case ';':
			p.pos++
		default:
			r, err := p.parseQualified()
			if err != nil {
				return nil, err
			}
			rules = append(rules, r)
		}
	}
}

// readPrelude reads up to the first top-level byte in stops and returns
// the text before it. The stop byte is not consumed; at end of input the
// returned stop is 0.
func (p *sheetParser) readPrelude(stops string) (string, byte) {
	start := p.pos
	depth := 0
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == '"' || c == '\'':
			p.pos = skipString(p.src, p.pos)
			continue
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
		case depth == 0 && strings.IndexByte(stops, c) >= 0:
			return p.src[start:p.pos], c
		}
		p.pos++
	}
	return p.src[start:], 0
}

func (p *sheetParser) parseQualified() (rule, error) {
	start := p.pos
	text, stop := p.readPrelude("{};")
	if stop != '{' {
		return rule{}, syntaxError(start, "expected { after selector %q", collapse(text))
	}
	selector := collapse(text)
	if selector == "" {
		return rule{}, syntaxError(start, "empty selector")
	}
	p.pos++
	decls, err := p.parseDeclarations()
	if err != nil {
		return rule{}, err
	}
	return rule{selector: selector, decls: decls}, nil
}

func (p *sheetParser) parseAtRule() (rule, error) {
	start := p.pos
	p.pos++
	for !p.eof() && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if len(name) == 1 {
		return rule{}, syntaxError(start, "missing at-rule name")
	}
	text, stop := p.readPrelude("{;}")
	r := rule{at: name, prelude: collapse(text)}
	switch stop {
	case 0, '}':
		return r, nil
	case ';':
		p.pos++
		return r, nil
	}

	p.pos++
	r.block = true
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, "keyframes"):
		children, err := p.parseRules(true)
		if err != nil {
			return rule{}, err
		}
		r.children = children
		r.verbatim = true
	case lower == "@media" || lower == "@supports" || lower == "@container" ||
		lower == "@layer" || lower == "@document":
		children, err := p.parseRules(true)
		if err != nil {
			return rule{}, err
		}
		r.children = children
	default:
		decls, err := p.parseDeclarations()
		if err != nil {
			return rule{}, err
		}
		r.decls = decls
	}
	return r, nil
}

// parseDeclarations reads a declaration block after its opening brace,
// consuming the closing brace.
func (p *sheetParser) parseDeclarations() ([]string, error) {
	start := p.pos
	var decls []string
	depth := 0
	declStart := p.pos
	flush := func(end int) error {
		d := strings.TrimSpace(p.src[declStart:end])
		if d == "" {
			return nil
		}
		colon := strings.IndexByte(d, ':')
		if colon <= 0 {
			return syntaxError(declStart, "invalid declaration %q", collapse(d))
		}
		decls = append(decls, collapse(d[:colon])+":"+collapse(d[colon+1:]))
		return nil
	}
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == '"' || c == '\'':
			p.pos = skipString(p.src, p.pos)
			continue
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == '{':
			return nil, syntaxError(p.pos, "unexpected { in declaration block")
		case c == ';' && depth == 0:
			if err := flush(p.pos); err != nil {
				return nil, err
			}
			declStart = p.pos + 1
		case c == '}':
			if err := flush(p.pos); err != nil {
				return nil, err
			}
			p.pos++
			return decls, nil
		}
		p.pos++
	}
	return nil, syntaxError(start, "unclosed block")
}

func isIdentByte(c byte) bool {
	return c == '-' || c == '_' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
