package template

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wane/wane-sub001/internal/errors"
)

const directivePrefix = "w:"

const (
	directiveIf  = directivePrefix + "if"
	directiveFor = directivePrefix + "for"
)

// Parse parses the template of component into a node forest. Parsing stops
// at the first error, which is an *errors.ParseError.
func Parse(component, src string) ([]*Node, error) {
	p := newParser(component, src)
	nodes, err := p.parseNodes(nil)
	if err != nil {
		return nil, err
	}
	return pruneWhitespace(nodes), nil
}

// parser is a recursive descent parser over template markup.
type parser struct {
	component string
	src       string
	pos       int
	lines     []int
}

type openTag struct {
	name       string
	start, end int
}

func newParser(component, src string) *parser {
	lines := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &parser{component: component, src: src, lines: lines}
}

func (p *parser) position(off int) errors.Position {
	line := sort.Search(len(p.lines), func(i int) bool { return p.lines[i] > off })
	return errors.Position{Offset: off, Line: line, Column: off - p.lines[line-1] + 1}
}

func (p *parser) errorf(start, end int, format string, args ...interface{}) error {
	return &errors.ParseError{
		Component: p.component,
		Start:     p.position(start),
		End:       p.position(end),
		Message:   fmt.Sprintf(format, args...),
	}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek(s string) bool { return strings.HasPrefix(p.src[p.pos:], s) }

func (p *parser) consume(s string) bool {
	if p.peek(s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) readName() string {
	start := p.pos
	for p.pos < len(p.src) && isNameChar(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

// atTag reports whether the source at i starts markup rather than text.
func (p *parser) atTag(i int) bool {
	if p.src[i] != '<' || i+1 >= len(p.src) {
		return false
	}
	c := p.src[i+1]
	return c == '/' || c == '!' || isNameStart(c)
}

// parseNodes parses sibling nodes until the closing tag of open, or until
// the end of input when open is nil.
func (p *parser) parseNodes(open *openTag) ([]*Node, error) {
	var nodes []*Node
	for {
		switch {
		case p.eof():
			if open != nil {
				return nil, p.errorf(open.start, open.end, "unclosed tag <%s>", open.name)
			}
			return nodes, nil

		case p.peek("<!--"):
			start := p.pos
			end := strings.Index(p.src[p.pos+4:], "-->")
			if end < 0 {
				return nil, p.errorf(start, len(p.src), "unterminated comment")
			}
			p.pos += 4 + end + 3

		case p.peek("<!"):
			start := p.pos
			end := strings.IndexByte(p.src[p.pos:], '>')
			if end < 0 {
				return nil, p.errorf(start, len(p.src), "unterminated declaration")
			}
			p.pos += end + 1

		case p.peek("</"):
			start := p.pos
			p.pos += 2
			name := p.readName()
			p.skipSpace()
			if !p.consume(">") {
				return nil, p.errorf(start, p.pos, "malformed closing tag </%s", name)
			}
			if open == nil {
				return nil, p.errorf(start, p.pos, "unexpected closing tag </%s>", name)
			}
			if name != open.name {
				return nil, p.errorf(start, p.pos, "closing tag </%s> does not match <%s>", name, open.name)
			}
			return nodes, nil

		case p.atTag(p.pos):
			n, err := p.parseTag()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)

		default:
			text, err := p.parseText()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, text...)
		}
	}
}

// parseText splits a run of text into constant and dynamic interpolation
// nodes.
func (p *parser) parseText() ([]*Node, error) {
	var nodes []*Node
	chunk := p.pos
	flush := func(end int) {
		if end > chunk {
			n := &Node{kind: NodeInterpolation, start: p.position(chunk), end: p.position(end)}
			bind(n, BindingInterpolation, "", newConstant(html.UnescapeString(p.src[chunk:end]), false), n.start, n.end)
			nodes = append(nodes, n)
		}
	}

	for p.pos < len(p.src) && !p.atTag(p.pos) {
		if !p.peek("{{") {
			p.pos++
			continue
		}
		flush(p.pos)
		start := p.pos
		end := indexClose(p.src[start+2:])
		if end < 0 {
			return nil, p.errorf(start, len(p.src), "unterminated interpolation")
		}
		exprEnd := start + 2 + end
		p.pos = exprEnd + 2
		v, err := parseExpression(p.src[start+2:exprEnd], false)
		if err != nil {
			return nil, p.errorf(start, p.pos, "%v", err)
		}
		n := &Node{kind: NodeInterpolation, start: p.position(start), end: p.position(p.pos)}
		bind(n, BindingInterpolation, "", v, n.start, n.end)
		nodes = append(nodes, n)
		chunk = p.pos
	}
	flush(p.pos)
	return nodes, nil
}

func (p *parser) parseTag() (*Node, error) {
	start := p.pos
	p.pos++
	name := p.readName()
	if strings.HasPrefix(name, directivePrefix) {
		return p.parseDirective(start, name)
	}

	attrs, selfClosing, err := p.parseAttributes(start, name)
	if err != nil {
		return nil, err
	}
	open := &openTag{name: name, start: start, end: p.pos}

	n := &Node{kind: classify(name), name: name, start: p.position(start)}
	switch {
	case selfClosing:
	case n.kind == NodeElement && isVoid(name):
	case n.kind == NodeElement && isRawText(name):
		text, err := p.parseRawText(open)
		if err != nil {
			return nil, err
		}
		if text != nil {
			n.children = []*Node{text}
		}
	default:
		children, err := p.parseNodes(open)
		if err != nil {
			return nil, err
		}
		n.children = children
	}
	n.end = p.position(p.pos)

	if n.kind == NodeComponent {
		for _, c := range n.children {
			if !isBlankText(c) {
				return nil, p.errorf(c.start.Offset, c.end.Offset, "component <%s> cannot have content", name)
			}
		}
		n.children = nil
	}

	directive, err := p.bindAttributes(n, attrs)
	if err != nil {
		return nil, err
	}
	if directive == nil {
		return n, nil
	}
	return p.wrap(n, directive)
}

type attribute struct {
	name       string
	value      string
	hasValue   bool
	start, end int
	valueStart int
}

func (p *parser) parseAttributes(tagStart int, tag string) ([]attribute, bool, error) {
	var attrs []attribute
	for {
		p.skipSpace()
		switch {
		case p.eof():
			return nil, false, p.errorf(tagStart, p.pos, "unterminated tag <%s>", tag)
		case p.consume("/>"):
			return attrs, true, nil
		case p.consume(">"):
			return attrs, false, nil
		}

		a := attribute{start: p.pos}
		for p.pos < len(p.src) && !isSpace(p.src[p.pos]) && !p.peek("=") && !p.peek(">") && !p.peek("/>") {
			if c := p.src[p.pos]; c == '"' || c == '\'' || c == '<' {
				return nil, false, p.errorf(p.pos, p.pos+1, "unexpected %q in <%s>", c, tag)
			}
			p.pos++
		}
		a.name = p.src[a.start:p.pos]
		if a.name == "" {
			return nil, false, p.errorf(p.pos, p.pos+1, "unexpected %q in <%s>", p.src[p.pos], tag)
		}

		p.skipSpace()
		if p.consume("=") {
			p.skipSpace()
			if err := p.parseAttributeValue(&a, tag); err != nil {
				return nil, false, err
			}
		}
		a.end = p.pos
		attrs = append(attrs, a)
	}
}

func (p *parser) parseAttributeValue(a *attribute, tag string) error {
	a.hasValue = true
	if p.eof() {
		return p.errorf(a.start, p.pos, "missing value for attribute %s", a.name)
	}
	if q := p.src[p.pos]; q == '"' || q == '\'' {
		end := strings.IndexByte(p.src[p.pos+1:], q)
		if end < 0 {
			return p.errorf(a.start, len(p.src), "unterminated value for attribute %s", a.name)
		}
		a.valueStart = p.pos + 1
		a.value = p.src[a.valueStart : a.valueStart+end]
		p.pos = a.valueStart + end + 1
		return nil
	}
	a.valueStart = p.pos
	for p.pos < len(p.src) && !isSpace(p.src[p.pos]) && !p.peek(">") && !p.peek("/>") {
		p.pos++
	}
	a.value = p.src[a.valueStart:p.pos]
	if a.value == "" {
		return p.errorf(a.start, p.pos, "missing value for attribute %s in <%s>", a.name, tag)
	}
	return nil
}

// parseRawText reads the body of a raw text element up to its closing tag.
func (p *parser) parseRawText(open *openTag) (*Node, error) {
	closing := "</" + strings.ToLower(open.name)
	idx := strings.Index(strings.ToLower(p.src[p.pos:]), closing)
	if idx < 0 {
		return nil, p.errorf(open.start, open.end, "unclosed tag <%s>", open.name)
	}
	bodyStart := p.pos
	bodyEnd := p.pos + idx

	p.pos = bodyEnd + len(closing)
	p.skipSpace()
	if !p.consume(">") {
		return nil, p.errorf(bodyEnd, p.pos, "malformed closing tag </%s", open.name)
	}
	if bodyEnd == bodyStart {
		return nil, nil
	}
	n := &Node{kind: NodeText, start: p.position(bodyStart), end: p.position(bodyEnd)}
	bind(n, BindingText, "", newConstant(p.src[bodyStart:bodyEnd], false), n.start, n.end)
	return n, nil
}

func (p *parser) parseDirective(start int, name string) (*Node, error) {
	var kind NodeKind
	switch name {
	case directiveIf:
		kind = NodeConditional
	case directiveFor:
		kind = NodeRepeating
	default:
		return nil, p.errorf(start, p.pos, "unknown directive <%s>", name)
	}

	specStart := p.pos
	end := strings.IndexByte(p.src[p.pos:], '>')
	if end < 0 {
		return nil, p.errorf(start, len(p.src), "unterminated tag <%s>", name)
	}
	raw := p.src[specStart : specStart+end]
	p.pos = specStart + end + 1
	selfClosing := strings.HasSuffix(raw, "/")
	if selfClosing {
		raw = raw[:len(raw)-1]
	}

	n, err := p.newDirective(kind, strings.TrimSpace(raw), start, specStart, specStart+len(raw))
	if err != nil {
		return nil, err
	}
	if !selfClosing {
		children, err := p.parseNodes(&openTag{name: name, start: start, end: p.pos})
		if err != nil {
			return nil, err
		}
		n.children = children
	}
	n.end = p.position(p.pos)
	return n, nil
}

// newDirective creates a conditional or repeating node from its spec.
func (p *parser) newDirective(kind NodeKind, spec string, start, specStart, specEnd int) (*Node, error) {
	n := &Node{kind: kind, spec: spec, start: p.position(start)}
	bs, be := p.position(specStart), p.position(specEnd)
	switch kind {
	case NodeConditional:
		n.name = directiveIf
		negated, path, err := parseCondition(spec)
		if err != nil {
			return nil, p.errorf(specStart, specEnd, "%v", err)
		}
		n.negated = negated
		bind(n, BindingCondition, "", newPropertyAccess(path), bs, be)
	case NodeRepeating:
		n.name = directiveFor
		r, err := parseRepeat(spec)
		if err != nil {
			return nil, p.errorf(specStart, specEnd, "%v", err)
		}
		n.item, n.index, n.key = r.item, r.index, r.key
		bind(n, BindingRepeatSource, "", newPropertyAccess(r.source), bs, be)
	default:
		errors.Violation("%s is not a directive kind", kind)
	}
	return n, nil
}

// wrap applies a [w:if] or [w:for] attribute by wrapping n in a directive
// node whose only child is n.
func (p *parser) wrap(n *Node, a *attribute) (*Node, error) {
	kind := NodeConditional
	if a.name == "["+directiveFor+"]" {
		kind = NodeRepeating
	}
	d, err := p.newDirective(kind, strings.TrimSpace(a.value), n.start.Offset, a.valueStart, a.valueStart+len(a.value))
	if err != nil {
		return nil, err
	}
	d.children = []*Node{n}
	d.end = n.end
	return d, nil
}

// classify returns the kind of a non-directive tag: names starting with an
// upper case letter or containing a hyphen reference components.
func classify(name string) NodeKind {
	if name != "" && (name[0] >= 'A' && name[0] <= 'Z' || strings.Contains(name, "-")) {
		return NodeComponent
	}
	return NodeElement
}

func isVoid(name string) bool {
	switch atom.Lookup([]byte(strings.ToLower(name))) {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Link, atom.Meta, atom.Param, atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}

func isRawText(name string) bool {
	switch atom.Lookup([]byte(strings.ToLower(name))) {
	case atom.Script, atom.Style:
		return true
	}
	return false
}

// isBlankText reports whether n is a constant interpolation of whitespace.
func isBlankText(n *Node) bool {
	if n.kind != NodeInterpolation {
		return false
	}
	c, ok := n.Constant()
	return ok && !c.expression && strings.TrimSpace(c.text) == ""
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isNameStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9' || c == '-' || c == '_' || c == ':' || c == '.'
}
