package template

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// parseExpression parses a binding or interpolation expression. The #
// placeholder is accepted as a call argument only when placeholder is set.
func parseExpression(src string, placeholder bool) (Value, error) {
	s := strings.TrimSpace(src)
	switch {
	case s == "":
		return nil, fmt.Errorf("empty expression")
	case s == "#":
		return nil, fmt.Errorf("# is only allowed as a handler argument")
	case isLiteral(s):
		return newConstant(s, true), nil
	}

	if open := strings.IndexByte(s, '('); open >= 0 {
		return parseCall(s, open, placeholder)
	}
	if path, ok := parsePath(s); ok {
		return newPropertyAccess(path), nil
	}
	return nil, fmt.Errorf("invalid expression %q", s)
}

func parseCall(s string, open int, placeholder bool) (*MethodCall, error) {
	name := strings.TrimSpace(s[:open])
	if !isIdent(name) {
		return nil, fmt.Errorf("invalid method name %q", name)
	}
	if !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("call %s is not closed", name)
	}

	parts, err := splitArgs(s[open+1 : len(s)-1])
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	args := make([]Value, 0, len(parts))
	for _, part := range parts {
		arg, err := parseArg(part, placeholder)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", name, err)
		}
		args = append(args, arg)
	}
	return newMethodCall(name, args), nil
}

func parseArg(s string, placeholder bool) (Value, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, fmt.Errorf("empty argument")
	case s == "#":
		if !placeholder {
			return nil, fmt.Errorf("# is only allowed as a handler argument")
		}
		return &Placeholder{}, nil
	case isLiteral(s):
		return newConstant(s, true), nil
	}
	if path, ok := parsePath(s); ok {
		return newPropertyAccess(path), nil
	}
	return nil, fmt.Errorf("invalid argument %q", s)
}

// splitArgs splits an argument list on commas outside string literals.
func splitArgs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ',':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated string")
	}
	return append(parts, s[start:]), nil
}

// indexClose returns the index of the first "}}" in s outside a quoted
// string, or -1.
func indexClose(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '}' && i+1 < len(s) && s[i+1] == '}':
			return i
		}
	}
	return -1
}

// isLiteral reports whether s has literal shape: a keyword literal, a
// quoted string or something starting with a number.
func isLiteral(s string) bool {
	switch s {
	case "true", "false", "null", "undefined":
		return true
	}
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') {
		q := s[0]
		for i := 1; i < len(s); i++ {
			switch s[i] {
			case '\\':
				i++
			case q:
				return i == len(s)-1
			}
		}
		return false
	}
	if isDigit(s[0]) {
		return true
	}
	return len(s) > 1 && (s[0] == '-' || s[0] == '.') && isDigit(s[1])
}

func parsePath(s string) ([]string, bool) {
	parts := strings.Split(s, ".")
	for _, part := range parts {
		if !isIdent(part) {
			return nil, false
		}
	}
	return parts, true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// parseCondition parses a w:if spec: an optionally negated property path.
func parseCondition(spec string) (negated bool, path []string, err error) {
	s := strings.TrimSpace(spec)
	if strings.HasPrefix(s, "!") {
		negated = true
		s = strings.TrimSpace(s[1:])
	}
	path, ok := parsePath(s)
	if !ok {
		return false, nil, fmt.Errorf("w:if expects [!]<property path>, got %q", spec)
	}
	return negated, path, nil
}

type repeat struct {
	item   string
	index  string
	source []string
	key    []string
}

var (
	repeatHead = regexp.MustCompile(`^(?:\(\s*([\pL_$][\pL\pN_$]*)\s*(?:,\s*([\pL_$][\pL\pN_$]*)\s*)?\)|([\pL_$][\pL\pN_$]*)(?:\s*,\s*([\pL_$][\pL\pN_$]*))?)\s+of\s+(.+)$`)
	repeatKey  = regexp.MustCompile(`^key\s*:\s*(.+)$`)
)

// parseRepeat parses a w:for spec: (item[, index]) of path[; key: path],
// with optional parentheses around the item and index.
func parseRepeat(spec string) (*repeat, error) {
	s := strings.TrimSpace(spec)
	head, tail, hasKey := strings.Cut(s, ";")
	m := repeatHead.FindStringSubmatch(strings.TrimSpace(head))
	if m == nil {
		return nil, fmt.Errorf("w:for expects (item[, index]) of <path>[; key: <path>], got %q", spec)
	}

	r := &repeat{item: m[1], index: m[2]}
	if r.item == "" {
		r.item, r.index = m[3], m[4]
	}
	if r.index != "" && r.index == r.item {
		return nil, fmt.Errorf("w:for item and index are both named %q", r.item)
	}

	source, ok := parsePath(strings.TrimSpace(m[5]))
	if !ok {
		return nil, fmt.Errorf("w:for source %q is not a property path", strings.TrimSpace(m[5]))
	}
	r.source = source

	if hasKey {
		km := repeatKey.FindStringSubmatch(strings.TrimSpace(tail))
		if km == nil {
			return nil, fmt.Errorf("w:for expects key: <path> after ';', got %q", strings.TrimSpace(tail))
		}
		key, ok := parsePath(strings.TrimSpace(km[1]))
		if !ok {
			return nil, fmt.Errorf("w:for key %q is not a property path", strings.TrimSpace(km[1]))
		}
		r.key = key
	}
	return r, nil
}
