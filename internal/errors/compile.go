package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Position is a location in template source.
type Position struct {
	Offset int `json:"offset" yaml:"offset"`
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// String formats the position as line:column.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// ParseError reports malformed markup or misuse of a directive.
type ParseError struct {
	Component string
	File      string
	Start     Position
	End       Position
	Message   string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteByte(':')
	} else if e.Component != "" {
		b.WriteString(e.Component)
		b.WriteByte(':')
	}
	fmt.Fprintf(&b, "%s: parse error: %s", e.Start, e.Message)
	return b.String()
}

// UnresolvedReferenceError reports a name that no enclosing scope declares,
// or one that resolves to a member of the wrong kind.
type UnresolvedReferenceError struct {
	Component string
	Name      string
	Path      string
	Reason    string
	Factory   string
	Start     Position
	End       Position
	// Candidates are similarly named members visible from the reference.
	Candidates []string
}

// Error implements the error interface.
func (e *UnresolvedReferenceError) Error() string {
	var b strings.Builder
	if e.Component != "" {
		b.WriteString(e.Component)
		b.WriteByte(':')
	}
	if e.Start.Line > 0 {
		fmt.Fprintf(&b, "%s: ", e.Start)
	} else if e.Component != "" {
		b.WriteByte(' ')
	}
	reason := e.Reason
	if reason == "" {
		reason = "is not declared in any enclosing scope"
	}
	fmt.Fprintf(&b, "unresolved reference %q", e.Path)
	if e.Factory != "" {
		fmt.Fprintf(&b, " from %s", e.Factory)
	}
	fmt.Fprintf(&b, ": %q %s", e.Name, reason)
	if len(e.Candidates) > 0 {
		fmt.Fprintf(&b, " (did you mean %s?)", strings.Join(quoteAll(e.Candidates), ", "))
	}
	return b.String()
}

// UnreachableDefinitionError reports a value whose definition factory is not
// on the ancestor chain of the factory consuming it.
type UnreachableDefinitionError struct {
	Value      string
	Definition string
	Consumer   string
}

// Error implements the error interface.
func (e *UnreachableDefinitionError) Error() string {
	return fmt.Sprintf("definition %s of %q is not an ancestor of consumer %s", e.Definition, e.Value, e.Consumer)
}

// Suggest returns the members of candidates that look like name, sorted.
func Suggest(name string, candidates []string) []string {
	lower := strings.ToLower(name)
	var out []string
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if lc == lower || strings.Contains(lc, lower) || strings.Contains(lower, lc) {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
