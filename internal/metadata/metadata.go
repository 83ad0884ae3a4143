// Package metadata provides the facts the compiler needs about a component's
// declared members: which names it declares, which methods call which, and
// which properties each method can assign.
//
// The mutation graph must over-approximate. A property reported as
// assignable when it is not only costs an update check at runtime; a
// property missed by the graph would be classified constant and never
// updated.
package metadata

import (
	"fmt"
	"sort"
)

// MemberKind classifies a declared member.
type MemberKind int

const (
	MemberNone MemberKind = iota
	MemberProperty
	MemberGetter
	MemberMethod
)

// String returns the member kind name.
func (k MemberKind) String() string {
	switch k {
	case MemberProperty:
		return "property"
	case MemberGetter:
		return "getter"
	case MemberMethod:
		return "method"
	default:
		return "none"
	}
}

// Component is the metadata gateway consumed by the compiler.
type Component interface {
	// Name is the declared component name.
	Name() string
	// Properties returns declared property names, sorted.
	Properties() []string
	// Getters returns declared getter names, sorted.
	Getters() []string
	// Methods returns declared method names, sorted.
	Methods() []string
	// Member reports the kind of a declared name.
	Member(name string) MemberKind
	// Reachable returns the methods transitively reachable from method by
	// direct calls, excluding method itself unless it is recursive.
	Reachable(method string) []string
	// Mutates returns the properties method can assign directly or through
	// any reachable method.
	Mutates(method string) []string
	// CanMutate reports whether any declared method can assign property.
	CanMutate(property string) bool
}

// Method describes the direct edges of one method.
type Method struct {
	Calls   []string `yaml:"calls,omitempty"`
	Assigns []string `yaml:"assigns,omitempty"`
}

// Info is an immutable Component built from direct edges. Transitive sets
// are computed once by New.
type Info struct {
	name       string
	properties []string
	getters    []string
	methods    []string
	members    map[string]MemberKind
	reachable  map[string][]string
	mutates    map[string][]string
	mutable    map[string]bool
}

// New builds an Info. Calls to undeclared methods are ignored; assignments
// to undeclared names are kept. A name declared twice is an error.
func New(name string, properties, getters []string, methods map[string]Method) (*Info, error) {
	info := &Info{
		name:      name,
		members:   make(map[string]MemberKind),
		reachable: make(map[string][]string),
		mutates:   make(map[string][]string),
		mutable:   make(map[string]bool),
	}

	declare := func(member string, kind MemberKind) error {
		if member == "" {
			return fmt.Errorf("component %s: empty member name", name)
		}
		if prev, ok := info.members[member]; ok {
			return fmt.Errorf("component %s: %q declared as both %s and %s", name, member, prev, kind)
		}
		info.members[member] = kind
		return nil
	}

	for _, p := range properties {
		if err := declare(p, MemberProperty); err != nil {
			return nil, err
		}
		info.properties = append(info.properties, p)
	}
	for _, g := range getters {
		if err := declare(g, MemberGetter); err != nil {
			return nil, err
		}
		info.getters = append(info.getters, g)
	}
	for m := range methods {
		if err := declare(m, MemberMethod); err != nil {
			return nil, err
		}
		info.methods = append(info.methods, m)
	}
	sort.Strings(info.properties)
	sort.Strings(info.getters)
	sort.Strings(info.methods)

	calls := make(map[string][]string, len(methods))
	for m, def := range methods {
		for _, callee := range def.Calls {
			if _, ok := methods[callee]; ok {
				calls[m] = append(calls[m], callee)
			}
		}
	}

	for _, m := range info.methods {
		reach := reachable(calls, m)
		info.reachable[m] = reach

		assigned := make(map[string]bool)
		for _, p := range methods[m].Assigns {
			assigned[p] = true
		}
		for _, callee := range reach {
			for _, p := range methods[callee].Assigns {
				assigned[p] = true
			}
		}
		info.mutates[m] = sortedKeys(assigned)
		for p := range assigned {
			info.mutable[p] = true
		}
	}

	return info, nil
}

// MustNew is New that panics on error, for static definitions and tests.
func MustNew(name string, properties, getters []string, methods map[string]Method) *Info {
	info, err := New(name, properties, getters, methods)
	if err != nil {
		panic(err)
	}
	return info
}

// reachable runs an explicit-stack depth-first search over the call graph.
// Cycles, including direct recursion, terminate through the visited set.
func reachable(calls map[string][]string, start string) []string {
	visited := make(map[string]bool)
	stack := append([]string(nil), calls[start]...)
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[m] {
			continue
		}
		visited[m] = true
		for _, next := range calls[m] {
			if !visited[next] {
				stack = append(stack, next)
			}
		}
	}
	return sortedKeys(visited)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Name implements Component.
func (i *Info) Name() string { return i.name }

// Properties implements Component.
func (i *Info) Properties() []string { return append([]string(nil), i.properties...) }

// Getters implements Component.
func (i *Info) Getters() []string { return append([]string(nil), i.getters...) }

// Methods implements Component.
func (i *Info) Methods() []string { return append([]string(nil), i.methods...) }

// Member implements Component.
func (i *Info) Member(name string) MemberKind { return i.members[name] }

// Reachable implements Component.
func (i *Info) Reachable(method string) []string {
	return append([]string(nil), i.reachable[method]...)
}

// Mutates implements Component.
func (i *Info) Mutates(method string) []string {
	return append([]string(nil), i.mutates[method]...)
}

// CanMutate implements Component.
func (i *Info) CanMutate(property string) bool { return i.mutable[property] }

// Members returns every declared name, sorted.
func Members(c Component) []string {
	var out []string
	out = append(out, c.Properties()...)
	out = append(out, c.Getters()...)
	out = append(out, c.Methods()...)
	sort.Strings(out)
	return out
}

// HasMutableState reports whether any declared property can be assigned.
func HasMutableState(c Component) bool {
	for _, p := range c.Properties() {
		if c.CanMutate(p) {
			return true
		}
	}
	return false
}
