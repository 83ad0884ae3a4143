//go:build property
// +build property

package factory

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/wane/wane-sub001/internal/metadata"
	"github.com/wane/wane-sub001/internal/template"
)

// markup renders a random but well-formed template from a list of ops.
func markup(ops []int) string {
	var b strings.Builder
	var open []string
	for _, op := range ops {
		switch op {
		case 0:
			b.WriteString(`<div [title]="title">`)
			open = append(open, "</div>")
		case 1:
			b.WriteString(`<w:if flag>`)
			open = append(open, "</w:if>")
		case 2:
			b.WriteString(`<w:for item of items>`)
			open = append(open, "</w:for>")
		case 3:
			b.WriteString(`{{ title }}`)
		case 4:
			b.WriteString(`<leaf-cmp [x]="title" (pick)="set(#)"/>`)
		default:
			if len(open) > 0 {
				b.WriteString(open[len(open)-1])
				open = open[:len(open)-1]
			}
		}
	}
	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString(open[i])
	}
	return b.String()
}

func buildOps(ops []int) (*Tree, error) {
	appMeta := metadata.MustNew("App", []string{"title", "flag", "items"}, nil,
		map[string]metadata.Method{"set": {Assigns: []string{"title"}}})
	leafMeta := metadata.MustNew("leaf-cmp", []string{"x", "pick"}, nil, nil)

	nodes, err := template.Parse("App", markup(ops))
	if err != nil {
		return nil, err
	}
	leaf, err := template.Parse("leaf-cmp", `<span>{{ x }}</span>`)
	if err != nil {
		return nil, err
	}
	return Build(&Definition{Name: "App", Template: nodes, Metadata: appMeta},
		Definitions{"leaf-cmp": {Name: "leaf-cmp", Template: leaf, Metadata: leafMeta}})
}

func TestFactoryTreeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	opsGen := gen.SliceOf(gen.IntRange(0, 6))

	properties.Property("every factory has one parent and a finite path to the root", prop.ForAll(
		func(ops []int) bool {
			tree, err := buildOps(ops)
			if err != nil {
				return false
			}
			for _, f := range tree.Factories() {
				if f == tree.Root() {
					if f.Parent() != nil {
						return false
					}
					continue
				}
				count := 0
				for _, c := range f.Parent().Children() {
					if c == f {
						count++
					}
				}
				if count != 1 {
					return false
				}
				path := f.PathTo(tree.Root())
				if len(path) != f.Depth()+1 || path[len(path)-1] != tree.Root() {
					return false
				}
			}
			return true
		},
		opsGen,
	))

	properties.Property("every view node has exactly one responsible factory", prop.ForAll(
		func(ops []int) bool {
			tree, err := buildOps(ops)
			if err != nil {
				return false
			}
			seen := make(map[*template.Node]bool)
			for _, f := range tree.Factories() {
				for _, n := range f.SavedNodes() {
					if seen[n] || tree.Responsible(n) != f {
						return false
					}
					seen[n] = true
				}
			}
			return true
		},
		opsGen,
	))

	properties.Property("definitions are stable and enclose their consumer", prop.ForAll(
		func(ops []int) bool {
			tree, err := buildOps(ops)
			if err != nil {
				return false
			}
			for _, f := range tree.Factories() {
				for _, b := range tree.Bindings(f) {
					d := tree.Definition(b.Value())
					if d == nil {
						continue
					}
					if d != tree.Definition(b.Value()) || !d.IsAncestorOf(tree.Consumer(b)) {
						return false
					}
				}
			}
			return true
		},
		opsGen,
	))

	properties.Property("runtime indexes are contiguous", prop.ForAll(
		func(ops []int) bool {
			tree, err := buildOps(ops)
			if err != nil {
				return false
			}
			for _, f := range tree.Factories() {
				next := 0
				for _, n := range f.SavedNodes() {
					idx, ok := f.IndexOf(n)
					if !ok || idx != next {
						return false
					}
					next += n.SlotCount()
				}
				if next != f.SlotCount() {
					return false
				}
			}
			return true
		},
		opsGen,
	))

	properties.TestingRun(t)
}
