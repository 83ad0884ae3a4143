package model

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wane/wane-sub001/internal/compiler"
	"github.com/wane/wane-sub001/internal/metadata"
	"github.com/wane/wane-sub001/internal/registry"
)

func compile(t *testing.T) *Program {
	t.Helper()
	reg := registry.NewComponentRegistry()
	reg.Register(&registry.ComponentInfo{
		Name:     "App",
		Template: `<w:if cond><child-cmp [x]="y"/></w:if>`,
		Style:    `:host { color: red }`,
		Metadata: metadata.MustNew("App", []string{"cond", "y"}, nil, map[string]metadata.Method{
			"set": {Assigns: []string{"cond", "y"}},
		}),
	})
	reg.Register(&registry.ComponentInfo{
		Name:     "child-cmp",
		Template: `<p title="static">{{ x }}</p>`,
		Metadata: metadata.MustNew("child-cmp", []string{"x"}, nil, nil),
	})

	result, err := compiler.New(compiler.Options{}).Compile(context.Background(), reg, "App")
	require.NoError(t, err)
	return Project(result)
}

func TestProjectFactories(t *testing.T) {
	p := compile(t)
	assert.Equal(t, "App", p.Root)
	require.Len(t, p.Factories, 3)

	root, cond, child := p.Factories[0], p.Factories[1], p.Factories[2]

	assert.Equal(t, 0, root.ID)
	assert.Equal(t, "component", root.Kind)
	assert.Nil(t, root.Parent)
	assert.Equal(t, -1, root.Anchor)
	assert.Equal(t, []int{1}, root.Children)

	assert.Equal(t, "conditional", cond.Kind)
	require.NotNil(t, cond.Parent)
	assert.Equal(t, 0, *cond.Parent)
	assert.Equal(t, 0, cond.Anchor)
	assert.Equal(t, "cond", cond.Spec)
	assert.Equal(t, []int{2}, cond.Children)

	assert.Equal(t, "child-cmp", child.Name)
	assert.Equal(t, "component", child.Kind)
	require.NotNil(t, child.Parent)
	assert.Equal(t, 1, *child.Parent)
	assert.Empty(t, child.Spec)
}

func TestProjectBindings(t *testing.T) {
	p := compile(t)
	cond, child := p.Factories[1], p.Factories[2]

	require.Len(t, cond.SelfBindings, 1)
	condition := cond.SelfBindings[0]
	assert.Equal(t, "condition", condition.Kind)
	assert.Equal(t, "property", condition.Value.Kind)
	assert.Equal(t, "cond", condition.Value.Text)
	assert.False(t, condition.Value.Constant)
	assert.Equal(t, "property", condition.Value.RefKind)
	require.NotNil(t, condition.Value.Definition)
	assert.Equal(t, 0, *condition.Value.Definition)
	assert.Equal(t, []int{0}, condition.Value.Access, "the condition is read in the root")

	require.Len(t, child.SelfBindings, 1)
	input := child.SelfBindings[0]
	assert.Equal(t, "input", input.Kind)
	assert.Equal(t, "x", input.Name)
	assert.Equal(t, "y", input.Value.Text)
	assert.Equal(t, []int{1, 0}, input.Value.Access, "the input is read in the conditional")

	var attr *Binding
	for _, n := range child.Nodes {
		for i := range n.Bindings {
			if n.Bindings[i].Kind == "attribute" {
				attr = &n.Bindings[i]
			}
		}
	}
	require.NotNil(t, attr)
	assert.Equal(t, "title", attr.Name)
	assert.Equal(t, "constant", attr.Value.Kind)
	assert.Equal(t, "static", attr.Value.Text)
	assert.True(t, attr.Value.Constant)
	assert.Nil(t, attr.Value.Definition)
}

func TestProjectDiffs(t *testing.T) {
	p := compile(t)
	root, cond, child := p.Factories[0], p.Factories[1], p.Factories[2]

	require.Len(t, root.FactoryDiff, 1)
	assert.Equal(t, ChildUpdate{Child: 1, Triggers: []Trigger{
		{Value: "cond", Reason: "push+forward"},
		{Value: "y", Reason: "push+forward"},
	}}, root.FactoryDiff[0])

	assert.Equal(t, []ChildUpdate{{Child: 2, Triggers: []Trigger{{Value: "y", Reason: "forward"}}}}, cond.FactoryDiff)

	require.Len(t, child.DOMDiff, 1)
	assert.Equal(t, []string{"x"}, child.DOMDiff[0].Values)

	require.Len(t, child.Actions, 1)
	assert.Equal(t, "update_node", child.Actions[0].Kind)
	require.NotNil(t, child.Actions[0].Index)
	assert.Equal(t, child.DOMDiff[0].Index, *child.Actions[0].Index)
	assert.Nil(t, child.Actions[0].Child)

	require.Len(t, root.Actions, 1)
	assert.Equal(t, "update_child", root.Actions[0].Kind)
	require.NotNil(t, root.Actions[0].Child)
	assert.Equal(t, 1, *root.Actions[0].Child)

	require.Len(t, p.Styles, 1)
	assert.Equal(t, Style{Component: "App", Tag: "w-app", Attribute: "data-w-3", CSS: "w-app{color:red}"}, p.Styles[0])
}

func TestEncode(t *testing.T) {
	p := compile(t)

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, p, "yaml"))
		assert.Contains(t, buf.String(), "root: App\n")
		assert.Contains(t, buf.String(), "reason: push+forward")

		var generic map[string]interface{}
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &generic))
		assert.Len(t, generic["factories"], 3)

		decoded, err := Decode(&buf, "yaml")
		require.NoError(t, err)
		assert.Equal(t, p, decoded)
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, p, "json"))
		assert.True(t, json.Valid(buf.Bytes()))
		assert.Contains(t, buf.String(), `"root": "App"`)
		assert.Contains(t, buf.String(), `"kind": "conditional"`)
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, Encode(&bytes.Buffer{}, p, "toml"))
		_, err := Decode(&bytes.Buffer{}, "toml")
		assert.Error(t, err)
	})
}
