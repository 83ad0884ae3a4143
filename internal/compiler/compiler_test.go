package compiler

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wane/wane-sub001/internal/errors"
	"github.com/wane/wane-sub001/internal/factory"
	"github.com/wane/wane-sub001/internal/metadata"
	"github.com/wane/wane-sub001/internal/registry"
	"github.com/wane/wane-sub001/internal/template"
)

func todoRegistry(t *testing.T) *registry.ComponentRegistry {
	t.Helper()
	reg := registry.NewComponentRegistry()
	reg.Register(&registry.ComponentInfo{
		Name:     "App",
		FilePath: "/c/app.w.html",
		Template: `<ul><todo-item [label]="title"/></ul><button (click)="inc()">{{ count }}</button>`,
		Style:    `:host { display: block }`,
		Hash:     "app1",
		Metadata: metadata.MustNew("App", []string{"title", "count"}, nil, map[string]metadata.Method{
			"inc": {Assigns: []string{"count"}},
		}),
	})
	reg.Register(&registry.ComponentInfo{
		Name:     "TodoItem",
		FilePath: "/c/todo_item.w.html",
		Template: `<li>{{ label }}</li>`,
		Style:    `li { color: red }`,
		Hash:     "item1",
		Metadata: metadata.MustNew("TodoItem", []string{"label"}, nil, nil),
	})
	reg.Register(&registry.ComponentInfo{
		Name:     "Unused",
		FilePath: "/c/unused.w.html",
		Template: `<p></p>`,
		Style:    `p { margin: 0 }`,
		Hash:     "unused1",
		Metadata: metadata.MustNew("Unused", nil, nil, nil),
	})
	return reg
}

func TestCompile(t *testing.T) {
	reg := todoRegistry(t)
	c := New(Options{Workers: 2})

	result, err := c.Compile(context.Background(), reg, "App")
	require.NoError(t, err)

	assert.Equal(t, "App", result.Root)
	factories := result.Tree.Factories()
	require.Len(t, factories, 2)
	assert.Equal(t, "App#0", factories[0].String())
	assert.Equal(t, "TodoItem#1", factories[1].String())
	assert.Equal(t, factory.KindComponent, factories[1].Kind())

	root := result.Diffs.For(result.Tree.Root())
	require.NotNil(t, root)
	assert.NotEmpty(t, root.DOMIndexes(), "count is assigned by inc")

	// Style ids continue after the factory ids; unused components get none.
	require.Len(t, result.Styles, 2)
	assert.Equal(t, Style{Component: "App", Tag: "w-app", ID: 2, Attribute: "data-w-2", CSS: "w-app{display:block}"}, result.Styles[0])
	assert.Equal(t, Style{Component: "TodoItem", Tag: "todo-item", ID: 3, Attribute: "data-w-3", CSS: "li[data-w-3]{color:red}"}, result.Styles[1])

	assert.Equal(t, []string{"TodoItem"}, mustGet(t, reg, "App").Dependencies)
}

func mustGet(t *testing.T, reg *registry.ComponentRegistry, name string) *registry.ComponentInfo {
	t.Helper()
	ci, ok := reg.Get(name)
	require.True(t, ok)
	return ci
}

func TestCompileByTag(t *testing.T) {
	result, err := New(Options{}).Compile(context.Background(), todoRegistry(t), "todo-item")
	require.NoError(t, err)
	assert.Equal(t, "TodoItem", result.Root)
	require.Len(t, result.Styles, 1)
	assert.Equal(t, 1, result.Styles[0].ID)
}

func TestCompileErrors(t *testing.T) {
	t.Run("unknown root", func(t *testing.T) {
		_, err := New(Options{}).Compile(context.Background(), todoRegistry(t), "Missing")
		assert.True(t, errors.HasErrorCode(err, errors.CodeUnknownComponent), "%v", err)
	})

	t.Run("parse error carries file", func(t *testing.T) {
		reg := todoRegistry(t)
		info := mustGet(t, reg, "TodoItem")
		reg.Register(&registry.ComponentInfo{Name: "TodoItem", FilePath: info.FilePath, Template: "<li>", Metadata: info.Metadata})

		_, err := New(Options{}).Compile(context.Background(), reg, "App")
		var pe *errors.ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "/c/todo_item.w.html", pe.File)
	})

	t.Run("usage cycle", func(t *testing.T) {
		reg := registry.NewComponentRegistry()
		reg.Register(&registry.ComponentInfo{Name: "A", Template: `<B/>`, Metadata: metadata.MustNew("A", nil, nil, nil)})
		reg.Register(&registry.ComponentInfo{Name: "B", Template: `<A/>`, Metadata: metadata.MustNew("B", nil, nil, nil)})

		_, err := New(Options{}).Compile(context.Background(), reg, "A")
		require.Error(t, err)
		assert.True(t, errors.HasErrorCode(err, errors.CodeRecursiveComponent))
		assert.Contains(t, err.Error(), "A -> B -> A")
	})

	t.Run("unresolved reference", func(t *testing.T) {
		reg := registry.NewComponentRegistry()
		reg.Register(&registry.ComponentInfo{Name: "App", Template: `{{ missing }}`, Metadata: metadata.MustNew("App", []string{"present"}, nil, nil)})

		_, err := New(Options{}).Compile(context.Background(), reg, "App")
		var ue *errors.UnresolvedReferenceError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, "missing", ue.Name)
	})

	t.Run("invalid style", func(t *testing.T) {
		reg := todoRegistry(t)
		info := mustGet(t, reg, "TodoItem")
		info.Style = "li { color: red"
		info.StylePath = "/c/todo_item.css"

		_, err := New(Options{}).Compile(context.Background(), reg, "App")
		require.Error(t, err)
		assert.True(t, errors.HasErrorCode(err, errors.CodeInvalidStyle))
		var we *errors.WaneError
		require.ErrorAs(t, err, &we)
		assert.Equal(t, "/c/todo_item.css", we.FilePath)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(Options{}).Compile(ctx, todoRegistry(t), "App")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCompileUsesParseCache(t *testing.T) {
	reg := todoRegistry(t)
	cache := NewParseCache(16)
	c := New(Options{Cache: cache})

	_, err := c.Compile(context.Background(), reg, "App")
	require.NoError(t, err)
	assert.Equal(t, 3, cache.Len())

	_, err = c.Compile(context.Background(), reg, "App")
	require.NoError(t, err)

	m := c.Metrics()
	assert.Equal(t, int64(2), m.TotalCompiles)
	assert.Equal(t, int64(2), m.SuccessfulCompiles)
	assert.Equal(t, int64(3), m.Parsed)
	assert.Equal(t, int64(3), m.CacheHits)
	assert.InDelta(t, 50.0, m.GetCacheHitRate(), 0.001)

	// Editing a template changes its hash and forces a reparse.
	info := mustGet(t, reg, "TodoItem")
	reg.Register(&registry.ComponentInfo{
		Name:     "TodoItem",
		Template: `<li class="x">{{ label }}</li>`,
		Hash:     "item2",
		Metadata: info.Metadata,
	})
	_, err = c.Compile(context.Background(), reg, "App")
	require.NoError(t, err)
	assert.Equal(t, int64(4), c.Metrics().Parsed)
}

func TestCheck(t *testing.T) {
	reg := todoRegistry(t)
	reg.Register(&registry.ComponentInfo{
		Name:     "Broken",
		FilePath: "/c/broken.w.html",
		Template: "<div>\n  <span>{{ }}</span>\n</div>",
		Metadata: metadata.MustNew("Broken", nil, nil, nil),
	})
	reg.Register(&registry.ComponentInfo{
		Name:     "Shell",
		FilePath: "/c/shell.w.html",
		Template: `<Broken/>`,
		Metadata: metadata.MustNew("Shell", nil, nil, nil),
	})
	reg.Register(&registry.ComponentInfo{
		Name:      "Typo",
		FilePath:  "/c/typo.w.html",
		Template:  `{{ lable }}`,
		Style:     `p {`,
		StylePath: "/c/typo.css",
		Metadata:  metadata.MustNew("Typo", []string{"label"}, nil, nil),
	})

	collector, err := New(Options{}).Check(context.Background(), reg)
	require.NoError(t, err)
	require.True(t, collector.HasErrors())

	broken := collector.GetDiagnosticsByComponent("Broken")
	require.Len(t, broken, 1)
	assert.Equal(t, 2, broken[0].Line)
	assert.Equal(t, 9, broken[0].Column)
	assert.Equal(t, "/c/broken.w.html", broken[0].File)

	assert.Empty(t, collector.GetDiagnosticsByComponent("Shell"), "dependents of a broken template are not built")
	assert.Empty(t, collector.GetDiagnosticsByComponent("App"))
	assert.Empty(t, collector.GetDiagnosticsByComponent("TodoItem"))

	typo := collector.GetDiagnosticsByComponent("Typo")
	require.Len(t, typo, 2)
	files := []string{typo[0].File, typo[1].File}
	assert.ElementsMatch(t, []string{"/c/typo.css", "/c/typo.w.html"}, files)
}

func TestCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).Check(ctx, todoRegistry(t))
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestParseCache(t *testing.T) {
	cache := NewParseCache(2)
	a := []*template.Node{}
	b := []*template.Node{}

	cache.Set("A", "h1", a)
	cache.Set("B", "h1", b)
	cache.Set("NoHash", "", b)
	assert.Equal(t, 2, cache.Len())

	_, ok := cache.Get("A", "h1")
	assert.True(t, ok)
	_, ok = cache.Get("A", "h2")
	assert.False(t, ok, "stale hash misses")

	// A was used more recently, so B is evicted.
	cache.Set("C", "h1", a)
	_, ok = cache.Get("B", "h1")
	assert.False(t, ok)
	_, ok = cache.Get("C", "h1")
	assert.True(t, ok)

	cache.Remove("C")
	assert.Equal(t, 1, cache.Len())

	hits, misses, evictions := cache.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(2), misses)
	assert.Equal(t, int64(1), evictions)
}

func TestMetricsReset(t *testing.T) {
	var m Metrics
	m.record(10, 2, 0, nil)
	m.record(30, 0, 2, stderrors.New("x"))

	s := m.GetSnapshot()
	assert.Equal(t, int64(2), s.TotalCompiles)
	assert.Equal(t, int64(1), s.FailedCompiles)
	assert.Equal(t, int64(20), int64(s.AverageDuration))

	m.Reset()
	assert.Equal(t, int64(0), m.GetSnapshot().TotalCompiles)
	assert.Equal(t, 0.0, m.GetCacheHitRate())
}
