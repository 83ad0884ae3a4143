package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wane/wane-sub001/internal/config"
	"github.com/wane/wane-sub001/internal/errors"
	"github.com/wane/wane-sub001/internal/logging"
	"github.com/wane/wane-sub001/internal/model"
	"github.com/wane/wane-sub001/internal/version"
	"github.com/wane/wane-sub001/internal/watcher"
)

var todoFiles = map[string]string{
	"app.w.html":    `<ul><todo-item [label]="title"/></ul><button (click)="inc()">{{ count }}</button>`,
	"app.meta.yaml": "name: App\nproperties: [title, count]\nmethods:\n  inc:\n    assigns: [count]\n",
	"app.css":       ":host { display: block }",

	"todo_item.w.html":    `<li>{{ label }}</li>`,
	"todo_item.meta.yaml": "name: TodoItem\nproperties: [label]\n",
	"todo_item.css":       "li { color: red }",
}

// project writes the components into a temporary directory together with a
// config file and returns the config path and the components directory.
func project(t *testing.T, files map[string]string, extraConfig string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	components := filepath.Join(dir, "components")
	for name, content := range files {
		path := filepath.Join(components, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := "components:\n  scan_paths: [" + components + "]\nlog:\n  level: error\n" + extraConfig
	cfgPath := filepath.Join(dir, ".wane.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath, components
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCompileCommand(t *testing.T) {
	cfgPath, _ := project(t, todoFiles, "")

	stdout, stderr, err := execute(t, "--config", cfgPath, "compile")
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "Using config file:")

	p, err := model.Decode(strings.NewReader(stdout), "yaml")
	require.NoError(t, err)
	assert.Equal(t, "App", p.Root)
	require.Len(t, p.Factories, 2)
	assert.Equal(t, "TodoItem", p.Factories[1].Name)
	require.Len(t, p.Styles, 2)
	assert.Equal(t, "li[data-w-3]{color:red}", p.Styles[1].CSS)
}

func TestCompileCommandRoot(t *testing.T) {
	cfgPath, _ := project(t, todoFiles, "compile:\n  root: TodoItem\n")

	t.Run("from config", func(t *testing.T) {
		stdout, _, err := execute(t, "--config", cfgPath, "compile")
		require.NoError(t, err)
		assert.Contains(t, stdout, "root: TodoItem\n")
	})

	t.Run("flag overrides config", func(t *testing.T) {
		stdout, _, err := execute(t, "--config", cfgPath, "compile", "--root", "App")
		require.NoError(t, err)
		assert.Contains(t, stdout, "root: App\n")
	})

	t.Run("positional by tag", func(t *testing.T) {
		stdout, _, err := execute(t, "--config", cfgPath, "compile", "w-app")
		require.NoError(t, err)
		assert.Contains(t, stdout, "root: App\n")
	})

	t.Run("environment overrides config", func(t *testing.T) {
		t.Setenv("WANE_COMPILE_ROOT", "App")
		stdout, _, err := execute(t, "--config", cfgPath, "compile")
		require.NoError(t, err)
		assert.Contains(t, stdout, "root: App\n")
	})
}

func TestCompileCommandJSONToFile(t *testing.T) {
	cfgPath, _ := project(t, todoFiles, "")
	out := filepath.Join(filepath.Dir(cfgPath), "build", "app.json")

	stdout, _, err := execute(t, "--config", cfgPath, "compile", "-f", "json", "-o", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	p, err := model.Decode(bytes.NewReader(data), "json")
	require.NoError(t, err)
	assert.Equal(t, "App", p.Root)

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file is left behind")
}

func TestCompileCommandErrors(t *testing.T) {
	cfgPath, _ := project(t, todoFiles, "")

	t.Run("unknown root", func(t *testing.T) {
		_, _, err := execute(t, "--config", cfgPath, "compile", "Missing")
		require.Error(t, err)
		assert.True(t, errors.HasErrorCode(err, errors.CodeUnknownComponent), "%v", err)
	})

	t.Run("bad format", func(t *testing.T) {
		_, _, err := execute(t, "--config", cfgPath, "compile", "-f", "toml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be one of")
	})

	t.Run("bad log level", func(t *testing.T) {
		_, _, err := execute(t, "--config", cfgPath, "-l", "loud", "compile")
		require.Error(t, err)
	})

	t.Run("missing config file", func(t *testing.T) {
		_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "none.yml"), "compile")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading config file")
	})

	t.Run("missing scan path", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ".wane.yml")
		require.NoError(t, os.WriteFile(path, []byte("components:\n  scan_paths: ["+filepath.Join(dir, "nope")+"]\n"), 0o644))
		_, _, err := execute(t, "--config", path, "compile")
		require.Error(t, err)
	})
}

func TestCheckCommand(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		cfgPath, _ := project(t, todoFiles, "")
		stdout, _, err := execute(t, "--config", cfgPath, "check")
		require.NoError(t, err)
		assert.Equal(t, "2 components ok\n", stdout)
	})

	t.Run("quiet", func(t *testing.T) {
		cfgPath, _ := project(t, todoFiles, "")
		stdout, _, err := execute(t, "--config", cfgPath, "check", "-q")
		require.NoError(t, err)
		assert.Empty(t, stdout)
	})

	t.Run("config warnings", func(t *testing.T) {
		cfgPath, _ := project(t, todoFiles, "compile:\n  workers: 100\n")
		_, stderr, err := execute(t, "--config", cfgPath, "check")
		require.NoError(t, err)
		assert.Contains(t, stderr, "Validation Warnings:")
		assert.Contains(t, stderr, "compile.workers")
	})

	t.Run("problems", func(t *testing.T) {
		files := map[string]string{
			"broken.w.html":    "<div>\n  <span>{{ }}</span>\n</div>",
			"broken.meta.yaml": "name: Broken\n",
		}
		for k, v := range todoFiles {
			files[k] = v
		}
		cfgPath, components := project(t, files, "")

		stdout, _, err := execute(t, "--config", cfgPath, "check", "--no-color")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 problems in 3 components")
		assert.Contains(t, stdout, filepath.Join(components, "broken.w.html")+":2:9: error: ")
	})
}

func TestStyleCommand(t *testing.T) {
	cfgPath, components := project(t, todoFiles, "")

	t.Run("default tag", func(t *testing.T) {
		stdout, _, err := execute(t, "--config", cfgPath, "style", filepath.Join(components, "todo_item.css"), "--id", "3")
		require.NoError(t, err)
		assert.Equal(t, "li[data-w-3]{color:red}\n", stdout)
	})

	t.Run("host", func(t *testing.T) {
		stdout, _, err := execute(t, "--config", cfgPath, "style", filepath.Join(components, "app.css"))
		require.NoError(t, err)
		assert.Equal(t, "w-app{display:block}\n", stdout)
	})

	t.Run("explicit tag", func(t *testing.T) {
		stdout, _, err := execute(t, "--config", cfgPath, "style", filepath.Join(components, "app.css"), "--tag", "my-app")
		require.NoError(t, err)
		assert.Equal(t, "my-app{display:block}\n", stdout)
	})

	t.Run("invalid", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.css")
		require.NoError(t, os.WriteFile(bad, []byte("p {"), 0o644))
		_, _, err := execute(t, "--config", cfgPath, "style", bad)
		require.Error(t, err)
		assert.True(t, errors.HasErrorCode(err, errors.CodeInvalidStyle))
	})
}

func TestListCommand(t *testing.T) {
	cfgPath, components := project(t, todoFiles, "")

	t.Run("table", func(t *testing.T) {
		stdout, _, err := execute(t, "--config", cfgPath, "list", "-m")
		require.NoError(t, err)
		assert.Contains(t, stdout, "NAME")
		assert.Contains(t, stdout, "PROPERTIES")
		assert.Contains(t, stdout, "w-app")
		assert.Contains(t, stdout, "todo-item")
		assert.Contains(t, stdout, "count, title")
		assert.Contains(t, stdout, "Total: 2 components")
	})

	t.Run("json with dependencies", func(t *testing.T) {
		stdout, _, err := execute(t, "--config", cfgPath, "list", "-d", "-f", "json")
		require.NoError(t, err)

		var entries []listEntry
		require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, "App", entries[0].Name)
		assert.Equal(t, []string{"TodoItem"}, entries[0].Dependencies)
		assert.Equal(t, filepath.Join(components, "app.css"), entries[0].Style)
		assert.Equal(t, filepath.Join(components, "app.meta.yaml"), entries[0].Metadata)
	})

	t.Run("empty", func(t *testing.T) {
		cfgPath, _ := project(t, map[string]string{"README.md": "none"}, "")
		stdout, _, err := execute(t, "--config", cfgPath, "list")
		require.NoError(t, err)
		assert.Equal(t, "No components found.\n", stdout)
	})
}

func TestVersionCommand(t *testing.T) {
	t.Run("short", func(t *testing.T) {
		stdout, _, err := execute(t, "version", "--short")
		require.NoError(t, err)
		assert.Equal(t, version.GetVersion()+"\n", stdout)
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := execute(t, "version", "-f", "json")
		require.NoError(t, err)
		var fields map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(stdout), &fields))
		assert.Equal(t, version.GetVersion(), fields["version"])
		assert.Contains(t, fields, "is_release")
	})

	t.Run("yaml", func(t *testing.T) {
		stdout, _, err := execute(t, "version", "-f", "yaml")
		require.NoError(t, err)
		assert.Contains(t, stdout, "version: ")
		assert.Contains(t, stdout, "is_release: ")
	})

	t.Run("ignores config", func(t *testing.T) {
		_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "none.yml"), "version")
		assert.NoError(t, err)
	})
}

func TestWatchSession(t *testing.T) {
	cfgPath, components := project(t, todoFiles, "")
	out := filepath.Join(filepath.Dir(cfgPath), "app.yaml")
	cfg := &config.Config{
		Components: config.ComponentsConfig{ScanPaths: []string{components}},
		Compile:    config.CompileConfig{Root: "App", Format: config.FormatYAML, Output: out, Workers: 2},
	}
	ctx := context.Background()

	session, err := newWatchSession(ctx, cfg, logging.Discard(), &bytes.Buffer{})
	require.NoError(t, err)
	require.True(t, session.rebuild(ctx))
	assert.FileExists(t, out)
	assert.Equal(t, int64(2), session.compiler.Metrics().Parsed)

	item := filepath.Join(components, "todo_item.w.html")
	require.NoError(t, os.WriteFile(item, []byte(`<li class="done">{{ label }}</li>`), 0o644))
	changed := session.apply(ctx, []watcher.ChangeEvent{
		{Type: watcher.EventTypeModified, Path: item},
		{Type: watcher.EventTypeModified, Path: filepath.Join(components, "todo_item.css")},
		{Type: watcher.EventTypeModified, Path: filepath.Join(components, "notes.txt")},
	})
	assert.Equal(t, 1, changed)
	require.True(t, session.rebuild(ctx))

	m := session.compiler.Metrics()
	assert.Equal(t, int64(3), m.Parsed, "only the edited template is parsed again")
	assert.Equal(t, int64(1), m.CacheHits)

	// Removing the stylesheet drops the component's style.
	require.NoError(t, os.Remove(filepath.Join(components, "todo_item.css")))
	session.apply(ctx, []watcher.ChangeEvent{{Type: watcher.EventTypeDeleted, Path: filepath.Join(components, "todo_item.css")}})
	require.True(t, session.rebuild(ctx))
	f, err := os.Open(out)
	require.NoError(t, err)
	p, err := model.Decode(f, "yaml")
	require.NoError(t, f.Close())
	require.NoError(t, err)
	require.Len(t, p.Styles, 1)
	assert.Equal(t, "App", p.Styles[0].Component)

	// Removing the child leaves the previous model in place.
	require.NoError(t, os.Remove(item))
	session.apply(ctx, []watcher.ChangeEvent{{Type: watcher.EventTypeDeleted, Path: item}})
	_, ok := session.registry.Get("TodoItem")
	assert.False(t, ok)
	assert.False(t, session.rebuild(ctx))
	assert.FileExists(t, out)
}

func TestExcludeFilter(t *testing.T) {
	filter := excludeFilter([]string{"*_test.w.html", "draft_*"})
	assert.True(t, filter("/c/app.w.html"))
	assert.False(t, filter("/c/app_test.w.html"))
	assert.False(t, filter("/c/draft_card.css"))
}

func TestEnumValue(t *testing.T) {
	v := newEnumValue("", "yaml", "yml", "json")
	require.NoError(t, v.Set("JSON"))
	assert.Equal(t, "json", v.String())
	require.NoError(t, v.Set("yml"))
	assert.Equal(t, "yaml", v.String())
	assert.Error(t, v.Set("toml"))
	assert.Equal(t, "yaml", v.String())
}
