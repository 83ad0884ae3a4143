package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name          string
		setup         func()
		expectError   bool
		expectedPaths []string
	}{
		{
			name: "successful load with defaults",
			setup: func() {
				viper.Reset()
			},
			expectedPaths: []string{"./components"},
		},
		{
			name: "successful load with custom scan paths",
			setup: func() {
				viper.Reset()
				viper.Set("components.scan_paths", []string{"./custom", "./paths"})
			},
			expectedPaths: []string{"./custom", "./paths"},
		},
		{
			name: "invalid viper config",
			setup: func() {
				viper.Reset()
				viper.Set("compile.workers", "many")
			},
			expectError: true,
		},
		{
			name: "traversal in scan path",
			setup: func() {
				viper.Reset()
				viper.Set("components.scan_paths", []string{"../outside"})
			},
			expectError: true,
		},
		{
			name: "unknown output format",
			setup: func() {
				viper.Reset()
				viper.Set("compile.format", "xml")
			},
			expectError: true,
		},
		{
			name: "zero workers",
			setup: func() {
				viper.Reset()
				viper.Set("compile.workers", 0)
			},
			expectError: true,
		},
		{
			name: "unknown log level",
			setup: func() {
				viper.Reset()
				viper.Set("log.level", "verbose")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer viper.Reset()

			config, err := Load()
			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, config)
			assert.Equal(t, tt.expectedPaths, config.Components.ScanPaths)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"*_test.w.html"}, config.Components.ExcludePatterns)
	assert.Equal(t, DefaultRoot, config.Compile.Root)
	assert.Empty(t, config.Compile.Output)
	assert.Equal(t, FormatYAML, config.Compile.Format)
	assert.Equal(t, DefaultWorkers, config.Compile.Workers)
	assert.Equal(t, DefaultDebounce, config.Watch.Debounce)
	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".wane.yml")
	content := `
components:
  scan_paths: ["./ui"]
  exclude_patterns: []
compile:
  root: Shell
  format: json
  workers: 2
watch:
  debounce: 50ms
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	config, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"./ui"}, config.Components.ScanPaths)
	assert.Empty(t, config.Components.ExcludePatterns, "explicit empty list is kept")
	assert.Equal(t, "Shell", config.Compile.Root)
	assert.Equal(t, FormatJSON, config.Compile.Format)
	assert.Equal(t, 2, config.Compile.Workers)
	assert.Equal(t, 50*time.Millisecond, config.Watch.Debounce)
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("WANE_COMPILE_ROOT", "Shell")
	t.Setenv("WANE_WATCH_DEBOUNCE", "1s")

	v := viper.New()
	v.SetEnvPrefix("WANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about.
	require.NoError(t, v.BindEnv("compile.root"))
	require.NoError(t, v.BindEnv("watch.debounce"))

	config, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "Shell", config.Compile.Root)
	assert.Equal(t, time.Second, config.Watch.Debounce)
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"relative", "./components", false},
		{"nested", "ui/components", false},
		{"absolute", "/srv/components", false},
		{"empty", "", true},
		{"traversal", "../components", true},
		{"inner traversal", "ui/../../x", true},
		{"nul byte", "ui\x00x", true},
		{"shell metacharacter", "ui;rm", true},
		{"backtick", "ui`x`", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Components: ComponentsConfig{ScanPaths: []string{"./components"}},
			Compile:    CompileConfig{Root: "App", Format: FormatYAML, Workers: 1},
			Watch:      WatchConfig{Debounce: DefaultDebounce},
			Log:        LogConfig{Level: "warn", Format: "text"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"uppercase level", func(c *Config) { c.Log.Level = "DEBUG" }, ""},
		{"no scan paths", func(c *Config) { c.Components.ScanPaths = nil }, "no scan paths"},
		{"bad exclude", func(c *Config) { c.Components.ExcludePatterns = []string{"["} }, "invalid exclude pattern"},
		{"bad output", func(c *Config) { c.Compile.Output = "../model.yaml" }, "invalid output"},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, "negative debounce"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)
			err := validateConfig(config)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateConfigWithDetails(t *testing.T) {
	dir := t.TempDir()

	t.Run("clean config", func(t *testing.T) {
		result := ValidateConfigWithDetails(&Config{
			Components: ComponentsConfig{ScanPaths: []string{dir}, ExcludePatterns: []string{"*_test.w.html"}},
			Compile:    CompileConfig{Root: "App", Format: FormatJSON, Workers: 4},
			Watch:      WatchConfig{Debounce: DefaultDebounce},
			Log:        LogConfig{Level: "info", Format: "json"},
		})
		assert.True(t, result.Valid)
		assert.False(t, result.HasErrors())
		assert.False(t, result.HasWarnings(), result.String())
		assert.Empty(t, result.String())
	})

	t.Run("errors and warnings", func(t *testing.T) {
		result := ValidateConfigWithDetails(&Config{
			Components: ComponentsConfig{ScanPaths: []string{filepath.Join(dir, "missing")}},
			Compile:    CompileConfig{Format: "toml", Workers: 0},
			Watch:      WatchConfig{Debounce: time.Millisecond},
			Log:        LogConfig{Level: "loud", Format: "text"},
		})
		assert.False(t, result.Valid)

		var errFields, warnFields []string
		for _, e := range result.Errors {
			errFields = append(errFields, e.Field)
		}
		for _, w := range result.Warnings {
			warnFields = append(warnFields, w.Field)
		}
		assert.ElementsMatch(t, []string{"compile.root", "compile.format", "compile.workers", "log.level"}, errFields)
		assert.ElementsMatch(t, []string{"components.scan_paths", "components.exclude_patterns", "watch.debounce"}, warnFields)

		out := result.String()
		assert.Contains(t, out, "Validation Errors:")
		assert.Contains(t, out, "Validation Warnings:")
		assert.Contains(t, out, "Available levels: debug, info, warn, error")
	})
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Field: "compile.root", Message: "root component cannot be empty"}
	assert.Equal(t, "validation error in compile.root: root component cannot be empty", err.Error())
}
