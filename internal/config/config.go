// Package config provides configuration management for wane using Viper
// for loading from files, environment variables and command-line flags.
//
// The configuration system supports a .wane.yml file, environment variable
// overrides with the WANE_ prefix and validation. It manages component
// discovery paths, compilation settings, the watch loop and logging.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Output formats of the compiled model.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Defaults applied by Load for unset values.
const (
	DefaultRoot     = "App"
	DefaultWorkers  = 4
	DefaultDebounce = 300 * time.Millisecond
	DefaultLevel    = "info"
	DefaultFormat   = "text"
)

type Config struct {
	Components ComponentsConfig `yaml:"components" mapstructure:"components"`
	Compile    CompileConfig    `yaml:"compile" mapstructure:"compile"`
	Watch      WatchConfig      `yaml:"watch" mapstructure:"watch"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

type ComponentsConfig struct {
	ScanPaths       []string `yaml:"scan_paths" mapstructure:"scan_paths"`
	ExcludePatterns []string `yaml:"exclude_patterns" mapstructure:"exclude_patterns"`
}

type CompileConfig struct {
	Root    string `yaml:"root" mapstructure:"root"`
	Output  string `yaml:"output" mapstructure:"output"`
	Format  string `yaml:"format" mapstructure:"format"`
	Workers int    `yaml:"workers" mapstructure:"workers"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v, applies defaults and validates
// the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Apply defaults for components scan paths only if not explicitly set
	if !v.IsSet("components.scan_paths") && len(config.Components.ScanPaths) == 0 {
		config.Components.ScanPaths = []string{"./components"}
	}
	if !v.IsSet("components.exclude_patterns") && len(config.Components.ExcludePatterns) == 0 {
		config.Components.ExcludePatterns = []string{"*_test.w.html"}
	}

	if config.Compile.Root == "" {
		config.Compile.Root = DefaultRoot
	}
	if config.Compile.Format == "" {
		config.Compile.Format = FormatYAML
	}
	if !v.IsSet("compile.workers") {
		config.Compile.Workers = DefaultWorkers
	}
	if !v.IsSet("watch.debounce") {
		config.Watch.Debounce = DefaultDebounce
	}
	if config.Log.Level == "" {
		config.Log.Level = DefaultLevel
	}
	if config.Log.Format == "" {
		config.Log.Format = DefaultFormat
	}

	// Validate configuration values
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateComponentsConfig(&config.Components); err != nil {
		return fmt.Errorf("components config: %w", err)
	}
	if err := validateCompileConfig(&config.Compile); err != nil {
		return fmt.Errorf("compile config: %w", err)
	}
	if config.Watch.Debounce < 0 {
		return fmt.Errorf("watch config: negative debounce %s", config.Watch.Debounce)
	}
	if err := validateLogConfig(&config.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	return nil
}

// validateComponentsConfig validates components configuration values
func validateComponentsConfig(config *ComponentsConfig) error {
	if len(config.ScanPaths) == 0 {
		return fmt.Errorf("no scan paths")
	}
	for _, path := range config.ScanPaths {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("invalid scan path '%s': %w", path, err)
		}
	}
	for _, pattern := range config.ExcludePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
	}
	return nil
}

func validateCompileConfig(config *CompileConfig) error {
	if !contains(Formats(), config.Format) {
		return fmt.Errorf("unknown format %q, expected one of %s", config.Format, strings.Join(Formats(), ", "))
	}
	if config.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", config.Workers)
	}
	if config.Output != "" {
		if err := validatePath(config.Output); err != nil {
			return fmt.Errorf("invalid output '%s': %w", config.Output, err)
		}
	}
	return nil
}

func validateLogConfig(config *LogConfig) error {
	if !contains(Levels(), strings.ToLower(config.Level)) {
		return fmt.Errorf("unknown level %q, expected one of %s", config.Level, strings.Join(Levels(), ", "))
	}
	if config.Format != "text" && config.Format != "json" {
		return fmt.Errorf("unknown format %q, expected text or json", config.Format)
	}
	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains a NUL byte")
	}

	// Reject path traversal attempts
	cleanPath := filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return fmt.Errorf("path contains traversal: %s", path)
		}
	}

	// Reject dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

// Formats returns the supported output formats.
func Formats() []string { return []string{FormatYAML, FormatJSON} }

// Levels returns the supported log levels.
func Levels() []string { return []string{"debug", "info", "warn", "error"} }

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
