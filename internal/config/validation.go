package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("Validation Errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("Validation Warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

// ValidateConfigWithDetails performs comprehensive validation with detailed feedback
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateComponentsConfigDetails(&config.Components, result)
	validateCompileConfigDetails(&config.Compile, result)
	validateWatchConfigDetails(&config.Watch, result)
	validateLogConfigDetails(&config.Log, result)

	result.Valid = !result.HasErrors()
	return result
}

func validateComponentsConfigDetails(config *ComponentsConfig, result *ValidationResult) {
	if len(config.ScanPaths) == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "components.scan_paths",
			Value:   config.ScanPaths,
			Message: "no scan paths specified",
			Suggestions: []string{
				"Add './components' to scan the default directory",
			},
		})
	}

	for _, path := range config.ScanPaths {
		if err := validatePath(path); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "components.scan_paths",
				Value:   path,
				Message: err.Error(),
				Suggestions: []string{
					"Use paths relative to the project root",
					"Avoid parent directory references (..)",
				},
			})
			continue
		}
		if !pathExists(path) {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   "components.scan_paths",
				Value:   path,
				Message: fmt.Sprintf("scan path '%s' does not exist", path),
				Suggestions: []string{
					fmt.Sprintf("Create the directory with 'mkdir -p %s'", path),
				},
			})
		}
	}

	for _, pattern := range config.ExcludePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "components.exclude_patterns",
				Value:   pattern,
				Message: fmt.Sprintf("malformed pattern: %v", err),
				Suggestions: []string{
					"Patterns follow filepath.Match, e.g. '*_test.w.html'",
				},
			})
		}
	}
	if !containsPattern(config.ExcludePatterns, "_test.w.html") {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "components.exclude_patterns",
			Value:   config.ExcludePatterns,
			Message: "test templates are not excluded",
			Suggestions: []string{
				"Add '*_test.w.html' to exclude patterns",
			},
		})
	}
}

func validateCompileConfigDetails(config *CompileConfig, result *ValidationResult) {
	if config.Root == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "compile.root",
			Value:   config.Root,
			Message: "root component cannot be empty",
			Suggestions: []string{
				fmt.Sprintf("Use '%s' for the conventional entry component", DefaultRoot),
			},
		})
	}

	if !contains(Formats(), config.Format) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "compile.format",
			Value:   config.Format,
			Message: fmt.Sprintf("unknown format '%s'", config.Format),
			Suggestions: []string{
				"Available formats: " + strings.Join(Formats(), ", "),
			},
		})
	}

	if config.Workers < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "compile.workers",
			Value:   config.Workers,
			Message: "workers must be at least 1",
			Suggestions: []string{
				fmt.Sprintf("Use %d for the default parallelism", DefaultWorkers),
			},
		})
	} else if config.Workers > 64 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "compile.workers",
			Value:   config.Workers,
			Message: "more workers than files rarely helps",
		})
	}

	if config.Output != "" {
		if err := validatePath(config.Output); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "compile.output",
				Value:   config.Output,
				Message: err.Error(),
				Suggestions: []string{
					"Leave empty to write to standard output",
				},
			})
		}
	}
}

func validateWatchConfigDetails(config *WatchConfig, result *ValidationResult) {
	switch {
	case config.Debounce < 0:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "watch.debounce",
			Value:   config.Debounce,
			Message: "debounce cannot be negative",
		})
	case config.Debounce > 0 && config.Debounce < 10*time.Millisecond:
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "watch.debounce",
			Value:   config.Debounce,
			Message: "very short debounce recompiles on every editor write",
			Suggestions: []string{
				fmt.Sprintf("Use %s to coalesce bursts of events", DefaultDebounce),
			},
		})
	}
}

func validateLogConfigDetails(config *LogConfig, result *ValidationResult) {
	if !contains(Levels(), strings.ToLower(config.Level)) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "log.level",
			Value:   config.Level,
			Message: fmt.Sprintf("unknown level '%s'", config.Level),
			Suggestions: []string{
				"Available levels: " + strings.Join(Levels(), ", "),
			},
		})
	}
	if config.Format != "text" && config.Format != "json" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "log.format",
			Value:   config.Format,
			Message: fmt.Sprintf("unknown format '%s'", config.Format),
			Suggestions: []string{
				"Use 'text' for terminals and 'json' for log collectors",
			},
		})
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func containsPattern(slice []string, pattern string) bool {
	for _, s := range slice {
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}
