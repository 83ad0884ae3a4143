// Package cmd provides the command-line interface for wane.
//
// Configuration System:
//
//	Settings are resolved from several sources with clear precedence:
//	1. Command-line flags (--root, --format, --log-level, ...) - highest priority
//	2. Individual environment variables (WANE_COMPILE_ROOT, WANE_LOG_LEVEL, ...)
//	3. Configuration file picked by --config, then WANE_CONFIG_FILE, then
//	   .wane.yml in the current directory - lowest priority
//
// Environment Variables:
//
//	WANE_CONFIG_FILE: Path to custom configuration file
//	WANE_COMPILE_ROOT: Override the root component
//	WANE_LOG_LEVEL: Override the log level
//	And more following the WANE_<SECTION>_<OPTION> pattern
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wane/wane-sub001/internal/config"
	"github.com/wane/wane-sub001/internal/logging"
	"github.com/wane/wane-sub001/internal/registry"
	"github.com/wane/wane-sub001/internal/scanner"
)

// app is the state shared by the commands of one invocation.
type app struct {
	cfgFile string
	viper   *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{viper: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "wane",
		Short: "A compiler for component templates",
		Long: `Wane compiles component templates into a static model of their views:
the factory tree of nested scopes, the bindings of every view and the
minimal set of values each view re-reads when its component changes.

Component Layout:
  counter.w.html      template
  counter.go          component struct, or
  counter.meta.yaml   manifest with properties, getters and methods
  counter.css         optional stylesheet

Quick Start:
  wane list                       List discovered components
  wane check                      Report every problem in the project
  wane compile --root App         Compile the App component to YAML
  wane watch -o build/app.yaml    Recompile on every change`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is .wane.yml, can also use WANE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newCompileCmd(a),
		newCheckCmd(a),
		newStyleCmd(a),
		newListCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

// initConfig points viper at the configuration file and the environment.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. WANE_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .wane.yml in current directory
func (a *app) initConfig(cmd *cobra.Command) error {
	v := a.viper
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else if envConfigFile := os.Getenv("WANE_CONFIG_FILE"); envConfigFile != "" {
		v.SetConfigFile(envConfigFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".wane")
	}

	v.SetEnvPrefix("WANE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.BindPFlag("log.level", cmd.Flag("log-level")); err != nil {
		return err
	}

	err := v.ReadInConfig()
	switch err.(type) {
	case nil:
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", v.ConfigFileUsed())
	case viper.ConfigFileNotFoundError:
	default:
		// An explicitly named file that is missing or malformed is an error.
		if a.cfgFile != "" || os.Getenv("WANE_CONFIG_FILE") != "" {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

// load binds the named command flags to their configuration keys and loads
// the configuration.
func (a *app) load(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	for key, name := range bindings {
		if flag := cmd.Flag(name); flag != nil {
			if err := a.viper.BindPFlag(key, flag); err != nil {
				return nil, err
			}
		}
	}
	cfg, err := config.LoadFrom(a.viper)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	}), nil
}

// scan registers every component found below the configured scan paths.
func scan(ctx context.Context, cfg *config.Config) (*registry.ComponentRegistry, *scanner.ComponentScanner, error) {
	reg := registry.NewComponentRegistry()
	s := scanner.NewComponentScanner(reg,
		scanner.WithExcludes(cfg.Components.ExcludePatterns...),
		scanner.WithWorkers(cfg.Compile.Workers),
	)
	if err := s.ScanDirectories(ctx, cfg.Components.ScanPaths); err != nil {
		return reg, s, err
	}
	return reg, s, nil
}
