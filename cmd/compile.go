package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wane/wane-sub001/internal/compiler"
	"github.com/wane/wane-sub001/internal/config"
	"github.com/wane/wane-sub001/internal/logging"
	"github.com/wane/wane-sub001/internal/model"
)

func newCompileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "compile [root]",
		Aliases: []string{"c"},
		Short:   "Compile a root component to its view model",
		Long: `Scan the configured component paths, compile the root component and
write the resulting model of factories, bindings, diffs and styles.

Examples:
  wane compile                    # Compile compile.root (default App)
  wane compile TodoList           # Compile another root
  wane compile -f json -o app.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set("root", args[0]); err != nil {
					return err
				}
			}
			cfg, err := a.load(cmd, compileBindings)
			if err != nil {
				return err
			}
			return runCompile(cmd, cfg)
		},
	}

	AddStandardFlags(cmd, "compile")
	return cmd
}

func runCompile(cmd *cobra.Command, cfg *config.Config) error {
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	reg, _, err := scan(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Debug(ctx, "Scanned components", "count", reg.Count())

	c := compiler.New(compiler.Options{Workers: cfg.Compile.Workers, Logger: logger})
	result, err := c.Compile(ctx, reg, cfg.Compile.Root)
	if err != nil {
		return err
	}
	return writeProgram(ctx, cmd.OutOrStdout(), cfg, model.Project(result), logger)
}

// writeProgram encodes p to the configured output file, or to out when no
// file is configured.
func writeProgram(ctx context.Context, out io.Writer, cfg *config.Config, p *model.Program, logger logging.Logger) error {
	if cfg.Compile.Output == "" {
		return model.Encode(out, p, cfg.Compile.Format)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Compile.Output), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	// Readers see either the old or the new model, never a partial one.
	tmp, err := os.CreateTemp(filepath.Dir(cfg.Compile.Output), ".wane-*")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := model.Encode(tmp, p, cfg.Compile.Format); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), cfg.Compile.Output); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	logger.Info(ctx, "Wrote model", "path", cfg.Compile.Output, "factories", len(p.Factories))
	return nil
}
