package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wane/wane-sub001/internal/compiler"
	"github.com/wane/wane-sub001/internal/config"
	"github.com/wane/wane-sub001/internal/errors"
)

func newCheckCmd(a *app) *cobra.Command {
	var flags *StandardFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report every problem in the discovered components",
		Long: `Parse, build and diff every discovered component as its own root and
report all problems found, one per line as file:line:column.

The command exits with a non-zero status when any error is reported.

Examples:
  wane check
  wane check --no-color`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd, nil)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if details := config.ValidateConfigWithDetails(cfg); details.HasWarnings() && !flags.Quiet {
				fmt.Fprint(cmd.ErrOrStderr(), details.String())
			}

			reg, _, err := scan(ctx, cfg)
			if err != nil {
				return err
			}

			c := compiler.New(compiler.Options{Workers: cfg.Compile.Workers, Logger: logger})
			collector, err := c.Check(ctx, reg)
			if err != nil {
				return err
			}

			diagnostics := collector.GetDiagnostics()
			printDiagnostics(cmd.OutOrStdout(), diagnostics, !flags.NoColor)
			if collector.HasErrors() {
				return fmt.Errorf("check found %d problems in %d components", len(diagnostics), reg.Count())
			}
			if !flags.Quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "%d components ok\n", reg.Count())
			}
			return nil
		},
	}

	flags = AddStandardFlags(cmd, "output")
	return cmd
}

var severityColors = map[errors.ErrorSeverity]lipgloss.Color{
	errors.ErrorSeverityInfo:    lipgloss.Color("6"),
	errors.ErrorSeverityWarning: lipgloss.Color("3"),
	errors.ErrorSeverityError:   lipgloss.Color("1"),
	errors.ErrorSeverityFatal:   lipgloss.Color("9"),
}

func printDiagnostics(w io.Writer, diagnostics []errors.Diagnostic, color bool) {
	location := lipgloss.NewStyle().Bold(true)
	for _, d := range diagnostics {
		file := d.File
		if file == "" {
			file = d.Component
		}
		where := fmt.Sprintf("%s:%d:%d:", file, d.Line, d.Column)
		severity := d.Severity.String()
		if color {
			where = location.Render(where)
			severity = lipgloss.NewStyle().Foreground(severityColors[d.Severity]).Render(severity)
		}
		fmt.Fprintf(w, "%s %s: %s\n", where, severity, d.Message)
	}
}
