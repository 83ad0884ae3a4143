package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wane/wane-sub001/internal/registry"
	"github.com/wane/wane-sub001/internal/scanner"
	"github.com/wane/wane-sub001/internal/style"
)

func newStyleCmd(a *app) *cobra.Command {
	var (
		tag string
		id  int
	)

	cmd := &cobra.Command{
		Use:   "style <file.css>",
		Short: "Encapsulate a stylesheet",
		Long: `Scope a stylesheet to one component and print the minified result.
Selectors naming a discovered component are rewritten to its tag.

The host tag defaults to the tag of the component named after the file.

Examples:
  wane style components/todo_item.css
  wane style app.css --tag w-app --id 3`,
		Args: cobra.ExactArgs(1),
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

			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading stylesheet: %w", err)
			}
			if tag == "" {
				stem := strings.TrimSuffix(filepath.Base(args[0]), scanner.StyleExt)
				tag = registry.TagFor(registry.NameForTag(strings.ReplaceAll(stem, "_", "-")))
			}

			reg, _, err := scan(ctx, cfg)
			if err != nil {
				logger.Warn(ctx, err, "Component scan incomplete, child selectors resolve against the components found")
			}

			css, err := style.Encapsulate(string(src), tag, id, reg)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), css)
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Host tag the :host selector is rewritten to")
	cmd.Flags().IntVar(&id, "id", 0, "Scoping id of the data-w-<id> attribute")
	return cmd
}
