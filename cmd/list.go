package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wane/wane-sub001/internal/registry"
)

// listEntry is the serialized form of one discovered component.
type listEntry struct {
	Name         string   `json:"name" yaml:"name"`
	Tag          string   `json:"tag" yaml:"tag"`
	FilePath     string   `json:"file_path" yaml:"file_path"`
	Metadata     string   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Style        string   `json:"style,omitempty" yaml:"style,omitempty"`
	Properties   []string `json:"properties,omitempty" yaml:"properties,omitempty"`
	Methods      []string `json:"methods,omitempty" yaml:"methods,omitempty"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

func newListCmd(a *app) *cobra.Command {
	var (
		format   = newEnumValue("table", "table", "json", "yaml", "yml")
		withDeps bool
		withMeta bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "List all discovered components",
		Long: `List all discovered components with their tag and files.

Examples:
  wane list                    # List all components in table format
  wane list -f json            # Output as JSON
  wane list -m                 # Include properties and methods
  wane list -d -f yaml         # Include dependencies, output as YAML`,
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

			reg, _, err := scan(ctx, cfg)
			if err != nil {
				// Log error but continue with the components found
				logger.Warn(ctx, err, "Component scan incomplete")
			}
			if withDeps {
				if err := reg.UpdateAllDependencies(); err != nil {
					logger.Warn(ctx, err, "Some templates failed to parse")
				}
			}

			components := reg.GetAll()
			out := cmd.OutOrStdout()
			if len(components) == 0 {
				fmt.Fprintln(out, "No components found.")
				return nil
			}

			entries := make([]listEntry, 0, len(components))
			for _, c := range components {
				entries = append(entries, newListEntry(c, withMeta, withDeps))
			}

			switch format.String() {
			case "json":
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(entries)
			case "yaml":
				encoder := yaml.NewEncoder(out)
				defer encoder.Close()
				return encoder.Encode(entries)
			default:
				return outputTable(out, entries, withMeta, withDeps)
			}
		},
	}

	cmd.Flags().VarP(format, "format", "f", "Output format (table|json|yaml)")
	cmd.Flags().BoolVarP(&withDeps, "with-deps", "d", false, "Include component dependencies")
	cmd.Flags().BoolVarP(&withMeta, "with-meta", "m", false, "Include properties and methods")
	return cmd
}

func newListEntry(c *registry.ComponentInfo, withMeta, withDeps bool) listEntry {
	entry := listEntry{
		Name:     c.Name,
		Tag:      c.Tag,
		FilePath: c.FilePath,
		Metadata: c.SourcePath,
		Style:    c.StylePath,
	}
	if withMeta && c.Metadata != nil {
		entry.Properties = c.Metadata.Properties()
		entry.Methods = c.Metadata.Methods()
	}
	if withDeps {
		entry.Dependencies = c.Dependencies
	}
	return entry
}

func outputTable(out io.Writer, entries []listEntry, withMeta, withDeps bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	header := []string{"NAME", "TAG", "FILE"}
	if withMeta {
		header = append(header, "PROPERTIES", "METHODS")
	}
	if withDeps {
		header = append(header, "DEPENDENCIES")
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	separator := make([]string, len(header))
	for i, h := range header {
		separator[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))

	for _, e := range entries {
		row := []string{e.Name, e.Tag, e.FilePath}
		if withMeta {
			row = append(row, strings.Join(e.Properties, ", "), strings.Join(e.Methods, ", "))
		}
		if withDeps {
			row = append(row, strings.Join(e.Dependencies, ", "))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	fmt.Fprintf(w, "\nTotal: %d components\n", len(entries))
	return w.Flush()
}
