package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wane/wane-sub001/internal/version"
)

func newVersionCmd() *cobra.Command {
	var (
		format   = newEnumValue("text", "text", "json", "yaml", "yml")
		short    bool
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display version information for wane including:

- Semantic version number
- Git commit hash
- Build timestamp
- Go version used for compilation
- Target platform (OS/architecture)

Examples:
  wane version              # Show version and commit
  wane version --detailed   # Show detailed version info
  wane version -f json      # Output as JSON`,
		Args: cobra.NoArgs,
		// Version needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch format.String() {
			case "json":
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(versionFields())
			case "yaml":
				encoder := yaml.NewEncoder(out)
				defer encoder.Close()
				return encoder.Encode(versionFields())
			}

			switch {
			case short:
				fmt.Fprintln(out, version.GetVersion())
			case detailed:
				outputVersionDetailed(out)
			default:
				fmt.Fprintf(out, "wane %s\n", version.GetShortVersion())
			}
			return nil
		},
	}

	cmd.Flags().VarP(format, "format", "f", "Output format (text|json|yaml)")
	cmd.Flags().BoolVar(&short, "short", false, "Show the version number only")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Show detailed version information")
	return cmd
}

type versionOutput struct {
	version.BuildInfo `yaml:",inline"`
	IsRelease         bool `json:"is_release" yaml:"is_release"`
}

func versionFields() versionOutput {
	return versionOutput{BuildInfo: *version.GetBuildInfo(), IsRelease: version.IsRelease()}
}

func outputVersionDetailed(out io.Writer) {
	fmt.Fprintln(out, version.GetDetailedVersion())
	if version.IsRelease() {
		fmt.Fprintln(out, "Build type: release")
	} else {
		fmt.Fprintln(out, "Build type: development")
	}
}
