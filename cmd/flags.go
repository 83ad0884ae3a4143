package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// StandardFlags provides consistent flag definitions across commands
type StandardFlags struct {
	// Compile flags
	Root   string
	Output string
	Format *enumValue

	// Output flags
	NoColor bool
	Quiet   bool
}

// AddStandardFlags adds standard flags to a command
func AddStandardFlags(cmd *cobra.Command, flagTypes ...string) *StandardFlags {
	flags := &StandardFlags{}

	for _, flagType := range flagTypes {
		switch flagType {
		case "compile":
			addCompileFlags(cmd, flags)
		case "output":
			addOutputFlags(cmd, flags)
		}
	}

	return flags
}

func addCompileFlags(cmd *cobra.Command, flags *StandardFlags) {
	flags.Format = newEnumValue("", "yaml", "yml", "json")
	cmd.Flags().StringVarP(&flags.Root, "root", "r", "", "Root component, by name or tag")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "Write the model to this file instead of stdout")
	cmd.Flags().VarP(flags.Format, "format", "f", "Model format (yaml|json)")
}

func addOutputFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().BoolVar(&flags.NoColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress output")
}

// compileBindings maps configuration keys to the flags of addCompileFlags.
var compileBindings = map[string]string{
	"compile.root":   "root",
	"compile.output": "output",
	"compile.format": "format",
}

// enumValue is a string flag restricted to a fixed set of values.
type enumValue struct {
	value   string
	allowed []string
}

var _ pflag.Value = (*enumValue)(nil)

func newEnumValue(def string, allowed ...string) *enumValue {
	return &enumValue{value: def, allowed: allowed}
}

func (e *enumValue) String() string { return e.value }

func (e *enumValue) Set(val string) error {
	val = strings.ToLower(val)
	for _, a := range e.allowed {
		if a == val {
			if val == "yml" {
				val = "yaml"
			}
			e.value = val
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(e.allowed, ", "))
}

func (e *enumValue) Type() string { return "string" }
