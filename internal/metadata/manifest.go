package metadata

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML form of a component's metadata, used for
// components whose source is not Go.
//
//	name: Counter
//	properties: [value, step]
//	getters: [double]
//	methods:
//	  inc: {calls: [bump]}
//	  bump: {assigns: [value]}
type Manifest struct {
	Name       string            `yaml:"name"`
	Properties []string          `yaml:"properties"`
	Getters    []string          `yaml:"getters"`
	Methods    map[string]Method `yaml:"methods"`
}

// ParseManifest decodes a YAML manifest. Unknown keys are rejected.
func ParseManifest(r io.Reader) (*Info, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("manifest has no name")
	}
	return New(m.Name, m.Properties, m.Getters, m.Methods)
}

// ToManifest renders c back into its manifest form with direct edges
// replaced by transitive ones.
func ToManifest(c Component) Manifest {
	m := Manifest{
		Name:       c.Name(),
		Properties: c.Properties(),
		Getters:    c.Getters(),
		Methods:    make(map[string]Method),
	}
	for _, name := range c.Methods() {
		m.Methods[name] = Method{Calls: c.Reachable(name), Assigns: c.Mutates(name)}
	}
	return m
}
