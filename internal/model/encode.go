package model

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Encode writes p to w as yaml or json.
func Encode(w io.Writer, p *Program, format string) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// Decode reads a Program written by Encode.
func Decode(r io.Reader, format string) (*Program, error) {
	var p Program
	switch format {
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	return &p, nil
}
