package outline

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads an outline from YAML:
//
//	title: Annual Report
//	sections:
//	  - title: Overview
//	    children:
//	      - title: Key Figures
//	        output: key-figures
func LoadYAML(r io.Reader) (*Outline, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var o Outline
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse outline yaml: %w", err)
	}
	if len(o.Entries) == 0 {
		return nil, fmt.Errorf("outline has no sections")
	}
	if err := o.finish(); err != nil {
		return nil, err
	}
	return &o, nil
}
