package mapping

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/starford/nomenclature/internal/parser"
	"github.com/starford/nomenclature/internal/storage"
)

// fileFormat is the on-disk layout of a model mapping:
//
//	model: model_a            # or a list of models
//	native_regions:
//	  - region_a: Model|A     # renamed
//	  - region_b              # kept as is
//	common_regions:
//	  - World:
//	    - region_a
//	    - region_b
//	exclude_regions:
//	  - region_c
type fileFormat struct {
	Model          stringList     `yaml:"model"`
	NativeRegions  []NativeRegion `yaml:"native_regions"`
	CommonRegions  []CommonRegion `yaml:"common_regions"`
	ExcludeRegions stringList     `yaml:"exclude_regions"`
}

type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return err
		}
		*l = out
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
}

// UnmarshalYAML accepts "name" or "name: rename".
func (n *NativeRegion) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*n = NativeRegion{Name: node.Value}
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 || node.Content[1].Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: native region must map one name to its rename", node.Line)
		}
		*n = NativeRegion{Name: node.Content[0].Value, Rename: node.Content[1].Value}
		return nil
	}
	return fmt.Errorf("line %d: invalid native region", node.Line)
}

// UnmarshalYAML accepts "name: [constituent, ...]".
func (c *CommonRegion) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("line %d: common region must map one name to its constituents", node.Line)
	}
	var constituents stringList
	if err := node.Content[1].Decode(&constituents); err != nil {
		return err
	}
	*c = CommonRegion{Name: node.Content[0].Value, Constituents: constituents}
	return nil
}

// Parse decodes and validates a mapping document. file is recorded for
// error reporting.
func Parse(data []byte, file string) (*ModelMapping, error) {
	var raw fileFormat
	if err := parser.Decode(data, &raw); err != nil {
		return nil, fmt.Errorf("mapping: %s: %w", file, err)
	}
	return New(ModelMapping{
		Models:         raw.Model,
		File:           file,
		NativeRegions:  raw.NativeRegions,
		CommonRegions:  raw.CommonRegions,
		ExcludeRegions: raw.ExcludeRegions,
	})
}

// LoadSet reads every YAML file under dir into a Set. Errors of all files
// are collected and returned joined.
func LoadSet(p storage.Provider, dir string, opts ...SetOption) (*Set, error) {
	files, err := p.List(dir)
	if err != nil {
		return nil, fmt.Errorf("mapping: load: %w", err)
	}
	s := NewSet(opts...)
	var errs []error
	for _, f := range files {
		data, err := p.Read(f.Path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m, err := Parse(data, f.Path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.Add(m); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}
