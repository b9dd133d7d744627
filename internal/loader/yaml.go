// Package loader reads entity shape definitions from YAML.
//
//	shapes:
//	  album:
//	    fields:
//	      - {name: id, type: int}
//	      - {name: name, type: string}
//	      - {name: rating, type: float, required: false}
//
// Fields are required unless marked otherwise.
package loader

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"tabula/internal/domain"
)

// ShapesYAML represents the YAML file structure
type ShapesYAML struct {
	Shapes map[string]*ShapeYAML `yaml:"shapes"`
}

// ShapeYAML represents one shape definition
type ShapeYAML struct {
	Description string      `yaml:"description,omitempty"`
	Fields      []FieldYAML `yaml:"fields"`
}

// FieldYAML represents a field in YAML format
type FieldYAML struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required *bool  `yaml:"required,omitempty"`
}

// Shapes is a set of named shapes
type Shapes map[string]*domain.Shape

// Get returns the named shape
func (s Shapes) Get(name string) (*domain.Shape, error) {
	shape, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("unknown shape %q (known: %s)", name, strings.Join(s.Names(), ", "))
	}
	return shape, nil
}

// Names returns the shape names in sorted order
func (s Shapes) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// typeAliases maps accepted spellings to kinds
var typeAliases = map[string]domain.Kind{
	"int":     domain.KindInt,
	"integer": domain.KindInt,
	"float":   domain.KindFloat,
	"number":  domain.KindFloat,
	"string":  domain.KindString,
	"str":     domain.KindString,
	"bool":    domain.KindBool,
	"boolean": domain.KindBool,
}

// LoadYAML loads shapes from a YAML file
func LoadYAML(path string) (Shapes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseYAML(data)
}

// ParseYAML parses shapes from YAML bytes
func ParseYAML(data []byte) (Shapes, error) {
	var yamlData ShapesYAML
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(yamlData.Shapes) == 0 {
		return nil, fmt.Errorf("no shapes defined")
	}

	return convertYAMLToShapes(&yamlData)
}

func convertYAMLToShapes(y *ShapesYAML) (Shapes, error) {
	shapes := make(Shapes, len(y.Shapes))

	for name, sy := range y.Shapes {
		if sy == nil {
			return nil, fmt.Errorf("shape %q has no fields", name)
		}

		fields := make([]domain.Field, 0, len(sy.Fields))
		for _, fy := range sy.Fields {
			kind, ok := typeAliases[strings.ToLower(fy.Type)]
			if !ok {
				return nil, fmt.Errorf("shape %q: field %q has unknown type %q", name, fy.Name, fy.Type)
			}

			// Required unless stated otherwise
			required := fy.Required == nil || *fy.Required

			fields = append(fields, domain.Field{
				Name:     fy.Name,
				Kind:     kind,
				Required: required,
			})
		}

		shape, err := domain.NewShape(name, fields...)
		if err != nil {
			return nil, err
		}
		shapes[name] = shape
	}

	return shapes, nil
}
