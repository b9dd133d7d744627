package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind is the primitive type of a field
type Kind string

const (
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindString Kind = "string"
	KindBool   Kind = "bool"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	switch k {
	case KindInt, KindFloat, KindString, KindBool:
		return true
	}
	return false
}

// Field is one named, typed column of an entity shape
type Field struct {
	Name     string `yaml:"name" json:"name"`
	Kind     Kind   `yaml:"type" json:"type"`
	Required bool   `yaml:"required" json:"required"`
}

// Shape describes one kind of record: a fixed, ordered set of fields
type Shape struct {
	Name   string  `yaml:"name" json:"name"`
	Fields []Field `yaml:"fields" json:"fields"`

	byName map[string]int
}

// Values holds typed field values keyed by field name.
// Values are int64, float64, string, bool, or nil for an absent optional field.
type Values map[string]any

// NewShape creates a shape and checks the descriptor is usable
func NewShape(name string, fields ...Field) (*Shape, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("shape %q has no fields", name)
	}

	s := &Shape{
		Name:   name,
		Fields: append([]Field(nil), fields...),
		byName: make(map[string]int, len(fields)),
	}

	for i, f := range s.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("shape %q: field %d has no name", name, i)
		}
		if !f.Kind.Valid() {
			return nil, fmt.Errorf("shape %q: field %q has unknown type %q", name, f.Name, f.Kind)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("shape %q: duplicate field %q", name, f.Name)
		}
		s.byName[f.Name] = i
	}

	return s, nil
}

// Names returns field names in declared order
func (s *Shape) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a field by its exact name
func (s *Shape) Field(name string) (Field, bool) {
	i, ok := s.indexOf(name)
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

func (s *Shape) indexOf(name string) (int, bool) {
	if s.byName == nil {
		s.byName = make(map[string]int, len(s.Fields))
		for i, f := range s.Fields {
			s.byName[f.Name] = i
		}
	}
	i, ok := s.byName[name]
	return i, ok
}

// CheckColumns verifies a table header against the shape.
// Unknown columns are rejected when strict is set; required fields must always be present.
func (s *Shape) CheckColumns(columns []string, strict bool) error {
	var errs FieldErrors
	seen := make(map[string]bool, len(columns))

	for _, col := range columns {
		if seen[col] {
			errs = append(errs, FieldError{Field: col, Reason: "duplicate column"})
			continue
		}
		seen[col] = true

		if _, ok := s.indexOf(col); !ok && strict {
			errs = append(errs, FieldError{Field: col, Reason: "unknown column"})
		}
	}

	for _, f := range s.Fields {
		if f.Required && !seen[f.Name] {
			errs = append(errs, FieldError{Field: f.Name, Reason: "missing required column"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Parse validates raw cell values and converts them to typed values.
// Cells for names outside the shape are ignored; header checks belong to CheckColumns.
func (s *Shape) Parse(raw map[string]string) (Values, error) {
	values := make(Values, len(s.Fields))
	var errs FieldErrors

	for _, f := range s.Fields {
		cell, present := raw[f.Name]
		if !present || cell == "" {
			if f.Required {
				errs = append(errs, FieldError{Field: f.Name, Reason: "missing required value"})
			}
			values[f.Name] = nil
			continue
		}

		v, err := parseCell(f.Kind, cell)
		if err != nil {
			errs = append(errs, FieldError{Field: f.Name, Value: cell, Reason: err.Error()})
			continue
		}
		values[f.Name] = v
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return values, nil
}

// Format renders typed values as cells in declared field order
func (s *Shape) Format(values Values) ([]string, error) {
	cells := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cell, err := formatCell(f.Kind, values[f.Name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		cells[i] = cell
	}
	return cells, nil
}

func parseCell(kind Kind, cell string) (any, error) {
	switch kind {
	case KindInt:
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil, errors.New("not an integer")
		}
		return n, nil
	case KindFloat:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, errors.New("not a number")
		}
		return f, nil
	case KindBool:
		b, err := strconv.ParseBool(cell)
		if err != nil {
			return nil, errors.New("not a boolean")
		}
		return b, nil
	case KindString:
		return cell, nil
	}
	return nil, fmt.Errorf("unknown type %q", kind)
}

func formatCell(kind Kind, v any) (string, error) {
	if v == nil {
		return "", nil
	}

	switch kind {
	case KindInt:
		if n, ok := v.(int64); ok {
			return strconv.FormatInt(n, 10), nil
		}
	case KindFloat:
		if f, ok := v.(float64); ok {
			return strconv.FormatFloat(f, 'g', -1, 64), nil
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b), nil
		}
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return "", fmt.Errorf("value %v (%T) does not match type %s", v, v, kind)
}
