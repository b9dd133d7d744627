package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles generic YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse imports a table from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*Table, error) {
	var table Table
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&table); err != nil {
		if err == io.EOF {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(table.Columns) == 0 {
		return nil, ErrNoHeader
	}

	return &table, nil
}

// Export exports a table to YAML
func (c *YAMLCodec) Export(t *Table, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(t); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
