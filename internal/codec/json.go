package codec

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports a table from JSON
func (c *JSONCodec) Parse(r io.Reader) (*Table, error) {
	var table Table
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&table); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if len(table.Columns) == 0 {
		return nil, ErrNoHeader
	}

	return &table, nil
}

// Export exports a table to JSON
func (c *JSONCodec) Export(t *Table, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(t); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
