// Package codec reads and writes tables in the supported file formats.
//
// A Table is the format-neutral form of persisted data: a header row and
// string cells. CSV is the persistence format of repositories; JSON and
// YAML are alternate encodings of the same table.
package codec

import (
	"fmt"
	"io"
)

// Table is a header plus rows of raw cells
type Table struct {
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// Importer interface for reading tables from various formats
type Importer interface {
	Parse(r io.Reader) (*Table, error)
	Format() string
}

// Exporter interface for writing tables to various formats
type Exporter interface {
	Export(t *Table, w io.Writer) error
	Format() string
}

// Codec both reads and writes one format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec registered for a format name
func ForFormat(format string) (Codec, error) {
	switch format {
	case "csv", "":
		return NewCSVCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}
