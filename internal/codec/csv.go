package codec

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var (
	// ErrNoHeader is returned when a table has no header row
	ErrNoHeader = errors.New("missing header row")

	// ErrInvalidUTF8 is returned for cells that are not valid UTF-8
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVCodec handles comma-separated tables.
// The first record is the header; rows may differ in width so callers can
// report the offending row themselves.
type CSVCodec struct{}

// NewCSVCodec creates a new CSV codec
func NewCSVCodec() *CSVCodec {
	return &CSVCodec{}
}

// Format returns the codec format identifier
func (c *CSVCodec) Format() string {
	return "csv"
}

// Parse reads a CSV table
func (c *CSVCodec) Parse(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV header: %w", err)
	}

	if err := checkUTF8(reader, header); err != nil {
		return nil, err
	}

	table := &Table{Columns: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		if err := checkUTF8(reader, record); err != nil {
			return nil, err
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}

// Export writes the table as CSV
func (c *CSVCodec) Export(t *Table, w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}

	return nil
}

func checkUTF8(reader *csv.Reader, record []string) error {
	for i, field := range record {
		if !utf8.ValidString(field) {
			line, _ := reader.FieldPos(i)
			return fmt.Errorf("line %d: %w", line, ErrInvalidUTF8)
		}
	}
	return nil
}
