package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// ============================================================================
// Identifier Helpers
// ============================================================================

// dataTableName maps a stored table name to its SQLite data table
func dataTableName(name string) string {
	return "data_" + name
}

// quoteIdent quotes a SQLite identifier, doubling embedded quotes
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnList returns the positional cell columns c0..c(n-1)
func columnList(n int) string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = fmt.Sprintf("c%d", i)
	}
	return strings.Join(cols, ", ")
}

// columnDefs declares n positional TEXT columns
func columnDefs(n int) string {
	defs := make([]string, n)
	for i := range defs {
		defs[i] = fmt.Sprintf("c%d TEXT NOT NULL", i)
	}
	return strings.Join(defs, ", ")
}

// placeholders returns n comma-separated bind parameters
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// rowArgs builds insert arguments: row number then cells
func rowArgs(i int, row []string) []any {
	args := make([]any, 0, len(row)+1)
	args = append(args, i)
	for _, cell := range row {
		args = append(args, cell)
	}
	return args
}

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// marshalColumns encodes a header for the catalog
func marshalColumns(columns []string) (string, error) {
	data, err := json.Marshal(columns)
	if err != nil {
		return "", fmt.Errorf("failed to marshal columns: %w", err)
	}
	return string(data), nil
}

// unmarshalColumns decodes a catalog header
func unmarshalColumns(ns sql.NullString) ([]string, error) {
	if !ns.Valid || ns.String == "" {
		return nil, fmt.Errorf("catalog entry has no columns")
	}
	var columns []string
	if err := json.Unmarshal([]byte(ns.String), &columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
	}
	return columns, nil
}
