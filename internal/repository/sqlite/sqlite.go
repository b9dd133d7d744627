// Package sqlite stores repository tables in SQLite.
//
// Each stored table keeps its cells in a data table with positional TEXT
// columns, and its real header in the tabula_tables catalog, so any CSV
// header (including empty or duplicate-looking labels) survives a snapshot
// unchanged.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tabula/internal/codec"
)

// ErrTableNotFound is returned when no table is stored under a name
var ErrTableNotFound = errors.New("table not found")

// TableInfo describes a stored table
type TableInfo struct {
	Name      string
	Columns   []string
	Rows      int
	UpdatedAt time.Time
}

// Store keeps named tables in a SQLite database
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the SQLite database at dbPath
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tabula_tables (
		name TEXT PRIMARY KEY,
		columns JSON NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// WriteTable replaces the table stored under name in a single transaction
func (s *Store) WriteTable(ctx context.Context, name string, t *codec.Table) error {
	if err := validateName(name); err != nil {
		return err
	}
	if len(t.Columns) == 0 {
		return codec.ErrNoHeader
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, header has %d", i+1, len(row), len(t.Columns))
		}
	}

	columns, err := marshalColumns(t.Columns)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	dataTable := quoteIdent(dataTableName(name))
	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+dataTable); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE %s (row INTEGER PRIMARY KEY, %s)`, dataTable, columnDefs(len(t.Columns)),
	)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (row, %s) VALUES (?, %s)`,
		dataTable, columnList(len(t.Columns)), placeholders(len(t.Columns)),
	))
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		if _, err := stmt.ExecContext(ctx, rowArgs(i, row)...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i+1, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tabula_tables (name, columns, row_count, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			columns = excluded.columns,
			row_count = excluded.row_count,
			updated_at = excluded.updated_at
	`, name, columns, len(t.Rows), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to update catalog: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ReadTable returns the table stored under name, rows in their written order
func (s *Store) ReadTable(ctx context.Context, name string) (*codec.Table, error) {
	var columnsJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT columns FROM tabula_tables WHERE name = ?`, name,
	).Scan(&columnsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}

	columns, err := unmarshalColumns(columnsJSON)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY row`, columnList(len(columns)), quoteIdent(dataTableName(name)),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", name, err)
	}
	defer rows.Close()

	table := &codec.Table{Columns: columns, Rows: [][]string{}}
	for rows.Next() {
		cells := make([]sql.NullString, len(columns))
		dest := make([]any, len(cells))
		for i := range cells {
			dest[i] = &cells[i]
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make([]string, len(cells))
		for i, c := range cells {
			row[i] = nullToString(c)
		}
		table.Rows = append(table.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table %s: %w", name, err)
	}

	return table, nil
}

// Tables lists stored tables by name
func (s *Store) Tables(ctx context.Context) ([]TableInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, columns, row_count, updated_at FROM tabula_tables ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var tables []TableInfo
	for rows.Next() {
		var (
			info      TableInfo
			columns   sql.NullString
			updatedAt int64
		)
		if err := rows.Scan(&info.Name, &columns, &info.Rows, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		if info.Columns, err = unmarshalColumns(columns); err != nil {
			return nil, err
		}
		info.UpdatedAt = time.Unix(updatedAt, 0)
		tables = append(tables, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog: %w", err)
	}

	return tables, nil
}

// DropTable removes the table stored under name
func (s *Store) DropTable(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM tabula_tables WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete catalog entry: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+quoteIdent(dataTableName(name))); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}

	return tx.Commit()
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func validateName(name string) error {
	if name == "" {
		return errors.New("table name is empty")
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("table name %q contains NUL", name)
	}
	return nil
}
