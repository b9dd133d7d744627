package repository

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"slices"
	"strconv"

	"tabula/internal/codec"
	"tabula/internal/domain"
)

// Repository holds validated records of one entity shape keyed by integer.
//
// Records enter only through a wholesale load, so every stored value has
// passed validation. A Repository is not safe for concurrent use.
type Repository[T any] struct {
	entity  domain.Entity[T]
	records map[int]T
	opts    options
}

// New creates an empty repository for the given entity
func New[T any](entity domain.Entity[T], opts ...Option) *Repository[T] {
	return &Repository[T]{
		entity:  entity,
		records: make(map[int]T),
		opts:    buildOptions(opts),
	}
}

// Load creates a repository populated from the CSV file at path.
// It returns *NotFoundError if path is not a regular file, *IOError on read
// or CSV syntax failures and *domain.ValidationError for the first bad row.
// No repository is returned unless every row validates.
func Load[T any](entity domain.Entity[T], path string, opts ...Option) (*Repository[T], error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, &IOError{Op: "stat", Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &NotFoundError{Path: path}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	table, err := codec.NewCSVCodec().Parse(f)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}

	repo, err := FromTable(entity, table, opts...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	repo.opts.logger.Debug("repository loaded",
		"path", path,
		"shape", entity.Shape().Name,
		"records", len(repo.records))

	return repo, nil
}

// FromTable creates a repository from an in-memory table.
// The first column is the key; the rest must match the entity shape.
func FromTable[T any](entity domain.Entity[T], table *codec.Table, opts ...Option) (*Repository[T], error) {
	repo := New(entity, opts...)
	shape := entity.Shape()

	if len(table.Columns) == 0 {
		return nil, &domain.ValidationError{Errors: domain.FieldErrors{{
			Field:  repo.opts.indexLabel,
			Reason: "missing index column",
		}}}
	}

	indexLabel := table.Columns[0]
	fields := table.Columns[1:]
	if err := shape.CheckColumns(fields, repo.opts.strict); err != nil {
		return nil, domain.NewValidationError(0, "", err)
	}

	records := make(map[int]T, len(table.Rows))
	raw := make(map[string]string, len(fields))

	for i, row := range table.Rows {
		rowNum := i + 1

		if err := checkWidth(table.Columns, row); err != nil {
			return nil, &domain.ValidationError{Row: rowNum, Errors: domain.FieldErrors{*err}}
		}

		key, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, &domain.ValidationError{Row: rowNum, Errors: domain.FieldErrors{{
				Field:  indexLabel,
				Value:  row[0],
				Reason: "key is not an integer",
			}}}
		}
		if _, dup := records[key]; dup {
			return nil, &domain.ValidationError{Row: rowNum, Errors: domain.FieldErrors{{
				Field:  indexLabel,
				Value:  row[0],
				Reason: "duplicate key",
			}}}
		}

		clear(raw)
		for j, col := range fields {
			raw[col] = row[j+1]
		}

		values, err := shape.Parse(raw)
		if err != nil {
			return nil, domain.NewValidationError(rowNum, "", err)
		}

		record, err := entity.Decode(values)
		if err != nil {
			return nil, domain.NewValidationError(rowNum, "", err)
		}

		records[key] = record
	}

	repo.records = records
	return repo, nil
}

func checkWidth(columns, row []string) *domain.FieldError {
	switch {
	case len(row) < len(columns):
		return &domain.FieldError{
			Field:  columns[len(row)],
			Reason: fmt.Sprintf("missing value (row has %d of %d columns)", len(row), len(columns)),
		}
	case len(row) > len(columns):
		return &domain.FieldError{
			Field:  fmt.Sprintf("column %d", len(columns)+1),
			Value:  row[len(columns)],
			Reason: "unexpected extra value",
		}
	}
	return nil
}

// Export writes every record to a CSV file at path, replacing it atomically
func (r *Repository[T]) Export(path string) error {
	table, err := r.Table()
	if err != nil {
		return err
	}

	err = writeFileAtomic(path, func(w io.Writer) error {
		return codec.NewCSVCodec().Export(table, w)
	})
	if err != nil {
		return err
	}

	r.opts.logger.Debug("repository exported",
		"path", path,
		"shape", r.entity.Shape().Name,
		"records", len(r.records))

	return nil
}

// WriteCSV writes the same bytes Export would to w
func (r *Repository[T]) WriteCSV(w io.Writer) error {
	table, err := r.Table()
	if err != nil {
		return err
	}
	return codec.NewCSVCodec().Export(table, w)
}

// Table renders the records as a table ordered by ascending key
func (r *Repository[T]) Table() (*codec.Table, error) {
	shape := r.entity.Shape()
	keys := r.Keys()

	table := &codec.Table{
		Columns: append([]string{r.opts.indexLabel}, shape.Names()...),
		Rows:    make([][]string, 0, len(keys)),
	}

	for _, key := range keys {
		values, err := r.entity.Encode(r.records[key])
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", key, err)
		}
		cells, err := shape.Format(values)
		if err != nil {
			return nil, fmt.Errorf("format record %d: %w", key, err)
		}
		table.Rows = append(table.Rows, append([]string{strconv.Itoa(key)}, cells...))
	}

	return table, nil
}

// Get returns a copy of the record stored under key
func (r *Repository[T]) Get(key int) (T, bool) {
	v, ok := r.records[key]
	if !ok {
		return v, false
	}
	return r.clone(v), true
}

// Keys returns all keys in ascending order
func (r *Repository[T]) Keys() []int {
	return slices.Sorted(maps.Keys(r.records))
}

// Len returns the number of records
func (r *Repository[T]) Len() int {
	return len(r.records)
}

// Records returns a copy of the key to record mapping.
// Records are copied too, so writes through the result never reach the repository.
func (r *Repository[T]) Records() map[int]T {
	out := make(map[int]T, len(r.records))
	for k, v := range r.records {
		out[k] = r.clone(v)
	}
	return out
}

func (r *Repository[T]) clone(v T) T {
	if c, ok := r.entity.(domain.Cloner[T]); ok {
		return c.Clone(v)
	}
	return v
}

// Shape returns the entity shape records are validated against
func (r *Repository[T]) Shape() *domain.Shape {
	return r.entity.Shape()
}
