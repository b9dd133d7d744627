package repository

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabula/internal/codec"
	"tabula/internal/domain"
)

type testEntity struct {
	ID   int    `csv:"id"`
	Name string `csv:"name"`
}

type mixedEntity struct {
	ID     int64    `csv:"id"`
	Title  string   `csv:"title"`
	Price  float64  `csv:"price"`
	Stock  uint16   `csv:"stock"`
	Active bool     `csv:"active"`
	Note   *string  `csv:"note"`
	Weight *float32 `csv:"weight"`
}

// ============================================================================
// Test Helpers
// ============================================================================

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testFile(t *testing.T) string {
	t.Helper()
	return writeFile(t, "test_data.csv", "index,id,name\n1,1,a\n2,2,b")
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func ptr[T any](v T) *T {
	return &v
}

// ============================================================================
// Construction
// ============================================================================

func TestNewIsEmpty(t *testing.T) {
	repo := New(domain.MustStructOf[testEntity]())

	assert.Equal(t, 0, repo.Len())
	assert.Equal(t, map[int]testEntity{}, repo.Records())
	assert.Empty(t, repo.Keys())
}

func TestLoadTwoRows(t *testing.T) {
	repo, err := Load(domain.MustStructOf[testEntity](), testFile(t))
	require.NoError(t, err)

	assert.Equal(t, map[int]testEntity{
		1: {ID: 1, Name: "a"},
		2: {ID: 2, Name: "b"},
	}, repo.Records())

	got, ok := repo.Get(2)
	require.True(t, ok)
	assert.Equal(t, "b", got.Name)

	_, ok = repo.Get(3)
	assert.False(t, ok)
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{name: "nonexistent file", path: filepath.Join(dir, "nonexistent_file.csv")},
		{name: "nonexistent path", path: filepath.Join(dir, "invalid_path")},
		{name: "relative path", path: "doesnotexist.csv"},
		{name: "directory", path: dir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := Load(domain.MustStructOf[testEntity](), tt.path)
			require.Error(t, err)
			assert.Nil(t, repo)

			var nf *NotFoundError
			require.True(t, errors.As(err, &nf))
			assert.Equal(t, tt.path, nf.Path)
			assert.True(t, errors.Is(err, ErrNotFound))
			assert.True(t, errors.Is(err, fs.ErrNotExist))
			assert.Equal(t, tt.path+" file not found.", err.Error())
		})
	}
}

func TestLoadRejectsInvalidRows(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantRow   int
		wantField string
	}{
		{
			name:      "non-integer id",
			content:   "index,id,name\n1,1,a\n2,two,b\n",
			wantRow:   2,
			wantField: "id",
		},
		{
			name:      "missing required value",
			content:   "index,id,name\n1,1,\n",
			wantRow:   1,
			wantField: "name",
		},
		{
			name:      "missing column",
			content:   "index,id\n1,1\n",
			wantRow:   0,
			wantField: "name",
		},
		{
			name:      "unknown column",
			content:   "index,id,name,genre\n1,1,a,jazz\n",
			wantRow:   0,
			wantField: "genre",
		},
		{
			name:      "case-sensitive column",
			content:   "index,id,Name\n1,1,a\n",
			wantRow:   0,
			wantField: "Name",
		},
		{
			name:      "short row",
			content:   "index,id,name\n1,1,a\n2,2\n",
			wantRow:   2,
			wantField: "name",
		},
		{
			name:      "long row",
			content:   "index,id,name\n1,1,a,extra\n",
			wantRow:   1,
			wantField: "column 4",
		},
		{
			name:      "non-integer key",
			content:   "index,id,name\nfirst,1,a\n",
			wantRow:   1,
			wantField: "index",
		},
		{
			name:      "duplicate key",
			content:   "index,id,name\n1,1,a\n1,2,b\n",
			wantRow:   2,
			wantField: "index",
		},
		{
			name:      "header only index",
			content:   "index\n1\n",
			wantRow:   0,
			wantField: "id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.csv", tt.content)

			repo, err := Load(domain.MustStructOf[testEntity](), path)
			require.Error(t, err)
			assert.Nil(t, repo)
			assert.True(t, errors.Is(err, domain.ErrValidation))
			assert.Contains(t, err.Error(), path)

			var vErr *domain.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantRow, vErr.Row)
			assert.Contains(t, vErr.Fields(), tt.wantField)
		})
	}
}

func TestLoadLenientColumns(t *testing.T) {
	path := writeFile(t, "extra.csv", "index,id,name,genre\n1,1,a,jazz\n")

	repo, err := Load(domain.MustStructOf[testEntity](), path, WithStrictColumns(false))
	require.NoError(t, err)
	assert.Equal(t, map[int]testEntity{1: {ID: 1, Name: "a"}}, repo.Records())
}

func TestLoadAnyIndexLabel(t *testing.T) {
	path := writeFile(t, "unnamed.csv", ",id,name\n10,1,a\n-4,2,b\n")

	repo, err := Load(domain.MustStructOf[testEntity](), path)
	require.NoError(t, err)
	assert.Equal(t, []int{-4, 10}, repo.Keys())
}

func TestLoadEmptyTable(t *testing.T) {
	path := writeFile(t, "empty.csv", "index,id,name\n")

	repo, err := Load(domain.MustStructOf[testEntity](), path)
	require.NoError(t, err)
	assert.Equal(t, 0, repo.Len())
}

func TestLoadIOErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty file", content: ""},
		{name: "bad quoting", content: "index,id,name\n1,1,\"a\n"},
		{name: "invalid utf-8", content: "index,id,name\n1,1,\xfe\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "broken.csv", tt.content)

			repo, err := Load(domain.MustStructOf[testEntity](), path)
			require.Error(t, err)
			assert.Nil(t, repo)

			var ioErr *IOError
			require.True(t, errors.As(err, &ioErr))
			assert.Equal(t, "read", ioErr.Op)
			assert.Equal(t, path, ioErr.Path)
			assert.True(t, errors.Is(err, ErrIO))
		})
	}
}

func TestFromTableWithoutColumns(t *testing.T) {
	_, err := FromTable(domain.MustStructOf[testEntity](), &codec.Table{})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

// ============================================================================
// Export
// ============================================================================

func TestExport(t *testing.T) {
	repo, err := Load(domain.MustStructOf[testEntity](), testFile(t))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "test_output.csv")
	require.NoError(t, repo.Export(out))

	assert.Equal(t, "index,id,name\n1,1,a\n2,2,b\n", readFile(t, out))
}

func TestExportOrdersByKey(t *testing.T) {
	path := writeFile(t, "unordered.csv", "index,id,name\n30,3,c\n10,1,a\n20,2,b\n")
	repo, err := Load(domain.MustStructOf[testEntity](), path)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, repo.WriteCSV(&buf))
	assert.Equal(t, "index,id,name\n10,1,a\n20,2,b\n30,3,c\n", buf.String())
}

func TestExportEmpty(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, New(domain.MustStructOf[testEntity]()).Export(out))

	assert.Equal(t, "index,id,name\n", readFile(t, out))
}

func TestExportIndexLabel(t *testing.T) {
	repo, err := Load(domain.MustStructOf[testEntity](), testFile(t), WithIndexLabel("key"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, repo.WriteCSV(&buf))
	assert.Equal(t, "key,id,name\n1,1,a\n2,2,b\n", buf.String())
}

func TestExportIdempotent(t *testing.T) {
	repo, err := Load(domain.MustStructOf[testEntity](), testFile(t))
	require.NoError(t, err)

	dir := t.TempDir()
	first := filepath.Join(dir, "first.csv")
	second := filepath.Join(dir, "second.csv")
	require.NoError(t, repo.Export(first))
	require.NoError(t, repo.Export(second))

	assert.Equal(t, readFile(t, first), readFile(t, second))
}

func TestExportOverwritesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(out, []byte("stale content that is longer than the export\n"), 0o644))

	repo, err := Load(domain.MustStructOf[testEntity](), testFile(t))
	require.NoError(t, err)
	require.NoError(t, repo.Export(out))

	assert.Equal(t, "index,id,name\n1,1,a\n2,2,b\n", readFile(t, out))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.csv", entries[0].Name())
}

func TestExportToMissingDirectory(t *testing.T) {
	repo := New(domain.MustStructOf[testEntity]())

	err := repo.Export(filepath.Join(t.TempDir(), "missing", "out.csv"))
	require.Error(t, err)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "create", ioErr.Op)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

// ============================================================================
// Round Trip
// ============================================================================

func TestRoundTripMixedTypes(t *testing.T) {
	content := "index,id,title,price,stock,active,note,weight\n" +
		"1,100,\"Widget, large\",19.99,12,true,\"says \"\"hi\"\"\",0.5\n" +
		"2,-7,Gadget,0.1,0,false,,\n" +
		"5,9223372036854775807,\"multi\nline\",1e+21,65535,true, leading space,3.25\n"
	source := writeFile(t, "mixed.csv", content)

	entity := domain.MustStructOf[mixedEntity]()
	original, err := Load(entity, source)
	require.NoError(t, err)

	assert.Equal(t, mixedEntity{
		ID: 100, Title: "Widget, large", Price: 19.99, Stock: 12, Active: true,
		Note: ptr(`says "hi"`), Weight: ptr[float32](0.5),
	}, original.Records()[1])
	assert.Nil(t, original.Records()[2].Note)

	out := filepath.Join(t.TempDir(), "mixed_out.csv")
	require.NoError(t, original.Export(out))

	reloaded, err := Load(entity, out)
	require.NoError(t, err)
	assert.Equal(t, original.Records(), reloaded.Records())

	again := filepath.Join(t.TempDir(), "mixed_again.csv")
	require.NoError(t, reloaded.Export(again))
	assert.Equal(t, readFile(t, out), readFile(t, again))
}

func TestRoundTripDynamic(t *testing.T) {
	shape, err := domain.NewShape("album",
		domain.Field{Name: "id", Kind: domain.KindInt, Required: true},
		domain.Field{Name: "name", Kind: domain.KindString, Required: true},
		domain.Field{Name: "rating", Kind: domain.KindFloat},
	)
	require.NoError(t, err)
	entity := domain.Dynamic(shape)

	original, err := Load(entity, writeFile(t, "albums.csv", "index,id,name,rating\n1,1,a,4.5\n2,2,b,\n"))
	require.NoError(t, err)
	assert.Equal(t, domain.Values{"id": int64(1), "name": "a", "rating": 4.5}, original.Records()[1])
	assert.Same(t, shape, original.Shape())

	out := filepath.Join(t.TempDir(), "albums_out.csv")
	require.NoError(t, original.Export(out))
	assert.Equal(t, "index,id,name,rating\n1,1,a,4.5\n2,2,b,\n", readFile(t, out))

	reloaded, err := Load(entity, out)
	require.NoError(t, err)
	assert.Equal(t, original.Records(), reloaded.Records())
}

func TestTableMatchesExport(t *testing.T) {
	repo, err := Load(domain.MustStructOf[testEntity](), testFile(t))
	require.NoError(t, err)

	table, err := repo.Table()
	require.NoError(t, err)

	rebuilt, err := FromTable(domain.MustStructOf[testEntity](), table)
	require.NoError(t, err)
	assert.Equal(t, repo.Records(), rebuilt.Records())
}

func TestRecordsIsACopy(t *testing.T) {
	repo, err := Load(domain.MustStructOf[testEntity](), testFile(t))
	require.NoError(t, err)

	records := repo.Records()
	delete(records, 1)

	assert.Equal(t, 2, repo.Len())
}

func TestAccessorsDoNotExposeStoredRecords(t *testing.T) {
	shape, err := domain.NewShape("row", domain.Field{Name: "id", Kind: domain.KindInt, Required: true})
	require.NoError(t, err)

	repo, err := Load(domain.Dynamic(shape), writeFile(t, "rows.csv", "index,id\n1,1\n"))
	require.NoError(t, err)

	v, ok := repo.Get(1)
	require.True(t, ok)
	v["id"] = "not-an-int"

	repo.Records()[1]["id"] = int64(99)

	stored, _ := repo.Get(1)
	assert.Equal(t, domain.Values{"id": int64(1)}, stored)

	out := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, repo.Export(out))
	assert.Equal(t, "index,id\n1,1\n", readFile(t, out))
}

func TestAccessorsCopyPointerFields(t *testing.T) {
	repo, err := Load(domain.MustStructOf[mixedEntity](),
		writeFile(t, "mixed.csv", "index,id,title,price,stock,active,note,weight\n1,1,t,1.5,2,true,hello,0.5\n"))
	require.NoError(t, err)

	got, _ := repo.Get(1)
	*got.Note = "changed"
	*repo.Records()[1].Weight = 9

	stored, _ := repo.Get(1)
	assert.Equal(t, "hello", *stored.Note)
	assert.Equal(t, float32(0.5), *stored.Weight)
}

func TestRoundTripTextLimits(t *testing.T) {
	e := domain.MustStructOf[mixedEntity]()
	table := &codec.Table{
		Columns: []string{"index", "id", "title", "price", "stock", "active", "note"},
		Rows:    [][]string{{"1", "1", "a\r\nb", "1", "1", "true", ""}},
	}

	repo, err := FromTable(e, table)
	require.NoError(t, err)
	orig, _ := repo.Get(1)
	assert.Equal(t, "a\r\nb", orig.Title)

	path := filepath.Join(t.TempDir(), "limits.csv")
	require.NoError(t, repo.Export(path))

	loaded, err := Load(e, path)
	require.NoError(t, err)
	got, _ := loaded.Get(1)

	// CRLF inside a quoted field reads back as LF
	assert.Equal(t, "a\nb", got.Title)
	assert.Nil(t, got.Note)

	// A quoted empty cell is an empty cell
	quoted := writeFile(t, "quoted.csv", "index,id,title,price,stock,active,note\n1,1,t,1,1,true,\"\"\n")
	loaded, err = Load(e, quoted)
	require.NoError(t, err)
	got, _ = loaded.Get(1)
	assert.Nil(t, got.Note)
}

func TestLoggerReceivesDebugLines(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	repo, err := Load(domain.MustStructOf[testEntity](), testFile(t), WithLogger(log))
	require.NoError(t, err)
	require.NoError(t, repo.Export(filepath.Join(t.TempDir(), "out.csv")))

	assert.Contains(t, buf.String(), "repository loaded")
	assert.Contains(t, buf.String(), "records=2")
	assert.Contains(t, buf.String(), "repository exported")
}
