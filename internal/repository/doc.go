// Package repository provides typed, CSV-backed in-memory repositories.
//
// A Repository binds an entity shape (see package domain) to a map of
// integer keys to validated records. Records are only ever added by a
// wholesale load, so every stored value has passed validation.
//
// # Construction
//
//	albums := domain.MustStructOf[Album]()
//
//	empty := repository.New(albums)
//	loaded, err := repository.Load(albums, "albums.csv")
//
// Load is all-or-nothing: a missing file yields *NotFoundError, a read or
// CSV syntax failure yields *IOError, and the first row that does not
// satisfy the shape yields *domain.ValidationError naming the row and the
// failing fields. On any error no repository is returned.
//
// # File Format
//
// The first column is the key (written with the label "index"); the
// remaining columns are the entity fields in declared order. Export writes
// rows by ascending key through a temp file and rename, so re-exporting an
// unchanged repository produces identical bytes and readers never see a
// half-written file.
//
// # SQLite Implementation
//
// The sqlite subpackage stores repository tables in SQLite for snapshots;
// FromTable rebuilds a validated repository from a stored table.
package repository
