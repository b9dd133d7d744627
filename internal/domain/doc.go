// Package domain defines entity shapes and the validation that binds raw
// table cells to typed records.
//
// # Shapes
//
// Shape is an ordered list of named, typed fields. Field order is the
// declared order and drives the column order of exported tables. Kinds are
// limited to what a flat table can express: int, float, string and bool.
//
// # Validation
//
// Shape.CheckColumns validates a table header, Shape.Parse turns one row of
// raw cells into typed Values, and Shape.Format renders Values back into
// cells. Failures are reported as FieldErrors, which callers wrap into a
// ValidationError carrying the row number.
//
// # Entities
//
// Entity binds a shape to a Go type. StructOf derives both the shape and the
// binding from a struct type:
//
//	type Album struct {
//	    ID    int     `csv:"id"`
//	    Name  string  `csv:"name"`
//	    Year  *int    `csv:"year"`              // optional
//	    Notes string  `csv:"notes,omitempty"`   // optional
//	}
//
//	albums, err := domain.StructOf[Album]()
//
// Dynamic binds a shape to plain Values for shapes loaded at runtime.
//
// # Design Principles
//
// - No file, database or logging dependencies
// - Validation is a pure function of the shape and the raw cells
package domain
