package domain

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"strings"
)

// Entity binds a shape to a Go type T.
// Decode builds a T from validated values; Encode flattens a T back to values.
type Entity[T any] interface {
	Shape() *Shape
	Decode(values Values) (T, error)
	Encode(v T) (Values, error)
}

// Cloner is implemented by entities whose values share memory on copy.
// Clone returns a value that does not alias v.
type Cloner[T any] interface {
	Clone(v T) T
}

// StructEntity binds a shape derived from the fields of struct type T.
//
// Column names come from the `csv` tag or the Go field name. A tag of "-"
// skips the field, the omitempty option marks it optional, and pointer
// fields are always optional.
type StructEntity[T any] struct {
	shape  *Shape
	fields []structField
}

type structField struct {
	index []int
	ptr   bool
	elem  reflect.Type
}

// StructOf derives the entity shape of struct type T
func StructOf[T any]() (*StructEntity[T], error) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity type %s is not a struct", typ)
	}

	var (
		fields  []Field
		sfields []structField
	)

	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}

		tag := sf.Tag.Get("csv")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = sf.Name
		}

		ft := sf.Type
		ptr := ft.Kind() == reflect.Pointer
		if ptr {
			ft = ft.Elem()
		}

		kind, ok := kindOf(ft.Kind())
		if !ok {
			return nil, fmt.Errorf("entity type %s: field %s has unsupported type %s", typ, sf.Name, sf.Type)
		}

		fields = append(fields, Field{
			Name:     name,
			Kind:     kind,
			Required: !ptr && !hasOption(opts, "omitempty"),
		})
		sfields = append(sfields, structField{index: sf.Index, ptr: ptr, elem: ft})
	}

	shape, err := NewShape(typ.Name(), fields...)
	if err != nil {
		return nil, err
	}

	return &StructEntity[T]{shape: shape, fields: sfields}, nil
}

// MustStructOf is like StructOf but panics on an unusable type.
// Intended for package-level entity declarations.
func MustStructOf[T any]() *StructEntity[T] {
	e, err := StructOf[T]()
	if err != nil {
		panic(err)
	}
	return e
}

// Shape returns the derived shape
func (e *StructEntity[T]) Shape() *Shape {
	return e.shape
}

// Decode builds a T from typed values
func (e *StructEntity[T]) Decode(values Values) (T, error) {
	var out T
	rv := reflect.ValueOf(&out).Elem()

	var errs FieldErrors
	for i, f := range e.shape.Fields {
		raw := values[f.Name]
		if raw == nil {
			continue
		}

		sf := e.fields[i]
		dst := rv.FieldByIndex(sf.index)
		if sf.ptr {
			p := reflect.New(sf.elem)
			dst.Set(p)
			dst = p.Elem()
		}

		if err := assign(dst, raw); err != nil {
			errs = append(errs, FieldError{Field: f.Name, Value: fmt.Sprint(raw), Reason: err.Error()})
		}
	}

	if len(errs) > 0 {
		var zero T
		return zero, errs
	}
	return out, nil
}

// Encode flattens v into typed values
func (e *StructEntity[T]) Encode(v T) (Values, error) {
	rv := reflect.ValueOf(v)
	values := make(Values, len(e.fields))

	for i, f := range e.shape.Fields {
		sf := e.fields[i]
		fv := rv.FieldByIndex(sf.index)
		if sf.ptr {
			if fv.IsNil() {
				values[f.Name] = nil
				continue
			}
			fv = fv.Elem()
		}

		switch fv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			values[f.Name] = fv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			u := fv.Uint()
			if u > math.MaxInt64 {
				return nil, fmt.Errorf("field %q: value %d out of range", f.Name, u)
			}
			values[f.Name] = int64(u)
		case reflect.Float32, reflect.Float64:
			values[f.Name] = fv.Float()
		case reflect.String:
			values[f.Name] = fv.String()
		case reflect.Bool:
			values[f.Name] = fv.Bool()
		}
	}

	return values, nil
}

// Clone copies v, giving pointer fields their own storage
func (e *StructEntity[T]) Clone(v T) T {
	out := v
	rv := reflect.ValueOf(&out).Elem()

	for _, sf := range e.fields {
		if !sf.ptr {
			continue
		}
		fv := rv.FieldByIndex(sf.index)
		if fv.IsNil() {
			continue
		}
		p := reflect.New(sf.elem)
		p.Elem().Set(fv.Elem())
		fv.Set(p)
	}

	return out
}

func assign(dst reflect.Value, raw any) error {
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := raw.(int64)
		if !ok {
			return fmt.Errorf("expected integer, got %T", raw)
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("out of range for %s", dst.Type())
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := raw.(int64)
		if !ok {
			return fmt.Errorf("expected integer, got %T", raw)
		}
		if n < 0 || dst.OverflowUint(uint64(n)) {
			return fmt.Errorf("out of range for %s", dst.Type())
		}
		dst.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		f, ok := raw.(float64)
		if !ok {
			return fmt.Errorf("expected number, got %T", raw)
		}
		if dst.OverflowFloat(f) {
			return fmt.Errorf("out of range for %s", dst.Type())
		}
		dst.SetFloat(f)
	case reflect.String:
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", raw)
		}
		dst.SetString(s)
	case reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return fmt.Errorf("expected boolean, got %T", raw)
		}
		dst.SetBool(b)
	default:
		return fmt.Errorf("unsupported type %s", dst.Type())
	}
	return nil
}

func kindOf(k reflect.Kind) (Kind, bool) {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt, true
	case reflect.Float32, reflect.Float64:
		return KindFloat, true
	case reflect.String:
		return KindString, true
	case reflect.Bool:
		return KindBool, true
	}
	return "", false
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

// dynamicEntity binds a runtime shape to plain Values
type dynamicEntity struct {
	shape *Shape
}

// Dynamic binds shape to Values, for shapes only known at runtime
func Dynamic(shape *Shape) Entity[Values] {
	return &dynamicEntity{shape: shape}
}

func (d *dynamicEntity) Shape() *Shape {
	return d.shape
}

func (d *dynamicEntity) Decode(values Values) (Values, error) {
	return maps.Clone(values), nil
}

func (d *dynamicEntity) Clone(v Values) Values {
	return maps.Clone(v)
}

func (d *dynamicEntity) Encode(v Values) (Values, error) {
	out := make(Values, len(d.shape.Fields))
	for _, f := range d.shape.Fields {
		out[f.Name] = v[f.Name]
	}
	return out, nil
}
