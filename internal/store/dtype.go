package store

import (
	"fmt"
	"reflect"
	"strings"
)

// Class is the kind of a dataset element.
type Class uint8

const (
	ClassInt Class = iota
	ClassUint
	ClassFloat
	ClassBool
	ClassString
	ClassOpaque
	ClassCompound
)

// Field is one named member of a compound type.
type Field struct {
	Name string
	Type DType
}

// DType describes a dataset element. Size is in bytes and is zero for
// variable-length strings.
type DType struct {
	Class  Class
	Size   int
	Fields []Field
}

var (
	Int8    = DType{Class: ClassInt, Size: 1}
	Int16   = DType{Class: ClassInt, Size: 2}
	Int32   = DType{Class: ClassInt, Size: 4}
	Int64   = DType{Class: ClassInt, Size: 8}
	Uint8   = DType{Class: ClassUint, Size: 1}
	Uint16  = DType{Class: ClassUint, Size: 2}
	Uint32  = DType{Class: ClassUint, Size: 4}
	Uint64  = DType{Class: ClassUint, Size: 8}
	Float32 = DType{Class: ClassFloat, Size: 4}
	Float64 = DType{Class: ClassFloat, Size: 8}
	Bool    = DType{Class: ClassBool, Size: 1}
	String  = DType{Class: ClassString}
)

// Opaque returns an opaque type of size bytes.
func Opaque(size int) DType { return DType{Class: ClassOpaque, Size: size} }

// Compound returns a record type with the given fields.
func Compound(fields ...Field) DType {
	size := 0
	for _, f := range fields {
		size += f.Type.Size
	}
	return DType{Class: ClassCompound, Size: size, Fields: fields}
}

// Record is one element of a compound dataset, one value per field.
type Record []any

var (
	recordType = reflect.TypeOf(Record(nil))
	bytesType  = reflect.TypeOf([]byte(nil))
)

// GoType returns the Go type of a single element.
func (d DType) GoType() reflect.Type {
	switch d.Class {
	case ClassInt:
		switch d.Size {
		case 1:
			return reflect.TypeOf(int8(0))
		case 2:
			return reflect.TypeOf(int16(0))
		case 4:
			return reflect.TypeOf(int32(0))
		}
		return reflect.TypeOf(int64(0))
	case ClassUint:
		switch d.Size {
		case 1:
			return reflect.TypeOf(uint8(0))
		case 2:
			return reflect.TypeOf(uint16(0))
		case 4:
			return reflect.TypeOf(uint32(0))
		}
		return reflect.TypeOf(uint64(0))
	case ClassFloat:
		if d.Size == 4 {
			return reflect.TypeOf(float32(0))
		}
		return reflect.TypeOf(float64(0))
	case ClassBool:
		return reflect.TypeOf(false)
	case ClassString:
		return reflect.TypeOf("")
	case ClassOpaque:
		return bytesType
	}
	return recordType
}

// IsNumeric reports whether elements are integers or floats.
func (d DType) IsNumeric() bool {
	return d.Class == ClassInt || d.Class == ClassUint || d.Class == ClassFloat
}

// Equal compares two types including compound fields.
func (d DType) Equal(o DType) bool {
	if d.Class != o.Class || d.Size != o.Size || len(d.Fields) != len(o.Fields) {
		return false
	}
	for i := range d.Fields {
		if d.Fields[i].Name != o.Fields[i].Name || !d.Fields[i].Type.Equal(o.Fields[i].Type) {
			return false
		}
	}
	return true
}

// Field returns the index of the field called name, or -1.
func (d DType) Field(name string) int {
	for i, f := range d.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (d DType) String() string {
	switch d.Class {
	case ClassInt:
		return fmt.Sprintf("int%d", d.Size*8)
	case ClassUint:
		return fmt.Sprintf("uint%d", d.Size*8)
	case ClassFloat:
		return fmt.Sprintf("float%d", d.Size*8)
	case ClassBool:
		return "bool"
	case ClassString:
		return "string"
	case ClassOpaque:
		return fmt.Sprintf("opaque%d", d.Size)
	}
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name + ":" + f.Type.String()
	}
	return "compound{" + strings.Join(names, ",") + "}"
}

// DTypeOf infers the element type of a Go scalar or slice. Compound
// values cannot be inferred.
func DTypeOf(v any) (DType, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return DType{}, fmt.Errorf("%w: nil value", ErrType)
	}
	if t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int8:
		return Int8, nil
	case reflect.Int16:
		return Int16, nil
	case reflect.Int32:
		return Int32, nil
	case reflect.Int64, reflect.Int:
		return Int64, nil
	case reflect.Uint8:
		return Uint8, nil
	case reflect.Uint16:
		return Uint16, nil
	case reflect.Uint32:
		return Uint32, nil
	case reflect.Uint64, reflect.Uint:
		return Uint64, nil
	case reflect.Float32:
		return Float32, nil
	case reflect.Float64:
		return Float64, nil
	case reflect.Bool:
		return Bool, nil
	case reflect.String:
		return String, nil
	}
	if t == bytesType {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice && rv.Len() > 0 {
			return Opaque(rv.Index(0).Len()), nil
		}
		return Opaque(1), nil
	}
	return DType{}, fmt.Errorf("%w: cannot infer element type of %T", ErrType, v)
}

// zero returns the zero element, with compound records and opaque values
// fully populated.
func (d DType) zero() reflect.Value {
	switch d.Class {
	case ClassOpaque:
		return reflect.ValueOf(make([]byte, d.Size))
	case ClassCompound:
		rec := make(Record, len(d.Fields))
		for i, f := range d.Fields {
			rec[i] = f.Type.zero().Interface()
		}
		return reflect.ValueOf(rec)
	}
	return reflect.Zero(d.GoType())
}

func (d DType) makeSlice(n int) reflect.Value {
	s := reflect.MakeSlice(reflect.SliceOf(d.GoType()), n, n)
	if d.Class == ClassOpaque || d.Class == ClassCompound {
		for i := 0; i < n; i++ {
			s.Index(i).Set(d.zero())
		}
	}
	return s
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// coerce converts a slice of values into a slice of the element type of d.
// Numeric values convert between widths; other classes must match.
func (d DType) coerce(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return reflect.Value{}, fmt.Errorf("%w: expected a slice, got %T", ErrType, v)
	}
	want := reflect.SliceOf(d.GoType())
	if rv.Type() == want {
		return rv, nil
	}
	if d.IsNumeric() && isNumericKind(rv.Type().Elem().Kind()) {
		out := reflect.MakeSlice(want, rv.Len(), rv.Len())
		et := d.GoType()
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(rv.Index(i).Convert(et))
		}
		return out, nil
	}
	if rv.Type().Elem().Kind() == reflect.Interface {
		out := reflect.MakeSlice(want, rv.Len(), rv.Len())
		et := d.GoType()
		for i := 0; i < rv.Len(); i++ {
			e := rv.Index(i).Elem()
			switch {
			case e.IsValid() && e.Type() == et:
				out.Index(i).Set(e)
			case e.IsValid() && d.IsNumeric() && isNumericKind(e.Kind()):
				out.Index(i).Set(e.Convert(et))
			default:
				return reflect.Value{}, fmt.Errorf("%w: element %d is %T, want %s", ErrType, i, rv.Index(i).Interface(), d)
			}
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: cannot store %T as %s", ErrType, v, d)
}
