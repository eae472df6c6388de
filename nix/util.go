package nix

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/robert-malhotra/go-nix/internal/store"
)

const timeLayout = "20060102T150405"

// DataType describes the element type of a data array, data frame column
// or property.
type DataType = store.DType

// Element types.
var (
	Int8    = store.Int8
	Int16   = store.Int16
	Int32   = store.Int32
	Int64   = store.Int64
	Uint8   = store.Uint8
	Uint16  = store.Uint16
	Uint32  = store.Uint32
	Uint64  = store.Uint64
	Float32 = store.Float32
	Float64 = store.Float64
	Bool    = store.Bool
	String  = store.String
)

// Opaque returns an opaque byte type of size bytes.
func Opaque(size int) DataType { return store.Opaque(size) }

// CreateID returns a fresh random UUID in canonical form.
func CreateID() string { return uuid.NewString() }

// IsUUID reports whether s parses as a UUID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// FormatTime encodes t the way timestamps are stored.
func FormatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// ParseTime decodes a stored timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, s, time.UTC)
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: %q contains '/'", ErrInvalidName, name)
	}
	return nil
}

func checkType(typ string) error {
	if typ == "" {
		return fmt.Errorf("%w: empty type", ErrInvalidEntityType)
	}
	return nil
}

func isZeroType(dt DataType) bool {
	return dt.Class == store.ClassInt && dt.Size == 0
}

func attrString(a *store.Attrs, name string) string {
	v, ok := a.Attr(name)
	if !ok {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

func attrFloat(a *store.Attrs, name string) (float64, bool) {
	v, ok := a.Attr(name)
	if !ok {
		return 0, false
	}
	if fs, err := toFloats(v); err == nil {
		if len(fs) != 1 {
			return 0, false
		}
		return fs[0], true
	}
	f, err := cast.ToFloat64E(v)
	return f, err == nil
}

func attrInts(a *store.Attrs, name string) []int {
	v, ok := a.Attr(name)
	if !ok {
		return nil
	}
	fs, err := toFloats(v)
	if err != nil {
		if n, err := cast.ToIntE(v); err == nil {
			return []int{n}
		}
		return nil
	}
	out := make([]int, len(fs))
	for i, f := range fs {
		out[i] = int(f)
	}
	return out
}

func attrStrings(a *store.Attrs, name string) []string {
	v, ok := a.Attr(name)
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...)
	case string:
		return []string{s}
	}
	return nil
}

// toFloats converts a numeric slice of any element type to float64.
func toFloats(v any) ([]float64, error) {
	switch s := v.(type) {
	case []float64:
		return append([]float64(nil), s...), nil
	case nil:
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("%w: %T is not a slice", ErrInvalidAttrType, v)
	}
	out := make([]float64, rv.Len())
	for i := range out {
		f, err := cast.ToFloat64E(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrInvalidAttrType, i, err)
		}
		out[i] = f
	}
	return out, nil
}

// roundIndex rounds to the nearest index, halves away from zero.
func roundIndex(f float64) int { return int(math.Round(f)) }

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func parseOrZero(s string) time.Time {
	t, err := ParseTime(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// coerceValue converts v to the Go element type of dt.
func coerceValue(dt DataType, v any) (any, error) {
	var out any
	var err error
	switch dt.Class {
	case store.ClassInt:
		out, err = cast.ToInt64E(v)
	case store.ClassUint:
		out, err = cast.ToUint64E(v)
	case store.ClassFloat:
		out, err = cast.ToFloat64E(v)
	case store.ClassBool:
		out, err = cast.ToBoolE(v)
	case store.ClassString:
		out, err = cast.ToStringE(v)
	default:
		return nil, fmt.Errorf("%w: %s values are not supported", ErrInvalidAttrType, dt)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAttrType, err)
	}
	return reflect.ValueOf(out).Convert(dt.GoType()).Interface(), nil
}
