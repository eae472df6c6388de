package hdf5

import (
	stdbin "encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/spf13/cast"

	"github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/heap"
	"github.com/robert-malhotra/go-nix/internal/message"
	"github.com/robert-malhotra/go-nix/internal/store"
)

// storeType maps a file datatype to the element type held in memory.
func storeType(dt *message.Datatype) (store.DType, error) {
	switch dt.Class {
	case message.ClassFixedPoint, message.ClassBitfield:
		return intType(int(dt.Size), dt.Signed)
	case message.ClassFloatPoint:
		switch dt.Size {
		case 4:
			return store.Float32, nil
		case 8:
			return store.Float64, nil
		}
	case message.ClassEnum:
		if dt.IsBool() {
			return store.Bool, nil
		}
		if dt.Base != nil {
			return intType(int(dt.Base.Size), dt.Base.Signed)
		}
	case message.ClassString:
		return store.String, nil
	case message.ClassVarLen:
		if dt.IsVarLenString() {
			return store.String, nil
		}
	case message.ClassOpaque:
		return store.Opaque(int(dt.Size)), nil
	case message.ClassCompound:
		fields := make([]store.Field, len(dt.Members))
		for i, m := range dt.Members {
			ft, err := storeType(m.Type)
			if err != nil {
				return store.DType{}, fmt.Errorf("member %q: %w", m.Name, err)
			}
			fields[i] = store.Field{Name: m.Name, Type: ft}
		}
		return store.Compound(fields...), nil
	}
	return store.DType{}, fmt.Errorf("%w: datatype class %d size %d", ErrUnsupported, dt.Class, dt.Size)
}

func intType(size int, signed bool) (store.DType, error) {
	types := map[int][2]store.DType{
		1: {store.Uint8, store.Int8},
		2: {store.Uint16, store.Int16},
		4: {store.Uint32, store.Int32},
		8: {store.Uint64, store.Int64},
	}
	t, ok := types[size]
	if !ok {
		return store.DType{}, fmt.Errorf("%w: %d-byte integer", ErrUnsupported, size)
	}
	if signed {
		return t[1], nil
	}
	return t[0], nil
}

// fileType maps an in-memory element type to the datatype written to disk.
func fileType(dt store.DType, cfg binary.Config) *message.Datatype {
	switch dt.Class {
	case store.ClassInt:
		return message.NewInt(dt.Size, true)
	case store.ClassUint:
		return message.NewInt(dt.Size, false)
	case store.ClassFloat:
		return message.NewFloat(dt.Size)
	case store.ClassBool:
		return message.NewBool()
	case store.ClassString:
		return message.NewVarLenString(cfg)
	case store.ClassOpaque:
		return message.NewOpaque(max(dt.Size, 1), "")
	}
	names := make([]string, len(dt.Fields))
	types := make([]*message.Datatype, len(dt.Fields))
	for i, f := range dt.Fields {
		names[i] = f.Name
		types[i] = fileType(f.Type, cfg)
	}
	return message.NewCompound(names, types)
}

func byteOrder(dt *message.Datatype) stdbin.ByteOrder {
	if dt.Order == message.OrderBE {
		return stdbin.BigEndian
	}
	return stdbin.LittleEndian
}

// decoder turns raw element bytes into Go values.
type decoder struct {
	cfg  binary.Config
	heap *heap.Cache
}

// decodeAll decodes n consecutive elements into a slice of the element
// type of st.
func (d *decoder) decodeAll(dt *message.Datatype, st store.DType, raw []byte, n int) (any, error) {
	size := int(dt.Size)
	if len(raw) < n*size {
		return nil, fmt.Errorf("%d bytes for %d elements of %d bytes", len(raw), n, size)
	}
	out := reflect.MakeSlice(reflect.SliceOf(st.GoType()), n, n)
	for i := 0; i < n; i++ {
		v, err := d.decode(dt, st, raw[i*size:(i+1)*size])
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(v))
	}
	return out.Interface(), nil
}

func (d *decoder) decode(dt *message.Datatype, st store.DType, b []byte) (any, error) {
	switch st.Class {
	case store.ClassInt, store.ClassUint:
		num := dt
		if dt.Class == message.ClassEnum {
			num = dt.Base
		}
		v := binary.DecodeUint(b, int(num.Size), byteOrder(num))
		return integer(v, st), nil
	case store.ClassFloat:
		if st.Size == 4 {
			return math.Float32frombits(byteOrder(dt).Uint32(b)), nil
		}
		return math.Float64frombits(byteOrder(dt).Uint64(b)), nil
	case store.ClassBool:
		return b[0] != 0, nil
	case store.ClassString:
		if dt.Class == message.ClassString {
			return fixedString(b, dt.Padding), nil
		}
		return d.varLenString(b)
	case store.ClassOpaque:
		return append([]byte(nil), b...), nil
	case store.ClassCompound:
		rec := make(store.Record, len(dt.Members))
		for i, m := range dt.Members {
			end := int(m.Offset) + int(m.Type.Size)
			if end > len(b) {
				return nil, fmt.Errorf("member %q overruns element", m.Name)
			}
			v, err := d.decode(m.Type, st.Fields[i].Type, b[m.Offset:end])
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", m.Name, err)
			}
			rec[i] = v
		}
		return rec, nil
	}
	return nil, fmt.Errorf("%w: element type %s", ErrUnsupported, st)
}

func integer(v uint64, st store.DType) any {
	if st.Class == store.ClassInt {
		shift := uint(64 - 8*st.Size)
		s := int64(v<<shift) >> shift
		switch st.Size {
		case 1:
			return int8(s)
		case 2:
			return int16(s)
		case 4:
			return int32(s)
		}
		return s
	}
	switch st.Size {
	case 1:
		return uint8(v)
	case 2:
		return uint16(v)
	case 4:
		return uint32(v)
	}
	return v
}

func fixedString(b []byte, pad message.StringPadding) string {
	switch pad {
	case message.PadNullTerm:
		if i := strings.IndexByte(string(b), 0); i >= 0 {
			b = b[:i]
		}
	case message.PadNullPad:
		b = []byte(strings.TrimRight(string(b), "\x00"))
	case message.PadSpace:
		b = []byte(strings.TrimRight(string(b), " "))
	}
	return string(b)
}

func (d *decoder) varLenString(b []byte) (string, error) {
	length, id, err := heap.DecodeID(d.cfg, b)
	if err != nil {
		return "", err
	}
	if length == 0 || id.Collection == 0 {
		return "", nil
	}
	obj, err := d.heap.Object(id)
	if err != nil {
		return "", err
	}
	if length < len(obj) {
		obj = obj[:length]
	}
	return string(obj), nil
}

// encodeElem writes one element into out. Strings go to the global heap.
func encodeElem(dt *message.Datatype, st store.DType, v any, out []byte, cfg binary.Config, hw *heap.Writer) error {
	switch st.Class {
	case store.ClassInt:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return err
		}
		copy(out, binary.EncodeUint(uint64(n), st.Size, stdbin.LittleEndian))
	case store.ClassUint:
		n, err := cast.ToUint64E(v)
		if err != nil {
			return err
		}
		copy(out, binary.EncodeUint(n, st.Size, stdbin.LittleEndian))
	case store.ClassFloat:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return err
		}
		if st.Size == 4 {
			stdbin.LittleEndian.PutUint32(out, math.Float32bits(float32(f)))
		} else {
			stdbin.LittleEndian.PutUint64(out, math.Float64bits(f))
		}
	case store.ClassBool:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return err
		}
		out[0] = 0
		if b {
			out[0] = 1
		}
	case store.ClassString:
		s, err := cast.ToStringE(v)
		if err != nil {
			return err
		}
		id := heap.ID{}
		if s != "" {
			id = hw.Add([]byte(s))
		}
		copy(out, heap.EncodeID(cfg, len(s), id))
	case store.ClassOpaque:
		b, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("opaque value is %T", v)
		}
		copy(out, b)
	case store.ClassCompound:
		rec, _ := v.(store.Record)
		if len(rec) != len(dt.Members) {
			return fmt.Errorf("record has %d values, type has %d fields", len(rec), len(dt.Members))
		}
		for i, m := range dt.Members {
			end := int(m.Offset) + int(m.Type.Size)
			if err := encodeElem(m.Type, st.Fields[i].Type, rec[i], out[m.Offset:end], cfg, hw); err != nil {
				return fmt.Errorf("field %q: %w", m.Name, err)
			}
		}
	default:
		return fmt.Errorf("%w: element type %s", ErrUnsupported, st)
	}
	return nil
}

// encodeAll lays out every element of a slice.
func encodeAll(dt *message.Datatype, st store.DType, values any, cfg binary.Config, hw *heap.Writer) ([]byte, error) {
	rv := reflect.ValueOf(values)
	size := int(dt.Size)
	out := make([]byte, rv.Len()*size)
	for i := 0; i < rv.Len(); i++ {
		if err := encodeElem(dt, st, rv.Index(i).Interface(), out[i*size:(i+1)*size], cfg, hw); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}
