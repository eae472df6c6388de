package message

import (
	"fmt"

	"github.com/robert-malhotra/go-nix/internal/binary"
)

// Class is an HDF5 datatype class.
type Class uint8

const (
	ClassFixedPoint Class = 0
	ClassFloatPoint Class = 1
	ClassTime       Class = 2
	ClassString     Class = 3
	ClassBitfield   Class = 4
	ClassOpaque     Class = 5
	ClassCompound   Class = 6
	ClassReference  Class = 7
	ClassEnum       Class = 8
	ClassVarLen     Class = 9
	ClassArray      Class = 10
)

// ByteOrder of a numeric type.
type ByteOrder uint8

const (
	OrderLE ByteOrder = 0
	OrderBE ByteOrder = 1
)

// StringPadding is the padding rule of a string type.
type StringPadding uint8

const (
	PadNullTerm StringPadding = 0
	PadNullPad  StringPadding = 1
	PadSpace    StringPadding = 2
)

// Charset of a string type.
type Charset uint8

const (
	CharsetASCII Charset = 0
	CharsetUTF8  Charset = 1
)

// Member is one field of a compound type.
type Member struct {
	Name   string
	Offset uint32
	Type   *Datatype
}

// Datatype is the datatype message (0x0003). Only the fields relevant to
// Class are populated.
type Datatype struct {
	Class   Class
	Version uint8
	Size    uint32

	Order        ByteOrder
	Signed       bool
	BitOffset    uint16
	BitPrecision uint16

	// floating point layout
	SignLoc  uint8
	ExpLoc   uint8
	ExpSize  uint8
	MantLoc  uint8
	MantSize uint8
	ExpBias  uint32

	Padding      StringPadding
	Charset      Charset
	VarLenString bool

	Members    []Member
	Base       *Datatype
	EnumNames  []string
	EnumValues [][]byte
	ArrayDims  []uint32
	Tag        string
}

func (m *Datatype) Type() Type { return TypeDatatype }

// IsVarLenString reports whether values of this type are global heap
// references to strings.
func (m *Datatype) IsVarLenString() bool {
	return m.Class == ClassVarLen && m.VarLenString
}

// IsBool reports whether the type is the two-member FALSE/TRUE enum used
// for booleans.
func (m *Datatype) IsBool() bool {
	if m.Class != ClassEnum || len(m.EnumNames) != 2 || m.Size != 1 {
		return false
	}
	return m.EnumNames[0] == "FALSE" && m.EnumNames[1] == "TRUE"
}

// ParseDatatype decodes a standalone datatype encoding, for instance the
// one embedded in an attribute message.
func ParseDatatype(data []byte, cfg binary.Config) (*Datatype, int, error) {
	c := newCursor(data, cfg)
	dt, err := decodeDatatype(c)
	return dt, c.pos, err
}

func decodeDatatype(c *cursor) (*Datatype, error) {
	head := c.u8()
	bits := uint32(c.u8()) | uint32(c.u8())<<8 | uint32(c.u8())<<16
	dt := &Datatype{
		Class:   Class(head & 0x0f),
		Version: head >> 4,
		Size:    c.u32(),
	}
	if c.err != nil {
		return nil, c.err
	}

	switch dt.Class {
	case ClassFixedPoint, ClassBitfield:
		dt.Order = ByteOrder(bits & 0x01)
		dt.Signed = bits&0x08 != 0
		dt.BitOffset = c.u16()
		dt.BitPrecision = c.u16()

	case ClassFloatPoint:
		dt.Order = ByteOrder(bits & 0x01)
		dt.SignLoc = uint8(bits >> 8)
		dt.BitOffset = c.u16()
		dt.BitPrecision = c.u16()
		dt.ExpLoc = c.u8()
		dt.ExpSize = c.u8()
		dt.MantLoc = c.u8()
		dt.MantSize = c.u8()
		dt.ExpBias = c.u32()

	case ClassTime:
		dt.Order = ByteOrder(bits & 0x01)
		dt.BitPrecision = c.u16()

	case ClassString:
		dt.Padding = StringPadding(bits & 0x0f)
		dt.Charset = Charset((bits >> 4) & 0x0f)

	case ClassOpaque:
		tag := c.bytes(int(bits & 0xff))
		for i, b := range tag {
			if b == 0 {
				tag = tag[:i]
				break
			}
		}
		dt.Tag = string(tag)

	case ClassCompound:
		n := int(bits & 0xffff)
		for i := 0; i < n && c.err == nil; i++ {
			mem, err := decodeMember(c, dt.Version, dt.Size)
			if err != nil {
				return nil, fmt.Errorf("compound member %d: %w", i, err)
			}
			dt.Members = append(dt.Members, mem)
		}

	case ClassReference:

	case ClassEnum:
		base, err := decodeDatatype(c)
		if err != nil {
			return nil, fmt.Errorf("enum base: %w", err)
		}
		dt.Base = base
		n := int(bits & 0xffff)
		for i := 0; i < n; i++ {
			dt.EnumNames = append(dt.EnumNames, c.cstring(dt.Version < 3))
		}
		for i := 0; i < n; i++ {
			dt.EnumValues = append(dt.EnumValues, c.bytes(int(base.Size)))
		}

	case ClassVarLen:
		dt.VarLenString = bits&0x0f == 1
		dt.Padding = StringPadding((bits >> 4) & 0x0f)
		dt.Charset = Charset((bits >> 8) & 0x0f)
		base, err := decodeDatatype(c)
		if err != nil {
			return nil, fmt.Errorf("vlen base: %w", err)
		}
		dt.Base = base

	case ClassArray:
		rank := int(c.u8())
		if dt.Version < 3 {
			c.skip(3)
		}
		for i := 0; i < rank; i++ {
			dt.ArrayDims = append(dt.ArrayDims, c.u32())
		}
		if dt.Version < 3 {
			c.skip(4 * rank)
		}
		base, err := decodeDatatype(c)
		if err != nil {
			return nil, fmt.Errorf("array base: %w", err)
		}
		dt.Base = base

	default:
		return nil, fmt.Errorf("unsupported datatype class %d", dt.Class)
	}
	return dt, c.err
}

func decodeMember(c *cursor, version uint8, size uint32) (Member, error) {
	var m Member
	m.Name = c.cstring(version < 3)
	switch version {
	case 1:
		m.Offset = c.u32()
		c.skip(1 + 3 + 4 + 4 + 16)
	case 2:
		m.Offset = c.u32()
	default:
		m.Offset = uint32(c.uintN(memberOffsetSize(size)))
	}
	t, err := decodeDatatype(c)
	if err != nil {
		return m, err
	}
	m.Type = t
	return m, nil
}

func memberOffsetSize(size uint32) int {
	switch {
	case size < 1<<8:
		return 1
	case size < 1<<16:
		return 2
	case size < 1<<24:
		return 3
	default:
		return 4
	}
}

// NewInt returns a little-endian integer type of size bytes.
func NewInt(size int, signed bool) *Datatype {
	return &Datatype{
		Class:        ClassFixedPoint,
		Version:      1,
		Size:         uint32(size),
		Signed:       signed,
		BitPrecision: uint16(size * 8),
	}
}

// NewFloat returns an IEEE float of 4 or 8 bytes.
func NewFloat(size int) *Datatype {
	dt := &Datatype{Class: ClassFloatPoint, Version: 1, Size: uint32(size)}
	if size == 4 {
		dt.BitPrecision, dt.SignLoc = 32, 31
		dt.ExpLoc, dt.ExpSize, dt.MantSize, dt.ExpBias = 23, 8, 23, 127
	} else {
		dt.BitPrecision, dt.SignLoc = 64, 63
		dt.ExpLoc, dt.ExpSize, dt.MantSize, dt.ExpBias = 52, 11, 52, 1023
	}
	return dt
}

// NewVarLenString returns the variable-length UTF-8 string type.
func NewVarLenString(cfg binary.Config) *Datatype {
	return &Datatype{
		Class:        ClassVarLen,
		Version:      1,
		Size:         uint32(4 + cfg.OffsetSize + 4),
		VarLenString: true,
		Charset:      CharsetUTF8,
		Base:         NewInt(1, false),
	}
}

// NewBool returns the FALSE/TRUE enum over int8.
func NewBool() *Datatype {
	return &Datatype{
		Class:      ClassEnum,
		Version:    3,
		Size:       1,
		Base:       NewInt(1, true),
		EnumNames:  []string{"FALSE", "TRUE"},
		EnumValues: [][]byte{{0}, {1}},
	}
}

// NewOpaque returns an opaque type of size bytes.
func NewOpaque(size int, tag string) *Datatype {
	return &Datatype{Class: ClassOpaque, Version: 1, Size: uint32(size), Tag: tag}
}

// NewCompound lays members out back to back in declaration order.
func NewCompound(names []string, types []*Datatype) *Datatype {
	dt := &Datatype{Class: ClassCompound, Version: 3}
	var off uint32
	for i, name := range names {
		dt.Members = append(dt.Members, Member{Name: name, Offset: off, Type: types[i]})
		off += types[i].Size
	}
	dt.Size = off
	return dt
}

func (m *Datatype) classBits() uint32 {
	var bits uint32
	switch m.Class {
	case ClassFixedPoint, ClassBitfield:
		bits = uint32(m.Order)
		if m.Signed {
			bits |= 0x08
		}
	case ClassFloatPoint:
		bits = uint32(m.Order) | 0x20 | uint32(m.SignLoc)<<8
	case ClassString:
		bits = uint32(m.Padding) | uint32(m.Charset)<<4
	case ClassOpaque:
		bits = uint32(align8(len(m.Tag) + 1))
	case ClassCompound:
		bits = uint32(len(m.Members))
	case ClassEnum:
		bits = uint32(len(m.EnumNames))
	case ClassVarLen:
		if m.VarLenString {
			bits = 1 | uint32(m.Padding)<<4 | uint32(m.Charset)<<8
		}
	}
	return bits
}

// Serialize writes the datatype encoding.
func (m *Datatype) Serialize(w *binary.Writer) error {
	version := m.Version
	if version == 0 {
		version = 1
	}
	bits := m.classBits()
	head := []byte{uint8(m.Class) | version<<4, byte(bits), byte(bits >> 8), byte(bits >> 16)}
	if err := w.WriteBytes(head); err != nil {
		return err
	}
	if err := w.WriteUint32(m.Size); err != nil {
		return err
	}

	switch m.Class {
	case ClassFixedPoint, ClassBitfield:
		if err := w.WriteUint16(m.BitOffset); err != nil {
			return err
		}
		return w.WriteUint16(m.BitPrecision)

	case ClassFloatPoint:
		if err := w.WriteUint16(m.BitOffset); err != nil {
			return err
		}
		if err := w.WriteUint16(m.BitPrecision); err != nil {
			return err
		}
		if err := w.WriteBytes([]byte{m.ExpLoc, m.ExpSize, m.MantLoc, m.MantSize}); err != nil {
			return err
		}
		return w.WriteUint32(m.ExpBias)

	case ClassString, ClassReference:
		return nil

	case ClassOpaque:
		tag := make([]byte, align8(len(m.Tag)+1))
		copy(tag, m.Tag)
		return w.WriteBytes(tag)

	case ClassCompound:
		for _, mem := range m.Members {
			if err := writeName(w, mem.Name, version < 3); err != nil {
				return err
			}
			if version < 3 {
				if err := w.WriteUint32(mem.Offset); err != nil {
					return err
				}
			} else if err := w.WriteUintN(uint64(mem.Offset), memberOffsetSize(m.Size)); err != nil {
				return err
			}
			if err := mem.Type.Serialize(w); err != nil {
				return err
			}
		}
		return nil

	case ClassEnum:
		if err := m.Base.Serialize(w); err != nil {
			return err
		}
		for _, name := range m.EnumNames {
			if err := writeName(w, name, version < 3); err != nil {
				return err
			}
		}
		for _, v := range m.EnumValues {
			if err := w.WriteBytes(v); err != nil {
				return err
			}
		}
		return nil

	case ClassVarLen:
		return m.Base.Serialize(w)
	}
	return fmt.Errorf("cannot serialize datatype class %d", m.Class)
}

// SerializedSize returns the encoded size.
func (m *Datatype) SerializedSize(cfg binary.Config) int {
	size := 8
	version := m.Version
	if version == 0 {
		version = 1
	}
	switch m.Class {
	case ClassFixedPoint, ClassBitfield:
		size += 4
	case ClassFloatPoint:
		size += 12
	case ClassOpaque:
		size += align8(len(m.Tag) + 1)
	case ClassCompound:
		for _, mem := range m.Members {
			size += nameSize(mem.Name, version < 3)
			if version < 3 {
				size += 4
			} else {
				size += memberOffsetSize(m.Size)
			}
			size += mem.Type.SerializedSize(cfg)
		}
	case ClassEnum:
		size += m.Base.SerializedSize(cfg)
		for _, name := range m.EnumNames {
			size += nameSize(name, version < 3)
		}
		size += len(m.EnumNames) * int(m.Base.Size)
	case ClassVarLen:
		size += m.Base.SerializedSize(cfg)
	}
	return size
}

func writeName(w *binary.Writer, name string, pad8 bool) error {
	b := make([]byte, nameSize(name, pad8))
	copy(b, name)
	return w.WriteBytes(b)
}

func nameSize(name string, pad8 bool) int {
	if pad8 {
		return align8(len(name) + 1)
	}
	return len(name) + 1
}
