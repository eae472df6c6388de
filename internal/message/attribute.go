package message

import (
	"fmt"

	"github.com/robert-malhotra/go-nix/internal/binary"
)

// Attribute is the attribute message (0x000C). Data holds the raw encoded
// values; variable-length strings are global heap references.
type Attribute struct {
	Name      string
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

func parseAttribute(c *cursor) (*Attribute, error) {
	version := c.u8()
	flags := c.u8()
	nameSize := int(c.u16())
	dtSize := int(c.u16())
	dsSize := int(c.u16())
	if version == 3 {
		c.skip(1)
	}
	if c.err != nil {
		return nil, c.err
	}
	if flags&0x03 != 0 {
		return nil, fmt.Errorf("shared attribute datatypes are not supported")
	}
	pad := func(n int) int {
		if version == 1 {
			return align8(n)
		}
		return n
	}

	name := c.bytes(pad(nameSize))
	if nameSize > 0 && nameSize <= len(name) {
		name = name[:nameSize-1]
	}
	m := &Attribute{Name: string(name)}

	dt, err := decodeDatatype(newCursor(c.bytes(pad(dtSize)), c.cfg))
	if err != nil {
		return nil, fmt.Errorf("attribute %q datatype: %w", m.Name, err)
	}
	m.Datatype = dt

	ds, err := parseDataspace(newCursor(c.bytes(pad(dsSize)), c.cfg))
	if err != nil {
		return nil, fmt.Errorf("attribute %q dataspace: %w", m.Name, err)
	}
	m.Dataspace = ds

	n := int(ds.NumElements()) * int(dt.Size)
	m.Data = c.bytes(n)
	return m, c.err
}

// Serialize writes a version 3 attribute with a UTF-8 name.
func (m *Attribute) Serialize(w *binary.Writer) error {
	cfg := w.Config()
	if err := w.WriteBytes([]byte{3, 0}); err != nil {
		return err
	}
	for _, v := range []int{len(m.Name) + 1, m.Datatype.SerializedSize(cfg), m.Dataspace.SerializedSize(cfg)} {
		if err := w.WriteUint16(uint16(v)); err != nil {
			return err
		}
	}
	if err := w.WriteUint8(uint8(CharsetUTF8)); err != nil {
		return err
	}
	if err := w.WriteBytes(append([]byte(m.Name), 0)); err != nil {
		return err
	}
	if err := m.Datatype.Serialize(w); err != nil {
		return err
	}
	if err := m.Dataspace.Serialize(w); err != nil {
		return err
	}
	return w.WriteBytes(m.Data)
}

func (m *Attribute) SerializedSize(cfg binary.Config) int {
	return 9 + len(m.Name) + 1 + m.Datatype.SerializedSize(cfg) + m.Dataspace.SerializedSize(cfg) + len(m.Data)
}

// AttributeInfo is the attribute info message (0x0015). It locates the
// fractal heap and B-tree indexes of attributes kept in dense storage.
type AttributeInfo struct {
	Flags            uint8
	MaxCreationIndex uint16
	FractalHeap      uint64
	NameIndex        uint64
	OrderIndex       uint64
}

func (m *AttributeInfo) Type() Type { return TypeAttributeInfo }

func parseAttributeInfo(c *cursor) (*AttributeInfo, error) {
	c.skip(1)
	m := &AttributeInfo{Flags: c.u8()}
	if m.Flags&0x01 != 0 {
		m.MaxCreationIndex = c.u16()
	}
	m.FractalHeap = c.offset()
	m.NameIndex = c.offset()
	if m.Flags&0x02 != 0 {
		m.OrderIndex = c.offset()
	}
	return m, c.err
}

func (m *AttributeInfo) Serialize(w *binary.Writer) error {
	if err := w.WriteBytes([]byte{0, m.Flags}); err != nil {
		return err
	}
	if m.Flags&0x01 != 0 {
		if err := w.WriteUint16(m.MaxCreationIndex); err != nil {
			return err
		}
	}
	addrs := []uint64{m.FractalHeap, m.NameIndex}
	if m.Flags&0x02 != 0 {
		addrs = append(addrs, m.OrderIndex)
	}
	for _, a := range addrs {
		if err := w.WriteOffset(a); err != nil {
			return err
		}
	}
	return nil
}

func (m *AttributeInfo) SerializedSize(cfg binary.Config) int {
	n := 2 + 2*cfg.OffsetSize
	if m.Flags&0x01 != 0 {
		n += 2
	}
	if m.Flags&0x02 != 0 {
		n += cfg.OffsetSize
	}
	return n
}
