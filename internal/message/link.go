package message

import (
	"fmt"

	"github.com/robert-malhotra/go-nix/internal/binary"
)

// LinkType distinguishes hard, soft and external links.
type LinkType uint8

const (
	LinkHard     LinkType = 0
	LinkSoft     LinkType = 1
	LinkExternal LinkType = 64
)

// Link is the link message (0x0006) stored in new-style groups.
type Link struct {
	Name          string
	LinkType      LinkType
	CreationOrder uint64
	HasOrder      bool
	Address       uint64
	Target        string
	ExternalFile  string
}

func (m *Link) Type() Type { return TypeLink }

func parseLink(c *cursor) (*Link, error) {
	if v := c.u8(); v != 1 && c.err == nil {
		return nil, fmt.Errorf("unsupported link message version %d", v)
	}
	flags := c.u8()
	m := &Link{}
	if flags&0x08 != 0 {
		m.LinkType = LinkType(c.u8())
	}
	if flags&0x04 != 0 {
		m.CreationOrder = c.u64()
		m.HasOrder = true
	}
	if flags&0x10 != 0 {
		c.skip(1)
	}
	nameLen := c.uintN(1 << (flags & 0x03))
	m.Name = string(c.bytes(int(nameLen)))

	switch m.LinkType {
	case LinkHard:
		m.Address = c.offset()
	case LinkSoft:
		m.Target = string(c.bytes(int(c.u16())))
	case LinkExternal:
		info := c.bytes(int(c.u16()))
		if len(info) > 1 {
			parts := splitNUL(info[1:])
			if len(parts) > 0 {
				m.ExternalFile = parts[0]
			}
			if len(parts) > 1 {
				m.Target = parts[1]
			}
		}
	default:
		c.skip(int(c.u16()))
	}
	return m, c.err
}

func splitNUL(b []byte) []string {
	var out []string
	start := 0
	for i, x := range b {
		if x == 0 {
			out = append(out, string(b[start:i]))
			start = i + 1
		}
	}
	if start < len(b) {
		out = append(out, string(b[start:]))
	}
	return out
}

func (m *Link) nameLenSize() (int, uint8) {
	switch n := len(m.Name); {
	case n < 1<<8:
		return 1, 0
	case n < 1<<16:
		return 2, 1
	default:
		return 4, 2
	}
}

// Serialize writes the link with its creation order and a UTF-8 name.
func (m *Link) Serialize(w *binary.Writer) error {
	size, bits := m.nameLenSize()
	flags := bits | 0x04 | 0x10
	if m.LinkType != LinkHard {
		flags |= 0x08
	}
	if err := w.WriteBytes([]byte{1, flags}); err != nil {
		return err
	}
	if m.LinkType != LinkHard {
		if err := w.WriteUint8(uint8(m.LinkType)); err != nil {
			return err
		}
	}
	if err := w.WriteUint64(m.CreationOrder); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(CharsetUTF8)); err != nil {
		return err
	}
	if err := w.WriteUintN(uint64(len(m.Name)), size); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte(m.Name)); err != nil {
		return err
	}
	switch m.LinkType {
	case LinkHard:
		return w.WriteOffset(m.Address)
	case LinkSoft:
		if err := w.WriteUint16(uint16(len(m.Target))); err != nil {
			return err
		}
		return w.WriteBytes([]byte(m.Target))
	}
	return fmt.Errorf("cannot serialize link type %d", m.LinkType)
}

func (m *Link) SerializedSize(cfg binary.Config) int {
	size, _ := m.nameLenSize()
	n := 2 + 8 + 1 + size + len(m.Name)
	if m.LinkType != LinkHard {
		n++
	}
	if m.LinkType == LinkSoft {
		n += 2 + len(m.Target)
	} else {
		n += cfg.OffsetSize
	}
	return n
}

// LinkInfo is the link info message (0x0002).
type LinkInfo struct {
	Flags            uint8
	MaxCreationIndex uint64
	FractalHeap      uint64
	NameIndex        uint64
	OrderIndex       uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// NewLinkInfo returns a link info for compact storage with creation order
// tracked and indexed.
func NewLinkInfo(maxIndex uint64) *LinkInfo {
	undef := ^uint64(0)
	return &LinkInfo{Flags: 0x03, MaxCreationIndex: maxIndex, FractalHeap: undef, NameIndex: undef, OrderIndex: undef}
}

func parseLinkInfo(c *cursor) (*LinkInfo, error) {
	c.skip(1)
	m := &LinkInfo{Flags: c.u8()}
	if m.Flags&0x01 != 0 {
		m.MaxCreationIndex = c.u64()
	}
	m.FractalHeap = c.offset()
	m.NameIndex = c.offset()
	if m.Flags&0x02 != 0 {
		m.OrderIndex = c.offset()
	}
	return m, c.err
}

func (m *LinkInfo) Serialize(w *binary.Writer) error {
	if err := w.WriteBytes([]byte{0, m.Flags}); err != nil {
		return err
	}
	if m.Flags&0x01 != 0 {
		if err := w.WriteUint64(m.MaxCreationIndex); err != nil {
			return err
		}
	}
	addrs := []uint64{m.FractalHeap, m.NameIndex}
	if m.Flags&0x02 != 0 {
		addrs = append(addrs, m.OrderIndex)
	}
	for _, a := range addrs {
		if a == ^uint64(0) {
			if err := w.WriteUndefined(); err != nil {
				return err
			}
		} else if err := w.WriteOffset(a); err != nil {
			return err
		}
	}
	return nil
}

func (m *LinkInfo) SerializedSize(cfg binary.Config) int {
	n := 2 + 2*cfg.OffsetSize
	if m.Flags&0x01 != 0 {
		n += 8
	}
	if m.Flags&0x02 != 0 {
		n += cfg.OffsetSize
	}
	return n
}

// GroupInfo is the group info message (0x000A).
type GroupInfo struct {
	Flags      uint8
	MaxCompact uint16
	MinDense   uint16
	EstEntries uint16
	EstNameLen uint16
}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

func parseGroupInfo(c *cursor) (*GroupInfo, error) {
	c.skip(1)
	m := &GroupInfo{Flags: c.u8()}
	if m.Flags&0x01 != 0 {
		m.MaxCompact = c.u16()
		m.MinDense = c.u16()
	}
	if m.Flags&0x02 != 0 {
		m.EstEntries = c.u16()
		m.EstNameLen = c.u16()
	}
	return m, c.err
}

func (m *GroupInfo) Serialize(w *binary.Writer) error {
	if err := w.WriteBytes([]byte{0, m.Flags}); err != nil {
		return err
	}
	if m.Flags&0x01 != 0 {
		if err := w.WriteUint16(m.MaxCompact); err != nil {
			return err
		}
		if err := w.WriteUint16(m.MinDense); err != nil {
			return err
		}
	}
	if m.Flags&0x02 != 0 {
		if err := w.WriteUint16(m.EstEntries); err != nil {
			return err
		}
		return w.WriteUint16(m.EstNameLen)
	}
	return nil
}

func (m *GroupInfo) SerializedSize(binary.Config) int {
	n := 2
	if m.Flags&0x01 != 0 {
		n += 4
	}
	if m.Flags&0x02 != 0 {
		n += 4
	}
	return n
}
