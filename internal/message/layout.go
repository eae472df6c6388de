package message

import (
	"fmt"

	"github.com/robert-malhotra/go-nix/internal/binary"
)

// LayoutClass is the storage class of a dataset.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

// ChunkIndex is the chunk indexing scheme of a version 4 layout.
type ChunkIndex uint8

const (
	IndexBTreeV1     ChunkIndex = 0
	IndexSingleChunk ChunkIndex = 1
	IndexImplicit    ChunkIndex = 2
	IndexFixedArray  ChunkIndex = 3
	IndexExtensible  ChunkIndex = 4
	IndexBTreeV2     ChunkIndex = 5
)

// DataLayout is the data layout message (0x0008).
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	CompactData []byte

	Address uint64
	Size    uint64

	// ChunkDims excludes the trailing element-size dimension.
	ChunkDims  []uint64
	ElemSize   uint64
	Index      ChunkIndex
	IndexAddr  uint64
	Filtered   bool
	ChunkSize  uint64
	FilterMask uint32
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

func parseDataLayout(c *cursor) (*DataLayout, error) {
	m := &DataLayout{Version: c.u8()}
	switch m.Version {
	case 1, 2:
		return parseLayoutV1(c, m)
	case 3, 4:
		return parseLayoutV3(c, m)
	}
	return nil, fmt.Errorf("unsupported layout version %d", m.Version)
}

func parseLayoutV1(c *cursor, m *DataLayout) (*DataLayout, error) {
	rank := int(c.u8())
	m.Class = LayoutClass(c.u8())
	c.skip(5)
	if m.Class != LayoutCompact {
		m.Address = c.offset()
	}
	for i := 0; i < rank; i++ {
		m.ChunkDims = append(m.ChunkDims, uint64(c.u32()))
	}
	switch m.Class {
	case LayoutCompact:
		c.skip(4)
		m.CompactData = c.bytes(c.remaining())
	case LayoutChunked:
		m.Index = IndexBTreeV1
		m.IndexAddr = m.Address
		m.ElemSize, m.ChunkDims = splitElemSize(m.ChunkDims)
	}
	return m, c.err
}

func parseLayoutV3(c *cursor, m *DataLayout) (*DataLayout, error) {
	m.Class = LayoutClass(c.u8())
	switch m.Class {
	case LayoutCompact:
		m.CompactData = c.bytes(int(c.u16()))
	case LayoutContiguous:
		m.Address = c.offset()
		m.Size = c.length()
	case LayoutChunked:
		if m.Version == 3 {
			rank := int(c.u8())
			m.IndexAddr = c.offset()
			for i := 0; i < rank; i++ {
				m.ChunkDims = append(m.ChunkDims, uint64(c.u32()))
			}
			m.ElemSize, m.ChunkDims = splitElemSize(m.ChunkDims)
			m.Index = IndexBTreeV1
			return m, c.err
		}
		flags := c.u8()
		rank := int(c.u8())
		width := int(c.u8())
		for i := 0; i < rank; i++ {
			m.ChunkDims = append(m.ChunkDims, c.uintN(width))
		}
		m.ElemSize, m.ChunkDims = splitElemSize(m.ChunkDims)
		m.Index = ChunkIndex(c.u8())
		switch m.Index {
		case IndexSingleChunk:
			if flags&0x02 != 0 {
				m.Filtered = true
				m.ChunkSize = c.length()
				m.FilterMask = c.u32()
			}
		case IndexImplicit, IndexBTreeV1:
		case IndexFixedArray:
			c.skip(1)
		case IndexExtensible:
			c.skip(5)
		case IndexBTreeV2:
			c.skip(6)
		default:
			return nil, fmt.Errorf("unknown chunk index type %d", m.Index)
		}
		m.IndexAddr = c.offset()
	case LayoutVirtual:
		return nil, fmt.Errorf("virtual datasets are not supported")
	default:
		return nil, fmt.Errorf("unknown layout class %d", m.Class)
	}
	return m, c.err
}

func splitElemSize(dims []uint64) (uint64, []uint64) {
	if len(dims) == 0 {
		return 0, dims
	}
	return dims[len(dims)-1], dims[:len(dims)-1]
}

// NewContiguous returns a version 3 contiguous layout.
func NewContiguous(addr, size uint64) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutContiguous, Address: addr, Size: size}
}

// NewSingleChunk returns a version 4 chunked layout whose only chunk spans
// the whole dataset. A filtered chunk records its stored size.
func NewSingleChunk(dims []uint64, elemSize int, addr uint64, stored uint64, filtered bool) *DataLayout {
	chunk := make([]uint64, 0, len(dims))
	for _, d := range dims {
		chunk = append(chunk, max(d, 1))
	}
	return &DataLayout{
		Version:   4,
		Class:     LayoutChunked,
		ChunkDims: chunk,
		ElemSize:  uint64(elemSize),
		Index:     IndexSingleChunk,
		IndexAddr: addr,
		Filtered:  filtered,
		ChunkSize: stored,
	}
}

func (m *DataLayout) dimWidth() int {
	biggest := m.ElemSize
	for _, d := range m.ChunkDims {
		biggest = max(biggest, d)
	}
	switch {
	case biggest < 1<<8:
		return 1
	case biggest < 1<<16:
		return 2
	case biggest < 1<<32:
		return 4
	}
	return 8
}

func (m *DataLayout) Serialize(w *binary.Writer) error {
	if err := w.WriteBytes([]byte{m.Version, uint8(m.Class)}); err != nil {
		return err
	}
	switch m.Class {
	case LayoutContiguous:
		if err := w.WriteOffset(m.Address); err != nil {
			return err
		}
		return w.WriteLength(m.Size)
	case LayoutChunked:
		var flags uint8
		if m.Filtered {
			flags = 0x02
		}
		width := m.dimWidth()
		if err := w.WriteBytes([]byte{flags, uint8(len(m.ChunkDims) + 1), uint8(width)}); err != nil {
			return err
		}
		for _, d := range append(append([]uint64(nil), m.ChunkDims...), m.ElemSize) {
			if err := w.WriteUintN(d, width); err != nil {
				return err
			}
		}
		if err := w.WriteUint8(uint8(IndexSingleChunk)); err != nil {
			return err
		}
		if m.Filtered {
			if err := w.WriteLength(m.ChunkSize); err != nil {
				return err
			}
			if err := w.WriteUint32(m.FilterMask); err != nil {
				return err
			}
		}
		return w.WriteOffset(m.IndexAddr)
	}
	return fmt.Errorf("cannot serialize layout class %d", m.Class)
}

func (m *DataLayout) SerializedSize(cfg binary.Config) int {
	switch m.Class {
	case LayoutContiguous:
		return 2 + cfg.OffsetSize + cfg.LengthSize
	case LayoutChunked:
		n := 2 + 3 + (len(m.ChunkDims)+1)*m.dimWidth() + 1 + cfg.OffsetSize
		if m.Filtered {
			n += cfg.LengthSize + 4
		}
		return n
	}
	return 2
}
