package message

import "github.com/robert-malhotra/go-nix/internal/binary"

// Well-known filter identifiers.
const (
	FilterDeflate    uint16 = 1
	FilterShuffle    uint16 = 2
	FilterFletcher32 uint16 = 3
	FilterSZIP       uint16 = 4
	FilterNBit       uint16 = 5
	FilterScale      uint16 = 6
)

// FilterInfo describes one stage of a filter pipeline.
type FilterInfo struct {
	ID         uint16
	Name       string
	Flags      uint16
	ClientData []uint32
}

// Optional reports whether the filter may be skipped when unavailable.
func (f FilterInfo) Optional() bool { return f.Flags&0x01 != 0 }

// FilterPipeline is the filter pipeline message (0x000B).
type FilterPipeline struct {
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

func parseFilterPipeline(c *cursor) (*FilterPipeline, error) {
	version := c.u8()
	n := int(c.u8())
	if version == 1 {
		c.skip(6)
	}
	m := &FilterPipeline{}
	for i := 0; i < n && c.err == nil; i++ {
		var f FilterInfo
		f.ID = c.u16()
		nameLen := 0
		if version == 1 || f.ID >= 256 {
			nameLen = int(c.u16())
		}
		f.Flags = c.u16()
		values := int(c.u16())
		if nameLen > 0 {
			name := c.bytes(nameLen)
			for j, b := range name {
				if b == 0 {
					name = name[:j]
					break
				}
			}
			f.Name = string(name)
		}
		for j := 0; j < values; j++ {
			f.ClientData = append(f.ClientData, c.u32())
		}
		if version == 1 && values%2 == 1 {
			c.skip(4)
		}
		m.Filters = append(m.Filters, f)
	}
	return m, c.err
}

// NewDeflatePipeline returns a pipeline with a single deflate stage.
func NewDeflatePipeline(level int) *FilterPipeline {
	return &FilterPipeline{Filters: []FilterInfo{{ID: FilterDeflate, ClientData: []uint32{uint32(level)}}}}
}

// Serialize writes a version 2 pipeline. Only registered filters below 256
// are written, so no names are stored.
func (m *FilterPipeline) Serialize(w *binary.Writer) error {
	if err := w.WriteBytes([]byte{2, uint8(len(m.Filters))}); err != nil {
		return err
	}
	for _, f := range m.Filters {
		for _, v := range []uint16{f.ID, f.Flags, uint16(len(f.ClientData))} {
			if err := w.WriteUint16(v); err != nil {
				return err
			}
		}
		for _, v := range f.ClientData {
			if err := w.WriteUint32(v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *FilterPipeline) SerializedSize(binary.Config) int {
	n := 2
	for _, f := range m.Filters {
		n += 6 + 4*len(f.ClientData)
	}
	return n
}

// FillValue is the fill value message (0x0005).
type FillValue struct {
	AllocTime uint8
	FillTime  uint8
	Defined   bool
	Value     []byte
}

func (m *FillValue) Type() Type { return TypeFillValue }

func parseFillValue(c *cursor) (*FillValue, error) {
	version := c.u8()
	m := &FillValue{}
	if version < 3 {
		m.AllocTime = c.u8()
		m.FillTime = c.u8()
		m.Defined = c.u8() != 0
		if m.Defined && c.remaining() >= 4 {
			m.Value = c.bytes(int(c.u32()))
		}
		return m, c.err
	}
	flags := c.u8()
	m.AllocTime = flags & 0x03
	m.FillTime = (flags >> 2) & 0x03
	if flags&0x20 != 0 {
		m.Defined = true
		m.Value = c.bytes(int(c.u32()))
	}
	return m, c.err
}

// NewFillValue returns a fill value with early allocation and no user
// value.
func NewFillValue() *FillValue {
	return &FillValue{AllocTime: 1, FillTime: 2}
}

func (m *FillValue) Serialize(w *binary.Writer) error {
	flags := m.AllocTime&0x03 | (m.FillTime&0x03)<<2
	if !m.Defined {
		return w.WriteBytes([]byte{3, flags})
	}
	if err := w.WriteBytes([]byte{3, flags | 0x20}); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(len(m.Value))); err != nil {
		return err
	}
	return w.WriteBytes(m.Value)
}

func (m *FillValue) SerializedSize(binary.Config) int {
	if !m.Defined {
		return 2
	}
	return 6 + len(m.Value)
}
