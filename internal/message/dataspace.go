package message

import "github.com/robert-malhotra/go-nix/internal/binary"

// SpaceType of a dataspace.
type SpaceType uint8

const (
	SpaceScalar SpaceType = 0
	SpaceSimple SpaceType = 1
	SpaceNull   SpaceType = 2
)

// Dataspace is the dataspace message (0x0001).
type Dataspace struct {
	SpaceType SpaceType
	Dims      []uint64
	MaxDims   []uint64
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NumElements returns the element count. A scalar space holds one.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case SpaceNull:
		return 0
	case SpaceScalar:
		return 1
	}
	n := uint64(1)
	for _, d := range m.Dims {
		n *= d
	}
	return n
}

func parseDataspace(c *cursor) (*Dataspace, error) {
	version := c.u8()
	rank := int(c.u8())
	flags := c.u8()
	m := &Dataspace{SpaceType: SpaceSimple}
	if version == 1 {
		c.skip(5)
		if rank == 0 {
			m.SpaceType = SpaceScalar
		}
	} else {
		m.SpaceType = SpaceType(c.u8())
	}
	for i := 0; i < rank; i++ {
		m.Dims = append(m.Dims, c.length())
	}
	if flags&0x01 != 0 {
		for i := 0; i < rank; i++ {
			m.MaxDims = append(m.MaxDims, c.length())
		}
	}
	return m, c.err
}

// NewDataspace returns a simple dataspace, or a scalar one when dims is
// nil.
func NewDataspace(dims []uint64) *Dataspace {
	if dims == nil {
		return &Dataspace{SpaceType: SpaceScalar}
	}
	return &Dataspace{SpaceType: SpaceSimple, Dims: dims}
}

// Serialize writes a version 2 dataspace.
func (m *Dataspace) Serialize(w *binary.Writer) error {
	var flags uint8
	if len(m.MaxDims) > 0 {
		flags = 1
	}
	if err := w.WriteBytes([]byte{2, uint8(len(m.Dims)), flags, uint8(m.SpaceType)}); err != nil {
		return err
	}
	for _, d := range m.Dims {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	for _, d := range m.MaxDims {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	return nil
}

func (m *Dataspace) SerializedSize(cfg binary.Config) int {
	return 4 + (len(m.Dims)+len(m.MaxDims))*cfg.LengthSize
}
