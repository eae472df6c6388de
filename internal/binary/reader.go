// Package binary provides the positioned little-endian readers and writers
// used by the HDF5 codec. Offsets and lengths are variable-width, sized by
// the superblock.
package binary

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Config holds the sizing parameters read from the superblock.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int
	LengthSize int
}

// DefaultConfig is the layout every file written by this module uses.
func DefaultConfig() Config {
	return Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}
}

// Reader reads fixed-width values from an io.ReaderAt, advancing its own
// position. Readers are cheap and are forked with At.
type Reader struct {
	r   io.ReaderAt
	pos int64
	cfg Config
}

// NewReader returns a reader positioned at zero.
func NewReader(r io.ReaderAt, cfg Config) *Reader {
	if cfg.ByteOrder == nil {
		cfg.ByteOrder = binary.LittleEndian
	}
	return &Reader{r: r, cfg: cfg}
}

// At returns a new reader over the same source positioned at offset.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{r: r.r, pos: offset, cfg: r.cfg}
}

// Pos returns the current position.
func (r *Reader) Pos() int64 { return r.pos }

// Config returns the reader's sizing parameters.
func (r *Reader) Config() Config { return r.cfg }

// OffsetSize returns the width of a file address.
func (r *Reader) OffsetSize() int { return r.cfg.OffsetSize }

// LengthSize returns the width of a length field.
func (r *Reader) LengthSize() int { return r.cfg.LengthSize }

// ByteOrder returns the byte order.
func (r *Reader) ByteOrder() binary.ByteOrder { return r.cfg.ByteOrder }

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read length %d", n)
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := r.r.ReadAt(buf, r.pos); err != nil {
		return nil, fmt.Errorf("read %d bytes at %d: %w", n, r.pos, err)
	}
	r.pos += int64(n)
	return buf, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return r.cfg.ByteOrder.Uint16(b), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.cfg.ByteOrder.Uint32(b), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return r.cfg.ByteOrder.Uint64(b), nil
}

// ReadUintN reads an unsigned integer of n bytes (1..8).
func (r *Reader) ReadUintN(n int) (uint64, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return DecodeUint(b, n, r.cfg.ByteOrder), nil
}

// ReadOffset reads a file address.
func (r *Reader) ReadOffset() (uint64, error) { return r.ReadUintN(r.cfg.OffsetSize) }

// ReadLength reads a length field.
func (r *Reader) ReadLength() (uint64, error) { return r.ReadUintN(r.cfg.LengthSize) }

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) { r.pos += n }

// IsUndefined reports whether addr is the all-ones undefined address for
// the configured offset size.
func (r *Reader) IsUndefined(addr uint64) bool {
	return addr == Undefined(r.cfg.OffsetSize)
}

// Undefined returns the undefined address for an offset width.
func Undefined(size int) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (8 * uint(size))) - 1
}

// DecodeUint decodes a size-byte unsigned integer.
func DecodeUint(b []byte, size int, order binary.ByteOrder) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	case 8:
		return order.Uint64(b)
	}
	var v uint64
	if order == binary.BigEndian {
		for i := 0; i < size; i++ {
			v = v<<8 | uint64(b[i])
		}
		return v
	}
	for i := size - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
