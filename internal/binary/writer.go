package binary

import (
	"encoding/binary"
	"io"
)

// Writer writes fixed-width values to an io.WriterAt.
type Writer struct {
	w   io.WriterAt
	pos int64
	cfg Config
}

// NewWriter returns a writer positioned at zero.
func NewWriter(w io.WriterAt, cfg Config) *Writer {
	if cfg.ByteOrder == nil {
		cfg.ByteOrder = binary.LittleEndian
	}
	return &Writer{w: w, cfg: cfg}
}

// At returns a writer over the same sink positioned at offset.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{w: w.w, pos: offset, cfg: w.cfg}
}

func (w *Writer) Pos() int64                  { return w.pos }
func (w *Writer) Config() Config              { return w.cfg }
func (w *Writer) OffsetSize() int             { return w.cfg.OffsetSize }
func (w *Writer) LengthSize() int             { return w.cfg.LengthSize }
func (w *Writer) ByteOrder() binary.ByteOrder { return w.cfg.ByteOrder }

func (w *Writer) WriteBytes(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	n, err := w.w.WriteAt(p, w.pos)
	w.pos += int64(n)
	return err
}

func (w *Writer) WriteUint8(v uint8) error { return w.WriteBytes([]byte{v}) }

func (w *Writer) WriteUint16(v uint16) error {
	b := make([]byte, 2)
	w.cfg.ByteOrder.PutUint16(b, v)
	return w.WriteBytes(b)
}

func (w *Writer) WriteUint32(v uint32) error {
	b := make([]byte, 4)
	w.cfg.ByteOrder.PutUint32(b, v)
	return w.WriteBytes(b)
}

func (w *Writer) WriteUint64(v uint64) error {
	b := make([]byte, 8)
	w.cfg.ByteOrder.PutUint64(b, v)
	return w.WriteBytes(b)
}

// WriteUintN writes v using n bytes.
func (w *Writer) WriteUintN(v uint64, n int) error {
	return w.WriteBytes(EncodeUint(v, n, w.cfg.ByteOrder))
}

func (w *Writer) WriteOffset(v uint64) error { return w.WriteUintN(v, w.cfg.OffsetSize) }
func (w *Writer) WriteLength(v uint64) error { return w.WriteUintN(v, w.cfg.LengthSize) }

// WriteUndefined writes the undefined address.
func (w *Writer) WriteUndefined() error {
	return w.WriteOffset(Undefined(w.cfg.OffsetSize))
}

// WriteZeros writes n zero bytes.
func (w *Writer) WriteZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.WriteBytes(make([]byte, n))
}

// EncodeUint encodes v into size bytes.
func EncodeUint(v uint64, size int, order binary.ByteOrder) []byte {
	b := make([]byte, size)
	if order == binary.BigEndian {
		for i := size - 1; i >= 0; i-- {
			b[i] = byte(v)
			v >>= 8
		}
		return b
	}
	for i := 0; i < size; i++ {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// Buffer is a growable in-memory io.WriterAt and io.ReaderAt. Whole files
// are assembled in a Buffer before they are written out.
type Buffer struct {
	buf []byte
}

// NewBuffer wraps b. The buffer takes ownership of b.
func NewBuffer(b []byte) *Buffer { return &Buffer{buf: b} }

func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(b.buf) {
		if end > cap(b.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, b.buf)
			b.buf = grown
		} else {
			b.buf = b.buf[:end]
		}
	}
	copy(b.buf[off:], p)
	return len(p), nil
}

func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.buf)) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Bytes returns the buffer contents.
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int { return len(b.buf) }
