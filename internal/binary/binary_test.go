package binary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	buf := NewBuffer(nil)
	w := NewWriter(buf, DefaultConfig())

	require.NoError(t, w.WriteUint8(0x7f))
	require.NoError(t, w.WriteUint16(0xbeef))
	require.NoError(t, w.WriteUint32(0xdeadbeef))
	require.NoError(t, w.WriteOffset(0x0102030405060708))
	require.NoError(t, w.WriteUintN(0x0a0b0c, 3))
	require.NoError(t, w.WriteUndefined())
	assert.Equal(t, int64(1+2+4+8+3+8), w.Pos())

	r := NewReader(buf, DefaultConfig())
	u8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x7f), u8)
	u16, _ := r.ReadUint16()
	assert.Equal(t, uint16(0xbeef), u16)
	u32, _ := r.ReadUint32()
	assert.Equal(t, uint32(0xdeadbeef), u32)
	off, _ := r.ReadOffset()
	assert.Equal(t, uint64(0x0102030405060708), off)
	n3, _ := r.ReadUintN(3)
	assert.Equal(t, uint64(0x0a0b0c), n3)
	undef, _ := r.ReadOffset()
	assert.True(t, r.IsUndefined(undef))

	_, err = r.ReadBytes(1)
	assert.Error(t, err)
}

func TestBufferWriteAtGrows(t *testing.T) {
	buf := NewBuffer(nil)
	_, err := buf.WriteAt([]byte{1, 2}, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, buf.Len())
	assert.Equal(t, byte(0), buf.Bytes()[0])
	assert.Equal(t, byte(2), buf.Bytes()[11])

	p := make([]byte, 4)
	n, err := buf.ReadAt(p, 10)
	assert.Equal(t, 2, n)
	assert.Error(t, err)
}

func TestUndefined(t *testing.T) {
	assert.Equal(t, uint64(0xffff), Undefined(2))
	assert.Equal(t, uint64(0xffffffff), Undefined(4))
	assert.Equal(t, ^uint64(0), Undefined(8))
}

func TestChecksums(t *testing.T) {
	assert.Equal(t, uint32(0xdeadbeef), Lookup3(nil))
	for n := 1; n <= 30; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i * 7)
		}
		assert.Equal(t, Lookup3(data), Lookup3(append([]byte(nil), data...)))
		assert.NotEqual(t, Lookup3(data), Lookup3(data[:n-1]), "length %d", n)
	}

	assert.Equal(t, uint32(0), Fletcher32(nil))
	assert.Equal(t, uint32(0x01020102), Fletcher32([]byte{0x01, 0x02}))
	assert.Equal(t, uint32(0x01000100), Fletcher32([]byte{0x01}))
}
