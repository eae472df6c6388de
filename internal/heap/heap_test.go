package heap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-nix/internal/binary"
)

func TestWriterCache(t *testing.T) {
	cfg := binary.DefaultConfig()
	next := uint64(64)
	alloc := func(size int) uint64 {
		addr := next
		next += uint64(size)
		return addr
	}
	w := NewWriter(cfg, alloc)
	a := w.Add([]byte("time"))
	b := w.Add([]byte("voltage"))
	big := w.Add([]byte(strings.Repeat("x", CollectionSize)))
	c := w.Add([]byte("after"))

	assert.Equal(t, a.Collection, b.Collection)
	assert.Equal(t, uint32(2), b.Index)
	assert.NotEqual(t, a.Collection, big.Collection)
	assert.Equal(t, a.Collection, c.Collection, "small objects keep filling the open collection")

	buf := binary.NewBuffer(nil)
	require.NoError(t, w.Flush(binary.NewWriter(buf, cfg)))
	assert.Equal(t, int(next), buf.Len())

	cache := NewCache(binary.NewReader(buf, cfg))
	got, err := cache.Object(b)
	require.NoError(t, err)
	assert.Equal(t, "voltage", string(got))
	got, err = cache.Object(big)
	require.NoError(t, err)
	assert.Len(t, got, CollectionSize)
	got, err = cache.Object(c)
	require.NoError(t, err)
	assert.Equal(t, "after", string(got))

	_, err = cache.Object(ID{Collection: a.Collection, Index: 99})
	assert.Error(t, err)
}

func TestIDEncoding(t *testing.T) {
	cfg := binary.DefaultConfig()
	raw := EncodeID(cfg, 5, ID{Collection: 4096, Index: 3})
	assert.Len(t, raw, 16)
	n, id, err := DecodeID(cfg, raw)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, ID{Collection: 4096, Index: 3}, id)

	_, _, err = DecodeID(cfg, raw[:10])
	assert.Error(t, err)
}

func TestFractalRoundTrip(t *testing.T) {
	cfg := binary.DefaultConfig()
	next := uint64(64)
	alloc := func(size int) uint64 {
		addr := next
		next += uint64(size)
		return addr
	}
	objs := [][]byte{[]byte("signal"), []byte(strings.Repeat("v", 700)), []byte("t")}
	buf := binary.NewBuffer(nil)
	addr, ids, err := WriteFractal(binary.NewWriter(buf, cfg), alloc, objs, 7)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Len(t, ids[0], 7)

	fh, err := OpenFractal(binary.NewReader(buf, cfg), addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), fh.StartBlock)
	assert.Equal(t, 0, fh.RootRows)
	for i, id := range ids {
		got, err := fh.Object(id)
		require.NoError(t, err)
		assert.Equal(t, objs[i], got)
	}

	_, _, err = WriteFractal(binary.NewWriter(buf, cfg), alloc, objs, 4)
	assert.Error(t, err, "IDs too short for the heap offsets")
}

// writeFractalHeader writes an unfiltered heap header with a 512 byte
// starting block, four columns and 32-bit heap offsets.
func writeFractalHeader(t *testing.T, w *binary.Writer, maxDirect, root uint64, rootRows uint16) {
	t.Helper()
	require.NoError(t, w.WriteBytes([]byte{'F', 'R', 'H', 'P', 0}))
	require.NoError(t, w.WriteUint16(7))
	require.NoError(t, w.WriteUint16(0))
	require.NoError(t, w.WriteUint8(0))
	require.NoError(t, w.WriteUint32(4096))
	for n := 0; n < 10; n++ {
		require.NoError(t, w.WriteLength(0))
	}
	require.NoError(t, w.WriteUndefined())
	require.NoError(t, w.WriteUndefined())
	require.NoError(t, w.WriteUint16(4))
	require.NoError(t, w.WriteLength(512))
	require.NoError(t, w.WriteLength(maxDirect))
	require.NoError(t, w.WriteUint16(32))
	require.NoError(t, w.WriteUint16(rootRows))
	require.NoError(t, w.WriteOffset(root))
	require.NoError(t, w.WriteUint16(rootRows))
	require.NoError(t, w.WriteUint32(0))
}

func managedID(off uint32, n uint16) []byte {
	id := []byte{0}
	id = append(id, binary.EncodeUint(uint64(off), 4, binary.DefaultConfig().ByteOrder)...)
	return append(id, binary.EncodeUint(uint64(n), 2, binary.DefaultConfig().ByteOrder)...)
}

func writeIndirect(t *testing.T, w *binary.Writer, heapAddr uint64, blockOffset uint32, entries []uint64) {
	t.Helper()
	require.NoError(t, w.WriteBytes([]byte{'F', 'H', 'I', 'B', 0}))
	require.NoError(t, w.WriteOffset(heapAddr))
	require.NoError(t, w.WriteUint32(blockOffset))
	for _, e := range entries {
		require.NoError(t, w.WriteOffset(e))
	}
	require.NoError(t, w.WriteUint32(0))
}

func TestFractalIndirectBlocks(t *testing.T) {
	cfg := binary.DefaultConfig()
	buf := binary.NewBuffer(nil)
	w := binary.NewWriter(buf, cfg)
	undef := binary.Undefined(cfg.OffsetSize)

	// Root rows 0 to 2 hold direct blocks of 512, 512 and 1024 bytes.
	// Row 3 holds 2048 byte indirect blocks of one row each.
	root := make([]uint64, 16)
	for i := range root {
		root[i] = undef
	}
	root[2] = 0x1000  // heap offsets 1024 to 1535
	root[13] = 0x3000 // heap offsets 10240 to 12287
	writeFractalHeader(t, w.At(0), 1024, 0x800, 4)
	writeIndirect(t, w.At(0x800), 0, 0, root)
	writeIndirect(t, w.At(0x3000), 0, 10240, []uint64{0x4000, undef, undef, undef})

	require.NoError(t, w.At(0x1000+40).WriteBytes([]byte("in a direct row")))
	require.NoError(t, w.At(0x4000+100).WriteBytes([]byte("below an indirect row")))

	fh, err := OpenFractal(binary.NewReader(buf, cfg), 0)
	require.NoError(t, err)
	got, err := fh.Object(managedID(1024+40, 15))
	require.NoError(t, err)
	assert.Equal(t, "in a direct row", string(got))
	got, err = fh.Object(managedID(10240+100, 21))
	require.NoError(t, err)
	assert.Equal(t, "below an indirect row", string(got))

	_, err = fh.Object(managedID(600, 4))
	assert.Error(t, err, "offset in an unallocated block")

	got, err = fh.Object([]byte{0x20 | 2, 'a', 'b', 'c', 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	_, err = fh.Object([]byte{0x10, 0, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrHugeObject)
}
