package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/heap"
)

func nodeHeader(t *testing.T, w *binary.Writer, kind uint8, entries uint16) {
	t.Helper()
	require.NoError(t, w.WriteBytes([]byte("TREE")))
	require.NoError(t, w.WriteBytes([]byte{kind, 0}))
	require.NoError(t, w.WriteUint16(entries))
	require.NoError(t, w.WriteUndefined())
	require.NoError(t, w.WriteUndefined())
}

func TestGroupEntries(t *testing.T) {
	cfg := binary.DefaultConfig()
	buf := binary.NewBuffer(nil)
	w := binary.NewWriter(buf, cfg)

	names := make([]byte, 40)
	copy(names[8:], "alpha")
	copy(names[16:], "beta")
	copy(names[24:], "/data/alpha")
	require.NoError(t, w.WriteBytes(names))

	hw := w.At(100)
	require.NoError(t, hw.WriteBytes([]byte{'H', 'E', 'A', 'P', 0, 0, 0, 0}))
	require.NoError(t, hw.WriteLength(40))
	require.NoError(t, hw.WriteUndefined())
	require.NoError(t, hw.WriteOffset(0))

	sw := w.At(200)
	require.NoError(t, sw.WriteBytes([]byte{'S', 'N', 'O', 'D', 1, 0}))
	require.NoError(t, sw.WriteUint16(2))
	require.NoError(t, sw.WriteOffset(8))
	require.NoError(t, sw.WriteOffset(0x500))
	require.NoError(t, sw.WriteZeros(24))
	require.NoError(t, sw.WriteOffset(16))
	require.NoError(t, sw.WriteUndefined())
	require.NoError(t, sw.WriteUint32(2))
	require.NoError(t, sw.WriteZeros(4))
	require.NoError(t, sw.WriteUint32(24))
	require.NoError(t, sw.WriteZeros(12))

	tw := w.At(400)
	nodeHeader(t, tw, nodeGroup, 1)
	require.NoError(t, tw.WriteLength(0))
	require.NoError(t, tw.WriteOffset(200))
	require.NoError(t, tw.WriteLength(16))

	r := binary.NewReader(buf, cfg)
	lh, err := heap.ReadLocal(r, 100)
	require.NoError(t, err)
	entries, err := GroupEntries(r, 400, lh)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Name: "alpha", Address: 0x500}, entries[0])
	assert.True(t, entries[1].Soft)
	assert.Equal(t, "/data/alpha", entries[1].Target)
}

func TestChunks(t *testing.T) {
	cfg := binary.DefaultConfig()
	buf := binary.NewBuffer(nil)
	w := binary.NewWriter(buf, cfg)
	nodeHeader(t, w, nodeChunk, 2)
	for i, addr := range []uint64{0x1000, 0x2000} {
		require.NoError(t, w.WriteUint32(80))
		require.NoError(t, w.WriteUint32(0))
		require.NoError(t, w.WriteUint64(uint64(i*10)))
		require.NoError(t, w.WriteUint64(0))
		require.NoError(t, w.WriteOffset(addr))
	}
	require.NoError(t, w.WriteZeros(24))

	chunks, err := Chunks(binary.NewReader(buf, cfg), 0, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, []uint64{10}, chunks[1].Offset)
	assert.Equal(t, uint64(0x2000), chunks[1].Address)
	assert.Equal(t, uint32(80), chunks[0].Size)
}

func TestWrongNodeType(t *testing.T) {
	cfg := binary.DefaultConfig()
	buf := binary.NewBuffer(nil)
	nodeHeader(t, binary.NewWriter(buf, cfg), nodeChunk, 0)
	_, err := GroupEntries(binary.NewReader(buf, cfg), 0, nil)
	assert.Error(t, err)
}
