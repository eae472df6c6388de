package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/filter"
	"github.com/robert-malhotra/go-nix/internal/message"
	"github.com/robert-malhotra/go-nix/internal/object"
)

func header(dims []uint64, lay *message.DataLayout, extra ...message.Message) *object.Header {
	msgs := []message.Message{message.NewDataspace(dims), message.NewInt(1, false), lay}
	return &object.Header{Version: 2, Messages: append(msgs, extra...)}
}

func TestContiguous(t *testing.T) {
	buf := binary.NewBuffer(nil)
	_, err := buf.WriteAt([]byte{1, 2, 3, 4, 5, 6}, 100)
	require.NoError(t, err)
	r := binary.NewReader(buf, binary.DefaultConfig())

	got, err := Read(r, header([]uint64{2, 3}, message.NewContiguous(100, 6)))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, got)

	got, err = Read(r, header([]uint64{4}, message.NewContiguous(^uint64(0), 0)))
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 4), got)
}

func TestImplicitChunksClipAtEdges(t *testing.T) {
	// a 3x3 dataset in 2x2 chunks, stored chunk after chunk
	chunks := [][]byte{
		{1, 2, 4, 5},
		{3, 0, 6, 0},
		{7, 8, 0, 0},
		{9, 0, 0, 0},
	}
	buf := binary.NewBuffer(nil)
	for i, c := range chunks {
		_, err := buf.WriteAt(c, int64(64+4*i))
		require.NoError(t, err)
	}
	lay := &message.DataLayout{Class: message.LayoutChunked, Index: message.IndexImplicit, ChunkDims: []uint64{2, 2}, IndexAddr: 64}
	got, err := Read(binary.NewReader(buf, binary.DefaultConfig()), header([]uint64{3, 3}, lay))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestSingleFilteredChunk(t *testing.T) {
	raw := []byte{9, 8, 7, 6, 5, 4, 3, 2}
	enc, err := filter.Deflate{Level: 6}.Encode(raw)
	require.NoError(t, err)
	buf := binary.NewBuffer(nil)
	_, err = buf.WriteAt(enc, 32)
	require.NoError(t, err)

	lay := message.NewSingleChunk([]uint64{8}, 1, 32, uint64(len(enc)), true)
	got, err := Read(binary.NewReader(buf, binary.DefaultConfig()), header([]uint64{8}, lay, message.NewDeflatePipeline(6)))
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestUnsupportedIndex(t *testing.T) {
	lay := &message.DataLayout{Class: message.LayoutChunked, Index: message.IndexBTreeV2, ChunkDims: []uint64{4}, IndexAddr: 0}
	_, err := Read(binary.NewReader(binary.NewBuffer(nil), binary.DefaultConfig()), header([]uint64{4}, lay))
	assert.ErrorIs(t, err, ErrUnsupported)
}
