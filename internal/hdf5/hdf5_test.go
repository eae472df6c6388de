package hdf5

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/store"
)

func buildTree(t *testing.T) *store.Group {
	t.Helper()
	root := store.NewGroup()
	root.SetAttr("format", "nix")
	root.SetAttr("version", []int32{1, 1, 1})

	data, err := root.CreateGroup("data")
	require.NoError(t, err)
	blk, err := data.CreateGroup("session")
	require.NoError(t, err)
	blk.SetAttr("name", "session")
	blk.SetAttr("created_at", "20240101T120000")
	blk.SetAttr("flag", true)
	blk.SetAttr("weights", []float64{0.5, 1.5})
	blk.SetAttr("empty", "")

	sig, err := store.NewDatasetFrom(store.Float64, []float64{0, 0.25, 0.5, 0.75, 1, 1.25}, []int{2, 3})
	require.NoError(t, err)
	sig.SetAttr("unit", "mV")
	require.NoError(t, blk.AddDataset("signal", sig))

	labels, err := store.NewDatasetFrom(store.String, []string{"a", "", "ccc"}, nil)
	require.NoError(t, err)
	require.NoError(t, blk.AddDataset("labels", labels))

	packed, err := store.NewDatasetFrom(store.Int16, make([]int16, 500), nil)
	require.NoError(t, err)
	packed.SetCompression(6)
	require.NoError(t, blk.AddDataset("packed", packed))

	prop := store.Compound(
		store.Field{Name: "value", Type: store.String},
		store.Field{Name: "uncertainty", Type: store.Float64},
		store.Field{Name: "count", Type: store.Uint32},
		store.Field{Name: "ok", Type: store.Bool},
	)
	props, err := store.NewDatasetFrom(prop, []store.Record{{"x", 0.1, uint32(7), true}, {"", 0.0, uint32(0), false}}, nil)
	require.NoError(t, err)
	require.NoError(t, blk.AddDataset("props", props))

	scalar, err := store.NewDatasetFrom(store.Int8, []int8{-3}, []int{})
	require.NoError(t, err)
	require.NoError(t, blk.AddDataset("scalar", scalar))

	empty, err := store.NewDatasetFrom(store.Float32, []float32{}, []int{0})
	require.NoError(t, err)
	require.NoError(t, blk.AddDataset("empty", empty))

	refs, err := blk.CreateGroup("refs")
	require.NoError(t, err)
	require.NoError(t, refs.CreateSoftLink("sig", "/data/session/signal"))
	return root
}

func TestEncodeLoadRoundTrip(t *testing.T) {
	image, err := Encode(buildTree(t), binary.DefaultConfig())
	require.NoError(t, err)

	root, err := Load(binary.NewBuffer(image), defaultFileOptions().logger)
	require.NoError(t, err)

	v, _ := root.Attr("format")
	assert.Equal(t, "nix", v)
	v, _ = root.Attr("version")
	assert.Equal(t, []int32{1, 1, 1}, v)

	blk, err := store.ResolveGroup(root, "/data/session")
	require.NoError(t, err)
	v, _ = blk.Attr("flag")
	assert.Equal(t, true, v)
	v, _ = blk.Attr("weights")
	assert.Equal(t, []float64{0.5, 1.5}, v)
	v, _ = blk.Attr("empty")
	assert.Equal(t, "", v)

	var names []string
	for _, l := range blk.Links() {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"signal", "labels", "packed", "props", "scalar", "empty", "refs"}, names)

	sig, err := store.ResolveDataset(root, "/data/session/refs/sig")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, sig.Shape())
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1, 1.25}, sig.Data())
	v, _ = sig.Attr("unit")
	assert.Equal(t, "mV", v)

	labels, err := blk.Dataset("labels")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "ccc"}, labels.Data())

	packed, err := blk.Dataset("packed")
	require.NoError(t, err)
	assert.Equal(t, 6, packed.Compression())
	assert.Len(t, packed.Data(), 500)

	props, err := blk.Dataset("props")
	require.NoError(t, err)
	assert.Equal(t, "value", props.DType().Fields[0].Name)
	assert.Equal(t, []store.Record{{"x", 0.1, uint32(7), true}, {"", 0.0, uint32(0), false}}, props.Data())

	scalar, err := blk.Dataset("scalar")
	require.NoError(t, err)
	assert.Equal(t, 0, scalar.Rank())
	assert.Equal(t, []int8{-3}, scalar.Data())

	empty, err := blk.Dataset("empty")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, empty.Shape())
	assert.True(t, empty.DType().Equal(store.Float32))

	l, ok := blk.Link("refs")
	require.True(t, ok)
	sl, ok := l.Group.Link("sig")
	require.True(t, ok)
	assert.True(t, sl.IsSoft())
	assert.Equal(t, "/data/session/signal", sl.Target)
}

func TestEncodeSmallOffsets(t *testing.T) {
	cfg := binary.DefaultConfig()
	cfg.OffsetSize, cfg.LengthSize = 4, 4
	image, err := Encode(buildTree(t), cfg)
	require.NoError(t, err)
	root, err := Load(binary.NewBuffer(image), defaultFileOptions().logger)
	require.NoError(t, err)
	labels, err := store.ResolveDataset(root, "/data/session/labels")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "ccc"}, labels.Data())
}

func TestLoadRejectsGarbage(t *testing.T) {
	_, err := Load(binary.NewBuffer(make([]byte, 4096)), defaultFileOptions().logger)
	assert.ErrorIs(t, err, ErrNotHDF5)
}

func TestOpenModes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.h5")

	_, err := Open(path, ReadOnly)
	require.Error(t, err)

	f, err := Open(path, ReadWrite)
	require.NoError(t, err)
	assert.True(t, f.Created())
	_, err = os.Stat(path)
	require.NoError(t, err)

	g, err := f.Root().CreateGroup("metadata")
	require.NoError(t, err)
	g.SetAttr("name", "m")
	require.NoError(t, f.Close())
	assert.ErrorIs(t, f.Flush(), ErrClosed)
	require.NoError(t, f.Close())

	f, err = Open(path, ReadOnly)
	require.NoError(t, err)
	assert.False(t, f.Created())
	assert.True(t, f.Root().Has("metadata"))
	assert.ErrorIs(t, f.Flush(), ErrReadOnly)
	require.NoError(t, f.Close())

	f, err = Open(path, Overwrite)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Root().Len())
	require.NoError(t, f.Close())

	f, err = Open(path, ReadWrite)
	require.NoError(t, err)
	assert.False(t, f.Created())
	assert.Equal(t, 0, f.Root().Len())
	f.SetReadOnly()
	assert.Equal(t, ReadOnly, f.Mode())
	require.NoError(t, f.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	_, err = Open(path, Mode(9))
	assert.ErrorIs(t, err, ErrMode)
}
