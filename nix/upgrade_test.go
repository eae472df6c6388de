package nix

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-nix/internal/hdf5"
	"github.com/robert-malhotra/go-nix/internal/store"
)

// writeLegacyFile writes a version 1.0.0 file without a file id whose
// data array "times" carries an alias range dimension in the old layout.
func writeLegacyFile(t *testing.T) (string, string) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "legacy.nix")
	h, err := hdf5.Open(p, hdf5.Overwrite)
	require.NoError(t, err)
	root := h.Root()
	root.SetAttr("format", FormatName)
	root.SetAttr("version", []int32{1, 0, 0})
	root.SetAttr("created_at", "20150101T000000")
	root.SetAttr("updated_at", "20150101T000000")
	_, err = root.CreateGroup("metadata")
	require.NoError(t, err)

	data, err := root.CreateGroup("data")
	require.NoError(t, err)
	blk, err := data.CreateGroup("session")
	require.NoError(t, err)
	initEntity(&blk.Attrs, CreateID(), "session", "recording", "20150101T000000")
	arrays, err := blk.CreateGroup("data_arrays")
	require.NoError(t, err)
	da, err := arrays.CreateGroup("times")
	require.NoError(t, err)
	id := CreateID()
	initEntity(&da.Attrs, id, "times", "nix.events", "20150101T000000")
	ds, err := store.NewDatasetFrom(store.Float64, []float64{0.1, 0.5, 0.9}, nil)
	require.NoError(t, err)
	require.NoError(t, da.AddDataset("data", ds))
	dims, err := da.CreateGroup("dimensions")
	require.NoError(t, err)
	dim, err := dims.CreateGroup("1")
	require.NoError(t, err)
	dim.SetAttr("dimension_type", string(RangeDimensionType))
	require.NoError(t, dim.CreateSoftLink(id, "/data/session/data_arrays/times/data"))
	require.NoError(t, h.Close())
	return p, id
}

func TestUpgrade(t *testing.T) {
	p, id := writeLegacyFile(t)
	_, err := Open(p, ReadWrite)
	assert.ErrorIs(t, err, ErrIncompatibleVersion)

	plan, err := UpgradeTasks(p)
	require.NoError(t, err)
	assert.Equal(t, Version{1, 0, 0}, plan.FileVersion)
	require.Len(t, plan.Tasks, 3)
	assert.Equal(t, p+": 1.0.0 -> 1.1.1\n"+
		"  - Add a UUID to the file header\n"+
		"  - Convert 1 alias range dimension to link\n"+
		"  - Update the file format version to 1.1.1", plan.String())

	require.NoError(t, Upgrade(plan))

	f, err := Open(p, ReadWrite)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, LibraryVersion, f.Version())
	assert.True(t, IsUUID(f.ID()))
	b, err := f.Blocks().Get("session")
	require.NoError(t, err)
	da, err := b.DataArrays().Get(id)
	require.NoError(t, err)
	d, err := da.Dimension(1)
	require.NoError(t, err)
	rd := d.(*RangeDimension)
	assert.True(t, rd.IsAlias())
	ticks, err := rd.Ticks()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.5, 0.9}, ticks)

	again, err := UpgradeTasks(p)
	require.NoError(t, err)
	assert.True(t, again.UpToDate())
	assert.Equal(t, "File "+p+" is up to date (1.1.1)", again.String())
	require.NoError(t, Upgrade(again))
}

func TestUpgradeOnlyVersion(t *testing.T) {
	f, p := newFile(t)
	id := f.ID()
	f.h.Root().SetAttr("version", versionAttr(Version{1, 0, 3}))
	require.NoError(t, f.Close())

	plan, err := UpgradeTasks(p)
	require.NoError(t, err)
	require.Len(t, plan.Tasks, 1)
	assert.Equal(t, "Update the file format version to 1.1.1", plan.Tasks[0].Description)
	require.NoError(t, Upgrade(plan))

	g, err := Open(p, ReadOnly)
	require.NoError(t, err)
	defer g.Close()
	assert.Equal(t, id, g.ID())
}

func TestUpgradeRejectsOtherFiles(t *testing.T) {
	p := filepath.Join(t.TempDir(), "plain.h5")
	h, err := hdf5.Open(p, hdf5.Overwrite)
	require.NoError(t, err)
	require.NoError(t, h.Close())
	_, err = UpgradeTasks(p)
	assert.ErrorIs(t, err, ErrInvalidFile)

	_, err = UpgradeTasks(filepath.Join(t.TempDir(), "missing.nix"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
