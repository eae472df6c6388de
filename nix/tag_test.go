package nix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampledSine(t *testing.T, b *Block, name string) *DataArray {
	t.Helper()
	da, err := b.CreateDataArray(name, "nix.sampled", Float64, sine(1000, 0.01), WithUnit("mV"))
	require.NoError(t, err)
	d, err := da.AppendSampledDimension(0.01)
	require.NoError(t, err)
	require.NoError(t, d.SetUnit("s"))
	return da
}

func TestTagRetrieve(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	da := sampledSine(t, b, "sine")

	tag, err := b.CreateTag("stimulus", "nix.stimulus", []float64{2.5})
	require.NoError(t, err)
	require.NoError(t, tag.SetExtent([]float64{1.0}))
	require.NoError(t, tag.SetUnits([]string{"s"}))
	require.NoError(t, tag.References().Append(da))

	g := reopen(t, f, ReadOnly)
	blk, err := g.Blocks().Get("session")
	require.NoError(t, err)
	tag, err = blk.Tags().Get("stimulus")
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5}, tag.Position())
	assert.Equal(t, []float64{1.0}, tag.Extent())
	assert.Equal(t, []string{"s"}, tag.Units())

	v, err := tag.Retrieve(0)
	require.NoError(t, err)
	assert.Equal(t, []int{100}, v.Shape())
	got, err := v.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, sine(1000, 0.01)[250:350], got)

	_, err = tag.Retrieve(1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestTagScalesUnits(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	da := sampledSine(t, b, "sine")
	tag, err := b.CreateTag("ms", "t", []float64{2500})
	require.NoError(t, err)
	require.NoError(t, tag.SetExtent([]float64{1000}))
	require.NoError(t, tag.SetUnits([]string{"ms"}))
	require.NoError(t, tag.References().Append(da))

	v, err := tag.Retrieve(0)
	require.NoError(t, err)
	assert.Equal(t, []int{250}, v.Offset())
	assert.Equal(t, []int{100}, v.Shape())

	assert.ErrorIs(t, tag.SetUnits([]string{"parsec"}), ErrInvalidUnit)
	require.NoError(t, tag.SetUnits([]string{"none"}))
	require.NoError(t, tag.SetUnits(nil))
	assert.Nil(t, tag.Units())
}

func TestTagPoint(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	da := sampledSine(t, b, "sine")
	tag, err := b.CreateTag("point", "t", nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, tag.Position())
	assert.Nil(t, tag.Extent())

	_, err = tag.Retrieve(0)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	require.NoError(t, tag.References().Append(da))
	require.NoError(t, tag.SetPosition([]float64{1.234}))
	v, err := tag.Retrieve(0)
	require.NoError(t, err)
	assert.Equal(t, []int{123}, v.Offset())
	assert.Equal(t, 1, v.Len())

	require.NoError(t, tag.SetPosition([]float64{1, 2}))
	_, err = tag.Retrieve(0)
	assert.ErrorIs(t, err, ErrIncompatibleDimensions)
}

func TestTagFeatures(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	da := sampledSine(t, b, "sine")
	other := sampledSine(t, b, "cosine")
	tag, err := b.CreateTag("stim", "t", []float64{2.5})
	require.NoError(t, err)
	require.NoError(t, tag.SetExtent([]float64{1.0}))
	require.NoError(t, tag.References().Append(da))

	_, err = tag.CreateFeature(other, LinkType("Sideways"))
	assert.ErrorIs(t, err, ErrUnsupportedLinkType)

	tagged, err := tag.CreateFeature(other, Tagged)
	require.NoError(t, err)
	assert.Equal(t, tagged.ID(), tagged.Name())
	assert.Equal(t, Tagged, tagged.LinkType())
	assert.True(t, tag.Features().Contains("cosine"))

	v, err := tag.RetrieveFeature("cosine")
	require.NoError(t, err)
	assert.Equal(t, []int{250}, v.Offset())
	assert.Equal(t, []int{100}, v.Shape())

	require.NoError(t, tagged.SetLinkType(Untagged))
	v, err = tag.RetrieveFeature(0)
	require.NoError(t, err)
	assert.Equal(t, []int{1000}, v.Shape())

	require.NoError(t, tagged.SetLinkType(Indexed))
	_, err = tag.RetrieveFeature(tagged.ID())
	assert.ErrorIs(t, err, ErrUnsupportedLinkType)

	_, err = tag.RetrieveFeature(3.0)
	assert.ErrorIs(t, err, ErrInvalidAttrType)
	_, err = tag.RetrieveFeature("nothing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.DataArrays().Delete("cosine"))
	assert.Equal(t, 0, tag.Features().Len())
	assert.Equal(t, 1, tag.References().Len())
}

func TestTagReferencesStayInBlock(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	other, err := f.CreateBlock("other", "t")
	require.NoError(t, err)
	foreign, err := other.CreateDataArray("x", "t", Float64, []float64{1})
	require.NoError(t, err)
	tag, err := b.CreateTag("tag", "t", []float64{0})
	require.NoError(t, err)

	assert.ErrorIs(t, tag.References().Append(foreign), ErrInvalidLink)
	_, err = tag.CreateFeature(foreign, Untagged)
	assert.ErrorIs(t, err, ErrInvalidLink)

	local, err := b.CreateDataArray("x", "t", Float64, []float64{1})
	require.NoError(t, err)
	require.NoError(t, tag.References().Append(local))
	require.NoError(t, tag.References().Append(local))
	assert.Equal(t, 1, tag.References().Len())
	require.NoError(t, tag.References().Remove("x"))
	assert.Equal(t, 0, tag.References().Len())
	assert.True(t, b.DataArrays().Contains("x"))
}

func multiTagFixture(t *testing.T, b *Block) *MultiTag {
	t.Helper()
	pos := make([]float64, 0, 10)
	for n := 0; n < 5; n++ {
		pos = append(pos, float64(n), float64(n+1))
	}
	positions, err := b.CreateDataArray("positions", "nix.positions", Float64, pos, WithShape(5, 2))
	require.NoError(t, err)
	ext := make([]float64, 10)
	for i := range ext {
		ext[i] = float64(2 + i%2)
	}
	extents, err := b.CreateDataArray("extents", "nix.extents", Float64, ext, WithShape(5, 2))
	require.NoError(t, err)

	grid := make([]float64, 100)
	for i := range grid {
		grid[i] = float64(i)
	}
	data, err := b.CreateDataArray("grid", "t", Float64, grid, WithShape(10, 10))
	require.NoError(t, err)
	for n := 0; n < 2; n++ {
		_, err := data.AppendSampledDimension(1)
		require.NoError(t, err)
	}

	mt, err := b.CreateMultiTag("events", "nix.events", positions)
	require.NoError(t, err)
	require.NoError(t, mt.SetExtents(extents))
	require.NoError(t, mt.References().Append(data))
	return mt
}

func TestMultiTagRetrieve(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	mt := multiTagFixture(t, b)
	assert.Equal(t, 5, mt.PositionCount())

	v, err := mt.Retrieve(2, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, v.Offset())
	assert.Equal(t, []int{2, 3}, v.Shape())
	got, err := v.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{23, 24, 25, 33, 34, 35}, got)

	_, err = mt.Retrieve(5, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = mt.Retrieve(0, 1)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	require.NoError(t, mt.SetExtents(nil))
	v, err = mt.Retrieve(4, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, v.Offset())
	assert.Equal(t, []int{1, 1}, v.Shape())
}

func TestMultiTagIndexedFeature(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	mt := multiTagFixture(t, b)

	vals := make([]float64, 50)
	for i := range vals {
		vals[i] = float64(i)
	}
	feat, err := b.CreateDataArray("per event", "t", Float64, vals, WithShape(5, 10))
	require.NoError(t, err)
	_, err = mt.CreateFeature(feat, Indexed)
	require.NoError(t, err)

	g := reopen(t, f, ReadOnly)
	blk, err := g.Blocks().Get("session")
	require.NoError(t, err)
	mt, err = blk.MultiTags().Get("events")
	require.NoError(t, err)

	v, err := mt.RetrieveFeature(3, "per event")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 10}, v.Shape())
	got, err := v.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, vals[30:40], got)

	_, err = mt.RetrieveFeature(7, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestMultiTagPositionsStayInBlock(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	_, err := b.CreateMultiTag("mt", "t", nil)
	assert.ErrorIs(t, err, ErrUninitializedEntity)

	other, err := f.CreateBlock("other", "t")
	require.NoError(t, err)
	foreign, err := other.CreateDataArray("pos", "t", Float64, []float64{1})
	require.NoError(t, err)
	_, err = b.CreateMultiTag("mt", "t", foreign)
	assert.ErrorIs(t, err, ErrInvalidLink)

	mt := multiTagFixture(t, b)
	assert.ErrorIs(t, mt.SetPositions(nil), ErrUninitializedEntity)
	assert.ErrorIs(t, mt.SetExtents(foreign), ErrInvalidLink)
}

func TestDataFrameFeatures(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	df := trialFrame(t, b)
	mt := multiTagFixture(t, b)

	_, err := mt.CreateDataFrameFeature(df, Tagged)
	assert.ErrorIs(t, err, ErrUnsupportedLinkType)
	indexed, err := mt.CreateDataFrameFeature(df, Indexed)
	require.NoError(t, err)
	assert.True(t, indexed.HoldsDataFrame())
	_, err = indexed.Data()
	assert.ErrorIs(t, err, ErrInvalidLink)
	assert.ErrorIs(t, indexed.SetLinkType(Tagged), ErrUnsupportedLinkType)

	g := reopen(t, f, ReadOnly)
	blk, err := g.Blocks().Get("session")
	require.NoError(t, err)
	mt, err = blk.MultiTags().Get("events")
	require.NoError(t, err)
	assert.True(t, mt.Features().Contains("trials"))

	rows, err := mt.RetrieveFeatureRows(1, "trials")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "right", rows[0][2])

	_, err = mt.RetrieveFeatureRows(3, "trials")
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = mt.RetrieveFeature(1, "trials")
	assert.ErrorIs(t, err, ErrInvalidLink)
}

func TestTagDataFrameFeature(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	df := trialFrame(t, b)
	da := sampledSine(t, b, "sine")
	tag, err := b.CreateTag("stim", "t", []float64{2.5})
	require.NoError(t, err)

	feat, err := tag.CreateDataFrameFeature(df, Untagged)
	require.NoError(t, err)
	rows, err := tag.RetrieveFeatureRows(feat.ID())
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = tag.RetrieveFeatureRows(0)
	require.NoError(t, err)
	require.NoError(t, feat.SetData(da))
	assert.False(t, feat.HoldsDataFrame())
	_, err = tag.RetrieveFeatureRows(0)
	assert.ErrorIs(t, err, ErrInvalidLink)
	require.NoError(t, feat.SetDataFrame(df))

	other, err := f.CreateBlock("other", "t")
	require.NoError(t, err)
	foreign := trialFrame(t, other)
	_, err = tag.CreateDataFrameFeature(foreign, Untagged)
	assert.ErrorIs(t, err, ErrInvalidLink)

	require.NoError(t, b.DataFrames().Delete("trials"))
	assert.Equal(t, 0, tag.Features().Len())
}
