package nix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var trialColumns = []Column{
	{Name: "trial", DType: Int32},
	{Name: "onset", DType: Float64, Unit: "ms"},
	{Name: "condition", DType: String},
	{Name: "correct", DType: Bool},
}

func trialFrame(t *testing.T, b *Block) *DataFrame {
	t.Helper()
	df, err := b.CreateDataFrame("trials", "nix.trials", trialColumns, [][]any{
		{1, 10.0, "left", true},
		{2, 25.5, "right", false},
		{3, 40.0, "left", true},
	})
	require.NoError(t, err)
	return df
}

func TestDataFrame(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	df := trialFrame(t, b)
	assert.Equal(t, 3, df.Rows())
	assert.Equal(t, []string{"", "ms", "", ""}, df.Units())

	require.NoError(t, df.AppendRows([][]any{{4, 61.25, "right", true}}))
	assert.Equal(t, 4, df.Rows())

	g := reopen(t, f, ReadWrite)
	blk, err := g.Blocks().Get("session")
	require.NoError(t, err)
	df, err = blk.DataFrames().Get("trials")
	require.NoError(t, err)

	cols, err := df.Columns()
	require.NoError(t, err)
	require.Len(t, cols, 4)
	assert.Equal(t, "onset", cols[1].Name)
	assert.Equal(t, "ms", cols[1].Unit)
	assert.Equal(t, Float64.Class, cols[1].DType.Class)

	row, err := df.ReadRow(1)
	require.NoError(t, err)
	assert.Equal(t, []any{int32(2), 25.5, "right", false}, row)

	onsets, err := df.ReadColumnByName("onset")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 25.5, 40, 61.25}, onsets)

	conds, err := df.ReadColumn(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"left", "right", "left", "right"}, conds)

	require.NoError(t, df.WriteCell(0, 2, "center"))
	cell, err := df.ReadCell(0, 2)
	require.NoError(t, err)
	assert.Equal(t, "center", cell)

	rows, err := df.ReadRows(2, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(4), rows[1][0])
	_, err = df.ReadRows(3, 2)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = df.ReadColumn(4)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = df.ColumnIndex("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, df.WriteRow(9, []any{1, 1.0, "x", true}), ErrOutOfBounds)
	assert.ErrorIs(t, df.AppendRows([][]any{{1, 2.0}}), ErrIncompatibleDimensions)
}

func TestDataFrameUnits(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	df := trialFrame(t, b)

	assert.ErrorIs(t, df.SetUnits([]string{"s"}), ErrIncompatibleDimensions)
	assert.ErrorIs(t, df.SetUnits([]string{"", "lightyear", "", ""}), ErrInvalidUnit)
	require.NoError(t, df.SetColumnUnit(1, "s"))
	assert.Equal(t, []string{"", "s", "", ""}, df.Units())
	assert.ErrorIs(t, df.SetColumnUnit(7, "s"), ErrOutOfBounds)
	require.NoError(t, df.SetUnits(nil))
	assert.Equal(t, []string{"", "", "", ""}, df.Units())
}

func TestDataFrameColumnChecks(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)

	_, err := b.CreateDataFrame("none", "t", nil, nil)
	assert.ErrorIs(t, err, ErrIncompatibleDimensions)
	_, err = b.CreateDataFrame("dup", "t", []Column{{Name: "a", DType: Int32}, {Name: "a", DType: Float64}}, nil)
	assert.ErrorIs(t, err, ErrDuplicateName)
	_, err = b.CreateDataFrame("bad", "t", []Column{{Name: "a", DType: Opaque(2)}}, nil)
	assert.ErrorIs(t, err, ErrInvalidAttrType)
	_, err = b.CreateDataFrame("unit", "t", []Column{{Name: "a", DType: Float64, Unit: "fathom"}}, nil)
	assert.ErrorIs(t, err, ErrInvalidUnit)
	_, err = b.CreateDataFrame("rows", "t", []Column{{Name: "a", DType: Int32}}, [][]any{{"seven"}})
	assert.ErrorIs(t, err, ErrInvalidAttrType)
}

func TestDataFrameDimension(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	df := trialFrame(t, b)
	da, err := b.CreateDataArray("rt", "t", Float64, []float64{300, 280, 410})
	require.NoError(t, err)

	_, err = da.AppendDataFrameDimension(df, 9)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	d, err := da.AppendDataFrameDimension(df, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Column())
	assert.Equal(t, "onset", d.Label())
	assert.Equal(t, "ms", d.Unit())
	ticks, err := d.Ticks()
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 25.5, 40}, ticks)
	i, err := d.IndexOf(30)
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	linked, err := d.DataFrame()
	require.NoError(t, err)
	assert.Equal(t, df.ID(), linked.ID())

	labels, err := da.AppendSetDimension(nil)
	require.NoError(t, err)
	require.NoError(t, labels.LinkDataFrame(df, 2))
	got, err := labels.Labels()
	require.NoError(t, err)
	assert.Equal(t, []string{"left", "right", "left"}, got)

	_, err = d.Axis(2, 2)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}
