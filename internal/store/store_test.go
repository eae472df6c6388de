package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupKeepsCreationOrder(t *testing.T) {
	g := NewGroup()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := g.CreateGroup(name)
		require.NoError(t, err)
	}
	var names []string
	for _, l := range g.Links() {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)

	require.NoError(t, g.Delete("alpha"))
	l, err := g.At(1)
	require.NoError(t, err)
	assert.Equal(t, "mid", l.Name)
	assert.Equal(t, 2, g.Len())

	_, err = g.At(2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGroupRejectsDuplicatesAndBadNames(t *testing.T) {
	g := NewGroup()
	_, err := g.CreateGroup("a")
	require.NoError(t, err)
	_, err = g.CreateGroup("a")
	assert.ErrorIs(t, err, ErrExists)
	assert.ErrorIs(t, g.CreateSoftLink("a", "/x"), ErrExists)
	_, err = g.CreateGroup("a/b")
	assert.ErrorIs(t, err, ErrBadName)
	_, err = g.CreateGroup("")
	assert.ErrorIs(t, err, ErrBadName)

	again, err := g.RequireGroup("a")
	require.NoError(t, err)
	first, _ := g.Group("a")
	assert.Same(t, first, again)
}

func TestResolveFollowsSoftLinks(t *testing.T) {
	root := NewGroup()
	data, _ := root.CreateGroup("data")
	blk, _ := data.CreateGroup("b1")
	ds, err := NewDatasetFrom(Float64, []float64{1, 2, 3}, nil)
	require.NoError(t, err)
	require.NoError(t, blk.AddDataset("values", ds))
	links, _ := root.CreateGroup("links")
	require.NoError(t, links.CreateSoftLink("blk", "/data/b1"))

	got, err := ResolveDataset(root, "/links/blk/values")
	require.NoError(t, err)
	assert.Same(t, ds, got)

	_, err = Resolve(root, "/links/blk/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ResolveGroup(root, "/data/b1/values")
	assert.ErrorIs(t, err, ErrNotGroup)

	require.NoError(t, links.CreateSoftLink("loop", "/links/loop"))
	_, err = Resolve(root, "/links/loop")
	assert.ErrorIs(t, err, ErrLinkDepth)

	assert.True(t, Exists(root, "/"))
	assert.False(t, Exists(root, "/nope"))
}

func TestWalkSkipsGroups(t *testing.T) {
	root := NewGroup()
	a, _ := root.CreateGroup("a")
	_, _ = a.CreateGroup("inner")
	b, _ := root.CreateGroup("b")
	_, _ = b.CreateGroup("inner")
	require.NoError(t, root.CreateSoftLink("s", "/a"))

	var seen []string
	err := Walk(root, "/", func(p string, l *Link) error {
		seen = append(seen, p)
		if p == "/b" {
			return SkipDir
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/a/inner", "/b", "/s"}, seen)
}

func TestAttrs(t *testing.T) {
	g := NewGroup()
	g.SetAttr("name", "x")
	g.SetAttr("version", []int32{1, 1, 1})
	g.SetAttr("name", "y")

	v, ok := g.Attr("name")
	require.True(t, ok)
	assert.Equal(t, "y", v)
	assert.Len(t, g.AttrList(), 2)
	assert.Equal(t, "name", g.AttrList()[0].Name)

	g.SetAttr("name", nil)
	assert.False(t, g.HasAttr("name"))
	assert.Same(t, &g.Attrs, AttrsOf(g))
}

func TestDatasetSlices(t *testing.T) {
	ds, err := NewDatasetFrom(Int32, []int32{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
	}, []int{3, 4})
	require.NoError(t, err)

	got, err := ds.ReadSlice([]int{1, 1}, []int{2, 2})
	require.NoError(t, err)
	assert.Equal(t, []int32{5, 6, 9, 10}, got)

	require.NoError(t, ds.WriteSlice([]int{0, 2}, []int{2, 1}, []float64{20, 60}))
	got, err = ds.ReadSlice([]int{0, 0}, []int{2, 4})
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 20, 3, 4, 5, 60, 7}, got)

	_, err = ds.ReadSlice([]int{2, 2}, []int{2, 1})
	assert.ErrorIs(t, err, ErrRange)
	_, err = ds.ReadSlice([]int{0}, []int{1})
	assert.ErrorIs(t, err, ErrShape)
	assert.ErrorIs(t, ds.WriteSlice([]int{0, 0}, []int{1, 1}, []string{"x"}), ErrType)
}

func TestDatasetResizeKeepsOverlap(t *testing.T) {
	ds, err := NewDatasetFrom(Float64, []float64{1, 2, 3, 4}, []int{2, 2})
	require.NoError(t, err)
	require.NoError(t, ds.Resize([]int{3, 3}))
	assert.Equal(t, []float64{1, 2, 0, 3, 4, 0, 0, 0, 0}, ds.Data())

	require.NoError(t, ds.Resize([]int{1, 2}))
	assert.Equal(t, []float64{1, 2}, ds.Data())

	require.NoError(t, ds.SetMaxShape([]int{Unlimited, 2}))
	assert.ErrorIs(t, ds.Resize([]int{1, 3}), ErrShape)
	assert.ErrorIs(t, ds.Resize([]int{1}), ErrShape)
}

func TestCompoundDataset(t *testing.T) {
	dt := Compound(Field{Name: "value", Type: String}, Field{Name: "uncertainty", Type: Float64})
	ds, err := NewDataset(dt, []int{2}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Record{{"", 0.0}, {"", 0.0}}, ds.Data())

	require.NoError(t, ds.WriteSlice([]int{1}, []int{1}, []Record{{"b", 0.5}}))
	got, err := ds.ReadSlice([]int{1}, []int{1})
	require.NoError(t, err)
	assert.Equal(t, []Record{{"b", 0.5}}, got)
	assert.Equal(t, 1, dt.Field("uncertainty"))
	assert.Equal(t, "compound{value:string,uncertainty:float64}", dt.String())
}

func TestScalarDataset(t *testing.T) {
	ds, err := NewDatasetFrom(Bool, []bool{true}, []int{})
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Rank())
	got, err := ds.ReadSlice(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, got)
}

func TestDTypeOf(t *testing.T) {
	cases := []struct {
		in   any
		want DType
	}{
		{[]float64{1}, Float64},
		{[]int{1}, Int64},
		{int16(3), Int16},
		{[]byte("ab"), Uint8},
		{[][]byte{{1, 2, 3}}, Opaque(3)},
		{[]string{"a"}, String},
		{true, Bool},
	}
	for _, c := range cases {
		got, err := DTypeOf(c.in)
		require.NoError(t, err)
		assert.True(t, got.Equal(c.want), "%T: got %s want %s", c.in, got, c.want)
	}
	_, err := DTypeOf(struct{}{})
	assert.ErrorIs(t, err, ErrType)
}

func TestDatasetAppend(t *testing.T) {
	ds, err := NewDatasetFrom(Int32, []int32{1, 2, 3, 4}, []int{2, 2})
	require.NoError(t, err)

	require.NoError(t, ds.Append([]int32{5, 6}, 0))
	assert.Equal(t, []int{3, 2}, ds.Shape())
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6}, ds.Data())

	require.NoError(t, ds.Append([]int{7, 8, 9}, 1))
	assert.Equal(t, []int{3, 3}, ds.Shape())
	assert.Equal(t, []int32{1, 2, 7, 3, 4, 8, 5, 6, 9}, ds.Data())

	assert.ErrorIs(t, ds.Append([]int32{1, 2}, 0), ErrShape)
	assert.ErrorIs(t, ds.Append([]int32{1}, 2), ErrShape)
	assert.Equal(t, []int{3, 3}, ds.Shape())
}
