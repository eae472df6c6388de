package nix

import (
	"github.com/robert-malhotra/go-nix/internal/store"
)

// MultiTag marks many points or regions at once. Their positions, and
// optionally their extents, are the rows of two data arrays of the same
// block.
type MultiTag struct {
	tagging
}

func newMultiTag(f *File, p string, obj store.Object) *MultiTag {
	return &MultiTag{tagging{metaEntity{newEntity(f, p, obj)}}}
}

func (t *MultiTag) linked(name string) (*DataArray, error) {
	g, err := t.group()
	if err != nil {
		return nil, err
	}
	l, ok := g.Link(name)
	if !ok {
		return nil, nil
	}
	root, _ := t.file.root()
	obj, err := store.Resolve(root, l.Target)
	if err != nil {
		return nil, errorf(t.path, ErrInvalidLink, "dangling %s link to %s", name, l.Target)
	}
	return newDataArray(t.file, l.Target, obj), nil
}

func (t *MultiTag) setLinked(name string, da *DataArray) error {
	if da != nil {
		if err := sameBlock(t.file, t.path, da); err != nil {
			return err
		}
	}
	g, err := t.writeGroup()
	if err != nil {
		return err
	}
	if g.Has(name) {
		if err := g.Delete(name); err != nil {
			return wrapErr(t.path, err)
		}
	}
	if da != nil {
		if err := g.CreateSoftLink(name, da.path); err != nil {
			return wrapErr(t.path, err)
		}
	}
	t.touch(&g.Attrs)
	return nil
}

// Positions returns the data array holding one position per row.
func (t *MultiTag) Positions() (*DataArray, error) {
	da, err := t.linked("positions")
	if err == nil && da == nil {
		err = errorf(t.path, ErrUninitializedEntity, "positions are not set")
	}
	return da, err
}

// SetPositions replaces the positions.
func (t *MultiTag) SetPositions(da *DataArray) error {
	if da == nil {
		return errorf(t.path, ErrUninitializedEntity, "positions cannot be removed")
	}
	return t.setLinked("positions", da)
}

// Extents returns the data array of extents, or nil when the tagged
// regions are points.
func (t *MultiTag) Extents() (*DataArray, error) { return t.linked("extents") }

// SetExtents replaces the extents; nil removes them.
func (t *MultiTag) SetExtents(da *DataArray) error { return t.setLinked("extents", da) }

// PositionCount returns the number of tagged positions.
func (t *MultiTag) PositionCount() int {
	pos, err := t.Positions()
	if err != nil {
		return 0
	}
	shape := pos.Shape()
	if len(shape) == 0 {
		return 0
	}
	return shape[0]
}

// row reads row n of a positions or extents array as one coordinate per
// axis. A 1-D array holds one coordinate per row.
func row(da *DataArray, n int, what string) ([]float64, error) {
	shape := da.Shape()
	if len(shape) == 0 || len(shape) > 2 {
		return nil, errorf(da.path, ErrIncompatibleDimensions, "%s must be 1-D or 2-D, have shape %v", what, shape)
	}
	if n < 0 || n >= shape[0] {
		return nil, errorf(da.path, ErrOutOfBounds, "%s index %d of %d", what, n, shape[0])
	}
	offset := []int{n}
	count := []int{1}
	if len(shape) == 2 {
		offset = append(offset, 0)
		count = append(count, shape[1])
	}
	v, err := da.ReadSlice(offset, count)
	if err != nil {
		return nil, err
	}
	out, err := toFloats(v)
	if err != nil {
		return nil, wrapErr(da.path, err)
	}
	return out, nil
}

// at returns position n and, when extents are set, extent n.
func (t *MultiTag) at(n int) (pos, ext []float64, err error) {
	positions, err := t.Positions()
	if err != nil {
		return nil, nil, err
	}
	if pos, err = row(positions, n, "positions"); err != nil {
		return nil, nil, err
	}
	extents, err := t.Extents()
	if err != nil || extents == nil {
		return pos, nil, err
	}
	if ext, err = row(extents, n, "extents"); err != nil {
		return nil, nil, err
	}
	return pos, ext, nil
}

// Retrieve returns the region of reference refIdx covered by position
// posIdx.
func (t *MultiTag) Retrieve(posIdx, refIdx int) (*DataView, error) {
	pos, ext, err := t.at(posIdx)
	if err != nil {
		return nil, err
	}
	da, err := t.reference(refIdx)
	if err != nil {
		return nil, err
	}
	offset, count, err := t.region(da, pos, ext)
	if err != nil {
		return nil, err
	}
	return newDataView(da, offset, count)
}

// RetrieveFeature returns the data of a feature for position posIdx. sel
// is the position of the feature, its id, or the name or id of its data
// array. Indexed features yield row posIdx of their data with all other
// axes in full.
func (t *MultiTag) RetrieveFeature(posIdx int, sel any) (*DataView, error) {
	f, err := t.feature(sel)
	if err != nil {
		return nil, err
	}
	da, err := f.Data()
	if err != nil {
		return nil, err
	}
	switch lt := f.LinkType(); lt {
	case Tagged:
		pos, ext, err := t.at(posIdx)
		if err != nil {
			return nil, err
		}
		offset, count, err := t.region(da, pos, ext)
		if err != nil {
			return nil, err
		}
		return newDataView(da, offset, count)
	case Untagged:
		offset, count := full(da.Shape())
		return newDataView(da, offset, count)
	case Indexed:
		shape := da.Shape()
		if len(shape) == 0 || posIdx < 0 || posIdx >= shape[0] {
			return nil, errorf(t.path, ErrOutOfBounds, "position %d outside indexed feature %s of shape %v", posIdx, da.Name(), shape)
		}
		offset, count := full(shape)
		offset[0], count[0] = posIdx, 1
		return newDataView(da, offset, count)
	default:
		return nil, errorf(t.path, ErrUnsupportedLinkType, "link type %q", lt)
	}
}

// RetrieveFeatureRows returns the rows of a data frame feature for
// position posIdx: every row for Untagged features, row posIdx for
// Indexed ones.
func (t *MultiTag) RetrieveFeatureRows(posIdx int, sel any) ([][]any, error) {
	f, df, err := t.frameFeature(sel)
	if err != nil {
		return nil, err
	}
	switch lt := f.LinkType(); lt {
	case Untagged:
		return df.ReadRows(0, df.Rows())
	case Indexed:
		if n := df.Rows(); posIdx < 0 || posIdx >= n {
			return nil, errorf(t.path, ErrOutOfBounds, "position %d outside indexed feature %s of %d rows", posIdx, df.Name(), n)
		}
		return df.ReadRows(posIdx, 1)
	default:
		return nil, errorf(t.path, ErrUnsupportedLinkType, "%s data frame feature", lt)
	}
}
