package nix

import (
	"path"

	"github.com/robert-malhotra/go-nix/internal/store"
	"github.com/robert-malhotra/go-nix/internal/units"
)

// tagging is the state shared by Tag and MultiTag: units, references,
// sources and features.
type tagging struct {
	metaEntity
}

// Units returns the unit of every tagged axis.
func (t *tagging) Units() []string {
	g, err := t.group()
	if err != nil {
		return nil
	}
	ds, err := g.Dataset("units")
	if err != nil {
		return nil
	}
	if s, ok := ds.Data().([]string); ok {
		return append([]string(nil), s...)
	}
	return nil
}

// SetUnits replaces the axis units. Every unit must be SI; "none" marks
// an axis without a unit. An empty list removes the units.
func (t *tagging) SetUnits(us []string) error {
	clean := make([]string, len(us))
	for i, u := range us {
		clean[i] = units.Sanitize(u)
		if clean[i] == "" || clean[i] == "none" {
			continue
		}
		if !units.IsSI(clean[i]) {
			return errorf(t.path, ErrInvalidUnit, "unit %d: %q", i, u)
		}
	}
	g, err := t.writeGroup()
	if err != nil {
		return err
	}
	if err := replaceDataset(g, "units", store.String, clean); err != nil {
		return wrapErr(t.path, err)
	}
	t.touch(&g.Attrs)
	return nil
}

// replaceDataset swaps the 1-D dataset name of g for values; empty
// values remove it.
func replaceDataset(g *store.Group, name string, dt store.DType, values any) error {
	var ds *store.Dataset
	if lenOf(values) > 0 {
		var err error
		if ds, err = store.NewDatasetFrom(dt, values, nil); err != nil {
			return err
		}
	}
	if g.Has(name) {
		if err := g.Delete(name); err != nil {
			return err
		}
	}
	if ds == nil {
		return nil
	}
	return g.AddDataset(name, ds)
}

func lenOf(v any) int {
	switch s := v.(type) {
	case []string:
		return len(s)
	case []float64:
		return len(s)
	}
	return 0
}

// unitAt returns the unit of axis k, or "" when none is set.
func unitAt(us []string, k int) string {
	if k >= len(us) || us[k] == "none" {
		return ""
	}
	return us[k]
}

// References returns the data arrays the tag points into. They must
// belong to the same block.
func (t *tagging) References() *LinkContainer[*DataArray] {
	return newLinkContainer(t.file, t.path, "references", newDataArray, within(path.Join(blockPath(t.path), "data_arrays")))
}

// Sources returns the linked sources.
func (t *tagging) Sources() *LinkContainer[*Source] {
	return sourceLinks(t.file, t.path, blockPath(t.path))
}

// Features returns the features of the tag.
func (t *tagging) Features() *FeatureContainer {
	return &FeatureContainer{*newContainer(t.file, t.path, "features", newFeature)}
}

// CreateFeature attaches data to the tag. data must be a data array of
// the same block.
func (t *tagging) CreateFeature(data *DataArray, lt LinkType) (*Feature, error) {
	if data == nil {
		return nil, errorf(t.path, ErrUninitializedEntity, "feature without data")
	}
	if err := sameBlock(t.file, t.path, data); err != nil {
		return nil, err
	}
	return t.createFeature(data.path, lt)
}

// CreateDataFrameFeature attaches a data frame of the same block to the
// tag. Data frames cannot be cut by position, so lt must be Untagged or
// Indexed.
func (t *tagging) CreateDataFrameFeature(df *DataFrame, lt LinkType) (*Feature, error) {
	if df == nil {
		return nil, errorf(t.path, ErrUninitializedEntity, "feature without data")
	}
	if lt == Tagged {
		return nil, errorf(t.path, ErrUnsupportedLinkType, "data frame features cannot be %s", lt)
	}
	if err := inBlock(t.file, t.path, &df.entity, "data_frames"); err != nil {
		return nil, err
	}
	return t.createFeature(df.path, lt)
}

func (t *tagging) createFeature(target string, lt LinkType) (*Feature, error) {
	if err := lt.check(); err != nil {
		return nil, wrapErr(t.path, err)
	}
	id := CreateID()
	g, p, err := t.Features().create(id)
	if err != nil {
		return nil, err
	}
	now := t.file.now()
	g.SetAttr("entity_id", id)
	g.SetAttr("link_type", string(lt))
	g.SetAttr("created_at", now)
	g.SetAttr("updated_at", now)
	if err := g.CreateSoftLink("data", target); err != nil {
		return nil, wrapErr(p, err)
	}
	return newFeature(t.file, p, g), nil
}

// sameBlock checks that da lives in the block of the entity at owner.
func sameBlock(f *File, owner string, da *DataArray) error {
	return inBlock(f, owner, &da.entity, "data_arrays")
}

// inBlock checks that e is a live member of the container dir of the
// block holding owner.
func inBlock(f *File, owner string, e *entity, dir string) error {
	if e.file != f {
		return errorf(owner, ErrInvalidLink, "%s belongs to another file", e.id)
	}
	if err := within(path.Join(blockPath(owner), dir))(e.path); err != nil {
		return wrapErr(owner, err)
	}
	_, err := e.group()
	return err
}

func (t *tagging) reference(idx int) (*DataArray, error) {
	if _, err := t.group(); err != nil {
		return nil, err
	}
	refs := t.References()
	n := refs.Len()
	if n == 0 {
		return nil, errorf(t.path, ErrOutOfBounds, "no references")
	}
	if idx < 0 || idx >= n {
		return nil, errorf(t.path, ErrOutOfBounds, "reference %d of %d", idx, n)
	}
	return refs.At(idx)
}

// feature resolves a feature selector: a position, a feature id, or the
// name or id of the feature's data.
func (t *tagging) feature(sel any) (*Feature, error) {
	if _, err := t.group(); err != nil {
		return nil, err
	}
	fc := t.Features()
	if fc.Len() == 0 {
		return nil, errorf(t.path, ErrOutOfBounds, "no features")
	}
	switch s := sel.(type) {
	case int:
		return fc.At(s)
	case string:
		return fc.Get(s)
	}
	return nil, errorf(t.path, ErrInvalidAttrType, "feature selector %T", sel)
}

// frameFeature resolves sel to a data frame feature.
func (t *tagging) frameFeature(sel any) (*Feature, *DataFrame, error) {
	f, err := t.feature(sel)
	if err != nil {
		return nil, nil, err
	}
	df, err := f.DataFrame()
	if err != nil {
		return nil, nil, err
	}
	return f, df, nil
}

// region maps a position and optional extent in tag coordinates to the
// offset and count of the matching region of da.
func (t *tagging) region(da *DataArray, pos, ext []float64) (offset, count []int, err error) {
	shape := da.Shape()
	if len(pos) != len(shape) {
		return nil, nil, errorf(t.path, ErrIncompatibleDimensions, "position has %d entries, %s has %d dimensions", len(pos), da.Name(), len(shape))
	}
	if len(ext) > 0 && len(ext) != len(shape) {
		return nil, nil, errorf(t.path, ErrIncompatibleDimensions, "extent has %d entries, %s has %d dimensions", len(ext), da.Name(), len(shape))
	}
	dims, err := da.Dimensions()
	if err != nil {
		return nil, nil, err
	}
	if len(dims) != len(shape) {
		return nil, nil, errorf(da.path, ErrIncompatibleDimensions, "%d dimension descriptors for rank %d", len(dims), len(shape))
	}
	us := t.Units()
	offset = make([]int, len(shape))
	count = make([]int, len(shape))
	for k, d := range dims {
		s := scaleFactor(unitAt(us, k), d.Unit())
		o, err := d.IndexOf(pos[k] * s)
		if err != nil {
			return nil, nil, wrapErr(t.path, err)
		}
		offset[k], count[k] = o, 1
		if len(ext) == 0 {
			continue
		}
		stop, err := d.IndexOf((pos[k] + ext[k]) * s)
		if err != nil {
			return nil, nil, wrapErr(t.path, err)
		}
		count[k] = max(1, stop-o)
	}
	return offset, count, nil
}

// scaleFactor converts tag coordinates into dimension coordinates. Axes
// whose units are missing or not convertible are not scaled.
func scaleFactor(from, to string) float64 {
	if from == "" || to == "" || !units.Scalable(from, to) {
		return 1
	}
	f, err := units.Scaling(from, to)
	if err != nil {
		return 1
	}
	return f
}

// Tag marks a point or a rectangular region in the coordinate space of
// its referenced data arrays.
type Tag struct {
	tagging
}

func newTag(f *File, p string, obj store.Object) *Tag {
	return &Tag{tagging{metaEntity{newEntity(f, p, obj)}}}
}

func (t *Tag) vector(name string) []float64 {
	g, err := t.group()
	if err != nil {
		return nil
	}
	ds, err := g.Dataset(name)
	if err != nil {
		return nil
	}
	v, err := toFloats(ds.Data())
	if err != nil {
		return nil
	}
	return v
}

// Position returns the start of the tagged region.
func (t *Tag) Position() []float64 { return t.vector("position") }

// SetPosition moves the tag. An empty position removes it.
func (t *Tag) SetPosition(pos []float64) error {
	g, err := t.writeGroup()
	if err != nil {
		return err
	}
	if err := replaceDataset(g, "position", store.Float64, pos); err != nil {
		return wrapErr(t.path, err)
	}
	t.touch(&g.Attrs)
	return nil
}

// Extent returns the size of the tagged region, or nil for a point.
func (t *Tag) Extent() []float64 { return t.vector("extent") }

// SetExtent changes the size of the region. An empty extent makes the
// tag a point.
func (t *Tag) SetExtent(ext []float64) error {
	g, err := t.writeGroup()
	if err != nil {
		return err
	}
	if err := replaceDataset(g, "extent", store.Float64, ext); err != nil {
		return wrapErr(t.path, err)
	}
	t.touch(&g.Attrs)
	return nil
}

// Retrieve returns the region of reference refIdx covered by the tag.
func (t *Tag) Retrieve(refIdx int) (*DataView, error) {
	da, err := t.reference(refIdx)
	if err != nil {
		return nil, err
	}
	offset, count, err := t.region(da, t.Position(), t.Extent())
	if err != nil {
		return nil, err
	}
	return newDataView(da, offset, count)
}

// RetrieveFeature returns the data of a feature. sel is the position of
// the feature, its id, or the name or id of its data array. Tagged
// features yield the tagged region of their data, untagged features
// their whole data. Indexed features need a position index and are only
// supported on multi-tags.
func (t *Tag) RetrieveFeature(sel any) (*DataView, error) {
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
		offset, count, err := t.region(da, t.Position(), t.Extent())
		if err != nil {
			return nil, err
		}
		return newDataView(da, offset, count)
	case Untagged:
		offset, count := full(da.Shape())
		return newDataView(da, offset, count)
	default:
		return nil, errorf(t.path, ErrUnsupportedLinkType, "%s feature on a tag", lt)
	}
}

// RetrieveFeatureRows returns the rows of a data frame feature. A tag has
// a single position, so Untagged and Indexed features both yield every
// row.
func (t *Tag) RetrieveFeatureRows(sel any) ([][]any, error) {
	f, df, err := t.frameFeature(sel)
	if err != nil {
		return nil, err
	}
	if lt := f.LinkType(); lt != Untagged && lt != Indexed {
		return nil, errorf(t.path, ErrUnsupportedLinkType, "%s data frame feature", lt)
	}
	return df.ReadRows(0, df.Rows())
}
