package nix

import (
	"fmt"
	"strconv"

	"github.com/spf13/cast"

	"github.com/robert-malhotra/go-nix/internal/store"
	"github.com/robert-malhotra/go-nix/internal/units"
)

// DimensionType is the kind of a dimension descriptor as stored in its
// dimension_type attribute.
type DimensionType string

const (
	SampleDimensionType    DimensionType = "sample"
	RangeDimensionType     DimensionType = "range"
	SetDimensionType       DimensionType = "set"
	DataFrameDimensionType DimensionType = "data_frame"
)

const (
	dataArrayLinkType = "DataArray"
	dataFrameLinkType = "DataFrame"
)

// Dimension describes how the indices of one axis of a data array map to
// coordinates.
type Dimension interface {
	// Index is the axis the descriptor belongs to, counting from 1.
	Index() int
	DimensionType() DimensionType
	Label() string
	Unit() string
	// IndexOf maps a coordinate to the nearest valid index.
	IndexOf(position float64) (int, error)
	// PositionAt maps an index to its coordinate.
	PositionAt(index int) (float64, error)
	// Axis returns the coordinates of count indices starting at start.
	Axis(count, start int) ([]float64, error)
}

func loadDimension(da *DataArray, k int, g *store.Group) (Dimension, error) {
	base := dimension{da: da, index: k}
	switch t := DimensionType(attrString(&g.Attrs, "dimension_type")); t {
	case SampleDimensionType:
		return &SampledDimension{base}, nil
	case RangeDimensionType:
		return &RangeDimension{base}, nil
	case SetDimensionType:
		return &SetDimension{base}, nil
	case DataFrameDimensionType:
		return &DataFrameDimension{base}, nil
	default:
		return nil, errorf(base.path(), ErrInvalidEntityType, "dimension type %q", t)
	}
}

type dimension struct {
	da    *DataArray
	index int
}

// Index returns the axis of the descriptor, counting from 1.
func (d *dimension) Index() int { return d.index }

// DataArray returns the array the descriptor belongs to.
func (d *dimension) DataArray() *DataArray { return d.da }

func (d *dimension) path() string {
	return d.da.child("dimensions/" + strconv.Itoa(d.index))
}

func (d *dimension) group() (*store.Group, error) {
	dg, err := d.da.dimensionsGroup()
	if err != nil {
		return nil, err
	}
	if dg == nil {
		return nil, wrapErr(d.path(), ErrNotFound)
	}
	g, err := dg.Group(strconv.Itoa(d.index))
	if err != nil {
		return nil, wrapErr(d.path(), ErrNotFound)
	}
	return g, nil
}

func (d *dimension) writeGroup() (*store.Group, error) {
	if err := d.da.file.writable(); err != nil {
		return nil, wrapErr(d.path(), err)
	}
	return d.group()
}

func (d *dimension) getString(name string) string {
	g, err := d.group()
	if err != nil {
		return ""
	}
	return attrString(&g.Attrs, name)
}

func (d *dimension) setAttr(name string, v any) error {
	g, err := d.writeGroup()
	if err != nil {
		return err
	}
	g.SetAttr(name, v)
	return nil
}

func (d *dimension) setOptionalString(name, v string) error {
	if v == "" {
		return d.setAttr(name, nil)
	}
	return d.setAttr(name, v)
}

// setAtomicUnit stores a sanitized atomic SI unit; empty removes it.
func (d *dimension) setAtomicUnit(unit string) error {
	u := units.Sanitize(unit)
	if u != "" && !units.IsAtomic(u) {
		return errorf(d.path(), ErrInvalidUnit, "%q is not an atomic SI unit", unit)
	}
	return d.setOptionalString("unit", u)
}

// HasLink reports whether the descriptor takes its values from a linked
// data array or data frame.
func (d *dimension) HasLink() bool {
	g, err := d.group()
	return err == nil && g.Has("link")
}

// Link returns the dimension link, or nil when there is none.
func (d *dimension) Link() (*DimensionLink, error) {
	g, err := d.group()
	if err != nil {
		return nil, err
	}
	if _, err := g.Group("link"); err != nil {
		return nil, nil
	}
	return &DimensionLink{dim: *d}, nil
}

func (d *dimension) mustLink() (*DimensionLink, error) {
	l, err := d.Link()
	if err == nil && l == nil {
		err = errorf(d.path(), ErrUninitializedEntity, "dimension has no link")
	}
	return l, err
}

// RemoveLink drops the dimension link.
func (d *dimension) RemoveLink() error {
	g, err := d.writeGroup()
	if err != nil {
		return err
	}
	if !g.Has("link") {
		return errorf(d.path(), ErrUninitializedEntity, "dimension has no link")
	}
	return wrapErr(d.path(), g.Delete("link"))
}

func (d *dimension) linkDataArray(target *DataArray, index []int) error {
	shape := target.Shape()
	if len(shape) != len(index) {
		return errorf(d.path(), ErrIncompatibleDimensions, "%d indices for %d dimensions of %s", len(index), len(shape), target.Name())
	}
	open := 0
	for _, i := range index {
		if i < 0 {
			open++
			if i != -1 {
				open++
			}
		}
	}
	if open != 1 {
		return errorf(d.path(), ErrInvalidAttrType, "exactly one index must be -1 and none may be otherwise negative: %v", index)
	}
	if target.file != d.da.file {
		return errorf(d.path(), ErrInvalidLink, "data array belongs to another file")
	}
	g, err := d.writeGroup()
	if err != nil {
		return err
	}
	idx := make([]int32, len(index))
	for i, v := range index {
		idx[i] = int32(v)
	}
	return wrapErr(d.path(), createDimensionLinkAt(g, target.path, target.id, dataArrayLinkType, idx, d.da.file.now()))
}

func (d *dimension) linkDataFrame(df *DataFrame, col int) error {
	if err := d.da.checkDataFrame(df, col); err != nil {
		return err
	}
	g, err := d.writeGroup()
	if err != nil {
		return err
	}
	return wrapErr(d.path(), createDimensionLinkAt(g, df.path, df.id, dataFrameLinkType, int32(col), d.da.file.now()))
}

// createDimensionLinkAt replaces the link group of the dimension group
// dim with one pointing at target.
func createDimensionLinkAt(dim *store.Group, target, targetID, objType string, index any, now string) error {
	if dim.Has("link") {
		if err := dim.Delete("link"); err != nil {
			return err
		}
	}
	g, err := dim.CreateGroup("link")
	if err != nil {
		return err
	}
	g.SetAttr("entity_id", CreateID())
	g.SetAttr("data_object_type", objType)
	g.SetAttr("index", index)
	g.SetAttr("created_at", now)
	g.SetAttr("updated_at", now)
	return g.CreateSoftLink(targetID, target)
}

// DimensionLink ties a range or set dimension to one vector of a data
// array, or to one column of a data frame, from which ticks or labels are
// read.
type DimensionLink struct {
	dim dimension
}

func (l *DimensionLink) path() string { return l.dim.path() + "/link" }

func (l *DimensionLink) group() (*store.Group, error) {
	g, err := l.dim.group()
	if err != nil {
		return nil, err
	}
	lg, err := g.Group("link")
	if err != nil {
		return nil, wrapErr(l.path(), ErrNotFound)
	}
	return lg, nil
}

// ID returns the UUID of the link.
func (l *DimensionLink) ID() string {
	g, err := l.group()
	if err != nil {
		return ""
	}
	return attrString(&g.Attrs, "entity_id")
}

// DataObjectType returns "DataArray" or "DataFrame".
func (l *DimensionLink) DataObjectType() string {
	g, err := l.group()
	if err != nil {
		return ""
	}
	return attrString(&g.Attrs, "data_object_type")
}

// Index returns the index vector for a data array link, where -1 marks
// the linked axis, or the single column index for a data frame link.
func (l *DimensionLink) Index() []int {
	g, err := l.group()
	if err != nil {
		return nil
	}
	return attrInts(&g.Attrs, "index")
}

func (l *DimensionLink) target() (string, store.Object, error) {
	g, err := l.group()
	if err != nil {
		return "", nil, err
	}
	root, err := l.dim.da.file.root()
	if err != nil {
		return "", nil, wrapErr(l.path(), err)
	}
	for _, lk := range g.Links() {
		if !lk.IsSoft() {
			continue
		}
		obj, err := store.Resolve(root, lk.Target)
		if err != nil {
			return "", nil, errorf(l.path(), ErrInvalidLink, "dangling link to %s", lk.Target)
		}
		return lk.Target, obj, nil
	}
	return "", nil, errorf(l.path(), ErrUninitializedEntity, "link has no target")
}

// LinkedDataArray returns the linked data array.
func (l *DimensionLink) LinkedDataArray() (*DataArray, error) {
	if t := l.DataObjectType(); t != dataArrayLinkType {
		return nil, errorf(l.path(), ErrInvalidEntityType, "link points to a %s", t)
	}
	p, obj, err := l.target()
	if err != nil {
		return nil, err
	}
	return newDataArray(l.dim.da.file, p, obj), nil
}

// LinkedDataFrame returns the linked data frame.
func (l *DimensionLink) LinkedDataFrame() (*DataFrame, error) {
	if t := l.DataObjectType(); t != dataFrameLinkType {
		return nil, errorf(l.path(), ErrInvalidEntityType, "link points to a %s", t)
	}
	p, obj, err := l.target()
	if err != nil {
		return nil, err
	}
	return newDataFrame(l.dim.da.file, p, obj), nil
}

func (l *DimensionLink) column() (*DataFrame, int, error) {
	df, err := l.LinkedDataFrame()
	if err != nil {
		return nil, 0, err
	}
	idx := l.Index()
	if len(idx) != 1 {
		return nil, 0, errorf(l.path(), ErrInvalidAttrType, "data frame link index %v", idx)
	}
	return df, idx[0], nil
}

// Values returns the linked vector: the data array values along the axis
// marked -1, or the values of the data frame column.
func (l *DimensionLink) Values() (any, error) {
	switch t := l.DataObjectType(); t {
	case dataArrayLinkType:
		da, err := l.LinkedDataArray()
		if err != nil {
			return nil, err
		}
		shape := da.Shape()
		idx := l.Index()
		if len(idx) != len(shape) {
			return nil, errorf(l.path(), ErrIncompatibleDimensions, "index %v for shape %v", idx, shape)
		}
		offset := make([]int, len(idx))
		count := make([]int, len(idx))
		for i, v := range idx {
			if v == -1 {
				count[i] = shape[i]
				continue
			}
			offset[i], count[i] = v, 1
		}
		return da.ReadRaw(offset, count)
	case dataFrameLinkType:
		df, col, err := l.column()
		if err != nil {
			return nil, err
		}
		return df.ReadColumn(col)
	default:
		return nil, errorf(l.path(), ErrInvalidEntityType, "data object type %q", t)
	}
}

// Label returns the label of the linked array or the name of the linked
// column.
func (l *DimensionLink) Label() string {
	switch l.DataObjectType() {
	case dataArrayLinkType:
		if da, err := l.LinkedDataArray(); err == nil {
			return da.Label()
		}
	case dataFrameLinkType:
		if df, col, err := l.column(); err == nil {
			if cols, err := df.Columns(); err == nil && col >= 0 && col < len(cols) {
				return cols[col].Name
			}
		}
	}
	return ""
}

// Unit returns the unit of the linked array or column.
func (l *DimensionLink) Unit() string {
	switch l.DataObjectType() {
	case dataArrayLinkType:
		if da, err := l.LinkedDataArray(); err == nil {
			return da.Unit()
		}
	case dataFrameLinkType:
		if df, col, err := l.column(); err == nil {
			if u := df.Units(); col >= 0 && col < len(u) {
				return u[col]
			}
		}
	}
	return ""
}

// SetLabel changes the label of the linked array. Column names of data
// frames cannot be changed.
func (l *DimensionLink) SetLabel(label string) error {
	da, err := l.LinkedDataArray()
	if err != nil {
		return err
	}
	return da.SetLabel(label)
}

// SetUnit changes the unit of the linked array or column.
func (l *DimensionLink) SetUnit(unit string) error {
	if l.DataObjectType() == dataFrameLinkType {
		df, col, err := l.column()
		if err != nil {
			return err
		}
		return df.SetColumnUnit(col, unit)
	}
	da, err := l.LinkedDataArray()
	if err != nil {
		return err
	}
	return da.SetUnit(unit)
}

// SampledDimension describes an axis sampled at a fixed interval.
type SampledDimension struct {
	dimension
}

// DimensionType returns SampleDimensionType.
func (d *SampledDimension) DimensionType() DimensionType { return SampleDimensionType }

// SamplingInterval returns the distance between neighbouring samples.
func (d *SampledDimension) SamplingInterval() float64 {
	g, err := d.group()
	if err != nil {
		return 0
	}
	v, _ := attrFloat(&g.Attrs, "sampling_interval")
	return v
}

// SetSamplingInterval changes the interval, which must be positive.
func (d *SampledDimension) SetSamplingInterval(interval float64) error {
	if interval <= 0 {
		return errorf(d.path(), ErrInvalidAttrType, "sampling interval %g must be > 0", interval)
	}
	return d.setAttr("sampling_interval", interval)
}

// Offset returns the coordinate of the first sample.
func (d *SampledDimension) Offset() float64 {
	v, _ := d.offset()
	return v
}

func (d *SampledDimension) offset() (float64, bool) {
	g, err := d.group()
	if err != nil {
		return 0, false
	}
	return attrFloat(&g.Attrs, "offset")
}

// HasOffset reports whether an offset is stored.
func (d *SampledDimension) HasOffset() bool {
	_, ok := d.offset()
	return ok
}

// SetOffset changes the coordinate of the first sample.
func (d *SampledDimension) SetOffset(offset float64) error { return d.setAttr("offset", offset) }

// RemoveOffset removes the offset.
func (d *SampledDimension) RemoveOffset() error { return d.setAttr("offset", nil) }

// Label returns the axis label.
func (d *SampledDimension) Label() string { return d.getString("label") }

// SetLabel changes the axis label; empty removes it.
func (d *SampledDimension) SetLabel(label string) error { return d.setOptionalString("label", label) }

// Unit returns the axis unit.
func (d *SampledDimension) Unit() string { return d.getString("unit") }

// SetUnit changes the axis unit, which must be an atomic SI unit.
func (d *SampledDimension) SetUnit(unit string) error { return d.setAtomicUnit(unit) }

// IndexOf returns round((position - offset) / interval). Positions
// before the offset are out of bounds.
func (d *SampledDimension) IndexOf(position float64) (int, error) {
	interval := d.SamplingInterval()
	if interval <= 0 {
		return 0, errorf(d.path(), ErrUninitializedEntity, "sampling interval not set")
	}
	scaled := (position - d.Offset()) / interval
	if scaled < 0 {
		return 0, errorf(d.path(), ErrOutOfBounds, "position %g is before the first sample", position)
	}
	return roundIndex(scaled), nil
}

// PositionAt returns offset + index * interval.
func (d *SampledDimension) PositionAt(index int) (float64, error) {
	return d.Offset() + float64(index)*d.SamplingInterval(), nil
}

// Axis returns the coordinates of samples start .. start+count-1.
func (d *SampledDimension) Axis(count, start int) ([]float64, error) {
	if count < 0 || start < 0 {
		return nil, errorf(d.path(), ErrOutOfBounds, "axis count %d start %d", count, start)
	}
	offset, interval := d.Offset(), d.SamplingInterval()
	out := make([]float64, count)
	for i := range out {
		out[i] = float64(start+i)*interval + offset
	}
	return out, nil
}

// RangeDimension describes an axis with explicit, sorted ticks. The
// ticks are stored with the dimension or read through a dimension link;
// an alias range links to the values of its own data array.
type RangeDimension struct {
	dimension
}

// DimensionType returns RangeDimensionType.
func (d *RangeDimension) DimensionType() DimensionType { return RangeDimensionType }

// Ticks returns the tick coordinates.
func (d *RangeDimension) Ticks() ([]float64, error) {
	g, err := d.group()
	if err != nil {
		return nil, err
	}
	if g.Has("link") {
		l, err := d.mustLink()
		if err != nil {
			return nil, err
		}
		v, err := l.Values()
		if err != nil {
			return nil, err
		}
		return toFloats(v)
	}
	ds, err := g.Dataset("ticks")
	if err != nil {
		return nil, nil
	}
	return toFloats(ds.Data())
}

// SetTicks replaces the ticks and drops any dimension link.
func (d *RangeDimension) SetTicks(ticks []float64) error {
	if !sorted(ticks) {
		return errorf(d.path(), ErrInvalidAttrType, "ticks are not sorted")
	}
	g, err := d.writeGroup()
	if err != nil {
		return err
	}
	ds, err := store.NewDatasetFrom(store.Float64, ticks, nil)
	if err != nil {
		return wrapErr(d.path(), err)
	}
	for _, name := range []string{"link", "ticks"} {
		if g.Has(name) {
			if err := g.Delete(name); err != nil {
				return wrapErr(d.path(), err)
			}
		}
	}
	return wrapErr(d.path(), g.AddDataset("ticks", ds))
}

// IsAlias reports whether the ticks are the values of the owning array.
func (d *RangeDimension) IsAlias() bool {
	l, err := d.Link()
	if err != nil || l == nil {
		return false
	}
	da, err := l.LinkedDataArray()
	return err == nil && da.ID() == d.da.ID()
}

// LinkDataArray takes the ticks from one vector of target; index holds
// one entry per axis of target with -1 marking the vector.
func (d *RangeDimension) LinkDataArray(target *DataArray, index []int) error {
	if err := d.linkDataArray(target, index); err != nil {
		return err
	}
	return d.dropTicks()
}

// LinkDataFrame takes the ticks from column col of df.
func (d *RangeDimension) LinkDataFrame(df *DataFrame, col int) error {
	if err := d.linkDataFrame(df, col); err != nil {
		return err
	}
	return d.dropTicks()
}

func (d *RangeDimension) dropTicks() error {
	g, err := d.group()
	if err != nil {
		return err
	}
	if g.Has("ticks") {
		return wrapErr(d.path(), g.Delete("ticks"))
	}
	return nil
}

// Label returns the axis label, taken from the link when there is one.
func (d *RangeDimension) Label() string {
	if l, err := d.Link(); err == nil && l != nil {
		return l.Label()
	}
	return d.getString("label")
}

// SetLabel changes the axis label.
func (d *RangeDimension) SetLabel(label string) error {
	if l, err := d.Link(); err == nil && l != nil {
		return l.SetLabel(label)
	}
	return d.setOptionalString("label", label)
}

// Unit returns the axis unit, taken from the link when there is one.
func (d *RangeDimension) Unit() string {
	if l, err := d.Link(); err == nil && l != nil {
		return l.Unit()
	}
	return d.getString("unit")
}

// SetUnit changes the axis unit, which must be an atomic SI unit.
func (d *RangeDimension) SetUnit(unit string) error {
	if l, err := d.Link(); err == nil && l != nil {
		return l.SetUnit(unit)
	}
	return d.setAtomicUnit(unit)
}

// IndexOf returns the last index whose tick is not greater than
// position, clamped to the valid range.
func (d *RangeDimension) IndexOf(position float64) (int, error) {
	ticks, err := d.Ticks()
	if err != nil {
		return 0, err
	}
	return tickIndex(d.path(), ticks, position)
}

// TickAt returns the tick at index.
func (d *RangeDimension) TickAt(index int) (float64, error) {
	ticks, err := d.Ticks()
	if err != nil {
		return 0, err
	}
	return tickAt(d.path(), ticks, index)
}

// PositionAt is TickAt.
func (d *RangeDimension) PositionAt(index int) (float64, error) { return d.TickAt(index) }

// Axis returns count ticks starting at start.
func (d *RangeDimension) Axis(count, start int) ([]float64, error) {
	ticks, err := d.Ticks()
	if err != nil {
		return nil, err
	}
	return tickAxis(d.path(), ticks, count, start)
}

func tickIndex(p string, ticks []float64, position float64) (int, error) {
	if len(ticks) == 0 {
		return 0, errorf(p, ErrOutOfBounds, "dimension has no ticks")
	}
	if position <= ticks[0] {
		return 0, nil
	}
	idx := 0
	for i, t := range ticks {
		if t <= position {
			idx = i
		}
	}
	return idx, nil
}

func tickAt(p string, ticks []float64, index int) (float64, error) {
	if index < 0 || index >= len(ticks) {
		return 0, errorf(p, ErrOutOfBounds, "index %d of %d ticks", index, len(ticks))
	}
	return ticks[index], nil
}

func tickAxis(p string, ticks []float64, count, start int) ([]float64, error) {
	if count < 0 || start < 0 || start+count > len(ticks) {
		return nil, errorf(p, ErrOutOfBounds, "axis [%d:%d] beyond %d ticks", start, start+count, len(ticks))
	}
	return append([]float64(nil), ticks[start:start+count]...), nil
}

// SetDimension describes a categorical axis whose entries may be
// labelled.
type SetDimension struct {
	dimension
}

// DimensionType returns SetDimensionType.
func (d *SetDimension) DimensionType() DimensionType { return SetDimensionType }

// Labels returns the category labels, read through the link if there is
// one.
func (d *SetDimension) Labels() ([]string, error) {
	g, err := d.group()
	if err != nil {
		return nil, err
	}
	if g.Has("link") {
		l, err := d.mustLink()
		if err != nil {
			return nil, err
		}
		v, err := l.Values()
		if err != nil {
			return nil, err
		}
		return cast.ToStringSliceE(v)
	}
	ds, err := g.Dataset("labels")
	if err != nil {
		return nil, nil
	}
	labels, ok := ds.Data().([]string)
	if !ok {
		return nil, errorf(d.path(), ErrInvalidAttrType, "labels are %s", ds.DType())
	}
	return labels, nil
}

// SetLabels replaces the labels. Linked labels cannot be changed.
func (d *SetDimension) SetLabels(labels []string) error {
	g, err := d.writeGroup()
	if err != nil {
		return err
	}
	if g.Has("link") {
		return errorf(d.path(), ErrInvalidLink, "labels of a linked set dimension cannot be changed")
	}
	if g.Has("labels") {
		if err := g.Delete("labels"); err != nil {
			return wrapErr(d.path(), err)
		}
	}
	if labels == nil {
		return nil
	}
	ds, err := store.NewDatasetFrom(store.String, labels, nil)
	if err != nil {
		return wrapErr(d.path(), err)
	}
	return wrapErr(d.path(), g.AddDataset("labels", ds))
}

// LinkDataArray takes the labels from one vector of target.
func (d *SetDimension) LinkDataArray(target *DataArray, index []int) error {
	return d.linkDataArray(target, index)
}

// LinkDataFrame takes the labels from column col of df.
func (d *SetDimension) LinkDataFrame(df *DataFrame, col int) error {
	return d.linkDataFrame(df, col)
}

// Label is always empty for set dimensions.
func (d *SetDimension) Label() string { return "" }

// Unit is always empty for set dimensions.
func (d *SetDimension) Unit() string { return "" }

// IndexOf rounds position to the nearest category.
func (d *SetDimension) IndexOf(position float64) (int, error) {
	if position < 0 {
		return 0, errorf(d.path(), ErrOutOfBounds, "negative position %g", position)
	}
	return roundIndex(position), nil
}

// PositionAt returns index.
func (d *SetDimension) PositionAt(index int) (float64, error) {
	return float64(index), nil
}

// Axis returns start .. start+count-1.
func (d *SetDimension) Axis(count, start int) ([]float64, error) {
	if count < 0 || start < 0 {
		return nil, errorf(d.path(), ErrOutOfBounds, "axis count %d start %d", count, start)
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = float64(start + i)
	}
	return out, nil
}

// DataFrameDimension takes ticks, label and unit from a column of a data
// frame.
type DataFrameDimension struct {
	dimension
}

// DimensionType returns DataFrameDimensionType.
func (d *DataFrameDimension) DimensionType() DimensionType { return DataFrameDimensionType }

// DataFrame returns the linked data frame.
func (d *DataFrameDimension) DataFrame() (*DataFrame, error) {
	l, err := d.mustLink()
	if err != nil {
		return nil, err
	}
	return l.LinkedDataFrame()
}

// Column returns the index of the linked column.
func (d *DataFrameDimension) Column() int {
	l, err := d.mustLink()
	if err != nil {
		return -1
	}
	if idx := l.Index(); len(idx) == 1 {
		return idx[0]
	}
	return -1
}

// Ticks returns the values of the column, which must be numeric.
func (d *DataFrameDimension) Ticks() ([]float64, error) {
	l, err := d.mustLink()
	if err != nil {
		return nil, err
	}
	v, err := l.Values()
	if err != nil {
		return nil, err
	}
	ticks, err := toFloats(v)
	if err != nil {
		return nil, wrapErr(d.path(), fmt.Errorf("column %d: %w", d.Column(), err))
	}
	return ticks, nil
}

// Label returns the column name.
func (d *DataFrameDimension) Label() string {
	l, err := d.mustLink()
	if err != nil {
		return ""
	}
	return l.Label()
}

// Unit returns the column unit.
func (d *DataFrameDimension) Unit() string {
	l, err := d.mustLink()
	if err != nil {
		return ""
	}
	return l.Unit()
}

// IndexOf maps position like a range dimension over the column values.
func (d *DataFrameDimension) IndexOf(position float64) (int, error) {
	ticks, err := d.Ticks()
	if err != nil {
		return 0, err
	}
	return tickIndex(d.path(), ticks, position)
}

// PositionAt returns the column value at index.
func (d *DataFrameDimension) PositionAt(index int) (float64, error) {
	ticks, err := d.Ticks()
	if err != nil {
		return 0, err
	}
	return tickAt(d.path(), ticks, index)
}

// Axis returns count column values starting at start.
func (d *DataFrameDimension) Axis(count, start int) ([]float64, error) {
	ticks, err := d.Ticks()
	if err != nil {
		return nil, err
	}
	return tickAxis(d.path(), ticks, count, start)
}
