package nix

import (
	"errors"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/robert-malhotra/go-nix/internal/store"
	"github.com/robert-malhotra/go-nix/internal/units"
)

// DataArray is an N-dimensional array with a label, a unit, an optional
// polynomial calibration and one dimension descriptor per axis.
type DataArray struct {
	metaEntity
}

func newDataArray(f *File, p string, obj store.Object) *DataArray {
	return &DataArray{metaEntity{newEntity(f, p, obj)}}
}

func (da *DataArray) dataset() (*store.Dataset, error) {
	g, err := da.group()
	if err != nil {
		return nil, err
	}
	ds, err := g.Dataset("data")
	if err != nil {
		return nil, errorf(da.path, ErrUninitializedEntity, "no data")
	}
	return ds, nil
}

func (da *DataArray) writeDataset() (*store.Dataset, error) {
	if err := da.file.writable(); err != nil {
		return nil, wrapErr(da.path, err)
	}
	return da.dataset()
}

// Sources returns the linked sources.
func (da *DataArray) Sources() *LinkContainer[*Source] {
	return sourceLinks(da.file, da.path, blockPath(da.path))
}

// DType returns the element type of the stored data.
func (da *DataArray) DType() DataType {
	ds, err := da.dataset()
	if err != nil {
		return DataType{}
	}
	return ds.DType()
}

// Shape returns the extent of every axis.
func (da *DataArray) Shape() []int {
	ds, err := da.dataset()
	if err != nil {
		return nil
	}
	return ds.Shape()
}

// Rank returns the number of axes.
func (da *DataArray) Rank() int { return len(da.Shape()) }

// Len returns the total number of elements.
func (da *DataArray) Len() int { return product(da.Shape()) }

// Label returns the label of the values.
func (da *DataArray) Label() string { return da.getString("label") }

// SetLabel changes the label; an empty label removes it.
func (da *DataArray) SetLabel(label string) error {
	if label == "" {
		return da.setAttr("label", nil)
	}
	return da.setAttr("label", label)
}

// Unit returns the unit of the values.
func (da *DataArray) Unit() string { return da.getString("unit") }

// SetUnit changes the unit. It must be an SI unit or a compound of SI
// units; an empty unit removes it.
func (da *DataArray) SetUnit(unit string) error {
	u := units.Sanitize(unit)
	if u == "" {
		return da.setAttr("unit", nil)
	}
	if !units.IsSI(u) {
		return errorf(da.path, ErrInvalidUnit, "%q is not an SI unit", unit)
	}
	return da.setAttr("unit", u)
}

// ExpansionOrigin returns the origin of the calibration polynomial.
func (da *DataArray) ExpansionOrigin() (float64, bool) {
	a, err := da.attrs()
	if err != nil {
		return 0, false
	}
	return attrFloat(a, "expansion_origin")
}

// SetExpansionOrigin sets the origin of the calibration polynomial.
func (da *DataArray) SetExpansionOrigin(origin float64) error {
	return da.setAttr("expansion_origin", origin)
}

// RemoveExpansionOrigin removes the origin of the calibration polynomial.
func (da *DataArray) RemoveExpansionOrigin() error {
	return da.setAttr("expansion_origin", nil)
}

// PolynomCoefficients returns the calibration coefficients c0, c1, ...
func (da *DataArray) PolynomCoefficients() ([]float64, error) {
	g, err := da.group()
	if err != nil {
		return nil, err
	}
	ds, err := g.Dataset("polynom_coefficients")
	if err != nil {
		return nil, nil
	}
	return toFloats(ds.Data())
}

// SetPolynomCoefficients stores calibration coefficients. An empty slice
// removes them.
func (da *DataArray) SetPolynomCoefficients(coeff []float64) error {
	g, err := da.writeGroup()
	if err != nil {
		return err
	}
	if g.Has("polynom_coefficients") {
		if err := g.Delete("polynom_coefficients"); err != nil {
			return wrapErr(da.path, err)
		}
	}
	if len(coeff) > 0 {
		ds, err := store.NewDatasetFrom(store.Float64, coeff, nil)
		if err != nil {
			return wrapErr(da.path, err)
		}
		if err := g.AddDataset("polynom_coefficients", ds); err != nil {
			return wrapErr(da.path, err)
		}
	}
	da.touch(&g.Attrs)
	return nil
}

func sorted(ticks []float64) bool { return sort.Float64sAreSorted(ticks) }

// calibration returns the polynomial to apply on reads, if any.
func (da *DataArray) calibration() (coeff []float64, origin float64, ok bool, err error) {
	coeff, err = da.PolynomCoefficients()
	if err != nil {
		return nil, 0, false, err
	}
	origin, hasOrigin := da.ExpansionOrigin()
	return coeff, origin, len(coeff) > 0 || hasOrigin, nil
}

// calibrate evaluates sum(c[k] * (x - origin)^k) in place. Without
// coefficients only the origin is subtracted.
func calibrate(x, coeff []float64, origin float64) {
	floats.AddConst(-origin, x)
	if len(coeff) == 0 {
		return
	}
	acc := make([]float64, len(x))
	for i := range acc {
		acc[i] = coeff[len(coeff)-1]
	}
	for k := len(coeff) - 2; k >= 0; k-- {
		floats.Mul(acc, x)
		floats.AddConst(coeff[k], acc)
	}
	copy(x, acc)
}

// readSlice reads a region, applying the calibration to numeric data.
// Calibrated data is returned as []float64.
func (da *DataArray) readSlice(offset, count []int) (any, error) {
	ds, err := da.dataset()
	if err != nil {
		return nil, err
	}
	raw, err := ds.ReadSlice(offset, count)
	if err != nil {
		return nil, errorf(da.path, ErrOutOfBounds, "%v", err)
	}
	if !ds.DType().IsNumeric() {
		return raw, nil
	}
	coeff, origin, ok, err := da.calibration()
	if err != nil || !ok {
		return raw, err
	}
	x, err := toFloats(raw)
	if err != nil {
		return nil, wrapErr(da.path, err)
	}
	calibrate(x, coeff, origin)
	return x, nil
}

func full(shape []int) (offset, count []int) {
	return make([]int, len(shape)), append([]int(nil), shape...)
}

// Read returns all values as a flat row-major slice of the element type,
// or as []float64 when a calibration is set.
func (da *DataArray) Read() (any, error) {
	ds, err := da.dataset()
	if err != nil {
		return nil, err
	}
	offset, count := full(ds.Shape())
	return da.readSlice(offset, count)
}

// ReadSlice returns the calibrated values of the region starting at
// offset with count elements per axis.
func (da *DataArray) ReadSlice(offset, count []int) (any, error) {
	return da.readSlice(offset, count)
}

// ReadFloat64 returns all calibrated values converted to float64.
func (da *DataArray) ReadFloat64() ([]float64, error) {
	v, err := da.Read()
	if err != nil {
		return nil, err
	}
	out, err := toFloats(v)
	if err != nil {
		return nil, wrapErr(da.path, err)
	}
	return out, nil
}

// ReadRaw returns the stored values of a region without calibration.
func (da *DataArray) ReadRaw(offset, count []int) (any, error) {
	ds, err := da.dataset()
	if err != nil {
		return nil, err
	}
	v, err := ds.ReadSlice(offset, count)
	if err != nil {
		return nil, errorf(da.path, ErrOutOfBounds, "%v", err)
	}
	return v, nil
}

// Write replaces all values. Values are stored as given; the calibration
// only applies to reads.
func (da *DataArray) Write(data any) error {
	ds, err := da.writeDataset()
	if err != nil {
		return err
	}
	if err := ds.Write(data); err != nil {
		return errorf(da.path, ErrInvalidAttrType, "%v", err)
	}
	return nil
}

// WriteSlice stores data into the region starting at offset.
func (da *DataArray) WriteSlice(offset, count []int, data any) error {
	ds, err := da.writeDataset()
	if err != nil {
		return err
	}
	if err := ds.WriteSlice(offset, count, data); err != nil {
		if errors.Is(err, store.ErrRange) {
			return errorf(da.path, ErrOutOfBounds, "%v", err)
		}
		return errorf(da.path, ErrInvalidAttrType, "%v", err)
	}
	return nil
}

// Resize changes the extents of the array, keeping the overlap.
func (da *DataArray) Resize(shape ...int) error {
	ds, err := da.writeDataset()
	if err != nil {
		return err
	}
	if err := ds.Resize(shape); err != nil {
		return errorf(da.path, ErrIncompatibleDimensions, "%v", err)
	}
	return nil
}

// Append extends axis with data, which must cover whole slabs of the
// other axes.
func (da *DataArray) Append(data any, axis int) error {
	ds, err := da.writeDataset()
	if err != nil {
		return err
	}
	if err := ds.Append(data, axis); err != nil {
		return errorf(da.path, ErrIncompatibleDimensions, "%v", err)
	}
	return nil
}

func (da *DataArray) dimensionsGroup() (*store.Group, error) {
	g, err := da.group()
	if err != nil {
		return nil, err
	}
	dg, err := g.Group("dimensions")
	if err != nil {
		return nil, nil
	}
	return dg, nil
}

// DimensionCount returns the number of dimension descriptors.
func (da *DataArray) DimensionCount() int {
	dg, err := da.dimensionsGroup()
	if err != nil || dg == nil {
		return 0
	}
	return dg.Len()
}

// Dimension returns the descriptor of axis k, counting from 1.
func (da *DataArray) Dimension(k int) (Dimension, error) {
	dg, err := da.dimensionsGroup()
	if err != nil {
		return nil, err
	}
	if dg == nil || k < 1 || k > dg.Len() {
		return nil, errorf(da.path, ErrOutOfBounds, "dimension %d of %d", k, da.DimensionCount())
	}
	g, err := dg.Group(strconv.Itoa(k))
	if err != nil {
		return nil, errorf(da.path, ErrNotFound, "dimension %d", k)
	}
	return loadDimension(da, k, g)
}

// Dimensions returns all dimension descriptors in axis order.
func (da *DataArray) Dimensions() ([]Dimension, error) {
	dg, err := da.dimensionsGroup()
	if err != nil {
		return nil, err
	}
	n := 0
	if dg != nil {
		n = dg.Len()
	}
	out := make([]Dimension, 0, n)
	for k := 1; k <= n; k++ {
		d, err := da.Dimension(k)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// appendDimension creates the group of the next dimension with its type.
func (da *DataArray) appendDimension(typ DimensionType) (*store.Group, int, error) {
	g, err := da.writeGroup()
	if err != nil {
		return nil, 0, err
	}
	dg, err := g.RequireGroup("dimensions")
	if err != nil {
		return nil, 0, wrapErr(da.path, err)
	}
	k := dg.Len() + 1
	d, err := dg.CreateGroup(strconv.Itoa(k))
	if err != nil {
		return nil, 0, wrapErr(da.path, err)
	}
	d.SetAttr("dimension_type", string(typ))
	return d, k, nil
}

// AppendSetDimension adds a set dimension with optional labels.
func (da *DataArray) AppendSetDimension(labels []string) (*SetDimension, error) {
	d, k, err := da.appendDimension(SetDimensionType)
	if err != nil {
		return nil, err
	}
	if labels != nil {
		ds, err := store.NewDatasetFrom(store.String, labels, nil)
		if err != nil {
			return nil, wrapErr(da.path, err)
		}
		if err := d.AddDataset("labels", ds); err != nil {
			return nil, wrapErr(da.path, err)
		}
	}
	return &SetDimension{dimension{da: da, index: k}}, nil
}

// AppendSampledDimension adds a regularly sampled dimension.
func (da *DataArray) AppendSampledDimension(interval float64) (*SampledDimension, error) {
	if interval <= 0 {
		return nil, errorf(da.path, ErrInvalidAttrType, "sampling interval %g must be > 0", interval)
	}
	d, k, err := da.appendDimension(SampleDimensionType)
	if err != nil {
		return nil, err
	}
	d.SetAttr("sampling_interval", interval)
	return &SampledDimension{dimension{da: da, index: k}}, nil
}

// AppendRangeDimension adds a dimension with irregular ticks.
func (da *DataArray) AppendRangeDimension(ticks []float64) (*RangeDimension, error) {
	if !sorted(ticks) {
		return nil, errorf(da.path, ErrInvalidAttrType, "ticks are not sorted")
	}
	d, k, err := da.appendDimension(RangeDimensionType)
	if err != nil {
		return nil, err
	}
	if ticks != nil {
		ds, err := store.NewDatasetFrom(store.Float64, ticks, nil)
		if err != nil {
			return nil, wrapErr(da.path, err)
		}
		if err := d.AddDataset("ticks", ds); err != nil {
			return nil, wrapErr(da.path, err)
		}
	}
	return &RangeDimension{dimension{da: da, index: k}}, nil
}

// AppendAliasRangeDimension adds a range dimension whose ticks are the
// values of the array itself. The array must be one-dimensional, numeric
// and without other dimensions, and its unit must be SI.
func (da *DataArray) AppendAliasRangeDimension() (*RangeDimension, error) {
	ds, err := da.writeDataset()
	if err != nil {
		return nil, err
	}
	if ds.Rank() != 1 || !ds.DType().IsNumeric() {
		return nil, errorf(da.path, ErrInvalidAttrType, "alias range dimensions need 1-D numeric data, have %s %v", ds.DType(), ds.Shape())
	}
	if n := da.DimensionCount(); n > 0 {
		return nil, errorf(da.path, ErrIncompatibleDimensions, "alias range dimension must be the only one, have %d", n)
	}
	if u := da.Unit(); u != "" && !units.IsSI(u) {
		return nil, errorf(da.path, ErrInvalidUnit, "alias range dimensions need an SI unit, have %q", u)
	}
	d, k, err := da.appendDimension(RangeDimensionType)
	if err != nil {
		return nil, err
	}
	if err := createDimensionLinkAt(d, da.path, da.id, dataArrayLinkType, []int32{-1}, da.file.now()); err != nil {
		return nil, wrapErr(da.path, err)
	}
	return &RangeDimension{dimension{da: da, index: k}}, nil
}

// AppendDataFrameDimension adds a dimension drawing ticks, label and unit
// from column col of df.
func (da *DataArray) AppendDataFrameDimension(df *DataFrame, col int) (*DataFrameDimension, error) {
	if err := da.checkDataFrame(df, col); err != nil {
		return nil, err
	}
	d, k, err := da.appendDimension(DataFrameDimensionType)
	if err != nil {
		return nil, err
	}
	if err := createDimensionLinkAt(d, df.path, df.id, dataFrameLinkType, int32(col), da.file.now()); err != nil {
		return nil, wrapErr(da.path, err)
	}
	return &DataFrameDimension{dimension{da: da, index: k}}, nil
}

func (da *DataArray) checkDataFrame(df *DataFrame, col int) error {
	if df == nil || df.file != da.file {
		return errorf(da.path, ErrInvalidLink, "data frame is not part of this file")
	}
	cols, err := df.Columns()
	if err != nil {
		return err
	}
	if col < 0 || col >= len(cols) {
		return errorf(da.path, ErrOutOfBounds, "column %d of %d", col, len(cols))
	}
	return nil
}

// DeleteDimensions removes every dimension descriptor.
func (da *DataArray) DeleteDimensions() error {
	g, err := da.writeGroup()
	if err != nil {
		return err
	}
	if g.Has("dimensions") {
		if err := g.Delete("dimensions"); err != nil {
			return wrapErr(da.path, err)
		}
	}
	return nil
}

// SliceMode selects how Slice interprets its arguments.
type SliceMode int

const (
	// IndexMode takes positions and extents as indices.
	IndexMode SliceMode = iota
	// DataMode takes positions and extents in the coordinates of the
	// dimension descriptors.
	DataMode
)

// Slice returns a view of the region at positions with the given
// extents. In DataMode, sampled and range axes map coordinates through
// IndexOf and set axes truncate them to indices.
func (da *DataArray) Slice(positions, extents []float64, mode SliceMode) (*DataView, error) {
	shape := da.Shape()
	if len(positions) != len(shape) {
		return nil, errorf(da.path, ErrIncompatibleDimensions, "%d positions for %d dimensions", len(positions), len(shape))
	}
	if extents != nil && len(extents) != len(shape) {
		return nil, errorf(da.path, ErrIncompatibleDimensions, "%d extents for %d dimensions", len(extents), len(shape))
	}
	if extents == nil {
		extents = make([]float64, len(shape))
	}
	offset := make([]int, len(shape))
	count := make([]int, len(shape))
	switch mode {
	case IndexMode:
		for i := range shape {
			offset[i] = int(positions[i])
			count[i] = int(extents[i])
		}
	case DataMode:
		dims, err := da.Dimensions()
		if err != nil {
			return nil, err
		}
		if len(dims) != len(shape) {
			return nil, errorf(da.path, ErrIncompatibleDimensions, "%d dimensions for rank %d", len(dims), len(shape))
		}
		for i, d := range dims {
			if d.DimensionType() == SetDimensionType {
				offset[i] = int(positions[i])
				count[i] = int(extents[i])
				continue
			}
			start, err := d.IndexOf(positions[i])
			if err != nil {
				return nil, err
			}
			stop, err := d.IndexOf(positions[i] + extents[i])
			if err != nil {
				return nil, err
			}
			offset[i], count[i] = start, stop-start
		}
	default:
		return nil, errorf(da.path, ErrInvalidAttrType, "slice mode %d", mode)
	}
	return newDataView(da, offset, count)
}
