package nix

// DataView is a rectangular region of a data array. Reads go through the
// calibration of the array.
type DataView struct {
	array  *DataArray
	offset []int
	count  []int
}

func newDataView(da *DataArray, offset, count []int) (*DataView, error) {
	shape := da.Shape()
	if len(offset) != len(shape) || len(count) != len(shape) {
		return nil, errorf(da.path, ErrIncompatibleDimensions, "view of rank %d on data of rank %d", len(offset), len(shape))
	}
	for i := range shape {
		if offset[i] < 0 || count[i] < 0 || offset[i]+count[i] > shape[i] {
			return nil, errorf(da.path, ErrOutOfBounds, "view [%d:%d] on axis %d of extent %d", offset[i], offset[i]+count[i], i, shape[i])
		}
	}
	return &DataView{
		array:  da,
		offset: append([]int(nil), offset...),
		count:  append([]int(nil), count...),
	}, nil
}

// DataArray returns the viewed array.
func (v *DataView) DataArray() *DataArray { return v.array }

// Offset returns the start index of the view on every axis.
func (v *DataView) Offset() []int { return append([]int(nil), v.offset...) }

// Shape returns the extent of the view on every axis.
func (v *DataView) Shape() []int { return append([]int(nil), v.count...) }

// Len returns the number of elements in the view.
func (v *DataView) Len() int { return product(v.count) }

// Read returns the values of the view as a flat row-major slice.
func (v *DataView) Read() (any, error) {
	return v.array.readSlice(v.offset, v.count)
}

// ReadFloat64 returns the values of the view converted to float64.
func (v *DataView) ReadFloat64() ([]float64, error) {
	data, err := v.Read()
	if err != nil {
		return nil, err
	}
	out, err := toFloats(data)
	if err != nil {
		return nil, wrapErr(v.array.path, err)
	}
	return out, nil
}

// absolute converts a region relative to the view into array indices.
func (v *DataView) absolute(offset, count []int) ([]int, error) {
	if len(offset) != len(v.count) || len(count) != len(v.count) {
		return nil, errorf(v.array.path, ErrIncompatibleDimensions, "selection of rank %d on view of rank %d", len(offset), len(v.count))
	}
	abs := make([]int, len(offset))
	for i := range offset {
		if offset[i] < 0 || count[i] < 0 || offset[i]+count[i] > v.count[i] {
			return nil, errorf(v.array.path, ErrOutOfBounds, "selection [%d:%d] on axis %d of view extent %d", offset[i], offset[i]+count[i], i, v.count[i])
		}
		abs[i] = v.offset[i] + offset[i]
	}
	return abs, nil
}

// ReadSlice reads a region given relative to the view.
func (v *DataView) ReadSlice(offset, count []int) (any, error) {
	abs, err := v.absolute(offset, count)
	if err != nil {
		return nil, err
	}
	return v.array.readSlice(abs, count)
}

// Write stores data into the whole view.
func (v *DataView) Write(data any) error {
	return v.array.WriteSlice(v.offset, v.count, data)
}

// WriteSlice stores data into a region given relative to the view.
func (v *DataView) WriteSlice(offset, count []int, data any) error {
	abs, err := v.absolute(offset, count)
	if err != nil {
		return err
	}
	return v.array.WriteSlice(abs, count, data)
}
