package store

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrType  = errors.New("element type mismatch")
	ErrShape = errors.New("shape mismatch")
	ErrRange = errors.New("selection out of range")
)

// Unlimited marks a dimension of MaxShape that may grow without bound.
const Unlimited = -1

// Dataset is an N-dimensional array of one element type, held as a flat
// row-major Go slice. A rank-0 dataset holds a single element.
type Dataset struct {
	Attrs
	dtype       DType
	shape       []int
	maxShape    []int
	compression int
	data        reflect.Value
}

func (d *Dataset) attrHolder() *Attrs { return &d.Attrs }

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func checkShape(shape, maxShape []int) error {
	for i, s := range shape {
		if s < 0 {
			return fmt.Errorf("%w: negative extent %d on axis %d", ErrShape, s, i)
		}
	}
	if maxShape == nil {
		return nil
	}
	if len(maxShape) != len(shape) {
		return fmt.Errorf("%w: max shape rank %d, shape rank %d", ErrShape, len(maxShape), len(shape))
	}
	for i, m := range maxShape {
		if m != Unlimited && shape[i] > m {
			return fmt.Errorf("%w: extent %d exceeds maximum %d on axis %d", ErrShape, shape[i], m, i)
		}
	}
	return nil
}

// NewDataset returns a zero-filled dataset. A nil maxShape makes every
// axis unlimited.
func NewDataset(dt DType, shape, maxShape []int) (*Dataset, error) {
	if maxShape == nil {
		maxShape = make([]int, len(shape))
		for i := range maxShape {
			maxShape[i] = Unlimited
		}
	}
	if err := checkShape(shape, maxShape); err != nil {
		return nil, err
	}
	return &Dataset{
		dtype:    dt,
		shape:    append([]int(nil), shape...),
		maxShape: append([]int(nil), maxShape...),
		data:     dt.makeSlice(product(shape)),
	}, nil
}

// NewDatasetFrom wraps a flat slice. A nil shape means one axis as long as
// data.
func NewDatasetFrom(dt DType, data any, shape []int) (*Dataset, error) {
	rv, err := dt.coerce(data)
	if err != nil {
		return nil, err
	}
	if shape == nil {
		shape = []int{rv.Len()}
	}
	ds, err := NewDataset(dt, shape, nil)
	if err != nil {
		return nil, err
	}
	if rv.Len() != product(shape) {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShape, rv.Len(), shape)
	}
	reflect.Copy(ds.data, rv)
	return ds, nil
}

// DType returns the element type.
func (d *Dataset) DType() DType { return d.dtype }

// Shape returns a copy of the current extents.
func (d *Dataset) Shape() []int { return append([]int(nil), d.shape...) }

// MaxShape returns a copy of the maximum extents.
func (d *Dataset) MaxShape() []int { return append([]int(nil), d.maxShape...) }

// SetMaxShape replaces the maximum extents.
func (d *Dataset) SetMaxShape(maxShape []int) error {
	if err := checkShape(d.shape, maxShape); err != nil {
		return err
	}
	d.maxShape = append([]int(nil), maxShape...)
	return nil
}

// Rank returns the number of axes.
func (d *Dataset) Rank() int { return len(d.shape) }

// Len returns the number of elements.
func (d *Dataset) Len() int { return d.data.Len() }

// Compression returns the deflate level, zero when uncompressed.
func (d *Dataset) Compression() int { return d.compression }

// SetCompression sets the deflate level used when the dataset is saved.
func (d *Dataset) SetCompression(level int) {
	if level < 0 || level > 9 {
		level = 0
	}
	d.compression = level
}

// Data returns a copy of all elements in row-major order.
func (d *Dataset) Data() any {
	out := reflect.MakeSlice(d.data.Type(), d.data.Len(), d.data.Len())
	reflect.Copy(out, d.data)
	return out.Interface()
}

// Write replaces every element. data must hold Len values.
func (d *Dataset) Write(data any) error {
	rv, err := d.dtype.coerce(data)
	if err != nil {
		return err
	}
	if rv.Len() != d.data.Len() {
		return fmt.Errorf("%w: %d values for shape %v", ErrShape, rv.Len(), d.shape)
	}
	reflect.Copy(d.data, rv)
	return nil
}

func (d *Dataset) checkSelection(offset, count []int) error {
	if len(offset) != len(d.shape) || len(count) != len(d.shape) {
		return fmt.Errorf("%w: selection rank %d/%d, dataset rank %d", ErrShape, len(offset), len(count), len(d.shape))
	}
	for i := range d.shape {
		if offset[i] < 0 || count[i] < 0 || offset[i]+count[i] > d.shape[i] {
			return fmt.Errorf("%w: [%d:%d] on axis %d of extent %d", ErrRange, offset[i], offset[i]+count[i], i, d.shape[i])
		}
	}
	return nil
}

// ReadSlice returns the hyperslab starting at offset with count elements
// per axis, as a flat row-major slice.
func (d *Dataset) ReadSlice(offset, count []int) (any, error) {
	if err := d.checkSelection(offset, count); err != nil {
		return nil, err
	}
	out := reflect.MakeSlice(d.data.Type(), product(count), product(count))
	dst := 0
	eachRun(count, func(idx []int, n int) {
		src := linear(d.shape, offset, idx)
		reflect.Copy(out.Slice(dst, dst+n), d.data.Slice(src, src+n))
		dst += n
	})
	return out.Interface(), nil
}

// WriteSlice stores data into the hyperslab starting at offset.
func (d *Dataset) WriteSlice(offset, count []int, data any) error {
	if err := d.checkSelection(offset, count); err != nil {
		return err
	}
	rv, err := d.dtype.coerce(data)
	if err != nil {
		return err
	}
	if rv.Len() != product(count) {
		return fmt.Errorf("%w: %d values for selection %v", ErrShape, rv.Len(), count)
	}
	src := 0
	eachRun(count, func(idx []int, n int) {
		dst := linear(d.shape, offset, idx)
		reflect.Copy(d.data.Slice(dst, dst+n), rv.Slice(src, src+n))
		src += n
	})
	return nil
}

// Resize changes the extents, keeping the overlapping region. New
// elements are zero.
func (d *Dataset) Resize(shape []int) error {
	if len(shape) != len(d.shape) {
		return fmt.Errorf("%w: cannot change rank %d to %d", ErrShape, len(d.shape), len(shape))
	}
	if err := checkShape(shape, d.maxShape); err != nil {
		return err
	}
	next := d.dtype.makeSlice(product(shape))
	overlap := make([]int, len(shape))
	for i := range shape {
		overlap[i] = min(shape[i], d.shape[i])
	}
	zero := make([]int, len(shape))
	eachRun(overlap, func(idx []int, n int) {
		src := linear(d.shape, zero, idx)
		dst := linear(shape, zero, idx)
		reflect.Copy(next.Slice(dst, dst+n), d.data.Slice(src, src+n))
	})
	d.shape = append([]int(nil), shape...)
	d.data = next
	return nil
}

// Append grows axis by as many slabs as data holds and writes data into
// the new region. data is row-major over the other extents.
func (d *Dataset) Append(data any, axis int) error {
	if axis < 0 || axis >= len(d.shape) {
		return fmt.Errorf("%w: axis %d of rank %d", ErrShape, axis, len(d.shape))
	}
	rv, err := d.dtype.coerce(data)
	if err != nil {
		return err
	}
	if rv.Len() == 0 {
		return nil
	}
	slab := 1
	for i, s := range d.shape {
		if i != axis {
			slab *= s
		}
	}
	if slab == 0 || rv.Len()%slab != 0 {
		return fmt.Errorf("%w: %d values do not fill slabs of %d", ErrShape, rv.Len(), slab)
	}
	n := rv.Len() / slab
	shape := d.Shape()
	shape[axis] += n
	if err := d.Resize(shape); err != nil {
		return err
	}
	offset := make([]int, len(shape))
	offset[axis] = shape[axis] - n
	count := d.Shape()
	count[axis] = n
	return d.WriteSlice(offset, count, rv.Interface())
}

// eachRun calls fn once per contiguous run along the last axis of a region
// with the given extents. idx is the region-relative index of the run
// start; it is reused between calls.
func eachRun(count []int, fn func(idx []int, n int)) {
	rank := len(count)
	if rank == 0 {
		fn(nil, 1)
		return
	}
	if product(count) == 0 {
		return
	}
	idx := make([]int, rank)
	run := count[rank-1]
	for {
		fn(idx, run)
		k := rank - 2
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < count[k] {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return
		}
	}
}

// linear maps offset+idx to a flat position in an array of shape.
func linear(shape, offset, idx []int) int {
	pos := 0
	for i := range shape {
		pos = pos*shape[i] + offset[i]
		if idx != nil {
			pos += idx[i]
		}
	}
	return pos
}
