package nix

import (
	"github.com/robert-malhotra/go-nix/internal/store"
	"github.com/robert-malhotra/go-nix/internal/units"
)

// Block groups the data and annotations of one experiment or recording
// session.
type Block struct {
	metaEntity
}

func newBlock(f *File, p string, obj store.Object) *Block {
	return &Block{metaEntity{newEntity(f, p, obj)}}
}

// DataArrays returns the data arrays owned by the block.
func (b *Block) DataArrays() *Container[*DataArray] {
	return newContainer(b.file, b.path, "data_arrays", newDataArray)
}

// Tags returns the tags owned by the block.
func (b *Block) Tags() *Container[*Tag] {
	return newContainer(b.file, b.path, "tags", newTag)
}

// MultiTags returns the multi-tags owned by the block.
func (b *Block) MultiTags() *Container[*MultiTag] {
	return newContainer(b.file, b.path, "multi_tags", newMultiTag)
}

// Groups returns the groups owned by the block.
func (b *Block) Groups() *Container[*Group] {
	return newContainer(b.file, b.path, "groups", newGroup)
}

// Sources returns the root sources of the block.
func (b *Block) Sources() *Container[*Source] {
	return newContainer(b.file, b.path, "sources", newSource)
}

// DataFrames returns the data frames owned by the block.
func (b *Block) DataFrames() *Container[*DataFrame] {
	return newContainer(b.file, b.path, "data_frames", newDataFrame)
}

// CreateDataArray adds a data array. The element type is inferred from
// data when dtype is the zero DataType. data is a flat row-major slice;
// its shape comes from WithShape or is one axis as long as data. With no
// data, WithShape gives the initial zero-filled extent.
func (b *Block) CreateDataArray(name, typ string, dtype DataType, data any, opts ...DataArrayOption) (*DataArray, error) {
	o := &dataArrayOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if err := checkType(typ); err != nil {
		return nil, wrapErr(b.path, err)
	}
	c := b.DataArrays()
	if err := c.checkFree(name); err != nil {
		return nil, err
	}
	if isZeroType(dtype) {
		if data == nil {
			dtype = Float64
		} else {
			dt, err := store.DTypeOf(data)
			if err != nil {
				return nil, errorf(b.path, ErrInvalidAttrType, "%v", err)
			}
			dtype = dt
		}
	}
	var ds *store.Dataset
	var err error
	shape := o.shape
	if data == nil {
		if shape == nil {
			shape = []int{0}
		}
		ds, err = store.NewDataset(dtype, shape, o.maxShape)
	} else {
		ds, err = store.NewDatasetFrom(dtype, data, shape)
		if err == nil && o.maxShape != nil {
			err = ds.SetMaxShape(o.maxShape)
		}
	}
	if err != nil {
		return nil, errorf(b.path, ErrInvalidAttrType, "data array %q: %v", name, err)
	}
	unit := units.Sanitize(o.unit)
	if unit != "" && !units.IsSI(unit) {
		return nil, errorf(b.path, ErrInvalidUnit, "%q", o.unit)
	}
	compression := o.compression
	if compression == CompressionAuto {
		compression = b.file.opts.compression
	}
	if compression == CompressionDeflate {
		ds.SetCompression(deflateLevel)
	}

	g, p, err := c.create(name)
	if err != nil {
		return nil, err
	}
	initEntity(&g.Attrs, CreateID(), name, typ, b.file.now())
	if o.label != "" {
		g.SetAttr("label", o.label)
	}
	if unit != "" {
		g.SetAttr("unit", unit)
	}
	if err := g.AddDataset("data", ds); err != nil {
		return nil, wrapErr(p, err)
	}
	return newDataArray(b.file, p, g), nil
}

// CreateTag adds a tag at position.
func (b *Block) CreateTag(name, typ string, position []float64) (*Tag, error) {
	if err := checkType(typ); err != nil {
		return nil, wrapErr(b.path, err)
	}
	if len(position) == 0 {
		position = []float64{0}
	}
	pos, err := store.NewDatasetFrom(store.Float64, position, nil)
	if err != nil {
		return nil, wrapErr(b.path, err)
	}
	g, p, err := b.Tags().create(name)
	if err != nil {
		return nil, err
	}
	initEntity(&g.Attrs, CreateID(), name, typ, b.file.now())
	if err := g.AddDataset("position", pos); err != nil {
		return nil, wrapErr(p, err)
	}
	return newTag(b.file, p, g), nil
}

// CreateMultiTag adds a multi-tag whose positions are stored in the data
// array positions of the same block.
func (b *Block) CreateMultiTag(name, typ string, positions *DataArray) (*MultiTag, error) {
	if err := checkType(typ); err != nil {
		return nil, wrapErr(b.path, err)
	}
	if positions == nil {
		return nil, errorf(b.path, ErrUninitializedEntity, "multi-tag %q needs positions", name)
	}
	if err := b.ownsArray(positions); err != nil {
		return nil, err
	}
	g, p, err := b.MultiTags().create(name)
	if err != nil {
		return nil, err
	}
	initEntity(&g.Attrs, CreateID(), name, typ, b.file.now())
	if err := g.CreateSoftLink("positions", positions.path); err != nil {
		return nil, wrapErr(p, err)
	}
	return newMultiTag(b.file, p, g), nil
}

func (b *Block) ownsArray(da *DataArray) error {
	if da.file != b.file {
		return errorf(b.path, ErrInvalidLink, "data array %s belongs to another file", da.ID())
	}
	if err := within(b.child("data_arrays"))(da.path); err != nil {
		return wrapErr(b.path, err)
	}
	if _, err := da.group(); err != nil {
		return err
	}
	return nil
}

// CreateGroup adds a group.
func (b *Block) CreateGroup(name, typ string) (*Group, error) {
	if err := checkType(typ); err != nil {
		return nil, wrapErr(b.path, err)
	}
	g, p, err := b.Groups().create(name)
	if err != nil {
		return nil, err
	}
	initEntity(&g.Attrs, CreateID(), name, typ, b.file.now())
	return newGroup(b.file, p, g), nil
}

// CreateSource adds a root source.
func (b *Block) CreateSource(name, typ string) (*Source, error) {
	return createSource(b.file, b.Sources(), name, typ)
}

// CreateDataFrame adds a data frame with the given columns and rows.
// Each row holds one value per column.
func (b *Block) CreateDataFrame(name, typ string, columns []Column, rows [][]any) (*DataFrame, error) {
	return createDataFrame(b, name, typ, columns, rows)
}

// FindSources returns the sources of the block satisfying filter,
// breadth first, descending at most limit levels. A negative limit
// means no limit.
func (b *Block) FindSources(filter func(*Source) bool, limit int) ([]*Source, error) {
	roots, err := b.Sources().All()
	if err != nil {
		return nil, err
	}
	return findSources(roots, filter, limit)
}
