package nix

import (
	"fmt"
	"reflect"

	"github.com/robert-malhotra/go-nix/internal/store"
	"github.com/robert-malhotra/go-nix/internal/units"
)

// Column describes one column of a data frame.
type Column struct {
	Name  string
	DType DataType
	Unit  string
}

// DataFrame is a table of rows with named, typed columns, stored as a
// one-dimensional compound dataset.
type DataFrame struct {
	metaEntity
}

func newDataFrame(f *File, p string, obj store.Object) *DataFrame {
	return &DataFrame{metaEntity{newEntity(f, p, obj)}}
}

func checkColumns(columns []Column) ([]string, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: a data frame needs at least one column", ErrIncompatibleDimensions)
	}
	seen := make(map[string]bool, len(columns))
	us := make([]string, len(columns))
	for i, c := range columns {
		if err := checkName(c.Name); err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: column %q", ErrDuplicateName, c.Name)
		}
		seen[c.Name] = true
		switch c.DType.Class {
		case store.ClassInt, store.ClassUint, store.ClassFloat, store.ClassBool, store.ClassString:
		default:
			return nil, fmt.Errorf("%w: column %q has type %s", ErrInvalidAttrType, c.Name, c.DType)
		}
		if isZeroType(c.DType) {
			return nil, fmt.Errorf("%w: column %q has no type", ErrInvalidAttrType, c.Name)
		}
		us[i] = units.Sanitize(c.Unit)
		if us[i] != "" && !units.IsSI(us[i]) {
			return nil, fmt.Errorf("%w: column %q unit %q", ErrInvalidUnit, c.Name, c.Unit)
		}
	}
	return us, nil
}

func createDataFrame(b *Block, name, typ string, columns []Column, rows [][]any) (*DataFrame, error) {
	if err := checkType(typ); err != nil {
		return nil, wrapErr(b.path, err)
	}
	c := b.DataFrames()
	if err := c.checkFree(name); err != nil {
		return nil, err
	}
	us, err := checkColumns(columns)
	if err != nil {
		return nil, wrapErr(b.path, err)
	}
	fields := make([]store.Field, len(columns))
	for i, col := range columns {
		fields[i] = store.Field{Name: col.Name, Type: col.DType}
	}
	dt := store.Compound(fields...)
	recs, err := records(dt, rows)
	if err != nil {
		return nil, wrapErr(b.path, err)
	}
	ds, err := store.NewDatasetFrom(dt, recs, nil)
	if err != nil {
		return nil, errorf(b.path, ErrInvalidAttrType, "data frame %q: %v", name, err)
	}
	if b.file.opts.compression == CompressionDeflate {
		ds.SetCompression(deflateLevel)
	}

	g, p, err := c.create(name)
	if err != nil {
		return nil, err
	}
	initEntity(&g.Attrs, CreateID(), name, typ, b.file.now())
	for _, u := range us {
		if u != "" {
			g.SetAttr("units", us)
			break
		}
	}
	if err := g.AddDataset("data", ds); err != nil {
		return nil, wrapErr(p, err)
	}
	return newDataFrame(b.file, p, g), nil
}

// records converts rows into compound records of dt.
func records(dt DataType, rows [][]any) ([]store.Record, error) {
	out := make([]store.Record, len(rows))
	for i, row := range rows {
		rec, err := record(dt, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = rec
	}
	return out, nil
}

func record(dt DataType, row []any) (store.Record, error) {
	if len(row) != len(dt.Fields) {
		return nil, fmt.Errorf("%w: %d values for %d columns", ErrIncompatibleDimensions, len(row), len(dt.Fields))
	}
	rec := make(store.Record, len(row))
	for j, f := range dt.Fields {
		v, err := coerceValue(f.Type, row[j])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}
		rec[j] = v
	}
	return rec, nil
}

func (df *DataFrame) dataset() (*store.Dataset, error) {
	g, err := df.group()
	if err != nil {
		return nil, err
	}
	ds, err := g.Dataset("data")
	if err != nil {
		return nil, errorf(df.path, ErrUninitializedEntity, "no data")
	}
	if ds.DType().Class != store.ClassCompound || ds.Rank() != 1 {
		return nil, errorf(df.path, ErrInvalidAttrType, "data is %s of rank %d", ds.DType(), ds.Rank())
	}
	return ds, nil
}

func (df *DataFrame) writeDataset() (*store.Dataset, error) {
	if err := df.file.writable(); err != nil {
		return nil, wrapErr(df.path, err)
	}
	return df.dataset()
}

// Columns returns the column definitions.
func (df *DataFrame) Columns() ([]Column, error) {
	ds, err := df.dataset()
	if err != nil {
		return nil, err
	}
	us := df.Units()
	fields := ds.DType().Fields
	out := make([]Column, len(fields))
	for i, f := range fields {
		out[i] = Column{Name: f.Name, DType: f.Type, Unit: us[i]}
	}
	return out, nil
}

// ColumnIndex returns the position of the named column.
func (df *DataFrame) ColumnIndex(name string) (int, error) {
	ds, err := df.dataset()
	if err != nil {
		return -1, err
	}
	if i := ds.DType().Field(name); i >= 0 {
		return i, nil
	}
	return -1, errorf(df.path, ErrNotFound, "no column %q", name)
}

// Rows returns the number of rows.
func (df *DataFrame) Rows() int {
	ds, err := df.dataset()
	if err != nil {
		return 0
	}
	return ds.Shape()[0]
}

// Units returns one unit per column; columns without a unit have "".
func (df *DataFrame) Units() []string {
	ds, err := df.dataset()
	if err != nil {
		return nil
	}
	out := make([]string, len(ds.DType().Fields))
	g, _ := df.group()
	copy(out, attrStrings(&g.Attrs, "units"))
	return out
}

// SetUnits replaces the units of all columns. An empty list removes them.
func (df *DataFrame) SetUnits(us []string) error {
	if len(us) == 0 {
		return df.setAttr("units", nil)
	}
	ds, err := df.dataset()
	if err != nil {
		return err
	}
	if n := len(ds.DType().Fields); len(us) != n {
		return errorf(df.path, ErrIncompatibleDimensions, "%d units for %d columns", len(us), n)
	}
	clean := make([]string, len(us))
	for i, u := range us {
		clean[i] = units.Sanitize(u)
		if clean[i] != "" && !units.IsSI(clean[i]) {
			return errorf(df.path, ErrInvalidUnit, "column %d unit %q", i, u)
		}
	}
	return df.setAttr("units", clean)
}

// SetColumnUnit changes the unit of one column.
func (df *DataFrame) SetColumnUnit(col int, unit string) error {
	us := df.Units()
	if col < 0 || col >= len(us) {
		return errorf(df.path, ErrOutOfBounds, "column %d of %d", col, len(us))
	}
	us[col] = unit
	return df.SetUnits(us)
}

// AppendRows adds rows at the end.
func (df *DataFrame) AppendRows(rows [][]any) error {
	ds, err := df.writeDataset()
	if err != nil {
		return err
	}
	recs, err := records(ds.DType(), rows)
	if err != nil {
		return wrapErr(df.path, err)
	}
	if err := ds.Append(recs, 0); err != nil {
		return errorf(df.path, ErrInvalidAttrType, "%v", err)
	}
	if g, err := df.group(); err == nil {
		df.touch(&g.Attrs)
	}
	return nil
}

// ReadRows returns n rows starting at start.
func (df *DataFrame) ReadRows(start, n int) ([][]any, error) {
	ds, err := df.dataset()
	if err != nil {
		return nil, err
	}
	v, err := ds.ReadSlice([]int{start}, []int{n})
	if err != nil {
		return nil, errorf(df.path, ErrOutOfBounds, "rows [%d:%d] of %d", start, start+n, ds.Shape()[0])
	}
	recs := v.([]store.Record)
	out := make([][]any, len(recs))
	for i, r := range recs {
		out[i] = append([]any(nil), r...)
	}
	return out, nil
}

// ReadRow returns row i.
func (df *DataFrame) ReadRow(i int) ([]any, error) {
	rows, err := df.ReadRows(i, 1)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// WriteRow replaces row i.
func (df *DataFrame) WriteRow(i int, row []any) error {
	ds, err := df.writeDataset()
	if err != nil {
		return err
	}
	rec, err := record(ds.DType(), row)
	if err != nil {
		return wrapErr(df.path, err)
	}
	if err := ds.WriteSlice([]int{i}, []int{1}, []store.Record{rec}); err != nil {
		return errorf(df.path, ErrOutOfBounds, "row %d of %d", i, ds.Shape()[0])
	}
	return nil
}

// ReadColumn returns the values of column col as a slice of the column
// element type.
func (df *DataFrame) ReadColumn(col int) (any, error) {
	ds, err := df.dataset()
	if err != nil {
		return nil, err
	}
	fields := ds.DType().Fields
	if col < 0 || col >= len(fields) {
		return nil, errorf(df.path, ErrOutOfBounds, "column %d of %d", col, len(fields))
	}
	recs := ds.Data().([]store.Record)
	out := reflect.MakeSlice(reflect.SliceOf(fields[col].Type.GoType()), len(recs), len(recs))
	for i, r := range recs {
		out.Index(i).Set(reflect.ValueOf(r[col]))
	}
	return out.Interface(), nil
}

// ReadColumnByName returns the values of the named column.
func (df *DataFrame) ReadColumnByName(name string) (any, error) {
	col, err := df.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	return df.ReadColumn(col)
}

// ReadCell returns the value at row and col.
func (df *DataFrame) ReadCell(row, col int) (any, error) {
	r, err := df.ReadRow(row)
	if err != nil {
		return nil, err
	}
	if col < 0 || col >= len(r) {
		return nil, errorf(df.path, ErrOutOfBounds, "column %d of %d", col, len(r))
	}
	return r[col], nil
}

// WriteCell replaces the value at row and col.
func (df *DataFrame) WriteCell(row, col int, v any) error {
	r, err := df.ReadRow(row)
	if err != nil {
		return err
	}
	if col < 0 || col >= len(r) {
		return errorf(df.path, ErrOutOfBounds, "column %d of %d", col, len(r))
	}
	r[col] = v
	return df.WriteRow(row, r)
}
