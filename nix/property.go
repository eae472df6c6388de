package nix

import (
	"fmt"
	"reflect"

	"github.com/robert-malhotra/go-nix/internal/store"
	"github.com/robert-malhotra/go-nix/internal/units"
)

// Value is one entry of a property together with its provenance.
type Value struct {
	Value       any
	Uncertainty float64
	Reference   string
	Filename    string
	Encoder     string
	Checksum    string
}

func (v Value) String() string { return fmt.Sprint(v.Value) }

// OdmlType refines the value type of a property for odML tools.
type OdmlType string

const (
	OdmlBoolean  OdmlType = "boolean"
	OdmlInt      OdmlType = "int"
	OdmlFloat    OdmlType = "float"
	OdmlString   OdmlType = "string"
	OdmlText     OdmlType = "text"
	OdmlURL      OdmlType = "url"
	OdmlPerson   OdmlType = "person"
	OdmlDatetime OdmlType = "datetime"
	OdmlDate     OdmlType = "date"
	OdmlTime     OdmlType = "time"
)

// compatible reports whether values of class c may carry the odML type.
func (t OdmlType) compatible(c store.Class) bool {
	switch t {
	case OdmlString, OdmlText, OdmlURL, OdmlPerson, OdmlDatetime, OdmlDate, OdmlTime:
		return c == store.ClassString
	case OdmlBoolean:
		return c == store.ClassBool
	case OdmlFloat:
		return c == store.ClassFloat
	case OdmlInt:
		return c == store.ClassInt || c == store.ClassUint
	}
	return false
}

// Property is a named list of values of one type inside a section.
type Property struct {
	entity
}

func newProperty(f *File, p string, obj store.Object) *Property {
	return &Property{newEntity(f, p, obj)}
}

func propertyType(value DataType) DataType {
	return store.Compound(
		store.Field{Name: "value", Type: value},
		store.Field{Name: "uncertainty", Type: store.Float64},
		store.Field{Name: "reference", Type: store.String},
		store.Field{Name: "filename", Type: store.String},
		store.Field{Name: "encoder", Type: store.String},
		store.Field{Name: "checksum", Type: store.String},
	)
}

// valueType infers the stored type of a single value.
func valueType(v any) (DataType, error) {
	if val, ok := v.(Value); ok {
		v = val.Value
	}
	switch v.(type) {
	case bool:
		return Bool, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Int64, nil
	case float32, float64:
		return Float64, nil
	case string:
		return String, nil
	}
	return DataType{}, fmt.Errorf("%w: property values cannot be %T", ErrInvalidAttrType, v)
}

func createProperty(s *Section, name string, dtype DataType, opts []CreateOption, values []any) (*Property, error) {
	o := applyCreate(opts)
	id := o.id
	if id == "" {
		id = CreateID()
	} else if !IsUUID(id) {
		return nil, errorf(s.path, ErrInvalidAttrType, "%q is not a UUID", id)
	}
	switch dtype.Class {
	case store.ClassInt, store.ClassUint, store.ClassFloat, store.ClassBool, store.ClassString:
	default:
		return nil, errorf(s.path, ErrInvalidAttrType, "property %q cannot hold %s values", name, dtype)
	}
	c := s.Properties()
	if err := c.checkFree(name); err != nil {
		return nil, err
	}
	pt := propertyType(dtype)
	recs, err := propertyRecords(pt, values)
	if err != nil {
		return nil, wrapErr(c.path(), err)
	}
	ds, err := store.NewDatasetFrom(pt, recs, nil)
	if err != nil {
		return nil, errorf(c.path(), ErrInvalidAttrType, "property %q: %v", name, err)
	}
	g, err := c.requireGroup()
	if err != nil {
		return nil, err
	}
	initEntity(&ds.Attrs, id, name, "", s.file.now())
	p := c.path() + "/" + name
	if err := g.AddDataset(name, ds); err != nil {
		return nil, wrapErr(p, err)
	}
	return newProperty(s.file, p, ds), nil
}

// propertyRecords converts values, plain or wrapped in Value, into
// records of the compound type pt. Fields are matched by name.
func propertyRecords(pt DataType, values []any) ([]store.Record, error) {
	vi := pt.Field("value")
	if vi < 0 {
		return nil, fmt.Errorf("%w: no value field in %s", ErrInvalidAttrType, pt)
	}
	dtype := pt.Fields[vi].Type
	recs := make([]store.Record, len(values))
	for i, v := range values {
		val, ok := v.(Value)
		if !ok {
			val = Value{Value: v}
		}
		vt, err := valueType(val.Value)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		if !sameKind(vt, dtype) {
			return nil, fmt.Errorf("%w: value %d is %T, property holds %s", ErrInvalidAttrType, i, val.Value, dtype)
		}
		x, err := coerceValue(dtype, val.Value)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		rec := make(store.Record, len(pt.Fields))
		for j, f := range pt.Fields {
			switch f.Name {
			case "value":
				rec[j] = x
			case "uncertainty":
				rec[j] = val.Uncertainty
			case "reference":
				rec[j] = val.Reference
			case "filename":
				rec[j] = val.Filename
			case "encoder":
				rec[j] = val.Encoder
			case "checksum":
				rec[j] = val.Checksum
			default:
				rec[j] = reflect.Zero(f.Type.GoType()).Interface()
			}
		}
		recs[i] = rec
	}
	return recs, nil
}

func sameKind(a, b DataType) bool {
	isInt := func(c store.Class) bool { return c == store.ClassInt || c == store.ClassUint }
	return a.Class == b.Class || isInt(a.Class) && isInt(b.Class)
}

func (p *Property) dataset() (*store.Dataset, error) {
	obj, err := p.object()
	if err != nil {
		return nil, err
	}
	ds, ok := obj.(*store.Dataset)
	if !ok || ds.DType().Class != store.ClassCompound || ds.DType().Field("value") < 0 {
		return nil, errorf(p.path, ErrInvalidEntityType, "not a property dataset")
	}
	return ds, nil
}

// DataType returns the type of the values.
func (p *Property) DataType() DataType {
	ds, err := p.dataset()
	if err != nil {
		return DataType{}
	}
	dt := ds.DType()
	return dt.Fields[dt.Field("value")].Type
}

// Len returns the number of values.
func (p *Property) Len() int {
	ds, err := p.dataset()
	if err != nil {
		return 0
	}
	return ds.Len()
}

// Values returns the values in order.
func (p *Property) Values() ([]Value, error) {
	ds, err := p.dataset()
	if err != nil {
		return nil, err
	}
	dt := ds.DType()
	str := func(rec store.Record, name string) string {
		if i := dt.Field(name); i >= 0 {
			s, _ := rec[i].(string)
			return s
		}
		return ""
	}
	recs, _ := ds.Data().([]store.Record)
	out := make([]Value, len(recs))
	for i, rec := range recs {
		v := Value{
			Value:     rec[dt.Field("value")],
			Reference: str(rec, "reference"),
			Filename:  str(rec, "filename"),
			Encoder:   str(rec, "encoder"),
			Checksum:  str(rec, "checksum"),
		}
		if j := dt.Field("uncertainty"); j >= 0 {
			v.Uncertainty, _ = rec[j].(float64)
		}
		out[i] = v
	}
	return out, nil
}

// SetValues replaces all values. Each value is a plain bool, integer,
// float or string, or a Value, and must match the type of the property.
// No values clears the property.
func (p *Property) SetValues(values ...any) error {
	if err := p.file.writable(); err != nil {
		return wrapErr(p.path, err)
	}
	ds, err := p.dataset()
	if err != nil {
		return err
	}
	recs, err := propertyRecords(ds.DType(), values)
	if err != nil {
		return wrapErr(p.path, err)
	}
	if err := ds.Resize([]int{len(recs)}); err != nil {
		return wrapErr(p.path, err)
	}
	if err := ds.Write(recs); err != nil {
		return errorf(p.path, ErrInvalidAttrType, "%v", err)
	}
	p.touch(&ds.Attrs)
	return nil
}

// DeleteValues removes every value, keeping the type.
func (p *Property) DeleteValues() error { return p.SetValues() }

// Unit returns the unit of the values.
func (p *Property) Unit() string { return p.getString("unit") }

// SetUnit changes the unit, which must be SI. An empty unit removes it.
func (p *Property) SetUnit(unit string) error {
	u := units.Sanitize(unit)
	if u == "" {
		return p.setAttr("unit", nil)
	}
	if !units.IsSI(u) {
		return errorf(p.path, ErrInvalidUnit, "%q", unit)
	}
	return p.setAttr("unit", u)
}

func (p *Property) setOptional(name, v string) error {
	if v == "" {
		return p.setAttr(name, nil)
	}
	return p.setAttr(name, v)
}

// Mapping returns the mapping URL.
func (p *Property) Mapping() string { return p.getString("mapping") }

// SetMapping changes the mapping URL; empty removes it.
func (p *Property) SetMapping(m string) error { return p.setOptional("mapping", m) }

// Dependency returns the name of the property this one depends on.
func (p *Property) Dependency() string { return p.getString("dependency") }

// SetDependency changes the dependency; empty removes it.
func (p *Property) SetDependency(d string) error { return p.setOptional("dependency", d) }

// DependencyValue returns the value of the dependency this property
// applies to.
func (p *Property) DependencyValue() string { return p.getString("dependency_value") }

// SetDependencyValue changes the dependency value; empty removes it.
func (p *Property) SetDependencyValue(v string) error {
	return p.setOptional("dependency_value", v)
}

// ValueOrigin returns where the values came from.
func (p *Property) ValueOrigin() string { return p.getString("value_origin") }

// SetValueOrigin changes the value origin; empty removes it.
func (p *Property) SetValueOrigin(o string) error { return p.setOptional("value_origin", o) }

// OdmlType returns the odML type, or "" when unset.
func (p *Property) OdmlType() OdmlType { return OdmlType(p.getString("odml_type")) }

// SetOdmlType changes the odML type, which must suit the value type.
func (p *Property) SetOdmlType(t OdmlType) error {
	if t == "" {
		return p.setAttr("odml_type", nil)
	}
	if !t.compatible(p.DataType().Class) {
		return errorf(p.path, ErrInvalidAttrType, "odml type %q does not fit %s values", t, p.DataType())
	}
	return p.setAttr("odml_type", string(t))
}
