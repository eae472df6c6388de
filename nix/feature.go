package nix

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/go-nix/internal/store"
)

// LinkType says how the data of a feature relates to the positions of
// its tag.
type LinkType string

const (
	// Tagged features are cut with the tag's own position and extent.
	Tagged LinkType = "Tagged"
	// Untagged features are returned whole.
	Untagged LinkType = "Untagged"
	// Indexed features hold one entry per multi-tag position along their
	// first axis.
	Indexed LinkType = "Indexed"
)

func (lt LinkType) check() error {
	switch lt {
	case Tagged, Untagged, Indexed:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedLinkType, string(lt))
}

// Feature attaches a data array or a data frame to a tag or multi-tag.
// Features have an id and timestamps but no name or type; Name returns
// the id.
type Feature struct {
	entity
}

func newFeature(f *File, p string, obj store.Object) *Feature {
	e := newEntity(f, p, obj)
	e.name = e.id
	return &Feature{e}
}

// LinkType returns how the feature data is cut.
func (ft *Feature) LinkType() LinkType { return LinkType(ft.getString("link_type")) }

// SetLinkType changes the link type. Data frame features cannot be
// Tagged.
func (ft *Feature) SetLinkType(lt LinkType) error {
	if err := lt.check(); err != nil {
		return wrapErr(ft.path, err)
	}
	if lt == Tagged && ft.HoldsDataFrame() {
		return errorf(ft.path, ErrUnsupportedLinkType, "data frame features cannot be %s", lt)
	}
	return ft.setAttr("link_type", string(lt))
}

// target resolves the data link of the feature.
func (ft *Feature) target() (string, store.Object, error) {
	g, err := ft.group()
	if err != nil {
		return "", nil, err
	}
	l, ok := g.Link("data")
	if !ok {
		return "", nil, errorf(ft.path, ErrUninitializedEntity, "feature has no data")
	}
	root, err := ft.file.root()
	if err != nil {
		return "", nil, wrapErr(ft.path, err)
	}
	obj, err := store.Resolve(root, l.Target)
	if err != nil {
		return "", nil, errorf(ft.path, ErrInvalidLink, "dangling data link to %s", l.Target)
	}
	return l.Target, obj, nil
}

func isDataFrame(p string) bool { return path.Base(path.Dir(p)) == "data_frames" }

// HoldsDataFrame reports whether the feature links a data frame.
func (ft *Feature) HoldsDataFrame() bool {
	p, _, err := ft.target()
	return err == nil && isDataFrame(p)
}

// Data returns the linked data array. It fails with ErrInvalidLink when
// the feature holds a data frame.
func (ft *Feature) Data() (*DataArray, error) {
	p, obj, err := ft.target()
	if err != nil {
		return nil, err
	}
	if isDataFrame(p) {
		return nil, errorf(ft.path, ErrInvalidLink, "feature data is the data frame %s", p)
	}
	return newDataArray(ft.file, p, obj), nil
}

// DataFrame returns the linked data frame. It fails with ErrInvalidLink
// when the feature holds a data array.
func (ft *Feature) DataFrame() (*DataFrame, error) {
	p, obj, err := ft.target()
	if err != nil {
		return nil, err
	}
	if !isDataFrame(p) {
		return nil, errorf(ft.path, ErrInvalidLink, "feature data is the data array %s", p)
	}
	return newDataFrame(ft.file, p, obj), nil
}

// dataEntity returns the linked data array or data frame.
func (ft *Feature) dataEntity() (Entity, error) {
	p, obj, err := ft.target()
	if err != nil {
		return nil, err
	}
	if isDataFrame(p) {
		return newDataFrame(ft.file, p, obj), nil
	}
	return newDataArray(ft.file, p, obj), nil
}

// SetData points the feature at another data array of the same block.
func (ft *Feature) SetData(da *DataArray) error {
	if da == nil {
		return errorf(ft.path, ErrUninitializedEntity, "feature without data")
	}
	if err := inBlock(ft.file, ft.path, &da.entity, "data_arrays"); err != nil {
		return err
	}
	return ft.link(da.path)
}

// SetDataFrame points the feature at a data frame of the same block.
func (ft *Feature) SetDataFrame(df *DataFrame) error {
	if df == nil {
		return errorf(ft.path, ErrUninitializedEntity, "feature without data")
	}
	if ft.LinkType() == Tagged {
		return errorf(ft.path, ErrUnsupportedLinkType, "data frame features cannot be %s", Tagged)
	}
	if err := inBlock(ft.file, ft.path, &df.entity, "data_frames"); err != nil {
		return err
	}
	return ft.link(df.path)
}

func (ft *Feature) link(target string) error {
	g, err := ft.writeGroup()
	if err != nil {
		return err
	}
	if g.Has("data") {
		if err := g.Delete("data"); err != nil {
			return wrapErr(ft.path, err)
		}
	}
	if err := g.CreateSoftLink("data", target); err != nil {
		return wrapErr(ft.path, err)
	}
	ft.touch(&g.Attrs)
	return nil
}

// FeatureContainer holds the features of a tag. Lookups by string match
// the feature id first and then the name or id of the linked data array.
type FeatureContainer struct {
	Container[*Feature]
}

// Get returns the feature with the given id, or the feature whose data
// array or data frame has the given name or id.
func (c *FeatureContainer) Get(sel string) (*Feature, error) {
	all, err := c.All()
	if err != nil {
		return nil, err
	}
	for _, f := range all {
		if f.id == sel {
			return f, nil
		}
	}
	for _, f := range all {
		e, err := f.dataEntity()
		if err != nil {
			continue
		}
		if e.ID() == sel || e.Name() == sel {
			return f, nil
		}
	}
	return nil, errorf(c.path(), ErrNotFound, "no feature %q", sel)
}

// Contains reports whether Get would find a feature.
func (c *FeatureContainer) Contains(sel string) bool {
	_, err := c.Get(sel)
	return err == nil
}

// Delete removes the feature selected like Get. The data array stays.
func (c *FeatureContainer) Delete(sel string) error {
	f, err := c.Get(sel)
	if err != nil {
		return err
	}
	return c.Container.Delete(f.id)
}
