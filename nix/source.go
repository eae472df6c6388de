package nix

import (
	"github.com/robert-malhotra/go-nix/internal/store"
)

// Source is a node of the provenance tree of a block, such as a subject,
// a brain region or a cell.
type Source struct {
	metaEntity
}

func newSource(f *File, p string, obj store.Object) *Source {
	return &Source{metaEntity{newEntity(f, p, obj)}}
}

func createSource(f *File, c *Container[*Source], name, typ string) (*Source, error) {
	if err := checkType(typ); err != nil {
		return nil, wrapErr(c.parent, err)
	}
	g, p, err := c.create(name)
	if err != nil {
		return nil, err
	}
	initEntity(&g.Attrs, CreateID(), name, typ, f.now())
	return newSource(f, p, g), nil
}

// sourceLinks returns the sources link container of an entity inside the
// block at blk.
func sourceLinks(f *File, owner, blk string) *LinkContainer[*Source] {
	return newLinkContainer(f, owner, "sources", newSource, within(blk+"/sources"))
}

// Sources returns the child sources.
func (s *Source) Sources() *Container[*Source] {
	return newContainer(s.file, s.path, "sources", newSource)
}

// CreateSource adds a child source.
func (s *Source) CreateSource(name, typ string) (*Source, error) {
	return createSource(s.file, s.Sources(), name, typ)
}

// FindSources returns this source and its descendants that satisfy
// filter, breadth first, descending at most limit levels.
func (s *Source) FindSources(filter func(*Source) bool, limit int) ([]*Source, error) {
	return findTree([]*Source{s}, 0, func(s *Source) ([]*Source, error) { return s.Sources().All() }, filter, limit)
}

func (s *Source) block() (*Block, error) {
	root, err := s.file.root()
	if err != nil {
		return nil, wrapErr(s.path, err)
	}
	p := blockPath(s.path)
	g, err := store.ResolveGroup(root, p)
	if err != nil {
		return nil, wrapErr(s.path, ErrNotFound)
	}
	return newBlock(s.file, p, g), nil
}

// referring returns the entities of all whose sources link to s.
func referring[T interface {
	Entity
	Sources() *LinkContainer[*Source]
}](s *Source, all []T) []T {
	var out []T
	for _, e := range all {
		if e.Sources().Contains(s.id) {
			out = append(out, e)
		}
	}
	return out
}

// ReferringDataArrays returns the data arrays of the block that link to
// the source.
func (s *Source) ReferringDataArrays() ([]*DataArray, error) {
	b, err := s.block()
	if err != nil {
		return nil, err
	}
	all, err := b.DataArrays().All()
	if err != nil {
		return nil, err
	}
	return referring(s, all), nil
}

// ReferringTags returns the tags of the block that link to the source.
func (s *Source) ReferringTags() ([]*Tag, error) {
	b, err := s.block()
	if err != nil {
		return nil, err
	}
	all, err := b.Tags().All()
	if err != nil {
		return nil, err
	}
	return referring(s, all), nil
}

// ReferringMultiTags returns the multi-tags of the block that link to the
// source.
func (s *Source) ReferringMultiTags() ([]*MultiTag, error) {
	b, err := s.block()
	if err != nil {
		return nil, err
	}
	all, err := b.MultiTags().All()
	if err != nil {
		return nil, err
	}
	return referring(s, all), nil
}
