package nix

import (
	"path"

	"github.com/robert-malhotra/go-nix/internal/store"
)

// Group collects data arrays, tags, multi-tags and sources of its block
// under a label. It only links its members; deleting a group leaves them
// in place.
type Group struct {
	metaEntity
}

func newGroup(f *File, p string, obj store.Object) *Group {
	return &Group{metaEntity{newEntity(f, p, obj)}}
}

func (g *Group) links(name string) string { return path.Join(blockPath(g.path), name) }

// DataArrays returns the linked data arrays.
func (g *Group) DataArrays() *LinkContainer[*DataArray] {
	return newLinkContainer(g.file, g.path, "data_arrays", newDataArray, within(g.links("data_arrays")))
}

// Tags returns the linked tags.
func (g *Group) Tags() *LinkContainer[*Tag] {
	return newLinkContainer(g.file, g.path, "tags", newTag, within(g.links("tags")))
}

// MultiTags returns the linked multi-tags.
func (g *Group) MultiTags() *LinkContainer[*MultiTag] {
	return newLinkContainer(g.file, g.path, "multi_tags", newMultiTag, within(g.links("multi_tags")))
}

// Sources returns the linked sources. Any source of the block, however
// deeply nested, may be linked.
func (g *Group) Sources() *LinkContainer[*Source] {
	return newLinkContainer(g.file, g.path, "sources", newSource, within(g.links("sources")))
}

// DataFrames returns the linked data frames.
func (g *Group) DataFrames() *LinkContainer[*DataFrame] {
	return newLinkContainer(g.file, g.path, "data_frames", newDataFrame, within(g.links("data_frames")))
}
