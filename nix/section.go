package nix

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/go-nix/internal/store"
)

// DefaultSectionType is used when a section is created without a type.
const DefaultSectionType = "undefined"

// Section is a node of the metadata tree. It holds properties and child
// sections and may link to another section whose properties it inherits.
type Section struct {
	entity
}

func newSection(f *File, p string, obj store.Object) *Section {
	return &Section{newEntity(f, p, obj)}
}

func createSection(f *File, c *Container[*Section], name, typ string, opts []CreateOption) (*Section, error) {
	if typ == "" {
		typ = DefaultSectionType
	}
	o := applyCreate(opts)
	id := o.id
	if id == "" {
		id = CreateID()
	} else if !IsUUID(id) {
		return nil, errorf(c.path(), ErrInvalidAttrType, "%q is not a UUID", id)
	}
	g, p, err := c.create(name)
	if err != nil {
		return nil, err
	}
	initEntity(&g.Attrs, id, name, typ, f.now())
	return newSection(f, p, g), nil
}

// Sections returns the child sections.
func (s *Section) Sections() *Container[*Section] {
	return newContainer(s.file, s.path, "sections", newSection)
}

// CreateSection adds a child section. An empty type defaults to
// "undefined".
func (s *Section) CreateSection(name, typ string, opts ...CreateOption) (*Section, error) {
	return createSection(s.file, s.Sections(), name, typ, opts)
}

// Properties returns the properties defined on the section itself.
func (s *Section) Properties() *Container[*Property] {
	return newContainer(s.file, s.path, "properties", newProperty)
}

// CreateProperty adds a property holding values. The value type is taken
// from the first value and every other value must have the same kind.
func (s *Section) CreateProperty(name string, values ...any) (*Property, error) {
	if len(values) == 0 {
		return nil, errorf(s.path, ErrInvalidAttrType, "property %q: no values to take the type from", name)
	}
	dt, err := valueType(values[0])
	if err != nil {
		return nil, wrapErr(s.path, err)
	}
	return createProperty(s, name, dt, nil, values)
}

// CreatePropertyWithType adds an empty property for values of dtype.
func (s *Section) CreatePropertyWithType(name string, dtype DataType, opts ...CreateOption) (*Property, error) {
	return createProperty(s, name, dtype, opts, nil)
}

// Repository returns the URL of the terminology the section follows.
func (s *Section) Repository() string { return s.getString("repository") }

// SetRepository changes the repository URL; empty removes it.
func (s *Section) SetRepository(url string) error {
	if url == "" {
		return s.setAttr("repository", nil)
	}
	return s.setAttr("repository", url)
}

// Link returns the linked section, or nil when there is none.
func (s *Section) Link() (*Section, error) {
	g, err := s.group()
	if err != nil {
		return nil, err
	}
	l, ok := g.Link("link")
	if !ok {
		return nil, nil
	}
	root, _ := s.file.root()
	obj, err := store.Resolve(root, l.Target)
	if err != nil {
		return nil, errorf(s.path, ErrInvalidLink, "dangling link to %s", l.Target)
	}
	return newSection(s.file, l.Target, obj), nil
}

// SetLink makes the section inherit the properties of target. The target
// must be another section of the same file that does not lead back to s
// through its own links. nil removes the link.
func (s *Section) SetLink(target *Section) error {
	if target == nil {
		return s.RemoveLink()
	}
	if target.file != s.file {
		return errorf(s.path, ErrInvalidLink, "section %s belongs to another file", target.ID())
	}
	if _, err := target.group(); err != nil {
		return err
	}
	for cur, seen := target, map[string]bool{}; cur != nil && !seen[cur.path]; {
		if cur.path == s.path {
			return errorf(s.path, ErrInvalidLink, "linking to %s would form a cycle", target.path)
		}
		seen[cur.path] = true
		next, err := cur.Link()
		if err != nil {
			break
		}
		cur = next
	}
	g, err := s.writeGroup()
	if err != nil {
		return err
	}
	if g.Has("link") {
		if err := g.Delete("link"); err != nil {
			return wrapErr(s.path, err)
		}
	}
	if err := g.CreateSoftLink("link", target.path); err != nil {
		return wrapErr(s.path, err)
	}
	s.touch(&g.Attrs)
	return nil
}

// RemoveLink drops the link if there is one.
func (s *Section) RemoveLink() error {
	g, err := s.writeGroup()
	if err != nil {
		return err
	}
	if !g.Has("link") {
		return nil
	}
	if err := g.Delete("link"); err != nil {
		return wrapErr(s.path, err)
	}
	s.touch(&g.Attrs)
	return nil
}

// InheritedProperties returns the own properties followed by those of
// the linked sections, nearest first. Names are not deduplicated.
func (s *Section) InheritedProperties() ([]*Property, error) {
	var out []*Property
	seen := map[string]bool{}
	for cur := s; cur != nil && !seen[cur.path]; {
		seen[cur.path] = true
		props, err := cur.Properties().All()
		if err != nil {
			return nil, err
		}
		out = append(out, props...)
		if cur, err = cur.Link(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Parent returns the section holding s, or nil for a root section.
func (s *Section) Parent() (*Section, error) {
	dir := path.Dir(s.path)
	if path.Base(dir) != "sections" {
		if _, err := s.group(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	p := path.Dir(dir)
	root, err := s.file.root()
	if err != nil {
		return nil, wrapErr(s.path, err)
	}
	g, err := store.ResolveGroup(root, p)
	if err != nil {
		return nil, wrapErr(p, ErrNotFound)
	}
	return newSection(s.file, p, g), nil
}

// FindSections returns s and its descendants that satisfy filter,
// breadth first, descending at most limit levels. A negative limit
// searches the whole subtree.
func (s *Section) FindSections(filter func(*Section) bool, limit int) ([]*Section, error) {
	return findTree([]*Section{s}, 0, func(s *Section) ([]*Section, error) { return s.Sections().All() }, filter, limit)
}

// FindRelated returns the sections near s that satisfy filter: the
// parent and siblings, then s and its direct children.
func (s *Section) FindRelated(filter func(*Section) bool) ([]*Section, error) {
	parent, err := s.Parent()
	if err != nil {
		return nil, err
	}
	var near []*Section
	if parent != nil {
		near, err = parent.FindSections(filter, 1)
	} else {
		near, err = s.file.FindSections(filter, 1)
	}
	if err != nil {
		return nil, err
	}
	var out []*Section
	for _, sec := range near {
		if sec.path != s.path {
			out = append(out, sec)
		}
	}
	own, err := s.FindSections(filter, 1)
	if err != nil {
		return nil, err
	}
	return append(out, own...), nil
}

// ReferringObjects returns every entity of the file whose metadata is s.
func (s *Section) ReferringObjects() ([]Entity, error) {
	blocks, err := s.file.Blocks().All()
	if err != nil {
		return nil, err
	}
	var out []Entity
	refers := func(e interface{ Metadata() (*Section, error) }) bool {
		m, err := e.Metadata()
		return err == nil && m != nil && m.id == s.id
	}
	for _, b := range blocks {
		if refers(b) {
			out = append(out, b)
		}
		found, err := metadataUsers(b)
		if err != nil {
			return nil, err
		}
		for _, e := range found {
			if refers(e) {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

type metadataUser interface {
	Entity
	Metadata() (*Section, error)
}

// metadataUsers lists the entities of b that may carry metadata.
func metadataUsers(b *Block) ([]metadataUser, error) {
	var out []metadataUser
	add := func(es []metadataUser, err error) error {
		out = append(out, es...)
		return err
	}
	if err := add(collect(b.Groups().All())); err != nil {
		return nil, err
	}
	if err := add(collect(b.DataArrays().All())); err != nil {
		return nil, err
	}
	if err := add(collect(b.Tags().All())); err != nil {
		return nil, err
	}
	if err := add(collect(b.MultiTags().All())); err != nil {
		return nil, err
	}
	if err := add(collect(b.FindSources(nil, -1))); err != nil {
		return nil, err
	}
	if err := add(collect(b.DataFrames().All())); err != nil {
		return nil, err
	}
	return out, nil
}

func collect[T metadataUser](es []T, err error) ([]metadataUser, error) {
	out := make([]metadataUser, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out, err
}

// String renders the section as "name (type)".
func (s *Section) String() string {
	return fmt.Sprintf("%s (%s)", s.name, s.Type())
}
