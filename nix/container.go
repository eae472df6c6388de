package nix

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/go-nix/internal/store"
)

// children is the read side shared by owned and link containers. The
// container group lives at parent/name and may not exist yet, in which
// case the container is empty.
type children[T Entity] struct {
	file   *File
	parent string
	name   string
	wrap   func(f *File, p string, obj store.Object) T
}

func (c *children[T]) path() string { return path.Join(c.parent, c.name) }

func (c *children[T]) group() (*store.Group, error) {
	root, err := c.file.root()
	if err != nil {
		return nil, wrapErr(c.path(), err)
	}
	pg, err := store.ResolveGroup(root, c.parent)
	if err != nil {
		return nil, wrapErr(c.parent, ErrNotFound)
	}
	g, err := pg.Group(c.name)
	if err != nil {
		return nil, nil
	}
	return g, nil
}

func (c *children[T]) requireGroup() (*store.Group, error) {
	if err := c.file.writable(); err != nil {
		return nil, wrapErr(c.path(), err)
	}
	root, err := c.file.root()
	if err != nil {
		return nil, wrapErr(c.path(), err)
	}
	pg, err := store.ResolveGroup(root, c.parent)
	if err != nil {
		return nil, wrapErr(c.parent, ErrNotFound)
	}
	g, err := pg.RequireGroup(c.name)
	if err != nil {
		return nil, wrapErr(c.path(), err)
	}
	return g, nil
}

// load turns a link of the container group into a handle. Soft links are
// followed to the canonical path of their target.
func (c *children[T]) load(l *store.Link) (T, error) {
	var zero T
	if !l.IsSoft() {
		return c.wrap(c.file, path.Join(c.path(), l.Name), l.Object()), nil
	}
	root, err := c.file.root()
	if err != nil {
		return zero, err
	}
	obj, err := store.Resolve(root, l.Target)
	if err != nil {
		return zero, errorf(path.Join(c.path(), l.Name), ErrInvalidLink, "dangling link to %s", l.Target)
	}
	return c.wrap(c.file, l.Target, obj), nil
}

// Len returns the number of entities. It is zero when the container
// cannot be read.
func (c *children[T]) Len() int {
	g, err := c.group()
	if err != nil || g == nil {
		return 0
	}
	return g.Len()
}

// At returns the i-th entity in creation order.
func (c *children[T]) At(i int) (T, error) {
	var zero T
	g, err := c.group()
	if err != nil {
		return zero, err
	}
	if g == nil || i < 0 || i >= g.Len() {
		return zero, errorf(c.path(), ErrOutOfBounds, "index %d, length %d", i, c.Len())
	}
	l, err := g.At(i)
	if err != nil {
		return zero, wrapErr(c.path(), err)
	}
	return c.load(l)
}

// All returns every entity in creation order.
func (c *children[T]) All() ([]T, error) {
	g, err := c.group()
	if err != nil || g == nil {
		return nil, err
	}
	out := make([]T, 0, g.Len())
	for _, l := range g.Links() {
		e, err := c.load(l)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *children[T]) find(match func(T) bool) (T, int, error) {
	var zero T
	all, err := c.All()
	if err != nil {
		return zero, -1, err
	}
	for i, e := range all {
		if match(e) {
			return e, i, nil
		}
	}
	return zero, -1, nil
}

// ByID returns the entity with the given UUID.
func (c *children[T]) ByID(id string) (T, error) {
	e, i, err := c.find(func(e T) bool { return e.ID() == id })
	if err == nil && i < 0 {
		err = errorf(c.path(), ErrNotFound, "no entity with id %s", id)
	}
	return e, err
}

// ByName returns the entity with the given name.
func (c *children[T]) ByName(name string) (T, error) {
	e, i, err := c.find(func(e T) bool { return e.Name() == name })
	if err == nil && i < 0 {
		err = errorf(c.path(), ErrNotFound, "no entity named %q", name)
	}
	return e, err
}

// Get looks an entity up by UUID and then by name.
func (c *children[T]) Get(nameOrID string) (T, error) {
	e, i, err := c.find(func(e T) bool { return e.ID() == nameOrID || e.Name() == nameOrID })
	if err == nil && i < 0 {
		err = errorf(c.path(), ErrNotFound, "no entity %q", nameOrID)
	}
	return e, err
}

// Contains reports whether an entity with the given name or UUID exists.
func (c *children[T]) Contains(nameOrID string) bool {
	_, i, err := c.find(func(e T) bool { return e.ID() == nameOrID || e.Name() == nameOrID })
	return err == nil && i >= 0
}

// Container holds entities owned by its parent. Deleting an entity
// removes its subtree and every link that pointed into it.
type Container[T Entity] struct {
	children[T]
}

func newContainer[T Entity](f *File, parent, name string, wrap func(*File, string, store.Object) T) *Container[T] {
	return &Container[T]{children[T]{file: f, parent: parent, name: name, wrap: wrap}}
}

// Delete removes the entity with the given name or UUID.
func (c *Container[T]) Delete(nameOrID string) error {
	e, err := c.Get(nameOrID)
	if err != nil {
		return err
	}
	g, err := c.requireGroup()
	if err != nil {
		return err
	}
	if err := g.Delete(path.Base(e.Path())); err != nil {
		return wrapErr(e.Path(), err)
	}
	c.file.scrub()
	c.file.log.WithField("entity", e.Path()).Debug("deleted entity")
	return nil
}

// create checks name and adds a new child group.
func (c *Container[T]) create(name string) (*store.Group, string, error) {
	p := path.Join(c.path(), name)
	if err := checkName(name); err != nil {
		return nil, p, wrapErr(c.path(), err)
	}
	g, err := c.requireGroup()
	if err != nil {
		return nil, p, err
	}
	if g.Has(name) {
		return nil, p, errorf(c.path(), ErrDuplicateName, "%q exists", name)
	}
	child, err := g.CreateGroup(name)
	if err != nil {
		return nil, p, wrapErr(p, err)
	}
	return child, p, nil
}

// checkFree fails with ErrDuplicateName when name is taken.
func (c *Container[T]) checkFree(name string) error {
	if err := checkName(name); err != nil {
		return wrapErr(c.path(), err)
	}
	if err := c.file.writable(); err != nil {
		return wrapErr(c.path(), err)
	}
	g, err := c.group()
	if err != nil {
		return err
	}
	if g != nil && g.Has(name) {
		return errorf(c.path(), ErrDuplicateName, "%q exists", name)
	}
	return nil
}

// LinkContainer holds links to entities owned elsewhere. Links are named
// by the UUID of their target; removing one leaves the target alone.
type LinkContainer[T Entity] struct {
	children[T]
	scope func(target string) error
}

func newLinkContainer[T Entity](f *File, parent, name string, wrap func(*File, string, store.Object) T, scope func(string) error) *LinkContainer[T] {
	return &LinkContainer[T]{children: children[T]{file: f, parent: parent, name: name, wrap: wrap}, scope: scope}
}

// Append links e. Linking an entity twice is a no-op.
func (c *LinkContainer[T]) Append(e T) error {
	if err := c.file.writable(); err != nil {
		return wrapErr(c.path(), err)
	}
	if err := c.checkTarget(e); err != nil {
		return err
	}
	g, err := c.requireGroup()
	if err != nil {
		return err
	}
	if g.Has(e.ID()) {
		return nil
	}
	if err := g.CreateSoftLink(e.ID(), e.Path()); err != nil {
		return wrapErr(c.path(), err)
	}
	c.touchOwner()
	return nil
}

// touchOwner records a link change on the entity holding the container.
func (c *LinkContainer[T]) touchOwner() {
	if !c.file.opts.autoUpdate {
		return
	}
	root, err := c.file.root()
	if err != nil {
		return
	}
	if g, err := store.ResolveGroup(root, c.parent); err == nil {
		g.SetAttr("updated_at", c.file.now())
	}
}

func (c *LinkContainer[T]) checkTarget(e T) error {
	root, err := c.file.root()
	if err != nil {
		return wrapErr(c.path(), err)
	}
	if !store.Exists(root, e.Path()) || e.ID() == "" {
		return errorf(c.path(), ErrInvalidLink, "%s does not exist in this file", e.Path())
	}
	if c.scope != nil {
		if err := c.scope(e.Path()); err != nil {
			return wrapErr(c.path(), err)
		}
	}
	return nil
}

// Extend links every entity of es, stopping at the first failure.
func (c *LinkContainer[T]) Extend(es ...T) error {
	for _, e := range es {
		if err := c.Append(e); err != nil {
			return err
		}
	}
	return nil
}

// Remove drops the link to the entity with the given name or UUID.
func (c *LinkContainer[T]) Remove(nameOrID string) error {
	e, err := c.Get(nameOrID)
	if err != nil {
		return err
	}
	g, err := c.requireGroup()
	if err != nil {
		return err
	}
	if err := g.Delete(e.ID()); err != nil {
		return wrapErr(c.path(), fmt.Errorf("%w: %v", ErrNotFound, err))
	}
	c.touchOwner()
	return nil
}

// Clear removes every link.
func (c *LinkContainer[T]) Clear() error {
	g, err := c.group()
	if err != nil || g == nil {
		return err
	}
	if err := c.file.writable(); err != nil {
		return wrapErr(c.path(), err)
	}
	for _, l := range g.Links() {
		if err := g.Delete(l.Name); err != nil {
			return wrapErr(c.path(), err)
		}
	}
	c.touchOwner()
	return nil
}

// within returns a scope check that accepts targets below prefix.
func within(prefix string) func(string) error {
	return func(target string) error {
		if target == prefix || len(target) > len(prefix) && target[:len(prefix)+1] == prefix+"/" {
			return nil
		}
		return fmt.Errorf("%w: %s is outside %s", ErrInvalidLink, target, prefix)
	}
}
