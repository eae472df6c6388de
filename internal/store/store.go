// Package store is an in-memory hierarchical container: groups holding
// creation-ordered links to groups, datasets and soft links, with typed
// attributes on every object. It knows nothing about the NIX schema; the
// hdf5 package loads and saves a store tree.
package store

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrExists     = errors.New("name already exists")
	ErrNotGroup   = errors.New("object is not a group")
	ErrNotDataset = errors.New("object is not a dataset")
	ErrLinkDepth  = errors.New("maximum link depth exceeded")
	ErrBadName    = errors.New("invalid link name")
)

// MaxLinkDepth bounds the number of soft links followed while resolving
// a single path.
const MaxLinkDepth = 100

// Object is a *Group or a *Dataset.
type Object interface {
	attrHolder() *Attrs
}

// Link is one named entry of a group. Exactly one of Group, Dataset and
// Target is set; Target holds the absolute path of a soft link.
type Link struct {
	Name    string
	Group   *Group
	Dataset *Dataset
	Target  string
}

// IsSoft reports whether the link is a soft link.
func (l *Link) IsSoft() bool { return l.Group == nil && l.Dataset == nil }

// Object returns the hard-linked object, or nil for a soft link.
func (l *Link) Object() Object {
	switch {
	case l.Group != nil:
		return l.Group
	case l.Dataset != nil:
		return l.Dataset
	}
	return nil
}

// Group holds links in creation order.
type Group struct {
	Attrs
	links []*Link
	index map[string]*Link
}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{index: make(map[string]*Link)}
}

func (g *Group) attrHolder() *Attrs { return &g.Attrs }

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return nil
}

func (g *Group) add(l *Link) error {
	if err := checkName(l.Name); err != nil {
		return err
	}
	if _, ok := g.index[l.Name]; ok {
		return fmt.Errorf("%w: %q", ErrExists, l.Name)
	}
	g.links = append(g.links, l)
	g.index[l.Name] = l
	return nil
}

// Len returns the number of links.
func (g *Group) Len() int { return len(g.links) }

// Links returns the links in creation order.
func (g *Group) Links() []*Link { return append([]*Link(nil), g.links...) }

// At returns the i-th link in creation order.
func (g *Group) At(i int) (*Link, error) {
	if i < 0 || i >= len(g.links) {
		return nil, fmt.Errorf("%w: position %d of %d", ErrNotFound, i, len(g.links))
	}
	return g.links[i], nil
}

// Link returns the link called name.
func (g *Group) Link(name string) (*Link, bool) {
	l, ok := g.index[name]
	return l, ok
}

// Has reports whether a link called name exists.
func (g *Group) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Group returns the hard-linked child group called name.
func (g *Group) Group(name string) (*Group, error) {
	l, ok := g.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if l.Group == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrNotGroup)
	}
	return l.Group, nil
}

// Dataset returns the hard-linked child dataset called name.
func (g *Group) Dataset(name string) (*Dataset, error) {
	l, ok := g.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if l.Dataset == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrNotDataset)
	}
	return l.Dataset, nil
}

// CreateGroup adds a new empty child group.
func (g *Group) CreateGroup(name string) (*Group, error) {
	child := NewGroup()
	if err := g.add(&Link{Name: name, Group: child}); err != nil {
		return nil, err
	}
	return child, nil
}

// RequireGroup returns the child group called name, creating it when
// absent.
func (g *Group) RequireGroup(name string) (*Group, error) {
	if g.Has(name) {
		return g.Group(name)
	}
	return g.CreateGroup(name)
}

// AddGroup links an existing group under name.
func (g *Group) AddGroup(name string, child *Group) error {
	return g.add(&Link{Name: name, Group: child})
}

// AddDataset links ds under name.
func (g *Group) AddDataset(name string, ds *Dataset) error {
	return g.add(&Link{Name: name, Dataset: ds})
}

// CreateSoftLink adds a soft link to the absolute path target. The target
// need not exist.
func (g *Group) CreateSoftLink(name, target string) error {
	if !path.IsAbs(target) {
		return fmt.Errorf("soft link %q: target %q is not absolute", name, target)
	}
	return g.add(&Link{Name: name, Target: path.Clean(target)})
}

// Delete removes the link called name. The order of the remaining links
// is kept.
func (g *Group) Delete(name string) error {
	if _, ok := g.index[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(g.index, name)
	for i, l := range g.links {
		if l.Name == name {
			g.links = append(g.links[:i], g.links[i+1:]...)
			break
		}
	}
	return nil
}

// Resolve walks an absolute path from root, following soft links.
func Resolve(root *Group, p string) (Object, error) {
	return resolve(root, p, 0)
}

func resolve(root *Group, p string, depth int) (Object, error) {
	if depth > MaxLinkDepth {
		return nil, ErrLinkDepth
	}
	var cur Object = root
	parts := splitPath(p)
	for i, name := range parts {
		g, ok := cur.(*Group)
		if !ok {
			return nil, fmt.Errorf("%s: %w", "/"+strings.Join(parts[:i], "/"), ErrNotGroup)
		}
		l, ok := g.index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, "/"+strings.Join(parts[:i+1], "/"))
		}
		if l.IsSoft() {
			target, err := resolve(root, l.Target, depth+1)
			if err != nil {
				return nil, err
			}
			cur = target
			continue
		}
		cur = l.Object()
	}
	return cur, nil
}

// ResolveGroup resolves p and checks it names a group.
func ResolveGroup(root *Group, p string) (*Group, error) {
	obj, err := Resolve(root, p)
	if err != nil {
		return nil, err
	}
	g, ok := obj.(*Group)
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotGroup)
	}
	return g, nil
}

// ResolveDataset resolves p and checks it names a dataset.
func ResolveDataset(root *Group, p string) (*Dataset, error) {
	obj, err := Resolve(root, p)
	if err != nil {
		return nil, err
	}
	ds, ok := obj.(*Dataset)
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotDataset)
	}
	return ds, nil
}

// Exists reports whether p resolves.
func Exists(root *Group, p string) bool {
	_, err := Resolve(root, p)
	return err == nil
}

func splitPath(p string) []string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// WalkFunc is called for every link below the walked group. p is the
// absolute path of the link.
type WalkFunc func(p string, l *Link) error

// SkipDir returned by a WalkFunc for a group link skips its children.
var SkipDir = errors.New("skip this group")

// Walk visits the links below g depth first in creation order. Soft links
// are reported but not followed.
func Walk(g *Group, prefix string, fn WalkFunc) error {
	for _, l := range g.Links() {
		p := path.Join(prefix, l.Name)
		err := fn(p, l)
		if err == SkipDir {
			continue
		}
		if err != nil {
			return err
		}
		if l.Group != nil {
			if err := Walk(l.Group, p, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Attr is one named attribute value. Values are Go scalars or slices of
// string, bool, the sized integers and float32/float64.
type Attr struct {
	Name  string
	Value any
}

// Attrs is an ordered attribute set.
type Attrs struct {
	list []Attr
}

// Attr returns the value of name.
func (a *Attrs) Attr(name string) (any, bool) {
	for _, at := range a.list {
		if at.Name == name {
			return at.Value, true
		}
	}
	return nil, false
}

// HasAttr reports whether name is set.
func (a *Attrs) HasAttr(name string) bool {
	_, ok := a.Attr(name)
	return ok
}

// SetAttr sets name to v. A nil v deletes the attribute.
func (a *Attrs) SetAttr(name string, v any) {
	if v == nil {
		a.DeleteAttr(name)
		return
	}
	for i := range a.list {
		if a.list[i].Name == name {
			a.list[i].Value = v
			return
		}
	}
	a.list = append(a.list, Attr{Name: name, Value: v})
}

// DeleteAttr removes name if present.
func (a *Attrs) DeleteAttr(name string) {
	for i := range a.list {
		if a.list[i].Name == name {
			a.list = append(a.list[:i], a.list[i+1:]...)
			return
		}
	}
}

// AttrList returns the attributes in the order they were first set.
func (a *Attrs) AttrList() []Attr { return append([]Attr(nil), a.list...) }

// AttrsOf returns the attribute set of obj.
func AttrsOf(obj Object) *Attrs { return obj.attrHolder() }
