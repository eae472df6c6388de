package nix

import (
	"path"
	"time"

	"github.com/robert-malhotra/go-nix/internal/store"
)

// Entity is implemented by every object stored in a NIX file.
type Entity interface {
	ID() string
	Name() string
	Path() string
}

// entity is the handle shared by all entity types. It holds the canonical
// store path and re-resolves it on every call, so handles stay cheap and
// fail with ErrUseAfterClose once the file is closed. Name and ID never
// change and are kept in the handle.
type entity struct {
	file *File
	path string
	id   string
	name string
}

func newEntity(f *File, p string, obj store.Object) entity {
	a := store.AttrsOf(obj)
	return entity{file: f, path: p, id: attrString(a, "entity_id"), name: attrString(a, "name")}
}

// ID returns the UUID of the entity.
func (e *entity) ID() string { return e.id }

// Name returns the name of the entity.
func (e *entity) Name() string { return e.name }

// Path returns the store path of the entity, e.g. /data/session/tags/t1.
func (e *entity) Path() string { return e.path }

// File returns the file holding the entity.
func (e *entity) File() *File { return e.file }

// Equal reports whether o is the same stored entity.
func (e *entity) Equal(o Entity) bool { return o != nil && e.id != "" && e.id == o.ID() }

func (e *entity) object() (store.Object, error) {
	root, err := e.file.root()
	if err != nil {
		return nil, wrapErr(e.path, err)
	}
	obj, err := store.Resolve(root, e.path)
	if err != nil {
		return nil, wrapErr(e.path, ErrNotFound)
	}
	return obj, nil
}

func (e *entity) group() (*store.Group, error) {
	obj, err := e.object()
	if err != nil {
		return nil, err
	}
	g, ok := obj.(*store.Group)
	if !ok {
		return nil, errorf(e.path, ErrInvalidEntityType, "not a group")
	}
	return g, nil
}

func (e *entity) attrs() (*store.Attrs, error) {
	obj, err := e.object()
	if err != nil {
		return nil, err
	}
	return store.AttrsOf(obj), nil
}

// writeGroup returns the entity group after checking that the file may
// be modified.
func (e *entity) writeGroup() (*store.Group, error) {
	if err := e.file.writable(); err != nil {
		return nil, wrapErr(e.path, err)
	}
	return e.group()
}

func (e *entity) getString(name string) string {
	a, err := e.attrs()
	if err != nil {
		return ""
	}
	return attrString(a, name)
}

// setAttr stores v under name; nil deletes the attribute.
func (e *entity) setAttr(name string, v any) error {
	if err := e.file.writable(); err != nil {
		return wrapErr(e.path, err)
	}
	a, err := e.attrs()
	if err != nil {
		return err
	}
	a.SetAttr(name, v)
	e.touch(a)
	return nil
}

func (e *entity) touch(a *store.Attrs) {
	if e.file.opts.autoUpdate {
		a.SetAttr("updated_at", e.file.now())
	}
}

func (e *entity) child(name string) string { return path.Join(e.path, name) }

// Type returns the type of the entity.
func (e *entity) Type() string { return e.getString("type") }

// SetType changes the type. The type cannot be cleared.
func (e *entity) SetType(typ string) error {
	if err := checkType(typ); err != nil {
		return wrapErr(e.path, err)
	}
	return e.setAttr("type", typ)
}

// Definition returns the free-form definition of the entity.
func (e *entity) Definition() string { return e.getString("definition") }

// SetDefinition changes the definition; an empty string removes it.
func (e *entity) SetDefinition(d string) error {
	if d == "" {
		return e.setAttr("definition", nil)
	}
	return e.setAttr("definition", d)
}

// CreatedAt returns the creation time. It is zero when unset or after
// the file has been closed.
func (e *entity) CreatedAt() time.Time { return e.timeAttr("created_at") }

// UpdatedAt returns the time of the last recorded change.
func (e *entity) UpdatedAt() time.Time { return e.timeAttr("updated_at") }

func (e *entity) timeAttr(name string) time.Time { return parseOrZero(e.getString(name)) }

// ForceCreatedAt overwrites the creation time.
func (e *entity) ForceCreatedAt(t time.Time) error {
	return e.setAttr("created_at", FormatTime(t))
}

// ForceUpdatedAt sets the update time to now.
func (e *entity) ForceUpdatedAt() error {
	return e.setAttr("updated_at", e.file.now())
}

// metaEntity is an entity that may link to a metadata section.
type metaEntity struct {
	entity
}

// Metadata returns the linked section, or nil when none is set.
func (e *metaEntity) Metadata() (*Section, error) {
	g, err := e.group()
	if err != nil {
		return nil, err
	}
	l, ok := g.Link("metadata")
	if !ok {
		return nil, nil
	}
	root, _ := e.file.root()
	obj, err := store.Resolve(root, l.Target)
	if err != nil {
		return nil, errorf(e.path, ErrInvalidLink, "metadata target %s: %v", l.Target, err)
	}
	return newSection(e.file, l.Target, obj), nil
}

// SetMetadata links the entity to sec, replacing any previous link.
func (e *metaEntity) SetMetadata(sec *Section) error {
	if sec == nil {
		return e.RemoveMetadata()
	}
	g, err := e.writeGroup()
	if err != nil {
		return err
	}
	if sec.file != e.file {
		return errorf(e.path, ErrInvalidLink, "section %s belongs to another file", sec.ID())
	}
	if _, err := sec.group(); err != nil {
		return err
	}
	if g.Has("metadata") {
		if err := g.Delete("metadata"); err != nil {
			return wrapErr(e.path, err)
		}
	}
	if err := g.CreateSoftLink("metadata", sec.path); err != nil {
		return wrapErr(e.path, err)
	}
	e.touch(&g.Attrs)
	return nil
}

// RemoveMetadata removes the metadata link if there is one.
func (e *metaEntity) RemoveMetadata() error {
	g, err := e.writeGroup()
	if err != nil {
		return err
	}
	if !g.Has("metadata") {
		return nil
	}
	if err := g.Delete("metadata"); err != nil {
		return wrapErr(e.path, err)
	}
	e.touch(&g.Attrs)
	return nil
}

// initEntity writes the identity attributes of a new entity.
func initEntity(a *store.Attrs, id, name, typ, now string) {
	a.SetAttr("entity_id", id)
	a.SetAttr("name", name)
	if typ != "" {
		a.SetAttr("type", typ)
	}
	a.SetAttr("created_at", now)
	a.SetAttr("updated_at", now)
}
