package nix

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-nix/internal/hdf5"
	"github.com/robert-malhotra/go-nix/internal/store"
)

// FormatName is the value of the format attribute of every NIX file.
const FormatName = "nix"

// Version is a file format version.
type Version [3]int

// LibraryVersion is the file format version written by this package.
var LibraryVersion = Version{1, 1, 1}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// Compare returns -1, 0 or 1 when v is older than, equal to or newer
// than o.
func (v Version) Compare(o Version) int {
	for i := range v {
		switch {
		case v[i] < o[i]:
			return -1
		case v[i] > o[i]:
			return 1
		}
	}
	return 0
}

// ParseVersion parses "x.y.z".
func ParseVersion(s string) (Version, error) {
	var v Version
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return v, fmt.Errorf("version %q: want x.y.z", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return v, fmt.Errorf("version %q: bad component %q", s, p)
		}
		v[i] = n
	}
	return v, nil
}

// canWrite reports whether a file of version fv may be modified.
func canWrite(fv Version) bool { return fv == LibraryVersion }

// canRead reports whether a file of version fv may be opened at all.
func canRead(fv Version) bool {
	return fv[0] == LibraryVersion[0] && fv[1] >= LibraryVersion[1]
}

// File is an open NIX file. The whole file is held in memory; Flush and
// Close write it back. A File must not be used from several goroutines
// at once.
type File struct {
	h    *hdf5.File
	opts *fileOptions
	log  logrus.FieldLogger
}

// Open opens the NIX file at path. ReadWrite creates the file when it
// does not exist and Overwrite always starts from an empty file.
//
// Files written by an older library version cannot be opened; run
// Upgrade first. Files of the same major version and a newer minor
// version may only be opened ReadOnly.
func Open(path string, mode Mode, opts ...FileOption) (*File, error) {
	options := defaultFileOptions()
	for _, opt := range opts {
		opt(options)
	}
	log := options.logger.WithField("file", path)
	h, err := hdf5.Open(path, mode, hdf5.WithLogger(log))
	if err != nil {
		if errors.Is(err, hdf5.ErrNotHDF5) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
		return nil, err
	}
	f := &File{h: h, opts: options, log: log}
	if h.Created() {
		f.createHeader()
		if err := h.Flush(); err != nil {
			h.SetReadOnly()
			h.Close()
			return nil, err
		}
		log.WithField("version", LibraryVersion).Debug("created NIX file")
		return f, nil
	}
	if err := f.checkHeader(mode); err != nil {
		h.SetReadOnly()
		h.Close()
		return nil, err
	}
	if mode != ReadOnly {
		root := h.Root()
		for _, name := range []string{"data", "metadata"} {
			if _, err := root.RequireGroup(name); err != nil {
				h.SetReadOnly()
				h.Close()
				return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
			}
		}
	}
	log.WithFields(logrus.Fields{"mode": mode, "version": f.Version()}).Debug("opened NIX file")
	return f, nil
}

func (f *File) createHeader() {
	root := f.h.Root()
	now := f.now()
	root.SetAttr("format", FormatName)
	root.SetAttr("version", versionAttr(LibraryVersion))
	root.SetAttr("id", CreateID())
	root.SetAttr("created_at", now)
	root.SetAttr("updated_at", now)
	root.RequireGroup("data")
	root.RequireGroup("metadata")
}

func versionAttr(v Version) []int32 {
	return []int32{int32(v[0]), int32(v[1]), int32(v[2])}
}

func (f *File) checkHeader(mode Mode) error {
	root := f.h.Root()
	if attrString(&root.Attrs, "format") != FormatName {
		return fmt.Errorf("%w: format attribute is %q", ErrInvalidFile, attrString(&root.Attrs, "format"))
	}
	v, ok := readVersion(&root.Attrs)
	if !ok {
		return fmt.Errorf("%w: missing version", ErrInvalidFile)
	}
	switch {
	case canWrite(v):
	case canRead(v):
		if mode != ReadOnly {
			return fmt.Errorf("%w: file version %s can only be opened read-only by %s", ErrIncompatibleVersion, v, LibraryVersion)
		}
	default:
		return fmt.Errorf("%w: file version %s, library version %s", ErrIncompatibleVersion, v, LibraryVersion)
	}
	return nil
}

func readVersion(a *store.Attrs) (Version, bool) {
	var v Version
	parts := attrInts(a, "version")
	if len(parts) != 3 {
		return v, false
	}
	copy(v[:], parts)
	return v, true
}

func (f *File) now() string { return FormatTime(f.opts.clock()) }

func (f *File) root() (*store.Group, error) {
	if f == nil || f.h.IsClosed() {
		return nil, ErrUseAfterClose
	}
	return f.h.Root(), nil
}

func (f *File) writable() error {
	if f == nil || f.h.IsClosed() {
		return ErrUseAfterClose
	}
	if f.h.Mode() == ReadOnly {
		return ErrReadOnly
	}
	return nil
}

// Path returns the location of the file on disk.
func (f *File) Path() string { return f.h.Path() }

// Mode returns the mode the file was opened with.
func (f *File) Mode() Mode { return f.h.Mode() }

// IsOpen reports whether the file has not been closed.
func (f *File) IsOpen() bool { return !f.h.IsClosed() }

// Flush writes all changes to disk.
func (f *File) Flush() error {
	if err := f.writable(); err != nil {
		return err
	}
	return f.h.Flush()
}

// Close writes a writable file and releases it. Handles derived from the
// file fail with ErrUseAfterClose afterwards.
func (f *File) Close() error { return f.h.Close() }

func (f *File) rootString(name string) string {
	root, err := f.root()
	if err != nil {
		return ""
	}
	return attrString(&root.Attrs, name)
}

// Format returns the format attribute.
func (f *File) Format() string { return f.rootString("format") }

// Version returns the format version stored in the file.
func (f *File) Version() Version {
	root, err := f.root()
	if err != nil {
		return Version{}
	}
	v, _ := readVersion(&root.Attrs)
	return v
}

// ID returns the file UUID. Files written by old versions may have none.
func (f *File) ID() string { return f.rootString("id") }

// CreatedAt returns the creation time of the file.
func (f *File) CreatedAt() time.Time { return parseOrZero(f.rootString("created_at")) }

// UpdatedAt returns the last recorded change of the file.
func (f *File) UpdatedAt() time.Time { return parseOrZero(f.rootString("updated_at")) }

func (f *File) setRootAttr(name string, v any) error {
	if err := f.writable(); err != nil {
		return err
	}
	f.h.Root().SetAttr(name, v)
	return nil
}

// ForceCreatedAt overwrites the creation time of the file.
func (f *File) ForceCreatedAt(t time.Time) error { return f.setRootAttr("created_at", FormatTime(t)) }

// ForceUpdatedAt sets the update time of the file to now.
func (f *File) ForceUpdatedAt() error { return f.setRootAttr("updated_at", f.now()) }

// AutoUpdateTime reports whether changes refresh updated_at.
func (f *File) AutoUpdateTime() bool { return f.opts.autoUpdate }

// SetAutoUpdateTime switches automatic updated_at maintenance.
func (f *File) SetAutoUpdateTime(on bool) { f.opts.autoUpdate = on }

// Blocks returns the blocks of the file.
func (f *File) Blocks() *Container[*Block] {
	return newContainer(f, "/", "data", newBlock)
}

// Sections returns the root metadata sections.
func (f *File) Sections() *Container[*Section] {
	return newContainer(f, "/", "metadata", newSection)
}

// CreateBlock adds a block.
func (f *File) CreateBlock(name, typ string) (*Block, error) {
	if err := checkType(typ); err != nil {
		return nil, wrapErr("/data", err)
	}
	g, p, err := f.Blocks().create(name)
	if err != nil {
		return nil, err
	}
	initEntity(&g.Attrs, CreateID(), name, typ, f.now())
	f.log.WithField("block", name).Debug("created block")
	return newBlock(f, p, g), nil
}

// CreateSection adds a root section. An empty type defaults to
// "undefined".
func (f *File) CreateSection(name, typ string, opts ...CreateOption) (*Section, error) {
	return createSection(f, f.Sections(), name, typ, opts)
}

// FindSections returns the sections of the whole metadata tree that
// satisfy filter, breadth first, descending at most limit levels below
// the root sections. A negative limit means no limit; a nil filter
// accepts every section.
func (f *File) FindSections(filter func(*Section) bool, limit int) ([]*Section, error) {
	roots, err := f.Sections().All()
	if err != nil {
		return nil, err
	}
	return findSections(roots, filter, limit)
}

// scrub removes soft links whose target no longer exists and features
// left without data. It runs after every deletion.
func (f *File) scrub() {
	root, err := f.root()
	if err != nil {
		return
	}
	n := scrubGroup(root, root, "/")
	if n > 0 {
		f.log.WithField("links", n).Debug("scrubbed dangling links")
	}
}

func scrubGroup(root, g *store.Group, p string) int {
	removed := 0
	for _, l := range g.Links() {
		switch {
		case l.IsSoft():
			if !store.Exists(root, l.Target) {
				g.Delete(l.Name)
				removed++
			}
		case l.Group != nil:
			removed += scrubGroup(root, l.Group, path.Join(p, l.Name))
			if path.Base(p) == "features" && l.Group.HasAttr("link_type") && !l.Group.Has("data") {
				g.Delete(l.Name)
				removed++
			}
		}
	}
	return removed
}
