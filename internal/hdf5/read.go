package hdf5

import (
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/btree"
	"github.com/robert-malhotra/go-nix/internal/heap"
	"github.com/robert-malhotra/go-nix/internal/layout"
	"github.com/robert-malhotra/go-nix/internal/message"
	"github.com/robert-malhotra/go-nix/internal/object"
	"github.com/robert-malhotra/go-nix/internal/store"
	"github.com/robert-malhotra/go-nix/internal/superblock"
)

// loader converts the objects of an open file into store objects. Objects
// reachable through several hard links are loaded once and shared.
type loader struct {
	r        *binary.Reader
	dec      *decoder
	groups   map[uint64]*store.Group
	datasets map[uint64]*store.Dataset
	log      logrus.FieldLogger
}

// Load reads every group, dataset, attribute and link reachable from the
// root group of the HDF5 image in r.
func Load(r io.ReaderAt, log logrus.FieldLogger) (*store.Group, error) {
	sb, err := superblock.Read(r)
	if err != nil {
		if errors.Is(err, superblock.ErrNotHDF5) {
			return nil, fmt.Errorf("%w: %v", ErrNotHDF5, err)
		}
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	if sb.BaseAddress != 0 {
		r = io.NewSectionReader(r, int64(sb.BaseAddress), math.MaxInt64-int64(sb.BaseAddress))
	}
	br := binary.NewReader(r, sb.Config())
	l := &loader{
		r:        br,
		dec:      &decoder{cfg: sb.Config(), heap: heap.NewCache(br)},
		groups:   make(map[uint64]*store.Group),
		datasets: make(map[uint64]*store.Dataset),
		log:      log,
	}
	root, err := l.object(sb.RootAddress, "/")
	if err != nil {
		return nil, fmt.Errorf("loading root group: %w", err)
	}
	g, ok := root.(*store.Group)
	if !ok {
		return nil, fmt.Errorf("root object: %w", store.ErrNotGroup)
	}
	return g, nil
}

func (l *loader) object(addr uint64, path string) (store.Object, error) {
	if g, ok := l.groups[addr]; ok {
		return g, nil
	}
	if ds, ok := l.datasets[addr]; ok {
		return ds, nil
	}
	h, err := object.Read(l.r, addr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if h.IsDataset() {
		ds, err := l.dataset(h, path)
		if err != nil {
			return nil, err
		}
		l.datasets[addr] = ds
		return ds, nil
	}
	return l.group(h, path)
}

func (l *loader) group(h *object.Header, path string) (*store.Group, error) {
	g := store.NewGroup()
	l.groups[h.Address] = g
	if err := l.attributes(&g.Attrs, h, path); err != nil {
		return nil, err
	}

	if st := h.SymbolTable(); st != nil {
		names, err := heap.ReadLocal(l.r, st.LocalHeapAddress)
		if err != nil {
			return nil, fmt.Errorf("%s: reading local heap: %w", path, err)
		}
		entries, err := btree.GroupEntries(l.r, st.BTreeAddress, names)
		if err != nil {
			return nil, fmt.Errorf("%s: reading symbol table: %w", path, err)
		}
		for _, e := range entries {
			if e.Soft {
				if err := g.CreateSoftLink(e.Name, e.Target); err != nil {
					return nil, err
				}
				continue
			}
			if err := l.hardLink(g, e.Name, e.Address, path); err != nil {
				return nil, err
			}
		}
		return g, nil
	}

	links := h.Links()
	if li, ok := h.Find(message.TypeLinkInfo).(*message.LinkInfo); ok && !l.r.IsUndefined(li.FractalHeap) {
		dense, err := l.denseLinks(li)
		if err != nil {
			return nil, fmt.Errorf("%s: reading dense links: %w", path, err)
		}
		links = append(links, dense...)
	}
	sort.SliceStable(links, func(i, j int) bool {
		return links[i].HasOrder && links[j].HasOrder && links[i].CreationOrder < links[j].CreationOrder
	})
	for _, link := range links {
		switch link.LinkType {
		case message.LinkHard:
			if err := l.hardLink(g, link.Name, link.Address, path); err != nil {
				return nil, err
			}
		case message.LinkSoft:
			if err := g.CreateSoftLink(link.Name, link.Target); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		default:
			l.log.WithFields(logrus.Fields{"group": path, "link": link.Name}).Debug("skipping external link")
		}
	}
	return g, nil
}

func (l *loader) hardLink(g *store.Group, name string, addr uint64, parent string) error {
	obj, err := l.object(addr, joinPath(parent, name))
	if err != nil {
		return err
	}
	switch o := obj.(type) {
	case *store.Group:
		return g.AddGroup(name, o)
	case *store.Dataset:
		return g.AddDataset(name, o)
	}
	return nil
}

func (l *loader) dataset(h *object.Header, path string) (*store.Dataset, error) {
	dt := h.Datatype()
	st, err := storeType(dt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	space := h.Dataspace()
	shape := make([]int, len(space.Dims))
	for i, d := range space.Dims {
		shape[i] = int(d)
	}
	if space.SpaceType == message.SpaceNull {
		shape = []int{0}
	}

	raw, err := layout.Read(l.r, h)
	if err != nil {
		return nil, fmt.Errorf("%s: reading data: %w", path, err)
	}
	n := int(space.NumElements())
	values, err := l.dec.decodeAll(dt, st, raw, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ds, err := store.NewDatasetFrom(st, values, shape)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(space.MaxDims) == len(shape) && len(shape) > 0 {
		maxShape := make([]int, len(shape))
		for i, m := range space.MaxDims {
			maxShape[i] = int(m)
			if l.r.IsUndefined(m) || m == math.MaxUint64 {
				maxShape[i] = store.Unlimited
			}
		}
		if err := ds.SetMaxShape(maxShape); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if fp := h.Filters(); fp != nil {
		for _, f := range fp.Filters {
			if f.ID != message.FilterDeflate {
				continue
			}
			level := 6
			if len(f.ClientData) > 0 {
				level = int(f.ClientData[0])
			}
			ds.SetCompression(level)
		}
	}
	if err := l.attributes(&ds.Attrs, h, path); err != nil {
		return nil, err
	}
	return ds, nil
}

func (l *loader) attributes(dst *store.Attrs, h *object.Header, path string) error {
	attrs := h.Attributes()
	if ai, ok := h.Find(message.TypeAttributeInfo).(*message.AttributeInfo); ok && !l.r.IsUndefined(ai.FractalHeap) {
		dense, err := l.denseAttributes(ai)
		if err != nil {
			return fmt.Errorf("%s: reading dense attributes: %w", path, err)
		}
		attrs = append(attrs, dense...)
	}
	for _, a := range attrs {
		st, err := storeType(a.Datatype)
		if err != nil {
			l.log.WithFields(logrus.Fields{"object": path, "attribute": a.Name}).Debugf("skipping attribute: %v", err)
			continue
		}
		n := int(a.Dataspace.NumElements())
		values, err := l.dec.decodeAll(a.Datatype, st, a.Data, n)
		if err != nil {
			return fmt.Errorf("%s: attribute %q: %w", path, a.Name, err)
		}
		if a.Dataspace.SpaceType == message.SpaceScalar {
			dst.SetAttr(a.Name, firstElem(values))
			continue
		}
		dst.SetAttr(a.Name, values)
	}
	return nil
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func firstElem(values any) any {
	rv := reflect.ValueOf(values)
	if rv.Len() == 0 {
		return nil
	}
	return rv.Index(0).Interface()
}
