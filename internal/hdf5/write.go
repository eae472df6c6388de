package hdf5

import (
	"fmt"
	"reflect"

	"github.com/robert-malhotra/go-nix/internal/alloc"
	"github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/filter"
	"github.com/robert-malhotra/go-nix/internal/heap"
	"github.com/robert-malhotra/go-nix/internal/message"
	"github.com/robert-malhotra/go-nix/internal/object"
	"github.com/robert-malhotra/go-nix/internal/store"
	"github.com/robert-malhotra/go-nix/internal/superblock"
)

// encoder assembles a file image. Children are written before their
// parents so every link can carry its target address.
type encoder struct {
	cfg      binary.Config
	alloc    *alloc.Allocator
	heap     *heap.Writer
	buf      *binary.Buffer
	w        *binary.Writer
	groups   map[*store.Group]uint64
	datasets map[*store.Dataset]uint64
}

// Encode serializes the tree below root into a complete HDF5 image.
func Encode(root *store.Group, cfg binary.Config) ([]byte, error) {
	buf := binary.NewBuffer(nil)
	e := &encoder{
		cfg:      cfg,
		alloc:    alloc.New(uint64(superblock.Size(cfg))),
		buf:      buf,
		w:        binary.NewWriter(buf, cfg),
		groups:   make(map[*store.Group]uint64),
		datasets: make(map[*store.Dataset]uint64),
	}
	e.heap = heap.NewWriter(cfg, func(size int) uint64 { return e.alloc.Alloc(size, "global heap") })

	rootAddr, err := e.group(root, "/")
	if err != nil {
		return nil, err
	}
	if err := e.heap.Flush(e.w); err != nil {
		return nil, fmt.Errorf("writing global heap: %w", err)
	}
	if err := e.alloc.Validate(); err != nil {
		return nil, err
	}
	eof := e.alloc.EOF()
	if pad := int(eof) - buf.Len(); pad > 0 {
		if err := e.w.At(int64(buf.Len())).WriteZeros(pad); err != nil {
			return nil, err
		}
	}
	if err := e.w.At(0).WriteBytes(superblock.Encode(cfg, eof, rootAddr)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *encoder) header(msgs []message.Serializable, tag string) (uint64, error) {
	image, err := object.Encode(e.cfg, msgs)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", tag, err)
	}
	addr := e.alloc.Alloc(len(image), tag)
	return addr, e.w.At(int64(addr)).WriteBytes(image)
}

func (e *encoder) group(g *store.Group, path string) (uint64, error) {
	if addr, ok := e.groups[g]; ok {
		return addr, nil
	}
	links := g.Links()
	linkMsgs := make([]*message.Link, 0, len(links))
	for i, l := range links {
		m := &message.Link{Name: l.Name, CreationOrder: uint64(i), HasOrder: true}
		switch {
		case l.IsSoft():
			m.LinkType = message.LinkSoft
			m.Target = l.Target
		case l.Group != nil:
			addr, err := e.group(l.Group, joinPath(path, l.Name))
			if err != nil {
				return 0, err
			}
			m.Address = addr
		default:
			addr, err := e.dataset(l.Dataset, joinPath(path, l.Name))
			if err != nil {
				return 0, err
			}
			m.Address = addr
		}
		linkMsgs = append(linkMsgs, m)
	}

	var msgs []message.Serializable
	if len(linkMsgs) > maxCompactLinks {
		li, err := e.denseLinks(linkMsgs, path)
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, li, &message.GroupInfo{})
	} else {
		msgs = append(msgs, message.NewLinkInfo(uint64(len(linkMsgs))), &message.GroupInfo{})
		for _, m := range linkMsgs {
			msgs = append(msgs, m)
		}
	}
	attrs, err := e.attributes(&g.Attrs, path)
	if err != nil {
		return 0, err
	}
	addr, err := e.header(append(msgs, attrs...), path)
	if err != nil {
		return 0, err
	}
	e.groups[g] = addr
	return addr, nil
}

func (e *encoder) dataset(ds *store.Dataset, path string) (uint64, error) {
	if addr, ok := e.datasets[ds]; ok {
		return addr, nil
	}
	st := ds.DType()
	dt := fileType(st, e.cfg)
	shape := ds.Shape()
	var dims []uint64
	if len(shape) > 0 {
		dims = make([]uint64, len(shape))
		for i, s := range shape {
			dims[i] = uint64(s)
		}
	}
	raw, err := encodeAll(dt, st, ds.Data(), e.cfg, e.heap)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	msgs := []message.Serializable{message.NewDataspace(dims), dt, message.NewFillValue()}
	switch {
	case len(raw) == 0:
		msgs = append(msgs, message.NewContiguous(binary.Undefined(e.cfg.OffsetSize), 0))
	case ds.Compression() > 0 && len(dims) > 0:
		fp := message.NewDeflatePipeline(ds.Compression())
		pipe, err := filter.New(fp, int(dt.Size))
		if err != nil {
			return 0, err
		}
		packed, err := pipe.Encode(raw)
		if err != nil {
			return 0, fmt.Errorf("%s: compressing: %w", path, err)
		}
		addr := e.alloc.Alloc(len(packed), path+" chunk")
		if err := e.w.At(int64(addr)).WriteBytes(packed); err != nil {
			return 0, err
		}
		msgs = append(msgs, message.NewSingleChunk(dims, int(dt.Size), addr, uint64(len(packed)), true), fp)
	default:
		addr := e.alloc.Alloc(len(raw), path+" data")
		if err := e.w.At(int64(addr)).WriteBytes(raw); err != nil {
			return 0, err
		}
		msgs = append(msgs, message.NewContiguous(addr, uint64(len(raw))))
	}

	attrs, err := e.attributes(&ds.Attrs, path)
	if err != nil {
		return 0, err
	}
	addr, err := e.header(append(msgs, attrs...), path)
	if err != nil {
		return 0, err
	}
	e.datasets[ds] = addr
	return addr, nil
}

// attributes encodes the attributes of an object, moving them to dense
// storage when there are more than fit compactly.
func (e *encoder) attributes(a *store.Attrs, path string) ([]message.Serializable, error) {
	list := a.AttrList()
	attrs := make([]*message.Attribute, 0, len(list))
	for _, at := range list {
		m, err := e.attribute(at.Name, at.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: attribute %q: %w", path, at.Name, err)
		}
		attrs = append(attrs, m)
	}
	if len(attrs) > maxCompactAttributes {
		ai, err := e.denseAttributes(attrs, path)
		if err != nil {
			return nil, err
		}
		return []message.Serializable{ai}, nil
	}
	msgs := make([]message.Serializable, len(attrs))
	for i, m := range attrs {
		msgs[i] = m
	}
	return msgs, nil
}

func (e *encoder) attribute(name string, v any) (*message.Attribute, error) {
	st, err := store.DTypeOf(v)
	if err != nil {
		return nil, err
	}
	dt := fileType(st, e.cfg)
	rv := reflect.ValueOf(v)
	var dims []uint64
	values := v
	if rv.Kind() == reflect.Slice {
		dims = []uint64{uint64(rv.Len())}
	} else {
		values = reflect.Append(reflect.MakeSlice(reflect.SliceOf(rv.Type()), 0, 1), rv).Interface()
	}
	data, err := encodeAll(dt, st, values, e.cfg, e.heap)
	if err != nil {
		return nil, err
	}
	return &message.Attribute{Name: name, Datatype: dt, Dataspace: message.NewDataspace(dims), Data: data}, nil
}
