package hdf5

import (
	"fmt"
	"sort"

	"github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/btree"
	"github.com/robert-malhotra/go-nix/internal/heap"
	"github.com/robert-malhotra/go-nix/internal/message"
)

// Objects with more links or attributes than this keep them in a fractal
// heap indexed by name, matching the HDF5 library defaults.
const (
	maxCompactLinks      = 8
	maxCompactAttributes = 8
)

// Heap ID widths the HDF5 library uses for link and attribute heaps.
const (
	linkHeapIDLen      = 7
	attributeHeapIDLen = 8
)

func serialize(cfg binary.Config, m message.Serializable) ([]byte, error) {
	buf := binary.NewBuffer(make([]byte, 0, m.SerializedSize(cfg)))
	if err := m.Serialize(binary.NewWriter(buf, cfg)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *encoder) allocator(tag string) func(int) uint64 {
	return func(size int) uint64 { return e.alloc.Alloc(size, tag) }
}

// denseLinks writes links into a fractal heap with name and creation
// order indexes and returns the link info message that locates them.
func (e *encoder) denseLinks(links []*message.Link, path string) (*message.LinkInfo, error) {
	objs := make([][]byte, len(links))
	for i, l := range links {
		b, err := serialize(e.cfg, l)
		if err != nil {
			return nil, fmt.Errorf("%s: link %q: %w", path, l.Name, err)
		}
		objs[i] = b
	}
	heapAddr, ids, err := heap.WriteFractal(e.w, e.allocator(path+" link heap"), objs, linkHeapIDLen)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	order := e.w.ByteOrder()
	byName := make([]hashed, len(links))
	byOrder := make([][]byte, len(links))
	for i, l := range links {
		h := binary.Lookup3([]byte(l.Name))
		byName[i] = hashed{hash: h, name: l.Name, rec: append(binary.EncodeUint(uint64(h), 4, order), ids[i]...)}
		byOrder[i] = append(binary.EncodeUint(l.CreationOrder, 8, order), ids[i]...)
	}

	nameIdx, err := btree.WriteV2(e.w, e.allocator(path+" link name index"), btree.V2LinkName, 4+linkHeapIDLen, sortByHash(byName))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	orderIdx, err := btree.WriteV2(e.w, e.allocator(path+" link order index"), btree.V2LinkOrder, 8+linkHeapIDLen, byOrder)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	li := message.NewLinkInfo(uint64(len(links)))
	li.FractalHeap, li.NameIndex, li.OrderIndex = heapAddr, nameIdx, orderIdx
	return li, nil
}

// denseAttributes writes attrs into a fractal heap indexed by name.
func (e *encoder) denseAttributes(attrs []*message.Attribute, path string) (*message.AttributeInfo, error) {
	objs := make([][]byte, len(attrs))
	for i, a := range attrs {
		b, err := serialize(e.cfg, a)
		if err != nil {
			return nil, fmt.Errorf("%s: attribute %q: %w", path, a.Name, err)
		}
		objs[i] = b
	}
	heapAddr, ids, err := heap.WriteFractal(e.w, e.allocator(path+" attribute heap"), objs, attributeHeapIDLen)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	order := e.w.ByteOrder()
	records := make([]hashed, len(attrs))
	for i, a := range attrs {
		h := binary.Lookup3([]byte(a.Name))
		rec := append([]byte{}, ids[i]...)
		rec = append(rec, 0) // message flags
		rec = append(rec, binary.EncodeUint(uint64(i), 4, order)...)
		rec = append(rec, binary.EncodeUint(uint64(h), 4, order)...)
		records[i] = hashed{hash: h, name: a.Name, rec: rec}
	}

	nameIdx, err := btree.WriteV2(e.w, e.allocator(path+" attribute name index"), btree.V2AttributeName, attributeHeapIDLen+9, sortByHash(records))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &message.AttributeInfo{FractalHeap: heapAddr, NameIndex: nameIdx}, nil
}

// hashed is a name index record with the key it sorts by.
type hashed struct {
	hash uint32
	name string
	rec  []byte
}

// sortByHash returns the records ordered by name hash, ties broken by name.
func sortByHash(hs []hashed) [][]byte {
	sort.Slice(hs, func(i, j int) bool {
		if hs[i].hash != hs[j].hash {
			return hs[i].hash < hs[j].hash
		}
		return hs[i].name < hs[j].name
	})
	out := make([][]byte, len(hs))
	for i, h := range hs {
		out[i] = h.rec
	}
	return out
}

// denseLinks reads the links of a group kept in dense storage.
func (l *loader) denseLinks(li *message.LinkInfo) ([]*message.Link, error) {
	fh, err := heap.OpenFractal(l.r, li.FractalHeap)
	if err != nil {
		return nil, err
	}
	records, err := l.index(li.NameIndex, btree.V2LinkName)
	if err != nil {
		return nil, err
	}
	links := make([]*message.Link, 0, len(records))
	for _, rec := range records {
		if len(rec) < 5 {
			return nil, fmt.Errorf("link name record of %d bytes", len(rec))
		}
		data, err := fh.Object(rec[4:])
		if err != nil {
			return nil, err
		}
		m, err := message.Parse(message.TypeLink, data, l.r.Config())
		if err != nil {
			return nil, err
		}
		links = append(links, m.(*message.Link))
	}
	return links, nil
}

// denseAttributes reads attributes kept in dense storage, in creation
// order when the file tracks it and name index order otherwise.
func (l *loader) denseAttributes(ai *message.AttributeInfo) ([]*message.Attribute, error) {
	fh, err := heap.OpenFractal(l.r, ai.FractalHeap)
	if err != nil {
		return nil, err
	}
	records, err := l.index(ai.NameIndex, btree.V2AttributeName)
	if err != nil {
		return nil, err
	}
	type ordered struct {
		order uint32
		attr  *message.Attribute
	}
	order := l.r.ByteOrder()
	out := make([]ordered, 0, len(records))
	for _, rec := range records {
		if len(rec) != attributeHeapIDLen+9 {
			return nil, fmt.Errorf("attribute name record of %d bytes", len(rec))
		}
		data, err := fh.Object(rec[:attributeHeapIDLen])
		if err != nil {
			return nil, err
		}
		m, err := message.Parse(message.TypeAttribute, data, l.r.Config())
		if err != nil {
			return nil, err
		}
		out = append(out, ordered{order: order.Uint32(rec[attributeHeapIDLen+1:]), attr: m.(*message.Attribute)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].order < out[j].order })
	attrs := make([]*message.Attribute, len(out))
	for i, o := range out {
		attrs[i] = o.attr
	}
	return attrs, nil
}

func (l *loader) index(addr uint64, typ uint8) ([][]byte, error) {
	t, err := btree.OpenV2(l.r, addr)
	if err != nil {
		return nil, err
	}
	if t.Type != typ {
		return nil, fmt.Errorf("b-tree v2 at %d: type %d, want %d", addr, t.Type, typ)
	}
	return t.Records()
}
