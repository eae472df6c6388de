package heap

import (
	"fmt"

	"github.com/robert-malhotra/go-nix/internal/binary"
)

// CollectionSize is the capacity of the collections Writer allocates.
// Objects larger than a collection get one of their own.
const CollectionSize = 64 * 1024

// ID addresses one object in a global heap collection.
type ID struct {
	Collection uint64
	Index      uint32
}

// Cache decodes global heap collections on first use.
type Cache struct {
	r           *binary.Reader
	collections map[uint64]map[uint32][]byte
}

// NewCache returns an empty cache over r.
func NewCache(r *binary.Reader) *Cache {
	return &Cache{r: r, collections: make(map[uint64]map[uint32][]byte)}
}

// Object returns the bytes of the object id refers to.
func (c *Cache) Object(id ID) ([]byte, error) {
	objs, ok := c.collections[id.Collection]
	if !ok {
		var err error
		objs, err = readCollection(c.r, id.Collection)
		if err != nil {
			return nil, err
		}
		c.collections[id.Collection] = objs
	}
	data, ok := objs[id.Index]
	if !ok {
		return nil, fmt.Errorf("global heap object %d not found in collection %d", id.Index, id.Collection)
	}
	return data, nil
}

func readCollection(r *binary.Reader, address uint64) (map[uint32][]byte, error) {
	hr := r.At(int64(address))
	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("global heap at %d: %w", address, err)
	}
	if string(sig) != "GCOL" {
		return nil, fmt.Errorf("global heap at %d: bad signature %q", address, sig)
	}
	hr.Skip(4)
	size, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}

	objHeader := int64(8 + r.LengthSize())
	end := int64(address) + int64(size)
	objs := make(map[uint32][]byte)
	for hr.Pos()+objHeader <= end {
		index, err := hr.ReadUint16()
		if err != nil {
			return nil, err
		}
		if index == 0 {
			break
		}
		hr.Skip(6)
		n, err := hr.ReadLength()
		if err != nil {
			return nil, err
		}
		data, err := hr.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		objs[uint32(index)] = data
		hr.Skip(int64(pad8(int(n)) - int(n)))
	}
	return objs, nil
}

func pad8(n int) int { return (n + 7) &^ 7 }

type collection struct {
	address  uint64
	capacity int
	used     int
	objects  [][]byte
}

// Writer packs objects into collections whose addresses are fixed when the
// collection is opened, so references can be encoded before the heap is
// written.
type Writer struct {
	cfg   binary.Config
	alloc func(size int) uint64
	open  *collection
	all   []*collection
}

// NewWriter returns a writer that reserves space through alloc.
func NewWriter(cfg binary.Config, alloc func(size int) uint64) *Writer {
	return &Writer{cfg: cfg, alloc: alloc}
}

func (w *Writer) headerSize() int    { return 8 + w.cfg.LengthSize }
func (w *Writer) objHeaderSize() int { return 8 + w.cfg.LengthSize }

// Add stores data and returns its heap ID.
func (w *Writer) Add(data []byte) ID {
	need := w.objHeaderSize() + pad8(len(data))
	c := w.open
	if c == nil || c.used+need > c.capacity {
		capacity := CollectionSize
		if floor := w.headerSize() + need + w.objHeaderSize(); floor > capacity {
			capacity = pad8(floor)
		}
		c = &collection{capacity: capacity, used: w.headerSize()}
		c.address = w.alloc(capacity)
		w.all = append(w.all, c)
		if capacity == CollectionSize {
			w.open = c
		}
	}
	c.objects = append(c.objects, data)
	c.used += need
	return ID{Collection: c.address, Index: uint32(len(c.objects))}
}

// Flush writes every collection through out.
func (w *Writer) Flush(out *binary.Writer) error {
	for _, c := range w.all {
		cw := out.At(int64(c.address))
		if err := cw.WriteBytes([]byte("GCOL")); err != nil {
			return err
		}
		if err := cw.WriteBytes([]byte{1, 0, 0, 0}); err != nil {
			return err
		}
		if err := cw.WriteLength(uint64(c.capacity)); err != nil {
			return err
		}
		for i, obj := range c.objects {
			if err := cw.WriteUint16(uint16(i + 1)); err != nil {
				return err
			}
			if err := cw.WriteUint16(1); err != nil {
				return err
			}
			if err := cw.WriteZeros(4); err != nil {
				return err
			}
			if err := cw.WriteLength(uint64(len(obj))); err != nil {
				return err
			}
			if err := cw.WriteBytes(obj); err != nil {
				return err
			}
			if err := cw.WriteZeros(pad8(len(obj)) - len(obj)); err != nil {
				return err
			}
		}
		free := c.capacity - c.used
		if free >= w.objHeaderSize() {
			if err := cw.WriteZeros(8); err != nil {
				return err
			}
			if err := cw.WriteLength(uint64(free)); err != nil {
				return err
			}
		}
		if err := cw.WriteZeros(int(int64(c.address) + int64(c.capacity) - cw.Pos())); err != nil {
			return err
		}
	}
	return nil
}

// EncodeID encodes a variable-length reference: byte length, collection
// address and object index.
func EncodeID(cfg binary.Config, length int, id ID) []byte {
	out := make([]byte, 0, 8+cfg.OffsetSize)
	out = append(out, binary.EncodeUint(uint64(length), 4, cfg.ByteOrder)...)
	out = append(out, binary.EncodeUint(id.Collection, cfg.OffsetSize, cfg.ByteOrder)...)
	return append(out, binary.EncodeUint(uint64(id.Index), 4, cfg.ByteOrder)...)
}

// DecodeID is the inverse of EncodeID.
func DecodeID(cfg binary.Config, b []byte) (int, ID, error) {
	if len(b) < 8+cfg.OffsetSize {
		return 0, ID{}, fmt.Errorf("variable-length reference too short: %d bytes", len(b))
	}
	length := int(binary.DecodeUint(b, 4, cfg.ByteOrder))
	id := ID{
		Collection: binary.DecodeUint(b[4:], cfg.OffsetSize, cfg.ByteOrder),
		Index:      uint32(binary.DecodeUint(b[4+cfg.OffsetSize:], 4, cfg.ByteOrder)),
	}
	return length, id, nil
}
