// Package btree walks HDF5 B-trees. Version 1 trees index symbol-table
// groups and the chunks of chunked datasets written by older libraries;
// version 2 trees index the links and attributes of dense storage.
package btree

import (
	"fmt"

	"github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/heap"
)

const (
	nodeGroup = 0
	nodeChunk = 1

	// maxDepth bounds recursion on corrupt trees.
	maxDepth = 64
)

// Entry is one link of a symbol-table group.
type Entry struct {
	Name    string
	Address uint64
	Soft    bool
	Target  string
}

// Chunk locates one stored chunk.
type Chunk struct {
	Offset     []uint64
	Size       uint32
	FilterMask uint32
	Address    uint64
}

type node struct {
	level   uint8
	entries int
	r       *binary.Reader
}

func readNode(r *binary.Reader, addr uint64, kind uint8) (*node, error) {
	nr := r.At(int64(addr))
	sig, err := nr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("b-tree node at %d: %w", addr, err)
	}
	if string(sig) != "TREE" {
		return nil, fmt.Errorf("b-tree node at %d: bad signature %q", addr, sig)
	}
	typ, _ := nr.ReadUint8()
	if typ != kind {
		return nil, fmt.Errorf("b-tree node at %d: type %d, want %d", addr, typ, kind)
	}
	level, _ := nr.ReadUint8()
	n, err := nr.ReadUint16()
	if err != nil {
		return nil, err
	}
	nr.Skip(2 * int64(r.OffsetSize()))
	return &node{level: level, entries: int(n), r: nr}, nil
}

// GroupEntries lists the links of a symbol-table group in name order.
func GroupEntries(r *binary.Reader, root uint64, names *heap.LocalHeap) ([]Entry, error) {
	var out []Entry
	err := walkGroup(r, root, names, 0, &out)
	return out, err
}

func walkGroup(r *binary.Reader, addr uint64, names *heap.LocalHeap, depth int, out *[]Entry) error {
	if depth > maxDepth {
		return fmt.Errorf("b-tree deeper than %d levels", maxDepth)
	}
	n, err := readNode(r, addr, nodeGroup)
	if err != nil {
		return err
	}
	for i := 0; i < n.entries; i++ {
		n.r.Skip(int64(r.LengthSize()))
		child, err := n.r.ReadOffset()
		if err != nil {
			return err
		}
		if n.level > 0 {
			err = walkGroup(r, child, names, depth+1, out)
		} else {
			err = readSymbolNode(r, child, names, out)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func readSymbolNode(r *binary.Reader, addr uint64, names *heap.LocalHeap, out *[]Entry) error {
	sr := r.At(int64(addr))
	sig, err := sr.ReadBytes(4)
	if err != nil {
		return err
	}
	if string(sig) != "SNOD" {
		return fmt.Errorf("symbol node at %d: bad signature %q", addr, sig)
	}
	sr.Skip(2)
	count, err := sr.ReadUint16()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		nameOff, _ := sr.ReadOffset()
		obj, _ := sr.ReadOffset()
		cache, _ := sr.ReadUint32()
		sr.Skip(4)
		scratch, err := sr.ReadBytes(16)
		if err != nil {
			return err
		}
		e := Entry{Name: names.String(nameOff), Address: obj}
		if cache == 2 {
			e.Soft = true
			e.Target = names.String(uint64(binary.DecodeUint(scratch, 4, r.ByteOrder())))
		}
		if e.Name != "" {
			*out = append(*out, e)
		}
	}
	return nil
}

// Chunks lists every allocated chunk of a rank-dimensional dataset.
func Chunks(r *binary.Reader, root uint64, rank int) ([]Chunk, error) {
	var out []Chunk
	err := walkChunks(r, root, rank, 0, &out)
	return out, err
}

func walkChunks(r *binary.Reader, addr uint64, rank, depth int, out *[]Chunk) error {
	if depth > maxDepth {
		return fmt.Errorf("b-tree deeper than %d levels", maxDepth)
	}
	n, err := readNode(r, addr, nodeChunk)
	if err != nil {
		return err
	}
	for i := 0; i < n.entries; i++ {
		var c Chunk
		c.Size, _ = n.r.ReadUint32()
		c.FilterMask, _ = n.r.ReadUint32()
		for d := 0; d <= rank; d++ {
			v, err := n.r.ReadUint64()
			if err != nil {
				return err
			}
			if d < rank {
				c.Offset = append(c.Offset, v)
			}
		}
		child, err := n.r.ReadOffset()
		if err != nil {
			return err
		}
		if n.level > 0 {
			if err := walkChunks(r, child, rank, depth+1, out); err != nil {
				return err
			}
			continue
		}
		if !r.IsUndefined(child) && c.Size > 0 {
			c.Address = child
			*out = append(*out, c)
		}
	}
	return nil
}
