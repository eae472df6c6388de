package btree

import (
	"fmt"

	"github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/heap"
)

// Version 2 B-tree record types used by dense groups and attributes.
const (
	V2LinkName       uint8 = 5
	V2LinkOrder      uint8 = 6
	V2AttributeName  uint8 = 8
	V2AttributeOrder uint8 = 9
)

// v2NodeOverhead covers the signature, version, type and checksum of a node.
const v2NodeOverhead = 10

// v2Header is the BTHD block of a version 2 B-tree.
type v2Header struct {
	Type         uint8
	NodeSize     uint32
	RecordSize   int
	Depth        int
	RootAddr     uint64
	RootRecords  int
	TotalRecords uint64
}

// V2Tree walks the records of a version 2 B-tree.
type V2Tree struct {
	r *binary.Reader
	v2Header

	// nrecSize is the width of a child record count; cumSize[d] the width
	// of the total record count below a child at depth d.
	nrecSize int
	cumSize  []int
}

// OpenV2 decodes the version 2 B-tree header at address.
func OpenV2(r *binary.Reader, address uint64) (*V2Tree, error) {
	hr := r.At(int64(address))
	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("b-tree v2 header at %d: %w", address, err)
	}
	if string(sig) != "BTHD" {
		return nil, fmt.Errorf("b-tree v2 header at %d: bad signature %q", address, sig)
	}
	if v, _ := hr.ReadUint8(); v != 0 {
		return nil, fmt.Errorf("b-tree v2 header at %d: version %d", address, v)
	}
	t := &V2Tree{r: r}
	t.Type, _ = hr.ReadUint8()
	t.NodeSize, _ = hr.ReadUint32()
	recSize, _ := hr.ReadUint16()
	depth, _ := hr.ReadUint16()
	hr.Skip(2) // split and merge percent
	if t.RootAddr, err = hr.ReadOffset(); err != nil {
		return nil, err
	}
	rootN, _ := hr.ReadUint16()
	if t.TotalRecords, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	t.RecordSize = int(recSize)
	t.Depth = int(depth)
	t.RootRecords = int(rootN)
	if t.RecordSize == 0 || int(t.NodeSize) <= v2NodeOverhead+t.RecordSize || t.Depth > maxDepth {
		return nil, fmt.Errorf("b-tree v2 header at %d: bad geometry", address)
	}
	t.capacities(r.OffsetSize())
	return t, nil
}

// capacities derives the encoded widths of child pointers per depth.
func (t *V2Tree) capacities(offsetSize int) {
	leafMax := uint64((int(t.NodeSize) - v2NodeOverhead) / t.RecordSize)
	t.nrecSize = heap.LimitEncSize(leafMax)
	t.cumSize = make([]int, t.Depth+1)
	cum := leafMax
	t.cumSize[0] = heap.LimitEncSize(cum)
	for d := 1; d <= t.Depth; d++ {
		ptr := t.pointerSize(offsetSize, d)
		n := uint64((int(t.NodeSize) - (v2NodeOverhead + ptr)) / (t.RecordSize + ptr))
		cum = (n+1)*cum + n
		t.cumSize[d] = heap.LimitEncSize(cum)
	}
}

// pointerSize is the width of a child pointer in a node at depth d.
func (t *V2Tree) pointerSize(offsetSize, d int) int {
	n := offsetSize + t.nrecSize
	if d > 1 {
		n += t.cumSize[d-1]
	}
	return n
}

// Records returns every record in key order.
func (t *V2Tree) Records() ([][]byte, error) {
	if t.TotalRecords == 0 || t.r.IsUndefined(t.RootAddr) {
		return nil, nil
	}
	out := make([][]byte, 0, min(t.TotalRecords, 1<<16))
	if err := t.walk(t.RootAddr, t.RootRecords, t.Depth, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *V2Tree) walk(addr uint64, n, depth int, out *[][]byte) error {
	sig := "BTLF"
	if depth > 0 {
		sig = "BTIN"
	}
	nr := t.r.At(int64(addr))
	got, err := nr.ReadBytes(4)
	if err != nil {
		return fmt.Errorf("b-tree v2 node at %d: %w", addr, err)
	}
	if string(got) != sig {
		return fmt.Errorf("b-tree v2 node at %d: bad signature %q, want %s", addr, got, sig)
	}
	nr.Skip(1) // version
	if typ, _ := nr.ReadUint8(); typ != t.Type {
		return fmt.Errorf("b-tree v2 node at %d: type %d, want %d", addr, typ, t.Type)
	}
	records := make([][]byte, n)
	for i := range records {
		if records[i], err = nr.ReadBytes(t.RecordSize); err != nil {
			return fmt.Errorf("b-tree v2 node at %d: %w", addr, err)
		}
	}
	if depth == 0 {
		*out = append(*out, records...)
		return nil
	}

	type child struct {
		addr uint64
		n    int
	}
	children := make([]child, n+1)
	for i := range children {
		a, err := nr.ReadOffset()
		if err != nil {
			return err
		}
		cn, err := nr.ReadUintN(t.nrecSize)
		if err != nil {
			return err
		}
		if depth > 1 {
			nr.Skip(int64(t.cumSize[depth-1]))
		}
		children[i] = child{addr: a, n: int(cn)}
	}
	for i, c := range children {
		if err := t.walk(c.addr, c.n, depth-1, out); err != nil {
			return err
		}
		if i < n {
			*out = append(*out, records[i])
		}
	}
	return nil
}
