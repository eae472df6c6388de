package heap

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/go-nix/internal/binary"
)

var signatureFractal = []byte("FRHP")

// ErrHugeObject is returned for objects stored outside the managed blocks
// of a fractal heap.
var ErrHugeObject = errors.New("huge fractal heap objects are not supported")

// Heap ID types, from bits 4 and 5 of the first ID byte.
const (
	idManaged = 0
	idHuge    = 1
	idTiny    = 2
)

// maxIndirectDepth bounds the descent through indirect blocks.
const maxIndirectDepth = 32

// Fractal reads objects of a fractal heap, the storage behind dense
// links and dense attributes. Only unfiltered heaps are supported.
type Fractal struct {
	r *binary.Reader

	IDLength    int
	MaxManaged  uint32
	TableWidth  int
	StartBlock  uint64
	MaxDirect   uint64
	MaxHeapBits int
	RootAddress uint64
	RootRows    int

	offSize int
	lenSize int
}

// OpenFractal decodes the fractal heap header at address.
func OpenFractal(r *binary.Reader, address uint64) (*Fractal, error) {
	hr := r.At(int64(address))
	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("fractal heap at %d: %w", address, err)
	}
	if string(sig) != string(signatureFractal) {
		return nil, fmt.Errorf("fractal heap at %d: bad signature %q", address, sig)
	}
	if v, _ := hr.ReadUint8(); v != 0 {
		return nil, fmt.Errorf("fractal heap at %d: version %d", address, v)
	}
	f := &Fractal{r: r}
	idLen, _ := hr.ReadUint16()
	filterLen, _ := hr.ReadUint16()
	hr.Skip(1) // flags
	f.MaxManaged, _ = hr.ReadUint32()
	// next huge ID, huge object tree, free space, free space manager,
	// managed space, allocated managed space, iterator offset, managed
	// count, huge size, huge count, tiny size, tiny count
	hr.Skip(int64(10*r.LengthSize() + 2*r.OffsetSize()))
	width, _ := hr.ReadUint16()
	if f.StartBlock, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if f.MaxDirect, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	heapBits, _ := hr.ReadUint16()
	hr.Skip(2) // starting root rows
	if f.RootAddress, err = hr.ReadOffset(); err != nil {
		return nil, err
	}
	rootRows, err := hr.ReadUint16()
	if err != nil {
		return nil, err
	}
	if filterLen > 0 {
		return nil, fmt.Errorf("fractal heap at %d: filtered heaps are not supported", address)
	}

	f.IDLength = int(idLen)
	f.TableWidth = int(width)
	f.MaxHeapBits = int(heapBits)
	f.RootRows = int(rootRows)
	if !isPow2(f.StartBlock) || !isPow2(f.MaxDirect) || !isPow2(uint64(f.TableWidth)) || f.MaxDirect < f.StartBlock {
		return nil, fmt.Errorf("fractal heap at %d: bad doubling table", address)
	}
	f.offSize = (f.MaxHeapBits + 7) / 8
	f.lenSize = min((log2(f.MaxDirect)+7)/8, LimitEncSize(uint64(f.MaxManaged)))
	return f, nil
}

// Object returns the bytes of the object id refers to.
func (f *Fractal) Object(id []byte) ([]byte, error) {
	if len(id) == 0 {
		return nil, errors.New("empty heap ID")
	}
	if id[0]>>6 != 0 {
		return nil, fmt.Errorf("heap ID version %d", id[0]>>6)
	}
	switch (id[0] >> 4) & 0x03 {
	case idManaged:
		if len(id) < 1+f.offSize+f.lenSize {
			return nil, fmt.Errorf("heap ID of %d bytes is too short", len(id))
		}
		order := f.r.ByteOrder()
		off := binary.DecodeUint(id[1:1+f.offSize], f.offSize, order)
		n := binary.DecodeUint(id[1+f.offSize:1+f.offSize+f.lenSize], f.lenSize, order)
		if n > uint64(f.MaxManaged) {
			return nil, fmt.Errorf("managed object of %d bytes exceeds heap limit %d", n, f.MaxManaged)
		}
		addr, err := f.locate(off)
		if err != nil {
			return nil, err
		}
		return f.r.At(int64(addr)).ReadBytes(int(n))
	case idTiny:
		n, data := int(id[0]&0x0f)+1, id[1:]
		if f.IDLength > 18 {
			if len(id) < 2 {
				return nil, errors.New("truncated tiny heap ID")
			}
			n, data = (int(id[0]&0x0f)<<8|int(id[1]))+1, id[2:]
		}
		if n > len(data) {
			return nil, fmt.Errorf("tiny object of %d bytes in a %d byte ID", n, len(id))
		}
		return data[:n], nil
	case idHuge:
		return nil, ErrHugeObject
	}
	return nil, fmt.Errorf("heap ID type %d", (id[0]>>4)&0x03)
}

// locate maps a heap offset to a file address by walking the doubling
// table from the root block.
func (f *Fractal) locate(off uint64) (uint64, error) {
	addr, rows, base := f.RootAddress, f.RootRows, uint64(0)
	for depth := 0; depth < maxIndirectDepth; depth++ {
		if f.r.IsUndefined(addr) {
			return 0, fmt.Errorf("heap offset %d lies in an unallocated block", off)
		}
		if rows == 0 {
			return addr + (off - base), nil
		}
		rel := off - base
		row := f.row(rel)
		if row >= rows {
			return 0, fmt.Errorf("heap offset %d beyond indirect block at %d", off, addr)
		}
		col := (rel - f.rowOffset(row)) / f.rowSize(row)
		child, err := f.entry(addr, rows, row*f.TableWidth+int(col))
		if err != nil {
			return 0, err
		}
		base += f.rowOffset(row) + col*f.rowSize(row)
		if row < f.directRows() {
			if f.r.IsUndefined(child) {
				return 0, fmt.Errorf("heap offset %d lies in an unallocated block", off)
			}
			return child + (off - base), nil
		}
		addr, rows = child, log2(f.rowSize(row))-log2(f.StartBlock*uint64(f.TableWidth))+1
	}
	return 0, fmt.Errorf("heap offset %d: indirect blocks nested too deep", off)
}

// entry reads child address i of the indirect block at addr.
func (f *Fractal) entry(addr uint64, rows, i int) (uint64, error) {
	ir := f.r.At(int64(addr))
	sig, err := ir.ReadBytes(4)
	if err != nil {
		return 0, fmt.Errorf("indirect block at %d: %w", addr, err)
	}
	if string(sig) != "FHIB" {
		return 0, fmt.Errorf("indirect block at %d: bad signature %q", addr, sig)
	}
	pos := int64(5+f.r.OffsetSize()+f.offSize) + int64(i*f.r.OffsetSize())
	return f.r.At(int64(addr) + pos).ReadOffset()
}

func (f *Fractal) directRows() int {
	return log2(f.MaxDirect) - log2(f.StartBlock) + 2
}

func (f *Fractal) rowSize(row int) uint64 {
	if row == 0 {
		return f.StartBlock
	}
	return f.StartBlock << (row - 1)
}

func (f *Fractal) rowOffset(row int) uint64 {
	if row == 0 {
		return 0
	}
	return uint64(f.TableWidth) * f.StartBlock << (row - 1)
}

func (f *Fractal) row(rel uint64) int {
	row := 0
	for row < 63 && f.rowOffset(row+1) <= rel {
		row++
	}
	return row
}

// LimitEncSize is the number of bytes needed to encode values up to n.
func LimitEncSize(n uint64) int {
	return log2(n)/8 + 1
}

func log2(n uint64) int {
	if n == 0 {
		return 0
	}
	return bits.Len64(n) - 1
}

func isPow2(n uint64) bool { return n != 0 && n&(n-1) == 0 }
