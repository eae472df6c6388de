// Package alloc hands out file addresses while a file image is assembled.
// Space is only ever appended; every block is aligned to eight bytes and
// recorded so overlaps can be checked in tests.
package alloc

import (
	"fmt"
	"sort"
)

// Block is one reserved region.
type Block struct {
	Addr uint64
	Size uint64
	Tag  string
}

// Allocator is an append-only address allocator. It is not safe for
// concurrent use; a file image is assembled by a single goroutine.
type Allocator struct {
	eof    uint64
	blocks []Block
}

// New returns an allocator whose first block starts at base.
func New(base uint64) *Allocator {
	return &Allocator{eof: align(base)}
}

func align(n uint64) uint64 { return (n + 7) &^ 7 }

// Alloc reserves size bytes and returns their address.
func (a *Allocator) Alloc(size int, tag string) uint64 {
	addr := a.eof
	a.eof = align(a.eof + uint64(size))
	a.blocks = append(a.blocks, Block{Addr: addr, Size: uint64(size), Tag: tag})
	return addr
}

// EOF returns the end of the allocated space.
func (a *Allocator) EOF() uint64 { return a.eof }

// Blocks returns the reserved blocks in allocation order.
func (a *Allocator) Blocks() []Block { return append([]Block(nil), a.blocks...) }

// Validate reports the first pair of overlapping blocks.
func (a *Allocator) Validate() error {
	sorted := a.Blocks()
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Addr < sorted[j].Addr })
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Addr+prev.Size > cur.Addr {
			return fmt.Errorf("%s at %#x (%d bytes) overlaps %s at %#x", prev.Tag, prev.Addr, prev.Size, cur.Tag, cur.Addr)
		}
	}
	return nil
}
