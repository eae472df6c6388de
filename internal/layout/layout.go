// Package layout gathers the raw bytes of a dataset from whichever storage
// layout its header declares.
package layout

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/btree"
	"github.com/robert-malhotra/go-nix/internal/filter"
	"github.com/robert-malhotra/go-nix/internal/message"
	"github.com/robert-malhotra/go-nix/internal/object"
)

// ErrUnsupported is returned for chunk indexes this package cannot walk.
var ErrUnsupported = errors.New("unsupported storage layout")

// Read returns the dataset's elements in row-major order. Unallocated
// storage reads as zeros.
func Read(r *binary.Reader, h *object.Header) ([]byte, error) {
	space, dt, lay := h.Dataspace(), h.Datatype(), h.Layout()
	if space == nil || dt == nil || lay == nil {
		return nil, fmt.Errorf("object at %d is not a dataset", h.Address)
	}
	dims := space.Dims
	elem := int(dt.Size)
	total := int(space.NumElements()) * elem
	if total == 0 {
		return []byte{}, nil
	}

	switch lay.Class {
	case message.LayoutCompact:
		out := make([]byte, total)
		copy(out, lay.CompactData)
		return out, nil

	case message.LayoutContiguous:
		if r.IsUndefined(lay.Address) {
			return make([]byte, total), nil
		}
		return r.At(int64(lay.Address)).ReadBytes(total)

	case message.LayoutChunked:
		pipe, err := filter.New(h.Filters(), elem)
		if err != nil {
			return nil, err
		}
		return readChunked(r, lay, pipe, dims, elem)
	}
	return nil, fmt.Errorf("%w: class %d", ErrUnsupported, lay.Class)
}

func readChunked(r *binary.Reader, lay *message.DataLayout, pipe *filter.Pipeline, dims []uint64, elem int) ([]byte, error) {
	out := make([]byte, int(product(dims))*elem)
	if r.IsUndefined(lay.IndexAddr) {
		return out, nil
	}
	chunk := lay.ChunkDims
	if len(chunk) != len(dims) {
		return nil, fmt.Errorf("chunk rank %d does not match dataset rank %d", len(chunk), len(dims))
	}
	chunkBytes := int(product(chunk)) * elem

	load := func(addr uint64, size int, mask uint32) ([]byte, error) {
		raw, err := r.At(int64(addr)).ReadBytes(size)
		if err != nil {
			return nil, err
		}
		return pipe.Decode(raw, mask)
	}

	switch lay.Index {
	case message.IndexSingleChunk:
		size := chunkBytes
		if lay.Filtered {
			size = int(lay.ChunkSize)
		}
		data, err := load(lay.IndexAddr, size, lay.FilterMask)
		if err != nil {
			return nil, err
		}
		place(out, dims, data, chunk, make([]uint64, len(dims)), elem)

	case message.IndexImplicit:
		offsets := chunkOrigins(dims, chunk)
		for i, origin := range offsets {
			data, err := load(lay.IndexAddr+uint64(i*chunkBytes), chunkBytes, 0)
			if err != nil {
				return nil, err
			}
			place(out, dims, data, chunk, origin, elem)
		}

	case message.IndexBTreeV1:
		chunks, err := btree.Chunks(r, lay.IndexAddr, len(dims))
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			data, err := load(c.Address, int(c.Size), c.FilterMask)
			if err != nil {
				return nil, err
			}
			place(out, dims, data, chunk, c.Offset, elem)
		}

	default:
		return nil, fmt.Errorf("%w: chunk index %d", ErrUnsupported, lay.Index)
	}
	return out, nil
}

func product(dims []uint64) uint64 {
	n := uint64(1)
	for _, d := range dims {
		n *= d
	}
	return n
}

// chunkOrigins lists chunk origins in row-major chunk order.
func chunkOrigins(dims, chunk []uint64) [][]uint64 {
	counts := make([]uint64, len(dims))
	for i := range dims {
		counts[i] = (dims[i] + chunk[i] - 1) / chunk[i]
	}
	var out [][]uint64
	idx := make([]uint64, len(dims))
	for n := product(counts); n > 0; n-- {
		origin := make([]uint64, len(dims))
		for i := range idx {
			origin[i] = idx[i] * chunk[i]
		}
		out = append(out, origin)
		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < counts[i] {
				break
			}
			idx[i] = 0
		}
	}
	return out
}

// place copies the part of a chunk that lies inside the dataset into out.
func place(out []byte, dims []uint64, data []byte, chunk, origin []uint64, elem int) {
	rank := len(dims)
	if rank == 0 {
		copy(out, data)
		return
	}
	// extent of the chunk that falls inside the dataset
	ext := make([]uint64, rank)
	for i := range dims {
		if origin[i] >= dims[i] {
			return
		}
		ext[i] = min(chunk[i], dims[i]-origin[i])
	}
	row := int(ext[rank-1]) * elem
	idx := make([]uint64, rank-1)
	for {
		var src, dst uint64
		for i := 0; i < rank; i++ {
			var k uint64
			if i < rank-1 {
				k = idx[i]
			}
			src = src*chunk[i] + k
			dst = dst*dims[i] + origin[i] + k
		}
		s, d := int(src)*elem, int(dst)*elem
		if s+row <= len(data) {
			copy(out[d:d+row], data[s:s+row])
		}
		i := rank - 2
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < ext[i] {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return
		}
	}
}
