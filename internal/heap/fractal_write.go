package heap

import (
	"fmt"

	"github.com/robert-malhotra/go-nix/internal/binary"
)

// Parameters of the fractal heaps WriteFractal lays out. Objects always
// go into one root direct block addressed with 32-bit heap offsets.
const (
	fractalHeapBits  = 32
	fractalWidth     = 4
	fractalMinBlock  = 512
	fractalMaxDirect = 64 * 1024
	fractalMinObject = 4096
	maxManagedObject = 0xffff
)

// WriteFractal stores objs in a new fractal heap and returns the heap
// address and the idLen byte heap ID of every object.
func WriteFractal(out *binary.Writer, alloc func(size int) uint64, objs [][]byte, idLen int) (uint64, [][]byte, error) {
	cfg := out.Config()
	offSize := (fractalHeapBits + 7) / 8
	blockHeader := 5 + cfg.OffsetSize + offSize

	used, largest := blockHeader, fractalMinObject
	for _, o := range objs {
		if len(o) > maxManagedObject {
			return 0, nil, fmt.Errorf("heap object of %d bytes exceeds %d", len(o), maxManagedObject)
		}
		used += len(o)
		largest = max(largest, len(o))
	}
	block := uint64(fractalMinBlock)
	for block < uint64(used) {
		block <<= 1
	}
	maxDirect := max(block, fractalMaxDirect)
	lenSize := min((log2(maxDirect)+7)/8, LimitEncSize(uint64(largest)))
	if 1+offSize+lenSize > idLen {
		return 0, nil, fmt.Errorf("heap IDs need %d bytes, have %d", 1+offSize+lenSize, idLen)
	}

	headerSize := 26 + 12*cfg.LengthSize + 3*cfg.OffsetSize
	headerAddr := alloc(headerSize)
	blockAddr := alloc(int(block))

	ids := make([][]byte, len(objs))
	bw := out.At(int64(blockAddr))
	if err := bw.WriteBytes([]byte{'F', 'H', 'D', 'B', 0}); err != nil {
		return 0, nil, err
	}
	if err := bw.WriteOffset(headerAddr); err != nil {
		return 0, nil, err
	}
	if err := bw.WriteUintN(0, offSize); err != nil {
		return 0, nil, err
	}
	pos := blockHeader
	for i, o := range objs {
		id := make([]byte, idLen)
		copy(id[1:], binary.EncodeUint(uint64(pos), offSize, cfg.ByteOrder))
		copy(id[1+offSize:], binary.EncodeUint(uint64(len(o)), lenSize, cfg.ByteOrder))
		ids[i] = id
		if err := bw.WriteBytes(o); err != nil {
			return 0, nil, err
		}
		pos += len(o)
	}
	if err := bw.WriteZeros(int(block) - pos); err != nil {
		return 0, nil, err
	}

	buf := binary.NewBuffer(make([]byte, 0, headerSize))
	hw := binary.NewWriter(buf, cfg)
	fields := []struct {
		v uint64
		n int
	}{
		{uint64(idLen), 2},
		{0, 2}, // filter info length
		{0, 1}, // flags
		{uint64(largest), 4},
		{0, cfg.LengthSize}, // next huge ID
		{binary.Undefined(cfg.OffsetSize), cfg.OffsetSize},
		{block - uint64(pos), cfg.LengthSize},
		{binary.Undefined(cfg.OffsetSize), cfg.OffsetSize},
		{block, cfg.LengthSize}, // managed space
		{block, cfg.LengthSize}, // allocated managed space
		{block, cfg.LengthSize}, // iterator offset
		{uint64(len(objs)), cfg.LengthSize},
		{0, cfg.LengthSize}, // huge size
		{0, cfg.LengthSize}, // huge count
		{0, cfg.LengthSize}, // tiny size
		{0, cfg.LengthSize}, // tiny count
		{fractalWidth, 2},
		{block, cfg.LengthSize},
		{maxDirect, cfg.LengthSize},
		{fractalHeapBits, 2},
		{0, 2}, // starting root rows
		{blockAddr, cfg.OffsetSize},
		{0, 2}, // current root rows
	}
	if err := hw.WriteBytes([]byte{'F', 'R', 'H', 'P', 0}); err != nil {
		return 0, nil, err
	}
	for _, f := range fields {
		if err := hw.WriteUintN(f.v, f.n); err != nil {
			return 0, nil, err
		}
	}
	if err := hw.WriteUint32(binary.Lookup3(buf.Bytes())); err != nil {
		return 0, nil, err
	}
	if buf.Len() != headerSize {
		return 0, nil, fmt.Errorf("fractal heap header of %d bytes, reserved %d", buf.Len(), headerSize)
	}
	return headerAddr, ids, out.At(int64(headerAddr)).WriteBytes(buf.Bytes())
}
