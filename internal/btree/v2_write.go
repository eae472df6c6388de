package btree

import (
	"fmt"
	"math"

	"github.com/robert-malhotra/go-nix/internal/binary"
)

const v2MinNodeSize = 512

// WriteV2 stores records, already in key order, as a version 2 B-tree of
// type typ whose root is a single leaf. It returns the header address.
func WriteV2(out *binary.Writer, alloc func(size int) uint64, typ uint8, recordSize int, records [][]byte) (uint64, error) {
	if len(records) > math.MaxUint16 {
		return 0, fmt.Errorf("b-tree v2 of %d records does not fit one leaf", len(records))
	}
	cfg := out.Config()
	nodeSize := v2MinNodeSize
	for nodeSize < v2NodeOverhead+len(records)*recordSize {
		nodeSize <<= 1
	}

	leaf := binary.NewBuffer(make([]byte, 0, nodeSize))
	lw := binary.NewWriter(leaf, cfg)
	if err := lw.WriteBytes([]byte{'B', 'T', 'L', 'F', 0, typ}); err != nil {
		return 0, err
	}
	for _, rec := range records {
		if len(rec) != recordSize {
			return 0, fmt.Errorf("b-tree v2 record of %d bytes, want %d", len(rec), recordSize)
		}
		if err := lw.WriteBytes(rec); err != nil {
			return 0, err
		}
	}
	if err := lw.WriteUint32(binary.Lookup3(leaf.Bytes())); err != nil {
		return 0, err
	}
	if err := lw.WriteZeros(nodeSize - leaf.Len()); err != nil {
		return 0, err
	}

	head := binary.NewBuffer(nil)
	hw := binary.NewWriter(head, cfg)
	if err := hw.WriteBytes([]byte{'B', 'T', 'H', 'D', 0, typ}); err != nil {
		return 0, err
	}
	if err := hw.WriteUint32(uint32(nodeSize)); err != nil {
		return 0, err
	}
	if err := hw.WriteUint16(uint16(recordSize)); err != nil {
		return 0, err
	}
	// depth 0, split 100%, merge 40%
	if err := hw.WriteBytes([]byte{0, 0, 100, 40}); err != nil {
		return 0, err
	}
	leafAddr := alloc(nodeSize)
	if err := hw.WriteOffset(leafAddr); err != nil {
		return 0, err
	}
	if err := hw.WriteUint16(uint16(len(records))); err != nil {
		return 0, err
	}
	if err := hw.WriteLength(uint64(len(records))); err != nil {
		return 0, err
	}
	if err := hw.WriteUint32(binary.Lookup3(head.Bytes())); err != nil {
		return 0, err
	}
	headAddr := alloc(head.Len())
	if err := out.At(int64(leafAddr)).WriteBytes(leaf.Bytes()); err != nil {
		return 0, err
	}
	return headAddr, out.At(int64(headAddr)).WriteBytes(head.Bytes())
}
