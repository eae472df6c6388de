// Package heap implements the HDF5 local heap, which stores link names of
// symbol-table groups, and the global heap, which stores variable-length
// strings.
package heap

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/go-nix/internal/binary"
)

// LocalHeap is a decoded local heap data segment.
type LocalHeap struct {
	data []byte
}

// ReadLocal decodes the local heap at address.
func ReadLocal(r *binary.Reader, address uint64) (*LocalHeap, error) {
	hr := r.At(int64(address))
	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("local heap at %d: %w", address, err)
	}
	if string(sig) != "HEAP" {
		return nil, fmt.Errorf("local heap at %d: bad signature %q", address, sig)
	}
	hr.Skip(4)
	size, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}
	if _, err := hr.ReadLength(); err != nil {
		return nil, err
	}
	dataAddr, err := hr.ReadOffset()
	if err != nil {
		return nil, err
	}
	data, err := r.At(int64(dataAddr)).ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("local heap data: %w", err)
	}
	return &LocalHeap{data: data}, nil
}

// String returns the NUL-terminated string at offset.
func (h *LocalHeap) String(offset uint64) string {
	if offset >= uint64(len(h.data)) {
		return ""
	}
	s := h.data[offset:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s)
}
