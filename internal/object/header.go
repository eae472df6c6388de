// Package object reads and writes HDF5 object headers, the containers
// of header messages that describe every group and dataset.
package object

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/message"
)

var signatureV2 = []byte("OHDR")

var (
	ErrInvalidHeader    = errors.New("invalid object header")
	ErrChecksumMismatch = errors.New("object header checksum mismatch")
)

// maxContinuations bounds the continuation chain of a single header.
const maxContinuations = 1024

// Header is a decoded object header.
type Header struct {
	Version  uint8
	Address  uint64
	Messages []message.Message
}

// Read decodes the object header at address, following continuation
// messages.
func Read(r *binary.Reader, address uint64) (*Header, error) {
	hr := r.At(int64(address))
	peek, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading object header at %d: %w", address, err)
	}
	h := &Header{Address: address}
	switch {
	case string(peek) == string(signatureV2):
		h.Version = 2
		err = readV2(r, hr, h)
	case peek[0] == 1:
		h.Version = 1
		err = readV1(r, address, h)
	default:
		return nil, fmt.Errorf("%w at %d", ErrInvalidHeader, address)
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Find returns the first message of type typ, or nil.
func (h *Header) Find(typ message.Type) message.Message {
	for _, m := range h.Messages {
		if m.Type() == typ {
			return m
		}
	}
	return nil
}

// All returns every message of type typ in header order.
func (h *Header) All(typ message.Type) []message.Message {
	var out []message.Message
	for _, m := range h.Messages {
		if m.Type() == typ {
			out = append(out, m)
		}
	}
	return out
}

// IsDataset reports whether the header describes a dataset.
func (h *Header) IsDataset() bool {
	return h.Find(message.TypeDataLayout) != nil && h.Find(message.TypeDatatype) != nil
}

func (h *Header) Dataspace() *message.Dataspace {
	m, _ := h.Find(message.TypeDataspace).(*message.Dataspace)
	return m
}

func (h *Header) Datatype() *message.Datatype {
	m, _ := h.Find(message.TypeDatatype).(*message.Datatype)
	return m
}

func (h *Header) Layout() *message.DataLayout {
	m, _ := h.Find(message.TypeDataLayout).(*message.DataLayout)
	return m
}

func (h *Header) Filters() *message.FilterPipeline {
	m, _ := h.Find(message.TypeFilterPipeline).(*message.FilterPipeline)
	return m
}

func (h *Header) SymbolTable() *message.SymbolTable {
	m, _ := h.Find(message.TypeSymbolTable).(*message.SymbolTable)
	return m
}

// Attributes returns the attribute messages in header order.
func (h *Header) Attributes() []*message.Attribute {
	var out []*message.Attribute
	for _, m := range h.Messages {
		if a, ok := m.(*message.Attribute); ok {
			out = append(out, a)
		}
	}
	return out
}

// Links returns the link messages in header order.
func (h *Header) Links() []*message.Link {
	var out []*message.Link
	for _, m := range h.Messages {
		if l, ok := m.(*message.Link); ok {
			out = append(out, l)
		}
	}
	return out
}
