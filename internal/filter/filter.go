// Package filter applies HDF5 filter pipelines to chunk data. Decoding runs
// the stages in reverse order, encoding runs them forward.
package filter

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	binpkg "github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/message"
)

// Filter is one pipeline stage.
type Filter interface {
	ID() uint16
	Encode(in []byte) ([]byte, error)
	Decode(in []byte) ([]byte, error)
}

// Pipeline is an ordered list of filters.
type Pipeline struct {
	filters []Filter
}

// New builds the pipeline a filter pipeline message describes. elemSize
// feeds the shuffle filter when its client data omits it.
func New(fp *message.FilterPipeline, elemSize int) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for _, info := range fp.Filters {
		var f Filter
		switch info.ID {
		case message.FilterDeflate:
			level := 6
			if len(info.ClientData) > 0 {
				level = int(info.ClientData[0])
			}
			f = Deflate{Level: level}
		case message.FilterShuffle:
			size := elemSize
			if len(info.ClientData) > 0 && info.ClientData[0] > 0 {
				size = int(info.ClientData[0])
			}
			f = Shuffle{ElemSize: size}
		case message.FilterFletcher32:
			f = Fletcher32{}
		default:
			if info.Optional() {
				continue
			}
			return nil, fmt.Errorf("filter %d (%s) is not supported", info.ID, info.Name)
		}
		p.filters = append(p.filters, f)
	}
	return p, nil
}

// Empty reports whether the pipeline does nothing.
func (p *Pipeline) Empty() bool { return len(p.filters) == 0 }

// Decode undoes the pipeline, skipping stages whose bit is set in mask.
func (p *Pipeline) Decode(data []byte, mask uint32) ([]byte, error) {
	for i := len(p.filters) - 1; i >= 0; i-- {
		if mask&(1<<uint(i)) != 0 {
			continue
		}
		var err error
		if data, err = p.filters[i].Decode(data); err != nil {
			return nil, fmt.Errorf("filter %d: %w", p.filters[i].ID(), err)
		}
	}
	return data, nil
}

// Encode applies the pipeline.
func (p *Pipeline) Encode(data []byte) ([]byte, error) {
	for _, f := range p.filters {
		var err error
		if data, err = f.Encode(data); err != nil {
			return nil, fmt.Errorf("filter %d: %w", f.ID(), err)
		}
	}
	return data, nil
}

// Deflate is the zlib filter.
type Deflate struct {
	Level int
}

func (Deflate) ID() uint16 { return message.FilterDeflate }

func (f Deflate) Encode(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, f.Level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(in); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Deflate) Decode(in []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// Shuffle regroups bytes by significance to help compression.
type Shuffle struct {
	ElemSize int
}

func (Shuffle) ID() uint16 { return message.FilterShuffle }

func (f Shuffle) Encode(in []byte) ([]byte, error) {
	if f.ElemSize <= 1 || len(in) < f.ElemSize {
		return in, nil
	}
	n := len(in) / f.ElemSize
	out := make([]byte, len(in))
	for i := 0; i < n; i++ {
		for j := 0; j < f.ElemSize; j++ {
			out[j*n+i] = in[i*f.ElemSize+j]
		}
	}
	copy(out[n*f.ElemSize:], in[n*f.ElemSize:])
	return out, nil
}

func (f Shuffle) Decode(in []byte) ([]byte, error) {
	if f.ElemSize <= 1 || len(in) < f.ElemSize {
		return in, nil
	}
	n := len(in) / f.ElemSize
	out := make([]byte, len(in))
	for i := 0; i < n; i++ {
		for j := 0; j < f.ElemSize; j++ {
			out[i*f.ElemSize+j] = in[j*n+i]
		}
	}
	copy(out[n*f.ElemSize:], in[n*f.ElemSize:])
	return out, nil
}

// Fletcher32 appends and verifies a checksum of the chunk.
type Fletcher32 struct{}

func (Fletcher32) ID() uint16 { return message.FilterFletcher32 }

func (Fletcher32) Encode(in []byte) ([]byte, error) {
	out := make([]byte, len(in)+4)
	copy(out, in)
	binary.LittleEndian.PutUint32(out[len(in):], binpkg.Fletcher32(in))
	return out, nil
}

func (Fletcher32) Decode(in []byte) ([]byte, error) {
	if len(in) < 4 {
		return nil, fmt.Errorf("fletcher32: chunk of %d bytes has no checksum", len(in))
	}
	data := in[:len(in)-4]
	stored := binary.LittleEndian.Uint32(in[len(in)-4:])
	if sum := binpkg.Fletcher32(data); sum != stored {
		return nil, fmt.Errorf("fletcher32: checksum %08x, stored %08x", sum, stored)
	}
	return data, nil
}
