package object

import (
	"fmt"

	"github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/message"
)

type span struct {
	addr, size uint64
}

// readV1 decodes a version 1 header. Messages are 8-byte aligned and the
// first one starts 16 bytes into the header.
func readV1(r *binary.Reader, address uint64, h *Header) error {
	hr := r.At(int64(address) + 2)
	count, err := hr.ReadUint16()
	if err != nil {
		return err
	}
	hr.Skip(4)
	size, err := hr.ReadUint32()
	if err != nil {
		return err
	}

	queue := []span{{address + 16, uint64(size)}}
	seen := 0
	for len(queue) > 0 && seen < int(count) {
		if len(h.Messages) > maxContinuations*64 {
			return fmt.Errorf("%w: too many messages", ErrInvalidHeader)
		}
		s := queue[0]
		queue = queue[1:]
		cr := r.At(int64(s.addr))
		end := int64(s.addr + s.size)
		for cr.Pos()+8 <= end && seen < int(count) {
			typ, err := cr.ReadUint16()
			if err != nil {
				return err
			}
			msize, _ := cr.ReadUint16()
			flags, _ := cr.ReadUint8()
			cr.Skip(3)
			data, err := cr.ReadBytes(int(msize))
			if err != nil {
				return err
			}
			seen++
			next, err := decodeMessage(message.Type(typ), flags, data, r.Config(), h)
			if err != nil {
				return err
			}
			if next != nil {
				queue = append(queue, *next)
			}
		}
	}
	return nil
}

// readV2 decodes a version 2 header; hr is positioned after the signature.
func readV2(r, hr *binary.Reader, h *Header) error {
	start := hr.Pos() - 4
	version, err := hr.ReadUint8()
	if err != nil {
		return err
	}
	if version != 2 {
		return fmt.Errorf("%w: version %d", ErrInvalidHeader, version)
	}
	flags, err := hr.ReadUint8()
	if err != nil {
		return err
	}
	if flags&0x20 != 0 {
		hr.Skip(16)
	}
	if flags&0x10 != 0 {
		hr.Skip(4)
	}
	chunk0, err := hr.ReadUintN(1 << (flags & 0x03))
	if err != nil {
		return err
	}
	ordered := flags&0x04 != 0

	body := hr.Pos()
	if err := verifyChunk(r, start, body-start+int64(chunk0)); err != nil {
		return err
	}
	queue := []span{{uint64(body), chunk0}}
	for hops := 0; len(queue) > 0; hops++ {
		if hops > maxContinuations {
			return fmt.Errorf("%w: continuation chain too long", ErrInvalidHeader)
		}
		s := queue[0]
		queue = queue[1:]
		cr := r.At(int64(s.addr))
		end := int64(s.addr + s.size)
		if hops > 0 {
			sig, err := cr.ReadBytes(4)
			if err != nil {
				return err
			}
			if string(sig) != "OCHK" {
				return fmt.Errorf("%w: bad continuation signature %q", ErrInvalidHeader, sig)
			}
			if err := verifyChunk(r, int64(s.addr), int64(s.size)-4); err != nil {
				return err
			}
			end -= 4
		}
		prefix := int64(4)
		if ordered {
			prefix += 2
		}
		for cr.Pos()+prefix <= end {
			typ, err := cr.ReadUint8()
			if err != nil {
				return err
			}
			msize, _ := cr.ReadUint16()
			mflags, _ := cr.ReadUint8()
			if ordered {
				cr.Skip(2)
			}
			data, err := cr.ReadBytes(int(msize))
			if err != nil {
				return err
			}
			next, err := decodeMessage(message.Type(typ), mflags, data, r.Config(), h)
			if err != nil {
				return err
			}
			if next != nil {
				queue = append(queue, *next)
			}
		}
	}
	return nil
}

// verifyChunk checks the lookup3 checksum stored right after n bytes at
// addr.
func verifyChunk(r *binary.Reader, addr, n int64) error {
	cr := r.At(addr)
	data, err := cr.ReadBytes(int(n))
	if err != nil {
		return err
	}
	sum, err := cr.ReadUint32()
	if err != nil {
		return err
	}
	if binary.Lookup3(data) != sum {
		return fmt.Errorf("%w at %d", ErrChecksumMismatch, addr)
	}
	return nil
}

// decodeMessage appends the decoded message to h, or returns the span of a
// continuation block.
func decodeMessage(typ message.Type, flags uint8, data []byte, cfg binary.Config, h *Header) (*span, error) {
	if typ == message.TypeNIL {
		return nil, nil
	}
	if flags&0x02 != 0 {
		return nil, fmt.Errorf("shared %#x messages are not supported", uint16(typ))
	}
	m, err := message.Parse(typ, data, cfg)
	if err != nil {
		return nil, err
	}
	if c, ok := m.(*message.Continuation); ok {
		return &span{c.Offset, c.Length}, nil
	}
	h.Messages = append(h.Messages, m)
	return nil, nil
}
