// Package superblock reads and writes the HDF5 superblock, the fixed entry
// point that locates the root group.
package superblock

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/robert-malhotra/go-nix/internal/binary"
)

// Signature opens every HDF5 file.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

var searchOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrChecksumMismatch   = errors.New("superblock checksum mismatch")
)

// Superblock holds what the rest of the codec needs from the superblock.
type Superblock struct {
	Version     uint8
	OffsetSize  int
	LengthSize  int
	BaseAddress uint64
	EOFAddress  uint64
	RootAddress uint64
	FileOffset  int64
}

// Config returns the binary sizing implied by the superblock.
func (sb *Superblock) Config() binary.Config {
	cfg := binary.DefaultConfig()
	cfg.OffsetSize = sb.OffsetSize
	cfg.LengthSize = sb.LengthSize
	return cfg
}

// Read locates the signature at one of the standard offsets and decodes
// the superblock that follows it.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, 9)
	for _, off := range searchOffsets {
		if _, err := r.ReadAt(sig, off); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(sig[:8], Signature) {
			continue
		}
		var (
			sb  *Superblock
			err error
		)
		switch v := sig[8]; v {
		case 0, 1:
			sb, err = readV0(r, off, v)
		case 2, 3:
			sb, err = readV2(r, off, v)
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
		}
		if err != nil {
			return nil, err
		}
		sb.FileOffset = off
		return sb, nil
	}
	return nil, ErrNotHDF5
}

// readV0 decodes versions 0 and 1. The root address is the object header
// field of the root symbol table entry.
func readV0(r io.ReaderAt, off int64, version uint8) (*Superblock, error) {
	head := make([]byte, 16)
	if _, err := r.ReadAt(head, off+8); err != nil {
		return nil, err
	}
	sb := &Superblock{Version: version, OffsetSize: int(head[5]), LengthSize: int(head[6])}
	pos := off + 24
	if version == 1 {
		pos += 4
	}
	br := binary.NewReader(r, sb.Config()).At(pos)
	var err error
	if sb.BaseAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	br.Skip(int64(sb.OffsetSize))
	if sb.EOFAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	br.Skip(2 * int64(sb.OffsetSize))
	if sb.RootAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	return sb, nil
}

// readV2 decodes versions 2 and 3 and verifies the checksum.
func readV2(r io.ReaderAt, off int64, version uint8) (*Superblock, error) {
	head := make([]byte, 4)
	if _, err := r.ReadAt(head, off+8); err != nil {
		return nil, err
	}
	sb := &Superblock{Version: version, OffsetSize: int(head[1]), LengthSize: int(head[2])}
	br := binary.NewReader(r, sb.Config()).At(off + 12)
	var err error
	if sb.BaseAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	br.Skip(int64(sb.OffsetSize))
	if sb.EOFAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	if sb.RootAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	end := br.Pos()
	stored, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	raw, err := binary.NewReader(r, sb.Config()).At(off).ReadBytes(int(end - off))
	if err != nil {
		return nil, err
	}
	if binary.Lookup3(raw) != stored {
		return nil, ErrChecksumMismatch
	}
	return sb, nil
}

// Size is the encoded size of a version 2 superblock for cfg.
func Size(cfg binary.Config) int {
	return 8 + 4 + 4*cfg.OffsetSize + 4
}

// Encode writes a version 2 superblock with no extension.
func Encode(cfg binary.Config, eof, root uint64) []byte {
	buf := binary.NewBuffer(make([]byte, 0, Size(cfg)))
	w := binary.NewWriter(buf, cfg)
	_ = w.WriteBytes(Signature)
	_ = w.WriteBytes([]byte{2, uint8(cfg.OffsetSize), uint8(cfg.LengthSize), 0})
	_ = w.WriteOffset(0)
	_ = w.WriteUndefined()
	_ = w.WriteOffset(eof)
	_ = w.WriteOffset(root)
	_ = w.WriteUint32(binary.Lookup3(buf.Bytes()))
	return buf.Bytes()
}
