// Package message encodes and decodes HDF5 object header messages.
//
// Only the messages a NIX file needs are modelled: dataspace, datatype,
// layout, filter pipeline, fill value, attribute, attribute info, link,
// link info, group info, symbol table and continuation. Anything else decodes to [Unknown]
// and is carried through untouched.
package message

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-nix/internal/binary"
)

// Type is an HDF5 header message type.
type Type uint16

const (
	TypeNIL            Type = 0x0000
	TypeDataspace      Type = 0x0001
	TypeLinkInfo       Type = 0x0002
	TypeDatatype       Type = 0x0003
	TypeFillValueOld   Type = 0x0004
	TypeFillValue      Type = 0x0005
	TypeLink           Type = 0x0006
	TypeDataLayout     Type = 0x0008
	TypeGroupInfo      Type = 0x000A
	TypeFilterPipeline Type = 0x000B
	TypeAttribute      Type = 0x000C
	TypeModTime        Type = 0x0012
	TypeContinuation   Type = 0x0010
	TypeSymbolTable    Type = 0x0011
	TypeAttributeInfo  Type = 0x0015
)

// ErrTruncated is returned when a message payload ends early.
var ErrTruncated = errors.New("message truncated")

// Message is implemented by every header message.
type Message interface {
	Type() Type
}

// Serializable messages can be written back into an object header.
type Serializable interface {
	Message
	Serialize(w *binary.Writer) error
	SerializedSize(cfg binary.Config) int
}

// Parse decodes the payload of a header message of type typ.
func Parse(typ Type, data []byte, cfg binary.Config) (Message, error) {
	c := newCursor(data, cfg)
	var (
		m   Message
		err error
	)
	switch typ {
	case TypeDataspace:
		m, err = parseDataspace(c)
	case TypeDatatype:
		var dt *Datatype
		dt, err = decodeDatatype(c)
		m = dt
	case TypeDataLayout:
		m, err = parseDataLayout(c)
	case TypeFilterPipeline:
		m, err = parseFilterPipeline(c)
	case TypeFillValue:
		m, err = parseFillValue(c)
	case TypeAttribute:
		m, err = parseAttribute(c)
	case TypeLink:
		m, err = parseLink(c)
	case TypeLinkInfo:
		m, err = parseLinkInfo(c)
	case TypeAttributeInfo:
		m, err = parseAttributeInfo(c)
	case TypeGroupInfo:
		m, err = parseGroupInfo(c)
	case TypeSymbolTable:
		m, err = parseSymbolTable(c)
	case TypeContinuation:
		m, err = parseContinuation(c)
	default:
		return &Unknown{typ: typ, Data: data}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("message 0x%04x: %w", uint16(typ), err)
	}
	return m, nil
}

// Unknown is a message this package does not interpret.
type Unknown struct {
	typ  Type
	Data []byte
}

func (m *Unknown) Type() Type { return m.typ }

// Continuation points at another chunk of the same object header.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeContinuation }

func parseContinuation(c *cursor) (*Continuation, error) {
	m := &Continuation{Offset: c.offset(), Length: c.length()}
	return m, c.err
}

// SymbolTable marks a group that stores its links in a v1 B-tree.
type SymbolTable struct {
	BTreeAddress     uint64
	LocalHeapAddress uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }

func parseSymbolTable(c *cursor) (*SymbolTable, error) {
	m := &SymbolTable{BTreeAddress: c.offset(), LocalHeapAddress: c.offset()}
	return m, c.err
}

// cursor walks a message payload. The first short read sets err and every
// later read returns zero.
type cursor struct {
	b   []byte
	pos int
	cfg binary.Config
	err error
}

func newCursor(b []byte, cfg binary.Config) *cursor {
	if cfg.OffsetSize == 0 {
		cfg = binary.DefaultConfig()
	}
	return &cursor{b: b, cfg: cfg}
}

func (c *cursor) remaining() int { return len(c.b) - c.pos }

func (c *cursor) bytes(n int) []byte {
	if c.err != nil || n < 0 || c.pos+n > len(c.b) {
		if c.err == nil {
			c.err = ErrTruncated
		}
		return make([]byte, max(n, 0))
	}
	out := c.b[c.pos : c.pos+n]
	c.pos += n
	return out
}

func (c *cursor) skip(n int) { c.bytes(n) }

func (c *cursor) u8() uint8 { return c.bytes(1)[0] }

func (c *cursor) uintN(n int) uint64 {
	return binary.DecodeUint(c.bytes(n), n, c.cfg.ByteOrder)
}

func (c *cursor) u16() uint16    { return uint16(c.uintN(2)) }
func (c *cursor) u32() uint32    { return uint32(c.uintN(4)) }
func (c *cursor) u64() uint64    { return c.uintN(8) }
func (c *cursor) offset() uint64 { return c.uintN(c.cfg.OffsetSize) }
func (c *cursor) length() uint64 { return c.uintN(c.cfg.LengthSize) }

// cstring reads a NUL-terminated string. With pad8 set the terminator is
// followed by padding up to a multiple of eight bytes from start.
func (c *cursor) cstring(pad8 bool) string {
	if c.err != nil {
		return ""
	}
	start := c.pos
	end := start
	for end < len(c.b) && c.b[end] != 0 {
		end++
	}
	if end >= len(c.b) {
		c.err = ErrTruncated
		return ""
	}
	s := string(c.b[start:end])
	n := end - start + 1
	if pad8 {
		n = align8(n)
	}
	c.skip(n)
	return s
}

func align8(n int) int { return (n + 7) &^ 7 }
