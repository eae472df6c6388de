package object

import (
	"fmt"

	"github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/message"
)

// maxMessageSize is the largest payload a version 2 message header can
// describe.
const maxMessageSize = 0xffff

// Size returns the encoded size of a version 2 header holding msgs.
func Size(cfg binary.Config, msgs []message.Serializable) int {
	body := bodySize(cfg, msgs)
	return 4 + 1 + 1 + sizeFieldBytes(body) + body + 4
}

func bodySize(cfg binary.Config, msgs []message.Serializable) int {
	n := 0
	for _, m := range msgs {
		n += 4 + m.SerializedSize(cfg)
	}
	return n
}

func sizeFieldBytes(n int) int {
	switch {
	case n <= 0xff:
		return 1
	case n <= 0xffff:
		return 2
	default:
		return 4
	}
}

// Encode builds a version 2 object header holding msgs in a single chunk.
func Encode(cfg binary.Config, msgs []message.Serializable) ([]byte, error) {
	body := bodySize(cfg, msgs)
	field := sizeFieldBytes(body)
	flags := uint8(0)
	switch field {
	case 2:
		flags = 1
	case 4:
		flags = 2
	}

	buf := binary.NewBuffer(make([]byte, 0, Size(cfg, msgs)))
	w := binary.NewWriter(buf, cfg)
	if err := w.WriteBytes(signatureV2); err != nil {
		return nil, err
	}
	if err := w.WriteBytes([]byte{2, flags}); err != nil {
		return nil, err
	}
	if err := w.WriteUintN(uint64(body), field); err != nil {
		return nil, err
	}
	for _, m := range msgs {
		size := m.SerializedSize(cfg)
		if size > maxMessageSize {
			return nil, fmt.Errorf("message 0x%04x of %d bytes exceeds header limit", uint16(m.Type()), size)
		}
		if err := w.WriteUint8(uint8(m.Type())); err != nil {
			return nil, err
		}
		if err := w.WriteUint16(uint16(size)); err != nil {
			return nil, err
		}
		if err := w.WriteUint8(messageFlags(m)); err != nil {
			return nil, err
		}
		before := w.Pos()
		if err := m.Serialize(w); err != nil {
			return nil, err
		}
		if got := int(w.Pos() - before); got != size {
			return nil, fmt.Errorf("message 0x%04x wrote %d bytes, declared %d", uint16(m.Type()), got, size)
		}
	}
	if err := w.WriteUint32(binary.Lookup3(buf.Bytes())); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// messageFlags marks datatype and fill value messages constant, as the
// HDF5 library does.
func messageFlags(m message.Serializable) uint8 {
	switch m.Type() {
	case message.TypeDatatype, message.TypeFillValue:
		return 0x01
	}
	return 0
}
