package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-nix/internal/binary"
	"github.com/robert-malhotra/go-nix/internal/message"
)

func TestEncodeRead(t *testing.T) {
	cfg := binary.DefaultConfig()
	msgs := []message.Serializable{
		message.NewLinkInfo(2),
		&message.GroupInfo{},
		&message.Link{Name: "data", CreationOrder: 0, Address: 96},
		&message.Link{Name: "metadata", CreationOrder: 1, Address: 200},
	}
	raw, err := Encode(cfg, msgs)
	require.NoError(t, err)
	assert.Equal(t, Size(cfg, msgs), len(raw))

	// place the header at a non-zero address
	buf := binary.NewBuffer(nil)
	_, err = buf.WriteAt(raw, 48)
	require.NoError(t, err)

	h, err := Read(binary.NewReader(buf, cfg), 48)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), h.Version)
	links := h.Links()
	require.Len(t, links, 2)
	assert.Equal(t, "data", links[0].Name)
	assert.Equal(t, uint64(200), links[1].Address)
	assert.False(t, h.IsDataset())
}

func TestChecksumMismatch(t *testing.T) {
	cfg := binary.DefaultConfig()
	raw, err := Encode(cfg, []message.Serializable{&message.GroupInfo{}})
	require.NoError(t, err)
	raw[len(raw)-5] ^= 0xff

	_, err = Read(binary.NewReader(binary.NewBuffer(raw), cfg), 0)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestLargeHeaderUsesWideSizeField(t *testing.T) {
	cfg := binary.DefaultConfig()
	var msgs []message.Serializable
	for i := 0; i < 20; i++ {
		msgs = append(msgs, &message.Link{Name: string(rune('a'+i)) + "_0123456789", CreationOrder: uint64(i), Address: uint64(i)})
	}
	raw, err := Encode(cfg, msgs)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), raw[5]&0x03)

	h, err := Read(binary.NewReader(binary.NewBuffer(raw), cfg), 0)
	require.NoError(t, err)
	assert.Len(t, h.Links(), 20)
}

func TestInvalidSignature(t *testing.T) {
	_, err := Read(binary.NewReader(binary.NewBuffer([]byte("XXXXXXXX")), binary.DefaultConfig()), 0)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}
