package superblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-nix/internal/binary"
)

func TestEncodeRead(t *testing.T) {
	cfg := binary.DefaultConfig()
	raw := Encode(cfg, 4096, 48)
	require.Len(t, raw, Size(cfg))

	sb, err := Read(binary.NewBuffer(raw))
	require.NoError(t, err)
	assert.Equal(t, uint8(2), sb.Version)
	assert.Equal(t, 8, sb.OffsetSize)
	assert.Equal(t, uint64(4096), sb.EOFAddress)
	assert.Equal(t, uint64(48), sb.RootAddress)
}

func TestSignatureAtUserBlockOffset(t *testing.T) {
	raw := make([]byte, 512)
	raw = append(raw, Encode(binary.DefaultConfig(), 1024, 600)...)
	sb, err := Read(binary.NewBuffer(raw))
	require.NoError(t, err)
	assert.Equal(t, int64(512), sb.FileOffset)
}

func TestCorruptChecksum(t *testing.T) {
	raw := Encode(binary.DefaultConfig(), 4096, 48)
	raw[len(raw)-6] ^= 0x01
	_, err := Read(binary.NewBuffer(raw))
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestNotHDF5(t *testing.T) {
	_, err := Read(binary.NewBuffer([]byte("definitely not an hdf5 file at all")))
	assert.ErrorIs(t, err, ErrNotHDF5)
}
