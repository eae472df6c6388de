package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignedAppend(t *testing.T) {
	a := New(45)
	assert.Equal(t, uint64(48), a.Alloc(3, "header"))
	assert.Equal(t, uint64(56), a.Alloc(16, "heap"))
	assert.Equal(t, uint64(72), a.Alloc(0, "empty"))
	assert.Equal(t, uint64(72), a.EOF())
	assert.Len(t, a.Blocks(), 3)
	assert.NoError(t, a.Validate())
}

func TestValidateOverlap(t *testing.T) {
	a := New(0)
	a.Alloc(8, "a")
	a.blocks = append(a.blocks, Block{Addr: 4, Size: 8, Tag: "b"})
	assert.Error(t, a.Validate())
}
