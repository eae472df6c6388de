package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "uV", Sanitize("µV"))
	assert.Equal(t, "uV", Sanitize("μV"))
	assert.Equal(t, "uOhm", Sanitize("muOhm"))
	assert.Equal(t, "mV^2*Hz^-1", Sanitize("mV^2 * Hz^-1"))
}

func TestIsSI(t *testing.T) {
	for _, u := range []string{"V", "mV", "kV", "ms^2", "mol", "mmol", "dB", "%", "Hz", "uOhm"} {
		assert.True(t, IsSI(u), u)
	}
	for _, u := range []string{"", "Kv", "in", "pt", "ft", "yrd", "mV/", "xmV/Hz"} {
		assert.False(t, IsSI(u), u)
	}
}

func TestAtomicAndCompound(t *testing.T) {
	assert.True(t, IsAtomic("mV"))
	assert.True(t, IsAtomic("mV^2"))
	assert.False(t, IsAtomic("mV^2/Hz"))
	assert.True(t, IsCompound("mV^2/Hz"))
	assert.True(t, IsCompound("mol/s"))
	assert.False(t, IsCompound("mV"))
}

func TestSplit(t *testing.T) {
	cases := []struct {
		in, prefix, base string
		pow              int
	}{
		{"mV", "m", "V", 1},
		{"ms^2", "m", "s", 2},
		{"s^-1", "", "s", -1},
		{"m", "", "m", 1},
		{"mol", "", "mol", 1},
		{"Pa", "", "Pa", 1},
		{"daPa", "da", "Pa", 1},
		{"mV/Hz", "", "mV/Hz", 1},
	}
	for _, c := range cases {
		prefix, base, pow := Split(c.in)
		assert.Equal(t, c.prefix, prefix, c.in)
		assert.Equal(t, c.base, base, c.in)
		assert.Equal(t, c.pow, pow, c.in)
	}
}

func TestSplitCompound(t *testing.T) {
	parts, err := SplitCompound("mV")
	require.NoError(t, err)
	assert.Equal(t, []string{"mV"}, parts)

	parts, err = SplitCompound("mV^2/Hz")
	require.NoError(t, err)
	assert.Equal(t, []string{"mV^2", "Hz^-1"}, parts)

	parts, err = SplitCompound(Sanitize("mV^2 * Hz^-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"mV^2", "Hz^-1"}, parts)

	parts, err = SplitCompound("mol/s")
	require.NoError(t, err)
	assert.Equal(t, []string{"mol", "s^-1"}, parts)

	_, err = SplitCompound("ft")
	assert.ErrorIs(t, err, ErrInvalidUnit)
}

func TestScaling(t *testing.T) {
	assert.True(t, ScalableAll([]string{"V", "s"}, []string{"kV", "ms"}))
	assert.False(t, ScalableAll([]string{"V"}, []string{"V", "s"}))
	assert.False(t, Scalable("V", "g"))
	assert.False(t, Scalable("s", "s^2"))

	cases := []struct {
		from, to string
		want     float64
	}{
		{"ms", "s", 1e-3},
		{"s", "ms", 1e3},
		{"mV", "uV", 1e3},
		{"ms^2", "s^2", 1e-6},
		{"V", "V", 1},
		{"mV/Hz", "mV/Hz", 1},
	}
	for _, c := range cases {
		got, err := Scaling(c.from, c.to)
		require.NoError(t, err)
		assert.InEpsilon(t, c.want, got, 1e-12, "%s -> %s", c.from, c.to)
	}

	_, err := Scaling("V", "s")
	assert.ErrorIs(t, err, ErrInvalidUnit)
}
