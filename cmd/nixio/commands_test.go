package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-nix/internal/hdf5"
	"github.com/robert-malhotra/go-nix/nix"
)

// run executes nixio with args and the given standard input.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

// sessionFile writes a closed file with one block holding the voltage
// trace and a small metadata tree.
func sessionFile(t *testing.T) string {
	t.Helper()
	f, b, p := testFile(t)
	voltageTrace(t, b)
	rec, err := f.CreateSection("recording", "recording")
	require.NoError(t, err)
	_, err = rec.CreateProperty("gain", 10.0)
	require.NoError(t, err)
	amp, err := rec.CreateSection("amplifier", "hardware")
	require.NoError(t, err)
	gain, err := amp.CreateProperty("gain", 2.0)
	require.NoError(t, err)
	require.NoError(t, gain.SetUnit("Hz"))
	require.NoError(t, f.Close())
	return p
}

func TestExploreFile(t *testing.T) {
	p := sessionFile(t)

	out, err := run(t, "", "explore", "file", p)
	require.NoError(t, err)
	assert.Contains(t, out, " File: session.nix\n")
	assert.Contains(t, out, "  format: nix\n  version: 1.1.1\n")
	assert.Contains(t, out, "  1 block(s)\n  2 section(s)\n")

	out, err = run(t, "", "explore", "file", "-v", p)
	require.NoError(t, err)
	assert.Contains(t, out, "      1 data arrays\n")
	assert.Contains(t, out, "     1 sub-section(s), 2 properties\n")

	out, err = run(t, "", "explore", "file", "-vvv", p)
	require.NoError(t, err)
	assert.Contains(t, out, "      Data Arrays:\n      trace [nix.sampled] --- id: ")
	assert.Contains(t, out, "       shape: [3], dtype: float64, dimensions: [time]\n")

	out, err = run(t, "", "explore", "file", "--format", "yaml", p)
	require.NoError(t, err)
	var s fileSummary
	require.NoError(t, yaml.Unmarshal([]byte(out), &s))
	assert.Equal(t, "1.1.1", s.Version)
	require.Len(t, s.Blocks, 1)
	require.Len(t, s.Blocks[0].DataArrays, 1)
	assert.Equal(t, "trace", s.Blocks[0].DataArrays[0].Name)
	require.Len(t, s.Sections, 1)
	assert.Equal(t, 1, s.Sections[0].Subsections)

	_, err = run(t, "", "explore", "file", "--format", "xml", p)
	assert.Error(t, err)
}

func TestExploreFileRejectsOtherFiles(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.nix")
	require.NoError(t, os.WriteFile(p, make([]byte, 4096), 0o644))
	_, err := run(t, "", "explore", "file", p)
	assert.ErrorIs(t, err, nix.ErrInvalidFile)
}

func TestExploreMetadata(t *testing.T) {
	p := sessionFile(t)

	out, err := run(t, "", "explore", "metadata", p)
	require.NoError(t, err)
	assert.Contains(t, out, "recording [recording] --- id: ")
	assert.Contains(t, out, "  |- gain: [10]\n")
	assert.Contains(t, out, "  amplifier [hardware] --- id: ")
	assert.Contains(t, out, "    |- gain: [2] Hz\n")

	out, err = run(t, "", "explore", "metadata", "-d", "0", p)
	require.NoError(t, err)
	assert.NotContains(t, out, "amplifier")

	out, err = run(t, "", "explore", "mdata", "-p", "hardware", p)
	require.NoError(t, err)
	assert.Contains(t, out, "amplifier [hardware]")
	assert.NotContains(t, out, "recording [recording]")

	out, err = run(t, "", "explore", "metadata", "-p", "amp/gain", p)
	require.NoError(t, err)
	assert.Contains(t, out, "[section: amplifier, type: hardware, id: ")
	assert.Contains(t, out, "] >> gain: [2] Hz\n")
	assert.NotContains(t, out, "gain: [10]")

	out, err = run(t, "", "explore", "metadata", "-p", "gain", p)
	require.NoError(t, err)
	assert.Contains(t, out, "[section: recording, type: recording, id: ")
	assert.Contains(t, out, "[section: amplifier, type: hardware, id: ")

	out, err = run(t, "", "explore", "metadata", "-c", "-p", "GAIN", p)
	require.NoError(t, err)
	assert.NotContains(t, out, ">>")
}

func TestExploreData(t *testing.T) {
	p := sessionFile(t)
	out, err := run(t, "", "explore", "data", "-p", "sampled", p)
	require.NoError(t, err)
	assert.Contains(t, out, "# File: "+p+"\n# entity: trace\n# type: nix.sampled\n")
	assert.Contains(t, out, "DataArray: {name = trace, type = nix.sampled, shape = [3], dtype = float64, label = voltage, unit = mV, dimensions: [time]}")

	out, err = run(t, "", "explore", "data", "-f", "-p", "trac", p)
	require.NoError(t, err)
	assert.NotContains(t, out, "# entity:")
}

func TestExploreDump(t *testing.T) {
	p := sessionFile(t)

	out, err := run(t, "", "explore", "dump", "-p", "trace", p)
	require.NoError(t, err)
	assert.Contains(t, out, "0.002000   0.200000\n")

	_, err = run(t, "", "explore", "dump", p)
	assert.Error(t, err, "pattern is required")

	dest := filepath.Join(t.TempDir(), "dump.txt")
	_, err = run(t, "", "explore", "dump", "-p", "trace", "-o", dest, p)
	require.NoError(t, err)
	written, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(written), "# time           voltage\n")

	require.NoError(t, os.WriteFile(dest, []byte("keep"), 0o644))
	out, err = run(t, "n\n", "explore", "dump", "-p", "trace", "-o", dest, p)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists, overwrite it? [yes/no]")
	written, err = os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(written))
}

func TestValidateCommand(t *testing.T) {
	p := sessionFile(t)
	out, err := run(t, "", "validate", p)
	require.NoError(t, err)
	assert.Contains(t, out, "Results for '"+p+"'")
	assert.NotContains(t, out, "with errors")

	f, err := nix.Open(p, nix.ReadWrite)
	require.NoError(t, err)
	b, err := f.Blocks().Get("session")
	require.NoError(t, err)
	grid, err := b.CreateDataArray("grid", "t", nix.Float64, make([]float64, 6), nix.WithShape(2, 3))
	require.NoError(t, err)
	_, err = grid.AppendSetDimension(nil)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err = run(t, "", "validate", p)
	assert.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "1 object with errors")
	assert.Contains(t, out, " [1] DataArray 'grid' (/data/session/data_arrays/grid)\n")
}

// downgrade rewrites the version of the file at p.
func downgrade(t *testing.T, p string, v []int32) {
	t.Helper()
	h, err := hdf5.Open(p, hdf5.ReadWrite)
	require.NoError(t, err)
	h.Root().SetAttr("version", v)
	require.NoError(t, h.Close())
}

func TestUpgradeCommand(t *testing.T) {
	p := sessionFile(t)
	downgrade(t, p, []int32{1, 0, 3})

	out, err := run(t, "maybe\nno\n", "upgrade", p)
	require.NoError(t, err)
	assert.Contains(t, out, p+": 1.0.3 -> 1.1.1\n  - Update the file format version to 1.1.1\n")
	assert.Contains(t, out, "PLEASE READ CAREFULLY")
	assert.Equal(t, 2, strings.Count(out, "Continue with changes? [yes/no] "))
	_, err = nix.Open(p, nix.ReadWrite)
	assert.ErrorIs(t, err, nix.ErrIncompatibleVersion)

	out, err = run(t, "yes\n", "upgrade", p)
	require.NoError(t, err)
	assert.Contains(t, out, "Processing "+p+" done\n")
	f, err := nix.Open(p, nix.ReadWrite)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err = run(t, "", "upgrade", p)
	require.NoError(t, err)
	assert.Equal(t, "File "+p+" is up to date (1.1.1)\n", out)
}

func TestUpgradeForce(t *testing.T) {
	p := sessionFile(t)
	downgrade(t, p, []int32{1, 0, 0})

	out, err := run(t, "", "upgrade", "-f", p)
	require.NoError(t, err)
	assert.NotContains(t, out, "[yes/no]")
	assert.Contains(t, out, "done\n")

	f, err := nix.Open(p, nix.ReadOnly)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, nix.LibraryVersion, f.Version())
}

func TestLogLevelFlag(t *testing.T) {
	p := sessionFile(t)
	_, err := run(t, "", "--log-level", "loud", "validate", p)
	assert.Error(t, err)
	_, err = run(t, "", "--log-level", "debug", "validate", p)
	assert.NoError(t, err)
}

func TestMissingPathsFail(t *testing.T) {
	p := sessionFile(t)
	nope := filepath.Join(t.TempDir(), "nope.nix")
	tests := []struct {
		name string
		args []string
	}{
		{"explore file", []string{"explore", "file", p, nope}},
		{"explore metadata", []string{"explore", "metadata", nope}},
		{"explore data", []string{"explore", "data", nope}},
		{"explore dump", []string{"explore", "dump", "-p", "trace", nope}},
		{"validate", []string{"validate", nope}},
		{"upgrade", []string{"upgrade", "-f", nope}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "", tt.args...)
			require.ErrorIs(t, err, errNoMatch)
			assert.Contains(t, err.Error(), nope)
		})
	}
}
