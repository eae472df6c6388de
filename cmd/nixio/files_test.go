package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}
}

func TestAssembleFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.nix")
	b := filepath.Join(dir, "b.nix")
	h5 := filepath.Join(dir, "c.h5")
	nested := filepath.Join(dir, "run1", "d.nix")
	touch(t, b, a, h5, nested)

	tests := []struct {
		name    string
		args    []string
		suffix  string
		files   []string
		missing []string
	}{
		{"directory", []string{dir}, "nix", []string{a, b}, nil},
		{"suffix", []string{dir}, "h5", []string{h5}, nil},
		{"plain file", []string{h5}, "nix", []string{h5}, nil},
		{"glob", []string{filepath.Join(dir, "*.nix")}, "nix", []string{a, b}, nil},
		{"glob of directories", []string{filepath.Join(dir, "run*")}, "nix", []string{nested}, nil},
		{"missing", []string{filepath.Join(dir, "nope*.nix")}, "nix", nil, []string{filepath.Join(dir, "nope*.nix")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, missing := assembleFiles(tt.args, tt.suffix)
			assert.Equal(t, tt.files, files)
			assert.Equal(t, tt.missing, missing)
		})
	}
}

func TestMatcher(t *testing.T) {
	tests := []struct {
		m       matcher
		pattern string
		s       string
		want    bool
	}{
		{matcher{}, "volt", "Voltage", true},
		{matcher{caseSensitive: true}, "volt", "Voltage", false},
		{matcher{fullMatch: true}, "voltage", "Voltage", true},
		{matcher{fullMatch: true}, "volt", "Voltage", false},
		{matcher{caseSensitive: true, fullMatch: true}, "Voltage", "Voltage", true},
		{matcher{}, "", "anything", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.m.match(tt.pattern, tt.s), "%+v %q %q", tt.m, tt.pattern, tt.s)
	}
}
