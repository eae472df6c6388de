package nix

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClock = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

func newFile(t *testing.T) (*File, string) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "test.nix")
	f, err := Open(p, Overwrite, WithClock(testClock))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f, p
}

func reopen(t *testing.T, f *File, mode Mode) *File {
	t.Helper()
	require.NoError(t, f.Close())
	g, err := Open(f.Path(), mode)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g
}

func testBlock(t *testing.T, f *File) *Block {
	t.Helper()
	b, err := f.CreateBlock("session", "recording")
	require.NoError(t, err)
	return b
}

func TestCreateFile(t *testing.T) {
	f, _ := newFile(t)
	assert.Equal(t, FormatName, f.Format())
	assert.Equal(t, LibraryVersion, f.Version())
	assert.True(t, IsUUID(f.ID()))
	assert.Equal(t, testClock(), f.CreatedAt())
	assert.True(t, f.IsOpen())

	id := f.ID()
	g := reopen(t, f, ReadOnly)
	assert.Equal(t, id, g.ID())
	assert.Equal(t, 0, g.Blocks().Len())
	assert.False(t, f.IsOpen())
}

func TestOpenVersionGate(t *testing.T) {
	f, p := newFile(t)
	f.h.Root().SetAttr("version", versionAttr(Version{1, 2, 0}))
	require.NoError(t, f.Close())

	ro, err := Open(p, ReadOnly)
	require.NoError(t, err)
	assert.Equal(t, Version{1, 2, 0}, ro.Version())
	require.NoError(t, ro.Close())

	_, err = Open(p, ReadWrite)
	assert.ErrorIs(t, err, ErrIncompatibleVersion)

	g, err := Open(p, Overwrite)
	require.NoError(t, err)
	g.h.Root().SetAttr("version", versionAttr(Version{1, 0, 0}))
	require.NoError(t, g.Close())
	_, err = Open(p, ReadOnly)
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestOpenRejectsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.nix")
	require.NoError(t, os.WriteFile(junk, make([]byte, 4096), 0o644))
	_, err := Open(junk, ReadOnly)
	assert.ErrorIs(t, err, ErrInvalidFile)

	f, p := newFile(t)
	f.h.Root().SetAttr("format", "other")
	require.NoError(t, f.Close())
	_, err = Open(p, ReadOnly)
	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestReadWriteCreatesMissingFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "fresh.nix")
	f, err := Open(p, ReadWrite)
	require.NoError(t, err)
	_, err = f.CreateBlock("b", "t")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	g, err := Open(p, ReadWrite)
	require.NoError(t, err)
	defer g.Close()
	assert.True(t, g.Blocks().Contains("b"))
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	f, _ := newFile(t)
	testBlock(t, f)
	g := reopen(t, f, ReadOnly)

	_, err := g.CreateBlock("other", "t")
	assert.ErrorIs(t, err, ErrReadOnly)
	b, err := g.Blocks().Get("session")
	require.NoError(t, err)
	assert.ErrorIs(t, b.SetType("x"), ErrReadOnly)
	assert.ErrorIs(t, g.Flush(), ErrReadOnly)
}

func TestUseAfterClose(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	da, err := b.CreateDataArray("x", "t", Float64, []float64{1, 2})
	require.NoError(t, err)
	_, err = da.AppendSampledDimension(1)
	require.NoError(t, err)
	tag, err := b.CreateTag("tag", "t", []float64{0})
	require.NoError(t, err)
	require.NoError(t, tag.References().Append(da))
	_, err = tag.CreateFeature(da, Untagged)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = da.Dimensions()
	assert.ErrorIs(t, err, ErrUseAfterClose)
	_, err = tag.Retrieve(0)
	assert.ErrorIs(t, err, ErrUseAfterClose)
	_, err = tag.RetrieveFeature(0)
	assert.ErrorIs(t, err, ErrUseAfterClose)
	_, err = b.CreateSource("s", "t")
	assert.ErrorIs(t, err, ErrUseAfterClose)
	_, err = da.Read()
	assert.ErrorIs(t, err, ErrUseAfterClose)
	assert.ErrorIs(t, da.SetLabel("v"), ErrUseAfterClose)
	assert.Equal(t, "", da.Type())
	assert.Equal(t, Version{}, f.Version())
}

func TestBlocks(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	assert.True(t, IsUUID(b.ID()))
	assert.Equal(t, "recording", b.Type())
	assert.Equal(t, "/data/session", b.Path())

	_, err := f.CreateBlock("session", "t")
	assert.ErrorIs(t, err, ErrDuplicateName)
	_, err = f.CreateBlock("a/b", "t")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = f.CreateBlock("", "t")
	assert.ErrorIs(t, err, ErrInvalidName)

	byID, err := f.Blocks().Get(b.ID())
	require.NoError(t, err)
	assert.True(t, byID.Equal(b))
	_, err = f.Blocks().At(3)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = f.Blocks().Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.Blocks().Delete("session"))
	assert.Equal(t, 0, f.Blocks().Len())
}

func TestTimestamps(t *testing.T) {
	now := testClock()
	clock := func() time.Time { return now }
	p := filepath.Join(t.TempDir(), "times.nix")
	f, err := Open(p, Overwrite, WithClock(clock), WithAutoUpdateTime(true))
	require.NoError(t, err)
	defer f.Close()

	b, err := f.CreateBlock("b", "t")
	require.NoError(t, err)
	assert.Equal(t, now, b.CreatedAt())

	now = now.Add(time.Hour)
	require.NoError(t, b.SetDefinition("later"))
	assert.Equal(t, now, b.UpdatedAt())
	assert.Equal(t, now.Add(-time.Hour), b.CreatedAt())

	f.SetAutoUpdateTime(false)
	now = now.Add(time.Hour)
	require.NoError(t, b.SetDefinition("quiet"))
	assert.Equal(t, now.Add(-time.Hour), b.UpdatedAt())
	require.NoError(t, b.ForceUpdatedAt())
	assert.Equal(t, now, b.UpdatedAt())

	past := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, b.ForceCreatedAt(past))
	assert.Equal(t, past, b.CreatedAt())
}

func TestLinkChangesTouchOwner(t *testing.T) {
	now := testClock()
	clock := func() time.Time { return now }
	p := filepath.Join(t.TempDir(), "links.nix")
	f, err := Open(p, Overwrite, WithClock(clock), WithAutoUpdateTime(true))
	require.NoError(t, err)
	defer f.Close()

	b, err := f.CreateBlock("b", "t")
	require.NoError(t, err)
	da, err := b.CreateDataArray("x", "t", Float64, []float64{1})
	require.NoError(t, err)
	tag, err := b.CreateTag("tag", "t", []float64{0})
	require.NoError(t, err)
	created := tag.UpdatedAt()

	now = now.Add(time.Minute)
	require.NoError(t, tag.References().Append(da))
	assert.Equal(t, now, tag.UpdatedAt())

	now = now.Add(time.Minute)
	require.NoError(t, tag.References().Remove("x"))
	assert.Equal(t, now, tag.UpdatedAt())

	now = now.Add(time.Minute)
	require.NoError(t, tag.References().Append(da))
	require.NoError(t, tag.References().Clear())
	assert.Equal(t, now, tag.UpdatedAt())
	assert.True(t, tag.UpdatedAt().After(created))
	assert.Equal(t, created, tag.CreatedAt())
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("1.2.3")
	require.NoError(t, err)
	assert.Equal(t, Version{1, 2, 3}, v)
	assert.Equal(t, "1.2.3", v.String())
	assert.Equal(t, 1, v.Compare(LibraryVersion))
	assert.Equal(t, -1, Version{1, 0, 9}.Compare(LibraryVersion))

	_, err = ParseVersion("1.2")
	assert.Error(t, err)
	_, err = ParseVersion("1.x.3")
	assert.Error(t, err)
}
