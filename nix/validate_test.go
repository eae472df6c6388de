package nix

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messagesFor(issues []Issue, p string) []string {
	for _, is := range issues {
		if is.Path == p {
			return is.Messages
		}
	}
	return nil
}

func TestValidateCleanFile(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	da := sampledSine(t, b, "sine")
	tag, err := b.CreateTag("stim", "t", []float64{2.5})
	require.NoError(t, err)
	require.NoError(t, tag.SetExtent([]float64{1}))
	require.NoError(t, tag.SetUnits([]string{"ms"}))
	require.NoError(t, tag.References().Append(da))
	_, err = tag.CreateFeature(da, Untagged)
	require.NoError(t, err)
	trialFrame(t, b)
	sourceTree(t, b)

	r := f.Validate()
	assert.True(t, r.Valid(), "%+v", r.Errors)
	assert.True(t, r.Empty(), "%+v", r.Warnings)
}

func TestValidateDataArrays(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)

	grid, err := b.CreateDataArray("grid", "t", Float64, make([]float64, 6), WithShape(2, 3))
	require.NoError(t, err)
	_, err = grid.AppendSampledDimension(1)
	require.NoError(t, err)

	ranged, err := b.CreateDataArray("ranged", "t", Float64, make([]float64, 4))
	require.NoError(t, err)
	_, err = ranged.AppendRangeDimension([]float64{1, 2, 3})
	require.NoError(t, err)

	labelled, err := b.CreateDataArray("labelled", "t", Float64, make([]float64, 2))
	require.NoError(t, err)
	_, err = labelled.AppendSetDimension([]string{"a", "b", "c"})
	require.NoError(t, err)

	calibrated, err := b.CreateDataArray("calibrated", "t", Int16, []int16{1, 2})
	require.NoError(t, err)
	require.NoError(t, calibrated.SetPolynomCoefficients([]float64{0, 1}))
	d, err := calibrated.AppendSampledDimension(1)
	require.NoError(t, err)
	require.NoError(t, d.SetOffset(3))

	origin, err := b.CreateDataArray("origin", "t", Float64, []float64{1})
	require.NoError(t, err)
	require.NoError(t, origin.SetExpansionOrigin(2))
	_, err = origin.AppendSetDimension(nil)
	require.NoError(t, err)

	r := f.Validate()
	assert.False(t, r.Valid())
	assert.Equal(t, []string{msgDimensionMismatch}, messagesFor(r.Errors, grid.Path()))
	assert.Equal(t, []string{fmt.Sprintf(msgRangeDimTicksMismatch, 1)}, messagesFor(r.Errors, ranged.Path()))
	assert.Equal(t, []string{fmt.Sprintf(msgSetDimLabelsMismatch, 1)}, messagesFor(r.Errors, labelled.Path()))
	assert.Nil(t, messagesFor(r.Errors, calibrated.Path()))
	assert.Equal(t, []string{msgNoExpansionOrigin, fmt.Sprintf(msgOffsetNoUnit, 1)}, messagesFor(r.Warnings, calibrated.Path()))
	assert.Equal(t, []string{msgNoPolynomialCoeffs}, messagesFor(r.Warnings, origin.Path()))

	for _, is := range r.Errors {
		assert.Equal(t, "DataArray", is.Kind)
	}
}

func TestValidateMissingAttributes(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	src, err := b.CreateSource("electrode", "device")
	require.NoError(t, err)
	a, err := src.attrs()
	require.NoError(t, err)
	a.SetAttr("type", nil)
	a.SetAttr("created_at", nil)

	f.h.Root().SetAttr("format", nil)

	r := f.Validate()
	assert.Equal(t, []string{msgNoType, msgNoDate}, messagesFor(r.Errors, src.Path()))
	assert.Equal(t, []string{msgNoFormat}, messagesFor(r.Warnings, "/"))
	assert.Nil(t, messagesFor(r.Warnings, b.Path()))
}

func TestValidateTags(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	da := sampledSine(t, b, "sine")

	noUnits, err := b.CreateTag("no units", "t", []float64{1})
	require.NoError(t, err)
	require.NoError(t, noUnits.References().Append(da))

	wrongRank, err := b.CreateTag("wrong rank", "t", []float64{1, 2})
	require.NoError(t, err)
	require.NoError(t, wrongRank.SetExtent([]float64{1}))
	require.NoError(t, wrongRank.SetUnits([]string{"s", "s"}))
	require.NoError(t, wrongRank.References().Append(da))

	freq, err := b.CreateTag("frequency", "t", []float64{1})
	require.NoError(t, err)
	require.NoError(t, freq.SetUnits([]string{"Hz"}))
	require.NoError(t, freq.References().Append(da))

	feat, err := b.CreateTag("feature", "t", []float64{1})
	require.NoError(t, err)
	ft, err := feat.CreateFeature(da, Tagged)
	require.NoError(t, err)
	a, err := ft.attrs()
	require.NoError(t, err)
	a.SetAttr("link_type", nil)

	r := f.Validate()
	assert.Equal(t, []string{msgRefUnitsMismatch}, messagesFor(r.Errors, noUnits.Path()))
	assert.Equal(t, []string{msgPositionDimMismatch, msgPositionExtentMismatch, msgRefUnitsMismatch}, messagesFor(r.Errors, wrongRank.Path()))
	assert.Equal(t, []string{msgRefUnitsIncompatible}, messagesFor(r.Errors, freq.Path()))
	assert.Equal(t, []string{"feature 0: " + msgNoLinkType}, messagesFor(r.Errors, feat.Path()))
}

func TestValidateMultiTags(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	mt := multiTagFixture(t, b)
	require.NoError(t, mt.SetUnits([]string{"none", "none"}))
	r := f.Validate()
	assert.Nil(t, messagesFor(r.Errors, mt.Path()))

	short, err := b.CreateDataArray("short", "t", Float64, make([]float64, 4), WithShape(2, 2))
	require.NoError(t, err)
	require.NoError(t, mt.SetExtents(short))
	line := sampledSine(t, b, "line")
	require.NoError(t, mt.References().Append(line))

	r = f.Validate()
	assert.Equal(t, []string{
		msgPositionsDimMismatch,
		msgPositionsExtentsMismatch,
		msgExtentsDimMismatch,
		msgRefUnitsMismatch,
		msgRefUnitsIncompatible,
	}, messagesFor(r.Errors, mt.Path()))
}

func TestValidateSections(t *testing.T) {
	f, _ := newFile(t)
	sec, err := f.CreateSection("settings", "settings")
	require.NoError(t, err)
	_, err = sec.CreateProperty("gain", 2.0)
	require.NoError(t, err)
	p, err := sec.CreateProperty("rate", 20.0)
	require.NoError(t, err)
	require.NoError(t, p.SetUnit("Hz"))

	r := f.Validate()
	assert.True(t, r.Valid())
	assert.Equal(t, []string{"property 0: " + msgNoUnit}, messagesFor(r.Warnings, sec.Path()))
}

func TestValidateFileID(t *testing.T) {
	f, _ := newFile(t)
	root := f.h.Root()
	root.SetAttr("id", nil)
	assert.Nil(t, messagesFor(f.Validate().Warnings, "/"))

	root.SetAttr("version", versionAttr(fileIDVersion))
	assert.Equal(t, []string{msgNoFileID}, messagesFor(f.Validate().Warnings, "/"))
}

func TestValidateClosedFile(t *testing.T) {
	f, _ := newFile(t)
	require.NoError(t, f.Close())
	r := f.Validate()
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "File", r.Errors[0].Kind)
}

func TestValidateEntityIDs(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	rig, err := b.CreateSource("rig", "device")
	require.NoError(t, err)
	electrode, err := b.CreateSource("electrode", "device")
	require.NoError(t, err)
	odd, err := b.CreateSource("odd", "device")
	require.NoError(t, err)

	a, err := electrode.attrs()
	require.NoError(t, err)
	a.SetAttr("entity_id", rig.ID())
	a, err = odd.attrs()
	require.NoError(t, err)
	a.SetAttr("entity_id", "not-a-uuid")

	r := f.Validate()
	assert.Equal(t, []string{fmt.Sprintf(msgDuplicateID, rig.Path())}, messagesFor(r.Errors, electrode.Path()))
	assert.Equal(t, []string{msgInvalidID}, messagesFor(r.Errors, odd.Path()))
	assert.Nil(t, messagesFor(r.Errors, rig.Path()))
	for _, is := range r.Errors {
		assert.Equal(t, "Source", is.Kind)
	}
}

func TestValidateGroupMembers(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	local := sampledSine(t, b, "sine")
	other, err := f.CreateBlock("other", "t")
	require.NoError(t, err)
	foreign, err := other.CreateDataArray("x", "t", Float64, []float64{1})
	require.NoError(t, err)
	_, err = foreign.AppendSetDimension(nil)
	require.NoError(t, err)

	grp, err := b.CreateGroup("trial", "t")
	require.NoError(t, err)
	require.NoError(t, grp.DataArrays().Append(local))
	assert.Nil(t, messagesFor(f.Validate().Errors, grp.Path()))

	g, err := grp.group()
	require.NoError(t, err)
	members, err := g.RequireGroup("data_arrays")
	require.NoError(t, err)
	require.NoError(t, members.CreateSoftLink(foreign.ID(), foreign.Path()))

	assert.Equal(t, []string{fmt.Sprintf(msgForeignMember, "data_arrays", foreign.Path())},
		messagesFor(f.Validate().Errors, grp.Path()))
}

func TestValidateSectionLinks(t *testing.T) {
	f, _ := newFile(t)
	base, err := f.CreateSection("base", "settings")
	require.NoError(t, err)
	derived, err := f.CreateSection("derived", "settings")
	require.NoError(t, err)
	require.NoError(t, derived.SetLink(base))
	assert.Nil(t, messagesFor(f.Validate().Errors, derived.Path()))

	g, err := derived.group()
	require.NoError(t, err)
	require.NoError(t, g.Delete("link"))
	require.NoError(t, g.CreateSoftLink("link", "/metadata/gone"))
	assert.Equal(t, []string{msgDanglingLink}, messagesFor(f.Validate().Errors, derived.Path()))

	b := testBlock(t, f)
	da := sampledSine(t, b, "sine")
	require.NoError(t, g.Delete("link"))
	require.NoError(t, g.CreateSoftLink("link", da.Path()))
	assert.Equal(t, []string{msgDanglingLink}, messagesFor(f.Validate().Errors, derived.Path()))
}

func TestValidatePropertyUnits(t *testing.T) {
	f, _ := newFile(t)
	sec, err := f.CreateSection("settings", "settings")
	require.NoError(t, err)
	p, err := sec.CreateProperty("distance", 2.0)
	require.NoError(t, err)
	a, err := p.attrs()
	require.NoError(t, err)
	a.SetAttr("unit", "parsec")

	r := f.Validate()
	assert.True(t, r.Valid())
	assert.Equal(t, []string{"property 0: " + msgInvalidUnit}, messagesFor(r.Warnings, sec.Path()))
}

func TestValidateRangeTicksMayRepeat(t *testing.T) {
	f, _ := newFile(t)
	b := testBlock(t, f)
	da, err := b.CreateDataArray("steps", "t", Float64, make([]float64, 3))
	require.NoError(t, err)
	d, err := da.AppendRangeDimension([]float64{0.5, 0.5, 1})
	require.NoError(t, err)
	require.NoError(t, d.SetUnit("s"))

	assert.Nil(t, messagesFor(f.Validate().Errors, da.Path()))
}
