package nix

import (
	"fmt"
	"path"
	"slices"
	"strconv"

	"github.com/robert-malhotra/go-nix/internal/store"
	"github.com/robert-malhotra/go-nix/internal/units"
)

// Validation messages.
const (
	msgNoName                   = "no name set"
	msgNoType                   = "no type set"
	msgNoDate                   = "date is not set"
	msgNoDataType               = "data type is not set"
	msgNoID                     = "no ID set"
	msgDimensionMismatch        = "data dimensionality does not match number of defined dimensions"
	msgInvalidDimensionIndex    = "index for dimension %d is not set to a valid value (index > 0)"
	msgIncorrectDimensionIndex  = "index for dimension %d is set to incorrect value %s"
	msgDimensionTypeMismatch    = "dimension_type attribute for dimension %d does not match Dimension object type"
	msgRangeDimTicksMismatch    = "number of ticks in RangeDimension (%d) differs from the number of data entries along the corresponding data dimension"
	msgSetDimLabelsMismatch     = "number of labels in SetDimension (%d) differs from the number of data entries along the corresponding data dimension"
	msgNoPosition               = "position is not set"
	msgPositionDimMismatch      = "number of entries in position does not match number of dimensions in all referenced DataArrays"
	msgExtentDimMismatch        = "number of entries in extent does not match number of dimensions in all referenced DataArrays"
	msgPositionExtentMismatch   = "number of entries in position and extent do not match"
	msgRefUnitsMismatch         = "some of the referenced DataArrays' dimensions don't have units where the Tag has; make sure that all references have the same number of dimensions as the Tag has units and that each dimension has a unit set"
	msgRefUnitsIncompatible     = "some of the referenced DataArrays' dimensions have units that are not convertible to the units set in the Tag (Note: composite units are not supported)"
	msgInvalidTagUnit           = "unit is invalid: not an atomic SI (Note: composite units are not supported)"
	msgNoPositions              = "positions are not set"
	msgPositionsDimMismatch     = "number of entries (in 2nd dim) in positions does not match number of dimensions in all referenced DataArrays"
	msgExtentsDimMismatch       = "number of entries (in 2nd dim) in extents does not match number of dimensions in all referenced DataArrays"
	msgPositionsExtentsMismatch = "number of entries in positions and extents do not match"
	msgNoTicks                  = "ticks for dimension %d are not set"
	msgUnsortedTicks            = "ticks for dimension %d are not sorted"
	msgInvalidDimensionUnit     = "unit for dimension %d is set but it is not an atomic SI unit (Note: composite units are not supported)"
	msgNoSamplingInterval       = "sampling interval for dimension %d is not set"
	msgInvalidSamplingInterval  = "sampling interval for dimension %d is not valid (interval > 0)"
	msgDataFrameMismatch        = "referenced data frame for dimension %d does not have the same row count as the data array"
	msgNoData                   = "data is not set"
	msgNoLinkType               = "link_type is not set"

	msgNoVersion          = "version is not set"
	msgNoFormat           = "format is not set"
	msgNoFileID           = "file ID is not set"
	msgInvalidUnit        = "unit is not SI or composite of SI units"
	msgNoExpansionOrigin  = "polynomial coefficients for calibration are set, but expansion origin is missing"
	msgNoPolynomialCoeffs = "expansion origin for calibration is set, but polynomial coefficients are missing"
	msgOffsetNoUnit       = "offset for dimension %d is set, but no valid unit is set"
	msgNoUnit             = "unit is not set"

	msgInvalidID     = "ID is not a valid UUID"
	msgDuplicateID   = "ID is also used by %s"
	msgDanglingLink  = "linked section does not exist"
	msgForeignMember = "%s link to %s is outside the block of the group"
)

// fileIDVersion is the first format version that requires a file id.
var fileIDVersion = Version{1, 2, 0}

// Issue lists the problems found with one entity.
type Issue struct {
	Path     string
	Kind     string
	Name     string
	Messages []string
}

// ValidationResult holds the errors and warnings found by Validate, in
// the order the entities were visited.
type ValidationResult struct {
	Errors   []Issue
	Warnings []Issue
}

// Valid reports whether no errors were found. Warnings do not count.
func (r *ValidationResult) Valid() bool { return len(r.Errors) == 0 }

// Empty reports whether neither errors nor warnings were found.
func (r *ValidationResult) Empty() bool { return len(r.Errors) == 0 && len(r.Warnings) == 0 }

func (r *ValidationResult) add(e Entity, kind string, errs, warns []string) {
	if len(errs) > 0 {
		r.Errors = append(r.Errors, Issue{Path: e.Path(), Kind: kind, Name: e.Name(), Messages: errs})
	}
	if len(warns) > 0 {
		r.Warnings = append(r.Warnings, Issue{Path: e.Path(), Kind: kind, Name: e.Name(), Messages: warns})
	}
}

type fileEntity struct{ f *File }

func (fe fileEntity) ID() string   { return fe.f.ID() }
func (fe fileEntity) Name() string { return fe.f.Path() }
func (fe fileEntity) Path() string { return "/" }

// Validate checks the file and every entity in it. Problems are
// collected, not returned as errors; entities that cannot be read at all
// are reported with the error text as message.
func (f *File) Validate() *ValidationResult {
	r := &ValidationResult{}
	root, err := f.root()
	if err != nil {
		r.Errors = append(r.Errors, Issue{Path: "/", Kind: "File", Messages: []string{err.Error()}})
		return r
	}
	var errs, warns []string
	if f.rootString("created_at") == "" {
		errs = append(errs, msgNoDate)
	}
	v, hasVersion := readVersion(&root.Attrs)
	if !hasVersion {
		warns = append(warns, msgNoVersion)
	}
	if f.Format() == "" {
		warns = append(warns, msgNoFormat)
	}
	if f.ID() == "" && hasVersion && v.Compare(fileIDVersion) >= 0 {
		warns = append(warns, msgNoFileID)
	}
	r.add(fileEntity{f}, "File", errs, warns)

	blocks, err := f.Blocks().All()
	if err != nil {
		r.add(fileEntity{f}, "File", []string{err.Error()}, nil)
	}
	for _, b := range blocks {
		r.add(b, "Block", checkEntity(&b.entity), nil)
		validateAll(r, b.Groups(), "Group", checkGroup)
		validateAll(r, b.DataArrays(), "DataArray", checkDataArray)
		validateAll(r, b.Tags(), "Tag", checkTag)
		validateAll(r, b.MultiTags(), "MultiTag", checkMultiTag)
		validateAll(r, b.DataFrames(), "DataFrame", checkDataFrame)
		validateSources(r, b.Sources())
	}
	validateSections(r, f.Sections())
	checkUniqueIDs(r, root)
	return r
}

// entityKinds names the entity kind stored below each container group.
var entityKinds = map[string]string{
	"data":        "Block",
	"data_arrays": "DataArray",
	"tags":        "Tag",
	"multi_tags":  "MultiTag",
	"sources":     "Source",
	"groups":      "Group",
	"data_frames": "DataFrame",
	"metadata":    "Section",
	"sections":    "Section",
	"properties":  "Property",
	"features":    "Feature",
}

func kindAt(p string) string {
	if path.Base(p) == "link" {
		return "DimensionLink"
	}
	if k, ok := entityKinds[path.Base(path.Dir(p))]; ok {
		return k
	}
	return "Entity"
}

// checkUniqueIDs reports every object whose entity_id was already seen
// on another object of the file.
func checkUniqueIDs(r *ValidationResult, root *store.Group) {
	seen := make(map[string]string)
	store.Walk(root, "/", func(p string, l *store.Link) error {
		if l.IsSoft() {
			return nil
		}
		a := store.AttrsOf(l.Object())
		id := attrString(a, "entity_id")
		if id == "" {
			return nil
		}
		first, dup := seen[id]
		if !dup {
			seen[id] = p
			return nil
		}
		name := attrString(a, "name")
		if name == "" {
			name = path.Base(p)
		}
		r.Errors = append(r.Errors, Issue{Path: p, Kind: kindAt(p), Name: name, Messages: []string{fmt.Sprintf(msgDuplicateID, first)}})
		return nil
	})
}

func validateAll[T Entity](r *ValidationResult, c *Container[T], kind string, check func(T) ([]string, []string)) {
	all, err := c.All()
	if err != nil {
		r.Errors = append(r.Errors, Issue{Path: c.path(), Kind: kind, Messages: []string{err.Error()}})
		return
	}
	for _, e := range all {
		errs, warns := check(e)
		r.add(e, kind, errs, warns)
	}
}

func validateSources(r *ValidationResult, c *Container[*Source]) {
	validateAll(r, c, "Source", func(s *Source) ([]string, []string) {
		return checkEntity(&s.entity), nil
	})
	all, _ := c.All()
	for _, s := range all {
		validateSources(r, s.Sources())
	}
}

func validateSections(r *ValidationResult, c *Container[*Section]) {
	validateAll(r, c, "Section", checkSection)
	all, _ := c.All()
	for _, s := range all {
		validateSections(r, s.Sections())
	}
}

func checkEntity(e *entity) []string {
	var errs []string
	if e.Type() == "" {
		errs = append(errs, msgNoType)
	}
	switch {
	case e.id == "":
		errs = append(errs, msgNoID)
	case !IsUUID(e.id):
		errs = append(errs, msgInvalidID)
	}
	if e.name == "" {
		errs = append(errs, msgNoName)
	}
	if e.getString("created_at") == "" {
		errs = append(errs, msgNoDate)
	}
	return errs
}

func checkDataArray(da *DataArray) ([]string, []string) {
	errs := checkEntity(&da.entity)
	var warns []string
	if _, err := da.dataset(); err != nil || isZeroType(da.DType()) {
		errs = append(errs, msgNoDataType)
	}
	shape := da.Shape()
	if da.DimensionCount() != len(shape) {
		errs = append(errs, msgDimensionMismatch)
	}
	if u := da.Unit(); u != "" && !units.IsSI(u) {
		warns = append(warns, msgInvalidUnit)
	}
	coeff, _ := da.PolynomCoefficients()
	_, hasOrigin := da.ExpansionOrigin()
	switch {
	case len(coeff) > 0 && !hasOrigin:
		warns = append(warns, msgNoExpansionOrigin)
	case hasOrigin && len(coeff) == 0:
		warns = append(warns, msgNoPolynomialCoeffs)
	}

	dg, _ := da.dimensionsGroup()
	if dg == nil {
		return errs, warns
	}
	links := dg.Links()
	for i := 0; i < len(links) && i < len(shape); i++ {
		idx := i + 1
		l := links[i]
		n, err := strconv.Atoi(l.Name)
		switch {
		case err != nil || n <= 0:
			errs = append(errs, fmt.Sprintf(msgInvalidDimensionIndex, idx))
			continue
		case n != idx:
			errs = append(errs, fmt.Sprintf(msgIncorrectDimensionIndex, idx, l.Name))
		}
		if l.Group == nil {
			errs = append(errs, fmt.Sprintf(msgDimensionTypeMismatch, idx))
			continue
		}
		dim, err := loadDimension(da, n, l.Group)
		if err != nil {
			errs = append(errs, fmt.Sprintf(msgDimensionTypeMismatch, idx))
			continue
		}
		e, w := checkDimension(dim, idx, shape[i])
		errs = append(errs, e...)
		warns = append(warns, w...)
	}
	return errs, warns
}

func checkDimension(dim Dimension, idx, n int) (errs, warns []string) {
	switch d := dim.(type) {
	case *RangeDimension:
		ticks, err := d.Ticks()
		if err == nil && ticks != nil && len(ticks) != n {
			errs = append(errs, fmt.Sprintf(msgRangeDimTicksMismatch, idx))
		}
		if len(ticks) == 0 {
			errs = append(errs, fmt.Sprintf(msgNoTicks, idx))
		} else if !sorted(ticks) {
			errs = append(errs, fmt.Sprintf(msgUnsortedTicks, idx))
		}
		if u := d.Unit(); u != "" && !units.IsAtomic(u) {
			errs = append(errs, fmt.Sprintf(msgInvalidDimensionUnit, idx))
		}
	case *SampledDimension:
		switch si := d.SamplingInterval(); {
		case si == 0:
			errs = append(errs, fmt.Sprintf(msgNoSamplingInterval, idx))
		case si < 0:
			errs = append(errs, fmt.Sprintf(msgInvalidSamplingInterval, idx))
		}
		if u := d.Unit(); u != "" {
			if !units.IsAtomic(u) {
				errs = append(errs, fmt.Sprintf(msgInvalidDimensionUnit, idx))
			}
		} else if d.Offset() != 0 {
			warns = append(warns, fmt.Sprintf(msgOffsetNoUnit, idx))
		}
	case *SetDimension:
		labels, _ := d.Labels()
		if len(labels) > 0 && len(labels) != n {
			errs = append(errs, fmt.Sprintf(msgSetDimLabelsMismatch, idx))
		}
	case *DataFrameDimension:
		df, err := d.DataFrame()
		if err != nil || df.Rows() != n {
			errs = append(errs, fmt.Sprintf(msgDataFrameMismatch, idx))
		}
	}
	return errs, warns
}

// dimensionUnits returns the units of the range and sampled dimensions
// of da, with "" for set dimensions. Data frame dimensions are left out.
func dimensionUnits(da *DataArray) []string {
	dims, _ := da.Dimensions()
	var out []string
	for _, d := range dims {
		switch d.DimensionType() {
		case RangeDimensionType, SampleDimensionType, SetDimensionType:
			out = append(out, d.Unit())
		}
	}
	return out
}

// checkTagUnits compares the tag units with the dimension units of every
// reference.
func checkTagUnits(tagUnits []string, refs []*DataArray) []string {
	var errs []string
	refUnits := make([][]string, len(refs))
	for i, da := range refs {
		refUnits[i] = dimensionUnits(da)
	}
	for _, ru := range refUnits {
		if len(ru) != len(tagUnits) {
			errs = append(errs, msgRefUnitsMismatch)
			break
		}
	}
	compatible := true
	for _, ru := range refUnits {
		for k := 0; k < len(ru) && k < len(tagUnits); k++ {
			tu := unitAt(tagUnits, k)
			if tu == "" && ru[k] == "" {
				continue
			}
			if !units.Scalable(tu, ru[k]) {
				compatible = false
			}
		}
	}
	if !compatible {
		errs = append(errs, msgRefUnitsIncompatible)
	}
	return errs
}

func invalidTagUnits(us []string) bool {
	for _, u := range us {
		if u != "" && u != "none" && !units.IsSI(u) {
			return true
		}
	}
	return false
}

func checkFeatures(t *tagging) []string {
	var errs []string
	all, err := t.Features().All()
	if err != nil {
		return []string{err.Error()}
	}
	for i, f := range all {
		switch {
		case f.id == "":
			errs = append(errs, fmt.Sprintf("feature %d: %s", i, msgNoID))
		case !IsUUID(f.id):
			errs = append(errs, fmt.Sprintf("feature %d: %s", i, msgInvalidID))
		}
		if f.getString("created_at") == "" {
			errs = append(errs, fmt.Sprintf("feature %d: %s", i, msgNoDate))
		}
		if _, err := f.dataEntity(); err != nil {
			errs = append(errs, fmt.Sprintf("feature %d: %s", i, msgNoData))
		}
		if f.LinkType() == "" {
			errs = append(errs, fmt.Sprintf("feature %d: %s", i, msgNoLinkType))
		}
	}
	return errs
}

func anyRank(refs []*DataArray, n int) bool {
	for _, da := range refs {
		if da.Rank() != n {
			return true
		}
	}
	return false
}

func checkTag(t *Tag) ([]string, []string) {
	errs := checkEntity(&t.entity)
	pos := t.Position()
	if len(pos) == 0 {
		errs = append(errs, msgNoPosition)
	}
	refs, err := t.References().All()
	if err != nil {
		errs = append(errs, err.Error())
	}
	if len(refs) > 0 {
		if anyRank(refs, len(pos)) {
			errs = append(errs, msgPositionDimMismatch)
		}
		if ext := t.Extent(); len(ext) > 0 {
			if len(ext) != len(pos) {
				errs = append(errs, msgPositionExtentMismatch)
			}
			if anyRank(refs, len(ext)) {
				errs = append(errs, msgExtentDimMismatch)
			}
		}
		errs = append(errs, checkTagUnits(t.Units(), refs)...)
	}
	if invalidTagUnits(t.Units()) {
		errs = append(errs, msgInvalidTagUnit)
	}
	errs = append(errs, checkFeatures(&t.tagging)...)
	return errs, nil
}

// width returns the number of coordinates per row of a positions or
// extents array.
func width(shape []int) int {
	if len(shape) == 1 {
		return 1
	}
	if len(shape) == 0 {
		return 0
	}
	return shape[1]
}

func checkMultiTag(t *MultiTag) ([]string, []string) {
	errs := checkEntity(&t.entity)
	positions, err := t.Positions()
	if err != nil || positions == nil {
		errs = append(errs, msgNoPositions)
	}
	refs, err := t.References().All()
	if err != nil {
		errs = append(errs, err.Error())
	}
	if len(refs) > 0 && positions != nil {
		ps := positions.Shape()
		if anyRank(refs, width(ps)) {
			errs = append(errs, msgPositionsDimMismatch)
		}
		if extents, _ := t.Extents(); extents != nil {
			es := extents.Shape()
			if !slices.Equal(ps, es) {
				errs = append(errs, msgPositionsExtentsMismatch)
			}
			if anyRank(refs, width(es)) {
				errs = append(errs, msgExtentsDimMismatch)
			}
		}
		errs = append(errs, checkTagUnits(t.Units(), refs)...)
	}
	if invalidTagUnits(t.Units()) {
		errs = append(errs, msgInvalidTagUnit)
	}
	errs = append(errs, checkFeatures(&t.tagging)...)
	return errs, nil
}

func checkDataFrame(df *DataFrame) ([]string, []string) {
	errs := checkEntity(&df.entity)
	if _, err := df.dataset(); err != nil {
		errs = append(errs, msgNoData)
	}
	var warns []string
	for _, u := range df.Units() {
		if u != "" && !units.IsSI(u) {
			warns = append(warns, msgInvalidUnit)
			break
		}
	}
	return errs, warns
}

// groupMembers are the link containers of a group.
var groupMembers = []string{"data_arrays", "tags", "multi_tags", "sources", "data_frames"}

func checkGroup(g *Group) ([]string, []string) {
	errs := checkEntity(&g.entity)
	grp, err := g.group()
	if err != nil {
		return append(errs, err.Error()), nil
	}
	for _, name := range groupMembers {
		lg, err := grp.Group(name)
		if err != nil {
			continue
		}
		scope := within(g.links(name))
		for _, l := range lg.Links() {
			if !l.IsSoft() || scope(l.Target) != nil {
				errs = append(errs, fmt.Sprintf(msgForeignMember, name, l.Target))
			}
		}
	}
	return errs, nil
}

func checkSection(s *Section) ([]string, []string) {
	errs := checkEntity(&s.entity)
	var warns []string
	if linked, err := s.Link(); err != nil || linked != nil && kindAt(linked.path) != "Section" {
		errs = append(errs, msgDanglingLink)
	}
	props, err := s.Properties().All()
	if err != nil {
		return append(errs, err.Error()), nil
	}
	for i, p := range props {
		switch {
		case p.id == "":
			errs = append(errs, fmt.Sprintf("property %d: %s", i, msgNoID))
		case !IsUUID(p.id):
			errs = append(errs, fmt.Sprintf("property %d: %s", i, msgInvalidID))
		}
		if p.name == "" {
			errs = append(errs, fmt.Sprintf("property %d: %s", i, msgNoName))
		}
		switch u := p.Unit(); {
		case u == "":
			warns = append(warns, fmt.Sprintf("property %d: %s", i, msgNoUnit))
		case !units.IsSI(u):
			warns = append(warns, fmt.Sprintf("property %d: %s", i, msgInvalidUnit))
		}
	}
	return errs, warns
}
