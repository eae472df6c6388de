package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/robert-malhotra/go-nix/nix"
)

type entitySummary struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	ID      string   `yaml:"id"`
	Details []string `yaml:"details,omitempty"`
}

type blockSummary struct {
	entitySummary `yaml:",inline"`
	DataArrays    []entitySummary `yaml:"data_arrays"`
	DataFrames    []entitySummary `yaml:"data_frames"`
	Groups        []entitySummary `yaml:"groups"`
	Tags          []entitySummary `yaml:"tags"`
	MultiTags     []entitySummary `yaml:"multi_tags"`
	Sources       []entitySummary `yaml:"sources"`
}

type sectionSummary struct {
	entitySummary `yaml:",inline"`
	Subsections   int `yaml:"subsections"`
	Properties    int `yaml:"properties"`
}

// fileSummary describes a NIX file for "explore file".
type fileSummary struct {
	File      string           `yaml:"file"`
	Format    string           `yaml:"format"`
	Version   string           `yaml:"version"`
	CreatedAt time.Time        `yaml:"created_at"`
	UpdatedAt time.Time        `yaml:"updated_at"`
	Size      int64            `yaml:"size"`
	Location  string           `yaml:"location"`
	Blocks    []blockSummary   `yaml:"blocks"`
	Sections  []sectionSummary `yaml:"sections"`
}

func summarizeEntity(e named) entitySummary {
	return entitySummary{Name: e.Name(), Type: e.Type(), ID: e.ID()}
}

type named interface {
	Name() string
	Type() string
	ID() string
}

func summarizeAll[T named](es []T, details func(T) []string) []entitySummary {
	out := make([]entitySummary, len(es))
	for i, e := range es {
		out[i] = summarizeEntity(e)
		if details != nil {
			out[i].Details = details(e)
		}
	}
	return out
}

func arrayDetails(da *nix.DataArray) []string {
	return []string{fmt.Sprintf("shape: %v, dtype: %s, %s", da.Shape(), da.DType(), describeDims(da))}
}

func refNames(c *nix.LinkContainer[*nix.DataArray]) []string {
	arrays, err := c.All()
	if err != nil {
		return nil
	}
	out := make([]string, len(arrays))
	for i, da := range arrays {
		out[i] = da.Name()
	}
	return out
}

func featureNames(c *nix.FeatureContainer) []string {
	features, err := c.All()
	if err != nil {
		return nil
	}
	var out []string
	for _, ft := range features {
		if da, err := ft.Data(); err == nil {
			out = append(out, da.Name())
		} else if df, err := ft.DataFrame(); err == nil {
			out = append(out, df.Name())
		}
	}
	return out
}

func tagDetails(t *nix.Tag) []string {
	out := []string{fmt.Sprintf("start: %v, extent: %v", t.Position(), t.Extent())}
	for _, n := range refNames(t.References()) {
		out = append(out, "refers to -> "+n)
	}
	for _, n := range featureNames(t.Features()) {
		out = append(out, "feature in -> "+n)
	}
	return out
}

func multiTagDetails(t *nix.MultiTag) []string {
	var out []string
	if pos, err := t.Positions(); err == nil {
		line := "positions: " + pos.Name()
		if ext, err := t.Extents(); err == nil && ext != nil {
			line += ", extents: " + ext.Name()
		}
		out = append(out, line)
	}
	for _, n := range refNames(t.References()) {
		out = append(out, "segment refers to -> "+n)
	}
	for _, n := range featureNames(t.Features()) {
		out = append(out, "segment feature(s) in -> "+n)
	}
	return out
}

func summarizeBlock(b *nix.Block) (blockSummary, error) {
	s := blockSummary{entitySummary: summarizeEntity(b)}
	arrays, err := b.DataArrays().All()
	if err != nil {
		return s, err
	}
	frames, err := b.DataFrames().All()
	if err != nil {
		return s, err
	}
	groups, err := b.Groups().All()
	if err != nil {
		return s, err
	}
	tags, err := b.Tags().All()
	if err != nil {
		return s, err
	}
	mtags, err := b.MultiTags().All()
	if err != nil {
		return s, err
	}
	sources, err := b.Sources().All()
	if err != nil {
		return s, err
	}
	s.DataArrays = summarizeAll(arrays, arrayDetails)
	s.DataFrames = summarizeAll(frames, nil)
	s.Groups = summarizeAll(groups, nil)
	s.Tags = summarizeAll(tags, tagDetails)
	s.MultiTags = summarizeAll(mtags, multiTagDetails)
	s.Sources = summarizeAll(sources, nil)
	return s, nil
}

func summarizeSection(sec *nix.Section) (sectionSummary, error) {
	s := sectionSummary{entitySummary: summarizeEntity(sec)}
	tree, err := sec.FindSections(nil, -1)
	if err != nil {
		return s, err
	}
	s.Subsections = len(tree) - 1
	for _, t := range tree {
		s.Properties += t.Properties().Len()
	}
	return s, nil
}

func (a *app) summarize(path string) (*fileSummary, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	f, err := a.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	abs, _ := filepath.Abs(path)
	s := &fileSummary{
		File:      filepath.Base(path),
		Format:    f.Format(),
		Version:   f.Version().String(),
		CreatedAt: f.CreatedAt(),
		UpdatedAt: f.UpdatedAt(),
		Size:      st.Size(),
		Location:  filepath.Dir(abs),
	}
	blocks, err := f.Blocks().All()
	if err != nil {
		return nil, err
	}
	for _, b := range blocks {
		bs, err := summarizeBlock(b)
		if err != nil {
			return nil, err
		}
		s.Blocks = append(s.Blocks, bs)
	}
	sections, err := f.Sections().All()
	if err != nil {
		return nil, err
	}
	for _, sec := range sections {
		ss, err := summarizeSection(sec)
		if err != nil {
			return nil, err
		}
		s.Sections = append(s.Sections, ss)
	}
	return s, nil
}

func (e entitySummary) line() string {
	return fmt.Sprintf("%s [%s] --- id: %s", e.Name, e.Type, e.ID)
}

func writeList(w io.Writer, title, noun string, es []entitySummary, verbosity int) {
	if verbosity < 2 {
		fmt.Fprintf(w, "      %d %s\n", len(es), noun)
		return
	}
	if len(es) == 0 {
		return
	}
	fmt.Fprintf(w, "      %s:\n", title)
	for _, e := range es {
		fmt.Fprintf(w, "      %s\n", e.line())
		if verbosity > 2 {
			for _, d := range e.Details {
				fmt.Fprintf(w, "       %s\n", d)
			}
		}
	}
}

// write prints the summary with increasing detail for verbosity 0 to 3.
func (s *fileSummary) write(w io.Writer, verbosity int) {
	fmt.Fprintf(w, " File: %s\n", s.File)
	fmt.Fprintf(w, "  format: %s\n  version: %s\n", s.Format, s.Version)
	fmt.Fprintf(w, "  created at: %s\n  last updated: %s\n", s.CreatedAt, s.UpdatedAt)
	fmt.Fprintf(w, "  size on disk: %.2f MB\n", float64(s.Size)/1e6)
	fmt.Fprintf(w, "  location: %s\n\n", s.Location)

	if verbosity < 1 {
		sections := 0
		for _, sec := range s.Sections {
			sections += sec.Subsections + 1
		}
		fmt.Fprintf(w, "  %d block(s)\n  %d section(s)\n\n\n", len(s.Blocks), sections)
		return
	}

	fmt.Fprintln(w, "  data:")
	for _, b := range s.Blocks {
		fmt.Fprintf(w, "    %s\n", b.line())
		writeList(w, "Data Arrays", "data arrays", b.DataArrays, verbosity)
		writeList(w, "Data frames", "data frames", b.DataFrames, verbosity)
		writeList(w, "Groups", "groups", b.Groups, verbosity)
		writeList(w, "Tags", "tags", b.Tags, verbosity)
		writeList(w, "Multi-Tags", "multi-tags", b.MultiTags, verbosity)
		writeList(w, "Sources", "sources", b.Sources, verbosity)
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "  metadata:")
	for _, sec := range s.Sections {
		fmt.Fprintf(w, "    %s\n     %d sub-section(s), %d properties\n", sec.line(), sec.Subsections, sec.Properties)
	}
	fmt.Fprint(w, "\n\n")
}
