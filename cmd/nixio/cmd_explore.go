package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-nix/nix"
)

// matcher selects entities by name or type.
type matcher struct {
	caseSensitive bool
	fullMatch     bool
}

func (m matcher) match(pattern, s string) bool {
	if !m.caseSensitive {
		pattern, s = strings.ToLower(pattern), strings.ToLower(s)
	}
	if m.fullMatch {
		return pattern == s
	}
	return strings.Contains(s, pattern)
}

func (m *matcher) addFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&m.caseSensitive, "case-sensitive", "c", false, "match names and types case sensitively")
	fs.BoolVarP(&m.fullMatch, "full-match", "f", false, "names and types must match completely")
}

func (a *app) exploreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Display file information, data and metadata",
		Long: `explore is split into sub-commands for file, metadata and data
exploration. "dump" writes the values of data arrays of up to three
dimensions as text.`,
	}
	cmd.AddCommand(
		a.exploreFileCmd(),
		a.exploreMetadataCmd(),
		a.exploreDataCmd(),
		a.exploreDumpCmd(),
	)
	return cmd
}

func (a *app) exploreFileCmd() *cobra.Command {
	var (
		verbosity int
		format    string
	)
	cmd := &cobra.Command{
		Use:   "file <path>...",
		Short: "Display basic file information and structure",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "yaml" {
				return fmt.Errorf("unknown --format %q", format)
			}
			files, err := a.files(args)
			if err != nil {
				return err
			}
			summaries := make([]*fileSummary, len(files))
			failed := make([]error, len(files))
			a.logger()
			var g errgroup.Group
			g.SetLimit(4)
			for i, p := range files {
				i, p := i, p
				g.Go(func() error {
					summaries[i], failed[i] = a.summarize(p)
					return nil
				})
			}
			g.Wait()

			out := cmd.OutOrStdout()
			var firstErr error
			for i, s := range summaries {
				if failed[i] != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s is not a valid NIX file: %v\n", files[i], failed[i])
					if firstErr == nil {
						firstErr = failed[i]
					}
					continue
				}
				if format == "yaml" {
					enc := yaml.NewEncoder(out)
					enc.SetIndent(2)
					if err := enc.Encode(s); err != nil {
						return err
					}
					enc.Close()
					continue
				}
				s.write(out, verbosity)
			}
			return firstErr
		},
	}
	cmd.Flags().CountVarP(&verbosity, "verbose", "v", "increase output detail, use -v, -vv or -vvv")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text or yaml)")
	return cmd
}

func (a *app) exploreMetadataCmd() *cobra.Command {
	var (
		m        matcher
		patterns []string
		depth    int
	)
	cmd := &cobra.Command{
		Use:     "metadata <path>...",
		Aliases: []string{"mdata"},
		Short:   "Filter and display metadata",
		Long: `Search for sections and properties or display metadata trees.

A pattern is either "type_or_name", which selects sections matching in
type (or, failing that, in name) and otherwise properties with a matching
name, or "section/property", which selects matching properties within the
matching sections.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			files, err := a.files(args)
			if err != nil {
				return err
			}
			for _, p := range files {
				f, err := a.open(p)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s:\n", filepath.Base(p))
				err = showMetadata(out, f, patterns, depth, m)
				f.Close()
				if err != nil {
					return err
				}
				fmt.Fprint(out, "\n\n")
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&patterns, "pattern", "p", nil, "section or property pattern, may be repeated")
	cmd.Flags().IntVarP(&depth, "depth", "d", -1, "maximum depth of printed section trees, -1 for all")
	m.addFlags(cmd.Flags())
	return cmd
}

func (a *app) exploreDataCmd() *cobra.Command {
	var (
		m       matcher
		pattern string
	)
	cmd := &cobra.Command{
		Use:   "data <path>...",
		Short: "Display information about data arrays",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			files, err := a.files(args)
			if err != nil {
				return err
			}
			for _, p := range files {
				f, err := a.open(p)
				if err != nil {
					return err
				}
				arrays, err := findDataArrays(f, pattern, m)
				if err != nil {
					f.Close()
					return err
				}
				fmt.Fprintf(out, "# File: %s\n", p)
				for _, da := range arrays {
					fmt.Fprintf(out, "# entity: %s\n# type: %s\n# id: %s\n", da.Name(), da.Type(), da.ID())
					fmt.Fprintf(out, "# created at: %s\n# last edited at: %s\n\n", da.CreatedAt(), da.UpdatedAt())
					fmt.Fprintf(out, "%s\n\n\n", describeArray(da))
				}
				f.Close()
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "name or type of the data arrays to show")
	m.addFlags(cmd.Flags())
	return cmd
}

func (a *app) exploreDumpCmd() *cobra.Command {
	var (
		m       matcher
		pattern string
		outfile string
	)
	cmd := &cobra.Command{
		Use:   "dump <path>...",
		Short: "Dump data array values as text",
		Long: `Write the values of all data arrays matching the pattern, together
with their dimension ticks, as text. Arrays of up to three dimensions are
supported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := a.files(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			dest := "stdout"
			if outfile != "" {
				if _, err := os.Stat(outfile); err == nil {
					ok, err := a.confirm(cmd, fmt.Sprintf("File %s already exists, overwrite it?", outfile))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.ErrOrStderr(), "data dump aborted")
						return nil
					}
				}
				fh, err := os.Create(outfile)
				if err != nil {
					return err
				}
				defer fh.Close()
				out, dest = fh, outfile
			}
			for _, p := range files {
				if err := a.dumpFile(out, cmd.ErrOrStderr(), p, pattern, m, dest); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "name or type of the data arrays to dump")
	cmd.Flags().StringVarP(&outfile, "outfile", "o", "", "file to write to, stdout if not given")
	cmd.MarkFlagRequired("pattern")
	m.addFlags(cmd.Flags())
	return cmd
}

func (a *app) dumpFile(out, status io.Writer, path, pattern string, m matcher, dest string) error {
	f, err := a.open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	arrays, err := findDataArrays(f, pattern, m)
	if err != nil {
		return err
	}
	for _, da := range arrays {
		fmt.Fprintf(status, "Dumping %s to %s...\n", da.Name(), dest)
		if err := dumpDataArray(out, path, da); err != nil {
			return err
		}
	}
	return nil
}

// findDataArrays returns the data arrays of all blocks whose name or type
// matches pattern.
func findDataArrays(f *nix.File, pattern string, m matcher) ([]*nix.DataArray, error) {
	blocks, err := f.Blocks().All()
	if err != nil {
		return nil, err
	}
	var out []*nix.DataArray
	for _, b := range blocks {
		arrays, err := b.DataArrays().All()
		if err != nil {
			return nil, err
		}
		for _, da := range arrays {
			if m.match(pattern, da.Name()) || m.match(pattern, da.Type()) {
				out = append(out, da)
			}
		}
	}
	return out, nil
}

func describeDims(da *nix.DataArray) string {
	dims, err := da.Dimensions()
	if err != nil {
		return "dimensions: [?]"
	}
	desc := make([]string, len(dims))
	for i, d := range dims {
		switch d.DimensionType() {
		case nix.SampleDimensionType, nix.RangeDimensionType:
			desc[i] = d.Label()
		default:
			desc[i] = string(d.DimensionType())
		}
	}
	return "dimensions: [" + strings.Join(desc, ",") + "]"
}

func describeArray(da *nix.DataArray) string {
	return fmt.Sprintf("DataArray: {name = %s, type = %s, shape = %v, dtype = %s, label = %s, unit = %s, %s}",
		da.Name(), da.Type(), da.Shape(), da.DType(), da.Label(), da.Unit(), describeDims(da))
}
