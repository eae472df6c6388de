package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-nix/nix"
)

var (
	errInvalid = errors.New("validation found errors")

	styleTitle   = lipgloss.NewStyle().Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("#F4D03F"))
)

type validation struct {
	path   string
	result *nix.ValidationResult
	err    error
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>...",
		Short: "Check files for missing or inconsistent objects and annotations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := a.files(args)
			if err != nil {
				return err
			}
			results := make([]validation, len(files))
			a.logger()
			var g errgroup.Group
			g.SetLimit(4)
			for i, p := range files {
				i, p := i, p
				g.Go(func() error {
					results[i] = a.validate(p)
					return nil
				})
			}
			g.Wait()

			var failed error
			for _, v := range results {
				if err := v.write(cmd.OutOrStdout()); err != nil && failed == nil {
					failed = err
				}
			}
			return failed
		},
	}
}

func (a *app) validate(path string) validation {
	f, err := a.open(path)
	if err != nil {
		return validation{path: path, err: err}
	}
	defer f.Close()
	a.logger().WithField("file", path).Debug("validating")
	return validation{path: path, result: f.Validate()}
}

func writeIssues(w io.Writer, style lipgloss.Style, what string, issues []nix.Issue) {
	if len(issues) == 0 {
		return
	}
	plural := ""
	if len(issues) > 1 {
		plural = "s"
	}
	head := fmt.Sprintf("%d object%s with %s", len(issues), plural, what)
	fmt.Fprintf(w, "  %s\n", style.Render(head))
	for i, is := range issues {
		fmt.Fprintf(w, " [%d] %s '%s' (%s)\n", i+1, is.Kind, is.Name, is.Path)
		for _, msg := range is.Messages {
			fmt.Fprintf(w, "    %s\n", msg)
		}
	}
}

// write prints the findings for one file and returns an error if the
// file could not be read or has validation errors.
func (v validation) write(w io.Writer) error {
	fmt.Fprintln(w, styleTitle.Render(fmt.Sprintf("Results for '%s'", v.path)))
	if v.err != nil {
		fmt.Fprintf(w, "  %s\n\n", styleError.Render(v.err.Error()))
		return v.err
	}
	writeIssues(w, styleError, "errors", v.result.Errors)
	writeIssues(w, styleWarning, "warnings", v.result.Warnings)
	fmt.Fprintln(w)
	if !v.result.Valid() {
		return fmt.Errorf("%s: %w", v.path, errInvalid)
	}
	return nil
}
