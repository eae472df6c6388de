package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-nix/nix"
)

// app holds the state shared by all subcommands of one invocation.
type app struct {
	logLevel string
	suffix   string

	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "nixio",
		Short: "Inspect, validate and upgrade NIX files",
		Long: `nixio works on NIX files, the HDF5 based container for annotated
scientific data and metadata. Paths may be files, directories (searched
for files with the configured suffix) or glob patterns.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setupLogging(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().StringVarP(&a.suffix, "suffix", "s", nix.FormatName, "file suffix used when a directory is given")

	root.AddCommand(
		a.exploreCmd(),
		a.validateCmd(),
		a.upgradeCmd(),
	)
	return root
}

func (a *app) setupLogging(w io.Writer) error {
	lvl, err := logrus.ParseLevel(a.logLevel)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	a.log = logrus.New()
	a.log.SetOutput(w)
	a.log.SetLevel(lvl)
	a.log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return nil
}

func (a *app) logger() *logrus.Logger {
	if a.log == nil {
		a.log = logrus.New()
		a.log.SetOutput(io.Discard)
	}
	return a.log
}

// open opens path read-only with the command's logger attached.
func (a *app) open(path string) (*nix.File, error) {
	return nix.Open(path, nix.ReadOnly, nix.WithLogger(a.logger()))
}

var errNoMatch = errors.New("no files match")

// files expands the positional arguments of a command into file paths.
// An argument matching nothing fails the whole command.
func (a *app) files(args []string) ([]string, error) {
	files, missing := assembleFiles(args, a.suffix)
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w %s", errNoMatch, strings.Join(missing, ", "))
	}
	return files, nil
}
