package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-nix/nix"
)

const upgradeWarning = `
PLEASE READ CAREFULLY

If you choose to continue, the changes listed above will be applied to the
respective files. This will make the files unreadable by older NIX library
versions. Interrupting the upgrade may leave files in a corrupted state.

MAKE SURE YOUR FILES AND DATA ARE BACKED UP BEFORE CONTINUING.
`

func (a *app) upgradeCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "upgrade <path>...",
		Short: "Update older files to the current file format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			files, err := a.files(args)
			if err != nil {
				return err
			}
			var plans []*nix.UpgradePlan
			for _, p := range files {
				plan, err := nix.UpgradeTasks(p, nix.WithLogger(a.logger()))
				if err != nil {
					return err
				}
				fmt.Fprintln(out, plan)
				if !plan.UpToDate() {
					plans = append(plans, plan)
				}
			}
			if len(plans) == 0 {
				return nil
			}

			if !force {
				fmt.Fprint(out, upgradeWarning)
				ok, err := a.confirm(cmd, "Continue with changes?")
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			for _, plan := range plans {
				fmt.Fprintf(out, "Processing %s ", plan.Path)
				if err := nix.Upgrade(plan, nix.WithLogger(a.logger())); err != nil {
					fmt.Fprintln(out, "failed")
					return err
				}
				fmt.Fprintln(out, "done")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "apply the changes without asking")
	return cmd
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// confirm asks a yes/no question. Terminals get an interactive prompt,
// other inputs are read line by line until a valid answer appears.
func (a *app) confirm(cmd *cobra.Command, question string) (bool, error) {
	in := cmd.InOrStdin()
	if isTerminal(in) {
		var ok bool
		err := huh.NewConfirm().
			Title(question).
			Affirmative("Yes").
			Negative("No").
			Value(&ok).
			Run()
		return ok, err
	}

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprintf(cmd.OutOrStdout(), "%s [yes/no] ", question)
		if !sc.Scan() {
			return false, sc.Err()
		}
		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}
