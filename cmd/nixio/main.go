// Command nixio inspects, validates and upgrades NIX files.
//
//	nixio explore file session.nix -vv
//	nixio explore metadata -p subject/species data/
//	nixio explore dump -p voltage -o voltage.txt session.nix
//	nixio validate *.nix
//	nixio upgrade -f old.nix
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
