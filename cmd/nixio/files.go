package main

import (
	"os"
	"path/filepath"
	"sort"
)

// assembleFiles expands command line arguments into a list of files.
// Regular files are taken as given, directories contribute their
// *.suffix files and anything else is treated as a glob pattern.
// Arguments that match nothing are returned in missing.
func assembleFiles(args []string, suffix string) (files, missing []string) {
	sorted := append([]string(nil), args...)
	sort.Strings(sorted)
	for _, arg := range sorted {
		if st, err := os.Stat(arg); err == nil {
			if st.IsDir() {
				files = append(files, inDir(arg, suffix)...)
			} else {
				files = append(files, arg)
			}
			continue
		}
		candidates, _ := filepath.Glob(arg)
		if len(candidates) == 0 {
			missing = append(missing, arg)
			continue
		}
		sort.Strings(candidates)
		for _, c := range candidates {
			st, err := os.Stat(c)
			switch {
			case err != nil:
			case st.IsDir():
				files = append(files, inDir(c, suffix)...)
			default:
				files = append(files, c)
			}
		}
	}
	return files, missing
}

func inDir(dir, suffix string) []string {
	m, _ := filepath.Glob(filepath.Join(dir, "*."+suffix))
	sort.Strings(m)
	return m
}
