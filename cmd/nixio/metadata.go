package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/robert-malhotra/go-nix/nix"
)

// findSections returns the sections matching pattern in type or, if none
// does, in name.
func findSections(f *nix.File, pattern string, m matcher) ([]*nix.Section, error) {
	secs, err := f.FindSections(func(s *nix.Section) bool { return m.match(pattern, s.Type()) }, -1)
	if err != nil || len(secs) > 0 {
		return secs, err
	}
	return f.FindSections(func(s *nix.Section) bool { return m.match(pattern, s.Name()) }, -1)
}

func matchingProps(sec *nix.Section, pattern string, m matcher) ([]*nix.Property, error) {
	props, err := sec.Properties().All()
	if err != nil {
		return nil, err
	}
	var out []*nix.Property
	for _, p := range props {
		if m.match(pattern, p.Name()) {
			out = append(out, p)
		}
	}
	return out, nil
}

// showMetadata prints the section trees or properties selected by
// patterns, or every top level section tree when there are none.
func showMetadata(w io.Writer, f *nix.File, patterns []string, depth int, m matcher) error {
	if len(patterns) == 0 {
		secs, err := f.Sections().All()
		if err != nil {
			return err
		}
		for _, s := range secs {
			if err := printSection(w, s, 0, depth); err != nil {
				return err
			}
		}
		return nil
	}
	for _, pat := range patterns {
		secPat, propPat, scoped := strings.Cut(pat, "/")
		if scoped {
			secs, err := findSections(f, secPat, m)
			if err != nil {
				return err
			}
			for _, s := range secs {
				props, err := matchingProps(s, propPat, m)
				if err != nil {
					return err
				}
				for _, p := range props {
					printScopedProperty(w, s, p)
				}
			}
			continue
		}

		secs, err := findSections(f, pat, m)
		if err != nil {
			return err
		}
		if len(secs) > 0 {
			for _, s := range secs {
				if err := printSection(w, s, 0, depth); err != nil {
					return err
				}
			}
			continue
		}
		all, err := f.FindSections(nil, -1)
		if err != nil {
			return err
		}
		for _, s := range all {
			props, err := matchingProps(s, pat, m)
			if err != nil {
				return err
			}
			for _, p := range props {
				printScopedProperty(w, s, p)
			}
		}
	}
	return nil
}

func printScopedProperty(w io.Writer, s *nix.Section, p *nix.Property) {
	fmt.Fprintf(w, "[section: %s, type: %s, id: %s] >> %s\n", s.Name(), s.Type(), s.ID(), propertyLine(p))
}

// propertyLine renders a property as "name: [values] unit".
func propertyLine(p *nix.Property) string {
	vals, err := p.Values()
	if err != nil {
		return fmt.Sprintf("%s: <%v>", p.Name(), err)
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	line := fmt.Sprintf("%s: [%s]", p.Name(), strings.Join(parts, ", "))
	if u := p.Unit(); u != "" {
		line += " " + u
	}
	return line
}

// printSection prints s with its properties and its subsections down to
// maxDepth levels below s; a negative maxDepth prints the whole tree.
func printSection(w io.Writer, s *nix.Section, level, maxDepth int) error {
	indent := strings.Repeat("  ", level)
	fmt.Fprintf(w, "%s%s [%s] --- id: %s\n", indent, s.Name(), s.Type(), s.ID())
	props, err := s.Properties().All()
	if err != nil {
		return err
	}
	for _, p := range props {
		fmt.Fprintf(w, "%s  |- %s\n", indent, propertyLine(p))
	}
	if maxDepth >= 0 && level >= maxDepth {
		return nil
	}
	subs, err := s.Sections().All()
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if err := printSection(w, sub, level+1, maxDepth); err != nil {
			return err
		}
	}
	return nil
}
