package nix

import "strings"

type leveled[T any] struct {
	elem  T
	level int
}

// findTree walks a tree breadth first starting with roots at level and
// collects the nodes accepted by filter. Children are expanded while
// their level does not exceed limit; a negative limit expands all.
func findTree[T any](roots []T, level int, kids func(T) ([]T, error), filter func(T) bool, limit int) ([]T, error) {
	fifo := make([]leveled[T], 0, len(roots))
	for _, r := range roots {
		fifo = append(fifo, leveled[T]{r, level})
	}
	var out []T
	for len(fifo) > 0 {
		c := fifo[0]
		fifo = fifo[1:]
		if next := c.level + 1; limit < 0 || next <= limit {
			children, err := kids(c.elem)
			if err != nil {
				return nil, err
			}
			for _, k := range children {
				fifo = append(fifo, leveled[T]{k, next})
			}
		}
		if filter == nil || filter(c.elem) {
			out = append(out, c.elem)
		}
	}
	return out, nil
}

func findSources(roots []*Source, filter func(*Source) bool, limit int) ([]*Source, error) {
	return findTree(roots, 1, func(s *Source) ([]*Source, error) { return s.Sources().All() }, filter, limit)
}

func findSections(roots []*Section, filter func(*Section) bool, limit int) ([]*Section, error) {
	return findTree(roots, 1, func(s *Section) ([]*Section, error) { return s.Sections().All() }, filter, limit)
}

// blockPath returns the path of the block that holds the entity at p.
func blockPath(p string) string {
	parts := strings.SplitN(strings.TrimPrefix(p, "/"), "/", 3)
	if len(parts) < 2 || parts[0] != "data" {
		return ""
	}
	return "/data/" + parts[1]
}
