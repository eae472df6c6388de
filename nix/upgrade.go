package nix

import (
	"fmt"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-nix/internal/hdf5"
	"github.com/robert-malhotra/go-nix/internal/store"
)

// UpgradeTask is one change needed to bring a file to LibraryVersion.
type UpgradeTask struct {
	Description string
	apply       func(root *store.Group, now string) error
}

// UpgradePlan lists the tasks pending for one file.
type UpgradePlan struct {
	Path        string
	FileVersion Version
	Tasks       []UpgradeTask
}

// UpToDate reports whether nothing needs to be done.
func (p *UpgradePlan) UpToDate() bool { return len(p.Tasks) == 0 }

// String describes the plan the way the upgrade command prints it.
func (p *UpgradePlan) String() string {
	if p.UpToDate() {
		return fmt.Sprintf("File %s is up to date (%s)", p.Path, p.FileVersion)
	}
	descs := make([]string, len(p.Tasks))
	for i, t := range p.Tasks {
		descs[i] = t.Description
	}
	return fmt.Sprintf("%s: %s -> %s\n  - %s", p.Path, p.FileVersion, LibraryVersion, strings.Join(descs, "\n  - "))
}

// UpgradeTasks inspects the file at path, which may be of any older
// version, and plans the tasks that bring it to LibraryVersion. The file
// is not modified. Files at or above the library version get no tasks.
func UpgradeTasks(path string, opts ...FileOption) (*UpgradePlan, error) {
	options := defaultFileOptions()
	for _, opt := range opts {
		opt(options)
	}
	h, err := hdf5.Open(path, ReadOnly, hdf5.WithLogger(options.logger.WithField("file", path)))
	if err != nil {
		return nil, err
	}
	defer h.Close()
	root := h.Root()
	if attrString(&root.Attrs, "format") != FormatName {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFile, path)
	}
	fv, ok := readVersion(&root.Attrs)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no version", ErrInvalidFile, path)
	}
	plan := &UpgradePlan{Path: path, FileVersion: fv}
	if fv.Compare(LibraryVersion) >= 0 {
		return plan, nil
	}
	if t := addFileID(root); t != nil {
		plan.Tasks = append(plan.Tasks, *t)
	}
	if t := convertAliasRanges(root); t != nil {
		plan.Tasks = append(plan.Tasks, *t)
	}
	plan.Tasks = append(plan.Tasks, updateVersion())
	return plan, nil
}

// Upgrade applies the tasks of plan to its file and writes it back.
func Upgrade(plan *UpgradePlan, opts ...FileOption) error {
	if plan.UpToDate() {
		return nil
	}
	options := defaultFileOptions()
	for _, opt := range opts {
		opt(options)
	}
	log := options.logger.WithField("file", plan.Path)
	h, err := hdf5.Open(plan.Path, ReadWrite, hdf5.WithLogger(log))
	if err != nil {
		return err
	}
	now := FormatTime(options.clock())
	for _, t := range plan.Tasks {
		if err := t.apply(h.Root(), now); err != nil {
			h.SetReadOnly()
			h.Close()
			return fmt.Errorf("%s: %s: %w", plan.Path, t.Description, err)
		}
		log.WithField("task", t.Description).Debug("applied upgrade task")
	}
	if err := h.Close(); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"from": plan.FileVersion, "to": LibraryVersion}).Debug("upgraded file")
	return nil
}

func addFileID(root *store.Group) *UpgradeTask {
	if IsUUID(attrString(&root.Attrs, "id")) {
		return nil
	}
	return &UpgradeTask{
		Description: "Add a UUID to the file header",
		apply: func(root *store.Group, _ string) error {
			if !IsUUID(attrString(&root.Attrs, "id")) {
				root.SetAttr("id", CreateID())
			}
			return nil
		},
	}
}

// isLegacyAlias reports whether the dimension group dim of the data array
// with the given id is an alias range stored as a bare link to the array.
func isLegacyAlias(dim *store.Group, daID string) bool {
	return daID != "" && !dim.Has("ticks") && !dim.Has("link") && dim.Has(daID)
}

func convertAliasRanges(root *store.Group) *UpgradeTask {
	var dims []string
	// Legacy alias links may be hard links back to the array, so the walk
	// never descends into a dimension.
	store.Walk(root, "/", func(p string, l *store.Link) error {
		if l.Group == nil || path.Base(path.Dir(p)) != "dimensions" {
			return nil
		}
		daPath := path.Dir(path.Dir(p))
		if path.Base(path.Dir(daPath)) != "data_arrays" {
			return store.SkipDir
		}
		da, err := store.ResolveGroup(root, daPath)
		if err == nil && isLegacyAlias(l.Group, attrString(&da.Attrs, "entity_id")) {
			dims = append(dims, p)
		}
		return store.SkipDir
	})
	if len(dims) == 0 {
		return nil
	}
	s := ""
	if len(dims) > 1 {
		s = "s"
	}
	return &UpgradeTask{
		Description: fmt.Sprintf("Convert %d alias range dimension%s to link%s", len(dims), s, s),
		apply: func(root *store.Group, now string) error {
			for _, p := range dims {
				dim, err := store.ResolveGroup(root, p)
				if err != nil {
					continue
				}
				daPath := path.Dir(path.Dir(p))
				da, err := store.ResolveGroup(root, daPath)
				if err != nil {
					continue
				}
				id := attrString(&da.Attrs, "entity_id")
				if !isLegacyAlias(dim, id) {
					continue
				}
				if err := dim.Delete(id); err != nil {
					return err
				}
				if err := createDimensionLinkAt(dim, daPath, id, dataArrayLinkType, []int32{-1}, now); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func updateVersion() UpgradeTask {
	return UpgradeTask{
		Description: fmt.Sprintf("Update the file format version to %s", LibraryVersion),
		apply: func(root *store.Group, _ string) error {
			root.SetAttr("version", versionAttr(LibraryVersion))
			return nil
		},
	}
}
