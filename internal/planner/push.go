package planner

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/danieljhkim/remsync/internal/device"
	"github.com/danieljhkim/remsync/internal/fsops"
	"github.com/danieljhkim/remsync/internal/tree"
)

// documentExts are the host file types the device accepts as documents.
var documentExts = map[string]bool{
	"pdf":  true,
	"epub": true,
}

// BuildPushPlan computes the actions needed to push the given host paths
// into destPath on the device. Folders missing from the destination path or
// from source directory structure become CreateFolder actions ordered
// before anything placed inside them. Conflicts with existing same-identity
// documents are dispatched through the policy. The plan never mutates
// anything.
//
// A destination path that cannot be resolved is a global error; everything
// else is recorded as a per-item failure and the remaining sources proceed.
func BuildPushPlan(
	tr *tree.Tree,
	fs fsops.FS,
	sources []string,
	destPath string,
	policy Policy,
	excludes []*regexp.Regexp,
) (*Plan, error) {
	b := &pushBuilder{
		tree:     tr,
		fs:       fs,
		policy:   policy,
		excludes: excludes,
		plan:     &Plan{},
		folders:  make(map[string]*plannedFolder),
	}

	destNode, missing, err := tr.ResolveForCreate(nil, destPath)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve destination %q: %w", destPath, err)
	}

	dest := &plannedFolder{node: destNode}
	if destNode != nil {
		dest.key = destNode.Path()
		dest.id = destNode.ID
	}
	for _, seg := range missing {
		dest, err = b.ensureFolder(dest, seg)
		if err != nil {
			return nil, fmt.Errorf("cannot create destination %q: %w", destPath, err)
		}
	}

	for _, src := range sources {
		b.addSource(src, dest)
	}

	return b.plan, nil
}

// plannedFolder is a destination folder that either exists on the device
// (node set) or is scheduled for creation (id freshly generated).
type plannedFolder struct {
	key  string     // display path from the device root
	id   string     // record identifier ("" = top level)
	node *tree.Node // nil when top level or not yet created
}

type pushBuilder struct {
	tree     *tree.Tree
	fs       fsops.FS
	policy   Policy
	excludes []*regexp.Regexp
	plan     *Plan
	folders  map[string]*plannedFolder
}

// ensureFolder returns the planned folder for name under parent, emitting a
// CreateFolder action the first time a missing folder is needed.
func (b *pushBuilder) ensureFolder(parent *plannedFolder, name string) (*plannedFolder, error) {
	key := joinKey(parent.key, name)
	if f, ok := b.folders[key]; ok {
		return f, nil
	}

	if parent.node != nil || parent.key == "" {
		all := b.tree.ChildrenNamed(parent.node, name)
		var folders []*tree.Node
		for _, n := range all {
			if n.IsFolder() {
				folders = append(folders, n)
			}
		}
		switch len(folders) {
		case 0:
			// A document squatting on the name cannot be descended into.
			if len(all) > 0 {
				return nil, &tree.NotAFolderError{Path: all[0].Path()}
			}
		case 1:
			f := &plannedFolder{key: key, id: folders[0].ID, node: folders[0]}
			b.folders[key] = f
			return f, nil
		default:
			return nil, &tree.AmbiguousNameError{Name: name, Candidates: folders}
		}
	}

	if err := validateName(name); err != nil {
		return nil, err
	}

	f := &plannedFolder{key: key, id: device.NewID()}
	b.folders[key] = f
	b.plan.addAction(Action{
		Type:       ActionCreateFolder,
		ID:         f.id,
		Name:       name,
		ParentID:   parent.id,
		RemotePath: key,
	})
	return f, nil
}

// addSource plans one command-line source argument, file or directory.
func (b *pushBuilder) addSource(src string, dest *plannedFolder) {
	if pattern, ok := b.excluded(src); ok {
		b.plan.addExcluded(src, pattern)
		return
	}

	info, err := b.fs.Lstat(src)
	if err != nil {
		b.plan.addFailure(src, fmt.Errorf("cannot read source: %w", err))
		return
	}

	if info.IsDir() {
		b.addDir(src, dest)
		return
	}

	ext := hostExt(src)
	if !documentExts[ext] {
		b.plan.addFailure(src, fmt.Errorf("unsupported file type %q (want pdf or epub)", ext))
		return
	}
	b.addFile(src, dest)
}

// addDir plans a source directory as a folder plus its pdf/epub contents,
// recursively. Unsupported files inside directories are ignored rather than
// rejected.
func (b *pushBuilder) addDir(dir string, parent *plannedFolder) {
	folder, err := b.ensureFolder(parent, filepath.Base(dir))
	if err != nil {
		b.plan.addFailure(dir, err)
		return
	}

	entries, err := b.fs.ReadDir(dir)
	if err != nil {
		b.plan.addFailure(dir, fmt.Errorf("cannot read directory: %w", err))
		return
	}

	for _, entry := range entries {
		child := filepath.Join(dir, entry.Name())
		if pattern, ok := b.excluded(child); ok {
			b.plan.addExcluded(child, pattern)
			continue
		}
		if entry.IsDir() {
			b.addDir(child, folder)
			continue
		}
		if documentExts[hostExt(entry.Name())] {
			b.addFile(child, folder)
		}
	}
}

// addFile plans a single host document into the given folder, matching it
// against existing same-identity documents and dispatching the conflict
// policy.
func (b *pushBuilder) addFile(file string, parent *plannedFolder) {
	name := filepath.Base(file)
	if err := validateName(name); err != nil {
		b.plan.addFailure(file, err)
		return
	}

	ext := hostExt(file)
	remotePath := joinKey(parent.key, name)

	var existing []*tree.Node
	if parent.node != nil || parent.key == "" {
		for _, n := range b.tree.ChildrenNamed(parent.node, name) {
			if !n.IsFolder() {
				existing = append(existing, n)
			}
		}
	}

	switch {
	case len(existing) == 0:
		b.plan.addAction(Action{
			Type:       ActionCreateDocument,
			ID:         device.NewID(),
			Name:       name,
			ParentID:   parent.id,
			RemotePath: remotePath,
			SourcePath: file,
			Ext:        ext,
		})
	case len(existing) == 1 || b.policy == PolicyNew:
		// The new policy never reuses an identifier, so it does not
		// need a unique match to dispatch.
		actionType, id, fresh := actionForConflict(b.policy, existing[0].ID)
		if fresh {
			id = device.NewID()
		}
		b.plan.addAction(Action{
			Type:       actionType,
			ID:         id,
			Name:       name,
			ParentID:   parent.id,
			RemotePath: remotePath,
			SourcePath: file,
			Ext:        ext,
		})
	default:
		b.plan.addFailure(file, &tree.AmbiguousNameError{Name: name, Candidates: existing})
	}
}

func (b *pushBuilder) excluded(item string) (string, bool) {
	return matchExcludes(b.excludes, item)
}

func hostExt(p string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(p), "."))
}

func joinKey(parent, name string) string {
	if parent == "" {
		return name
	}
	return path.Join(parent, name)
}
