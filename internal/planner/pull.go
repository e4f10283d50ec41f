package planner

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/danieljhkim/remsync/internal/tree"
)

// BuildPullPlan computes CopyOut actions for the requested remote paths.
// Each path must resolve to exactly one well-formed node; pulling a folder
// expands recursively to every contained well-formed, non-deleted document,
// preserving the relative folder structure under destDir. Unresolvable or
// ambiguous paths are per-item failures.
func BuildPullPlan(
	tr *tree.Tree,
	paths []string,
	destDir string,
	excludes []*regexp.Regexp,
) *Plan {
	plan := &Plan{}

	for _, p := range paths {
		if pattern, ok := matchExcludes(excludes, p); ok {
			plan.addExcluded(p, pattern)
			continue
		}

		node, err := tr.Resolve(nil, p)
		if err != nil {
			plan.addFailure(p, err)
			continue
		}
		if node == nil {
			plan.addFailure(p, fmt.Errorf("empty path"))
			continue
		}

		addCopyOut(plan, node, destDir, filepath.Base(strings.TrimRight(p, "/")), excludes)
	}

	return plan
}

// BuildBackupPlan is a pull of the entire remote tree honoring exclusions.
func BuildBackupPlan(tr *tree.Tree, destDir string, excludes []*regexp.Regexp) *Plan {
	plan := &Plan{}
	for _, root := range tr.Roots {
		if pattern, ok := matchExcludes(excludes, root.Name); ok {
			plan.addExcluded(root.Name, pattern)
			continue
		}
		addCopyOut(plan, root, destDir, root.Name, excludes)
	}
	return plan
}

// addCopyOut emits a CopyOut action per well-formed, non-deleted document
// under node. relPath is the host path of node relative to the output
// directory.
func addCopyOut(plan *Plan, node *tree.Node, destDir, relPath string, excludes []*regexp.Regexp) {
	if node.Deleted {
		return
	}

	if !node.IsFolder() {
		ext, ok := rawPayloadExt(node)
		if !ok {
			plan.addFailure(node.Path(), fmt.Errorf("no raw document payload for %q, only uploaded pdf/epub documents can be pulled", node.Name))
			return
		}
		plan.addAction(Action{
			Type:       ActionCopyOut,
			ID:         node.ID,
			Name:       node.Name,
			RemotePath: node.Path(),
			DestPath:   filepath.Join(destDir, relPath),
			Ext:        ext,
		})
		return
	}

	for _, ch := range node.Children {
		childRel := filepath.Join(relPath, ch.Name)
		if pattern, ok := matchExcludes(excludes, ch.Path()); ok {
			plan.addExcluded(ch.Path(), pattern)
			continue
		}
		addCopyOut(plan, ch, destDir, childRel, excludes)
	}
}

// rawPayloadExt returns the extension of the document's raw payload file.
// Documents created on the device itself (notebooks) have no raw payload
// and cannot be copied out without rendering, which is out of scope here.
func rawPayloadExt(node *tree.Node) (string, bool) {
	if node.Record == nil {
		return "", false
	}
	for _, payload := range node.Record.Payloads {
		for ext := range documentExts {
			if payload == node.ID+"."+ext {
				return ext, true
			}
		}
	}
	return "", false
}

func matchExcludes(excludes []*regexp.Regexp, item string) (string, bool) {
	for _, re := range excludes {
		if re.MatchString(item) {
			return re.String(), true
		}
	}
	return "", false
}
