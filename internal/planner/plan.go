// Package planner computes concrete transfer plans without mutating
// anything.
//
// A plan is an ordered list of actions: folder creations always precede the
// actions that depend on them, and the executor applies actions strictly in
// plan order. Per-item problems (ambiguous names, invalid filenames,
// unresolvable paths) are collected on the plan rather than aborting it, so
// sibling items still proceed.
package planner

// Action type constants.
const (
	ActionCreateFolder       = "create_folder"
	ActionCreateDocument     = "create_document"
	ActionReplaceDocument    = "replace_document"
	ActionReplaceContentOnly = "replace_content"
	ActionSkipExisting       = "skip_existing"
	ActionCopyOut            = "copy_out"
)

// Action represents a single planned, not-yet-applied mutation.
type Action struct {
	// Type is one of the Action* constants.
	Type string

	// ID is the record identifier the action targets. Freshly generated
	// for creates, preserved for replaces.
	ID string

	// Name is the visible name of the entry.
	Name string

	// ParentID is the identifier of the containing folder ("" = top level).
	ParentID string

	// RemotePath is the display-name path of the entry on the device.
	RemotePath string

	// SourcePath is the host file backing a document push, empty for
	// folders and skips.
	SourcePath string

	// DestPath is the host destination for a CopyOut action.
	DestPath string

	// Ext is the payload file extension ("pdf" or "epub") for document
	// actions.
	Ext string
}

// Mutating reports whether applying the action changes remote state.
func (a *Action) Mutating() bool {
	switch a.Type {
	case ActionCreateFolder, ActionCreateDocument, ActionReplaceDocument, ActionReplaceContentOnly:
		return true
	}
	return false
}

// ExcludedItem records a source item dropped by an exclusion pattern.
// Exclusions are silent in normal output and reported in verbose/dry-run.
type ExcludedItem struct {
	// Item is the excluded path.
	Item string

	// Pattern is the pattern that matched it.
	Pattern string
}

// ItemFailure records a per-item planning error. The offending item is
// rejected; the rest of the plan proceeds.
type ItemFailure struct {
	// Item is the path of the rejected item.
	Item string

	// Err is the planning error.
	Err error
}

// Plan is an ordered set of actions plus everything that was dropped or
// rejected while computing it. A plan never touches storage.
type Plan struct {
	// Actions is the ordered action list.
	Actions []Action

	// Excluded are items dropped by exclusion patterns.
	Excluded []ExcludedItem

	// Failures are per-item planning errors.
	Failures []ItemFailure
}

// HasFailures reports whether any item was rejected during planning.
func (p *Plan) HasFailures() bool {
	return len(p.Failures) > 0
}

// MutatingCount returns the number of actions that would change remote
// state.
func (p *Plan) MutatingCount() int {
	n := 0
	for i := range p.Actions {
		if p.Actions[i].Mutating() {
			n++
		}
	}
	return n
}

func (p *Plan) addAction(a Action) {
	p.Actions = append(p.Actions, a)
}

func (p *Plan) addFailure(item string, err error) {
	p.Failures = append(p.Failures, ItemFailure{Item: item, Err: err})
}

func (p *Plan) addExcluded(item, pattern string) {
	p.Excluded = append(p.Excluded, ExcludedItem{Item: item, Pattern: pattern})
}
