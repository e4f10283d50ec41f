package tree

import "strings"

// SplitPath splits a slash-delimited display-name path into segments,
// dropping empty segments from leading, trailing, or doubled slashes.
func SplitPath(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Resolve translates a slash-delimited path of visible names into the
// matching node, starting from scope (nil means the top level). Only
// well-formed, non-deleted children are considered. Returns NotFoundError,
// AmbiguousNameError, or NotAFolderError on failure.
func (t *Tree) Resolve(scope *Node, path string) (*Node, error) {
	segs := SplitPath(path)
	if len(segs) == 0 {
		return scope, nil
	}

	cur := scope
	for i, seg := range segs {
		if cur != nil && !cur.IsFolder() {
			return nil, &NotAFolderError{Path: cur.Path()}
		}

		matches := t.ChildrenNamed(cur, seg)
		switch len(matches) {
		case 0:
			return nil, &NotFoundError{Path: path, Segment: seg}
		case 1:
			cur = matches[0]
		default:
			return nil, &AmbiguousNameError{Name: seg, Candidates: matches}
		}

		// A document may only ever be the terminal segment.
		if !cur.IsFolder() && i < len(segs)-1 {
			return nil, &NotAFolderError{Path: cur.Path()}
		}
	}
	return cur, nil
}

// ResolveForCreate resolves as much of a folder path as exists and returns
// the deepest existing folder (nil for the top level) together with the
// segments still to be created. Resolving through a document or an
// ambiguous folder name is an error; a missing segment is not, since push
// planning creates it.
func (t *Tree) ResolveForCreate(scope *Node, path string) (*Node, []string, error) {
	segs := SplitPath(path)

	cur := scope
	for i, seg := range segs {
		matches := t.ChildrenNamed(cur, seg)
		switch len(matches) {
		case 0:
			return cur, segs[i:], nil
		case 1:
			if !matches[0].IsFolder() {
				return nil, nil, &NotAFolderError{Path: matches[0].Path()}
			}
			cur = matches[0]
		default:
			return nil, nil, &AmbiguousNameError{Name: seg, Candidates: matches}
		}
	}
	return cur, nil, nil
}

// ChildrenNamed returns the well-formed, non-deleted children of scope
// (top level if scope is nil) whose visible name matches name.
func (t *Tree) ChildrenNamed(scope *Node, name string) []*Node {
	siblings := t.Roots
	if scope != nil {
		siblings = scope.Children
	}

	var matches []*Node
	for _, n := range siblings {
		if n.Deleted {
			continue
		}
		if n.Name == name {
			matches = append(matches, n)
		}
	}
	return matches
}
