package tree

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInconsistentStore indicates the same identifier appeared twice in the
// record set. This is the one build-time anomaly that is fatal; everything
// else is classified, not rejected.
var ErrInconsistentStore = errors.New("inconsistent store")

// NotFoundError indicates a path segment matched no well-formed, non-deleted
// sibling.
type NotFoundError struct {
	// Path is the full path being resolved.
	Path string

	// Segment is the segment that had no match.
	Segment string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%q not found while resolving %q", e.Segment, e.Path)
}

// AmbiguousNameError indicates a path segment matched more than one sibling.
// Candidates carries every match so callers can report all of them.
type AmbiguousNameError struct {
	// Name is the ambiguous visible name.
	Name string

	// Candidates are all sibling nodes sharing the name.
	Candidates []*Node
}

func (e *AmbiguousNameError) Error() string {
	ids := make([]string, len(e.Candidates))
	for i, n := range e.Candidates {
		ids[i] = n.ID
	}
	return fmt.Sprintf("name %q is ambiguous, matches %s", e.Name, strings.Join(ids, ", "))
}

// NotAFolderError indicates a non-terminal path segment resolved to a
// document.
type NotAFolderError struct {
	// Path is the document's resolved path.
	Path string
}

func (e *NotAFolderError) Error() string {
	return fmt.Sprintf("%q is a document, not a folder", e.Path)
}
