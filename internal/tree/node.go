// Package tree reconstructs a logical directory tree from the device's flat
// record set and resolves display-name paths against it.
//
// Building is a pure function of one store snapshot: every record is
// classified as well-formed, orphaned, or soft-deleted, and well-formed
// records are linked into a forest by their parent references. The tree is
// immutable for the rest of the invocation; planning and cleanup both read
// from it.
package tree

import (
	"strings"

	"github.com/danieljhkim/remsync/internal/device"
)

// Node is one in-memory tree element built from a Record. Node identity is
// the record's identifier; equality across host and remote is the pair
// (visible name, chain of ancestor visible names).
type Node struct {
	// ID is the record identifier.
	ID string

	// Name is the record's visible name.
	Name string

	// Kind is device.KindFolder or device.KindDocument.
	Kind string

	// Deleted marks a soft-deleted record that is linked for display.
	Deleted bool

	// Parent is the containing folder node, or nil at the top level.
	// A lookup relation only; it does not own the node.
	Parent *Node

	// Children are the linked child nodes, folders only.
	Children []*Node

	// Record is the record this node was built from.
	Record *device.Record
}

// IsFolder reports whether the node is a folder.
func (n *Node) IsFolder() bool {
	return n.Kind == device.KindFolder
}

// Path returns the slash-joined chain of visible names from the top level
// down to this node.
func (n *Node) Path() string {
	var segs []string
	for cur := n; cur != nil; cur = cur.Parent {
		segs = append(segs, cur.Name)
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, "/")
}

// Walk visits the node and every descendant in depth-first order.
func (n *Node) Walk(visit func(*Node)) {
	visit(n)
	for _, ch := range n.Children {
		ch.Walk(visit)
	}
}
