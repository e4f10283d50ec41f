package tree

import (
	"fmt"
	"sort"

	"github.com/danieljhkim/remsync/internal/device"
	"github.com/danieljhkim/remsync/internal/store"
)

// maxParentHops bounds parent-chain resolution. A chain longer than this is
// treated as a cycle and the record is classified as an orphan rather than
// followed forever.
const maxParentHops = 128

// Tree is the reconstructed forest plus the classified record sets.
type Tree struct {
	// Roots are the well-formed top-level nodes, sorted by name.
	Roots []*Node

	// Nodes indexes every linked node (well-formed and soft-deleted) by id.
	Nodes map[string]*Node

	// WellFormed are the records with parseable metadata, a resolvable
	// parent chain, and no deletion flag.
	WellFormed []*Node

	// SoftDeleted are the records flagged deleted or parented under trash.
	// They are linked into the forest where their parent resolves, for
	// display, but never match path resolution.
	SoftDeleted []*Node

	// Orphaned are the records with missing or unparseable metadata, a
	// dangling parent reference, or a cyclic parent chain.
	Orphaned []*device.Record
}

// Build reconstructs the forest from a store snapshot. It fails only when
// the same identifier appears twice; every other anomaly is classified.
func Build(snapshot *store.Snapshot) (*Tree, error) {
	index := make(map[string]*device.Record, len(snapshot.Records))
	for _, rec := range snapshot.Records {
		if _, dup := index[rec.ID]; dup {
			return nil, fmt.Errorf("%w: identifier %s appears twice", ErrInconsistentStore, rec.ID)
		}
		index[rec.ID] = rec
	}

	t := &Tree{Nodes: make(map[string]*Node)}

	// First pass: classify and create nodes for everything that links in.
	for _, rec := range snapshot.Records {
		switch classify(rec, index) {
		case classOrphaned:
			t.Orphaned = append(t.Orphaned, rec)
		case classSoftDeleted:
			node := newNode(rec)
			node.Deleted = true
			t.Nodes[rec.ID] = node
			t.SoftDeleted = append(t.SoftDeleted, node)
		case classWellFormed:
			node := newNode(rec)
			t.Nodes[rec.ID] = node
			t.WellFormed = append(t.WellFormed, node)
		}
	}

	// Second pass: attach children under their parents. Soft-deleted nodes
	// with an unresolvable parent simply stay unlinked.
	for _, node := range t.Nodes {
		parentID := node.Record.Meta.Parent
		if parentID == "" || parentID == device.ParentTrash {
			if !node.Deleted {
				t.Roots = append(t.Roots, node)
			}
			continue
		}
		parent, ok := t.Nodes[parentID]
		if !ok {
			continue
		}
		node.Parent = parent
		parent.Children = append(parent.Children, node)
	}

	sortNodes(t.Roots)
	for _, node := range t.Nodes {
		sortNodes(node.Children)
	}
	sortNodes(t.WellFormed)
	sortNodes(t.SoftDeleted)

	return t, nil
}

type class int

const (
	classWellFormed class = iota
	classSoftDeleted
	classOrphaned
)

// classify decides a single record's classification from the snapshot index.
// Pure: no node state is consulted or mutated.
func classify(rec *device.Record, index map[string]*device.Record) class {
	if rec.Meta == nil {
		return classOrphaned
	}
	if rec.Meta.SoftDeleted() {
		return classSoftDeleted
	}

	// Follow the parent chain to the top level. A dangling reference, an
	// ancestor without metadata, or too many hops makes this an orphan.
	cur := rec
	for hops := 0; cur.Meta.Parent != "" && cur.Meta.Parent != device.ParentTrash; hops++ {
		if hops >= maxParentHops {
			return classOrphaned
		}
		next, ok := index[cur.Meta.Parent]
		if !ok || next.Meta == nil {
			return classOrphaned
		}
		cur = next
	}
	return classWellFormed
}

func newNode(rec *device.Record) *Node {
	return &Node{
		ID:     rec.ID,
		Name:   rec.Meta.VisibleName,
		Kind:   rec.Meta.Type,
		Record: rec,
	}
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Name != nodes[j].Name {
			return nodes[i].Name < nodes[j].Name
		}
		return nodes[i].ID < nodes[j].ID
	})
}
