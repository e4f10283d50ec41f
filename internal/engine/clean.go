package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/danieljhkim/remsync/internal/fsops"
	"github.com/danieljhkim/remsync/internal/store"
	"github.com/danieljhkim/remsync/internal/tree"
)

// Clean sweeps soft-deleted and orphaned records off the device.
//
// The purge set is computed as a pure function of the store snapshot. With
// DryRun or without Force, the set is only reported; the CLI confirms with
// the user and calls again with Force set. Purging removes the metadata
// unit and every payload file sharing the identifier stem.
func (e *Engine) Clean(ctx context.Context, req *CleanRequest) (*CleanResult, error) {
	snapshot, t, err := e.loadTree(ctx)
	if err != nil {
		return nil, err
	}

	result := computeSweep(snapshot, t)
	result.DryRun = req.DryRun

	if req.DryRun || !req.Force || len(result.Purgeable) == 0 {
		return result, nil
	}

	for _, item := range result.Purgeable {
		if err := fsops.ValidateIdentifier(item.ID); err != nil {
			return result, fmt.Errorf("refusing to purge %s: %w", item.ID, err)
		}
		if _, err := e.transport.Run(ctx, fmt.Sprintf("rm -rf %s/%s*", e.cfg.DocumentDir, item.ID)); err != nil {
			return result, fmt.Errorf("%w: purge of %s failed: %v", ErrTransferIncomplete, item.ID, err)
		}
		result.Purged = append(result.Purged, item.ID)
	}

	return result, nil
}

// computeSweep classifies the purge set from one snapshot. Pure: no
// transport, no mutation.
func computeSweep(snapshot *store.Snapshot, t *tree.Tree) *CleanResult {
	result := &CleanResult{}

	for _, node := range t.SoftDeleted {
		if live := countLiveDescendants(node); live > 0 {
			result.Flagged = append(result.Flagged, FlaggedItem{
				ID:           node.ID,
				Name:         node.Name,
				LiveChildren: live,
			})
			continue
		}
		result.Purgeable = append(result.Purgeable, PurgeItem{
			ID:    node.ID,
			Name:  node.Name,
			Class: PurgeSoftDeleted,
		})
	}

	for _, rec := range t.Orphaned {
		// The purge removes "<id>*"; if another record's identifier
		// starts with this one, the wildcard would take it too. Leave
		// those for manual cleanup.
		if prefixOfAnotherStem(rec.ID, snapshot) {
			result.SkippedAmbiguous = append(result.SkippedAmbiguous, rec.ID)
			continue
		}
		name := ""
		if rec.Meta != nil {
			name = rec.Meta.VisibleName
		}
		result.Purgeable = append(result.Purgeable, PurgeItem{
			ID:    rec.ID,
			Name:  name,
			Class: PurgeOrphaned,
		})
	}

	return result
}

// countLiveDescendants counts well-formed nodes anywhere under node.
// Purging a folder with live descendants would orphan them, so such a
// folder is flagged instead.
func countLiveDescendants(node *tree.Node) int {
	n := 0
	for _, ch := range node.Children {
		if !ch.Deleted {
			n++
		}
		n += countLiveDescendants(ch)
	}
	return n
}

func prefixOfAnotherStem(id string, snapshot *store.Snapshot) bool {
	for _, rec := range snapshot.Records {
		if rec.ID != id && strings.HasPrefix(rec.ID, id) {
			return true
		}
	}
	return false
}
