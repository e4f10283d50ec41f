package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danieljhkim/remsync/internal/clock"
	"github.com/danieljhkim/remsync/internal/device"
	"github.com/danieljhkim/remsync/internal/fsops"
	"github.com/danieljhkim/remsync/internal/planner"
)

// executePush applies a push plan in order. Each action stages its files in
// the remote staging directory first and commits with a single mv into the
// document directory, so a failure mid-transfer leaves the prior record
// intact. The executor stops at the first transport failure and still
// reloads the viewer if anything committed before it.
func (e *Engine) executePush(ctx context.Context, plan *planner.Plan, localStage string) *Report {
	report := &Report{}

	if _, err := e.transport.Run(ctx, fmt.Sprintf("mkdir -p %s", e.cfg.StageDir)); err != nil {
		report.FailedErr = err
		return report
	}

	for i := range plan.Actions {
		action := &plan.Actions[i]
		if err := e.applyAction(ctx, action, localStage); err != nil {
			report.Failed = action
			report.FailedErr = err
			break
		}
		report.Completed = append(report.Completed, *action)
	}

	if countMutating(report.Completed) > 0 {
		if err := e.reload(ctx); err == nil {
			report.Reloaded = true
		}
	}

	// Best effort; a leftover staging directory is harmless.
	_, _ = e.transport.Run(ctx, fmt.Sprintf("rm -rf %s", e.cfg.StageDir))

	return report
}

// applyAction stages and commits a single action.
func (e *Engine) applyAction(ctx context.Context, a *planner.Action, localStage string) error {
	if !a.Mutating() {
		return nil
	}
	if err := fsops.ValidateIdentifier(a.ID); err != nil {
		return err
	}

	files, dirs, err := e.stageAction(a, localStage)
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := e.transport.CopyTo(ctx, filepath.Join(localStage, f), e.cfg.StageDir+"/"+f); err != nil {
			return err
		}
	}
	for _, d := range dirs {
		if _, err := e.transport.Run(ctx, fmt.Sprintf("mkdir -p %s/%s", e.cfg.StageDir, d)); err != nil {
			return err
		}
	}

	// A replace supersedes every payload tied to the identifier, so the
	// stale page directory, thumbnails, and payload files are cleared
	// before the staged files move in. The patterns name the exact page
	// directory and dot-suffixed units; a bare "<id>*" wildcard could
	// over-match a longer stem.
	if a.Type == planner.ActionReplaceDocument {
		_, err = e.transport.Run(ctx, fmt.Sprintf("rm -rf %s/%s %s/%s.*",
			e.cfg.DocumentDir, a.ID, e.cfg.DocumentDir, a.ID))
		if err != nil {
			return err
		}
	}

	// The mv is the commit point: everything staged under this identifier
	// lands in the document directory at once.
	_, err = e.transport.Run(ctx, fmt.Sprintf("mv %s/%s* %s/", e.cfg.StageDir, a.ID, e.cfg.DocumentDir))
	return err
}

// stageAction writes an action's files into the local staging directory and
// returns the staged filenames plus the payload directories the device
// expects to exist. Replace-content-only stages nothing but the primary
// payload so annotations tied to the identifier survive.
func (e *Engine) stageAction(a *planner.Action, localStage string) (files, dirs []string, err error) {
	payload := a.ID + "." + a.Ext

	switch a.Type {
	case planner.ActionCreateFolder:
		if err := e.stageMetadata(a, device.KindFolder, localStage); err != nil {
			return nil, nil, err
		}
		return []string{device.MetadataFile(a.ID), device.ContentFile(a.ID)}, nil, nil

	case planner.ActionCreateDocument:
		if err := e.stageMetadata(a, device.KindDocument, localStage); err != nil {
			return nil, nil, err
		}
		if err := e.fs.CopyFile(a.SourcePath, filepath.Join(localStage, payload)); err != nil {
			return nil, nil, fmt.Errorf("failed to stage payload for %s: %w", a.Name, err)
		}
		return []string{device.MetadataFile(a.ID), device.ContentFile(a.ID), payload},
			[]string{a.ID, a.ID + ".thumbnails"}, nil

	case planner.ActionReplaceDocument:
		// The destination already has a page directory and thumbnails;
		// staging empty ones would make the commit mv collide with the
		// non-empty directories in the store.
		if err := e.stageMetadata(a, device.KindDocument, localStage); err != nil {
			return nil, nil, err
		}
		if err := e.fs.CopyFile(a.SourcePath, filepath.Join(localStage, payload)); err != nil {
			return nil, nil, fmt.Errorf("failed to stage payload for %s: %w", a.Name, err)
		}
		return []string{device.MetadataFile(a.ID), device.ContentFile(a.ID), payload}, nil, nil

	case planner.ActionReplaceContentOnly:
		if err := e.fs.CopyFile(a.SourcePath, filepath.Join(localStage, payload)); err != nil {
			return nil, nil, fmt.Errorf("failed to stage payload for %s: %w", a.Name, err)
		}
		return []string{payload}, nil, nil
	}

	return nil, nil, fmt.Errorf("unexpected action type %q", a.Type)
}

// stageMetadata writes the metadata and content units for an action.
func (e *Engine) stageMetadata(a *planner.Action, kind, localStage string) error {
	meta := device.NewMetadata(kind, a.Name, a.ParentID, clock.Millis(e.clock))
	data, err := device.EncodeMetadata(meta)
	if err != nil {
		return err
	}
	if err := e.fs.AtomicWrite(filepath.Join(localStage, device.MetadataFile(a.ID)), data, 0644); err != nil {
		return fmt.Errorf("failed to stage metadata for %s: %w", a.Name, err)
	}
	if err := e.fs.AtomicWrite(filepath.Join(localStage, device.ContentFile(a.ID)), []byte("{}\n"), 0644); err != nil {
		return fmt.Errorf("failed to stage content for %s: %w", a.Name, err)
	}
	return nil
}

// stageAll stages every mutating action locally without touching the
// transport; used by debug mode so the payload can be inspected.
func (e *Engine) stageAll(plan *planner.Plan, localStage string) error {
	for i := range plan.Actions {
		a := &plan.Actions[i]
		if !a.Mutating() {
			continue
		}
		_, dirs, err := e.stageAction(a, localStage)
		if err != nil {
			return err
		}
		for _, d := range dirs {
			if err := e.fs.MkdirAll(filepath.Join(localStage, d), os.FileMode(0755)); err != nil {
				return err
			}
		}
	}
	return nil
}

// executePull copies each planned document to its host destination. Pull
// mutates nothing remotely, so there is no staging and no reload.
func (e *Engine) executePull(ctx context.Context, plan *planner.Plan) *Report {
	report := &Report{}

	for i := range plan.Actions {
		action := &plan.Actions[i]
		if action.Type != planner.ActionCopyOut {
			continue
		}
		if err := e.copyOut(ctx, action); err != nil {
			report.Failed = action
			report.FailedErr = err
			break
		}
		report.Completed = append(report.Completed, *action)
	}

	return report
}

func (e *Engine) copyOut(ctx context.Context, a *planner.Action) error {
	if err := fsops.ValidateIdentifier(a.ID); err != nil {
		return err
	}
	if err := e.fs.MkdirAll(filepath.Dir(a.DestPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	remote := fmt.Sprintf("%s/%s.%s", e.cfg.DocumentDir, a.ID, a.Ext)
	return e.transport.CopyFrom(ctx, remote, a.DestPath)
}

func countMutating(actions []planner.Action) int {
	n := 0
	for i := range actions {
		if actions[i].Mutating() {
			n++
		}
	}
	return n
}
