package engine

import (
	"context"
	"fmt"

	"github.com/danieljhkim/remsync/internal/planner"
)

// Pull plans and applies a pull of remote documents to the host. Dry run
// stops after planning and performs no transport calls, same as push.
func (e *Engine) Pull(ctx context.Context, req *PullRequest) (*PullResult, error) {
	_, t, err := e.loadTree(ctx)
	if err != nil {
		return nil, err
	}

	plan := planner.BuildPullPlan(t, req.Paths, req.DestDir, req.Excludes)
	return e.finishPull(ctx, plan, req.DryRun)
}

// Backup pulls the entire remote tree honoring exclusions.
func (e *Engine) Backup(ctx context.Context, req *BackupRequest) (*PullResult, error) {
	_, t, err := e.loadTree(ctx)
	if err != nil {
		return nil, err
	}

	plan := planner.BuildBackupPlan(t, req.DestDir, req.Excludes)
	return e.finishPull(ctx, plan, req.DryRun)
}

func (e *Engine) finishPull(ctx context.Context, plan *planner.Plan, dryRun bool) (*PullResult, error) {
	result := &PullResult{Plan: plan}
	if dryRun {
		return result, nil
	}

	result.Report = e.executePull(ctx, plan)
	if !result.Report.Succeeded() {
		return result, fmt.Errorf("%w: %v", ErrTransferIncomplete, result.Report.FailedErr)
	}
	if plan.HasFailures() {
		return result, ErrPlanFailures
	}
	return result, nil
}
