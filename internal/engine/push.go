package engine

import (
	"context"
	"fmt"

	"github.com/danieljhkim/remsync/internal/planner"
)

// Push plans and applies a push of host documents to the device.
//
// Algorithm steps:
//  1. Read the remote store and build the document tree
//  2. Compute the plan (pure, no mutation)
//  3. Dry run: stop here, the plan is the output
//  4. Debug: stage the payload locally, never transfer
//  5. Execute the plan action by action, then reload the viewer
func (e *Engine) Push(ctx context.Context, req *PushRequest) (*PushResult, error) {
	_, t, err := e.loadTree(ctx)
	if err != nil {
		return nil, err
	}

	plan, err := planner.BuildPushPlan(t, e.fs, req.Sources, req.DestFolder, req.Policy, req.Excludes)
	if err != nil {
		return nil, err
	}

	result := &PushResult{Plan: plan}
	if req.DryRun {
		return result, nil
	}
	if len(plan.Actions) == 0 {
		if plan.HasFailures() {
			return result, ErrPlanFailures
		}
		return result, nil
	}

	localStage := req.StageDir
	ownStage := false
	if localStage == "" {
		localStage, err = e.fs.TempDir()
		if err != nil {
			return nil, fmt.Errorf("failed to create staging directory: %w", err)
		}
		ownStage = true
	}

	if req.Debug {
		if err := e.stageAll(plan, localStage); err != nil {
			return nil, err
		}
		result.StageDir = localStage
		return result, nil
	}

	result.Report = e.executePush(ctx, plan, localStage)
	if ownStage {
		_ = e.fs.RemoveAll(localStage)
	}

	if !result.Report.Succeeded() {
		return result, fmt.Errorf("%w: %v", ErrTransferIncomplete, result.Report.FailedErr)
	}
	if plan.HasFailures() {
		return result, ErrPlanFailures
	}
	return result, nil
}
