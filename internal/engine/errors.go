package engine

import "errors"

var (
	// ErrNothingToDo indicates the plan contained no actions at all.
	ErrNothingToDo = errors.New("nothing to do")

	// ErrPlanFailures indicates at least one item was rejected during
	// planning. The per-item reasons are on the plan.
	ErrPlanFailures = errors.New("some items could not be planned")

	// ErrTransferIncomplete indicates the executor stopped before
	// finishing the plan. Completed actions are reported, not unwound.
	ErrTransferIncomplete = errors.New("transfer incomplete")
)
