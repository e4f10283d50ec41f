package engine

import (
	"regexp"

	"github.com/danieljhkim/remsync/internal/planner"
)

// PushRequest represents a request to push host documents to the device.
type PushRequest struct {
	// Sources are the host files and directories to push.
	Sources []string

	// DestFolder is the display-name path of the destination folder on
	// the device ("" = top level). Missing segments are created.
	DestFolder string

	// Policy selects the action when a same-identity document exists.
	Policy planner.Policy

	// Excludes are patterns dropping source items from the plan.
	Excludes []*regexp.Regexp

	// DryRun plans without applying.
	DryRun bool

	// Debug stages the payload locally but never transfers it.
	Debug bool

	// StageDir overrides the local staging directory. Empty means a fresh
	// temporary directory that is removed afterwards.
	StageDir string
}

// PushResult represents the result of a push.
type PushResult struct {
	// Plan is the computed plan, identical between dry and real runs.
	Plan *planner.Plan

	// Report describes what was applied (nil for dry runs).
	Report *Report

	// StageDir is the local staging directory used, kept only for Debug.
	StageDir string
}

// PullRequest represents a request to copy documents off the device.
type PullRequest struct {
	// Paths are remote display-name paths, documents or folders.
	Paths []string

	// DestDir is the host directory pulled files land in.
	DestDir string

	// Excludes are patterns dropping remote items from the plan.
	Excludes []*regexp.Regexp

	// DryRun plans without copying.
	DryRun bool
}

// PullResult represents the result of a pull or backup.
type PullResult struct {
	// Plan is the computed plan.
	Plan *planner.Plan

	// Report describes what was copied (nil for dry runs).
	Report *Report
}

// BackupRequest represents a pull of the entire remote tree.
type BackupRequest struct {
	// DestDir is the host directory the backup lands in.
	DestDir string

	// Excludes are patterns dropping remote subtrees from the backup.
	Excludes []*regexp.Regexp

	// DryRun plans without copying.
	DryRun bool
}

// Report is the per-action outcome of executing one plan.
type Report struct {
	// Completed are the actions applied successfully, in plan order.
	Completed []planner.Action

	// Failed is the first action that failed, if any. The executor does
	// not proceed past it.
	Failed *planner.Action

	// FailedErr is the error that stopped the executor.
	FailedErr error

	// Reloaded records whether the device viewer was restarted.
	Reloaded bool
}

// Succeeded reports whether every action applied.
func (r *Report) Succeeded() bool {
	return r.Failed == nil
}

// PurgeClass labels why a record is in the purge set.
type PurgeClass string

const (
	// PurgeSoftDeleted marks a record flagged deleted by the device UI.
	PurgeSoftDeleted PurgeClass = "soft-deleted"

	// PurgeOrphaned marks a record with no valid metadata or parent.
	PurgeOrphaned PurgeClass = "orphaned"
)

// PurgeItem is one record eligible for purging.
type PurgeItem struct {
	// ID is the record identifier.
	ID string

	// Name is the inferred visible name, if the metadata was readable.
	Name string

	// Class says why the record is eligible.
	Class PurgeClass
}

// FlaggedItem is a soft-deleted folder that still has live children and is
// therefore reported for manual attention instead of purged.
type FlaggedItem struct {
	// ID is the folder's record identifier.
	ID string

	// Name is the folder's visible name.
	Name string

	// LiveChildren counts the well-formed children keeping it alive.
	LiveChildren int
}

// CleanRequest represents a request to sweep soft-deleted and orphaned
// records.
type CleanRequest struct {
	// DryRun reports the purge set without deleting anything.
	DryRun bool

	// Force skips the confirmation step: the purge set is deleted
	// immediately. The CLI prompts and retries with Force set.
	Force bool
}

// CleanResult represents the outcome of a cleanup sweep.
type CleanResult struct {
	// Purgeable is the computed purge set.
	Purgeable []PurgeItem

	// Flagged are soft-deleted folders held back because of live
	// children.
	Flagged []FlaggedItem

	// SkippedAmbiguous are orphan identifiers whose wildcard purge would
	// also match other records, left for manual cleanup.
	SkippedAmbiguous []string

	// Purged are the identifiers actually removed (empty for dry runs
	// and unconfirmed sweeps).
	Purged []string

	// DryRun echoes the request flag.
	DryRun bool
}
