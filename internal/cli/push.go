package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/remsync/internal/engine"
	"github.com/danieljhkim/remsync/internal/planner"
)

var (
	pushOutput     string
	pushOnConflict string
	pushExcludes   []string
	pushDryRun     bool
	pushDebug      bool
	pushStageDir   string
)

var pushCmd = &cobra.Command{
	Use:     "push <paths...>",
	Aliases: []string{"+"},
	Short:   "Push host documents and folders to the device",
	Long: `Push pdf and epub files, or whole directories of them, to the device.

Directories become device folders and their structure is mirrored. Missing
folders along the destination path are created. A document that already
exists at the same place with the same name is handled by the conflict
policy: skip (default), new (keep both), replace, or replace-content-only
(swap the file, keep annotations).

Examples:
  # Push one file to the top level
  remsync push report.pdf

  # Push a directory into an existing folder
  remsync + papers/ -o "Work/Reading"

  # Re-push an updated file, keeping its annotations
  remsync push report.pdf --on-conflict replace-content-only

  # Preview without touching the device
  remsync push papers/ --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVarP(&pushOutput, "output", "o", "", "Destination folder path on the device (default top level)")
	pushCmd.Flags().StringVar(&pushOnConflict, "on-conflict", "", "Conflict policy: skip, new, replace, replace-content-only")
	pushCmd.Flags().StringArrayVarP(&pushExcludes, "exclude", "e", nil, "Exclude items matching the regexp (repeatable)")
	pushCmd.Flags().BoolVar(&pushDryRun, "dry-run", false, "Plan only, transfer nothing")
	pushCmd.Flags().BoolVar(&pushDebug, "debug", false, "Stage the payload locally but never transfer")
	pushCmd.Flags().StringVar(&pushStageDir, "stage-dir", "", "Local staging directory (default a fresh temp dir)")
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	policyName := pushOnConflict
	if policyName == "" {
		policyName = cfg.Policy
	}
	policy, err := planner.ParsePolicy(policyName)
	if err != nil {
		return err
	}

	excludes, err := compileExcludes(cfg, pushExcludes)
	if err != nil {
		return err
	}

	eng, closeTransport, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer closeTransport()

	result, err := eng.Push(ctx, &engine.PushRequest{
		Sources:    args,
		DestFolder: pushOutput,
		Policy:     policy,
		Excludes:   excludes,
		DryRun:     pushDryRun,
		Debug:      pushDebug,
		StageDir:   pushStageDir,
	})
	if err != nil && result == nil {
		return err
	}

	if jsonOutput {
		if jsonErr := outputJSON(result); jsonErr != nil {
			return jsonErr
		}
		return err
	}

	if pushDryRun {
		PrintSection("Dry Run")
		printPlan(result.Plan)
		if n := result.Plan.MutatingCount(); n > 0 {
			fmt.Println()
			PrintWarning(fmt.Sprintf("Run without --dry-run to apply %s.", PrintCount(n, "change", "changes")))
		} else if !result.Plan.HasFailures() {
			PrintEmptyState("Nothing to do, everything is already in place.")
		}
		return err
	}

	if pushDebug {
		printPlan(result.Plan)
		PrintInfo(fmt.Sprintf("Payload staged in %s", result.StageDir))
		return err
	}

	printPlan(result.Plan)
	if result.Report != nil {
		printReport(result.Report)
		if result.Report.Succeeded() && len(result.Report.Completed) > 0 {
			PrintSuccess(fmt.Sprintf("Pushed %s.", PrintCount(countDocuments(result.Report.Completed), "document", "documents")))
		}
	}
	if errors.Is(err, engine.ErrPlanFailures) {
		PrintWarning("Some items were not pushed, see above.")
	}
	return err
}

func countDocuments(actions []planner.Action) int {
	n := 0
	for i := range actions {
		switch actions[i].Type {
		case planner.ActionCreateDocument, planner.ActionReplaceDocument, planner.ActionReplaceContentOnly:
			n++
		}
	}
	return n
}
