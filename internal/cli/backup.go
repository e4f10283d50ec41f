package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/remsync/internal/engine"
)

var (
	backupOutput   string
	backupExcludes []string
	backupDryRun   bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Pull every uploaded document off the device",
	Long: `Copy the entire device tree of uploaded documents to a host directory,
recreating the folder structure. Soft-deleted items and notebooks without a
raw payload are skipped.

Examples:
  # Back everything up
  remsync backup -o ~/rm-backup

  # Leave a folder out
  remsync backup -o ~/rm-backup -e '^Private'`,
	Args: cobra.NoArgs,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().StringVarP(&backupOutput, "output", "o", ".", "Host directory the backup lands in")
	backupCmd.Flags().StringArrayVarP(&backupExcludes, "exclude", "e", nil, "Exclude subtrees matching the regexp (repeatable)")
	backupCmd.Flags().BoolVar(&backupDryRun, "dry-run", false, "Plan only, copy nothing")
}

func runBackup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	excludes, err := compileExcludes(cfg, backupExcludes)
	if err != nil {
		return err
	}

	eng, closeTransport, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer closeTransport()

	result, err := eng.Backup(ctx, &engine.BackupRequest{
		DestDir:  backupOutput,
		Excludes: excludes,
		DryRun:   backupDryRun,
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

	if backupDryRun {
		PrintSection("Dry Run")
		printPlan(result.Plan)
		return err
	}

	printPlan(result.Plan)
	if result.Report != nil {
		printReport(result.Report)
		if result.Report.Succeeded() {
			PrintSuccess(fmt.Sprintf("Backed up %s into %s.", PrintCount(len(result.Report.Completed), "document", "documents"), backupOutput))
		}
	}
	if errors.Is(err, engine.ErrPlanFailures) {
		PrintWarning("Some items were not backed up, see above.")
	}
	return err
}
