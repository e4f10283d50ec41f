package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/remsync/internal/engine"
)

var (
	pullOutput   string
	pullExcludes []string
	pullDryRun   bool
)

var pullCmd = &cobra.Command{
	Use:     "pull <paths...>",
	Aliases: []string{"-"},
	Short:   "Copy documents from the device to the host",
	Long: `Copy uploaded documents off the device by their display-name path.

Pulling a folder copies every document under it, recreating the folder
structure on the host. Only documents that were uploaded as pdf or epub can
be pulled; notebooks created on the device have no raw payload.

Examples:
  # Pull a single document into the current directory
  remsync pull "Work/report.pdf"

  # Pull a whole folder somewhere else
  remsync - "Work" -o ~/rm-exports`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPull,
}

func init() {
	pullCmd.Flags().StringVarP(&pullOutput, "output", "o", ".", "Host directory pulled files land in")
	pullCmd.Flags().StringArrayVarP(&pullExcludes, "exclude", "e", nil, "Exclude items matching the regexp (repeatable)")
	pullCmd.Flags().BoolVar(&pullDryRun, "dry-run", false, "Plan only, copy nothing")
}

func runPull(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	excludes, err := compileExcludes(cfg, pullExcludes)
	if err != nil {
		return err
	}

	eng, closeTransport, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer closeTransport()

	result, err := eng.Pull(ctx, &engine.PullRequest{
		Paths:    args,
		DestDir:  pullOutput,
		Excludes: excludes,
		DryRun:   pullDryRun,
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

	if pullDryRun {
		PrintSection("Dry Run")
		printPlan(result.Plan)
		return err
	}

	printPlan(result.Plan)
	if result.Report != nil {
		printReport(result.Report)
		if result.Report.Succeeded() && len(result.Report.Completed) > 0 {
			PrintSuccess(fmt.Sprintf("Pulled %s into %s.", PrintCount(len(result.Report.Completed), "document", "documents"), pullOutput))
		}
	}
	if errors.Is(err, engine.ErrPlanFailures) {
		PrintWarning("Some items were not pulled, see above.")
	}
	return err
}
