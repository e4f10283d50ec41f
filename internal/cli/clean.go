package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/remsync/internal/engine"
)

var (
	cleanDryRun bool
	cleanYes    bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Sweep soft-deleted and orphaned records off the device",
	Long: `Delete records that the device UI has already discarded, plus leftover
payload files that no longer have valid metadata.

Soft-deleted folders that still contain live documents are reported instead
of deleted. Orphans whose identifier is a prefix of another record's are
skipped, since the wildcard delete would take the other record too.

By default, you will be prompted to confirm before deletion.
Use --yes to skip the confirmation prompt.
Use --dry-run to preview what would be deleted without actually deleting.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Preview what would be deleted without deleting")
	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "Skip confirmation prompt")
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	eng, closeTransport, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer closeTransport()

	result, err := eng.Clean(ctx, &engine.CleanRequest{
		DryRun: cleanDryRun,
		Force:  cleanYes,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(result)
	}

	printSweep(result)

	if len(result.Purgeable) == 0 {
		return nil
	}

	if result.DryRun {
		fmt.Println()
		PrintWarning("Run without --dry-run to actually delete these records.")
		return nil
	}

	if len(result.Purged) == 0 {
		// Unconfirmed sweep: ask, then run again with the confirmation.
		if !confirm(fmt.Sprintf("Delete %s from the device?", PrintCount(len(result.Purgeable), "record", "records"))) {
			PrintInfo("Aborted.")
			return nil
		}
		result, err = eng.Clean(ctx, &engine.CleanRequest{Force: true})
		if err != nil {
			return err
		}
	}

	PrintSuccess(fmt.Sprintf("Deleted %s.", PrintCount(len(result.Purged), "record", "records")))
	return nil
}

func printSweep(result *engine.CleanResult) {
	if len(result.Purgeable)+len(result.Flagged)+len(result.SkippedAmbiguous) == 0 {
		PrintSection("Clean")
		PrintEmptyState("Nothing to sweep, the store is tidy.")
		return
	}

	if len(result.Purgeable) > 0 {
		PrintSection("Purgeable")
		items := make([]string, 0, len(result.Purgeable))
		for _, item := range result.Purgeable {
			label := item.ID
			if item.Name != "" {
				label = fmt.Sprintf("%s (%s)", item.Name, item.ID)
			}
			items = append(items, fmt.Sprintf("%s [%s]", label, item.Class))
		}
		PrintList(items, 1)
	}

	for _, f := range result.Flagged {
		PrintWarning(fmt.Sprintf("deleted folder %q (%s) still holds %s, leaving it alone",
			f.Name, f.ID, PrintCount(f.LiveChildren, "live item", "live items")))
	}
	for _, id := range result.SkippedAmbiguous {
		PrintWarning(fmt.Sprintf("orphan %s shares a prefix with another record, clean it up manually", id))
	}
}

// confirm asks a yes/no question on the terminal.
func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
