package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/danieljhkim/remsync/internal/clock"
	"github.com/danieljhkim/remsync/internal/config"
	"github.com/danieljhkim/remsync/internal/engine"
	"github.com/danieljhkim/remsync/internal/fsops"
	"github.com/danieljhkim/remsync/internal/planner"
	"github.com/danieljhkim/remsync/internal/transport"
)

// loadConfig resolves the configuration and applies global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if remoteAddress != "" {
		cfg.Address = remoteAddress
	}
	return cfg, nil
}

// newEngine opens the transport and wires an engine with real
// implementations of all dependencies. The returned closer tears the ssh
// control connection down.
func newEngine(ctx context.Context) (*engine.Engine, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	ssh := transport.NewSSH(cfg.Address, cfg.Socket)
	if err := ssh.Open(ctx); err != nil {
		return nil, nil, fmt.Errorf("cannot reach device at %s: %w", cfg.Address, err)
	}

	eng := engine.New(ssh, fsops.NewRealFS(), &clock.RealClock{}, cfg)
	return eng, ssh.Close, nil
}

// compileExcludes parses the --exclude flag values, folding in the
// configured defaults.
func compileExcludes(cfg *config.Config, patterns []string) ([]*regexp.Regexp, error) {
	all := append(append([]string{}, cfg.Excludes...), patterns...)
	out := make([]*regexp.Regexp, 0, len(all))
	for _, p := range all {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// actionLabel maps an action type to the verb shown in plan output.
func actionLabel(t string) string {
	switch t {
	case planner.ActionCreateFolder:
		return "mkdir"
	case planner.ActionCreateDocument:
		return "add"
	case planner.ActionReplaceDocument:
		return "replace"
	case planner.ActionReplaceContentOnly:
		return "replace content"
	case planner.ActionSkipExisting:
		return "skip"
	case planner.ActionCopyOut:
		return "pull"
	}
	return t
}

// printPlan renders a plan. Skipped items and failures are always listed;
// exclusions only show up in verbose mode.
func printPlan(plan *planner.Plan) {
	for _, a := range plan.Actions {
		target := a.RemotePath
		if a.Type == planner.ActionCopyOut {
			target = a.RemotePath + " -> " + a.DestPath
		}
		PrintLabelValue(actionLabel(a.Type), target)
	}
	if verbose {
		for _, ex := range plan.Excluded {
			PrintLabelValue("exclude", fmt.Sprintf("%s (%s)", ex.Item, ex.Pattern))
		}
	}
	for _, f := range plan.Failures {
		PrintWarning(fmt.Sprintf("%s: %v", f.Item, f.Err))
	}
}

// printReport renders the executed portion of a plan.
func printReport(report *engine.Report) {
	for _, a := range report.Completed {
		if !a.Mutating() && a.Type != planner.ActionCopyOut {
			continue
		}
		PrintSuccess(fmt.Sprintf("%s %s", actionLabel(a.Type), a.RemotePath))
	}
	if report.Failed != nil {
		PrintError(fmt.Sprintf("%s %s: %v", actionLabel(report.Failed.Type), report.Failed.RemotePath, report.FailedErr))
	}
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
