package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/locplot/internal/cache"
	"github.com/panbanda/locplot/internal/collector"
	"github.com/panbanda/locplot/internal/progress"
	"github.com/panbanda/locplot/internal/remote"
	"github.com/panbanda/locplot/internal/vcs"
	"github.com/panbanda/locplot/pkg/config"
	"github.com/panbanda/locplot/pkg/history"
	"github.com/panbanda/locplot/pkg/measure"
)

func collectCmd() *cli.Command {
	return &cli.Command{
		Name:      "collect",
		Usage:     "Measure every revision of a repository and write its history",
		ArgsUsage: "[path|url]",
		Description: `Counts the lines of every revision reachable from a branch and writes
repo_history.json to the output directory. The argument is a local working
copy (default ".") or a remote repository: a URL, host/owner/repo, or GitHub
owner/repo shorthand, optionally suffixed with @ref. Remote repositories are
cloned into --dir, replacing whatever is there unless --offline is set.

Examples:
  locplot collect                              # current repository
  locplot collect github.com/owner/repo@main   # clone and measure
  locplot collect --incremental --preprocess   # measure only new revisions`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "branch",
				Aliases: []string{"b"},
				Usage:   "Branch to walk (default: HEAD, or the @ref of a remote argument)",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Clone directory for remote repositories",
			},
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Reuse the existing clone in --dir instead of cloning",
			},
			&cli.BoolFlag{
				Name:  "cleanup",
				Usage: "Remove the clone of a remote repository when done",
			},
			&cli.StringFlag{
				Name:  "output-dir",
				Usage: "Directory to write history files to",
			},
			&cli.BoolFlag{
				Name:  "preprocess",
				Usage: "Also write repo_history_preprocessed.json",
			},
			&cli.BoolFlag{
				Name:  "incremental",
				Usage: "Reuse revisions from an existing repo_history.json",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"j"},
				Usage:   "Revisions measured in parallel, each in its own working copy",
			},
			&cli.StringFlag{
				Name:  "tool",
				Usage: "Line counter: gocloc or cloc",
			},
			&cli.StringFlag{
				Name:  "timeout",
				Usage: "Timeout per measurement attempt (Go duration)",
			},
			&cli.BoolFlag{
				Name:  "skip-malformed",
				Usage: "Skip unparsable revision lines instead of aborting",
			},
			&cli.IntFlag{
				Name:  "max-revisions",
				Usage: "Measure only the newest N revisions (0 = all)",
			},
		},
		Action: runCollectCmd,
	}
}

// applyCollectFlags lets command flags override the configuration.
func applyCollectFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("branch") {
		cfg.Collect.Branch = c.String("branch")
	}
	if c.IsSet("dir") {
		cfg.Collect.WorkDir = c.String("dir")
	}
	if c.IsSet("output-dir") {
		cfg.Collect.OutputDir = c.String("output-dir")
	}
	if c.IsSet("workers") {
		cfg.Collect.Workers = c.Int("workers")
	}
	if c.IsSet("tool") {
		cfg.Measure.Tool = c.String("tool")
	}
	if c.IsSet("timeout") {
		cfg.Measure.Timeout = c.String("timeout")
	}
	if c.IsSet("skip-malformed") {
		cfg.Collect.SkipMalformed = c.Bool("skip-malformed")
	}
	if c.IsSet("max-revisions") {
		cfg.Collect.MaxRevisions = c.Int("max-revisions")
	}
	return cfg.Validate()
}

func runCollectCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := applyCollectFlags(c, cfg); err != nil {
		return err
	}

	ctx := c.Context
	target := "."
	if c.Args().Len() > 0 {
		target = c.Args().First()
	}

	repo, src, err := openRepository(ctx, target, cfg, c.Bool("offline"))
	if err != nil {
		return err
	}
	if src != nil && c.Bool("cleanup") {
		defer src.Cleanup()
	}

	measurer, err := measure.New(measure.Options{
		Tool:     cfg.Measure.Tool,
		Binary:   cfg.Measure.ClocBinary,
		Timeout:  cfg.TimeoutDuration(),
		Attempts: cfg.Measure.Attempts,
	})
	if err != nil {
		return err
	}

	mcache, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	rawPath := filepath.Join(cfg.Collect.OutputDir, rawHistoryFile)
	var previous *history.History
	if c.Bool("incremental") {
		if _, err := os.Stat(rawPath); err == nil {
			previous, err = history.Load(rawPath)
			if err != nil {
				return err
			}
			color.Cyan("Reusing %d revisions from %s", previous.Len(), rawPath)
		}
	}

	verbose := c.Bool("verbose")
	var (
		warnMu   sync.Mutex
		warnings []string
	)
	var tracker *progress.Tracker

	col := collector.New(measurer,
		collector.WithCache(mcache),
		collector.WithBranch(cfg.Collect.Branch),
		collector.WithWorkers(cfg.Collect.Workers),
		collector.WithSkipMalformed(cfg.Collect.SkipMalformed),
		collector.WithMaxRevisions(cfg.Collect.MaxRevisions),
		collector.WithProgress(func(done, total int, rev string) {
			if tracker == nil {
				tracker = progress.NewTracker(fmt.Sprintf("Measuring %d revisions...", total), total)
			}
			tracker.Tick()
		}),
		collector.WithWarnings(func(msg string) {
			warnMu.Lock()
			defer warnMu.Unlock()
			warnings = append(warnings, msg)
			if verbose {
				color.Yellow("Warning: %s", msg)
			}
		}),
	)

	res, err := col.Collect(ctx, repo, previous)
	if tracker != nil {
		if err != nil {
			tracker.FinishError(err)
		} else {
			tracker.FinishSuccess()
		}
	}
	if err != nil {
		if res != nil && errors.Is(err, context.Canceled) && res.History.Len() > 0 {
			if serr := writeHistory(rawPath, res.History); serr == nil {
				color.Yellow("Interrupted: %d revisions saved to %s; rerun with --incremental to resume", res.History.Len(), rawPath)
			}
		}
		return err
	}

	if err := writeHistory(rawPath, res.History); err != nil {
		return err
	}
	reportCollect(res, rawPath, warnings, verbose)

	if c.Bool("preprocess") {
		if err := res.History.Preprocess(cfg.History.Squash); err != nil {
			return err
		}
		prePath := filepath.Join(cfg.Collect.OutputDir, preprocessedHistoryFile)
		if err := writeHistory(prePath, res.History); err != nil {
			return err
		}
		color.Green("Wrote %d dated revisions to %s", res.History.Len(), prePath)
	}
	return nil
}

// openRepository opens a local working copy or acquires a remote one. The
// returned source is nil for local paths.
func openRepository(ctx context.Context, target string, cfg *config.Config, offline bool) (vcs.Repository, *remote.Source, error) {
	src, err := remote.Parse(target)
	if err != nil {
		return nil, nil, err
	}
	if src == nil {
		repo, err := vcs.DefaultOpener().Open(target)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open repository %s: %w", target, err)
		}
		return repo, nil, nil
	}

	if cfg.Collect.Branch == "" {
		cfg.Collect.Branch = src.Ref
	}

	spinner := progress.NewSpinner(fmt.Sprintf("Cloning %s...", src.URL))
	if offline {
		spinner = progress.NewSpinner(fmt.Sprintf("Opening %s...", cfg.Collect.WorkDir))
	}
	repo, err := src.Acquire(ctx, cfg.Collect.WorkDir, offline, spinner)
	if err != nil {
		spinner.FinishError(err)
		return nil, nil, err
	}
	spinner.FinishSuccess()
	return repo, src, nil
}

func writeHistory(path string, h *history.History) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}
	return history.Save(path, h)
}

func reportCollect(res *collector.Result, path string, warnings []string, verbose bool) {
	color.Green("Wrote %d revisions to %s", res.History.Len(), path)
	fmt.Printf("  %d in log, %d measured (%d from cache), %d reused\n", res.Total, res.Measured, res.Cached, res.Reused)

	if len(res.Skipped) > 0 {
		color.Yellow("  %d malformed revision lines skipped", len(res.Skipped))
	}
	if len(res.Failed) > 0 {
		color.Yellow("  %d revisions could not be measured and were recorded as empty", len(res.Failed))
	}
	if !verbose && len(warnings) > 0 {
		color.Yellow("  %d warnings (use --verbose to show them)", len(warnings))
	}
}
