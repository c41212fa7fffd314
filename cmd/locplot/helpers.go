package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/locplot/internal/output"
	"github.com/panbanda/locplot/pkg/config"
	"github.com/panbanda/locplot/pkg/history"
)

// History files written by collect.
const (
	rawHistoryFile          = "repo_history.json"
	preprocessedHistoryFile = "repo_history_preprocessed.json"
)

// loadConfig loads the effective configuration and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}

	result, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, err
	}
	cfg := result.Config

	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if f := c.String("format"); f != "" {
		cfg.Output.Format = f
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newFormatter creates a formatter from the global --output flag and the config.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := output.ParseFormat(cfg.Output.Format)
	colored := cfg.Output.Color && format == output.FormatText
	return output.NewFormatter(format, c.String("output"), colored)
}

// historyPath returns the history file named on the command line, or the one
// collect would have written: the preprocessed file when present, else the raw one.
func historyPath(c *cli.Context, cfg *config.Config) string {
	if c.Args().Len() > 0 {
		return c.Args().First()
	}
	pre := filepath.Join(cfg.Collect.OutputDir, preprocessedHistoryFile)
	if _, err := os.Stat(pre); err == nil {
		return pre
	}
	return filepath.Join(cfg.Collect.OutputDir, rawHistoryFile)
}

// openHistory loads a history file and preprocesses it unless that already happened.
func openHistory(path string, squash bool) (*history.History, error) {
	h, err := history.Load(path)
	if err != nil {
		return nil, err
	}
	if h.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", path, history.ErrEmptyHistory)
	}
	if !h.Preprocessed() {
		if err := h.Preprocess(squash); err != nil {
			return nil, fmt.Errorf("failed to preprocess %s: %w", path, err)
		}
	}
	return h, nil
}

// fieldFor resolves --field against the configured default.
func fieldFor(c *cli.Context, cfg *config.Config) (history.Field, error) {
	if f := c.String("field"); f != "" {
		return history.ParseField(f)
	}
	return history.ParseField(cfg.Output.Field)
}

// queryFlags are shared by the commands that read a history.
func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "lang",
			Aliases: []string{"l"},
			Usage:   "Language to include (repeatable, exact name); \"all\" selects the total across languages. Default: every language",
		},
		&cli.StringFlag{
			Name:  "field",
			Usage: "Count to report: code, files, blank, or comment",
		},
		&cli.BoolFlag{
			Name:  "no-squash",
			Usage: "Keep every revision of a day when preprocessing a raw history",
		},
	}
}

func squashFor(c *cli.Context, cfg *config.Config) bool {
	return cfg.History.Squash && !c.Bool("no-squash")
}
