package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/locplot/internal/cache"
	"github.com/panbanda/locplot/internal/output"
	"github.com/panbanda/locplot/pkg/config"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the measurement cache",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache size and age",
				Action: runCacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached measurement",
				Action: runCacheClear,
			},
		},
	}
}

// openCache opens the configured cache directory even when caching is disabled.
func openCache(c *cli.Context) (*cache.Cache, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	mc, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return mc, cfg, nil
}

func runCacheStats(c *cli.Context) error {
	mc, cfg, err := openCache(c)
	if err != nil {
		return err
	}
	stats, err := mc.GetStats()
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	rows := [][]string{
		{"Directory", cfg.Cache.Dir},
		{"Entries", humanize.Comma(int64(stats.Entries))},
		{"Size", humanize.Bytes(uint64(stats.TotalSize))},
	}
	if stats.Entries > 0 {
		now := time.Now()
		rows = append(rows,
			[]string{"Oldest", humanize.RelTime(now.Add(-stats.OldestAge), now, "ago", "from now")},
			[]string{"Newest", humanize.RelTime(now.Add(-stats.NewestAge), now, "ago", "from now")},
		)
	}
	return formatter.Output(output.NewTable("Measurement cache", []string{"Property", "Value"}, rows, nil, stats))
}

func runCacheClear(c *cli.Context) error {
	mc, cfg, err := openCache(c)
	if err != nil {
		return err
	}
	if err := mc.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	color.Green("Cleared %s", cfg.Cache.Dir)
	return nil
}
