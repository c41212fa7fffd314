package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/locplot/internal/output"
	"github.com/panbanda/locplot/internal/report"
	"github.com/panbanda/locplot/pkg/config"
	"github.com/panbanda/locplot/pkg/history"
)

func languagesCmd() *cli.Command {
	return &cli.Command{
		Name:      "languages",
		Aliases:   []string{"langs"},
		Usage:     "List the languages of a history and how often each was measured",
		ArgsUsage: "[history.json]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-squash",
				Usage: "Keep every revision of a day when preprocessing a raw history",
			},
		},
		Action: runLanguagesCmd,
	}
}

// languageRow is the structured form of one languages row.
type languageRow struct {
	Language   string `json:"language" toon:"language"`
	Revisions  uint64 `json:"revisions" toon:"revisions"`
	Of         int    `json:"of" toon:"of"`
	FirstSeen  string `json:"first_seen" toon:"first_seen"`
	LastSeen   string `json:"last_seen" toon:"last_seen"`
	LatestCode uint64 `json:"latest_code" toon:"latest_code"`
}

func runLanguagesCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	h, err := openHistory(historyPath(c, cfg), squashFor(c, cfg))
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(languagesTable(h))
}

func languagesTable(h *history.History) *output.Table {
	dates := h.Dates()
	latest := h.Series(h.Languages(), history.FieldCode)

	data := make([]languageRow, 0, len(latest))
	rows := make([][]string, 0, len(latest))
	for i, lang := range h.Languages() {
		cov := h.Coverage(lang)
		row := languageRow{
			Language:  lang,
			Revisions: cov.GetCardinality(),
			Of:        h.Len(),
		}
		if !cov.IsEmpty() {
			row.FirstSeen = dates[cov.Minimum()].Format("2006-01-02")
			row.LastSeen = dates[cov.Maximum()].Format("2006-01-02")
		}
		if n := len(latest[i]); n > 0 {
			row.LatestCode = latest[i][n-1]
		}
		data = append(data, row)
		rows = append(rows, []string{
			row.Language,
			fmt.Sprintf("%d/%d", row.Revisions, row.Of),
			row.FirstSeen,
			row.LastSeen,
			humanize.Comma(int64(row.LatestCode)),
		})
	}

	return output.NewTable(
		"Languages",
		[]string{"Language", "Coverage", "First seen", "Last seen", "Code"},
		rows,
		[]string{fmt.Sprintf("%d languages", len(rows)), "", "", "", ""},
		data,
	)
}

func showCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print date-aligned series and trend statistics",
		ArgsUsage: "[history.json]",
		Description: `Preprocesses the history (unless already preprocessed) and prints one
row per date and one column per language, followed by a trend summary.
Dates where a language was not measured repeat its last known value.

Examples:
  locplot show                                 # every language, lines of code
  locplot show --lang Go --lang all            # Go and the total
  locplot show --field files -f json history.json`,
		Flags:  queryFlags(),
		Action: runShowCmd,
	}
}

func buildReport(c *cli.Context, cfg *config.Config) (*report.SeriesReport, error) {
	field, err := fieldFor(c, cfg)
	if err != nil {
		return nil, err
	}
	h, err := openHistory(historyPath(c, cfg), squashFor(c, cfg))
	if err != nil {
		return nil, err
	}
	return report.Build(h, c.StringSlice("lang"), field)
}

func runShowCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	r, err := buildReport(c, cfg)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(r)
}

func plotCmd() *cli.Command {
	flags := append(queryFlags(),
		&cli.StringFlag{
			Name:  "out",
			Value: "locplot.html",
			Usage: "HTML file to write",
		},
		&cli.StringFlag{
			Name:  "title",
			Usage: "Chart title (default: derived from the history file)",
		},
	)
	return &cli.Command{
		Name:      "plot",
		Usage:     "Write an interactive HTML line chart of the history",
		ArgsUsage: "[history.json]",
		Flags:     flags,
		Action:    runPlotCmd,
	}
}

func runPlotCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	r, err := buildReport(c, cfg)
	if err != nil {
		return err
	}

	title := c.String("title")
	if title == "" {
		title = chartTitle(c, r)
	}

	out := c.String("out")
	if err := report.WriteChartFile(out, r, title); err != nil {
		return err
	}
	color.Green("Wrote %s (%d series, %d dates)", out, len(r.Series), len(r.Dates))
	return nil
}

func chartTitle(c *cli.Context, r *report.SeriesReport) string {
	label := r.Field.Label()
	if c.Args().Len() == 0 {
		return label
	}
	name := strings.TrimSuffix(filepath.Base(c.Args().First()), filepath.Ext(c.Args().First()))
	return fmt.Sprintf("%s: %s", name, label)
}
