package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/locplot/internal/output"
	"github.com/panbanda/locplot/internal/report"
	"github.com/panbanda/locplot/pkg/history"
)

// HistoryInput is the base input for all history tools.
type HistoryInput struct {
	Path   string `json:"path,omitempty" jsonschema:"Path to a history JSON file written by locplot collect. Defaults to repo_history.json."`
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// SeriesInput selects languages and a field.
type SeriesInput struct {
	HistoryInput
	Languages []string `json:"languages,omitempty" jsonschema:"Languages to return. Use all for the aggregate total. Defaults to every language."`
	Field     string   `json:"field,omitempty" jsonschema:"Field to plot: code (default), files, blank, or comment."`
}

// LanguageInfo describes one language of a history.
type LanguageInfo struct {
	Name       string `json:"name" toon:"name"`
	Coverage   uint64 `json:"coverage" toon:"coverage"`
	FirstSeen  string `json:"first_seen" toon:"first_seen"`
	LastSeen   string `json:"last_seen" toon:"last_seen"`
	LatestCode uint64 `json:"latest_code" toon:"latest_code"`
}

// LanguagesResult is returned by history_languages.
type LanguagesResult struct {
	Revisions   int            `json:"revisions" toon:"revisions"`
	InitialDate string         `json:"initial_date" toon:"initial_date"`
	FinalDate   string         `json:"final_date" toon:"final_date"`
	Languages   []LanguageInfo `json:"languages" toon:"languages"`
}

// LanguageSize is one language's size at the final revision.
type LanguageSize struct {
	Name string `json:"name" toon:"name"`
	Code uint64 `json:"code" toon:"code"`
}

// SummaryResult is returned by history_summary.
type SummaryResult struct {
	Revisions   int                    `json:"revisions" toon:"revisions"`
	InitialDate string                 `json:"initial_date" toon:"initial_date"`
	FinalDate   string                 `json:"final_date" toon:"final_date"`
	Totals      history.AggregateCount `json:"totals" toon:"totals"`
	TotalLines  string                 `json:"total_lines" toon:"total_lines"`
	Languages   []LanguageSize         `json:"languages" toon:"languages"`
}

const dateLayout = "2006-01-02"

// load reads and preprocesses the history a call refers to.
func (s *Server) load(input HistoryInput) (*history.History, error) {
	p := input.Path
	if p == "" {
		p = s.historyPath
	}
	h, err := history.Load(p)
	if err != nil {
		return nil, err
	}
	if h.Len() == 0 {
		return nil, history.ErrEmptyHistory
	}
	if !h.Preprocessed() {
		if err := h.Preprocess(s.squash); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func getFormat(input HistoryInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	switch format {
	case output.FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	case output.FormatMarkdown:
		out, err := output.MarshalTOON(data)
		if err != nil {
			return "", err
		}
		return "```\n" + out + "\n```", nil
	default:
		return output.MarshalTOON(data)
	}
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func dateRange(h *history.History) (string, string) {
	first, _ := h.InitialDate()
	last, _ := h.FinalDate()
	return first.Format(dateLayout), last.Format(dateLayout)
}

func (s *Server) handleLanguages(ctx context.Context, req *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, any, error) {
	h, err := s.load(input)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(languagesOf(h), getFormat(input))
}

func languagesOf(h *history.History) LanguagesResult {
	res := LanguagesResult{Revisions: h.Len()}
	res.InitialDate, res.FinalDate = dateRange(h)

	dates := h.Dates()
	for _, lang := range h.Languages() {
		info := LanguageInfo{Name: lang}
		cov := h.Coverage(lang)
		info.Coverage = cov.GetCardinality()
		if !cov.IsEmpty() {
			info.FirstSeen = dates[cov.Minimum()].Format(dateLayout)
			info.LastSeen = dates[cov.Maximum()].Format(dateLayout)
		}
		if latest := h.Series([]string{lang}, history.FieldCode)[0]; len(latest) > 0 {
			info.LatestCode = latest[len(latest)-1]
		}
		res.Languages = append(res.Languages, info)
	}
	return res
}

func (s *Server) handleSeries(ctx context.Context, req *mcp.CallToolRequest, input SeriesInput) (*mcp.CallToolResult, any, error) {
	field, err := history.ParseField(input.Field)
	if err != nil {
		return toolError(err.Error())
	}
	h, err := s.load(input.HistoryInput)
	if err != nil {
		return toolError(err.Error())
	}
	r, err := report.Build(h, input.Languages, field)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(r, getFormat(input.HistoryInput))
}

func (s *Server) handleSummary(ctx context.Context, req *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, any, error) {
	h, err := s.load(input)
	if err != nil {
		return toolError(err.Error())
	}
	res, err := summaryOf(h)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(res, getFormat(input))
}

func summaryOf(h *history.History) (SummaryResult, error) {
	revs := h.Revisions()
	final := revs[len(revs)-1]
	if !final.Populated() {
		return SummaryResult{}, fmt.Errorf("final revision %s has no measurement", final.ID)
	}

	res := SummaryResult{
		Revisions: h.Len(),
		Totals:    final.Aggregate(),
	}
	res.InitialDate, res.FinalDate = dateRange(h)
	res.TotalLines = humanize.Comma(int64(res.Totals.Lines()))

	for _, c := range final.Counts() {
		res.Languages = append(res.Languages, LanguageSize{Name: c.Language, Code: c.Code})
	}
	slices.SortStableFunc(res.Languages, func(a, b LanguageSize) int {
		switch {
		case a.Code > b.Code:
			return -1
		case a.Code < b.Code:
			return 1
		}
		return 0
	})
	return res, nil
}
