package measure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/panbanda/locplot/pkg/history"
)

// Cloc runs the external cloc program.
type Cloc struct {
	binary string
}

// NewCloc creates a cloc backend. An empty binary means "cloc" from PATH.
func NewCloc(binary string) *Cloc {
	if binary == "" {
		binary = "cloc"
	}
	return &Cloc{binary: binary}
}

// Name implements Measurer.
func (c *Cloc) Name() string {
	return ToolCloc
}

// Measure implements Measurer.
func (c *Cloc) Measure(ctx context.Context, dir string) (history.Measurement, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary, dir, "--json", "--quiet")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return history.Measurement{}, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return history.Measurement{}, fmt.Errorf("cloc: %w: %s", err, msg)
		}
		return history.Measurement{}, fmt.Errorf("cloc: %w", err)
	}
	return ParseClocJSON(stdout.Bytes())
}

type clocEntry struct {
	Files   *uint64 `json:"nFiles"`
	Blank   *uint64 `json:"blank"`
	Comment *uint64 `json:"comment"`
	Code    *uint64 `json:"code"`
}

func (e clocEntry) complete() bool {
	return e.Files != nil && e.Blank != nil && e.Comment != nil && e.Code != nil
}

// ParseClocJSON decodes cloc's --json report. Empty output is a valid, empty
// measurement. When the SUM entry is absent the aggregate is computed.
func ParseClocJSON(data []byte) (history.Measurement, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return history.Measurement{}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return history.Measurement{}, fmt.Errorf("invalid cloc output: %w", err)
	}

	var m history.Measurement
	var sum *history.AggregateCount
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if key == "header" {
			continue
		}
		var e clocEntry
		if err := json.Unmarshal(raw[key], &e); err != nil {
			return history.Measurement{}, fmt.Errorf("invalid cloc entry %q: %w", key, err)
		}
		if !e.complete() {
			return history.Measurement{}, fmt.Errorf("invalid cloc entry %q: missing count fields", key)
		}
		if key == "SUM" {
			sum = &history.AggregateCount{Files: *e.Files, Blank: *e.Blank, Comment: *e.Comment, Code: *e.Code}
			continue
		}
		m.Languages = append(m.Languages, history.LanguageCount{
			Language: key,
			Files:    *e.Files,
			Blank:    *e.Blank,
			Comment:  *e.Comment,
			Code:     *e.Code,
		})
	}

	if sum != nil {
		m.Aggregate = *sum
	} else {
		m.Aggregate = m.SumLanguages()
	}
	return m, nil
}
