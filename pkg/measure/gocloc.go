package measure

import (
	"context"
	"slices"

	"github.com/hhatto/gocloc"

	"github.com/panbanda/locplot/pkg/history"
)

// Gocloc counts lines in-process. Version control directories are skipped.
type Gocloc struct {
	languages *gocloc.DefinedLanguages
}

// NewGocloc creates an in-process backend.
func NewGocloc() *Gocloc {
	return &Gocloc{languages: gocloc.NewDefinedLanguages()}
}

// Name implements Measurer.
func (g *Gocloc) Name() string {
	return ToolGocloc
}

// Measure implements Measurer. The context is only checked before counting
// starts; gocloc has no cancellation hook.
func (g *Gocloc) Measure(ctx context.Context, dir string) (history.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return history.Measurement{}, err
	}

	processor := gocloc.NewProcessor(g.languages, gocloc.NewClocOptions())
	result, err := processor.Analyze([]string{dir})
	if err != nil {
		return history.Measurement{}, err
	}
	return fromGocloc(result), nil
}

func fromGocloc(result *gocloc.Result) history.Measurement {
	var m history.Measurement
	names := make([]string, 0, len(result.Languages))
	for name := range result.Languages {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		lang := result.Languages[name]
		if len(lang.Files) == 0 {
			continue
		}
		m.Languages = append(m.Languages, history.LanguageCount{
			Language: name,
			Files:    uint64(len(lang.Files)),
			Blank:    uint64(lang.Blanks),
			Comment:  uint64(lang.Comments),
			Code:     uint64(lang.Code),
		})
	}
	m.Aggregate = m.SumLanguages()
	return m
}
