package history

import (
	"fmt"
	"strings"
)

// LanguageCount is the measurement of one language at one revision.
type LanguageCount struct {
	Language string `json:"lang"`
	Files    uint64 `json:"nFiles"`
	Blank    uint64 `json:"blank"`
	Comment  uint64 `json:"comment"`
	Code     uint64 `json:"code"`
}

// Merge returns the element-wise sum of c and other. Both must describe the same language.
func (c LanguageCount) Merge(other LanguageCount) (LanguageCount, error) {
	if c.Language != other.Language {
		return LanguageCount{}, &MismatchedKeyError{Left: c.Language, Right: other.Language}
	}
	return LanguageCount{
		Language: c.Language,
		Files:    c.Files + other.Files,
		Blank:    c.Blank + other.Blank,
		Comment:  c.Comment + other.Comment,
		Code:     c.Code + other.Code,
	}, nil
}

// Get returns the value of a single field.
func (c LanguageCount) Get(f Field) uint64 {
	return project(f, c.Files, c.Blank, c.Comment, c.Code)
}

// AggregateCount is the all-language total of one revision.
type AggregateCount struct {
	Files   uint64 `json:"nFiles"`
	Blank   uint64 `json:"blank"`
	Comment uint64 `json:"comment"`
	Code    uint64 `json:"code"`
}

// Merge returns the element-wise sum of a and other.
func (a AggregateCount) Merge(other AggregateCount) AggregateCount {
	return AggregateCount{
		Files:   a.Files + other.Files,
		Blank:   a.Blank + other.Blank,
		Comment: a.Comment + other.Comment,
		Code:    a.Code + other.Code,
	}
}

// Add folds a language count into the aggregate.
func (a AggregateCount) Add(c LanguageCount) AggregateCount {
	return a.Merge(AggregateCount{Files: c.Files, Blank: c.Blank, Comment: c.Comment, Code: c.Code})
}

// Get returns the value of a single field.
func (a AggregateCount) Get(f Field) uint64 {
	return project(f, a.Files, a.Blank, a.Comment, a.Code)
}

// Lines returns blank + comment + code.
func (a AggregateCount) Lines() uint64 {
	return a.Blank + a.Comment + a.Code
}

// Measurement is what a line-counting tool reports for one checkout.
type Measurement struct {
	Languages []LanguageCount `json:"languages"`
	Aggregate AggregateCount  `json:"aggregate"`
}

// SumLanguages computes the aggregate implied by the language counts.
func (m Measurement) SumLanguages() AggregateCount {
	var total AggregateCount
	for _, c := range m.Languages {
		total = total.Add(c)
	}
	return total
}

// Field selects one of the numeric count fields.
type Field string

const (
	FieldCode    Field = "code"
	FieldFiles   Field = "files"
	FieldBlank   Field = "blank"
	FieldComment Field = "comment"
)

var fieldLabels = map[Field]string{
	FieldCode:    "Lines of code",
	FieldFiles:   "Number of files",
	FieldBlank:   "Blank lines",
	FieldComment: "Comment lines",
}

// Fields returns all fields in display order.
func Fields() []Field {
	return []Field{FieldCode, FieldFiles, FieldBlank, FieldComment}
}

// Label returns a human readable name for the field.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// ParseField accepts a field name, case-insensitively. "nFiles" is an alias of "files".
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "code", "":
		return FieldCode, nil
	case "files", "nfiles":
		return FieldFiles, nil
	case "blank":
		return FieldBlank, nil
	case "comment", "comments":
		return FieldComment, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

func project(f Field, files, blank, comment, code uint64) uint64 {
	switch f {
	case FieldFiles:
		return files
	case FieldBlank:
		return blank
	case FieldComment:
		return comment
	default:
		return code
	}
}
