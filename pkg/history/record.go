package history

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/history.schema.json
var recordSchema []byte

const recordSchemaURL = "locplot://history.schema.json"

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// Record is the persisted form of a History.
type Record struct {
	InitialDate  *string        `json:"initialDate"`
	FinalDate    *string        `json:"finalDate"`
	Languages    []string       `json:"languages"`
	Preprocessed bool           `json:"preprocessed"`
	Commits      []CommitRecord `json:"commits"`
}

// CommitRecord is the persisted form of a Revision.
type CommitRecord struct {
	Hash           string          `json:"hash"`
	Date           string          `json:"date"`
	Time           string          `json:"time"`
	SquashedHashes []string        `json:"squashed_hashes"`
	Aggregated     AggregateCount  `json:"aggregated"`
	FileData       []LanguageCount `json:"fileData"`
}

// ToRecord converts h to its persisted form. Dates are zero-padded.
func ToRecord(h *History) *Record {
	rec := &Record{
		Preprocessed: h.preprocessed,
		Commits:      make([]CommitRecord, 0, len(h.revisions)),
	}
	if h.preprocessed {
		initial := h.initialDate.Format(dateLayout)
		final := h.finalDate.Format(dateLayout)
		rec.InitialDate = &initial
		rec.FinalDate = &final
		rec.Languages = slices.Clone(h.languages)
	}
	for _, r := range h.revisions {
		cr := CommitRecord{
			Hash:           r.ID,
			Date:           r.Timestamp.Format(dateLayout),
			Time:           r.Timestamp.Format(timeLayout),
			SquashedHashes: slices.Clone(r.MergedIDs),
			FileData:       []LanguageCount{},
		}
		if cr.SquashedHashes == nil {
			cr.SquashedHashes = []string{}
		}
		if r.Populated() {
			cr.Aggregated = r.Aggregate()
			cr.FileData = r.Counts()
		}
		rec.Commits = append(rec.Commits, cr)
	}
	return rec
}

// FromRecord rebuilds a History. Unpadded dates are accepted.
func FromRecord(rec *Record) (*History, error) {
	h := &History{}
	for i, cr := range rec.Commits {
		if cr.Hash == "" {
			return nil, &ParseError{Reason: fmt.Sprintf("commit %d has no hash", i)}
		}
		ts, err := parseRecordTimestamp(cr.Date, cr.Time)
		if err != nil {
			return nil, err
		}
		r := NewRevision(cr.Hash, ts)
		if len(cr.SquashedHashes) > 0 {
			r.MergedIDs = slices.Clone(cr.SquashedHashes)
		}
		r.Populate(Measurement{Languages: cr.FileData, Aggregate: cr.Aggregated})
		h.revisions = append(h.revisions, r)
	}

	if !rec.Preprocessed {
		return h, nil
	}
	if len(h.revisions) == 0 {
		return nil, &ParseError{Reason: "preprocessed history has no commits"}
	}

	if err := checkPreprocessedOrder(h.revisions); err != nil {
		return nil, err
	}

	h.languages = mergeLanguages(rec.Languages, unionLanguages(h.revisions))
	h.initialDate = h.revisions[0].Timestamp
	h.finalDate = h.revisions[len(h.revisions)-1].Timestamp
	if err := checkRecordBound("initialDate", rec.InitialDate, h.initialDate); err != nil {
		return nil, err
	}
	if err := checkRecordBound("finalDate", rec.FinalDate, h.finalDate); err != nil {
		return nil, err
	}
	h.preprocessed = true
	return h, nil
}

// checkPreprocessedOrder rejects commits that are not in ascending time order,
// and repeated days in a squashed history.
func checkPreprocessedOrder(revs []*Revision) error {
	squashed := false
	for _, r := range revs {
		if len(r.MergedIDs) > 0 {
			squashed = true
			break
		}
	}
	for i := 1; i < len(revs); i++ {
		prev, cur := revs[i-1], revs[i]
		if cur.Timestamp.Before(prev.Timestamp) {
			return &ParseError{Input: cur.ID, Reason: fmt.Sprintf("preprocessed commit %d is older than its predecessor", i)}
		}
		if squashed && sameDate(prev.Timestamp, cur.Timestamp) {
			return &ParseError{Input: cur.ID, Reason: fmt.Sprintf("squashed history repeats date %s", cur.Date())}
		}
	}
	return nil
}

// checkRecordBound compares a stored bound with the one derived from the commits.
func checkRecordBound(name string, stored *string, derived time.Time) error {
	if stored == nil {
		return nil
	}
	d, err := parseRecordDate(*stored)
	if err != nil {
		return err
	}
	if !sameDate(d, derived) {
		return &ParseError{Input: *stored, Reason: fmt.Sprintf("%s does not match commit date %s", name, derived.Format(dateLayout))}
	}
	return nil
}

func mergeLanguages(a, b []string) []string {
	out := slices.Concat(a, b)
	slices.Sort(out)
	return slices.Compact(out)
}

func parseRecordDate(s string) (time.Time, error) {
	date, err := splitInts(s, "-")
	if err != nil {
		return time.Time{}, &ParseError{Input: s, Reason: "invalid date"}
	}
	ts, ok := makeTimestamp(date, [3]int{})
	if !ok {
		return time.Time{}, &ParseError{Input: s, Reason: "date out of range"}
	}
	return ts, nil
}

func parseRecordTimestamp(dateStr, timeStr string) (time.Time, error) {
	date, err := splitInts(dateStr, "-")
	if err != nil {
		return time.Time{}, &ParseError{Input: dateStr, Reason: "invalid date"}
	}
	clock, err := splitInts(timeStr, ":")
	if err != nil {
		return time.Time{}, &ParseError{Input: timeStr, Reason: "invalid time"}
	}
	ts, ok := makeTimestamp(date, clock)
	if !ok {
		return time.Time{}, &ParseError{Input: dateStr + " " + timeStr, Reason: "date or time out of range"}
	}
	return ts, nil
}

// Marshal encodes h as an indented JSON record.
func Marshal(h *History) ([]byte, error) {
	data, err := json.MarshalIndent(ToRecord(h), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return data, nil
}

// Unmarshal validates data against the history schema and decodes it.
func Unmarshal(data []byte) (*History, error) {
	if err := validateRecord(data); err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &ParseError{Reason: err.Error()}
	}
	return FromRecord(&rec)
}

func validateRecord(data []byte) error {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(recordSchema))
		if err != nil {
			compileErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(recordSchemaURL, doc); err != nil {
			compileErr = err
			return
		}
		compiledSchema, compileErr = c.Compile(recordSchemaURL)
	})
	if compileErr != nil {
		return fmt.Errorf("failed to compile history schema: %w", compileErr)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return &ParseError{Reason: "invalid JSON: " + err.Error()}
	}
	if err := compiledSchema.Validate(inst); err != nil {
		return &ParseError{Reason: err.Error()}
	}
	return nil
}

// Save writes h to path.
func Save(path string, h *History) error {
	data, err := Marshal(h)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// Load reads a history written by Save.
func Load(path string) (*History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	h, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}
