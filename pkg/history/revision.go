package history

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Revision is one commit of the analyzed repository together with its measurement.
// After squashing it also stands for the same-day commits merged into it.
type Revision struct {
	ID        string
	MergedIDs []string
	Timestamp time.Time

	counts    map[string]LanguageCount
	aggregate AggregateCount
	populated bool
}

// NewRevision creates an unpopulated revision.
func NewRevision(id string, ts time.Time) *Revision {
	return &Revision{ID: id, Timestamp: ts}
}

// ParseRevision parses a log line of the form "<hash> <YYYY-M-D> <H:M:S>".
// Double quotes are ignored so that shell-quoted log formats parse too.
// The timestamp is the written wall-clock value, stored in UTC.
func ParseRevision(line string) (*Revision, error) {
	fields := strings.Fields(strings.ReplaceAll(line, `"`, ""))
	if len(fields) != 3 {
		return nil, &ParseError{Input: line, Reason: "expected hash, date and time"}
	}

	date, err := splitInts(fields[1], "-")
	if err != nil {
		return nil, &ParseError{Input: line, Reason: "invalid date"}
	}
	clock, err := splitInts(fields[2], ":")
	if err != nil {
		return nil, &ParseError{Input: line, Reason: "invalid time"}
	}

	ts, ok := makeTimestamp(date, clock)
	if !ok {
		return nil, &ParseError{Input: line, Reason: "date or time out of range"}
	}
	return NewRevision(fields[0], ts), nil
}

func splitInts(s, sep string) ([3]int, error) {
	var out [3]int
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return out, strconv.ErrSyntax
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return out, err
		}
		out[i] = n
	}
	return out, nil
}

func makeTimestamp(date, clock [3]int) (time.Time, bool) {
	year, month, day := date[0], date[1], date[2]
	hour, minute, second := clock[0], clock[1], clock[2]
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return time.Time{}, false
	}
	ts := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	// time.Date normalizes Feb 30 into March; reject it.
	if ts.Day() != day || int(ts.Month()) != month {
		return time.Time{}, false
	}
	return ts, true
}

// Populate attaches a measurement to the revision. Counts reported twice for the
// same language are merged. Populating a revision twice is a programming error.
func (r *Revision) Populate(m Measurement) {
	if r.populated {
		panic("history: revision " + r.ID + " already populated")
	}
	r.counts = make(map[string]LanguageCount, len(m.Languages))
	for _, c := range m.Languages {
		if prev, ok := r.counts[c.Language]; ok {
			c, _ = prev.Merge(c)
		}
		r.counts[c.Language] = c
	}
	r.aggregate = m.Aggregate
	r.populated = true
}

// Populated reports whether a measurement has been attached.
func (r *Revision) Populated() bool {
	return r.populated
}

func (r *Revision) mustBePopulated() {
	if !r.populated {
		panic("history: revision " + r.ID + " read before populate")
	}
}

// Languages returns the measured languages in sorted order.
func (r *Revision) Languages() []string {
	r.mustBePopulated()
	langs := make([]string, 0, len(r.counts))
	for lang := range r.counts {
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	return langs
}

// Count returns the count of one language.
func (r *Revision) Count(lang string) (LanguageCount, bool) {
	r.mustBePopulated()
	c, ok := r.counts[lang]
	return c, ok
}

// Counts returns all language counts sorted by language.
func (r *Revision) Counts() []LanguageCount {
	out := make([]LanguageCount, 0, len(r.counts))
	for _, lang := range r.Languages() {
		out = append(out, r.counts[lang])
	}
	return out
}

// Aggregate returns the all-language total.
func (r *Revision) Aggregate() AggregateCount {
	r.mustBePopulated()
	return r.aggregate
}

// Measurement returns the revision's counts in measurement form.
func (r *Revision) Measurement() Measurement {
	return Measurement{Languages: r.Counts(), Aggregate: r.Aggregate()}
}

// AllIDs returns the revision's own id followed by every merged id.
func (r *Revision) AllIDs() []string {
	return append([]string{r.ID}, r.MergedIDs...)
}

// Date returns the calendar date of the revision, formatted YYYY-MM-DD.
func (r *Revision) Date() string {
	return r.Timestamp.Format(dateLayout)
}

// MergeWith folds other into r: counts and aggregates are summed and other's ids
// are appended to MergedIDs. other is emptied, as r now owns its data.
func (r *Revision) MergeWith(other *Revision) error {
	if r == other {
		return ErrSelfMerge
	}
	r.mustBePopulated()
	other.mustBePopulated()

	for lang, c := range other.counts {
		if mine, ok := r.counts[lang]; ok {
			merged, err := mine.Merge(c)
			if err != nil {
				return err
			}
			r.counts[lang] = merged
			continue
		}
		r.counts[lang] = c
	}
	r.aggregate = r.aggregate.Merge(other.aggregate)
	r.MergedIDs = append(r.MergedIDs, other.ID)
	r.MergedIDs = append(r.MergedIDs, other.MergedIDs...)

	other.counts = nil
	other.MergedIDs = nil
	other.aggregate = AggregateCount{}
	other.populated = false
	return nil
}

// Verify checks that the aggregate equals the sum of the language counts.
func (r *Revision) Verify() error {
	r.mustBePopulated()
	var sum AggregateCount
	for _, c := range r.counts {
		sum = sum.Add(c)
	}
	if sum != r.aggregate {
		return &AggregateMismatchError{ID: r.ID, Expected: sum, Actual: r.aggregate}
	}
	return nil
}
