// Package history aggregates per-revision line counts of a repository into a
// chronologically ordered, day-granular, language-indexed time series.
package history

import (
	"slices"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
)

// History is the ordered collection of measured revisions of one repository.
// It is not safe for concurrent mutation.
type History struct {
	revisions    []*Revision
	initialDate  time.Time
	finalDate    time.Time
	preprocessed bool
	languages    []string

	coverage map[string]*roaring.Bitmap
}

// New creates a history owning the given revisions.
func New(revs ...*Revision) *History {
	h := &History{}
	for _, r := range revs {
		h.Add(r)
	}
	return h
}

// Add appends a revision. Adding to a preprocessed history clears its
// preprocessed state so that Preprocess can run again over the new set.
func (h *History) Add(r *Revision) {
	h.revisions = append(h.revisions, r)
	h.coverage = nil
	if h.preprocessed {
		h.preprocessed = false
		h.languages = nil
	}
}

// Len returns the number of revisions.
func (h *History) Len() int {
	return len(h.revisions)
}

// Revisions returns the revisions in their current order.
func (h *History) Revisions() []*Revision {
	return slices.Clone(h.revisions)
}

// Contains reports whether id is the primary or a merged id of any revision.
func (h *History) Contains(id string) bool {
	for _, r := range h.revisions {
		if r.ID == id || slices.Contains(r.MergedIDs, id) {
			return true
		}
	}
	return false
}

// IDs returns the set of primary and merged ids of all revisions.
func (h *History) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(h.revisions))
	for _, r := range h.revisions {
		ids[r.ID] = struct{}{}
		for _, id := range r.MergedIDs {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// Preprocessed reports whether Preprocess has completed.
func (h *History) Preprocessed() bool {
	return h.preprocessed
}

// InitialDate returns the timestamp of the oldest revision once preprocessed.
func (h *History) InitialDate() (time.Time, bool) {
	return h.initialDate, h.preprocessed
}

// FinalDate returns the timestamp of the newest revision once preprocessed.
func (h *History) FinalDate() (time.Time, bool) {
	return h.finalDate, h.preprocessed
}

// Languages returns the sorted language universe. Before preprocessing it is
// computed from the current revisions.
func (h *History) Languages() []string {
	if h.preprocessed {
		return slices.Clone(h.languages)
	}
	return unionLanguages(h.revisions)
}

// Preprocess orders the revisions by timestamp and, when squash is set, merges
// all revisions of a calendar day into the earliest one of that day.
func (h *History) Preprocess(squash bool) error {
	if h.preprocessed {
		return ErrAlreadyPreprocessed
	}
	if len(h.revisions) == 0 {
		return ErrEmptyHistory
	}

	sort.SliceStable(h.revisions, func(i, j int) bool {
		return h.revisions[i].Timestamp.Before(h.revisions[j].Timestamp)
	})

	// Languages of absorbed revisions must survive the squash.
	languages := unionLanguages(h.revisions)

	if squash {
		squashed, err := squashByDate(h.revisions)
		if err != nil {
			return err
		}
		h.revisions = squashed
	}

	h.initialDate = h.revisions[0].Timestamp
	h.finalDate = h.revisions[len(h.revisions)-1].Timestamp
	h.languages = languages
	h.coverage = nil
	h.preprocessed = true
	return nil
}

func squashByDate(sorted []*Revision) ([]*Revision, error) {
	out := make([]*Revision, 0, len(sorted))
	var rep *Revision
	for _, r := range sorted {
		if rep != nil && sameDate(rep.Timestamp, r.Timestamp) {
			if err := rep.MergeWith(r); err != nil {
				return nil, err
			}
			continue
		}
		rep = r
		out = append(out, r)
	}
	return out, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func unionLanguages(revs []*Revision) []string {
	seen := make(map[string]struct{})
	for _, r := range revs {
		if !r.Populated() {
			continue
		}
		for lang := range r.counts {
			seen[lang] = struct{}{}
		}
	}
	langs := make([]string, 0, len(seen))
	for lang := range seen {
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	return langs
}

// Dates returns one timestamp per revision, in revision order.
func (h *History) Dates() []time.Time {
	dates := make([]time.Time, len(h.revisions))
	for i, r := range h.revisions {
		dates[i] = r.Timestamp
	}
	return dates
}

// Coverage returns the positions at which lang has a native measurement.
// The returned bitmap is shared; callers must not modify it.
func (h *History) Coverage(lang string) *roaring.Bitmap {
	if h.coverage == nil {
		h.buildCoverage()
	}
	if bm, ok := h.coverage[lang]; ok {
		return bm
	}
	return roaring.New()
}

func (h *History) buildCoverage() {
	h.coverage = make(map[string]*roaring.Bitmap)
	for i, r := range h.revisions {
		if !r.Populated() {
			continue
		}
		for lang := range r.counts {
			bm, ok := h.coverage[lang]
			if !ok {
				bm = roaring.New()
				h.coverage[lang] = bm
			}
			bm.Add(uint32(i))
		}
	}
}

// Series returns, for each requested language, the values of field aligned
// with Dates. Positions without a native value carry forward the last known
// value of that language, or 0 before its first appearance.
func (h *History) Series(langs []string, field Field) [][]uint64 {
	out := make([][]uint64, len(langs))
	for i, lang := range langs {
		out[i] = h.languageSeries(lang, field)
	}
	return out
}

func (h *History) languageSeries(lang string, field Field) []uint64 {
	series := make([]uint64, len(h.revisions))
	present := h.Coverage(lang)
	var last uint64
	for i, r := range h.revisions {
		if present.Contains(uint32(i)) {
			last = r.counts[lang].Get(field)
		}
		series[i] = last
	}
	return series
}

// Totals returns the aggregate value of field per revision, aligned with Dates.
// Unpopulated revisions contribute 0.
func (h *History) Totals(field Field) []uint64 {
	out := make([]uint64, len(h.revisions))
	for i, r := range h.revisions {
		if r.Populated() {
			out[i] = r.aggregate.Get(field)
		}
	}
	return out
}
